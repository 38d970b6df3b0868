// Copyright 2025 Raamsri Kumar <raam@tinkershack.in>
// Copyright 2025 The StrataSTOR Authors and Contributors
// SPDX-License-Identifier: Apache-2.0

package pool

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/stratastor/zfskit/pkg/errors"
	"github.com/stratastor/zfskit/pkg/zfs/command"
	"github.com/stratastor/zfskit/pkg/zfs/common"
)

// Manager manages ZFS pool operations
type Manager struct {
	executor command.Runner
}

func NewManager(executor command.Runner) *Manager {
	return &Manager{executor: executor}
}

// buildVDevArgs converts VDevSpec to command arguments
func buildVDevArgs(specs []VDevSpec) []string {
	var args []string
	for _, spec := range specs {
		if spec.Type != "" && spec.Type != "stripe" {
			args = append(args, spec.Type)
		}
		args = append(args, spec.Devices...)
		if len(spec.Children) > 0 {
			args = append(args, buildVDevArgs(spec.Children)...)
		}
	}
	return args
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Create creates a new ZFS pool
func (p *Manager) Create(ctx context.Context, cfg CreateConfig) error {
	if err := common.PoolNameCheck(cfg.Name); err != nil {
		return err
	}
	if len(cfg.VDevSpec) == 0 {
		return errors.New(errors.ZFSInvalidValue, "at least one vdev is required").
			WithAction(fmt.Sprintf("create '%s'", cfg.Name))
	}

	args := []string{}
	for _, k := range sortedKeys(cfg.Properties) {
		args = append(args, "-o", fmt.Sprintf("%s=%s", k, cfg.Properties[k]))
	}
	for _, feature := range sortedKeys(cfg.Features) {
		if cfg.Features[feature] {
			args = append(args, "-o", fmt.Sprintf("feature@%s=enabled", feature))
		}
	}
	for _, k := range sortedKeys(cfg.FSProperties) {
		args = append(args, "-O", fmt.Sprintf("%s=%s", k, cfg.FSProperties[k]))
	}
	if cfg.MountPoint != "" {
		args = append(args, "-m", cfg.MountPoint)
	}

	args = append(args, cfg.Name)
	args = append(args, buildVDevArgs(cfg.VDevSpec)...)

	opts := command.CommandOptions{}
	if cfg.Force {
		opts.Flags = command.FlagForce
	}

	out, err := p.executor.Execute(ctx, opts, "zpool create", args...)
	if err != nil {
		return wrapOutput(err, errors.ZFSPoolCreate, out).WithMetadata("pool", cfg.Name)
	}
	return nil
}

// Destroy destroys a ZFS pool
func (p *Manager) Destroy(ctx context.Context, name string, force bool) error {
	if name == "" {
		return errors.New(errors.ZFSInvalidName, "pool name cannot be empty")
	}

	opts := command.CommandOptions{}
	if force {
		opts.Flags = command.FlagForce
	}
	out, err := p.executor.Execute(ctx, opts, "zpool destroy", name)
	if err != nil {
		return wrapOutput(err, errors.ZFSPoolDestroy, out).WithMetadata("pool", name)
	}
	return nil
}

// Scrub starts/stops a scrub on a pool
func (p *Manager) Scrub(ctx context.Context, name string, stop bool) error {
	args := []string{}
	if stop {
		args = append(args, "-s")
	}
	args = append(args, name)

	out, err := p.executor.Execute(ctx, command.CommandOptions{}, "zpool scrub", args...)
	if err != nil {
		return wrapOutput(err, errors.ZFSPoolScrubFailed, out).WithMetadata("pool", name)
	}
	return nil
}

// List returns the names of all imported pools
func (p *Manager) List(ctx context.Context) ([]string, error) {
	opts := command.CommandOptions{Flags: command.FlagNoHeaders}
	out, err := p.executor.Execute(ctx, opts, "zpool list", "-o", "name")
	if err != nil {
		return nil, wrapOutput(err, errors.ZFSPoolList, out)
	}

	var names []string
	for _, line := range strings.Split(string(out), "\n") {
		if line = strings.TrimSpace(line); line != "" {
			names = append(names, line)
		}
	}
	return names, nil
}

// GetProperty gets a specific property of a pool
func (p *Manager) GetProperty(ctx context.Context, name, property string) (Property, error) {
	opts := command.CommandOptions{Flags: command.FlagNoHeaders | command.FlagParsable}
	out, err := p.executor.Execute(ctx, opts, "zpool get",
		"-o", "property,value,source", property, name)
	if err != nil {
		return Property{}, wrapOutput(err, errors.ZFSPoolGetProperty, out).
			WithMetadata("pool", name).
			WithMetadata("property", property)
	}

	line := strings.TrimRight(string(out), "\n")
	fields := strings.Split(line, "\t")
	if len(fields) != 3 {
		return Property{}, errors.New(errors.CommandOutputParse,
			fmt.Sprintf("unexpected zpool get output %q", line))
	}
	return Property{Name: fields[0], Value: fields[1], Source: fields[2]}, nil
}

func wrapOutput(err error, code errors.ErrorCode, out []byte) *errors.KitError {
	e := errors.Wrap(err, code)
	if len(out) > 0 {
		e.WithMetadata("output", string(out))
	}
	return e
}
