// Copyright 2025 Raamsri Kumar <raam@tinkershack.in>
// Copyright 2025 The StrataSTOR Authors and Contributors
// SPDX-License-Identifier: Apache-2.0

// Package session builds a dataset Registry from configuration.
package session

import (
	"context"
	"fmt"

	"github.com/stratastor/logger"
	"github.com/stratastor/zfskit/config"
	"github.com/stratastor/zfskit/internal/constants"
	"github.com/stratastor/zfskit/pkg/errors"
	"github.com/stratastor/zfskit/pkg/zfs/command"
	"github.com/stratastor/zfskit/pkg/zfs/dataset"
	"github.com/stratastor/zfskit/pkg/zfs/gateway"
)

// NewGateway returns the gateway named by cfg.ZFS.Backend.
func NewGateway(cfg *config.Config, l logger.Logger) (gateway.Gateway, error) {
	switch cfg.ZFS.Backend {
	case constants.BackendCLI, "":
		exec := command.NewCommandExecutor(command.Config{
			ZFSBin:   cfg.ZFS.ZFSBin,
			ZpoolBin: cfg.ZFS.ZpoolBin,
			UseSudo:  cfg.ZFS.UseSudo,
			Timeout:  cfg.ZFS.Timeout,
		}, l)
		return gateway.NewCLI(exec, l), nil
	case constants.BackendMemory:
		return gateway.NewMemory(l), nil
	default:
		return nil, fmt.Errorf("unknown zfs backend %q", cfg.ZFS.Backend)
	}
}

// Open builds the configured gateway and opens a Registry over it. The
// caller closes the Registry.
func Open(ctx context.Context, cfg *config.Config) (*dataset.Registry, error) {
	l, err := logger.NewTag(config.NewLoggerConfig(cfg), "zfs")
	if err != nil {
		return nil, err
	}
	gw, err := NewGateway(cfg, l)
	if err != nil {
		return nil, err
	}
	return dataset.Open(ctx, gw, l)
}

// Opener yields a fresh Registry per call. Commands close what they open.
type Opener func(ctx context.Context) (*dataset.Registry, error)

// FromConfig opens registries from the shared configuration, read at call
// time so flags parsed before the call take effect.
func FromConfig() Opener {
	return func(ctx context.Context) (*dataset.Registry, error) {
		return Open(ctx, config.GetConfig())
	}
}

// OneShot opens registries for commands that run once and exit. The memory
// backend starts empty on every open, so it is refused here; it is only
// useful under serve, which keeps one Registry for its lifetime.
func OneShot() Opener {
	return func(ctx context.Context) (*dataset.Registry, error) {
		cfg := config.GetConfig()
		if err := checkOneShot(cfg); err != nil {
			return nil, err
		}
		return Open(ctx, cfg)
	}
}

func checkOneShot(cfg *config.Config) error {
	if cfg.ZFS.Backend == constants.BackendMemory {
		return errors.New(errors.ConfigInvalid,
			"the memory backend holds no state between commands; use it with serve").
			WithMetadata("backend", cfg.ZFS.Backend)
	}
	return nil
}

// With opens a Registry, runs fn and closes the Registry.
func (o Opener) With(ctx context.Context, fn func(*dataset.Registry) error) error {
	reg, err := o(ctx)
	if err != nil {
		return err
	}
	defer reg.Close()
	return fn(reg)
}
