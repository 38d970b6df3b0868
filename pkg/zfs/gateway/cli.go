// Copyright 2025 Raamsri Kumar <raam@tinkershack.in>
// Copyright 2025 The StrataSTOR Authors and Contributors
// SPDX-License-Identifier: Apache-2.0

package gateway

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/stratastor/logger"
	"github.com/stratastor/zfskit/pkg/errors"
	"github.com/stratastor/zfskit/pkg/zfs/command"
	"github.com/stratastor/zfskit/pkg/zfs/common"
	"github.com/stratastor/zfskit/pkg/zfs/pool"
	"github.com/stratastor/zfskit/pkg/zfs/property"
)

const (
	backendCLI  = "cli"
	listColumns = "name,type,guid,createtxg"
)

// CLI implements Gateway on top of the zfs and zpool commands.
type CLI struct {
	exec   command.Runner
	pools  *pool.Manager
	logger logger.Logger
	ready  bool
}

var _ Gateway = (*CLI)(nil)

func NewCLI(exec command.Runner, l logger.Logger) *CLI {
	return &CLI{
		exec:   exec,
		pools:  pool.NewManager(exec),
		logger: l,
	}
}

func (c *CLI) Backend() string { return backendCLI }

// Init checks that the ZFS userland answers.
func (c *CLI) Init(ctx context.Context) error {
	observe(backendCLI, "init")
	if _, err := c.pools.List(ctx); err != nil {
		return err
	}
	c.ready = true
	c.logger.Debug("ZFS gateway initialized", "backend", backendCLI)
	return nil
}

func (c *CLI) Fini() error {
	c.ready = false
	return nil
}

func (c *CLI) check() error {
	if !c.ready {
		return errors.New(errors.ZFSInvariantViolation, "gateway not initialized")
	}
	return nil
}

type listEntry struct {
	name      string
	typ       common.DatasetType
	guid      uint64
	createTXG uint64
}

func (c *CLI) list(ctx context.Context, args ...string) ([]listEntry, error) {
	opts := command.CommandOptions{Flags: command.FlagNoHeaders | command.FlagParsable}
	out, err := c.exec.Execute(ctx, opts, "zfs list", append([]string{"-o", listColumns}, args...)...)
	if err != nil {
		return nil, err
	}
	return parseList(out)
}

func parseList(out []byte) ([]listEntry, error) {
	var entries []listEntry
	for _, line := range strings.Split(string(out), "\n") {
		if line == "" {
			continue
		}
		fields := strings.Split(line, "\t")
		if len(fields) != 4 {
			return nil, errors.New(errors.CommandOutputParse,
				fmt.Sprintf("unexpected zfs list output %q", line))
		}
		guid, err := strconv.ParseUint(fields[2], 10, 64)
		if err != nil {
			return nil, errors.Wrap(err, errors.CommandOutputParse).WithMetadata("line", line)
		}
		txg, err := strconv.ParseUint(fields[3], 10, 64)
		if err != nil {
			return nil, errors.Wrap(err, errors.CommandOutputParse).WithMetadata("line", line)
		}
		entries = append(entries, listEntry{
			name:      fields[0],
			typ:       common.ParseDatasetType(fields[1]),
			guid:      guid,
			createTXG: txg,
		})
	}
	return entries, nil
}

func isPoolName(name string) bool {
	return name != "" && !strings.ContainsAny(name, "/@#")
}

func (c *CLI) Open(ctx context.Context, name string, mask common.DatasetType) (*Handle, error) {
	observe(backendCLI, "open")
	if err := c.check(); err != nil {
		return nil, err
	}
	if err := common.ValidateName(name, mask); err != nil {
		return nil, err
	}

	entries, err := c.list(ctx, name)
	if err != nil {
		return nil, errors.Wrap(err, errors.ZFSDatasetOpen).WithMetadata("name", name)
	}
	if len(entries) != 1 || entries[0].name != name {
		return nil, errors.NewNative("open '"+name+"'", "dataset does not exist")
	}

	e := entries[0]
	typ := e.typ
	if mask.IsPool() && isPoolName(name) {
		typ = common.TypePool
	} else if !typ.Matches(mask) {
		return nil, errors.NewNative("open '"+name+"'", "operation not applicable to datasets of this type")
	}
	return newHandle(name, typ, e.guid, e.createTXG), nil
}

func (c *CLI) Close(h *Handle) {
	h.release()
}

func (c *CLI) Exists(ctx context.Context, name string, mask common.DatasetType) (bool, error) {
	observe(backendCLI, "exists")
	if err := c.check(); err != nil {
		return false, err
	}
	if err := common.ValidateName(name, mask); err != nil {
		return false, err
	}

	entries, err := c.list(ctx, name)
	if err != nil {
		if errors.IsKind(err, errors.KindNotFound) {
			return false, nil
		}
		return false, errors.Wrap(err, errors.ZFSDatasetList).WithMetadata("name", name)
	}
	if len(entries) != 1 {
		return false, nil
	}
	if mask.IsPool() && isPoolName(name) {
		return true, nil
	}
	return entries[0].typ.Matches(mask), nil
}

func visitEntries(entries []listEntry, skip func(listEntry) bool, fn Visitor) error {
	for _, e := range entries {
		if skip(e) {
			continue
		}
		if err := fn(newHandle(e.name, e.typ, e.guid, e.createTXG)); err != nil {
			if errors.Is(err, Stop) {
				return nil
			}
			return err
		}
	}
	return nil
}

func (c *CLI) IterateRoots(ctx context.Context, fn Visitor) error {
	observe(backendCLI, "iterate_roots")
	if err := c.check(); err != nil {
		return err
	}
	names, err := c.pools.List(ctx)
	if err != nil {
		return err
	}
	for _, name := range names {
		h, err := c.Open(ctx, name, common.TypePool)
		if err != nil {
			if errors.IsKind(err, errors.KindNotFound) {
				// exported between the two calls
				continue
			}
			return err
		}
		if err := fn(h); err != nil {
			if errors.Is(err, Stop) {
				return nil
			}
			return err
		}
	}
	return nil
}

func (c *CLI) iterate(ctx context.Context, h *Handle, fn Visitor, types, sortBy string, keep func(listEntry) bool) error {
	if err := c.check(); err != nil {
		return err
	}
	if err := usable(h); err != nil {
		return err
	}
	entries, err := c.list(ctx, "-d", "1", "-t", types, "-s", sortBy, h.name)
	if err != nil {
		return errors.Wrap(err, errors.ZFSDatasetList).WithMetadata("name", h.name)
	}
	return visitEntries(entries, func(e listEntry) bool {
		return e.name == h.name || !keep(e)
	}, fn)
}

func (c *CLI) IterateChildren(ctx context.Context, h *Handle, fn Visitor) error {
	observe(backendCLI, "iterate_children")
	return c.iterate(ctx, h, fn, "filesystem,volume,snapshot", "createtxg", func(listEntry) bool { return true })
}

func (c *CLI) IterateFilesystems(ctx context.Context, h *Handle, fn Visitor) error {
	observe(backendCLI, "iterate_filesystems")
	return c.iterate(ctx, h, fn, "filesystem,volume", "name", func(listEntry) bool { return true })
}

func (c *CLI) IterateSnapshots(ctx context.Context, h *Handle, fn Visitor) error {
	observe(backendCLI, "iterate_snapshots")
	return c.iterate(ctx, h, fn, "snapshot", "createtxg", func(e listEntry) bool {
		return strings.HasPrefix(e.name, h.name+"@")
	})
}

// run executes a mutating subcommand for h and wraps failures with code.
func (c *CLI) run(ctx context.Context, code errors.ErrorCode, name string, opts command.CommandOptions, cmd string, args ...string) error {
	if err := c.check(); err != nil {
		return err
	}
	out, err := c.exec.Execute(ctx, opts, cmd, args...)
	if err != nil {
		e := errors.Wrap(err, code).WithMetadata("name", name)
		if len(out) > 0 {
			e.WithMetadata("output", string(out))
		}
		return e
	}
	return nil
}

func (c *CLI) GetProperty(ctx context.Context, h *Handle, p property.Prop) (property.Raw, error) {
	observe(backendCLI, "get_property")
	if err := c.check(); err != nil {
		return property.Raw{}, err
	}
	if err := usable(h); err != nil {
		return property.Raw{}, err
	}

	opts := command.CommandOptions{Flags: command.FlagNoHeaders | command.FlagParsable}
	out, err := c.exec.Execute(ctx, opts, "zfs get", "-o", "value,source", p.Name(), h.name)
	if err != nil {
		return property.Raw{}, errors.Wrap(err, errors.ZFSDatasetGetProperty).
			WithMetadata("name", h.name).
			WithMetadata("property", p.Name())
	}

	line := strings.TrimRight(string(out), "\n")
	fields := strings.SplitN(line, "\t", 2)
	if len(fields) != 2 {
		return property.Raw{}, errors.New(errors.CommandOutputParse,
			fmt.Sprintf("unexpected zfs get output %q", line))
	}
	src, from := property.ParseSource(fields[1])
	return property.Raw{Value: fields[0], Source: src, SourceData: from}, nil
}

func (c *CLI) GetUserProperties(ctx context.Context, h *Handle) (property.UserProperties, error) {
	observe(backendCLI, "get_user_properties")
	if err := c.check(); err != nil {
		return nil, err
	}
	if err := usable(h); err != nil {
		return nil, err
	}

	opts := command.CommandOptions{Flags: command.FlagNoHeaders | command.FlagParsable}
	out, err := c.exec.Execute(ctx, opts, "zfs get",
		"-o", "property,value,source", "-s", "local,inherited,received", "all", h.name)
	if err != nil {
		return nil, errors.Wrap(err, errors.ZFSDatasetGetProperty).WithMetadata("name", h.name)
	}

	props := make(property.UserProperties)
	for _, line := range strings.Split(string(out), "\n") {
		fields := strings.SplitN(line, "\t", 3)
		if len(fields) != 3 || !strings.Contains(fields[0], ":") {
			continue
		}
		src, from := property.ParseSource(fields[2])
		props[fields[0]] = property.UserRecord{Value: fields[1], Source: src, SourceData: from}
	}
	return props, nil
}

func (c *CLI) SetProperty(ctx context.Context, h *Handle, w property.Wire) error {
	observe(backendCLI, "set_property")
	if err := usable(h); err != nil {
		return err
	}
	return c.run(ctx, errors.ZFSDatasetSetProperty, h.name, command.CommandOptions{},
		"zfs set", w.Arg(), h.name)
}

func (c *CLI) InheritProperty(ctx context.Context, h *Handle, key string, recursive bool) error {
	observe(backendCLI, "inherit_property")
	if err := usable(h); err != nil {
		return err
	}
	opts := command.CommandOptions{}
	if recursive {
		opts.Flags = command.FlagRecursive
	}
	return c.run(ctx, errors.ZFSDatasetInheritProperty, h.name, opts, "zfs inherit", key, h.name)
}

func propArgs(flag string, props []property.Wire) []string {
	var args []string
	for _, w := range props {
		args = append(args, flag, w.Arg())
	}
	return args
}

func (c *CLI) Create(ctx context.Context, name string, typ common.DatasetType, props []property.Wire) error {
	observe(backendCLI, "create")
	var args []string
	if typ == common.TypeVolume {
		var size string
		var rest []property.Wire
		for _, w := range props {
			if w.Key == "volsize" {
				size = w.Value
				continue
			}
			rest = append(rest, w)
		}
		if size == "" {
			return errors.NewNative("create '"+name+"'", "missing volume size")
		}
		args = append(args, "-V", size)
		props = rest
	}
	args = append(args, propArgs("-o", props)...)
	args = append(args, name)
	return c.run(ctx, errors.ZFSDatasetCreate, name, command.CommandOptions{}, "zfs create", args...)
}

func (c *CLI) Destroy(ctx context.Context, h *Handle, deferred bool) error {
	observe(backendCLI, "destroy")
	if err := usable(h); err != nil {
		return err
	}
	var args []string
	if deferred {
		args = append(args, "-d")
	}
	args = append(args, h.name)
	return c.run(ctx, errors.ZFSDatasetDestroy, h.name, command.CommandOptions{}, "zfs destroy", args...)
}

func (c *CLI) Clone(ctx context.Context, snap *Handle, target string, props []property.Wire) error {
	observe(backendCLI, "clone")
	if err := usable(snap); err != nil {
		return err
	}
	args := append(propArgs("-o", props), snap.name, target)
	return c.run(ctx, errors.ZFSDatasetClone, snap.name, command.CommandOptions{}, "zfs clone", args...)
}

func (c *CLI) Snapshot(ctx context.Context, fullName string, recursive bool, props []property.Wire) error {
	observe(backendCLI, "snapshot")
	opts := command.CommandOptions{}
	if recursive {
		opts.Flags = command.FlagRecursive
	}
	args := append(propArgs("-o", props), fullName)
	return c.run(ctx, errors.ZFSSnapshotFailed, fullName, opts, "zfs snapshot", args...)
}

func (c *CLI) Rollback(ctx context.Context, snap *Handle) error {
	observe(backendCLI, "rollback")
	if err := usable(snap); err != nil {
		return err
	}
	return c.run(ctx, errors.ZFSSnapshotRollback, snap.name, command.CommandOptions{}, "zfs rollback", snap.name)
}

func (c *CLI) Rename(ctx context.Context, h *Handle, newName string, recursive bool) error {
	observe(backendCLI, "rename")
	if err := usable(h); err != nil {
		return err
	}
	opts := command.CommandOptions{}
	// -r is only meaningful for snapshots; filesystems always move their subtree
	if recursive && h.typ.IsSnapshot() {
		opts.Flags = command.FlagRecursive
	}
	return c.run(ctx, errors.ZFSDatasetRename, h.name, opts, "zfs rename", h.name, newName)
}

func (c *CLI) Promote(ctx context.Context, h *Handle) error {
	observe(backendCLI, "promote")
	if err := usable(h); err != nil {
		return err
	}
	return c.run(ctx, errors.ZFSDatasetPromote, h.name, command.CommandOptions{}, "zfs promote", h.name)
}

func (c *CLI) Mount(ctx context.Context, h *Handle) error {
	observe(backendCLI, "mount")
	if err := usable(h); err != nil {
		return err
	}
	return c.run(ctx, errors.ZFSMountError, h.name, command.CommandOptions{}, "zfs mount", h.name)
}

func (c *CLI) Unmount(ctx context.Context, h *Handle, force bool) error {
	observe(backendCLI, "unmount")
	if err := usable(h); err != nil {
		return err
	}
	opts := command.CommandOptions{}
	if force {
		opts.Flags = command.FlagForce
	}
	return c.run(ctx, errors.ZFSMountError, h.name, opts, "zfs unmount", h.name)
}

func (c *CLI) Share(ctx context.Context, h *Handle) error {
	observe(backendCLI, "share")
	if err := usable(h); err != nil {
		return err
	}
	return c.run(ctx, errors.ZFSShareError, h.name, command.CommandOptions{}, "zfs share", h.name)
}

func (c *CLI) Unshare(ctx context.Context, h *Handle) error {
	observe(backendCLI, "unshare")
	if err := usable(h); err != nil {
		return err
	}
	return c.run(ctx, errors.ZFSShareError, h.name, command.CommandOptions{}, "zfs unshare", h.name)
}

func (c *CLI) PoolCreate(ctx context.Context, spec PoolSpec) error {
	observe(backendCLI, "pool_create")
	if err := c.check(); err != nil {
		return err
	}
	return c.pools.Create(ctx, spec)
}

func (c *CLI) PoolDestroy(ctx context.Context, name string, force bool) error {
	observe(backendCLI, "pool_destroy")
	if err := c.check(); err != nil {
		return err
	}
	return c.pools.Destroy(ctx, name, force)
}

func (c *CLI) PoolGetProperty(ctx context.Context, name, prop string) (property.Raw, error) {
	observe(backendCLI, "pool_get_property")
	if err := c.check(); err != nil {
		return property.Raw{}, err
	}
	p, err := c.pools.GetProperty(ctx, name, prop)
	if err != nil {
		return property.Raw{}, err
	}
	src, from := property.ParseSource(p.Source)
	return property.Raw{Value: p.Value, Source: src, SourceData: from}, nil
}

func (c *CLI) PoolScrub(ctx context.Context, name string, stop bool) error {
	observe(backendCLI, "pool_scrub")
	if err := c.check(); err != nil {
		return err
	}
	return c.pools.Scrub(ctx, name, stop)
}
