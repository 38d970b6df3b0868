// Copyright 2025 Raamsri Kumar <raam@tinkershack.in>
// Copyright 2025 The StrataSTOR Authors and Contributors
// SPDX-License-Identifier: Apache-2.0

package dataset

import (
	"context"

	"github.com/google/uuid"
	"github.com/stratastor/logger"
	"github.com/stratastor/zfskit/pkg/errors"
	"github.com/stratastor/zfskit/pkg/zfs/common"
	"github.com/stratastor/zfskit/pkg/zfs/gateway"
	"github.com/stratastor/zfskit/pkg/zfs/property"
)

// Registry is the entry point of the object model. It owns the gateway
// connection and tracks every handle it hands out so Close can release
// them all.
//
// A Registry is not safe for concurrent use. Serialize calls, or keep one
// Registry per goroutine.
type Registry struct {
	gw      gateway.Gateway
	logger  logger.Logger
	session uuid.UUID
	handles map[uuid.UUID]*gateway.Handle
	closed  bool
}

// Open initializes gw and returns a Registry over it.
func Open(ctx context.Context, gw gateway.Gateway, l logger.Logger) (*Registry, error) {
	if err := gw.Init(ctx); err != nil {
		return nil, err
	}
	r := &Registry{
		gw:      gw,
		logger:  l,
		session: uuid.New(),
		handles: make(map[uuid.UUID]*gateway.Handle),
	}
	l.Info("Opened ZFS registry", "backend", gw.Backend(), "session", r.session.String())
	return r, nil
}

// Session identifies this Registry in logs.
func (r *Registry) Session() uuid.UUID { return r.session }

// Backend names the gateway implementation in use.
func (r *Registry) Backend() string { return r.gw.Backend() }

// Close releases every outstanding handle and the connection. Objects
// obtained from r fail fast afterwards. Calling Close again is a no-op.
func (r *Registry) Close() error {
	if r.closed {
		return nil
	}
	for id, h := range r.handles {
		r.gw.Close(h)
		delete(r.handles, id)
	}
	r.closed = true
	r.logger.Info("Closed ZFS registry", "session", r.session.String())
	return r.gw.Fini()
}

func (r *Registry) live() error {
	if r.closed {
		return errors.New(errors.ZFSRegistryClosed, "registry is closed").
			WithMetadata("session", r.session.String())
	}
	return nil
}

func (r *Registry) track(h *gateway.Handle) {
	r.handles[h.ID()] = h
}

func (r *Registry) release(h *gateway.Handle) {
	if h == nil || h.Closed() {
		return
	}
	delete(r.handles, h.ID())
	r.gw.Close(h)
}

// OpenHandles is the number of handles not yet disposed.
func (r *Registry) OpenHandles() int {
	return len(r.handles)
}

// Roots returns every imported pool.
func (r *Registry) Roots(ctx context.Context) ([]*Pool, error) {
	if err := r.live(); err != nil {
		return nil, err
	}
	pools := []*Pool{}
	err := r.gw.IterateRoots(ctx, func(h *gateway.Handle) error {
		d, err := Wrap(r, h)
		if err != nil {
			return err
		}
		p, ok := d.(*Pool)
		if !ok {
			d.Dispose()
			return errors.New(errors.ZFSInvariantViolation, "root iteration returned a non-pool").
				WithMetadata("name", d.Name())
		}
		pools = append(pools, p)
		return nil
	})
	if err != nil {
		disposeAll(pools)
		return nil, err
	}
	return pools, nil
}

// Resolve opens name as one of the types in mask. A zero mask means any
// type. A bare pool name resolves to a *Pool when mask includes TypePool.
func (r *Registry) Resolve(ctx context.Context, name string, mask common.DatasetType) (Dataset, error) {
	if err := r.live(); err != nil {
		return nil, err
	}
	if mask == common.TypeInvalid {
		mask = common.TypeAny
	}
	h, err := r.gw.Open(ctx, name, mask)
	if err != nil {
		return nil, err
	}
	return Wrap(r, h)
}

// ResolvePool opens a pool by name.
func (r *Registry) ResolvePool(ctx context.Context, name string) (*Pool, error) {
	d, err := r.Resolve(ctx, name, common.TypePool)
	if err != nil {
		return nil, err
	}
	return d.(*Pool), nil
}

// ResolveFileSystem opens a filesystem. A pool name yields its root
// filesystem.
func (r *Registry) ResolveFileSystem(ctx context.Context, name string) (*FileSystem, error) {
	d, err := r.Resolve(ctx, name, common.TypeFilesystem)
	if err != nil {
		return nil, err
	}
	return d.(*FileSystem), nil
}

func (r *Registry) ResolveSnapshot(ctx context.Context, name string) (*Snapshot, error) {
	d, err := r.Resolve(ctx, name, common.TypeSnapshot)
	if err != nil {
		return nil, err
	}
	return d.(*Snapshot), nil
}

// Exists asks the gateway directly; it does not resolve and discard.
func (r *Registry) Exists(ctx context.Context, name string, mask common.DatasetType) (bool, error) {
	if err := r.live(); err != nil {
		return false, err
	}
	if mask == common.TypeInvalid {
		mask = common.TypeAny
	}
	return r.gw.Exists(ctx, name, mask)
}

// Create makes a filesystem or volume and resolves it. Volumes need a
// volsize entry in props.
func (r *Registry) Create(ctx context.Context, name string, typ common.DatasetType, props map[string]string) (Dataset, error) {
	if err := r.live(); err != nil {
		return nil, err
	}
	if typ != common.TypeFilesystem && typ != common.TypeVolume {
		return nil, errors.New(errors.ZFSInvalidValue, "only filesystems and volumes can be created").
			WithMetadata("name", name).
			WithMetadata("type", typ.String())
	}
	if err := common.ValidateName(name, typ); err != nil {
		return nil, err
	}
	wires, err := property.EncodeProperties(props, typ)
	if err != nil {
		return nil, errors.Wrap(err, errors.ZFSDatasetCreate).WithMetadata("name", name)
	}
	if err := r.gw.Create(ctx, name, typ, wires); err != nil {
		return nil, err
	}
	r.logger.Info("Created dataset", "name", name, "type", typ.String())
	return r.Resolve(ctx, name, typ)
}

// CreatePool creates a pool and resolves it.
func (r *Registry) CreatePool(ctx context.Context, spec gateway.PoolSpec) (*Pool, error) {
	if err := r.live(); err != nil {
		return nil, err
	}
	if err := r.gw.PoolCreate(ctx, spec); err != nil {
		return nil, err
	}
	r.logger.Info("Created pool", "pool", spec.Name)
	return r.ResolvePool(ctx, spec.Name)
}

// DestroyPool destroys a pool by name. Objects below it become stale.
func (r *Registry) DestroyPool(ctx context.Context, name string, force bool) error {
	if err := r.live(); err != nil {
		return err
	}
	if err := r.gw.PoolDestroy(ctx, name, force); err != nil {
		return err
	}
	r.logger.Info("Destroyed pool", "pool", name, "force", force)
	return nil
}
