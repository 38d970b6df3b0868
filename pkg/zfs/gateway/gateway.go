// Copyright 2025 Raamsri Kumar <raam@tinkershack.in>
// Copyright 2025 The StrataSTOR Authors and Contributors
// SPDX-License-Identifier: Apache-2.0

// Package gateway is the only point of contact with the ZFS userland. Every
// call is synchronous and returns a *errors.KitError carrying the native
// action and reason on failure.
package gateway

import (
	"context"
	stderrors "errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/stratastor/zfskit/internal/metrics"
	"github.com/stratastor/zfskit/pkg/errors"
	"github.com/stratastor/zfskit/pkg/zfs/common"
	"github.com/stratastor/zfskit/pkg/zfs/pool"
	"github.com/stratastor/zfskit/pkg/zfs/property"
)

// Stop may be returned by a Visitor to end iteration early without error.
var Stop = stderrors.New("stop iteration")

// Visitor receives each handle produced by an iteration. It owns the
// handle and must close it unless it keeps it.
type Visitor func(h *Handle) error

// PoolSpec describes a pool to create.
type PoolSpec = pool.CreateConfig

// Handle is an open reference to a dataset or pool. Two handles are never
// interchangeable, even for the same name.
type Handle struct {
	id        uuid.UUID
	name      string
	typ       common.DatasetType
	guid      uint64
	createTXG uint64
	closed    bool
}

func newHandle(name string, typ common.DatasetType, guid, createTXG uint64) *Handle {
	metrics.OpenHandles.Inc()
	return &Handle{
		id:        uuid.New(),
		name:      name,
		typ:       typ,
		guid:      guid,
		createTXG: createTXG,
	}
}

// ID is unique per open.
func (h *Handle) ID() uuid.UUID { return h.id }

func (h *Handle) Name() string { return h.name }

func (h *Handle) Type() common.DatasetType { return h.typ }

func (h *Handle) GUID() uint64 { return h.guid }

// CreateTXG is the creation transaction group, captured at open time.
func (h *Handle) CreateTXG() uint64 { return h.createTXG }

func (h *Handle) Closed() bool { return h == nil || h.closed }

func (h *Handle) String() string {
	return fmt.Sprintf("%s(%s)", h.name, h.id)
}

// release marks h closed. It reports false when h was already released.
func (h *Handle) release() bool {
	if h == nil || h.closed {
		return false
	}
	h.closed = true
	metrics.OpenHandles.Dec()
	return true
}

// Gateway exposes the raw ZFS operations the object model is built on.
type Gateway interface {
	// Init establishes the connection. Fini releases it.
	Init(ctx context.Context) error
	Fini() error
	// Backend names the implementation, e.g. "cli".
	Backend() string

	// Open resolves name against mask. A bare pool name with TypePool in
	// mask yields a pool handle.
	Open(ctx context.Context, name string, mask common.DatasetType) (*Handle, error)
	// Close releases h. Nil and already closed handles are ignored.
	Close(h *Handle)
	Exists(ctx context.Context, name string, mask common.DatasetType) (bool, error)

	IterateRoots(ctx context.Context, fn Visitor) error
	// IterateChildren visits every immediate child including snapshots.
	IterateChildren(ctx context.Context, h *Handle, fn Visitor) error
	// IterateFilesystems visits immediate filesystem and volume children.
	IterateFilesystems(ctx context.Context, h *Handle, fn Visitor) error
	// IterateSnapshots visits the snapshots of h in creation order.
	IterateSnapshots(ctx context.Context, h *Handle, fn Visitor) error

	GetProperty(ctx context.Context, h *Handle, p property.Prop) (property.Raw, error)
	GetUserProperties(ctx context.Context, h *Handle) (property.UserProperties, error)
	SetProperty(ctx context.Context, h *Handle, w property.Wire) error
	InheritProperty(ctx context.Context, h *Handle, key string, recursive bool) error

	Create(ctx context.Context, name string, typ common.DatasetType, props []property.Wire) error
	Destroy(ctx context.Context, h *Handle, deferred bool) error
	Clone(ctx context.Context, snap *Handle, target string, props []property.Wire) error
	Snapshot(ctx context.Context, fullName string, recursive bool, props []property.Wire) error
	Rollback(ctx context.Context, snap *Handle) error
	Rename(ctx context.Context, h *Handle, newName string, recursive bool) error
	Promote(ctx context.Context, h *Handle) error

	Mount(ctx context.Context, h *Handle) error
	Unmount(ctx context.Context, h *Handle, force bool) error
	Share(ctx context.Context, h *Handle) error
	Unshare(ctx context.Context, h *Handle) error

	PoolCreate(ctx context.Context, spec PoolSpec) error
	PoolDestroy(ctx context.Context, name string, force bool) error
	PoolGetProperty(ctx context.Context, name, prop string) (property.Raw, error)
	PoolScrub(ctx context.Context, name string, stop bool) error
}

func observe(backend, op string) {
	metrics.GatewayCallsTotal.WithLabelValues(backend, op).Inc()
}

// usable rejects nil and released handles before any native call is made.
func usable(h *Handle) error {
	if h == nil {
		return errors.New(errors.ZFSInvariantViolation, "nil handle")
	}
	if h.closed {
		return errors.New(errors.ZFSHandleClosed, "use of released handle").
			WithMetadata("name", h.name).
			WithMetadata("handle", h.id.String())
	}
	return nil
}
