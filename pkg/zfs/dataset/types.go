// Copyright 2025 Raamsri Kumar <raam@tinkershack.in>
// Copyright 2025 The StrataSTOR Authors and Contributors
// SPDX-License-Identifier: Apache-2.0

package dataset

import (
	"context"

	"github.com/stratastor/zfskit/pkg/zfs/common"
	"github.com/stratastor/zfskit/pkg/zfs/gateway"
	"github.com/stratastor/zfskit/pkg/zfs/property"
)

// Dataset is any node of the hierarchy: *Pool, *FileSystem, *Volume or
// *Snapshot. The set is closed; only this package implements it.
type Dataset interface {
	Name() string
	Type() common.DatasetType
	// CreateTXG is the creation transaction group used for ordering.
	CreateTXG() uint64
	Registry() *Registry
	Disposed() bool

	GetProperty(ctx context.Context, p property.Prop) (property.Value, error)
	GetProperties(ctx context.Context, props ...property.Prop) ([]property.Value, error)
	SetProperty(ctx context.Context, key, value string) error
	SetProperties(ctx context.Context, props map[string]string) error
	GetUserProperty(ctx context.Context, key string) (string, bool, error)
	GetUserPropertyRecord(ctx context.Context, key string) (property.UserRecord, bool, error)
	GetUserProperties(ctx context.Context, keys ...string) (map[string]string, error)
	InheritProperty(ctx context.Context, key string, recursive bool) error

	Destroy(ctx context.Context, deferred bool) error
	Rename(ctx context.Context, newName string, recursive bool) (Dataset, error)
	Dispose()

	handle() *gateway.Handle
}

// Container is a dataset that can have snapshots and children.
type Container interface {
	Dataset
	Children(ctx context.Context) ([]Dataset, error)
	Descendants(ctx context.Context) ([]Dataset, error)
	Snapshots(ctx context.Context) ([]*Snapshot, error)
	CreateSnapshot(ctx context.Context, name string, recursive bool, props map[string]string) (*Snapshot, error)
}

var (
	_ Container = (*Pool)(nil)
	_ Container = (*FileSystem)(nil)
	_ Container = (*Volume)(nil)
	_ Dataset   = (*Snapshot)(nil)
)

// RollbackResult is the outcome of Snapshot.Rollback. Exactly one field is
// set: Parent when the rollback happened, BlockedBy when a recursive
// rollback found a clone of a newer snapshot and left everything in place.
type RollbackResult struct {
	Parent    Dataset
	BlockedBy Dataset
}

// Blocked reports whether the rollback was refused because of a clone.
func (r RollbackResult) Blocked() bool {
	return r.BlockedBy != nil
}

// Info is a flat description of a dataset for display and JSON.
type Info struct {
	Name      string `json:"name"`
	Type      string `json:"type"` // "filesystem", "volume", "snapshot", "pool"
	Pool      string `json:"pool"`
	CreateTXG uint64 `json:"createtxg"`
	Origin    string `json:"origin,omitempty"` // For clones
	Used      uint64 `json:"used"`
	Available uint64 `json:"available,omitempty"`
	Mounted   bool   `json:"mounted,omitempty"`
}
