// Copyright 2025 Raamsri Kumar <raam@tinkershack.in>
// Copyright 2025 The StrataSTOR Authors and Contributors
// SPDX-License-Identifier: Apache-2.0

package dataset

import (
	"cmp"
	"context"
	"slices"

	"github.com/stratastor/zfskit/pkg/errors"
	"github.com/stratastor/zfskit/pkg/zfs/common"
	"github.com/stratastor/zfskit/pkg/zfs/property"
)

// Equal reports whether a and b hold the same handle. Two objects opened
// separately for the same name are not equal.
func Equal(a, b Dataset) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return a.handle() == b.handle()
}

// Compare orders datasets by creation transaction group. It is unrelated to
// Equal: distinct objects for one dataset compare as 0.
func Compare(a, b Dataset) int {
	return cmp.Compare(a.CreateTXG(), b.CreateTXG())
}

// SortByTXG stably sorts ds by creation. Equal transaction groups keep
// their relative order; nothing is dropped.
func SortByTXG[T Dataset](ds []T) {
	slices.SortStableFunc(ds, func(a, b T) int { return Compare(a, b) })
}

// Clone clones d, which must be a snapshot. Any other type is a
// precondition failure and the gateway is not called.
func Clone(ctx context.Context, d Dataset, target string, props map[string]string) (Dataset, error) {
	s, ok := d.(*Snapshot)
	if !ok {
		return nil, preconditionFailed(d, "clone")
	}
	return s.Clone(ctx, target, props)
}

// Rollback rolls back to d, which must be a snapshot.
func Rollback(ctx context.Context, d Dataset, recursive bool) (RollbackResult, error) {
	s, ok := d.(*Snapshot)
	if !ok {
		return RollbackResult{}, preconditionFailed(d, "rollback")
	}
	return s.Rollback(ctx, recursive)
}

func preconditionFailed(d Dataset, op string) error {
	e := errors.New(errors.ZFSPreconditionFailed, op+" requires a snapshot").WithAction(op)
	if d != nil {
		e.WithMetadata("name", d.Name()).WithMetadata("type", d.Type().String())
	}
	return e
}

// Describe collects the commonly displayed properties of d.
func Describe(ctx context.Context, d Dataset) (Info, error) {
	info := Info{
		Name:      d.Name(),
		Type:      d.Type().String(),
		Pool:      common.ParseName(d.Name()).Pool(),
		CreateTXG: d.CreateTXG(),
	}
	used, err := d.GetProperty(ctx, property.PropUsed)
	if err != nil {
		return Info{}, err
	}
	info.Used = used.Number

	if d.Type().IsSnapshot() {
		return info, nil
	}
	avail, err := d.GetProperty(ctx, property.PropAvailable)
	if err != nil {
		return Info{}, err
	}
	info.Available = avail.Number

	origin, err := d.GetProperty(ctx, property.PropOrigin)
	if err != nil {
		return Info{}, err
	}
	if origin.Text != "-" {
		info.Origin = origin.Text
	}

	switch fs := d.(type) {
	case *FileSystem:
		info.Mounted, err = fs.IsMounted(ctx)
	case *Pool:
		info.Mounted, err = fs.IsMounted(ctx)
	}
	if err != nil {
		return Info{}, err
	}
	return info, nil
}
