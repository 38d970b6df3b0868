// Copyright 2025 Raamsri Kumar <raam@tinkershack.in>
// Copyright 2025 The StrataSTOR Authors and Contributors
// SPDX-License-Identifier: Apache-2.0

package dataset

import (
	"context"

	"github.com/stratastor/zfskit/pkg/zfs/property"
)

// Volume is a block device dataset. It has snapshots but no children.
type Volume struct {
	object
}

// Children is always empty for a volume.
func (v *Volume) Children(ctx context.Context) ([]Dataset, error) {
	if err := v.live(); err != nil {
		return nil, err
	}
	return []Dataset{}, nil
}

func (v *Volume) Descendants(ctx context.Context) ([]Dataset, error) {
	return descendants(ctx, v)
}

func (v *Volume) Snapshots(ctx context.Context) ([]*Snapshot, error) {
	return v.snapshots(ctx)
}

func (v *Volume) CreateSnapshot(ctx context.Context, name string, recursive bool, props map[string]string) (*Snapshot, error) {
	return createSnapshot(ctx, &v.object, name, recursive, props)
}

func (v *Volume) Promote(ctx context.Context) error {
	return v.promote(ctx)
}

// Size returns volsize in bytes.
func (v *Volume) Size(ctx context.Context) (uint64, error) {
	val, err := v.GetProperty(ctx, property.PropVolSize)
	if err != nil {
		return 0, err
	}
	return val.Number, nil
}
