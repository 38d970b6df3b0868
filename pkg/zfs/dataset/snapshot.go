// Copyright 2025 Raamsri Kumar <raam@tinkershack.in>
// Copyright 2025 The StrataSTOR Authors and Contributors
// SPDX-License-Identifier: Apache-2.0

package dataset

import (
	"context"
	"strings"

	"github.com/stratastor/zfskit/pkg/errors"
	"github.com/stratastor/zfskit/pkg/zfs/common"
	"github.com/stratastor/zfskit/pkg/zfs/property"
)

// Snapshot is a read-only point in time of a filesystem or volume.
type Snapshot struct {
	object
}

// DatasetName is the name of the snapshotted dataset.
func (s *Snapshot) DatasetName() string {
	return common.ParseName(s.Name()).Base
}

// SnapName is the part after '@'.
func (s *Snapshot) SnapName() string {
	return common.ParseName(s.Name()).Snapshot
}

// Parent resolves the filesystem or volume s belongs to.
func (s *Snapshot) Parent(ctx context.Context) (Container, error) {
	if err := s.live(); err != nil {
		return nil, err
	}
	d, err := s.reg.Resolve(ctx, s.DatasetName(), common.TypeFilesystem|common.TypeVolume)
	if err != nil {
		return nil, err
	}
	return d.(Container), nil
}

// Clones lists the names of datasets cloned from s.
func (s *Snapshot) Clones(ctx context.Context) ([]string, error) {
	v, err := s.GetProperty(ctx, property.PropClones)
	if err != nil {
		return nil, err
	}
	if v.Text == "" || v.Text == "-" {
		return nil, nil
	}
	return strings.Split(v.Text, ","), nil
}

// Clone creates target from s. A filesystem clone is mounted, and shared
// when sharenfs or sharesmb is on. Volume snapshots clone to volumes. If
// mounting or sharing fails the clone stays on disk and is not returned.
func (s *Snapshot) Clone(ctx context.Context, target string, props map[string]string) (Dataset, error) {
	if err := s.live(); err != nil {
		return nil, err
	}
	parent, err := s.Parent(ctx)
	if err != nil {
		return nil, err
	}
	typ := parent.Type()
	parent.Dispose()

	if err := common.ValidateName(target, typ); err != nil {
		return nil, err
	}
	wires, err := property.EncodeProperties(props, typ)
	if err != nil {
		return nil, errors.Wrap(err, errors.ZFSDatasetClone).WithMetadata("name", target)
	}
	if err := s.reg.gw.Clone(ctx, s.h, target, wires); err != nil {
		return nil, err
	}
	s.reg.logger.Info("Cloned snapshot", "snapshot", s.Name(), "clone", target)

	d, err := s.reg.Resolve(ctx, target, typ)
	if err != nil {
		return nil, err
	}
	if fs, ok := d.(*FileSystem); ok {
		if err := fs.activate(ctx); err != nil {
			d.Dispose()
			return nil, errors.Wrap(err, errors.ZFSDatasetClone).
				WithMetadata("name", target).
				WithMetadata("clone_created", "true")
		}
	}
	return d, nil
}

// Rollback reverts the parent dataset to s.
//
// Without recursive, any newer snapshot makes the native rollback fail
// with a Busy error. With recursive, newer snapshots are destroyed oldest
// first; if one of them has a clone nothing is destroyed and the clone is
// returned in RollbackResult.BlockedBy.
func (s *Snapshot) Rollback(ctx context.Context, recursive bool) (RollbackResult, error) {
	if err := s.live(); err != nil {
		return RollbackResult{}, err
	}
	parent, err := s.Parent(ctx)
	if err != nil {
		return RollbackResult{}, err
	}
	parentName, parentType := parent.Name(), parent.Type()

	if recursive {
		snaps, err := parent.Snapshots(ctx)
		parent.Dispose()
		if err != nil {
			return RollbackResult{}, err
		}
		defer disposeAll(snaps)

		var newer []*Snapshot
		for _, snap := range snaps {
			if snap.CreateTXG() > s.CreateTXG() {
				newer = append(newer, snap)
			}
		}
		for _, snap := range newer {
			clones, err := snap.Clones(ctx)
			if err != nil {
				return RollbackResult{}, err
			}
			if len(clones) == 0 {
				continue
			}
			clone, err := s.reg.Resolve(ctx, clones[0], common.TypeAny)
			if err != nil {
				return RollbackResult{}, err
			}
			s.reg.logger.Warn("Rollback blocked by clone",
				"snapshot", s.Name(), "newer", snap.Name(), "clone", clone.Name())
			return RollbackResult{BlockedBy: clone}, nil
		}
		for _, snap := range newer {
			if err := snap.Destroy(ctx, false); err != nil {
				return RollbackResult{}, err
			}
		}
	} else {
		parent.Dispose()
	}

	if err := s.reg.gw.Rollback(ctx, s.h); err != nil {
		return RollbackResult{}, err
	}
	s.reg.logger.Info("Rolled back dataset", "snapshot", s.Name(), "recursive", recursive)

	reopened, err := s.reg.Resolve(ctx, parentName, parentType)
	if err != nil {
		return RollbackResult{}, err
	}
	return RollbackResult{Parent: reopened}, nil
}
