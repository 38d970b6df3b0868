// Copyright 2025 Raamsri Kumar <raam@tinkershack.in>
// Copyright 2025 The StrataSTOR Authors and Contributors
// SPDX-License-Identifier: Apache-2.0

package dataset

import (
	"context"

	"github.com/stratastor/zfskit/pkg/errors"
	"github.com/stratastor/zfskit/pkg/zfs/common"
	"github.com/stratastor/zfskit/pkg/zfs/property"
)

// FileSystem is a mountable dataset.
type FileSystem struct {
	object
}

// Children returns the immediate filesystem and volume children. The
// result is never nil.
func (fs *FileSystem) Children(ctx context.Context) ([]Dataset, error) {
	return fs.children(ctx)
}

// Descendants walks the subtree in pre-order, excluding fs itself.
func (fs *FileSystem) Descendants(ctx context.Context) ([]Dataset, error) {
	return descendants(ctx, fs)
}

// Filesystems returns the immediate filesystem children in name order.
// Volumes are skipped.
func (fs *FileSystem) Filesystems(ctx context.Context) ([]*FileSystem, error) {
	all, err := fs.filesystems(ctx)
	if err != nil {
		return nil, err
	}
	out := []*FileSystem{}
	for _, d := range all {
		if f, ok := d.(*FileSystem); ok {
			out = append(out, f)
			continue
		}
		d.Dispose()
	}
	return out, nil
}

// Snapshots returns the snapshots of fs ordered by creation.
func (fs *FileSystem) Snapshots(ctx context.Context) ([]*Snapshot, error) {
	return fs.snapshots(ctx)
}

// CreateSnapshot creates <fs>@<name>. With recursive set every descendant
// filesystem and volume is snapshotted in the same transaction.
func (fs *FileSystem) CreateSnapshot(ctx context.Context, name string, recursive bool, props map[string]string) (*Snapshot, error) {
	return createSnapshot(ctx, &fs.object, name, recursive, props)
}

// CreateFileSystem creates <fs>/<name>.
func (fs *FileSystem) CreateFileSystem(ctx context.Context, name string, props map[string]string) (*FileSystem, error) {
	if err := fs.live(); err != nil {
		return nil, err
	}
	d, err := fs.reg.Create(ctx, fs.Name()+"/"+name, common.TypeFilesystem, props)
	if err != nil {
		return nil, err
	}
	return d.(*FileSystem), nil
}

// CreateVolume creates <fs>/<name> with the given volsize.
func (fs *FileSystem) CreateVolume(ctx context.Context, name, size string, props map[string]string) (*Volume, error) {
	if err := fs.live(); err != nil {
		return nil, err
	}
	all := make(map[string]string, len(props)+1)
	for k, v := range props {
		all[k] = v
	}
	all["volsize"] = size
	d, err := fs.reg.Create(ctx, fs.Name()+"/"+name, common.TypeVolume, all)
	if err != nil {
		return nil, err
	}
	return d.(*Volume), nil
}

// Promote makes fs independent of its origin snapshot.
func (fs *FileSystem) Promote(ctx context.Context) error {
	return fs.promote(ctx)
}

func (fs *FileSystem) Mount(ctx context.Context) error {
	if err := fs.live(); err != nil {
		return err
	}
	return fs.reg.gw.Mount(ctx, fs.h)
}

func (fs *FileSystem) Unmount(ctx context.Context, force bool) error {
	if err := fs.live(); err != nil {
		return err
	}
	return fs.reg.gw.Unmount(ctx, fs.h, force)
}

func (fs *FileSystem) Share(ctx context.Context) error {
	if err := fs.live(); err != nil {
		return err
	}
	return fs.reg.gw.Share(ctx, fs.h)
}

func (fs *FileSystem) Unshare(ctx context.Context) error {
	if err := fs.live(); err != nil {
		return err
	}
	return fs.reg.gw.Unshare(ctx, fs.h)
}

// IsMounted reads the mounted property.
func (fs *FileSystem) IsMounted(ctx context.Context) (bool, error) {
	v, err := fs.GetProperty(ctx, property.PropMounted)
	if err != nil {
		return false, err
	}
	return v.Text == "yes", nil
}

// sharing reports whether sharenfs or sharesmb is enabled.
func (fs *FileSystem) sharing(ctx context.Context) (bool, error) {
	values, err := fs.GetProperties(ctx, property.PropShareNFS, property.PropShareSMB)
	if err != nil {
		return false, err
	}
	for _, v := range values {
		if v.Text != "off" {
			return true, nil
		}
	}
	return false, nil
}

// activate mounts fs if needed and shares it when a share property is on.
func (fs *FileSystem) activate(ctx context.Context) error {
	mounted, err := fs.IsMounted(ctx)
	if err != nil {
		return err
	}
	if !mounted {
		if err := fs.Mount(ctx); err != nil {
			return errors.Wrap(err, errors.ZFSMountError).WithMetadata("name", fs.Name())
		}
	}
	share, err := fs.sharing(ctx)
	if err != nil || !share {
		return err
	}
	return fs.Share(ctx)
}
