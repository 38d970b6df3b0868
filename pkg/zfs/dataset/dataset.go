// Copyright 2025 Raamsri Kumar <raam@tinkershack.in>
// Copyright 2025 The StrataSTOR Authors and Contributors
// SPDX-License-Identifier: Apache-2.0

// Package dataset is the typed object model over pools and datasets. Every
// object owns one gateway handle; children are queried on demand and never
// cached.
package dataset

import (
	"context"
	"sort"

	"github.com/stratastor/zfskit/pkg/errors"
	"github.com/stratastor/zfskit/pkg/zfs/common"
	"github.com/stratastor/zfskit/pkg/zfs/gateway"
	"github.com/stratastor/zfskit/pkg/zfs/property"
)

// object carries the state and operations shared by every variant.
type object struct {
	reg *Registry
	h   *gateway.Handle
}

// Wrap turns h into the variant matching its type. The result owns h. An
// unrecognised type means the gateway and this package disagree about the
// type codes; h is released and an invariant violation returned.
func Wrap(reg *Registry, h *gateway.Handle) (Dataset, error) {
	if h == nil {
		return nil, errors.New(errors.ZFSInvariantViolation, "nil handle")
	}
	base := object{reg: reg, h: h}
	var d Dataset
	switch h.Type() {
	case common.TypePool:
		d = &Pool{FileSystem{base}}
	case common.TypeFilesystem:
		d = &FileSystem{base}
	case common.TypeVolume:
		d = &Volume{base}
	case common.TypeSnapshot:
		d = &Snapshot{base}
	default:
		reg.gw.Close(h)
		return nil, errors.New(errors.ZFSInvariantViolation, "unrecognised dataset type").
			WithMetadata("name", h.Name()).
			WithMetadata("type", h.Type().String())
	}
	reg.track(h)
	return d, nil
}

func (o *object) Name() string { return o.h.Name() }

func (o *object) Type() common.DatasetType { return o.h.Type() }

func (o *object) CreateTXG() uint64 { return o.h.CreateTXG() }

func (o *object) Registry() *Registry { return o.reg }

func (o *object) Disposed() bool { return o.h.Closed() }

func (o *object) handle() *gateway.Handle { return o.h }

func (o *object) String() string { return o.h.Name() }

// propType is the dataset type properties are decoded against. A pool
// handle reads the properties of its root filesystem.
func (o *object) propType() common.DatasetType {
	if o.h.Type() == common.TypePool {
		return common.TypeFilesystem
	}
	return o.h.Type()
}

// live fails fast on a disposed object or a closed registry.
func (o *object) live() error {
	if err := o.reg.live(); err != nil {
		return err
	}
	if o.h.Closed() {
		return errors.New(errors.ZFSHandleClosed, "dataset has been disposed").
			WithMetadata("name", o.h.Name())
	}
	return nil
}

// Dispose releases the handle. Later calls are no-ops.
func (o *object) Dispose() {
	o.reg.release(o.h)
}

// GetProperty fetches and decodes a native property. Properties that do not
// apply to this type fail with a PropertyUnsupported error.
func (o *object) GetProperty(ctx context.Context, p property.Prop) (property.Value, error) {
	if err := o.live(); err != nil {
		return property.Value{}, err
	}
	raw, err := o.reg.gw.GetProperty(ctx, o.h, p)
	if err != nil {
		return property.Value{}, err
	}
	v, err := property.DecodeSystemProperty(raw, p, o.propType())
	if err != nil {
		return property.Value{}, errors.Wrap(err, errors.ZFSDatasetGetProperty).
			WithMetadata("name", o.Name())
	}
	return v, nil
}

// GetProperties fetches several native properties in the given order.
func (o *object) GetProperties(ctx context.Context, props ...property.Prop) ([]property.Value, error) {
	values := make([]property.Value, 0, len(props))
	for _, p := range props {
		v, err := o.GetProperty(ctx, p)
		if err != nil {
			return nil, err
		}
		values = append(values, v)
	}
	return values, nil
}

// SetProperty sets a native or user property. The value is validated
// before the gateway is called.
func (o *object) SetProperty(ctx context.Context, key, value string) error {
	if err := o.live(); err != nil {
		return err
	}
	w, err := property.EncodeProperty(key, value, o.propType())
	if err != nil {
		return errors.Wrap(err, errors.ZFSDatasetSetProperty).WithMetadata("name", o.Name())
	}
	return o.reg.gw.SetProperty(ctx, o.h, w)
}

// SetProperties sets props in key order and stops at the first failure.
func (o *object) SetProperties(ctx context.Context, props map[string]string) error {
	if err := o.live(); err != nil {
		return err
	}
	wires, err := property.EncodeProperties(props, o.propType())
	if err != nil {
		return errors.Wrap(err, errors.ZFSDatasetSetProperty).WithMetadata("name", o.Name())
	}
	for _, w := range wires {
		if err := o.reg.gw.SetProperty(ctx, o.h, w); err != nil {
			return err
		}
	}
	return nil
}

// GetUserProperty returns the value of a user property. ok is false when
// the property is not set here or on any ancestor.
func (o *object) GetUserProperty(ctx context.Context, key string) (string, bool, error) {
	if err := o.live(); err != nil {
		return "", false, err
	}
	props, err := o.reg.gw.GetUserProperties(ctx, o.h)
	if err != nil {
		return "", false, err
	}
	v, ok := property.DecodeUserProperty(props, key)
	return v, ok, nil
}

// GetUserPropertyRecord is GetUserProperty with the provenance of the value.
func (o *object) GetUserPropertyRecord(ctx context.Context, key string) (property.UserRecord, bool, error) {
	if err := o.live(); err != nil {
		return property.UserRecord{}, false, err
	}
	props, err := o.reg.gw.GetUserProperties(ctx, o.h)
	if err != nil {
		return property.UserRecord{}, false, err
	}
	rec, ok := props[key]
	return rec, ok, nil
}

// GetUserProperties returns the requested user properties that are present.
// With no keys every user property is returned.
func (o *object) GetUserProperties(ctx context.Context, keys ...string) (map[string]string, error) {
	if err := o.live(); err != nil {
		return nil, err
	}
	props, err := o.reg.gw.GetUserProperties(ctx, o.h)
	if err != nil {
		return nil, err
	}
	if len(keys) == 0 {
		keys = props.Keys()
	}
	out := make(map[string]string, len(keys))
	for _, k := range keys {
		if v, ok := property.DecodeUserProperty(props, k); ok {
			out[k] = v
		}
	}
	return out, nil
}

// InheritProperty clears the local value of key. Cached copies of the
// property elsewhere in the caller are stale afterwards; re-read it.
func (o *object) InheritProperty(ctx context.Context, key string, recursive bool) error {
	if err := o.live(); err != nil {
		return err
	}
	if err := property.ValidateInherit(key, o.propType()); err != nil {
		return errors.Wrap(err, errors.ZFSDatasetInheritProperty).WithMetadata("name", o.Name())
	}
	return o.reg.gw.InheritProperty(ctx, o.h, key, recursive)
}

// Destroy removes the dataset. A snapshot with clones is only marked for
// removal when deferred is set. The object is disposed on success.
func (o *object) Destroy(ctx context.Context, deferred bool) error {
	if err := o.live(); err != nil {
		return err
	}
	name := o.Name()
	if err := o.reg.gw.Destroy(ctx, o.h, deferred); err != nil {
		return err
	}
	o.reg.logger.Info("Destroyed dataset", "name", name, "deferred", deferred)
	o.Dispose()
	return nil
}

// Rename moves the dataset and returns a new object for it. The receiver
// is disposed and must not be used again.
func (o *object) Rename(ctx context.Context, newName string, recursive bool) (Dataset, error) {
	if err := o.live(); err != nil {
		return nil, err
	}
	if err := common.ValidateName(newName, o.propType()); err != nil {
		return nil, err
	}
	typ := o.Type()
	old := o.Name()
	if err := o.reg.gw.Rename(ctx, o.h, newName, recursive); err != nil {
		return nil, err
	}
	o.Dispose()
	o.reg.logger.Info("Renamed dataset", "from", old, "to", newName)
	return o.reg.Resolve(ctx, newName, typ)
}

func (o *object) promote(ctx context.Context) error {
	if err := o.live(); err != nil {
		return err
	}
	return o.reg.gw.Promote(ctx, o.h)
}

// children wraps every immediate non-snapshot child of o.
func (o *object) children(ctx context.Context) ([]Dataset, error) {
	if err := o.live(); err != nil {
		return nil, err
	}
	out := []Dataset{}
	err := o.reg.gw.IterateChildren(ctx, o.h, func(h *gateway.Handle) error {
		if h.Type().IsSnapshot() {
			o.reg.gw.Close(h)
			return nil
		}
		d, err := Wrap(o.reg, h)
		if err != nil {
			return err
		}
		out = append(out, d)
		return nil
	})
	if err != nil {
		disposeAll(out)
		return nil, err
	}
	return out, nil
}

// filesystems wraps the immediate filesystem and volume children of o in
// name order.
func (o *object) filesystems(ctx context.Context) ([]Dataset, error) {
	if err := o.live(); err != nil {
		return nil, err
	}
	out := []Dataset{}
	err := o.reg.gw.IterateFilesystems(ctx, o.h, func(h *gateway.Handle) error {
		d, err := Wrap(o.reg, h)
		if err != nil {
			return err
		}
		out = append(out, d)
		return nil
	})
	if err != nil {
		disposeAll(out)
		return nil, err
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Name() < out[j].Name() })
	return out, nil
}

func (o *object) snapshots(ctx context.Context) ([]*Snapshot, error) {
	if err := o.live(); err != nil {
		return nil, err
	}
	out := []*Snapshot{}
	err := o.reg.gw.IterateSnapshots(ctx, o.h, func(h *gateway.Handle) error {
		d, err := Wrap(o.reg, h)
		if err != nil {
			return err
		}
		s, ok := d.(*Snapshot)
		if !ok {
			d.Dispose()
			return errors.New(errors.ZFSInvariantViolation, "snapshot iteration returned a non-snapshot").
				WithMetadata("name", d.Name())
		}
		out = append(out, s)
		return nil
	})
	if err != nil {
		for _, s := range out {
			s.Dispose()
		}
		return nil, err
	}
	SortByTXG(out)
	return out, nil
}

// descendants lists snapshots of c first, then each child followed by its
// own descendants.
func descendants(ctx context.Context, c Container) ([]Dataset, error) {
	out := []Dataset{}
	snaps, err := c.Snapshots(ctx)
	if err != nil {
		return nil, err
	}
	for _, s := range snaps {
		out = append(out, s)
	}

	kids, err := c.Children(ctx)
	if err != nil {
		disposeAll(out)
		return nil, err
	}
	for i, kid := range kids {
		out = append(out, kid)
		kc, ok := kid.(Container)
		if !ok {
			continue
		}
		below, err := kc.Descendants(ctx)
		if err != nil {
			disposeAll(out)
			disposeAll(kids[i+1:])
			return nil, err
		}
		out = append(out, below...)
	}
	return out, nil
}

func createSnapshot(ctx context.Context, o *object, name string, recursive bool, props map[string]string) (*Snapshot, error) {
	if err := o.live(); err != nil {
		return nil, err
	}
	full := o.Name() + "@" + name
	if err := common.ValidateName(full, common.TypeSnapshot); err != nil {
		return nil, err
	}
	wires, err := property.EncodeProperties(props, common.TypeSnapshot)
	if err != nil {
		return nil, errors.Wrap(err, errors.ZFSSnapshotFailed).WithMetadata("name", full)
	}
	if err := o.reg.gw.Snapshot(ctx, full, recursive, wires); err != nil {
		return nil, err
	}
	o.reg.logger.Debug("Created snapshot", "name", full, "recursive", recursive)
	return o.reg.ResolveSnapshot(ctx, full)
}

// disposeAll releases every object in ds.
func disposeAll[T Dataset](ds []T) {
	for _, d := range ds {
		d.Dispose()
	}
}
