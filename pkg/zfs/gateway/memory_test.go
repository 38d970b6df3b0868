// Copyright 2025 Raamsri Kumar <raam@tinkershack.in>
// Copyright 2025 The StrataSTOR Authors and Contributors
// SPDX-License-Identifier: Apache-2.0

package gateway

import (
	"context"
	"testing"

	"github.com/stratastor/zfskit/pkg/errors"
	"github.com/stratastor/zfskit/pkg/zfs/common"
	"github.com/stratastor/zfskit/pkg/zfs/pool"
	"github.com/stratastor/zfskit/pkg/zfs/property"
	"github.com/stratastor/zfskit/pkg/zfs/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newMemory(t *testing.T) *Memory {
	t.Helper()
	ctx := context.Background()
	m := NewMemory(testutil.NewLogger(t))
	require.NoError(t, m.Init(ctx))
	require.NoError(t, m.PoolCreate(ctx, PoolSpec{
		Name:     "tank",
		VDevSpec: []pool.VDevSpec{{Devices: []string{"/dev/loop0"}}},
	}))
	return m
}

func mustOpen(t *testing.T, g Gateway, name string) *Handle {
	t.Helper()
	h, err := g.Open(context.Background(), name, common.TypeAny)
	require.NoError(t, err)
	t.Cleanup(func() { g.Close(h) })
	return h
}

func names(t *testing.T, g Gateway, iter func(context.Context, *Handle, Visitor) error, h *Handle) []string {
	t.Helper()
	var out []string
	require.NoError(t, iter(context.Background(), h, func(c *Handle) error {
		defer g.Close(c)
		out = append(out, c.Name())
		return nil
	}))
	return out
}

func TestMemoryOpen(t *testing.T) {
	ctx := context.Background()
	m := newMemory(t)

	root := mustOpen(t, m, "tank")
	assert.Equal(t, common.TypePool, root.Type())

	_, err := m.Open(ctx, "tank", common.TypeFilesystem)
	require.NoError(t, err)

	_, err = m.Open(ctx, "tank/nope", common.TypeAny)
	assert.True(t, errors.IsKind(err, errors.KindNotFound))

	require.NoError(t, m.Fini())
	_, err = m.Open(ctx, "tank", common.TypeAny)
	assert.True(t, errors.IsKind(err, errors.KindInvariantViolation))
}

func TestMemoryCreateAndDestroy(t *testing.T) {
	ctx := context.Background()
	m := newMemory(t)

	ok, err := m.Exists(ctx, "tank/a", common.TypeAny)
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, m.Create(ctx, "tank/a", common.TypeFilesystem, nil))
	require.NoError(t, m.Create(ctx, "tank/a/b", common.TypeFilesystem, nil))

	err = m.Create(ctx, "tank/a", common.TypeFilesystem, nil)
	assert.True(t, errors.IsKind(err, errors.KindAlreadyExists))

	err = m.Create(ctx, "tank/x/y", common.TypeFilesystem, nil)
	assert.True(t, errors.IsKind(err, errors.KindNotFound))

	err = m.Create(ctx, "tank/vol", common.TypeVolume, nil)
	assert.True(t, errors.IsKind(err, errors.KindInvalidValue))

	require.NoError(t, m.Create(ctx, "tank/vol", common.TypeVolume,
		[]property.Wire{{Key: "volsize", Value: "1G"}}))
	err = m.Create(ctx, "tank/vol/x", common.TypeFilesystem, nil)
	assert.True(t, errors.IsKind(err, errors.KindInvalidValue))

	a := mustOpen(t, m, "tank/a")
	err = m.Destroy(ctx, a, false)
	assert.True(t, errors.IsKind(err, errors.KindHasChildren))

	b := mustOpen(t, m, "tank/a/b")
	require.NoError(t, m.Destroy(ctx, b, false))
	require.NoError(t, m.Destroy(ctx, a, false))

	ok, err = m.Exists(ctx, "tank/a", common.TypeAny)
	require.NoError(t, err)
	assert.False(t, ok)

	err = m.Destroy(ctx, mustOpen(t, m, "tank"), false)
	assert.True(t, errors.IsKind(err, errors.KindInvalidValue))
}

func TestMemoryStaleHandle(t *testing.T) {
	ctx := context.Background()
	m := newMemory(t)

	require.NoError(t, m.Create(ctx, "tank/a", common.TypeFilesystem, nil))
	old := mustOpen(t, m, "tank/a")
	require.NoError(t, m.Destroy(ctx, old, false))
	require.NoError(t, m.Create(ctx, "tank/a", common.TypeFilesystem, nil))

	_, err := m.GetProperty(ctx, old, property.PropCreateTXG)
	assert.True(t, errors.IsKind(err, errors.KindNotFound))
}

func TestMemorySnapshots(t *testing.T) {
	ctx := context.Background()
	m := newMemory(t)

	require.NoError(t, m.Create(ctx, "tank/a", common.TypeFilesystem, nil))
	require.NoError(t, m.Create(ctx, "tank/a/b", common.TypeFilesystem, nil))
	require.NoError(t, m.Snapshot(ctx, "tank/a@s1", true, nil))
	require.NoError(t, m.Snapshot(ctx, "tank/a@s2", false, nil))

	s1 := mustOpen(t, m, "tank/a@s1")
	child := mustOpen(t, m, "tank/a/b@s1")
	assert.Equal(t, s1.CreateTXG(), child.CreateTXG())

	a := mustOpen(t, m, "tank/a")
	assert.Equal(t, []string{"tank/a@s1", "tank/a@s2"}, names(t, m, m.IterateSnapshots, a))
	assert.Equal(t, []string{"tank/a/b", "tank/a@s1", "tank/a@s2"}, names(t, m, m.IterateChildren, a))
	assert.Equal(t, []string{"tank/a/b"}, names(t, m, m.IterateFilesystems, a))

	err := m.Snapshot(ctx, "tank/a@s2", true, nil)
	assert.True(t, errors.IsKind(err, errors.KindAlreadyExists))
	_, err = m.Open(ctx, "tank/a/b@s2", common.TypeAny)
	assert.True(t, errors.IsKind(err, errors.KindNotFound), "failed recursive snapshot is not partial")

	err = m.Rollback(ctx, s1)
	assert.True(t, errors.IsKind(err, errors.KindBusy))

	require.NoError(t, m.Rollback(ctx, mustOpen(t, m, "tank/a@s2")))
}

func TestMemoryCloneAndPromote(t *testing.T) {
	ctx := context.Background()
	m := newMemory(t)

	require.NoError(t, m.Create(ctx, "tank/a", common.TypeFilesystem, nil))
	require.NoError(t, m.Snapshot(ctx, "tank/a@s1", false, nil))
	require.NoError(t, m.Snapshot(ctx, "tank/a@s2", false, nil))

	s1 := mustOpen(t, m, "tank/a@s1")
	require.NoError(t, m.Clone(ctx, s1, "tank/c", nil))

	raw, err := m.GetProperty(ctx, s1, property.PropClones)
	require.NoError(t, err)
	assert.Equal(t, "tank/c", raw.Value)

	c := mustOpen(t, m, "tank/c")
	raw, err = m.GetProperty(ctx, c, property.PropOrigin)
	require.NoError(t, err)
	assert.Equal(t, "tank/a@s1", raw.Value)

	raw, err = m.GetProperty(ctx, c, property.PropMounted)
	require.NoError(t, err)
	assert.Equal(t, "yes", raw.Value)

	err = m.Destroy(ctx, s1, false)
	assert.True(t, errors.IsKind(err, errors.KindBusy))

	err = m.Promote(ctx, mustOpen(t, m, "tank/a"))
	assert.True(t, errors.IsKind(err, errors.KindInvalidValue))

	require.NoError(t, m.Promote(ctx, c))
	assert.Equal(t, []string{"tank/c@s1"}, names(t, m, m.IterateSnapshots, c))
	assert.Equal(t, []string{"tank/a@s2"}, names(t, m, m.IterateSnapshots, mustOpen(t, m, "tank/a")))

	raw, err = m.GetProperty(ctx, mustOpen(t, m, "tank/a"), property.PropOrigin)
	require.NoError(t, err)
	assert.Equal(t, "tank/c@s1", raw.Value)

	raw, err = m.GetProperty(ctx, c, property.PropOrigin)
	require.NoError(t, err)
	assert.Equal(t, "-", raw.Value)
}

func TestMemoryDeferredDestroy(t *testing.T) {
	ctx := context.Background()
	m := newMemory(t)

	require.NoError(t, m.Create(ctx, "tank/a", common.TypeFilesystem, nil))
	require.NoError(t, m.Snapshot(ctx, "tank/a@s1", false, nil))
	s1 := mustOpen(t, m, "tank/a@s1")
	require.NoError(t, m.Clone(ctx, s1, "tank/c", nil))

	require.NoError(t, m.Destroy(ctx, s1, true))
	raw, err := m.GetProperty(ctx, s1, property.PropDeferDestroy)
	require.NoError(t, err)
	assert.Equal(t, "on", raw.Value)

	require.NoError(t, m.Destroy(ctx, mustOpen(t, m, "tank/c"), false))
	ok, err := m.Exists(ctx, "tank/a@s1", common.TypeAny)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestMemoryRename(t *testing.T) {
	ctx := context.Background()
	m := newMemory(t)

	require.NoError(t, m.Create(ctx, "tank/a", common.TypeFilesystem, nil))
	require.NoError(t, m.Create(ctx, "tank/a/b", common.TypeFilesystem, nil))
	require.NoError(t, m.Snapshot(ctx, "tank/a@s", true, nil))
	require.NoError(t, m.Clone(ctx, mustOpen(t, m, "tank/a/b@s"), "tank/c", nil))

	a := mustOpen(t, m, "tank/a")
	err := m.Rename(ctx, a, "tank/a/b/x", false)
	assert.True(t, errors.IsKind(err, errors.KindInvalidValue))

	require.NoError(t, m.Rename(ctx, a, "tank/z", false))
	for _, name := range []string{"tank/z", "tank/z/b", "tank/z@s", "tank/z/b@s"} {
		ok, err := m.Exists(ctx, name, common.TypeAny)
		require.NoError(t, err)
		assert.True(t, ok, name)
	}
	raw, err := m.GetProperty(ctx, mustOpen(t, m, "tank/c"), property.PropOrigin)
	require.NoError(t, err)
	assert.Equal(t, "tank/z/b@s", raw.Value)

	snap := mustOpen(t, m, "tank/z@s")
	err = m.Rename(ctx, snap, "tank/c@s", false)
	assert.True(t, errors.IsKind(err, errors.KindInvalidValue))

	require.NoError(t, m.Rename(ctx, snap, "tank/z@t", true))
	ok, err := m.Exists(ctx, "tank/z/b@t", common.TypeSnapshot)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestMemoryProperties(t *testing.T) {
	ctx := context.Background()
	m := newMemory(t)

	require.NoError(t, m.Create(ctx, "tank/a", common.TypeFilesystem, []property.Wire{
		{Key: "compression", Value: "lz4"},
		{Key: "org:owner", Value: "alice"},
	}))
	require.NoError(t, m.Create(ctx, "tank/a/b", common.TypeFilesystem, nil))
	b := mustOpen(t, m, "tank/a/b")

	raw, err := m.GetProperty(ctx, b, property.PropCompression)
	require.NoError(t, err)
	assert.Equal(t, property.Raw{Value: "lz4", Source: property.SourceInherited, SourceData: "tank/a"}, raw)

	raw, err = m.GetProperty(ctx, b, property.PropAtime)
	require.NoError(t, err)
	assert.Equal(t, property.Raw{Value: "on", Source: property.SourceDefault}, raw)

	raw, err = m.GetProperty(ctx, b, property.PropMountpoint)
	require.NoError(t, err)
	assert.Equal(t, "/tank/a/b", raw.Value)

	raw, err = m.GetProperty(ctx, b, property.PropVolSize)
	require.NoError(t, err)
	assert.Equal(t, "-", raw.Value)

	user, err := m.GetUserProperties(ctx, b)
	require.NoError(t, err)
	assert.Equal(t, property.UserRecord{Value: "alice", Source: property.SourceInherited, SourceData: "tank/a"},
		user["org:owner"])

	require.NoError(t, m.SetProperty(ctx, b, property.Wire{Key: "org:owner", Value: "bob"}))
	user, err = m.GetUserProperties(ctx, b)
	require.NoError(t, err)
	assert.Equal(t, "bob", user["org:owner"].Value)

	require.NoError(t, m.InheritProperty(ctx, b, "org:owner", false))
	user, err = m.GetUserProperties(ctx, b)
	require.NoError(t, err)
	assert.Equal(t, "alice", user["org:owner"].Value)

	err = m.SetProperty(ctx, b, property.Wire{Key: "compression", Value: "bogus"})
	assert.True(t, errors.IsKind(err, errors.KindInvalidValue))

	err = m.InheritProperty(ctx, b, "canmount", false)
	assert.True(t, errors.IsKind(err, errors.KindPropertyUnsupported))
}

func TestMemoryMount(t *testing.T) {
	ctx := context.Background()
	m := newMemory(t)

	require.NoError(t, m.Create(ctx, "tank/a", common.TypeFilesystem,
		[]property.Wire{{Key: "sharenfs", Value: "on"}}))
	a := mustOpen(t, m, "tank/a")
	assert.True(t, m.Shared("tank/a"))

	err := m.Mount(ctx, a)
	assert.True(t, errors.IsKind(err, errors.KindBusy))

	require.NoError(t, m.Unmount(ctx, a, false))
	assert.False(t, m.Shared("tank/a"))
	err = m.Unmount(ctx, a, false)
	assert.True(t, errors.IsKind(err, errors.KindInvalidValue))

	require.NoError(t, m.Mount(ctx, a))
	require.NoError(t, m.Share(ctx, a))
	assert.True(t, m.Shared("tank/a"))
}

func TestMemoryInject(t *testing.T) {
	ctx := context.Background()
	m := newMemory(t)

	require.NoError(t, m.Create(ctx, "tank/a", common.TypeFilesystem, nil))
	a := mustOpen(t, m, "tank/a")

	m.Inject("destroy", "tank/a", "permission denied")
	err := m.Destroy(ctx, a, false)
	assert.True(t, errors.IsKind(err, errors.KindPermissionDenied))

	require.NoError(t, m.Destroy(ctx, a, false))
}

func TestMemoryPools(t *testing.T) {
	ctx := context.Background()
	m := newMemory(t)

	raw, err := m.PoolGetProperty(ctx, "tank", "health")
	require.NoError(t, err)
	assert.Equal(t, "ONLINE", raw.Value)

	_, err = m.PoolGetProperty(ctx, "tank", "bogus")
	assert.True(t, errors.IsKind(err, errors.KindPropertyUnsupported))

	err = m.PoolScrub(ctx, "tank", true)
	require.Error(t, err)
	require.NoError(t, m.PoolScrub(ctx, "tank", false))
	require.NoError(t, m.PoolScrub(ctx, "tank", true))

	var roots []string
	require.NoError(t, m.IterateRoots(ctx, func(h *Handle) error {
		defer m.Close(h)
		roots = append(roots, h.Name())
		return nil
	}))
	assert.Equal(t, []string{"tank"}, roots)

	err = m.PoolCreate(ctx, PoolSpec{Name: "tank", VDevSpec: []pool.VDevSpec{{Devices: []string{"/dev/loop1"}}}})
	assert.True(t, errors.IsKind(err, errors.KindAlreadyExists))

	require.NoError(t, m.PoolDestroy(ctx, "tank", false))
	_, err = m.PoolGetProperty(ctx, "tank", "health")
	assert.True(t, errors.IsKind(err, errors.KindNotFound))
}
