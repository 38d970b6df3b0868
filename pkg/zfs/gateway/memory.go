// Copyright 2025 Raamsri Kumar <raam@tinkershack.in>
// Copyright 2025 The StrataSTOR Authors and Contributors
// SPDX-License-Identifier: Apache-2.0

package gateway

import (
	"context"
	"fmt"
	"path"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/stratastor/logger"
	"github.com/stratastor/zfskit/pkg/errors"
	"github.com/stratastor/zfskit/pkg/zfs/common"
	"github.com/stratastor/zfskit/pkg/zfs/property"
)

const (
	backendMemory = "memory"

	memReferenced = 24576
	memAvailable  = 10 << 30
)

type memNode struct {
	name      string
	typ       common.DatasetType
	guid      uint64
	createTXG uint64
	creation  int64
	local     map[string]string // local native and user properties
	origin    string            // clones only
	clones    map[string]struct{}
	mounted   bool
	shared    bool
	deferred  bool
}

type memPool struct {
	props     map[string]string
	scrubbing bool
}

// Memory is an in-process Gateway that models pool and dataset state the
// way the ZFS userland reports it. Failures carry the same native reasons
// the CLI backend classifies.
type Memory struct {
	mu     sync.Mutex
	logger logger.Logger
	ready  bool
	txg    uint64
	guid   uint64
	nodes  map[string]*memNode
	pools  map[string]*memPool
	faults map[string]string
}

var _ Gateway = (*Memory)(nil)

func NewMemory(l logger.Logger) *Memory {
	return &Memory{
		logger: l,
		txg:    1,
		guid:   0x5eed0000,
		nodes:  make(map[string]*memNode),
		pools:  make(map[string]*memPool),
		faults: make(map[string]string),
	}
}

func (m *Memory) Backend() string { return backendMemory }

func (m *Memory) Init(ctx context.Context) error {
	observe(backendMemory, "init")
	m.mu.Lock()
	defer m.mu.Unlock()
	m.ready = true
	return nil
}

func (m *Memory) Fini() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.ready = false
	return nil
}

// Inject makes the next op on name fail with reason. op is the metric
// name of the call, e.g. "destroy" or "set_property".
func (m *Memory) Inject(op, name, reason string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.faults[op+"\x00"+name] = reason
}

func (m *Memory) fault(op, name, action string) error {
	key := op + "\x00" + name
	if reason, ok := m.faults[key]; ok {
		delete(m.faults, key)
		return errors.NewNative(action, reason)
	}
	return nil
}

// begin locks m and runs the checks shared by every call.
func (m *Memory) begin(ctx context.Context, op string) error {
	observe(backendMemory, op)
	if err := ctx.Err(); err != nil {
		return errors.Wrap(err, errors.CommandTimeout)
	}
	m.mu.Lock()
	if !m.ready {
		m.mu.Unlock()
		return errors.New(errors.ZFSInvariantViolation, "gateway not initialized")
	}
	return nil
}

func (m *Memory) nextTXG() uint64 {
	m.txg++
	return m.txg
}

func (m *Memory) newNode(name string, typ common.DatasetType, txg uint64) *memNode {
	m.guid += 0x1f3
	n := &memNode{
		name:      name,
		typ:       typ,
		guid:      m.guid,
		createTXG: txg,
		creation:  time.Now().Unix(),
		local:     make(map[string]string),
	}
	if typ == common.TypeSnapshot {
		n.clones = make(map[string]struct{})
	}
	m.nodes[name] = n
	return n
}

func notExist(name string) error {
	return errors.NewNative("open '"+name+"'", "dataset does not exist")
}

// lookup maps h back to its node. A node that was replaced under the same
// name does not match the handle.
func (m *Memory) lookup(h *Handle) (*memNode, error) {
	if err := usable(h); err != nil {
		return nil, err
	}
	n, ok := m.nodes[h.name]
	if !ok || n.guid != h.guid {
		return nil, notExist(h.name)
	}
	return n, nil
}

func (m *Memory) handleFor(n *memNode, asPool bool) *Handle {
	typ := n.typ
	if asPool {
		typ = common.TypePool
	}
	return newHandle(n.name, typ, n.guid, n.createTXG)
}

func (m *Memory) Open(ctx context.Context, name string, mask common.DatasetType) (*Handle, error) {
	if err := m.begin(ctx, "open"); err != nil {
		return nil, err
	}
	defer m.mu.Unlock()

	if err := common.ValidateName(name, mask); err != nil {
		return nil, err
	}
	if err := m.fault("open", name, "open '"+name+"'"); err != nil {
		return nil, err
	}
	n, ok := m.nodes[name]
	if !ok {
		return nil, notExist(name)
	}
	if mask.IsPool() && isPoolName(name) {
		return m.handleFor(n, true), nil
	}
	if !n.typ.Matches(mask) {
		return nil, errors.NewNative("open '"+name+"'", "operation not applicable to datasets of this type")
	}
	return m.handleFor(n, false), nil
}

func (m *Memory) Close(h *Handle) {
	h.release()
}

func (m *Memory) Exists(ctx context.Context, name string, mask common.DatasetType) (bool, error) {
	if err := m.begin(ctx, "exists"); err != nil {
		return false, err
	}
	defer m.mu.Unlock()

	if err := common.ValidateName(name, mask); err != nil {
		return false, err
	}
	n, ok := m.nodes[name]
	if !ok {
		return false, nil
	}
	if mask.IsPool() && isPoolName(name) {
		return true, nil
	}
	return n.typ.Matches(mask), nil
}

func parentOf(name string) string {
	return common.ParseName(name).Parent()
}

// collect returns the handles to visit. Visitors run after the lock is
// released so they may call back into the gateway.
func (m *Memory) collect(keep func(*memNode) bool, less func(a, b *memNode) bool) []*Handle {
	var nodes []*memNode
	for _, n := range m.nodes {
		if keep(n) {
			nodes = append(nodes, n)
		}
	}
	sort.Slice(nodes, func(i, j int) bool { return less(nodes[i], nodes[j]) })

	handles := make([]*Handle, len(nodes))
	for i, n := range nodes {
		handles[i] = m.handleFor(n, false)
	}
	return handles
}

func byTXG(a, b *memNode) bool {
	if a.createTXG != b.createTXG {
		return a.createTXG < b.createTXG
	}
	return a.name < b.name
}

func byName(a, b *memNode) bool { return a.name < b.name }

func visitHandles(handles []*Handle, fn Visitor) error {
	for i, h := range handles {
		if err := fn(h); err != nil {
			// the visitor never saw the rest
			for _, rest := range handles[i+1:] {
				rest.release()
			}
			if errors.Is(err, Stop) {
				return nil
			}
			return err
		}
	}
	return nil
}

func (m *Memory) IterateRoots(ctx context.Context, fn Visitor) error {
	if err := m.begin(ctx, "iterate_roots"); err != nil {
		return err
	}
	names := make([]string, 0, len(m.pools))
	for name := range m.pools {
		names = append(names, name)
	}
	sort.Strings(names)
	handles := make([]*Handle, 0, len(names))
	for _, name := range names {
		if n, ok := m.nodes[name]; ok {
			handles = append(handles, m.handleFor(n, true))
		}
	}
	m.mu.Unlock()
	return visitHandles(handles, fn)
}

func (m *Memory) iterate(ctx context.Context, op string, h *Handle, fn Visitor,
	keep func(*memNode) bool, less func(a, b *memNode) bool) error {
	if err := m.begin(ctx, op); err != nil {
		return err
	}
	parent, err := m.lookup(h)
	if err != nil {
		m.mu.Unlock()
		return errors.Wrap(err, errors.ZFSDatasetList)
	}
	handles := m.collect(func(n *memNode) bool {
		return parentOf(n.name) == parent.name && n.name != parent.name && keep(n)
	}, less)
	m.mu.Unlock()
	return visitHandles(handles, fn)
}

func (m *Memory) IterateChildren(ctx context.Context, h *Handle, fn Visitor) error {
	return m.iterate(ctx, "iterate_children", h, fn, func(*memNode) bool { return true }, byTXG)
}

func (m *Memory) IterateFilesystems(ctx context.Context, h *Handle, fn Visitor) error {
	return m.iterate(ctx, "iterate_filesystems", h, fn, func(n *memNode) bool {
		return !n.typ.IsSnapshot()
	}, byName)
}

func (m *Memory) IterateSnapshots(ctx context.Context, h *Handle, fn Visitor) error {
	return m.iterate(ctx, "iterate_snapshots", h, fn, func(n *memNode) bool {
		return n.typ.IsSnapshot()
	}, byTXG)
}

// resolve walks from n towards the pool root looking for a local value.
// Snapshots resolve through the dataset they belong to.
func (m *Memory) resolve(n *memNode, key string, inherit bool, def string) (property.Raw, bool) {
	if v, ok := n.local[key]; ok {
		return property.Raw{Value: v, Source: property.SourceLocal}, true
	}
	if inherit {
		for anc := parentOf(n.name); anc != ""; anc = parentOf(anc) {
			a, ok := m.nodes[anc]
			if !ok {
				break
			}
			if v, ok := a.local[key]; ok {
				return property.Raw{Value: v, Source: property.SourceInherited, SourceData: anc}, true
			}
		}
	}
	if def == "" {
		return property.Raw{Value: "-", Source: property.SourceNone}, false
	}
	return property.Raw{Value: def, Source: property.SourceDefault}, true
}

func (m *Memory) mountpoint(n *memNode) property.Raw {
	r, _ := m.resolve(n, "mountpoint", true, "")
	switch r.Source {
	case property.SourceLocal:
		return r
	case property.SourceInherited:
		if r.Value == "none" || r.Value == "legacy" {
			return r
		}
		r.Value = path.Join(r.Value, strings.TrimPrefix(n.name, r.SourceData))
		return r
	}
	return property.Raw{Value: "/" + n.name, Source: property.SourceDefault}
}

func (m *Memory) count(n *memNode, typ common.DatasetType) int {
	c := 0
	for name, d := range m.nodes {
		if d.typ == typ && common.IsDescendantOf(name, n.name) {
			c++
		}
	}
	return c
}

func onOff(b bool) string {
	if b {
		return "on"
	}
	return "off"
}

func yesNo(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}

func fixed(v any) property.Raw {
	return property.Raw{Value: fmt.Sprint(v), Source: property.SourceNone}
}

func (m *Memory) GetProperty(ctx context.Context, h *Handle, p property.Prop) (property.Raw, error) {
	if err := m.begin(ctx, "get_property"); err != nil {
		return property.Raw{}, err
	}
	defer m.mu.Unlock()

	n, err := m.lookup(h)
	if err != nil {
		return property.Raw{}, errors.Wrap(err, errors.ZFSDatasetGetProperty)
	}
	def, ok := property.Lookup(p)
	if !ok || !p.AppliesTo(n.typ) {
		return property.Raw{Value: "-", Source: property.SourceNone}, nil
	}

	switch p {
	case property.PropType:
		return fixed(n.typ), nil
	case property.PropCreation:
		return fixed(n.creation), nil
	case property.PropCreateTXG:
		return fixed(n.createTXG), nil
	case property.PropGUID:
		return fixed(n.guid), nil
	case property.PropObjsetID:
		return fixed(n.guid & 0xffff), nil
	case property.PropUsed, property.PropReferenced, property.PropLogicalUsed,
		property.PropLogicalReferenced, property.PropUsedByDataset, property.PropWritten:
		return fixed(memReferenced), nil
	case property.PropAvailable:
		return fixed(memAvailable), nil
	case property.PropUsedBySnapshots, property.PropUsedByChildren, property.PropUsedByRefReservation,
		property.PropUserRefs:
		return fixed(0), nil
	case property.PropCompressRatio, property.PropRefCompressRatio:
		return fixed("1.00"), nil
	case property.PropVersion:
		return fixed(5), nil
	case property.PropMounted:
		return fixed(yesNo(n.mounted)), nil
	case property.PropOrigin:
		if n.origin == "" {
			return fixed("-"), nil
		}
		return fixed(n.origin), nil
	case property.PropClones:
		clones := make([]string, 0, len(n.clones))
		for c := range n.clones {
			clones = append(clones, c)
		}
		sort.Strings(clones)
		return fixed(strings.Join(clones, ",")), nil
	case property.PropDeferDestroy:
		return fixed(onOff(n.deferred)), nil
	case property.PropFilesystemCount:
		return fixed(m.count(n, common.TypeFilesystem)), nil
	case property.PropSnapshotCount:
		return fixed(m.count(n, common.TypeSnapshot)), nil
	case property.PropMountpoint:
		return m.mountpoint(n), nil
	}

	r, _ := m.resolve(n, def.Name, def.Inherit, def.Default)
	return r, nil
}

func (m *Memory) GetUserProperties(ctx context.Context, h *Handle) (property.UserProperties, error) {
	if err := m.begin(ctx, "get_user_properties"); err != nil {
		return nil, err
	}
	defer m.mu.Unlock()

	n, err := m.lookup(h)
	if err != nil {
		return nil, errors.Wrap(err, errors.ZFSDatasetGetProperty)
	}

	props := make(property.UserProperties)
	for k, v := range n.local {
		if strings.Contains(k, ":") {
			props[k] = property.UserRecord{Value: v, Source: property.SourceLocal}
		}
	}
	for anc := parentOf(n.name); anc != ""; anc = parentOf(anc) {
		a, ok := m.nodes[anc]
		if !ok {
			break
		}
		for k, v := range a.local {
			if _, seen := props[k]; seen || !strings.Contains(k, ":") {
				continue
			}
			props[k] = property.UserRecord{Value: v, Source: property.SourceInherited, SourceData: anc}
		}
	}
	return props, nil
}

func (m *Memory) sharing(n *memNode) bool {
	nfs, _ := m.resolve(n, "sharenfs", true, "off")
	smb, _ := m.resolve(n, "sharesmb", true, "off")
	return nfs.Value != "off" || smb.Value != "off"
}

func (m *Memory) autoMount(n *memNode) {
	if n.typ != common.TypeFilesystem {
		return
	}
	if cm := n.local["canmount"]; cm == "off" || cm == "noauto" {
		return
	}
	if mp := m.mountpoint(n); mp.Value == "none" || mp.Value == "legacy" {
		return
	}
	n.mounted = true
	n.shared = m.sharing(n)
}

func (m *Memory) SetProperty(ctx context.Context, h *Handle, w property.Wire) error {
	if err := m.begin(ctx, "set_property"); err != nil {
		return err
	}
	defer m.mu.Unlock()

	n, err := m.lookup(h)
	if err != nil {
		return errors.Wrap(err, errors.ZFSDatasetSetProperty)
	}
	if err := m.fault("set_property", n.name, "set property for '"+n.name+"'"); err != nil {
		return err
	}
	enc, err := property.EncodeProperty(w.Key, w.Value, n.typ)
	if err != nil {
		return errors.Wrap(err, errors.ZFSDatasetSetProperty).WithMetadata("name", n.name)
	}

	n.local[enc.Key] = enc.Value
	switch enc.Key {
	case "sharenfs", "sharesmb":
		if n.mounted {
			n.shared = m.sharing(n)
		}
	}
	return nil
}

func (m *Memory) InheritProperty(ctx context.Context, h *Handle, key string, recursive bool) error {
	if err := m.begin(ctx, "inherit_property"); err != nil {
		return err
	}
	defer m.mu.Unlock()

	n, err := m.lookup(h)
	if err != nil {
		return errors.Wrap(err, errors.ZFSDatasetInheritProperty)
	}
	if err := property.ValidateInherit(key, n.typ); err != nil {
		return errors.Wrap(err, errors.ZFSDatasetInheritProperty).WithMetadata("name", n.name)
	}
	if p, ok := property.ParseProp(key); ok {
		key = p.Name()
	}

	delete(n.local, key)
	if recursive {
		for name, d := range m.nodes {
			if common.IsDescendantOf(name, n.name) {
				delete(d.local, key)
			}
		}
	}
	return nil
}

// checkParent verifies that name can be created below its parent.
func (m *Memory) checkParent(name, action string) error {
	parent := parentOf(name)
	if parent == "" {
		return errors.NewNative(action, "missing dataset name")
	}
	p, ok := m.nodes[parent]
	if !ok {
		return errors.NewNative(action, "parent does not exist")
	}
	if p.typ != common.TypeFilesystem {
		return errors.NewNative(action, "parent is not a filesystem")
	}
	return nil
}

func applyWires(n *memNode, props []property.Wire) error {
	for _, w := range props {
		enc, err := property.EncodeProperty(w.Key, w.Value, n.typ)
		if err != nil {
			return err
		}
		n.local[enc.Key] = enc.Value
	}
	return nil
}

func validateWires(props []property.Wire, typ common.DatasetType) error {
	for _, w := range props {
		if _, err := property.EncodeProperty(w.Key, w.Value, typ); err != nil {
			return err
		}
	}
	return nil
}

func (m *Memory) Create(ctx context.Context, name string, typ common.DatasetType, props []property.Wire) error {
	if err := m.begin(ctx, "create"); err != nil {
		return err
	}
	defer m.mu.Unlock()

	action := "create '" + name + "'"
	if typ != common.TypeFilesystem && typ != common.TypeVolume {
		return errors.New(errors.ZFSInvalidValue, "only filesystems and volumes can be created").
			WithAction(action)
	}
	if err := common.ValidateName(name, typ); err != nil {
		return err
	}
	if err := m.fault("create", name, action); err != nil {
		return err
	}
	if _, ok := m.nodes[name]; ok {
		return errors.NewNative(action, "dataset already exists")
	}
	if err := m.checkParent(name, action); err != nil {
		return err
	}
	if typ == common.TypeVolume {
		hasSize := false
		for _, w := range props {
			hasSize = hasSize || w.Key == "volsize"
		}
		if !hasSize {
			return errors.NewNative(action, "missing volume size")
		}
	}
	if err := validateWires(props, typ); err != nil {
		return errors.Wrap(err, errors.ZFSDatasetCreate).WithAction(action)
	}

	n := m.newNode(name, typ, m.nextTXG())
	_ = applyWires(n, props)
	m.autoMount(n)
	m.logger.Debug("Created dataset", "name", name, "type", typ.String(), "txg", n.createTXG)
	return nil
}

func (m *Memory) hasDescendants(name string) bool {
	for other := range m.nodes {
		if common.IsDescendantOf(other, name) {
			return true
		}
	}
	return false
}

// remove deletes n and drops a deferred origin once its last clone is gone.
func (m *Memory) remove(n *memNode) {
	delete(m.nodes, n.name)
	if n.origin == "" {
		return
	}
	o, ok := m.nodes[n.origin]
	if !ok {
		return
	}
	delete(o.clones, n.name)
	if o.deferred && len(o.clones) == 0 {
		m.remove(o)
	}
}

func (m *Memory) Destroy(ctx context.Context, h *Handle, deferred bool) error {
	if err := m.begin(ctx, "destroy"); err != nil {
		return err
	}
	defer m.mu.Unlock()

	n, err := m.lookup(h)
	if err != nil {
		return errors.Wrap(err, errors.ZFSDatasetDestroy)
	}
	action := "destroy '" + n.name + "'"
	if err := m.fault("destroy", n.name, action); err != nil {
		return err
	}

	if n.typ.IsSnapshot() {
		if len(n.clones) > 0 {
			if deferred {
				n.deferred = true
				return nil
			}
			return errors.NewNative(action, "snapshot has dependent clones")
		}
		m.remove(n)
		return nil
	}

	if parentOf(n.name) == "" {
		return errors.NewNative(action, "operation does not apply to pools")
	}
	if m.hasDescendants(n.name) {
		return errors.NewNative(action, "filesystem has children")
	}
	m.remove(n)
	return nil
}

func (m *Memory) Clone(ctx context.Context, snap *Handle, target string, props []property.Wire) error {
	if err := m.begin(ctx, "clone"); err != nil {
		return err
	}
	defer m.mu.Unlock()

	s, err := m.lookup(snap)
	if err != nil {
		return errors.Wrap(err, errors.ZFSDatasetClone)
	}
	if !s.typ.IsSnapshot() {
		return errors.NewNative("open '"+s.name+"'", "operation not applicable to datasets of this type")
	}
	base, ok := m.nodes[common.ParseName(s.name).Base]
	if !ok {
		return notExist(s.name)
	}

	action := "create '" + target + "'"
	if err := common.ValidateName(target, base.typ); err != nil {
		return err
	}
	if err := m.fault("clone", target, action); err != nil {
		return err
	}
	if _, ok := m.nodes[target]; ok {
		return errors.NewNative(action, "dataset already exists")
	}
	if common.ParseName(target).Pool() != common.ParseName(s.name).Pool() {
		return errors.NewNative(action, "source and target pools differ")
	}
	if err := m.checkParent(target, action); err != nil {
		return err
	}
	if err := validateWires(props, base.typ); err != nil {
		return errors.Wrap(err, errors.ZFSDatasetClone).WithAction(action)
	}

	n := m.newNode(target, base.typ, m.nextTXG())
	if v, ok := base.local["volsize"]; ok {
		n.local["volsize"] = v
	}
	_ = applyWires(n, props)
	n.origin = s.name
	s.clones[target] = struct{}{}
	m.autoMount(n)
	return nil
}

func (m *Memory) Snapshot(ctx context.Context, fullName string, recursive bool, props []property.Wire) error {
	if err := m.begin(ctx, "snapshot"); err != nil {
		return err
	}
	defer m.mu.Unlock()

	action := "create snapshot '" + fullName + "'"
	if err := common.ValidateName(fullName, common.TypeSnapshot); err != nil {
		return err
	}
	if err := m.fault("snapshot", fullName, action); err != nil {
		return err
	}
	parsed := common.ParseName(fullName)
	base, ok := m.nodes[parsed.Base]
	if !ok || base.typ.IsSnapshot() {
		return errors.NewNative(action, "dataset does not exist")
	}
	if err := validateWires(props, common.TypeSnapshot); err != nil {
		return errors.Wrap(err, errors.ZFSSnapshotFailed).WithAction(action)
	}

	targets := []string{base.name}
	if recursive {
		for name, n := range m.nodes {
			if !n.typ.IsSnapshot() && common.IsDescendantOf(name, base.name) {
				targets = append(targets, name)
			}
		}
		sort.Strings(targets)
	}
	for _, t := range targets {
		if _, ok := m.nodes[t+"@"+parsed.Snapshot]; ok {
			return errors.NewNative(action, "dataset already exists").
				WithMetadata("conflict", t+"@"+parsed.Snapshot)
		}
	}

	// one transaction group for the whole set
	txg := m.nextTXG()
	for _, t := range targets {
		n := m.newNode(t+"@"+parsed.Snapshot, common.TypeSnapshot, txg)
		_ = applyWires(n, props)
	}
	return nil
}

func (m *Memory) Rollback(ctx context.Context, snap *Handle) error {
	if err := m.begin(ctx, "rollback"); err != nil {
		return err
	}
	defer m.mu.Unlock()

	s, err := m.lookup(snap)
	if err != nil {
		return errors.Wrap(err, errors.ZFSSnapshotRollback)
	}
	action := "rollback to '" + s.name + "'"
	if !s.typ.IsSnapshot() {
		return errors.NewNative("open '"+s.name+"'", "operation not applicable to datasets of this type")
	}
	if err := m.fault("rollback", s.name, action); err != nil {
		return err
	}
	base := common.ParseName(s.name).Base
	for name, n := range m.nodes {
		if n.typ.IsSnapshot() && common.ParseName(name).Base == base && n.createTXG > s.createTXG {
			return errors.NewNative(action, "more recent snapshots or bookmarks exist").
				WithMetadata("newer", name)
		}
	}
	return nil
}

// move renames from and everything below it to to, keeping origin and
// clone links intact.
func (m *Memory) move(from, to string) {
	renamed := make(map[string]string)
	for name := range m.nodes {
		if name == from || common.IsDescendantOf(name, from) {
			renamed[name] = to + strings.TrimPrefix(name, from)
		}
	}
	moved := make([]*memNode, 0, len(renamed))
	for old := range renamed {
		moved = append(moved, m.nodes[old])
		delete(m.nodes, old)
	}
	for _, n := range moved {
		n.name = renamed[n.name]
		m.nodes[n.name] = n
	}

	for _, n := range m.nodes {
		if r, ok := renamed[n.origin]; ok {
			n.origin = r
		}
		if len(n.clones) == 0 {
			continue
		}
		clones := make(map[string]struct{}, len(n.clones))
		for c := range n.clones {
			if r, ok := renamed[c]; ok {
				c = r
			}
			clones[c] = struct{}{}
		}
		n.clones = clones
	}
}

func (m *Memory) Rename(ctx context.Context, h *Handle, newName string, recursive bool) error {
	if err := m.begin(ctx, "rename"); err != nil {
		return err
	}
	defer m.mu.Unlock()

	n, err := m.lookup(h)
	if err != nil {
		return errors.Wrap(err, errors.ZFSDatasetRename)
	}
	action := "rename to '" + newName + "'"
	if err := m.fault("rename", n.name, action); err != nil {
		return err
	}
	if _, ok := m.nodes[newName]; ok {
		return errors.NewNative(action, "dataset already exists")
	}

	if n.typ.IsSnapshot() {
		return m.renameSnapshot(n, newName, recursive, action)
	}

	if err := common.ValidateName(newName, n.typ); err != nil {
		return err
	}
	if parentOf(n.name) == "" {
		return errors.NewNative(action, "operation does not apply to pools")
	}
	if common.ParseName(newName).Pool() != common.ParseName(n.name).Pool() {
		return errors.NewNative(action, "source and target pools differ")
	}
	if common.IsDescendantOf(newName, n.name) {
		return errors.NewNative(action, "New dataset name cannot be a descendant of current dataset name")
	}
	if err := m.checkParent(newName, action); err != nil {
		return err
	}
	m.move(n.name, newName)
	return nil
}

func (m *Memory) renameSnapshot(n *memNode, newName string, recursive bool, action string) error {
	if err := common.ValidateName(newName, common.TypeSnapshot); err != nil {
		return err
	}
	from := common.ParseName(n.name)
	to := common.ParseName(newName)
	if from.Base != to.Base {
		return errors.NewNative(action, "snapshots must be part of same dataset")
	}

	pairs := map[string]string{n.name: newName}
	if recursive {
		for name, d := range m.nodes {
			pn := common.ParseName(name)
			if d.typ.IsSnapshot() && pn.Snapshot == from.Snapshot && common.IsDescendantOf(pn.Base, from.Base) {
				pairs[name] = pn.Base + "@" + to.Snapshot
			}
		}
	}
	for _, target := range pairs {
		if _, ok := m.nodes[target]; ok {
			return errors.NewNative(action, "dataset already exists").WithMetadata("conflict", target)
		}
	}
	for old, target := range pairs {
		m.move(old, target)
	}
	return nil
}

func (m *Memory) Promote(ctx context.Context, h *Handle) error {
	if err := m.begin(ctx, "promote"); err != nil {
		return err
	}
	defer m.mu.Unlock()

	n, err := m.lookup(h)
	if err != nil {
		return errors.Wrap(err, errors.ZFSDatasetPromote)
	}
	action := "promote '" + n.name + "'"
	if err := m.fault("promote", n.name, action); err != nil {
		return err
	}
	if n.typ.IsSnapshot() || n.origin == "" {
		return errors.NewNative(action, "not a cloned filesystem")
	}
	origin, ok := m.nodes[n.origin]
	if !ok {
		return notExist(n.origin)
	}
	base, ok := m.nodes[common.ParseName(origin.name).Base]
	if !ok {
		return notExist(common.ParseName(origin.name).Base)
	}

	// snapshots up to and including the origin change hands
	var taken []string
	for name, s := range m.nodes {
		if s.typ.IsSnapshot() && common.ParseName(name).Base == base.name && s.createTXG <= origin.createTXG {
			taken = append(taken, name)
		}
	}
	for _, name := range taken {
		target := n.name + "@" + common.ParseName(name).Snapshot
		if _, ok := m.nodes[target]; ok {
			return errors.NewNative(action, "snapshot name conflict").WithMetadata("conflict", target)
		}
	}
	for _, name := range taken {
		m.move(name, n.name+"@"+common.ParseName(name).Snapshot)
	}

	prevOrigin := base.origin
	delete(origin.clones, n.name)
	origin.clones[base.name] = struct{}{}
	base.origin = origin.name
	n.origin = prevOrigin
	if prev, ok := m.nodes[prevOrigin]; ok {
		delete(prev.clones, base.name)
		prev.clones[n.name] = struct{}{}
	}
	return nil
}

func (m *Memory) Mount(ctx context.Context, h *Handle) error {
	if err := m.begin(ctx, "mount"); err != nil {
		return err
	}
	defer m.mu.Unlock()

	n, err := m.lookup(h)
	if err != nil {
		return errors.Wrap(err, errors.ZFSMountError)
	}
	action := "mount '" + n.name + "'"
	if n.typ != common.TypeFilesystem {
		return errors.NewNative("open '"+n.name+"'", "operation not applicable to datasets of this type")
	}
	if err := m.fault("mount", n.name, action); err != nil {
		return err
	}
	if n.mounted {
		return errors.NewNative(action, "filesystem already mounted")
	}
	n.mounted = true
	return nil
}

func (m *Memory) Unmount(ctx context.Context, h *Handle, force bool) error {
	if err := m.begin(ctx, "unmount"); err != nil {
		return err
	}
	defer m.mu.Unlock()

	n, err := m.lookup(h)
	if err != nil {
		return errors.Wrap(err, errors.ZFSMountError)
	}
	action := "unmount '" + n.name + "'"
	if err := m.fault("unmount", n.name, action); err != nil {
		return err
	}
	if !n.mounted {
		return errors.NewNative(action, "not currently mounted")
	}
	n.mounted = false
	n.shared = false
	return nil
}

func (m *Memory) Share(ctx context.Context, h *Handle) error {
	if err := m.begin(ctx, "share"); err != nil {
		return err
	}
	defer m.mu.Unlock()

	n, err := m.lookup(h)
	if err != nil {
		return errors.Wrap(err, errors.ZFSShareError)
	}
	if err := m.fault("share", n.name, "share '"+n.name+"'"); err != nil {
		return err
	}
	if n.mounted && m.sharing(n) {
		n.shared = true
	}
	return nil
}

func (m *Memory) Unshare(ctx context.Context, h *Handle) error {
	if err := m.begin(ctx, "unshare"); err != nil {
		return err
	}
	defer m.mu.Unlock()

	n, err := m.lookup(h)
	if err != nil {
		return errors.Wrap(err, errors.ZFSShareError)
	}
	if err := m.fault("unshare", n.name, "unshare '"+n.name+"'"); err != nil {
		return err
	}
	n.shared = false
	return nil
}

// Shared reports whether name is currently shared.
func (m *Memory) Shared(name string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	n, ok := m.nodes[name]
	return ok && n.shared
}

func (m *Memory) PoolCreate(ctx context.Context, spec PoolSpec) error {
	if err := m.begin(ctx, "pool_create"); err != nil {
		return err
	}
	defer m.mu.Unlock()

	action := "create '" + spec.Name + "'"
	if err := common.PoolNameCheck(spec.Name); err != nil {
		return err
	}
	if len(spec.VDevSpec) == 0 {
		return errors.New(errors.ZFSInvalidValue, "at least one vdev is required").WithAction(action)
	}
	if err := m.fault("pool_create", spec.Name, action); err != nil {
		return err
	}
	if _, ok := m.pools[spec.Name]; ok {
		return errors.NewNative(action, "pool already exists")
	}

	var wires []property.Wire
	for k, v := range spec.FSProperties {
		wires = append(wires, property.Wire{Key: k, Value: v})
	}
	if spec.MountPoint != "" {
		wires = append(wires, property.Wire{Key: "mountpoint", Value: spec.MountPoint})
	}
	if err := validateWires(wires, common.TypeFilesystem); err != nil {
		return errors.Wrap(err, errors.ZFSPoolCreate).WithAction(action)
	}

	props := map[string]string{
		"health":   "ONLINE",
		"size":     strconv.Itoa(memAvailable),
		"free":     strconv.Itoa(memAvailable - memReferenced),
		"capacity": "0",
		"readonly": "off",
		"ashift":   "0",
	}
	for k, v := range spec.Properties {
		props[k] = v
	}
	m.guid += 0x1f3
	props["guid"] = strconv.FormatUint(m.guid, 10)
	m.pools[spec.Name] = &memPool{props: props}

	root := m.newNode(spec.Name, common.TypeFilesystem, m.nextTXG())
	_ = applyWires(root, wires)
	m.autoMount(root)
	m.logger.Debug("Created pool", "pool", spec.Name)
	return nil
}

func (m *Memory) noPool(name, action string) error {
	if _, ok := m.pools[name]; !ok {
		return errors.NewNative(action, "no such pool")
	}
	return nil
}

func (m *Memory) PoolDestroy(ctx context.Context, name string, force bool) error {
	if err := m.begin(ctx, "pool_destroy"); err != nil {
		return err
	}
	defer m.mu.Unlock()

	action := "open '" + name + "'"
	if err := m.noPool(name, action); err != nil {
		return err
	}
	if err := m.fault("pool_destroy", name, "destroy '"+name+"'"); err != nil {
		return err
	}
	for other := range m.nodes {
		if other == name || common.IsDescendantOf(other, name) {
			delete(m.nodes, other)
		}
	}
	delete(m.pools, name)
	return nil
}

func (m *Memory) PoolGetProperty(ctx context.Context, name, prop string) (property.Raw, error) {
	if err := m.begin(ctx, "pool_get_property"); err != nil {
		return property.Raw{}, err
	}
	defer m.mu.Unlock()

	if err := m.noPool(name, "open '"+name+"'"); err != nil {
		return property.Raw{}, err
	}
	p := m.pools[name]
	v, ok := p.props[prop]
	if !ok {
		return property.Raw{}, errors.NewNative("get property", "bad property list: invalid property '"+prop+"'")
	}
	src := property.SourceNone
	switch prop {
	case "readonly", "ashift":
		src = property.SourceDefault
	}
	return property.Raw{Value: v, Source: src}, nil
}

func (m *Memory) PoolScrub(ctx context.Context, name string, stop bool) error {
	if err := m.begin(ctx, "pool_scrub"); err != nil {
		return err
	}
	defer m.mu.Unlock()

	action := "scrub '" + name + "'"
	if err := m.noPool(name, action); err != nil {
		return err
	}
	if err := m.fault("pool_scrub", name, action); err != nil {
		return err
	}
	p := m.pools[name]
	if stop {
		if !p.scrubbing {
			return errors.NewNative("cancel scrub on '"+name+"'", "there is no active scrub")
		}
		p.scrubbing = false
		return nil
	}
	p.scrubbing = true
	return nil
}
