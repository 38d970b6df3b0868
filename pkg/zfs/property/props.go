// Copyright 2025 Raamsri Kumar <raam@tinkershack.in>
// Copyright 2025 The StrataSTOR Authors and Contributors
// SPDX-License-Identifier: Apache-2.0

package property

import (
	"fmt"
	"sort"

	"github.com/stratastor/zfskit/pkg/zfs/common"
)

// Prop identifies a native dataset property.
type Prop int

// Kind is the decoded representation of a native property.
type Kind int

const (
	KindNumber Kind = iota // decodes to uint64
	KindIndex              // decodes to a name from a fixed table
	KindString             // decodes to raw text
)

const (
	PropInvalid Prop = iota
	PropType
	PropCreation
	PropUsed
	PropAvailable
	PropReferenced
	PropCompressRatio
	PropMounted
	PropOrigin
	PropQuota
	PropReservation
	PropVolSize
	PropVolBlockSize
	PropRecordSize
	PropMountpoint
	PropShareNFS
	PropChecksum
	PropCompression
	PropAtime
	PropDevices
	PropExec
	PropSetuid
	PropReadonly
	PropZoned
	PropSnapdir
	PropCanmount
	PropXattr
	PropCopies
	PropVersion
	PropUTF8Only
	PropNormalize
	PropCase
	PropShareSMB
	PropRefQuota
	PropRefReservation
	PropGUID
	PropPrimaryCache
	PropSecondaryCache
	PropUsedBySnapshots
	PropUsedByDataset
	PropUsedByChildren
	PropUsedByRefReservation
	PropDeferDestroy
	PropUserRefs
	PropLogBias
	PropDedup
	PropMLSLabel
	PropSync
	PropRefCompressRatio
	PropWritten
	PropClones
	PropLogicalUsed
	PropLogicalReferenced
	PropVolMode
	PropFilesystemLimit
	PropSnapshotLimit
	PropFilesystemCount
	PropSnapshotCount
	PropSnapdev
	PropACLType
	PropCreateTXG
	PropRedundantMetadata
	PropDnodeSize
	PropEncryption
	PropKeyLocation
	PropKeyFormat
	PropObjsetID
)

const (
	datasets   = common.TypeDatasetMask
	fsOnly     = common.TypeFilesystem
	volOnly    = common.TypeVolume
	fsAndSnap  = common.TypeFilesystem | common.TypeSnapshot
	snapOnly   = common.TypeSnapshot
	notSnap    = common.TypeFilesystem | common.TypeVolume
	fsSnapsVol = datasets
)

// Def describes one native property.
type Def struct {
	Prop     Prop
	Name     string
	Kind     Kind
	Types    common.DatasetType // dataset types the property applies to
	Readonly bool
	Inherit  bool     // value flows to descendants
	Default  string   // value reported with source "default"
	Values   []string // index table, KindIndex only
}

var (
	onOff         = []string{"off", "on"}
	cacheValues   = []string{"none", "metadata", "all"}
	syncValues    = []string{"standard", "always", "disabled"}
	canmountVals  = []string{"off", "on", "noauto"}
	snapdirValues = []string{"hidden", "visible"}
	copiesValues  = []string{"1", "2", "3"}
	typeValues    = []string{"filesystem", "snapshot", "volume"}
	checksumVals  = []string{"on", "off", "fletcher2", "fletcher4", "sha256", "noparity", "sha512", "skein", "edonr", "blake3"}
	logbiasValues = []string{"latency", "throughput"}
	dedupValues   = []string{"off", "on", "verify", "sha256", "sha256,verify", "sha512", "sha512,verify", "skein", "skein,verify", "edonr,verify", "blake3", "blake3,verify"}
	xattrValues   = []string{"off", "on", "sa", "dir"}
	volmodeValues = []string{"default", "full", "geom", "dev", "none"}
	aclValues     = []string{"off", "nfsv4", "posix", "noacl", "posixacl"}
	redundantVals = []string{"all", "most", "some", "none"}
	dnodeValues   = []string{"legacy", "auto", "1k", "2k", "4k", "8k", "16k"}
	normalizeVals = []string{"none", "formC", "formD", "formKC", "formKD"}
	caseValues    = []string{"sensitive", "insensitive", "mixed"}
	encryptVals   = []string{"off", "on", "aes-128-ccm", "aes-192-ccm", "aes-256-ccm", "aes-128-gcm", "aes-192-gcm", "aes-256-gcm"}
	keyformatVals = []string{"none", "raw", "hex", "passphrase"}
	compressVals  = compressionValues()
)

func compressionValues() []string {
	vals := []string{"off", "on", "lzjb", "gzip", "zle", "lz4", "zstd", "zstd-fast"}
	for i := 1; i <= 9; i++ {
		vals = append(vals, fmt.Sprintf("gzip-%d", i))
	}
	for i := 1; i <= 19; i++ {
		vals = append(vals, fmt.Sprintf("zstd-%d", i))
	}
	for _, i := range []int{1, 2, 3, 4, 5, 6, 7, 8, 9, 10, 20, 30, 40, 50, 60, 70, 80, 90, 100, 500, 1000} {
		vals = append(vals, fmt.Sprintf("zstd-fast-%d", i))
	}
	return vals
}

var defs = []Def{
	{PropType, "type", KindIndex, fsSnapsVol, true, false, "", typeValues},
	{PropCreation, "creation", KindNumber, fsSnapsVol, true, false, "", nil},
	{PropUsed, "used", KindNumber, fsSnapsVol, true, false, "", nil},
	{PropAvailable, "available", KindNumber, notSnap, true, false, "", nil},
	{PropReferenced, "referenced", KindNumber, fsSnapsVol, true, false, "", nil},
	{PropCompressRatio, "compressratio", KindNumber, fsSnapsVol, true, false, "", nil},
	{PropMounted, "mounted", KindIndex, fsOnly, true, false, "no", []string{"no", "yes"}},
	{PropOrigin, "origin", KindString, notSnap, true, false, "", nil},
	{PropQuota, "quota", KindNumber, fsOnly, false, false, "0", nil},
	{PropReservation, "reservation", KindNumber, notSnap, false, false, "0", nil},
	{PropVolSize, "volsize", KindNumber, volOnly, false, false, "", nil},
	{PropVolBlockSize, "volblocksize", KindNumber, volOnly, false, false, "16384", nil},
	{PropRecordSize, "recordsize", KindNumber, fsOnly, false, true, "131072", nil},
	{PropMountpoint, "mountpoint", KindString, fsOnly, false, true, "", nil},
	{PropShareNFS, "sharenfs", KindString, fsOnly, false, true, "off", nil},
	{PropChecksum, "checksum", KindIndex, notSnap, false, true, "on", checksumVals},
	{PropCompression, "compression", KindIndex, notSnap, false, true, "on", compressVals},
	{PropAtime, "atime", KindIndex, fsOnly, false, true, "on", onOff},
	{PropDevices, "devices", KindIndex, fsAndSnap, false, true, "on", onOff},
	{PropExec, "exec", KindIndex, fsAndSnap, false, true, "on", onOff},
	{PropSetuid, "setuid", KindIndex, fsAndSnap, false, true, "on", onOff},
	{PropReadonly, "readonly", KindIndex, notSnap, false, true, "off", onOff},
	{PropZoned, "zoned", KindIndex, fsOnly, false, true, "off", onOff},
	{PropSnapdir, "snapdir", KindIndex, fsOnly, false, true, "hidden", snapdirValues},
	{PropCanmount, "canmount", KindIndex, fsOnly, false, false, "on", canmountVals},
	{PropXattr, "xattr", KindIndex, fsAndSnap, false, true, "sa", xattrValues},
	{PropCopies, "copies", KindIndex, notSnap, false, true, "1", copiesValues},
	{PropVersion, "version", KindNumber, fsAndSnap, true, false, "", nil},
	{PropUTF8Only, "utf8only", KindIndex, fsAndSnap, true, false, "off", onOff},
	{PropNormalize, "normalization", KindIndex, fsAndSnap, true, false, "none", normalizeVals},
	{PropCase, "casesensitivity", KindIndex, fsAndSnap, true, false, "sensitive", caseValues},
	{PropShareSMB, "sharesmb", KindString, fsOnly, false, true, "off", nil},
	{PropRefQuota, "refquota", KindNumber, fsOnly, false, false, "0", nil},
	{PropRefReservation, "refreservation", KindNumber, notSnap, false, false, "0", nil},
	{PropGUID, "guid", KindNumber, fsSnapsVol, true, false, "", nil},
	{PropPrimaryCache, "primarycache", KindIndex, fsSnapsVol, false, true, "all", cacheValues},
	{PropSecondaryCache, "secondarycache", KindIndex, fsSnapsVol, false, true, "all", cacheValues},
	{PropUsedBySnapshots, "usedbysnapshots", KindNumber, notSnap, true, false, "", nil},
	{PropUsedByDataset, "usedbydataset", KindNumber, notSnap, true, false, "", nil},
	{PropUsedByChildren, "usedbychildren", KindNumber, notSnap, true, false, "", nil},
	{PropUsedByRefReservation, "usedbyrefreservation", KindNumber, notSnap, true, false, "", nil},
	{PropDeferDestroy, "defer_destroy", KindIndex, snapOnly, true, false, "off", onOff},
	{PropUserRefs, "userrefs", KindNumber, snapOnly, true, false, "0", nil},
	{PropLogBias, "logbias", KindIndex, notSnap, false, true, "latency", logbiasValues},
	{PropDedup, "dedup", KindIndex, notSnap, false, true, "off", dedupValues},
	{PropMLSLabel, "mlslabel", KindString, fsSnapsVol, false, true, "none", nil},
	{PropSync, "sync", KindIndex, notSnap, false, true, "standard", syncValues},
	{PropRefCompressRatio, "refcompressratio", KindNumber, fsSnapsVol, true, false, "", nil},
	{PropWritten, "written", KindNumber, fsSnapsVol, true, false, "", nil},
	{PropClones, "clones", KindString, snapOnly, true, false, "", nil},
	{PropLogicalUsed, "logicalused", KindNumber, notSnap, true, false, "", nil},
	{PropLogicalReferenced, "logicalreferenced", KindNumber, fsSnapsVol, true, false, "", nil},
	{PropVolMode, "volmode", KindIndex, volOnly, false, true, "default", volmodeValues},
	{PropFilesystemLimit, "filesystem_limit", KindNumber, fsOnly, false, false, "", nil},
	{PropSnapshotLimit, "snapshot_limit", KindNumber, notSnap, false, false, "", nil},
	{PropFilesystemCount, "filesystem_count", KindNumber, fsOnly, true, false, "", nil},
	{PropSnapshotCount, "snapshot_count", KindNumber, notSnap, true, false, "", nil},
	{PropSnapdev, "snapdev", KindIndex, notSnap, false, true, "hidden", snapdirValues},
	{PropACLType, "acltype", KindIndex, fsAndSnap, false, true, "off", aclValues},
	{PropCreateTXG, "createtxg", KindNumber, fsSnapsVol, true, false, "", nil},
	{PropRedundantMetadata, "redundant_metadata", KindIndex, notSnap, false, true, "all", redundantVals},
	{PropDnodeSize, "dnodesize", KindIndex, fsOnly, false, true, "legacy", dnodeValues},
	{PropEncryption, "encryption", KindIndex, fsSnapsVol, true, false, "off", encryptVals},
	{PropKeyLocation, "keylocation", KindString, notSnap, false, false, "none", nil},
	{PropKeyFormat, "keyformat", KindIndex, fsSnapsVol, true, false, "none", keyformatVals},
	{PropObjsetID, "objsetid", KindNumber, fsSnapsVol, true, false, "", nil},
}

var (
	byProp = make(map[Prop]*Def, len(defs))
	byName = make(map[string]*Def, len(defs))
)

// aliases accepted by `zfs get/set`
var aliases = map[string]string{
	"avail":     "available",
	"refer":     "referenced",
	"ratio":     "compressratio",
	"compress":  "compression",
	"recsize":   "recordsize",
	"reserv":    "reservation",
	"refreserv": "refreservation",
	"volblock":  "volblocksize",
	"lused":     "logicalused",
	"lrefer":    "logicalreferenced",
}

func init() {
	for i := range defs {
		d := &defs[i]
		byProp[d.Prop] = d
		byName[d.Name] = d
	}
}

// Lookup returns the definition of p.
func Lookup(p Prop) (*Def, bool) {
	d, ok := byProp[p]
	return d, ok
}

// ParseProp resolves a native property name or alias.
func ParseProp(name string) (Prop, bool) {
	if a, ok := aliases[name]; ok {
		name = a
	}
	d, ok := byName[name]
	if !ok {
		return PropInvalid, false
	}
	return d.Prop, true
}

// Name returns the userland name of p.
func (p Prop) Name() string {
	if d, ok := byProp[p]; ok {
		return d.Name
	}
	return fmt.Sprintf("prop(%d)", int(p))
}

func (p Prop) String() string { return p.Name() }

// AppliesTo reports whether p is defined for datasets of type t.
func (p Prop) AppliesTo(t common.DatasetType) bool {
	d, ok := byProp[p]
	return ok && d.Types&t != 0
}

// Names lists every native property name in sorted order.
func Names() []string {
	names := make([]string, 0, len(byName))
	for n := range byName {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}
