// Copyright 2025 Raamsri Kumar <raam@tinkershack.in>
// Copyright 2025 The StrataSTOR Authors and Contributors
// SPDX-License-Identifier: Apache-2.0

package common

import "strings"

// DatasetType is the native type code of a dataset or pool. Values match
// libzfs zfs_type_t so a mask can be passed through unchanged.
type DatasetType uint8

const (
	TypeInvalid    DatasetType = 0
	TypeFilesystem DatasetType = 1 << (iota - 1)
	TypeSnapshot
	TypeVolume
	TypePool
	TypeBookmark
)

const (
	// TypeDatasetMask represents any dataset type (filesystem, volume, or snapshot)
	TypeDatasetMask = TypeFilesystem | TypeVolume | TypeSnapshot
	// TypeAny is the default resolution mask.
	TypeAny = TypeDatasetMask | TypePool
)

var typeNames = []struct {
	t    DatasetType
	name string
}{
	{TypeFilesystem, "filesystem"},
	{TypeSnapshot, "snapshot"},
	{TypeVolume, "volume"},
	{TypePool, "pool"},
	{TypeBookmark, "bookmark"},
}

// String returns the userland name of a single type, or a comma separated
// list for a mask.
func (dt DatasetType) String() string {
	var parts []string
	for _, tn := range typeNames {
		if dt&tn.t != 0 {
			parts = append(parts, tn.name)
		}
	}
	if len(parts) == 0 {
		return "invalid"
	}
	return strings.Join(parts, ",")
}

// ParseDatasetType parses the type column of `zfs list -o type`.
func ParseDatasetType(s string) DatasetType {
	for _, tn := range typeNames {
		if tn.name == s {
			return tn.t
		}
	}
	return TypeInvalid
}

// ListTypes renders a mask as the `-t` argument of `zfs list`. The pool bit
// has no `zfs list` counterpart and is dropped.
func (dt DatasetType) ListTypes() string {
	return (dt &^ TypePool).String()
}

// Matches reports whether dt is included in mask.
func (dt DatasetType) Matches(mask DatasetType) bool {
	return dt != TypeInvalid && dt&mask == dt
}

// IsDataset returns true if the type is filesystem, volume or snapshot
func (dt DatasetType) IsDataset() bool {
	return dt&TypeDatasetMask != 0
}

// IsSnapshot returns true if type is snapshot
func (dt DatasetType) IsSnapshot() bool {
	return dt&TypeSnapshot != 0
}

// IsFilesystem returns true if type is filesystem
func (dt DatasetType) IsFilesystem() bool {
	return dt&TypeFilesystem != 0
}

// IsVolume returns true if type is volume
func (dt DatasetType) IsVolume() bool {
	return dt&TypeVolume != 0
}

// IsPool returns true if type is pool
func (dt DatasetType) IsPool() bool {
	return dt&TypePool != 0
}

// IsBookmark returns true if type is bookmark
func (dt DatasetType) IsBookmark() bool {
	return dt&TypeBookmark != 0
}
