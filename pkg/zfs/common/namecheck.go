// Copyright 2025 Raamsri Kumar <raam@tinkershack.in>
// Copyright 2025 The StrataSTOR Authors and Contributors
// SPDX-License-Identifier: Apache-2.0

package common

import (
	"strings"

	"github.com/stratastor/zfskit/pkg/errors"
)

// Name rules follow zfs_namecheck.c from OpenZFS.

const (
	MaxDatasetNameLen = 256 // ZFS_MAX_DATASET_NAME_LEN
	MaxDatasetNesting = 50  // zfs_max_dataset_nesting default value
)

// Name is a parsed `pool[/fs[/...]][@snap]` name.
type Name struct {
	Base     string // pool or pool/fs/...
	Snapshot string // part after '@', if any
	Bookmark string // part after '#', if any
}

func isValidChar(c rune) bool {
	return (c >= 'a' && c <= 'z') ||
		(c >= 'A' && c <= 'Z') ||
		(c >= '0' && c <= '9') ||
		c == '-' || c == '_' || c == '.' || c == ':' || c == ' '
}

func nameError(code errors.ErrorCode, path, what string) error {
	return errors.New(code, what).
		WithAction("validate '" + path + "'").
		WithMetadata("name", path)
}

// ComponentNameCheck validates a single component, such as the <name> of
// CreateSnapshot.
func ComponentNameCheck(name string) error {
	if len(name) == 0 {
		return nameError(errors.ZFSNameEmptyComponent, name, "empty component")
	}
	if len(name) >= MaxDatasetNameLen {
		return nameError(errors.ZFSNameTooLong, name, "name is too long")
	}
	for _, c := range name {
		if !isValidChar(c) {
			return nameError(errors.ZFSNameInvalidChar, name, "invalid character '"+string(c)+"' in name")
		}
	}
	if name == "." {
		return nameError(errors.ZFSNameSelfRef, name, "self reference")
	}
	if name == ".." {
		return nameError(errors.ZFSNameParentRef, name, "parent reference")
	}
	return nil
}

// EntityNameCheck validates a full filesystem, volume, snapshot or bookmark
// name.
func EntityNameCheck(path string) error {
	if len(path) == 0 {
		return nameError(errors.ZFSNameEmptyComponent, path, "missing dataset name")
	}
	if len(path) >= MaxDatasetNameLen {
		return nameError(errors.ZFSNameTooLong, path, "name is too long")
	}
	if path[0] == '/' {
		return nameError(errors.ZFSNameLeadingSlash, path, "leading slash in name")
	}
	if path[len(path)-1] == '/' {
		return nameError(errors.ZFSNameTrailingSlash, path, "trailing slash in name")
	}

	foundDelim := false
	start := 0
	for start < len(path) {
		end := start
		for end < len(path) && path[end] != '/' && path[end] != '@' && path[end] != '#' {
			end++
		}

		if start == end {
			return nameError(errors.ZFSNameEmptyComponent, path, "empty component in name")
		}

		component := path[start:end]
		for _, c := range component {
			if !isValidChar(c) && c != '%' {
				return nameError(errors.ZFSNameInvalidChar, path, "invalid character '"+string(c)+"' in name")
			}
		}
		if component == "." {
			return nameError(errors.ZFSNameSelfRef, path, "self reference in name")
		}
		if component == ".." {
			return nameError(errors.ZFSNameParentRef, path, "parent reference in name")
		}

		if end == len(path) {
			break
		}

		switch path[end] {
		case '@', '#':
			if foundDelim {
				return nameError(errors.ZFSNameMultipleDelimiters, path, "multiple '@' and/or '#' delimiters in name")
			}
			foundDelim = true
			if end+1 >= len(path) {
				return nameError(errors.ZFSNameEmptyComponent, path, "empty component in name")
			}
		case '/':
			if foundDelim {
				return nameError(errors.ZFSNameTrailingSlash, path, "slash after delimiter in name")
			}
		}

		start = end + 1
	}

	if Depth(path) >= MaxDatasetNesting {
		return nameError(errors.ZFSNameTooLong, path, "dataset nesting too deep")
	}
	return nil
}

// ValidateName checks path against the name rules of typ. TypeAny and other
// masks accept any shape their members would.
func ValidateName(path string, typ DatasetType) error {
	if err := EntityNameCheck(path); err != nil {
		return err
	}

	hasAt := strings.Contains(path, "@")
	hasPound := strings.Contains(path, "#")

	if hasPound && !typ.IsBookmark() {
		return nameError(errors.ZFSNameNoPound, path, "bookmark delimiter '#' is not expected here")
	}
	if hasAt && !typ.IsSnapshot() {
		return nameError(errors.ZFSNameNoAtSign, path, "snapshot delimiter '@' is not expected here")
	}
	if typ == TypeSnapshot && !hasAt {
		return nameError(errors.ZFSNameNoAtSign, path, "missing '@' delimiter in snapshot name")
	}
	if typ == TypeBookmark && !hasPound {
		return nameError(errors.ZFSNameNoPound, path, "missing '#' delimiter in bookmark name")
	}
	if typ == TypePool {
		return PoolNameCheck(path)
	}
	if !hasAt && !hasPound && !strings.Contains(path, "/") && typ&TypePool == 0 {
		if err := PoolNameCheck(path); err != nil {
			return err
		}
	}
	return nil
}

// PoolNameCheck validates pool names
func PoolNameCheck(name string) error {
	maxLen := MaxDatasetNameLen - 2 - (len("$ORIGIN") * 2)
	if len(name) >= maxLen {
		return nameError(errors.ZFSNameTooLong, name, "name is too long")
	}

	if len(name) == 0 || !((name[0] >= 'a' && name[0] <= 'z') || (name[0] >= 'A' && name[0] <= 'Z')) {
		return nameError(errors.ZFSNameNoLetter, name, "name must begin with a letter")
	}

	for _, c := range name {
		if !isValidChar(c) {
			return nameError(errors.ZFSNameInvalidChar, name, "invalid character '"+string(c)+"' in name")
		}
	}

	switch {
	case name == "mirror", name == "raidz", name == "draid", name == "spare", name == "log":
		return nameError(errors.ZFSNameReserved, name, "name is reserved")
	case strings.HasPrefix(name, "mirror"), strings.HasPrefix(name, "raidz"), strings.HasPrefix(name, "draid"):
		return nameError(errors.ZFSNameReserved, name, "name is reserved")
	}
	return nil
}

// MountpointCheck validates an absolute mountpoint path
func MountpointCheck(path string) error {
	if path == "" || path[0] != '/' {
		return nameError(errors.ZFSNameLeadingSlash, path, "mountpoint must start with '/'")
	}
	for _, comp := range strings.Split(path[1:], "/") {
		if len(comp) >= MaxDatasetNameLen {
			return nameError(errors.ZFSNameTooLong, path, "component name too long")
		}
	}
	return nil
}

// Depth returns the nesting depth of a dataset path
func Depth(path string) int {
	depth := 0
	for i := 0; i < len(path); i++ {
		if path[i] == '@' || path[i] == '#' {
			break
		}
		if path[i] == '/' {
			depth++
		}
	}
	return depth
}

// ParseName splits a name into its base and snapshot/bookmark parts.
func ParseName(name string) Name {
	if i := strings.IndexAny(name, "@#"); i >= 0 {
		if name[i] == '@' {
			return Name{Base: name[:i], Snapshot: name[i+1:]}
		}
		return Name{Base: name[:i], Bookmark: name[i+1:]}
	}
	return Name{Base: name}
}

// String returns the full name
func (n Name) String() string {
	switch {
	case n.Snapshot != "":
		return n.Base + "@" + n.Snapshot
	case n.Bookmark != "":
		return n.Base + "#" + n.Bookmark
	default:
		return n.Base
	}
}

// Pool returns the pool component of n.
func (n Name) Pool() string {
	if i := strings.IndexByte(n.Base, '/'); i >= 0 {
		return n.Base[:i]
	}
	return n.Base
}

// Parent returns the name of the dataset that contains n. For a snapshot
// that is the snapshotted dataset; for a pool root it is "".
func (n Name) Parent() string {
	if n.Snapshot != "" || n.Bookmark != "" {
		return n.Base
	}
	if i := strings.LastIndexByte(n.Base, '/'); i >= 0 {
		return n.Base[:i]
	}
	return ""
}

// Leaf returns the last component: the part after the last '/' and before
// '@', or the snapshot name for a snapshot.
func (n Name) Leaf() string {
	if n.Snapshot != "" {
		return n.Snapshot
	}
	if i := strings.LastIndexByte(n.Base, '/'); i >= 0 {
		return n.Base[i+1:]
	}
	return n.Base
}

// IsDescendantOf reports whether name lies strictly below ancestor in the
// filesystem hierarchy, including snapshots of ancestor or its children.
func IsDescendantOf(name, ancestor string) bool {
	if name == ancestor {
		return false
	}
	return strings.HasPrefix(name, ancestor+"/") || strings.HasPrefix(name, ancestor+"@")
}
