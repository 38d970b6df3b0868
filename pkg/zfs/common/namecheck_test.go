// Copyright 2025 Raamsri Kumar <raam@tinkershack.in>
// Copyright 2025 The StrataSTOR Authors and Contributors
// SPDX-License-Identifier: Apache-2.0

package common

import (
	"strings"
	"testing"

	"github.com/stratastor/zfskit/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDatasetTypeValues(t *testing.T) {
	// libzfs zfs_type_t
	assert.Equal(t, DatasetType(1), TypeFilesystem)
	assert.Equal(t, DatasetType(2), TypeSnapshot)
	assert.Equal(t, DatasetType(4), TypeVolume)
	assert.Equal(t, DatasetType(8), TypePool)
	assert.Equal(t, DatasetType(16), TypeBookmark)

	assert.True(t, TypeFilesystem.Matches(TypeAny))
	assert.True(t, TypePool.Matches(TypeAny))
	assert.False(t, TypeSnapshot.Matches(TypeFilesystem|TypeVolume))
	assert.False(t, TypeInvalid.Matches(TypeAny))

	assert.Equal(t, "filesystem,snapshot,volume", TypeAny.ListTypes())
	assert.Equal(t, TypeVolume, ParseDatasetType("volume"))
	assert.Equal(t, TypeInvalid, ParseDatasetType("widget"))
}

func TestEntityNameCheck(t *testing.T) {
	tests := []struct {
		name string
		path string
		code errors.ErrorCode
	}{
		{"valid filesystem", "tank/a/b", 0},
		{"valid snapshot", "tank/a@snap-1", 0},
		{"valid bookmark", "tank/a#mark", 0},
		{"empty", "", errors.ZFSNameEmptyComponent},
		{"leading slash", "/tank", errors.ZFSNameLeadingSlash},
		{"trailing slash", "tank/", errors.ZFSNameTrailingSlash},
		{"double slash", "tank//a", errors.ZFSNameEmptyComponent},
		{"bad char", "tank/a!b", errors.ZFSNameInvalidChar},
		{"self ref", "tank/./a", errors.ZFSNameSelfRef},
		{"parent ref", "tank/../a", errors.ZFSNameParentRef},
		{"multiple delimiters", "tank@a@b", errors.ZFSNameMultipleDelimiters},
		{"empty snapshot", "tank@", errors.ZFSNameEmptyComponent},
		{"slash after at", "tank@a/b", errors.ZFSNameTrailingSlash},
		{"too long", "tank/" + strings.Repeat("a", MaxDatasetNameLen), errors.ZFSNameTooLong},
		{"too deep", "tank" + strings.Repeat("/a", MaxDatasetNesting), errors.ZFSNameTooLong},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := EntityNameCheck(tt.path)
			if tt.code == 0 {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Equal(t, tt.code, errors.GetCode(err))
			assert.True(t, errors.IsKind(err, errors.KindInvalidName))
		})
	}
}

func TestValidateName(t *testing.T) {
	assert.NoError(t, ValidateName("tank/a", TypeFilesystem))
	assert.NoError(t, ValidateName("tank", TypeAny))
	assert.NoError(t, ValidateName("tank@s", TypeSnapshot))
	assert.NoError(t, ValidateName("tank/a@s", TypeAny))

	assert.Error(t, ValidateName("tank/a", TypeSnapshot))
	assert.Error(t, ValidateName("tank@s", TypeFilesystem))
	assert.Error(t, ValidateName("tank#m", TypeAny))
	assert.Error(t, ValidateName("tank/a", TypePool))
	assert.Error(t, ValidateName("1tank", TypeFilesystem))
}

func TestPoolNameCheck(t *testing.T) {
	assert.NoError(t, PoolNameCheck("tank"))
	assert.Equal(t, errors.ErrorCode(errors.ZFSNameNoLetter), errors.GetCode(PoolNameCheck("0tank")))
	assert.Equal(t, errors.ErrorCode(errors.ZFSNameReserved), errors.GetCode(PoolNameCheck("mirror")))
	assert.Equal(t, errors.ErrorCode(errors.ZFSNameReserved), errors.GetCode(PoolNameCheck("raidz1")))
	assert.Equal(t, errors.ErrorCode(errors.ZFSNameInvalidChar), errors.GetCode(PoolNameCheck("ta/nk")))
}

func TestParseName(t *testing.T) {
	n := ParseName("tank/a/b@snap")
	assert.Equal(t, "tank/a/b", n.Base)
	assert.Equal(t, "snap", n.Snapshot)
	assert.Equal(t, "tank", n.Pool())
	assert.Equal(t, "tank/a/b", n.Parent())
	assert.Equal(t, "snap", n.Leaf())
	assert.Equal(t, "tank/a/b@snap", n.String())

	n = ParseName("tank/a/b")
	assert.Equal(t, "tank/a", n.Parent())
	assert.Equal(t, "b", n.Leaf())

	n = ParseName("tank")
	assert.Equal(t, "", n.Parent())
	assert.Equal(t, "tank", n.Leaf())

	assert.True(t, IsDescendantOf("tank/a/b", "tank/a"))
	assert.True(t, IsDescendantOf("tank/a@s", "tank/a"))
	assert.False(t, IsDescendantOf("tank/ab", "tank/a"))
	assert.False(t, IsDescendantOf("tank/a", "tank/a"))
}
