// Copyright 2025 Raamsri Kumar <raam@tinkershack.in>
// Copyright 2025 The StrataSTOR Authors and Contributors
// SPDX-License-Identifier: Apache-2.0

package property

import (
	"strings"
	"testing"

	"github.com/stratastor/zfskit/pkg/errors"
	"github.com/stratastor/zfskit/pkg/zfs/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodeSystemProperty(t *testing.T) {
	tests := []struct {
		name     string
		raw      Raw
		prop     Prop
		typ      common.DatasetType
		wantNum  uint64
		wantText string
		wantKind errors.Kind
	}{
		{
			name:     "number",
			raw:      Raw{Value: "1073741824", Source: SourceLocal},
			prop:     PropQuota,
			typ:      common.TypeFilesystem,
			wantNum:  1 << 30,
			wantText: "1073741824",
		},
		{
			name:     "number with suffix",
			raw:      Raw{Value: "1G", Source: SourceLocal},
			prop:     PropQuota,
			typ:      common.TypeFilesystem,
			wantNum:  1 << 30,
			wantText: "1G",
		},
		{
			name:     "ratio",
			raw:      Raw{Value: "1.52x", Source: SourceNone},
			prop:     PropCompressRatio,
			typ:      common.TypeFilesystem,
			wantNum:  152,
			wantText: "1.52x",
		},
		{
			name:     "index",
			raw:      Raw{Value: "lz4", Source: SourceInherited, SourceData: "tank"},
			prop:     PropCompression,
			typ:      common.TypeVolume,
			wantText: "lz4",
		},
		{
			name:     "string",
			raw:      Raw{Value: "/mnt/tank/a", Source: SourceDefault},
			prop:     PropMountpoint,
			typ:      common.TypeFilesystem,
			wantText: "/mnt/tank/a",
		},
		{
			name:     "not applicable",
			raw:      Raw{Value: "1G"},
			prop:     PropVolSize,
			typ:      common.TypeFilesystem,
			wantKind: errors.KindPropertyUnsupported,
		},
		{
			name:     "unknown index value",
			raw:      Raw{Value: "brotli"},
			prop:     PropCompression,
			typ:      common.TypeFilesystem,
			wantKind: errors.KindPropertyUnsupported,
		},
		{
			name:     "bad number",
			raw:      Raw{Value: "lots"},
			prop:     PropUsed,
			typ:      common.TypeSnapshot,
			wantKind: errors.KindPropertyUnsupported,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v, err := DecodeSystemProperty(tt.raw, tt.prop, tt.typ)
			if tt.wantKind != errors.KindUnknown {
				require.Error(t, err)
				assert.True(t, errors.IsKind(err, tt.wantKind), "got %v", err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantNum, v.Number)
			assert.Equal(t, tt.wantText, v.Text)
			assert.Equal(t, tt.raw.Source, v.Source)
			assert.Equal(t, tt.raw.SourceData, v.Inherited)
			assert.Equal(t, tt.prop.Name(), v.Name)
		})
	}
}

func TestDecodeUserProperty(t *testing.T) {
	props := UserProperties{
		"com.example:owner": {Value: "ops", Source: SourceLocal},
	}

	v, ok := DecodeUserProperty(props, "com.example:owner")
	assert.True(t, ok)
	assert.Equal(t, "ops", v)

	v, ok = DecodeUserProperty(props, "com.example:missing")
	assert.False(t, ok)
	assert.Empty(t, v)

	_, ok = DecodeUserProperty(nil, "com.example:owner")
	assert.False(t, ok)
}

func TestEncodeUserProperty(t *testing.T) {
	w, err := EncodeUserProperty("com.example:owner", "ops team")
	require.NoError(t, err)
	assert.Equal(t, "com.example:owner=ops team", w.Arg())

	_, err = EncodeUserProperty("owner", "x")
	assert.True(t, errors.IsKind(err, errors.KindPropertyUnsupported))

	_, err = EncodeUserProperty("Com.example:owner", "x")
	assert.True(t, errors.IsKind(err, errors.KindInvalidValue))

	_, err = EncodeUserProperty("a:"+strings.Repeat("b", MaxUserPropNameLen), "x")
	assert.True(t, errors.IsKind(err, errors.KindInvalidValue))

	_, err = EncodeUserProperty("a:b", strings.Repeat("v", MaxUserPropValueLen+1))
	assert.True(t, errors.IsKind(err, errors.KindInvalidValue))

	_, err = EncodeUserProperty("a:b", strings.Repeat("v", MaxUserPropValueLen))
	assert.NoError(t, err)
}

func TestEncodeProperty(t *testing.T) {
	w, err := EncodeProperty("compress", "lz4", common.TypeFilesystem)
	require.NoError(t, err)
	assert.Equal(t, Wire{Key: "compression", Value: "lz4"}, w)

	_, err = EncodeProperty("compression", "brotli", common.TypeFilesystem)
	assert.True(t, errors.IsKind(err, errors.KindInvalidValue))

	_, err = EncodeProperty("used", "1", common.TypeFilesystem)
	assert.True(t, errors.IsKind(err, errors.KindPropertyUnsupported))

	_, err = EncodeProperty("volsize", "1G", common.TypeFilesystem)
	assert.True(t, errors.IsKind(err, errors.KindPropertyUnsupported))

	_, err = EncodeProperty("quota", "ten", common.TypeFilesystem)
	assert.True(t, errors.IsKind(err, errors.KindInvalidValue))

	_, err = EncodeProperty("mountpoint", "relative/path", common.TypeFilesystem)
	assert.True(t, errors.IsKind(err, errors.KindInvalidValue))

	_, err = EncodeProperty("frobnicate", "1", common.TypeFilesystem)
	assert.True(t, errors.IsKind(err, errors.KindPropertyUnsupported))

	wires, err := EncodeProperties(map[string]string{
		"volsize":     "10M",
		"com.x:tag":   "a",
		"compression": "off",
	}, common.TypeVolume)
	require.NoError(t, err)
	require.Len(t, wires, 3)
	assert.Equal(t, "com.x:tag", wires[0].Key)
	assert.Equal(t, "compression", wires[1].Key)
	assert.Equal(t, "volsize", wires[2].Key)
}

func TestParseSize(t *testing.T) {
	tests := map[string]uint64{
		"0":     0,
		"-":     0,
		"none":  0,
		"512":   512,
		"1K":    1024,
		"10M":   10 << 20,
		"1.5G":  3 << 29,
		"2T":    2 << 40,
		"4KB":   4096,
		"1g":    1 << 30,
	}
	for in, want := range tests {
		got, err := ParseSize(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}

	_, err := ParseSize("x12")
	assert.Error(t, err)

	assert.Equal(t, "1K", FormatSize(1024))
	assert.Equal(t, "512", FormatSize(512))
}

func TestParseSource(t *testing.T) {
	s, from := ParseSource("inherited from tank/a")
	assert.Equal(t, SourceInherited, s)
	assert.Equal(t, "tank/a", from)
	assert.Equal(t, "inherited from tank/a", FormatSource(s, from))

	s, _ = ParseSource("local")
	assert.Equal(t, SourceLocal, s)
	s, _ = ParseSource("-")
	assert.Equal(t, SourceNone, s)
	assert.Equal(t, "default", SourceDefault.String())
}

func TestPropertyTable(t *testing.T) {
	p, ok := ParseProp("createtxg")
	require.True(t, ok)
	assert.Equal(t, PropCreateTXG, p)
	assert.True(t, p.AppliesTo(common.TypeSnapshot))
	assert.True(t, PropClones.AppliesTo(common.TypeSnapshot))
	assert.False(t, PropClones.AppliesTo(common.TypeFilesystem))

	_, ok = ParseProp("nope")
	assert.False(t, ok)

	names := Names()
	assert.Contains(t, names, "compression")
	assert.IsIncreasing(t, names)
}
