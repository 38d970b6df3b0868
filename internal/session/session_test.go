// Copyright 2025 Raamsri Kumar <raam@tinkershack.in>
// Copyright 2025 The StrataSTOR Authors and Contributors
// SPDX-License-Identifier: Apache-2.0

package session

import (
	"context"
	"testing"

	"github.com/stratastor/zfskit/config"
	"github.com/stratastor/zfskit/pkg/errors"
	"github.com/stratastor/zfskit/pkg/zfs/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewGateway(t *testing.T) {
	tests := []struct {
		backend string
		want    string
		wantErr bool
	}{
		{"cli", "cli", false},
		{"", "cli", false},
		{"memory", "memory", false},
		{"ioctl", "", true},
	}
	for _, tt := range tests {
		t.Run(tt.backend, func(t *testing.T) {
			cfg := &config.Config{}
			cfg.ZFS.Backend = tt.backend
			gw, err := NewGateway(cfg, testutil.NewLogger(t))
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, gw.Backend())
		})
	}
}

func TestOpenMemory(t *testing.T) {
	cfg := &config.Config{}
	cfg.ZFS.Backend = "memory"
	cfg.Logger.LogLevel = "debug"

	reg, err := Open(context.Background(), cfg)
	require.NoError(t, err)
	defer reg.Close()
	assert.Equal(t, "memory", reg.Backend())
}

func TestCheckOneShot(t *testing.T) {
	cfg := &config.Config{}
	cfg.ZFS.Backend = "memory"
	err := checkOneShot(cfg)
	require.Error(t, err)
	assert.Equal(t, errors.ConfigInvalid, errors.GetCode(err))

	cfg.ZFS.Backend = "cli"
	assert.NoError(t, checkOneShot(cfg))
}
