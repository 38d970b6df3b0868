/*
 * Copyright 2024-2025 Raamsri Kumar <raam@tinkershack.in>
 * Copyright 2024-2025 The StrataSTOR Authors and Contributors
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     https://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

package command

import (
	"context"
	"os/exec"
	"testing"

	"github.com/stratastor/logger"
	"github.com/stratastor/zfskit/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestExecutor(t *testing.T, cfg Config) *CommandExecutor {
	t.Helper()
	l, err := logger.NewTag(logger.Config{LogLevel: "debug"}, "test")
	require.NoError(t, err)
	return NewCommandExecutor(cfg, l)
}

func TestCommandSecurity(t *testing.T) {
	executor := newTestExecutor(t, Config{UseSudo: true})

	tests := []struct {
		name     string
		cmd      string
		args     []string
		wantCode errors.ErrorCode
	}{
		{
			name:     "command_injection_semicolon",
			cmd:      "zfs; rm -rf /",
			wantCode: errors.CommandNotFound,
		},
		{
			name:     "unknown_subcommand",
			cmd:      "zfs send",
			args:     []string{"tank@a"},
			wantCode: errors.CommandNotFound,
		},
		{
			name:     "nul_byte",
			cmd:      "zfs create",
			args:     []string{"tank/a\x00b"},
			wantCode: errors.CommandInvalidInput,
		},
		{
			name:     "sudo_injection",
			cmd:      "sudo",
			args:     []string{"-i", "bash"},
			wantCode: errors.CommandNotFound,
		},
		{
			name:     "too_many_args",
			cmd:      "zfs list",
			args:     make([]string, 100),
			wantCode: errors.CommandInvalidInput,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := executor.Execute(context.Background(), CommandOptions{}, tt.cmd, tt.args...)
			require.Error(t, err)

			var ke *errors.KitError
			require.ErrorAs(t, err, &ke)
			assert.Equal(t, tt.wantCode, ke.Code)
			assert.Equal(t, errors.DomainCommand, ke.Domain)
		})
	}
}

func TestBuildCommandArgs(t *testing.T) {
	executor := newTestExecutor(t, Config{UseSudo: true, ZFSBin: "/sbin/zfs", ZpoolBin: "/sbin/zpool"})

	got := executor.buildCommandArgs("zfs list",
		CommandOptions{Flags: FlagNoHeaders | FlagParsable},
		"-o", "name", "tank")
	assert.Equal(t, []string{"/sbin/zfs", "list", "-p", "-H", "-o", "name", "tank"}, got)

	got = executor.buildCommandArgs("zfs destroy", CommandOptions{Flags: FlagRecursive}, "tank/a")
	assert.Equal(t, []string{"sudo", "/sbin/zfs", "destroy", "-r", "tank/a"}, got)

	got = executor.buildCommandArgs("zpool list", CommandOptions{Flags: FlagJSON}, "tank")
	assert.Equal(t, []string{"/sbin/zpool", "list", "-j", "tank"}, got)
}

func TestExecuteRunsBinary(t *testing.T) {
	echo, err := exec.LookPath("echo")
	if err != nil {
		t.Skip("echo not available")
	}
	executor := newTestExecutor(t, Config{ZFSBin: echo})

	out, err := executor.Execute(context.Background(),
		CommandOptions{Flags: FlagNoHeaders}, "zfs list", "tank")
	require.NoError(t, err)
	assert.Equal(t, "list -H tank\n", string(out))
}

func TestExecutePassesValuesVerbatim(t *testing.T) {
	echo, err := exec.LookPath("echo")
	if err != nil {
		t.Skip("echo not available")
	}
	executor := newTestExecutor(t, Config{ZFSBin: echo})

	for _, value := range []string{"a;b", "x>y", "{json}", "$HOME", "1.0..2", "`id`"} {
		out, err := executor.Execute(context.Background(), CommandOptions{},
			"zfs set", "org.x:note="+value, "tank/a")
		require.NoError(t, err, value)
		assert.Equal(t, "set org.x:note="+value+" tank/a\n", string(out))
	}
}

func TestExecuteFailure(t *testing.T) {
	falseBin, err := exec.LookPath("false")
	if err != nil {
		t.Skip("false not available")
	}
	executor := newTestExecutor(t, Config{ZpoolBin: falseBin})

	_, err = executor.Execute(context.Background(), CommandOptions{}, "zpool list")
	require.Error(t, err)

	var ke *errors.KitError
	require.ErrorAs(t, err, &ke)
	assert.Equal(t, "1", ke.Metadata["exit_code"])
	assert.Equal(t, errors.KindIOError, ke.Kind)
}
