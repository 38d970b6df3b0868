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
	"bytes"
	"context"
	stderrors "errors"
	"fmt"
	"os/exec"
	"strings"
	"sync"
	"time"

	"github.com/kballard/go-shellquote"
	"github.com/stratastor/logger"
	"github.com/stratastor/zfskit/internal/metrics"
	"github.com/stratastor/zfskit/pkg/errors"
)

// Runner runs a zfs/zpool subcommand and returns its stdout.
type Runner interface {
	Execute(ctx context.Context, opts CommandOptions, cmd string, args ...string) ([]byte, error)
}

// Config selects the binaries and privileges used by CommandExecutor.
type Config struct {
	ZFSBin   string
	ZpoolBin string
	UseSudo  bool
	Timeout  time.Duration
}

// CommandExecutor provides safe execution of ZFS commands
type CommandExecutor struct {
	mu     sync.RWMutex
	cfg    Config
	logger logger.Logger
}

// CommandFlags represents supported command flags
type CommandFlags uint8

const (
	FlagJSON      CommandFlags = 1 << iota // -j for JSON output
	FlagParsable                           // -p for parsable output
	FlagRecursive                          // -r for recursive operations
	FlagForce                              // -f to force operation
	FlagNoHeaders                          // -H to disable output headers
)

// CommandOptions configures command execution
type CommandOptions struct {
	Flags   CommandFlags  // Command flags to apply
	Timeout time.Duration // Command-specific timeout
}

func NewCommandExecutor(cfg Config, l logger.Logger) *CommandExecutor {
	if cfg.ZFSBin == "" {
		cfg.ZFSBin = BinZFS
	}
	if cfg.ZpoolBin == "" {
		cfg.ZpoolBin = BinZpool
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = DefaultTimeout
	}
	return &CommandExecutor{
		cfg:    cfg,
		logger: l,
	}
}

func (e *CommandExecutor) Execute(ctx context.Context, opts CommandOptions, cmd string, args ...string) ([]byte, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()

	if err := e.validateCommand(cmd, args); err != nil {
		return nil, err
	}

	if opts.Timeout == 0 {
		opts.Timeout = e.cfg.Timeout
	}

	// Apply timeout to context
	ctx, cancel := context.WithTimeout(ctx, opts.Timeout)
	defer cancel()

	// Build command with appropriate prefixes and flags
	cmdArgs := e.buildCommandArgs(cmd, opts, args...)
	cmdString := shellquote.Join(cmdArgs...)
	e.logger.Debug("Executing command", "cmd", cmdString)

	execCmd := exec.CommandContext(ctx, cmdArgs[0], cmdArgs[1:]...)
	var stdout, stderr bytes.Buffer
	execCmd.Stdout = &stdout
	execCmd.Stderr = &stderr

	start := time.Now()
	err := execCmd.Run()
	defer func() { metrics.ObserveCommand(cmd, time.Since(start), err) }()

	if err == nil {
		return stdout.Bytes(), nil
	}

	if ctxErr := ctx.Err(); ctxErr != nil {
		if stderrors.Is(ctxErr, context.DeadlineExceeded) {
			err = errors.New(errors.CommandTimeout, "command execution timed out").
				WithMetadata("command", cmdString)
		} else {
			err = errors.Wrap(ctxErr, errors.CommandExecution).
				WithMetadata("command", cmdString)
		}
		e.logger.Error("Command interrupted", "cmd", cmdString, "err", err)
		return nil, err
	}

	var exitErr *exec.ExitError
	if stderrors.As(err, &exitErr) {
		e.logger.Error("Command execution failed with exit code",
			"cmd", cmdString,
			"exit_code", exitErr.ExitCode(),
			"stderr", stderr.String())
		err = errors.NewCommandError(cmdString, exitErr.ExitCode(), stderr.String())
		return stdout.Bytes(), err
	}

	e.logger.Error("Command execution failed", "cmd", cmdString, "err", err)
	err = errors.NewCommandError(cmdString, -1,
		fmt.Sprintf("failed to start command: %v", err))
	return nil, err
}

func (e *CommandExecutor) buildCommandArgs(cmd string, opts CommandOptions, args ...string) []string {
	var cmdArgs []string

	// Add sudo if required
	if e.cfg.UseSudo && SudoRequiredCommands[cmd] {
		cmdArgs = append(cmdArgs, "sudo")
	}

	// Add base command
	switch {
	case strings.HasPrefix(cmd, "zfs"):
		cmdArgs = append(cmdArgs, e.cfg.ZFSBin)
	case strings.HasPrefix(cmd, "zpool"):
		cmdArgs = append(cmdArgs, e.cfg.ZpoolBin)
	}

	// Add subcommand
	parts := strings.SplitN(cmd, " ", 2)
	if len(parts) > 1 {
		cmdArgs = append(cmdArgs, parts[1])
	}

	// Add command flags based on options
	if opts.Flags&FlagJSON != 0 && JSONSupportedCommands[cmd] {
		cmdArgs = append(cmdArgs, "-j")
	}
	if opts.Flags&FlagParsable != 0 {
		cmdArgs = append(cmdArgs, "-p")
	}
	if opts.Flags&FlagRecursive != 0 {
		cmdArgs = append(cmdArgs, "-r")
	}
	if opts.Flags&FlagForce != 0 {
		cmdArgs = append(cmdArgs, "-f")
	}
	if opts.Flags&FlagNoHeaders != 0 {
		cmdArgs = append(cmdArgs, "-H")
	}

	// Add command arguments
	cmdArgs = append(cmdArgs, args...)

	return cmdArgs
}

// validateCommand checks the subcommand against the allow-list and bounds
// the arguments.
func (e *CommandExecutor) validateCommand(cmd string, args []string) error {
	// Only allow known zfs/zpool subcommands
	if !AllowedCommands[cmd] {
		return errors.New(errors.CommandNotFound,
			"only known zfs and zpool subcommands are allowed").
			WithMetadata("command", cmd)
	}

	if len(args) > maxCommandArgs {
		return errors.New(errors.CommandInvalidInput, "too many arguments")
	}

	// Arguments reach the binary through argv, never a shell, so property
	// values may carry any printable text. NUL cannot cross argv.
	for _, arg := range args {
		if strings.ContainsRune(arg, 0) {
			return errors.New(errors.CommandInvalidInput,
				"argument contains a NUL byte").
				WithMetadata("arg", shellquote.Join(arg))
		}
	}

	return nil
}
