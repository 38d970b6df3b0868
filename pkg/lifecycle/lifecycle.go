// Copyright 2025 Raamsri Kumar <raam@tinkershack.in>
// Copyright 2025 The StrataSTOR Authors and Contributors
// SPDX-License-Identifier: Apache-2.0

package lifecycle

import (
	"context"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"syscall"

	"github.com/stratastor/zfskit/pkg/errors"
)

var (
	mu            sync.Mutex
	shutdownHooks []func()
	reloadHooks   []func()
)

// RegisterShutdownHook adds hook to run on Shutdown. Hooks run in reverse
// registration order.
func RegisterShutdownHook(hook func()) {
	mu.Lock()
	defer mu.Unlock()
	shutdownHooks = append(shutdownHooks, hook)
}

// RegisterReloadHook adds hook to run on SIGHUP.
func RegisterReloadHook(hook func()) {
	mu.Lock()
	defer mu.Unlock()
	reloadHooks = append(reloadHooks, hook)
}

// HandleSignals blocks until ctx is done or a terminating signal arrives,
// on which cancel is called. The owner of ctx calls Shutdown once its work
// has wound down.
func HandleSignals(ctx context.Context, cancel context.CancelFunc) {
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGTERM, syscall.SIGINT, syscall.SIGHUP)
	defer signal.Stop(stop)

	for {
		select {
		case sig := <-stop:
			if sig == syscall.SIGHUP {
				Reload()
				continue
			}
			cancel()
			return
		case <-ctx.Done():
			return
		}
	}
}

// Shutdown runs and clears the shutdown hooks.
func Shutdown() {
	mu.Lock()
	hooks := shutdownHooks
	shutdownHooks = nil
	mu.Unlock()

	for i := len(hooks) - 1; i >= 0; i-- {
		hooks[i]()
	}
}

// Reload runs the reload hooks.
func Reload() {
	mu.Lock()
	hooks := append([]func(){}, reloadHooks...)
	mu.Unlock()

	for _, hook := range hooks {
		hook()
	}
}

// EnsureSingleInstance claims pidPath for the current process. A PID file
// naming a live process is an error; empty or stale files are replaced.
func EnsureSingleInstance(pidPath string) error {
	if pidPath == "" {
		return errors.New(errors.ServerStart, "no PID file path configured")
	}

	if content, err := os.ReadFile(pidPath); err == nil {
		if text := strings.TrimSpace(string(content)); text != "" {
			pid, err := strconv.Atoi(text)
			if err != nil {
				return errors.Wrap(err, errors.ServerStart).
					WithMetadata("pid_file", pidPath)
			}
			if pid != os.Getpid() && alive(pid) {
				return errors.New(errors.ServerStart, "another instance is already running").
					WithMetadata("pid_file", pidPath).
					WithMetadata("pid", text)
			}
		}
	} else if !os.IsNotExist(err) {
		return errors.Wrap(err, errors.ServerStart).WithMetadata("pid_file", pidPath)
	}

	if err := os.MkdirAll(filepath.Dir(pidPath), 0755); err != nil {
		return errors.Wrap(err, errors.ServerStart).WithMetadata("pid_file", pidPath)
	}
	if err := os.WriteFile(pidPath, []byte(strconv.Itoa(os.Getpid())), 0644); err != nil {
		return errors.Wrap(err, errors.ServerStart).WithMetadata("pid_file", pidPath)
	}
	return nil
}

// ReleaseInstance removes pidPath if it still names the current process.
func ReleaseInstance(pidPath string) {
	content, err := os.ReadFile(pidPath)
	if err != nil || strings.TrimSpace(string(content)) != strconv.Itoa(os.Getpid()) {
		return
	}
	os.Remove(pidPath)
}

func alive(pid int) bool {
	process, err := os.FindProcess(pid)
	if err != nil {
		return false
	}
	err = process.Signal(syscall.Signal(0))
	return err == nil || errors.Is(err, syscall.EPERM)
}
