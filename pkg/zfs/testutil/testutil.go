// Copyright 2025 Raamsri Kumar <raam@tinkershack.in>
// Copyright 2025 The StrataSTOR Authors and Contributors
// SPDX-License-Identifier: Apache-2.0

package testutil

import (
	"fmt"
	"os"
	"os/exec"
	"strings"
	"testing"
	"time"

	"github.com/stratastor/logger"
	"golang.org/x/exp/rand"
)

type LoopDevice struct {
	File   *os.File
	Device string
	Number int
}

type TestEnv struct {
	Devices []*LoopDevice
}

const (
	// TestPoolPrefix is used as prefix for test pool names
	TestPoolPrefix = "test"

	// TestPoolNameLength is the length of random suffix
	TestPoolNameLength = 6

	// Chars used for random name generation
	poolNameChars = "abcdefghijklmnopqrstuvwxyz0123456789"

	LoopDeviceSize = 64 // required minimum size in MB

	// IntegrationEnv enables tests that need real zfs/zpool binaries and root
	IntegrationEnv = "ZFSKIT_INTEGRATION"
)

var nameRand = rand.New(rand.NewSource(uint64(time.Now().UnixNano())))

// RequireIntegration skips t unless real-ZFS tests were asked for.
func RequireIntegration(t *testing.T) {
	t.Helper()
	if os.Getenv(IntegrationEnv) != "1" {
		t.Skipf("set %s=1 to run tests against real ZFS", IntegrationEnv)
	}
}

// NewLogger returns a debug logger tagged for tests.
func NewLogger(t *testing.T) logger.Logger {
	t.Helper()
	l, err := logger.NewTag(logger.Config{LogLevel: "debug"}, "test")
	if err != nil {
		t.Fatalf("failed to create logger: %v", err)
	}
	return l
}

// GeneratePoolName creates a unique pool name for testing
func GeneratePoolName() string {
	suffix := make([]byte, TestPoolNameLength)
	for i := range suffix {
		suffix[i] = poolNameChars[nameRand.Intn(len(poolNameChars))]
	}
	return fmt.Sprintf("%s-%s", TestPoolPrefix, string(suffix))
}

func CreateLoopDevice(t *testing.T, size int64) (*LoopDevice, error) {
	t.Helper()
	f, err := os.CreateTemp("", "zfskit-test-*.img")
	if err != nil {
		return nil, fmt.Errorf("failed to create temp file: %v", err)
	}

	if err := f.Truncate(size << 20); err != nil {
		f.Close()
		os.Remove(f.Name())
		return nil, fmt.Errorf("failed to create disk image: %v", err)
	}

	out, err := exec.Command("losetup", "-f", "--show", f.Name()).Output()
	if err != nil {
		f.Close()
		os.Remove(f.Name())
		return nil, fmt.Errorf("failed to setup loop device: %v", err)
	}

	device := strings.TrimSpace(string(out))
	number := -1
	fmt.Sscanf(device, "/dev/loop%d", &number)

	return &LoopDevice{
		File:   f,
		Device: device,
		Number: number,
	}, nil
}

func (l *LoopDevice) Cleanup() error {
	if l.Device != "" {
		if err := exec.Command("losetup", "-d", l.Device).Run(); err != nil {
			return fmt.Errorf("failed to detach loop device: %v", err)
		}
		l.Device = ""
	}
	if l.File != nil {
		name := l.File.Name()
		l.File.Close()
		l.File = nil
		if err := os.Remove(name); err != nil {
			return fmt.Errorf("failed to remove file: %v", err)
		}
	}
	return nil
}

// NewTestEnv creates diskCount loop devices. Cleanup is registered with t.
func NewTestEnv(t *testing.T, diskCount int) *TestEnv {
	t.Helper()
	env := &TestEnv{
		Devices: make([]*LoopDevice, 0, diskCount),
	}
	t.Cleanup(env.Cleanup)

	for i := 0; i < diskCount; i++ {
		device, err := CreateLoopDevice(t, LoopDeviceSize)
		if err != nil {
			t.Fatalf("failed to create loop device %d: %v", i, err)
		}
		env.Devices = append(env.Devices, device)
	}

	return env
}

func (e *TestEnv) GetLoopDevices() []string {
	devices := make([]string, len(e.Devices))
	for i, d := range e.Devices {
		devices[i] = d.Device
	}
	return devices
}

func (e *TestEnv) Cleanup() {
	for i := len(e.Devices) - 1; i >= 0; i-- {
		if err := e.Devices[i].Cleanup(); err != nil {
			fmt.Printf("loop device cleanup: %v\n", err)
		}
	}
	e.Devices = nil
}
