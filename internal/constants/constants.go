// Copyright 2025 Raamsri Kumar <raam@tinkershack.in>
// Copyright 2025 The StrataSTOR Authors and Contributors
// SPDX-License-Identifier: Apache-2.0

package constants

// Build-time variables set via ldflags
var (
	Version   = "v0.0.1-dev" // Set via -X flag during build
	CommitSHA = "unknown"    // Set via -X flag during build
	BuildTime = "unknown"    // Set via -X flag during build
)

const (
	ZFSKitVersion = "v0.0.1"

	// config
	ConfigDirName  = ".zfskit"
	ConfigFileName = "zfskit.yml"
	ConfigEnv      = "ZFSKIT_CONFIG"
	PIDFileName    = "zfskit.pid"
	LogFileName    = "zfskit.log"
	EnvPrefix      = "ZFSKIT"

	// gateway backends
	BackendCLI    = "cli"
	BackendMemory = "memory"

	// routes
	APIVersion = "v1"
	APIBase    = "/api/" + APIVersion + "/zfskit"
	APIDataset = "/dataset"
	APIPools   = "/pools"
	APIMetrics = "/metrics"
	APIHealth  = "/health"
)
