// Copyright 2025 Raamsri Kumar <raam@tinkershack.in>
// Copyright 2025 The StrataSTOR Authors and Contributors
// SPDX-License-Identifier: Apache-2.0

// pkg/zfs/pool/types.go

package pool

// Property is a pool property as `zpool get -H -p` reports it.
type Property struct {
	Name   string `json:"property"`
	Value  string `json:"value"`
	Source string `json:"source"`
}

// CreateConfig defines parameters for pool creation
type CreateConfig struct {
	Name         string            `json:"name"`
	VDevSpec     []VDevSpec        `json:"vdevs"`
	Properties   map[string]string `json:"properties,omitempty"`   // -o pool properties
	FSProperties map[string]string `json:"fsProperties,omitempty"` // -O root dataset properties
	Features     map[string]bool   `json:"features,omitempty"`
	Force        bool              `json:"force,omitempty"`
	MountPoint   string            `json:"mountpoint,omitempty"`
}

// VDevSpec defines virtual device configuration for pool creation
type VDevSpec struct {
	Type     string     `json:"type,omitempty"` // mirror, raidz, etc.
	Devices  []string   `json:"devices"`        // Device paths
	Children []VDevSpec `json:"children,omitempty"`
}
