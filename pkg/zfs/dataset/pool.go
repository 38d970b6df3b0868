// Copyright 2025 Raamsri Kumar <raam@tinkershack.in>
// Copyright 2025 The StrataSTOR Authors and Contributors
// SPDX-License-Identifier: Apache-2.0

package dataset

import (
	"context"

	"github.com/stratastor/zfskit/pkg/zfs/pool"
	"github.com/stratastor/zfskit/pkg/zfs/property"
)

// Pool is the root of a dataset namespace. Dataset operations act on the
// pool's root filesystem.
type Pool struct {
	FileSystem
}

// Health returns the pool health, e.g. "ONLINE" or "DEGRADED".
func (p *Pool) Health(ctx context.Context) (string, error) {
	prop, err := p.Property(ctx, "health")
	if err != nil {
		return "", err
	}
	return prop.Value, nil
}

// Property reads a pool (not dataset) property.
func (p *Pool) Property(ctx context.Context, name string) (pool.Property, error) {
	if err := p.live(); err != nil {
		return pool.Property{}, err
	}
	raw, err := p.reg.gw.PoolGetProperty(ctx, p.Name(), name)
	if err != nil {
		return pool.Property{}, err
	}
	return pool.Property{
		Name:   name,
		Value:  raw.Value,
		Source: property.FormatSource(raw.Source, raw.SourceData),
	}, nil
}

// Scrub starts a scrub, or stops the running one.
func (p *Pool) Scrub(ctx context.Context, stop bool) error {
	if err := p.live(); err != nil {
		return err
	}
	return p.reg.gw.PoolScrub(ctx, p.Name(), stop)
}
