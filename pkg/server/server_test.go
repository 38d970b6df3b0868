// Copyright 2025 Raamsri Kumar <raam@tinkershack.in>
// Copyright 2025 The StrataSTOR Authors and Contributors
// SPDX-License-Identifier: Apache-2.0

package server

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stratastor/zfskit/config"
	"github.com/stratastor/zfskit/pkg/zfs/dataset"
	"github.com/stratastor/zfskit/pkg/zfs/gateway"
	"github.com/stratastor/zfskit/pkg/zfs/pool"
	"github.com/stratastor/zfskit/pkg/zfs/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEngineRoutes(t *testing.T) {
	ctx := context.Background()
	l := testutil.NewLogger(t)
	reg, err := dataset.Open(ctx, gateway.NewMemory(l), l)
	require.NoError(t, err)
	defer reg.Close()

	p, err := reg.CreatePool(ctx, gateway.PoolSpec{
		Name:     "tank",
		VDevSpec: []pool.VDevSpec{{Devices: []string{"/dev/loop0"}}},
	})
	require.NoError(t, err)
	p.Dispose()

	cfg := &config.Config{Environment: "test"}
	engine := NewEngine(cfg, reg, l)

	tests := []struct {
		path     string
		status   int
		contains string
	}{
		{"/health", http.StatusOK, reg.Session().String()},
		{"/api/v1/zfskit/pools", http.StatusOK, `"ONLINE"`},
		{"/api/v1/zfskit/dataset?name=tank/missing", http.StatusNotFound, `"NotFound"`},
		{"/metrics", http.StatusOK, "zfskit_gateway_calls_total"},
	}
	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			w := httptest.NewRecorder()
			engine.ServeHTTP(w, httptest.NewRequest(http.MethodGet, tt.path, nil))
			assert.Equal(t, tt.status, w.Code)
			assert.Contains(t, w.Body.String(), tt.contains)
		})
	}

	t.Run("RequestID", func(t *testing.T) {
		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/api/v1/zfskit/pools", nil)
		req.Header.Set("X-Request-Id", "req-1")
		engine.ServeHTTP(w, req)
		assert.Equal(t, "req-1", w.Header().Get("X-Request-Id"))

		w = httptest.NewRecorder()
		engine.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/zfskit/pools", nil))
		assert.Len(t, w.Header().Get("X-Request-Id"), 36)
	})

	t.Run("RequestMetrics", func(t *testing.T) {
		w := httptest.NewRecorder()
		engine.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))
		body := w.Body.String()
		assert.Contains(t, body, `zfskit_http_requests_total{class="4xx",method="GET",route="/api/v1/zfskit/dataset"}`)
		assert.Contains(t, body, `route="/api/v1/zfskit/pools"`)
		assert.NotContains(t, body, "tank/missing")
		assert.NotContains(t, body, `route="/health"`)
	})
}
