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

package api

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stratastor/zfskit/pkg/zfs/common"
	"github.com/stratastor/zfskit/pkg/zfs/dataset"
	"github.com/stratastor/zfskit/pkg/zfs/gateway"
	"github.com/stratastor/zfskit/pkg/zfs/pool"
	"github.com/stratastor/zfskit/pkg/zfs/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupTestRouter(t *testing.T) (*gin.Engine, *dataset.Registry) {
	t.Helper()
	ctx := context.Background()
	l := testutil.NewLogger(t)

	reg, err := dataset.Open(ctx, gateway.NewMemory(l), l)
	require.NoError(t, err)
	t.Cleanup(func() { reg.Close() })

	p, err := reg.CreatePool(ctx, gateway.PoolSpec{
		Name:     "tank",
		VDevSpec: []pool.VDevSpec{{Devices: []string{"/dev/loop0"}}},
	})
	require.NoError(t, err)
	p.Dispose()

	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(ErrorHandler())

	NewHandler(reg, l).RegisterRoutes(router.Group("/api/v1/zfskit"))
	return router, reg
}

func do(t *testing.T, router *gin.Engine, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, "/api/v1/zfskit"+path, &buf)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var resp struct {
		Result T `json:"result"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp), w.Body.String())
	return resp.Result
}

type errorBody struct {
	Code   int               `json:"code"`
	Kind   string            `json:"kind"`
	Action string            `json:"action"`
	Meta   map[string]string `json:"metadata"`
}

func TestPoolRoutes(t *testing.T) {
	router, _ := setupTestRouter(t)

	w := do(t, router, http.MethodGet, "/pools", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, []poolView{{Name: "tank", Health: "ONLINE"}}, decode[[]poolView](t, w))

	w = do(t, router, http.MethodPost, "/pools/tank/scrub", nil)
	assert.Equal(t, http.StatusAccepted, w.Code)

	w = do(t, router, http.MethodPost, "/pools/nope/scrub", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestDatasetRoutes(t *testing.T) {
	router, reg := setupTestRouter(t)
	ctx := context.Background()

	d, err := reg.Create(ctx, "tank/a", common.TypeFilesystem, nil)
	require.NoError(t, err)
	d.Dispose()
	d, err = reg.Create(ctx, "tank/a/b", common.TypeFilesystem, nil)
	require.NoError(t, err)
	d.Dispose()

	t.Run("Describe", func(t *testing.T) {
		w := do(t, router, http.MethodGet, "/dataset?name=tank/a", nil)
		require.Equal(t, http.StatusOK, w.Code)
		info := decode[dataset.Info](t, w)
		assert.Equal(t, "tank/a", info.Name)
		assert.Equal(t, "filesystem", info.Type)
		assert.Equal(t, "tank", info.Pool)
		assert.True(t, info.Mounted)
	})

	t.Run("Missing", func(t *testing.T) {
		w := do(t, router, http.MethodGet, "/dataset?name=tank/none", nil)
		require.Equal(t, http.StatusNotFound, w.Code)
		var body errorBody
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
		assert.Equal(t, "NotFound", body.Kind)
	})

	t.Run("BadName", func(t *testing.T) {
		w := do(t, router, http.MethodGet, "/dataset?name=tank//a", nil)
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("NoName", func(t *testing.T) {
		w := do(t, router, http.MethodGet, "/dataset", nil)
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("Children", func(t *testing.T) {
		w := do(t, router, http.MethodGet, "/dataset/children?name=tank", nil)
		require.Equal(t, http.StatusOK, w.Code)
		kids := decode[[]datasetView](t, w)
		require.Len(t, kids, 1)
		assert.Equal(t, "tank/a", kids[0].Name)
	})

	t.Run("Descendants", func(t *testing.T) {
		w := do(t, router, http.MethodGet, "/dataset/descendants?name=tank", nil)
		require.Equal(t, http.StatusOK, w.Code)
		var got []string
		for _, v := range decode[[]datasetView](t, w) {
			got = append(got, v.Name)
		}
		assert.Equal(t, []string{"tank/a", "tank/a/b"}, got)
	})
}

func TestSnapshotRoutes(t *testing.T) {
	router, reg := setupTestRouter(t)
	ctx := context.Background()

	d, err := reg.Create(ctx, "tank/fs", common.TypeFilesystem, nil)
	require.NoError(t, err)
	d.Dispose()

	for _, snap := range []string{"s1", "s2"} {
		w := do(t, router, http.MethodPost, "/dataset/snapshot",
			createSnapshotRequest{Name: "tank/fs", SnapName: snap})
		require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
		assert.Equal(t, "tank/fs@"+snap, decode[datasetView](t, w).Name)
	}

	w := do(t, router, http.MethodGet, "/dataset/snapshots?name=tank/fs", nil)
	require.Equal(t, http.StatusOK, w.Code)
	snaps := decode[[]datasetView](t, w)
	require.Len(t, snaps, 2)
	assert.Less(t, snaps[0].CreateTXG, snaps[1].CreateTXG)

	t.Run("RollbackBusy", func(t *testing.T) {
		w := do(t, router, http.MethodPost, "/dataset/rollback",
			rollbackRequest{Name: "tank/fs@s1"})
		require.Equal(t, http.StatusConflict, w.Code)
		var body errorBody
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
		assert.Equal(t, "Busy", body.Kind)
	})

	t.Run("CloneRequiresSnapshot", func(t *testing.T) {
		w := do(t, router, http.MethodPost, "/dataset/clone",
			cloneRequest{Name: "tank/fs", Target: "tank/c"})
		require.Equal(t, http.StatusBadRequest, w.Code)
		var body errorBody
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
		assert.Equal(t, "InvariantViolation", body.Kind)
	})

	t.Run("CloneAndBlockedRollback", func(t *testing.T) {
		w := do(t, router, http.MethodPost, "/dataset/clone",
			cloneRequest{Name: "tank/fs@s2", Target: "tank/c"})
		require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
		assert.Equal(t, "tank/c", decode[datasetView](t, w).Name)

		w = do(t, router, http.MethodPost, "/dataset/rollback",
			rollbackRequest{Name: "tank/fs@s1", Recursive: true})
		require.Equal(t, http.StatusConflict, w.Code)
		res := decode[rollbackView](t, w)
		require.NotNil(t, res.BlockedBy)
		assert.Equal(t, "tank/c", res.BlockedBy.Name)
	})

	t.Run("RollbackRecursive", func(t *testing.T) {
		w := do(t, router, http.MethodDelete, "/dataset?name=tank/c", nil)
		require.Equal(t, http.StatusNoContent, w.Code)

		w = do(t, router, http.MethodPost, "/dataset/rollback",
			rollbackRequest{Name: "tank/fs@s1", Recursive: true})
		require.Equal(t, http.StatusOK, w.Code, w.Body.String())
		res := decode[rollbackView](t, w)
		require.NotNil(t, res.Parent)
		assert.Equal(t, "tank/fs", res.Parent.Name)

		w = do(t, router, http.MethodGet, "/dataset/snapshots?name=tank/fs", nil)
		assert.Len(t, decode[[]datasetView](t, w), 1)
	})
}

func TestPropertyRoutes(t *testing.T) {
	router, reg := setupTestRouter(t)
	d, err := reg.Create(context.Background(), "tank/p", common.TypeFilesystem, nil)
	require.NoError(t, err)
	d.Dispose()

	w := do(t, router, http.MethodPut, "/dataset/property",
		setPropertyRequest{Name: "tank/p", Property: "compression", Value: "lz4"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w = do(t, router, http.MethodGet, "/dataset/property?name=tank/p&property=compression", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, propertyView{Property: "compression", Value: "lz4", Source: "local"},
		decode[propertyView](t, w))

	w = do(t, router, http.MethodPut, "/dataset/property",
		setPropertyRequest{Name: "tank/p", Property: "compression", Value: "zip"})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = do(t, router, http.MethodGet, "/dataset/property?name=tank/p&property=volsize", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = do(t, router, http.MethodGet, "/dataset/property?name=tank/p&property=bogus", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = do(t, router, http.MethodPut, "/dataset/property",
		setPropertyRequest{Name: "tank/p", Property: "org:team", Value: "infra"})
	require.Equal(t, http.StatusOK, w.Code)

	w = do(t, router, http.MethodGet, "/dataset/property?name=tank/p&property=org:team", nil)
	assert.Equal(t, propertyView{Property: "org:team", Value: "infra", Source: "local"}, decode[propertyView](t, w))

	child, err := reg.Create(context.Background(), "tank/p/c", common.TypeFilesystem, nil)
	require.NoError(t, err)
	child.Dispose()

	w = do(t, router, http.MethodGet, "/dataset/property?name=tank/p/c&property=org:team", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, propertyView{Property: "org:team", Value: "infra", Source: "inherited from tank/p"},
		decode[propertyView](t, w))

	w = do(t, router, http.MethodDelete, "/dataset?name=tank/p/c", nil)
	require.Equal(t, http.StatusNoContent, w.Code)

	w = do(t, router, http.MethodDelete, "/dataset/property?name=tank/p&property=org:team", nil)
	require.Equal(t, http.StatusNoContent, w.Code)

	w = do(t, router, http.MethodGet, "/dataset/property?name=tank/p&property=org:team", nil)
	assert.Equal(t, propertyView{Property: "org:team", Value: "-", Source: "-"}, decode[propertyView](t, w))
}
