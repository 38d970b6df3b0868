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
	"sync"

	"github.com/stratastor/logger"
	"github.com/stratastor/zfskit/pkg/zfs/dataset"
	"github.com/stratastor/zfskit/pkg/zfs/property"
)

// Handler provides HTTP endpoints over a dataset Registry.
// It implements the following features:
//   - Pool listing and health
//   - Dataset lookup and traversal
//   - Snapshot, rollback and clone
//   - Property management
//
// The Registry is not safe for concurrent use; every request holds mu for
// its whole duration.
type Handler struct {
	mu     sync.Mutex
	reg    *dataset.Registry
	logger logger.Logger
}

// Request types

type nameQuery struct {
	Name string `form:"name" binding:"required"`
}

type destroyQuery struct {
	Name     string `form:"name" binding:"required"`
	Deferred bool   `form:"deferred"`
}

type propertyQuery struct {
	Name     string `form:"name" binding:"required"`
	Property string `form:"property" binding:"required"`
}

type inheritQuery struct {
	Name      string `form:"name" binding:"required"`
	Property  string `form:"property" binding:"required"`
	Recursive bool   `form:"recursive"`
}

type createSnapshotRequest struct {
	Name       string            `json:"name" binding:"required"`
	SnapName   string            `json:"snap_name" binding:"required"`
	Recursive  bool              `json:"recursive"`
	Properties map[string]string `json:"properties"`
}

type rollbackRequest struct {
	Name      string `json:"name" binding:"required"`
	Recursive bool   `json:"recursive"`
}

type cloneRequest struct {
	Name       string            `json:"name" binding:"required"`
	Target     string            `json:"target" binding:"required"`
	Properties map[string]string `json:"properties"`
}

type setPropertyRequest struct {
	Name     string `json:"name" binding:"required"`
	Property string `json:"property" binding:"required"`
	Value    string `json:"value"`
}

// Response types

type datasetView struct {
	Name      string `json:"name"`
	Type      string `json:"type"`
	CreateTXG uint64 `json:"createtxg"`
}

type poolView struct {
	Name   string `json:"name"`
	Health string `json:"health"`
}

type propertyView struct {
	Property string `json:"property"`
	Value    string `json:"value"`
	Source   string `json:"source"`
	Bytes    uint64 `json:"bytes,omitempty"`
}

type rollbackView struct {
	Parent    *datasetView `json:"parent,omitempty"`
	BlockedBy *datasetView `json:"blocked_by,omitempty"`
}

func viewOf(d dataset.Dataset) datasetView {
	return datasetView{Name: d.Name(), Type: d.Type().String(), CreateTXG: d.CreateTXG()}
}

func viewsOf[T dataset.Dataset](ds []T) []datasetView {
	out := make([]datasetView, len(ds))
	for i, d := range ds {
		out[i] = viewOf(d)
	}
	return out
}

func propertyOf(v property.Value) propertyView {
	pv := propertyView{
		Property: v.Name,
		Value:    v.Text,
		Source:   property.FormatSource(v.Source, v.Inherited),
	}
	if v.Kind == property.KindNumber {
		pv.Bytes = v.Number
	}
	return pv
}
