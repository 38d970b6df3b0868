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
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/stratastor/logger"
	"github.com/stratastor/zfskit/pkg/errors"
	"github.com/stratastor/zfskit/pkg/zfs/common"
	"github.com/stratastor/zfskit/pkg/zfs/dataset"
	"github.com/stratastor/zfskit/pkg/zfs/property"
)

func NewHandler(reg *dataset.Registry, l logger.Logger) *Handler {
	return &Handler{reg: reg, logger: l}
}

// container resolves name and requires it to hold children.
func (h *Handler) container(c *gin.Context, name string) (dataset.Container, bool) {
	d, err := h.reg.Resolve(c.Request.Context(), name, common.TypeInvalid)
	if err != nil {
		APIError(c, err)
		return nil, false
	}
	ct, ok := d.(dataset.Container)
	if !ok {
		d.Dispose()
		APIError(c, errors.New(errors.ZFSPreconditionFailed, "dataset has no children").
			WithMetadata("name", name).
			WithMetadata("type", d.Type().String()))
		return nil, false
	}
	return ct, true
}

func (h *Handler) getDataset(c *gin.Context) {
	var q nameQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		APIError(c, bindError(err))
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	d, err := h.reg.Resolve(c.Request.Context(), q.Name, common.TypeInvalid)
	if err != nil {
		APIError(c, err)
		return
	}
	defer d.Dispose()

	info, err := dataset.Describe(c.Request.Context(), d)
	if err != nil {
		APIError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"result": info})
}

func (h *Handler) listChildren(c *gin.Context) {
	var q nameQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		APIError(c, bindError(err))
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	ct, ok := h.container(c, q.Name)
	if !ok {
		return
	}
	defer ct.Dispose()

	kids, err := ct.Children(c.Request.Context())
	if err != nil {
		APIError(c, err)
		return
	}
	defer disposeAll(kids)
	c.JSON(http.StatusOK, gin.H{"result": viewsOf(kids)})
}

func (h *Handler) listDescendants(c *gin.Context) {
	var q nameQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		APIError(c, bindError(err))
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	ct, ok := h.container(c, q.Name)
	if !ok {
		return
	}
	defer ct.Dispose()

	all, err := ct.Descendants(c.Request.Context())
	if err != nil {
		APIError(c, err)
		return
	}
	defer disposeAll(all)
	c.JSON(http.StatusOK, gin.H{"result": viewsOf(all)})
}

func (h *Handler) listSnapshots(c *gin.Context) {
	var q nameQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		APIError(c, bindError(err))
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	ct, ok := h.container(c, q.Name)
	if !ok {
		return
	}
	defer ct.Dispose()

	snaps, err := ct.Snapshots(c.Request.Context())
	if err != nil {
		APIError(c, err)
		return
	}
	defer disposeAll(snaps)
	c.JSON(http.StatusOK, gin.H{"result": viewsOf(snaps)})
}

func (h *Handler) createSnapshot(c *gin.Context) {
	var req createSnapshotRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		APIError(c, bindError(err))
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	ct, ok := h.container(c, req.Name)
	if !ok {
		return
	}
	defer ct.Dispose()

	s, err := ct.CreateSnapshot(c.Request.Context(), req.SnapName, req.Recursive, req.Properties)
	if err != nil {
		APIError(c, err)
		return
	}
	defer s.Dispose()
	c.JSON(http.StatusCreated, gin.H{"result": viewOf(s)})
}

func (h *Handler) rollback(c *gin.Context) {
	var req rollbackRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		APIError(c, bindError(err))
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	d, err := h.reg.Resolve(c.Request.Context(), req.Name, common.TypeInvalid)
	if err != nil {
		APIError(c, err)
		return
	}
	defer d.Dispose()

	res, err := dataset.Rollback(c.Request.Context(), d, req.Recursive)
	if err != nil {
		APIError(c, err)
		return
	}
	if res.Blocked() {
		defer res.BlockedBy.Dispose()
		v := viewOf(res.BlockedBy)
		c.JSON(http.StatusConflict, gin.H{"result": rollbackView{BlockedBy: &v}})
		return
	}
	defer res.Parent.Dispose()
	v := viewOf(res.Parent)
	c.JSON(http.StatusOK, gin.H{"result": rollbackView{Parent: &v}})
}

func (h *Handler) clone(c *gin.Context) {
	var req cloneRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		APIError(c, bindError(err))
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	d, err := h.reg.Resolve(c.Request.Context(), req.Name, common.TypeInvalid)
	if err != nil {
		APIError(c, err)
		return
	}
	defer d.Dispose()

	clone, err := dataset.Clone(c.Request.Context(), d, req.Target, req.Properties)
	if err != nil {
		APIError(c, err)
		return
	}
	defer clone.Dispose()
	c.JSON(http.StatusCreated, gin.H{"result": viewOf(clone)})
}

func (h *Handler) destroy(c *gin.Context) {
	var q destroyQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		APIError(c, bindError(err))
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	d, err := h.reg.Resolve(c.Request.Context(), q.Name, common.TypeInvalid)
	if err != nil {
		APIError(c, err)
		return
	}
	if err := d.Destroy(c.Request.Context(), q.Deferred); err != nil {
		d.Dispose()
		APIError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *Handler) getProperty(c *gin.Context) {
	var q propertyQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		APIError(c, bindError(err))
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	d, err := h.reg.Resolve(c.Request.Context(), q.Name, common.TypeInvalid)
	if err != nil {
		APIError(c, err)
		return
	}
	defer d.Dispose()

	if strings.Contains(q.Property, ":") {
		rec, ok, err := d.GetUserPropertyRecord(c.Request.Context(), q.Property)
		if err != nil {
			APIError(c, err)
			return
		}
		view := propertyView{Property: q.Property, Value: "-", Source: property.SourceNone.String()}
		if ok {
			view.Value = rec.Value
			view.Source = property.FormatSource(rec.Source, rec.SourceData)
		}
		c.JSON(http.StatusOK, gin.H{"result": view})
		return
	}

	p, ok := property.ParseProp(q.Property)
	if !ok {
		APIError(c, errors.New(errors.ZFSPropertyUnsupported, "invalid property '"+q.Property+"'").
			WithMetadata("name", q.Name))
		return
	}
	v, err := d.GetProperty(c.Request.Context(), p)
	if err != nil {
		APIError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"result": propertyOf(v)})
}

func (h *Handler) setProperty(c *gin.Context) {
	var req setPropertyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		APIError(c, bindError(err))
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	d, err := h.reg.Resolve(c.Request.Context(), req.Name, common.TypeInvalid)
	if err != nil {
		APIError(c, err)
		return
	}
	defer d.Dispose()

	if err := d.SetProperty(c.Request.Context(), req.Property, req.Value); err != nil {
		APIError(c, err)
		return
	}
	c.Status(http.StatusOK)
}

func (h *Handler) inheritProperty(c *gin.Context) {
	var q inheritQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		APIError(c, bindError(err))
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	d, err := h.reg.Resolve(c.Request.Context(), q.Name, common.TypeInvalid)
	if err != nil {
		APIError(c, err)
		return
	}
	defer d.Dispose()

	if err := d.InheritProperty(c.Request.Context(), q.Property, q.Recursive); err != nil {
		APIError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func disposeAll[T dataset.Dataset](ds []T) {
	for _, d := range ds {
		d.Dispose()
	}
}
