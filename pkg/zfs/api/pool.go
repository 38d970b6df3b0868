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

	"github.com/gin-gonic/gin"
)

func (h *Handler) listPools(c *gin.Context) {
	h.mu.Lock()
	defer h.mu.Unlock()

	pools, err := h.reg.Roots(c.Request.Context())
	if err != nil {
		APIError(c, err)
		return
	}
	defer disposeAll(pools)

	out := make([]poolView, 0, len(pools))
	for _, p := range pools {
		health, err := p.Health(c.Request.Context())
		if err != nil {
			APIError(c, err)
			return
		}
		out = append(out, poolView{Name: p.Name(), Health: health})
	}
	c.JSON(http.StatusOK, gin.H{"result": out})
}

func (h *Handler) scrubPool(c *gin.Context) {
	name := c.Param("name")
	stop := c.Query("stop") == "true"

	h.mu.Lock()
	defer h.mu.Unlock()

	p, err := h.reg.ResolvePool(c.Request.Context(), name)
	if err != nil {
		APIError(c, err)
		return
	}
	defer p.Dispose()

	if err := p.Scrub(c.Request.Context(), stop); err != nil {
		APIError(c, err)
		return
	}
	h.logger.Info("Pool scrub requested", "pool", name, "stop", stop)
	c.Status(http.StatusAccepted)
}
