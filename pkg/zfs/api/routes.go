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
	"github.com/gin-gonic/gin"
)

// Pool Operations:
//
//	GET    /pools                       List pools with health
//	  Response: {"result": [{"name": "tank", "health": "ONLINE"}]}
//
//	POST   /pools/:name/scrub?stop=     Start or stop a scrub
//	  Response: 202 Accepted
//
// Dataset Operations:
//
//	GET    /dataset?name=tank/a         Describe dataset
//	  Response: {"result": {"name": "tank/a", "type": "filesystem", ...}}
//
//	DELETE /dataset?name=&deferred=     Destroy dataset
//	  Response: 204 No Content
//
//	GET    /dataset/children?name=      Immediate filesystem and volume children
//	GET    /dataset/descendants?name=   Everything below, snapshots first per level
//	GET    /dataset/snapshots?name=     Snapshots by creation
//	  Response: {"result": [{"name": "...", "type": "...", "createtxg": 12}]}
//
// Snapshot Operations:
//
//	POST   /dataset/snapshot            Create snapshot
//	  Request:  {"name": "tank/fs1", "snap_name": "snap1", "recursive": false}
//	  Response: 201 Created
//
//	POST   /dataset/rollback            Roll back to snapshot
//	  Request:  {"name": "tank/fs1@snap1", "recursive": true}
//	  Response: {"result": {"parent": {...}}}, or 409 with {"result": {"blocked_by": {...}}}
//
//	POST   /dataset/clone               Clone snapshot
//	  Request:  {"name": "tank/fs1@snap1", "target": "tank/clone1"}
//	  Response: 201 Created
//
// Property Operations:
//
//	GET    /dataset/property?name=&property=            Get property
//	  Response: {"result": {"property": "compression", "value": "lz4", "source": "local"}}
//
//	PUT    /dataset/property            Set property
//	  Request:  {"name": "tank/ds1", "property": "compression", "value": "on"}
//	  Response: 200 OK
//
//	DELETE /dataset/property?name=&property=&recursive= Inherit property
//	  Response: 204 No Content
func (h *Handler) RegisterRoutes(router *gin.RouterGroup) {
	pools := router.Group("/pools")
	{
		pools.GET("", h.listPools)
		pools.POST("/:name/scrub", h.scrubPool)
	}

	ds := router.Group("/dataset")
	ds.Use(ValidateDatasetName())
	{
		ds.GET("", h.getDataset)
		ds.DELETE("", h.destroy)

		ds.GET("/children", h.listChildren)
		ds.GET("/descendants", h.listDescendants)
		ds.GET("/snapshots", h.listSnapshots)

		ds.POST("/snapshot", h.createSnapshot)
		ds.POST("/rollback", h.rollback)
		ds.POST("/clone", h.clone)

		ds.GET("/property", h.getProperty)
		ds.PUT("/property", h.setProperty)
		ds.DELETE("/property", h.inheritProperty)
	}
}
