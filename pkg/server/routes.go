// Copyright 2025 Raamsri Kumar <raam@tinkershack.in>
// Copyright 2025 The StrataSTOR Authors and Contributors
// SPDX-License-Identifier: Apache-2.0

package server

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/stratastor/logger"
	"github.com/stratastor/zfskit/internal/constants"
	"github.com/stratastor/zfskit/internal/metrics"
	"github.com/stratastor/zfskit/pkg/zfs/api"
	"github.com/stratastor/zfskit/pkg/zfs/dataset"
)

func registerRoutes(engine *gin.Engine, reg *dataset.Registry, l logger.Logger) {
	engine.GET(constants.APIHealth, func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "healthy", "session": reg.Session().String()})
	})
	engine.GET(constants.APIMetrics, gin.WrapH(metrics.Handler()))

	v1 := engine.Group(constants.APIBase)
	v1.Use(api.ErrorHandler())
	{
		api.NewHandler(reg, l).RegisterRoutes(v1)
	}
}
