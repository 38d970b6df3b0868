// Copyright 2025 Raamsri Kumar <raam@tinkershack.in>
// Copyright 2025 The StrataSTOR Authors and Contributors
// SPDX-License-Identifier: Apache-2.0

// The engine is a bare gin.New() with recovery and request logging added,
// served through an http.Server so shutdown follows the caller's context.

package server

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stratastor/logger"
	"github.com/stratastor/zfskit/config"
	"github.com/stratastor/zfskit/pkg/errors"
	"github.com/stratastor/zfskit/pkg/zfs/dataset"
)

const shutdownTimeout = 10 * time.Second

// NewEngine builds the HTTP handler for reg.
func NewEngine(cfg *config.Config, reg *dataset.Registry, l logger.Logger) *gin.Engine {
	switch cfg.Environment {
	case "prod", "production":
		gin.SetMode(gin.ReleaseMode)
	default:
		gin.SetMode(gin.DebugMode)
	}

	engine := gin.New()
	engine.Use(gin.Recovery(), RequestID(), LoggerMiddleware(l))

	registerRoutes(engine, reg, l)
	return engine
}

// Start serves reg on the configured port until ctx is cancelled.
func Start(ctx context.Context, cfg *config.Config, reg *dataset.Registry) error {
	l, err := logger.NewTag(config.NewLoggerConfig(cfg), "server")
	if err != nil {
		return err
	}

	srv := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Server.Port),
		Handler: NewEngine(cfg, reg, l),
	}

	errChan := make(chan error, 1)
	go func() {
		l.Info("Starting server", "addr", srv.Addr, "backend", reg.Backend())
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errChan <- err
		}
	}()

	select {
	case err := <-errChan:
		return errors.Wrap(err, errors.ServerStart)
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		l.Info("Shutting down server")
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return errors.Wrap(err, errors.ServerShutdown)
		}
		return nil
	}
}
