// Copyright 2025 Raamsri Kumar <raam@tinkershack.in>
// Copyright 2025 The StrataSTOR Authors and Contributors
// SPDX-License-Identifier: Apache-2.0

package server

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stratastor/logger"
	"github.com/stratastor/zfskit/internal/constants"
	"github.com/stratastor/zfskit/internal/metrics"
	"github.com/stratastor/zfskit/pkg/errors"
)

const (
	requestIDHeader = "X-Request-Id"
	requestIDKey    = "request_id"
)

// RequestID tags each request with the caller's X-Request-Id, or a fresh
// one, and echoes it on the response.
func RequestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(requestIDHeader)
		if id == "" {
			id = uuid.NewString()
		}
		c.Set(requestIDKey, id)
		c.Header(requestIDHeader, id)
		c.Next()
	}
}

// LoggerMiddleware writes one line per API request and counts it in the
// request metrics. Probes of /health and /metrics are neither logged nor
// counted.
func LoggerMiddleware(l logger.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		path := c.Request.URL.Path
		if path == constants.APIHealth || path == constants.APIMetrics {
			c.Next()
			return
		}

		start := time.Now()
		c.Next()

		status := c.Writer.Status()
		metrics.ObserveRequest(c.FullPath(), c.Request.Method, status)

		kv := []any{
			"request_id", c.GetString(requestIDKey),
			"method", c.Request.Method,
			"route", c.FullPath(),
			"status", status,
			"duration_ms", time.Since(start).Milliseconds(),
			"ip", c.ClientIP(),
		}
		if name := c.Query("name"); name != "" {
			kv = append(kv, "dataset", name)
		}

		if len(c.Errors) == 0 {
			l.Info("Request", kv...)
			return
		}
		kv = append(kv, errorFields(c.Errors.Last().Err)...)
		if status >= 500 {
			l.Error("Request failed", kv...)
		} else {
			l.Warn("Request rejected", kv...)
		}
	}
}

// errorFields flattens err for the request log. Native command output is
// kept whole since it is the only trace of what zfs reported.
func errorFields(err error) []any {
	var ke *errors.KitError
	if !errors.As(err, &ke) {
		return []any{"error", err.Error()}
	}
	kv := []any{
		"error_code", int(ke.Code),
		"error_kind", ke.KindName,
		"error", ke.Message,
	}
	if ke.Action != "" {
		kv = append(kv, "action", ke.Action)
	}
	if ke.Details != "" {
		kv = append(kv, "native", ke.Details)
	}
	for _, k := range []string{"name", "command", "exit_code"} {
		if v, ok := ke.Metadata[k]; ok {
			kv = append(kv, k, v)
		}
	}
	return kv
}
