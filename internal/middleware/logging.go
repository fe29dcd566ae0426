// internal/middleware/logging.go
package middleware

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/javajoker/trademark-backend/internal/models"
	"github.com/javajoker/trademark-backend/internal/utils"
)

const auditWriteTimeout = 5 * time.Second

type AuditWriter interface {
	Create(ctx context.Context, entry *models.AuditLog) error
}

// AuditLogMiddleware stores one audit row per mutating request. Request
// bodies of the paths in skipBody are never persisted.
func AuditLogMiddleware(writer AuditWriter, log logrus.FieldLogger, skipBody ...string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.Request.Method == http.MethodGet || c.Request.Method == http.MethodOptions {
			c.Next()
			return
		}

		keepBody := true
		for _, p := range skipBody {
			if c.Request.URL.Path == p {
				keepBody = false
			}
		}

		var requestBody []byte
		if keepBody && c.Request.Body != nil {
			requestBody, _ = io.ReadAll(c.Request.Body)
			c.Request.Body = io.NopCloser(bytes.NewReader(requestBody))
		}

		c.Next()

		if c.Writer.Status() >= http.StatusBadRequest {
			return
		}

		auditLog := &models.AuditLog{
			Action:       c.Request.Method + " " + routeOf(c),
			ResourceType: extractResourceType(c.Request.URL.Path),
			IPAddress:    c.ClientIP(),
			UserAgent:    c.Request.UserAgent(),
		}
		if userID, ok := utils.GetUserIDFromContext(c); ok {
			auditLog.UserID = &userID
		}
		if resourceID, ok := extractResourceID(c.Request.URL.Path); ok {
			auditLog.ResourceID = &resourceID
		}
		if len(requestBody) > 0 {
			var requestData map[string]interface{}
			if err := json.Unmarshal(requestBody, &requestData); err == nil {
				auditLog.NewValues = models.JSONB(requestData)
			}
		}

		// Save audit log asynchronously
		ctx, cancel := context.WithTimeout(context.WithoutCancel(c.Request.Context()), auditWriteTimeout)
		go func() {
			defer cancel()
			if err := writer.Create(ctx, auditLog); err != nil {
				log.WithError(err).WithField("action", auditLog.Action).Error("Failed to create audit log")
			}
		}()
	}
}

// RequestLogger logs every request with its outcome.
func RequestLogger(log logrus.FieldLogger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		fields := logrus.Fields{
			"method":      c.Request.Method,
			"path":        c.Request.URL.Path,
			"status":      c.Writer.Status(),
			"duration_ms": time.Since(start).Milliseconds(),
			"ip":          c.ClientIP(),
		}
		if userID, ok := utils.GetUserIDFromContext(c); ok {
			fields["user_id"] = userID
		}

		entry := log.WithFields(fields)
		if len(c.Errors) > 0 {
			entry = entry.WithField("errors", c.Errors.String())
		}

		switch status := c.Writer.Status(); {
		case status >= http.StatusInternalServerError:
			entry.Error("Request failed")
		case status >= http.StatusBadRequest:
			entry.Warn("Request rejected")
		default:
			entry.Info("Request processed")
		}
	}
}

func routeOf(c *gin.Context) string {
	if route := c.FullPath(); route != "" {
		return route
	}
	return c.Request.URL.Path
}

func extractResourceType(path string) string {
	for _, part := range strings.Split(strings.Trim(path, "/"), "/") {
		if part == "v1" || part == "admin" || part == "" {
			continue
		}
		return part
	}
	return "unknown"
}

func extractResourceID(path string) (uuid.UUID, bool) {
	for _, part := range strings.Split(strings.Trim(path, "/"), "/") {
		if id, err := uuid.Parse(part); err == nil {
			return id, true
		}
	}
	return uuid.Nil, false
}
