package middleware

import (
	"context"
	"encoding/json"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/noah-isme/ctos-api/internal/models"
)

// AuditRecorder persists audit log entries.
type AuditRecorder interface {
	CreateAuditLog(ctx context.Context, log *models.AuditLog) error
}

// Audit records an audit row after every successful request of the route.
// Mutations audit themselves in the services; this covers reads of
// sensitive listings.
func Audit(recorder AuditRecorder, action models.AuditAction, resourceType string, logger *zap.Logger) gin.HandlerFunc {
	if logger == nil {
		logger = zap.NewNop()
	}
	return func(c *gin.Context) {
		start := time.Now().UTC()
		c.Next()

		if recorder == nil || c.Writer.Status() >= 400 {
			return
		}

		var userID *string
		if claims := Claims(c); claims != nil {
			id := claims.UserID
			userID = &id
		}
		var resourceID *string
		if id := c.Param("id"); id != "" {
			resourceID = &id
		}

		details, _ := json.Marshal(map[string]interface{}{
			"path":    c.FullPath(),
			"method":  c.Request.Method,
			"query":   c.Request.URL.RawQuery,
			"status":  c.Writer.Status(),
			"latency": time.Since(start).Milliseconds(),
		})

		if err := recorder.CreateAuditLog(c.Request.Context(), &models.AuditLog{
			UserID:       userID,
			Action:       action,
			ResourceType: resourceType,
			ResourceID:   resourceID,
			Details:      details,
			IPAddress:    c.ClientIP(),
			UserAgent:    c.GetHeader("User-Agent"),
		}); err != nil {
			logger.Warn("failed to write audit log", zap.String("path", c.FullPath()), zap.Error(err))
		}
	}
}
