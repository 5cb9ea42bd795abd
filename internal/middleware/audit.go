// audit.go provides Gin middleware that records authenticated write operations
// to the audit log, asynchronously and best-effort.
package middleware

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/NganNgoVoThanh/trips-management/internal/config"
	"github.com/NganNgoVoThanh/trips-management/internal/db/models"
	"github.com/NganNgoVoThanh/trips-management/internal/db/repositories"
	"github.com/NganNgoVoThanh/trips-management/internal/safego"
)

// ContextAuditMetadata lets a handler attach extra metadata (e.g. before/after
// values) that the audit middleware picks up after the handler returns.
const ContextAuditMetadata = "audit_metadata"

// SetAuditTransition records a resource state change so the persisted audit
// entry carries the before and after values.
func SetAuditTransition(c *gin.Context, before, after string) {
	c.Set(ContextAuditMetadata, map[string]interface{}{
		"before": before,
		"after":  after,
	})
}

// AuditMiddleware logs write operations after the handler completes. The DB
// write happens on a background goroutine so the response is never delayed by
// audit persistence.
func AuditMiddleware(auditRepo *repositories.AuditRepository, auditCfg *config.AuditConfig, logger *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if c.Request.Method == "OPTIONS" {
			return
		}

		logReadOps := auditCfg != nil && auditCfg.LogReadOperations
		logFailedReqs := auditCfg != nil && auditCfg.LogFailedRequests

		isReadOp := c.Request.Method == "GET"
		isFailed := c.Writer.Status() >= 400

		if isReadOp && !logReadOps {
			return
		}
		if isFailed && !logFailedReqs {
			return
		}

		entry := &models.AuditLog{
			Action: auditAction(c),
		}

		if ip := c.ClientIP(); ip != "" {
			entry.IPAddress = &ip
		}
		if ua := c.Request.UserAgent(); ua != "" {
			entry.UserAgent = &ua
		}

		if user, ok := CurrentUser(c); ok {
			entry.UserID = &user.ID
			entry.ActorEmail = &user.Email
		}

		if rt := resourceTypeFromPath(c.Request.URL.Path); rt != "" {
			entry.ResourceType = &rt
		}

		metadata := map[string]interface{}{
			"status_code": c.Writer.Status(),
		}
		if requestID, exists := c.Get(RequestIDKey); exists {
			metadata["request_id"] = requestID
		}
		if extra, exists := c.Get(ContextAuditMetadata); exists {
			if m, ok := extra.(map[string]interface{}); ok {
				for k, v := range m {
					metadata[k] = v
				}
			}
		}
		entry.Metadata = metadata

		safego.Go(func() {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := auditRepo.CreateAuditLog(ctx, entry); err != nil {
				logger.Error("failed to write audit log", "action", entry.Action, "error", err)
			}
		})
	}
}

// auditAction derives a dotted action name from the matched route, e.g.
// "trip.create" for POST /api/v1/trips
func auditAction(c *gin.Context) string {
	resource := resourceTypeFromPath(c.Request.URL.Path)
	if resource == "" {
		return fmt.Sprintf("%s %s", c.Request.Method, c.Request.URL.Path)
	}

	verb := ""
	switch {
	case strings.HasSuffix(c.Request.URL.Path, "/approve"):
		verb = "approve"
	case strings.HasSuffix(c.Request.URL.Path, "/reject"):
		verb = "reject"
	case strings.HasSuffix(c.Request.URL.Path, "/cancel"):
		verb = "cancel"
	case c.Request.Method == "POST":
		verb = "create"
	case c.Request.Method == "PUT", c.Request.Method == "PATCH":
		verb = "update"
	case c.Request.Method == "DELETE":
		verb = "delete"
	case c.Request.Method == "GET":
		verb = "read"
	}
	return resource + "." + verb
}

func resourceTypeFromPath(path string) string {
	switch {
	case strings.Contains(path, "/optimize"):
		return "optimization_group"
	case strings.Contains(path, "/join-requests"):
		return "join_request"
	case strings.Contains(path, "/trips"):
		return "trip"
	case strings.Contains(path, "/admins"):
		return "admin_grant"
	case strings.Contains(path, "/users"):
		return "user"
	case strings.Contains(path, "/locations"):
		return "location"
	case strings.Contains(path, "/auth"):
		return "session"
	case strings.Contains(path, "/setup"):
		return "setup"
	}
	return ""
}
