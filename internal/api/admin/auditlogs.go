// auditlogs.go implements the admin handler for browsing the audit trail.
package admin

import (
	"database/sql"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/NganNgoVoThanh/trips-management/internal/api/respond"
	"github.com/NganNgoVoThanh/trips-management/internal/db/repositories"
)

// AuditLogHandlers handles audit trail queries
type AuditLogHandlers struct {
	auditRepo *repositories.AuditRepository
}

// NewAuditLogHandlers creates a new audit log handlers instance
func NewAuditLogHandlers(db *sql.DB) *AuditLogHandlers {
	return &AuditLogHandlers{auditRepo: repositories.NewAuditRepository(db)}
}

// @Summary      List audit logs
// @Description  Browse the audit trail, newest first. Filters: user_id, actor_email, action, resource_type, start_date, end_date (RFC3339).
// @Tags         AuditLogs
// @Security     Bearer
// @Produce      json
// @Param        user_id        query  string  false  "Filter by acting user ID"
// @Param        actor_email    query  string  false  "Filter by actor email"
// @Param        action         query  string  false  "Filter by dotted action name (e.g. trip.approve)"
// @Param        resource_type  query  string  false  "Filter by resource type"
// @Param        start_date     query  string  false  "Entries at or after this time (RFC3339)"
// @Param        end_date       query  string  false  "Entries before this time (RFC3339)"
// @Param        limit          query  int     false  "Page size"
// @Param        offset         query  int     false  "Page offset"
// @Success      200  {object}  map[string]interface{}  "audit_logs, total, limit, offset"
// @Failure      400  {object}  map[string]interface{}  "Invalid filter"
// @Router       /api/v1/admin/audit-logs [get]
// List returns audit log entries.
// GET /api/v1/admin/audit-logs
func (h *AuditLogHandlers) List(c *gin.Context) {
	var filters repositories.AuditFilters

	if v := c.Query("user_id"); v != "" {
		id, err := uuid.Parse(v)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid user_id filter"})
			return
		}
		filters.UserID = &id
	}
	if v := c.Query("actor_email"); v != "" {
		filters.ActorEmail = &v
	}
	if v := c.Query("action"); v != "" {
		filters.Action = &v
	}
	if v := c.Query("resource_type"); v != "" {
		filters.ResourceType = &v
	}
	if v := c.Query("start_date"); v != "" {
		t, err := time.Parse(time.RFC3339, v)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid start_date, want RFC3339"})
			return
		}
		filters.StartDate = &t
	}
	if v := c.Query("end_date"); v != "" {
		t, err := time.Parse(time.RFC3339, v)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid end_date, want RFC3339"})
			return
		}
		filters.EndDate = &t
	}

	limit, offset := pagination(c)
	logs, total, err := h.auditRepo.ListAuditLogs(c.Request.Context(), filters, limit, offset)
	if err != nil {
		respond.Error(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"audit_logs": logs,
		"total":      total,
		"limit":      limit,
		"offset":     offset,
	})
}
