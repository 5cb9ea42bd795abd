// admins.go implements the super-admin handlers for granting, revoking, and
// listing admin role assignments.
package admin

import (
	"database/sql"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/NganNgoVoThanh/trips-management/internal/api/respond"
	"github.com/NganNgoVoThanh/trips-management/internal/middleware"
	"github.com/NganNgoVoThanh/trips-management/internal/services"
)

// AdminGrantHandlers handles admin role management
type AdminGrantHandlers struct {
	svc    *services.AdminAccessService
	logger *slog.Logger
}

// NewAdminGrantHandlers creates a new admin grant handlers instance
func NewAdminGrantHandlers(db *sql.DB, logger *slog.Logger) *AdminGrantHandlers {
	return &AdminGrantHandlers{
		svc:    services.NewAdminAccessService(db, logger),
		logger: logger,
	}
}

type grantRequest struct {
	UserEmail  string  `json:"user_email" binding:"required"`
	AdminType  string  `json:"admin_type" binding:"required"`
	LocationID *string `json:"location_id"`
	Reason     *string `json:"reason"`
}

// @Summary      Grant admin role
// @Description  Assign an admin role to a user by email. location_admin grants require a location_id; super_admin grants must not carry one. Any previous active grant for the email is revoked first.
// @Tags         AdminAccess
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        body  body  object  true  "user_email, admin_type (super_admin | location_admin), location_id (for location_admin), reason"
// @Success      201  {object}  models.AdminGrant
// @Failure      400  {object}  map[string]interface{}  "Invalid admin type or location pairing"
// @Failure      403  {object}  map[string]interface{}  "Super admin role required"
// @Router       /api/v1/admin/manage/admins [post]
// Grant assigns an admin role to a user by email.
// POST /api/v1/admin/manage/admins
func (h *AdminGrantHandlers) Grant(c *gin.Context) {
	actor, ok := middleware.CurrentActor(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Authentication required"})
		return
	}

	var req grantRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	input := services.GrantInput{
		TargetEmail: req.UserEmail,
		AdminType:   req.AdminType,
		GrantedBy:   actor.Email,
		Reason:      req.Reason,
	}
	if req.LocationID != nil {
		id, err := uuid.Parse(*req.LocationID)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid location_id"})
			return
		}
		input.LocationID = &id
	}
	if ip := c.ClientIP(); ip != "" {
		input.IPAddress = &ip
	}
	if ua := c.Request.UserAgent(); ua != "" {
		input.UserAgent = &ua
	}

	grant, prevRole, err := h.svc.Grant(c.Request.Context(), input)
	if err != nil {
		respond.Error(c, err)
		return
	}

	c.Set(middleware.ContextAuditMetadata, map[string]interface{}{
		"target": grant.UserEmail,
		"before": prevRole,
		"after":  grant.AdminType,
	})
	c.JSON(http.StatusCreated, grant)
}

type revokeRequest struct {
	UserEmail string `json:"user_email" binding:"required"`
}

// @Summary      Revoke admin role
// @Description  Revoke all active admin grants for an email and strip the role from the account. The grant rows are kept for the audit trail.
// @Tags         AdminAccess
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        body  body  object  true  "user_email"
// @Success      200  {object}  map[string]interface{}  "status: revoked"
// @Failure      404  {object}  map[string]interface{}  "No active grant for that email"
// @Router       /api/v1/admin/manage/admins/revoke [post]
// Revoke removes the active admin grant for an email.
// POST /api/v1/admin/manage/admins/revoke
func (h *AdminGrantHandlers) Revoke(c *gin.Context) {
	actor, ok := middleware.CurrentActor(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Authentication required"})
		return
	}

	var req revokeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if err := h.svc.Revoke(c.Request.Context(), req.UserEmail, actor.Email); err != nil {
		respond.Error(c, err)
		return
	}

	// A revocation only succeeds against an active grant.
	c.Set(middleware.ContextAuditMetadata, map[string]interface{}{
		"target": req.UserEmail,
		"before": "admin",
		"after":  "user",
	})
	c.JSON(http.StatusOK, gin.H{"status": "revoked"})
}

// @Summary      List admin grants
// @Description  List admin role grants, newest first. active_only=true hides revoked grants.
// @Tags         AdminAccess
// @Security     Bearer
// @Produce      json
// @Param        active_only  query  bool  false  "Only active grants"
// @Param        limit        query  int   false  "Page size"
// @Param        offset       query  int   false  "Page offset"
// @Success      200  {object}  map[string]interface{}  "grants, total, limit, offset"
// @Router       /api/v1/admin/manage/admins [get]
// List returns admin grants.
// GET /api/v1/admin/manage/admins
func (h *AdminGrantHandlers) List(c *gin.Context) {
	activeOnly := c.Query("active_only") == "true"
	limit, offset := pagination(c)

	grants, total, err := h.svc.ListGrants(c.Request.Context(), activeOnly, limit, offset)
	if err != nil {
		respond.Error(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"grants": grants,
		"total":  total,
		"limit":  limit,
		"offset": offset,
	})
}

// pagination reads limit/offset query parameters with sane bounds.
func pagination(c *gin.Context) (int, int) {
	limit := 50
	if v := c.Query("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 && n <= 200 {
			limit = n
		}
	}
	offset := 0
	if v := c.Query("offset"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n >= 0 {
			offset = n
		}
	}
	return limit, offset
}
