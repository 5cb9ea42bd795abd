// Package setup implements the first-run bootstrap flow. A one-time token is
// generated when the server starts against an empty installation; presenting
// it here promotes the named account to super admin and permanently closes
// the endpoint.
package setup

import (
	"database/sql"
	"log/slog"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"golang.org/x/crypto/bcrypt"

	"github.com/NganNgoVoThanh/trips-management/internal/api/respond"
	"github.com/NganNgoVoThanh/trips-management/internal/db/repositories"
	"github.com/NganNgoVoThanh/trips-management/internal/services"
)

// SetupGrantedBy is recorded as the grantor on the bootstrap grant.
const SetupGrantedBy = "system:setup"

// Handlers handles first-run setup endpoints
type Handlers struct {
	settings *repositories.SettingsRepository
	users    *repositories.UserRepository
	access   *services.AdminAccessService
	logger   *slog.Logger
}

// NewHandlers creates a new setup handlers instance
func NewHandlers(db *sql.DB, logger *slog.Logger) *Handlers {
	return &Handlers{
		settings: repositories.NewSettingsRepository(db),
		users:    repositories.NewUserRepository(db),
		access:   services.NewAdminAccessService(db, logger),
		logger:   logger,
	}
}

// @Summary      Setup status
// @Description  Report whether first-run setup has been completed.
// @Tags         Setup
// @Produce      json
// @Success      200  {object}  map[string]interface{}  "setup_completed"
// @Router       /api/v1/setup/status [get]
// Status reports whether the bootstrap endpoint is still open.
// GET /api/v1/setup/status
func (h *Handlers) Status(c *gin.Context) {
	completed, err := h.settings.IsSetupCompleted(c.Request.Context())
	if err != nil {
		respond.Error(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"setup_completed": completed})
}

type bootstrapRequest struct {
	Token string `json:"token" binding:"required"`
	Email string `json:"email" binding:"required,email"`
	Name  string `json:"name" binding:"required"`
}

// @Summary      Bootstrap super admin
// @Description  Claim the one-time setup token printed at first server start to create the initial super admin. Works exactly once.
// @Tags         Setup
// @Accept       json
// @Produce      json
// @Param        body  body  object  true  "token, email, name"
// @Success      201  {object}  map[string]interface{}  "user"
// @Failure      401  {object}  map[string]interface{}  "Invalid setup token"
// @Failure      409  {object}  map[string]interface{}  "Setup already completed"
// @Router       /api/v1/setup/bootstrap-admin [post]
// BootstrapAdmin claims the setup token and creates the first super admin.
// POST /api/v1/setup/bootstrap-admin
func (h *Handlers) BootstrapAdmin(c *gin.Context) {
	var req bootstrapRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	ctx := c.Request.Context()

	completed, err := h.settings.IsSetupCompleted(ctx)
	if err != nil {
		respond.Error(c, err)
		return
	}
	if completed {
		c.JSON(http.StatusConflict, gin.H{"error": "setup has already been completed"})
		return
	}

	hash, found, err := h.settings.GetSetting(ctx, repositories.SettingSetupTokenHash)
	if err != nil {
		respond.Error(c, err)
		return
	}
	if !found {
		c.JSON(http.StatusConflict, gin.H{"error": "no setup token has been issued"})
		return
	}
	if bcrypt.CompareHashAndPassword([]byte(hash), []byte(req.Token)) != nil {
		h.logger.Warn("setup token rejected", "ip", c.ClientIP())
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid setup token"})
		return
	}

	email := strings.ToLower(strings.TrimSpace(req.Email))
	user, err := h.users.UpsertUser(ctx, email, req.Name, nil, nil)
	if err != nil {
		respond.Error(c, err)
		return
	}

	ip := c.ClientIP()
	ua := c.Request.UserAgent()
	reason := "first-run setup"
	if _, _, err := h.access.Grant(ctx, services.GrantInput{
		TargetEmail: email,
		AdminType:   "super_admin",
		GrantedBy:   SetupGrantedBy,
		Reason:      &reason,
		IPAddress:   &ip,
		UserAgent:   &ua,
	}); err != nil {
		respond.Error(c, err)
		return
	}

	// Closing the window before deleting the hash keeps the endpoint shut
	// even if the delete fails.
	if err := h.settings.SetSetting(ctx, repositories.SettingSetupCompleted, "true"); err != nil {
		respond.Error(c, err)
		return
	}
	if err := h.settings.DeleteSetting(ctx, repositories.SettingSetupTokenHash); err != nil {
		h.logger.Error("failed to delete setup token hash", "error", err)
	}

	adminType := "super_admin"
	user.Role = "admin"
	user.AdminType = &adminType

	h.logger.Info("initial super admin created", "email", email)
	c.JSON(http.StatusCreated, gin.H{"user": user})
}
