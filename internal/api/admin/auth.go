// auth.go implements session handlers. Login hands the IdP assertion to the
// configured identity verifier, provisions the account on first sight, applies
// any pending admin grant, and issues a JWT.
package admin

import (
	"database/sql"
	"errors"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/NganNgoVoThanh/trips-management/internal/api/respond"
	"github.com/NganNgoVoThanh/trips-management/internal/auth"
	"github.com/NganNgoVoThanh/trips-management/internal/config"
	"github.com/NganNgoVoThanh/trips-management/internal/db/repositories"
	"github.com/NganNgoVoThanh/trips-management/internal/middleware"
	"github.com/NganNgoVoThanh/trips-management/internal/services"
)

// AuthHandlers handles login, token refresh, and session introspection
type AuthHandlers struct {
	cfg      *config.Config
	verifier auth.IdentityVerifier
	userRepo *repositories.UserRepository
	access   *services.AdminAccessService
	logger   *slog.Logger
}

// NewAuthHandlers creates a new auth handlers instance
func NewAuthHandlers(cfg *config.Config, db *sql.DB, verifier auth.IdentityVerifier, logger *slog.Logger) *AuthHandlers {
	return &AuthHandlers{
		cfg:      cfg,
		verifier: verifier,
		userRepo: repositories.NewUserRepository(db),
		access:   services.NewAdminAccessService(db, logger),
		logger:   logger,
	}
}

type loginRequest struct {
	Assertion string `json:"assertion" binding:"required"`
}

// @Summary      Login
// @Description  Exchange a corporate IdP assertion for a session token. The account is provisioned on first login and any pending admin grant for the email is applied.
// @Tags         Auth
// @Accept       json
// @Produce      json
// @Param        body  body  object  true  "assertion: opaque IdP assertion"
// @Success      200  {object}  map[string]interface{}  "token, user"
// @Failure      401  {object}  map[string]interface{}  "Assertion could not be verified"
// @Router       /api/v1/auth/login [post]
// Login exchanges an IdP assertion for a JWT.
// POST /api/v1/auth/login
func (h *AuthHandlers) Login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	identity, err := h.verifier.Verify(c.Request.Context(), req.Assertion)
	if err != nil {
		if errors.Is(err, auth.ErrAssertionInvalid) {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "identity assertion could not be verified"})
		} else {
			h.logger.Error("identity verification failed", "error", err)
			c.JSON(http.StatusUnauthorized, gin.H{"error": "login failed"})
		}
		return
	}

	var department, employeeID *string
	if identity.Department != "" {
		department = &identity.Department
	}
	if identity.EmployeeID != "" {
		employeeID = &identity.EmployeeID
	}

	user, err := h.userRepo.UpsertUser(c.Request.Context(), identity.Email, identity.Name, department, employeeID)
	if err != nil {
		respond.Error(c, err)
		return
	}

	// Pending grants and revocations take effect here, so role changes land
	// on the next login even if the holder never made another request.
	user, err = h.access.ApplyGrantOnLogin(c.Request.Context(), user)
	if err != nil {
		respond.Error(c, err)
		return
	}

	token, err := auth.GenerateJWT(user.ID.String(), user.Email, h.cfg.Auth.SessionTTL)
	if err != nil {
		respond.Error(c, err)
		return
	}

	h.logger.Info("user logged in", "email", user.Email, "role", user.Role)
	c.JSON(http.StatusOK, gin.H{"token": token, "user": user})
}

// @Summary      Refresh token
// @Description  Issue a fresh session token for the authenticated user.
// @Tags         Auth
// @Security     Bearer
// @Produce      json
// @Success      200  {object}  map[string]interface{}  "token"
// @Failure      401  {object}  map[string]interface{}  "Unauthorized"
// @Router       /api/v1/auth/refresh [post]
// Refresh issues a new JWT for the current session.
// POST /api/v1/auth/refresh
func (h *AuthHandlers) Refresh(c *gin.Context) {
	user, ok := middleware.CurrentUser(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Authentication required"})
		return
	}

	token, err := auth.GenerateJWT(user.ID.String(), user.Email, h.cfg.Auth.SessionTTL)
	if err != nil {
		respond.Error(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"token": token})
}

// @Summary      Current user
// @Description  Return the authenticated user's account, including role and admin scope.
// @Tags         Auth
// @Security     Bearer
// @Produce      json
// @Success      200  {object}  models.User
// @Failure      401  {object}  map[string]interface{}  "Unauthorized"
// @Router       /api/v1/auth/me [get]
// Me returns the authenticated user.
// GET /api/v1/auth/me
func (h *AuthHandlers) Me(c *gin.Context) {
	user, ok := middleware.CurrentUser(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Authentication required"})
		return
	}
	c.JSON(http.StatusOK, user)
}
