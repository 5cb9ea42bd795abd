// users.go implements admin handlers for listing and inspecting user accounts.
package admin

import (
	"database/sql"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/NganNgoVoThanh/trips-management/internal/api/respond"
	"github.com/NganNgoVoThanh/trips-management/internal/db/repositories"
)

// UserHandlers handles administrative user operations
type UserHandlers struct {
	userRepo *repositories.UserRepository
}

// NewUserHandlers creates a new user handlers instance
func NewUserHandlers(db *sql.DB) *UserHandlers {
	return &UserHandlers{userRepo: repositories.NewUserRepository(db)}
}

// @Summary      List users
// @Description  List user accounts, newest first.
// @Tags         Users
// @Security     Bearer
// @Produce      json
// @Param        limit   query  int  false  "Page size"
// @Param        offset  query  int  false  "Page offset"
// @Success      200  {object}  map[string]interface{}  "users, total, limit, offset"
// @Router       /api/v1/admin/users [get]
// List returns user accounts.
// GET /api/v1/admin/users
func (h *UserHandlers) List(c *gin.Context) {
	limit, offset := pagination(c)

	users, total, err := h.userRepo.ListUsers(c.Request.Context(), limit, offset)
	if err != nil {
		respond.Error(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"users":  users,
		"total":  total,
		"limit":  limit,
		"offset": offset,
	})
}

// @Summary      Get user
// @Description  Retrieve a single user account by ID.
// @Tags         Users
// @Security     Bearer
// @Produce      json
// @Param        id  path  string  true  "User ID"
// @Success      200  {object}  models.User
// @Failure      404  {object}  map[string]interface{}  "User not found"
// @Router       /api/v1/admin/users/{id} [get]
// Get retrieves a user account.
// GET /api/v1/admin/users/:id
func (h *UserHandlers) Get(c *gin.Context) {
	userID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid user id"})
		return
	}

	user, err := h.userRepo.GetUserByID(c.Request.Context(), userID)
	if err != nil {
		respond.Error(c, err)
		return
	}
	if user == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "user not found"})
		return
	}
	c.JSON(http.StatusOK, user)
}
