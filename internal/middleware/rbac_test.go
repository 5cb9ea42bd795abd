package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/NganNgoVoThanh/trips-management/internal/db/models"
)

// injectUser is a test middleware that places a user in the context the same
// way AuthMiddleware does, without requiring a token or database.
func injectUser(user *models.User) gin.HandlerFunc {
	return func(c *gin.Context) {
		if user != nil {
			c.Set(ContextUser, user)
			c.Set(ContextUserID, user.ID.String())
		}
		c.Next()
	}
}

func newRBACRouter(user *models.User, guard gin.HandlerFunc) *gin.Engine {
	r := gin.New()
	r.Use(injectUser(user), guard)
	r.GET("/", func(c *gin.Context) { c.Status(http.StatusOK) })
	return r
}

func serveRBAC(r *gin.Engine) int {
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	r.ServeHTTP(w, req)
	return w.Code
}

func regularUser() *models.User {
	return &models.User{ID: uuid.New(), Email: "user@example.com", Role: "user"}
}

func locationAdmin() *models.User {
	adminType := "location_admin"
	locationID := uuid.New()
	return &models.User{
		ID:              uuid.New(),
		Email:           "hcm-admin@example.com",
		Role:            "admin",
		AdminType:       &adminType,
		AdminLocationID: &locationID,
	}
}

func superAdmin() *models.User {
	adminType := "super_admin"
	return &models.User{
		ID:        uuid.New(),
		Email:     "super@example.com",
		Role:      "admin",
		AdminType: &adminType,
	}
}

func TestRequireAdmin_Unauthenticated(t *testing.T) {
	if code := serveRBAC(newRBACRouter(nil, RequireAdmin())); code != http.StatusUnauthorized {
		t.Errorf("status = %d, want 401", code)
	}
}

func TestRequireAdmin_RegularUser(t *testing.T) {
	if code := serveRBAC(newRBACRouter(regularUser(), RequireAdmin())); code != http.StatusForbidden {
		t.Errorf("status = %d, want 403", code)
	}
}

func TestRequireAdmin_LocationAdmin(t *testing.T) {
	if code := serveRBAC(newRBACRouter(locationAdmin(), RequireAdmin())); code != http.StatusOK {
		t.Errorf("status = %d, want 200", code)
	}
}

func TestRequireAdmin_SuperAdmin(t *testing.T) {
	if code := serveRBAC(newRBACRouter(superAdmin(), RequireAdmin())); code != http.StatusOK {
		t.Errorf("status = %d, want 200", code)
	}
}

func TestRequireSuperAdmin_Unauthenticated(t *testing.T) {
	if code := serveRBAC(newRBACRouter(nil, RequireSuperAdmin())); code != http.StatusUnauthorized {
		t.Errorf("status = %d, want 401", code)
	}
}

func TestRequireSuperAdmin_LocationAdmin(t *testing.T) {
	if code := serveRBAC(newRBACRouter(locationAdmin(), RequireSuperAdmin())); code != http.StatusForbidden {
		t.Errorf("status = %d, want 403", code)
	}
}

func TestRequireSuperAdmin_SuperAdmin(t *testing.T) {
	if code := serveRBAC(newRBACRouter(superAdmin(), RequireSuperAdmin())); code != http.StatusOK {
		t.Errorf("status = %d, want 200", code)
	}
}
