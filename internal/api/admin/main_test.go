package admin

import (
	"bytes"
	"database/sql"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/NganNgoVoThanh/trips-management/internal/db/models"
	"github.com/NganNgoVoThanh/trips-management/internal/middleware"
)

func TestMain(m *testing.M) {
	gin.SetMode(gin.TestMode)
	os.Setenv("TMA_JWT_SECRET", "test-jwt-secret-that-is-32-chars!!")
	os.Exit(m.Run())
}

// ---------------------------------------------------------------------------
// Shared test helpers
// ---------------------------------------------------------------------------

var userSQLCols = []string{
	"id", "email", "name", "role", "admin_type", "admin_location_id",
	"department", "employee_id", "created_at", "updated_at",
}

var grantSQLCols = []string{
	"id", "user_email", "admin_type", "location_id", "granted_by", "reason",
	"ip_address", "user_agent", "revoked_at", "revoked_by", "created_at",
}

var locationSQLCols = []string{"id", "code", "name", "address", "created_at", "updated_at"}

func userRow(id uuid.UUID, email, role string) *sqlmock.Rows {
	now := time.Now()
	var adminType interface{}
	if role == "admin" {
		adminType = "super_admin"
	}
	return sqlmock.NewRows(userSQLCols).AddRow(
		id, email, "Test User", role, adminType, nil, nil, nil, now, now,
	)
}

func grantRow(email, adminType string, locationID *uuid.UUID) *sqlmock.Rows {
	now := time.Now()
	return sqlmock.NewRows(grantSQLCols).AddRow(
		uuid.New(), email, adminType, locationID, "root@example.com", nil,
		nil, nil, nil, nil, now,
	)
}

func locationRow(id uuid.UUID, code string) *sqlmock.Rows {
	now := time.Now()
	return sqlmock.NewRows(locationSQLCols).AddRow(id, code, code+" Office", nil, now, now)
}

func superAdmin(email string) *models.User {
	adminType := "super_admin"
	return &models.User{ID: uuid.New(), Email: email, Name: "Root", Role: "admin", AdminType: &adminType}
}

func locationAdmin(email string, locationID uuid.UUID) *models.User {
	adminType := "location_admin"
	return &models.User{
		ID: uuid.New(), Email: email, Name: "Site Admin", Role: "admin",
		AdminType: &adminType, AdminLocationID: &locationID,
	}
}

func regularUser(email string) *models.User {
	return &models.User{ID: uuid.New(), Email: email, Name: "Employee", Role: "user"}
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// injectUser simulates the auth middleware placing the session user into
// the request context.
func injectUser(user *models.User) gin.HandlerFunc {
	return func(c *gin.Context) {
		if user != nil {
			c.Set(middleware.ContextUser, user)
			c.Set(middleware.ContextUserID, user.ID.String())
		}
		c.Next()
	}
}

func newMockDB(t *testing.T) (*sql.DB, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db, mock
}

func jsonBody(v interface{}) *bytes.Buffer {
	b, _ := json.Marshal(v)
	return bytes.NewBuffer(b)
}

func getJSON(t *testing.T, resp *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var m map[string]interface{}
	if err := json.Unmarshal(resp.Body.Bytes(), &m); err != nil {
		t.Fatalf("unmarshal response: %v", err)
	}
	return m
}

func doJSON(r *gin.Engine, method, path string, body interface{}) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	var req *http.Request
	if body != nil {
		req = httptest.NewRequest(method, path, jsonBody(body))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	r.ServeHTTP(w, req)
	return w
}
