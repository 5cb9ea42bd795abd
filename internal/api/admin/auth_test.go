package admin

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/NganNgoVoThanh/trips-management/internal/auth"
	"github.com/NganNgoVoThanh/trips-management/internal/config"
	"github.com/NganNgoVoThanh/trips-management/internal/db/models"
)

// verifierStub stands in for the corporate IdP.
type verifierStub struct {
	identity *auth.ExternalIdentity
	err      error
}

func (v *verifierStub) Verify(_ context.Context, _ string) (*auth.ExternalIdentity, error) {
	if v.err != nil {
		return nil, v.err
	}
	return v.identity, nil
}

func newAuthRouter(t *testing.T, verifier auth.IdentityVerifier, sessionUser *models.User) (sqlmock.Sqlmock, *gin.Engine) {
	t.Helper()
	db, mock := newMockDB(t)

	cfg := &config.Config{}
	cfg.Auth.SessionTTL = time.Hour
	h := NewAuthHandlers(cfg, db, verifier, testLogger())

	r := gin.New()
	r.Use(injectUser(sessionUser))
	r.POST("/auth/login", h.Login)
	r.POST("/auth/refresh", h.Refresh)
	r.GET("/auth/me", h.Me)
	return mock, r
}

// ---------------------------------------------------------------------------
// Login
// ---------------------------------------------------------------------------

func TestLogin_Success(t *testing.T) {
	userID := uuid.New()
	stub := &verifierStub{identity: &auth.ExternalIdentity{
		Email: "alice@example.com",
		Name:  "Alice",
	}}
	mock, r := newAuthRouter(t, stub, nil)

	// Upsert returns the stored account, then the grant lookup comes back empty.
	mock.ExpectQuery("INSERT INTO users").
		WillReturnRows(userRow(userID, "alice@example.com", "user"))
	mock.ExpectQuery("SELECT id, user_email, admin_type").WithArgs("alice@example.com").
		WillReturnRows(sqlmock.NewRows(grantSQLCols))

	w := doJSON(r, "POST", "/auth/login", map[string]interface{}{"assertion": "alice@example.com|Alice"})

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200, body %s", w.Code, w.Body.String())
	}
	resp := getJSON(t, w)
	token, _ := resp["token"].(string)
	if token == "" {
		t.Fatal("response carries no token")
	}
	claims, err := auth.ValidateJWT(token)
	if err != nil {
		t.Fatalf("issued token does not validate: %v", err)
	}
	if claims.Email != "alice@example.com" || claims.UserID != userID.String() {
		t.Errorf("claims = %s/%s, want alice@example.com/%s", claims.Email, claims.UserID, userID)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unmet expectations: %v", err)
	}
}

func TestLogin_AppliesPendingGrant(t *testing.T) {
	userID := uuid.New()
	locID := uuid.New()
	stub := &verifierStub{identity: &auth.ExternalIdentity{
		Email: "carol@example.com",
		Name:  "Carol",
	}}
	mock, r := newAuthRouter(t, stub, nil)

	mock.ExpectQuery("INSERT INTO users").
		WillReturnRows(userRow(userID, "carol@example.com", "user"))
	mock.ExpectQuery("SELECT id, user_email, admin_type").WithArgs("carol@example.com").
		WillReturnRows(grantRow("carol@example.com", "location_admin", &locID))
	mock.ExpectExec("UPDATE users").WillReturnResult(sqlmock.NewResult(0, 1))

	w := doJSON(r, "POST", "/auth/login", map[string]interface{}{"assertion": "carol@example.com"})

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200, body %s", w.Code, w.Body.String())
	}
	resp := getJSON(t, w)
	user, ok := resp["user"].(map[string]interface{})
	if !ok {
		t.Fatalf("response carries no user: %s", w.Body.String())
	}
	if user["role"] != "admin" || user["admin_type"] != "location_admin" {
		t.Errorf("user = %v/%v, want admin/location_admin", user["role"], user["admin_type"])
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unmet expectations: %v", err)
	}
}

func TestLogin_StripsRevokedRole(t *testing.T) {
	userID := uuid.New()
	stub := &verifierStub{identity: &auth.ExternalIdentity{
		Email: "dave@example.com",
		Name:  "Dave",
	}}
	mock, r := newAuthRouter(t, stub, nil)

	// The account is still marked admin but no active grant backs it.
	mock.ExpectQuery("INSERT INTO users").
		WillReturnRows(userRow(userID, "dave@example.com", "admin"))
	mock.ExpectQuery("SELECT id, user_email, admin_type").WithArgs("dave@example.com").
		WillReturnRows(sqlmock.NewRows(grantSQLCols))
	mock.ExpectExec("UPDATE users").WillReturnResult(sqlmock.NewResult(0, 1))

	w := doJSON(r, "POST", "/auth/login", map[string]interface{}{"assertion": "dave@example.com"})

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200, body %s", w.Code, w.Body.String())
	}
	resp := getJSON(t, w)
	user := resp["user"].(map[string]interface{})
	if user["role"] != "user" {
		t.Errorf("role = %v, want user", user["role"])
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unmet expectations: %v", err)
	}
}

func TestLogin_InvalidAssertion(t *testing.T) {
	stub := &verifierStub{err: auth.ErrAssertionInvalid}
	_, r := newAuthRouter(t, stub, nil)

	w := doJSON(r, "POST", "/auth/login", map[string]interface{}{"assertion": "garbage"})

	if w.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401, body %s", w.Code, w.Body.String())
	}
}

func TestLogin_MissingAssertion(t *testing.T) {
	_, r := newAuthRouter(t, &verifierStub{}, nil)

	w := doJSON(r, "POST", "/auth/login", map[string]interface{}{})

	if w.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400, body %s", w.Code, w.Body.String())
	}
}

// ---------------------------------------------------------------------------
// Refresh / Me
// ---------------------------------------------------------------------------

func TestRefresh_IssuesNewToken(t *testing.T) {
	user := regularUser("alice@example.com")
	_, r := newAuthRouter(t, &verifierStub{}, user)

	w := doJSON(r, "POST", "/auth/refresh", nil)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200, body %s", w.Code, w.Body.String())
	}
	resp := getJSON(t, w)
	token, _ := resp["token"].(string)
	claims, err := auth.ValidateJWT(token)
	if err != nil {
		t.Fatalf("refreshed token does not validate: %v", err)
	}
	if claims.Email != user.Email {
		t.Errorf("claims email = %s, want %s", claims.Email, user.Email)
	}
}

func TestRefresh_Unauthenticated(t *testing.T) {
	_, r := newAuthRouter(t, &verifierStub{}, nil)

	w := doJSON(r, "POST", "/auth/refresh", nil)

	if w.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401, body %s", w.Code, w.Body.String())
	}
}

func TestMe_ReturnsSessionUser(t *testing.T) {
	user := superAdmin("root@example.com")
	_, r := newAuthRouter(t, &verifierStub{}, user)

	w := httptest.NewRecorder()
	req := httptest.NewRequest("GET", "/auth/me", nil)
	r.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200, body %s", w.Code, w.Body.String())
	}
	resp := getJSON(t, w)
	if resp["email"] != user.Email {
		t.Errorf("email = %v, want %s", resp["email"], user.Email)
	}
	if resp["admin_type"] != "super_admin" {
		t.Errorf("admin_type = %v, want super_admin", resp["admin_type"])
	}
}
