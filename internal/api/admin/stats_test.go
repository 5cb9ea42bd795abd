package admin

import (
	"net/http"
	"net/http/httptest"
	"testing"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/NganNgoVoThanh/trips-management/internal/db/models"
)

var dashboardSQLCols = []string{
	"total_trips", "pending_trips", "optimized_trips", "proposed_groups",
	"approved_groups", "estimated_savings", "pending_join_requests", "total_users",
}

func newStatsRouter(t *testing.T, actor *models.User) (sqlmock.Sqlmock, *gin.Engine) {
	t.Helper()
	db, mock := newMockDB(t)
	h := NewStatsHandlers(sqlx.NewDb(db, "postgres"))

	r := gin.New()
	r.Use(injectUser(actor))
	r.GET("/admin/stats/dashboard", h.Dashboard)
	r.GET("/admin/stats/trips-per-day", h.TripsPerDay)
	return mock, r
}

func TestDashboard_SuperAdminSeesEverything(t *testing.T) {
	mock, r := newStatsRouter(t, superAdmin("root@example.com"))

	mock.ExpectQuery("SELECT").
		WillReturnRows(sqlmock.NewRows(dashboardSQLCols).
			AddRow(42, 5, 12, 2, 7, 350.5, 3, 18))

	w := httptest.NewRecorder()
	req := httptest.NewRequest("GET", "/admin/stats/dashboard", nil)
	r.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200, body %s", w.Code, w.Body.String())
	}
	resp := getJSON(t, w)
	if resp["total_trips"] != float64(42) {
		t.Errorf("total_trips = %v, want 42", resp["total_trips"])
	}
	if resp["estimated_savings"] != 350.5 {
		t.Errorf("estimated_savings = %v, want 350.5", resp["estimated_savings"])
	}
}

func TestDashboard_LocationAdminScoped(t *testing.T) {
	locID := uuid.New()
	mock, r := newStatsRouter(t, locationAdmin("hcm-admin@example.com", locID))

	mock.ExpectQuery("SELECT").WithArgs(locID).
		WillReturnRows(sqlmock.NewRows(dashboardSQLCols).
			AddRow(10, 2, 4, 2, 7, 350.5, 1, 18))

	w := httptest.NewRecorder()
	req := httptest.NewRequest("GET", "/admin/stats/dashboard", nil)
	r.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200, body %s", w.Code, w.Body.String())
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unmet expectations: %v", err)
	}
}

func TestDashboard_Unauthenticated(t *testing.T) {
	_, r := newStatsRouter(t, nil)

	w := httptest.NewRecorder()
	req := httptest.NewRequest("GET", "/admin/stats/dashboard", nil)
	r.ServeHTTP(w, req)

	if w.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401, body %s", w.Code, w.Body.String())
	}
}

func TestTripsPerDay_DefaultWindow(t *testing.T) {
	mock, r := newStatsRouter(t, superAdmin("root@example.com"))

	mock.ExpectQuery("SELECT to_char").WithArgs(30).
		WillReturnRows(sqlmock.NewRows([]string{"day", "count"}).
			AddRow("2026-08-30", 4).
			AddRow("2026-08-31", 7))

	w := httptest.NewRecorder()
	req := httptest.NewRequest("GET", "/admin/stats/trips-per-day", nil)
	r.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200, body %s", w.Code, w.Body.String())
	}
	resp := getJSON(t, w)
	buckets, ok := resp["buckets"].([]interface{})
	if !ok || len(buckets) != 2 {
		t.Fatalf("buckets = %v, want two entries", resp["buckets"])
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unmet expectations: %v", err)
	}
}

func TestTripsPerDay_CustomWindow(t *testing.T) {
	mock, r := newStatsRouter(t, superAdmin("root@example.com"))

	mock.ExpectQuery("SELECT to_char").WithArgs(7).
		WillReturnRows(sqlmock.NewRows([]string{"day", "count"}))

	w := httptest.NewRecorder()
	req := httptest.NewRequest("GET", "/admin/stats/trips-per-day?days=7", nil)
	r.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200, body %s", w.Code, w.Body.String())
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unmet expectations: %v", err)
	}
}
