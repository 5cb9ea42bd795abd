package admin

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

var auditSQLCols = []string{
	"id", "user_id", "actor_email", "action", "resource_type", "resource_id",
	"metadata", "ip_address", "user_agent", "created_at",
}

func auditRow(action, resourceType string) *sqlmock.Rows {
	return sqlmock.NewRows(auditSQLCols).AddRow(
		uuid.New(), uuid.New(), "admin@example.com", action, resourceType, uuid.New().String(),
		[]byte(`{"status":200}`), "10.0.0.1", "test-agent", time.Now(),
	)
}

func newAuditRouter(t *testing.T) (sqlmock.Sqlmock, *gin.Engine) {
	t.Helper()
	db, mock := newMockDB(t)
	h := NewAuditLogHandlers(db)

	r := gin.New()
	r.Use(injectUser(superAdmin("root@example.com")))
	r.GET("/admin/audit-logs", h.List)
	return mock, r
}

func TestListAuditLogs_ActionFilter(t *testing.T) {
	mock, r := newAuditRouter(t)

	mock.ExpectQuery("SELECT COUNT").WithArgs("trip.approve").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))
	mock.ExpectQuery("SELECT id, user_id, actor_email").WithArgs("trip.approve", 50, 0).
		WillReturnRows(auditRow("trip.approve", "trip"))

	w := httptest.NewRecorder()
	req := httptest.NewRequest("GET", "/admin/audit-logs?action=trip.approve", nil)
	r.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200, body %s", w.Code, w.Body.String())
	}
	resp := getJSON(t, w)
	if resp["total"] != float64(1) {
		t.Errorf("total = %v, want 1", resp["total"])
	}
	logs, ok := resp["audit_logs"].([]interface{})
	if !ok || len(logs) != 1 {
		t.Fatalf("audit_logs = %v, want one entry", resp["audit_logs"])
	}
	entry := logs[0].(map[string]interface{})
	if entry["action"] != "trip.approve" {
		t.Errorf("action = %v, want trip.approve", entry["action"])
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unmet expectations: %v", err)
	}
}

func TestListAuditLogs_DateWindow(t *testing.T) {
	mock, r := newAuditRouter(t)

	start := time.Now().Add(-24 * time.Hour).UTC()
	end := time.Now().UTC()
	mock.ExpectQuery("SELECT COUNT").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))
	mock.ExpectQuery("SELECT id, user_id, actor_email").
		WillReturnRows(auditRow("session.create", "session"))

	w := httptest.NewRecorder()
	req := httptest.NewRequest("GET",
		"/admin/audit-logs?start_date="+start.Format(time.RFC3339)+"&end_date="+end.Format(time.RFC3339), nil)
	r.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200, body %s", w.Code, w.Body.String())
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unmet expectations: %v", err)
	}
}

func TestListAuditLogs_InvalidUserID(t *testing.T) {
	_, r := newAuditRouter(t)

	w := httptest.NewRecorder()
	req := httptest.NewRequest("GET", "/admin/audit-logs?user_id=not-a-uuid", nil)
	r.ServeHTTP(w, req)

	if w.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400, body %s", w.Code, w.Body.String())
	}
}

func TestListAuditLogs_InvalidStartDate(t *testing.T) {
	_, r := newAuditRouter(t)

	w := httptest.NewRecorder()
	req := httptest.NewRequest("GET", "/admin/audit-logs?start_date=yesterday", nil)
	r.ServeHTTP(w, req)

	if w.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400, body %s", w.Code, w.Body.String())
	}
}
