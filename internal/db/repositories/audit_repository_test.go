package repositories

import (
	"context"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"

	"github.com/NganNgoVoThanh/trips-management/internal/db/models"
)

var auditCols = []string{
	"id", "user_id", "actor_email", "action",
	"resource_type", "resource_id", "metadata", "ip_address", "user_agent", "created_at",
}

func newAuditRepo(t *testing.T) (*AuditRepository, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return NewAuditRepository(db), mock
}

func sampleAuditRow() *sqlmock.Rows {
	return sqlmock.NewRows(auditCols).
		AddRow(uuid.New(), uuid.New(), "alice@example.com", "trip.create",
			"trip", uuid.New(), []byte(`{"key":"val"}`), "1.2.3.4", "curl/8.0", time.Now())
}

func TestCreateAuditLog_Success(t *testing.T) {
	repo, mock := newAuditRepo(t)
	mock.ExpectExec("INSERT INTO audit_logs").
		WillReturnResult(sqlmock.NewResult(1, 1))

	uid := uuid.New()
	rid := uuid.New()
	log := &models.AuditLog{
		UserID:       &uid,
		ActorEmail:   strPtr("alice@example.com"),
		Action:       "trip.create",
		ResourceType: strPtr("trip"),
		ResourceID:   &rid,
		IPAddress:    strPtr("1.2.3.4"),
		UserAgent:    strPtr("curl/8.0"),
	}
	if err := repo.CreateAuditLog(context.Background(), log); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestCreateAuditLog_WithMetadata(t *testing.T) {
	repo, mock := newAuditRepo(t)
	mock.ExpectExec("INSERT INTO audit_logs").
		WillReturnResult(sqlmock.NewResult(1, 1))

	log := &models.AuditLog{
		Action:   "group.approve",
		Metadata: map[string]interface{}{"member_count": 3},
	}
	if err := repo.CreateAuditLog(context.Background(), log); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestCreateAuditLog_DBError(t *testing.T) {
	repo, mock := newAuditRepo(t)
	mock.ExpectExec("INSERT INTO audit_logs").WillReturnError(errDB)

	log := &models.AuditLog{Action: "trip.create"}
	if err := repo.CreateAuditLog(context.Background(), log); err == nil {
		t.Error("expected error, got nil")
	}
}

func TestListAuditLogs_NoFilters(t *testing.T) {
	repo, mock := newAuditRepo(t)
	mock.ExpectQuery("SELECT COUNT.*FROM audit_logs").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))
	mock.ExpectQuery("SELECT id.*FROM audit_logs").
		WillReturnRows(sampleAuditRow())

	logs, total, err := repo.ListAuditLogs(context.Background(), AuditFilters{}, 10, 0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if total != 1 || len(logs) != 1 {
		t.Errorf("total = %d len = %d, want 1/1", total, len(logs))
	}
}

func TestListAuditLogs_WithFilters(t *testing.T) {
	repo, mock := newAuditRepo(t)
	action := "trip.create"
	resourceType := "trip"

	mock.ExpectQuery("SELECT COUNT.*FROM audit_logs.*action.*resource_type").
		WithArgs(action, resourceType).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))
	mock.ExpectQuery("SELECT id.*FROM audit_logs.*action.*resource_type").
		WithArgs(action, resourceType, 10, 0).
		WillReturnRows(sampleAuditRow())

	_, total, err := repo.ListAuditLogs(context.Background(), AuditFilters{
		Action:       &action,
		ResourceType: &resourceType,
	}, 10, 0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if total != 1 {
		t.Errorf("total = %d, want 1", total)
	}
}
