package repositories

import (
	"context"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"

	"github.com/NganNgoVoThanh/trips-management/internal/db/models"
)

var joinRequestCols = []string{
	"id", "trip_id", "location_id", "requester_id", "requester_email",
	"requester_name", "requester_role", "requester_department", "reason",
	"status", "admin_notes", "decided_by", "created_at", "decided_at",
}

func newJoinRequestRepo(t *testing.T) (*JoinRequestRepository, sqlmock.Sqlmock) {
	t.Helper()
	mock, db := newMockSqlxDB(t)
	return NewJoinRequestRepository(db), mock
}

func sampleJoinRequestRow(id uuid.UUID, status string) *sqlmock.Rows {
	return sqlmock.NewRows(joinRequestCols).
		AddRow(id, uuid.New(), uuid.New(), uuid.New(), "bob@example.com",
			"Bob Tran", "user", "Sales", "same client visit", status, nil, nil, time.Now(), nil)
}

func TestJoinRequestCreate(t *testing.T) {
	repo, mock := newJoinRequestRepo(t)
	mock.ExpectExec("INSERT INTO join_requests").
		WillReturnResult(sqlmock.NewResult(1, 1))

	req := &models.JoinRequest{
		TripID:         uuid.New(),
		RequesterID:    uuid.New(),
		RequesterEmail: "bob@example.com",
		RequesterName:  "Bob Tran",
		RequesterRole:  "user",
	}
	if err := repo.Create(context.Background(), req); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if req.Status != models.JoinRequestStatusPending {
		t.Errorf("status = %q, want pending", req.Status)
	}
}

func TestJoinRequestGetByID_NotFound(t *testing.T) {
	repo, mock := newJoinRequestRepo(t)
	mock.ExpectQuery("SELECT id.*FROM join_requests WHERE id").
		WillReturnRows(sqlmock.NewRows(joinRequestCols))

	req, err := repo.GetByID(context.Background(), uuid.New())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if req != nil {
		t.Errorf("expected nil request, got %+v", req)
	}
}

func TestJoinRequestDecide_Pending(t *testing.T) {
	repo, mock := newJoinRequestRepo(t)
	mock.ExpectExec("UPDATE join_requests.*status = 'pending'").
		WillReturnResult(sqlmock.NewResult(0, 1))

	affected, err := repo.Decide(context.Background(), uuid.New(), uuid.New(),
		models.JoinRequestStatusApproved, strPtr("seat available"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if affected != 1 {
		t.Errorf("affected = %d, want 1", affected)
	}
}

func TestJoinRequestDecide_AlreadyDecided(t *testing.T) {
	repo, mock := newJoinRequestRepo(t)
	mock.ExpectExec("UPDATE join_requests.*status = 'pending'").
		WillReturnResult(sqlmock.NewResult(0, 0))

	affected, err := repo.Decide(context.Background(), uuid.New(), uuid.New(),
		models.JoinRequestStatusRejected, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if affected != 0 {
		t.Error("decided request should not match the conditional update")
	}
}

func TestJoinRequestCancel_WrongRequester(t *testing.T) {
	repo, mock := newJoinRequestRepo(t)
	mock.ExpectExec("UPDATE join_requests.*SET status = 'cancelled'").
		WillReturnResult(sqlmock.NewResult(0, 0))

	affected, err := repo.Cancel(context.Background(), uuid.New(), uuid.New())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if affected != 0 {
		t.Error("cancel by non-owner should not match any row")
	}
}

func TestJoinRequestList_StatusAndLocation(t *testing.T) {
	repo, mock := newJoinRequestRepo(t)
	status := models.JoinRequestStatusPending
	locID := uuid.New()

	mock.ExpectQuery("SELECT COUNT.*FROM join_requests.*status.*location_id").
		WithArgs(status, locID).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))
	mock.ExpectQuery("SELECT id.*FROM join_requests.*status.*location_id").
		WithArgs(status, locID, 20, 0).
		WillReturnRows(sampleJoinRequestRow(uuid.New(), status))

	requests, total, err := repo.List(context.Background(), &status, &locID, 20, 0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if total != 1 || len(requests) != 1 {
		t.Errorf("total = %d len = %d, want 1/1", total, len(requests))
	}
}
