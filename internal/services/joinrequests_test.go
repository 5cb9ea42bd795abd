package services

import (
	"context"
	"errors"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/NganNgoVoThanh/trips-management/internal/db/models"
)

var joinRequestCols = []string{
	"id", "trip_id", "location_id", "requester_id", "requester_email",
	"requester_name", "requester_role", "requester_department", "reason",
	"status", "admin_notes", "decided_by", "created_at", "decided_at",
}

func newJoinRequestsService(t *testing.T) (*JoinRequestsService, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	sqlxDB := sqlx.NewDb(db, "postgres")
	t.Cleanup(func() { sqlxDB.Close() })
	return NewJoinRequestsService(db, sqlxDB, testLogger()), mock
}

func sampleRequester() *models.User {
	return &models.User{
		ID:    uuid.New(),
		Email: "bob@example.com",
		Name:  "Bob Tran",
		Role:  "user",
	}
}

func pendingRequestRow(id, requesterID, locationID uuid.UUID) *sqlmock.Rows {
	return sqlmock.NewRows(joinRequestCols).
		AddRow(id, uuid.New(), locationID, requesterID, "bob@example.com",
			"Bob Tran", "user", nil, nil, models.JoinRequestStatusPending,
			nil, nil, time.Now(), nil)
}

func TestCreateJoinRequest_Success(t *testing.T) {
	svc, mock := newJoinRequestsService(t)
	requester := sampleRequester()
	tripID := uuid.New()

	mock.ExpectQuery("SELECT id.*FROM trips WHERE id").
		WillReturnRows(tripRowOwnedBy(tripID, "alice@example.com", models.TripStatusApproved, uuid.New(), nil))
	mock.ExpectQuery("SELECT id.*FROM join_requests.*status = 'pending'").
		WillReturnRows(sqlmock.NewRows(joinRequestCols))
	mock.ExpectExec("INSERT INTO join_requests").
		WillReturnResult(sqlmock.NewResult(1, 1))

	req, err := svc.CreateJoinRequest(context.Background(), CreateJoinRequestInput{
		TripID:    tripID,
		Requester: requester,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if req.Status != models.JoinRequestStatusPending {
		t.Errorf("status = %q, want pending", req.Status)
	}
	if req.LocationID == nil {
		t.Error("location snapshot missing")
	}
}

func TestCreateJoinRequest_OwnTrip(t *testing.T) {
	svc, mock := newJoinRequestsService(t)
	requester := sampleRequester()

	mock.ExpectQuery("SELECT id.*FROM trips WHERE id").
		WillReturnRows(tripRowOwnedBy(uuid.New(), requester.Email, models.TripStatusApproved, uuid.New(), nil))

	_, err := svc.CreateJoinRequest(context.Background(), CreateJoinRequestInput{
		TripID:    uuid.New(),
		Requester: requester,
	})
	if !errors.Is(err, ErrValidation) {
		t.Errorf("err = %v, want ErrValidation", err)
	}
}

func TestCreateJoinRequest_DuplicatePending(t *testing.T) {
	svc, mock := newJoinRequestsService(t)
	requester := sampleRequester()
	tripID := uuid.New()

	mock.ExpectQuery("SELECT id.*FROM trips WHERE id").
		WillReturnRows(tripRowOwnedBy(tripID, "alice@example.com", models.TripStatusApproved, uuid.New(), nil))
	mock.ExpectQuery("SELECT id.*FROM join_requests.*status = 'pending'").
		WillReturnRows(pendingRequestRow(uuid.New(), requester.ID, uuid.New()))

	_, err := svc.CreateJoinRequest(context.Background(), CreateJoinRequestInput{
		TripID:    tripID,
		Requester: requester,
	})
	if !errors.Is(err, ErrConflict) {
		t.Errorf("err = %v, want ErrConflict", err)
	}
}

func TestCreateJoinRequest_TripNotFound(t *testing.T) {
	svc, mock := newJoinRequestsService(t)

	mock.ExpectQuery("SELECT id.*FROM trips WHERE id").
		WillReturnRows(sqlmock.NewRows(tripCols))

	_, err := svc.CreateJoinRequest(context.Background(), CreateJoinRequestInput{
		TripID:    uuid.New(),
		Requester: sampleRequester(),
	})
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("err = %v, want ErrNotFound", err)
	}
}

func TestRejectJoinRequest_RequiresNotes(t *testing.T) {
	svc, _ := newJoinRequestsService(t)
	actor := Actor{UserID: uuid.New(), Email: "admin@example.com", IsAdmin: true}

	_, err := svc.RejectJoinRequest(context.Background(), actor, uuid.New(), nil)
	if !errors.Is(err, ErrValidation) {
		t.Errorf("err = %v, want ErrValidation", err)
	}
}

func TestApproveJoinRequest_Success(t *testing.T) {
	svc, mock := newJoinRequestsService(t)
	reqID := uuid.New()
	actor := Actor{UserID: uuid.New(), Email: "admin@example.com", IsAdmin: true}

	mock.ExpectQuery("SELECT id.*FROM join_requests WHERE id").
		WillReturnRows(pendingRequestRow(reqID, uuid.New(), uuid.New()))
	mock.ExpectExec("UPDATE join_requests.*status = 'pending'").
		WillReturnResult(sqlmock.NewResult(0, 1))

	req, err := svc.ApproveJoinRequest(context.Background(), actor, reqID, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if req.Status != models.JoinRequestStatusApproved {
		t.Errorf("status = %q, want approved", req.Status)
	}
}

func TestApproveJoinRequest_OutOfScope(t *testing.T) {
	svc, mock := newJoinRequestsService(t)
	scope := uuid.New()
	actor := Actor{UserID: uuid.New(), Email: "admin@example.com", IsAdmin: true, ScopeLocationID: &scope}

	mock.ExpectQuery("SELECT id.*FROM join_requests WHERE id").
		WillReturnRows(pendingRequestRow(uuid.New(), uuid.New(), uuid.New()))

	_, err := svc.ApproveJoinRequest(context.Background(), actor, uuid.New(), nil)
	if !errors.Is(err, ErrForbidden) {
		t.Errorf("err = %v, want ErrForbidden", err)
	}
}

func TestApproveJoinRequest_AlreadyDecided(t *testing.T) {
	svc, mock := newJoinRequestsService(t)
	actor := Actor{UserID: uuid.New(), Email: "admin@example.com", IsAdmin: true}

	mock.ExpectQuery("SELECT id.*FROM join_requests WHERE id").
		WillReturnRows(pendingRequestRow(uuid.New(), uuid.New(), uuid.New()))
	mock.ExpectExec("UPDATE join_requests.*status = 'pending'").
		WillReturnResult(sqlmock.NewResult(0, 0))

	_, err := svc.ApproveJoinRequest(context.Background(), actor, uuid.New(), nil)
	if !errors.Is(err, ErrConflict) {
		t.Errorf("err = %v, want ErrConflict", err)
	}
}

func TestCancelJoinRequest_Success(t *testing.T) {
	svc, mock := newJoinRequestsService(t)
	actor := Actor{UserID: uuid.New(), Email: "bob@example.com"}

	mock.ExpectExec("UPDATE join_requests.*SET status = 'cancelled'").
		WillReturnResult(sqlmock.NewResult(0, 1))

	if err := svc.CancelJoinRequest(context.Background(), actor, uuid.New()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestCancelJoinRequest_NotOwner(t *testing.T) {
	svc, mock := newJoinRequestsService(t)
	actor := Actor{UserID: uuid.New(), Email: "mallory@example.com"}

	mock.ExpectExec("UPDATE join_requests.*SET status = 'cancelled'").
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery("SELECT id.*FROM join_requests WHERE id").
		WillReturnRows(pendingRequestRow(uuid.New(), uuid.New(), uuid.New()))

	err := svc.CancelJoinRequest(context.Background(), actor, uuid.New())
	if !errors.Is(err, ErrForbidden) {
		t.Errorf("err = %v, want ErrForbidden", err)
	}
}
