// join_request_repository.go implements JoinRequestRepository, providing
// database queries for ride-along requests against existing trips.
package repositories

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/NganNgoVoThanh/trips-management/internal/db/models"
)

// JoinRequestRepository handles join request database operations
type JoinRequestRepository struct {
	db *sqlx.DB
}

// NewJoinRequestRepository creates a new JoinRequestRepository
func NewJoinRequestRepository(db *sqlx.DB) *JoinRequestRepository {
	return &JoinRequestRepository{db: db}
}

const joinRequestColumns = `id, trip_id, location_id, requester_id, requester_email,
		requester_name, requester_role, requester_department, reason, status, admin_notes,
		decided_by, created_at, decided_at`

// Create inserts a new pending join request
func (r *JoinRequestRepository) Create(ctx context.Context, req *models.JoinRequest) error {
	if req.ID == uuid.Nil {
		req.ID = uuid.New()
	}
	req.Status = models.JoinRequestStatusPending
	req.CreatedAt = time.Now()

	query := `
		INSERT INTO join_requests (
			id, trip_id, location_id, requester_id, requester_email, requester_name,
			requester_role, requester_department, reason, status, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	`
	_, err := r.db.ExecContext(ctx, query,
		req.ID,
		req.TripID,
		req.LocationID,
		req.RequesterID,
		req.RequesterEmail,
		req.RequesterName,
		req.RequesterRole,
		req.RequesterDepartment,
		req.Reason,
		req.Status,
		req.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create join request: %w", err)
	}
	return nil
}

// GetByID retrieves a join request by ID
func (r *JoinRequestRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.JoinRequest, error) {
	query := `SELECT ` + joinRequestColumns + ` FROM join_requests WHERE id = $1`

	var req models.JoinRequest
	err := r.db.GetContext(ctx, &req, query, id)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get join request: %w", err)
	}
	return &req, nil
}

// GetPendingByTripAndRequester returns the open request a user already has
// against a trip, if any
func (r *JoinRequestRepository) GetPendingByTripAndRequester(ctx context.Context, tripID, requesterID uuid.UUID) (*models.JoinRequest, error) {
	query := `SELECT ` + joinRequestColumns + ` FROM join_requests
		WHERE trip_id = $1 AND requester_id = $2 AND status = 'pending'`

	var req models.JoinRequest
	err := r.db.GetContext(ctx, &req, query, tripID, requesterID)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get pending join request: %w", err)
	}
	return &req, nil
}

// ListByTrip retrieves all requests against a trip, newest first
func (r *JoinRequestRepository) ListByTrip(ctx context.Context, tripID uuid.UUID) ([]models.JoinRequest, error) {
	query := `SELECT ` + joinRequestColumns + ` FROM join_requests
		WHERE trip_id = $1 ORDER BY created_at DESC`

	requests := make([]models.JoinRequest, 0)
	if err := r.db.SelectContext(ctx, &requests, query, tripID); err != nil {
		return nil, fmt.Errorf("failed to list join requests for trip: %w", err)
	}
	return requests, nil
}

// ListByRequester retrieves a user's own requests, newest first
func (r *JoinRequestRepository) ListByRequester(ctx context.Context, requesterID uuid.UUID) ([]models.JoinRequest, error) {
	query := `SELECT ` + joinRequestColumns + ` FROM join_requests
		WHERE requester_id = $1 ORDER BY created_at DESC`

	requests := make([]models.JoinRequest, 0)
	if err := r.db.SelectContext(ctx, &requests, query, requesterID); err != nil {
		return nil, fmt.Errorf("failed to list join requests: %w", err)
	}
	return requests, nil
}

// List retrieves requests for the admin view, optionally filtered by status
// and location scope
func (r *JoinRequestRepository) List(ctx context.Context, status *string, locationID *uuid.UUID, limit, offset int) ([]models.JoinRequest, int, error) {
	countQuery := `SELECT COUNT(*) FROM join_requests WHERE 1=1`
	query := `SELECT ` + joinRequestColumns + ` FROM join_requests WHERE 1=1`

	args := make([]interface{}, 0)
	paramIndex := 1

	if status != nil {
		cond := fmt.Sprintf(` AND status = $%d`, paramIndex)
		countQuery += cond
		query += cond
		args = append(args, *status)
		paramIndex++
	}
	if locationID != nil {
		cond := fmt.Sprintf(` AND location_id = $%d`, paramIndex)
		countQuery += cond
		query += cond
		args = append(args, *locationID)
		paramIndex++
	}

	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("failed to count join requests: %w", err)
	}

	query += fmt.Sprintf(` ORDER BY created_at DESC LIMIT $%d OFFSET $%d`, paramIndex, paramIndex+1)
	args = append(args, limit, offset)

	requests := make([]models.JoinRequest, 0)
	if err := r.db.SelectContext(ctx, &requests, query, args...); err != nil {
		return nil, 0, fmt.Errorf("failed to list join requests: %w", err)
	}
	return requests, total, nil
}

// Decide moves a pending request to approved or rejected. Only pending rows
// match, so the rows-affected count exposes lost races.
func (r *JoinRequestRepository) Decide(ctx context.Context, id, decidedBy uuid.UUID, status string, adminNotes *string) (int64, error) {
	query := `
		UPDATE join_requests
		SET status = $1, admin_notes = $2, decided_by = $3, decided_at = $4
		WHERE id = $5 AND status = 'pending'
	`
	result, err := r.db.ExecContext(ctx, query, status, adminNotes, decidedBy, time.Now(), id)
	if err != nil {
		return 0, fmt.Errorf("failed to decide join request: %w", err)
	}
	return result.RowsAffected()
}

// Cancel lets a requester withdraw their own pending request
func (r *JoinRequestRepository) Cancel(ctx context.Context, id, requesterID uuid.UUID) (int64, error) {
	query := `
		UPDATE join_requests
		SET status = 'cancelled', decided_at = $1
		WHERE id = $2 AND requester_id = $3 AND status = 'pending'
	`
	result, err := r.db.ExecContext(ctx, query, time.Now(), id, requesterID)
	if err != nil {
		return 0, fmt.Errorf("failed to cancel join request: %w", err)
	}
	return result.RowsAffected()
}
