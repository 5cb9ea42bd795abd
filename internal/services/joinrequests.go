// joinrequests.go implements the JoinRequestsService: employees asking to
// ride along on an existing trip and the admin workflow that decides them.
package services

import (
	"context"
	"database/sql"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/NganNgoVoThanh/trips-management/internal/db/models"
	"github.com/NganNgoVoThanh/trips-management/internal/db/repositories"
)

// JoinRequestsService handles ride-along request operations
type JoinRequestsService struct {
	requests *repositories.JoinRequestRepository
	trips    *repositories.TripRepository
	logger   *slog.Logger
}

// NewJoinRequestsService creates a new JoinRequestsService
func NewJoinRequestsService(db *sql.DB, sqlxDB *sqlx.DB, logger *slog.Logger) *JoinRequestsService {
	return &JoinRequestsService{
		requests: repositories.NewJoinRequestRepository(sqlxDB),
		trips:    repositories.NewTripRepository(db),
		logger:   logger,
	}
}

// CreateJoinRequestInput is the payload for a new ride-along request
type CreateJoinRequestInput struct {
	TripID    uuid.UUID
	Requester *models.User
	Reason    *string
}

// CreateJoinRequest validates and stores a pending request. The trip's
// departure location is snapshotted onto the request for admin scoping.
func (s *JoinRequestsService) CreateJoinRequest(ctx context.Context, input CreateJoinRequestInput) (*models.JoinRequest, error) {
	trip, err := s.trips.GetTrip(ctx, input.TripID)
	if err != nil {
		return nil, err
	}
	if trip == nil {
		return nil, ErrNotFound
	}
	if trip.DataType != models.DataTypeRaw {
		return nil, validationError("join requests target original bookings only")
	}
	if trip.IsTerminal() {
		return nil, conflictError("trip is no longer active")
	}
	if trip.DepartureTime.Before(time.Now()) {
		return nil, conflictError("trip has already departed")
	}
	if trip.UserEmail == input.Requester.Email {
		return nil, validationError("cannot request to join your own trip")
	}

	existing, err := s.requests.GetPendingByTripAndRequester(ctx, input.TripID, input.Requester.ID)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, conflictError("you already have a pending request for this trip")
	}

	req := &models.JoinRequest{
		TripID:              input.TripID,
		LocationID:          &trip.DepartureLocationID,
		RequesterID:         input.Requester.ID,
		RequesterEmail:      input.Requester.Email,
		RequesterName:       input.Requester.Name,
		RequesterRole:       input.Requester.Role,
		RequesterDepartment: input.Requester.Department,
		Reason:              input.Reason,
	}
	if err := s.requests.Create(ctx, req); err != nil {
		return nil, err
	}

	s.logger.Info("join request created", "request_id", req.ID, "trip_id", input.TripID, "requester", input.Requester.Email)
	return req, nil
}

// GetJoinRequest returns a request visible to the actor: the requester, the
// trip owner, or an admin within scope
func (s *JoinRequestsService) GetJoinRequest(ctx context.Context, actor Actor, id uuid.UUID) (*models.JoinRequest, error) {
	req, err := s.requests.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if req == nil {
		return nil, ErrNotFound
	}
	if req.RequesterEmail == actor.Email {
		return req, nil
	}
	trip, err := s.trips.GetTrip(ctx, req.TripID)
	if err != nil {
		return nil, err
	}
	if trip != nil && trip.UserEmail == actor.Email {
		return req, nil
	}
	if actor.IsAdmin && (actor.ScopeLocationID == nil ||
		(req.LocationID != nil && *req.LocationID == *actor.ScopeLocationID)) {
		return req, nil
	}
	return nil, forbiddenError("request belongs to another user")
}

// ListForTrip returns requests against a trip, visible to the trip owner and admins
func (s *JoinRequestsService) ListForTrip(ctx context.Context, actor Actor, tripID uuid.UUID) ([]models.JoinRequest, error) {
	trip, err := s.trips.GetTrip(ctx, tripID)
	if err != nil {
		return nil, err
	}
	if trip == nil {
		return nil, ErrNotFound
	}
	if !actor.canSee(trip) {
		return nil, forbiddenError("trip belongs to another user")
	}
	return s.requests.ListByTrip(ctx, tripID)
}

// ListMine returns the actor's own requests
func (s *JoinRequestsService) ListMine(ctx context.Context, actor Actor) ([]models.JoinRequest, error) {
	return s.requests.ListByRequester(ctx, actor.UserID)
}

// ListAll returns requests for the admin view, pinned to the actor's location scope
func (s *JoinRequestsService) ListAll(ctx context.Context, actor Actor, status *string, limit, offset int) ([]models.JoinRequest, int, error) {
	if status != nil {
		switch *status {
		case models.JoinRequestStatusPending, models.JoinRequestStatusApproved,
			models.JoinRequestStatusRejected, models.JoinRequestStatusCancelled:
		default:
			return nil, 0, validationError("unknown join request status")
		}
	}
	return s.requests.List(ctx, status, actor.ScopeLocationID, limit, offset)
}

// ApproveJoinRequest moves a pending request to approved
func (s *JoinRequestsService) ApproveJoinRequest(ctx context.Context, actor Actor, id uuid.UUID, notes *string) (*models.JoinRequest, error) {
	return s.decide(ctx, actor, id, models.JoinRequestStatusApproved, notes)
}

// RejectJoinRequest moves a pending request to rejected. Rejection always
// carries a note back to the requester.
func (s *JoinRequestsService) RejectJoinRequest(ctx context.Context, actor Actor, id uuid.UUID, notes *string) (*models.JoinRequest, error) {
	if notes == nil || *notes == "" {
		return nil, validationError("rejection requires a note")
	}
	return s.decide(ctx, actor, id, models.JoinRequestStatusRejected, notes)
}

func (s *JoinRequestsService) decide(ctx context.Context, actor Actor, id uuid.UUID, status string, notes *string) (*models.JoinRequest, error) {
	req, err := s.requests.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if req == nil {
		return nil, ErrNotFound
	}
	if actor.ScopeLocationID != nil &&
		(req.LocationID == nil || *req.LocationID != *actor.ScopeLocationID) {
		return nil, forbiddenError("request is outside your location scope")
	}

	affected, err := s.requests.Decide(ctx, id, actor.UserID, status, notes)
	if err != nil {
		return nil, err
	}
	if affected == 0 {
		return nil, conflictError("request is already decided")
	}

	req.Status = status
	req.AdminNotes = notes
	s.logger.Info("join request decided", "request_id", id, "status", status, "admin", actor.Email)
	return req, nil
}

// CancelJoinRequest lets a requester withdraw their own pending request
func (s *JoinRequestsService) CancelJoinRequest(ctx context.Context, actor Actor, id uuid.UUID) error {
	affected, err := s.requests.Cancel(ctx, id, actor.UserID)
	if err != nil {
		return err
	}
	if affected == 0 {
		req, err := s.requests.GetByID(ctx, id)
		if err != nil {
			return err
		}
		if req == nil {
			return ErrNotFound
		}
		if req.RequesterID != actor.UserID {
			return forbiddenError("request belongs to another user")
		}
		return conflictError("request is already decided")
	}
	return nil
}
