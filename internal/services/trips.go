// trips.go implements the TripsService: employee trip submission and the
// admin approval workflow over RAW records.
package services

import (
	"context"
	"database/sql"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/NganNgoVoThanh/trips-management/internal/db/models"
	"github.com/NganNgoVoThanh/trips-management/internal/db/repositories"
)

// Trips departing within this window skip the normal approval queue and are
// flagged for urgent handling.
const urgentWindow = 24 * time.Hour

// TripsService handles trip booking operations
type TripsService struct {
	trips     *repositories.TripRepository
	locations *repositories.LocationRepository
	logger    *slog.Logger
}

// NewTripsService creates a new TripsService
func NewTripsService(db *sql.DB, logger *slog.Logger) *TripsService {
	return &TripsService{
		trips:     repositories.NewTripRepository(db),
		locations: repositories.NewLocationRepository(db),
		logger:    logger,
	}
}

// CreateTripInput is the payload for submitting a trip
type CreateTripInput struct {
	UserID                *uuid.UUID
	UserEmail             string
	DepartureLocationID   uuid.UUID
	DestinationLocationID uuid.UUID
	DepartureDate         time.Time
	DepartureTime         time.Time
	EstimatedCost         *float64
	VehicleType           *string
}

// CreateTrip validates and stores a new RAW trip. Trips leaving within the
// urgent window start as pending_urgent instead of pending_approval.
func (s *TripsService) CreateTrip(ctx context.Context, input CreateTripInput) (*models.Trip, error) {
	if input.UserEmail == "" {
		return nil, validationError("user email is required")
	}
	if input.DepartureLocationID == input.DestinationLocationID {
		return nil, validationError("departure and destination must differ")
	}
	now := time.Now()
	if input.DepartureTime.Before(now) {
		return nil, validationError("departure time is in the past")
	}

	for _, locID := range []uuid.UUID{input.DepartureLocationID, input.DestinationLocationID} {
		loc, err := s.locations.GetLocation(ctx, locID)
		if err != nil {
			return nil, err
		}
		if loc == nil {
			return nil, validationError("unknown location")
		}
	}

	status := models.TripStatusPendingApproval
	if input.DepartureTime.Sub(now) < urgentWindow {
		status = models.TripStatusPendingUrgent
	}

	trip := &models.Trip{
		UserID:                input.UserID,
		UserEmail:             input.UserEmail,
		DepartureLocationID:   input.DepartureLocationID,
		DestinationLocationID: input.DestinationLocationID,
		DepartureDate:         input.DepartureDate,
		DepartureTime:         input.DepartureTime,
		Status:                status,
		DataType:              models.DataTypeRaw,
		EstimatedCost:         input.EstimatedCost,
		VehicleType:           input.VehicleType,
	}
	if err := s.trips.CreateTrip(ctx, trip); err != nil {
		return nil, err
	}

	s.logger.Info("trip created", "trip_id", trip.ID, "user_email", trip.UserEmail, "status", trip.Status)
	return trip, nil
}

// Actor describes who is performing a trips operation
type Actor struct {
	UserID          uuid.UUID
	Email           string
	IsAdmin         bool
	IsSuperAdmin    bool
	ScopeLocationID *uuid.UUID
}

// canSee reports whether the actor may read a trip. Owners always can,
// super admins always can, location admins only within their site.
func (a Actor) canSee(trip *models.Trip) bool {
	if trip.UserEmail == a.Email {
		return true
	}
	if !a.IsAdmin {
		return false
	}
	if a.ScopeLocationID == nil {
		return true
	}
	return trip.DepartureLocationID == *a.ScopeLocationID
}

// GetTrip returns a trip the actor is allowed to see
func (s *TripsService) GetTrip(ctx context.Context, actor Actor, tripID uuid.UUID) (*models.Trip, error) {
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
	return trip, nil
}

// ListTrips returns trips visible to the actor. Regular users see their own
// bookings; location admins are pinned to their site.
func (s *TripsService) ListTrips(ctx context.Context, actor Actor, filters repositories.TripFilters, limit, offset int) ([]*models.Trip, int, error) {
	if !actor.IsAdmin {
		filters.UserEmail = &actor.Email
	} else if actor.ScopeLocationID != nil {
		filters.DepartureLocationID = actor.ScopeLocationID
	}
	return s.trips.ListTrips(ctx, filters, limit, offset)
}

// approveTargets are the statuses an admin may move a pending trip into
var approveTargets = map[string]bool{
	models.TripStatusApproved:     true,
	models.TripStatusApprovedSolo: true,
	models.TripStatusAutoApproved: true,
}

// ApproveTrip moves a pending trip into an approved status. The second return
// is the status the trip held before the decision.
func (s *TripsService) ApproveTrip(ctx context.Context, actor Actor, tripID uuid.UUID, target string) (*models.Trip, string, error) {
	if target == "" {
		target = models.TripStatusApproved
	}
	if !approveTargets[target] {
		return nil, "", validationError("invalid approval status")
	}
	return s.decideTrip(ctx, actor, tripID, target)
}

// RejectTrip moves a pending trip to rejected. The second return is the status
// the trip held before the decision.
func (s *TripsService) RejectTrip(ctx context.Context, actor Actor, tripID uuid.UUID) (*models.Trip, string, error) {
	return s.decideTrip(ctx, actor, tripID, models.TripStatusRejected)
}

func (s *TripsService) decideTrip(ctx context.Context, actor Actor, tripID uuid.UUID, target string) (*models.Trip, string, error) {
	trip, err := s.trips.GetTrip(ctx, tripID)
	if err != nil {
		return nil, "", err
	}
	if trip == nil {
		return nil, "", ErrNotFound
	}
	if actor.ScopeLocationID != nil && trip.DepartureLocationID != *actor.ScopeLocationID {
		return nil, "", forbiddenError("trip is outside your location scope")
	}
	if trip.Status != models.TripStatusPendingApproval && trip.Status != models.TripStatusPendingUrgent {
		return nil, "", conflictError("trip is not pending approval")
	}

	if _, err := s.trips.UpdateTripStatus(ctx, tripID, target); err != nil {
		return nil, "", err
	}
	prev := trip.Status
	trip.Status = target

	s.logger.Info("trip decided", "trip_id", tripID, "status", target, "admin", actor.Email)
	return trip, prev, nil
}

// CancelTrip lets the owner withdraw a trip that has not been optimized yet.
// The second return is the status the trip held before cancellation.
func (s *TripsService) CancelTrip(ctx context.Context, actor Actor, tripID uuid.UUID) (*models.Trip, string, error) {
	trip, err := s.trips.GetTrip(ctx, tripID)
	if err != nil {
		return nil, "", err
	}
	if trip == nil {
		return nil, "", ErrNotFound
	}
	if trip.UserEmail != actor.Email && !actor.IsSuperAdmin {
		return nil, "", forbiddenError("only the trip owner can cancel it")
	}
	if trip.IsTerminal() || trip.Status == models.TripStatusOptimized {
		return nil, "", conflictError("trip can no longer be cancelled")
	}
	if trip.Claimed() {
		return nil, "", conflictError("trip is part of a proposed group; reject the group first")
	}

	if _, err := s.trips.UpdateTripStatus(ctx, tripID, models.TripStatusCancelled); err != nil {
		return nil, "", err
	}
	prev := trip.Status
	trip.Status = models.TripStatusCancelled

	s.logger.Info("trip cancelled", "trip_id", tripID, "by", actor.Email)
	return trip, prev, nil
}
