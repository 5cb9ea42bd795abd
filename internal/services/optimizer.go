// optimizer.go implements the OptimizerService: proposing groups of compatible
// trips, approving or rejecting proposals, and cleaning up abandoned ones.
//
// Proposing a group claims its trips with a conditional UPDATE inside a
// transaction. The claim only matches unclaimed raw trips in an eligible
// status, so when two admins race over the same trip exactly one proposal
// commits and the other rolls back with ErrConflict.
package services

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/NganNgoVoThanh/trips-management/internal/db/models"
	"github.com/NganNgoVoThanh/trips-management/internal/db/repositories"
	"github.com/NganNgoVoThanh/trips-management/internal/telemetry"
)

// OptimizerService handles the optimization group lifecycle
type OptimizerService struct {
	db         *sql.DB
	trips      *repositories.TripRepository
	groups     *repositories.GroupRepository
	tempMaxAge time.Duration
	logger     *slog.Logger
}

// NewOptimizerService creates a new OptimizerService
func NewOptimizerService(db *sql.DB, tempMaxAge time.Duration, logger *slog.Logger) *OptimizerService {
	return &OptimizerService{
		db:         db,
		trips:      repositories.NewTripRepository(db),
		groups:     repositories.NewGroupRepository(db),
		tempMaxAge: tempMaxAge,
		logger:     logger,
	}
}

// ProposeGroupInput is the payload for proposing an optimization group
type ProposeGroupInput struct {
	TripIDs          []uuid.UUID
	DepartureTime    time.Time
	VehicleType      string
	EstimatedSavings float64
	CreatedBy        uuid.UUID
}

// ProposeGroup creates a proposed group over a set of compatible raw trips.
// Every trip must be unclaimed, in an eligible status, and share the same
// route and travel date. The whole operation runs in one transaction.
func (s *OptimizerService) ProposeGroup(ctx context.Context, input ProposeGroupInput) (*models.GroupWithMembers, error) {
	if len(input.TripIDs) < 2 {
		return nil, validationError("a group needs at least two trips")
	}
	seen := make(map[uuid.UUID]bool, len(input.TripIDs))
	for _, id := range input.TripIDs {
		if seen[id] {
			return nil, validationError("duplicate trip in group proposal")
		}
		seen[id] = true
	}
	if input.VehicleType == "" {
		return nil, validationError("vehicle type is required")
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	txTrips := s.trips.WithTx(tx)
	txGroups := s.groups.WithTx(tx)

	// Load and validate every candidate before claiming anything.
	candidates := make([]*models.Trip, 0, len(input.TripIDs))
	for _, id := range input.TripIDs {
		trip, err := txTrips.GetTrip(ctx, id)
		if err != nil {
			return nil, err
		}
		if trip == nil {
			return nil, ErrNotFound
		}
		if trip.DataType != models.DataTypeRaw {
			return nil, validationError(fmt.Sprintf("trip %s is not a raw booking", id))
		}
		if !models.GroupEligible(trip.Status) {
			return nil, validationError(fmt.Sprintf("trip %s is not in a groupable status", id))
		}
		if trip.Claimed() {
			return nil, conflictError(fmt.Sprintf("trip %s already belongs to a group", id))
		}
		candidates = append(candidates, trip)
	}
	if err := checkCompatible(candidates); err != nil {
		return nil, err
	}

	group := &models.OptimizationGroup{
		ProposedDepartureTime: input.DepartureTime,
		VehicleType:           input.VehicleType,
		EstimatedSavings:      input.EstimatedSavings,
		CreatedBy:             input.CreatedBy,
	}
	if err := txGroups.CreateGroup(ctx, group); err != nil {
		return nil, err
	}

	// Conditional claim. A shortfall means a concurrent proposal claimed one
	// of our trips between validation and here; roll the whole thing back.
	affected, err := txTrips.ClaimForGroup(ctx, group.ID, input.TripIDs)
	if err != nil {
		return nil, err
	}
	if affected != int64(len(input.TripIDs)) {
		return nil, conflictError("one or more trips were claimed by another group")
	}

	result := &models.GroupWithMembers{OptimizationGroup: *group}
	for i, trip := range candidates {
		if err := txGroups.AddMember(ctx, group.ID, trip.ID, i); err != nil {
			return nil, err
		}
		shadow, err := txTrips.CreateTempShadow(ctx, trip, group.ID, input.DepartureTime, input.VehicleType)
		if err != nil {
			return nil, err
		}
		result.Trips = append(result.Trips, *shadow)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit group proposal: %w", err)
	}

	telemetry.OptimizationGroupsTotal.WithLabelValues("proposed").Inc()
	s.logger.Info("optimization group proposed",
		"group_id", group.ID,
		"trips", len(input.TripIDs),
		"created_by", input.CreatedBy)
	return result, nil
}

// checkCompatible verifies that all trips share a route and travel date
func checkCompatible(trips []*models.Trip) error {
	first := trips[0]
	for _, trip := range trips[1:] {
		if trip.DepartureLocationID != first.DepartureLocationID {
			return validationError("trips depart from different locations")
		}
		if trip.DestinationLocationID != first.DestinationLocationID {
			return validationError("trips have different destinations")
		}
		if !sameDay(trip.DepartureDate, first.DepartureDate) {
			return validationError("trips travel on different dates")
		}
	}
	return nil
}

func sameDay(a, b time.Time) bool {
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	return ay == by && am == bm && ad == bd
}

// ApproveGroup moves a proposed group to approved: temp shadows become the
// final records and the raw originals are marked superseded, all in one
// transaction. Approving an already decided group returns ErrConflict.
func (s *OptimizerService) ApproveGroup(ctx context.Context, groupID, adminID uuid.UUID) (*models.GroupWithMembers, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	txTrips := s.trips.WithTx(tx)
	txGroups := s.groups.WithTx(tx)

	affected, err := txGroups.DecideGroup(ctx, groupID, adminID, models.GroupStatusApproved)
	if err != nil {
		return nil, err
	}
	if affected == 0 {
		return nil, s.decideFailure(ctx, txGroups, groupID)
	}

	promoted, err := txTrips.PromoteTempToFinal(ctx, groupID)
	if err != nil {
		return nil, err
	}
	if promoted == 0 {
		// Proposals always carry at least two shadows; an empty group means
		// the rows were tampered with outside the service.
		return nil, validationError("group has no member trips")
	}
	if _, err := txTrips.SupersedeRawByGroup(ctx, groupID); err != nil {
		return nil, err
	}

	group, err := txGroups.GetGroup(ctx, groupID)
	if err != nil {
		return nil, err
	}
	finals, err := txTrips.ListByGroup(ctx, groupID, models.DataTypeFinal)
	if err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit group approval: %w", err)
	}

	telemetry.OptimizationGroupsTotal.WithLabelValues("approved").Inc()
	s.logger.Info("optimization group approved", "group_id", groupID, "admin_id", adminID)

	result := &models.GroupWithMembers{OptimizationGroup: *group}
	for _, trip := range finals {
		result.Trips = append(result.Trips, *trip)
	}
	return result, nil
}

// RejectGroup moves a proposed group to rejected: temp shadows are deleted
// and the raw trips are released back to the unclaimed pool.
func (s *OptimizerService) RejectGroup(ctx context.Context, groupID, adminID uuid.UUID) (*models.OptimizationGroup, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	txTrips := s.trips.WithTx(tx)
	txGroups := s.groups.WithTx(tx)

	affected, err := txGroups.DecideGroup(ctx, groupID, adminID, models.GroupStatusRejected)
	if err != nil {
		return nil, err
	}
	if affected == 0 {
		return nil, s.decideFailure(ctx, txGroups, groupID)
	}

	if _, err := txTrips.DeleteTempByGroup(ctx, groupID); err != nil {
		return nil, err
	}
	if _, err := txTrips.ReleaseClaims(ctx, groupID); err != nil {
		return nil, err
	}

	group, err := txGroups.GetGroup(ctx, groupID)
	if err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit group rejection: %w", err)
	}

	telemetry.OptimizationGroupsTotal.WithLabelValues("rejected").Inc()
	s.logger.Info("optimization group rejected", "group_id", groupID, "admin_id", adminID)
	return group, nil
}

// decideFailure distinguishes a missing group from an already decided one
func (s *OptimizerService) decideFailure(ctx context.Context, groups *repositories.GroupRepository, groupID uuid.UUID) error {
	group, err := groups.GetGroup(ctx, groupID)
	if err != nil {
		return err
	}
	if group == nil {
		return ErrNotFound
	}
	return conflictError(fmt.Sprintf("group is already %s", group.Status))
}

// GetGroup returns a group with its current member trips. Proposed groups
// carry their temp shadows, approved groups their final records.
func (s *OptimizerService) GetGroup(ctx context.Context, groupID uuid.UUID) (*models.GroupWithMembers, error) {
	group, err := s.groups.GetGroup(ctx, groupID)
	if err != nil {
		return nil, err
	}
	if group == nil {
		return nil, ErrNotFound
	}

	dataType := models.DataTypeTemp
	if group.Status == models.GroupStatusApproved {
		dataType = models.DataTypeFinal
	}
	trips, err := s.trips.ListByGroup(ctx, groupID, dataType)
	if err != nil {
		return nil, err
	}

	result := &models.GroupWithMembers{OptimizationGroup: *group}
	for _, trip := range trips {
		result.Trips = append(result.Trips, *trip)
	}
	return result, nil
}

// ListGroups returns groups filtered by status
func (s *OptimizerService) ListGroups(ctx context.Context, status *string, limit, offset int) ([]*models.OptimizationGroup, int, error) {
	if status != nil {
		switch *status {
		case models.GroupStatusProposed, models.GroupStatusApproved, models.GroupStatusRejected:
		default:
			return nil, 0, validationError("unknown group status")
		}
	}
	return s.groups.ListGroups(ctx, status, limit, offset)
}

// CleanupStaleTemp retires proposals older than the configured maximum age.
// Each stale group is rejected, its temp shadows removed, and its raw trips
// released so they never stay locked behind an abandoned proposal.
func (s *OptimizerService) CleanupStaleTemp(ctx context.Context) (int64, error) {
	cutoff := time.Now().Add(-s.tempMaxAge)

	staleIDs, err := s.groups.ListStaleProposedGroupIDs(ctx, cutoff)
	if err != nil {
		return 0, err
	}

	var cleaned int64
	for _, groupID := range staleIDs {
		deleted, err := s.cleanupGroup(ctx, groupID)
		if err != nil {
			s.logger.Error("failed to clean up stale group", "group_id", groupID, "error", err)
			continue
		}
		cleaned += deleted
	}

	if cleaned > 0 {
		telemetry.TempTripsCleanedTotal.Add(float64(cleaned))
	}
	return cleaned, nil
}

func (s *OptimizerService) cleanupGroup(ctx context.Context, groupID uuid.UUID) (int64, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	txTrips := s.trips.WithTx(tx)
	txGroups := s.groups.WithTx(tx)

	affected, err := txGroups.MarkStaleRejected(ctx, groupID)
	if err != nil {
		return 0, err
	}
	if affected == 0 {
		// decided concurrently, nothing to clean
		return 0, nil
	}

	deleted, err := txTrips.DeleteTempByGroup(ctx, groupID)
	if err != nil {
		return 0, err
	}
	if _, err := txTrips.ReleaseClaims(ctx, groupID); err != nil {
		return 0, err
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("failed to commit stale group cleanup: %w", err)
	}

	s.logger.Info("stale optimization group cleaned up", "group_id", groupID, "temp_trips_deleted", deleted)
	return deleted, nil
}
