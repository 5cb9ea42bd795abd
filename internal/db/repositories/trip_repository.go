// trip_repository.go implements TripRepository, providing database queries for
// the trip lifecycle: raw submissions, group claims, temp shadow copies, and
// final promotion.
package repositories

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"github.com/NganNgoVoThanh/trips-management/internal/db/models"
)

// TripRepository handles trip database operations
type TripRepository struct {
	db DBTX
}

// NewTripRepository creates a new TripRepository
func NewTripRepository(db DBTX) *TripRepository {
	return &TripRepository{db: db}
}

// WithTx returns a copy of the repository bound to the given transaction
func (r *TripRepository) WithTx(tx *sql.Tx) *TripRepository {
	return &TripRepository{db: tx}
}

const tripColumns = `id, user_id, user_email, departure_location_id, destination_location_id,
		departure_date, departure_time, status, data_type, parent_trip_id, optimized_group_id,
		estimated_cost, actual_cost, vehicle_type, superseded_at, created_at, updated_at`

func scanTrip(scanner interface{ Scan(...interface{}) error }) (*models.Trip, error) {
	trip := &models.Trip{}
	err := scanner.Scan(
		&trip.ID,
		&trip.UserID,
		&trip.UserEmail,
		&trip.DepartureLocationID,
		&trip.DestinationLocationID,
		&trip.DepartureDate,
		&trip.DepartureTime,
		&trip.Status,
		&trip.DataType,
		&trip.ParentTripID,
		&trip.OptimizedGroupID,
		&trip.EstimatedCost,
		&trip.ActualCost,
		&trip.VehicleType,
		&trip.SupersededAt,
		&trip.CreatedAt,
		&trip.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return trip, nil
}

// TripFilters contains filters for listing trips
type TripFilters struct {
	UserEmail           *string
	Status              *string
	DataType            *string
	DepartureLocationID *uuid.UUID
	DepartureAfter      *time.Time
	DepartureBefore     *time.Time
}

// CreateTrip inserts a new trip record
func (r *TripRepository) CreateTrip(ctx context.Context, trip *models.Trip) error {
	if trip.ID == uuid.Nil {
		trip.ID = uuid.New()
	}
	now := time.Now()
	trip.CreatedAt = now
	trip.UpdatedAt = now
	if trip.DataType == "" {
		trip.DataType = models.DataTypeRaw
	}

	query := `
		INSERT INTO trips (id, user_id, user_email, departure_location_id, destination_location_id,
			departure_date, departure_time, status, data_type, parent_trip_id, optimized_group_id,
			estimated_cost, actual_cost, vehicle_type, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16)
	`

	_, err := r.db.ExecContext(ctx, query,
		trip.ID,
		trip.UserID,
		trip.UserEmail,
		trip.DepartureLocationID,
		trip.DestinationLocationID,
		trip.DepartureDate,
		trip.DepartureTime,
		trip.Status,
		trip.DataType,
		trip.ParentTripID,
		trip.OptimizedGroupID,
		trip.EstimatedCost,
		trip.ActualCost,
		trip.VehicleType,
		trip.CreatedAt,
		trip.UpdatedAt,
	)
	return err
}

// GetTrip retrieves a trip by ID
func (r *TripRepository) GetTrip(ctx context.Context, tripID uuid.UUID) (*models.Trip, error) {
	query := `SELECT ` + tripColumns + ` FROM trips WHERE id = $1`

	trip, err := scanTrip(r.db.QueryRowContext(ctx, query, tripID))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return trip, nil
}

// ListTrips retrieves trips matching the given filters, newest first
func (r *TripRepository) ListTrips(ctx context.Context, filters TripFilters, limit, offset int) ([]*models.Trip, int, error) {
	countQuery := `SELECT COUNT(*) FROM trips WHERE 1=1`
	query := `SELECT ` + tripColumns + ` FROM trips WHERE 1=1`

	args := make([]interface{}, 0)
	paramIndex := 1

	addFilter := func(clause string, value interface{}) {
		cond := fmt.Sprintf(clause, paramIndex)
		countQuery += cond
		query += cond
		args = append(args, value)
		paramIndex++
	}

	if filters.UserEmail != nil {
		addFilter(` AND user_email = $%d`, *filters.UserEmail)
	}
	if filters.Status != nil {
		addFilter(` AND status = $%d`, *filters.Status)
	}
	if filters.DataType != nil {
		addFilter(` AND data_type = $%d`, *filters.DataType)
	}
	if filters.DepartureLocationID != nil {
		addFilter(` AND departure_location_id = $%d`, *filters.DepartureLocationID)
	}
	if filters.DepartureAfter != nil {
		addFilter(` AND departure_time >= $%d`, *filters.DepartureAfter)
	}
	if filters.DepartureBefore != nil {
		addFilter(` AND departure_time <= $%d`, *filters.DepartureBefore)
	}

	var total int
	if err := r.db.QueryRowContext(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	query += fmt.Sprintf(` ORDER BY created_at DESC LIMIT $%d OFFSET $%d`, paramIndex, paramIndex+1)
	args = append(args, limit, offset)

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	trips := make([]*models.Trip, 0)
	for rows.Next() {
		trip, err := scanTrip(rows)
		if err != nil {
			return nil, 0, err
		}
		trips = append(trips, trip)
	}
	return trips, total, rows.Err()
}

// UpdateTripStatus sets a trip's status. Returns the number of rows changed
// so callers can detect missing trips.
func (r *TripRepository) UpdateTripStatus(ctx context.Context, tripID uuid.UUID, status string) (int64, error) {
	query := `UPDATE trips SET status = $1, updated_at = $2 WHERE id = $3`
	result, err := r.db.ExecContext(ctx, query, status, time.Now(), tripID)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

// UpdateTrip updates the mutable booking fields of a trip
func (r *TripRepository) UpdateTrip(ctx context.Context, trip *models.Trip) error {
	trip.UpdatedAt = time.Now()
	query := `
		UPDATE trips
		SET departure_location_id = $1, destination_location_id = $2, departure_date = $3,
			departure_time = $4, status = $5, estimated_cost = $6, actual_cost = $7,
			vehicle_type = $8, updated_at = $9
		WHERE id = $10
	`
	result, err := r.db.ExecContext(ctx, query,
		trip.DepartureLocationID,
		trip.DestinationLocationID,
		trip.DepartureDate,
		trip.DepartureTime,
		trip.Status,
		trip.EstimatedCost,
		trip.ActualCost,
		trip.VehicleType,
		trip.UpdatedAt,
		trip.ID,
	)
	if err != nil {
		return err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// ClaimForGroup atomically claims a set of RAW trips for a group. The WHERE
// clause only matches unclaimed raw trips in a claimable status, so the
// rows-affected count tells the caller whether it won every trip. Callers run
// this inside a transaction and roll back when the count falls short.
func (r *TripRepository) ClaimForGroup(ctx context.Context, groupID uuid.UUID, tripIDs []uuid.UUID) (int64, error) {
	query := `
		UPDATE trips
		SET optimized_group_id = $1, updated_at = $2
		WHERE id = ANY($3)
		  AND data_type = 'raw'
		  AND optimized_group_id IS NULL
		  AND status = ANY($4)
	`
	result, err := r.db.ExecContext(ctx, query,
		groupID,
		time.Now(),
		pq.Array(tripIDs),
		pq.Array(models.GroupEligibleStatuses),
	)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

// ReleaseClaims clears the group claim from all RAW trips held by a group
func (r *TripRepository) ReleaseClaims(ctx context.Context, groupID uuid.UUID) (int64, error) {
	query := `
		UPDATE trips
		SET optimized_group_id = NULL, updated_at = $1
		WHERE optimized_group_id = $2 AND data_type = 'raw'
	`
	result, err := r.db.ExecContext(ctx, query, time.Now(), groupID)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

// CreateTempShadow inserts a TEMP copy of a raw trip carrying the group's
// adjusted departure time and vehicle
func (r *TripRepository) CreateTempShadow(ctx context.Context, raw *models.Trip, groupID uuid.UUID, departureTime time.Time, vehicleType string) (*models.Trip, error) {
	shadow := &models.Trip{
		ID:                    uuid.New(),
		UserID:                raw.UserID,
		UserEmail:             raw.UserEmail,
		DepartureLocationID:   raw.DepartureLocationID,
		DestinationLocationID: raw.DestinationLocationID,
		DepartureDate:         raw.DepartureDate,
		DepartureTime:         departureTime,
		Status:                raw.Status,
		DataType:              models.DataTypeTemp,
		ParentTripID:          &raw.ID,
		OptimizedGroupID:      &groupID,
		EstimatedCost:         raw.EstimatedCost,
		VehicleType:           &vehicleType,
	}
	if err := r.CreateTrip(ctx, shadow); err != nil {
		return nil, err
	}
	return shadow, nil
}

// PromoteTempToFinal converts a group's TEMP shadows into FINAL records with
// the optimized status
func (r *TripRepository) PromoteTempToFinal(ctx context.Context, groupID uuid.UUID) (int64, error) {
	query := `
		UPDATE trips
		SET data_type = 'final', status = $1, updated_at = $2
		WHERE optimized_group_id = $3 AND data_type = 'temp'
	`
	result, err := r.db.ExecContext(ctx, query, models.TripStatusOptimized, time.Now(), groupID)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

// DeleteTempByGroup removes all TEMP shadows belonging to a group
func (r *TripRepository) DeleteTempByGroup(ctx context.Context, groupID uuid.UUID) (int64, error) {
	query := `DELETE FROM trips WHERE optimized_group_id = $1 AND data_type = 'temp'`
	result, err := r.db.ExecContext(ctx, query, groupID)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

// SupersedeRawByGroup marks the RAW trips held by a group as replaced by
// their FINAL records. The rows keep their claim so history stays traceable.
func (r *TripRepository) SupersedeRawByGroup(ctx context.Context, groupID uuid.UUID) (int64, error) {
	query := `
		UPDATE trips
		SET status = $1, superseded_at = $2, updated_at = $2
		WHERE optimized_group_id = $3 AND data_type = 'raw'
	`
	result, err := r.db.ExecContext(ctx, query, models.TripStatusOptimized, time.Now(), groupID)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

// ExpirePastPendingTrips moves pending trips whose departure has passed into
// the expired status
func (r *TripRepository) ExpirePastPendingTrips(ctx context.Context, now time.Time) (int64, error) {
	query := `
		UPDATE trips
		SET status = $1, updated_at = $2
		WHERE data_type = 'raw'
		  AND status = ANY($3)
		  AND departure_time < $2
	`
	result, err := r.db.ExecContext(ctx, query,
		models.TripStatusExpired,
		now,
		pq.Array([]string{models.TripStatusPendingApproval, models.TripStatusPendingUrgent}),
	)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

// ListByGroup retrieves all trips of the given data type claimed by a group,
// ordered by departure time
func (r *TripRepository) ListByGroup(ctx context.Context, groupID uuid.UUID, dataType string) ([]*models.Trip, error) {
	query := `SELECT ` + tripColumns + ` FROM trips
		WHERE optimized_group_id = $1 AND data_type = $2
		ORDER BY departure_time ASC`

	rows, err := r.db.QueryContext(ctx, query, groupID, dataType)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	trips := make([]*models.Trip, 0)
	for rows.Next() {
		trip, err := scanTrip(rows)
		if err != nil {
			return nil, err
		}
		trips = append(trips, trip)
	}
	return trips, rows.Err()
}
