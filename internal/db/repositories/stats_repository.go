// stats_repository.go implements StatsRepository, aggregating counts for the
// admin dashboard. Location admins see only their own site's numbers.
package repositories

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
)

// StatsRepository handles dashboard aggregation queries
type StatsRepository struct {
	db *sqlx.DB
}

// NewStatsRepository creates a new StatsRepository
func NewStatsRepository(db *sqlx.DB) *StatsRepository {
	return &StatsRepository{db: db}
}

// DashboardStats is the admin dashboard summary
type DashboardStats struct {
	TotalTrips          int     `json:"total_trips" db:"total_trips"`
	PendingTrips        int     `json:"pending_trips" db:"pending_trips"`
	OptimizedTrips      int     `json:"optimized_trips" db:"optimized_trips"`
	ProposedGroups      int     `json:"proposed_groups" db:"proposed_groups"`
	ApprovedGroups      int     `json:"approved_groups" db:"approved_groups"`
	EstimatedSavings    float64 `json:"estimated_savings" db:"estimated_savings"`
	PendingJoinRequests int     `json:"pending_join_requests" db:"pending_join_requests"`
	TotalUsers          int     `json:"total_users" db:"total_users"`
}

// GetDashboardStats aggregates the dashboard counters. When locationID is set
// the trip and join request numbers are restricted to that departure location.
func (r *StatsRepository) GetDashboardStats(ctx context.Context, locationID *uuid.UUID) (*DashboardStats, error) {
	tripScope := ``
	joinScope := ``
	args := make([]interface{}, 0, 1)
	if locationID != nil {
		tripScope = ` AND departure_location_id = $1`
		joinScope = ` AND location_id = $1`
		args = append(args, *locationID)
	}

	query := `
		SELECT
			(SELECT COUNT(*) FROM trips WHERE data_type = 'raw'` + tripScope + `) AS total_trips,
			(SELECT COUNT(*) FROM trips WHERE data_type = 'raw'
				AND status IN ('pending_approval', 'pending_urgent')` + tripScope + `) AS pending_trips,
			(SELECT COUNT(*) FROM trips WHERE data_type = 'final'` + tripScope + `) AS optimized_trips,
			(SELECT COUNT(*) FROM optimization_groups WHERE status = 'proposed') AS proposed_groups,
			(SELECT COUNT(*) FROM optimization_groups WHERE status = 'approved') AS approved_groups,
			(SELECT COALESCE(SUM(estimated_savings), 0) FROM optimization_groups
				WHERE status = 'approved') AS estimated_savings,
			(SELECT COUNT(*) FROM join_requests WHERE status = 'pending'` + joinScope + `) AS pending_join_requests,
			(SELECT COUNT(*) FROM users) AS total_users
	`

	var stats DashboardStats
	if err := r.db.GetContext(ctx, &stats, query, args...); err != nil {
		return nil, fmt.Errorf("failed to aggregate dashboard stats: %w", err)
	}
	return &stats, nil
}

// TripsPerDay is one bucket of the booking volume time series
type TripsPerDay struct {
	Day   string `json:"day" db:"day"`
	Count int    `json:"count" db:"count"`
}

// GetTripsPerDay returns daily raw trip submission counts over the last N days
func (r *StatsRepository) GetTripsPerDay(ctx context.Context, days int, locationID *uuid.UUID) ([]TripsPerDay, error) {
	scope := ``
	args := []interface{}{days}
	if locationID != nil {
		scope = ` AND departure_location_id = $2`
		args = append(args, *locationID)
	}

	query := `
		SELECT to_char(created_at::date, 'YYYY-MM-DD') AS day, COUNT(*) AS count
		FROM trips
		WHERE data_type = 'raw' AND created_at >= now() - ($1 || ' days')::interval` + scope + `
		GROUP BY created_at::date
		ORDER BY created_at::date ASC
	`

	buckets := make([]TripsPerDay, 0)
	if err := r.db.SelectContext(ctx, &buckets, query, args...); err != nil {
		return nil, fmt.Errorf("failed to aggregate trips per day: %w", err)
	}
	return buckets, nil
}
