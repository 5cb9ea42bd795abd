// group_repository.go implements GroupRepository, providing database queries
// for optimization groups and their member lists.
package repositories

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/NganNgoVoThanh/trips-management/internal/db/models"
)

// GroupRepository handles optimization group database operations
type GroupRepository struct {
	db DBTX
}

// NewGroupRepository creates a new GroupRepository
func NewGroupRepository(db DBTX) *GroupRepository {
	return &GroupRepository{db: db}
}

// WithTx returns a copy of the repository bound to the given transaction
func (r *GroupRepository) WithTx(tx *sql.Tx) *GroupRepository {
	return &GroupRepository{db: tx}
}

const groupColumns = `id, status, proposed_departure_time, vehicle_type, estimated_savings,
		created_by, approved_by, created_at, decided_at`

func scanGroup(scanner interface{ Scan(...interface{}) error }) (*models.OptimizationGroup, error) {
	group := &models.OptimizationGroup{}
	err := scanner.Scan(
		&group.ID,
		&group.Status,
		&group.ProposedDepartureTime,
		&group.VehicleType,
		&group.EstimatedSavings,
		&group.CreatedBy,
		&group.ApprovedBy,
		&group.CreatedAt,
		&group.DecidedAt,
	)
	if err != nil {
		return nil, err
	}
	return group, nil
}

// CreateGroup inserts a new proposed optimization group
func (r *GroupRepository) CreateGroup(ctx context.Context, group *models.OptimizationGroup) error {
	if group.ID == uuid.Nil {
		group.ID = uuid.New()
	}
	group.Status = models.GroupStatusProposed
	group.CreatedAt = time.Now()

	query := `
		INSERT INTO optimization_groups (id, status, proposed_departure_time, vehicle_type,
			estimated_savings, created_by, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`
	_, err := r.db.ExecContext(ctx, query,
		group.ID,
		group.Status,
		group.ProposedDepartureTime,
		group.VehicleType,
		group.EstimatedSavings,
		group.CreatedBy,
		group.CreatedAt,
	)
	return err
}

// AddMember attaches a trip to a group at the given position
func (r *GroupRepository) AddMember(ctx context.Context, groupID, tripID uuid.UUID, position int) error {
	query := `INSERT INTO optimization_group_members (group_id, trip_id, position) VALUES ($1, $2, $3)`
	_, err := r.db.ExecContext(ctx, query, groupID, tripID, position)
	return err
}

// GetGroup retrieves a group by ID
func (r *GroupRepository) GetGroup(ctx context.Context, groupID uuid.UUID) (*models.OptimizationGroup, error) {
	query := `SELECT ` + groupColumns + ` FROM optimization_groups WHERE id = $1`

	group, err := scanGroup(r.db.QueryRowContext(ctx, query, groupID))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return group, nil
}

// ListGroups retrieves groups, optionally filtered by status, newest first
func (r *GroupRepository) ListGroups(ctx context.Context, status *string, limit, offset int) ([]*models.OptimizationGroup, int, error) {
	countQuery := `SELECT COUNT(*) FROM optimization_groups WHERE 1=1`
	query := `SELECT ` + groupColumns + ` FROM optimization_groups WHERE 1=1`

	args := make([]interface{}, 0)
	paramIndex := 1

	if status != nil {
		cond := fmt.Sprintf(` AND status = $%d`, paramIndex)
		countQuery += cond
		query += cond
		args = append(args, *status)
		paramIndex++
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

	groups := make([]*models.OptimizationGroup, 0)
	for rows.Next() {
		group, err := scanGroup(rows)
		if err != nil {
			return nil, 0, err
		}
		groups = append(groups, group)
	}
	return groups, total, rows.Err()
}

// DecideGroup moves a proposed group to a terminal status. The WHERE clause
// only matches proposed groups, so a zero rows-affected count means the group
// was already decided or does not exist.
func (r *GroupRepository) DecideGroup(ctx context.Context, groupID, decidedBy uuid.UUID, status string) (int64, error) {
	query := `
		UPDATE optimization_groups
		SET status = $1, approved_by = $2, decided_at = $3
		WHERE id = $4 AND status = 'proposed'
	`
	result, err := r.db.ExecContext(ctx, query, status, decidedBy, time.Now(), groupID)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

// ListStaleProposedGroupIDs returns proposed groups created before the cutoff
func (r *GroupRepository) ListStaleProposedGroupIDs(ctx context.Context, cutoff time.Time) ([]uuid.UUID, error) {
	query := `SELECT id FROM optimization_groups WHERE status = 'proposed' AND created_at < $1`

	rows, err := r.db.QueryContext(ctx, query, cutoff)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	ids := make([]uuid.UUID, 0)
	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// MarkStaleRejected force-rejects a stale proposed group during cleanup.
// No approver is recorded; decided_at carries the cleanup time.
func (r *GroupRepository) MarkStaleRejected(ctx context.Context, groupID uuid.UUID) (int64, error) {
	query := `
		UPDATE optimization_groups
		SET status = 'rejected', decided_at = $1
		WHERE id = $2 AND status = 'proposed'
	`
	result, err := r.db.ExecContext(ctx, query, time.Now(), groupID)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

// GetMembers returns a group's member rows ordered by position
func (r *GroupRepository) GetMembers(ctx context.Context, groupID uuid.UUID) ([]*models.GroupMember, error) {
	query := `SELECT group_id, trip_id, position FROM optimization_group_members
		WHERE group_id = $1 ORDER BY position ASC`

	rows, err := r.db.QueryContext(ctx, query, groupID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	members := make([]*models.GroupMember, 0)
	for rows.Next() {
		m := &models.GroupMember{}
		if err := rows.Scan(&m.GroupID, &m.TripID, &m.Position); err != nil {
			return nil, err
		}
		members = append(members, m)
	}
	return members, rows.Err()
}
