// admin_grant_repository.go implements AdminGrantRepository, providing database
// queries for persisted admin role assignments and their revocation history.
package repositories

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"

	"github.com/NganNgoVoThanh/trips-management/internal/db/models"
)

// AdminGrantRepository handles admin grant database operations
type AdminGrantRepository struct {
	db DBTX
}

// NewAdminGrantRepository creates a new AdminGrantRepository
func NewAdminGrantRepository(db DBTX) *AdminGrantRepository {
	return &AdminGrantRepository{db: db}
}

const adminGrantColumns = `id, user_email, admin_type, location_id, granted_by, reason,
		ip_address, user_agent, revoked_at, revoked_by, created_at`

func scanAdminGrant(scanner interface{ Scan(...interface{}) error }) (*models.AdminGrant, error) {
	grant := &models.AdminGrant{}
	err := scanner.Scan(
		&grant.ID,
		&grant.UserEmail,
		&grant.AdminType,
		&grant.LocationID,
		&grant.GrantedBy,
		&grant.Reason,
		&grant.IPAddress,
		&grant.UserAgent,
		&grant.RevokedAt,
		&grant.RevokedBy,
		&grant.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return grant, nil
}

// CreateGrant inserts a new admin grant
func (r *AdminGrantRepository) CreateGrant(ctx context.Context, grant *models.AdminGrant) error {
	if grant.ID == uuid.Nil {
		grant.ID = uuid.New()
	}
	grant.CreatedAt = time.Now()

	query := `
		INSERT INTO admin_grants (id, user_email, admin_type, location_id, granted_by, reason,
			ip_address, user_agent, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`
	_, err := r.db.ExecContext(ctx, query,
		grant.ID,
		grant.UserEmail,
		grant.AdminType,
		grant.LocationID,
		grant.GrantedBy,
		grant.Reason,
		grant.IPAddress,
		grant.UserAgent,
		grant.CreatedAt,
	)
	return err
}

// GetActiveGrantByEmail retrieves the current unrevoked grant for an email
func (r *AdminGrantRepository) GetActiveGrantByEmail(ctx context.Context, email string) (*models.AdminGrant, error) {
	query := `SELECT ` + adminGrantColumns + ` FROM admin_grants
		WHERE user_email = $1 AND revoked_at IS NULL
		ORDER BY created_at DESC LIMIT 1`

	grant, err := scanAdminGrant(r.db.QueryRowContext(ctx, query, email))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return grant, nil
}

// RevokeGrants marks all active grants for an email as revoked. The rows stay
// in place for the audit trail.
func (r *AdminGrantRepository) RevokeGrants(ctx context.Context, email, revokedBy string) (int64, error) {
	query := `
		UPDATE admin_grants
		SET revoked_at = $1, revoked_by = $2
		WHERE user_email = $3 AND revoked_at IS NULL
	`
	result, err := r.db.ExecContext(ctx, query, time.Now(), revokedBy, email)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

// ListGrants retrieves grants, optionally only active ones, newest first
func (r *AdminGrantRepository) ListGrants(ctx context.Context, activeOnly bool, limit, offset int) ([]*models.AdminGrant, int, error) {
	countQuery := `SELECT COUNT(*) FROM admin_grants`
	query := `SELECT ` + adminGrantColumns + ` FROM admin_grants`
	if activeOnly {
		countQuery += ` WHERE revoked_at IS NULL`
		query += ` WHERE revoked_at IS NULL`
	}

	var total int
	if err := r.db.QueryRowContext(ctx, countQuery).Scan(&total); err != nil {
		return nil, 0, err
	}

	query += ` ORDER BY created_at DESC LIMIT $1 OFFSET $2`
	rows, err := r.db.QueryContext(ctx, query, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	grants := make([]*models.AdminGrant, 0)
	for rows.Next() {
		grant, err := scanAdminGrant(rows)
		if err != nil {
			return nil, 0, err
		}
		grants = append(grants, grant)
	}
	return grants, total, rows.Err()
}
