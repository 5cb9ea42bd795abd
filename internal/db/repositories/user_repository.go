// user_repository.go implements UserRepository, providing database queries for
// employee accounts, including the login-time upsert and admin role changes.
package repositories

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"

	"github.com/NganNgoVoThanh/trips-management/internal/db/models"
)

// UserRepository handles user database operations
type UserRepository struct {
	db DBTX
}

// NewUserRepository creates a new UserRepository
func NewUserRepository(db DBTX) *UserRepository {
	return &UserRepository{db: db}
}

const userColumns = `id, email, name, role, admin_type, admin_location_id, department,
		employee_id, created_at, updated_at`

func scanUser(scanner interface{ Scan(...interface{}) error }) (*models.User, error) {
	user := &models.User{}
	err := scanner.Scan(
		&user.ID,
		&user.Email,
		&user.Name,
		&user.Role,
		&user.AdminType,
		&user.AdminLocationID,
		&user.Department,
		&user.EmployeeID,
		&user.CreatedAt,
		&user.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return user, nil
}

// GetUserByID retrieves a user by ID
func (r *UserRepository) GetUserByID(ctx context.Context, userID uuid.UUID) (*models.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE id = $1`

	user, err := scanUser(r.db.QueryRowContext(ctx, query, userID))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return user, nil
}

// GetUserByEmail retrieves a user by email
func (r *UserRepository) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE email = $1`

	user, err := scanUser(r.db.QueryRowContext(ctx, query, email))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return user, nil
}

// UpsertUser inserts a user on first login or refreshes their profile fields
// on subsequent logins, returning the stored record. Role and admin scope are
// never touched here; grants are applied separately.
func (r *UserRepository) UpsertUser(ctx context.Context, email, name string, department, employeeID *string) (*models.User, error) {
	query := `
		INSERT INTO users (id, email, name, role, department, employee_id, created_at, updated_at)
		VALUES ($1, $2, $3, 'user', $4, $5, $6, $6)
		ON CONFLICT (email) DO UPDATE
		SET name = EXCLUDED.name,
			department = COALESCE(EXCLUDED.department, users.department),
			employee_id = COALESCE(EXCLUDED.employee_id, users.employee_id),
			updated_at = EXCLUDED.updated_at
		RETURNING ` + userColumns

	return scanUser(r.db.QueryRowContext(ctx, query, uuid.New(), email, name, department, employeeID, time.Now()))
}

// SetAdminRole promotes a user to admin with the given type and scope
func (r *UserRepository) SetAdminRole(ctx context.Context, email, adminType string, locationID *uuid.UUID) (int64, error) {
	query := `
		UPDATE users
		SET role = 'admin', admin_type = $1, admin_location_id = $2, updated_at = $3
		WHERE email = $4
	`
	result, err := r.db.ExecContext(ctx, query, adminType, locationID, time.Now(), email)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

// ClearAdminRole demotes a user back to a regular account
func (r *UserRepository) ClearAdminRole(ctx context.Context, email string) (int64, error) {
	query := `
		UPDATE users
		SET role = 'user', admin_type = NULL, admin_location_id = NULL, updated_at = $1
		WHERE email = $2
	`
	result, err := r.db.ExecContext(ctx, query, time.Now(), email)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

// ListUsers retrieves users ordered by email
func (r *UserRepository) ListUsers(ctx context.Context, limit, offset int) ([]*models.User, int, error) {
	var total int
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM users`).Scan(&total); err != nil {
		return nil, 0, err
	}

	query := `SELECT ` + userColumns + ` FROM users ORDER BY email ASC LIMIT $1 OFFSET $2`
	rows, err := r.db.QueryContext(ctx, query, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	users := make([]*models.User, 0)
	for rows.Next() {
		user, err := scanUser(rows)
		if err != nil {
			return nil, 0, err
		}
		users = append(users, user)
	}
	return users, total, rows.Err()
}
