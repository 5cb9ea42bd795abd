// location_repository.go implements LocationRepository for the company site registry.
package repositories

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"

	"github.com/NganNgoVoThanh/trips-management/internal/db/models"
)

// LocationRepository handles location database operations
type LocationRepository struct {
	db DBTX
}

// NewLocationRepository creates a new LocationRepository
func NewLocationRepository(db DBTX) *LocationRepository {
	return &LocationRepository{db: db}
}

const locationColumns = `id, code, name, address, created_at, updated_at`

func scanLocation(scanner interface{ Scan(...interface{}) error }) (*models.Location, error) {
	loc := &models.Location{}
	err := scanner.Scan(&loc.ID, &loc.Code, &loc.Name, &loc.Address, &loc.CreatedAt, &loc.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return loc, nil
}

// CreateLocation inserts a new location
func (r *LocationRepository) CreateLocation(ctx context.Context, loc *models.Location) error {
	if loc.ID == uuid.Nil {
		loc.ID = uuid.New()
	}
	now := time.Now()
	loc.CreatedAt = now
	loc.UpdatedAt = now

	query := `
		INSERT INTO locations (id, code, name, address, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`
	_, err := r.db.ExecContext(ctx, query, loc.ID, loc.Code, loc.Name, loc.Address, loc.CreatedAt, loc.UpdatedAt)
	return err
}

// GetLocation retrieves a location by ID
func (r *LocationRepository) GetLocation(ctx context.Context, locationID uuid.UUID) (*models.Location, error) {
	query := `SELECT ` + locationColumns + ` FROM locations WHERE id = $1`

	loc, err := scanLocation(r.db.QueryRowContext(ctx, query, locationID))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return loc, nil
}

// GetLocationByCode retrieves a location by its short code
func (r *LocationRepository) GetLocationByCode(ctx context.Context, code string) (*models.Location, error) {
	query := `SELECT ` + locationColumns + ` FROM locations WHERE code = $1`

	loc, err := scanLocation(r.db.QueryRowContext(ctx, query, code))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return loc, nil
}

// ListLocations retrieves all locations ordered by code
func (r *LocationRepository) ListLocations(ctx context.Context) ([]*models.Location, error) {
	query := `SELECT ` + locationColumns + ` FROM locations ORDER BY code ASC`

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	locations := make([]*models.Location, 0)
	for rows.Next() {
		loc, err := scanLocation(rows)
		if err != nil {
			return nil, err
		}
		locations = append(locations, loc)
	}
	return locations, rows.Err()
}

// UpdateLocation updates a location's name and address
func (r *LocationRepository) UpdateLocation(ctx context.Context, loc *models.Location) error {
	loc.UpdatedAt = time.Now()
	query := `UPDATE locations SET name = $1, address = $2, updated_at = $3 WHERE id = $4`
	result, err := r.db.ExecContext(ctx, query, loc.Name, loc.Address, loc.UpdatedAt, loc.ID)
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
