// settings_repository.go implements SettingsRepository for the key-value
// system_settings table, including the first-run setup token state.
package repositories

import (
	"context"
	"database/sql"
	"time"
)

// Well-known setting keys.
const (
	SettingSetupTokenHash = "setup_token_hash"
	SettingSetupCompleted = "setup_completed"
)

// SettingsRepository handles system settings database operations
type SettingsRepository struct {
	db DBTX
}

// NewSettingsRepository creates a new SettingsRepository
func NewSettingsRepository(db DBTX) *SettingsRepository {
	return &SettingsRepository{db: db}
}

// GetSetting returns the value for a key, or empty string and false when unset
func (r *SettingsRepository) GetSetting(ctx context.Context, key string) (string, bool, error) {
	var value string
	err := r.db.QueryRowContext(ctx, `SELECT value FROM system_settings WHERE key = $1`, key).Scan(&value)
	if err == sql.ErrNoRows {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return value, true, nil
}

// SetSetting upserts a setting value
func (r *SettingsRepository) SetSetting(ctx context.Context, key, value string) error {
	query := `
		INSERT INTO system_settings (key, value, updated_at)
		VALUES ($1, $2, $3)
		ON CONFLICT (key) DO UPDATE SET value = EXCLUDED.value, updated_at = EXCLUDED.updated_at
	`
	_, err := r.db.ExecContext(ctx, query, key, value, time.Now())
	return err
}

// DeleteSetting removes a setting
func (r *SettingsRepository) DeleteSetting(ctx context.Context, key string) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM system_settings WHERE key = $1`, key)
	return err
}

// IsSetupCompleted reports whether first-run setup has been claimed
func (r *SettingsRepository) IsSetupCompleted(ctx context.Context) (bool, error) {
	value, found, err := r.GetSetting(ctx, SettingSetupCompleted)
	if err != nil {
		return false, err
	}
	return found && value == "true", nil
}
