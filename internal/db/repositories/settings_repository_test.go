package repositories

import (
	"context"
	"testing"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
)

func newSettingsRepo(t *testing.T) (*SettingsRepository, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return NewSettingsRepository(db), mock
}

func TestGetSetting_Found(t *testing.T) {
	repo, mock := newSettingsRepo(t)
	mock.ExpectQuery("SELECT value FROM system_settings").
		WithArgs(SettingSetupCompleted).
		WillReturnRows(sqlmock.NewRows([]string{"value"}).AddRow("true"))

	value, found, err := repo.GetSetting(context.Background(), SettingSetupCompleted)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !found || value != "true" {
		t.Errorf("value = %q found = %v, want true/true", value, found)
	}
}

func TestGetSetting_Missing(t *testing.T) {
	repo, mock := newSettingsRepo(t)
	mock.ExpectQuery("SELECT value FROM system_settings").
		WillReturnRows(sqlmock.NewRows([]string{"value"}))

	_, found, err := repo.GetSetting(context.Background(), "nope")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if found {
		t.Error("missing key reported as found")
	}
}

func TestSetSetting(t *testing.T) {
	repo, mock := newSettingsRepo(t)
	mock.ExpectExec("INSERT INTO system_settings.*ON CONFLICT").
		WillReturnResult(sqlmock.NewResult(1, 1))

	if err := repo.SetSetting(context.Background(), SettingSetupTokenHash, "$2a$10$hash"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestIsSetupCompleted(t *testing.T) {
	repo, mock := newSettingsRepo(t)
	mock.ExpectQuery("SELECT value FROM system_settings").
		WillReturnRows(sqlmock.NewRows([]string{"value"}).AddRow("false"))

	done, err := repo.IsSetupCompleted(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if done {
		t.Error("setup reported completed with value false")
	}
}
