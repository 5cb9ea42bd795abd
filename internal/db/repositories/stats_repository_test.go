package repositories

import (
	"context"
	"testing"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
)

var statsCols = []string{
	"total_trips", "pending_trips", "optimized_trips", "proposed_groups",
	"approved_groups", "estimated_savings", "pending_join_requests", "total_users",
}

func TestGetDashboardStats_Global(t *testing.T) {
	mock, db := newMockSqlxDB(t)
	repo := NewStatsRepository(db)

	mock.ExpectQuery("SELECT").
		WillReturnRows(sqlmock.NewRows(statsCols).
			AddRow(42, 5, 12, 2, 7, 1250.50, 3, 18))

	stats, err := repo.GetDashboardStats(context.Background(), nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if stats.TotalTrips != 42 || stats.EstimatedSavings != 1250.50 {
		t.Errorf("stats = %+v", stats)
	}
}

func TestGetDashboardStats_LocationScoped(t *testing.T) {
	mock, db := newMockSqlxDB(t)
	repo := NewStatsRepository(db)
	locID := uuid.New()

	mock.ExpectQuery("SELECT").
		WithArgs(locID).
		WillReturnRows(sqlmock.NewRows(statsCols).
			AddRow(10, 1, 4, 2, 7, 1250.50, 1, 18))

	stats, err := repo.GetDashboardStats(context.Background(), &locID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if stats.TotalTrips != 10 {
		t.Errorf("total trips = %d, want 10", stats.TotalTrips)
	}
}

func TestGetTripsPerDay(t *testing.T) {
	mock, db := newMockSqlxDB(t)
	repo := NewStatsRepository(db)

	mock.ExpectQuery("SELECT to_char").
		WithArgs(30).
		WillReturnRows(sqlmock.NewRows([]string{"day", "count"}).
			AddRow("2026-08-30", 4).
			AddRow("2026-08-31", 7))

	buckets, err := repo.GetTripsPerDay(context.Background(), 30, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(buckets) != 2 || buckets[1].Count != 7 {
		t.Errorf("buckets = %+v", buckets)
	}
}
