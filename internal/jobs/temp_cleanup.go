// temp_cleanup.go implements the TempCleanupJob background job, which
// periodically retires abandoned optimization proposals and expires pending
// trips whose departure time has passed. Stale proposals are force-rejected so
// their member trips become available for grouping again; the age threshold
// and run interval come from the optimizer configuration. State lives entirely
// in the database, so the job is safe to run on every instance.
package jobs

import (
	"context"
	"log/slog"
	"time"

	"github.com/NganNgoVoThanh/trips-management/internal/config"
	"github.com/NganNgoVoThanh/trips-management/internal/db/repositories"
	"github.com/NganNgoVoThanh/trips-management/internal/services"
)

// TempCleanupJob periodically removes stale proposal data and expires
// past-departure pending trips.
type TempCleanupJob struct {
	optimizer *services.OptimizerService
	tripRepo  *repositories.TripRepository
	interval  time.Duration
	logger    *slog.Logger
	stopChan  chan struct{}
}

// NewTempCleanupJob creates a new TempCleanupJob.
// cfg.CleanupIntervalHours controls how often the job runs (default 24h).
func NewTempCleanupJob(
	optimizer *services.OptimizerService,
	tripRepo *repositories.TripRepository,
	cfg *config.OptimizerConfig,
	logger *slog.Logger,
) *TempCleanupJob {
	hours := cfg.CleanupIntervalHours
	if hours <= 0 {
		hours = 24
	}
	return &TempCleanupJob{
		optimizer: optimizer,
		tripRepo:  tripRepo,
		interval:  time.Duration(hours) * time.Hour,
		logger:    logger,
		stopChan:  make(chan struct{}),
	}
}

// Start begins the background cleanup loop. It runs once immediately, then
// repeats on the configured interval. The loop exits when ctx is cancelled or
// Stop() is called.
func (j *TempCleanupJob) Start(ctx context.Context) {
	ticker := time.NewTicker(j.interval)
	defer ticker.Stop()

	j.logger.Info("temp cleanup job started", "interval", j.interval)

	j.runOnce(ctx)

	for {
		select {
		case <-ticker.C:
			j.runOnce(ctx)
		case <-j.stopChan:
			j.logger.Info("temp cleanup job stopped")
			return
		case <-ctx.Done():
			j.logger.Info("temp cleanup job context cancelled")
			return
		}
	}
}

// Stop signals the background loop to exit.
func (j *TempCleanupJob) Stop() {
	close(j.stopChan)
}

// runOnce performs a single cleanup pass. Failures are logged and retried on
// the next tick.
func (j *TempCleanupJob) runOnce(ctx context.Context) {
	removed, err := j.optimizer.CleanupStaleTemp(ctx)
	if err != nil {
		j.logger.Error("stale proposal cleanup failed", "error", err)
	} else if removed > 0 {
		j.logger.Info("stale proposal cleanup complete", "temp_trips_removed", removed)
	}

	expired, err := j.tripRepo.ExpirePastPendingTrips(ctx, time.Now())
	if err != nil {
		j.logger.Error("pending trip expiry failed", "error", err)
	} else if expired > 0 {
		j.logger.Info("expired pending trips past departure", "count", expired)
	}
}
