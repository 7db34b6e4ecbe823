package scheduler

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/aristath/appraiser/internal/database"
)

// snapshotRetention is how long stale cache snapshots are kept before pruning.
const snapshotRetention = 24 * time.Hour

// MaintenanceJob checkpoints WAL files and prunes expired cache snapshots.
type MaintenanceJob struct {
	cache   *database.DB
	reports *database.DB
	log     zerolog.Logger
}

// NewMaintenanceJob builds the maintenance job.
func NewMaintenanceJob(cache, reports *database.DB, log zerolog.Logger) *MaintenanceJob {
	return &MaintenanceJob{
		cache:   cache,
		reports: reports,
		log:     log.With().Str("component", "db_maintenance").Logger(),
	}
}

// Name implements Job.
func (j *MaintenanceJob) Name() string {
	return "db_maintenance"
}

// Run implements Job.
func (j *MaintenanceJob) Run() error {
	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	pruned, err := j.cache.PruneBefore(ctx, time.Now().Add(-snapshotRetention))
	if err != nil {
		return err
	}
	if pruned > 0 {
		j.log.Info().Int64("snapshots", pruned).Msg("Pruned stale cache snapshots")
	}

	for _, db := range []*database.DB{j.cache, j.reports} {
		if err := db.WALCheckpoint(""); err != nil {
			return err
		}
	}
	return nil
}
