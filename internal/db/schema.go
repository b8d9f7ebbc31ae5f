package db

import (
	"context"
	"time"

	"github.com/cockroachdb/errors"
)

// JobStats is one job's run counters over one stats period
type JobStats struct {
	StatsPeriodID string
	Job           string
	StartTime     time.Time
	EndTime       time.Time
	Runs          int
	Succeeded     int
	Failed        int
	Coalesced     int
	Rejected      int
	// Durations are in microseconds; nil when no run completed in the period
	MinDuration *int
	MaxDuration *int
	AvgDuration *float64
}

var migrations = []string{
	`CREATE TABLE IF NOT EXISTS job_stats (
		stats_period_id TEXT NOT NULL,
		job TEXT NOT NULL,
		start_time TIMESTAMP NOT NULL,
		end_time TIMESTAMP NOT NULL,
		runs INTEGER NOT NULL DEFAULT 0,
		succeeded INTEGER NOT NULL DEFAULT 0,
		failed INTEGER NOT NULL DEFAULT 0,
		coalesced INTEGER NOT NULL DEFAULT 0,
		rejected INTEGER NOT NULL DEFAULT 0,
		min_duration INTEGER,
		max_duration INTEGER,
		avg_duration REAL,
		PRIMARY KEY (stats_period_id, job)
	)`,
	`CREATE INDEX IF NOT EXISTS idx_job_stats_start_time ON job_stats (start_time)`,
}

// Migrate creates the ledger tables if they do not exist
func (db *DB) Migrate(ctx context.Context) error {
	return db.WithTransaction(ctx, func(tx *Tx) error {
		for i, stmt := range migrations {
			if _, err := tx.ExecContext(ctx, stmt); err != nil {
				return errors.Wrapf(err, "apply migration %d", i)
			}
		}
		return nil
	})
}
