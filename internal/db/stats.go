package db

import (
	"context"
	"time"

	"github.com/cockroachdb/errors"
)

const insertJobStats = `
	INSERT INTO job_stats (
		stats_period_id, job, start_time, end_time,
		runs, succeeded, failed, coalesced, rejected,
		min_duration, max_duration, avg_duration
	)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
`

// CreateJobStats inserts the rows of one stats period in a single transaction
func (db *DB) CreateJobStats(ctx context.Context, stats []JobStats) error {
	if len(stats) == 0 {
		return nil
	}

	return db.WithTransaction(ctx, func(tx *Tx) error {
		for _, s := range stats {
			_, err := tx.ExecContext(ctx, insertJobStats,
				s.StatsPeriodID,
				s.Job,
				s.StartTime.UTC(),
				s.EndTime.UTC(),
				s.Runs,
				s.Succeeded,
				s.Failed,
				s.Coalesced,
				s.Rejected,
				s.MinDuration,
				s.MaxDuration,
				s.AvgDuration,
			)
			if err != nil {
				if IsDuplicate(err) {
					return errors.Wrapf(ErrDuplicate, "job stats %s/%s", s.StatsPeriodID, s.Job)
				}
				return errors.Wrapf(err, "insert job stats %s/%s", s.StatsPeriodID, s.Job)
			}
		}
		return nil
	})
}

// ListJobStats returns the rows of periods starting in [startTime, endTime),
// oldest first. Times are stored and compared as UTC text.
func (db *DB) ListJobStats(ctx context.Context, startTime, endTime time.Time) ([]JobStats, error) {
	query := `
		SELECT
			stats_period_id, job, start_time, end_time,
			runs, succeeded, failed, coalesced, rejected,
			min_duration, max_duration, avg_duration
		FROM job_stats
		WHERE start_time >= ? AND start_time < ?
		ORDER BY start_time, job
	`

	rows, err := db.QueryContext(ctx, query, startTime.UTC(), endTime.UTC())
	if err != nil {
		return nil, errors.Wrap(err, "query job stats")
	}
	defer rows.Close()

	var stats []JobStats
	for rows.Next() {
		var s JobStats
		err := rows.Scan(
			&s.StatsPeriodID,
			&s.Job,
			&s.StartTime,
			&s.EndTime,
			&s.Runs,
			&s.Succeeded,
			&s.Failed,
			&s.Coalesced,
			&s.Rejected,
			&s.MinDuration,
			&s.MaxDuration,
			&s.AvgDuration,
		)
		if err != nil {
			return nil, errors.Wrap(err, "scan job stats")
		}
		stats = append(stats, s)
	}

	return stats, errors.Wrap(rows.Err(), "iterate job stats")
}

// DeleteJobStatsBefore removes periods that started before cutoff and returns
// how many rows were deleted
func (db *DB) DeleteJobStatsBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := db.ExecContext(ctx, `DELETE FROM job_stats WHERE start_time < ?`, cutoff.UTC())
	if err != nil {
		return 0, errors.Wrap(err, "delete job stats")
	}
	return res.RowsAffected()
}
