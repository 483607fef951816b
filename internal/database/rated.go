package database

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"
)

// MarkRated records that the client rated the job. Marking twice keeps the first time.
func (db *DB) MarkRated(ctx context.Context, jobID string, at time.Time) error {
	_, err := db.db.ExecContext(ctx,
		`INSERT INTO rated_jobs (job_id, rated_at) VALUES (?, ?) ON CONFLICT(job_id) DO NOTHING`,
		jobID, at.UTC())
	return err
}

func (db *DB) IsRated(ctx context.Context, jobID string) (bool, error) {
	var one int
	err := db.db.QueryRowContext(ctx, `SELECT 1 FROM rated_jobs WHERE job_id = ?`, jobID).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// RatedJobs returns the subset of jobIDs that were rated.
func (db *DB) RatedJobs(ctx context.Context, jobIDs []string) (map[string]bool, error) {
	rated := make(map[string]bool, len(jobIDs))
	if len(jobIDs) == 0 {
		return rated, nil
	}

	args := make([]any, len(jobIDs))
	for i, id := range jobIDs {
		args[i] = id
	}
	placeholders := strings.TrimSuffix(strings.Repeat("?,", len(jobIDs)), ",")

	rows, err := db.db.QueryContext(ctx, `SELECT job_id FROM rated_jobs WHERE job_id IN (`+placeholders+`)`, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		rated[id] = true
	}
	return rated, rows.Err()
}
