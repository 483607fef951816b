package database

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"tasker/internal/models"
)

// SaveQuote appends a submitted quote to the ledger. A repeated idempotency key
// only fills in the job id.
func (db *DB) SaveQuote(ctx context.Context, rec *models.QuoteRecord) error {
	surcharges, err := json.Marshal(rec.Surcharges)
	if err != nil {
		return fmt.Errorf("encode surcharges: %w", err)
	}
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now()
	}

	query := `
        INSERT INTO quotes (idempotency_key, job_id, service_id, category, base_price, surcharges, final_price, scheduled_at, created_at)
        VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
        ON CONFLICT(idempotency_key) DO UPDATE SET job_id = COALESCE(excluded.job_id, job_id)
    `
	var jobID any
	if rec.JobID != "" {
		jobID = rec.JobID
	}
	if _, err := db.db.ExecContext(ctx, query,
		rec.IdempotencyKey,
		jobID,
		rec.ServiceID,
		string(rec.Category),
		rec.BasePrice,
		string(surcharges),
		rec.FinalPrice,
		rec.ScheduledAt.UTC(),
		rec.CreatedAt.UTC(),
	); err != nil {
		return err
	}

	return db.db.QueryRowContext(ctx, `SELECT id FROM quotes WHERE idempotency_key = ?`, rec.IdempotencyKey).Scan(&rec.ID)
}

// QuotesForJob returns the ledger entries recorded for a job, oldest first.
func (db *DB) QuotesForJob(ctx context.Context, jobID string) ([]models.QuoteRecord, error) {
	rows, err := db.db.QueryContext(ctx, `
        SELECT id, idempotency_key, COALESCE(job_id, ''), service_id, category, base_price, surcharges, final_price, scheduled_at, created_at
        FROM quotes WHERE job_id = ? ORDER BY id`, jobID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.QuoteRecord
	for rows.Next() {
		var (
			rec        models.QuoteRecord
			category   string
			surcharges string
		)
		if err := rows.Scan(
			&rec.ID,
			&rec.IdempotencyKey,
			&rec.JobID,
			&rec.ServiceID,
			&category,
			&rec.BasePrice,
			&surcharges,
			&rec.FinalPrice,
			&rec.ScheduledAt,
			&rec.CreatedAt,
		); err != nil {
			return nil, err
		}
		rec.Category = models.ServiceCategory(category)
		if err := json.Unmarshal([]byte(surcharges), &rec.Surcharges); err != nil {
			return nil, fmt.Errorf("decode surcharges of quote %d: %w", rec.ID, err)
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}
