// Package audit records a run-history row per synchronization pass in
// PostgreSQL. The recorder is optional: a nil *Recorder is a safe no-op,
// so the pipeline never depends on the audit database being available.
package audit

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
)

const schema = `
CREATE TABLE IF NOT EXISTS sync_runs (
	id          UUID PRIMARY KEY,
	triggered_by TEXT NOT NULL,
	started_at  TIMESTAMPTZ NOT NULL,
	finished_at TIMESTAMPTZ NOT NULL,
	total       INTEGER NOT NULL,
	skipped     INTEGER NOT NULL,
	succeeded   INTEGER NOT NULL,
	failed      INTEGER NOT NULL,
	fatal       TEXT NOT NULL DEFAULT ''
)`

// RunRecord is one audited synchronization pass.
type RunRecord struct {
	ID         uuid.UUID `json:"id"`
	Trigger    string    `json:"trigger"`
	StartedAt  time.Time `json:"startedAt"`
	FinishedAt time.Time `json:"finishedAt"`
	Total      int       `json:"total"`
	Skipped    int       `json:"skipped"`
	Succeeded  int       `json:"succeeded"`
	Failed     int       `json:"failed"`
	Fatal      string    `json:"fatal,omitempty"`
}

// Recorder persists run records. The zero-value pointer (nil) disables
// recording entirely.
type Recorder struct {
	pool *pgxpool.Pool
}

// Open connects to the audit database and ensures the schema exists.
// An empty URL returns a nil recorder, which disables auditing.
func Open(ctx context.Context, databaseURL string) (*Recorder, error) {
	if databaseURL == "" {
		return nil, nil
	}

	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, fmt.Errorf("audit: connect: %w", err)
	}

	if _, err := pool.Exec(ctx, schema); err != nil {
		pool.Close()
		return nil, fmt.Errorf("audit: ensure schema: %w", err)
	}

	return &Recorder{pool: pool}, nil
}

// RecordRun inserts one run row. No-ops on a nil recorder.
func (r *Recorder) RecordRun(ctx context.Context, rec RunRecord) error {
	if r == nil {
		return nil
	}

	_, err := r.pool.Exec(ctx,
		`INSERT INTO sync_runs (id, triggered_by, started_at, finished_at, total, skipped, succeeded, failed, fatal)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		rec.ID, rec.Trigger, rec.StartedAt, rec.FinishedAt,
		rec.Total, rec.Skipped, rec.Succeeded, rec.Failed, rec.Fatal)
	if err != nil {
		return fmt.Errorf("audit: record run: %w", err)
	}
	return nil
}

// LatestRuns returns the most recent run records, newest first.
// A nil recorder reports an empty history.
func (r *Recorder) LatestRuns(ctx context.Context, limit int) ([]RunRecord, error) {
	if r == nil {
		return nil, nil
	}
	if limit <= 0 {
		limit = 20
	}

	rows, err := r.pool.Query(ctx,
		`SELECT id, triggered_by, started_at, finished_at, total, skipped, succeeded, failed, fatal
		 FROM sync_runs ORDER BY started_at DESC LIMIT $1`, limit)
	if err != nil {
		return nil, fmt.Errorf("audit: query runs: %w", err)
	}
	defer rows.Close()

	var records []RunRecord
	for rows.Next() {
		var rec RunRecord
		if err := rows.Scan(&rec.ID, &rec.Trigger, &rec.StartedAt, &rec.FinishedAt,
			&rec.Total, &rec.Skipped, &rec.Succeeded, &rec.Failed, &rec.Fatal); err != nil {
			return nil, fmt.Errorf("audit: scan run: %w", err)
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("audit: read runs: %w", err)
	}
	return records, nil
}

// Close releases the audit database pool. Safe on a nil recorder.
func (r *Recorder) Close() {
	if r != nil {
		r.pool.Close()
	}
}
