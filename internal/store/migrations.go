package store

import (
	"context"
	"database/sql"
)

// schema contains the DDL for the history tables.
// Each statement uses IF NOT EXISTS for idempotency.
var schema = []string{
	`CREATE TABLE IF NOT EXISTS runs (
		id             TEXT PRIMARY KEY,
		concurrency    INTEGER NOT NULL,
		slice_ns       INTEGER NOT NULL,
		capacity       INTEGER NOT NULL,
		final_slice    INTEGER NOT NULL DEFAULT 0,
		dropped        INTEGER NOT NULL DEFAULT 0,
		launch_failed  INTEGER NOT NULL DEFAULT 0,
		started_at     TEXT NOT NULL,
		finished_at    TEXT
	)`,

	`CREATE TABLE IF NOT EXISTS run_jobs (
		run_id           TEXT NOT NULL REFERENCES runs(id) ON DELETE CASCADE,
		idx              INTEGER NOT NULL,
		pid              INTEGER NOT NULL,
		name             TEXT NOT NULL,
		state            TEXT NOT NULL,
		started          INTEGER NOT NULL DEFAULT 0,
		submission_slice INTEGER NOT NULL,
		completion_slice INTEGER NOT NULL DEFAULT 0,
		slices_ran       INTEGER NOT NULL DEFAULT 0,
		slices_waited    INTEGER NOT NULL DEFAULT 0,
		PRIMARY KEY (run_id, idx)
	)`,

	`CREATE INDEX IF NOT EXISTS idx_runs_started_at ON runs(started_at)`,
}

// migrate executes all schema DDL statements.
func migrate(ctx context.Context, db *sql.DB) error {
	for _, stmt := range schema {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return err
		}
	}
	return nil
}
