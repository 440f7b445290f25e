package db

import (
	"context"
	"fmt"
)

// Migrate creates the tables the pipeline needs if they do not exist.
func (db *DB) Migrate(ctx context.Context) error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS projects (
			id TEXT PRIMARY KEY,
			name TEXT NOT NULL,
			structure JSONB,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`,
		`CREATE TABLE IF NOT EXISTS runs (
			id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
			project_id TEXT NOT NULL,
			step_name TEXT NOT NULL,
			status TEXT NOT NULL,
			correlation_id TEXT NOT NULL,
			logs JSONB,
			error_message TEXT,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			completed_at TIMESTAMPTZ
		)`,
		`CREATE INDEX IF NOT EXISTS idx_runs_project_status ON runs (project_id, status)`,
		`CREATE TABLE IF NOT EXISTS deploy_metrics (
			id BIGSERIAL PRIMARY KEY,
			project_id TEXT NOT NULL,
			correlation_id TEXT NOT NULL,
			provider TEXT NOT NULL,
			success BOOLEAN NOT NULL,
			degraded BOOLEAN NOT NULL DEFAULT FALSE,
			error_message TEXT,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`,
		`CREATE TABLE IF NOT EXISTS run_metrics (
			id BIGSERIAL PRIMARY KEY,
			project_id TEXT NOT NULL,
			correlation_id TEXT NOT NULL,
			success BOOLEAN NOT NULL,
			files_created INT NOT NULL DEFAULT 0,
			duration_ms BIGINT,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`,
	}

	for _, stmt := range statements {
		if _, err := db.pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("migration failed: %w", err)
		}
	}
	return nil
}
