package db

import (
	"context"
	"fmt"

	"github.com/wadi/materializer/internal/types"
)

// SaveDeployMetric persists one deploy attempt row.
func (db *DB) SaveDeployMetric(ctx context.Context, projectID, correlationID string, result types.DeploymentResult) error {
	_, err := db.pool.Exec(ctx,
		`INSERT INTO deploy_metrics (project_id, correlation_id, provider, success, degraded, error_message)
		 VALUES ($1, $2, $3, $4, $5, NULLIF($6, ''))`,
		projectID, correlationID, string(result.Provider), result.Success, result.Degraded, result.Error,
	)
	if err != nil {
		return fmt.Errorf("failed to save deploy metric: %w", err)
	}
	return nil
}

// SaveRunMetric persists one completed-run row. durationMs is negative when
// the run had no measurable duration (dry runs never scaffold).
func (db *DB) SaveRunMetric(ctx context.Context, projectID, correlationID string, success bool, filesCreated int, durationMs int64) error {
	var duration *int64
	if durationMs >= 0 {
		duration = &durationMs
	}
	_, err := db.pool.Exec(ctx,
		`INSERT INTO run_metrics (project_id, correlation_id, success, files_created, duration_ms)
		 VALUES ($1, $2, $3, $4, $5)`,
		projectID, correlationID, success, filesCreated, duration,
	)
	if err != nil {
		return fmt.Errorf("failed to save run metric: %w", err)
	}
	return nil
}
