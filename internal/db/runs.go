package db

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/wadi/materializer/internal/types"
)

// CreateRun creates a new run record with status IN_PROGRESS and returns
// its id.
func (db *DB) CreateRun(ctx context.Context, projectID, stepName, correlationID string) (uuid.UUID, error) {
	var id uuid.UUID
	err := db.pool.QueryRow(ctx,
		`INSERT INTO runs (project_id, step_name, status, correlation_id)
		 VALUES ($1, $2, $3, $4)
		 RETURNING id`,
		projectID, stepName, types.RunStatusInProgress, correlationID,
	).Scan(&id)
	if err != nil {
		return uuid.Nil, fmt.Errorf("failed to create run: %w", err)
	}
	return id, nil
}

// EndRun moves a run to its terminal status, recording logs and an error
// message if any. A run is ended exactly once.
func (db *DB) EndRun(ctx context.Context, runID uuid.UUID, status string, logs map[string]any, errorMessage string) error {
	var logsJSON []byte
	if logs != nil {
		var err error
		logsJSON, err = json.Marshal(logs)
		if err != nil {
			return fmt.Errorf("failed to marshal run logs: %w", err)
		}
	}

	_, err := db.pool.Exec(ctx,
		`UPDATE runs
		 SET status = $1, logs = $2, error_message = NULLIF($3, ''), completed_at = NOW()
		 WHERE id = $4`,
		status, logsJSON, errorMessage, runID,
	)
	if err != nil {
		return fmt.Errorf("failed to end run: %w", err)
	}
	return nil
}

// HasRunInProgress reports whether the project already has a run with
// status IN_PROGRESS. This check-then-insert guard is best-effort; the race
// window between check and insert is accepted for this domain.
func (db *DB) HasRunInProgress(ctx context.Context, projectID string) (bool, error) {
	var exists bool
	err := db.pool.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM runs WHERE project_id = $1 AND status = $2)`,
		projectID, types.RunStatusInProgress,
	).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("failed to check in-progress runs: %w", err)
	}
	return exists, nil
}

// GetRun retrieves a run by id.
func (db *DB) GetRun(ctx context.Context, runID uuid.UUID) (*types.Run, error) {
	var run types.Run
	var logsJSON []byte
	var errorMessage *string

	err := db.pool.QueryRow(ctx,
		`SELECT id, project_id, step_name, status, correlation_id, logs, error_message, created_at, completed_at
		 FROM runs WHERE id = $1`,
		runID,
	).Scan(&run.ID, &run.ProjectID, &run.StepName, &run.Status, &run.CorrelationID,
		&logsJSON, &errorMessage, &run.CreatedAt, &run.CompletedAt)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get run: %w", err)
	}

	if logsJSON != nil {
		_ = json.Unmarshal(logsJSON, &run.Logs)
	}
	if errorMessage != nil {
		run.ErrorMessage = *errorMessage
	}
	return &run, nil
}

// ListRuns retrieves recent runs, optionally filtered by project.
func (db *DB) ListRuns(ctx context.Context, projectID string, limit int) ([]types.Run, error) {
	if limit == 0 {
		limit = 50
	}

	query := `SELECT id, project_id, step_name, status, correlation_id, logs, error_message, created_at, completed_at
		FROM runs WHERE 1=1`
	args := []any{}
	argNum := 1

	if projectID != "" {
		query += fmt.Sprintf(" AND project_id = $%d", argNum)
		args = append(args, projectID)
		argNum++
	}
	query += fmt.Sprintf(" ORDER BY created_at DESC LIMIT $%d", argNum)
	args = append(args, limit)

	rows, err := db.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list runs: %w", err)
	}
	defer rows.Close()

	var runs []types.Run
	for rows.Next() {
		var run types.Run
		var logsJSON []byte
		var errorMessage *string
		if err := rows.Scan(&run.ID, &run.ProjectID, &run.StepName, &run.Status, &run.CorrelationID,
			&logsJSON, &errorMessage, &run.CreatedAt, &run.CompletedAt); err != nil {
			return nil, fmt.Errorf("failed to scan run: %w", err)
		}
		if logsJSON != nil {
			_ = json.Unmarshal(logsJSON, &run.Logs)
		}
		if errorMessage != nil {
			run.ErrorMessage = *errorMessage
		}
		runs = append(runs, run)
	}
	return runs, nil
}
