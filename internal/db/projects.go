package db

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/wadi/materializer/internal/types"
)

// SaveProjectStructure stores or replaces the structure blob for a project.
func (db *DB) SaveProjectStructure(ctx context.Context, projectID string, structure *types.ProjectStructure) error {
	blob, err := json.Marshal(structure)
	if err != nil {
		return fmt.Errorf("failed to marshal project structure: %w", err)
	}

	_, err = db.pool.Exec(ctx,
		`INSERT INTO projects (id, name, structure)
		 VALUES ($1, $2, $3)
		 ON CONFLICT (id) DO UPDATE SET name = $2, structure = $3, updated_at = NOW()`,
		projectID, structure.Name, blob,
	)
	if err != nil {
		return fmt.Errorf("failed to save project structure: %w", err)
	}
	return nil
}

// GetProjectStructure reads the stored structure for a project. Returns
// (nil, nil) if the project does not exist or has no structure yet.
func (db *DB) GetProjectStructure(ctx context.Context, projectID string) (*types.ProjectStructure, error) {
	var blob []byte
	err := db.pool.QueryRow(ctx,
		`SELECT structure FROM projects WHERE id = $1`,
		projectID,
	).Scan(&blob)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get project structure: %w", err)
	}
	if len(blob) == 0 {
		return nil, nil
	}

	var structure types.ProjectStructure
	if err := json.Unmarshal(blob, &structure); err != nil {
		return nil, fmt.Errorf("failed to parse project structure: %w", err)
	}
	return &structure, nil
}
