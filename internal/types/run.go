package types

import (
	"time"

	"github.com/google/uuid"
)

// Run statuses. A run is created IN_PROGRESS and ends in exactly one of the
// terminal statuses.
const (
	RunStatusInProgress = "IN_PROGRESS"
	RunStatusSuccess    = "SUCCESS"
	RunStatusFailed     = "FAILED"
	RunStatusPreview    = "PREVIEW"
)

// Step names recorded on a run, derived from the execution mode.
const (
	StepSafePreview      = "SAFE_PREVIEW"
	StepPreviewBlueprint = "PREVIEW_BLUEPRINT"
	StepMaterialization  = "MATERIALIZATION"
)

// Run is one materialization attempt. At most one run per project may be
// IN_PROGRESS at any time; that is the idempotency invariant the
// materializer checks before starting.
type Run struct {
	ID            uuid.UUID      `json:"id"`
	ProjectID     string         `json:"project_id"`
	StepName      string         `json:"step_name"`
	Status        string         `json:"status"`
	CorrelationID string         `json:"correlation_id"`
	Logs          map[string]any `json:"logs,omitempty"`
	ErrorMessage  string         `json:"error_message,omitempty"`
	CreatedAt     time.Time      `json:"created_at"`
	CompletedAt   *time.Time     `json:"completed_at,omitempty"`
}

// BlueprintResult is the return value of one materialize call. It is
// ephemeral; only the Run record is persisted.
type BlueprintResult struct {
	Success       bool     `json:"success"`
	FilesCreated  int      `json:"files_created"`
	Blueprint     []string `json:"blueprint,omitempty"`
	DeployURL     string   `json:"deploy_url,omitempty"`
	CorrelationID string   `json:"correlation_id"`
}
