// Package materializer provides the orchestrator that turns a persisted
// project structure into scaffolded files, verified builds, and optional
// deploys, recording a Run per attempt and emitting lifecycle events.
package materializer

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"github.com/wadi/materializer/internal/events"
	"github.com/wadi/materializer/internal/policy"
	"github.com/wadi/materializer/internal/tools"
	"github.com/wadi/materializer/internal/types"
)

// Store is the persistence surface the materializer consumes. All calls
// except structure resolution are best-effort observability aids, never
// correctness gates.
type Store interface {
	CreateRun(ctx context.Context, projectID, stepName, correlationID string) (uuid.UUID, error)
	EndRun(ctx context.Context, runID uuid.UUID, status string, logs map[string]any, errorMessage string) error
	HasRunInProgress(ctx context.Context, projectID string) (bool, error)
	GetProjectStructure(ctx context.Context, projectID string) (*types.ProjectStructure, error)
}

// Options adjusts one materialization attempt.
type Options struct {
	// DryRun returns the blueprint without invoking any side-effecting
	// tool, regardless of mode.
	DryRun bool

	// OverrideStructure bypasses structure resolution from the store; used
	// by tests and by callers that already hold the structure.
	OverrideStructure *types.ProjectStructure
}

// Service drives the materialization pipeline. All collaborators are
// injected; the service holds no ambient global state.
type Service struct {
	store    Store
	bus      *events.Bus
	registry *tools.Registry
	policy   policy.Policy

	buildCommand string
}

// ServiceOption configures a Service.
type ServiceOption func(*Service)

// WithBuildCommand overrides the command passed to the build verification
// tool. The tool still enforces its own allow-list.
func WithBuildCommand(command string) ServiceOption {
	return func(s *Service) { s.buildCommand = command }
}

// New creates a materializer service. store may be nil, in which case runs
// are not persisted and every attempt requires an override structure.
func New(store Store, bus *events.Bus, registry *tools.Registry, pol policy.Policy, opts ...ServiceOption) *Service {
	s := &Service{
		store:        store,
		bus:          bus,
		registry:     registry,
		policy:       pol,
		buildCommand: "npm run build",
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Steps reported in RUN_FAILED events.
const (
	stepStructureResolution = "structure_resolution"
	stepScaffolding         = "scaffolding"
	stepFeatures            = "feature_implementation"
	stepSafetyLimit         = "safety_limit"
	stepFileWriting         = "file_writing"
)

// Materialize runs the full pipeline for one project. It is the error
// boundary for the attempt: every failure path ends in a structured result
// with Success=false, never a returned error. The correlation id is
// generated once here and threaded through the run record, every event,
// and the result.
func (s *Service) Materialize(ctx context.Context, projectID string, opts Options) types.BlueprintResult {
	correlationID := uuid.NewString()
	prefix := s.policy.Profile.LogPrefix

	// Idempotency guard: best-effort single flight per project. A failing
	// check fails open (treated as "not running") because run persistence
	// is an observability aid. The window between this check and the
	// insert below is a documented race, accepted for this domain.
	if s.store != nil {
		inProgress, err := s.store.HasRunInProgress(ctx, projectID)
		if err != nil {
			fmt.Printf("Warning: idempotency check failed for %s: %v\n", projectID, err)
		} else if inProgress {
			fmt.Printf("%sproject %s already has a run in progress, skipping\n", prefix, projectID)
			return types.BlueprintResult{CorrelationID: correlationID}
		}
	}

	runID := s.beginRun(ctx, projectID, correlationID, opts.DryRun)

	structure := opts.OverrideStructure
	if structure == nil {
		if s.store == nil {
			return s.failRun(ctx, runID, projectID, correlationID, stepStructureResolution,
				fmt.Errorf("no structure provided and no store configured"))
		}
		stored, err := s.store.GetProjectStructure(ctx, projectID)
		if err != nil {
			return s.failRun(ctx, runID, projectID, correlationID, stepStructureResolution, err)
		}
		if stored == nil {
			return s.failRun(ctx, runID, projectID, correlationID, stepStructureResolution,
				fmt.Errorf("project %s has no stored structure", projectID))
		}
		structure = stored
	}
	if err := types.ValidateStructure(structure); err != nil {
		return s.failRun(ctx, runID, projectID, correlationID, stepStructureResolution, err)
	}

	// Preview short-circuit: a dry run, or any run in SAFE mode, returns
	// the path-only blueprint without touching a single tool. This is how
	// SAFE mode guarantees zero external side effects.
	if opts.DryRun || s.policy.IsSafeMode() {
		blueprint := structure.FilePaths()
		s.endRun(ctx, runID, types.RunStatusPreview, map[string]any{
			"blueprint":  true,
			"file_count": len(blueprint),
		}, "")
		fmt.Printf("%spreview for %s: %d files, no side effects\n", prefix, projectID, len(blueprint))
		return types.BlueprintResult{
			Success:       true,
			Blueprint:     blueprint,
			CorrelationID: correlationID,
		}
	}

	var scaffoldedAt time.Time
	if structure.TemplateID != "" {
		if _, err := s.registry.Call(ctx, tools.NameInitializeScaffolding, map[string]any{
			"project_id":  projectID,
			"template_id": structure.TemplateID,
		}); err != nil {
			return s.failRun(ctx, runID, projectID, correlationID, stepScaffolding, err)
		}
		scaffoldedAt = time.Now()
		s.bus.Emit(events.ScaffoldingCompleteEvent{
			ProjectID:     projectID,
			CorrelationID: correlationID,
			TemplateID:    structure.TemplateID,
		})
	}

	// Features run strictly in declared order; they share the project file
	// tree and must not race.
	for _, feature := range structure.Features {
		args := map[string]any{
			"project_id": projectID,
			"feature_id": feature.ID,
		}
		if feature.Params != nil {
			args["params"] = feature.Params
		}
		if _, err := s.registry.Call(ctx, tools.NameImplementFeature, args); err != nil {
			return s.failRun(ctx, runID, projectID, correlationID, stepFeatures, err)
		}
		s.bus.Emit(events.FeatureImplementedEvent{
			ProjectID:     projectID,
			CorrelationID: correlationID,
			FeatureID:     feature.ID,
			Params:        feature.Params,
		})
	}

	// The file cap counts only explicitly declared files; scaffolding and
	// feature output above is exempt by design.
	if maxFiles := s.policy.Profile.MaxFilesPerProject; len(structure.Files) > maxFiles {
		return s.failRun(ctx, runID, projectID, correlationID, stepSafetyLimit,
			fmt.Errorf("safety limit exceeded: %d files declared, mode %s allows %d",
				len(structure.Files), s.policy.Mode, maxFiles))
	}

	filesCreated := 0
	for _, file := range structure.Files {
		if _, err := s.registry.Call(ctx, tools.NameWriteFile, map[string]any{
			"path":    filepath.Join(projectID, file.Path),
			"content": file.Content,
		}); err != nil {
			return s.failRun(ctx, runID, projectID, correlationID, stepFileWriting, err)
		}
		filesCreated++
	}
	s.bus.Emit(events.FilesWrittenEvent{
		ProjectID:     projectID,
		CorrelationID: correlationID,
		FilesCreated:  filesCreated,
	})

	buildResult := s.verifyBuild(ctx, projectID)
	s.bus.Emit(events.BuildVerifiedEvent{
		ProjectID:     projectID,
		CorrelationID: correlationID,
		Result:        buildResult,
	})

	deployURL := s.maybeDeploy(ctx, projectID, correlationID, structure, buildResult)

	if s.policy.Profile.AllowGitCommit {
		s.commit(ctx, projectID, structure.Name, correlationID)
	}

	logs := map[string]any{
		"files_created": filesCreated,
		"template_id":   structure.TemplateID,
		"features":      len(structure.Features),
		"deploy_url":    deployURL,
	}
	if !scaffoldedAt.IsZero() {
		logs["scaffolded_at"] = scaffoldedAt.Format(time.RFC3339)
	}
	s.endRun(ctx, runID, types.RunStatusSuccess, logs, "")

	s.bus.Emit(events.MaterializationCompleteEvent{
		ProjectID:     projectID,
		CorrelationID: correlationID,
		Success:       true,
		FilesCreated:  filesCreated,
		DeployURL:     deployURL,
	})
	fmt.Printf("%smaterialized %s: %d files\n", prefix, projectID, filesCreated)

	return types.BlueprintResult{
		Success:       true,
		FilesCreated:  filesCreated,
		DeployURL:     deployURL,
		CorrelationID: correlationID,
	}
}

// verifyBuild runs the build check and classifies the outcome. A tool that
// cannot even start is downgraded to WARN; build checks are never fatal to
// materialization.
func (s *Service) verifyBuild(ctx context.Context, projectID string) types.BuildResult {
	out, err := s.registry.Call(ctx, tools.NameValidateBuild, map[string]any{
		"project_id": projectID,
		"command":    s.buildCommand,
	})
	if err != nil {
		fmt.Printf("Warning: build verification failed to run for %s: %v\n", projectID, err)
		return types.BuildResult{
			Status:  types.BuildStatusWarn,
			Details: err.Error(),
		}
	}
	result, err := tools.DecodeBuildResult(out)
	if err != nil {
		fmt.Printf("Warning: build verification returned an unreadable result for %s: %v\n", projectID, err)
		return types.BuildResult{
			Status:  types.BuildStatusWarn,
			Details: err.Error(),
		}
	}
	return result
}

// maybeDeploy applies the deploy gates and, when permitted, calls the
// deploy tool. Deploy failures are recorded in the emitted result, never
// raised; a blocked deploy is a logged no-op.
func (s *Service) maybeDeploy(ctx context.Context, projectID, correlationID string, structure *types.ProjectStructure, build types.BuildResult) string {
	if !structure.ShouldDeploy {
		return ""
	}
	if s.policy.BlockDeployOnBuildError && build.Blocking() {
		fmt.Printf("%sdeploy of %s blocked: build classified %s\n", s.policy.Profile.LogPrefix, projectID, build.Status)
		return ""
	}

	provider := structure.DeployProvider
	if provider == "" {
		provider = types.ProviderRender
	}
	if !s.policy.IsDeployAllowed(provider) {
		fmt.Printf("%sdeploy of %s to %s not permitted by policy, skipping\n", s.policy.Profile.LogPrefix, projectID, provider)
		return ""
	}

	out, err := s.registry.Call(ctx, tools.NameDeployProject, map[string]any{
		"project_id": projectID,
		"provider":   string(provider),
	})
	result := types.DeploymentResult{Provider: provider}
	if err != nil {
		result.Error = err.Error()
	} else if decoded, derr := tools.DecodeDeploymentResult(out); derr != nil {
		result.Error = derr.Error()
	} else {
		result = decoded
	}

	s.bus.Emit(events.DeploymentCompleteEvent{
		ProjectID:     projectID,
		CorrelationID: correlationID,
		Result:        result,
	})
	if !result.Success {
		fmt.Printf("Warning: deploy of %s to %s failed: %s\n", projectID, provider, result.Error)
		return ""
	}
	return result.URL
}

// commit makes a best-effort git commit. Failures are logged and never
// fail the run; a clean tree is success.
func (s *Service) commit(ctx context.Context, projectID, name, correlationID string) {
	short := correlationID
	if len(short) > 8 {
		short = short[:8]
	}
	message := fmt.Sprintf("wadi: materialize %s [%s %s]", name, s.policy.Mode, short)
	if _, err := s.registry.Call(ctx, tools.NameGitCommit, map[string]any{
		"project_id": projectID,
		"message":    message,
	}); err != nil {
		fmt.Printf("Warning: git commit for %s failed: %v\n", projectID, err)
	}
}

// beginRun persists the new run, tolerating persistence failure: the run
// proceeds with a nil run id.
func (s *Service) beginRun(ctx context.Context, projectID, correlationID string, dryRun bool) uuid.UUID {
	if s.store == nil {
		return uuid.Nil
	}
	runID, err := s.store.CreateRun(ctx, projectID, s.policy.StepName(dryRun), correlationID)
	if err != nil {
		fmt.Printf("Warning: failed to persist run for %s: %v\n", projectID, err)
		return uuid.Nil
	}
	return runID
}

func (s *Service) endRun(ctx context.Context, runID uuid.UUID, status string, logs map[string]any, errorMessage string) {
	if s.store == nil || runID == uuid.Nil {
		return
	}
	if err := s.store.EndRun(ctx, runID, status, logs, errorMessage); err != nil {
		fmt.Printf("Warning: failed to end run %s: %v\n", runID, err)
	}
}

// failRun is the single failure path: log, end the run FAILED, emit
// RUN_FAILED, and return a structured failure result.
func (s *Service) failRun(ctx context.Context, runID uuid.UUID, projectID, correlationID, step string, cause error) types.BlueprintResult {
	fmt.Printf("Warning: materialization of %s failed at %s: %v\n", projectID, step, cause)
	s.endRun(ctx, runID, types.RunStatusFailed, map[string]any{"step": step}, cause.Error())
	s.bus.Emit(events.RunFailedEvent{
		ProjectID:     projectID,
		CorrelationID: correlationID,
		Step:          step,
		Error:         cause.Error(),
	})
	return types.BlueprintResult{CorrelationID: correlationID}
}
