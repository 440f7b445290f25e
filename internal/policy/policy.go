// Package policy defines the execution mode profiles that gate side effects
// during materialization. A Policy is resolved once at process start and
// passed explicitly into the materializer; nothing in the pipeline reads
// mode from the environment.
package policy

import (
	"path/filepath"
	"strings"

	"github.com/wadi/materializer/internal/types"
)

// ExecutionMode selects one of the fixed permission profiles.
type ExecutionMode string

const (
	ModeSafe     ExecutionMode = "SAFE"
	ModeStandard ExecutionMode = "STANDARD"
	ModeFull     ExecutionMode = "FULL"
)

// ModeProfile is the immutable permission and ceiling set bound to a mode.
type ModeProfile struct {
	AllowDeploy        bool
	AllowGitCommit     bool
	AllowGitPush       bool
	MaxFilesPerProject int
	MaxToolIterations  int
	MaxTokensPerRun    int
	LogPrefix          string
}

// profiles is the fixed mode table. STANDARD permits deploy only when the
// separate opt-in flag is also set (see Policy.DeployOptIn).
var profiles = map[ExecutionMode]ModeProfile{
	ModeSafe: {
		AllowDeploy:        false,
		AllowGitCommit:     false,
		AllowGitPush:       false,
		MaxFilesPerProject: 20,
		MaxToolIterations:  5,
		MaxTokensPerRun:    2000,
		LogPrefix:          "[SAFE] ",
	},
	ModeStandard: {
		AllowDeploy:        true,
		AllowGitCommit:     true,
		AllowGitPush:       false,
		MaxFilesPerProject: 50,
		MaxToolIterations:  10,
		MaxTokensPerRun:    4000,
		LogPrefix:          "[STANDARD] ",
	},
	ModeFull: {
		AllowDeploy:        true,
		AllowGitCommit:     true,
		AllowGitPush:       true,
		MaxFilesPerProject: 100,
		MaxToolIterations:  20,
		MaxTokensPerRun:    8000,
		LogPrefix:          "[FULL] ",
	},
}

// allowedProviders is mode-independent policy: deploys may only target
// these providers.
var allowedProviders = map[types.DeployProvider]bool{
	types.ProviderRender: true,
	types.ProviderVercel: true,
}

// Policy is the resolved, read-only execution policy for one process.
type Policy struct {
	Mode    ExecutionMode
	Profile ModeProfile

	// DeployOptIn is the separate explicit flag required in STANDARD mode
	// before any deploy happens. FULL mode does not require it.
	DeployOptIn bool

	// WriteRoot is the directory all tool file writes must stay under.
	WriteRoot string

	// BlockDeployOnBuildError is mode-independent and always true in
	// production configuration; kept as a field so tests can exercise the
	// gate both ways.
	BlockDeployOnBuildError bool
}

// Resolve builds a Policy from a mode selector string. Absent or invalid
// selectors fall back to STANDARD.
func Resolve(selector, writeRoot string, deployOptIn bool) Policy {
	mode := ExecutionMode(strings.ToUpper(strings.TrimSpace(selector)))
	if _, ok := profiles[mode]; !ok {
		mode = ModeStandard
	}
	return Policy{
		Mode:                    mode,
		Profile:                 profiles[mode],
		DeployOptIn:             deployOptIn,
		WriteRoot:               writeRoot,
		BlockDeployOnBuildError: true,
	}
}

// IsSafeMode reports whether the policy guarantees zero external side
// effects.
func (p Policy) IsSafeMode() bool {
	return p.Mode == ModeSafe
}

// IsDeployAllowed reports whether a deploy to the given provider may
// proceed: the mode must permit deploys, the opt-in flag must be set when
// the mode requires it, and the provider must be on the allow-list.
func (p Policy) IsDeployAllowed(provider types.DeployProvider) bool {
	if !p.Profile.AllowDeploy {
		return false
	}
	if p.Mode == ModeStandard && !p.DeployOptIn {
		return false
	}
	return allowedProviders[provider]
}

// IsPathAllowed reports whether path falls under the restricted write root.
// Relative paths are judged relative to the root itself.
func (p Policy) IsPathAllowed(path string) bool {
	if p.WriteRoot == "" {
		return false
	}
	abs := path
	if !filepath.IsAbs(abs) {
		abs = filepath.Join(p.WriteRoot, abs)
	}
	rel, err := filepath.Rel(p.WriteRoot, filepath.Clean(abs))
	if err != nil {
		return false
	}
	return rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator))
}

// StepName returns the run step label recorded for this policy's mode.
func (p Policy) StepName(dryRun bool) string {
	switch {
	case p.IsSafeMode():
		return types.StepSafePreview
	case dryRun:
		return types.StepPreviewBlueprint
	default:
		return types.StepMaterialization
	}
}
