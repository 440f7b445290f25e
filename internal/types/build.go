package types

// Build statuses produced by the build-check tool.
const (
	BuildStatusOK    = "OK"
	BuildStatusWarn  = "WARN"
	BuildStatusError = "ERROR"
	BuildStatusRisk  = "RISK"
)

// Build failure reasons, attached when status is not OK.
const (
	BuildReasonDependenciesMissing = "dependencies_missing"
	BuildReasonTypeScriptErrors    = "typescript_errors"
	BuildReasonTestsFailed         = "tests_failed"
)

// BuildResult classifies one build verification attempt.
type BuildResult struct {
	Status  string `json:"status"`
	Reason  string `json:"reason,omitempty"`
	Details string `json:"details,omitempty"`
	Output  string `json:"output,omitempty"`
}

// Blocking reports whether this result must block a requested deploy.
func (r *BuildResult) Blocking() bool {
	return r != nil && r.Status == BuildStatusError
}

// DeploymentResult is produced by the deploy tool. A failed deploy is
// recorded here, never thrown into the materialization flow.
type DeploymentResult struct {
	Success  bool           `json:"success"`
	URL      string         `json:"url,omitempty"`
	Provider DeployProvider `json:"provider"`
	Error    string         `json:"error,omitempty"`
	Degraded bool           `json:"degraded,omitempty"`
}
