package tools

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os/exec"
	"strings"

	"github.com/wadi/materializer/internal/types"
)

// allowedBuildCommands is the explicit allow-list for validate_build. The
// command string must match one of these exactly.
var allowedBuildCommands = map[string][]string{
	"npm install":      {"npm", "install"},
	"npm run build":    {"npm", "run", "build"},
	"npm test":         {"npm", "test"},
	"npx tsc --noEmit": {"npx", "tsc", "--noEmit"},
}

// typescriptMarkers indicate compiler errors in build output. They are
// checked before anything else: a TypeScript error is never masked by a
// coincidentally-present dependency marker.
var typescriptMarkers = []string{
	"error TS",
	"TSError:",
}

// dependencyMarkers indicate missing dependencies in build output.
var dependencyMarkers = []string{
	"Cannot find module",
	"MODULE_NOT_FOUND",
	"npm ERR! 404",
	"Could not resolve dependency",
}

// Classify turns captured build output plus the command error into a
// BuildResult using ordered substring heuristics: TypeScript markers first,
// then dependency markers, then any other failure, then OK.
func Classify(output string, runErr error) types.BuildResult {
	for _, marker := range typescriptMarkers {
		if strings.Contains(output, marker) {
			return types.BuildResult{
				Status: types.BuildStatusError,
				Reason: types.BuildReasonTypeScriptErrors,
				Output: output,
			}
		}
	}
	for _, marker := range dependencyMarkers {
		if strings.Contains(output, marker) {
			return types.BuildResult{
				Status: types.BuildStatusWarn,
				Reason: types.BuildReasonDependenciesMissing,
				Output: output,
			}
		}
	}
	if runErr != nil {
		return types.BuildResult{
			Status:  types.BuildStatusRisk,
			Reason:  types.BuildReasonTestsFailed,
			Details: runErr.Error(),
			Output:  output,
		}
	}
	return types.BuildResult{Status: types.BuildStatusOK, Output: output}
}

// BuildChecker runs allow-listed build commands inside a project directory
// and classifies their output.
type BuildChecker struct {
	writer *FileWriter
}

// NewBuildChecker creates a checker scoped to the writer's sandbox root.
func NewBuildChecker(writer *FileWriter) *BuildChecker {
	return &BuildChecker{writer: writer}
}

// Check runs command in the project's directory and classifies the result.
// The command must be on the allow-list.
func (c *BuildChecker) Check(ctx context.Context, projectID, command string) (types.BuildResult, error) {
	argv, ok := allowedBuildCommands[command]
	if !ok {
		return types.BuildResult{}, fmt.Errorf("build command not allowed: %q", command)
	}
	dir, err := c.writer.Resolve(projectID)
	if err != nil {
		return types.BuildResult{}, err
	}

	cmd := exec.CommandContext(ctx, argv[0], argv[1:]...)
	cmd.Dir = dir
	var buf bytes.Buffer
	cmd.Stdout = &buf
	cmd.Stderr = &buf

	runErr := cmd.Run()
	return Classify(buf.String(), runErr), nil
}

// Register adds the validate_build tool to a registry.
func (c *BuildChecker) Register(r *Registry) error {
	def := Definition{
		Name:        NameValidateBuild,
		Description: "Runs an allow-listed build command in the project directory and classifies the output as OK, WARN, ERROR, or RISK.",
		Parameters: []byte(`{
			"type": "object",
			"properties": {
				"project_id": {"type": "string", "minLength": 1},
				"command":    {"type": "string", "minLength": 1}
			},
			"required": ["project_id", "command"]
		}`),
	}
	return r.Register(def, func(ctx context.Context, args map[string]any) (any, error) {
		projectID, _ := GetString(args, "project_id")
		command, _ := GetString(args, "command")
		result, err := c.Check(ctx, projectID, command)
		if err != nil {
			return nil, err
		}
		return result, nil
	})
}

// DecodeBuildResult converts a tool call result back into a BuildResult.
// Results cross the registry boundary as any, so callers round-trip through
// JSON when the concrete type was lost.
func DecodeBuildResult(v any) (types.BuildResult, error) {
	if r, ok := v.(types.BuildResult); ok {
		return r, nil
	}
	raw, err := json.Marshal(v)
	if err != nil {
		return types.BuildResult{}, fmt.Errorf("build result is not decodable: %w", err)
	}
	var result types.BuildResult
	if err := json.Unmarshal(raw, &result); err != nil {
		return types.BuildResult{}, fmt.Errorf("build result is not decodable: %w", err)
	}
	return result, nil
}
