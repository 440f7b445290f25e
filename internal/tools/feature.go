package tools

import (
	"context"
	"fmt"
	"path/filepath"
	"regexp"
	"strings"
)

// featureIDPattern keeps feature ids filesystem-safe; they become path
// segments under the project directory.
var featureIDPattern = regexp.MustCompile(`^[a-z0-9][a-z0-9_-]*$`)

// FeatureBuilder writes feature-specific files into a project tree.
type FeatureBuilder struct {
	writer *FileWriter
}

// NewFeatureBuilder creates a builder writing through the sandboxed writer.
func NewFeatureBuilder(writer *FileWriter) *FeatureBuilder {
	return &FeatureBuilder{writer: writer}
}

// Implement writes the files for one feature request and returns the paths
// written.
func (b *FeatureBuilder) Implement(projectID, featureID string, params map[string]any) ([]string, error) {
	if !featureIDPattern.MatchString(featureID) {
		return nil, fmt.Errorf("invalid feature id: %q", featureID)
	}

	module := featureModule(featureID, params)
	base := filepath.Join(projectID, "src", "features", featureID)
	written := []string{
		filepath.Join(base, featureID+".js"),
		filepath.Join(base, featureID+".test.js"),
	}
	if err := b.writer.Write(written[0], module); err != nil {
		return nil, fmt.Errorf("implementing feature %s failed: %w", featureID, err)
	}
	if err := b.writer.Write(written[1], featureTest(featureID)); err != nil {
		return nil, fmt.Errorf("implementing feature %s failed: %w", featureID, err)
	}
	return written, nil
}

func featureModule(featureID string, params map[string]any) string {
	var sb strings.Builder
	name := exportName(featureID)
	fmt.Fprintf(&sb, "// Feature: %s\n", featureID)
	for k, v := range params {
		fmt.Fprintf(&sb, "// param %s = %v\n", k, v)
	}
	fmt.Fprintf(&sb, "export function %s() {\n  return { feature: '%s', enabled: true };\n}\n", name, featureID)
	return sb.String()
}

func featureTest(featureID string) string {
	name := exportName(featureID)
	return fmt.Sprintf("import { %s } from './%s';\n\ntest('%s is enabled', () => {\n  expect(%s().enabled).toBe(true);\n});\n", name, featureID, featureID, name)
}

// exportName converts a feature id like user-auth into userAuth.
func exportName(featureID string) string {
	parts := strings.FieldsFunc(featureID, func(r rune) bool { return r == '-' || r == '_' })
	for i := 1; i < len(parts); i++ {
		parts[i] = strings.ToUpper(parts[i][:1]) + parts[i][1:]
	}
	return strings.Join(parts, "")
}

// Register adds the implement_feature tool to a registry.
func (b *FeatureBuilder) Register(r *Registry) error {
	def := Definition{
		Name:        NameImplementFeature,
		Description: "Writes the source and test files for one named feature into the project tree.",
		Parameters: []byte(`{
			"type": "object",
			"properties": {
				"project_id": {"type": "string", "minLength": 1},
				"feature_id": {"type": "string", "minLength": 1},
				"params":     {"type": "object"}
			},
			"required": ["project_id", "feature_id"]
		}`),
	}
	return r.Register(def, func(ctx context.Context, args map[string]any) (any, error) {
		projectID, _ := GetString(args, "project_id")
		featureID, _ := GetString(args, "feature_id")
		params, _ := GetMap(args, "params")
		written, err := b.Implement(projectID, featureID, params)
		if err != nil {
			return nil, err
		}
		return map[string]any{"feature_id": featureID, "files": written}, nil
	})
}
