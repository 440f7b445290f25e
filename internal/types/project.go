// Package types defines the shared domain types for the materialization pipeline.
package types

import (
	"fmt"

	"github.com/go-playground/validator/v10"
)

// DeployProvider identifies an external deployment target.
type DeployProvider string

const (
	ProviderRender DeployProvider = "render"
	ProviderVercel DeployProvider = "vercel"
)

// FeatureRequest asks the materializer to implement one named feature.
type FeatureRequest struct {
	ID     string         `json:"id" validate:"required"`
	Params map[string]any `json:"params,omitempty"`
}

// ProjectFile is one file declared by a project structure.
type ProjectFile struct {
	Path    string `json:"path" validate:"required"`
	Content string `json:"content"`
}

// ProjectStructure is the LLM-authored blueprint for a project. It is an
// immutable input to one materialization attempt; the materializer only
// reads it.
type ProjectStructure struct {
	Name           string           `json:"name" validate:"required"`
	Description    string           `json:"description,omitempty"`
	TemplateID     string           `json:"template_id,omitempty"`
	Features       []FeatureRequest `json:"features,omitempty" validate:"dive"`
	Files          []ProjectFile    `json:"files,omitempty" validate:"dive"`
	ShouldDeploy   bool             `json:"should_deploy,omitempty"`
	DeployProvider DeployProvider   `json:"deploy_provider,omitempty" validate:"omitempty,oneof=render vercel"`
}

var validate = validator.New()

// ValidateStructure checks a project structure at the boundary before any
// tool is allowed to act on it.
func ValidateStructure(s *ProjectStructure) error {
	if s == nil {
		return fmt.Errorf("project structure is nil")
	}
	if err := validate.Struct(s); err != nil {
		return fmt.Errorf("invalid project structure: %w", err)
	}
	return nil
}

// FilePaths returns the path-only projection of the declared files, used as
// the blueprint returned by dry runs.
func (s *ProjectStructure) FilePaths() []string {
	paths := make([]string, 0, len(s.Files))
	for _, f := range s.Files {
		paths = append(paths, f.Path)
	}
	return paths
}
