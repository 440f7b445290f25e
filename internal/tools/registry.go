// Package tools provides the name-to-handler dispatch table for the
// side-effecting operations the materializer drives, along with the
// concrete handler modules (scaffolding, feature implementation, file
// writes, build verification, deploy, git). The registry itself holds no
// domain logic; each handler encapsulates its own safety checks.
package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/xeipuuv/gojsonschema"
)

// Tool names fixed by the materializer contract.
const (
	NameInitializeScaffolding = "initialize_scaffolding"
	NameImplementFeature      = "implement_feature"
	NameWriteFile             = "write_file"
	NameValidateBuild         = "validate_build"
	NameDeployProject         = "deploy_project"
	NameGitCommit             = "git_commit"
)

// Definition describes a tool for LLM function-calling metadata. Parameters
// holds a JSON Schema for the argument object; when present, arguments are
// validated against it before dispatch.
type Definition struct {
	Name        string          `json:"name"`
	Description string          `json:"description"`
	Parameters  json.RawMessage `json:"parameters,omitempty"`
}

// Handler executes one tool call.
type Handler func(ctx context.Context, args map[string]any) (any, error)

// ErrNotFound wraps calls to unregistered tool names.
type ErrNotFound struct {
	Name string
}

func (e *ErrNotFound) Error() string {
	return fmt.Sprintf("tool not found: %s", e.Name)
}

// ArgumentError reports arguments rejected before dispatch.
type ArgumentError struct {
	Tool    string
	Message string
}

func (e *ArgumentError) Error() string {
	return fmt.Sprintf("invalid arguments for %s: %s", e.Tool, e.Message)
}

type entry struct {
	def     Definition
	handler Handler
	schema  *gojsonschema.Schema
}

// Registry is a pure dispatch table mapping tool names to handlers.
type Registry struct {
	mu      sync.RWMutex
	entries map[string]*entry
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{entries: make(map[string]*entry)}
}

// Register associates a unique name with a definition and handler. The
// definition's parameter schema is compiled once at registration.
func (r *Registry) Register(def Definition, handler Handler) error {
	if def.Name == "" {
		return fmt.Errorf("tool definition has no name")
	}
	if handler == nil {
		return fmt.Errorf("tool %s has no handler", def.Name)
	}

	var schema *gojsonschema.Schema
	if len(def.Parameters) > 0 {
		compiled, err := gojsonschema.NewSchema(gojsonschema.NewBytesLoader(def.Parameters))
		if err != nil {
			return fmt.Errorf("tool %s has an invalid parameter schema: %w", def.Name, err)
		}
		schema = compiled
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.entries[def.Name]; exists {
		return fmt.Errorf("tool already registered: %s", def.Name)
	}
	r.entries[def.Name] = &entry{def: def, handler: handler, schema: schema}
	return nil
}

// Definitions returns the full definition list, for exposing to an LLM's
// function-calling interface.
func (r *Registry) Definitions() []Definition {
	r.mu.RLock()
	defer r.mu.RUnlock()

	defs := make([]Definition, 0, len(r.entries))
	for _, e := range r.entries {
		defs = append(defs, e.def)
	}
	return defs
}

// Names returns the registered tool names.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.entries))
	for name := range r.entries {
		names = append(names, name)
	}
	return names
}

// Call parses args, validates them against the tool's schema, and invokes
// the handler. args may be a map[string]any or a JSON string; handler
// errors are logged and propagated unchanged, with no retry.
func (r *Registry) Call(ctx context.Context, name string, args any) (any, error) {
	r.mu.RLock()
	e, ok := r.entries[name]
	r.mu.RUnlock()
	if !ok {
		return nil, &ErrNotFound{Name: name}
	}

	parsed, err := parseArgs(name, args)
	if err != nil {
		return nil, err
	}

	if e.schema != nil {
		doc := gojsonschema.NewGoLoader(parsed)
		result, err := e.schema.Validate(doc)
		if err != nil {
			return nil, &ArgumentError{Tool: name, Message: err.Error()}
		}
		if !result.Valid() {
			return nil, &ArgumentError{Tool: name, Message: formatSchemaErrors(result)}
		}
	}

	out, err := e.handler(ctx, parsed)
	if err != nil {
		fmt.Printf("Warning: tool %s failed: %v\n", name, err)
		return nil, err
	}
	return out, nil
}

func parseArgs(tool string, args any) (map[string]any, error) {
	switch v := args.(type) {
	case nil:
		return map[string]any{}, nil
	case map[string]any:
		return v, nil
	case string:
		if v == "" {
			return map[string]any{}, nil
		}
		var parsed map[string]any
		if err := json.Unmarshal([]byte(v), &parsed); err != nil {
			return nil, &ArgumentError{Tool: tool, Message: fmt.Sprintf("arguments are not valid JSON: %v", err)}
		}
		return parsed, nil
	case json.RawMessage:
		var parsed map[string]any
		if err := json.Unmarshal(v, &parsed); err != nil {
			return nil, &ArgumentError{Tool: tool, Message: fmt.Sprintf("arguments are not valid JSON: %v", err)}
		}
		return parsed, nil
	default:
		return nil, &ArgumentError{Tool: tool, Message: fmt.Sprintf("unsupported argument type %T", args)}
	}
}

func formatSchemaErrors(result *gojsonschema.Result) string {
	msg := ""
	for i, e := range result.Errors() {
		if i > 0 {
			msg += "; "
		}
		msg += e.String()
	}
	return msg
}
