package tools

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// FileWriter writes project files under a sandboxed root directory. Every
// path is resolved against the root and rejected if it escapes it.
type FileWriter struct {
	root string
}

// NewFileWriter creates a writer rooted at dir.
func NewFileWriter(root string) *FileWriter {
	return &FileWriter{root: root}
}

// Root returns the sandbox root directory.
func (w *FileWriter) Root() string { return w.root }

// Resolve returns the absolute location for a project-relative path, or an
// error if the path escapes the sandbox root.
func (w *FileWriter) Resolve(path string) (string, error) {
	if w.root == "" {
		return "", fmt.Errorf("file writer has no sandbox root")
	}
	if path == "" {
		return "", fmt.Errorf("path is empty")
	}
	if filepath.IsAbs(path) {
		return "", fmt.Errorf("path escapes sandbox root: %s", path)
	}

	abs := filepath.Clean(filepath.Join(w.root, path))
	rel, err := filepath.Rel(w.root, abs)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("path escapes sandbox root: %s", path)
	}
	return abs, nil
}

// Write stores content at a project-relative path, creating parent
// directories as needed.
func (w *FileWriter) Write(path, content string) error {
	abs, err := w.Resolve(path)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(abs), 0o755); err != nil {
		return fmt.Errorf("failed to create directory for %s: %w", path, err)
	}
	if err := os.WriteFile(abs, []byte(content), 0o644); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	return nil
}

// Register adds the write_file tool to a registry.
func (w *FileWriter) Register(r *Registry) error {
	def := Definition{
		Name:        NameWriteFile,
		Description: "Writes one file at a project-relative path. Paths escaping the sandbox root are rejected.",
		Parameters: []byte(`{
			"type": "object",
			"properties": {
				"path":    {"type": "string", "minLength": 1},
				"content": {"type": "string"}
			},
			"required": ["path"]
		}`),
	}
	return r.Register(def, func(ctx context.Context, args map[string]any) (any, error) {
		path, _ := GetString(args, "path")
		content := GetStringDefault(args, "content", "")
		if err := w.Write(path, content); err != nil {
			return nil, err
		}
		return map[string]any{"path": path, "bytes": len(content)}, nil
	})
}
