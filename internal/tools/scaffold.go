package tools

import (
	"context"
	"fmt"
	"path/filepath"
)

// scaffoldTemplates maps template ids to the base files they lay down.
// Content is deliberately minimal; feature implementation and declared
// project files layer on top of it.
var scaffoldTemplates = map[string][]struct {
	path    string
	content string
}{
	"node-express": {
		{"package.json", "{\n  \"name\": \"wadi-project\",\n  \"private\": true,\n  \"scripts\": {\n    \"build\": \"tsc --noEmit\",\n    \"start\": \"node src/index.js\"\n  }\n}\n"},
		{"src/index.js", "const express = require('express');\nconst app = express();\napp.get('/health', (_req, res) => res.json({ ok: true }));\napp.listen(process.env.PORT || 3000);\n"},
		{".gitignore", "node_modules/\ndist/\n"},
	},
	"react-vite": {
		{"package.json", "{\n  \"name\": \"wadi-project\",\n  \"private\": true,\n  \"scripts\": {\n    \"build\": \"vite build\",\n    \"dev\": \"vite\"\n  }\n}\n"},
		{"index.html", "<!doctype html>\n<html>\n  <body>\n    <div id=\"root\"></div>\n    <script type=\"module\" src=\"/src/main.jsx\"></script>\n  </body>\n</html>\n"},
		{"src/main.jsx", "import { createRoot } from 'react-dom/client';\ncreateRoot(document.getElementById('root')).render(<h1>WADI</h1>);\n"},
		{".gitignore", "node_modules/\ndist/\n"},
	},
	"static": {
		{"index.html", "<!doctype html>\n<html>\n  <body>\n    <h1>WADI</h1>\n  </body>\n</html>\n"},
	},
}

// Scaffolder writes the base template files for a project.
type Scaffolder struct {
	writer *FileWriter
}

// NewScaffolder creates a scaffolder writing through the sandboxed writer.
func NewScaffolder(writer *FileWriter) *Scaffolder {
	return &Scaffolder{writer: writer}
}

// TemplateIDs returns the known template ids.
func TemplateIDs() []string {
	ids := make([]string, 0, len(scaffoldTemplates))
	for id := range scaffoldTemplates {
		ids = append(ids, id)
	}
	return ids
}

// Scaffold writes the base files for templateID under the project's
// directory and returns the number of files written.
func (s *Scaffolder) Scaffold(projectID, templateID string) (int, error) {
	files, ok := scaffoldTemplates[templateID]
	if !ok {
		return 0, fmt.Errorf("unknown scaffolding template: %s", templateID)
	}
	for _, f := range files {
		if err := s.writer.Write(filepath.Join(projectID, f.path), f.content); err != nil {
			return 0, fmt.Errorf("scaffolding %s failed: %w", templateID, err)
		}
	}
	return len(files), nil
}

// Register adds the initialize_scaffolding tool to a registry.
func (s *Scaffolder) Register(r *Registry) error {
	def := Definition{
		Name:        NameInitializeScaffolding,
		Description: "Writes the base template files for a project from a named scaffolding template.",
		Parameters: []byte(`{
			"type": "object",
			"properties": {
				"project_id":  {"type": "string", "minLength": 1},
				"template_id": {"type": "string", "minLength": 1}
			},
			"required": ["project_id", "template_id"]
		}`),
	}
	return r.Register(def, func(ctx context.Context, args map[string]any) (any, error) {
		projectID, _ := GetString(args, "project_id")
		templateID, _ := GetString(args, "template_id")
		n, err := s.Scaffold(projectID, templateID)
		if err != nil {
			return nil, err
		}
		return map[string]any{"template_id": templateID, "files_written": n}, nil
	})
}
