package tools

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestScaffoldWritesTemplateFiles(t *testing.T) {
	root := t.TempDir()
	s := NewScaffolder(NewFileWriter(root))

	n, err := s.Scaffold("demo", "node-express")
	require.NoError(t, err)
	assert.Equal(t, 3, n)

	assert.FileExists(t, filepath.Join(root, "demo", "package.json"))
	assert.FileExists(t, filepath.Join(root, "demo", "src", "index.js"))
	assert.FileExists(t, filepath.Join(root, "demo", ".gitignore"))

	data, err := os.ReadFile(filepath.Join(root, "demo", "package.json"))
	require.NoError(t, err)
	assert.Contains(t, string(data), "wadi-project")
}

func TestScaffoldUnknownTemplate(t *testing.T) {
	s := NewScaffolder(NewFileWriter(t.TempDir()))

	_, err := s.Scaffold("demo", "rails")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown scaffolding template")
}

func TestTemplateIDs(t *testing.T) {
	assert.ElementsMatch(t, []string{"node-express", "react-vite", "static"}, TemplateIDs())
}

func TestScaffoldTool(t *testing.T) {
	root := t.TempDir()
	r := NewRegistry()
	require.NoError(t, NewScaffolder(NewFileWriter(root)).Register(r))

	out, err := r.Call(context.Background(), NameInitializeScaffolding, map[string]any{
		"project_id":  "demo",
		"template_id": "static",
	})
	require.NoError(t, err)
	result, ok := out.(map[string]any)
	require.True(t, ok)
	assert.Equal(t, 1, result["files_written"])
	assert.FileExists(t, filepath.Join(root, "demo", "index.html"))
}
