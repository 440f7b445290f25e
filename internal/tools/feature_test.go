package tools

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestImplementWritesModuleAndTest(t *testing.T) {
	root := t.TempDir()
	b := NewFeatureBuilder(NewFileWriter(root))

	written, err := b.Implement("demo", "user-auth", map[string]any{"provider": "oauth"})
	require.NoError(t, err)
	require.Len(t, written, 2)

	module, err := os.ReadFile(filepath.Join(root, "demo", "src", "features", "user-auth", "user-auth.js"))
	require.NoError(t, err)
	assert.Contains(t, string(module), "export function userAuth()")
	assert.Contains(t, string(module), "param provider = oauth")

	test, err := os.ReadFile(filepath.Join(root, "demo", "src", "features", "user-auth", "user-auth.test.js"))
	require.NoError(t, err)
	assert.Contains(t, string(test), "import { userAuth } from './user-auth';")
}

func TestImplementRejectsUnsafeIDs(t *testing.T) {
	b := NewFeatureBuilder(NewFileWriter(t.TempDir()))

	for _, id := range []string{"", "../escape", "User Auth", "UPPER", "-leading"} {
		_, err := b.Implement("demo", id, nil)
		assert.Error(t, err, "feature id %q must be rejected", id)
	}
}

func TestExportName(t *testing.T) {
	cases := map[string]string{
		"user-auth":        "userAuth",
		"dark_mode":        "darkMode",
		"search":           "search",
		"multi-word-thing": "multiWordThing",
	}
	for in, want := range cases {
		assert.Equal(t, want, exportName(in))
	}
}
