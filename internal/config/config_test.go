package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfig(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.json")
	require.NoError(t, os.WriteFile(path, []byte(`{
		"mode": "FULL",
		"deploy_opt_in": true,
		"write_root": "/srv/projects",
		"model": "gemini-2.5-flash",
		"listen_addr": ":9090"
	}`), 0o644))

	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, "FULL", cfg.Mode)
	assert.True(t, cfg.DeployOptIn)
	assert.Equal(t, "/srv/projects", cfg.WriteRoot)
	assert.Equal(t, ":9090", cfg.ListenAddr)
}

func TestLoadConfigErrors(t *testing.T) {
	_, err := LoadConfig("")
	assert.Error(t, err)

	_, err = LoadConfig(filepath.Join(t.TempDir(), "missing.json"))
	assert.Error(t, err)

	path := filepath.Join(t.TempDir(), "bad.json")
	require.NoError(t, os.WriteFile(path, []byte(`{not json`), 0o644))
	_, err = LoadConfig(path)
	assert.Error(t, err)
}

func TestFromEnv(t *testing.T) {
	t.Setenv("WADI_MODE", "SAFE")
	t.Setenv("WADI_DEPLOY_OPT_IN", "true")
	t.Setenv("WADI_WRITE_ROOT", "/tmp/wadi")
	t.Setenv("GEMINI_API_KEY", "key123")
	t.Setenv("DATABASE_URL", "postgres://localhost/wadi")

	cfg := FromEnv()
	assert.Equal(t, "SAFE", cfg.Mode)
	assert.True(t, cfg.DeployOptIn)
	assert.Equal(t, "/tmp/wadi", cfg.WriteRoot)
	assert.Equal(t, "key123", cfg.APIKey)
	assert.Equal(t, "postgres://localhost/wadi", cfg.DatabaseURL)
}

func TestValidateMode(t *testing.T) {
	for _, mode := range []string{"", "SAFE", "STANDARD", "FULL"} {
		cfg := Config{Mode: mode}
		assert.NoError(t, cfg.Validate(), "mode %q", mode)
	}

	cfg := Config{Mode: "TURBO"}
	assert.Error(t, cfg.Validate())
}

func TestValidateWriteRoot(t *testing.T) {
	dir := t.TempDir()

	cfg := Config{WriteRoot: dir}
	assert.NoError(t, cfg.Validate())

	cfg = Config{WriteRoot: filepath.Join(dir, "missing")}
	assert.Error(t, cfg.Validate())

	file := filepath.Join(dir, "file.txt")
	require.NoError(t, os.WriteFile(file, []byte("x"), 0o644))
	cfg = Config{WriteRoot: file}
	assert.Error(t, cfg.Validate())
}

func TestMergeWithDefaults(t *testing.T) {
	flags := Config{Mode: "FULL", Verbose: true}
	defaults := Config{
		Mode:        "SAFE",
		WriteRoot:   "/srv/projects",
		APIKey:      "default-key",
		DatabaseURL: "postgres://localhost/wadi",
		DeployOptIn: true,
	}

	merged := flags.MergeWithDefaults(defaults)
	assert.Equal(t, "FULL", merged.Mode, "explicit values win")
	assert.Equal(t, "/srv/projects", merged.WriteRoot)
	assert.Equal(t, "default-key", merged.APIKey)
	assert.True(t, merged.DeployOptIn)
	assert.True(t, merged.Verbose)
}
