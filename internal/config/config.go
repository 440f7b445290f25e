// Package config provides configuration loading and validation for the
// materializer. The execution mode is resolved here, once, and handed to
// the pipeline as an explicit policy value; nothing downstream reads it
// from the environment.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
)

// Config holds process configuration. All fields are optional in the JSON
// file; missing values use defaults or must be provided via CLI flags.
type Config struct {
	// Mode selects the execution policy profile: SAFE, STANDARD, or FULL.
	// Absent or invalid values resolve to STANDARD.
	Mode string `json:"mode,omitempty"`

	// DeployOptIn is the separate explicit flag STANDARD mode requires
	// before any deploy happens.
	DeployOptIn bool `json:"deploy_opt_in,omitempty"`

	// WriteRoot is the sandbox directory all project writes stay under.
	WriteRoot string `json:"write_root,omitempty"`

	// Providers
	APIKey         string `json:"api_key,omitempty"`         // Gemini API key
	Model          string `json:"model,omitempty"`           // Gemini model name
	RenderEndpoint string `json:"render_endpoint,omitempty"` // Render deploy API
	RenderAPIKey   string `json:"render_api_key,omitempty"`
	VercelEndpoint string `json:"vercel_endpoint,omitempty"` // Vercel deploy API
	VercelAPIKey   string `json:"vercel_api_key,omitempty"`

	// Persistence
	DatabaseURL string `json:"database_url,omitempty"` // PostgreSQL connection URL

	// HTTP surface
	ListenAddr string `json:"listen_addr,omitempty"` // serve address, e.g. :8080
	JWTSecret  string `json:"jwt_secret,omitempty"`  // bearer-token signing secret

	// Behavior
	Verbose bool `json:"verbose,omitempty"` // Print detailed debug information
}

// LoadConfig loads configuration from a JSON file.
// Returns an error if the file cannot be read or parsed.
func LoadConfig(path string) (*Config, error) {
	if path == "" {
		return nil, fmt.Errorf("config path is empty")
	}

	if !filepath.IsAbs(path) {
		cwd, err := os.Getwd()
		if err != nil {
			return nil, fmt.Errorf("failed to get current directory: %w", err)
		}
		path = filepath.Join(cwd, path)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	var cfg Config
	if err := json.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config JSON: %w", err)
	}
	return &cfg, nil
}

// FromEnv builds a Config from environment variables. Used when no config
// file is given; flag values still win after merging.
func FromEnv() *Config {
	optIn, _ := strconv.ParseBool(os.Getenv("WADI_DEPLOY_OPT_IN"))
	verbose, _ := strconv.ParseBool(os.Getenv("WADI_VERBOSE"))
	return &Config{
		Mode:           os.Getenv("WADI_MODE"),
		DeployOptIn:    optIn,
		WriteRoot:      os.Getenv("WADI_WRITE_ROOT"),
		APIKey:         os.Getenv("GEMINI_API_KEY"),
		Model:          os.Getenv("WADI_MODEL"),
		RenderEndpoint: os.Getenv("RENDER_DEPLOY_ENDPOINT"),
		RenderAPIKey:   os.Getenv("RENDER_API_KEY"),
		VercelEndpoint: os.Getenv("VERCEL_DEPLOY_ENDPOINT"),
		VercelAPIKey:   os.Getenv("VERCEL_API_KEY"),
		DatabaseURL:    os.Getenv("DATABASE_URL"),
		ListenAddr:     os.Getenv("WADI_LISTEN_ADDR"),
		JWTSecret:      os.Getenv("WADI_JWT_SECRET"),
		Verbose:        verbose,
	}
}

// Validate checks that the configuration has valid values. Required fields
// are enforced by CLI flag validation after merging, not here.
func (c *Config) Validate() error {
	switch c.Mode {
	case "", "SAFE", "STANDARD", "FULL":
	default:
		return fmt.Errorf("config error: 'mode' must be SAFE, STANDARD, or FULL (got %q)", c.Mode)
	}

	if c.WriteRoot != "" {
		info, err := os.Stat(c.WriteRoot)
		if os.IsNotExist(err) {
			return fmt.Errorf("config error: write root not found: %s", c.WriteRoot)
		}
		if err == nil && !info.IsDir() {
			return fmt.Errorf("config error: write root is not a directory: %s", c.WriteRoot)
		}
	}
	return nil
}

// MergeWithDefaults returns a new Config with empty fields filled from
// defaults. Used to apply config file values as defaults for CLI flags.
func (c *Config) MergeWithDefaults(defaults Config) Config {
	result := *c

	if result.Mode == "" {
		result.Mode = defaults.Mode
	}
	if result.WriteRoot == "" {
		result.WriteRoot = defaults.WriteRoot
	}
	if result.APIKey == "" {
		result.APIKey = defaults.APIKey
	}
	if result.Model == "" {
		result.Model = defaults.Model
	}
	if result.RenderEndpoint == "" {
		result.RenderEndpoint = defaults.RenderEndpoint
	}
	if result.RenderAPIKey == "" {
		result.RenderAPIKey = defaults.RenderAPIKey
	}
	if result.VercelEndpoint == "" {
		result.VercelEndpoint = defaults.VercelEndpoint
	}
	if result.VercelAPIKey == "" {
		result.VercelAPIKey = defaults.VercelAPIKey
	}
	if result.DatabaseURL == "" {
		result.DatabaseURL = defaults.DatabaseURL
	}
	if result.ListenAddr == "" {
		result.ListenAddr = defaults.ListenAddr
	}
	if result.JWTSecret == "" {
		result.JWTSecret = defaults.JWTSecret
	}

	// Bool fields: cannot distinguish unset from false, so flags win.
	if !result.DeployOptIn {
		result.DeployOptIn = defaults.DeployOptIn
	}
	if !result.Verbose {
		result.Verbose = defaults.Verbose
	}

	return result
}
