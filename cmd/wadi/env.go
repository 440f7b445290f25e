package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/wadi/materializer/internal/config"
	"github.com/wadi/materializer/internal/db"
	"github.com/wadi/materializer/internal/events"
	"github.com/wadi/materializer/internal/materializer"
	"github.com/wadi/materializer/internal/metrics"
	"github.com/wadi/materializer/internal/observability"
	"github.com/wadi/materializer/internal/policy"
	"github.com/wadi/materializer/internal/tools"
	"github.com/wadi/materializer/internal/types"
)

var (
	flagConfig      string
	flagMode        string
	flagWriteRoot   string
	flagDeployOptIn bool
	flagVerbose     bool
)

func init() {
	rootCmd.PersistentFlags().StringVar(&flagConfig, "config", "", "Path to JSON config file (default: environment variables)")
	rootCmd.PersistentFlags().StringVar(&flagMode, "mode", "", "Execution mode: SAFE, STANDARD, or FULL (default STANDARD)")
	rootCmd.PersistentFlags().StringVar(&flagWriteRoot, "write-root", "", "Directory all project writes stay under")
	rootCmd.PersistentFlags().BoolVar(&flagDeployOptIn, "deploy-opt-in", false, "Allow deploys in STANDARD mode")
	rootCmd.PersistentFlags().BoolVarP(&flagVerbose, "verbose", "v", false, "Print detailed progress information")
}

// loadConfig merges CLI flags over the config file (or environment).
func loadConfig() (config.Config, error) {
	var defaults *config.Config
	if flagConfig != "" {
		loaded, err := config.LoadConfig(flagConfig)
		if err != nil {
			return config.Config{}, err
		}
		defaults = loaded
	} else {
		defaults = config.FromEnv()
	}

	flags := config.Config{
		Mode:        flagMode,
		WriteRoot:   flagWriteRoot,
		DeployOptIn: flagDeployOptIn,
		Verbose:     flagVerbose,
	}
	cfg := flags.MergeWithDefaults(*defaults)

	if cfg.WriteRoot == "" {
		cfg.WriteRoot = "projects"
	}
	if err := os.MkdirAll(cfg.WriteRoot, 0o755); err != nil {
		return config.Config{}, fmt.Errorf("failed to create write root %s: %w", cfg.WriteRoot, err)
	}
	abs, err := filepath.Abs(cfg.WriteRoot)
	if err != nil {
		return config.Config{}, fmt.Errorf("failed to resolve write root: %w", err)
	}
	cfg.WriteRoot = abs

	if err := cfg.Validate(); err != nil {
		return config.Config{}, err
	}
	return cfg, nil
}

// environment holds the wired pipeline for one CLI invocation.
type environment struct {
	cfg      config.Config
	policy   policy.Policy
	database *db.DB // nil when DATABASE_URL is not set
	bus      *events.Bus
	registry *tools.Registry
	metrics  *metrics.Service
	svc      *materializer.Service
	printer  *observability.Printer
}

// newEnvironment wires the full pipeline from configuration. Persistence is
// optional; without it runs execute but leave no records.
func newEnvironment(ctx context.Context, cfg config.Config) (*environment, error) {
	pol := policy.Resolve(cfg.Mode, cfg.WriteRoot, cfg.DeployOptIn)

	var database *db.DB
	if cfg.DatabaseURL != "" {
		connected, err := db.Connect(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, fmt.Errorf("failed to connect to database: %w", err)
		}
		database = connected
	} else {
		fmt.Println("Warning: DATABASE_URL not set, runs will not be persisted")
	}

	bus := events.NewBus()

	registry := tools.NewRegistry()
	writer := tools.NewFileWriter(pol.WriteRoot)
	if err := writer.Register(registry); err != nil {
		return nil, fmt.Errorf("failed to register tools: %w", err)
	}
	if err := tools.NewScaffolder(writer).Register(registry); err != nil {
		return nil, fmt.Errorf("failed to register tools: %w", err)
	}
	if err := tools.NewFeatureBuilder(writer).Register(registry); err != nil {
		return nil, fmt.Errorf("failed to register tools: %w", err)
	}
	if err := tools.NewBuildChecker(writer).Register(registry); err != nil {
		return nil, fmt.Errorf("failed to register tools: %w", err)
	}
	if err := tools.NewGitCommitter(writer).Register(registry); err != nil {
		return nil, fmt.Errorf("failed to register tools: %w", err)
	}

	clients := make(map[types.DeployProvider]tools.ProviderClient)
	if cfg.RenderEndpoint != "" {
		clients[types.ProviderRender] = &tools.HTTPProviderClient{
			Provider: types.ProviderRender,
			Endpoint: cfg.RenderEndpoint,
			APIKey:   cfg.RenderAPIKey,
		}
	}
	if cfg.VercelEndpoint != "" {
		clients[types.ProviderVercel] = &tools.HTTPProviderClient{
			Provider: types.ProviderVercel,
			Endpoint: cfg.VercelEndpoint,
			APIKey:   cfg.VercelAPIKey,
		}
	}
	if err := tools.NewDeployer(clients).Register(registry); err != nil {
		return nil, fmt.Errorf("failed to register tools: %w", err)
	}

	var runStore materializer.Store
	var metricStore metrics.Store
	if database != nil {
		runStore = database
		metricStore = database
	}

	return &environment{
		cfg:      cfg,
		policy:   pol,
		database: database,
		bus:      bus,
		registry: registry,
		metrics:  metrics.NewService(metricStore, bus),
		svc:      materializer.New(runStore, bus, registry, pol),
		printer:  observability.NewPrinter(os.Stdout),
	}, nil
}

// Close releases the environment's resources.
func (e *environment) Close() {
	if e.database != nil {
		e.database.Close()
	}
}
