package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/wadi/materializer/internal/materializer"
	"github.com/wadi/materializer/internal/types"
)

var materializeCmd = &cobra.Command{
	Use:   "materialize <project-id> [project-id...]",
	Short: "Materialize one or more projects into real files",
	Long:  "Runs the materialization pipeline: scaffolding, feature implementation, file writing, build verification, and (policy permitting) deployment.",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runMaterialize,
}

var (
	materializeStructure string
	materializeDryRun    bool
)

func init() {
	materializeCmd.Flags().StringVarP(&materializeStructure, "structure", "s", "", "Path to a ProjectStructure JSON file (default: stored structure)")
	materializeCmd.Flags().BoolVar(&materializeDryRun, "dry-run", false, "Produce a blueprint of planned paths without writing files")

	rootCmd.AddCommand(materializeCmd)
}

func runMaterialize(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	env, err := newEnvironment(cmd.Context(), cfg)
	if err != nil {
		return err
	}
	defer env.Close()

	opts := materializer.Options{DryRun: materializeDryRun}
	if materializeStructure != "" {
		structure, err := loadStructureFile(materializeStructure)
		if err != nil {
			return err
		}
		opts.OverrideStructure = structure
	}

	failed := 0
	if len(args) == 1 {
		result := env.svc.Materialize(cmd.Context(), args[0], opts)
		env.printer.PrintBlueprintResult(args[0], result)
		if !result.Success {
			failed++
		}
	} else {
		results := env.svc.MaterializeMany(cmd.Context(), args, opts)
		for _, projectID := range args {
			result := results[projectID]
			env.printer.PrintBlueprintResult(projectID, result)
			if !result.Success {
				failed++
			}
		}
	}

	if cfg.Verbose {
		env.printer.PrintMetrics(env.metrics.DeployFailureRate(), env.metrics.BuildHistogram())
	}

	if failed > 0 {
		return fmt.Errorf("%d of %d materializations failed", failed, len(args))
	}
	return nil
}

func loadStructureFile(path string) (*types.ProjectStructure, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read structure file %s: %w", path, err)
	}
	var structure types.ProjectStructure
	if err := json.Unmarshal(data, &structure); err != nil {
		return nil, fmt.Errorf("failed to unmarshal structure JSON: %w", err)
	}
	if err := types.ValidateStructure(&structure); err != nil {
		return nil, fmt.Errorf("structure file %s is invalid: %w", path, err)
	}
	return &structure, nil
}
