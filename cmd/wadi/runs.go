package main

import (
	"fmt"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/wadi/materializer/internal/db"
	"github.com/wadi/materializer/internal/observability"
)

var runsCmd = &cobra.Command{
	Use:   "runs <project-id>",
	Short: "List recent runs for a project",
	Args:  cobra.ExactArgs(1),
	RunE:  runListRuns,
}

var runCmd = &cobra.Command{
	Use:   "run <run-id>",
	Short: "Show a single run record",
	Args:  cobra.ExactArgs(1),
	RunE:  runShowRun,
}

var runsLimit int

func init() {
	runsCmd.Flags().IntVar(&runsLimit, "limit", 20, "Maximum number of runs to list")

	rootCmd.AddCommand(runsCmd)
	rootCmd.AddCommand(runCmd)
}

func connectForRuns(cmd *cobra.Command) (*db.DB, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}
	if cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL environment variable is required")
	}
	return db.Connect(cmd.Context(), cfg.DatabaseURL)
}

func runListRuns(cmd *cobra.Command, args []string) error {
	database, err := connectForRuns(cmd)
	if err != nil {
		return err
	}
	defer database.Close()

	runs, err := database.ListRuns(cmd.Context(), args[0], runsLimit)
	if err != nil {
		return fmt.Errorf("failed to list runs: %w", err)
	}

	observability.NewPrinter(cmd.OutOrStdout()).PrintRuns(runs)
	return nil
}

func runShowRun(cmd *cobra.Command, args []string) error {
	runID, err := uuid.Parse(args[0])
	if err != nil {
		return fmt.Errorf("invalid run id %s: %w", args[0], err)
	}

	database, err := connectForRuns(cmd)
	if err != nil {
		return err
	}
	defer database.Close()

	run, err := database.GetRun(cmd.Context(), runID)
	if err != nil {
		return fmt.Errorf("failed to load run: %w", err)
	}
	if run == nil {
		return fmt.Errorf("run %s not found", runID)
	}

	observability.NewPrinter(cmd.OutOrStdout()).PrintRun(run)
	return nil
}
