package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/wadi/materializer/internal/crystallize"
	"github.com/wadi/materializer/internal/llm"
	"github.com/wadi/materializer/internal/tools"
)

var crystallizeCmd = &cobra.Command{
	Use:   "crystallize <project-id>",
	Short: "Turn a project brief into a validated project structure",
	Long:  "Asks the model to author a project structure from a natural-language brief, validates it, and stores it for later materialization.",
	Args:  cobra.ExactArgs(1),
	RunE:  runCrystallize,
}

var (
	crystallizeBrief     string
	crystallizeBriefFile string
	crystallizeOutput    string
)

func init() {
	crystallizeCmd.Flags().StringVarP(&crystallizeBrief, "brief", "b", "", "Project brief text")
	crystallizeCmd.Flags().StringVarP(&crystallizeBriefFile, "brief-file", "f", "", "Path to a file containing the project brief")
	crystallizeCmd.Flags().StringVarP(&crystallizeOutput, "out", "o", "", "Write the structure JSON to this path as well")

	rootCmd.AddCommand(crystallizeCmd)
}

func runCrystallize(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if cfg.APIKey == "" {
		return fmt.Errorf("GEMINI_API_KEY environment variable is required")
	}

	brief := crystallizeBrief
	if brief == "" && crystallizeBriefFile != "" {
		data, err := os.ReadFile(crystallizeBriefFile)
		if err != nil {
			return fmt.Errorf("failed to read brief file %s: %w", crystallizeBriefFile, err)
		}
		brief = string(data)
	}
	if brief == "" {
		return fmt.Errorf("either --brief or --brief-file is required")
	}

	env, err := newEnvironment(cmd.Context(), cfg)
	if err != nil {
		return err
	}
	defer env.Close()

	client, err := llm.NewGeminiClient(cmd.Context(), cfg.Model, cfg.APIKey)
	if err != nil {
		return err
	}
	defer func() { _ = client.Close() }()

	var store crystallize.Store
	if env.database != nil {
		store = env.database
	}
	svc, err := crystallize.NewService(client, store, env.bus, env.policy)
	if err != nil {
		return err
	}

	structure, err := svc.Crystallize(cmd.Context(), args[0], brief, tools.TemplateIDs())
	if err != nil {
		return fmt.Errorf("crystallization failed: %w", err)
	}

	output, err := json.MarshalIndent(structure, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal structure to JSON: %w", err)
	}
	if crystallizeOutput != "" {
		if err := os.WriteFile(crystallizeOutput, output, 0o644); err != nil {
			return fmt.Errorf("failed to write structure to %s: %w", crystallizeOutput, err)
		}
	}

	fmt.Printf("Crystallized project %s: %s (%d features, %d files)\n",
		args[0], structure.Name, len(structure.Features), len(structure.Files))
	if crystallizeOutput == "" {
		fmt.Println(string(output))
	}
	return nil
}
