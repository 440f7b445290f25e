// Package main provides the entry point for the WADI materialization CLI.
package main

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "wadi",
	Short: "WADI project materialization pipeline",
	Long:  "WADI turns validated project structures into real project files, verifies builds, and optionally deploys the result, under an explicit execution policy.",
}

func main() {
	// Load .env file if it exists
	_ = godotenv.Load()

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
