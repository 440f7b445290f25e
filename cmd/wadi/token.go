package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/wadi/materializer/internal/server"
)

var tokenCmd = &cobra.Command{
	Use:   "token <client-id>",
	Short: "Generate an API bearer token",
	Long:  "Generates a signed JWT for calling the REST API. Requires WADI_JWT_SECRET.",
	Args:  cobra.ExactArgs(1),
	RunE:  runToken,
}

var tokenTTL time.Duration

func init() {
	tokenCmd.Flags().DurationVar(&tokenTTL, "ttl", 24*time.Hour, "Token lifetime")
	rootCmd.AddCommand(tokenCmd)
}

func runToken(_ *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if cfg.JWTSecret == "" {
		return fmt.Errorf("WADI_JWT_SECRET environment variable is required")
	}

	jwtService, err := server.NewJWTService(cfg.JWTSecret, tokenTTL)
	if err != nil {
		return err
	}
	token, err := jwtService.GenerateToken(args[0])
	if err != nil {
		return fmt.Errorf("failed to generate token: %w", err)
	}

	fmt.Println(token)
	return nil
}
