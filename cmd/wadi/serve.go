package main

import (
	"github.com/spf13/cobra"

	"github.com/wadi/materializer/internal/server"
)

var serveAddr string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the REST API server",
	Long:  "Start an HTTP server that exposes REST endpoints for materializing projects and inspecting runs.",
	RunE:  runServe,
}

func init() {
	serveCmd.Flags().StringVar(&serveAddr, "addr", ":8080", "Address to listen on")
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if serveAddr != "" {
		cfg.ListenAddr = serveAddr
	}

	env, err := newEnvironment(cmd.Context(), cfg)
	if err != nil {
		return err
	}

	srv, err := server.New(server.Config{
		Addr:      cfg.ListenAddr,
		JWTSecret: cfg.JWTSecret,
	}, env.svc, env.database, env.metrics)
	if err != nil {
		env.Close()
		return err
	}

	// Server owns the database connection from here; Start closes it on
	// shutdown.
	return srv.Start()
}
