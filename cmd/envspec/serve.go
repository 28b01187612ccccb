package main

import (
	"github.com/spf13/cobra"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP API",
	Long: `Start the envspec HTTP API.

Endpoints:
  GET  /api/v1/export?prefix=...   Export an installed prefix
  POST /api/v1/validate            Validate a document (X-Filename header)
  GET  /api/v1/formats             List output formats
  GET  /health, /version, /metrics

The config file is watched and reloaded on change or SIGHUP; configured
channels apply to the next export.

Environment variables:
  ENVSPEC_SERVER_HOST       - Server host (default: 127.0.0.1)
  ENVSPEC_SERVER_PORT       - Server port (default: 8080)
  ENVSPEC_DATABASE_DSN      - Inventory database (default: envspec.db)
  ENVSPEC_CHANNELS          - Comma-separated channels (default: defaults)

Examples:
  envspec serve
  envspec serve --config /etc/envspec/envspec.yaml`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	a, err := newApp(cmd, nil)
	if err != nil {
		return err
	}
	return a.Run(cmd.Context())
}
