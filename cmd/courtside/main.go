// Courtside is the turn orchestration service for the sports-analytics
// assistant. It accepts a user message plus a turn plan over HTTP, runs the
// plan's specialist workflow against the upstream sports data API, and
// returns the synthesized answer.
package main

import (
	"os"

	"github.com/spf13/cobra"
)

var (
	version = "dev"

	configPath string
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:     "courtside",
	Short:   "Turn orchestration service for the sports-analytics assistant",
	Version: version,
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the courtside HTTP server",
	Long: `Start the courtside HTTP server.

Configuration is loaded from an optional YAML file and COURTSIDE_-prefixed
environment variables. Example:

  courtside serve --config /etc/courtside/config.yaml
  COURTSIDE_SERVER__PORT=9000 courtside serve`,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().StringVar(&configPath, "config", "", "path to YAML config file")
	rootCmd.AddCommand(serveCmd)
}
