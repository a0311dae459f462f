package main

import (
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "saberlens",
	Short: "Score page enrichment with map metadata, accuracy and replay links",
	Long: `saberlens receives observed player score pages, enriches every score with
map metadata, derived maximum score and accuracy, and streams the result
plus per-score replay links to connected overlays.

Configuration is read from defaults, the YAML file named by SABERLENS_CONFIG,
then SABERLENS_* environment variables.

Examples:
  # Run the service (default)
  saberlens serve

  # Maximum unmodified score for a 300-note map
  saberlens maxscore 300`,
	SilenceUsage: true,
	RunE:         runServe,
}
