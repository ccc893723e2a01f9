package commands

import (
	"github.com/spf13/cobra"
)

var (
	// Global flags
	policyFile string
	verbose    bool
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "epiwatch",
	Short: "EpiWatch - epidemiological surveillance pipeline",
	Long: `EpiWatch Unified CLI

Daily ETL pipeline for epidemiological time series: download,
transform, quality scoring, alert detection and serving.

Usage:
  go run ./cmd/epiwatch [command]

Examples:
  go run ./cmd/epiwatch ingest
  go run ./cmd/epiwatch transform data/raw/latest_owid_covid_data.csv
  go run ./cmd/epiwatch etl
  go run ./cmd/epiwatch api
  go run ./cmd/epiwatch scheduler start`,
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	// Global flags
	rootCmd.PersistentFlags().StringVar(&policyFile, "policy", "", "pipeline policy YAML (default built-in policy)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
}
