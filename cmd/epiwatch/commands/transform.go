package commands

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/epiwatch/epiwatch/internal/ingest"
	"github.com/epiwatch/epiwatch/internal/pipelineconfig"
	"github.com/epiwatch/epiwatch/internal/transform"
	"github.com/epiwatch/epiwatch/pkg/config"
	"github.com/epiwatch/epiwatch/pkg/logger"
)

// transformCmd represents the transform command
var transformCmd = &cobra.Command{
	Use:   "transform [file]",
	Short: "Run the transformation engine over a local CSV",
	Long: `Runs filter, imputation, derived metrics, quality scoring and
alert detection over a local CSV file without touching the database.

Prints the quality report and detected alerts as JSON.

Example:
  go run ./cmd/epiwatch transform data/raw/latest_owid_covid_data.csv`,
	Args: cobra.ExactArgs(1),
	RunE: runTransform,
}

func init() {
	rootCmd.AddCommand(transformCmd)
}

func runTransform(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	log := logger.New(cfg)

	policy, err := loadPolicy(cfg)
	if err != nil {
		return fmt.Errorf("load policy: %w", err)
	}

	raw, err := ingest.ParseFile(args[0])
	if err != nil {
		return fmt.Errorf("parse %s: %w", args[0], err)
	}

	engine := transform.NewEngine(policy, log)
	result, err := engine.Run(raw, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("transform: %w", err)
	}

	out := map[string]interface{}{
		"rows":    len(result.Dataset.Rows),
		"columns": result.Dataset.Columns.Sorted(),
		"report":  result.Report,
		"alerts":  result.Alerts,
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(out)
}

// loadPolicy resolves the pipeline policy: the --policy flag wins,
// then PIPELINE_CONFIG, then the built-in defaults.
func loadPolicy(cfg *config.Config) (*pipelineconfig.Config, error) {
	path := policyFile
	if path == "" {
		path = cfg.Source.PipelineConfig
	}
	return pipelineconfig.Load(path)
}
