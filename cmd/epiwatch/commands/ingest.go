package commands

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/epiwatch/epiwatch/internal/ingest"
	"github.com/epiwatch/epiwatch/pkg/config"
	"github.com/epiwatch/epiwatch/pkg/httputil"
	"github.com/epiwatch/epiwatch/pkg/logger"
)

// ingestCmd represents the ingest command
var ingestCmd = &cobra.Command{
	Use:   "ingest",
	Short: "Download the latest source snapshot",
	Long: `Downloads the current source CSV into the raw archive and
updates the latest symlink.

This command:
- Checks source availability (HEAD)
- Downloads into data/raw with a timestamped name
- Parses and validates the downloaded file

Example:
  go run ./cmd/epiwatch ingest`,
	RunE: runIngest,
}

func init() {
	rootCmd.AddCommand(ingestCmd)
}

func runIngest(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	log := logger.New(cfg)

	client := httputil.NewWithTimeout(log, cfg.Source.DownloadTimeout).
		WithRetry(3, 2*time.Second)
	downloader := ingest.NewDownloader(cfg.Source, client, log)

	ctx := context.Background()

	if err := downloader.CheckAvailability(ctx); err != nil {
		return fmt.Errorf("source unavailable: %w", err)
	}

	path, err := downloader.Download(ctx)
	if err != nil {
		return fmt.Errorf("download: %w", err)
	}

	ds, err := ingest.ParseFile(path)
	if err != nil {
		return fmt.Errorf("parse downloaded file: %w", err)
	}

	validator := ingest.NewValidator(log)
	if err := validator.Validate(ds, time.Now().UTC()); err != nil {
		return fmt.Errorf("validate downloaded file: %w", err)
	}

	fmt.Printf("Downloaded %s (%d rows, %d columns)\n", path, len(ds.Rows), len(ds.Columns.Sorted()))
	return nil
}
