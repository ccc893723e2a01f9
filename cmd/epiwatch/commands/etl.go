package commands

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/epiwatch/epiwatch/internal/alerts"
	"github.com/epiwatch/epiwatch/internal/etl"
	"github.com/epiwatch/epiwatch/internal/ingest"
	"github.com/epiwatch/epiwatch/internal/snapshot"
	"github.com/epiwatch/epiwatch/internal/store"
	"github.com/epiwatch/epiwatch/internal/transform"
	"github.com/epiwatch/epiwatch/pkg/config"
	"github.com/epiwatch/epiwatch/pkg/database"
	"github.com/epiwatch/epiwatch/pkg/httputil"
	"github.com/epiwatch/epiwatch/pkg/logger"
	"github.com/epiwatch/epiwatch/pkg/redis"
)

// etlCmd represents the etl command
var etlCmd = &cobra.Command{
	Use:   "etl",
	Short: "Run the full pipeline once",
	Long: `Runs the full ETL cycle: download (or read a local file),
transform, persist observations, alerts, quality report and daily
summary, and refresh the cache.

Example:
  go run ./cmd/epiwatch etl
  go run ./cmd/epiwatch etl --file data/raw/latest_owid_covid_data.csv`,
	RunE: runETL,
}

var etlFile string

func init() {
	rootCmd.AddCommand(etlCmd)

	etlCmd.Flags().StringVar(&etlFile, "file", "", "local CSV to process instead of downloading")
}

func runETL(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	log := logger.New(cfg)
	ctx := context.Background()

	db, err := database.New(cfg)
	if err != nil {
		return fmt.Errorf("connect to database: %w", err)
	}
	defer db.Close()

	if err := db.Migrate(ctx); err != nil {
		return fmt.Errorf("migrate: %w", err)
	}

	redisClient, err := redis.New(cfg)
	if err != nil {
		return fmt.Errorf("connect to redis: %w", err)
	}
	defer redisClient.Close()

	policy, err := loadPolicy(cfg)
	if err != nil {
		return fmt.Errorf("load policy: %w", err)
	}

	var path string
	if etlFile != "" {
		path = etlFile
	} else {
		client := httputil.NewWithTimeout(log, cfg.Source.DownloadTimeout).
			WithRetry(3, 2*time.Second)
		downloader := ingest.NewDownloader(cfg.Source, client, log)

		path, err = downloader.Download(ctx)
		if err != nil {
			return fmt.Errorf("download: %w", err)
		}
	}

	raw, err := ingest.ParseFile(path)
	if err != nil {
		return fmt.Errorf("parse %s: %w", path, err)
	}

	runner := etl.NewRunner(
		transform.NewEngine(policy, log),
		ingest.NewValidator(log),
		store.NewObservationRepository(db.Pool),
		alerts.NewRepository(db.Pool),
		store.NewReportRepository(db.Pool),
		snapshot.New(redisClient, log),
		nil,
		log,
	)

	result, err := runner.Run(ctx, raw, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("pipeline run: %w", err)
	}

	fmt.Printf("Run %s completed: %d rows, %d countries, %d alerts in %s\n",
		result.RunID, result.Rows, result.Countries, len(result.Alerts), result.Duration.Round(time.Millisecond))
	return nil
}
