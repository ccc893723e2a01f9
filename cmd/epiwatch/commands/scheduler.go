package commands

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/epiwatch/epiwatch/internal/alerts"
	"github.com/epiwatch/epiwatch/internal/etl"
	"github.com/epiwatch/epiwatch/internal/ingest"
	"github.com/epiwatch/epiwatch/internal/scheduler"
	"github.com/epiwatch/epiwatch/internal/scheduler/jobs"
	"github.com/epiwatch/epiwatch/internal/snapshot"
	"github.com/epiwatch/epiwatch/internal/store"
	"github.com/epiwatch/epiwatch/internal/transform"
	"github.com/epiwatch/epiwatch/pkg/config"
	"github.com/epiwatch/epiwatch/pkg/database"
	"github.com/epiwatch/epiwatch/pkg/httputil"
	"github.com/epiwatch/epiwatch/pkg/logger"
	"github.com/epiwatch/epiwatch/pkg/redis"
)

// schedulerCmd represents the scheduler command
var schedulerCmd = &cobra.Command{
	Use:   "scheduler",
	Short: "Manage scheduled jobs",
	Long: `Starts the scheduler daemon or manages its jobs.

Registered jobs:
- daily_pipeline: every day at 06:00 (download + full ETL)
- archive_maintenance: Sundays at 03:00 (prune raw archives)

Example:
  go run ./cmd/epiwatch scheduler start
  go run ./cmd/epiwatch scheduler list
  go run ./cmd/epiwatch scheduler run daily_pipeline
  go run ./cmd/epiwatch scheduler status`,
}

var (
	schedulerStartCmd = &cobra.Command{
		Use:   "start",
		Short: "Start the scheduler daemon",
		RunE:  runScheduler,
	}

	schedulerListCmd = &cobra.Command{
		Use:   "list",
		Short: "List registered jobs",
		RunE:  listJobs,
	}

	schedulerRunCmd = &cobra.Command{
		Use:   "run [job_name]",
		Short: "Run a job immediately",
		Args:  cobra.ExactArgs(1),
		RunE:  runJob,
	}

	schedulerStatusCmd = &cobra.Command{
		Use:   "status",
		Short: "Show job execution history",
		RunE:  showJobStatus,
	}
)

func init() {
	rootCmd.AddCommand(schedulerCmd)
	schedulerCmd.AddCommand(schedulerStartCmd)
	schedulerCmd.AddCommand(schedulerListCmd)
	schedulerCmd.AddCommand(schedulerRunCmd)
	schedulerCmd.AddCommand(schedulerStatusCmd)
}

func runScheduler(cmd *cobra.Command, args []string) error {
	sched, cleanup, err := initScheduler()
	if err != nil {
		return fmt.Errorf("init scheduler: %w", err)
	}
	defer cleanup()

	sched.Start()

	fmt.Println("Scheduler started")
	fmt.Println("Registered jobs:")
	for _, jobName := range sched.Jobs() {
		fmt.Printf("  - %s\n", jobName)
	}
	fmt.Println("Press Ctrl+C to stop")

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	fmt.Println("Shutting down scheduler...")
	sched.Stop()
	return nil
}

func listJobs(cmd *cobra.Command, args []string) error {
	sched, cleanup, err := initScheduler()
	if err != nil {
		return fmt.Errorf("init scheduler: %w", err)
	}
	defer cleanup()

	fmt.Println("Registered jobs:")
	for _, jobName := range sched.Jobs() {
		fmt.Printf("  - %s\n", jobName)
	}
	return nil
}

func runJob(cmd *cobra.Command, args []string) error {
	jobName := args[0]

	sched, cleanup, err := initScheduler()
	if err != nil {
		return fmt.Errorf("init scheduler: %w", err)
	}
	defer cleanup()

	fmt.Printf("Running job: %s\n", jobName)
	if err := sched.RunJob(jobName); err != nil {
		return fmt.Errorf("run job: %w", err)
	}

	// RunJob is asynchronous; poll the history until a result lands.
	for i := 0; i < 120; i++ {
		time.Sleep(time.Second)
		history, err := sched.History(jobName)
		if err != nil {
			return err
		}
		if results := history.Latest(1); len(results) > 0 {
			printResult(results[0])
			return nil
		}
	}

	fmt.Println("Job still running, check history with: scheduler status")
	return nil
}

func showJobStatus(cmd *cobra.Command, args []string) error {
	sched, cleanup, err := initScheduler()
	if err != nil {
		return fmt.Errorf("init scheduler: %w", err)
	}
	defer cleanup()

	for _, jobName := range sched.Jobs() {
		history, err := sched.History(jobName)
		if err != nil {
			return err
		}

		fmt.Printf("%s\n", jobName)
		fmt.Printf("  Success rate: %.1f%%\n", history.SuccessRate()*100)
		for _, result := range history.Latest(5) {
			printResult(result)
		}
		fmt.Println()
	}
	return nil
}

func printResult(result scheduler.JobResult) {
	status := "OK"
	if !result.Success {
		status = "FAILED: " + result.Error
	}
	fmt.Printf("  %s  %s  %s\n",
		result.StartTime.Format("2006-01-02 15:04:05"),
		result.Duration.Round(time.Millisecond),
		status)
}

func initScheduler() (*scheduler.Scheduler, func(), error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, fmt.Errorf("load config: %w", err)
	}

	log := logger.New(cfg)

	db, err := database.New(cfg)
	if err != nil {
		return nil, nil, fmt.Errorf("connect to database: %w", err)
	}

	if err := db.Migrate(context.Background()); err != nil {
		db.Close()
		return nil, nil, fmt.Errorf("migrate: %w", err)
	}

	redisClient, err := redis.New(cfg)
	if err != nil {
		db.Close()
		return nil, nil, fmt.Errorf("connect to redis: %w", err)
	}

	cleanup := func() {
		redisClient.Close()
		db.Close()
	}

	sched, err := buildScheduler(cfg, log, db, redisClient, nil)
	if err != nil {
		cleanup()
		return nil, nil, err
	}
	return sched, cleanup, nil
}

// buildScheduler wires the pipeline jobs onto a scheduler. notifier
// may be nil when no WebSocket hub is attached.
func buildScheduler(cfg *config.Config, log *logger.Logger, db *database.DB, redisClient *redis.Client, notifier etl.Notifier) (*scheduler.Scheduler, error) {
	policy, err := loadPolicy(cfg)
	if err != nil {
		return nil, fmt.Errorf("load policy: %w", err)
	}

	client := httputil.NewWithTimeout(log, cfg.Source.DownloadTimeout).
		WithRetry(3, 2*time.Second)
	downloader := ingest.NewDownloader(cfg.Source, client, log)

	runner := etl.NewRunner(
		transform.NewEngine(policy, log),
		ingest.NewValidator(log),
		store.NewObservationRepository(db.Pool),
		alerts.NewRepository(db.Pool),
		store.NewReportRepository(db.Pool),
		snapshot.New(redisClient, log),
		notifier,
		log,
	)

	sched := scheduler.New(log)
	if err := sched.AddJob(jobs.NewPipelineJob(downloader, runner, log)); err != nil {
		return nil, err
	}
	if err := sched.AddJob(jobs.NewMaintenanceJob(downloader, log)); err != nil {
		return nil, err
	}
	return sched, nil
}
