package commands

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/epiwatch/epiwatch/internal/api"
	"github.com/epiwatch/epiwatch/internal/api/handlers"
	"github.com/epiwatch/epiwatch/internal/metrics"
	"github.com/epiwatch/epiwatch/internal/snapshot"
	"github.com/epiwatch/epiwatch/internal/store"
	"github.com/epiwatch/epiwatch/pkg/config"
	"github.com/epiwatch/epiwatch/pkg/database"
	"github.com/epiwatch/epiwatch/pkg/logger"
	"github.com/epiwatch/epiwatch/pkg/redis"

	alertstore "github.com/epiwatch/epiwatch/internal/alerts"
)

// apiCmd represents the api command
var apiCmd = &cobra.Command{
	Use:   "api",
	Short: "Start the HTTP API server",
	Long: `Starts the REST API server.

This command:
- Serves country and timeseries endpoints
- Serves active alerts and the daily summary
- Streams run events over WebSocket
- Exposes Prometheus metrics on a separate port

Endpoints:
  GET  /health
  GET  /api/countries
  GET  /api/country/{code}
  GET  /api/country/{code}/timeseries
  GET  /api/summary
  GET  /api/alerts
  GET  /ws

Example:
  go run ./cmd/epiwatch api
  go run ./cmd/epiwatch api --port 8080
  go run ./cmd/epiwatch api --with-scheduler`,
	RunE: runAPIServer,
}

var (
	apiPort       string
	withScheduler bool
)

func init() {
	rootCmd.AddCommand(apiCmd)

	apiCmd.Flags().StringVar(&apiPort, "port", "", "API server port (overrides PORT)")
	apiCmd.Flags().BoolVar(&withScheduler, "with-scheduler", false, "run the job scheduler in-process")
}

func runAPIServer(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if apiPort != "" {
		cfg.Port = apiPort
	}

	log := logger.New(cfg)

	log.WithFields(map[string]interface{}{
		"port": cfg.Port,
		"env":  cfg.Env,
	}).Info("Initializing API server")

	db, err := database.New(cfg)
	if err != nil {
		return fmt.Errorf("connect to database: %w", err)
	}
	defer db.Close()

	if err := db.Migrate(context.Background()); err != nil {
		return fmt.Errorf("migrate: %w", err)
	}

	redisClient, err := redis.New(cfg)
	if err != nil {
		return fmt.Errorf("connect to redis: %w", err)
	}
	defer redisClient.Close()

	cache := snapshot.New(redisClient, log)

	obsRepo := store.NewObservationRepository(db.Pool)
	alertRepo := alertstore.NewRepository(db.Pool)
	reportRepo := store.NewReportRepository(db.Pool)

	dataHandler := handlers.NewDataHandler(obsRepo, reportRepo, cache, log)
	alertHandler := handlers.NewAlertHandler(alertRepo, log)

	hub := api.NewHub(log)
	router := api.NewRouter(dataHandler, alertHandler, hub, log)
	server := api.New(cfg, log, router)

	if withScheduler {
		sched, err := buildScheduler(cfg, log, db, redisClient, hub)
		if err != nil {
			return fmt.Errorf("init scheduler: %w", err)
		}
		sched.Start()
		defer sched.Stop()
	}

	if cfg.MetricsEnabled {
		go func() {
			addr := ":" + cfg.MetricsPort
			log.WithField("addr", addr).Info("Metrics listener started")
			if err := http.ListenAndServe(addr, metrics.Handler()); err != nil {
				log.WithError(err).Error("Metrics listener stopped")
			}
		}()
	}

	go func() {
		if err := server.Start(); err != nil {
			log.WithError(err).Fatal("Failed to start server")
		}
	}()

	log.Info("API server started successfully")
	fmt.Printf("Server running on http://localhost:%s\n", cfg.Port)
	fmt.Println("Press Ctrl+C to stop")

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	log.Info("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}

	log.Info("Server stopped")
	return nil
}
