// Package metrics exposes pipeline observability counters over
// Prometheus.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// RunsTotal counts pipeline runs by outcome.
	RunsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "epiwatch_pipeline_runs_total",
			Help: "Total number of pipeline runs",
		},
		[]string{"status"},
	)

	// RunDuration tracks end-to-end run duration.
	RunDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "epiwatch_pipeline_run_duration_seconds",
			Help:    "Duration of pipeline runs in seconds",
			Buckets: prometheus.ExponentialBuckets(0.1, 2, 12),
		},
	)

	// RowsProcessed counts enriched rows written per run.
	RowsProcessed = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "epiwatch_rows_processed_total",
			Help: "Total number of enriched rows written",
		},
	)

	// AlertsCreated counts alerts by kind.
	AlertsCreated = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "epiwatch_alerts_created_total",
			Help: "Total number of alerts created",
		},
		[]string{"kind", "severity"},
	)

	// LastRunTimestamp records when the last successful run finished.
	LastRunTimestamp = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "epiwatch_last_run_timestamp_seconds",
			Help: "Unix timestamp of the last successful pipeline run",
		},
	)
)

// RecordRun records one pipeline run outcome.
func RecordRun(duration time.Duration, rows int, err error) {
	status := "success"
	if err != nil {
		status = "error"
	}
	RunsTotal.WithLabelValues(status).Inc()
	RunDuration.Observe(duration.Seconds())
	if err == nil {
		RowsProcessed.Add(float64(rows))
		LastRunTimestamp.SetToCurrentTime()
	}
}

// Handler returns the /metrics HTTP handler.
func Handler() http.Handler {
	return promhttp.Handler()
}
