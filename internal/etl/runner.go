// Package etl coordinates one full pipeline run: engine computation
// over a raw snapshot, then persistence, alert lifecycle, summary and
// cache refresh.
package etl

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/epiwatch/epiwatch/internal/contracts"
	"github.com/epiwatch/epiwatch/internal/dataset"
	"github.com/epiwatch/epiwatch/internal/ingest"
	"github.com/epiwatch/epiwatch/internal/metrics"
	"github.com/epiwatch/epiwatch/internal/quality"
	"github.com/epiwatch/epiwatch/internal/snapshot"
	"github.com/epiwatch/epiwatch/internal/transform"
	"github.com/epiwatch/epiwatch/pkg/logger"
)

// Notifier receives run results for fan-out (websocket feed). May be
// nil.
type Notifier interface {
	NotifyRun(result *RunResult)
}

// RunResult summarizes one completed run.
type RunResult struct {
	RunID     string                   `json:"run_id"`
	Rows      int                      `json:"rows"`
	Countries int                      `json:"countries"`
	Alerts    []*contracts.Alert       `json:"alerts"`
	Report    *contracts.QualityReport `json:"report"`
	Duration  time.Duration            `json:"duration"`
}

// Runner executes the engine and fans its three outputs out to the
// collaborators: observation upsert, alert lifecycle, report and
// summary rows, snapshot cache. The engine itself performs no I/O;
// everything stateful happens here.
type Runner struct {
	engine    *transform.Engine
	validator *ingest.Validator

	obsRepo    contracts.ObservationRepository
	alertRepo  contracts.AlertRepository
	reportRepo contracts.ReportRepository
	cache      *snapshot.Cache
	notifier   Notifier

	logger *logger.Logger
}

// NewRunner wires a runner. cache and notifier may be nil.
func NewRunner(
	engine *transform.Engine,
	validator *ingest.Validator,
	obsRepo contracts.ObservationRepository,
	alertRepo contracts.AlertRepository,
	reportRepo contracts.ReportRepository,
	cache *snapshot.Cache,
	notifier Notifier,
	log *logger.Logger,
) *Runner {
	return &Runner{
		engine:     engine,
		validator:  validator,
		obsRepo:    obsRepo,
		alertRepo:  alertRepo,
		reportRepo: reportRepo,
		cache:      cache,
		notifier:   notifier,
		logger:     log.WithField("component", "etl.runner"),
	}
}

// Run processes one raw snapshot end to end. Fatal errors leave no
// partial engine output behind; persistence failures after the engine
// completed are surfaced as downstream write failures with their
// stage named.
func (r *Runner) Run(ctx context.Context, raw *dataset.Dataset, now time.Time) (*RunResult, error) {
	runID := uuid.NewString()
	start := time.Now()
	log := r.logger.WithField("run_id", runID)

	result, err := r.run(ctx, raw, now, runID, log)
	metrics.RecordRun(time.Since(start), rowCount(result), err)
	if err != nil {
		log.WithError(err).Error("Pipeline run failed")
		return nil, err
	}

	result.Duration = time.Since(start)
	log.WithFields(map[string]interface{}{
		"rows":        result.Rows,
		"countries":   result.Countries,
		"alerts":      len(result.Alerts),
		"duration_ms": result.Duration.Milliseconds(),
	}).Info("Pipeline run persisted")

	if r.notifier != nil {
		r.notifier.NotifyRun(result)
	}
	return result, nil
}

func (r *Runner) run(ctx context.Context, raw *dataset.Dataset, now time.Time, runID string, log *logger.Logger) (*RunResult, error) {
	if err := r.validator.Validate(raw, now); err != nil {
		return nil, &transform.StageError{Stage: "input", Err: err}
	}

	out, err := r.engine.Run(raw, now)
	if err != nil {
		return nil, err
	}

	written, err := r.obsRepo.UpsertBatch(ctx, out.Dataset.Rows)
	if err != nil {
		return nil, fmt.Errorf("store observations: %w", err)
	}

	if err := r.alertRepo.CreateBatch(ctx, out.Alerts); err != nil {
		return nil, fmt.Errorf("store alerts: %w", err)
	}
	for _, a := range out.Alerts {
		metrics.AlertsCreated.WithLabelValues(string(a.Kind), string(a.Severity)).Inc()
	}

	if err := r.reportRepo.SaveReport(ctx, out.Report); err != nil {
		return nil, fmt.Errorf("store quality report: %w", err)
	}

	if summary := quality.BuildSummary(out.Dataset, out.Report); summary != nil {
		if err := r.reportRepo.UpsertSummary(ctx, summary); err != nil {
			return nil, fmt.Errorf("store daily summary: %w", err)
		}
	} else {
		log.Warn("No world aggregate row, daily summary skipped")
	}

	// The cache is best-effort; a cold cache only costs the serving
	// layer a database read.
	if r.cache != nil {
		if err := r.cache.Update(ctx, out.Dataset); err != nil {
			log.WithError(err).Warn("Snapshot cache update failed")
		}
	}

	return &RunResult{
		RunID:     runID,
		Rows:      written,
		Countries: out.Dataset.Countries(),
		Alerts:    out.Alerts,
		Report:    out.Report,
	}, nil
}

func rowCount(result *RunResult) int {
	if result == nil {
		return 0
	}
	return result.Rows
}
