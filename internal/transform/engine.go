package transform

import (
	"errors"
	"fmt"
	"time"

	"github.com/epiwatch/epiwatch/internal/alerts"
	"github.com/epiwatch/epiwatch/internal/contracts"
	"github.com/epiwatch/epiwatch/internal/dataset"
	"github.com/epiwatch/epiwatch/internal/pipelineconfig"
	"github.com/epiwatch/epiwatch/internal/quality"
	"github.com/epiwatch/epiwatch/pkg/logger"
)

// requiredColumns must exist in the raw input for a run to proceed.
var requiredColumns = []string{
	contracts.ColPopulation,
	contracts.ColTotalCases,
	contracts.ColNewCases,
	contracts.ColTotalDeaths,
	contracts.ColNewDeaths,
}

// ErrEmptyInput is returned when a run receives no rows at all.
var ErrEmptyInput = errors.New("empty input dataset")

// StageError tags a fatal error with the pipeline stage that raised
// it, so callers can tell "no input" from "malformed input".
type StageError struct {
	Stage string
	Err   error
}

func (e *StageError) Error() string {
	return fmt.Sprintf("stage %s: %v", e.Stage, e.Err)
}

func (e *StageError) Unwrap() error {
	return e.Err
}

// Result is everything one run produces. A run either returns a
// complete Result or nothing; there is no partial output.
type Result struct {
	Dataset *dataset.Dataset
	Report  *contracts.QualityReport
	Alerts  []*contracts.Alert
}

// Engine is the batch transformation pipeline: filter/normalize,
// imputation, derived metrics, quality scoring and alert detection
// over one immutable input snapshot. The engine performs no I/O;
// reading the raw snapshot and persisting the result belong to the
// caller.
type Engine struct {
	filterer   *Filterer
	imputer    *Imputer
	calculator *Calculator
	scorer     *quality.Scorer
	reporter   *quality.Reporter
	detector   *alerts.Detector
	logger     *logger.Logger
}

// NewEngine wires the pipeline stages from one policy config.
func NewEngine(cfg *pipelineconfig.Config, log *logger.Logger) *Engine {
	return &Engine{
		filterer:   NewFilterer(cfg.Filter, log),
		imputer:    NewImputer(cfg.Impute, log),
		calculator: NewCalculator(log),
		scorer:     quality.NewScorer(cfg.Score, log),
		reporter:   quality.NewReporter(log),
		detector:   alerts.NewDetector(cfg.Alerts.Thresholds, log),
		logger:     log.WithField("component", "transform.engine"),
	}
}

// Run executes the full pipeline over raw. now anchors the retention
// window and the report timestamp. Data anomalies (negative daily
// counts, implausible rates) never fail a run; they surface through
// the quality score, the report and the alerts.
func (e *Engine) Run(raw *dataset.Dataset, now time.Time) (*Result, error) {
	start := time.Now()

	if raw == nil || raw.Len() == 0 {
		return nil, &StageError{Stage: "input", Err: ErrEmptyInput}
	}
	for _, col := range requiredColumns {
		if !raw.Columns.Has(col) {
			return nil, &StageError{Stage: "input", Err: fmt.Errorf("required column %s missing", col)}
		}
	}

	ds := e.filterer.Apply(raw, now)
	if ds.Len() == 0 {
		return nil, &StageError{Stage: "filter", Err: errors.New("no rows left after country and retention filtering")}
	}

	e.imputer.Apply(ds)
	e.calculator.Apply(ds)
	e.scorer.Apply(ds)

	report := e.reporter.Generate(ds, now)
	detected := e.detector.Detect(ds)

	e.logger.WithFields(map[string]interface{}{
		"rows":        ds.Len(),
		"countries":   ds.Countries(),
		"alerts":      len(detected),
		"duration_ms": time.Since(start).Milliseconds(),
	}).Info("Pipeline run completed")

	return &Result{Dataset: ds, Report: report, Alerts: detected}, nil
}
