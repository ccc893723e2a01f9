// Package quality attaches a heuristic confidence score to each row
// and produces the dataset-level completeness report.
package quality

import (
	"github.com/epiwatch/epiwatch/internal/contracts"
	"github.com/epiwatch/epiwatch/internal/dataset"
	"github.com/epiwatch/epiwatch/internal/pipelineconfig"
	"github.com/epiwatch/epiwatch/pkg/logger"
)

// Scorer computes the per-row data quality score. The score starts at
// 100, only ever decreases, and is floored at 0. It is metadata for
// downstream consumers; no other field is touched, and anomalies that
// reduce it are never fatal.
type Scorer struct {
	cfg    pipelineconfig.Score
	logger *logger.Logger
}

// NewScorer creates the scoring stage from policy.
func NewScorer(cfg pipelineconfig.Score, log *logger.Logger) *Scorer {
	return &Scorer{
		cfg:    cfg,
		logger: log.WithField("component", "quality.scorer"),
	}
}

// Apply recomputes QualityScore for every row in ds.
func (s *Scorer) Apply(ds *dataset.Dataset) {
	for _, row := range ds.Rows {
		row.QualityScore = s.score(row)
	}

	s.logger.WithField("rows", ds.Len()).Info("Quality scores computed")
}

func (s *Scorer) score(row *contracts.Observation) float64 {
	score := 100.0

	// Missing key fields. A column absent from the source counts as
	// missing on every row.
	for _, col := range s.cfg.KeyFields {
		if field := row.Field(col); field != nil && *field == nil {
			score -= s.cfg.MissingPenalty
		}
	}

	// Negative daily count: a source correction, retained but
	// penalized.
	if row.NewCases != nil && *row.NewCases < 0 {
		score -= s.cfg.NegativePenalty
	}

	// Plausibility outlier, not an error.
	if row.CaseFatalityRate != nil && *row.CaseFatalityRate > s.cfg.CFROutlierAbove {
		score -= s.cfg.CFRPenalty
	}

	if score < 0 {
		score = 0
	}
	return score
}
