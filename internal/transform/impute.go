package transform

import (
	"github.com/epiwatch/epiwatch/internal/contracts"
	"github.com/epiwatch/epiwatch/internal/dataset"
	"github.com/epiwatch/epiwatch/internal/pipelineconfig"
	"github.com/epiwatch/epiwatch/pkg/logger"
)

// Imputer fills missing values in place, one strategy per column,
// applied independently per country. Filling never crosses a country
// boundary: a gap in FRA is only ever filled from earlier FRA rows.
//
// Zero-filling a daily counter is lossy: afterwards "was missing" and
// "was genuinely zero" are indistinguishable. That is the intended
// trade-off, since daily counters feed rate calculations that must
// not propagate missingness.
type Imputer struct {
	cfg    pipelineconfig.Impute
	logger *logger.Logger
}

// NewImputer creates the imputation stage from policy.
func NewImputer(cfg pipelineconfig.Impute, log *logger.Logger) *Imputer {
	return &Imputer{
		cfg:    cfg,
		logger: log.WithField("component", "transform.impute"),
	}
}

// Apply mutates ds. It expects the dataset sorted by (iso_code, date).
// Columns not present in the dataset, and columns with no configured
// strategy, are left untouched.
func (im *Imputer) Apply(ds *dataset.Dataset) {
	filled := 0
	for _, group := range ds.Partition() {
		for _, col := range im.cfg.ForwardFill {
			if ds.Columns.Has(col) {
				filled += forwardFill(group, col)
			}
		}
		for _, col := range im.cfg.ZeroFill {
			if ds.Columns.Has(col) {
				filled += zeroFill(group, col)
			}
		}
	}

	im.logger.WithFields(map[string]interface{}{
		"rows":          ds.Len(),
		"values_filled": filled,
	}).Info("Imputed missing values")
}

// forwardFill carries the most recent non-missing value of col down
// the chronological sequence. Rows before the first non-missing value
// stay missing.
func forwardFill(group []*contracts.Observation, col string) int {
	filled := 0
	var last *float64
	for _, row := range group {
		field := row.Field(col)
		if field == nil {
			return filled
		}
		if *field != nil {
			last = *field
			continue
		}
		if last != nil {
			v := *last
			*field = &v
			filled++
		}
	}
	return filled
}

// zeroFill replaces missing values of col with an exact 0.
func zeroFill(group []*contracts.Observation, col string) int {
	filled := 0
	for _, row := range group {
		field := row.Field(col)
		if field == nil {
			return filled
		}
		if *field == nil {
			*field = contracts.Float(0)
			filled++
		}
	}
	return filled
}
