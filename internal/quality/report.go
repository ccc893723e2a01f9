package quality

import (
	"math"
	"time"

	"github.com/epiwatch/epiwatch/internal/contracts"
	"github.com/epiwatch/epiwatch/internal/dataset"
	"github.com/epiwatch/epiwatch/pkg/logger"
)

// identityColumns are excluded from the completeness breakdown.
var identityColumns = map[string]struct{}{
	contracts.ColIsoCode:  {},
	contracts.ColLocation: {},
	contracts.ColDate:     {},
}

// Reporter builds the dataset-level quality report: row count,
// country count, date span and per-column completeness.
type Reporter struct {
	logger *logger.Logger
}

// NewReporter creates the report stage.
func NewReporter(log *logger.Logger) *Reporter {
	return &Reporter{
		logger: log.WithField("component", "quality.reporter"),
	}
}

// Generate computes the report for ds at time now. It is a pure
// function of the dataset: no side effects, same dataset in, same
// report out.
func (r *Reporter) Generate(ds *dataset.Dataset, now time.Time) *contracts.QualityReport {
	report := &contracts.QualityReport{
		GeneratedAt:  now,
		TotalRows:    ds.Len(),
		Countries:    ds.Countries(),
		Completeness: make(map[string]float64),
	}

	if min, max, ok := ds.DateRange(); ok {
		report.DateRange = contracts.DateRange{
			Start: min,
			End:   max,
			Days:  int(max.Sub(min).Hours() / 24),
		}
	}

	total := ds.Len()
	for _, col := range ds.Columns.Sorted() {
		if _, identity := identityColumns[col]; identity {
			continue
		}
		nonMissing := 0
		for _, row := range ds.Rows {
			if field := row.Field(col); field != nil && *field != nil {
				nonMissing++
			}
		}
		pct := 0.0
		if total > 0 {
			pct = float64(nonMissing) / float64(total) * 100
		}
		report.Completeness[col] = math.Round(pct*10) / 10
	}

	r.logger.WithFields(map[string]interface{}{
		"rows":      report.TotalRows,
		"countries": report.Countries,
		"start":     report.DateRange.Start.Format("2006-01-02"),
		"end":       report.DateRange.End.Format("2006-01-02"),
	}).Info("Quality report generated")

	return report
}
