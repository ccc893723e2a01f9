package transform

import (
	"time"

	"github.com/epiwatch/epiwatch/internal/contracts"
	"github.com/epiwatch/epiwatch/internal/dataset"
	"github.com/epiwatch/epiwatch/internal/pipelineconfig"
	"github.com/epiwatch/epiwatch/pkg/logger"
)

// Filterer restricts a raw dataset to the countries, columns and time
// window of interest and puts it into canonical order.
type Filterer struct {
	cfg    pipelineconfig.Filter
	logger *logger.Logger
}

// NewFilterer creates a filter stage from policy.
func NewFilterer(cfg pipelineconfig.Filter, log *logger.Logger) *Filterer {
	return &Filterer{
		cfg:    cfg,
		logger: log.WithField("component", "transform.filter"),
	}
}

// Apply returns a new dataset containing only allow-listed countries,
// allow-listed columns that exist in the source (absent ones are
// silently omitted, never synthesized), and dates within the
// retention window, sorted by (iso_code, date). A country with no
// matching rows is simply absent; that is not an error.
func (f *Filterer) Apply(ds *dataset.Dataset, now time.Time) *dataset.Dataset {
	allowed := make(map[string]struct{}, len(f.cfg.TargetCountries))
	for _, code := range f.cfg.TargetCountries {
		allowed[code] = struct{}{}
	}

	columns := make(dataset.ColumnSet)
	for _, col := range f.cfg.CoreColumns {
		if ds.Columns.Has(col) {
			columns.Add(col)
		}
	}

	cutoff := now.AddDate(0, 0, -f.cfg.RetentionDays)

	rows := make([]*contracts.Observation, 0, len(ds.Rows))
	for _, row := range ds.Rows {
		if _, ok := allowed[row.IsoCode]; !ok {
			continue
		}
		if row.Date.Before(cutoff) {
			continue
		}
		f.dropUnlisted(row, columns)
		rows = append(rows, row)
	}

	out := dataset.New(rows, columns)
	out.Sort()

	f.logger.WithFields(map[string]interface{}{
		"rows_in":  ds.Len(),
		"rows_out": out.Len(),
		"columns":  len(columns),
		"cutoff":   cutoff.Format("2006-01-02"),
	}).Info("Filtered dataset")

	return out
}

// dropUnlisted clears optional fields whose columns were not retained,
// so downstream stages and the completeness report see a consistent
// column set.
func (f *Filterer) dropUnlisted(row *contracts.Observation, columns dataset.ColumnSet) {
	for _, col := range []string{
		contracts.ColPopulation,
		contracts.ColTotalCases, contracts.ColNewCases,
		contracts.ColTotalDeaths, contracts.ColNewDeaths,
		contracts.ColTotalVaccinations, contracts.ColPeopleVaccinated,
		contracts.ColPeopleFullyVaccinated, contracts.ColNewVaccinations,
		contracts.ColStringencyIndex,
	} {
		if columns.Has(col) {
			continue
		}
		if field := row.Field(col); field != nil {
			*field = nil
		}
	}
}
