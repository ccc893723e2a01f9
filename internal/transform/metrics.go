package transform

import (
	"github.com/epiwatch/epiwatch/internal/contracts"
	"github.com/epiwatch/epiwatch/internal/dataset"
	"github.com/epiwatch/epiwatch/pkg/logger"
)

// rollingWindow is the centered moving-average span: three days each
// side of the current row.
const rollingWindow = 7

// Calculator computes the derived metrics from the cleaned raw
// fields: per-100k rates, case-fatality rate, vaccination rate and
// 7-day centered moving averages.
type Calculator struct {
	logger *logger.Logger
}

// NewCalculator creates the derived-metrics stage.
func NewCalculator(log *logger.Logger) *Calculator {
	return &Calculator{
		logger: log.WithField("component", "transform.metrics"),
	}
}

// Apply mutates ds, attaching derived fields to every row. It expects
// the dataset sorted by (iso_code, date) and already imputed. A
// derived column is registered in the dataset only when its raw input
// columns exist; individual values stay missing when a guard fails,
// except the two defined-zero cases (CFR with no cases, vaccination
// rate with no population).
func (c *Calculator) Apply(ds *dataset.Dataset) {
	hasIncidence := ds.Columns.Has(contracts.ColNewCases) && ds.Columns.Has(contracts.ColPopulation)
	hasDeathRate := ds.Columns.Has(contracts.ColNewDeaths) && ds.Columns.Has(contracts.ColPopulation)
	hasCFR := ds.Columns.Has(contracts.ColTotalDeaths) && ds.Columns.Has(contracts.ColTotalCases)
	hasVaxRate := ds.Columns.Has(contracts.ColPeopleFullyVaccinated) && ds.Columns.Has(contracts.ColPopulation)

	for _, row := range ds.Rows {
		if hasIncidence {
			row.IncidenceRate100k = per100k(row.NewCases, row.Population)
		}
		if hasDeathRate {
			row.DeathRate100k = per100k(row.NewDeaths, row.Population)
		}
		if hasCFR {
			row.CaseFatalityRate = caseFatalityRate(row.TotalDeaths, row.TotalCases)
		}
		if hasVaxRate {
			row.VaccinationRate = vaccinationRate(row.PeopleFullyVaccinated, row.Population)
		}
	}

	if hasIncidence {
		ds.Columns.Add(contracts.ColIncidenceRate100k)
	}
	if hasDeathRate {
		ds.Columns.Add(contracts.ColDeathRate100k)
	}
	if hasCFR {
		ds.Columns.Add(contracts.ColCaseFatalityRate)
	}
	if hasVaxRate {
		ds.Columns.Add(contracts.ColVaccinationRate)
	}

	// Rolling averages run per country; a window never spans two
	// countries' sequences.
	for _, group := range ds.Partition() {
		if ds.Columns.Has(contracts.ColNewCases) {
			rollingMean(group, contracts.ColNewCases, contracts.ColNewCases7DayAvg)
		}
		if ds.Columns.Has(contracts.ColNewDeaths) {
			rollingMean(group, contracts.ColNewDeaths, contracts.ColNewDeaths7DayAvg)
		}
		if hasIncidence {
			rollingMean(group, contracts.ColIncidenceRate100k, contracts.ColIncidenceRate100k7DayAvg)
		}
	}

	if ds.Columns.Has(contracts.ColNewCases) {
		ds.Columns.Add(contracts.ColNewCases7DayAvg)
	}
	if ds.Columns.Has(contracts.ColNewDeaths) {
		ds.Columns.Add(contracts.ColNewDeaths7DayAvg)
	}
	if hasIncidence {
		ds.Columns.Add(contracts.ColIncidenceRate100k7DayAvg)
	}

	c.logger.WithFields(map[string]interface{}{
		"rows":    ds.Len(),
		"columns": len(ds.Columns),
	}).Info("Derived metrics computed")
}

// per100k returns count/population*100000, or missing when the
// population is missing or non-positive. Never divides by zero.
func per100k(count, population *float64) *float64 {
	if count == nil || population == nil || *population <= 0 {
		return nil
	}
	return contracts.Float(*count / *population * 100000)
}

// caseFatalityRate returns deaths/cases as a percentage. No recorded
// cases yields a defined zero, distinguishing "no cases yet" from
// "unknown".
func caseFatalityRate(totalDeaths, totalCases *float64) *float64 {
	if totalCases == nil || *totalCases <= 0 {
		return contracts.Float(0)
	}
	if totalDeaths == nil {
		return nil
	}
	return contracts.Float(*totalDeaths / *totalCases * 100)
}

// vaccinationRate returns the fully-vaccinated share of the
// population as a percentage, with a defined zero when the population
// is missing or non-positive.
func vaccinationRate(fullyVaccinated, population *float64) *float64 {
	if population == nil || *population <= 0 {
		return contracts.Float(0)
	}
	if fullyVaccinated == nil {
		return nil
	}
	return contracts.Float(*fullyVaccinated / *population * 100)
}

// rollingMean writes the centered moving average of src into dst for
// one country's chronological sequence. The window is truncated at
// the sequence edges and averages only the non-missing values in
// reach; at least one value must be present, otherwise the average
// stays missing.
func rollingMean(group []*contracts.Observation, src, dst string) {
	half := rollingWindow / 2
	for i, row := range group {
		lo := i - half
		if lo < 0 {
			lo = 0
		}
		hi := i + half
		if hi > len(group)-1 {
			hi = len(group) - 1
		}

		sum := 0.0
		count := 0
		for j := lo; j <= hi; j++ {
			if v := *group[j].Field(src); v != nil {
				sum += *v
				count++
			}
		}

		if count > 0 {
			*row.Field(dst) = contracts.Float(sum / float64(count))
		}
	}
}
