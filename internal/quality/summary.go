package quality

import (
	"github.com/epiwatch/epiwatch/internal/contracts"
	"github.com/epiwatch/epiwatch/internal/dataset"
)

// worldCode is OWID's aggregate marker for global totals.
const worldCode = "OWID_WRL"

// summaryHighIncidence is the incidence bound used only for the
// dashboard counter, deliberately looser than the alert thresholds.
const summaryHighIncidence = 100.0

// BuildSummary condenses the enriched dataset and its report into the
// daily summary row. Returns nil when the dataset carries no world
// aggregate row on its latest date.
func BuildSummary(ds *dataset.Dataset, report *contracts.QualityReport) *contracts.DailySummary {
	latest := ds.Latest()

	var world *contracts.Observation
	for _, row := range latest {
		if row.IsoCode == worldCode {
			world = row
			break
		}
	}
	if world == nil {
		return nil
	}

	highIncidence := 0
	vaxSum, vaxCount := 0.0, 0
	for _, row := range latest {
		if row.IncidenceRate100k != nil && *row.IncidenceRate100k > summaryHighIncidence {
			highIncidence++
		}
		if row.VaccinationRate != nil {
			vaxSum += *row.VaccinationRate
			vaxCount++
		}
	}

	summary := &contracts.DailySummary{
		Date:                   world.Date,
		TotalCountries:         ds.Countries(),
		TotalGlobalCases:       world.TotalCases,
		TotalGlobalDeaths:      world.TotalDeaths,
		NewGlobalCases:         world.NewCases,
		NewGlobalDeaths:        world.NewDeaths,
		CountriesHighIncidence: highIncidence,
		DataCompletenessPct:    meanCompleteness(report),
	}
	if vaxCount > 0 {
		summary.AvgVaccinationRate = contracts.Float(vaxSum / float64(vaxCount))
	}

	return summary
}

// meanCompleteness averages the report's per-column completeness.
func meanCompleteness(report *contracts.QualityReport) float64 {
	if report == nil || len(report.Completeness) == 0 {
		return 0
	}
	sum := 0.0
	for _, pct := range report.Completeness {
		sum += pct
	}
	return sum / float64(len(report.Completeness))
}
