package contracts

import "time"

// QualityReport is the dataset-level quality document produced once
// per run. It is a pure function of the dataset at report time and is
// never updated after emission.
type QualityReport struct {
	GeneratedAt  time.Time          `json:"timestamp"`
	TotalRows    int                `json:"total_rows"`
	Countries    int                `json:"countries"`
	DateRange    DateRange          `json:"date_range"`
	Completeness map[string]float64 `json:"data_completeness"` // column -> percent, one decimal
}

// DateRange is the span covered by a dataset.
type DateRange struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
	Days  int       `json:"days"`
}

// DailySummary is one pre-aggregated row per pipeline day, kept for
// cheap dashboard reads.
type DailySummary struct {
	Date                  time.Time `json:"summary_date"`
	TotalCountries        int       `json:"total_countries"`
	TotalGlobalCases      *float64  `json:"total_global_cases,omitempty"`
	TotalGlobalDeaths     *float64  `json:"total_global_deaths,omitempty"`
	NewGlobalCases        *float64  `json:"new_global_cases,omitempty"`
	NewGlobalDeaths       *float64  `json:"new_global_deaths,omitempty"`
	CountriesHighIncidence int      `json:"countries_high_incidence"`
	AvgVaccinationRate    *float64  `json:"avg_vaccination_rate,omitempty"`
	DataCompletenessPct   float64   `json:"data_completeness_pct"`
}
