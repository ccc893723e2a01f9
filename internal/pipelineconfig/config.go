// Package pipelineconfig defines the policy knobs of the surveillance
// pipeline: which countries and columns to keep, the retention window,
// alert thresholds and quality-score penalties. Everything that was a
// scattered constant lives here, loaded once at the boundary.
package pipelineconfig

import "github.com/epiwatch/epiwatch/internal/contracts"

// Config is the full pipeline policy.
type Config struct {
	Filter Filter `yaml:"filter" json:"filter"`
	Impute Impute `yaml:"impute" json:"impute"`
	Alerts Alerts `yaml:"alerts" json:"alerts"`
	Score  Score  `yaml:"score" json:"score"`
}

// Filter drives the filter/normalize stage.
type Filter struct {
	TargetCountries []string `yaml:"target_countries" json:"target_countries"`
	CoreColumns     []string `yaml:"core_columns" json:"core_columns"`
	RetentionDays   int      `yaml:"retention_days" json:"retention_days"`
}

// Impute lists which columns get which fill strategy. Columns listed
// nowhere are left untouched.
type Impute struct {
	ForwardFill []string `yaml:"forward_fill" json:"forward_fill"`
	ZeroFill    []string `yaml:"zero_fill" json:"zero_fill"`
}

// Alerts wraps the detector thresholds.
type Alerts struct {
	Thresholds contracts.AlertThresholds `yaml:"thresholds" json:"thresholds"`
}

// Score holds the per-row quality score penalties.
type Score struct {
	KeyFields       []string `yaml:"key_fields" json:"key_fields"`
	MissingPenalty  float64  `yaml:"missing_penalty" json:"missing_penalty"`
	NegativePenalty float64  `yaml:"negative_penalty" json:"negative_penalty"`
	CFROutlierAbove float64  `yaml:"cfr_outlier_above" json:"cfr_outlier_above"`
	CFRPenalty      float64  `yaml:"cfr_penalty" json:"cfr_penalty"`
}

// Default returns the production policy: eight countries of interest
// plus the world aggregate, the thirteen OWID core columns, two years
// of retention, and the original threshold table.
func Default() *Config {
	return &Config{
		Filter: Filter{
			TargetCountries: []string{
				"FRA", "DEU", "ITA", "ESP", "GBR", "BEL", "NLD",
				"OWID_WRL",
			},
			CoreColumns: []string{
				contracts.ColIsoCode, contracts.ColLocation, contracts.ColDate,
				contracts.ColPopulation,
				contracts.ColTotalCases, contracts.ColNewCases,
				contracts.ColTotalDeaths, contracts.ColNewDeaths,
				contracts.ColTotalVaccinations, contracts.ColPeopleVaccinated,
				contracts.ColPeopleFullyVaccinated, contracts.ColNewVaccinations,
				contracts.ColStringencyIndex,
			},
			RetentionDays: 730,
		},
		Impute: Impute{
			ForwardFill: []string{
				contracts.ColTotalCases, contracts.ColTotalDeaths,
				contracts.ColTotalVaccinations, contracts.ColPeopleVaccinated,
				contracts.ColPeopleFullyVaccinated,
				contracts.ColPopulation,
				contracts.ColStringencyIndex,
			},
			ZeroFill: []string{
				contracts.ColNewCases, contracts.ColNewDeaths,
				contracts.ColNewVaccinations,
			},
		},
		Alerts: Alerts{
			Thresholds: contracts.DefaultAlertThresholds(),
		},
		Score: Score{
			KeyFields: []string{
				contracts.ColNewCases, contracts.ColTotalCases,
				contracts.ColPopulation,
			},
			MissingPenalty:  15,
			NegativePenalty: 10,
			// The 20% outlier bound is intentionally unrelated to the
			// 3% alert threshold; scoring and alerting use different
			// notions of "too high".
			CFROutlierAbove: 20,
			CFRPenalty:      5,
		},
	}
}
