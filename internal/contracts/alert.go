package contracts

import "time"

// AlertKind identifies one threshold rule.
type AlertKind string

const (
	AlertVeryHighIncidence AlertKind = "very_high_incidence"
	AlertHighIncidence     AlertKind = "high_incidence"
	AlertHighCFR           AlertKind = "high_cfr"
)

// Severity of an alert.
type Severity string

const (
	SeverityHigh   Severity = "high"
	SeverityMedium Severity = "medium"
)

// Alert records a threshold breach for one country on one date.
type Alert struct {
	ID          int64      `json:"id,omitempty"`
	CountryCode string     `json:"country_code"`
	Kind        AlertKind  `json:"alert_type"`
	Date        time.Time  `json:"alert_date"`
	MetricValue float64    `json:"metric_value"`
	Threshold   float64    `json:"threshold_value"`
	Severity    Severity   `json:"severity"`
	Active      bool       `json:"is_active"`
	CreatedAt   time.Time  `json:"created_at"`
	ResolvedAt  *time.Time `json:"resolved_at,omitempty"`
}

// Key identifies the alert state slot an alert occupies: one active
// alert at most per (country, kind).
type AlertKey struct {
	CountryCode string
	Kind        AlertKind
}

// Key returns the state slot of a.
func (a *Alert) Key() AlertKey {
	return AlertKey{CountryCode: a.CountryCode, Kind: a.Kind}
}

// AlertThresholds are the policy constants the detector evaluates
// against. The incidence thresholds are tiered: the higher one wins
// and suppresses the lower for the same row.
type AlertThresholds struct {
	HighIncidence     float64 `yaml:"high_incidence"`      // cases per 100k
	VeryHighIncidence float64 `yaml:"very_high_incidence"` // cases per 100k
	HighCFR           float64 `yaml:"high_cfr"`            // percent
}

// DefaultAlertThresholds returns the production thresholds.
func DefaultAlertThresholds() AlertThresholds {
	return AlertThresholds{
		HighIncidence:     150,
		VeryHighIncidence: 300,
		HighCFR:           3.0,
	}
}
