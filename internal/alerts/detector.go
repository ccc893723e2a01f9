// Package alerts turns the latest enriched observations into
// threshold alerts and manages their active/resolved lifecycle.
package alerts

import (
	"sort"
	"time"

	"github.com/epiwatch/epiwatch/internal/contracts"
	"github.com/epiwatch/epiwatch/internal/dataset"
	"github.com/epiwatch/epiwatch/pkg/logger"
)

// Detector evaluates each country's most recent observation against
// the threshold table. It is a point-in-time snapshot check, not a
// historical scan, and it never mutates observations: the detector is
// the sole producer of Alert values and reads everything else.
type Detector struct {
	thresholds contracts.AlertThresholds
	logger     *logger.Logger
}

// NewDetector creates a detector with the given thresholds.
func NewDetector(thresholds contracts.AlertThresholds, log *logger.Logger) *Detector {
	return &Detector{
		thresholds: thresholds,
		logger:     log.WithField("component", "alerts.detector"),
	}
}

// Detect returns the alerts breached on the dataset's latest date.
// Alert state is re-derived from scratch on every run: the result is
// the complete set of alerts that should be active, keyed by
// (country, kind), and carries no memory of previous runs. Resolving
// everything outside that set, including all prior alerts when the
// set is empty, is the persistence layer's side of the contract.
func (d *Detector) Detect(ds *dataset.Dataset) []*contracts.Alert {
	state := make(map[contracts.AlertKey]*contracts.Alert)
	now := time.Now().UTC()

	for _, row := range ds.Latest() {
		// Incidence tiers are mutually exclusive: the higher
		// threshold suppresses the lower one for the same row.
		if v := row.IncidenceRate100k; v != nil {
			switch {
			case *v > d.thresholds.VeryHighIncidence:
				d.record(state, row, contracts.AlertVeryHighIncidence, *v, d.thresholds.VeryHighIncidence, contracts.SeverityHigh, now)
			case *v > d.thresholds.HighIncidence:
				d.record(state, row, contracts.AlertHighIncidence, *v, d.thresholds.HighIncidence, contracts.SeverityMedium, now)
			}
		}

		// CFR is evaluated independently and can co-occur with an
		// incidence alert for the same country and date.
		if v := row.CaseFatalityRate; v != nil && *v > d.thresholds.HighCFR {
			d.record(state, row, contracts.AlertHighCFR, *v, d.thresholds.HighCFR, contracts.SeverityMedium, now)
		}
	}

	out := make([]*contracts.Alert, 0, len(state))
	for _, alert := range state {
		out = append(out, alert)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CountryCode != out[j].CountryCode {
			return out[i].CountryCode < out[j].CountryCode
		}
		return out[i].Kind < out[j].Kind
	})

	d.logger.WithFields(map[string]interface{}{
		"evaluated": len(ds.Latest()),
		"alerts":    len(out),
	}).Info("Alert detection completed")

	return out
}

// record replaces the state slot for (country, kind) wholesale.
func (d *Detector) record(state map[contracts.AlertKey]*contracts.Alert, row *contracts.Observation, kind contracts.AlertKind, value, threshold float64, severity contracts.Severity, now time.Time) {
	alert := &contracts.Alert{
		CountryCode: row.IsoCode,
		Kind:        kind,
		Date:        row.Date,
		MetricValue: value,
		Threshold:   threshold,
		Severity:    severity,
		Active:      true,
		CreatedAt:   now,
	}
	state[alert.Key()] = alert

	d.logger.WithFields(map[string]interface{}{
		"country":   row.IsoCode,
		"kind":      string(kind),
		"value":     value,
		"threshold": threshold,
	}).Debug("Threshold breach detected")
}
