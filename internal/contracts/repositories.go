package contracts

import (
	"context"
	"time"
)

// ObservationRepository persists enriched country-day rows, keyed
// uniquely by (iso_code, date). UpsertBatch replaces all non-key
// fields on conflict.
type ObservationRepository interface {
	UpsertBatch(ctx context.Context, obs []*Observation) (int, error)
	GetByCountry(ctx context.Context, code string, from, to time.Time) ([]*Observation, error)
	GetLatest(ctx context.Context) ([]*Observation, error)
	Countries(ctx context.Context) (map[string]string, error)
}

// AlertRepository persists alerts. CreateBatch takes the complete set
// of slots that should be active after a run: active alerts absent
// from the batch are resolved, prior alerts for re-detected slots are
// resolved before their replacements are inserted. At most one alert
// per (country, kind) slot is ever active.
type AlertRepository interface {
	CreateBatch(ctx context.Context, alerts []*Alert) error
	GetActive(ctx context.Context) ([]*Alert, error)
}

// ReportRepository stores quality reports and daily summaries.
type ReportRepository interface {
	SaveReport(ctx context.Context, report *QualityReport) error
	UpsertSummary(ctx context.Context, summary *DailySummary) error
	LatestSummary(ctx context.Context) (*DailySummary, error)
}
