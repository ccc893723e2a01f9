package alerts

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/epiwatch/epiwatch/internal/contracts"
)

// Repository implements contracts.AlertRepository on PostgreSQL.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates an alert repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// CreateBatch reconciles the stored alert state with one detection
// snapshot, inside a single transaction. The batch is the complete set
// of slots that should be active after the run: any active alert whose
// (country, kind) slot is absent from the batch no longer breaches and
// is resolved, prior alerts occupying a re-detected slot are resolved
// before the replacement is inserted. An empty batch resolves every
// active alert.
func (r *Repository) CreateBatch(ctx context.Context, alerts []*contracts.Alert) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin alerts tx: %w", err)
	}
	defer tx.Rollback(ctx)

	now := time.Now().UTC()

	countries, kinds := keyColumns(alerts)
	resolveStale := `
		UPDATE covid_alerts
		SET is_active = FALSE, resolved_at = $1
		WHERE is_active
		  AND (country_code, alert_type) NOT IN (SELECT unnest($2::text[]), unnest($3::text[]))
	`
	if _, err := tx.Exec(ctx, resolveStale, now, countries, kinds); err != nil {
		return fmt.Errorf("resolve stale alerts: %w", err)
	}

	resolve := `
		UPDATE covid_alerts
		SET is_active = FALSE, resolved_at = $3
		WHERE country_code = $1 AND alert_type = $2 AND is_active
	`
	insert := `
		INSERT INTO covid_alerts
			(country_code, alert_type, alert_date, metric_value, threshold_value, severity, is_active, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, TRUE, $7)
	`

	for _, a := range alerts {
		if _, err := tx.Exec(ctx, resolve, a.CountryCode, string(a.Kind), now); err != nil {
			return fmt.Errorf("resolve prior alert %s/%s: %w", a.CountryCode, a.Kind, err)
		}
		if _, err := tx.Exec(ctx, insert,
			a.CountryCode, string(a.Kind), a.Date, a.MetricValue, a.Threshold, string(a.Severity), a.CreatedAt,
		); err != nil {
			return fmt.Errorf("insert alert %s/%s: %w", a.CountryCode, a.Kind, err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit alerts tx: %w", err)
	}
	return nil
}

// keyColumns flattens the batch's (country, kind) slots into parallel
// arrays for the stale-alert predicate. Empty slices, never nil, so an
// empty batch matches no slot and the predicate resolves everything
// still active.
func keyColumns(alerts []*contracts.Alert) (countries, kinds []string) {
	countries = make([]string, 0, len(alerts))
	kinds = make([]string, 0, len(alerts))
	for _, a := range alerts {
		countries = append(countries, a.CountryCode)
		kinds = append(kinds, string(a.Kind))
	}
	return countries, kinds
}

// GetActive returns all currently active alerts, newest first.
func (r *Repository) GetActive(ctx context.Context) ([]*contracts.Alert, error) {
	query := `
		SELECT id, country_code, alert_type, alert_date, metric_value, threshold_value, severity, is_active, created_at, resolved_at
		FROM covid_alerts
		WHERE is_active
		ORDER BY created_at DESC, country_code
	`

	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("query active alerts: %w", err)
	}
	defer rows.Close()

	var alerts []*contracts.Alert
	for rows.Next() {
		var a contracts.Alert
		var kind, severity string
		if err := rows.Scan(
			&a.ID, &a.CountryCode, &kind, &a.Date, &a.MetricValue, &a.Threshold, &severity, &a.Active, &a.CreatedAt, &a.ResolvedAt,
		); err != nil {
			return nil, fmt.Errorf("scan alert: %w", err)
		}
		a.Kind = contracts.AlertKind(kind)
		a.Severity = contracts.Severity(severity)
		alerts = append(alerts, &a)
	}
	return alerts, rows.Err()
}
