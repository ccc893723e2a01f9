package store

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/epiwatch/epiwatch/internal/contracts"
)

// ReportRepository implements contracts.ReportRepository. Quality
// reports are append-only; summaries are one row per day, replaced on
// rerun.
type ReportRepository struct {
	pool *pgxpool.Pool
}

// NewReportRepository creates a report repository.
func NewReportRepository(pool *pgxpool.Pool) *ReportRepository {
	return &ReportRepository{pool: pool}
}

// SaveReport inserts a quality report. Reports are immutable once
// written.
func (r *ReportRepository) SaveReport(ctx context.Context, report *contracts.QualityReport) error {
	completeness, err := json.Marshal(report.Completeness)
	if err != nil {
		return fmt.Errorf("marshal completeness: %w", err)
	}

	query := `
		INSERT INTO covid_quality_reports
			(generated_at, total_rows, countries, date_start, date_end, date_days, completeness)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`

	_, err = r.pool.Exec(ctx, query,
		report.GeneratedAt, report.TotalRows, report.Countries,
		report.DateRange.Start, report.DateRange.End, report.DateRange.Days,
		completeness,
	)
	if err != nil {
		return fmt.Errorf("insert quality report: %w", err)
	}
	return nil
}

// UpsertSummary writes the daily summary row, replacing any existing
// row for the same summary date.
func (r *ReportRepository) UpsertSummary(ctx context.Context, summary *contracts.DailySummary) error {
	query := `
		INSERT INTO covid_daily_summary (
			summary_date, total_countries, total_global_cases, total_global_deaths,
			new_global_cases, new_global_deaths, countries_high_incidence,
			avg_vaccination_rate, data_completeness_pct
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (summary_date) DO UPDATE SET
			total_countries = EXCLUDED.total_countries,
			total_global_cases = EXCLUDED.total_global_cases,
			total_global_deaths = EXCLUDED.total_global_deaths,
			new_global_cases = EXCLUDED.new_global_cases,
			new_global_deaths = EXCLUDED.new_global_deaths,
			countries_high_incidence = EXCLUDED.countries_high_incidence,
			avg_vaccination_rate = EXCLUDED.avg_vaccination_rate,
			data_completeness_pct = EXCLUDED.data_completeness_pct
	`

	_, err := r.pool.Exec(ctx, query,
		summary.Date, summary.TotalCountries,
		summary.TotalGlobalCases, summary.TotalGlobalDeaths,
		summary.NewGlobalCases, summary.NewGlobalDeaths,
		summary.CountriesHighIncidence, summary.AvgVaccinationRate,
		summary.DataCompletenessPct,
	)
	if err != nil {
		return fmt.Errorf("upsert daily summary: %w", err)
	}
	return nil
}

// LatestSummary returns the newest summary row, or nil when none
// exists yet.
func (r *ReportRepository) LatestSummary(ctx context.Context) (*contracts.DailySummary, error) {
	query := `
		SELECT summary_date, total_countries, total_global_cases, total_global_deaths,
			new_global_cases, new_global_deaths, countries_high_incidence,
			avg_vaccination_rate, data_completeness_pct
		FROM covid_daily_summary
		ORDER BY summary_date DESC
		LIMIT 1
	`

	var s contracts.DailySummary
	err := r.pool.QueryRow(ctx, query).Scan(
		&s.Date, &s.TotalCountries, &s.TotalGlobalCases, &s.TotalGlobalDeaths,
		&s.NewGlobalCases, &s.NewGlobalDeaths, &s.CountriesHighIncidence,
		&s.AvgVaccinationRate, &s.DataCompletenessPct,
	)
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("query latest summary: %w", err)
	}
	return &s, nil
}
