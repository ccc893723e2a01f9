package database

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/epiwatch/epiwatch/pkg/config"
)

// DB wraps the pgxpool.Pool. All repositories share one pool created
// here.
type DB struct {
	Pool *pgxpool.Pool
}

// New creates a database connection pool from config and verifies the
// connection.
func New(cfg *config.Config) (*DB, error) {
	poolConfig, err := pgxpool.ParseConfig(cfg.Database.URL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse database URL: %w", err)
	}

	poolConfig.MaxConns = int32(cfg.Database.MaxConns)
	poolConfig.MinConns = int32(cfg.Database.MinConns)
	poolConfig.MaxConnLifetime = cfg.Database.MaxConnLifetime
	poolConfig.MaxConnIdleTime = cfg.Database.MaxConnIdleTime

	pool, err := pgxpool.NewWithConfig(context.Background(), poolConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create connection pool: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &DB{Pool: pool}, nil
}

// Close closes the connection pool.
func (db *DB) Close() {
	if db.Pool != nil {
		db.Pool.Close()
	}
}

// Ping checks if the database is reachable.
func (db *DB) Ping(ctx context.Context) error {
	return db.Pool.Ping(ctx)
}

// Migrate creates the schema the pipeline writes to. Statements are
// idempotent so startup can always run them.
func (db *DB) Migrate(ctx context.Context) error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS covid_daily_data (
			id BIGSERIAL PRIMARY KEY,
			iso_code VARCHAR(10) NOT NULL,
			location VARCHAR(100) NOT NULL,
			date DATE NOT NULL,
			population DOUBLE PRECISION,
			total_cases DOUBLE PRECISION,
			new_cases DOUBLE PRECISION,
			total_deaths DOUBLE PRECISION,
			new_deaths DOUBLE PRECISION,
			total_vaccinations DOUBLE PRECISION,
			people_vaccinated DOUBLE PRECISION,
			people_fully_vaccinated DOUBLE PRECISION,
			new_vaccinations DOUBLE PRECISION,
			stringency_index DOUBLE PRECISION,
			incidence_rate_100k DOUBLE PRECISION,
			death_rate_100k DOUBLE PRECISION,
			case_fatality_rate DOUBLE PRECISION,
			vaccination_rate DOUBLE PRECISION,
			new_cases_7day_avg DOUBLE PRECISION,
			new_deaths_7day_avg DOUBLE PRECISION,
			incidence_rate_100k_7day_avg DOUBLE PRECISION,
			data_quality_score DOUBLE PRECISION,
			last_updated TIMESTAMPTZ NOT NULL DEFAULT now(),
			created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
			CONSTRAINT uq_covid_country_date UNIQUE (iso_code, date)
		)`,
		`CREATE INDEX IF NOT EXISTS ix_covid_country_date ON covid_daily_data (iso_code, date)`,
		`CREATE INDEX IF NOT EXISTS ix_covid_date_incidence ON covid_daily_data (date, incidence_rate_100k)`,
		`CREATE TABLE IF NOT EXISTS covid_alerts (
			id BIGSERIAL PRIMARY KEY,
			country_code VARCHAR(10) NOT NULL,
			alert_type VARCHAR(50) NOT NULL,
			alert_date DATE NOT NULL,
			metric_value DOUBLE PRECISION NOT NULL,
			threshold_value DOUBLE PRECISION NOT NULL,
			severity VARCHAR(20) NOT NULL DEFAULT 'medium',
			is_active BOOLEAN NOT NULL DEFAULT TRUE,
			created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
			resolved_at TIMESTAMPTZ
		)`,
		`CREATE INDEX IF NOT EXISTS ix_alerts_country_date ON covid_alerts (country_code, alert_date)`,
		`CREATE INDEX IF NOT EXISTS ix_alerts_active ON covid_alerts (is_active, alert_type)`,
		`CREATE TABLE IF NOT EXISTS covid_quality_reports (
			id BIGSERIAL PRIMARY KEY,
			generated_at TIMESTAMPTZ NOT NULL,
			total_rows INTEGER NOT NULL,
			countries INTEGER NOT NULL,
			date_start DATE,
			date_end DATE,
			date_days INTEGER,
			completeness JSONB NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS covid_daily_summary (
			id BIGSERIAL PRIMARY KEY,
			summary_date DATE NOT NULL UNIQUE,
			total_countries INTEGER,
			total_global_cases DOUBLE PRECISION,
			total_global_deaths DOUBLE PRECISION,
			new_global_cases DOUBLE PRECISION,
			new_global_deaths DOUBLE PRECISION,
			countries_high_incidence INTEGER,
			avg_vaccination_rate DOUBLE PRECISION,
			data_completeness_pct DOUBLE PRECISION,
			created_at TIMESTAMPTZ NOT NULL DEFAULT now()
		)`,
	}

	for _, stmt := range statements {
		if _, err := db.Pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("migrate: %w", err)
		}
	}
	return nil
}
