// Package store persists the pipeline's outputs to PostgreSQL:
// enriched observations, quality reports and daily summaries.
package store

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/epiwatch/epiwatch/internal/contracts"
)

// ObservationRepository implements contracts.ObservationRepository.
type ObservationRepository struct {
	pool *pgxpool.Pool
}

// NewObservationRepository creates an observation repository.
func NewObservationRepository(pool *pgxpool.Pool) *ObservationRepository {
	return &ObservationRepository{pool: pool}
}

const upsertObservation = `
	INSERT INTO covid_daily_data (
		iso_code, location, date, population,
		total_cases, new_cases, total_deaths, new_deaths,
		total_vaccinations, people_vaccinated, people_fully_vaccinated,
		new_vaccinations, stringency_index,
		incidence_rate_100k, death_rate_100k, case_fatality_rate, vaccination_rate,
		new_cases_7day_avg, new_deaths_7day_avg, incidence_rate_100k_7day_avg,
		data_quality_score, last_updated
	) VALUES (
		$1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11,
		$12, $13, $14, $15, $16, $17, $18, $19, $20, $21, $22
	)
	ON CONFLICT ON CONSTRAINT uq_covid_country_date DO UPDATE SET
		location = EXCLUDED.location,
		population = EXCLUDED.population,
		total_cases = EXCLUDED.total_cases,
		new_cases = EXCLUDED.new_cases,
		total_deaths = EXCLUDED.total_deaths,
		new_deaths = EXCLUDED.new_deaths,
		total_vaccinations = EXCLUDED.total_vaccinations,
		people_vaccinated = EXCLUDED.people_vaccinated,
		people_fully_vaccinated = EXCLUDED.people_fully_vaccinated,
		new_vaccinations = EXCLUDED.new_vaccinations,
		stringency_index = EXCLUDED.stringency_index,
		incidence_rate_100k = EXCLUDED.incidence_rate_100k,
		death_rate_100k = EXCLUDED.death_rate_100k,
		case_fatality_rate = EXCLUDED.case_fatality_rate,
		vaccination_rate = EXCLUDED.vaccination_rate,
		new_cases_7day_avg = EXCLUDED.new_cases_7day_avg,
		new_deaths_7day_avg = EXCLUDED.new_deaths_7day_avg,
		incidence_rate_100k_7day_avg = EXCLUDED.incidence_rate_100k_7day_avg,
		data_quality_score = EXCLUDED.data_quality_score,
		last_updated = EXCLUDED.last_updated
`

const selectObservation = `
	SELECT iso_code, location, date, population,
		total_cases, new_cases, total_deaths, new_deaths,
		total_vaccinations, people_vaccinated, people_fully_vaccinated,
		new_vaccinations, stringency_index,
		incidence_rate_100k, death_rate_100k, case_fatality_rate, vaccination_rate,
		new_cases_7day_avg, new_deaths_7day_avg, incidence_rate_100k_7day_avg,
		data_quality_score
	FROM covid_daily_data
`

// UpsertBatch writes all observations in one implicit transaction,
// replacing every non-key field on (iso_code, date) conflict. Returns
// the number of rows written.
func (r *ObservationRepository) UpsertBatch(ctx context.Context, obs []*contracts.Observation) (int, error) {
	if len(obs) == 0 {
		return 0, nil
	}

	now := time.Now().UTC()
	batch := &pgx.Batch{}
	for _, o := range obs {
		batch.Queue(upsertObservation,
			o.IsoCode, o.Location, o.Date, o.Population,
			o.TotalCases, o.NewCases, o.TotalDeaths, o.NewDeaths,
			o.TotalVaccinations, o.PeopleVaccinated, o.PeopleFullyVaccinated,
			o.NewVaccinations, o.StringencyIndex,
			o.IncidenceRate100k, o.DeathRate100k, o.CaseFatalityRate, o.VaccinationRate,
			o.NewCases7DayAvg, o.NewDeaths7DayAvg, o.IncidenceRate100k7DayAvg,
			o.QualityScore, now,
		)
	}

	results := r.pool.SendBatch(ctx, batch)
	defer results.Close()

	for i := range obs {
		if _, err := results.Exec(); err != nil {
			return i, fmt.Errorf("upsert observation %s/%s: %w",
				obs[i].IsoCode, obs[i].Date.Format("2006-01-02"), err)
		}
	}

	return len(obs), nil
}

// GetByCountry returns a country's rows within [from, to], oldest
// first.
func (r *ObservationRepository) GetByCountry(ctx context.Context, code string, from, to time.Time) ([]*contracts.Observation, error) {
	query := selectObservation + `
		WHERE iso_code = $1 AND date BETWEEN $2 AND $3
		ORDER BY date ASC
	`

	rows, err := r.pool.Query(ctx, query, code, from, to)
	if err != nil {
		return nil, fmt.Errorf("query country %s: %w", code, err)
	}
	defer rows.Close()

	return scanObservations(rows)
}

// GetLatest returns each country's most recent row.
func (r *ObservationRepository) GetLatest(ctx context.Context) ([]*contracts.Observation, error) {
	query := selectObservation + `
		WHERE (iso_code, date) IN (
			SELECT iso_code, MAX(date) FROM covid_daily_data GROUP BY iso_code
		)
		ORDER BY iso_code ASC
	`

	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("query latest observations: %w", err)
	}
	defer rows.Close()

	return scanObservations(rows)
}

// Countries returns the distinct iso_code -> location map.
func (r *ObservationRepository) Countries(ctx context.Context) (map[string]string, error) {
	query := `SELECT DISTINCT iso_code, location FROM covid_daily_data ORDER BY iso_code`

	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("query countries: %w", err)
	}
	defer rows.Close()

	countries := make(map[string]string)
	for rows.Next() {
		var code, location string
		if err := rows.Scan(&code, &location); err != nil {
			return nil, fmt.Errorf("scan country: %w", err)
		}
		countries[code] = location
	}
	return countries, rows.Err()
}

func scanObservations(rows pgx.Rows) ([]*contracts.Observation, error) {
	var out []*contracts.Observation
	for rows.Next() {
		var o contracts.Observation
		if err := rows.Scan(
			&o.IsoCode, &o.Location, &o.Date, &o.Population,
			&o.TotalCases, &o.NewCases, &o.TotalDeaths, &o.NewDeaths,
			&o.TotalVaccinations, &o.PeopleVaccinated, &o.PeopleFullyVaccinated,
			&o.NewVaccinations, &o.StringencyIndex,
			&o.IncidenceRate100k, &o.DeathRate100k, &o.CaseFatalityRate, &o.VaccinationRate,
			&o.NewCases7DayAvg, &o.NewDeaths7DayAvg, &o.IncidenceRate100k7DayAvg,
			&o.QualityScore,
		); err != nil {
			return nil, fmt.Errorf("scan observation: %w", err)
		}
		out = append(out, &o)
	}
	return out, rows.Err()
}
