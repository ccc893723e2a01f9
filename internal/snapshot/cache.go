// Package snapshot keeps the latest per-country values in Redis so
// the serving layer can answer dashboard queries without touching
// PostgreSQL.
package snapshot

import (
	"context"
	"time"

	"github.com/epiwatch/epiwatch/internal/dataset"
	"github.com/epiwatch/epiwatch/pkg/logger"
	"github.com/epiwatch/epiwatch/pkg/redis"
)

// ttl bounds snapshot staleness; the pipeline refreshes well within
// it.
const ttl = time.Hour

// CountrySnapshot is the cached shape of one country's latest row.
type CountrySnapshot struct {
	Location      string   `json:"location"`
	Date          string   `json:"date"`
	TotalCases    *float64 `json:"total_cases,omitempty"`
	NewCases      *float64 `json:"new_cases,omitempty"`
	IncidenceRate *float64 `json:"incidence_rate,omitempty"`
	QualityScore  float64  `json:"data_quality_score"`
}

// CountryRef is one entry of the cached country list.
type CountryRef struct {
	IsoCode  string `json:"iso_code"`
	Location string `json:"location"`
}

// Cache writes and reads the latest-values snapshot.
type Cache struct {
	cache  *redis.Cache
	logger *logger.Logger
}

// New creates a snapshot cache on top of a redis client.
func New(client *redis.Client, log *logger.Logger) *Cache {
	return &Cache{
		cache:  redis.NewCache(client, "epiwatch"),
		logger: log.WithField("component", "snapshot.cache"),
	}
}

// Update refreshes the per-country latest values, the country list
// and the last-update stamp from an enriched dataset. Cache failures
// are reported but callers treat them as non-fatal: the cache is an
// accelerator, not a store of record.
func (c *Cache) Update(ctx context.Context, ds *dataset.Dataset) error {
	latest := ds.Latest()

	for _, row := range latest {
		snap := CountrySnapshot{
			Location:      row.Location,
			Date:          row.Date.Format("2006-01-02"),
			TotalCases:    row.TotalCases,
			NewCases:      row.NewCases,
			IncidenceRate: row.IncidenceRate100k,
			QualityScore:  row.QualityScore,
		}
		if err := c.cache.Set(ctx, countryKey(row.IsoCode), snap, ttl); err != nil {
			return err
		}
	}

	countries := make([]CountryRef, 0, len(latest))
	seen := make(map[string]struct{})
	for _, row := range ds.Rows {
		if _, dup := seen[row.IsoCode]; dup {
			continue
		}
		seen[row.IsoCode] = struct{}{}
		countries = append(countries, CountryRef{IsoCode: row.IsoCode, Location: row.Location})
	}
	if err := c.cache.Set(ctx, "countries:list", countries, ttl); err != nil {
		return err
	}

	if err := c.cache.Set(ctx, "data:last_update", time.Now().UTC().Format(time.RFC3339), ttl); err != nil {
		return err
	}

	c.logger.WithField("countries", len(latest)).Info("Snapshot cache updated")
	return nil
}

// Country reads one country's cached snapshot.
func (c *Cache) Country(ctx context.Context, code string) (*CountrySnapshot, bool, error) {
	var snap CountrySnapshot
	found, err := c.cache.Get(ctx, countryKey(code), &snap)
	if err != nil || !found {
		return nil, false, err
	}
	return &snap, true, nil
}

// Countries reads the cached country list.
func (c *Cache) Countries(ctx context.Context) ([]CountryRef, bool, error) {
	var countries []CountryRef
	found, err := c.cache.Get(ctx, "countries:list", &countries)
	if err != nil || !found {
		return nil, false, err
	}
	return countries, true, nil
}

func countryKey(code string) string {
	return "country:" + code + ":latest"
}
