package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gorilla/mux"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/epiwatch/epiwatch/internal/contracts"
	"github.com/epiwatch/epiwatch/pkg/logger"
)

type fakeObsRepo struct {
	latest    []*contracts.Observation
	byCountry []*contracts.Observation
	countries map[string]string
	err       error
}

func (f *fakeObsRepo) UpsertBatch(ctx context.Context, obs []*contracts.Observation) (int, error) {
	return len(obs), f.err
}

func (f *fakeObsRepo) GetByCountry(ctx context.Context, code string, from, to time.Time) ([]*contracts.Observation, error) {
	return f.byCountry, f.err
}

func (f *fakeObsRepo) GetLatest(ctx context.Context) ([]*contracts.Observation, error) {
	return f.latest, f.err
}

func (f *fakeObsRepo) Countries(ctx context.Context) (map[string]string, error) {
	return f.countries, f.err
}

type fakeReportRepo struct {
	summary *contracts.DailySummary
	err     error
}

func (f *fakeReportRepo) SaveReport(ctx context.Context, report *contracts.QualityReport) error {
	return f.err
}

func (f *fakeReportRepo) UpsertSummary(ctx context.Context, summary *contracts.DailySummary) error {
	return f.err
}

func (f *fakeReportRepo) LatestSummary(ctx context.Context) (*contracts.DailySummary, error) {
	return f.summary, f.err
}

func newTestHandler(obs *fakeObsRepo, reports *fakeReportRepo) *DataHandler {
	return NewDataHandler(obs, reports, nil, logger.NewNop())
}

func TestDataHandler_GetCountries(t *testing.T) {
	h := newTestHandler(&fakeObsRepo{
		countries: map[string]string{"FRA": "France", "DEU": "Germany"},
	}, &fakeReportRepo{})

	rec := httptest.NewRecorder()
	h.GetCountries(rec, httptest.NewRequest(http.MethodGet, "/api/countries", nil))

	require.Equal(t, http.StatusOK, rec.Code)

	var got []map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.Len(t, got, 2)
}

func TestDataHandler_GetCountry(t *testing.T) {
	h := newTestHandler(&fakeObsRepo{
		latest: []*contracts.Observation{
			{IsoCode: "FRA", Location: "France", Date: time.Now()},
		},
	}, &fakeReportRepo{})

	router := mux.NewRouter()
	router.HandleFunc("/api/country/{code}", h.GetCountry)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/country/FRA", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var got contracts.Observation
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.Equal(t, "FRA", got.IsoCode)

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/country/XXX", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestDataHandler_GetTimeseries(t *testing.T) {
	h := newTestHandler(&fakeObsRepo{
		byCountry: []*contracts.Observation{
			{IsoCode: "FRA", Date: time.Now().AddDate(0, 0, -1)},
			{IsoCode: "FRA", Date: time.Now()},
		},
	}, &fakeReportRepo{})

	router := mux.NewRouter()
	router.HandleFunc("/api/country/{code}/timeseries", h.GetTimeseries)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/country/FRA/timeseries?days=7", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var got []*contracts.Observation
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.Len(t, got, 2)
}

func TestDataHandler_GetTimeseries_NoData(t *testing.T) {
	h := newTestHandler(&fakeObsRepo{}, &fakeReportRepo{})

	router := mux.NewRouter()
	router.HandleFunc("/api/country/{code}/timeseries", h.GetTimeseries)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/country/FRA/timeseries", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestDataHandler_GetSummary(t *testing.T) {
	h := newTestHandler(&fakeObsRepo{}, &fakeReportRepo{
		summary: &contracts.DailySummary{
			Date:           time.Date(2026, 5, 10, 0, 0, 0, 0, time.UTC),
			TotalCountries: 8,
		},
	})

	rec := httptest.NewRecorder()
	h.GetSummary(rec, httptest.NewRequest(http.MethodGet, "/api/summary", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var got contracts.DailySummary
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.Equal(t, 8, got.TotalCountries)
}

func TestDataHandler_GetSummary_NoneYet(t *testing.T) {
	h := newTestHandler(&fakeObsRepo{}, &fakeReportRepo{})

	rec := httptest.NewRecorder()
	h.GetSummary(rec, httptest.NewRequest(http.MethodGet, "/api/summary", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestDataHandler_RepoError(t *testing.T) {
	h := newTestHandler(&fakeObsRepo{err: errors.New("connection refused")}, &fakeReportRepo{})

	rec := httptest.NewRecorder()
	h.GetCountries(rec, httptest.NewRequest(http.MethodGet, "/api/countries", nil))
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}
