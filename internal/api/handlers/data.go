package handlers

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"

	"github.com/epiwatch/epiwatch/internal/contracts"
	"github.com/epiwatch/epiwatch/internal/snapshot"
	"github.com/epiwatch/epiwatch/pkg/logger"
)

// DataHandler serves the persisted surveillance data. Reads go to the
// snapshot cache first and fall back to PostgreSQL.
type DataHandler struct {
	obsRepo    contracts.ObservationRepository
	reportRepo contracts.ReportRepository
	cache      *snapshot.Cache
	logger     *logger.Logger
}

// NewDataHandler creates a data handler. cache may be nil.
func NewDataHandler(obsRepo contracts.ObservationRepository, reportRepo contracts.ReportRepository, cache *snapshot.Cache, log *logger.Logger) *DataHandler {
	return &DataHandler{
		obsRepo:    obsRepo,
		reportRepo: reportRepo,
		cache:      cache,
		logger:     log,
	}
}

// GetCountries returns the known countries.
// GET /api/countries
func (h *DataHandler) GetCountries(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	if h.cache != nil {
		if countries, found, err := h.cache.Countries(ctx); err == nil && found {
			respondJSON(w, http.StatusOK, countries)
			return
		}
	}

	countries, err := h.obsRepo.Countries(ctx)
	if err != nil {
		h.logger.WithError(err).Error("Failed to load countries")
		respondError(w, http.StatusInternalServerError, "failed to load countries")
		return
	}

	out := make([]snapshot.CountryRef, 0, len(countries))
	for code, location := range countries {
		out = append(out, snapshot.CountryRef{IsoCode: code, Location: location})
	}
	respondJSON(w, http.StatusOK, out)
}

// GetCountry returns a country's latest cached values.
// GET /api/country/{code}
func (h *DataHandler) GetCountry(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	code := mux.Vars(r)["code"]

	if code == "" {
		respondError(w, http.StatusBadRequest, "country code is required")
		return
	}

	if h.cache != nil {
		if snap, found, err := h.cache.Country(ctx, code); err == nil && found {
			respondJSON(w, http.StatusOK, snap)
			return
		}
	}

	latest, err := h.obsRepo.GetLatest(ctx)
	if err != nil {
		h.logger.WithError(err).Error("Failed to load latest observations")
		respondError(w, http.StatusInternalServerError, "failed to load country data")
		return
	}

	for _, obs := range latest {
		if obs.IsoCode == code {
			respondJSON(w, http.StatusOK, obs)
			return
		}
	}
	respondError(w, http.StatusNotFound, "unknown country code")
}

// GetTimeseries returns a country's daily rows for the last N days.
// GET /api/country/{code}/timeseries?days=90
func (h *DataHandler) GetTimeseries(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	code := mux.Vars(r)["code"]

	days := 90
	if daysStr := r.URL.Query().Get("days"); daysStr != "" {
		if d, err := strconv.Atoi(daysStr); err == nil && d > 0 {
			days = d
		}
	}

	to := time.Now()
	from := to.AddDate(0, 0, -days)

	rows, err := h.obsRepo.GetByCountry(ctx, code, from, to)
	if err != nil {
		h.logger.WithError(err).Error("Failed to load timeseries")
		respondError(w, http.StatusInternalServerError, "failed to load timeseries")
		return
	}
	if len(rows) == 0 {
		respondError(w, http.StatusNotFound, "no data for country")
		return
	}

	respondJSON(w, http.StatusOK, rows)
}

// GetSummary returns the most recent daily summary row.
// GET /api/summary
func (h *DataHandler) GetSummary(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	summary, err := h.reportRepo.LatestSummary(ctx)
	if err != nil {
		h.logger.WithError(err).Error("Failed to load summary")
		respondError(w, http.StatusInternalServerError, "failed to load summary")
		return
	}
	if summary == nil {
		respondError(w, http.StatusNotFound, "no summary available yet")
		return
	}

	respondJSON(w, http.StatusOK, summary)
}
