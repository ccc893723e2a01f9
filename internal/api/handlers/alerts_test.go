package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/epiwatch/epiwatch/internal/contracts"
	"github.com/epiwatch/epiwatch/pkg/logger"
)

type fakeAlertRepo struct {
	active []*contracts.Alert
	err    error
}

func (f *fakeAlertRepo) CreateBatch(ctx context.Context, alerts []*contracts.Alert) error {
	return f.err
}

func (f *fakeAlertRepo) GetActive(ctx context.Context) ([]*contracts.Alert, error) {
	return f.active, f.err
}

func TestAlertHandler_GetActive(t *testing.T) {
	h := NewAlertHandler(&fakeAlertRepo{
		active: []*contracts.Alert{
			{
				CountryCode: "FRA",
				Kind:        contracts.AlertHighIncidence,
				Date:        time.Date(2026, 5, 10, 0, 0, 0, 0, time.UTC),
				MetricValue: 180,
				Threshold:   150,
				Severity:    contracts.SeverityMedium,
				Active:      true,
			},
		},
	}, logger.NewNop())

	rec := httptest.NewRecorder()
	h.GetActive(rec, httptest.NewRequest(http.MethodGet, "/api/alerts", nil))

	require.Equal(t, http.StatusOK, rec.Code)

	var got []*contracts.Alert
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	require.Len(t, got, 1)
	assert.Equal(t, contracts.AlertHighIncidence, got[0].Kind)
}

func TestAlertHandler_GetActive_EmptyIsArray(t *testing.T) {
	h := NewAlertHandler(&fakeAlertRepo{}, logger.NewNop())

	rec := httptest.NewRecorder()
	h.GetActive(rec, httptest.NewRequest(http.MethodGet, "/api/alerts", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, "[]", rec.Body.String())
}
