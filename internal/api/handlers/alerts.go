package handlers

import (
	"net/http"

	"github.com/epiwatch/epiwatch/internal/contracts"
	"github.com/epiwatch/epiwatch/pkg/logger"
)

// AlertHandler serves the alert table.
type AlertHandler struct {
	alertRepo contracts.AlertRepository
	logger    *logger.Logger
}

// NewAlertHandler creates an alert handler.
func NewAlertHandler(alertRepo contracts.AlertRepository, log *logger.Logger) *AlertHandler {
	return &AlertHandler{
		alertRepo: alertRepo,
		logger:    log,
	}
}

// GetActive returns currently active alerts.
// GET /api/alerts
func (h *AlertHandler) GetActive(w http.ResponseWriter, r *http.Request) {
	alerts, err := h.alertRepo.GetActive(r.Context())
	if err != nil {
		h.logger.WithError(err).Error("Failed to load active alerts")
		respondError(w, http.StatusInternalServerError, "failed to load alerts")
		return
	}

	if alerts == nil {
		alerts = []*contracts.Alert{}
	}
	respondJSON(w, http.StatusOK, alerts)
}
