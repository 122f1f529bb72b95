package api

import (
	"net/http"
	"time"

	"github.com/mstrand/callmeter/internal/analytics"
	"github.com/mstrand/callmeter/internal/metrics"
	"github.com/mstrand/callmeter/internal/rates"
)

// analyticsHandler serves the aggregation reports and the carrier listing.
type analyticsHandler struct {
	engine  *analytics.Engine
	table   *rates.Table
	metrics *metrics.Metrics
}

func newAnalyticsHandler(engine *analytics.Engine, table *rates.Table, m *metrics.Metrics) *analyticsHandler {
	return &analyticsHandler{engine: engine, table: table, metrics: m}
}

// GetSummary handles GET /api/v1/analytics/summary.
func (h *analyticsHandler) GetSummary(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	summary, err := h.engine.Summary(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "internal_error", "failed to compute summary")
		return
	}
	h.metrics.ObserveAnalytics("summary", time.Since(start).Seconds())
	writeJSON(w, http.StatusOK, summary)
}

// GetCostAnalysis handles GET /api/v1/analytics/costs.
func (h *analyticsHandler) GetCostAnalysis(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	report, err := h.engine.CostAnalysis(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "internal_error", "failed to compute cost analysis")
		return
	}
	h.metrics.ObserveAnalytics("costs", time.Since(start).Seconds())
	writeJSON(w, http.StatusOK, report)
}

// GetCarrierStats handles GET /api/v1/analytics/carriers.
func (h *analyticsHandler) GetCarrierStats(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	report, err := h.engine.CarrierStats(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "internal_error", "failed to compute carrier stats")
		return
	}
	h.metrics.ObserveAnalytics("carriers", time.Since(start).Seconds())
	writeJSON(w, http.StatusOK, report)
}

// GetGeographic handles GET /api/v1/analytics/geographic.
func (h *analyticsHandler) GetGeographic(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	report, err := h.engine.Geographic(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "internal_error", "failed to compute geographic distribution")
		return
	}
	h.metrics.ObserveAnalytics("geographic", time.Since(start).Seconds())
	writeJSON(w, http.StatusOK, report)
}

// GetTraffic handles GET /api/v1/analytics/traffic.
func (h *analyticsHandler) GetTraffic(w http.ResponseWriter, r *http.Request) {
	period := r.URL.Query().Get("period")
	if period == "" {
		period = analytics.PeriodDaily
	}
	if !analytics.ValidPeriod(period) {
		writeError(w, http.StatusBadRequest, "invalid_params", "period must be one of: hourly, daily, monthly")
		return
	}

	start := time.Now()
	report, err := h.engine.Traffic(r.Context(), period)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "internal_error", "failed to compute traffic analysis")
		return
	}
	h.metrics.ObserveAnalytics("traffic", time.Since(start).Seconds())
	writeJSON(w, http.StatusOK, report)
}

// ListCarriers handles GET /api/v1/carriers.
func (h *analyticsHandler) ListCarriers(w http.ResponseWriter, r *http.Request) {
	carriers := h.table.Carriers()
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"carriers":        carriers,
		"count":           len(carriers),
		"markup":          h.table.Markup().InexactFloat64(),
		"default_carrier": h.table.DefaultCarrier(),
	})
}
