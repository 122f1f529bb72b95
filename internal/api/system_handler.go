package api

import (
	"context"
	"net/http"
	"time"

	"github.com/mstrand/callmeter/internal/rates"
)

// Pinger checks database connectivity for the health endpoint.
type Pinger interface {
	Ping(ctx context.Context) error
}

// systemHandler serves health and operational stats.
type systemHandler struct {
	db    Pinger
	store RecordStore
	table *rates.Table
}

func newSystemHandler(db Pinger, store RecordStore, table *rates.Table) *systemHandler {
	return &systemHandler{db: db, store: store, table: table}
}

// Health handles GET /health. The service reports degraded rather than
// failing outright when the database is unreachable.
func (h *systemHandler) Health(w http.ResponseWriter, r *http.Request) {
	resp := map[string]interface{}{
		"status":    "healthy",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
		"database":  "connected",
	}
	status := http.StatusOK

	if h.db != nil {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := h.db.Ping(ctx); err != nil {
			resp["status"] = "degraded"
			resp["database"] = "unreachable"
			status = http.StatusServiceUnavailable
		}
	}

	if resp["database"] == "connected" && h.store != nil {
		if n, err := h.store.Count(r.Context()); err == nil {
			resp["total_cdrs"] = n
		}
	}

	writeJSON(w, status, resp)
}

// Stats handles GET /stats.
func (h *systemHandler) Stats(w http.ResponseWriter, r *http.Request) {
	total, err := h.store.Count(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "internal_error", "failed to count call records")
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"total_cdrs":          total,
		"carriers_configured": h.table.CarrierCount(),
		"uptime":              "operational",
	})
}
