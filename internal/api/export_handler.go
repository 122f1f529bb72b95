package api

import (
	"bytes"
	"errors"
	"net/http"
	"time"

	"github.com/mstrand/callmeter/internal/export"
	"github.com/mstrand/callmeter/internal/metrics"
)

// exportHandler serves record downloads.
type exportHandler struct {
	svc     *export.Service
	metrics *metrics.Metrics
}

func newExportHandler(svc *export.Service, m *metrics.Metrics) *exportHandler {
	return &exportHandler{svc: svc, metrics: m}
}

// Export handles GET /api/v1/export.
func (h *exportHandler) Export(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	format := q.Get("format")
	if format == "" {
		format = export.FormatJSON
	}
	if !export.ValidFormat(format) {
		writeError(w, http.StatusBadRequest, "invalid_params", "format must be one of: json, csv")
		return
	}

	params := export.Params{
		StartDate: q.Get("start_date"),
		EndDate:   q.Get("end_date"),
	}

	switch format {
	case export.FormatCSV:
		// Render fully before writing so a storage failure can still produce
		// a clean error response.
		var buf bytes.Buffer
		if err := h.svc.CSV(r.Context(), params, &buf); err != nil {
			writeExportError(w, err)
			return
		}
		h.metrics.IncExport(export.FormatCSV)

		w.Header().Set("Content-Type", "text/csv")
		w.Header().Set("Content-Disposition", "attachment; filename="+export.Filename(time.Now()))
		w.WriteHeader(http.StatusOK)
		_, _ = buf.WriteTo(w)

	default:
		dump, err := h.svc.JSON(r.Context(), params)
		if err != nil {
			writeExportError(w, err)
			return
		}
		h.metrics.IncExport(export.FormatJSON)
		writeJSON(w, http.StatusOK, dump)
	}
}

func writeExportError(w http.ResponseWriter, err error) {
	if errors.Is(err, export.ErrBadDate) {
		writeError(w, http.StatusBadRequest, "invalid_params", err.Error())
		return
	}
	writeError(w, http.StatusInternalServerError, "internal_error", "failed to export call records")
}
