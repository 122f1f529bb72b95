package api

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/mstrand/callmeter/internal/cdr"
	"github.com/mstrand/callmeter/internal/ingest"
)

// RecordStore is the subset of storage operations the CDR handlers need.
type RecordStore interface {
	List(ctx context.Context, params cdr.ListParams) ([]*cdr.Record, error)
	GetByCallID(ctx context.Context, callID string) (*cdr.Record, error)
	Delete(ctx context.Context, callID string) error
	Count(ctx context.Context) (int64, error)
}

// cdrHandler groups record ingestion and query HTTP handlers.
type cdrHandler struct {
	ingest *ingest.Service
	store  RecordStore
}

func newCDRHandler(ingestSvc *ingest.Service, store RecordStore) *cdrHandler {
	return &cdrHandler{ingest: ingestSvc, store: store}
}

// CreateCDR handles POST /api/v1/cdrs.
func (h *cdrHandler) CreateCDR(w http.ResponseWriter, r *http.Request) {
	var in cdr.Input
	if err := readJSON(r, &in); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_json", "request body is not valid JSON")
		return
	}

	rec, err := h.ingest.Submit(r.Context(), in)
	if err != nil {
		writeIngestError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, rec)
}

// CreateCDRBatch handles POST /api/v1/cdrs/batch.
func (h *cdrHandler) CreateCDRBatch(w http.ResponseWriter, r *http.Request) {
	var inputs []cdr.Input
	if err := readJSON(r, &inputs); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_json", "request body is not a valid JSON array")
		return
	}

	result, err := h.ingest.SubmitBatch(r.Context(), inputs)
	if err != nil {
		if errors.Is(err, ingest.ErrBatchTooLarge) {
			writeError(w, http.StatusBadRequest, "batch_too_large", err.Error())
			return
		}
		writeError(w, http.StatusInternalServerError, "internal_error", "failed to process batch")
		return
	}

	writeJSON(w, http.StatusCreated, result)
}

// ListCDRs handles GET /api/v1/cdrs.
func (h *cdrHandler) ListCDRs(w http.ResponseWriter, r *http.Request) {
	params, err := buildListParams(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_params", "invalid query parameters: "+err.Error())
		return
	}

	recs, err := h.store.List(r.Context(), params)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "internal_error", "failed to list call records")
		return
	}

	if recs == nil {
		recs = []*cdr.Record{}
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"count":  len(recs),
		"limit":  params.Limit,
		"offset": params.Offset,
		"cdrs":   recs,
	})
}

// GetCDR handles GET /api/v1/cdrs/{callID}.
func (h *cdrHandler) GetCDR(w http.ResponseWriter, r *http.Request) {
	callID := chi.URLParam(r, "callID")

	rec, err := h.store.GetByCallID(r.Context(), callID)
	if err != nil {
		if errors.Is(err, cdr.ErrNotFound) {
			writeError(w, http.StatusNotFound, "not_found", "call record "+callID+" not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "internal_error", "failed to get call record")
		return
	}

	writeJSON(w, http.StatusOK, rec)
}

// DeleteCDR handles DELETE /api/v1/cdrs/{callID}.
func (h *cdrHandler) DeleteCDR(w http.ResponseWriter, r *http.Request) {
	callID := chi.URLParam(r, "callID")

	if err := h.store.Delete(r.Context(), callID); err != nil {
		if errors.Is(err, cdr.ErrNotFound) {
			writeError(w, http.StatusNotFound, "not_found", "call record "+callID+" not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "internal_error", "failed to delete call record")
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{
		"message": "call record " + callID + " deleted",
	})
}

// writeIngestError maps pipeline errors onto client responses.
func writeIngestError(w http.ResponseWriter, err error) {
	var ve *cdr.ValidationError
	switch {
	case errors.As(err, &ve):
		writeError(w, http.StatusBadRequest, "validation_error", ve.Error())
	case errors.Is(err, cdr.ErrDuplicateCallID):
		writeError(w, http.StatusConflict, "duplicate_call_id", err.Error())
	default:
		writeError(w, http.StatusInternalServerError, "internal_error", "failed to process call record")
	}
}

// buildListParams constructs ListParams from query parameters.
func buildListParams(r *http.Request) (cdr.ListParams, error) {
	q := r.URL.Query()
	params := cdr.ListParams{
		CarrierID:   q.Get("carrier_id"),
		CountryCode: q.Get("country_code"),
		CallType:    q.Get("call_type"),
		Limit:       100,
	}

	if s := q.Get("limit"); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil || n < 1 || n > 1000 {
			return params, errors.New("limit must be an integer between 1 and 1000")
		}
		params.Limit = n
	}
	if s := q.Get("offset"); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil || n < 0 {
			return params, errors.New("offset must be a non-negative integer")
		}
		params.Offset = n
	}

	var err error
	if params.StartDate, err = parseTimeParam(q.Get("start_date")); err != nil {
		return params, errors.New("start_date must be an ISO date or timestamp")
	}
	if params.EndDate, err = parseTimeParam(q.Get("end_date")); err != nil {
		return params, errors.New("end_date must be an ISO date or timestamp")
	}

	return params, nil
}

// parseTimeParam parses a date query param in RFC3339 or YYYY-MM-DD format.
// Empty input yields a zero time.
func parseTimeParam(s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, nil
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t, nil
	}
	return time.Parse("2006-01-02", s)
}
