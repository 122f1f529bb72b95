package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/mstrand/callmeter/internal/analytics"
	"github.com/mstrand/callmeter/internal/cdr"
	"github.com/mstrand/callmeter/internal/export"
	"github.com/mstrand/callmeter/internal/ingest"
	"github.com/mstrand/callmeter/internal/metrics"
	"github.com/mstrand/callmeter/internal/rates"
)

// fakeRecordStore backs the handlers with an in-memory record set.
type fakeRecordStore struct {
	records map[string]*cdr.Record
	order   []string
	nextID  int64
}

func newFakeRecordStore() *fakeRecordStore {
	return &fakeRecordStore{records: make(map[string]*cdr.Record)}
}

func (f *fakeRecordStore) Insert(ctx context.Context, rec *cdr.Record) (*cdr.Record, error) {
	if _, ok := f.records[rec.CallID]; ok {
		return nil, fmt.Errorf("call_id %s: %w", rec.CallID, cdr.ErrDuplicateCallID)
	}
	f.nextID++
	stored := *rec
	stored.ID = f.nextID
	f.records[rec.CallID] = &stored
	f.order = append(f.order, rec.CallID)
	return &stored, nil
}

func (f *fakeRecordStore) List(ctx context.Context, params cdr.ListParams) ([]*cdr.Record, error) {
	return f.all(), nil
}

func (f *fakeRecordStore) ListAll(ctx context.Context) ([]*cdr.Record, error) {
	return f.all(), nil
}

func (f *fakeRecordStore) all() []*cdr.Record {
	recs := make([]*cdr.Record, 0, len(f.order))
	for _, id := range f.order {
		recs = append(recs, f.records[id])
	}
	return recs
}

func (f *fakeRecordStore) GetByCallID(ctx context.Context, callID string) (*cdr.Record, error) {
	rec, ok := f.records[callID]
	if !ok {
		return nil, fmt.Errorf("call_id %s: %w", callID, cdr.ErrNotFound)
	}
	return rec, nil
}

func (f *fakeRecordStore) Delete(ctx context.Context, callID string) error {
	if _, ok := f.records[callID]; !ok {
		return fmt.Errorf("call_id %s: %w", callID, cdr.ErrNotFound)
	}
	delete(f.records, callID)
	for i, id := range f.order {
		if id == callID {
			f.order = append(f.order[:i], f.order[i+1:]...)
			break
		}
	}
	return nil
}

func (f *fakeRecordStore) Count(ctx context.Context) (int64, error) {
	return int64(len(f.records)), nil
}

type fakePinger struct {
	err error
}

func (f *fakePinger) Ping(ctx context.Context) error { return f.err }

func newTestRouter(t *testing.T, store *fakeRecordStore, db Pinger) http.Handler {
	t.Helper()
	table, err := rates.Default("carrier_001")
	if err != nil {
		t.Fatalf("loading default rates: %v", err)
	}
	m := metrics.New()
	return NewRouter(RouterDeps{
		Ingest:         ingest.New(store, rates.NewCalculator(table), m, 1000),
		Records:        store,
		Analytics:      analytics.NewEngine(store),
		Export:         export.NewService(store),
		Rates:          table,
		Metrics:        m,
		DB:             db,
		AllowedOrigins: []string{"*"},
	})
}

func cdrBody(callID string) string {
	return fmt.Sprintf(`{
		"call_id": %q,
		"caller_number": "+14155551234",
		"called_number": "+442071234567",
		"start_time": "2025-01-05T10:30:00Z",
		"end_time": "2025-01-05T10:35:00Z",
		"duration_seconds": 300,
		"carrier_id": "carrier_001",
		"call_type": "international",
		"country_code": "GB"
	}`, callID)
}

func doRequest(handler http.Handler, method, target, body string) *httptest.ResponseRecorder {
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, target, nil)
	} else {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	return rec
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder, v interface{}) {
	t.Helper()
	if err := json.NewDecoder(rec.Body).Decode(v); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
}

func TestCreateCDR(t *testing.T) {
	handler := newTestRouter(t, newFakeRecordStore(), nil)

	rec := doRequest(handler, http.MethodPost, "/api/v1/cdrs", cdrBody("call_001"))
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
	}

	var stored cdr.Record
	decodeBody(t, rec, &stored)
	if stored.CallID != "call_001" {
		t.Errorf("unexpected call_id %q", stored.CallID)
	}
	if stored.Cost != 0.2 || stored.Revenue != 0.3 {
		t.Errorf("unexpected charge: cost=%v revenue=%v", stored.Cost, stored.Revenue)
	}
	if stored.CountryName != "United Kingdom" {
		t.Errorf("expected enriched country name, got %q", stored.CountryName)
	}
	if rec.Header().Get("X-Request-ID") == "" {
		t.Error("expected X-Request-ID header")
	}
}

func TestCreateCDRValidationError(t *testing.T) {
	handler := newTestRouter(t, newFakeRecordStore(), nil)

	body := strings.Replace(cdrBody("call_001"), "+14155551234", "bogus", 1)
	rec := doRequest(handler, http.MethodPost, "/api/v1/cdrs", body)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}

	var envelope struct {
		Error struct {
			Code    string `json:"code"`
			Message string `json:"message"`
		} `json:"error"`
	}
	decodeBody(t, rec, &envelope)
	if envelope.Error.Code != "validation_error" {
		t.Errorf("expected validation_error code, got %q", envelope.Error.Code)
	}
	if !strings.Contains(envelope.Error.Message, "caller_number") {
		t.Errorf("expected message to name the field, got %q", envelope.Error.Message)
	}
}

func TestCreateCDRDuplicate(t *testing.T) {
	handler := newTestRouter(t, newFakeRecordStore(), nil)

	if rec := doRequest(handler, http.MethodPost, "/api/v1/cdrs", cdrBody("call_001")); rec.Code != http.StatusCreated {
		t.Fatalf("first insert failed: %d", rec.Code)
	}
	rec := doRequest(handler, http.MethodPost, "/api/v1/cdrs", cdrBody("call_001"))
	if rec.Code != http.StatusConflict {
		t.Fatalf("expected 409 for duplicate, got %d", rec.Code)
	}
}

func TestCreateCDRInvalidJSON(t *testing.T) {
	handler := newTestRouter(t, newFakeRecordStore(), nil)

	rec := doRequest(handler, http.MethodPost, "/api/v1/cdrs", "{not json")
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
}

func TestCreateCDRBatch(t *testing.T) {
	handler := newTestRouter(t, newFakeRecordStore(), nil)

	bad := strings.Replace(cdrBody("call_bad"), "international", "roaming", 1)
	body := "[" + cdrBody("call_001") + "," + bad + "," + cdrBody("call_002") + "]"

	rec := doRequest(handler, http.MethodPost, "/api/v1/cdrs/batch", body)
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
	}

	var result ingest.BatchResult
	decodeBody(t, rec, &result)
	if result.SuccessCount != 2 || result.ErrorCount != 1 {
		t.Errorf("unexpected counts: %+v", result)
	}
	if len(result.Errors) != 1 || result.Errors[0].Index != 1 || result.Errors[0].CallID != "call_bad" {
		t.Errorf("unexpected error entry: %+v", result.Errors)
	}
}

func TestListCDRs(t *testing.T) {
	handler := newTestRouter(t, newFakeRecordStore(), nil)
	doRequest(handler, http.MethodPost, "/api/v1/cdrs", cdrBody("call_001"))
	doRequest(handler, http.MethodPost, "/api/v1/cdrs", cdrBody("call_002"))

	rec := doRequest(handler, http.MethodGet, "/api/v1/cdrs", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}

	var resp struct {
		Count int           `json:"count"`
		CDRs  []*cdr.Record `json:"cdrs"`
	}
	decodeBody(t, rec, &resp)
	if resp.Count != 2 || len(resp.CDRs) != 2 {
		t.Errorf("expected 2 records, got %+v", resp)
	}
}

func TestListCDRsBadParams(t *testing.T) {
	handler := newTestRouter(t, newFakeRecordStore(), nil)

	for _, target := range []string{
		"/api/v1/cdrs?limit=0",
		"/api/v1/cdrs?limit=5000",
		"/api/v1/cdrs?offset=-1",
		"/api/v1/cdrs?start_date=nope",
	} {
		if rec := doRequest(handler, http.MethodGet, target, ""); rec.Code != http.StatusBadRequest {
			t.Errorf("%s: expected 400, got %d", target, rec.Code)
		}
	}
}

func TestGetAndDeleteCDR(t *testing.T) {
	handler := newTestRouter(t, newFakeRecordStore(), nil)
	doRequest(handler, http.MethodPost, "/api/v1/cdrs", cdrBody("call_001"))

	if rec := doRequest(handler, http.MethodGet, "/api/v1/cdrs/call_001", ""); rec.Code != http.StatusOK {
		t.Errorf("get: expected 200, got %d", rec.Code)
	}
	if rec := doRequest(handler, http.MethodGet, "/api/v1/cdrs/missing", ""); rec.Code != http.StatusNotFound {
		t.Errorf("get missing: expected 404, got %d", rec.Code)
	}
	if rec := doRequest(handler, http.MethodDelete, "/api/v1/cdrs/call_001", ""); rec.Code != http.StatusOK {
		t.Errorf("delete: expected 200, got %d", rec.Code)
	}
	if rec := doRequest(handler, http.MethodDelete, "/api/v1/cdrs/call_001", ""); rec.Code != http.StatusNotFound {
		t.Errorf("delete again: expected 404, got %d", rec.Code)
	}
}

func TestAnalyticsEndpoints(t *testing.T) {
	handler := newTestRouter(t, newFakeRecordStore(), nil)
	doRequest(handler, http.MethodPost, "/api/v1/cdrs", cdrBody("call_001"))

	for _, target := range []string{
		"/api/v1/analytics/summary",
		"/api/v1/analytics/costs",
		"/api/v1/analytics/carriers",
		"/api/v1/analytics/geographic",
		"/api/v1/analytics/traffic",
		"/api/v1/analytics/traffic?period=hourly",
	} {
		rec := doRequest(handler, http.MethodGet, target, "")
		if rec.Code != http.StatusOK {
			t.Errorf("%s: expected 200, got %d", target, rec.Code)
		}
		if ct := rec.Header().Get("Content-Type"); ct != "application/json" {
			t.Errorf("%s: expected JSON content type, got %q", target, ct)
		}
	}
}

func TestTrafficInvalidPeriod(t *testing.T) {
	handler := newTestRouter(t, newFakeRecordStore(), nil)

	rec := doRequest(handler, http.MethodGet, "/api/v1/analytics/traffic?period=weekly", "")
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
}

func TestAnalyticsSummaryValues(t *testing.T) {
	handler := newTestRouter(t, newFakeRecordStore(), nil)
	doRequest(handler, http.MethodPost, "/api/v1/cdrs", cdrBody("call_001"))

	rec := doRequest(handler, http.MethodGet, "/api/v1/analytics/summary", "")
	var summary analytics.Summary
	decodeBody(t, rec, &summary)

	if summary.TotalCalls != 1 {
		t.Errorf("expected 1 call, got %d", summary.TotalCalls)
	}
	if summary.TotalCost != 0.2 {
		t.Errorf("expected total cost 0.2, got %v", summary.TotalCost)
	}
	if summary.CallTypes["international"] != 1 {
		t.Errorf("unexpected type distribution %v", summary.CallTypes)
	}
}

func TestListCarriers(t *testing.T) {
	handler := newTestRouter(t, newFakeRecordStore(), nil)

	rec := doRequest(handler, http.MethodGet, "/api/v1/carriers", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}

	var resp struct {
		Carriers       []rates.CarrierInfo `json:"carriers"`
		Count          int                 `json:"count"`
		Markup         float64             `json:"markup"`
		DefaultCarrier string              `json:"default_carrier"`
	}
	decodeBody(t, rec, &resp)
	if resp.Count != 3 || len(resp.Carriers) != 3 {
		t.Errorf("expected the 3 built-in carriers, got %+v", resp)
	}
	if resp.Markup != 1.5 {
		t.Errorf("expected markup 1.5, got %v", resp.Markup)
	}
	if resp.DefaultCarrier != "carrier_001" {
		t.Errorf("expected default carrier_001, got %q", resp.DefaultCarrier)
	}
}

func TestExportJSON(t *testing.T) {
	handler := newTestRouter(t, newFakeRecordStore(), nil)
	doRequest(handler, http.MethodPost, "/api/v1/cdrs", cdrBody("call_001"))

	rec := doRequest(handler, http.MethodGet, "/api/v1/export", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}

	var dump export.JSONDump
	decodeBody(t, rec, &dump)
	if dump.Count != 1 || len(dump.CDRs) != 1 {
		t.Errorf("expected 1 exported record, got %+v", dump)
	}
}

func TestExportCSV(t *testing.T) {
	handler := newTestRouter(t, newFakeRecordStore(), nil)
	doRequest(handler, http.MethodPost, "/api/v1/cdrs", cdrBody("call_001"))

	rec := doRequest(handler, http.MethodGet, "/api/v1/export?format=csv", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if ct := rec.Header().Get("Content-Type"); ct != "text/csv" {
		t.Errorf("expected text/csv, got %q", ct)
	}
	cd := rec.Header().Get("Content-Disposition")
	if !strings.HasPrefix(cd, "attachment; filename=cdrs_") || !strings.HasSuffix(cd, ".csv") {
		t.Errorf("unexpected Content-Disposition %q", cd)
	}
	if !strings.Contains(rec.Body.String(), "call_001") {
		t.Error("CSV body missing the exported record")
	}
}

func TestExportBadFormat(t *testing.T) {
	handler := newTestRouter(t, newFakeRecordStore(), nil)

	rec := doRequest(handler, http.MethodGet, "/api/v1/export?format=xml", "")
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
}

func TestExportBadDate(t *testing.T) {
	handler := newTestRouter(t, newFakeRecordStore(), nil)

	rec := doRequest(handler, http.MethodGet, "/api/v1/export?start_date=nope", "")
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
}

func TestHealth(t *testing.T) {
	handler := newTestRouter(t, newFakeRecordStore(), &fakePinger{})

	rec := doRequest(handler, http.MethodGet, "/health", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}

	var body map[string]interface{}
	decodeBody(t, rec, &body)
	if body["status"] != "healthy" || body["database"] != "connected" {
		t.Errorf("unexpected health body %v", body)
	}
}

func TestHealthDegraded(t *testing.T) {
	handler := newTestRouter(t, newFakeRecordStore(), &fakePinger{err: errors.New("connection refused")})

	rec := doRequest(handler, http.MethodGet, "/health", "")
	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503, got %d", rec.Code)
	}

	var body map[string]interface{}
	decodeBody(t, rec, &body)
	if body["status"] != "degraded" || body["database"] != "unreachable" {
		t.Errorf("unexpected health body %v", body)
	}
}

func TestStats(t *testing.T) {
	handler := newTestRouter(t, newFakeRecordStore(), nil)
	doRequest(handler, http.MethodPost, "/api/v1/cdrs", cdrBody("call_001"))

	rec := doRequest(handler, http.MethodGet, "/stats", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}

	var body map[string]interface{}
	decodeBody(t, rec, &body)
	if body["total_cdrs"].(float64) != 1 {
		t.Errorf("expected 1 stored record, got %v", body["total_cdrs"])
	}
	if body["carriers_configured"].(float64) != 3 {
		t.Errorf("expected 3 carriers, got %v", body["carriers_configured"])
	}
}

func TestMetricsEndpoints(t *testing.T) {
	handler := newTestRouter(t, newFakeRecordStore(), nil)
	doRequest(handler, http.MethodPost, "/api/v1/cdrs", cdrBody("call_001"))

	rec := doRequest(handler, http.MethodGet, "/metrics", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("/metrics: expected 200, got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "callmeter_records_ingested_total") {
		t.Error("exposition missing ingest counter")
	}

	rec = doRequest(handler, http.MethodGet, "/metrics/summary", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("/metrics/summary: expected 200, got %d", rec.Code)
	}

	var summary metrics.Summary
	decodeBody(t, rec, &summary)
	if summary.Ingest.RecordsIngested != 1 {
		t.Errorf("expected 1 ingested record in summary, got %v", summary.Ingest.RecordsIngested)
	}
}

func TestParseTimeParam(t *testing.T) {
	if got, err := parseTimeParam(""); err != nil || !got.IsZero() {
		t.Errorf("empty param: got %v, %v", got, err)
	}
	if got, err := parseTimeParam("2025-01-05"); err != nil || got.Day() != 5 {
		t.Errorf("date-only param: got %v, %v", got, err)
	}
	want := time.Date(2025, 1, 5, 10, 30, 0, 0, time.UTC)
	if got, err := parseTimeParam("2025-01-05T10:30:00Z"); err != nil || !got.Equal(want) {
		t.Errorf("RFC3339 param: got %v, %v", got, err)
	}
	if _, err := parseTimeParam("nope"); err == nil {
		t.Error("expected error for garbage input")
	}
}
