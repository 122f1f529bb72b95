package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

// Metrics holds all Prometheus metric collectors for the callmeter service.
type Metrics struct {
	registry *prometheus.Registry

	// HTTP metrics.
	HTTPRequestsTotal   *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec
	HTTPResponseSize    *prometheus.HistogramVec

	// Ingestion metrics.
	RecordsIngestedTotal     *prometheus.CounterVec
	DuplicateRecordsTotal    prometheus.Counter
	ValidationFailuresTotal  *prometheus.CounterVec
	DurationMismatchesTotal  prometheus.Counter
	BatchSize                prometheus.Histogram
	IngestDuration           prometheus.Histogram

	// Analytics metrics.
	AnalyticsDuration *prometheus.HistogramVec

	// Export metrics.
	ExportsTotal *prometheus.CounterVec

	// Server lifecycle.
	ServerStartTime prometheus.Gauge
}

// New creates and registers all Prometheus metrics on a private registry.
func New() *Metrics {
	reg := prometheus.NewRegistry()

	m := &Metrics{
		registry: reg,

		HTTPRequestsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "callmeter_http_requests_total",
			Help: "Total number of HTTP requests.",
		}, []string{"method", "path_pattern", "status_code"}),

		HTTPRequestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "callmeter_http_request_duration_seconds",
			Help:    "HTTP request duration in seconds.",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "path_pattern"}),

		HTTPResponseSize: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "callmeter_http_response_size_bytes",
			Help:    "HTTP response size in bytes.",
			Buckets: prometheus.ExponentialBuckets(100, 10, 6),
		}, []string{"method", "path_pattern"}),

		RecordsIngestedTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "callmeter_records_ingested_total",
			Help: "Total number of call records accepted for storage.",
		}, []string{"carrier_id", "call_type"}),

		DuplicateRecordsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "callmeter_duplicate_records_total",
			Help: "Total number of records rejected for a duplicate call ID.",
		}),

		ValidationFailuresTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "callmeter_validation_failures_total",
			Help: "Total number of records rejected by validation.",
		}, []string{"field"}),

		DurationMismatchesTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "callmeter_duration_mismatches_total",
			Help: "Total number of records whose declared duration disagreed with their timestamps.",
		}),

		BatchSize: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "callmeter_ingest_batch_size",
			Help:    "Number of records per batch submission.",
			Buckets: prometheus.ExponentialBuckets(1, 4, 6),
		}),

		IngestDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "callmeter_ingest_duration_seconds",
			Help:    "Duration of single-record ingestion in seconds.",
			Buckets: prometheus.DefBuckets,
		}),

		AnalyticsDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "callmeter_analytics_duration_seconds",
			Help:    "Duration of analytics report computation in seconds.",
			Buckets: prometheus.DefBuckets,
		}, []string{"report"}),

		ExportsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "callmeter_exports_total",
			Help: "Total number of export requests by format.",
		}, []string{"format"}),

		ServerStartTime: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "callmeter_server_start_time_seconds",
			Help: "Unix timestamp when the server started.",
		}),
	}

	reg.MustRegister(
		m.HTTPRequestsTotal,
		m.HTTPRequestDuration,
		m.HTTPResponseSize,
		m.RecordsIngestedTotal,
		m.DuplicateRecordsTotal,
		m.ValidationFailuresTotal,
		m.DurationMismatchesTotal,
		m.BatchSize,
		m.IngestDuration,
		m.AnalyticsDuration,
		m.ExportsTotal,
		m.ServerStartTime,
	)

	m.ServerStartTime.Set(float64(time.Now().Unix()))

	// Register Go runtime and process collectors.
	reg.MustRegister(collectors.NewGoCollector())
	reg.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	return m
}

// Registry returns the private Prometheus registry.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// RegisterDBPoolCollector registers a custom DB pool stats collector.
func (m *Metrics) RegisterDBPoolCollector(statFunc DBPoolStatFunc) {
	m.registry.MustRegister(NewDBPoolCollector(statFunc))
}

// IncHTTPRequest increments the HTTP request counter.
func (m *Metrics) IncHTTPRequest(method, pathPattern string, statusCode int) {
	m.HTTPRequestsTotal.WithLabelValues(method, pathPattern, strconv.Itoa(statusCode)).Inc()
}

// IncRecordIngested increments the ingested record counter.
func (m *Metrics) IncRecordIngested(carrierID, callType string) {
	m.RecordsIngestedTotal.WithLabelValues(carrierID, callType).Inc()
}

// IncValidationFailure increments the validation failure counter for a field.
func (m *Metrics) IncValidationFailure(field string) {
	m.ValidationFailuresTotal.WithLabelValues(field).Inc()
}

// IncDuplicate increments the duplicate call ID counter.
func (m *Metrics) IncDuplicate() {
	m.DuplicateRecordsTotal.Inc()
}

// IncDurationMismatch increments the duration mismatch counter.
func (m *Metrics) IncDurationMismatch() {
	m.DurationMismatchesTotal.Inc()
}

// ObserveAnalytics records the computation time of an analytics report.
func (m *Metrics) ObserveAnalytics(report string, seconds float64) {
	m.AnalyticsDuration.WithLabelValues(report).Observe(seconds)
}

// IncExport increments the export counter for the given format.
func (m *Metrics) IncExport(format string) {
	m.ExportsTotal.WithLabelValues(format).Inc()
}
