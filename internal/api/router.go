package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/mstrand/callmeter/internal/analytics"
	"github.com/mstrand/callmeter/internal/export"
	"github.com/mstrand/callmeter/internal/ingest"
	"github.com/mstrand/callmeter/internal/metrics"
	"github.com/mstrand/callmeter/internal/rates"
)

// RouterDeps holds all dependencies for the API router.
type RouterDeps struct {
	Ingest         *ingest.Service
	Records        RecordStore
	Analytics      *analytics.Engine
	Export         *export.Service
	Rates          *rates.Table
	Metrics        *metrics.Metrics
	DB             Pinger
	AllowedOrigins []string
}

// NewRouter builds the chi router with all routes and middleware.
func NewRouter(deps RouterDeps) http.Handler {
	r := chi.NewRouter()

	// Global middleware.
	r.Use(chimw.Recoverer)
	r.Use(requestIDMiddleware)
	r.Use(slogRequestLogger)
	if len(deps.AllowedOrigins) > 0 {
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins:   deps.AllowedOrigins,
			AllowedMethods:   []string{"GET", "POST", "DELETE", "OPTIONS"},
			AllowedHeaders:   []string{"Content-Type", "X-Request-ID"},
			ExposedHeaders:   []string{"X-Request-ID", "Content-Disposition"},
			MaxAge:           86400,
		}))
	}
	if deps.Metrics != nil {
		r.Use(metricsMiddleware(deps.Metrics))
	}

	// Handlers.
	cdrs := newCDRHandler(deps.Ingest, deps.Records)
	reports := newAnalyticsHandler(deps.Analytics, deps.Rates, deps.Metrics)
	exports := newExportHandler(deps.Export, deps.Metrics)
	system := newSystemHandler(deps.DB, deps.Records, deps.Rates)

	// Health and operational stats.
	r.Get("/health", system.Health)
	r.Get("/stats", system.Stats)

	// Prometheus exposition plus a JSON summary for dashboards.
	if deps.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(deps.Metrics.Registry(), promhttp.HandlerOpts{}))
		r.Get("/metrics/summary", deps.Metrics.Handler())
	}

	r.Route("/api/v1", func(ar chi.Router) {
		// Record ingestion and queries.
		ar.Post("/cdrs", cdrs.CreateCDR)
		ar.Post("/cdrs/batch", cdrs.CreateCDRBatch)
		ar.Get("/cdrs", cdrs.ListCDRs)
		ar.Get("/cdrs/{callID}", cdrs.GetCDR)
		ar.Delete("/cdrs/{callID}", cdrs.DeleteCDR)

		// Analytics reports.
		ar.Get("/analytics/summary", reports.GetSummary)
		ar.Get("/analytics/costs", reports.GetCostAnalysis)
		ar.Get("/analytics/carriers", reports.GetCarrierStats)
		ar.Get("/analytics/geographic", reports.GetGeographic)
		ar.Get("/analytics/traffic", reports.GetTraffic)

		// Rate table.
		ar.Get("/carriers", reports.ListCarriers)

		// Downloads.
		ar.Get("/export", exports.Export)
	})

	return r
}
