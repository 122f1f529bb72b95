package analytics

import (
	"context"
	"fmt"

	"github.com/mstrand/callmeter/internal/cdr"
)

// Lister provides the full record set for a reduction pass. It exists so the
// engine can run against the database store in production and plain slices in
// tests.
type Lister interface {
	ListAll(ctx context.Context) ([]*cdr.Record, error)
}

// Engine computes aggregate reports over the complete record collection.
// Every report is recomputed from scratch on each call; there is no cached or
// incremental state, so reports are deterministic for an unchanged store.
type Engine struct {
	store Lister
}

// NewEngine creates an Engine reading from the given store.
func NewEngine(store Lister) *Engine {
	return &Engine{store: store}
}

// Summary returns the overall traffic and money summary.
func (e *Engine) Summary(ctx context.Context) (Summary, error) {
	recs, err := e.store.ListAll(ctx)
	if err != nil {
		return Summary{}, fmt.Errorf("loading records for summary: %w", err)
	}
	return summarize(recs), nil
}

// CostAnalysis returns the cost breakdown by call type.
func (e *Engine) CostAnalysis(ctx context.Context) (CostAnalysis, error) {
	recs, err := e.store.ListAll(ctx)
	if err != nil {
		return CostAnalysis{}, fmt.Errorf("loading records for cost analysis: %w", err)
	}
	return analyzeCosts(recs), nil
}

// CarrierStats returns per-carrier statistics.
func (e *Engine) CarrierStats(ctx context.Context) (CarrierStatsReport, error) {
	recs, err := e.store.ListAll(ctx)
	if err != nil {
		return CarrierStatsReport{}, fmt.Errorf("loading records for carrier stats: %w", err)
	}
	return carrierStats(recs), nil
}

// Geographic returns the international call distribution by country.
func (e *Engine) Geographic(ctx context.Context) (GeographicReport, error) {
	recs, err := e.store.ListAll(ctx)
	if err != nil {
		return GeographicReport{}, fmt.Errorf("loading records for geographic distribution: %w", err)
	}
	return geographic(recs), nil
}

// Traffic returns call volume bucketed by the given period.
func (e *Engine) Traffic(ctx context.Context, period string) (TrafficReport, error) {
	recs, err := e.store.ListAll(ctx)
	if err != nil {
		return TrafficReport{}, fmt.Errorf("loading records for traffic analysis: %w", err)
	}
	return traffic(recs, period), nil
}
