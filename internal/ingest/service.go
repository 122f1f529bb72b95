// Package ingest runs the record pipeline: validation, enrichment, rating,
// and storage. Batches are processed item by item; one bad record never
// fails the rest.
package ingest

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/mstrand/callmeter/internal/cdr"
	"github.com/mstrand/callmeter/internal/metrics"
	"github.com/mstrand/callmeter/internal/rates"
)

// ErrBatchTooLarge is returned when a batch exceeds the configured limit.
var ErrBatchTooLarge = errors.New("batch exceeds maximum size")

// Inserter is the storage side of the pipeline.
type Inserter interface {
	Insert(ctx context.Context, rec *cdr.Record) (*cdr.Record, error)
}

// BatchItemError describes a single failed record within a batch.
type BatchItemError struct {
	Index  int    `json:"index"`
	CallID string `json:"call_id"`
	Error  string `json:"error"`
}

// BatchResult summarizes a batch submission. A batch never fails atomically:
// failures are enumerated and the rest of the records are stored.
type BatchResult struct {
	SuccessCount int              `json:"success_count"`
	ErrorCount   int              `json:"error_count"`
	Errors       []BatchItemError `json:"errors,omitempty"`
	Records      []*cdr.Record    `json:"-"`
}

// Service runs inputs through the full ingestion pipeline.
type Service struct {
	store    Inserter
	enricher *cdr.Enricher
	calc     *rates.Calculator
	metrics  *metrics.Metrics
	maxBatch int
}

// New creates an ingestion service. maxBatch caps SubmitBatch; zero or
// negative disables the cap.
func New(store Inserter, calc *rates.Calculator, m *metrics.Metrics, maxBatch int) *Service {
	return &Service{
		store:    store,
		enricher: cdr.NewEnricher(),
		calc:     calc,
		metrics:  m,
		maxBatch: maxBatch,
	}
}

// Submit validates, enriches, rates, and stores a single record. Validation
// failures and duplicate call IDs come back as typed errors for the caller
// to map onto client responses.
func (s *Service) Submit(ctx context.Context, in cdr.Input) (*cdr.Record, error) {
	start := time.Now()

	if err := cdr.Validate(&in); err != nil {
		var ve *cdr.ValidationError
		if errors.As(err, &ve) {
			s.metrics.IncValidationFailure(ve.Field)
		}
		return nil, err
	}

	rec := s.enricher.Enrich(in)
	if cdr.DurationMismatch(in) {
		s.metrics.IncDurationMismatch()
	}

	charge := s.calc.Calculate(in.DurationSeconds, in.CallType, in.CountryCode, in.CarrierID)
	rec.Cost = charge.Cost
	rec.Revenue = charge.Revenue
	rec.ProfitMargin = charge.ProfitMargin
	rec.DurationMinutes = charge.DurationMinutes
	rec.RatePerMinute = charge.RatePerMinute

	stored, err := s.store.Insert(ctx, &rec)
	if err != nil {
		if errors.Is(err, cdr.ErrDuplicateCallID) {
			s.metrics.IncDuplicate()
			return nil, err
		}
		return nil, fmt.Errorf("storing record %s: %w", in.CallID, err)
	}

	s.metrics.IncRecordIngested(stored.CarrierID, stored.CallType)
	s.metrics.IngestDuration.Observe(time.Since(start).Seconds())

	slog.Debug("record ingested",
		"call_id", stored.CallID,
		"carrier_id", stored.CarrierID,
		"call_type", stored.CallType,
		"cost", stored.Cost,
	)
	return stored, nil
}

// SubmitBatch runs each input through Submit and collects per-item failures.
// Only an oversized batch is rejected outright.
func (s *Service) SubmitBatch(ctx context.Context, inputs []cdr.Input) (*BatchResult, error) {
	if s.maxBatch > 0 && len(inputs) > s.maxBatch {
		return nil, fmt.Errorf("%w: %d records, limit %d", ErrBatchTooLarge, len(inputs), s.maxBatch)
	}

	s.metrics.BatchSize.Observe(float64(len(inputs)))

	result := &BatchResult{}
	for i, in := range inputs {
		rec, err := s.Submit(ctx, in)
		if err != nil {
			result.ErrorCount++
			result.Errors = append(result.Errors, BatchItemError{
				Index:  i,
				CallID: in.CallID,
				Error:  err.Error(),
			})
			continue
		}
		result.SuccessCount++
		result.Records = append(result.Records, rec)
	}

	if result.ErrorCount > 0 {
		slog.Info("batch completed with failures",
			"total", len(inputs),
			"succeeded", result.SuccessCount,
			"failed", result.ErrorCount,
		)
	}
	return result, nil
}
