// Package export renders the stored record set as JSON or CSV downloads,
// optionally narrowed to a date range.
package export

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/mstrand/callmeter/internal/cdr"
)

const (
	FormatJSON = "json"
	FormatCSV  = "csv"
)

// ErrBadDate marks an unparseable date bound; callers treat it as a client
// error rather than a storage failure.
var ErrBadDate = errors.New("invalid date bound")

// ValidFormat reports whether format names a supported export format.
func ValidFormat(format string) bool {
	return format == FormatJSON || format == FormatCSV
}

// Params narrows an export. Empty dates mean unbounded; bounds are inclusive
// and compared against each record's start time.
type Params struct {
	StartDate string
	EndDate   string
}

// JSONDump is the JSON export payload.
type JSONDump struct {
	CDRs  []*cdr.Record `json:"cdrs"`
	Count int           `json:"count"`
}

// Lister loads the full record set for export.
type Lister interface {
	ListAll(ctx context.Context) ([]*cdr.Record, error)
}

// Service renders exports from stored records.
type Service struct {
	store Lister
}

// NewService creates an export service backed by store.
func NewService(store Lister) *Service {
	return &Service{store: store}
}

// JSON returns the filtered record set wrapped in the JSON export envelope.
func (s *Service) JSON(ctx context.Context, p Params) (*JSONDump, error) {
	recs, err := s.load(ctx, p)
	if err != nil {
		return nil, err
	}
	return &JSONDump{CDRs: recs, Count: len(recs)}, nil
}

// CSV writes the filtered record set to w as CSV with a header row.
func (s *Service) CSV(ctx context.Context, p Params, w io.Writer) error {
	recs, err := s.load(ctx, p)
	if err != nil {
		return err
	}
	return WriteCSV(w, recs)
}

func (s *Service) load(ctx context.Context, p Params) ([]*cdr.Record, error) {
	recs, err := s.store.ListAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("loading records for export: %w", err)
	}
	return filterByDate(recs, p.StartDate, p.EndDate)
}

// Filename returns the attachment name for a CSV export generated at now.
func Filename(now time.Time) string {
	return "cdrs_" + now.Format("20060102") + ".csv"
}

// filterByDate keeps records whose start time falls inside the inclusive
// [start, end] range. Empty bounds are open.
func filterByDate(recs []*cdr.Record, startDate, endDate string) ([]*cdr.Record, error) {
	if startDate == "" && endDate == "" {
		return recs, nil
	}

	var start, end time.Time
	var err error
	if startDate != "" {
		if start, err = parseBound(startDate); err != nil {
			return nil, fmt.Errorf("%w: start_date %q", ErrBadDate, startDate)
		}
	}
	if endDate != "" {
		if end, err = parseBound(endDate); err != nil {
			return nil, fmt.Errorf("%w: end_date %q", ErrBadDate, endDate)
		}
	}

	filtered := make([]*cdr.Record, 0, len(recs))
	for _, rec := range recs {
		if !start.IsZero() && rec.StartTime.Before(start) {
			continue
		}
		if !end.IsZero() && rec.StartTime.After(end) {
			continue
		}
		filtered = append(filtered, rec)
	}
	return filtered, nil
}

// parseBound accepts a full timestamp or a bare date.
func parseBound(s string) (time.Time, error) {
	if t, err := cdr.ParseTimestamp(s); err == nil {
		return t, nil
	}
	return time.Parse("2006-01-02", s)
}

var csvHeader = []string{
	"id", "call_id", "caller_number", "called_number",
	"start_time", "end_time", "duration_seconds", "duration_minutes",
	"carrier_id", "call_type", "country_code", "country_name",
	"caller_prefix", "called_prefix",
	"rate_per_minute", "cost", "revenue", "profit_margin",
	"ingested_at",
}

// WriteCSV encodes records as CSV with a header row.
func WriteCSV(w io.Writer, recs []*cdr.Record) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(csvHeader); err != nil {
		return fmt.Errorf("writing CSV header: %w", err)
	}

	for _, rec := range recs {
		row := []string{
			strconv.FormatInt(rec.ID, 10),
			rec.CallID,
			rec.CallerNumber,
			rec.CalledNumber,
			formatTime(rec.StartTime),
			formatTime(rec.EndTime),
			strconv.FormatInt(rec.DurationSeconds, 10),
			strconv.FormatInt(rec.DurationMinutes, 10),
			rec.CarrierID,
			rec.CallType,
			rec.CountryCode,
			rec.CountryName,
			rec.CallerPrefix,
			rec.CalledPrefix,
			strconv.FormatFloat(rec.RatePerMinute, 'f', -1, 64),
			strconv.FormatFloat(rec.Cost, 'f', -1, 64),
			strconv.FormatFloat(rec.Revenue, 'f', -1, 64),
			strconv.FormatFloat(rec.ProfitMargin, 'f', -1, 64),
			formatTime(rec.IngestedAt),
		}
		if err := cw.Write(row); err != nil {
			return fmt.Errorf("writing CSV row for %s: %w", rec.CallID, err)
		}
	}

	cw.Flush()
	return cw.Error()
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339)
}
