package cdr

import (
	"log/slog"
	"strings"
	"time"
)

// durationTolerance is the allowed gap between the declared duration and the
// one computed from the timestamps before a mismatch warning is logged.
const durationTolerance = 5 * time.Second

// Enricher derives the computed fields of a record from validated input.
// Enrichment never rejects a record; inconsistencies are logged and the
// declared values win.
type Enricher struct {
	now func() time.Time // injectable clock for testing
}

// NewEnricher creates an Enricher using the real clock.
func NewEnricher() *Enricher {
	return &Enricher{now: time.Now}
}

// Enrich builds an unrated Record from validated input: parsed timestamps, a
// duration consistency check, country name resolution, number prefixes, and
// the ingestion timestamp. Charge fields are left zero for the rating step.
func (e *Enricher) Enrich(in Input) Record {
	start, _ := ParseTimestamp(in.StartTime)
	end, _ := ParseTimestamp(in.EndTime)

	// The declared duration is authoritative even when it disagrees with the
	// timestamps; a mismatch beyond tolerance is only worth a warning.
	if DurationMismatch(in) {
		slog.Warn("duration mismatch",
			"call_id", in.CallID,
			"declared_seconds", in.DurationSeconds,
			"computed_seconds", int64(end.Sub(start).Seconds()),
		)
	}

	var countryName string
	if in.CountryCode != "" {
		countryName = CountryName(in.CountryCode)
	}

	return Record{
		CallID:          in.CallID,
		CallerNumber:    in.CallerNumber,
		CalledNumber:    in.CalledNumber,
		StartTime:       start,
		EndTime:         end,
		DurationSeconds: in.DurationSeconds,
		CarrierID:       in.CarrierID,
		CallType:        in.CallType,
		CountryCode:     in.CountryCode,
		CountryName:     countryName,
		CallerPrefix:    extractPrefix(in.CallerNumber),
		CalledPrefix:    extractPrefix(in.CalledNumber),
		IngestedAt:      e.now().UTC(),
	}
}

// DurationMismatch reports whether the declared duration disagrees with the
// span between the declared timestamps by more than the tolerance. Inputs with
// unparseable timestamps never mismatch.
func DurationMismatch(in Input) bool {
	start, err := ParseTimestamp(in.StartTime)
	if err != nil {
		return false
	}
	end, err := ParseTimestamp(in.EndTime)
	if err != nil {
		return false
	}
	computed := end.Sub(start)
	declared := time.Duration(in.DurationSeconds) * time.Second
	diff := computed - declared
	if diff < 0 {
		diff = -diff
	}
	return diff > durationTolerance
}

// extractPrefix strips a leading '+' and returns the first three digits, or
// the whole number when it is shorter.
func extractPrefix(number string) string {
	digits := strings.TrimPrefix(number, "+")
	if len(digits) > 3 {
		return digits[:3]
	}
	return digits
}
