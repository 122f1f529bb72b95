package cdr

import (
	"testing"
	"time"
)

func fixedEnricher(at time.Time) *Enricher {
	return &Enricher{now: func() time.Time { return at }}
}

func TestEnrich(t *testing.T) {
	ingestedAt := time.Date(2025, 2, 1, 12, 0, 0, 0, time.UTC)
	e := fixedEnricher(ingestedAt)

	in := validInput()
	rec := e.Enrich(in)

	if rec.CallID != "call_001" {
		t.Errorf("unexpected call id %q", rec.CallID)
	}
	if want := time.Date(2025, 1, 5, 10, 30, 0, 0, time.UTC); !rec.StartTime.Equal(want) {
		t.Errorf("unexpected start time %v", rec.StartTime)
	}
	if want := time.Date(2025, 1, 5, 10, 35, 30, 0, time.UTC); !rec.EndTime.Equal(want) {
		t.Errorf("unexpected end time %v", rec.EndTime)
	}
	if rec.CountryName != "United Kingdom" {
		t.Errorf("expected country name United Kingdom, got %q", rec.CountryName)
	}
	if rec.CallerPrefix != "141" {
		t.Errorf("expected caller prefix 141, got %q", rec.CallerPrefix)
	}
	if rec.CalledPrefix != "442" {
		t.Errorf("expected called prefix 442, got %q", rec.CalledPrefix)
	}
	if !rec.IngestedAt.Equal(ingestedAt) {
		t.Errorf("expected ingested at %v, got %v", ingestedAt, rec.IngestedAt)
	}
	if rec.Cost != 0 || rec.DurationMinutes != 0 {
		t.Errorf("charge fields must be zero before rating, got %+v", rec)
	}
}

func TestEnrichUnknownCountry(t *testing.T) {
	e := fixedEnricher(time.Now())

	in := validInput()
	in.CountryCode = "XX"
	rec := e.Enrich(in)

	if rec.CountryName != UnknownCountry {
		t.Errorf("expected %q for unknown code, got %q", UnknownCountry, rec.CountryName)
	}
}

func TestEnrichNoCountryCode(t *testing.T) {
	e := fixedEnricher(time.Now())

	in := validInput()
	in.CallType = "local"
	in.CountryCode = ""
	rec := e.Enrich(in)

	if rec.CountryName != "" {
		t.Errorf("expected empty country name, got %q", rec.CountryName)
	}
}

func TestEnrichDurationMismatchKeepsDeclared(t *testing.T) {
	e := fixedEnricher(time.Now())

	// Timestamps span 330s but the switch declared 600s. The mismatch is
	// logged, never rejected, and the declared duration wins.
	in := validInput()
	in.DurationSeconds = 600
	rec := e.Enrich(in)

	if rec.DurationSeconds != 600 {
		t.Errorf("declared duration must win, got %d", rec.DurationSeconds)
	}
}

func TestExtractPrefix(t *testing.T) {
	cases := []struct {
		number string
		want   string
	}{
		{"+14155551234", "141"},
		{"+4420", "442"},
		{"+12", "12"},
		{"911", "911"},
		{"+1", "1"},
	}
	for _, tc := range cases {
		if got := extractPrefix(tc.number); got != tc.want {
			t.Errorf("extractPrefix(%q) = %q, want %q", tc.number, got, tc.want)
		}
	}
}

func TestCountryName(t *testing.T) {
	if got := CountryName("us"); got != "United States" {
		t.Errorf("expected case-insensitive lookup, got %q", got)
	}
	if got := CountryName("ZZ"); got != UnknownCountry {
		t.Errorf("expected %q, got %q", UnknownCountry, got)
	}
}

func TestDurationMismatch(t *testing.T) {
	in := validInput() // 330s declared, timestamps span 330s

	if DurationMismatch(in) {
		t.Error("consistent input must not mismatch")
	}

	in.DurationSeconds = 334 // within the 5s tolerance
	if DurationMismatch(in) {
		t.Error("gap within tolerance must not mismatch")
	}

	in.DurationSeconds = 600
	if !DurationMismatch(in) {
		t.Error("expected mismatch beyond tolerance")
	}

	in.StartTime = "garbage"
	if DurationMismatch(in) {
		t.Error("unparseable timestamps never mismatch")
	}
}
