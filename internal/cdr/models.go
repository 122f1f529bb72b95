package cdr

import "time"

// Call types accepted by the pipeline.
const (
	CallTypeLocal         = "local"
	CallTypeNational      = "national"
	CallTypeInternational = "international"
)

// Input is a raw Call Detail Record as submitted by a switch or mediation
// layer, before validation and enrichment.
type Input struct {
	CallID          string `json:"call_id"`
	CallerNumber    string `json:"caller_number"`
	CalledNumber    string `json:"called_number"`
	StartTime       string `json:"start_time"`
	EndTime         string `json:"end_time"`
	DurationSeconds int64  `json:"duration_seconds"`
	CarrierID       string `json:"carrier_id"`
	CallType        string `json:"call_type"`
	CountryCode     string `json:"country_code,omitempty"`
}

// Record is a fully enriched and rated CDR as persisted. Charge fields
// (cost, revenue, profit_margin, duration_minutes, rate_per_minute) are
// immutable once computed; re-rating a call requires delete and re-ingest.
type Record struct {
	ID              int64     `json:"id"`
	CallID          string    `json:"call_id"`
	CallerNumber    string    `json:"caller_number"`
	CalledNumber    string    `json:"called_number"`
	StartTime       time.Time `json:"start_time"`
	EndTime         time.Time `json:"end_time"`
	DurationSeconds int64     `json:"duration_seconds"`
	CarrierID       string    `json:"carrier_id"`
	CallType        string    `json:"call_type"`
	CountryCode     string    `json:"country_code,omitempty"`
	CountryName     string    `json:"country_name,omitempty"`
	CallerPrefix    string    `json:"caller_prefix"`
	CalledPrefix    string    `json:"called_prefix"`
	Cost            float64   `json:"cost"`
	Revenue         float64   `json:"revenue"`
	ProfitMargin    float64   `json:"profit_margin"`
	DurationMinutes int64     `json:"duration_minutes"`
	RatePerMinute   float64   `json:"rate_per_minute"`
	IngestedAt      time.Time `json:"ingested_at"`
}

// ListParams holds the optional filters and pagination for listing records.
// Zero values mean "no filter".
type ListParams struct {
	CarrierID   string
	CountryCode string
	CallType    string
	StartDate   time.Time
	EndDate     time.Time
	Limit       int
	Offset      int
}
