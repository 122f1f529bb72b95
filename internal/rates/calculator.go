package rates

import (
	"github.com/shopspring/decimal"
)

// Charge is the result of rating a single call. Monetary values are rounded
// to 4 decimal places; profit is derived from the rounded cost and revenue so
// the three values are always consistent.
type Charge struct {
	Cost            float64 `json:"cost"`
	Revenue         float64 `json:"revenue"`
	ProfitMargin    float64 `json:"profit_margin"`
	DurationMinutes int64   `json:"duration_minutes"`
	RatePerMinute   float64 `json:"rate_per_minute"`
}

// Calculator rates calls against a carrier rate table. It is a pure
// component: Calculate never fails and has no side effects.
type Calculator struct {
	table *Table
}

// NewCalculator creates a Calculator over the given rate table.
func NewCalculator(table *Table) *Calculator {
	return &Calculator{table: table}
}

// BilledMinutes converts a call duration to billed minutes, rounding up to
// the next whole minute. A zero-second call bills zero minutes.
func BilledMinutes(durationSeconds int64) int64 {
	minutes := (durationSeconds + 59) / 60
	if minutes < 0 {
		return 0
	}
	return minutes
}

// Calculate rates one call. Unknown carriers silently use the default
// carrier's rates, and international calls to countries missing from the
// carrier's table use its default international rate; neither case is an
// error.
func (c *Calculator) Calculate(durationSeconds int64, callType, countryCode, carrierID string) Charge {
	minutes := BilledMinutes(durationSeconds)

	carrier, _ := c.table.Rates(carrierID)

	var rate decimal.Decimal
	switch callType {
	case "local":
		rate = carrier.Local
	case "national":
		rate = carrier.National
	case "international":
		if r, ok := carrier.International[countryCode]; ok {
			rate = r
		} else {
			rate = carrier.International[DefaultCountryRate]
		}
	default:
		rate = carrier.Local
	}

	cost := rate.Mul(decimal.NewFromInt(minutes)).Round(4)
	revenue := cost.Mul(c.table.Markup()).Round(4)
	profit := revenue.Sub(cost).Round(4)

	return Charge{
		Cost:            cost.InexactFloat64(),
		Revenue:         revenue.InexactFloat64(),
		ProfitMargin:    profit.InexactFloat64(),
		DurationMinutes: minutes,
		RatePerMinute:   rate.InexactFloat64(),
	}
}
