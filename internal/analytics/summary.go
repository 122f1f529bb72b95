package analytics

import (
	"github.com/shopspring/decimal"

	"github.com/mstrand/callmeter/internal/cdr"
)

// Summary is the overall traffic and money summary across all records.
type Summary struct {
	TotalCalls           int64            `json:"total_calls"`
	TotalDurationSeconds int64            `json:"total_duration_seconds"`
	TotalDurationHours   float64          `json:"total_duration_hours"`
	AverageCallDuration  float64          `json:"average_call_duration"`
	TotalCost            float64          `json:"total_cost"`
	TotalRevenue         float64          `json:"total_revenue"`
	TotalProfit          float64          `json:"total_profit"`
	CallTypes            map[string]int64 `json:"call_types"`
	TimePeriod           string           `json:"time_period"`
}

// summarize reduces the full record set into a Summary. An empty set yields
// an all-zero summary with an empty type distribution.
func summarize(recs []*cdr.Record) Summary {
	s := Summary{
		CallTypes:  make(map[string]int64),
		TimePeriod: "all_time",
	}
	if len(recs) == 0 {
		return s
	}

	var cost, revenue, profit moneySum
	for _, rec := range recs {
		s.TotalCalls++
		s.TotalDurationSeconds += rec.DurationSeconds
		cost.add(rec.Cost)
		revenue.add(rec.Revenue)
		profit.add(rec.ProfitMargin)
	}

	byType := groupBy(recs, func(r *cdr.Record) string { return r.CallType }, nil)
	for _, callType := range byType.Keys {
		s.CallTypes[callType] = int64(len(byType.Groups[callType]))
	}

	seconds := decimal.NewFromInt(s.TotalDurationSeconds)
	s.TotalDurationHours = seconds.Div(decimal.NewFromInt(3600)).Round(2).InexactFloat64()
	s.AverageCallDuration = seconds.Div(decimal.NewFromInt(s.TotalCalls)).Round(1).InexactFloat64()
	s.TotalCost = cost.round2()
	s.TotalRevenue = revenue.round2()
	s.TotalProfit = profit.round2()

	return s
}
