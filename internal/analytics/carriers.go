package analytics

import (
	"sort"

	"github.com/shopspring/decimal"

	"github.com/mstrand/callmeter/internal/cdr"
)

// CarrierStatsReport lists per-carrier traffic and money totals.
type CarrierStatsReport struct {
	TotalCarriers int64          `json:"total_carriers"`
	CarrierStats  []CarrierStats `json:"carrier_stats"`
}

// CarrierStats holds the totals for one carrier.
type CarrierStats struct {
	CarrierID            string  `json:"carrier_id"`
	TotalCalls           int64   `json:"total_calls"`
	TotalDuration        int64   `json:"total_duration"`
	TotalCost            float64 `json:"total_cost"`
	TotalRevenue         float64 `json:"total_revenue"`
	AverageCostPerMinute float64 `json:"average_cost_per_minute"`
}

// carrierStats reduces the record set into per-carrier rows sorted by call
// count descending. Ties keep the order carriers were first encountered in.
func carrierStats(recs []*cdr.Record) CarrierStatsReport {
	byCarrier := groupBy(recs, func(r *cdr.Record) string { return r.CarrierID }, nil)

	stats := make([]CarrierStats, 0, len(byCarrier.Keys))
	for _, carrierID := range byCarrier.Keys {
		group := byCarrier.Groups[carrierID]

		row := CarrierStats{CarrierID: carrierID}
		var cost, revenue moneySum
		for _, rec := range group {
			row.TotalCalls++
			row.TotalDuration += rec.DurationSeconds
			cost.add(rec.Cost)
			revenue.add(rec.Revenue)
		}
		row.TotalCost = cost.round2()
		row.TotalRevenue = revenue.round2()
		row.AverageCostPerMinute = costPerMinute(cost.d, row.TotalDuration)
		stats = append(stats, row)
	}

	sort.SliceStable(stats, func(i, j int) bool {
		return stats[i].TotalCalls > stats[j].TotalCalls
	})

	return CarrierStatsReport{
		TotalCarriers: int64(len(stats)),
		CarrierStats:  stats,
	}
}

// costPerMinute divides total cost by total minutes, guarding the
// zero-duration case: a carrier with only zero-length calls averages 0.
func costPerMinute(totalCost decimal.Decimal, durationSeconds int64) float64 {
	if durationSeconds == 0 {
		return 0
	}
	minutes := decimal.NewFromInt(durationSeconds).Div(decimal.NewFromInt(60))
	return totalCost.Div(minutes).Round(4).InexactFloat64()
}
