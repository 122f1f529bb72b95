package analytics

import (
	"github.com/mstrand/callmeter/internal/cdr"
)

// CostAnalysis breaks down cost, revenue, and profit by call type.
type CostAnalysis struct {
	TotalCalls            int64                    `json:"total_calls"`
	CostByType            map[string]TypeBreakdown `json:"cost_by_type,omitempty"`
	AverageCostPerCall    float64                  `json:"average_cost_per_call,omitempty"`
	AverageRevenuePerCall float64                  `json:"average_revenue_per_call,omitempty"`
}

// TypeBreakdown holds the totals for a single call type. Sums are rounded
// once at the end of the reduction, not per record.
type TypeBreakdown struct {
	Calls   int64   `json:"calls"`
	Cost    float64 `json:"cost"`
	Revenue float64 `json:"revenue"`
	Profit  float64 `json:"profit"`
}

// analyzeCosts reduces the record set into a per-type cost breakdown plus
// overall per-call averages. An empty set yields only a zero total.
func analyzeCosts(recs []*cdr.Record) CostAnalysis {
	if len(recs) == 0 {
		return CostAnalysis{}
	}

	byType := groupBy(recs, func(r *cdr.Record) string { return r.CallType }, nil)

	costByType := make(map[string]TypeBreakdown, len(byType.Keys))
	for _, callType := range byType.Keys {
		group := byType.Groups[callType]
		var cost, revenue, profit moneySum
		for _, rec := range group {
			cost.add(rec.Cost)
			revenue.add(rec.Revenue)
			profit.add(rec.ProfitMargin)
		}
		costByType[callType] = TypeBreakdown{
			Calls:   int64(len(group)),
			Cost:    cost.round2(),
			Revenue: revenue.round2(),
			Profit:  profit.round2(),
		}
	}

	var totalCost, totalRevenue moneySum
	for _, rec := range recs {
		totalCost.add(rec.Cost)
		totalRevenue.add(rec.Revenue)
	}

	total := int64(len(recs))
	return CostAnalysis{
		TotalCalls:            total,
		CostByType:            costByType,
		AverageCostPerCall:    totalCost.div(total, 4),
		AverageRevenuePerCall: totalRevenue.div(total, 4),
	}
}
