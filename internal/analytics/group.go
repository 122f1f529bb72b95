package analytics

import (
	"github.com/shopspring/decimal"

	"github.com/mstrand/callmeter/internal/cdr"
)

// grouping is a partition of records by key. Keys preserves first-encounter
// order so downstream sorts can keep stable tie-breaks.
type grouping[K comparable] struct {
	Keys   []K
	Groups map[K][]*cdr.Record
}

// groupBy partitions records by the given key function. Records for which
// keep returns false are left out entirely. It is the first of the two
// aggregation stages; each report's reduction folds the partitions.
func groupBy[K comparable](recs []*cdr.Record, key func(*cdr.Record) K, keep func(*cdr.Record) bool) grouping[K] {
	g := grouping[K]{Groups: make(map[K][]*cdr.Record)}
	for _, rec := range recs {
		if keep != nil && !keep(rec) {
			continue
		}
		k := key(rec)
		if _, seen := g.Groups[k]; !seen {
			g.Keys = append(g.Keys, k)
		}
		g.Groups[k] = append(g.Groups[k], rec)
	}
	return g
}

// moneySum accumulates float64 money fields exactly.
type moneySum struct {
	d decimal.Decimal
}

func (m *moneySum) add(v float64) {
	m.d = m.d.Add(decimal.NewFromFloat(v))
}

// round2 returns the sum rounded to 2 decimal places.
func (m *moneySum) round2() float64 {
	return m.d.Round(2).InexactFloat64()
}

// div divides the sum by n and rounds to the given number of places. It
// returns 0 when n is 0.
func (m *moneySum) div(n int64, places int32) float64 {
	if n == 0 {
		return 0
	}
	return m.d.Div(decimal.NewFromInt(n)).Round(places).InexactFloat64()
}

// ratio returns num/den*100 rounded to 1 decimal place, or 0 when den is 0.
func ratio(num, den int64) float64 {
	if den == 0 {
		return 0
	}
	return decimal.NewFromInt(num).
		Mul(decimal.NewFromInt(100)).
		Div(decimal.NewFromInt(den)).
		Round(1).
		InexactFloat64()
}
