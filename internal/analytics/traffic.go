package analytics

import (
	"sort"

	"github.com/mstrand/callmeter/internal/cdr"
)

// Traffic bucketing granularities.
const (
	PeriodHourly  = "hourly"
	PeriodDaily   = "daily"
	PeriodMonthly = "monthly"
)

// ValidPeriod reports whether period is a recognized granularity.
func ValidPeriod(period string) bool {
	switch period {
	case PeriodHourly, PeriodDaily, PeriodMonthly:
		return true
	}
	return false
}

// TrafficReport buckets call volume over time.
type TrafficReport struct {
	Period string          `json:"period"`
	Data   []TrafficBucket `json:"data"`
}

// TrafficBucket is one time bucket; Period is the truncated key it was
// grouped by, chronological when sorted lexicographically.
type TrafficBucket struct {
	Period        string  `json:"period"`
	CallCount     int64   `json:"call_count"`
	TotalDuration int64   `json:"total_duration"`
	TotalCost     float64 `json:"total_cost"`
}

// traffic reduces the record set into time buckets of the given granularity.
// Unrecognized periods fall back to daily buckets. Records without a usable
// start time are skipped from this report only, never failing it.
func traffic(recs []*cdr.Record, period string) TrafficReport {
	layout := bucketLayout(period)

	byBucket := groupBy(recs,
		func(r *cdr.Record) string { return r.StartTime.Format(layout) },
		func(r *cdr.Record) bool { return !r.StartTime.IsZero() },
	)

	data := make([]TrafficBucket, 0, len(byBucket.Keys))
	for _, key := range byBucket.Keys {
		group := byBucket.Groups[key]

		bucket := TrafficBucket{Period: key}
		var cost moneySum
		for _, rec := range group {
			bucket.CallCount++
			bucket.TotalDuration += rec.DurationSeconds
			cost.add(rec.Cost)
		}
		bucket.TotalCost = cost.round2()
		data = append(data, bucket)
	}

	sort.Slice(data, func(i, j int) bool { return data[i].Period < data[j].Period })

	return TrafficReport{Period: period, Data: data}
}

// bucketLayout maps a granularity to its time.Format layout.
func bucketLayout(period string) string {
	switch period {
	case PeriodHourly:
		return "2006-01-02 15:00"
	case PeriodMonthly:
		return "2006-01"
	default:
		return "2006-01-02"
	}
}
