package analytics

import (
	"sort"

	"github.com/mstrand/callmeter/internal/cdr"
)

// topCountriesLimit caps the geographic report at the busiest destinations.
const topCountriesLimit = 10

// GeographicReport describes where international traffic goes.
type GeographicReport struct {
	TotalCountries          int64          `json:"total_countries"`
	TotalInternationalCalls int64          `json:"total_international_calls"`
	TopCountries            []CountryStats `json:"top_countries"`
}

// CountryStats holds the totals for one destination country.
type CountryStats struct {
	CountryCode   string  `json:"country_code"`
	CountryName   string  `json:"country_name"`
	CallCount     int64   `json:"call_count"`
	TotalDuration int64   `json:"total_duration"`
	Percentage    float64 `json:"percentage"`
}

// geographic reduces the record set into a per-country distribution. Only
// records carrying a country code participate; the country name is taken from
// the first record seen for each code. The result is sorted by call count
// descending and truncated to the top destinations, while the totals still
// reflect every country.
func geographic(recs []*cdr.Record) GeographicReport {
	byCountry := groupBy(recs,
		func(r *cdr.Record) string { return r.CountryCode },
		func(r *cdr.Record) bool { return r.CountryCode != "" },
	)

	var totalInternational int64
	for _, group := range byCountry.Groups {
		totalInternational += int64(len(group))
	}

	countries := make([]CountryStats, 0, len(byCountry.Keys))
	for _, code := range byCountry.Keys {
		group := byCountry.Groups[code]

		row := CountryStats{
			CountryCode: code,
			CountryName: group[0].CountryName,
			CallCount:   int64(len(group)),
		}
		for _, rec := range group {
			row.TotalDuration += rec.DurationSeconds
		}
		row.Percentage = ratio(row.CallCount, totalInternational)
		countries = append(countries, row)
	}

	sort.SliceStable(countries, func(i, j int) bool {
		return countries[i].CallCount > countries[j].CallCount
	})

	report := GeographicReport{
		TotalCountries:          int64(len(countries)),
		TotalInternationalCalls: totalInternational,
	}
	if len(countries) > topCountriesLimit {
		countries = countries[:topCountriesLimit]
	}
	report.TopCountries = countries
	return report
}
