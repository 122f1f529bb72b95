package cdr

import "strings"

// UnknownCountry is the sentinel name for country codes missing from the
// static table. Lookups never fail.
const UnknownCountry = "Unknown"

// countryNames maps ISO 3166-1 alpha-2 codes to display names for the
// destinations the rating pipeline cares about.
var countryNames = map[string]string{
	"US": "United States",
	"GB": "United Kingdom",
	"DE": "Germany",
	"FR": "France",
	"CA": "Canada",
	"AU": "Australia",
	"JP": "Japan",
	"CN": "China",
	"IN": "India",
	"BR": "Brazil",
	"MX": "Mexico",
	"IT": "Italy",
	"ES": "Spain",
	"NL": "Netherlands",
	"SE": "Sweden",
}

// CountryName resolves a country code (case-insensitive) to its display name,
// returning UnknownCountry for codes not in the table.
func CountryName(code string) string {
	if name, ok := countryNames[strings.ToUpper(code)]; ok {
		return name
	}
	return UnknownCountry
}
