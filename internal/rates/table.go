package rates

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"sort"

	"github.com/shopspring/decimal"
)

// DefaultCountryRate is the key in a carrier's international rate map that is
// used for destinations without an explicit rate. Every carrier must have one.
const DefaultCountryRate = "default"

// Validation errors returned when loading a rate table.
var (
	ErrMarkupInvalid       = errors.New("markup must be >= 1")
	ErrNoCarriers          = errors.New("rate table must define at least one carrier")
	ErrDefaultCarrier      = errors.New("default carrier is not present in the rate table")
	ErrRateMissing         = errors.New("carrier must define local and national rates")
	ErrDefaultRateMissing  = errors.New("carrier international rates must include a default entry")
)

// CarrierRates holds the per-minute rates for a single carrier.
type CarrierRates struct {
	Name          string
	Local         decimal.Decimal
	National      decimal.Decimal
	International map[string]decimal.Decimal
}

// CarrierInfo is the public shape of a configured carrier.
type CarrierInfo struct {
	CarrierID string `json:"carrier_id"`
	Name      string `json:"name"`
}

// Table is an immutable carrier rate table. It is loaded once at startup;
// changing rates requires a restart.
type Table struct {
	carriers       map[string]CarrierRates
	markup         decimal.Decimal
	defaultCarrier string
}

// tableFile mirrors the JSON rate table format. Rate fields are pointers so
// that absent entries can be told apart from genuine zero rates.
type tableFile struct {
	Carriers map[string]carrierFile `json:"carriers"`
	Markup   *decimal.Decimal       `json:"markup"`
}

type carrierFile struct {
	Name          string                     `json:"name"`
	Local         *decimal.Decimal           `json:"local"`
	National      *decimal.Decimal           `json:"national"`
	International map[string]decimal.Decimal `json:"international"`
}

// Load reads a rate table from the JSON file at path. A missing file is not
// an error: the built-in default table is returned so the service can run
// without configuration. A file that exists but fails to parse or validate is
// an error.
func Load(path, defaultCarrier string) (*Table, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Default(defaultCarrier)
		}
		return nil, fmt.Errorf("reading rate table: %w", err)
	}

	var tf tableFile
	if err := json.Unmarshal(data, &tf); err != nil {
		return nil, fmt.Errorf("parsing rate table: %w", err)
	}

	return build(tf, defaultCarrier)
}

// Default returns the built-in three-carrier rate table with a 50% markup.
func Default(defaultCarrier string) (*Table, error) {
	var tf tableFile
	if err := json.Unmarshal([]byte(defaultTableJSON), &tf); err != nil {
		return nil, fmt.Errorf("parsing built-in rate table: %w", err)
	}
	return build(tf, defaultCarrier)
}

func build(tf tableFile, defaultCarrier string) (*Table, error) {
	if tf.Markup == nil || tf.Markup.LessThan(decimal.NewFromInt(1)) {
		return nil, ErrMarkupInvalid
	}
	if len(tf.Carriers) == 0 {
		return nil, ErrNoCarriers
	}

	carriers := make(map[string]CarrierRates, len(tf.Carriers))
	for id, cf := range tf.Carriers {
		if cf.Local == nil || cf.National == nil {
			return nil, fmt.Errorf("carrier %s: %w", id, ErrRateMissing)
		}
		if _, ok := cf.International[DefaultCountryRate]; !ok {
			return nil, fmt.Errorf("carrier %s: %w", id, ErrDefaultRateMissing)
		}
		intl := make(map[string]decimal.Decimal, len(cf.International))
		for cc, rate := range cf.International {
			intl[cc] = rate
		}
		carriers[id] = CarrierRates{
			Name:          cf.Name,
			Local:         *cf.Local,
			National:      *cf.National,
			International: intl,
		}
	}

	if _, ok := carriers[defaultCarrier]; !ok {
		return nil, fmt.Errorf("%w: %s", ErrDefaultCarrier, defaultCarrier)
	}

	return &Table{
		carriers:       carriers,
		markup:         *tf.Markup,
		defaultCarrier: defaultCarrier,
	}, nil
}

// Markup returns the global revenue markup factor.
func (t *Table) Markup() decimal.Decimal {
	return t.markup
}

// DefaultCarrier returns the carrier whose rates are applied when an unknown
// carrier is billed.
func (t *Table) DefaultCarrier() string {
	return t.defaultCarrier
}

// Rates returns the rates for carrierID and whether the carrier is known.
// Unknown carriers fall back to the default carrier's rates; this lenient
// behavior is relied on by the calculator and must not be tightened.
func (t *Table) Rates(carrierID string) (CarrierRates, bool) {
	if cr, ok := t.carriers[carrierID]; ok {
		return cr, true
	}
	return t.carriers[t.defaultCarrier], false
}

// Carriers returns all configured carriers sorted by carrier ID.
func (t *Table) Carriers() []CarrierInfo {
	out := make([]CarrierInfo, 0, len(t.carriers))
	for id, cr := range t.carriers {
		out = append(out, CarrierInfo{CarrierID: id, Name: cr.Name})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CarrierID < out[j].CarrierID })
	return out
}

// CarrierCount returns the number of configured carriers.
func (t *Table) CarrierCount() int {
	return len(t.carriers)
}

// defaultTableJSON is the built-in rate table used when no rate file is
// configured. Rates are per billed minute.
const defaultTableJSON = `{
  "carriers": {
    "carrier_001": {
      "name": "Premium Carrier A",
      "local": 0.01,
      "national": 0.02,
      "international": {
        "US": 0.03, "GB": 0.04, "DE": 0.04, "FR": 0.04,
        "AU": 0.05, "JP": 0.06, "default": 0.08
      }
    },
    "carrier_002": {
      "name": "Budget Carrier B",
      "local": 0.008,
      "national": 0.015,
      "international": {
        "US": 0.025, "GB": 0.035, "DE": 0.035, "FR": 0.035,
        "AU": 0.045, "JP": 0.055, "default": 0.07
      }
    },
    "carrier_003": {
      "name": "Standard Carrier C",
      "local": 0.009,
      "national": 0.018,
      "international": {
        "US": 0.028, "GB": 0.038, "DE": 0.038, "FR": 0.038,
        "AU": 0.048, "JP": 0.058, "default": 0.075
      }
    }
  },
  "markup": 1.5
}`
