// Package funding owns the single static table mapping each venue to its
// funding interval (spec.md §4.4) and the three-view funding-rate
// normalization derived from it. The aggregation engine reads this table
// when computing annualized averages; no other package may duplicate it.
package funding

import (
	"sort"

	"github.com/shopspring/decimal"
)

// hoursPerYear follows the teacher's and the pack's convention of a 365-day
// year for annualization; spec.md §4.4 names 365 explicitly.
const hoursPerYear = 24 * 365

// Interval describes one venue's funding-payment cadence.
type Interval struct {
	Hours int // payment interval in hours: 1, 4, or 8
	// HourlyNative marks a venue whose API already reports the per-hour
	// rate rather than the per-interval rate; for these, Hours is still the
	// payment cadence but no /Hours rescaling is applied when computing the
	// hourly view (spec.md §4.4 "one exception").
	HourlyNative bool
}

// table is the single place these constants live (spec.md §4.4). Per
// spec.md §9's open question, the exact hourly-native venue list must be
// derived here rather than inferred elsewhere; hyna and vntl are the two
// venues whose public API already reports a per-hour funding figure.
var table = map[string]Interval{
	"hyperliquid": {Hours: 1},
	"dydx":        {Hours: 1},
	"vertex":      {Hours: 8},
	"apex":        {Hours: 8},
	"paradex":     {Hours: 8},
	"drift":       {Hours: 1},
	"gmx":         {Hours: 8},
	"kwenta":      {Hours: 1},
	"aevo":        {Hours: 8},
	"rabbitx":     {Hours: 8},
	"bluefin":     {Hours: 1},
	"hyna":        {Hours: 1, HourlyNative: true},
	"vntl":        {Hours: 1, HourlyNative: true},
}

// IntervalFor returns the venue's funding interval, defaulting to 8 hours
// (the most common venue-native cadence in the table) for an unregistered
// venue so that callers never divide by zero.
func IntervalFor(venue string) Interval {
	if iv, ok := table[venue]; ok {
		return iv
	}
	return Interval{Hours: 8}
}

// Views holds the three stored funding-rate representations (spec.md §4.4).
type Views struct {
	Raw      decimal.Decimal // exactly what the venue reported
	Hourly   decimal.Decimal // per-hour rate
	AnnualPct decimal.Decimal // annualized percent
}

// Normalize computes the three funding views for a venue's raw reported
// rate, per spec.md §4.4:
//
//	funding_rate_hourly = funding_rate / interval_hours   (or = funding_rate if HourlyNative)
//	funding_rate_annual = funding_rate_hourly * 24 * 365 * 100
func Normalize(venue string, rawRate decimal.Decimal) Views {
	iv := IntervalFor(venue)

	hourly := rawRate
	if !iv.HourlyNative && iv.Hours > 1 {
		hourly = rawRate.Div(decimal.NewFromInt(int64(iv.Hours)))
	}

	annual := hourly.Mul(decimal.NewFromInt(hoursPerYear)).Mul(decimal.NewFromInt(100))

	return Views{Raw: rawRate, Hourly: hourly, AnnualPct: annual}
}

// AnnualFromHourly computes funding_rate_annual from an already-hourly rate
// (the same hourly * 24 * 365 * 100 step Normalize applies). The aggregation
// engine does not call it: it annualizes averaged rates through Normalize.
func AnnualFromHourly(hourly decimal.Decimal) decimal.Decimal {
	return hourly.Mul(decimal.NewFromInt(hoursPerYear)).Mul(decimal.NewFromInt(100))
}

// Venues returns the sorted list of registered venue ids.
func Venues() []string {
	ids := make([]string, 0, len(table))
	for id := range table {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}
