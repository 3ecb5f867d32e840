// Package decimalx centralizes the "string decimals" storage convention:
// prices, funding rates, and open-interest figures are carried as strings at
// rest and across adapter boundaries, and only ever touch shopspring/decimal
// for the duration of one arithmetic expression.
package decimalx

import (
	"github.com/shopspring/decimal"
)

// Zero is the canonical default for a missing numeric-string field (spec.md
// §4.2 snapshot step 2: "missing numeric fields default to \"0\"").
const Zero = "0"

// Parse converts a storage string into a decimal.Decimal. An empty string is
// treated as the zero value rather than an error, matching the default-fill
// policy used when a venue omits an optional field.
func Parse(s string) (decimal.Decimal, error) {
	if s == "" {
		return decimal.Zero, nil
	}
	return decimal.NewFromString(s)
}

// MustParse parses s, defaulting to zero on any parse failure. Used on
// read paths (the /api/compare handler) where a previously-validated string is
// being re-read from storage and a parse failure indicates corruption we'd
// rather tolerate than crash a periodic job over.
func MustParse(s string) decimal.Decimal {
	d, err := Parse(s)
	if err != nil {
		return decimal.Zero
	}
	return d
}

// String renders d back to the storage string form.
func String(d decimal.Decimal) string {
	return d.String()
}

// Valid reports whether s parses as a decimal, the rejection test RawTick
// ingestion runs against every numeric-string field (spec.md §3 invariant:
// "all numeric-string fields must parse as decimals or the tick is
// rejected").
func Valid(s string) bool {
	if s == "" {
		return true
	}
	_, err := decimal.NewFromString(s)
	return err == nil
}

// Avg returns the arithmetic mean of a non-empty slice of decimals.
func Avg(vals []decimal.Decimal) decimal.Decimal {
	if len(vals) == 0 {
		return decimal.Zero
	}
	sum := decimal.Zero
	for _, v := range vals {
		sum = sum.Add(v)
	}
	return sum.Div(decimal.NewFromInt(int64(len(vals))))
}

// Min returns the smallest value in a non-empty slice.
func Min(vals []decimal.Decimal) decimal.Decimal {
	m := vals[0]
	for _, v := range vals[1:] {
		if v.LessThan(m) {
			m = v
		}
	}
	return m
}

// Max returns the largest value in a non-empty slice.
func Max(vals []decimal.Decimal) decimal.Decimal {
	m := vals[0]
	for _, v := range vals[1:] {
		if v.GreaterThan(m) {
			m = v
		}
	}
	return m
}

// Sum returns the sum of a slice of decimals (zero for an empty slice).
func Sum(vals []decimal.Decimal) decimal.Decimal {
	sum := decimal.Zero
	for _, v := range vals {
		sum = sum.Add(v)
	}
	return sum
}
