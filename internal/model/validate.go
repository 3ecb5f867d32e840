package model

import (
	"fmt"

	"github.com/perpwatch/perpwatch/internal/decimalx"
)

// Validate enforces spec.md §3's RawTick invariant: every numeric-string
// field must parse as a decimal or the tick is rejected, and created_at must
// equal floor(recorded_at/1000).
func (t RawTick) Validate() error {
	for name, v := range map[string]string{
		"mark_price":        t.MarkPrice,
		"index_price":       t.IndexPrice,
		"last_price":        t.LastPrice,
		"open_interest":     t.OpenInterest,
		"open_interest_usd": t.OpenInterestUSD,
		"funding_rate":      t.FundingRate,
	} {
		if !decimalx.Valid(v) {
			return fmt.Errorf("rawtick: field %s is not a valid decimal: %q", name, v)
		}
	}

	if t.OriginalSymbol == "" {
		return fmt.Errorf("rawtick: missing original symbol")
	}
	if t.MarkPrice == "" {
		return fmt.Errorf("rawtick: missing mark price")
	}

	wantCreatedAt := t.RecordedAt / 1000
	if t.CreatedAt != wantCreatedAt {
		return fmt.Errorf("rawtick: created_at %d != floor(recorded_at/1000) %d", t.CreatedAt, wantCreatedAt)
	}

	return nil
}

// WithDefaults fills unset numeric-string fields with "0", per spec.md
// §4.2 snapshot step 2.
func (t RawTick) WithDefaults() RawTick {
	if t.MarkPrice == "" {
		t.MarkPrice = decimalx.Zero
	}
	if t.IndexPrice == "" {
		t.IndexPrice = decimalx.Zero
	}
	if t.LastPrice == "" {
		t.LastPrice = decimalx.Zero
	}
	if t.OpenInterest == "" {
		t.OpenInterest = decimalx.Zero
	}
	if t.OpenInterestUSD == "" {
		t.OpenInterestUSD = decimalx.Zero
	}
	if t.FundingRate == "" {
		t.FundingRate = decimalx.Zero
	}
	return t
}
