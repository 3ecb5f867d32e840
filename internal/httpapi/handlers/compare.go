package handlers

import (
	"net/http"

	"github.com/shopspring/decimal"

	"github.com/perpwatch/perpwatch/internal/decimalx"
	"github.com/perpwatch/perpwatch/internal/model"
	"github.com/perpwatch/perpwatch/internal/symbol"
)

// CompareAggregates summarizes one canonical symbol's per-venue rows
// (spec.md §6 `GET /api/compare`: "one row per venue ... plus aggregates").
type CompareAggregates struct {
	VenueCount    int    `json:"venue_count"`
	MinMarkPrice  string `json:"min_mark_price"`
	MaxMarkPrice  string `json:"max_mark_price"`
	AvgMarkPrice  string `json:"avg_mark_price"`
	AvgFundingAPR string `json:"avg_funding_apr"`
}

// CompareResponse is the full `GET /api/compare` payload.
type CompareResponse struct {
	CanonicalSymbol string               `json:"canonical_symbol"`
	Markets         []model.LatestMarket `json:"markets"`
	Aggregates      CompareAggregates    `json:"aggregates"`
}

// Compare handles `GET /api/compare` (accepts either `symbol` or `token`,
// both naming the same canonical-symbol filter).
func (h *Handlers) Compare(w http.ResponseWriter, r *http.Request) {
	raw := r.URL.Query().Get("symbol")
	if raw == "" {
		raw = r.URL.Query().Get("token")
	}
	if raw == "" {
		h.writeExpectedFailure(w, "symbol or token query parameter is required")
		return
	}

	canonical := symbol.Normalize(raw)
	rows, err := h.Read.ListLatestMarkets(r.Context(), canonical)
	if err != nil {
		h.writeServerError(w, "failed to load comparison rows")
		return
	}
	if len(rows) == 0 {
		h.writeExpectedFailure(w, "canonical symbol not found")
		return
	}

	marks := make([]decimal.Decimal, 0, len(rows))
	aprs := make([]decimal.Decimal, 0, len(rows))
	for _, m := range rows {
		marks = append(marks, decimalx.MustParse(m.MarkPrice))
		aprs = append(aprs, decimalx.MustParse(m.FundingRateAnnual))
	}

	h.writeJSON(w, CompareResponse{
		CanonicalSymbol: canonical,
		Markets:         rows,
		Aggregates: CompareAggregates{
			VenueCount:    len(rows),
			MinMarkPrice:  decimalx.String(decimalx.Min(marks)),
			MaxMarkPrice:  decimalx.String(decimalx.Max(marks)),
			AvgMarkPrice:  decimalx.String(decimalx.Avg(marks)),
			AvgFundingAPR: decimalx.String(decimalx.Avg(aprs)),
		},
	}, nil)
}
