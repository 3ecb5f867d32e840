package handlers

import (
	"fmt"
	"net/http"

	"github.com/perpwatch/perpwatch/internal/model"
	"github.com/perpwatch/perpwatch/internal/symbol"
)

// windowForPeriodHours maps the `period` query parameter (hours) onto the
// fixed window of exactly that length (24, 72, 168, 336 or 720); any other
// value reports false (spec.md §6 `GET /api/funding/ma`: "period? (hours)").
func windowForPeriodHours(hours int) (model.Window, bool) {
	switch hours {
	case 24:
		return model.Window24h, true
	case 72:
		return model.Window3d, true
	case 24 * 7:
		return model.Window7d, true
	case 24 * 14:
		return model.Window14d, true
	case 24 * 30:
		return model.Window30d, true
	default:
		return "", false
	}
}

// FundingMA handles `GET /api/funding/ma` (spec.md §6). Backed by the hot
// cache, since moving averages only change once per hour (spec.md §4.7).
func (h *Handlers) FundingMA(w http.ResponseWriter, r *http.Request) {
	exchange := r.URL.Query().Get("exchange")
	sym := r.URL.Query().Get("symbol")
	if exchange == "" || sym == "" {
		h.writeExpectedFailure(w, "exchange and symbol are required")
		return
	}

	canonical := symbol.Normalize(sym)
	cacheKey := fmt.Sprintf("funding_ma:%s:%s", canonical, exchange)
	var rows []model.FundingMA
	if !h.cacheGet(r.Context(), cacheKey, &rows) {
		var err error
		rows, err = h.Read.FundingMAsFor(r.Context(), canonical, exchange)
		if err != nil {
			h.writeServerError(w, "failed to load funding moving averages")
			return
		}
		h.cacheSet(r.Context(), cacheKey, rows)
	}

	if period := queryInt(r, "period", 0); period > 0 {
		win, ok := windowForPeriodHours(period)
		if !ok {
			h.writeExpectedFailure(w, "unrecognized period")
			return
		}
		filtered := rows[:0]
		for _, row := range rows {
			if row.Window == string(win) {
				filtered = append(filtered, row)
			}
		}
		rows = filtered
	}

	h.writeJSON(w, rows, nil)
}

// FundingMABulkResponse is the `GET /api/funding/ma/bulk` payload: moving
// averages grouped by (canonical symbol, exchange), plus the derived
// arbitrage opportunities touching the same symbol set (spec.md §6).
type FundingMABulkResponse struct {
	MovingAverages map[string]map[string][]model.FundingMA `json:"moving_averages"`
	Arbitrage      []model.ArbitrageOpportunity             `json:"arbitrage"`
}

// FundingMABulk handles `GET /api/funding/ma/bulk`.
func (h *Handlers) FundingMABulk(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	wantExchanges := queryCSV(r, "exchanges")
	wantSymbols := queryCSV(r, "symbols")
	wantTimeframes := queryCSV(r, "timeframes")

	symbols := wantSymbols
	if len(symbols) == 0 {
		all, err := h.Read.DistinctTrackedSymbols(ctx)
		if err != nil {
			h.writeServerError(w, "failed to load tracked symbols")
			return
		}
		symbols = all
	}

	mas := make(map[string]map[string][]model.FundingMA, len(symbols))
	for _, sym := range symbols {
		canonical := symbol.Normalize(sym)
		exchanges, err := h.Read.ExchangesForSymbol(ctx, canonical)
		if err != nil {
			h.writeServerError(w, "failed to load exchanges for symbol")
			return
		}

		perExchange := make(map[string][]model.FundingMA)
		for _, ex := range exchanges {
			if !contains(wantExchanges, ex) {
				continue
			}
			rows, err := h.Read.FundingMAsFor(ctx, canonical, ex)
			if err != nil {
				h.writeServerError(w, "failed to load funding moving averages")
				return
			}
			if len(wantTimeframes) > 0 {
				filtered := rows[:0]
				for _, row := range rows {
					if contains(wantTimeframes, row.Window) {
						filtered = append(filtered, row)
					}
				}
				rows = filtered
			}
			if len(rows) > 0 {
				perExchange[ex] = rows
			}
		}
		if len(perExchange) > 0 {
			mas[canonical] = perExchange
		}
	}

	arb, err := h.Read.ListArbitrageOpportunities(ctx, 0, false)
	if err != nil {
		h.writeServerError(w, "failed to load arbitrage opportunities")
		return
	}
	filtered := arb[:0]
	for _, o := range arb {
		if _, tracked := mas[o.CanonicalSymbol]; !tracked {
			continue
		}
		if len(wantTimeframes) > 0 && !contains(wantTimeframes, o.Window) {
			continue
		}
		filtered = append(filtered, o)
	}

	h.writeJSON(w, FundingMABulkResponse{MovingAverages: mas, Arbitrage: filtered}, nil)
}
