package handlers

import (
	"net/http"
	"sort"
	"strconv"
	"strings"

	"github.com/perpwatch/perpwatch/internal/model"
)

func queryFloat(r *http.Request, key string, fallback float64) float64 {
	v := r.URL.Query().Get(key)
	if v == "" {
		return fallback
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return fallback
	}
	return f
}

// Arbitrage handles `GET /api/arbitrage` (spec.md §6).
func (h *Handlers) Arbitrage(w http.ResponseWriter, r *http.Request) {
	symbols := queryCSV(r, "symbols")
	exchanges := queryCSV(r, "exchanges")
	timeframes := queryCSV(r, "timeframes")
	minSpread := queryFloat(r, "minSpread", 0)
	minSpreadAPR := queryFloat(r, "minSpreadAPR", 0)
	onlyStable := queryBool(r, "onlyStable")
	sortBy := strings.ToLower(r.URL.Query().Get("sortBy"))
	order := strings.ToLower(r.URL.Query().Get("order"))
	limit := clampLimit(queryInt(r, "limit", 0))

	rows, err := h.Read.ListArbitrageOpportunities(r.Context(), 0, onlyStable)
	if err != nil {
		h.writeServerError(w, "failed to load arbitrage opportunities")
		return
	}

	filtered := rows[:0]
	for _, o := range rows {
		if !contains(symbols, o.CanonicalSymbol) {
			continue
		}
		if len(exchanges) > 0 && !contains(exchanges, o.LongExchange) && !contains(exchanges, o.ShortExchange) {
			continue
		}
		if !contains(timeframes, o.Window) {
			continue
		}
		if o.Spread < minSpread || o.SpreadAPR < minSpreadAPR {
			continue
		}
		filtered = append(filtered, o)
	}
	rows = filtered

	sortArbitrage(rows, sortBy, order)

	if limit > 0 && len(rows) > limit {
		rows = rows[:limit]
	}

	h.writeJSON(w, rows, Meta{Count: len(rows), Limit: limit})
}

func sortArbitrage(rows []model.ArbitrageOpportunity, sortBy, order string) {
	asc := order == "asc"

	key := func(o model.ArbitrageOpportunity) float64 { return o.SpreadAPR } // default
	switch sortBy {
	case "spread":
		key = func(o model.ArbitrageOpportunity) float64 { return o.Spread }
	case "stability", "stability_score":
		key = func(o model.ArbitrageOpportunity) float64 { return float64(o.StabilityScore) }
	case "calculated_at":
		key = func(o model.ArbitrageOpportunity) float64 { return float64(o.CalculatedAt) }
	}

	sort.SliceStable(rows, func(i, j int) bool {
		ki, kj := key(rows[i]), key(rows[j])
		if asc {
			return ki < kj
		}
		return ki > kj
	})
}
