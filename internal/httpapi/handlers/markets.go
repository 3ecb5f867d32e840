package handlers

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/perpwatch/perpwatch/internal/model"
	"github.com/perpwatch/perpwatch/internal/symbol"
)

// Markets handles `GET /api/markets` — same projection as Latest, with
// paging (spec.md §6). Backed by the hot cache, since normalized_tokens
// changes only as often as the latest-projection job runs.
func (h *Handlers) Markets(w http.ResponseWriter, r *http.Request) {
	exchange := r.URL.Query().Get("exchange")
	sym := r.URL.Query().Get("symbol")
	limit := queryInt(r, "limit", 100)

	canonical := ""
	if sym != "" {
		canonical = symbol.Normalize(sym)
	}

	cacheKey := fmt.Sprintf("markets:%s", canonical)
	var rows []model.LatestMarket
	if !h.cacheGet(r.Context(), cacheKey, &rows) {
		var err error
		rows, err = h.Read.ListLatestMarkets(r.Context(), canonical)
		if err != nil {
			h.writeServerError(w, "failed to load markets")
			return
		}
		h.cacheSet(r.Context(), cacheKey, rows)
	}

	if exchange != "" {
		filtered := rows[:0]
		for _, row := range rows {
			if strings.EqualFold(row.Exchange, exchange) {
				filtered = append(filtered, row)
			}
		}
		rows = filtered
	}

	if limit > 0 && len(rows) > limit {
		rows = rows[:limit]
	}

	h.writeJSON(w, rows, Meta{Count: len(rows), Limit: limit})
}
