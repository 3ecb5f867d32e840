package handlers

import (
	"net/http"
	"strings"

	"github.com/perpwatch/perpwatch/internal/symbol"
)

// Latest handles `GET /api/latest` — the latest row per matching
// (exchange, canonical-symbol) pair (spec.md §6).
func (h *Handlers) Latest(w http.ResponseWriter, r *http.Request) {
	exchange := r.URL.Query().Get("exchange")
	sym := r.URL.Query().Get("symbol")

	canonical := ""
	if sym != "" {
		canonical = symbol.Normalize(sym)
	}

	rows, err := h.Read.ListLatestMarkets(r.Context(), canonical)
	if err != nil {
		h.writeServerError(w, "failed to load latest markets")
		return
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

	h.writeJSON(w, rows, nil)
}
