package handlers

import (
	"net/http"
	"time"
)

// rawWindowSeconds bounds how far back `GET /api/stats` will still serve
// raw ticks before falling back to minute aggregates: raw rows are
// retained only a few minutes past aggregation (spec.md §6 "raw retention
// (s, default 300 past aggregation)"), so any wider request range could
// not possibly be satisfied from market_stats.
const rawWindowSeconds = 900

// Stats handles `GET /api/stats` — raw ticks for narrow/recent ranges,
// minute aggregates otherwise (spec.md §6).
func (h *Handlers) Stats(w http.ResponseWriter, r *http.Request) {
	exchange := r.URL.Query().Get("exchange")
	sym := r.URL.Query().Get("symbol")
	limit := clampLimit(queryInt(r, "limit", 0))

	nowMs := time.Now().UnixMilli()
	fromMs := queryInt64(r, "from", nowMs-rawWindowSeconds*1000)
	toMs := queryInt64(r, "to", nowMs)
	fromS, toS := fromMs/1000, toMs/1000

	if toS <= fromS {
		h.writeExpectedFailure(w, "to must be after from")
		return
	}

	if toS-fromS <= rawWindowSeconds {
		rows, err := h.Write.RawTicksFiltered(r.Context(), exchange, sym, fromS, toS, limit)
		if err != nil {
			h.writeServerError(w, "failed to load raw stats")
			return
		}
		h.writeJSON(w, rows, Meta{Count: len(rows), Limit: limit, From: fromMs, To: toMs, Note: "raw"})
		return
	}

	rows, err := h.Write.MinuteAggregatesFiltered(r.Context(), exchange, sym, fromS, toS, limit)
	if err != nil {
		h.writeServerError(w, "failed to load minute stats")
		return
	}
	h.writeJSON(w, rows, Meta{Count: len(rows), Limit: limit, From: fromMs, To: toMs, Note: "minute"})
}
