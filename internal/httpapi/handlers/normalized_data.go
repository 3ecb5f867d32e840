package handlers

import (
	"net/http"
	"time"
)

// NormalizedData handles `GET /api/normalized-data` — bucketed history at
// one of three tiers (spec.md §6): 15s serves raw ticks, 1m minute
// aggregates, 1h hour aggregates.
func (h *Handlers) NormalizedData(w http.ResponseWriter, r *http.Request) {
	exchange := r.URL.Query().Get("exchange")
	sym := r.URL.Query().Get("symbol")
	interval := r.URL.Query().Get("interval")
	if interval == "" {
		interval = "1h"
	}
	limit := clampLimit(queryInt(r, "limit", 0))

	nowMs := time.Now().UnixMilli()
	defaultFromMs := nowMs - int64(24*time.Hour/time.Millisecond)
	fromMs := queryInt64(r, "from", defaultFromMs)
	toMs := queryInt64(r, "to", nowMs)
	fromS, toS := fromMs/1000, toMs/1000

	if toS <= fromS {
		h.writeExpectedFailure(w, "to must be after from")
		return
	}

	meta := Meta{Limit: limit, From: fromMs, To: toMs, Note: interval}

	switch interval {
	case "15s":
		rows, err := h.Write.RawTicksFiltered(r.Context(), exchange, sym, fromS, toS, limit)
		if err != nil {
			h.writeServerError(w, "failed to load raw normalized data")
			return
		}
		meta.Count = len(rows)
		h.writeJSON(w, rows, meta)
	case "1m":
		rows, err := h.Write.MinuteAggregatesFiltered(r.Context(), exchange, sym, fromS, toS, limit)
		if err != nil {
			h.writeServerError(w, "failed to load minute normalized data")
			return
		}
		meta.Count = len(rows)
		h.writeJSON(w, rows, meta)
	case "1h":
		rows, err := h.Write.HourAggregatesFiltered(r.Context(), exchange, sym, fromS, toS, limit)
		if err != nil {
			h.writeServerError(w, "failed to load hour normalized data")
			return
		}
		meta.Count = len(rows)
		h.writeJSON(w, rows, meta)
	default:
		h.writeExpectedFailure(w, "interval must be one of 15s, 1m, 1h")
	}
}
