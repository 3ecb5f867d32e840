package handlers

import (
	"net/http"

	"github.com/gorilla/mux"
)

// Status handles `GET /api/status` and `GET /api/trackers` — every venue's
// persisted TrackerStatus row (spec.md §6).
func (h *Handlers) Status(w http.ResponseWriter, r *http.Request) {
	rows, err := h.Read.ListTrackerStatuses(r.Context())
	if err != nil {
		h.writeServerError(w, "failed to load tracker statuses")
		return
	}
	h.writeJSON(w, rows, nil)
}

// TrackerStatus handles `GET /tracker/{exchange}/status` — the persisted
// view, matching what Status lists for one venue.
func (h *Handlers) TrackerStatus(w http.ResponseWriter, r *http.Request) {
	exchange := mux.Vars(r)["exchange"]
	st, err := h.Read.TrackerStatusFor(r.Context(), exchange)
	if err != nil {
		h.writeExpectedFailure(w, "unknown or never-started venue")
		return
	}
	h.writeJSON(w, st, nil)
}

// TrackerDebug handles `GET /tracker/{exchange}/debug` — the live
// in-memory snapshot straight from the running Tracker, including buffer
// depth (spec.md §6 "in-memory tracker snapshot").
func (h *Handlers) TrackerDebug(w http.ResponseWriter, r *http.Request) {
	exchange := mux.Vars(r)["exchange"]
	snap, ok := h.Fleet.Snapshot(exchange)
	if !ok {
		h.writeExpectedFailure(w, "venue is not currently running")
		return
	}
	h.writeJSON(w, snap, nil)
}

// TrackerStart handles `POST /tracker/{exchange}/start`.
func (h *Handlers) TrackerStart(w http.ResponseWriter, r *http.Request) {
	exchange := mux.Vars(r)["exchange"]
	if err := h.Fleet.Start(r.Context(), exchange); err != nil {
		h.writeExpectedFailure(w, err.Error())
		return
	}
	h.writeJSON(w, map[string]string{"exchange": exchange, "state": "started"}, nil)
}

// TrackerStop handles `POST /tracker/{exchange}/stop`.
func (h *Handlers) TrackerStop(w http.ResponseWriter, r *http.Request) {
	exchange := mux.Vars(r)["exchange"]
	if err := h.Fleet.Stop(exchange); err != nil {
		h.writeExpectedFailure(w, err.Error())
		return
	}
	h.writeJSON(w, map[string]string{"exchange": exchange, "state": "stopped"}, nil)
}
