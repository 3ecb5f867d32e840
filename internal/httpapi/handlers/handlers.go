// Package handlers implements the perpwatch HTTP handler functions.
// Grounded in the teacher's internal/interfaces/http/handlers package:
// one exported method per endpoint on a shared Handlers receiver, a
// writeJSON/writeError pair, query-string parsing with best-effort
// defaults rather than strict binding.
package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/perpwatch/perpwatch/internal/cache"
	"github.com/perpwatch/perpwatch/internal/fleet"
	"github.com/perpwatch/perpwatch/internal/store/readdb"
	"github.com/perpwatch/perpwatch/internal/store/writedb"
)

// Handlers holds every dependency the query surface reads from. It never
// writes to the WRITE store (spec.md §4.8 "the query surface never
// writes").
type Handlers struct {
	Read  *readdb.Store
	Write *writedb.Store
	Cache cache.Cache
	Fleet *fleet.Manager
}

// New builds a Handlers instance.
func New(read *readdb.Store, write *writedb.Store, c cache.Cache, f *fleet.Manager) *Handlers {
	return &Handlers{Read: read, Write: write, Cache: c, Fleet: f}
}

// writeJSON always answers HTTP 200 with an Envelope (spec.md §7
// "every HTTP handler returns HTTP 200 ... for expected failures"); only
// NotFound and unexpected-runtime-error paths use a different status.
func (h *Handlers) writeJSON(w http.ResponseWriter, data interface{}, meta interface{}) {
	w.WriteHeader(http.StatusOK)
	_ = json.NewEncoder(w).Encode(Envelope{Success: true, Data: data, Meta: meta})
}

// writeExpectedFailure answers HTTP 200 with success:false — the contract
// for missing parameters, unknown symbols, and similar expected failures
// (spec.md §7).
func (h *Handlers) writeExpectedFailure(w http.ResponseWriter, msg string) {
	w.WriteHeader(http.StatusOK)
	_ = json.NewEncoder(w).Encode(Envelope{Success: false, Error: msg})
}

// writeServerError answers HTTP 500 for unexpected runtime errors (DB
// connection failures, etc. — spec.md §7 "500 only for unexpected runtime
// errors").
func (h *Handlers) writeServerError(w http.ResponseWriter, msg string) {
	w.WriteHeader(http.StatusInternalServerError)
	_ = json.NewEncoder(w).Encode(Envelope{Success: false, Error: msg})
}

// NotFound handles unmatched routes (spec.md §7 "404 only for unknown
// routes").
func (h *Handlers) NotFound(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusNotFound)
	_ = json.NewEncoder(w).Encode(Envelope{Success: false, Error: "unknown route"})
}

// cacheTTL is the hot-cache lifetime for read-heavy, slow-changing
// endpoints (latest markets, funding MAs) — short enough that a tracker's
// next snapshot cycle or job run is reflected quickly, long enough to
// absorb bursts of identical requests without hitting Postgres each time.
const cacheTTL = 5 * time.Second

// cacheGet unmarshals a cached JSON payload for key into dst, reporting
// whether the cache had a fresh value.
func (h *Handlers) cacheGet(ctx context.Context, key string, dst interface{}) bool {
	if h.Cache == nil {
		return false
	}
	b, ok := h.Cache.Get(ctx, key)
	if !ok {
		return false
	}
	return json.Unmarshal(b, dst) == nil
}

// cacheSet marshals v as JSON and stores it under key for cacheTTL.
func (h *Handlers) cacheSet(ctx context.Context, key string, v interface{}) {
	if h.Cache == nil {
		return
	}
	b, err := json.Marshal(v)
	if err != nil {
		return
	}
	h.Cache.Set(ctx, key, b, cacheTTL)
}

func queryInt(r *http.Request, key string, fallback int) int {
	v := r.URL.Query().Get(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return n
}

func queryInt64(r *http.Request, key string, fallback int64) int64 {
	v := r.URL.Query().Get(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		return fallback
	}
	return n
}

func queryBool(r *http.Request, key string) bool {
	v := strings.ToLower(r.URL.Query().Get(key))
	return v == "1" || v == "true" || v == "yes"
}

func queryCSV(r *http.Request, key string) []string {
	v := r.URL.Query().Get(key)
	if v == "" {
		return nil
	}
	parts := strings.Split(v, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}

func contains(list []string, v string) bool {
	if len(list) == 0 {
		return true
	}
	for _, item := range list {
		if strings.EqualFold(item, v) {
			return true
		}
	}
	return false
}
