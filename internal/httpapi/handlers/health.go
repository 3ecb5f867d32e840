package handlers

import (
	"encoding/json"
	"net/http"
	"time"
)

var startTime = time.Now()

// HealthResponse mirrors the teacher's endpoints.HealthResponse, scaled to
// this system's two dependencies (WRITE/READ Postgres) instead of the
// teacher's database/cache/queue/external-API quartet.
type HealthResponse struct {
	Status  string            `json:"status"`
	Uptime  string            `json:"uptime"`
	Version string            `json:"version"`
	Stores  map[string]string `json:"stores"`
}

// Health handles `GET /healthz` (SPEC_FULL.md ambient-stack addition): a
// liveness/readiness probe distinct from the contractual query surface,
// which never reports on its own dependencies.
func (h *Handlers) Health(w http.ResponseWriter, r *http.Request) {
	stores := map[string]string{"write": "healthy", "read": "healthy"}
	status := "healthy"

	if err := h.Write.DB.PingContext(r.Context()); err != nil {
		stores["write"] = "down"
		status = "degraded"
	}
	if err := h.Read.DB.PingContext(r.Context()); err != nil {
		stores["read"] = "down"
		status = "degraded"
	}

	code := http.StatusOK
	if status != "healthy" {
		code = http.StatusServiceUnavailable
	}

	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(Envelope{
		Success: status == "healthy",
		Data: HealthResponse{
			Status:  status,
			Uptime:  time.Since(startTime).String(),
			Version: "v0.1.0",
			Stores:  stores,
		},
	})
}
