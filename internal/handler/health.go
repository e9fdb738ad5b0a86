package handler

import (
	"net/http"
)

// ConnectionChecker reports whether a backing connection is up.
type ConnectionChecker interface {
	IsConnected() bool
}

// HealthHandler serves liveness and readiness probes.
type HealthHandler struct {
	events ConnectionChecker
}

// NewHealthHandler creates a new health handler. A nil checker means live events are disabled
// and readiness does not depend on them.
func NewHealthHandler(events ConnectionChecker) *HealthHandler {
	return &HealthHandler{events: events}
}

// Health handles GET /health
func (h *HealthHandler) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "healthy"})
}

// Ready handles GET /ready
func (h *HealthHandler) Ready(w http.ResponseWriter, r *http.Request) {
	body := map[string]string{"status": "ready", "liveEvents": "disabled"}
	status := http.StatusOK

	if h.events != nil {
		body["liveEvents"] = "connected"
		if !h.events.IsConnected() {
			body["status"] = "not ready"
			body["liveEvents"] = "disconnected"
			status = http.StatusServiceUnavailable
		}
	}
	writeJSON(w, status, body)
}
