package handler

import (
	"net/http"

	"github.com/echo-ai/support-platform/internal/notify"
)

// HealthHandler handles health check endpoints.
type HealthHandler struct {
	natsClient *notify.Client
}

// NewHealthHandler creates a new health handler.
func NewHealthHandler(natsClient *notify.Client) *HealthHandler {
	return &HealthHandler{
		natsClient: natsClient,
	}
}

// Health handles GET /health
func (h *HealthHandler) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"status": "healthy",
	})
}

// Ready handles GET /ready. NATS is optional at startup; readiness only
// degrades when a configured connection drops.
func (h *HealthHandler) Ready(w http.ResponseWriter, r *http.Request) {
	if h.natsClient != nil && !h.natsClient.IsConnected() {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{
			"status": "not ready",
			"reason": "NATS not connected",
		})
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{
		"status": "ready",
	})
}
