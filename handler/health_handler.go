package handler

import (
	"net/http"

	"caseflow/service"
)

// HealthHandler serves the cached liveness snapshot
type HealthHandler struct {
	health *service.HealthService
}

// NewHealthHandler creates a new health handler
func NewHealthHandler(health *service.HealthService) *HealthHandler {
	return &HealthHandler{health: health}
}

// GetHealth handles GET /health. Serves the snapshot collected by the
// liveness worker; a zero CollectedAt means the first sweep has not run yet.
func (h *HealthHandler) GetHealth(w http.ResponseWriter, r *http.Request) {
	snapshot := h.health.Snapshot()
	statusCode, statusText := http.StatusOK, "ok"
	if snapshot.CollectedAt.IsZero() {
		statusCode, statusText = http.StatusServiceUnavailable, "starting"
	}
	respondWithJSON(w, statusCode, map[string]interface{}{
		"status":   statusText,
		"snapshot": snapshot,
	})
}
