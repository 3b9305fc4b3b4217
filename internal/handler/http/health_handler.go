package http

import (
	"context"
	"net/http"
	"time"

	"go.uber.org/zap"
)

// Pinger checks one dependency's reachability within the given deadline.
type Pinger func(ctx context.Context) error

// HealthHandler serves the three health endpoints (§6): a liveness check
// that never touches a dependency, a readiness check that pings all of
// them, and a combined view for operators.
type HealthHandler struct {
	deps   map[string]Pinger
	logger *zap.Logger
}

// NewHealthHandler builds a HealthHandler over the named dependency pingers.
func NewHealthHandler(deps map[string]Pinger, logger *zap.Logger) *HealthHandler {
	return &HealthHandler{deps: deps, logger: logger}
}

// Liveness handles GET /health/liveness: the process is up, full stop.
func (h *HealthHandler) Liveness(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "alive"})
}

func (h *HealthHandler) checkAll(r *http.Request) (map[string]string, bool) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	statuses := make(map[string]string, len(h.deps))
	healthy := true
	for name, ping := range h.deps {
		if err := ping(ctx); err != nil {
			statuses[name] = "down: " + err.Error()
			healthy = false
			h.logger.Warn("dependency health check failed", zap.String("dependency", name), zap.Error(err))
			continue
		}
		statuses[name] = "up"
	}
	return statuses, healthy
}

// Readiness handles GET /health/readiness: every dependency must answer.
func (h *HealthHandler) Readiness(w http.ResponseWriter, r *http.Request) {
	statuses, healthy := h.checkAll(r)
	status := http.StatusOK
	if !healthy {
		status = http.StatusServiceUnavailable
	}
	writeJSON(w, status, map[string]any{"status": overallStatus(healthy), "dependencies": statuses})
}

// Health handles GET /health: the same readiness view, kept as a stable
// top-level path for operators and uptime checks that predate the split.
func (h *HealthHandler) Health(w http.ResponseWriter, r *http.Request) {
	h.Readiness(w, r)
}

func overallStatus(healthy bool) string {
	if healthy {
		return "healthy"
	}
	return "degraded"
}
