package handler

import (
	"context"
	"net/http"
	"time"

	"go.uber.org/zap"
)

// Pinger reports whether an optional collaborator is reachable.
// Satisfied by *pgxpool.Pool, *events.AMQPClient and
// *auth.RedisSessionStore.
type Pinger interface {
	Ping(ctx context.Context) error
}

// HealthHandler reports process and collaborator health.
type HealthHandler struct {
	version string
	checks  map[string]Pinger
}

// NewHealthHandler creates a new HealthHandler. checks maps a collaborator
// name (postgres, redis, amqp) to its probe.
func NewHealthHandler(version string, checks map[string]Pinger) *HealthHandler {
	return &HealthHandler{version: version, checks: checks}
}

// Health answers 200 when every configured collaborator responds and 503
// otherwise.
func (h *HealthHandler) Health(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	status := http.StatusOK
	deps := make(map[string]string, len(h.checks))
	for name, p := range h.checks {
		if err := p.Ping(ctx); err != nil {
			zap.L().Warn("health check failed", zap.String("dependency", name), zap.Error(err))
			deps[name] = "down"
			status = http.StatusServiceUnavailable
			continue
		}
		deps[name] = "ok"
	}

	body := map[string]interface{}{"status": "ok", "version": h.version}
	if status != http.StatusOK {
		body["status"] = "degraded"
	}
	if len(deps) > 0 {
		body["dependencies"] = deps
	}
	writeJSON(w, status, body)
}
