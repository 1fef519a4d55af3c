package app

import (
	"context"
	"net/http"
	"time"

	"bankops/pkg/client"
	httputil "bankops/pkg/http"
	"bankops/pkg/logger"

	"github.com/julienschmidt/httprouter"
)

type HealthResponse struct {
	Status       string            `json:"status"`
	Dependencies map[string]string `json:"dependencies,omitempty"`
}

type PingFunc func(ctx context.Context) error

type HealthHandler struct {
	checks map[string]PingFunc
	log    *logger.Logger
}

func NewHealthHandler(checks map[string]PingFunc, log *logger.Logger) *HealthHandler {
	return &HealthHandler{checks: checks, log: log}
}

// ClientChecks builds readiness probes for every backend that is connected.
func ClientChecks(c *client.Client) map[string]PingFunc {
	checks := make(map[string]PingFunc)
	if c == nil {
		return checks
	}
	if c.Mongo != nil {
		checks["mongo"] = func(ctx context.Context) error { return c.Mongo.Ping(ctx, nil) }
	}
	if c.Redis != nil {
		checks["redis"] = func(ctx context.Context) error { return c.Redis.Ping(ctx).Err() }
	}
	if c.Postgres != nil {
		checks["postgres"] = func(ctx context.Context) error { return c.Postgres.PingContext(ctx) }
	}
	return checks
}

func (h *HealthHandler) Health(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	if err := httputil.WriteJSON(w, http.StatusOK, HealthResponse{Status: "ok"}); err != nil {
		h.log.Error("failed to write JSON response", "handler", "Health", "operation", "WriteJSON", "error", err)
	}
}

func (h *HealthHandler) Ready(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	status := http.StatusOK
	resp := HealthResponse{Status: "ready", Dependencies: make(map[string]string, len(h.checks))}
	for name, ping := range h.checks {
		if err := ping(ctx); err != nil {
			h.log.Error("Dependency health check failed",
				"dependency", name,
				"error", err,
				"path", r.URL.Path,
			)
			resp.Dependencies[name] = "error"
			resp.Status = "unavailable"
			status = http.StatusServiceUnavailable
			continue
		}
		resp.Dependencies[name] = "ok"
	}

	if err := httputil.WriteJSON(w, status, resp); err != nil {
		h.log.Error("failed to write JSON response", "handler", "Ready", "operation", "WriteJSON", "error", err)
	}
}

func (h *HealthHandler) RegisterRoutes(router *httprouter.Router) {
	router.GET("/health", h.Health)
	router.GET("/ready", h.Ready)
}
