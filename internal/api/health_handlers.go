package api

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/hmkhan10/routebase-payments/internal/health"
)

// HealthHandlers holds dependencies for the health endpoint.
type HealthHandlers struct {
	redis   *health.RedisChecker
	started time.Time
}

// NewHealthHandlers creates a new HealthHandlers instance.
func NewHealthHandlers(redis *health.RedisChecker) *HealthHandlers {
	return &HealthHandlers{
		redis:   redis,
		started: time.Now(),
	}
}

// RedisHealth reports the Redis connection state in the health body.
type RedisHealth struct {
	Connected        bool   `json:"connected"`
	MemoryUsed       string `json:"memoryUsed"`
	ConnectedClients string `json:"connectedClients"`
}

// HealthResponse is the health endpoint body.
type HealthResponse struct {
	Status        string      `json:"status"`
	Timestamp     time.Time   `json:"timestamp"`
	Redis         RedisHealth `json:"redis"`
	UptimeSeconds float64     `json:"uptime"`
}

// UnhealthyResponse is returned with 503 when a dependency check fails.
type UnhealthyResponse struct {
	Status    string    `json:"status"`
	Error     string    `json:"error"`
	Timestamp time.Time `json:"timestamp"`
}

// Health checks the shared store and reports service health.
// GET /health
func (h *HealthHandlers) Health(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	if err := h.redis.HealthCheck(ctx); err != nil {
		slog.ErrorContext(ctx, "health check failed", "error", err)
		writeJSON(w, ctx, http.StatusServiceUnavailable, UnhealthyResponse{
			Status:    "unhealthy",
			Error:     err.Error(),
			Timestamp: time.Now().UTC(),
		})
		return
	}

	stats, err := h.redis.Stats(ctx)
	if err != nil {
		// PING succeeded; stats are informational only.
		slog.WarnContext(ctx, "failed to collect redis stats", "error", err)
	}

	writeJSON(w, ctx, http.StatusOK, HealthResponse{
		Status:    "healthy",
		Timestamp: time.Now().UTC(),
		Redis: RedisHealth{
			Connected:        true,
			MemoryUsed:       stats.MemoryUsed,
			ConnectedClients: stats.ConnectedClients,
		},
		UptimeSeconds: time.Since(h.started).Seconds(),
	})
}
