package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"github.com/aurelie-dev/salon-booking/pkg/logging"
)

// HealthHandler reports process and dependency health.
type HealthHandler struct {
	pool   *pgxpool.Pool
	redis  *redis.Client
	logger *logging.Logger
}

// NewHealthHandler creates the health handler. pool and redis may be nil;
// absent dependencies are reported as "disabled".
func NewHealthHandler(pool *pgxpool.Pool, rdb *redis.Client, logger *logging.Logger) *HealthHandler {
	if logger == nil {
		logger = logging.Default()
	}
	return &HealthHandler{pool: pool, redis: rdb, logger: logger}
}

// Health returns 200 when the process is serving and the database is
// reachable. Redis being down degrades to caching disabled, not unhealthy.
// GET /health
func (h *HealthHandler) Health(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	status := http.StatusOK
	body := map[string]string{"status": "ok", "db": "disabled", "cache": "disabled"}

	if h.pool != nil {
		if err := h.pool.Ping(ctx); err != nil {
			h.logger.Error("health: database unreachable", "error", err)
			body["status"] = "degraded"
			body["db"] = "down"
			status = http.StatusServiceUnavailable
		} else {
			body["db"] = "ok"
		}
	}
	if h.redis != nil {
		if err := h.redis.Ping(ctx).Err(); err != nil {
			body["cache"] = "down"
		} else {
			body["cache"] = "ok"
		}
	}

	writeJSON(w, h.logger, status, body)
}
