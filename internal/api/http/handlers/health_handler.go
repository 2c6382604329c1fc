package handlers

import (
	"context"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"github.com/spec-kit/helpdesk-service/internal/api/dto"
	"github.com/spec-kit/helpdesk-service/internal/observability"
)

// HealthHandler responds to liveness and readiness probes.
type HealthHandler struct {
	serviceName string
	version     string
	pool        *pgxpool.Pool
	redis       *redis.Client
	metrics     *observability.Metrics
}

// NewHealthHandler returns a new handler instance. The pool and Redis client
// may be nil when the service runs on in-memory stores.
func NewHealthHandler(serviceName, version string, pool *pgxpool.Pool, redisClient *redis.Client, metrics *observability.Metrics) *HealthHandler {
	return &HealthHandler{serviceName: serviceName, version: version, pool: pool, redis: redisClient, metrics: metrics}
}

// Live reports service liveness with the request counters.
func (h *HealthHandler) Live(c *fiber.Ctx) error {
	return respond(c, fiber.StatusOK, fiber.Map{
		"status":  "alive",
		"service": h.serviceName,
		"version": h.version,
		"stats":   h.metrics.Snapshot(),
	})
}

// Ready reports service readiness by checking dependencies.
func (h *HealthHandler) Ready(c *fiber.Ctx) error {
	ctx, cancel := context.WithTimeout(c.UserContext(), 2*time.Second)
	defer cancel()

	depStatus := fiber.Map{}
	ready := true

	if h.pool == nil {
		depStatus["postgres"] = "disabled"
	} else if err := h.pool.Ping(ctx); err != nil {
		depStatus["postgres"] = err.Error()
		ready = false
	} else {
		depStatus["postgres"] = "ok"
	}

	// Redis only caches workload snapshots; reads fall back to direct
	// repository counts, so an outage degrades the report without
	// flipping readiness.
	if h.redis == nil {
		depStatus["redis"] = "disabled"
	} else if err := h.redis.Ping(ctx).Err(); err != nil {
		depStatus["redis"] = "degraded: " + err.Error()
	} else {
		depStatus["redis"] = "ok"
	}

	if ready {
		return respond(c, fiber.StatusOK, fiber.Map{
			"status":       "ready",
			"dependencies": depStatus,
		})
	}
	return c.Status(fiber.StatusServiceUnavailable).JSON(
		dto.Fail("DEPENDENCY_UNAVAILABLE", "one or more dependencies unavailable", map[string]any{"dependencies": depStatus}))
}
