package handlers

import (
	"context"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/email-ticket-service/internal/persistence"
)

// HealthHandler responds to liveness and readiness probes and serves the service banner.
type HealthHandler struct {
	serviceName        string
	version            string
	analysisConfigured bool
	postgres           *persistence.Postgres
	redis              *persistence.Redis
}

// NewHealthHandler returns a new handler instance.
func NewHealthHandler(serviceName, version string, analysisConfigured bool, postgres *persistence.Postgres, redis *persistence.Redis) *HealthHandler {
	return &HealthHandler{
		serviceName:        serviceName,
		version:            version,
		analysisConfigured: analysisConfigured,
		postgres:           postgres,
		redis:              redis,
	}
}

// Root GET /.
func (h *HealthHandler) Root(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"message":             h.serviceName,
		"status":              "running",
		"version":             h.version,
		"analysis_configured": h.analysisConfigured,
		"endpoints": fiber.Map{
			"create_ticket": "/api/tickets/create (POST)",
			"tickets":       "/api/tickets (GET)",
			"dashboard":     "/api/tickets/stats/dashboard (GET)",
			"analyze":       "/api/summarize (POST)",
			"history":       "/api/history (GET)",
			"stats":         "/api/stats (GET)",
			"webhook":       "/api/webhooks/graph-notifications (POST)",
			"metrics":       "/metrics (GET)",
		},
	})
}

// Live reports service liveness.
func (h *HealthHandler) Live(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"status":  "alive",
		"service": h.serviceName,
		"version": h.version,
	})
}

// Ready reports service readiness by checking dependencies.
func (h *HealthHandler) Ready(c *fiber.Ctx) error {
	ctx, cancel := context.WithTimeout(c.UserContext(), 2*time.Second)
	defer cancel()

	depStatus := fiber.Map{}
	ready := true

	check := func(name string, enabled bool, ping func(context.Context) error) {
		if !enabled {
			depStatus[name] = "disabled"
			return
		}
		if err := ping(ctx); err != nil {
			depStatus[name] = err.Error()
			ready = false
			return
		}
		depStatus[name] = "ok"
	}
	check("postgres", h.postgres.Enabled(), h.postgres.Ping)
	check("redis", h.redis.Enabled(), h.redis.Ping)

	if ready {
		return c.JSON(fiber.Map{
			"status":       "ready",
			"dependencies": depStatus,
		})
	}

	return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{
		"error": fiber.Map{
			"code":    "DEPENDENCY_UNAVAILABLE",
			"message": "one or more dependencies unavailable",
			"details": depStatus,
		},
	})
}
