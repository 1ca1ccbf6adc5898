package http

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/spec-kit/email-ticket-service/internal/api/http/handlers"
	"github.com/spec-kit/email-ticket-service/internal/observability"
)

// RouteConfig bundles dependencies for route registration.
type RouteConfig struct {
	Health   *handlers.HealthHandler
	Tickets  *handlers.TicketsHandler
	Analysis *handlers.AnalysisHandler
	Webhooks *handlers.WebhookHandler
	Metrics  *observability.Metrics
}

// RegisterRoutes wires HTTP routes.
func RegisterRoutes(app *fiber.App, cfg RouteConfig) {
	app.Get("/", cfg.Health.Root)
	app.Get("/health/live", cfg.Health.Live)
	app.Get("/health/ready", cfg.Health.Ready)
	if cfg.Metrics != nil {
		app.Get("/metrics", adaptor.HTTPHandler(promhttp.HandlerFor(cfg.Metrics.Registry(), promhttp.HandlerOpts{})))
	}

	api := app.Group("/api")

	api.Post("/summarize", cfg.Analysis.Summarize)
	api.Get("/history", cfg.Analysis.History)
	api.Get("/history/:id", cfg.Analysis.GetAnalysis)
	api.Delete("/history/:id", cfg.Analysis.DeleteAnalysis)
	api.Get("/stats", cfg.Analysis.Stats)

	tickets := api.Group("/tickets")
	tickets.Post("/create", cfg.Tickets.CreateTicket)
	tickets.Get("/stats/dashboard", cfg.Tickets.Dashboard)
	tickets.Get("", cfg.Tickets.ListTickets)
	tickets.Get("/:number", cfg.Tickets.GetTicket)
	tickets.Patch("/:number/status", cfg.Tickets.UpdateStatus)
	tickets.Delete("/:number", cfg.Tickets.DeleteTicket)

	api.Post("/webhooks/graph-notifications", cfg.Webhooks.GraphNotifications)
}
