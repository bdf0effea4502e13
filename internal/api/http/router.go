package http

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/KyleMonteagudo/csat-guardian-sub001/internal/api/http/handlers"
)

// RouteConfig bundles dependencies for route registration.
type RouteConfig struct {
	Health   *handlers.HealthHandler
	Query    *handlers.QueryHandler
	Registry *prometheus.Registry
}

// RegisterRoutes wires HTTP routes. Everything under /cases is read-only
// except the explicit re-evaluation trigger.
func RegisterRoutes(app *fiber.App, cfg RouteConfig) {
	app.Get("/health/live", cfg.Health.Live)
	app.Get("/health/ready", cfg.Health.Ready)

	cases := app.Group("/cases")
	cases.Get("/:id/risk", cfg.Query.GetRisk)
	cases.Get("/:id/compliance", cfg.Query.GetCompliance)
	cases.Get("/:id/sentiment", cfg.Query.GetSentiment)
	cases.Get("/:id/alerts", cfg.Query.GetAlerts)
	cases.Post("/:id/evaluate", cfg.Query.TriggerEvaluation)

	if cfg.Registry != nil {
		app.Get("/metrics", adaptor.HTTPHandler(promhttp.HandlerFor(cfg.Registry, promhttp.HandlerOpts{})))
	}
}
