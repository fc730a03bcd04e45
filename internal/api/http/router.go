package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/complaint-service/internal/api/http/handlers"
	"github.com/spec-kit/complaint-service/internal/auth"
)

// RouteConfig bundles dependencies for route registration.
type RouteConfig struct {
	Health         *handlers.HealthHandler
	Auth           *handlers.AuthHandler
	Complaints     *handlers.ComplaintsHandler
	Escalations    *handlers.EscalationsHandler
	Reports        *handlers.ReportsHandler
	AuthMiddleware *auth.AuthMiddleware
}

// RegisterRoutes wires HTTP routes.
func RegisterRoutes(app *fiber.App, cfg RouteConfig) {
	app.Get("/health/live", cfg.Health.Live)
	app.Get("/health/ready", cfg.Health.Ready)

	api := app.Group("/api")
	api.Post("/login", cfg.Auth.Login)

	// Report downloads authenticate via the auth query parameter.
	api.Get("/reports.csv", cfg.AuthMiddleware.HandleQuery, cfg.Reports.CSV)
	api.Get("/reports.xlsx", cfg.AuthMiddleware.HandleQuery, cfg.Reports.XLSX)

	protected := api.Group("", cfg.AuthMiddleware.Handle, auth.RequireAnyRole())
	protected.Get("/summary", cfg.Reports.Summary)
	protected.Post("/complaints", cfg.Complaints.Create)
	protected.Get("/complaints", cfg.Complaints.List)
	protected.Post("/complaints/:id/status", cfg.Complaints.UpdateStatus)
	protected.Get("/escalations", cfg.Escalations.List)
}
