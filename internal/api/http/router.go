package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/staff-auth/internal/api/http/handlers"
	"github.com/spec-kit/staff-auth/internal/auth"
)

// RouteConfig bundles dependencies for route registration.
type RouteConfig struct {
	Health            *handlers.HealthHandler
	Staff             *handlers.StaffHandler
	SessionMiddleware *auth.SessionMiddleware
}

// RegisterRoutes wires HTTP routes.
func RegisterRoutes(app *fiber.App, cfg RouteConfig) {
	app.Get("/health/live", cfg.Health.Live)
	app.Get("/health/ready", cfg.Health.Ready)

	staffGroup := app.Group("/staff")
	staffGroup.Post("/auth", cfg.Staff.Auth)
	staffGroup.Post("/add", cfg.Staff.Add)

	protected := staffGroup.Group("", cfg.SessionMiddleware.Handle)
	protected.Post("/logout", cfg.Staff.Logout)
}
