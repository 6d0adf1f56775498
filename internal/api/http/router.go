package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/helpdesk-service/internal/api/http/handlers"
	"github.com/spec-kit/helpdesk-service/internal/auth"
	"github.com/spec-kit/helpdesk-service/internal/domain"
)

// RouteConfig bundles dependencies for route registration.
type RouteConfig struct {
	Health         *handlers.HealthHandler
	Auth           *handlers.AuthHandler
	Tickets        *handlers.TicketsHandler
	Users          *handlers.UsersHandler
	Reference      *handlers.ReferenceHandler
	AuthMiddleware *auth.AuthMiddleware
	WriteLimiter   fiber.Handler
}

// RegisterRoutes wires HTTP routes.
func RegisterRoutes(app *fiber.App, cfg RouteConfig) {
	app.Get("/health/live", cfg.Health.Live)
	app.Get("/health/ready", cfg.Health.Ready)
	app.Get("/health/metrics", cfg.Health.Metrics)

	api := app.Group("/api")
	if cfg.WriteLimiter != nil {
		api.Use(cfg.WriteLimiter)
	}

	api.Post("/auth/login", cfg.Auth.Login)

	protected := api.Group("", cfg.AuthMiddleware.Handle)
	protected.Get("/auth/me", cfg.Auth.Me)

	adminOnly := auth.RequireRole(domain.RoleAdmin)
	supervisors := auth.RequireRole(domain.RoleAdmin, domain.RoleManager)

	tickets := protected.Group("/tickets")
	tickets.Get("/", cfg.Tickets.ListTickets)
	tickets.Post("/", cfg.Tickets.CreateTicket)
	tickets.Get("/:id", cfg.Tickets.GetTicket)
	tickets.Put("/:id", cfg.Tickets.UpdateTicket)
	tickets.Get("/:id/history", cfg.Tickets.ListHistory)
	tickets.Put("/:id/status", cfg.Tickets.ChangeStatus)
	tickets.Put("/:id/assign", supervisors, cfg.Tickets.AssignTicket)

	users := protected.Group("/users")
	users.Get("/", supervisors, cfg.Users.ListUsers)
	users.Get("/roles", adminOnly, cfg.Users.ListRoles)
	users.Get("/departments", adminOnly, cfg.Users.ListDepartments)
	users.Get("/:id", supervisors, cfg.Users.GetUser)
	users.Post("/", adminOnly, cfg.Users.CreateUser)
	users.Put("/:id", adminOnly, cfg.Users.UpdateUser)
	users.Delete("/:id", adminOnly, cfg.Users.ToggleActive)

	protected.Get("/categories", cfg.Reference.ListCategories)
	protected.Post("/reference/reload", adminOnly, cfg.Reference.Reload)
}
