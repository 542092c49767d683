package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/hubops-service/internal/api/http/handlers"
	"github.com/spec-kit/hubops-service/internal/auth"
	"github.com/spec-kit/hubops-service/internal/domain"
)

// RouteConfig bundles dependencies for route registration.
type RouteConfig struct {
	Health         *handlers.HealthHandler
	Users          *handlers.UsersHandler
	Tickets        *handlers.TicketsHandler
	Departments    *handlers.DepartmentsHandler
	RecurringTasks *handlers.RecurringTasksHandler
	Scheduler      *handlers.SchedulerHandler
	Metrics        fiber.Handler
	AuthMiddleware *auth.AuthMiddleware
}

// RegisterRoutes wires HTTP routes.
func RegisterRoutes(app *fiber.App, cfg RouteConfig) {
	app.Get("/health/live", cfg.Health.Live)
	app.Get("/health/ready", cfg.Health.Ready)
	if cfg.Metrics != nil {
		app.Get("/metrics", cfg.Metrics)
	}

	app.Post("/auth/login", cfg.Users.Login)

	authed := cfg.AuthMiddleware.Handle
	app.Get("/auth/me", authed, cfg.Users.Me)

	tickets := app.Group("/tickets", authed)
	tickets.Get("/", cfg.Tickets.ListTickets)
	tickets.Post("/", cfg.Tickets.CreateTicket)
	tickets.Get("/:id", cfg.Tickets.GetTicket)
	tickets.Get("/:id/history", cfg.Tickets.History)
	tickets.Put("/:id/action", cfg.Tickets.ApplyAction)

	departments := app.Group("/departments", authed, auth.RequireAuthenticated())
	departments.Get("/", cfg.Departments.List)
	departments.Get("/:id/staff", cfg.Departments.Staff)

	gmOnly := auth.RequireRole(domain.RoleGM)
	tasks := app.Group("/recurring-tasks", authed, gmOnly)
	tasks.Get("/", cfg.RecurringTasks.List)
	tasks.Post("/", cfg.RecurringTasks.Create)
	tasks.Put("/:id", cfg.RecurringTasks.Update)
	tasks.Delete("/:id", cfg.RecurringTasks.Delete)

	app.Post("/scheduler/check", authed, gmOnly, cfg.Scheduler.Check)
}
