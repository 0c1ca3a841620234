package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/servcore/helpdesk/internal/api/http/handlers"
	"github.com/servcore/helpdesk/internal/auth"
	"github.com/servcore/helpdesk/internal/domain"
)

// Handlers groups everything the router mounts.
type Handlers struct {
	Health             *handlers.HealthHandler
	Auth               *handlers.AuthHandler
	Tickets            *handlers.TicketsHandler
	AssignmentRequests *handlers.AssignmentRequestsHandler
}

// RegisterRoutes mounts the full route table.
func RegisterRoutes(app *fiber.App, h Handlers, authMW *auth.AuthMiddleware) {
	app.Get("/health/live", h.Health.Live)
	app.Get("/health/ready", h.Health.Ready)
	app.Get("/metrics", h.Health.Metrics)

	v1 := app.Group("/api/v1")

	authGroup := v1.Group("/auth")
	authGroup.Post("/register", h.Auth.Register)
	authGroup.Post("/login", h.Auth.Login)
	authGroup.Post("/password/reset/request", h.Auth.RequestPasswordReset)
	authGroup.Post("/password/reset/confirm", h.Auth.ConfirmPasswordReset)
	authGroup.Get("/me", authMW.Handle, h.Auth.Me)
	authGroup.Post("/password/change", authMW.Handle, h.Auth.ChangePassword)

	tickets := v1.Group("/tickets", authMW.Handle)
	tickets.Post("/", h.Tickets.Create)
	tickets.Get("/", h.Tickets.List)
	tickets.Get("/unassigned", auth.RequireRole(domain.RoleAdmin), h.Tickets.ListUnassigned)
	tickets.Get("/:id", h.Tickets.Get)
	tickets.Patch("/:id", h.Tickets.Update)
	tickets.Delete("/:id", h.Tickets.Delete)
	tickets.Post("/:id/comments", h.Tickets.AddComment)
	tickets.Post("/:id/status", h.Tickets.Transition)
	tickets.Post("/:id/close", h.Tickets.Close)
	tickets.Post("/:id/reopen", h.Tickets.Reopen)
	tickets.Post("/:id/assign", auth.RequireRole(domain.RoleAdmin), h.Tickets.Assign)
	tickets.Post("/:id/assignment-requests", auth.RequireRole(domain.RoleAgent), h.Tickets.RequestAssignment)

	v1.Get("/agents", authMW.Handle, auth.RequireRole(domain.RoleAdmin), h.Tickets.ListAssignableAgents)

	requests := v1.Group("/assignment-requests", authMW.Handle, auth.RequireRole(domain.RoleAdmin))
	requests.Get("/", h.AssignmentRequests.ListPending)
	requests.Post("/:id/approve", h.AssignmentRequests.Approve)
	requests.Post("/:id/reject", h.AssignmentRequests.Reject)
}
