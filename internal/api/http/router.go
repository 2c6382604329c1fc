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
	Users          *handlers.UsersHandler
	Tickets        *handlers.TicketsHandler
	Workflow       *handlers.WorkflowHandler
	Assignment     *handlers.AssignmentHandler
	Notifications  *handlers.NotificationsHandler
	AuthMiddleware *auth.Middleware
	WSUpgrade      fiber.Handler
	WSHandler      fiber.Handler
}

// RegisterRoutes wires HTTP and websocket routes.
func RegisterRoutes(app *fiber.App, cfg RouteConfig) {
	app.Get("/health/live", cfg.Health.Live)
	app.Get("/health/ready", cfg.Health.Ready)

	authGroup := app.Group("/auth")
	authGroup.Post("/register", cfg.Users.Register)
	authGroup.Post("/login", cfg.Users.Login)
	authGroup.Get("/me", cfg.AuthMiddleware.Handle, cfg.Users.Me)

	api := app.Group("/api/v1", cfg.AuthMiddleware.Handle)

	tickets := api.Group("/tickets")
	tickets.Post("/", cfg.Tickets.CreateTicket)
	tickets.Get("/", cfg.Tickets.ListTickets)
	tickets.Post("/bulk/status", auth.RequireStaff(), cfg.Workflow.BulkChangeStatus)
	tickets.Post("/bulk/assign", auth.RequireStaff(), cfg.Assignment.BulkAssign)
	tickets.Get("/:id", cfg.Tickets.GetTicket)
	tickets.Patch("/:id/status", cfg.Workflow.ChangeStatus)
	tickets.Get("/:id/transitions", cfg.Workflow.ValidTransitions)
	tickets.Post("/:id/comments", cfg.Tickets.AddComment)
	tickets.Get("/:id/recommendations", auth.RequireStaff(), cfg.Assignment.Recommendations)
	tickets.Post("/:id/assign", auth.RequireStaff(), cfg.Assignment.Assign)
	tickets.Post("/:id/reassign", auth.RequireStaff(), cfg.Assignment.Reassign)
	tickets.Post("/:id/unassign", auth.RequireStaff(), cfg.Assignment.Unassign)
	tickets.Post("/:id/auto-assign", auth.RequireStaff(), cfg.Assignment.AutoAssign)

	comments := api.Group("/comments")
	comments.Delete("/:id", cfg.Tickets.DeleteComment)
	comments.Post("/bulk-delete", cfg.Tickets.BulkDeleteComments)

	workflow := api.Group("/workflow")
	workflow.Get("/requirements", cfg.Workflow.TransitionRequirements)
	workflow.Post("/auto-close", auth.RequireRole(domain.RoleAdmin), cfg.Workflow.AutoClose)

	assignmentGroup := api.Group("/assignment", auth.RequireStaff())
	assignmentGroup.Get("/assignees", cfg.Assignment.AvailableAssignees)
	assignmentGroup.Get("/workloads", cfg.Assignment.Workloads)

	notifications := api.Group("/notifications")
	notifications.Get("/", cfg.Notifications.List)
	notifications.Get("/unread-count", cfg.Notifications.UnreadCount)
	notifications.Patch("/read-all", cfg.Notifications.MarkAllRead)
	notifications.Patch("/:id/read", cfg.Notifications.MarkRead)
	notifications.Delete("/", cfg.Notifications.ClearAll)
	notifications.Delete("/:id", cfg.Notifications.Delete)

	// Token is carried in the query string; the upgrade middleware
	// authenticates before any connection is registered.
	app.Get("/ws", cfg.WSUpgrade, cfg.WSHandler)
}
