package http

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/spec-kit/helpdesk-service/internal/api/http/handlers"
	"github.com/spec-kit/helpdesk-service/internal/auth"
	"github.com/spec-kit/helpdesk-service/internal/authz"
	"github.com/spec-kit/helpdesk-service/internal/observability"
)

// RouteConfig bundles dependencies for route registration.
type RouteConfig struct {
	Health         *handlers.HealthHandler
	Auth           *handlers.AuthHandler
	Tickets        *handlers.TicketsHandler
	Assignments    *handlers.AssignmentsHandler
	Feedback       *handlers.FeedbackHandler
	Accounts       *handlers.AccountsHandler
	Reports        *handlers.ReportsHandler
	Streams        *handlers.StreamsHandler
	AuthMiddleware *auth.AuthMiddleware
	Policy         *authz.Authorizer
	Metrics        *observability.Metrics
}

// RegisterRoutes wires HTTP routes.
func RegisterRoutes(app *fiber.App, cfg RouteConfig) {
	app.Get("/health/live", cfg.Health.Live)
	app.Get("/health/ready", cfg.Health.Ready)
	if cfg.Metrics != nil {
		app.Get("/metrics", adaptor.HTTPHandler(promhttp.HandlerFor(cfg.Metrics.Registry(), promhttp.HandlerOpts{})))
	}

	authGroup := app.Group("/auth")
	authGroup.Post("/register", cfg.Auth.Register)
	authGroup.Post("/login", cfg.Auth.Login)

	allow := func(obj, act string) fiber.Handler {
		return auth.RequirePermission(cfg.Policy, obj, act)
	}

	v1 := app.Group("/v1", cfg.AuthMiddleware.Handle, auth.RequireAuthenticated())
	v1.Get("/me", cfg.Auth.Me)
	v1.Get("/categories", cfg.Tickets.Categories)

	tickets := v1.Group("/tickets")
	tickets.Post("/", allow(authz.ObjTicket, authz.ActCreate), cfg.Tickets.CreateTicket)
	tickets.Get("/", cfg.Tickets.ListTickets)
	tickets.Get("/:id", cfg.Tickets.GetTicket)
	tickets.Patch("/:id", allow(authz.ObjTicket, authz.ActUpdate), cfg.Tickets.UpdateTicket)
	tickets.Delete("/:id", allow(authz.ObjTicket, authz.ActDelete), cfg.Tickets.DeleteTicket)
	tickets.Get("/:id/candidates", allow(authz.ObjTicket, authz.ActAssign), cfg.Assignments.Candidates)
	tickets.Post("/:id/assignment", allow(authz.ObjTicket, authz.ActAssign), cfg.Assignments.Assign)
	tickets.Post("/:id/reconcile", allow(authz.ObjTicket, authz.ActReconcile), cfg.Assignments.Reconcile)
	tickets.Get("/:id/messages", cfg.Tickets.ListMessages)
	tickets.Post("/:id/messages", cfg.Tickets.AddMessage)
	tickets.Post("/:id/feedback", allow(authz.ObjFeedback, authz.ActSubmit), cfg.Feedback.Submit)
	tickets.Get("/:id/feedback", cfg.Feedback.GetOwn)

	assignments := v1.Group("/assignments")
	assignments.Get("/", cfg.Assignments.ListAssignments)
	assignments.Get("/:id", cfg.Assignments.GetAssignment)
	assignments.Post("/:id/resolve", auth.RequireStaff(), cfg.Assignments.Resolve)

	v1.Get("/feedback", cfg.Feedback.List)
	v1.Get("/feedback/stats", allow(authz.ObjFeedback, authz.ActRead), cfg.Feedback.Stats)
	v1.Get("/reports", allow(authz.ObjReport, authz.ActRead), cfg.Reports.Get)

	accounts := v1.Group("/accounts", allow(authz.ObjAccount, authz.ActManage))
	accounts.Get("/", cfg.Accounts.List)
	accounts.Patch("/:id/role", cfg.Accounts.ChangeRole)
	accounts.Delete("/:id", cfg.Accounts.Delete)

	v1.Get("/streams", cfg.Streams.Views)
	v1.Get("/streams/:view", cfg.Streams.Stream)
}
