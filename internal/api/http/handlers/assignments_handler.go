package handlers

import (
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/helpdesk-service/internal/api/dto"
	"github.com/spec-kit/helpdesk-service/internal/routing"
	"github.com/spec-kit/helpdesk-service/internal/service"
)

// AssignmentsHandler covers routing, assignment and resolve endpoints.
type AssignmentsHandler struct {
	assignments *service.AssignmentService
	tables      *routing.Tables
}

// NewAssignmentsHandler constructs handler.
func NewAssignmentsHandler(assignments *service.AssignmentService, tables *routing.Tables) *AssignmentsHandler {
	return &AssignmentsHandler{assignments: assignments, tables: tables}
}

// Candidates GET /v1/tickets/:id/candidates.
func (h *AssignmentsHandler) Candidates(c *fiber.Ctx) error {
	account, err := currentAccount(c)
	if err != nil {
		return err
	}
	cands, err := h.assignments.Candidates(c.UserContext(), account, c.Params("id"))
	if err != nil {
		return err
	}
	staff := make([]dto.AccountResponse, 0, len(cands.Staff))
	for i := range cands.Staff {
		staff = append(staff, accountResponse(&cands.Staff[i]))
	}
	return c.JSON(fiber.Map{"data": dto.CandidatesResponse{Role: cands.Role, Staff: staff}})
}

// Assign POST /v1/tickets/:id/assignment.
func (h *AssignmentsHandler) Assign(c *fiber.Ctx) error {
	account, err := currentAccount(c)
	if err != nil {
		return err
	}
	var req dto.AssignRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}
	assignment, ticket, err := h.assignments.AssignTicket(c.UserContext(), account, c.Params("id"), req.AssigneeID)
	if err != nil {
		return err
	}
	return c.Status(http.StatusCreated).JSON(fiber.Map{"data": dto.AssignmentResult{
		Assignment: assignmentResponse(assignment),
		Ticket:     ticketResponse(ticket, h.tables),
	}})
}

// Reconcile POST /v1/tickets/:id/reconcile.
func (h *AssignmentsHandler) Reconcile(c *fiber.Ctx) error {
	repaired, err := h.assignments.Reconcile(c.UserContext(), c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.ReconcileResponse{TicketID: c.Params("id"), Repaired: repaired}})
}

// ListAssignments GET /v1/assignments.
func (h *AssignmentsHandler) ListAssignments(c *fiber.Ctx) error {
	account, err := currentAccount(c)
	if err != nil {
		return err
	}
	statuses, err := parseStatuses(c)
	if err != nil {
		return err
	}
	createdFrom, createdTo, err := parseCreatedRange(c)
	if err != nil {
		return err
	}
	p := parsePage(c)
	list, err := h.assignments.ListAssignments(c.UserContext(), account, service.AssignmentListFilter{
		Statuses:    statuses,
		Category:    optionalQuery(c, "category"),
		CreatedFrom: createdFrom,
		CreatedTo:   createdTo,
		NewestFirst: c.Query("order") != "oldest",
		Limit:       p.limit,
		Offset:      p.offset,
	})
	if err != nil {
		return err
	}
	items := make([]dto.AssignmentResponse, 0, len(list))
	for i := range list {
		items = append(items, assignmentResponse(&list[i]))
	}
	return c.JSON(fiber.Map{"data": items})
}

// GetAssignment GET /v1/assignments/:id.
func (h *AssignmentsHandler) GetAssignment(c *fiber.Ctx) error {
	account, err := currentAccount(c)
	if err != nil {
		return err
	}
	a, err := h.assignments.GetAssignment(c.UserContext(), account, c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": assignmentResponse(a)})
}

// Resolve POST /v1/assignments/:id/resolve.
func (h *AssignmentsHandler) Resolve(c *fiber.Ctx) error {
	account, err := currentAccount(c)
	if err != nil {
		return err
	}
	assignment, ticket, err := h.assignments.ResolveAssignment(c.UserContext(), account, c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.AssignmentResult{
		Assignment: assignmentResponse(assignment),
		Ticket:     ticketResponse(ticket, h.tables),
	}})
}
