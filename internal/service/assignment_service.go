package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/spec-kit/helpdesk-service/internal/domain"
	"github.com/spec-kit/helpdesk-service/internal/events"
	"github.com/spec-kit/helpdesk-service/internal/lifecycle"
	"github.com/spec-kit/helpdesk-service/internal/observability"
	"github.com/spec-kit/helpdesk-service/internal/repository"
	"github.com/spec-kit/helpdesk-service/internal/routing"
	apperrors "github.com/spec-kit/helpdesk-service/pkg/util"
)

// AssignmentService routes tickets to staff and carries the two-document
// resolve step.
type AssignmentService struct {
	store      *repository.Store
	tables     *routing.Tables
	dispatcher events.Dispatcher
	metrics    *observability.Metrics
	logger     *zap.Logger
	now        func() time.Time
}

// AssignmentDependencies bundles collaborators.
type AssignmentDependencies struct {
	Store      *repository.Store
	Tables     *routing.Tables
	Dispatcher events.Dispatcher
	Metrics    *observability.Metrics
	Logger     *zap.Logger
}

// AssignmentListFilter describes listing filters.
type AssignmentListFilter struct {
	Statuses    []domain.TicketStatus
	Category    *string
	CreatedFrom *time.Time
	CreatedTo   *time.Time
	NewestFirst bool
	Limit       int
	Offset      int
}

// Candidates is the routed role for a ticket and the staff holding it.
type Candidates struct {
	Role  domain.Role
	Staff []domain.Account
}

// NewAssignmentService creates the service.
func NewAssignmentService(deps AssignmentDependencies) *AssignmentService {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AssignmentService{
		store:      deps.Store,
		tables:     deps.Tables,
		dispatcher: deps.Dispatcher,
		metrics:    deps.Metrics,
		logger:     logger,
		now:        utcNow,
	}
}

// Candidates returns the staff eligible for a ticket: exactly the accounts
// holding the role its category routes to. An unrouted category is a
// ROUTING_GAP error.
func (s *AssignmentService) Candidates(ctx context.Context, actor *domain.Account, ticketID string) (*Candidates, error) {
	if err := requireAdminActor(actor); err != nil {
		return nil, err
	}
	ticket, err := s.store.Tickets.GetByID(ctx, ticketID)
	if err != nil {
		return nil, readError("ticket", ticketID, err)
	}
	role, err := s.route(ticket)
	if err != nil {
		return nil, err
	}
	staff, err := s.store.Accounts.List(ctx, repository.AccountFilter{Role: &role})
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	return &Candidates{Role: role, Staff: staff}, nil
}

// AssignTicket routes an OPEN ticket to assigneeID. The assignee must hold
// the role the category routes to; an empty candidate list blocks the
// assignment. The Assignment record and the ticket's IN_PROGRESS status are
// written in one transaction.
func (s *AssignmentService) AssignTicket(ctx context.Context, actor *domain.Account, ticketID, assigneeID string) (*domain.Assignment, *domain.Ticket, error) {
	if err := requireActor(actor); err != nil {
		return nil, nil, err
	}
	ticket, err := s.store.Tickets.GetByID(ctx, ticketID)
	if err != nil {
		return nil, nil, readError("ticket", ticketID, err)
	}
	next, err := lifecycle.Check(lifecycle.ActionAssign, ticket.Status, lifecycle.ActorFor(actor.Role))
	if err != nil {
		return nil, nil, lifecycleError(err, map[string]any{"ticket_id": ticket.ID, "status": ticket.Status})
	}
	role, err := s.route(ticket)
	if err != nil {
		return nil, nil, err
	}
	staff, err := s.store.Accounts.List(ctx, repository.AccountFilter{Role: &role})
	if err != nil {
		return nil, nil, apperrors.MapError(err)
	}
	if len(staff) == 0 {
		return nil, nil, apperrors.NewValidationError("no staff holds the role for this category", map[string]any{
			"category": ticket.Category,
			"role":     role,
		})
	}
	var assignee *domain.Account
	for i := range staff {
		if staff[i].ID == assigneeID {
			assignee = &staff[i]
			break
		}
	}
	if assignee == nil {
		return nil, nil, apperrors.NewValidationError("assignee is not a candidate for this category", map[string]any{
			"assignee_id": assigneeID,
			"role":        role,
		})
	}

	now := s.now()
	assignment := &domain.Assignment{
		ID:            uuid.NewString(),
		TicketID:      ticket.ID,
		Category:      ticket.Category,
		Description:   ticket.Description,
		Color:         ticket.Color,
		Priority:      s.tables.PriorityFor(ticket.Color),
		AssigneeID:    assignee.ID,
		AssigneeEmail: assignee.Email,
		AdminID:       actor.ID,
		Status:        next,
		CreatedAt:     now,
		UpdatedAt:     now,
	}

	err = s.store.Tx.WithinTx(ctx, func(ctx context.Context) error {
		current, err := s.store.Tickets.GetByID(ctx, ticket.ID)
		if err != nil {
			return err
		}
		if current.Status != domain.TicketStatusOpen {
			return apperrors.NewConflict("ticket is no longer open", map[string]any{"ticket_id": ticket.ID, "status": current.Status})
		}
		if err := s.store.Assignments.Create(ctx, assignment); err != nil {
			if errors.Is(err, repository.ErrDuplicate) {
				return apperrors.NewConflict("ticket already has an assignment", map[string]any{"ticket_id": ticket.ID})
			}
			return err
		}
		current.Status = next
		current.AssigneeID = ptr(assignee.ID)
		current.AssigneeEmail = ptr(assignee.Email)
		current.UpdatedAt = now
		if err := s.store.Tickets.Update(ctx, current); err != nil {
			compensate(ctx, s.store, s.logger, "assignment create", func(ctx context.Context) error {
				return s.store.Assignments.Delete(ctx, assignment.ID)
			})
			return err
		}
		ticket = current
		return nil
	})
	if err != nil {
		return nil, nil, writeError("assign ticket", err)
	}

	s.metrics.AssignmentCreated(string(assignment.Priority))
	s.logger.Info("ticket assigned",
		zap.String("ticket_id", ticket.ID),
		zap.String("assignee_id", assignee.ID),
		zap.String("role", string(role)),
		zap.String("priority", string(assignment.Priority)),
	)
	publish(ctx, s.dispatcher, events.Event{
		Type:     events.EventTicketAssigned,
		TicketID: ticket.ID,
		Actor:    actorOf(actor),
		Payload:  assignmentPayload(assignment, ticket),
	})
	return assignment, ticket, nil
}

// ResolveAssignment marks the caller's assignment RESOLVED and closes the
// source ticket, populating its assignee and feedback id, in one
// transaction.
func (s *AssignmentService) ResolveAssignment(ctx context.Context, actor *domain.Account, assignmentID string) (*domain.Assignment, *domain.Ticket, error) {
	if err := requireActor(actor); err != nil {
		return nil, nil, err
	}
	assignment, err := s.store.Assignments.GetByID(ctx, assignmentID)
	if err != nil {
		return nil, nil, readError("assignment", assignmentID, err)
	}
	next, err := lifecycle.Check(lifecycle.ActionResolve, assignment.Status, lifecycle.ActorFor(actor.Role))
	if err != nil {
		return nil, nil, lifecycleError(err, map[string]any{"assignment_id": assignment.ID, "status": assignment.Status})
	}
	if assignment.AssigneeID != actor.ID {
		return nil, nil, apperrors.NewForbidden("assignment belongs to another staff member")
	}

	var ticket *domain.Ticket
	err = s.store.Tx.WithinTx(ctx, func(ctx context.Context) error {
		current, err := s.store.Assignments.GetByID(ctx, assignment.ID)
		if err != nil {
			return err
		}
		if current.Status != domain.TicketStatusInProgress {
			return apperrors.NewConflict("assignment is no longer in progress", map[string]any{"assignment_id": assignment.ID, "status": current.Status})
		}
		before := *current
		now := s.now()
		current.Status = next
		current.UpdatedAt = now
		current.ResolvedAt = ptr(now)
		if err := s.store.Assignments.Update(ctx, current); err != nil {
			return err
		}

		t, err := s.closeSource(ctx, current, now)
		if err != nil {
			compensate(ctx, s.store, s.logger, "assignment resolve", func(ctx context.Context) error {
				return s.store.Assignments.Update(ctx, &before)
			})
			return err
		}
		assignment = current
		ticket = t
		return nil
	})
	if err != nil {
		return nil, nil, writeError("resolve assignment", err)
	}

	publish(ctx, s.dispatcher, events.Event{
		Type:     events.EventTicketResolved,
		TicketID: ticket.ID,
		Actor:    actorOf(actor),
		Payload:  assignmentPayload(assignment, ticket),
	})
	return assignment, ticket, nil
}

func (s *AssignmentService) closeSource(ctx context.Context, a *domain.Assignment, now time.Time) (*domain.Ticket, error) {
	t, err := s.store.Tickets.GetByID(ctx, a.TicketID)
	if err != nil {
		return nil, err
	}
	if err := closeTicket(t, a, now); err != nil {
		return nil, err
	}
	if err := s.store.Tickets.Update(ctx, t); err != nil {
		return nil, err
	}
	return t, nil
}

// closeTicket applies the system close step. A ticket that is already
// CLOSED only gets its assignee and feedback id filled in.
func closeTicket(t *domain.Ticket, a *domain.Assignment, now time.Time) error {
	if t.Status != domain.TicketStatusClosed {
		status, err := lifecycle.Check(lifecycle.ActionClose, t.Status, lifecycle.ActorSystem)
		if err != nil {
			return lifecycleError(err, map[string]any{"ticket_id": t.ID, "status": t.Status})
		}
		t.Status = status
	}
	t.AssigneeID = ptr(a.AssigneeID)
	t.AssigneeEmail = ptr(a.AssigneeEmail)
	t.FeedbackID = ptr(a.ID)
	t.UpdatedAt = now
	return nil
}

// Reconcile brings a ticket and its assignment back into agreement. It is
// idempotent and reports whether anything was written. The record that is
// further along the lifecycle wins; statuses never move backwards.
func (s *AssignmentService) Reconcile(ctx context.Context, ticketID string) (bool, error) {
	var (
		repaired   bool
		assignment *domain.Assignment
		ticket     *domain.Ticket
	)
	err := s.store.Tx.WithinTx(ctx, func(ctx context.Context) error {
		t, err := s.store.Tickets.GetByID(ctx, ticketID)
		if err != nil {
			return err
		}
		a, err := s.store.Assignments.GetByTicket(ctx, ticketID)
		if errors.Is(err, repository.ErrNotFound) {
			return nil
		}
		if err != nil {
			return err
		}
		ticket, assignment = t, a
		now := s.now()

		if t.Status == domain.TicketStatusClosed && a.Status == domain.TicketStatusInProgress {
			a.Status = domain.TicketStatusResolved
			a.ResolvedAt = ptr(t.UpdatedAt)
			a.UpdatedAt = now
			if err := s.store.Assignments.Update(ctx, a); err != nil {
				return err
			}
			repaired = true
		}

		if ticketNeedsRepair(t, a) {
			want := lifecycle.Mirror(a.Status)
			if !lifecycle.Advance(t.Status, want) {
				return fmt.Errorf("ticket %s status %s is ahead of assignment %s", t.ID, t.Status, a.Status)
			}
			t.Status = want
			t.AssigneeID = ptr(a.AssigneeID)
			t.AssigneeEmail = ptr(a.AssigneeEmail)
			if a.Status == domain.TicketStatusResolved {
				t.FeedbackID = ptr(a.ID)
			}
			t.UpdatedAt = now
			if err := s.store.Tickets.Update(ctx, t); err != nil {
				return err
			}
			repaired = true
		}
		return nil
	})
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return false, readError("ticket", ticketID, err)
		}
		return false, writeError("reconcile ticket", err)
	}
	if !repaired {
		return false, nil
	}

	s.metrics.ReconcileRepaired()
	s.logger.Warn("ticket and assignment disagreed, repaired",
		zap.String("ticket_id", ticket.ID),
		zap.String("assignment_id", assignment.ID),
		zap.String("ticket_status", string(ticket.Status)),
		zap.String("assignment_status", string(assignment.Status)),
	)
	publish(ctx, s.dispatcher, events.Event{
		Type:     events.EventTicketReconciled,
		TicketID: ticket.ID,
		Actor:    events.SystemActor,
		Payload:  assignmentPayload(assignment, ticket),
	})
	return true, nil
}

func ticketNeedsRepair(t *domain.Ticket, a *domain.Assignment) bool {
	if t.Status != lifecycle.Mirror(a.Status) {
		return true
	}
	if deref(t.AssigneeID) != a.AssigneeID {
		return true
	}
	return a.Status == domain.TicketStatusResolved && deref(t.FeedbackID) != a.ID
}

// ReconcileAll reconciles every in-flight assignment and returns how many
// pairs were repaired. Failures are collected and do not stop the sweep.
func (s *AssignmentService) ReconcileAll(ctx context.Context) (int, error) {
	assignments, err := s.store.Assignments.List(ctx, repository.AssignmentFilter{})
	if err != nil {
		return 0, apperrors.MapError(err)
	}
	var (
		repaired int
		errs     []error
	)
	for _, a := range assignments {
		if err := ctx.Err(); err != nil {
			return repaired, err
		}
		ok, err := s.Reconcile(ctx, a.TicketID)
		if err != nil {
			errs = append(errs, fmt.Errorf("ticket %s: %w", a.TicketID, err))
			continue
		}
		if ok {
			repaired++
		}
	}
	return repaired, errors.Join(errs...)
}

// GetAssignment returns an assignment visible to actor: admins and the
// assignee.
func (s *AssignmentService) GetAssignment(ctx context.Context, actor *domain.Account, assignmentID string) (*domain.Assignment, error) {
	if err := requireActor(actor); err != nil {
		return nil, err
	}
	a, err := s.store.Assignments.GetByID(ctx, assignmentID)
	if err != nil {
		return nil, readError("assignment", assignmentID, err)
	}
	if actor.Role != domain.RoleAdmin && a.AssigneeID != actor.ID {
		return nil, apperrors.NewForbidden("access denied")
	}
	return a, nil
}

// ListAssignments returns every assignment for admins and the caller's own
// for everyone else. Visibility follows identity, not the current role.
func (s *AssignmentService) ListAssignments(ctx context.Context, actor *domain.Account, filter AssignmentListFilter) ([]domain.Assignment, error) {
	if err := requireActor(actor); err != nil {
		return nil, err
	}
	repoFilter := repository.AssignmentFilter{
		Statuses:    filter.Statuses,
		Category:    filter.Category,
		CreatedFrom: filter.CreatedFrom,
		CreatedTo:   filter.CreatedTo,
		NewestFirst: filter.NewestFirst,
		Limit:       filter.Limit,
		Offset:      filter.Offset,
	}
	if actor.Role != domain.RoleAdmin {
		repoFilter.AssigneeID = ptr(actor.ID)
	}
	assignments, err := s.store.Assignments.List(ctx, repoFilter)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	return assignments, nil
}

func (s *AssignmentService) route(ticket *domain.Ticket) (domain.Role, error) {
	role, err := s.tables.RoleFor(ticket.Category)
	if err != nil {
		s.metrics.RoutingGap(ticket.Category)
		s.logger.Warn("category has no routed role",
			zap.String("ticket_id", ticket.ID),
			zap.String("category", ticket.Category),
		)
		return "", apperrors.NewRoutingGap(ticket.Category, err)
	}
	return role, nil
}

func requireAdminActor(actor *domain.Account) error {
	if err := requireActor(actor); err != nil {
		return err
	}
	if actor.Role != domain.RoleAdmin {
		return apperrors.NewForbidden("admin role required")
	}
	return nil
}

func assignmentPayload(a *domain.Assignment, t *domain.Ticket) events.AssignmentPayload {
	return events.AssignmentPayload{
		AssignmentID: a.ID,
		OwnerID:      t.OwnerID,
		AssigneeID:   a.AssigneeID,
		Category:     a.Category,
		Priority:     a.Priority,
		Status:       a.Status,
		TicketStatus: t.Status,
	}
}
