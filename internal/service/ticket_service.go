package service

import (
	"context"
	"strings"
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

// TicketService coordinates ticket workflows.
type TicketService struct {
	store      *repository.Store
	tables     *routing.Tables
	dispatcher events.Dispatcher
	metrics    *observability.Metrics
	logger     *zap.Logger
	now        func() time.Time
}

// TicketDependencies bundles collaborators for the ticket service.
type TicketDependencies struct {
	Store      *repository.Store
	Tables     *routing.Tables
	Dispatcher events.Dispatcher
	Metrics    *observability.Metrics
	Logger     *zap.Logger
}

// TicketCreateInput describes ticket creation payload.
type TicketCreateInput struct {
	CategoryKey string
	Description string
}

// TicketUpdateInput carries an owner's edit; nil fields stay unchanged.
type TicketUpdateInput struct {
	CategoryKey *string
	Description *string
}

// TicketListFilter describes listing filters. Visibility scoping is applied
// on top of it.
type TicketListFilter struct {
	Statuses    []domain.TicketStatus
	Category    *string
	CreatedFrom *time.Time
	CreatedTo   *time.Time
	NewestFirst bool
	Limit       int
	Offset      int
}

// CategoryView is a registry entry with its derived routing data.
type CategoryView struct {
	Key      string
	Name     string
	Color    domain.Color
	Priority domain.Priority
	Role     *domain.Role
}

// NewTicketService constructs the service.
func NewTicketService(deps TicketDependencies) *TicketService {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &TicketService{
		store:      deps.Store,
		tables:     deps.Tables,
		dispatcher: deps.Dispatcher,
		metrics:    deps.Metrics,
		logger:     logger,
		now:        utcNow,
	}
}

// Categories lists the registry with priority labels and routed roles.
// Categories without a route carry a nil Role.
func (s *TicketService) Categories() []CategoryView {
	cats := s.tables.Categories()
	out := make([]CategoryView, 0, len(cats))
	for _, c := range cats {
		view := CategoryView{Key: c.Key, Name: c.Name, Color: c.Color, Priority: s.tables.PriorityFor(c.Color)}
		if role, err := s.tables.RoleFor(c.Name); err == nil {
			view.Role = &role
		}
		out = append(out, view)
	}
	return out
}

// CreateTicket files a new OPEN ticket for actor.
func (s *TicketService) CreateTicket(ctx context.Context, actor *domain.Account, input TicketCreateInput) (*domain.Ticket, error) {
	if err := requireActor(actor); err != nil {
		return nil, err
	}
	key := strings.TrimSpace(input.CategoryKey)
	description := strings.TrimSpace(input.Description)
	if err := requireTicketFields(key, description); err != nil {
		return nil, err
	}
	status, err := lifecycle.Check(lifecycle.ActionCreate, "", lifecycle.ActorFor(actor.Role))
	if err != nil {
		return nil, lifecycleError(err, nil)
	}

	category := s.tables.Category(key)
	now := s.now()
	ticket := &domain.Ticket{
		ID:          uuid.NewString(),
		OwnerID:     actor.ID,
		CategoryKey: category.Key,
		Category:    category.Name,
		Description: description,
		Status:      status,
		Color:       category.Color,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := s.store.Tickets.Create(ctx, ticket); err != nil {
		return nil, writeError("create ticket", err)
	}

	s.metrics.TicketCreated()
	publish(ctx, s.dispatcher, events.Event{
		Type:     events.EventTicketCreated,
		TicketID: ticket.ID,
		Actor:    actorOf(actor),
		Payload:  ticketPayload(ticket),
	})
	return ticket, nil
}

// UpdateTicket lets the owner edit category or description while the
// ticket is OPEN. The color is re-derived from the registry.
func (s *TicketService) UpdateTicket(ctx context.Context, actor *domain.Account, ticketID string, input TicketUpdateInput) (*domain.Ticket, error) {
	if err := requireActor(actor); err != nil {
		return nil, err
	}
	ticket, err := s.ownedTicket(ctx, actor, ticketID)
	if err != nil {
		return nil, err
	}
	if _, err := lifecycle.Check(lifecycle.ActionEdit, ticket.Status, lifecycle.ActorFor(actor.Role)); err != nil {
		return nil, lifecycleError(err, map[string]any{"ticket_id": ticket.ID, "status": ticket.Status})
	}

	key := ticket.CategoryKey
	if input.CategoryKey != nil {
		key = strings.TrimSpace(*input.CategoryKey)
	}
	description := ticket.Description
	if input.Description != nil {
		description = strings.TrimSpace(*input.Description)
	}
	if err := requireTicketFields(key, description); err != nil {
		return nil, err
	}

	category := s.tables.Category(key)
	ticket.CategoryKey = category.Key
	ticket.Category = category.Name
	ticket.Color = category.Color
	ticket.Description = description
	ticket.UpdatedAt = s.now()
	if err := s.store.Tickets.Update(ctx, ticket); err != nil {
		return nil, writeError("update ticket", err)
	}

	publish(ctx, s.dispatcher, events.Event{
		Type:     events.EventTicketUpdated,
		TicketID: ticket.ID,
		Actor:    actorOf(actor),
		Payload:  ticketPayload(ticket),
	})
	return ticket, nil
}

// DeleteTicket removes an OPEN ticket. Only its owner may delete it.
func (s *TicketService) DeleteTicket(ctx context.Context, actor *domain.Account, ticketID string) error {
	if err := requireActor(actor); err != nil {
		return err
	}
	ticket, err := s.ownedTicket(ctx, actor, ticketID)
	if err != nil {
		return err
	}
	if _, err := lifecycle.Check(lifecycle.ActionDelete, ticket.Status, lifecycle.ActorFor(actor.Role)); err != nil {
		return lifecycleError(err, map[string]any{"ticket_id": ticket.ID, "status": ticket.Status})
	}
	if err := s.store.Tickets.Delete(ctx, ticket.ID); err != nil {
		return writeError("delete ticket", err)
	}

	publish(ctx, s.dispatcher, events.Event{
		Type:     events.EventTicketDeleted,
		TicketID: ticket.ID,
		Actor:    actorOf(actor),
		Payload:  ticketPayload(ticket),
	})
	return nil
}

// GetTicket returns a ticket visible to actor: its owner, admins and the
// assigned staff member.
func (s *TicketService) GetTicket(ctx context.Context, actor *domain.Account, ticketID string) (*domain.Ticket, error) {
	if err := requireActor(actor); err != nil {
		return nil, err
	}
	ticket, err := s.store.Tickets.GetByID(ctx, ticketID)
	if err != nil {
		return nil, readError("ticket", ticketID, err)
	}
	if !canViewTicket(actor, ticket) {
		return nil, apperrors.NewForbidden("access denied")
	}
	return ticket, nil
}

// ListTickets returns the tickets actor may see: admins see all, staff the
// tickets assigned to them, end users their own.
func (s *TicketService) ListTickets(ctx context.Context, actor *domain.Account, filter TicketListFilter) ([]domain.Ticket, error) {
	if err := requireActor(actor); err != nil {
		return nil, err
	}
	repoFilter := repository.TicketFilter{
		Statuses:    filter.Statuses,
		Category:    filter.Category,
		CreatedFrom: filter.CreatedFrom,
		CreatedTo:   filter.CreatedTo,
		NewestFirst: filter.NewestFirst,
		Limit:       filter.Limit,
		Offset:      filter.Offset,
	}
	switch {
	case actor.Role == domain.RoleAdmin:
	case actor.Role.IsStaff():
		repoFilter.AssigneeID = ptr(actor.ID)
	default:
		repoFilter.OwnerID = ptr(actor.ID)
	}
	tickets, err := s.store.Tickets.List(ctx, repoFilter)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	return tickets, nil
}

func (s *TicketService) ownedTicket(ctx context.Context, actor *domain.Account, ticketID string) (*domain.Ticket, error) {
	ticket, err := s.store.Tickets.GetByID(ctx, ticketID)
	if err != nil {
		return nil, readError("ticket", ticketID, err)
	}
	if ticket.OwnerID != actor.ID {
		return nil, apperrors.NewForbidden("only the ticket owner may do this")
	}
	return ticket, nil
}

func canViewTicket(actor *domain.Account, ticket *domain.Ticket) bool {
	if actor.Role == domain.RoleAdmin || ticket.OwnerID == actor.ID {
		return true
	}
	return ticket.AssigneeID != nil && *ticket.AssigneeID == actor.ID
}

func requireTicketFields(categoryKey, description string) error {
	details := map[string]any{}
	if categoryKey == "" {
		details["category"] = "category is required"
	}
	if description == "" {
		details["description"] = "description is required"
	}
	if len(details) > 0 {
		return apperrors.NewValidationError("invalid ticket", details)
	}
	return nil
}

func ticketPayload(t *domain.Ticket) events.TicketPayload {
	return events.TicketPayload{
		OwnerID:    t.OwnerID,
		Category:   t.Category,
		Color:      t.Color,
		Status:     t.Status,
		AssigneeID: deref(t.AssigneeID),
	}
}
