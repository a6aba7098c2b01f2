package memstore

import (
	"context"
	"time"

	"github.com/spec-kit/helpdesk-service/internal/domain"
	"github.com/spec-kit/helpdesk-service/internal/repository"
)

type tickets struct{ db *DB }

func cloneTicket(t domain.Ticket) domain.Ticket {
	t.AssigneeID = cloneString(t.AssigneeID)
	t.AssigneeEmail = cloneString(t.AssigneeEmail)
	t.FeedbackID = cloneString(t.FeedbackID)
	t.ThreadID = cloneString(t.ThreadID)
	return t
}

func (r tickets) Create(ctx context.Context, ticket *domain.Ticket) error {
	if err := r.db.injected(OpTicketCreate); err != nil {
		return err
	}
	defer r.db.write(ctx)()
	if _, exists := r.db.tickets[ticket.ID]; exists {
		return repository.ErrDuplicate
	}
	r.db.tickets[ticket.ID] = cloneTicket(*ticket)
	return nil
}

func (r tickets) Update(ctx context.Context, ticket *domain.Ticket) error {
	if err := r.db.injected(OpTicketUpdate); err != nil {
		return err
	}
	defer r.db.write(ctx)()
	if _, ok := r.db.tickets[ticket.ID]; !ok {
		return repository.ErrNotFound
	}
	r.db.tickets[ticket.ID] = cloneTicket(*ticket)
	return nil
}

func (r tickets) Delete(ctx context.Context, id string) error {
	if err := r.db.injected(OpTicketDelete); err != nil {
		return err
	}
	defer r.db.write(ctx)()
	if _, ok := r.db.tickets[id]; !ok {
		return repository.ErrNotFound
	}
	delete(r.db.tickets, id)
	return nil
}

func (r tickets) GetByID(ctx context.Context, id string) (*domain.Ticket, error) {
	defer r.db.read(ctx)()
	stored, ok := r.db.tickets[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	ticket := cloneTicket(stored)
	if err := repository.Validated(&ticket); err != nil {
		return nil, err
	}
	return &ticket, nil
}

func (r tickets) List(ctx context.Context, filter repository.TicketFilter) ([]domain.Ticket, error) {
	defer r.db.read(ctx)()
	var out []domain.Ticket
	for _, stored := range r.db.tickets {
		if filter.OwnerID != nil && stored.OwnerID != *filter.OwnerID {
			continue
		}
		if filter.AssigneeID != nil && (stored.AssigneeID == nil || *stored.AssigneeID != *filter.AssigneeID) {
			continue
		}
		if filter.Category != nil && stored.Category != *filter.Category {
			continue
		}
		if !statusIn(stored.Status, filter.Statuses) || !inRange(stored.CreatedAt, filter.CreatedFrom, filter.CreatedTo) {
			continue
		}
		ticket := cloneTicket(stored)
		if err := repository.Validated(&ticket); err != nil {
			return nil, err
		}
		out = append(out, ticket)
	}
	sortByCreated(out, func(t domain.Ticket) time.Time { return t.CreatedAt }, func(t domain.Ticket) string { return t.ID }, filter.NewestFirst)
	return page(out, filter.Limit, filter.Offset), nil
}
