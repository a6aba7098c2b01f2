package memstore

import (
	"context"
	"time"

	"github.com/spec-kit/helpdesk-service/internal/domain"
	"github.com/spec-kit/helpdesk-service/internal/repository"
)

type assignments struct{ db *DB }

func cloneAssignment(a domain.Assignment) domain.Assignment {
	if a.FeedbackRating != nil {
		v := *a.FeedbackRating
		a.FeedbackRating = &v
	}
	a.FeedbackComment = cloneString(a.FeedbackComment)
	if a.ResolvedAt != nil {
		v := *a.ResolvedAt
		a.ResolvedAt = &v
	}
	return a
}

// Create enforces one assignment per ticket.
func (r assignments) Create(ctx context.Context, a *domain.Assignment) error {
	if err := r.db.injected(OpAssignmentCreate); err != nil {
		return err
	}
	defer r.db.write(ctx)()
	if _, exists := r.db.assignments[a.ID]; exists {
		return repository.ErrDuplicate
	}
	for _, existing := range r.db.assignments {
		if existing.TicketID == a.TicketID {
			return repository.ErrDuplicate
		}
	}
	r.db.assignments[a.ID] = cloneAssignment(*a)
	return nil
}

func (r assignments) Update(ctx context.Context, a *domain.Assignment) error {
	if err := r.db.injected(OpAssignmentUpdate); err != nil {
		return err
	}
	defer r.db.write(ctx)()
	if _, ok := r.db.assignments[a.ID]; !ok {
		return repository.ErrNotFound
	}
	r.db.assignments[a.ID] = cloneAssignment(*a)
	return nil
}

func (r assignments) Delete(ctx context.Context, id string) error {
	if err := r.db.injected(OpAssignmentDelete); err != nil {
		return err
	}
	defer r.db.write(ctx)()
	if _, ok := r.db.assignments[id]; !ok {
		return repository.ErrNotFound
	}
	delete(r.db.assignments, id)
	return nil
}

func (r assignments) GetByID(ctx context.Context, id string) (*domain.Assignment, error) {
	defer r.db.read(ctx)()
	stored, ok := r.db.assignments[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	a := cloneAssignment(stored)
	if err := repository.Validated(&a); err != nil {
		return nil, err
	}
	return &a, nil
}

func (r assignments) GetByTicket(ctx context.Context, ticketID string) (*domain.Assignment, error) {
	defer r.db.read(ctx)()
	for _, stored := range r.db.assignments {
		if stored.TicketID == ticketID {
			a := cloneAssignment(stored)
			if err := repository.Validated(&a); err != nil {
				return nil, err
			}
			return &a, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (r assignments) List(ctx context.Context, filter repository.AssignmentFilter) ([]domain.Assignment, error) {
	defer r.db.read(ctx)()
	var out []domain.Assignment
	for _, stored := range r.db.assignments {
		if filter.AssigneeID != nil && stored.AssigneeID != *filter.AssigneeID {
			continue
		}
		if filter.Category != nil && stored.Category != *filter.Category {
			continue
		}
		if !statusIn(stored.Status, filter.Statuses) || !inRange(stored.CreatedAt, filter.CreatedFrom, filter.CreatedTo) {
			continue
		}
		a := cloneAssignment(stored)
		if err := repository.Validated(&a); err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	sortByCreated(out, func(a domain.Assignment) time.Time { return a.CreatedAt }, func(a domain.Assignment) string { return a.ID }, filter.NewestFirst)
	return page(out, filter.Limit, filter.Offset), nil
}
