package live

import (
	"context"
	"fmt"
	"time"

	"github.com/spec-kit/helpdesk-service/internal/domain"
	"github.com/spec-kit/helpdesk-service/internal/repository"
)

// Snapshot is the full result of a Query at one point in time. Only the
// slice matching Kind is populated. Changes lists the mutations that
// triggered the reload; it is empty for the initial snapshot. Resync is set
// when some notifications were dropped and the snapshot was rebuilt anyway.
type Snapshot struct {
	Seq         uint64
	Kind        Kind
	Tickets     []domain.Ticket
	Assignments []domain.Assignment
	Feedback    []domain.Feedback
	Changes     []Change
	Resync      bool
	LoadedAt    time.Time
}

// Len returns the number of records in the snapshot.
func (s Snapshot) Len() int {
	switch s.Kind {
	case KindTickets:
		return len(s.Tickets)
	case KindAssignments:
		return len(s.Assignments)
	default:
		return len(s.Feedback)
	}
}

// Loader evaluates a query against the source of truth.
type Loader interface {
	Load(ctx context.Context, q Query) (Snapshot, error)
}

// LoaderFunc adapts a function to Loader.
type LoaderFunc func(ctx context.Context, q Query) (Snapshot, error)

// Load implements Loader.
func (f LoaderFunc) Load(ctx context.Context, q Query) (Snapshot, error) {
	return f(ctx, q)
}

// StoreLoader evaluates queries with the repository layer.
type StoreLoader struct {
	store *repository.Store
}

// NewStoreLoader returns a Loader backed by store.
func NewStoreLoader(store *repository.Store) *StoreLoader {
	return &StoreLoader{store: store}
}

// Load implements Loader.
func (l *StoreLoader) Load(ctx context.Context, q Query) (Snapshot, error) {
	snap := Snapshot{Kind: q.Kind, LoadedAt: time.Now().UTC()}
	var err error
	switch q.Kind {
	case KindTickets:
		snap.Tickets, err = l.store.Tickets.List(ctx, repository.TicketFilter{
			OwnerID:     optional(q.OwnerID),
			AssigneeID:  optional(q.AssigneeID),
			Statuses:    q.Statuses,
			Category:    optional(q.Category),
			NewestFirst: q.NewestFirst,
			Limit:       q.Limit,
		})
	case KindAssignments:
		snap.Assignments, err = l.store.Assignments.List(ctx, repository.AssignmentFilter{
			AssigneeID:  optional(q.AssigneeID),
			Statuses:    q.Statuses,
			Category:    optional(q.Category),
			NewestFirst: q.NewestFirst,
			Limit:       q.Limit,
		})
	case KindFeedback:
		snap.Feedback, err = l.store.Feedback.List(ctx, repository.FeedbackFilter{
			UserID:      optional(q.OwnerID),
			Category:    optional(q.Category),
			NewestFirst: q.NewestFirst,
			Limit:       q.Limit,
		})
	default:
		return Snapshot{}, fmt.Errorf("unknown kind %q", q.Kind)
	}
	if err != nil {
		return Snapshot{}, fmt.Errorf("load %s: %w", q.Kind, err)
	}
	return snap, nil
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
