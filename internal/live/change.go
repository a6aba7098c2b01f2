// Package live turns store mutations into continuously updated view
// snapshots. A Subscription yields the current result of its Query once and
// then again after every change that could affect it, until cancelled.
package live

import (
	"errors"
	"fmt"
	"time"

	"github.com/spec-kit/helpdesk-service/internal/domain"
)

// Kind names the collection a query or change refers to.
type Kind string

const (
	KindTickets     Kind = "tickets"
	KindAssignments Kind = "assignments"
	KindFeedback    Kind = "feedback"
)

// Valid reports whether k is a known collection.
func (k Kind) Valid() bool {
	switch k {
	case KindTickets, KindAssignments, KindFeedback:
		return true
	}
	return false
}

// Op is the mutation kind carried by a Change.
type Op string

const (
	OpPut    Op = "put"
	OpRemove Op = "remove"
)

// Change is one record mutation. OwnerID and AssigneeID are the identities
// that can see the record; they are what subscriptions are matched on.
type Change struct {
	Kind       Kind      `cbor:"kind"`
	Op         Op        `cbor:"op"`
	ID         string    `cbor:"id"`
	TicketID   string    `cbor:"ticket_id,omitempty"`
	OwnerID    string    `cbor:"owner_id,omitempty"`
	AssigneeID string    `cbor:"assignee_id,omitempty"`
	At         time.Time `cbor:"at"`
}

// Query declares what a view shows. Empty fields do not filter.
type Query struct {
	Kind        Kind
	OwnerID     string
	AssigneeID  string
	Statuses    []domain.TicketStatus
	Category    string
	NewestFirst bool
	Limit       int
}

// Validate checks that q names a collection and sane filters.
func (q Query) Validate() error {
	if !q.Kind.Valid() {
		return fmt.Errorf("unknown kind %q", q.Kind)
	}
	if q.Limit < 0 {
		return errors.New("limit must not be negative")
	}
	for _, s := range q.Statuses {
		if !s.Valid() {
			return fmt.Errorf("unknown status %q", s)
		}
	}
	if q.Kind == KindFeedback && len(q.Statuses) > 0 {
		return errors.New("feedback has no status")
	}
	if q.Kind == KindAssignments && q.OwnerID != "" {
		return errors.New("assignments are filtered by assignee, not owner")
	}
	if q.Kind == KindFeedback && q.AssigneeID != "" {
		return errors.New("feedback is filtered by owner, not assignee")
	}
	return nil
}

// Matches reports whether c may change the result of q. Status and category
// are not compared: a mutation can move a record into or out of the view,
// so any change to a record the viewer can see triggers a reload.
func (q Query) Matches(c Change) bool {
	if c.Kind != q.Kind {
		return false
	}
	if q.OwnerID != "" && c.OwnerID != q.OwnerID {
		return false
	}
	if q.AssigneeID != "" && c.AssigneeID != q.AssigneeID {
		return false
	}
	return true
}
