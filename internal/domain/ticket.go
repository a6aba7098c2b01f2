package domain

import (
	"errors"
	"strings"
	"time"
)

// TicketStatus enumerates lifecycle states for tickets and assignments.
type TicketStatus string

const (
	TicketStatusOpen       TicketStatus = "OPEN"
	TicketStatusInProgress TicketStatus = "IN_PROGRESS"
	TicketStatusResolved   TicketStatus = "RESOLVED"
	TicketStatusClosed     TicketStatus = "CLOSED"
)

// Rank orders statuses along the lifecycle. Unknown statuses rank below OPEN.
func (s TicketStatus) Rank() int {
	switch s {
	case TicketStatusOpen:
		return 0
	case TicketStatusInProgress:
		return 1
	case TicketStatusResolved:
		return 2
	case TicketStatusClosed:
		return 3
	default:
		return -1
	}
}

// Valid reports whether s is a known status.
func (s TicketStatus) Valid() bool {
	return s.Rank() >= 0
}

// Color is a severity color token attached to a category.
type Color string

// Priority is the human label derived from a severity color.
type Priority string

const (
	PriorityCritical Priority = "Critical"
	PriorityHigh     Priority = "High"
	PriorityMedium   Priority = "Medium"
	PriorityLow      Priority = "Low"
	PriorityUnknown  Priority = "Unknown"
)

// Ticket is an issue raised by an end user.
type Ticket struct {
	ID            string
	OwnerID       string
	CategoryKey   string
	Category      string
	Description   string
	Status        TicketStatus
	Color         Color
	AssigneeID    *string
	AssigneeEmail *string
	FeedbackID    *string
	ThreadID      *string
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// Thread returns the chat thread id, which defaults to the ticket id.
func (t *Ticket) Thread() string {
	if t.ThreadID != nil && *t.ThreadID != "" {
		return *t.ThreadID
	}
	return t.ID
}

// Validate checks the required field set of a stored ticket.
func (t *Ticket) Validate() error {
	var errs []error
	if t.ID == "" {
		errs = append(errs, errors.New("id required"))
	}
	if t.OwnerID == "" {
		errs = append(errs, errors.New("owner id required"))
	}
	if strings.TrimSpace(t.Category) == "" {
		errs = append(errs, errors.New("category required"))
	}
	if strings.TrimSpace(t.Description) == "" {
		errs = append(errs, errors.New("description required"))
	}
	if !t.Status.Valid() {
		errs = append(errs, errors.New("unknown status "+string(t.Status)))
	}
	return errors.Join(errs...)
}
