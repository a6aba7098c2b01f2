package events

import (
	"time"

	"github.com/spec-kit/helpdesk-service/internal/domain"
)

// EventType enumerates supported event identifiers.
type EventType string

const (
	EventTicketCreated     EventType = "ticket_created"
	EventTicketUpdated     EventType = "ticket_updated"
	EventTicketDeleted     EventType = "ticket_deleted"
	EventTicketAssigned    EventType = "ticket_assigned"
	EventTicketResolved    EventType = "ticket_resolved"
	EventTicketReconciled  EventType = "ticket_reconciled"
	EventFeedbackSubmitted EventType = "feedback_submitted"
	EventMessageAdded      EventType = "ticket_message_added"
)

// AllTypes lists every event type, for handlers that want all of them.
var AllTypes = []EventType{
	EventTicketCreated,
	EventTicketUpdated,
	EventTicketDeleted,
	EventTicketAssigned,
	EventTicketResolved,
	EventTicketReconciled,
	EventFeedbackSubmitted,
	EventMessageAdded,
}

// Actor identifies who caused an event. System events carry an empty
// AccountID.
type Actor struct {
	AccountID string      `json:"account_id,omitempty"`
	Role      domain.Role `json:"role,omitempty"`
}

// SystemActor is used by background repairs.
var SystemActor = Actor{Role: "system"}

// Event represents a domain event emitted by services.
type Event struct {
	ID        string      `json:"id"`
	Type      EventType   `json:"type"`
	TicketID  string      `json:"ticket_id"`
	Actor     Actor       `json:"actor"`
	Timestamp time.Time   `json:"timestamp"`
	Payload   interface{} `json:"payload"`
}

// TicketPayload describes a ticket after (or, for deletions, before) the
// change.
type TicketPayload struct {
	OwnerID    string              `json:"owner_id"`
	Category   string              `json:"category"`
	Color      domain.Color        `json:"color"`
	Status     domain.TicketStatus `json:"status"`
	AssigneeID string              `json:"assignee_id,omitempty"`
}

// AssignmentPayload describes an assignment and the ticket status it was
// paired with.
type AssignmentPayload struct {
	AssignmentID string              `json:"assignment_id"`
	OwnerID      string              `json:"owner_id"`
	AssigneeID   string              `json:"assignee_id"`
	Category     string              `json:"category"`
	Priority     domain.Priority     `json:"priority"`
	Status       domain.TicketStatus `json:"status"`
	TicketStatus domain.TicketStatus `json:"ticket_status"`
}

// FeedbackPayload describes a submitted rating. AssignmentID is set when
// the rating was mirrored onto the ticket's assignment.
type FeedbackPayload struct {
	FeedbackID   string `json:"feedback_id"`
	UserID       string `json:"user_id"`
	Category     string `json:"category"`
	Rating       int    `json:"rating"`
	Created      bool   `json:"created"`
	AssignmentID string `json:"assignment_id,omitempty"`
	AssigneeID   string `json:"assignee_id,omitempty"`
}

// MessageAddedPayload payload.
type MessageAddedPayload struct {
	MessageID   string      `json:"message_id"`
	ThreadID    string      `json:"thread_id"`
	AuthorID    string      `json:"author_id"`
	AuthorRole  domain.Role `json:"author_role"`
	BodyPreview string      `json:"body_preview"`
	Attachments int         `json:"attachments"`
}
