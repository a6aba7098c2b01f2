package dto

import (
	"time"

	"github.com/spec-kit/helpdesk-service/internal/domain"
)

// AssignRequest payload for POST /v1/tickets/:id/assignment.
type AssignRequest struct {
	AssigneeID string `json:"assignee_id" validate:"required"`
}

// CandidatesResponse lists the staff eligible for a ticket.
type CandidatesResponse struct {
	Role  domain.Role       `json:"role"`
	Staff []AccountResponse `json:"staff"`
}

// AssignmentResponse is an assignment record.
type AssignmentResponse struct {
	ID              string              `json:"id"`
	TicketID        string              `json:"ticket_id"`
	Category        string              `json:"category"`
	Description     string              `json:"description"`
	Color           domain.Color        `json:"color"`
	Priority        domain.Priority     `json:"priority"`
	AssigneeID      string              `json:"assignee_id"`
	AssigneeEmail   string              `json:"assignee_email"`
	AdminID         string              `json:"admin_id"`
	Status          domain.TicketStatus `json:"status"`
	FeedbackRating  *int                `json:"feedback_rating,omitempty"`
	FeedbackComment *string             `json:"feedback_comment,omitempty"`
	CreatedAt       time.Time           `json:"created_at"`
	UpdatedAt       time.Time           `json:"updated_at"`
	ResolvedAt      *time.Time          `json:"resolved_at,omitempty"`
}

// AssignmentResult pairs an assignment with its updated ticket.
type AssignmentResult struct {
	Assignment AssignmentResponse `json:"assignment"`
	Ticket     TicketResponse     `json:"ticket"`
}

// ReconcileResponse reports whether a repair was written.
type ReconcileResponse struct {
	TicketID string `json:"ticket_id"`
	Repaired bool   `json:"repaired"`
}
