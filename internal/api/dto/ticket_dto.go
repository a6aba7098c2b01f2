package dto

import (
	"time"

	"github.com/spec-kit/helpdesk-service/internal/domain"
)

// CreateTicketRequest payload. Category is a registry key.
type CreateTicketRequest struct {
	Category    string `json:"category" validate:"required,max=64"`
	Description string `json:"description" validate:"required,max=4000"`
}

// UpdateTicketRequest payload; omitted fields stay unchanged.
type UpdateTicketRequest struct {
	Category    *string `json:"category" validate:"omitempty,min=1,max=64"`
	Description *string `json:"description" validate:"omitempty,min=1,max=4000"`
}

// TicketResponse is a ticket as returned to clients.
type TicketResponse struct {
	ID            string              `json:"id"`
	OwnerID       string              `json:"owner_id"`
	CategoryKey   string              `json:"category_key"`
	Category      string              `json:"category"`
	Description   string              `json:"description"`
	Status        domain.TicketStatus `json:"status"`
	Color         domain.Color        `json:"color"`
	Priority      domain.Priority     `json:"priority"`
	AssigneeID    *string             `json:"assignee_id"`
	AssigneeEmail *string             `json:"assignee_email"`
	FeedbackID    *string             `json:"feedback_id"`
	CreatedAt     time.Time           `json:"created_at"`
	UpdatedAt     time.Time           `json:"updated_at"`
}

// CategoryResponse is one registry entry. Role is null when the category
// has no routed owner.
type CategoryResponse struct {
	Key      string          `json:"key"`
	Name     string          `json:"name"`
	Color    domain.Color    `json:"color"`
	Priority domain.Priority `json:"priority"`
	Role     *domain.Role    `json:"role"`
}
