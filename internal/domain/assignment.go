package domain

import (
	"errors"
	"time"
)

// Assignment is the work item created when an admin routes a ticket to staff.
type Assignment struct {
	ID              string
	TicketID        string
	Category        string
	Description     string
	Color           Color
	Priority        Priority
	AssigneeID      string
	AssigneeEmail   string
	AdminID         string
	Status          TicketStatus
	FeedbackRating  *int
	FeedbackComment *string
	CreatedAt       time.Time
	UpdatedAt       time.Time
	ResolvedAt      *time.Time
}

// Validate checks the required field set of a stored assignment.
func (a *Assignment) Validate() error {
	var errs []error
	if a.ID == "" {
		errs = append(errs, errors.New("id required"))
	}
	if a.TicketID == "" {
		errs = append(errs, errors.New("ticket id required"))
	}
	if a.Category == "" {
		errs = append(errs, errors.New("category required"))
	}
	if a.AssigneeID == "" {
		errs = append(errs, errors.New("assignee required"))
	}
	if a.Status != TicketStatusInProgress && a.Status != TicketStatusResolved {
		errs = append(errs, errors.New("unknown assignment status "+string(a.Status)))
	}
	return errors.Join(errs...)
}
