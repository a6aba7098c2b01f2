package dto

import "time"

// FeedbackRequest payload for POST /v1/tickets/:id/feedback.
type FeedbackRequest struct {
	Rating  int    `json:"rating" validate:"required,min=1,max=5"`
	Comment string `json:"comment" validate:"required,max=2000"`
}

// FeedbackResponse is a feedback record.
type FeedbackResponse struct {
	ID        string    `json:"id"`
	TicketID  string    `json:"ticket_id"`
	UserID    string    `json:"user_id"`
	Email     string    `json:"email"`
	Category  string    `json:"category"`
	Rating    int       `json:"rating"`
	Band      string    `json:"band"`
	Comment   string    `json:"comment"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// FeedbackStatsResponse aggregates feedback ratings.
type FeedbackStatsResponse struct {
	Total         int     `json:"total"`
	Positive      int     `json:"positive"`
	Neutral       int     `json:"neutral"`
	Negative      int     `json:"negative"`
	AverageRating float64 `json:"average_rating"`
}
