package domain

import (
	"errors"
	"time"
)

const (
	MinRating = 1
	MaxRating = 5
)

// Feedback is a satisfaction rating tied to a closed ticket. There is at
// most one per (TicketID, UserID).
type Feedback struct {
	ID        string
	TicketID  string
	UserID    string
	Email     string
	Category  string
	Rating    int
	Comment   string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Validate checks the required field set of a stored feedback record.
func (f *Feedback) Validate() error {
	var errs []error
	if f.ID == "" {
		errs = append(errs, errors.New("id required"))
	}
	if f.TicketID == "" || f.UserID == "" {
		errs = append(errs, errors.New("ticket id and user id required"))
	}
	if f.Rating < MinRating || f.Rating > MaxRating {
		errs = append(errs, errors.New("rating out of range"))
	}
	return errors.Join(errs...)
}

// FeedbackStats aggregates ratings for the admin dashboard.
type FeedbackStats struct {
	Total         int
	Positive      int
	Neutral       int
	Negative      int
	AverageRating float64
}

// RatingBand classifies ratings the way the feedback dashboard filters them.
type RatingBand string

const (
	RatingBandPositive RatingBand = "positive"
	RatingBandNeutral  RatingBand = "neutral"
	RatingBandNegative RatingBand = "negative"
)

// BandFor returns the band a rating falls into.
func BandFor(rating int) RatingBand {
	switch {
	case rating >= 4:
		return RatingBandPositive
	case rating >= 2:
		return RatingBandNeutral
	default:
		return RatingBandNegative
	}
}
