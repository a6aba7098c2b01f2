package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/spec-kit/helpdesk-service/internal/domain"
	"github.com/spec-kit/helpdesk-service/internal/events"
	"github.com/spec-kit/helpdesk-service/internal/lifecycle"
	"github.com/spec-kit/helpdesk-service/internal/observability"
	"github.com/spec-kit/helpdesk-service/internal/repository"
	apperrors "github.com/spec-kit/helpdesk-service/pkg/util"
)

// FeedbackService collects satisfaction ratings on closed tickets.
type FeedbackService struct {
	store      *repository.Store
	dispatcher events.Dispatcher
	metrics    *observability.Metrics
	logger     *zap.Logger
	now        func() time.Time
}

// FeedbackDependencies bundles collaborators.
type FeedbackDependencies struct {
	Store      *repository.Store
	Dispatcher events.Dispatcher
	Metrics    *observability.Metrics
	Logger     *zap.Logger
}

// FeedbackInput is a rating submission.
type FeedbackInput struct {
	Rating  int
	Comment string
}

// FeedbackListFilter narrows feedback listings. Band selects a rating range.
type FeedbackListFilter struct {
	TicketID    *string
	Category    *string
	Band        *domain.RatingBand
	NewestFirst bool
	Limit       int
	Offset      int
}

// NewFeedbackService creates the service.
func NewFeedbackService(deps FeedbackDependencies) *FeedbackService {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &FeedbackService{
		store:      deps.Store,
		dispatcher: deps.Dispatcher,
		metrics:    deps.Metrics,
		logger:     logger,
		now:        utcNow,
	}
}

// SubmitFeedback records the owner's rating for a CLOSED ticket. A second
// submission for the same ticket and user updates the existing record. The
// rating is mirrored onto the ticket's assignment in the same transaction;
// the mirror is written first so a store without transactions can restore it.
func (s *FeedbackService) SubmitFeedback(ctx context.Context, actor *domain.Account, ticketID string, input FeedbackInput) (*domain.Feedback, bool, error) {
	if err := requireActor(actor); err != nil {
		return nil, false, err
	}
	comment := strings.TrimSpace(input.Comment)
	if err := validateFeedback(input.Rating, comment); err != nil {
		return nil, false, err
	}
	ticket, err := s.store.Tickets.GetByID(ctx, ticketID)
	if err != nil {
		return nil, false, readError("ticket", ticketID, err)
	}
	if ticket.OwnerID != actor.ID {
		return nil, false, apperrors.NewForbidden("only the ticket owner may rate it")
	}
	if _, err := lifecycle.Check(lifecycle.ActionCollectFeedback, ticket.Status, lifecycle.ActorFor(actor.Role)); err != nil {
		return nil, false, lifecycleError(err, map[string]any{"ticket_id": ticket.ID, "status": ticket.Status})
	}

	now := s.now()
	fb := &domain.Feedback{
		ID:        uuid.NewString(),
		TicketID:  ticket.ID,
		UserID:    actor.ID,
		Email:     actor.Email,
		Category:  ticket.Category,
		Rating:    input.Rating,
		Comment:   comment,
		CreatedAt: now,
		UpdatedAt: now,
	}
	var (
		created    bool
		assignment *domain.Assignment
	)
	err = s.store.Tx.WithinTx(ctx, func(ctx context.Context) error {
		a, err := s.store.Assignments.GetByTicket(ctx, ticket.ID)
		switch {
		case errors.Is(err, repository.ErrNotFound):
			a = nil
		case err != nil:
			return err
		}

		var before domain.Assignment
		if a != nil {
			before = *a
			a.FeedbackRating = ptr(fb.Rating)
			a.FeedbackComment = ptr(fb.Comment)
			a.UpdatedAt = now
			if err := s.store.Assignments.Update(ctx, a); err != nil {
				return err
			}
		}

		created, err = s.store.Feedback.Upsert(ctx, fb)
		if err != nil {
			if a != nil {
				compensate(ctx, s.store, s.logger, "feedback mirror", func(ctx context.Context) error {
					return s.store.Assignments.Update(ctx, &before)
				})
			}
			return err
		}
		assignment = a
		return nil
	})
	if err != nil {
		return nil, false, writeError("submit feedback", err)
	}

	outcome := "updated"
	if created {
		outcome = "created"
	}
	s.metrics.FeedbackSubmitted(string(domain.BandFor(fb.Rating)), outcome)
	payload := events.FeedbackPayload{
		FeedbackID: fb.ID,
		UserID:     fb.UserID,
		Category:   fb.Category,
		Rating:     fb.Rating,
		Created:    created,
	}
	if assignment != nil {
		payload.AssignmentID = assignment.ID
		payload.AssigneeID = assignment.AssigneeID
	}
	publish(ctx, s.dispatcher, events.Event{
		Type:     events.EventFeedbackSubmitted,
		TicketID: ticket.ID,
		Actor:    actorOf(actor),
		Payload:  payload,
	})
	return fb, created, nil
}

// GetFeedback returns the caller's feedback for a ticket.
func (s *FeedbackService) GetFeedback(ctx context.Context, actor *domain.Account, ticketID string) (*domain.Feedback, error) {
	if err := requireActor(actor); err != nil {
		return nil, err
	}
	fb, err := s.store.Feedback.GetByTicketAndUser(ctx, ticketID, actor.ID)
	if err != nil {
		return nil, readError("feedback", ticketID, err)
	}
	return fb, nil
}

// ListFeedback returns all feedback to admins and the caller's own to
// everyone else.
func (s *FeedbackService) ListFeedback(ctx context.Context, actor *domain.Account, filter FeedbackListFilter) ([]domain.Feedback, error) {
	if err := requireActor(actor); err != nil {
		return nil, err
	}
	repoFilter := repository.FeedbackFilter{
		TicketID:    filter.TicketID,
		Category:    filter.Category,
		NewestFirst: filter.NewestFirst,
		Limit:       filter.Limit,
		Offset:      filter.Offset,
	}
	if filter.Band != nil {
		lo, hi, err := bandRange(*filter.Band)
		if err != nil {
			return nil, err
		}
		repoFilter.MinRating, repoFilter.MaxRating = lo, hi
	}
	if actor.Role != domain.RoleAdmin {
		repoFilter.UserID = ptr(actor.ID)
	}
	list, err := s.store.Feedback.List(ctx, repoFilter)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	return list, nil
}

// Stats aggregates feedback, optionally for one category.
func (s *FeedbackService) Stats(ctx context.Context, actor *domain.Account, category *string) (domain.FeedbackStats, error) {
	list, err := s.ListFeedback(ctx, actor, FeedbackListFilter{Category: category})
	if err != nil {
		return domain.FeedbackStats{}, err
	}
	return computeStats(list), nil
}

func computeStats(list []domain.Feedback) domain.FeedbackStats {
	var stats domain.FeedbackStats
	sum := 0
	for _, fb := range list {
		stats.Total++
		sum += fb.Rating
		switch domain.BandFor(fb.Rating) {
		case domain.RatingBandPositive:
			stats.Positive++
		case domain.RatingBandNeutral:
			stats.Neutral++
		default:
			stats.Negative++
		}
	}
	if stats.Total > 0 {
		stats.AverageRating = float64(sum) / float64(stats.Total)
	}
	return stats
}

func bandRange(band domain.RatingBand) (int, int, error) {
	switch band {
	case domain.RatingBandPositive:
		return 4, domain.MaxRating, nil
	case domain.RatingBandNeutral:
		return 2, 3, nil
	case domain.RatingBandNegative:
		return domain.MinRating, 1, nil
	default:
		return 0, 0, apperrors.NewValidationError("unknown rating band", map[string]any{"band": band})
	}
}

func validateFeedback(rating int, comment string) error {
	details := map[string]any{}
	if rating < domain.MinRating || rating > domain.MaxRating {
		details["rating"] = "rating must be between 1 and 5"
	}
	if comment == "" {
		details["comment"] = "comment is required"
	}
	if len(details) > 0 {
		return apperrors.NewValidationError("invalid feedback", details)
	}
	return nil
}
