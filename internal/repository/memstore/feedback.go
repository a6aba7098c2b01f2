package memstore

import (
	"context"
	"time"

	"github.com/spec-kit/helpdesk-service/internal/domain"
	"github.com/spec-kit/helpdesk-service/internal/repository"
)

type feedbackRepo struct{ db *DB }

func (r feedbackRepo) Upsert(ctx context.Context, fb *domain.Feedback) (bool, error) {
	if err := r.db.injected(OpFeedbackUpsert); err != nil {
		return false, err
	}
	defer r.db.write(ctx)()
	for id, existing := range r.db.feedback {
		if existing.TicketID == fb.TicketID && existing.UserID == fb.UserID {
			fb.ID = id
			fb.CreatedAt = existing.CreatedAt
			fb.Category = existing.Category
			r.db.feedback[id] = *fb
			return false, nil
		}
	}
	r.db.feedback[fb.ID] = *fb
	return true, nil
}

func (r feedbackRepo) GetByTicketAndUser(ctx context.Context, ticketID, userID string) (*domain.Feedback, error) {
	defer r.db.read(ctx)()
	for _, fb := range r.db.feedback {
		if fb.TicketID == ticketID && fb.UserID == userID {
			if err := repository.Validated(&fb); err != nil {
				return nil, err
			}
			return &fb, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (r feedbackRepo) List(ctx context.Context, filter repository.FeedbackFilter) ([]domain.Feedback, error) {
	defer r.db.read(ctx)()
	var out []domain.Feedback
	for _, fb := range r.db.feedback {
		if filter.TicketID != nil && fb.TicketID != *filter.TicketID {
			continue
		}
		if filter.UserID != nil && fb.UserID != *filter.UserID {
			continue
		}
		if filter.Category != nil && fb.Category != *filter.Category {
			continue
		}
		if filter.MinRating > 0 && fb.Rating < filter.MinRating {
			continue
		}
		if filter.MaxRating > 0 && fb.Rating > filter.MaxRating {
			continue
		}
		if err := repository.Validated(&fb); err != nil {
			return nil, err
		}
		out = append(out, fb)
	}
	sortByCreated(out, func(f domain.Feedback) time.Time { return f.CreatedAt }, func(f domain.Feedback) string { return f.ID }, filter.NewestFirst)
	return page(out, filter.Limit, filter.Offset), nil
}
