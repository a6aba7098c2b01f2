package repository

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/helpdesk-service/internal/domain"
)

type feedbackRepository struct {
	pool *pgxpool.Pool
}

// NewFeedbackRepository instantiates repository.
func NewFeedbackRepository(pool *pgxpool.Pool) FeedbackRepository {
	return &feedbackRepository{pool: pool}
}

const feedbackColumns = `id, ticket_id, user_id, email, category, rating, comment, created_at, updated_at`

// Upsert relies on the (ticket_id, user_id) unique index; xmax is zero only
// for a freshly inserted row.
func (r *feedbackRepository) Upsert(ctx context.Context, fb *domain.Feedback) (bool, error) {
	const query = `
        INSERT INTO feedback (id, ticket_id, user_id, email, category, rating, comment, created_at, updated_at)
        VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)
        ON CONFLICT (ticket_id, user_id) DO UPDATE
            SET email=EXCLUDED.email, rating=EXCLUDED.rating, comment=EXCLUDED.comment,
                updated_at=EXCLUDED.updated_at
        RETURNING id, created_at, (xmax = 0) AS inserted`
	var inserted bool
	err := conn(ctx, r.pool).QueryRow(ctx, query,
		fb.ID,
		fb.TicketID,
		fb.UserID,
		fb.Email,
		fb.Category,
		fb.Rating,
		fb.Comment,
		fb.CreatedAt,
		fb.UpdatedAt,
	).Scan(&fb.ID, &fb.CreatedAt, &inserted)
	if err != nil {
		return false, mapPgError(err)
	}
	return inserted, nil
}

func (r *feedbackRepository) GetByTicketAndUser(ctx context.Context, ticketID, userID string) (*domain.Feedback, error) {
	query := `SELECT ` + feedbackColumns + ` FROM feedback WHERE ticket_id=$1 AND user_id=$2`
	fb, err := scanFeedback(conn(ctx, r.pool).QueryRow(ctx, query, ticketID, userID))
	if err != nil {
		return nil, mapPgError(err)
	}
	if err := Validated(fb); err != nil {
		return nil, err
	}
	return fb, nil
}

func (r *feedbackRepository) List(ctx context.Context, filter FeedbackFilter) ([]domain.Feedback, error) {
	var where whereBuilder
	if filter.TicketID != nil {
		where.eq("ticket_id", *filter.TicketID)
	}
	if filter.UserID != nil {
		where.eq("user_id", *filter.UserID)
	}
	if filter.Category != nil {
		where.eq("category", *filter.Category)
	}
	if filter.MinRating > 0 {
		where.cmp("rating", ">=", filter.MinRating)
	}
	if filter.MaxRating > 0 {
		where.cmp("rating", "<=", filter.MaxRating)
	}

	query := `SELECT ` + feedbackColumns + ` FROM feedback` + where.sql() +
		orderAndPage("created_at", filter.NewestFirst, filter.Limit, filter.Offset)

	rows, err := conn(ctx, r.pool).Query(ctx, query, where.args...)
	if err != nil {
		return nil, mapPgError(err)
	}
	defer rows.Close()

	var result []domain.Feedback
	for rows.Next() {
		fb, err := scanFeedback(rows)
		if err != nil {
			return nil, err
		}
		if err := Validated(fb); err != nil {
			return nil, err
		}
		result = append(result, *fb)
	}
	return result, rows.Err()
}

func scanFeedback(row pgx.Row) (*domain.Feedback, error) {
	var fb domain.Feedback
	if err := row.Scan(
		&fb.ID,
		&fb.TicketID,
		&fb.UserID,
		&fb.Email,
		&fb.Category,
		&fb.Rating,
		&fb.Comment,
		&fb.CreatedAt,
		&fb.UpdatedAt,
	); err != nil {
		return nil, err
	}
	return &fb, nil
}
