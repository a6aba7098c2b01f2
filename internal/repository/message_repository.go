package repository

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/helpdesk-service/internal/domain"
)

type messageRepository struct {
	pool        *pgxpool.Pool
	attachments *attachmentRepository
}

// NewMessageRepository builds repository.
func NewMessageRepository(pool *pgxpool.Pool) MessageRepository {
	return &messageRepository{pool: pool, attachments: &attachmentRepository{pool: pool}}
}

func (r *messageRepository) Create(ctx context.Context, msg *domain.TicketMessage) error {
	const query = `
        INSERT INTO ticket_messages (id, thread_id, author_id, author_email, author_role, body, created_at)
        VALUES ($1,$2,$3,$4,$5,$6,$7)`
	if _, err := conn(ctx, r.pool).Exec(ctx, query,
		msg.ID,
		msg.ThreadID,
		msg.AuthorID,
		msg.AuthorEmail,
		msg.AuthorRole,
		msg.Body,
		msg.CreatedAt,
	); err != nil {
		return mapPgError(err)
	}
	for i := range msg.Attachments {
		msg.Attachments[i].MessageID = msg.ID
		if err := r.attachments.create(ctx, &msg.Attachments[i]); err != nil {
			return err
		}
	}
	return nil
}

func (r *messageRepository) ListByThread(ctx context.Context, threadID string) ([]domain.TicketMessage, error) {
	const query = `
        SELECT id, thread_id, author_id, author_email, author_role, body, created_at
        FROM ticket_messages WHERE thread_id=$1 ORDER BY created_at ASC, id ASC`
	rows, err := conn(ctx, r.pool).Query(ctx, query, threadID)
	if err != nil {
		return nil, mapPgError(err)
	}
	defer rows.Close()

	var result []domain.TicketMessage
	for rows.Next() {
		var msg domain.TicketMessage
		if err := rows.Scan(
			&msg.ID,
			&msg.ThreadID,
			&msg.AuthorID,
			&msg.AuthorEmail,
			&msg.AuthorRole,
			&msg.Body,
			&msg.CreatedAt,
		); err != nil {
			return nil, err
		}
		result = append(result, msg)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	byMessage, err := r.attachments.listByThread(ctx, threadID)
	if err != nil {
		return nil, err
	}
	for i := range result {
		result[i].Attachments = byMessage[result[i].ID]
	}
	return result, nil
}
