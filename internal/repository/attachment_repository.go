package repository

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/helpdesk-service/internal/domain"
)

// attachmentRepository persists attachment metadata for messageRepository.
type attachmentRepository struct {
	pool *pgxpool.Pool
}

func (r *attachmentRepository) create(ctx context.Context, attachment *domain.AttachmentReference) error {
	const query = `
        INSERT INTO message_attachments (id, message_id, storage_key, file_name, mime_type, size_bytes, created_at)
        VALUES ($1,$2,$3,$4,$5,$6,$7)`
	_, err := conn(ctx, r.pool).Exec(ctx, query,
		attachment.ID,
		attachment.MessageID,
		attachment.StorageKey,
		attachment.FileName,
		attachment.MimeType,
		attachment.SizeBytes,
		attachment.CreatedAt,
	)
	return mapPgError(err)
}

// listByThread loads every attachment of a thread in one query, keyed by message id.
func (r *attachmentRepository) listByThread(ctx context.Context, threadID string) (map[string][]domain.AttachmentReference, error) {
	const query = `
        SELECT a.id, a.message_id, a.storage_key, a.file_name, a.mime_type, a.size_bytes, a.created_at
        FROM message_attachments a
        JOIN ticket_messages m ON m.id = a.message_id
        WHERE m.thread_id=$1
        ORDER BY a.created_at ASC`
	rows, err := conn(ctx, r.pool).Query(ctx, query, threadID)
	if err != nil {
		return nil, mapPgError(err)
	}
	defer rows.Close()

	result := make(map[string][]domain.AttachmentReference)
	for rows.Next() {
		var attachment domain.AttachmentReference
		if err := rows.Scan(
			&attachment.ID,
			&attachment.MessageID,
			&attachment.StorageKey,
			&attachment.FileName,
			&attachment.MimeType,
			&attachment.SizeBytes,
			&attachment.CreatedAt,
		); err != nil {
			return nil, err
		}
		result[attachment.MessageID] = append(result[attachment.MessageID], attachment)
	}
	return result, rows.Err()
}
