package memstore

import (
	"context"
	"time"

	"github.com/spec-kit/helpdesk-service/internal/domain"
	"github.com/spec-kit/helpdesk-service/internal/repository"
)

type messages struct{ db *DB }

func cloneMessage(m domain.TicketMessage) domain.TicketMessage {
	m.Attachments = append([]domain.AttachmentReference(nil), m.Attachments...)
	return m
}

func (r messages) Create(ctx context.Context, msg *domain.TicketMessage) error {
	if err := r.db.injected(OpMessageCreate); err != nil {
		return err
	}
	defer r.db.write(ctx)()
	if _, exists := r.db.messages[msg.ID]; exists {
		return repository.ErrDuplicate
	}
	for i := range msg.Attachments {
		msg.Attachments[i].MessageID = msg.ID
	}
	r.db.messages[msg.ID] = cloneMessage(*msg)
	return nil
}

func (r messages) ListByThread(ctx context.Context, threadID string) ([]domain.TicketMessage, error) {
	defer r.db.read(ctx)()
	var out []domain.TicketMessage
	for _, msg := range r.db.messages {
		if msg.ThreadID == threadID {
			out = append(out, cloneMessage(msg))
		}
	}
	sortByCreated(out, func(m domain.TicketMessage) time.Time { return m.CreatedAt }, func(m domain.TicketMessage) string { return m.ID }, false)
	return out, nil
}
