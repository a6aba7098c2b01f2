package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/spec-kit/helpdesk-service/internal/domain"
	"github.com/spec-kit/helpdesk-service/internal/events"
	"github.com/spec-kit/helpdesk-service/internal/repository"
	apperrors "github.com/spec-kit/helpdesk-service/pkg/util"
)

const maxAttachmentsPerMessage = 5

// AttachmentStore holds attachment bytes. *persistence.Objects implements it.
type AttachmentStore interface {
	Enabled() bool
	Put(ctx context.Context, key string, r io.Reader, size int64, contentType string) error
	Remove(ctx context.Context, key string) error
	PresignedURL(ctx context.Context, key, fileName string) (string, error)
}

// MessageService manages ticket chat threads.
type MessageService struct {
	store      *repository.Store
	objects    AttachmentStore
	dispatcher events.Dispatcher
	logger     *zap.Logger
	now        func() time.Time
}

// MessageDependencies bundles collaborators.
type MessageDependencies struct {
	Store      *repository.Store
	Objects    AttachmentStore
	Dispatcher events.Dispatcher
	Logger     *zap.Logger
}

// AttachmentUpload is one file sent with a message.
type AttachmentUpload struct {
	FileName    string
	ContentType string
	Size        int64
	Body        io.Reader
}

// AttachmentLink is attachment metadata with a download URL. URL is empty
// when object storage is unavailable.
type AttachmentLink struct {
	domain.AttachmentReference
	URL string
}

// ThreadMessage is a message as listed to clients.
type ThreadMessage struct {
	domain.TicketMessage
	Links []AttachmentLink
}

// NewMessageService creates the service.
func NewMessageService(deps MessageDependencies) *MessageService {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &MessageService{
		store:      deps.Store,
		objects:    deps.Objects,
		dispatcher: deps.Dispatcher,
		logger:     logger,
		now:        utcNow,
	}
}

// PostMessage appends a message to a ticket thread. The owner, admins and
// the assigned staff member may post. Uploaded objects are removed again if
// the message cannot be stored.
func (s *MessageService) PostMessage(ctx context.Context, actor *domain.Account, ticketID, body string, uploads []AttachmentUpload) (*domain.TicketMessage, error) {
	if err := requireActor(actor); err != nil {
		return nil, err
	}
	body = strings.TrimSpace(body)
	if body == "" && len(uploads) == 0 {
		return nil, apperrors.NewValidationError("message is empty", map[string]any{"body": "body or attachment is required"})
	}
	if len(uploads) > maxAttachmentsPerMessage {
		return nil, apperrors.NewValidationError("too many attachments", map[string]any{"attachments": fmt.Sprintf("at most %d files", maxAttachmentsPerMessage)})
	}
	if len(uploads) > 0 && (s.objects == nil || !s.objects.Enabled()) {
		return nil, apperrors.NewValidationError("attachments are not enabled", nil)
	}
	ticket, err := s.store.Tickets.GetByID(ctx, ticketID)
	if err != nil {
		return nil, readError("ticket", ticketID, err)
	}
	if !canViewTicket(actor, ticket) {
		return nil, apperrors.NewForbidden("access denied")
	}

	now := s.now()
	msg := &domain.TicketMessage{
		ID:          uuid.NewString(),
		ThreadID:    ticket.Thread(),
		AuthorID:    actor.ID,
		AuthorEmail: actor.Email,
		AuthorRole:  actor.Role,
		Body:        body,
		CreatedAt:   now,
	}

	var uploaded []string
	for _, up := range uploads {
		ref := domain.AttachmentReference{
			ID:        uuid.NewString(),
			MessageID: msg.ID,
			FileName:  cleanFileName(up.FileName),
			MimeType:  contentTypeOr(up.ContentType),
			SizeBytes: up.Size,
			CreatedAt: now,
		}
		ref.StorageKey = path.Join("tickets", ticket.ID, msg.ID, ref.ID+"-"+ref.FileName)
		if err := s.objects.Put(ctx, ref.StorageKey, up.Body, up.Size, ref.MimeType); err != nil {
			s.discard(ctx, uploaded)
			return nil, apperrors.NewWriteFailed("upload attachment", err)
		}
		uploaded = append(uploaded, ref.StorageKey)
		msg.Attachments = append(msg.Attachments, ref)
	}

	if err := s.store.Messages.Create(ctx, msg); err != nil {
		s.discard(ctx, uploaded)
		return nil, writeError("post message", err)
	}

	publish(ctx, s.dispatcher, events.Event{
		Type:     events.EventMessageAdded,
		TicketID: ticket.ID,
		Actor:    actorOf(actor),
		Payload: events.MessageAddedPayload{
			MessageID:   msg.ID,
			ThreadID:    msg.ThreadID,
			AuthorID:    msg.AuthorID,
			AuthorRole:  msg.AuthorRole,
			BodyPreview: stringPreview(msg.Body, 120),
			Attachments: len(msg.Attachments),
		},
	})
	return msg, nil
}

// ListMessages returns a ticket thread oldest first, with presigned
// attachment links.
func (s *MessageService) ListMessages(ctx context.Context, actor *domain.Account, ticketID string) ([]ThreadMessage, error) {
	if err := requireActor(actor); err != nil {
		return nil, err
	}
	ticket, err := s.store.Tickets.GetByID(ctx, ticketID)
	if err != nil {
		return nil, readError("ticket", ticketID, err)
	}
	if !canViewTicket(actor, ticket) {
		return nil, apperrors.NewForbidden("access denied")
	}
	msgs, err := s.store.Messages.ListByThread(ctx, ticket.Thread())
	if err != nil {
		return nil, apperrors.MapError(err)
	}

	out := make([]ThreadMessage, 0, len(msgs))
	for _, msg := range msgs {
		tm := ThreadMessage{TicketMessage: msg}
		for _, att := range msg.Attachments {
			tm.Links = append(tm.Links, AttachmentLink{AttachmentReference: att, URL: s.link(ctx, att)})
		}
		out = append(out, tm)
	}
	return out, nil
}

func (s *MessageService) link(ctx context.Context, att domain.AttachmentReference) string {
	if s.objects == nil || !s.objects.Enabled() {
		return ""
	}
	u, err := s.objects.PresignedURL(ctx, att.StorageKey, att.FileName)
	if err != nil {
		s.logger.Warn("presign attachment failed", zap.String("attachment_id", att.ID), zap.Error(err))
		return ""
	}
	return u
}

func (s *MessageService) discard(ctx context.Context, keys []string) {
	for _, key := range keys {
		if err := s.objects.Remove(ctx, key); err != nil && !errors.Is(err, context.Canceled) {
			s.logger.Warn("remove orphaned attachment failed", zap.String("key", key), zap.Error(err))
		}
	}
}

func cleanFileName(name string) string {
	name = path.Base(strings.ReplaceAll(strings.TrimSpace(name), "\\", "/"))
	if name == "." || name == "/" || name == "" {
		return "attachment"
	}
	return name
}

func contentTypeOr(ct string) string {
	if strings.TrimSpace(ct) == "" {
		return "application/octet-stream"
	}
	return ct
}

func stringPreview(body string, max int) string {
	body = strings.TrimSpace(body)
	if len(body) <= max {
		return body
	}
	if max <= 3 {
		return body[:max]
	}
	return body[:max-3] + "..."
}
