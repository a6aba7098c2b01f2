package dto

import (
	"time"

	"github.com/spec-kit/helpdesk-service/internal/domain"
)

// MessageResponse represents a thread message.
type MessageResponse struct {
	ID          string               `json:"id"`
	ThreadID    string               `json:"thread_id"`
	AuthorID    string               `json:"author_id"`
	AuthorEmail string               `json:"author_email"`
	AuthorRole  domain.Role          `json:"author_role"`
	Body        string               `json:"body"`
	Attachments []AttachmentResponse `json:"attachments"`
	CreatedAt   time.Time            `json:"created_at"`
}

// AttachmentResponse metadata.
type AttachmentResponse struct {
	ID        string `json:"id"`
	FileName  string `json:"file_name"`
	MimeType  string `json:"mime_type"`
	SizeBytes int64  `json:"size_bytes"`
	URL       string `json:"url,omitempty"`
}
