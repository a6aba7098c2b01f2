package domain

import "time"

// TicketMessage is a chat message in a ticket thread.
type TicketMessage struct {
	ID          string
	ThreadID    string
	AuthorID    string
	AuthorEmail string
	AuthorRole  Role
	Body        string
	Attachments []AttachmentReference
	CreatedAt   time.Time
}

// AttachmentReference stores metadata for a file attached to a message.
type AttachmentReference struct {
	ID         string
	MessageID  string
	StorageKey string
	FileName   string
	MimeType   string
	SizeBytes  int64
	CreatedAt  time.Time
}
