package mongostore

import (
	"strings"
	"time"

	"github.com/spec-kit/helpdesk-service/internal/domain"
	"github.com/spec-kit/helpdesk-service/internal/repository"
)

type accountDoc struct {
	ID           string    `bson:"_id"`
	Name         string    `bson:"name"`
	Email        string    `bson:"email"`
	EmailLower   string    `bson:"email_lower"`
	PasswordHash string    `bson:"password_hash"`
	Role         string    `bson:"role"`
	CreatedAt    time.Time `bson:"created_at"`
	UpdatedAt    time.Time `bson:"updated_at"`
}

func toAccountDoc(a *domain.Account) accountDoc {
	return accountDoc{
		ID:           a.ID,
		Name:         a.Name,
		Email:        a.Email,
		EmailLower:   strings.ToLower(a.Email),
		PasswordHash: a.PasswordHash,
		Role:         string(a.Role),
		CreatedAt:    a.CreatedAt,
		UpdatedAt:    a.UpdatedAt,
	}
}

func (d *accountDoc) toDomain() (domain.Account, error) {
	a := domain.Account{
		ID:           d.ID,
		Name:         d.Name,
		Email:        d.Email,
		PasswordHash: d.PasswordHash,
		Role:         domain.Role(d.Role),
		CreatedAt:    d.CreatedAt,
		UpdatedAt:    d.UpdatedAt,
	}
	return a, repository.Validated(&a)
}

type ticketDoc struct {
	ID            string    `bson:"_id"`
	OwnerID       string    `bson:"owner_id"`
	CategoryKey   string    `bson:"category_key"`
	Category      string    `bson:"category"`
	Description   string    `bson:"description"`
	Status        string    `bson:"status"`
	Color         string    `bson:"color"`
	AssigneeID    *string   `bson:"assignee_id,omitempty"`
	AssigneeEmail *string   `bson:"assignee_email,omitempty"`
	FeedbackID    *string   `bson:"feedback_id,omitempty"`
	ThreadID      *string   `bson:"thread_id,omitempty"`
	CreatedAt     time.Time `bson:"created_at"`
	UpdatedAt     time.Time `bson:"updated_at"`
}

func toTicketDoc(t *domain.Ticket) ticketDoc {
	return ticketDoc{
		ID:            t.ID,
		OwnerID:       t.OwnerID,
		CategoryKey:   t.CategoryKey,
		Category:      t.Category,
		Description:   t.Description,
		Status:        string(t.Status),
		Color:         string(t.Color),
		AssigneeID:    t.AssigneeID,
		AssigneeEmail: t.AssigneeEmail,
		FeedbackID:    t.FeedbackID,
		ThreadID:      t.ThreadID,
		CreatedAt:     t.CreatedAt,
		UpdatedAt:     t.UpdatedAt,
	}
}

func (d *ticketDoc) toDomain() (domain.Ticket, error) {
	t := domain.Ticket{
		ID:            d.ID,
		OwnerID:       d.OwnerID,
		CategoryKey:   d.CategoryKey,
		Category:      d.Category,
		Description:   d.Description,
		Status:        domain.TicketStatus(d.Status),
		Color:         domain.Color(d.Color),
		AssigneeID:    d.AssigneeID,
		AssigneeEmail: d.AssigneeEmail,
		FeedbackID:    d.FeedbackID,
		ThreadID:      d.ThreadID,
		CreatedAt:     d.CreatedAt,
		UpdatedAt:     d.UpdatedAt,
	}
	return t, repository.Validated(&t)
}

type assignmentDoc struct {
	ID              string     `bson:"_id"`
	TicketID        string     `bson:"ticket_id"`
	Category        string     `bson:"category"`
	Description     string     `bson:"description"`
	Color           string     `bson:"color"`
	Priority        string     `bson:"priority"`
	AssigneeID      string     `bson:"assignee_id"`
	AssigneeEmail   string     `bson:"assignee_email"`
	AdminID         string     `bson:"admin_id"`
	Status          string     `bson:"status"`
	FeedbackRating  *int       `bson:"feedback_rating,omitempty"`
	FeedbackComment *string    `bson:"feedback_comment,omitempty"`
	CreatedAt       time.Time  `bson:"created_at"`
	UpdatedAt       time.Time  `bson:"updated_at"`
	ResolvedAt      *time.Time `bson:"resolved_at,omitempty"`
}

func toAssignmentDoc(a *domain.Assignment) assignmentDoc {
	return assignmentDoc{
		ID:              a.ID,
		TicketID:        a.TicketID,
		Category:        a.Category,
		Description:     a.Description,
		Color:           string(a.Color),
		Priority:        string(a.Priority),
		AssigneeID:      a.AssigneeID,
		AssigneeEmail:   a.AssigneeEmail,
		AdminID:         a.AdminID,
		Status:          string(a.Status),
		FeedbackRating:  a.FeedbackRating,
		FeedbackComment: a.FeedbackComment,
		CreatedAt:       a.CreatedAt,
		UpdatedAt:       a.UpdatedAt,
		ResolvedAt:      a.ResolvedAt,
	}
}

func (d *assignmentDoc) toDomain() (domain.Assignment, error) {
	a := domain.Assignment{
		ID:              d.ID,
		TicketID:        d.TicketID,
		Category:        d.Category,
		Description:     d.Description,
		Color:           domain.Color(d.Color),
		Priority:        domain.Priority(d.Priority),
		AssigneeID:      d.AssigneeID,
		AssigneeEmail:   d.AssigneeEmail,
		AdminID:         d.AdminID,
		Status:          domain.TicketStatus(d.Status),
		FeedbackRating:  d.FeedbackRating,
		FeedbackComment: d.FeedbackComment,
		CreatedAt:       d.CreatedAt,
		UpdatedAt:       d.UpdatedAt,
		ResolvedAt:      d.ResolvedAt,
	}
	return a, repository.Validated(&a)
}

type feedbackDoc struct {
	ID        string    `bson:"_id"`
	TicketID  string    `bson:"ticket_id"`
	UserID    string    `bson:"user_id"`
	Email     string    `bson:"email"`
	Category  string    `bson:"category"`
	Rating    int       `bson:"rating"`
	Comment   string    `bson:"comment"`
	CreatedAt time.Time `bson:"created_at"`
	UpdatedAt time.Time `bson:"updated_at"`
}

func (d *feedbackDoc) toDomain() (domain.Feedback, error) {
	f := domain.Feedback{
		ID:        d.ID,
		TicketID:  d.TicketID,
		UserID:    d.UserID,
		Email:     d.Email,
		Category:  d.Category,
		Rating:    d.Rating,
		Comment:   d.Comment,
		CreatedAt: d.CreatedAt,
		UpdatedAt: d.UpdatedAt,
	}
	return f, repository.Validated(&f)
}

type attachmentDoc struct {
	ID         string    `bson:"id"`
	StorageKey string    `bson:"storage_key"`
	FileName   string    `bson:"file_name"`
	MimeType   string    `bson:"mime_type"`
	SizeBytes  int64     `bson:"size_bytes"`
	CreatedAt  time.Time `bson:"created_at"`
}

// messageDoc embeds attachments; they are never queried on their own.
type messageDoc struct {
	ID          string          `bson:"_id"`
	ThreadID    string          `bson:"thread_id"`
	AuthorID    string          `bson:"author_id"`
	AuthorEmail string          `bson:"author_email"`
	AuthorRole  string          `bson:"author_role"`
	Body        string          `bson:"body"`
	Attachments []attachmentDoc `bson:"attachments,omitempty"`
	CreatedAt   time.Time       `bson:"created_at"`
}

func toMessageDoc(m *domain.TicketMessage) messageDoc {
	doc := messageDoc{
		ID:          m.ID,
		ThreadID:    m.ThreadID,
		AuthorID:    m.AuthorID,
		AuthorEmail: m.AuthorEmail,
		AuthorRole:  string(m.AuthorRole),
		Body:        m.Body,
		CreatedAt:   m.CreatedAt,
	}
	for _, a := range m.Attachments {
		doc.Attachments = append(doc.Attachments, attachmentDoc{
			ID:         a.ID,
			StorageKey: a.StorageKey,
			FileName:   a.FileName,
			MimeType:   a.MimeType,
			SizeBytes:  a.SizeBytes,
			CreatedAt:  a.CreatedAt,
		})
	}
	return doc
}

func (d *messageDoc) toDomain() (domain.TicketMessage, error) {
	m := domain.TicketMessage{
		ID:          d.ID,
		ThreadID:    d.ThreadID,
		AuthorID:    d.AuthorID,
		AuthorEmail: d.AuthorEmail,
		AuthorRole:  domain.Role(d.AuthorRole),
		Body:        d.Body,
		CreatedAt:   d.CreatedAt,
	}
	for _, a := range d.Attachments {
		m.Attachments = append(m.Attachments, domain.AttachmentReference{
			ID:         a.ID,
			MessageID:  d.ID,
			StorageKey: a.StorageKey,
			FileName:   a.FileName,
			MimeType:   a.MimeType,
			SizeBytes:  a.SizeBytes,
			CreatedAt:  a.CreatedAt,
		})
	}
	if m.ID == "" || m.ThreadID == "" {
		return m, repository.ErrInvalidDocument
	}
	return m, nil
}
