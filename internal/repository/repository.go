package repository

import (
	"context"
	"errors"
	"time"

	"github.com/spec-kit/helpdesk-service/internal/domain"
)

var (
	// ErrNotFound is returned when no record matches.
	ErrNotFound = errors.New("record not found")
	// ErrDuplicate is returned when a unique constraint rejects a write.
	ErrDuplicate = errors.New("duplicate record")
	// ErrInvalidDocument is returned when a stored record fails validation on read.
	ErrInvalidDocument = errors.New("stored record failed validation")
)

// AccountFilter narrows account listings.
type AccountFilter struct {
	Role   *domain.Role
	Limit  int
	Offset int
}

// AccountRepository persists user, staff and admin accounts.
type AccountRepository interface {
	Create(ctx context.Context, account *domain.Account) error
	Update(ctx context.Context, account *domain.Account) error
	Delete(ctx context.Context, id string) error
	GetByID(ctx context.Context, id string) (*domain.Account, error)
	GetByEmail(ctx context.Context, email string) (*domain.Account, error)
	List(ctx context.Context, filter AccountFilter) ([]domain.Account, error)
	CountByRole(ctx context.Context, role domain.Role) (int, error)
}

// TicketFilter narrows ticket listings. A zero Limit means no limit.
type TicketFilter struct {
	OwnerID     *string
	AssigneeID  *string
	Statuses    []domain.TicketStatus
	Category    *string
	CreatedFrom *time.Time
	CreatedTo   *time.Time
	NewestFirst bool
	Limit       int
	Offset      int
}

// TicketRepository encapsulates ticket persistence.
type TicketRepository interface {
	Create(ctx context.Context, ticket *domain.Ticket) error
	Update(ctx context.Context, ticket *domain.Ticket) error
	Delete(ctx context.Context, id string) error
	GetByID(ctx context.Context, id string) (*domain.Ticket, error)
	List(ctx context.Context, filter TicketFilter) ([]domain.Ticket, error)
}

// AssignmentFilter narrows assignment listings. A zero Limit means no limit.
type AssignmentFilter struct {
	AssigneeID  *string
	Statuses    []domain.TicketStatus
	Category    *string
	CreatedFrom *time.Time
	CreatedTo   *time.Time
	NewestFirst bool
	Limit       int
	Offset      int
}

// AssignmentRepository persists assignment records. Create returns
// ErrDuplicate when the ticket already has one.
type AssignmentRepository interface {
	Create(ctx context.Context, assignment *domain.Assignment) error
	Update(ctx context.Context, assignment *domain.Assignment) error
	Delete(ctx context.Context, id string) error
	GetByID(ctx context.Context, id string) (*domain.Assignment, error)
	GetByTicket(ctx context.Context, ticketID string) (*domain.Assignment, error)
	List(ctx context.Context, filter AssignmentFilter) ([]domain.Assignment, error)
}

// FeedbackFilter narrows feedback listings. Zero ratings mean unbounded.
type FeedbackFilter struct {
	TicketID    *string
	UserID      *string
	Category    *string
	MinRating   int
	MaxRating   int
	NewestFirst bool
	Limit       int
	Offset      int
}

// FeedbackRepository persists feedback. Upsert keeps one record per
// (ticket, user) and reports whether it inserted a new one; on update the
// stored id and creation time are written back into fb.
type FeedbackRepository interface {
	Upsert(ctx context.Context, fb *domain.Feedback) (created bool, err error)
	GetByTicketAndUser(ctx context.Context, ticketID, userID string) (*domain.Feedback, error)
	List(ctx context.Context, filter FeedbackFilter) ([]domain.Feedback, error)
}

// MessageRepository stores thread messages together with their attachment
// metadata.
type MessageRepository interface {
	Create(ctx context.Context, msg *domain.TicketMessage) error
	ListByThread(ctx context.Context, threadID string) ([]domain.TicketMessage, error)
}

// Transactor runs fn so that every repository call made with the context it
// receives commits or rolls back together. Nested calls join the outer
// transaction.
type Transactor interface {
	WithinTx(ctx context.Context, fn func(ctx context.Context) error) error
}

// Store bundles the repositories of one backend.
type Store struct {
	Accounts    AccountRepository
	Tickets     TicketRepository
	Assignments AssignmentRepository
	Feedback    FeedbackRepository
	Messages    MessageRepository
	Tx          Transactor
	// Atomic is false when Tx runs fn without a transaction. Services then
	// undo their own earlier writes when a later one fails.
	Atomic bool
}

// Validated returns ErrInvalidDocument wrapping the validation failure of v.
func Validated(v interface{ Validate() error }) error {
	if err := v.Validate(); err != nil {
		return errors.Join(ErrInvalidDocument, err)
	}
	return nil
}
