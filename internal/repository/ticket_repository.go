package repository

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/helpdesk-service/internal/domain"
)

type ticketRepository struct {
	pool *pgxpool.Pool
}

// NewTicketRepository instantiates repository.
func NewTicketRepository(pool *pgxpool.Pool) TicketRepository {
	return &ticketRepository{pool: pool}
}

const ticketColumns = `id, owner_id, category_key, category, description, status, color,
               assignee_id, assignee_email, feedback_id, thread_id, created_at, updated_at`

func (r *ticketRepository) Create(ctx context.Context, ticket *domain.Ticket) error {
	const query = `
        INSERT INTO tickets (id, owner_id, category_key, category, description, status, color,
            assignee_id, assignee_email, feedback_id, thread_id, created_at, updated_at)
        VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13)`
	_, err := conn(ctx, r.pool).Exec(ctx, query,
		ticket.ID,
		ticket.OwnerID,
		ticket.CategoryKey,
		ticket.Category,
		ticket.Description,
		ticket.Status,
		ticket.Color,
		ticket.AssigneeID,
		ticket.AssigneeEmail,
		ticket.FeedbackID,
		ticket.ThreadID,
		ticket.CreatedAt,
		ticket.UpdatedAt,
	)
	return mapPgError(err)
}

func (r *ticketRepository) Update(ctx context.Context, ticket *domain.Ticket) error {
	const query = `
        UPDATE tickets SET category_key=$1, category=$2, description=$3, status=$4, color=$5,
            assignee_id=$6, assignee_email=$7, feedback_id=$8, thread_id=$9, updated_at=$10
        WHERE id=$11`
	cmd, err := conn(ctx, r.pool).Exec(ctx, query,
		ticket.CategoryKey,
		ticket.Category,
		ticket.Description,
		ticket.Status,
		ticket.Color,
		ticket.AssigneeID,
		ticket.AssigneeEmail,
		ticket.FeedbackID,
		ticket.ThreadID,
		ticket.UpdatedAt,
		ticket.ID,
	)
	if err != nil {
		return mapPgError(err)
	}
	if cmd.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *ticketRepository) Delete(ctx context.Context, id string) error {
	cmd, err := conn(ctx, r.pool).Exec(ctx, `DELETE FROM tickets WHERE id=$1`, id)
	if err != nil {
		return mapPgError(err)
	}
	if cmd.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *ticketRepository) GetByID(ctx context.Context, id string) (*domain.Ticket, error) {
	query := `SELECT ` + ticketColumns + ` FROM tickets WHERE id=$1`
	ticket, err := scanTicket(conn(ctx, r.pool).QueryRow(ctx, query, id))
	if err != nil {
		return nil, mapPgError(err)
	}
	if err := Validated(ticket); err != nil {
		return nil, err
	}
	return ticket, nil
}

func (r *ticketRepository) List(ctx context.Context, filter TicketFilter) ([]domain.Ticket, error) {
	var where whereBuilder
	if filter.OwnerID != nil {
		where.eq("owner_id", *filter.OwnerID)
	}
	if filter.AssigneeID != nil {
		where.eq("assignee_id", *filter.AssigneeID)
	}
	if filter.Category != nil {
		where.eq("category", *filter.Category)
	}
	where.in("status", statusStrings(filter.Statuses))
	if filter.CreatedFrom != nil {
		where.cmp("created_at", ">=", *filter.CreatedFrom)
	}
	if filter.CreatedTo != nil {
		where.cmp("created_at", "<", *filter.CreatedTo)
	}

	query := `SELECT ` + ticketColumns + ` FROM tickets` + where.sql() +
		orderAndPage("created_at", filter.NewestFirst, filter.Limit, filter.Offset)

	rows, err := conn(ctx, r.pool).Query(ctx, query, where.args...)
	if err != nil {
		return nil, mapPgError(err)
	}
	defer rows.Close()
	return scanTickets(rows)
}

func scanTicket(row pgx.Row) (*domain.Ticket, error) {
	var ticket domain.Ticket
	if err := row.Scan(
		&ticket.ID,
		&ticket.OwnerID,
		&ticket.CategoryKey,
		&ticket.Category,
		&ticket.Description,
		&ticket.Status,
		&ticket.Color,
		&ticket.AssigneeID,
		&ticket.AssigneeEmail,
		&ticket.FeedbackID,
		&ticket.ThreadID,
		&ticket.CreatedAt,
		&ticket.UpdatedAt,
	); err != nil {
		return nil, err
	}
	return &ticket, nil
}

func scanTickets(rows pgx.Rows) ([]domain.Ticket, error) {
	var result []domain.Ticket
	for rows.Next() {
		ticket, err := scanTicket(rows)
		if err != nil {
			return nil, err
		}
		if err := Validated(ticket); err != nil {
			return nil, err
		}
		result = append(result, *ticket)
	}
	return result, rows.Err()
}
