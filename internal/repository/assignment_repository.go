package repository

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/helpdesk-service/internal/domain"
)

type assignmentRepository struct {
	pool *pgxpool.Pool
}

// NewAssignmentRepository instantiates repository.
func NewAssignmentRepository(pool *pgxpool.Pool) AssignmentRepository {
	return &assignmentRepository{pool: pool}
}

const assignmentColumns = `id, ticket_id, category, description, color, priority, assignee_id,
               assignee_email, admin_id, status, feedback_rating, feedback_comment,
               created_at, updated_at, resolved_at`

func (r *assignmentRepository) Create(ctx context.Context, a *domain.Assignment) error {
	const query = `
        INSERT INTO assignments (id, ticket_id, category, description, color, priority, assignee_id,
            assignee_email, admin_id, status, feedback_rating, feedback_comment,
            created_at, updated_at, resolved_at)
        VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15)`
	_, err := conn(ctx, r.pool).Exec(ctx, query,
		a.ID,
		a.TicketID,
		a.Category,
		a.Description,
		a.Color,
		a.Priority,
		a.AssigneeID,
		a.AssigneeEmail,
		a.AdminID,
		a.Status,
		a.FeedbackRating,
		a.FeedbackComment,
		a.CreatedAt,
		a.UpdatedAt,
		a.ResolvedAt,
	)
	return mapPgError(err)
}

func (r *assignmentRepository) Update(ctx context.Context, a *domain.Assignment) error {
	const query = `
        UPDATE assignments SET status=$1, feedback_rating=$2, feedback_comment=$3,
            updated_at=$4, resolved_at=$5
        WHERE id=$6`
	cmd, err := conn(ctx, r.pool).Exec(ctx, query,
		a.Status,
		a.FeedbackRating,
		a.FeedbackComment,
		a.UpdatedAt,
		a.ResolvedAt,
		a.ID,
	)
	if err != nil {
		return mapPgError(err)
	}
	if cmd.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *assignmentRepository) Delete(ctx context.Context, id string) error {
	cmd, err := conn(ctx, r.pool).Exec(ctx, `DELETE FROM assignments WHERE id=$1`, id)
	if err != nil {
		return mapPgError(err)
	}
	if cmd.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *assignmentRepository) GetByID(ctx context.Context, id string) (*domain.Assignment, error) {
	return r.fetchSingle(ctx, `SELECT `+assignmentColumns+` FROM assignments WHERE id=$1`, id)
}

func (r *assignmentRepository) GetByTicket(ctx context.Context, ticketID string) (*domain.Assignment, error) {
	return r.fetchSingle(ctx, `SELECT `+assignmentColumns+` FROM assignments WHERE ticket_id=$1`, ticketID)
}

func (r *assignmentRepository) fetchSingle(ctx context.Context, query string, arg any) (*domain.Assignment, error) {
	a, err := scanAssignment(conn(ctx, r.pool).QueryRow(ctx, query, arg))
	if err != nil {
		return nil, mapPgError(err)
	}
	if err := Validated(a); err != nil {
		return nil, err
	}
	return a, nil
}

func (r *assignmentRepository) List(ctx context.Context, filter AssignmentFilter) ([]domain.Assignment, error) {
	var where whereBuilder
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

	query := `SELECT ` + assignmentColumns + ` FROM assignments` + where.sql() +
		orderAndPage("created_at", filter.NewestFirst, filter.Limit, filter.Offset)

	rows, err := conn(ctx, r.pool).Query(ctx, query, where.args...)
	if err != nil {
		return nil, mapPgError(err)
	}
	defer rows.Close()

	var result []domain.Assignment
	for rows.Next() {
		a, err := scanAssignment(rows)
		if err != nil {
			return nil, err
		}
		if err := Validated(a); err != nil {
			return nil, err
		}
		result = append(result, *a)
	}
	return result, rows.Err()
}

func scanAssignment(row pgx.Row) (*domain.Assignment, error) {
	var a domain.Assignment
	if err := row.Scan(
		&a.ID,
		&a.TicketID,
		&a.Category,
		&a.Description,
		&a.Color,
		&a.Priority,
		&a.AssigneeID,
		&a.AssigneeEmail,
		&a.AdminID,
		&a.Status,
		&a.FeedbackRating,
		&a.FeedbackComment,
		&a.CreatedAt,
		&a.UpdatedAt,
		&a.ResolvedAt,
	); err != nil {
		return nil, err
	}
	return &a, nil
}
