package handlers

import (
	"strconv"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/helpdesk-service/internal/api/dto"
	"github.com/spec-kit/helpdesk-service/internal/auth"
	"github.com/spec-kit/helpdesk-service/internal/domain"
	"github.com/spec-kit/helpdesk-service/internal/routing"
	apperrors "github.com/spec-kit/helpdesk-service/pkg/util"
)

const defaultPageSize = 20

func currentAccount(c *fiber.Ctx) (*domain.Account, error) {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok {
		return nil, apperrors.NewUnauthorized("authentication required")
	}
	return principal.Account, nil
}

// parseBody decodes the request body into req and runs its validate tags.
func parseBody(c *fiber.Ctx, req any) error {
	if err := c.BodyParser(req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	return apperrors.ValidateStruct(req)
}

type page struct {
	limit, offset int
}

func parsePage(c *fiber.Ctx) page {
	p := parseInt(c.Query("page"), 1)
	size := parseInt(c.Query("page_size"), defaultPageSize)
	return page{limit: size, offset: (p - 1) * size}
}

func parseStatuses(c *fiber.Ctx) ([]domain.TicketStatus, error) {
	raw := c.Query("status")
	if raw == "" {
		return nil, nil
	}
	var out []domain.TicketStatus
	for _, part := range strings.Split(raw, ",") {
		s := domain.TicketStatus(strings.ToUpper(strings.TrimSpace(part)))
		if !s.Valid() {
			return nil, apperrors.NewValidationError("unknown status", map[string]any{"status": part})
		}
		out = append(out, s)
	}
	return out, nil
}

func optionalQuery(c *fiber.Ctx, key string) *string {
	if v := strings.TrimSpace(c.Query(key)); v != "" {
		return &v
	}
	return nil
}

func parseTime(c *fiber.Ctx, key string) (*time.Time, error) {
	val := strings.TrimSpace(c.Query(key))
	if val == "" {
		return nil, nil
	}
	t, err := time.Parse(time.RFC3339, val)
	if err != nil {
		return nil, apperrors.NewValidationError("invalid "+key, map[string]any{key: val, "format": "RFC3339"})
	}
	return &t, nil
}

// parseCreatedRange reads the created_from and created_to filters.
func parseCreatedRange(c *fiber.Ctx) (from, to *time.Time, err error) {
	if from, err = parseTime(c, "created_from"); err != nil {
		return nil, nil, err
	}
	if to, err = parseTime(c, "created_to"); err != nil {
		return nil, nil, err
	}
	return from, to, nil
}

func parseInt(val string, def int) int {
	if val == "" {
		return def
	}
	parsed, err := strconv.Atoi(val)
	if err != nil || parsed <= 0 {
		return def
	}
	return parsed
}

func accountResponse(a *domain.Account) dto.AccountResponse {
	return dto.AccountResponse{
		ID:        a.ID,
		Name:      a.Name,
		Email:     a.Email,
		Role:      a.Role,
		CreatedAt: a.CreatedAt,
	}
}

func ticketResponse(t *domain.Ticket, tables *routing.Tables) dto.TicketResponse {
	return dto.TicketResponse{
		ID:            t.ID,
		OwnerID:       t.OwnerID,
		CategoryKey:   t.CategoryKey,
		Category:      t.Category,
		Description:   t.Description,
		Status:        t.Status,
		Color:         t.Color,
		Priority:      tables.PriorityFor(t.Color),
		AssigneeID:    t.AssigneeID,
		AssigneeEmail: t.AssigneeEmail,
		FeedbackID:    t.FeedbackID,
		CreatedAt:     t.CreatedAt,
		UpdatedAt:     t.UpdatedAt,
	}
}

func assignmentResponse(a *domain.Assignment) dto.AssignmentResponse {
	return dto.AssignmentResponse{
		ID:              a.ID,
		TicketID:        a.TicketID,
		Category:        a.Category,
		Description:     a.Description,
		Color:           a.Color,
		Priority:        a.Priority,
		AssigneeID:      a.AssigneeID,
		AssigneeEmail:   a.AssigneeEmail,
		AdminID:         a.AdminID,
		Status:          a.Status,
		FeedbackRating:  a.FeedbackRating,
		FeedbackComment: a.FeedbackComment,
		CreatedAt:       a.CreatedAt,
		UpdatedAt:       a.UpdatedAt,
		ResolvedAt:      a.ResolvedAt,
	}
}

func feedbackResponse(fb *domain.Feedback) dto.FeedbackResponse {
	return dto.FeedbackResponse{
		ID:        fb.ID,
		TicketID:  fb.TicketID,
		UserID:    fb.UserID,
		Email:     fb.Email,
		Category:  fb.Category,
		Rating:    fb.Rating,
		Band:      string(domain.BandFor(fb.Rating)),
		Comment:   fb.Comment,
		CreatedAt: fb.CreatedAt,
		UpdatedAt: fb.UpdatedAt,
	}
}
