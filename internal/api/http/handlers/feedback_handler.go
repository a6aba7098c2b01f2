package handlers

import (
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/helpdesk-service/internal/api/dto"
	"github.com/spec-kit/helpdesk-service/internal/domain"
	"github.com/spec-kit/helpdesk-service/internal/service"
)

// FeedbackHandler exposes rating submission, listing and statistics.
type FeedbackHandler struct {
	feedback *service.FeedbackService
}

// NewFeedbackHandler constructs handler.
func NewFeedbackHandler(feedback *service.FeedbackService) *FeedbackHandler {
	return &FeedbackHandler{feedback: feedback}
}

// Submit POST /v1/tickets/:id/feedback. Answers 201 for a new record and
// 200 when an earlier rating was replaced.
func (h *FeedbackHandler) Submit(c *fiber.Ctx) error {
	account, err := currentAccount(c)
	if err != nil {
		return err
	}
	var req dto.FeedbackRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}
	fb, created, err := h.feedback.SubmitFeedback(c.UserContext(), account, c.Params("id"), service.FeedbackInput{
		Rating:  req.Rating,
		Comment: req.Comment,
	})
	if err != nil {
		return err
	}
	status := http.StatusOK
	if created {
		status = http.StatusCreated
	}
	return c.Status(status).JSON(fiber.Map{"data": feedbackResponse(fb)})
}

// GetOwn GET /v1/tickets/:id/feedback.
func (h *FeedbackHandler) GetOwn(c *fiber.Ctx) error {
	account, err := currentAccount(c)
	if err != nil {
		return err
	}
	fb, err := h.feedback.GetFeedback(c.UserContext(), account, c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": feedbackResponse(fb)})
}

// List GET /v1/feedback.
func (h *FeedbackHandler) List(c *fiber.Ctx) error {
	account, err := currentAccount(c)
	if err != nil {
		return err
	}
	filter := service.FeedbackListFilter{
		TicketID:    optionalQuery(c, "ticket_id"),
		Category:    optionalQuery(c, "category"),
		NewestFirst: c.Query("order") != "oldest",
	}
	if band := optionalQuery(c, "band"); band != nil {
		b := domain.RatingBand(*band)
		filter.Band = &b
	}
	p := parsePage(c)
	filter.Limit, filter.Offset = p.limit, p.offset

	list, err := h.feedback.ListFeedback(c.UserContext(), account, filter)
	if err != nil {
		return err
	}
	items := make([]dto.FeedbackResponse, 0, len(list))
	for i := range list {
		items = append(items, feedbackResponse(&list[i]))
	}
	return c.JSON(fiber.Map{"data": items})
}

// Stats GET /v1/feedback/stats.
func (h *FeedbackHandler) Stats(c *fiber.Ctx) error {
	account, err := currentAccount(c)
	if err != nil {
		return err
	}
	stats, err := h.feedback.Stats(c.UserContext(), account, optionalQuery(c, "category"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.FeedbackStatsResponse{
		Total:         stats.Total,
		Positive:      stats.Positive,
		Neutral:       stats.Neutral,
		Negative:      stats.Negative,
		AverageRating: stats.AverageRating,
	}})
}
