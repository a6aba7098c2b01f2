package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/helpdesk-service/internal/api/dto"
	"github.com/spec-kit/helpdesk-service/internal/service"
)

// ReportsHandler serves dashboard reports.
type ReportsHandler struct {
	reports *service.ReportService
}

// NewReportsHandler constructs handler.
func NewReportsHandler(reports *service.ReportService) *ReportsHandler {
	return &ReportsHandler{reports: reports}
}

// Get handles GET /v1/reports?period=weekly|monthly|yearly|all.
func (h *ReportsHandler) Get(c *fiber.Ctx) error {
	account, err := currentAccount(c)
	if err != nil {
		return err
	}
	period, err := service.ParsePeriod(c.Query("period"))
	if err != nil {
		return err
	}
	r, err := h.reports.Build(c.UserContext(), account, period)
	if err != nil {
		return err
	}
	resp := dto.ReportResponse{
		Scope:      r.Scope,
		Period:     string(r.Period),
		From:       r.From,
		To:         r.To,
		Total:      r.Total,
		Open:       r.Open,
		ByStatus:   make(map[string]int, len(r.ByStatus)),
		ByCategory: r.ByCategory,
		ByPriority: make(map[string]int, len(r.ByPriority)),
		Windows:    make(map[string]int, len(r.Windows)),
	}
	for k, v := range r.ByStatus {
		resp.ByStatus[string(k)] = v
	}
	for k, v := range r.ByPriority {
		resp.ByPriority[string(k)] = v
	}
	for k, v := range r.Windows {
		resp.Windows[string(k)] = v
	}
	return c.JSON(fiber.Map{"data": resp})
}
