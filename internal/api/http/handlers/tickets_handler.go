package handlers

import (
	"io"
	"mime/multipart"
	"net/http"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/helpdesk-service/internal/api/dto"
	"github.com/spec-kit/helpdesk-service/internal/domain"
	"github.com/spec-kit/helpdesk-service/internal/routing"
	"github.com/spec-kit/helpdesk-service/internal/service"
	apperrors "github.com/spec-kit/helpdesk-service/pkg/util"
)

// TicketsHandler manages ticket, category and thread endpoints.
type TicketsHandler struct {
	service  *service.TicketService
	messages *service.MessageService
	tables   *routing.Tables
}

// NewTicketsHandler constructs handler.
func NewTicketsHandler(ticketService *service.TicketService, messages *service.MessageService, tables *routing.Tables) *TicketsHandler {
	return &TicketsHandler{service: ticketService, messages: messages, tables: tables}
}

// Categories GET /v1/categories.
func (h *TicketsHandler) Categories(c *fiber.Ctx) error {
	views := h.service.Categories()
	items := make([]dto.CategoryResponse, 0, len(views))
	for _, v := range views {
		items = append(items, dto.CategoryResponse{
			Key:      v.Key,
			Name:     v.Name,
			Color:    v.Color,
			Priority: v.Priority,
			Role:     v.Role,
		})
	}
	return c.JSON(fiber.Map{"data": items})
}

// CreateTicket POST /v1/tickets.
func (h *TicketsHandler) CreateTicket(c *fiber.Ctx) error {
	account, err := currentAccount(c)
	if err != nil {
		return err
	}
	var req dto.CreateTicketRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}
	ticket, err := h.service.CreateTicket(c.UserContext(), account, service.TicketCreateInput{
		CategoryKey: req.Category,
		Description: req.Description,
	})
	if err != nil {
		return err
	}
	return c.Status(http.StatusCreated).JSON(fiber.Map{"data": ticketResponse(ticket, h.tables)})
}

// ListTickets GET /v1/tickets.
func (h *TicketsHandler) ListTickets(c *fiber.Ctx) error {
	account, err := currentAccount(c)
	if err != nil {
		return err
	}
	statuses, err := parseStatuses(c)
	if err != nil {
		return err
	}
	createdFrom, createdTo, err := parseCreatedRange(c)
	if err != nil {
		return err
	}
	p := parsePage(c)
	tickets, err := h.service.ListTickets(c.UserContext(), account, service.TicketListFilter{
		Statuses:    statuses,
		Category:    optionalQuery(c, "category"),
		CreatedFrom: createdFrom,
		CreatedTo:   createdTo,
		NewestFirst: c.Query("order") != "oldest",
		Limit:       p.limit,
		Offset:      p.offset,
	})
	if err != nil {
		return err
	}
	items := make([]dto.TicketResponse, 0, len(tickets))
	for i := range tickets {
		items = append(items, ticketResponse(&tickets[i], h.tables))
	}
	return c.JSON(fiber.Map{"data": items})
}

// GetTicket GET /v1/tickets/:id.
func (h *TicketsHandler) GetTicket(c *fiber.Ctx) error {
	account, err := currentAccount(c)
	if err != nil {
		return err
	}
	ticket, err := h.service.GetTicket(c.UserContext(), account, c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": ticketResponse(ticket, h.tables)})
}

// UpdateTicket PATCH /v1/tickets/:id.
func (h *TicketsHandler) UpdateTicket(c *fiber.Ctx) error {
	account, err := currentAccount(c)
	if err != nil {
		return err
	}
	var req dto.UpdateTicketRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}
	ticket, err := h.service.UpdateTicket(c.UserContext(), account, c.Params("id"), service.TicketUpdateInput{
		CategoryKey: req.Category,
		Description: req.Description,
	})
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": ticketResponse(ticket, h.tables)})
}

// DeleteTicket DELETE /v1/tickets/:id.
func (h *TicketsHandler) DeleteTicket(c *fiber.Ctx) error {
	account, err := currentAccount(c)
	if err != nil {
		return err
	}
	if err := h.service.DeleteTicket(c.UserContext(), account, c.Params("id")); err != nil {
		return err
	}
	return c.SendStatus(http.StatusNoContent)
}

// ListMessages GET /v1/tickets/:id/messages.
func (h *TicketsHandler) ListMessages(c *fiber.Ctx) error {
	account, err := currentAccount(c)
	if err != nil {
		return err
	}
	thread, err := h.messages.ListMessages(c.UserContext(), account, c.Params("id"))
	if err != nil {
		return err
	}
	items := make([]dto.MessageResponse, 0, len(thread))
	for i := range thread {
		items = append(items, messageResponse(&thread[i].TicketMessage, thread[i].Links))
	}
	return c.JSON(fiber.Map{"data": items})
}

// AddMessage POST /v1/tickets/:id/messages. Accepts JSON {"body": "..."}
// or a multipart form with a body field and up to five files under
// "attachments".
func (h *TicketsHandler) AddMessage(c *fiber.Ctx) error {
	account, err := currentAccount(c)
	if err != nil {
		return err
	}

	var (
		body    string
		uploads []service.AttachmentUpload
	)
	if strings.HasPrefix(c.Get(fiber.HeaderContentType), fiber.MIMEMultipartForm) {
		form, err := c.MultipartForm()
		if err != nil {
			return apperrors.NewValidationError("invalid multipart form", nil)
		}
		if vals := form.Value["body"]; len(vals) > 0 {
			body = vals[0]
		}
		files, closeAll, err := openUploads(form.File["attachments"])
		if err != nil {
			return err
		}
		defer closeAll()
		uploads = files
	} else {
		var req struct {
			Body string `json:"body" validate:"required,max=4000"`
		}
		if err := parseBody(c, &req); err != nil {
			return err
		}
		body = req.Body
	}

	msg, err := h.messages.PostMessage(c.UserContext(), account, c.Params("id"), body, uploads)
	if err != nil {
		return err
	}
	return c.Status(http.StatusCreated).JSON(fiber.Map{"data": messageResponse(msg, nil)})
}

func openUploads(headers []*multipart.FileHeader) ([]service.AttachmentUpload, func(), error) {
	var closers []io.Closer
	closeAll := func() {
		for _, cl := range closers {
			_ = cl.Close()
		}
	}
	uploads := make([]service.AttachmentUpload, 0, len(headers))
	for _, fh := range headers {
		f, err := fh.Open()
		if err != nil {
			closeAll()
			return nil, nil, apperrors.NewValidationError("unreadable attachment", map[string]any{"file": fh.Filename})
		}
		closers = append(closers, f)
		uploads = append(uploads, service.AttachmentUpload{
			FileName:    fh.Filename,
			ContentType: fh.Header.Get(fiber.HeaderContentType),
			Size:        fh.Size,
			Body:        f,
		})
	}
	return uploads, closeAll, nil
}

func messageResponse(msg *domain.TicketMessage, links []service.AttachmentLink) dto.MessageResponse {
	urls := make(map[string]string, len(links))
	for _, l := range links {
		urls[l.ID] = l.URL
	}
	attachments := make([]dto.AttachmentResponse, 0, len(msg.Attachments))
	for _, att := range msg.Attachments {
		attachments = append(attachments, dto.AttachmentResponse{
			ID:        att.ID,
			FileName:  att.FileName,
			MimeType:  att.MimeType,
			SizeBytes: att.SizeBytes,
			URL:       urls[att.ID],
		})
	}
	return dto.MessageResponse{
		ID:          msg.ID,
		ThreadID:    msg.ThreadID,
		AuthorID:    msg.AuthorID,
		AuthorEmail: msg.AuthorEmail,
		AuthorRole:  msg.AuthorRole,
		Body:        msg.Body,
		Attachments: attachments,
		CreatedAt:   msg.CreatedAt,
	}
}
