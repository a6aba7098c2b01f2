package handlers

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/spec-kit/helpdesk-service/internal/api/dto"
	"github.com/spec-kit/helpdesk-service/internal/live"
	"github.com/spec-kit/helpdesk-service/internal/routing"
	"github.com/spec-kit/helpdesk-service/internal/service"
)

// DefaultHeartbeat is the idle interval between SSE keep-alive comments.
const DefaultHeartbeat = 30 * time.Second

// StreamsHandler serves live views as server-sent events.
type StreamsHandler struct {
	views     *service.ViewService
	tables    *routing.Tables
	logger    *zap.Logger
	heartbeat time.Duration
}

// NewStreamsHandler constructs handler. A non-positive heartbeat uses
// DefaultHeartbeat.
func NewStreamsHandler(views *service.ViewService, tables *routing.Tables, logger *zap.Logger, heartbeat time.Duration) *StreamsHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	if heartbeat <= 0 {
		heartbeat = DefaultHeartbeat
	}
	return &StreamsHandler{views: views, tables: tables, logger: logger, heartbeat: heartbeat}
}

// Views handles GET /v1/streams.
func (h *StreamsHandler) Views(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{"data": service.ViewNames()})
}

type streamResult struct {
	snap live.Snapshot
	err  error
}

// Stream handles GET /v1/streams/:view. The first event carries the current
// view; later events follow each relevant change.
func (h *StreamsHandler) Stream(c *fiber.Ctx) error {
	account, err := currentAccount(c)
	if err != nil {
		return err
	}
	statuses, err := parseStatuses(c)
	if err != nil {
		return err
	}
	opts := service.ViewOptions{
		Category: c.Query("category"),
		Statuses: statuses,
		Limit:    c.QueryInt("limit", 0),
	}

	// The body writer outlives the handler, so the subscription cannot use
	// the request context.
	ctx, cancel := context.WithCancel(context.Background())
	view := c.Params("view")
	sub, err := h.views.OpenView(ctx, account, view, opts)
	if err != nil {
		cancel()
		return err
	}

	c.Set(fiber.HeaderContentType, "text/event-stream")
	c.Set(fiber.HeaderCacheControl, "no-cache")
	c.Set(fiber.HeaderConnection, "keep-alive")
	c.Set("X-Accel-Buffering", "no")

	accountID := account.ID
	c.Context().SetBodyStreamWriter(func(w *bufio.Writer) {
		defer cancel()
		defer sub.Cancel()

		results := make(chan streamResult)
		go func() {
			defer close(results)
			for snap, err := range sub.Snapshots(ctx) {
				select {
				case results <- streamResult{snap: snap, err: err}:
				case <-ctx.Done():
					return
				}
			}
		}()

		ticker := time.NewTicker(h.heartbeat)
		defer ticker.Stop()
		for {
			select {
			case r, ok := <-results:
				if !ok {
					return
				}
				if r.err != nil {
					h.logger.Warn("stream load failed", zap.String("view", view), zap.String("account_id", accountID), zap.Error(r.err))
					_ = writeEvent(w, "error", fiber.Map{"message": "view could not be loaded"})
					return
				}
				if err := writeEvent(w, "snapshot", h.snapshotBody(view, r.snap)); err != nil {
					h.logger.Debug("stream client gone", zap.String("view", view), zap.String("account_id", accountID))
					return
				}
			case <-ticker.C:
				if _, err := fmt.Fprint(w, ": heartbeat\n\n"); err != nil {
					return
				}
				if err := w.Flush(); err != nil {
					return
				}
			}
		}
	})
	return nil
}

func writeEvent(w *bufio.Writer, name string, body any) error {
	data, err := json.Marshal(body)
	if err != nil {
		return err
	}
	if _, err := fmt.Fprintf(w, "event: %s\ndata: %s\n\n", name, data); err != nil {
		return err
	}
	return w.Flush()
}

func (h *StreamsHandler) snapshotBody(view string, snap live.Snapshot) dto.StreamSnapshot {
	body := dto.StreamSnapshot{
		View:     view,
		Seq:      snap.Seq,
		Kind:     string(snap.Kind),
		Resync:   snap.Resync,
		LoadedAt: snap.LoadedAt,
		Changes:  make([]dto.StreamChange, 0, len(snap.Changes)),
	}
	for _, ch := range snap.Changes {
		body.Changes = append(body.Changes, dto.StreamChange{
			Kind:     string(ch.Kind),
			Op:       string(ch.Op),
			ID:       ch.ID,
			TicketID: ch.TicketID,
			At:       ch.At,
		})
	}
	switch snap.Kind {
	case live.KindTickets:
		items := make([]dto.TicketResponse, 0, len(snap.Tickets))
		for i := range snap.Tickets {
			items = append(items, ticketResponse(&snap.Tickets[i], h.tables))
		}
		body.Items = items
	case live.KindAssignments:
		items := make([]dto.AssignmentResponse, 0, len(snap.Assignments))
		for i := range snap.Assignments {
			items = append(items, assignmentResponse(&snap.Assignments[i]))
		}
		body.Items = items
	default:
		items := make([]dto.FeedbackResponse, 0, len(snap.Feedback))
		for i := range snap.Feedback {
			items = append(items, feedbackResponse(&snap.Feedback[i]))
		}
		body.Items = items
	}
	return body
}
