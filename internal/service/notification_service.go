package service

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/spec-kit/helpdesk-service/internal/config"
	"github.com/spec-kit/helpdesk-service/internal/events"
)

const (
	notificationQueueSize = 256
	webhookTimeout        = 5 * time.Second
)

// WebhookSender posts an encoded event to url.
type WebhookSender interface {
	Send(ctx context.Context, url string, body []byte) error
}

// agentSender posts with fiber's fasthttp client.
type agentSender struct {
	timeout time.Duration
}

func (s agentSender) Send(_ context.Context, url string, body []byte) error {
	agent := fiber.Post(url)
	agent.Timeout(s.timeout)
	agent.ContentType(fiber.MIMEApplicationJSON)
	agent.Body(body)
	code, _, errs := agent.Bytes()
	if len(errs) > 0 {
		return fmt.Errorf("post webhook: %w", errs[0])
	}
	if code >= fiber.StatusBadRequest {
		return fmt.Errorf("post webhook: status %d", code)
	}
	return nil
}

// NotificationService handles emitting notifications for domain events.
// Webhook deliveries are queued and sent by Run, never on the request path.
type NotificationService struct {
	dispatcher events.Dispatcher
	logger     *zap.Logger
	cfg        config.NotificationConfig
	sender     WebhookSender
	queue      chan events.Event
}

// NewNotificationService creates the service. A nil sender uses fiber's
// HTTP client.
func NewNotificationService(dispatcher events.Dispatcher, logger *zap.Logger, cfg config.NotificationConfig, sender WebhookSender) *NotificationService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if sender == nil {
		sender = agentSender{timeout: webhookTimeout}
	}
	return &NotificationService{
		dispatcher: dispatcher,
		logger:     logger,
		cfg:        cfg,
		sender:     sender,
		queue:      make(chan events.Event, notificationQueueSize),
	}
}

// RegisterHandlers subscribes to events.
func (n *NotificationService) RegisterHandlers() {
	if n.dispatcher == nil {
		return
	}
	for _, t := range events.AllTypes {
		n.dispatcher.Subscribe(t, n.handle)
	}
}

func (n *NotificationService) handle(ctx context.Context, event events.Event) error {
	n.logger.Info(string(event.Type),
		zap.String("ticket_id", event.TicketID),
		zap.String("actor_id", event.Actor.AccountID),
		zap.Any("payload", event.Payload),
	)
	n.sendEmailNotificationStub(ctx, event)
	if strings.TrimSpace(n.cfg.WebhookURL) == "" {
		return nil
	}
	select {
	case n.queue <- event:
		return nil
	default:
		return fmt.Errorf("notification queue full, dropped %s", event.Type)
	}
}

// Run delivers queued webhooks until ctx is done.
func (n *NotificationService) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case event := <-n.queue:
			n.deliver(ctx, event)
		}
	}
}

func (n *NotificationService) deliver(ctx context.Context, event events.Event) {
	body, err := json.Marshal(event)
	if err != nil {
		n.logger.Error("encode webhook event", zap.String("event_id", event.ID), zap.Error(err))
		return
	}
	if err := n.sender.Send(ctx, n.cfg.WebhookURL, body); err != nil {
		n.logger.Warn("webhook delivery failed",
			zap.String("event_id", event.ID),
			zap.String("event_type", string(event.Type)),
			zap.Error(err),
		)
		return
	}
	n.logger.Debug("webhook delivered", zap.String("event_id", event.ID), zap.String("event_type", string(event.Type)))
}

func (n *NotificationService) sendEmailNotificationStub(_ context.Context, event events.Event) {
	if strings.TrimSpace(n.cfg.EmailFrom) == "" {
		return
	}
	switch event.Type {
	case events.EventTicketCreated, events.EventTicketResolved, events.EventMessageAdded:
	default:
		return
	}
	n.logger.Debug("sendEmailNotificationStub",
		zap.String("from", n.cfg.EmailFrom),
		zap.String("ticket_id", event.TicketID),
		zap.String("event_type", string(event.Type)))
}
