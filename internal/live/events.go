package live

import (
	"context"

	"github.com/spec-kit/helpdesk-service/internal/events"
)

// Attach subscribes the hub to every record-changing event on d.
func (h *Hub) Attach(d events.Dispatcher) {
	for _, t := range events.AllTypes {
		d.Subscribe(t, h.HandleEvent)
	}
}

// HandleEvent converts a domain event into changes and publishes them.
func (h *Hub) HandleEvent(ctx context.Context, event events.Event) error {
	h.Publish(ctx, ChangesFor(event)...)
	return nil
}

// ChangesFor maps a domain event to the record changes it implies.
func ChangesFor(event events.Event) []Change {
	at := event.Timestamp
	switch p := event.Payload.(type) {
	case events.TicketPayload:
		op := OpPut
		if event.Type == events.EventTicketDeleted {
			op = OpRemove
		}
		return []Change{{
			Kind: KindTickets, Op: op, ID: event.TicketID, TicketID: event.TicketID,
			OwnerID: p.OwnerID, AssigneeID: p.AssigneeID, At: at,
		}}
	case events.AssignmentPayload:
		return []Change{
			{
				Kind: KindTickets, Op: OpPut, ID: event.TicketID, TicketID: event.TicketID,
				OwnerID: p.OwnerID, AssigneeID: p.AssigneeID, At: at,
			},
			{
				Kind: KindAssignments, Op: OpPut, ID: p.AssignmentID, TicketID: event.TicketID,
				OwnerID: p.OwnerID, AssigneeID: p.AssigneeID, At: at,
			},
		}
	case events.FeedbackPayload:
		changes := []Change{{
			Kind: KindFeedback, Op: OpPut, ID: p.FeedbackID, TicketID: event.TicketID,
			OwnerID: p.UserID, At: at,
		}}
		if p.AssignmentID != "" {
			changes = append(changes, Change{
				Kind: KindAssignments, Op: OpPut, ID: p.AssignmentID, TicketID: event.TicketID,
				OwnerID: p.UserID, AssigneeID: p.AssigneeID, At: at,
			})
		}
		return changes
	default:
		return nil
	}
}
