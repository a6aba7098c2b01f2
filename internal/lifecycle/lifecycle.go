// Package lifecycle is the ticket state machine: which action may move a
// ticket from which status, and which kind of actor may trigger it.
package lifecycle

import (
	"errors"
	"fmt"

	"github.com/spec-kit/helpdesk-service/internal/domain"
)

var (
	// ErrActorNotAllowed is returned when the actor kind may not perform the action.
	ErrActorNotAllowed = errors.New("actor not allowed")
	// ErrInvalidState is returned when the action is not valid from the current status.
	ErrInvalidState = errors.New("invalid state for action")
)

// Actor classifies who triggers a transition.
type Actor string

const (
	ActorEndUser Actor = "end_user"
	ActorAdmin   Actor = "admin"
	ActorStaff   Actor = "staff"
	ActorSystem  Actor = "system"
)

// Action names a lifecycle operation.
type Action string

const (
	ActionCreate          Action = "create"
	ActionAssign          Action = "assign"
	ActionResolve         Action = "resolve"
	ActionClose           Action = "close"
	ActionCollectFeedback Action = "collect_feedback"
	ActionDelete          Action = "delete"
	ActionEdit            Action = "edit"
)

// noStatus marks a ticket that does not exist yet.
const noStatus domain.TicketStatus = ""

type transition struct {
	from  domain.TicketStatus
	to    domain.TicketStatus
	actor Actor
}

var transitions = map[Action]transition{
	ActionCreate:          {from: noStatus, to: domain.TicketStatusOpen, actor: ActorEndUser},
	ActionAssign:          {from: domain.TicketStatusOpen, to: domain.TicketStatusInProgress, actor: ActorAdmin},
	ActionResolve:         {from: domain.TicketStatusInProgress, to: domain.TicketStatusResolved, actor: ActorStaff},
	ActionClose:           {from: domain.TicketStatusInProgress, to: domain.TicketStatusClosed, actor: ActorSystem},
	ActionCollectFeedback: {from: domain.TicketStatusClosed, to: domain.TicketStatusClosed, actor: ActorEndUser},
	ActionDelete:          {from: domain.TicketStatusOpen, to: noStatus, actor: ActorEndUser},
	ActionEdit:            {from: domain.TicketStatusOpen, to: domain.TicketStatusOpen, actor: ActorEndUser},
}

// Check validates action against the current status and actor and returns
// the status the record moves to. Delete returns the empty status.
//
// Resolve applies to the assignment record; Close is the system-side mirror
// applied to the ticket in the same step.
func Check(action Action, current domain.TicketStatus, actor Actor) (domain.TicketStatus, error) {
	t, ok := transitions[action]
	if !ok {
		return current, fmt.Errorf("unknown action %q", action)
	}
	if actor != t.actor {
		return current, fmt.Errorf("%w: %s cannot %s", ErrActorNotAllowed, actor, action)
	}
	if current != t.from {
		return current, fmt.Errorf("%w: %s requires %s, got %s", ErrInvalidState, action, describe(t.from), describe(current))
	}
	return t.to, nil
}

// ActorFor maps an account role to its lifecycle actor kind.
func ActorFor(role domain.Role) Actor {
	switch {
	case role == domain.RoleAdmin:
		return ActorAdmin
	case role.IsStaff():
		return ActorStaff
	default:
		return ActorEndUser
	}
}

// Advance reports whether moving from current to next keeps the status
// monotonic. Equal statuses count as advancing.
func Advance(current, next domain.TicketStatus) bool {
	return next.Valid() && next.Rank() >= current.Rank()
}

// Mirror returns the ticket status that corresponds to an assignment status.
// A resolved assignment means the ticket is closed.
func Mirror(assignment domain.TicketStatus) domain.TicketStatus {
	if assignment == domain.TicketStatusResolved {
		return domain.TicketStatusClosed
	}
	return assignment
}

func describe(s domain.TicketStatus) string {
	if s == noStatus {
		return "no ticket"
	}
	return string(s)
}
