package lifecycle

import (
	"errors"
	"testing"

	"github.com/spec-kit/helpdesk-service/internal/domain"
)

var allStatuses = []domain.TicketStatus{
	domain.TicketStatusOpen,
	domain.TicketStatusInProgress,
	domain.TicketStatusResolved,
	domain.TicketStatusClosed,
}

func TestCheckAllowedTransitions(t *testing.T) {
	tests := []struct {
		action  Action
		current domain.TicketStatus
		actor   Actor
		want    domain.TicketStatus
	}{
		{ActionCreate, "", ActorEndUser, domain.TicketStatusOpen},
		{ActionAssign, domain.TicketStatusOpen, ActorAdmin, domain.TicketStatusInProgress},
		{ActionResolve, domain.TicketStatusInProgress, ActorStaff, domain.TicketStatusResolved},
		{ActionClose, domain.TicketStatusInProgress, ActorSystem, domain.TicketStatusClosed},
		{ActionCollectFeedback, domain.TicketStatusClosed, ActorEndUser, domain.TicketStatusClosed},
		{ActionDelete, domain.TicketStatusOpen, ActorEndUser, ""},
		{ActionEdit, domain.TicketStatusOpen, ActorEndUser, domain.TicketStatusOpen},
	}
	for _, tt := range tests {
		got, err := Check(tt.action, tt.current, tt.actor)
		if err != nil {
			t.Fatalf("Check(%s, %q, %s): %v", tt.action, tt.current, tt.actor, err)
		}
		if got != tt.want {
			t.Fatalf("Check(%s, %q, %s) = %q, want %q", tt.action, tt.current, tt.actor, got, tt.want)
		}
	}
}

func TestCheckRejectsWrongActor(t *testing.T) {
	tests := []struct {
		action  Action
		current domain.TicketStatus
		actor   Actor
	}{
		{ActionAssign, domain.TicketStatusOpen, ActorEndUser},
		{ActionAssign, domain.TicketStatusOpen, ActorStaff},
		{ActionResolve, domain.TicketStatusInProgress, ActorAdmin},
		{ActionResolve, domain.TicketStatusInProgress, ActorEndUser},
		{ActionDelete, domain.TicketStatusOpen, ActorAdmin},
		{ActionCreate, "", ActorStaff},
	}
	for _, tt := range tests {
		got, err := Check(tt.action, tt.current, tt.actor)
		if !errors.Is(err, ErrActorNotAllowed) {
			t.Fatalf("Check(%s, %q, %s) error = %v, want ErrActorNotAllowed", tt.action, tt.current, tt.actor, err)
		}
		if got != tt.current {
			t.Fatalf("rejected check must return the current status, got %q", got)
		}
	}
}

func TestDeleteOnlyWhileOpen(t *testing.T) {
	for _, status := range allStatuses {
		_, err := Check(ActionDelete, status, ActorEndUser)
		if status == domain.TicketStatusOpen {
			if err != nil {
				t.Fatalf("delete while open: %v", err)
			}
			continue
		}
		if !errors.Is(err, ErrInvalidState) {
			t.Fatalf("delete while %s: error = %v, want ErrInvalidState", status, err)
		}
	}
}

func TestAssignOnlyWhileOpen(t *testing.T) {
	for _, status := range allStatuses[1:] {
		if _, err := Check(ActionAssign, status, ActorAdmin); !errors.Is(err, ErrInvalidState) {
			t.Fatalf("assign while %s: error = %v", status, err)
		}
	}
}

func TestFeedbackRequiresClosed(t *testing.T) {
	for _, status := range allStatuses[:3] {
		if _, err := Check(ActionCollectFeedback, status, ActorEndUser); !errors.Is(err, ErrInvalidState) {
			t.Fatalf("feedback while %s: error = %v", status, err)
		}
	}
}

// No sequence of defined actions takes a closed ticket back to open.
func TestClosedNeverReturnsToOpen(t *testing.T) {
	actors := []Actor{ActorEndUser, ActorAdmin, ActorStaff, ActorSystem}
	for action := range transitions {
		for _, actor := range actors {
			next, err := Check(action, domain.TicketStatusClosed, actor)
			if err != nil {
				continue
			}
			if next != domain.TicketStatusClosed {
				t.Fatalf("%s by %s moved a closed ticket to %q", action, actor, next)
			}
		}
	}
}

func TestTransitionsAreMonotonic(t *testing.T) {
	for action, tr := range transitions {
		if tr.from == "" || tr.to == "" {
			continue
		}
		if tr.to.Rank() < tr.from.Rank() {
			t.Fatalf("%s regresses %s to %s", action, tr.from, tr.to)
		}
	}
}

func TestActorFor(t *testing.T) {
	if got := ActorFor(domain.RoleAdmin); got != ActorAdmin {
		t.Fatalf("admin -> %s", got)
	}
	if got := ActorFor(domain.RoleUser); got != ActorEndUser {
		t.Fatalf("user -> %s", got)
	}
	for _, role := range domain.StaffRoles {
		if got := ActorFor(role); got != ActorStaff {
			t.Fatalf("%s -> %s", role, got)
		}
	}
}

func TestAdvanceAndMirror(t *testing.T) {
	if Advance(domain.TicketStatusClosed, domain.TicketStatusOpen) {
		t.Fatal("closed -> open must not advance")
	}
	if !Advance(domain.TicketStatusOpen, domain.TicketStatusInProgress) {
		t.Fatal("open -> in progress should advance")
	}
	if Advance(domain.TicketStatusOpen, "REOPENED") {
		t.Fatal("unknown status must not advance")
	}
	if Mirror(domain.TicketStatusResolved) != domain.TicketStatusClosed {
		t.Fatal("resolved assignment mirrors to closed ticket")
	}
	if Mirror(domain.TicketStatusInProgress) != domain.TicketStatusInProgress {
		t.Fatal("in-progress assignment mirrors to in-progress ticket")
	}
}
