package service

import (
	"context"
	"errors"
	"testing"

	"github.com/spec-kit/helpdesk-service/internal/domain"
	"github.com/spec-kit/helpdesk-service/internal/events"
	"github.com/spec-kit/helpdesk-service/internal/repository"
	"github.com/spec-kit/helpdesk-service/internal/repository/memstore"
	apperrors "github.com/spec-kit/helpdesk-service/pkg/util"
)

func TestCandidatesOnlyHoldRoutedRole(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	user := h.account(t, domain.RoleUser)
	admin := h.account(t, domain.RoleAdmin)
	first := h.account(t, domain.RoleNetworkEngineer)
	second := h.account(t, domain.RoleNetworkEngineer)
	h.account(t, domain.RoleFinanceOfficer)
	h.account(t, domain.RoleHardwareTechnician)

	ticket := h.openTicket(t, user, "network", "VPN down")
	c, err := h.assignments.Candidates(ctx, admin, ticket.ID)
	if err != nil {
		t.Fatalf("Candidates: %v", err)
	}
	if c.Role != domain.RoleNetworkEngineer {
		t.Fatalf("role = %s", c.Role)
	}
	if len(c.Staff) != 2 {
		t.Fatalf("candidates = %d, want 2", len(c.Staff))
	}
	for _, s := range c.Staff {
		if s.Role != domain.RoleNetworkEngineer {
			t.Fatalf("candidate %s holds %s", s.ID, s.Role)
		}
		if s.ID != first.ID && s.ID != second.ID {
			t.Fatalf("unexpected candidate %s", s.ID)
		}
	}

	_, err = h.assignments.Candidates(ctx, user, ticket.ID)
	expectCode(t, err, apperrors.CodeForbidden)
}

func TestRoutingGapWritesNothing(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	user := h.account(t, domain.RoleUser)
	admin := h.account(t, domain.RoleAdmin)
	staff := h.account(t, domain.RoleSoftwareEngineer)

	for _, key := range []string{"technical", "other"} {
		ticket := h.openTicket(t, user, key, "something broke")

		_, err := h.assignments.Candidates(ctx, admin, ticket.ID)
		expectCode(t, err, apperrors.CodeRoutingGap)

		_, _, err = h.assignments.AssignTicket(ctx, admin, ticket.ID, staff.ID)
		expectCode(t, err, apperrors.CodeRoutingGap)

		if _, err := h.store.Assignments.GetByTicket(ctx, ticket.ID); !errors.Is(err, repository.ErrNotFound) {
			t.Fatalf("%s: assignment written despite routing gap: %v", key, err)
		}
		stored, err := h.store.Tickets.GetByID(ctx, ticket.ID)
		if err != nil {
			t.Fatalf("GetByID: %v", err)
		}
		if stored.Status != domain.TicketStatusOpen {
			t.Fatalf("%s: status = %s, want OPEN", key, stored.Status)
		}
	}
}

func TestAssignBlockedWithoutCandidates(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	user := h.account(t, domain.RoleUser)
	admin := h.account(t, domain.RoleAdmin)
	wrongRole := h.account(t, domain.RoleCustomerSupport)

	ticket := h.openTicket(t, user, "billing", "double charge")
	_, _, err := h.assignments.AssignTicket(ctx, admin, ticket.ID, wrongRole.ID)
	expectCode(t, err, apperrors.CodeValidation)

	finance := h.account(t, domain.RoleFinanceOfficer)
	_, _, err = h.assignments.AssignTicket(ctx, admin, ticket.ID, wrongRole.ID)
	expectCode(t, err, apperrors.CodeValidation)

	if _, _, err := h.assignments.AssignTicket(ctx, admin, ticket.ID, finance.ID); err != nil {
		t.Fatalf("AssignTicket: %v", err)
	}
}

func TestAssignRequiresAdminAndOpenTicket(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	user := h.account(t, domain.RoleUser)
	admin := h.account(t, domain.RoleAdmin)
	engineer := h.account(t, domain.RoleNetworkEngineer)

	ticket := h.openTicket(t, user, "network", "VPN down")
	_, _, err := h.assignments.AssignTicket(ctx, engineer, ticket.ID, engineer.ID)
	expectCode(t, err, apperrors.CodeForbidden)

	if _, _, err := h.assignments.AssignTicket(ctx, admin, ticket.ID, engineer.ID); err != nil {
		t.Fatalf("AssignTicket: %v", err)
	}
	_, _, err = h.assignments.AssignTicket(ctx, admin, ticket.ID, engineer.ID)
	expectCode(t, err, apperrors.CodeConflict)

	_, _, err = h.assignments.AssignTicket(ctx, admin, "missing", engineer.ID)
	expectCode(t, err, apperrors.CodeNotFound)
}

func TestAssignResolveAndFeedbackEndToEnd(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	user := h.account(t, domain.RoleUser)
	admin := h.account(t, domain.RoleAdmin)
	engineer := h.account(t, domain.RoleNetworkEngineer)

	ticket := h.openTicket(t, user, "network", "VPN down")
	if ticket.Color != "green" {
		t.Fatalf("color = %s", ticket.Color)
	}

	assignment, ticket, err := h.assignments.AssignTicket(ctx, admin, ticket.ID, engineer.ID)
	if err != nil {
		t.Fatalf("AssignTicket: %v", err)
	}
	if assignment.Priority != domain.PriorityMedium {
		t.Fatalf("priority = %s, want Medium", assignment.Priority)
	}
	if assignment.Status != domain.TicketStatusInProgress || ticket.Status != domain.TicketStatusInProgress {
		t.Fatalf("statuses = %s/%s", assignment.Status, ticket.Status)
	}
	if deref(ticket.AssigneeID) != engineer.ID {
		t.Fatalf("ticket assignee = %q", deref(ticket.AssigneeID))
	}

	assignment, ticket, err = h.assignments.ResolveAssignment(ctx, engineer, assignment.ID)
	if err != nil {
		t.Fatalf("ResolveAssignment: %v", err)
	}
	if assignment.Status != domain.TicketStatusResolved || assignment.ResolvedAt == nil {
		t.Fatalf("assignment = %+v", assignment)
	}
	if ticket.Status != domain.TicketStatusClosed {
		t.Fatalf("ticket status = %s, want CLOSED", ticket.Status)
	}
	if deref(ticket.AssigneeID) != engineer.ID || deref(ticket.FeedbackID) != assignment.ID {
		t.Fatalf("ticket close fields = %q/%q", deref(ticket.AssigneeID), deref(ticket.FeedbackID))
	}

	fb, created, err := h.feedback.SubmitFeedback(ctx, user, ticket.ID, FeedbackInput{Rating: 4, Comment: "fixed quickly"})
	if err != nil {
		t.Fatalf("SubmitFeedback: %v", err)
	}
	if !created || fb.Rating != 4 {
		t.Fatalf("feedback = %+v created=%v", fb, created)
	}
	all, err := h.store.Feedback.List(ctx, repository.FeedbackFilter{TicketID: &ticket.ID})
	if err != nil {
		t.Fatalf("List feedback: %v", err)
	}
	if len(all) != 1 {
		t.Fatalf("feedback records = %d, want 1", len(all))
	}

	stored, err := h.store.Assignments.GetByID(ctx, assignment.ID)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if stored.FeedbackRating == nil || *stored.FeedbackRating != 4 {
		t.Fatalf("mirrored rating = %v", stored.FeedbackRating)
	}

	want := []events.EventType{
		events.EventTicketCreated,
		events.EventTicketAssigned,
		events.EventTicketResolved,
		events.EventFeedbackSubmitted,
	}
	got := h.recorded.types()
	if len(got) != len(want) {
		t.Fatalf("events = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("events = %v, want %v", got, want)
		}
	}
}

func TestResolveOnlyByAssignee(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	user := h.account(t, domain.RoleUser)
	admin := h.account(t, domain.RoleAdmin)
	engineer := h.account(t, domain.RoleNetworkEngineer)
	colleague := h.account(t, domain.RoleNetworkEngineer)

	ticket := h.openTicket(t, user, "network", "VPN down")
	assignment, _, err := h.assignments.AssignTicket(ctx, admin, ticket.ID, engineer.ID)
	if err != nil {
		t.Fatalf("AssignTicket: %v", err)
	}

	_, _, err = h.assignments.ResolveAssignment(ctx, colleague, assignment.ID)
	expectCode(t, err, apperrors.CodeForbidden)
	_, _, err = h.assignments.ResolveAssignment(ctx, admin, assignment.ID)
	expectCode(t, err, apperrors.CodeForbidden)

	if _, _, err := h.assignments.ResolveAssignment(ctx, engineer, assignment.ID); err != nil {
		t.Fatalf("ResolveAssignment: %v", err)
	}
	_, _, err = h.assignments.ResolveAssignment(ctx, engineer, assignment.ID)
	expectCode(t, err, apperrors.CodeConflict)
}

// storeModes runs a write-failure test against an atomic store and against
// one whose transactor runs writes one by one.
var storeModes = []struct {
	name  string
	setup func(*harness)
}{
	{"transactional", func(*harness) {}},
	{"sequential", (*harness).withoutTransactions},
}

func TestAssignWriteFailureLeavesNothing(t *testing.T) {
	for _, mode := range storeModes {
		t.Run(mode.name, func(t *testing.T) {
			h := newHarness(t)
			mode.setup(h)
			ctx := context.Background()
			user := h.account(t, domain.RoleUser)
			admin := h.account(t, domain.RoleAdmin)
			engineer := h.account(t, domain.RoleNetworkEngineer)
			ticket := h.openTicket(t, user, "network", "VPN down")

			h.db.FailOn(memstore.OpTicketUpdate, errors.New("disk full"))
			_, _, err := h.assignments.AssignTicket(ctx, admin, ticket.ID, engineer.ID)
			expectCode(t, err, apperrors.CodeWriteFailed)

			if _, err := h.store.Assignments.GetByTicket(ctx, ticket.ID); !errors.Is(err, repository.ErrNotFound) {
				t.Fatalf("assignment survived failed assign: %v", err)
			}
			stored, _ := h.store.Tickets.GetByID(ctx, ticket.ID)
			if stored.Status != domain.TicketStatusOpen {
				t.Fatalf("status = %s, want OPEN", stored.Status)
			}

			h.db.ClearFailures()
			repaired, err := h.assignments.ReconcileAll(ctx)
			if err != nil || repaired != 0 {
				t.Fatalf("ReconcileAll = %d, %v; want nothing to repair", repaired, err)
			}
			if _, _, err := h.assignments.AssignTicket(ctx, admin, ticket.ID, engineer.ID); err != nil {
				t.Fatalf("retry AssignTicket: %v", err)
			}
		})
	}
}

func TestResolveWriteFailureLeavesNothing(t *testing.T) {
	for _, mode := range storeModes {
		t.Run(mode.name, func(t *testing.T) {
			h := newHarness(t)
			mode.setup(h)
			ctx := context.Background()
			user := h.account(t, domain.RoleUser)
			admin := h.account(t, domain.RoleAdmin)
			engineer := h.account(t, domain.RoleNetworkEngineer)
			ticket := h.openTicket(t, user, "network", "VPN down")
			assignment, _, err := h.assignments.AssignTicket(ctx, admin, ticket.ID, engineer.ID)
			if err != nil {
				t.Fatalf("AssignTicket: %v", err)
			}

			h.db.FailOn(memstore.OpTicketUpdate, errors.New("disk full"))
			_, _, err = h.assignments.ResolveAssignment(ctx, engineer, assignment.ID)
			expectCode(t, err, apperrors.CodeWriteFailed)

			stored, _ := h.store.Assignments.GetByID(ctx, assignment.ID)
			if stored.Status != domain.TicketStatusInProgress || stored.ResolvedAt != nil {
				t.Fatalf("assignment = %s resolved_at %v, want IN_PROGRESS and unresolved", stored.Status, stored.ResolvedAt)
			}
			storedTicket, _ := h.store.Tickets.GetByID(ctx, ticket.ID)
			if storedTicket.Status != domain.TicketStatusInProgress {
				t.Fatalf("ticket status = %s, want IN_PROGRESS", storedTicket.Status)
			}

			h.db.ClearFailures()
			if _, _, err := h.assignments.ResolveAssignment(ctx, engineer, assignment.ID); err != nil {
				t.Fatalf("retry ResolveAssignment: %v", err)
			}
		})
	}
}

func TestReassignedStaffKeepsEarlierAssignments(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	user := h.account(t, domain.RoleUser)
	admin := h.account(t, domain.RoleAdmin)
	engineer := h.account(t, domain.RoleNetworkEngineer)
	ticket := h.openTicket(t, user, "network", "VPN down")
	assignment, _, err := h.assignments.AssignTicket(ctx, admin, ticket.ID, engineer.ID)
	if err != nil {
		t.Fatalf("AssignTicket: %v", err)
	}

	moved, changed, err := h.accounts.ChangeRole(ctx, admin, engineer.ID, domain.RoleFinanceOfficer)
	if err != nil || !changed {
		t.Fatalf("ChangeRole = %v, %v", changed, err)
	}

	list, err := h.assignments.ListAssignments(ctx, moved, AssignmentListFilter{})
	if err != nil {
		t.Fatalf("ListAssignments: %v", err)
	}
	if len(list) != 1 || list[0].ID != assignment.ID {
		t.Fatalf("got %d assignments after role change, want the earlier one", len(list))
	}
	if _, err := h.assignments.GetAssignment(ctx, moved, assignment.ID); err != nil {
		t.Fatalf("GetAssignment: %v", err)
	}
	if _, err := h.tickets.GetTicket(ctx, moved, ticket.ID); err != nil {
		t.Fatalf("GetTicket: %v", err)
	}
	if _, _, err := h.assignments.ResolveAssignment(ctx, moved, assignment.ID); err != nil {
		t.Fatalf("ResolveAssignment after role change: %v", err)
	}
}

func TestReconcileRepairsDivergedPair(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	user := h.account(t, domain.RoleUser)
	admin := h.account(t, domain.RoleAdmin)
	engineer := h.account(t, domain.RoleNetworkEngineer)
	ticket := h.openTicket(t, user, "network", "VPN down")
	assignment, _, err := h.assignments.AssignTicket(ctx, admin, ticket.ID, engineer.ID)
	if err != nil {
		t.Fatalf("AssignTicket: %v", err)
	}

	// Simulate a half-applied resolve: the assignment moved, the ticket did not.
	assignment.Status = domain.TicketStatusResolved
	if err := h.store.Assignments.Update(ctx, assignment); err != nil {
		t.Fatalf("Update: %v", err)
	}

	repaired, err := h.assignments.Reconcile(ctx, ticket.ID)
	if err != nil {
		t.Fatalf("Reconcile: %v", err)
	}
	if !repaired {
		t.Fatal("expected a repair")
	}
	stored, _ := h.store.Tickets.GetByID(ctx, ticket.ID)
	if stored.Status != domain.TicketStatusClosed || deref(stored.FeedbackID) != assignment.ID {
		t.Fatalf("ticket after repair = %s feedback=%q", stored.Status, deref(stored.FeedbackID))
	}

	repaired, err = h.assignments.Reconcile(ctx, ticket.ID)
	if err != nil {
		t.Fatalf("second Reconcile: %v", err)
	}
	if repaired {
		t.Fatal("reconcile should be idempotent")
	}

	types := h.recorded.types()
	if types[len(types)-1] != events.EventTicketReconciled {
		t.Fatalf("last event = %s", types[len(types)-1])
	}
}

func TestReconcileResolvesAssignmentOfClosedTicket(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	user := h.account(t, domain.RoleUser)
	admin := h.account(t, domain.RoleAdmin)
	engineer := h.account(t, domain.RoleNetworkEngineer)
	ticket := h.openTicket(t, user, "network", "VPN down")
	assignment, ticket, err := h.assignments.AssignTicket(ctx, admin, ticket.ID, engineer.ID)
	if err != nil {
		t.Fatalf("AssignTicket: %v", err)
	}

	ticket.Status = domain.TicketStatusClosed
	if err := h.store.Tickets.Update(ctx, ticket); err != nil {
		t.Fatalf("Update: %v", err)
	}

	n, err := h.assignments.ReconcileAll(ctx)
	if err != nil {
		t.Fatalf("ReconcileAll: %v", err)
	}
	if n != 1 {
		t.Fatalf("repaired = %d, want 1", n)
	}
	stored, _ := h.store.Assignments.GetByID(ctx, assignment.ID)
	if stored.Status != domain.TicketStatusResolved || stored.ResolvedAt == nil {
		t.Fatalf("assignment = %s", stored.Status)
	}
	fixed, _ := h.store.Tickets.GetByID(ctx, ticket.ID)
	if fixed.Status != domain.TicketStatusClosed || deref(fixed.FeedbackID) != assignment.ID {
		t.Fatalf("ticket = %s feedback=%q", fixed.Status, deref(fixed.FeedbackID))
	}
}

func TestReconcileWithoutAssignmentIsNoop(t *testing.T) {
	h := newHarness(t)
	user := h.account(t, domain.RoleUser)
	ticket := h.openTicket(t, user, "network", "VPN down")

	repaired, err := h.assignments.Reconcile(context.Background(), ticket.ID)
	if err != nil || repaired {
		t.Fatalf("Reconcile = %v, %v", repaired, err)
	}
	_, err = h.assignments.Reconcile(context.Background(), "missing")
	expectCode(t, err, apperrors.CodeNotFound)
}

func TestListAssignmentsScopedToAssignee(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	user := h.account(t, domain.RoleUser)
	admin := h.account(t, domain.RoleAdmin)
	net := h.account(t, domain.RoleNetworkEngineer)
	fin := h.account(t, domain.RoleFinanceOfficer)

	first := h.openTicket(t, user, "network", "VPN down")
	second := h.openTicket(t, user, "billing", "refund")
	a, _, err := h.assignments.AssignTicket(ctx, admin, first.ID, net.ID)
	if err != nil {
		t.Fatalf("AssignTicket: %v", err)
	}
	if _, _, err := h.assignments.AssignTicket(ctx, admin, second.ID, fin.ID); err != nil {
		t.Fatalf("AssignTicket: %v", err)
	}

	all, err := h.assignments.ListAssignments(ctx, admin, AssignmentListFilter{})
	if err != nil || len(all) != 2 {
		t.Fatalf("admin list = %d, %v", len(all), err)
	}
	own, err := h.assignments.ListAssignments(ctx, net, AssignmentListFilter{})
	if err != nil || len(own) != 1 || own[0].ID != a.ID {
		t.Fatalf("engineer list = %+v, %v", own, err)
	}
	_, err = h.assignments.GetAssignment(ctx, fin, a.ID)
	expectCode(t, err, apperrors.CodeForbidden)
}
