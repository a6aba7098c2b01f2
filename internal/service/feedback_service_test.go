package service

import (
	"context"
	"errors"
	"testing"

	"github.com/spec-kit/helpdesk-service/internal/domain"
	"github.com/spec-kit/helpdesk-service/internal/repository"
	"github.com/spec-kit/helpdesk-service/internal/repository/memstore"
	apperrors "github.com/spec-kit/helpdesk-service/pkg/util"
)

func TestSubmitFeedbackUpsertsPerTicketAndUser(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	user := h.account(t, domain.RoleUser)
	admin := h.account(t, domain.RoleAdmin)
	engineer := h.account(t, domain.RoleNetworkEngineer)
	ticket, assignment := h.closedTicket(t, user, admin, engineer)

	first, created, err := h.feedback.SubmitFeedback(ctx, user, ticket.ID, FeedbackInput{Rating: 2, Comment: "slow"})
	if err != nil || !created {
		t.Fatalf("first submit = %v, created=%v", err, created)
	}
	second, created, err := h.feedback.SubmitFeedback(ctx, user, ticket.ID, FeedbackInput{Rating: 5, Comment: "great"})
	if err != nil {
		t.Fatalf("second submit: %v", err)
	}
	if created {
		t.Fatal("second submission should update, not create")
	}

	list, err := h.store.Feedback.List(ctx, repository.FeedbackFilter{TicketID: &ticket.ID})
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(list) != 1 {
		t.Fatalf("records = %d, want 1", len(list))
	}
	if list[0].Rating != 5 || list[0].Comment != "great" {
		t.Fatalf("stored = %d/%q", list[0].Rating, list[0].Comment)
	}
	if list[0].ID != first.ID || second.Rating != 5 {
		t.Fatalf("ids = %s/%s", list[0].ID, first.ID)
	}

	mirrored, _ := h.store.Assignments.GetByID(ctx, assignment.ID)
	if mirrored.FeedbackRating == nil || *mirrored.FeedbackRating != 5 || deref(mirrored.FeedbackComment) != "great" {
		t.Fatalf("mirrored = %v/%q", mirrored.FeedbackRating, deref(mirrored.FeedbackComment))
	}
}

func TestSubmitFeedbackValidation(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	user := h.account(t, domain.RoleUser)
	admin := h.account(t, domain.RoleAdmin)
	engineer := h.account(t, domain.RoleNetworkEngineer)
	ticket, _ := h.closedTicket(t, user, admin, engineer)

	cases := []struct {
		name  string
		input FeedbackInput
	}{
		{"rating too low", FeedbackInput{Rating: 0, Comment: "x"}},
		{"rating too high", FeedbackInput{Rating: 6, Comment: "x"}},
		{"blank comment", FeedbackInput{Rating: 3, Comment: "  "}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, _, err := h.feedback.SubmitFeedback(ctx, user, ticket.ID, tc.input)
			expectCode(t, err, apperrors.CodeValidation)
		})
	}
}

func TestSubmitFeedbackRequiresClosedOwnedTicket(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	user := h.account(t, domain.RoleUser)
	other := h.account(t, domain.RoleUser)
	admin := h.account(t, domain.RoleAdmin)
	engineer := h.account(t, domain.RoleNetworkEngineer)

	open := h.openTicket(t, user, "billing", "refund")
	_, _, err := h.feedback.SubmitFeedback(ctx, user, open.ID, FeedbackInput{Rating: 3, Comment: "meh"})
	expectCode(t, err, apperrors.CodeConflict)

	closed, _ := h.closedTicket(t, user, admin, engineer)
	_, _, err = h.feedback.SubmitFeedback(ctx, other, closed.ID, FeedbackInput{Rating: 3, Comment: "meh"})
	expectCode(t, err, apperrors.CodeForbidden)

	_, _, err = h.feedback.SubmitFeedback(ctx, user, "missing", FeedbackInput{Rating: 3, Comment: "meh"})
	expectCode(t, err, apperrors.CodeNotFound)
}

func TestFeedbackListingAndStats(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	alice := h.account(t, domain.RoleUser)
	bob := h.account(t, domain.RoleUser)
	admin := h.account(t, domain.RoleAdmin)
	engineer := h.account(t, domain.RoleNetworkEngineer)

	t1, _ := h.closedTicket(t, alice, admin, engineer)
	t2, _ := h.closedTicket(t, alice, admin, engineer)
	t3, _ := h.closedTicket(t, bob, admin, engineer)
	for _, s := range []struct {
		actor  *domain.Account
		ticket string
		rating int
	}{
		{alice, t1.ID, 5},
		{alice, t2.ID, 3},
		{bob, t3.ID, 1},
	} {
		if _, _, err := h.feedback.SubmitFeedback(ctx, s.actor, s.ticket, FeedbackInput{Rating: s.rating, Comment: "c"}); err != nil {
			t.Fatalf("SubmitFeedback: %v", err)
		}
	}

	own, err := h.feedback.ListFeedback(ctx, alice, FeedbackListFilter{})
	if err != nil || len(own) != 2 {
		t.Fatalf("alice sees %d, %v", len(own), err)
	}

	stats, err := h.feedback.Stats(ctx, admin, nil)
	if err != nil {
		t.Fatalf("Stats: %v", err)
	}
	if stats.Total != 3 || stats.Positive != 1 || stats.Neutral != 1 || stats.Negative != 1 {
		t.Fatalf("stats = %+v", stats)
	}
	if stats.AverageRating != 3 {
		t.Fatalf("average = %v, want 3", stats.AverageRating)
	}

	band := domain.RatingBandNegative
	negative, err := h.feedback.ListFeedback(ctx, admin, FeedbackListFilter{Band: &band})
	if err != nil || len(negative) != 1 || negative[0].UserID != bob.ID {
		t.Fatalf("negative = %+v, %v", negative, err)
	}

	bogus := domain.RatingBand("ecstatic")
	_, err = h.feedback.ListFeedback(ctx, admin, FeedbackListFilter{Band: &bogus})
	expectCode(t, err, apperrors.CodeValidation)

	fb, err := h.feedback.GetFeedback(ctx, bob, t3.ID)
	if err != nil || fb.Rating != 1 {
		t.Fatalf("GetFeedback = %+v, %v", fb, err)
	}
	_, err = h.feedback.GetFeedback(ctx, bob, t1.ID)
	expectCode(t, err, apperrors.CodeNotFound)
}

func TestRatingBands(t *testing.T) {
	cases := map[int]domain.RatingBand{
		1: domain.RatingBandNegative,
		2: domain.RatingBandNeutral,
		3: domain.RatingBandNeutral,
		4: domain.RatingBandPositive,
		5: domain.RatingBandPositive,
	}
	for rating, want := range cases {
		if got := domain.BandFor(rating); got != want {
			t.Fatalf("BandFor(%d) = %s, want %s", rating, got, want)
		}
	}
}

func TestSubmitFeedbackWriteFailureLeavesMirrorUntouched(t *testing.T) {
	for _, mode := range storeModes {
		t.Run(mode.name, func(t *testing.T) {
			h := newHarness(t)
			mode.setup(h)
			ctx := context.Background()
			user := h.account(t, domain.RoleUser)
			admin := h.account(t, domain.RoleAdmin)
			engineer := h.account(t, domain.RoleNetworkEngineer)
			ticket, assignment := h.closedTicket(t, user, admin, engineer)

			h.db.FailOn(memstore.OpFeedbackUpsert, errors.New("disk full"))
			_, _, err := h.feedback.SubmitFeedback(ctx, user, ticket.ID, FeedbackInput{Rating: 5, Comment: "great"})
			expectCode(t, err, apperrors.CodeWriteFailed)

			stored, _ := h.store.Assignments.GetByID(ctx, assignment.ID)
			if stored.FeedbackRating != nil || stored.FeedbackComment != nil {
				t.Fatalf("mirror written by failed submission: %v %v", stored.FeedbackRating, stored.FeedbackComment)
			}
			if _, err := h.store.Feedback.GetByTicketAndUser(ctx, ticket.ID, user.ID); !errors.Is(err, repository.ErrNotFound) {
				t.Fatalf("feedback stored by failed submission: %v", err)
			}
		})
	}
}
