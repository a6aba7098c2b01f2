package service

import (
	"context"
	"testing"

	"github.com/spec-kit/helpdesk-service/internal/domain"
	"github.com/spec-kit/helpdesk-service/internal/repository"
	apperrors "github.com/spec-kit/helpdesk-service/pkg/util"
)

func TestRegisterAndLogin(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	session, err := h.accounts.Register(ctx, "Ada", " Ada@Example.com ", "s3cret!")
	if err != nil {
		t.Fatalf("Register: %v", err)
	}
	if session.Account.Role != domain.RoleUser || session.Account.Email != "ada@example.com" {
		t.Fatalf("account = %+v", session.Account)
	}
	if session.Token == "" || session.ExpiresAt.IsZero() {
		t.Fatal("expected an access token")
	}
	claims, err := h.accounts.TokenManager().ParseToken(session.Token)
	if err != nil || claims.AccountID() != session.Account.ID {
		t.Fatalf("ParseToken = %+v, %v", claims, err)
	}

	if _, err := h.accounts.Login(ctx, "ADA@example.com", "s3cret!"); err != nil {
		t.Fatalf("Login: %v", err)
	}
	_, err = h.accounts.Login(ctx, "ada@example.com", "wrong")
	expectCode(t, err, apperrors.CodeUnauthorized)
	_, err = h.accounts.Login(ctx, "nobody@example.com", "s3cret!")
	expectCode(t, err, apperrors.CodeUnauthorized)

	_, err = h.accounts.Register(ctx, "Ada again", "ada@example.com", "other")
	expectCode(t, err, apperrors.CodeConflict)
	_, err = h.accounts.Register(ctx, "No password", "np@example.com", "")
	expectCode(t, err, apperrors.CodeValidation)
}

func TestChangeRoleByAdmin(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	admin := h.account(t, domain.RoleAdmin)
	user := h.account(t, domain.RoleUser)

	updated, changed, err := h.accounts.ChangeRole(ctx, admin, user.ID, domain.RoleNetworkEngineer)
	if err != nil || !changed || updated.Role != domain.RoleNetworkEngineer {
		t.Fatalf("ChangeRole = %+v, %v, %v", updated, changed, err)
	}

	_, _, err = h.accounts.ChangeRole(ctx, admin, user.ID, domain.Role("wizard"))
	expectCode(t, err, apperrors.CodeValidation)
	_, _, err = h.accounts.ChangeRole(ctx, user, admin.ID, domain.RoleUser)
	expectCode(t, err, apperrors.CodeForbidden)
	_, _, err = h.accounts.ChangeRole(ctx, admin, "missing", domain.RoleUser)
	expectCode(t, err, apperrors.CodeNotFound)
}

func TestLastAdminCannotBeDemotedOrDeleted(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	admin := h.account(t, domain.RoleAdmin)

	got, changed, err := h.accounts.ChangeRole(ctx, admin, admin.ID, domain.RoleUser)
	if err != nil {
		t.Fatalf("ChangeRole: %v", err)
	}
	if changed || got.Role != domain.RoleAdmin {
		t.Fatalf("last admin demoted: changed=%v role=%s", changed, got.Role)
	}

	deleted, err := h.accounts.DeleteAccount(ctx, admin, admin.ID)
	if err != nil {
		t.Fatalf("DeleteAccount: %v", err)
	}
	if deleted {
		t.Fatal("last admin deleted")
	}
	count, _ := h.store.Accounts.CountByRole(ctx, domain.RoleAdmin)
	if count != 1 {
		t.Fatalf("admins = %d, want 1", count)
	}
}

func TestSecondAdminCanBeDemoted(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	first := h.account(t, domain.RoleAdmin)
	second := h.account(t, domain.RoleAdmin)

	_, changed, err := h.accounts.ChangeRole(ctx, first, second.ID, domain.RoleUser)
	if err != nil || !changed {
		t.Fatalf("ChangeRole = %v, %v", changed, err)
	}
	_, changed, err = h.accounts.ChangeRole(ctx, first, first.ID, domain.RoleUser)
	if err != nil || changed {
		t.Fatalf("demoting the remaining admin = %v, %v", changed, err)
	}

	deleted, err := h.accounts.DeleteAccount(ctx, first, second.ID)
	if err != nil || !deleted {
		t.Fatalf("DeleteAccount = %v, %v", deleted, err)
	}
	list, err := h.accounts.ListAccounts(ctx, first, repository.AccountFilter{})
	if err != nil || len(list) != 1 {
		t.Fatalf("ListAccounts = %d, %v", len(list), err)
	}
}

func TestBootstrapAdmin(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	account, created, err := h.accounts.BootstrapAdmin(ctx, "Root", "root@example.com", "pw")
	if err != nil || !created || account.Role != domain.RoleAdmin {
		t.Fatalf("BootstrapAdmin = %+v, %v, %v", account, created, err)
	}
	again, created, err := h.accounts.BootstrapAdmin(ctx, "Root", "root@example.com", "pw")
	if err != nil || created || again.ID != account.ID {
		t.Fatalf("second BootstrapAdmin = %+v, %v, %v", again, created, err)
	}

	session, err := h.accounts.Register(ctx, "Promote", "promote@example.com", "pw")
	if err != nil {
		t.Fatalf("Register: %v", err)
	}
	promoted, created, err := h.accounts.BootstrapAdmin(ctx, "", "promote@example.com", "")
	if err != nil || created || promoted.ID != session.Account.ID || promoted.Role != domain.RoleAdmin {
		t.Fatalf("promote = %+v, %v, %v", promoted, created, err)
	}
}
