package authz

import (
	"testing"

	"github.com/spec-kit/helpdesk-service/internal/domain"
)

func newAuthorizer(t *testing.T) *Authorizer {
	t.Helper()
	a, err := New()
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return a
}

func TestEndUserPermissions(t *testing.T) {
	a := newAuthorizer(t)
	for _, act := range []string{ActCreate, ActUpdate, ActDelete} {
		if !a.Allowed(domain.RoleUser, ObjTicket, act) {
			t.Fatalf("user should be able to %s tickets", act)
		}
	}
	if !a.Allowed(domain.RoleUser, ObjFeedback, ActSubmit) {
		t.Fatal("user should submit feedback")
	}
	if a.Allowed(domain.RoleUser, ObjTicket, ActAssign) {
		t.Fatal("user must not assign tickets")
	}
	if a.Allowed(domain.RoleUser, ObjAccount, ActManage) {
		t.Fatal("user must not manage accounts")
	}
}

func TestAdminPermissions(t *testing.T) {
	a := newAuthorizer(t)
	checks := [][2]string{
		{ObjTicket, ActAssign},
		{ObjTicket, ActReadAll},
		{ObjAccount, ActManage},
		{ObjFeedback, ActRead},
		{ObjReport, ActRead},
	}
	for _, c := range checks {
		if !a.Allowed(domain.RoleAdmin, c[0], c[1]) {
			t.Fatalf("admin should be allowed %s:%s", c[0], c[1])
		}
	}
	if a.Allowed(domain.RoleAdmin, ObjAssignment, ActResolve) {
		t.Fatal("only staff resolve assignments")
	}
	if a.Allowed(domain.RoleAdmin, ObjTicket, ActCreate) {
		t.Fatal("tickets are created by end users")
	}
}

func TestEveryStaffRoleInheritsStaffGroup(t *testing.T) {
	a := newAuthorizer(t)
	for _, role := range domain.StaffRoles {
		if !a.Allowed(role, ObjAssignment, ActResolve) {
			t.Fatalf("%s should resolve assignments", role)
		}
		if !a.Allowed(role, ObjReport, ActRead) {
			t.Fatalf("%s should read reports", role)
		}
		if a.Allowed(role, ObjTicket, ActAssign) {
			t.Fatalf("%s must not assign tickets", role)
		}
	}
}

func TestUnknownRoleIsDenied(t *testing.T) {
	a := newAuthorizer(t)
	if a.Allowed("guest", ObjTicket, ActCreate) {
		t.Fatal("unknown role should be denied")
	}
}
