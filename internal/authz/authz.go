// Package authz holds the role based access policy. Staff roles inherit the
// "staff" group; resource ownership (ticket owner, assignee) is checked by
// the services, not here.
package authz

import (
	"fmt"

	"github.com/casbin/casbin/v2"
	"github.com/casbin/casbin/v2/model"

	"github.com/spec-kit/helpdesk-service/internal/domain"
)

const modelText = `
[request_definition]
r = sub, obj, act

[policy_definition]
p = sub, obj, act

[role_definition]
g = _, _

[policy_effect]
e = some(where (p.eft == allow))

[matchers]
m = g(r.sub, p.sub) && r.obj == p.obj && r.act == p.act
`

const staffGroup = "staff"

// Objects.
const (
	ObjTicket     = "ticket"
	ObjAssignment = "assignment"
	ObjFeedback   = "feedback"
	ObjAccount    = "account"
	ObjReport     = "report"
)

// Actions.
const (
	ActCreate    = "create"
	ActUpdate    = "update"
	ActDelete    = "delete"
	ActAssign    = "assign"
	ActReadAll   = "read_all"
	ActReconcile = "reconcile"
	ActRead      = "read"
	ActResolve   = "resolve"
	ActSubmit    = "submit"
	ActManage    = "manage"
)

var defaultPolicies = [][]string{
	{string(domain.RoleUser), ObjTicket, ActCreate},
	{string(domain.RoleUser), ObjTicket, ActUpdate},
	{string(domain.RoleUser), ObjTicket, ActDelete},
	{string(domain.RoleUser), ObjFeedback, ActSubmit},

	{string(domain.RoleAdmin), ObjTicket, ActAssign},
	{string(domain.RoleAdmin), ObjTicket, ActReadAll},
	{string(domain.RoleAdmin), ObjTicket, ActReconcile},
	{string(domain.RoleAdmin), ObjAssignment, ActReadAll},
	{string(domain.RoleAdmin), ObjAccount, ActManage},
	{string(domain.RoleAdmin), ObjFeedback, ActRead},
	{string(domain.RoleAdmin), ObjReport, ActRead},

	{staffGroup, ObjAssignment, ActRead},
	{staffGroup, ObjAssignment, ActResolve},
	{staffGroup, ObjReport, ActRead},
}

// Authorizer answers role permission questions.
type Authorizer struct {
	enforcer *casbin.SyncedEnforcer
}

// New builds an Authorizer loaded with the built-in policy.
func New() (*Authorizer, error) {
	m, err := model.NewModelFromString(modelText)
	if err != nil {
		return nil, fmt.Errorf("authz model: %w", err)
	}
	e, err := casbin.NewSyncedEnforcer(m)
	if err != nil {
		return nil, fmt.Errorf("authz enforcer: %w", err)
	}
	if _, err := e.AddPolicies(defaultPolicies); err != nil {
		return nil, fmt.Errorf("authz policies: %w", err)
	}
	groups := make([][]string, 0, len(domain.StaffRoles))
	for _, role := range domain.StaffRoles {
		groups = append(groups, []string{string(role), staffGroup})
	}
	if _, err := e.AddGroupingPolicies(groups); err != nil {
		return nil, fmt.Errorf("authz groups: %w", err)
	}
	return &Authorizer{enforcer: e}, nil
}

// Allowed reports whether role may perform act on obj. Evaluation errors
// deny.
func (a *Authorizer) Allowed(role domain.Role, obj, act string) bool {
	ok, err := a.enforcer.Enforce(string(role), obj, act)
	return err == nil && ok
}
