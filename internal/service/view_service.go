package service

import (
	"context"
	"errors"
	"sort"

	"github.com/spec-kit/helpdesk-service/internal/authz"
	"github.com/spec-kit/helpdesk-service/internal/domain"
	"github.com/spec-kit/helpdesk-service/internal/live"
	apperrors "github.com/spec-kit/helpdesk-service/pkg/util"
)

// View names accepted by OpenView.
const (
	ViewMyTickets     = "my-tickets"
	ViewOpenTickets   = "open-tickets"
	ViewAllTickets    = "all-tickets"
	ViewMyAssignments = "my-assignments"
	ViewFeedback      = "feedback"
)

type viewDef struct {
	obj, act string
	query    func(actor *domain.Account) live.Query
}

var views = map[string]viewDef{
	ViewMyTickets: {
		query: func(a *domain.Account) live.Query {
			return live.Query{Kind: live.KindTickets, OwnerID: a.ID, NewestFirst: true}
		},
	},
	ViewOpenTickets: {
		obj: authz.ObjTicket, act: authz.ActReadAll,
		query: func(*domain.Account) live.Query {
			return live.Query{Kind: live.KindTickets, Statuses: []domain.TicketStatus{domain.TicketStatusOpen}, NewestFirst: true}
		},
	},
	ViewAllTickets: {
		obj: authz.ObjTicket, act: authz.ActReadAll,
		query: func(*domain.Account) live.Query {
			return live.Query{Kind: live.KindTickets, NewestFirst: true}
		},
	},
	// Scoped by assignee rather than role so staff moved to another role
	// still follow the work they were given.
	ViewMyAssignments: {
		query: func(a *domain.Account) live.Query {
			return live.Query{Kind: live.KindAssignments, AssigneeID: a.ID, NewestFirst: true}
		},
	},
	ViewFeedback: {
		query: func(a *domain.Account) live.Query {
			q := live.Query{Kind: live.KindFeedback, NewestFirst: true}
			if a.Role != domain.RoleAdmin {
				q.OwnerID = a.ID
			}
			return q
		},
	},
}

// ViewNames lists the known views in name order.
func ViewNames() []string {
	names := make([]string, 0, len(views))
	for name := range views {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// ViewOptions narrows a named view.
type ViewOptions struct {
	Category string
	Statuses []domain.TicketStatus
	Limit    int
}

// ViewService opens live subscriptions for named views.
type ViewService struct {
	hub    *live.Hub
	policy *authz.Authorizer
}

// NewViewService creates the service.
func NewViewService(hub *live.Hub, policy *authz.Authorizer) *ViewService {
	return &ViewService{hub: hub, policy: policy}
}

// OpenView subscribes actor to the named view. The caller must Cancel the
// returned subscription.
func (s *ViewService) OpenView(ctx context.Context, actor *domain.Account, name string, opts ViewOptions) (*live.Subscription, error) {
	if err := requireActor(actor); err != nil {
		return nil, err
	}
	def, ok := views[name]
	if !ok {
		return nil, apperrors.NewNotFound("view", map[string]any{"view": name, "known": ViewNames()})
	}
	if def.obj != "" && !s.policy.Allowed(actor.Role, def.obj, def.act) {
		return nil, apperrors.NewForbidden("insufficient role for view")
	}

	q := def.query(actor)
	if opts.Category != "" {
		q.Category = opts.Category
	}
	if len(opts.Statuses) > 0 {
		q.Statuses = opts.Statuses
	}
	if opts.Limit != 0 {
		q.Limit = opts.Limit
	}

	sub, err := s.hub.Subscribe(ctx, q)
	if err != nil {
		switch {
		case errors.Is(err, live.ErrHubClosed):
			return nil, apperrors.NewUnavailable("server is shutting down")
		case ctx.Err() != nil:
			return nil, apperrors.MapError(err)
		default:
			return nil, apperrors.NewValidationError(err.Error(), nil)
		}
	}
	return sub, nil
}
