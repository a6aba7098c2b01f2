package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/spec-kit/helpdesk-service/internal/authz"
	"github.com/spec-kit/helpdesk-service/internal/config"
	"github.com/spec-kit/helpdesk-service/internal/domain"
	"github.com/spec-kit/helpdesk-service/internal/events"
	"github.com/spec-kit/helpdesk-service/internal/live"
	"github.com/spec-kit/helpdesk-service/internal/observability"
	"github.com/spec-kit/helpdesk-service/internal/repository"
	"github.com/spec-kit/helpdesk-service/internal/repository/memstore"
	"github.com/spec-kit/helpdesk-service/internal/routing"
	apperrors "github.com/spec-kit/helpdesk-service/pkg/util"
)

type recorder struct {
	mu     sync.Mutex
	events []events.Event
}

func (r *recorder) handle(_ context.Context, e events.Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, e)
	return nil
}

func (r *recorder) types() []events.EventType {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]events.EventType, 0, len(r.events))
	for _, e := range r.events {
		out = append(out, e.Type)
	}
	return out
}

type harness struct {
	db          *memstore.DB
	store       *repository.Store
	tables      *routing.Tables
	dispatcher  events.Dispatcher
	recorded    *recorder
	metrics     *observability.Metrics
	hub         *live.Hub
	tickets     *TicketService
	assignments *AssignmentService
	feedback    *FeedbackService
	accounts    *AccountService
	reports     *ReportService
	views       *ViewService
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	db := memstore.New()
	store := db.Store()
	tables := routing.Default()
	dispatcher := events.NewInMemoryDispatcher(nil)
	rec := &recorder{}
	for _, et := range events.AllTypes {
		dispatcher.Subscribe(et, rec.handle)
	}
	metrics := observability.NewMetrics()
	hub := live.NewHub(live.NewStoreLoader(store), nil, live.WithMetrics(metrics))
	hub.Attach(dispatcher)
	t.Cleanup(hub.Close)

	policy, err := authz.New()
	if err != nil {
		t.Fatalf("authz.New: %v", err)
	}

	return &harness{
		db:         db,
		store:      store,
		tables:     tables,
		dispatcher: dispatcher,
		recorded:   rec,
		metrics:    metrics,
		hub:        hub,
		tickets: NewTicketService(TicketDependencies{
			Store: store, Tables: tables, Dispatcher: dispatcher, Metrics: metrics,
		}),
		assignments: NewAssignmentService(AssignmentDependencies{
			Store: store, Tables: tables, Dispatcher: dispatcher, Metrics: metrics,
		}),
		feedback: NewFeedbackService(FeedbackDependencies{
			Store: store, Dispatcher: dispatcher, Metrics: metrics,
		}),
		accounts: NewAccountService(config.AuthConfig{JWTSecret: "test-secret", AccessTokenTTLMinutes: 5, BcryptCost: 4}, AccountDependencies{
			Accounts: store.Accounts,
		}),
		reports: NewReportService(store, tables),
		views:   NewViewService(hub, policy),
	}
}

func (h *harness) account(t *testing.T, role domain.Role) *domain.Account {
	t.Helper()
	now := time.Now().UTC()
	id := uuid.NewString()
	a := &domain.Account{
		ID:        id,
		Name:      string(role),
		Email:     id + "@example.com",
		Role:      role,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := h.store.Accounts.Create(context.Background(), a); err != nil {
		t.Fatalf("seed account: %v", err)
	}
	return a
}

func (h *harness) openTicket(t *testing.T, owner *domain.Account, key, description string) *domain.Ticket {
	t.Helper()
	ticket, err := h.tickets.CreateTicket(context.Background(), owner, TicketCreateInput{CategoryKey: key, Description: description})
	if err != nil {
		t.Fatalf("CreateTicket: %v", err)
	}
	return ticket
}

func (h *harness) closedTicket(t *testing.T, owner, admin, staff *domain.Account) (*domain.Ticket, *domain.Assignment) {
	t.Helper()
	ticket := h.openTicket(t, owner, "network", "VPN down")
	assignment, _, err := h.assignments.AssignTicket(context.Background(), admin, ticket.ID, staff.ID)
	if err != nil {
		t.Fatalf("AssignTicket: %v", err)
	}
	assignment, ticket, err = h.assignments.ResolveAssignment(context.Background(), staff, assignment.ID)
	if err != nil {
		t.Fatalf("ResolveAssignment: %v", err)
	}
	return ticket, assignment
}

func expectCode(t *testing.T, err error, code string) {
	t.Helper()
	if err == nil {
		t.Fatalf("expected %s error, got nil", code)
	}
	if !apperrors.HasCode(err, code) {
		t.Fatalf("expected %s, got %v", code, err)
	}
}

// directTx runs fn without a transaction, like a document store deployed
// without replica-set transactions.
type directTx struct{}

func (directTx) WithinTx(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

// withoutTransactions makes every service of h write through directTx.
func (h *harness) withoutTransactions() {
	h.store.Tx = directTx{}
	h.store.Atomic = false
}
