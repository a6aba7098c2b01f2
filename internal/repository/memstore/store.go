// Package memstore is an in-process repository backend. Transactions take
// the store-wide write lock and restore a snapshot on error, so they are
// serializable. Failure injection lets tests exercise write-failure paths.
package memstore

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/spec-kit/helpdesk-service/internal/domain"
	"github.com/spec-kit/helpdesk-service/internal/repository"
)

// Operation names accepted by FailOn.
const (
	OpAccountCreate    = "accounts.create"
	OpAccountUpdate    = "accounts.update"
	OpAccountDelete    = "accounts.delete"
	OpTicketCreate     = "tickets.create"
	OpTicketUpdate     = "tickets.update"
	OpTicketDelete     = "tickets.delete"
	OpAssignmentCreate = "assignments.create"
	OpAssignmentUpdate = "assignments.update"
	OpAssignmentDelete = "assignments.delete"
	OpFeedbackUpsert   = "feedback.upsert"
	OpMessageCreate    = "messages.create"
)

type txKey struct{}

// DB holds every collection behind one lock.
type DB struct {
	mu          sync.RWMutex
	accounts    map[string]domain.Account
	tickets     map[string]domain.Ticket
	assignments map[string]domain.Assignment
	feedback    map[string]domain.Feedback
	messages    map[string]domain.TicketMessage

	failMu   sync.Mutex
	failures map[string]error
}

// New returns an empty store.
func New() *DB {
	return &DB{
		accounts:    make(map[string]domain.Account),
		tickets:     make(map[string]domain.Ticket),
		assignments: make(map[string]domain.Assignment),
		feedback:    make(map[string]domain.Feedback),
		messages:    make(map[string]domain.TicketMessage),
		failures:    make(map[string]error),
	}
}

// Store exposes db through the repository interfaces.
func (db *DB) Store() *repository.Store {
	return &repository.Store{
		Accounts:    accounts{db},
		Tickets:     tickets{db},
		Assignments: assignments{db},
		Feedback:    feedbackRepo{db},
		Messages:    messages{db},
		Tx:          db,
		Atomic:      true,
	}
}

// FailOn makes every subsequent call of op return err until cleared.
func (db *DB) FailOn(op string, err error) {
	db.failMu.Lock()
	defer db.failMu.Unlock()
	db.failures[op] = err
}

// ClearFailures removes all injected failures.
func (db *DB) ClearFailures() {
	db.failMu.Lock()
	defer db.failMu.Unlock()
	db.failures = make(map[string]error)
}

func (db *DB) injected(op string) error {
	db.failMu.Lock()
	defer db.failMu.Unlock()
	return db.failures[op]
}

// Ping always succeeds.
func (db *DB) Ping(context.Context) error {
	return nil
}

// WithinTx implements repository.Transactor.
func (db *DB) WithinTx(ctx context.Context, fn func(ctx context.Context) error) error {
	if inTx(ctx) {
		return fn(ctx)
	}
	db.mu.Lock()
	defer db.mu.Unlock()

	snap := db.snapshot()
	if err := fn(context.WithValue(ctx, txKey{}, true)); err != nil {
		db.restore(snap)
		return err
	}
	return nil
}

func inTx(ctx context.Context) bool {
	v, _ := ctx.Value(txKey{}).(bool)
	return v
}

// write takes the write lock unless ctx already runs inside a transaction.
func (db *DB) write(ctx context.Context) func() {
	if inTx(ctx) {
		return func() {}
	}
	db.mu.Lock()
	return db.mu.Unlock
}

func (db *DB) read(ctx context.Context) func() {
	if inTx(ctx) {
		return func() {}
	}
	db.mu.RLock()
	return db.mu.RUnlock
}

type snapshot struct {
	accounts    map[string]domain.Account
	tickets     map[string]domain.Ticket
	assignments map[string]domain.Assignment
	feedback    map[string]domain.Feedback
	messages    map[string]domain.TicketMessage
}

func (db *DB) snapshot() snapshot {
	return snapshot{
		accounts:    copyMap(db.accounts),
		tickets:     copyMap(db.tickets),
		assignments: copyMap(db.assignments),
		feedback:    copyMap(db.feedback),
		messages:    copyMap(db.messages),
	}
}

func (db *DB) restore(s snapshot) {
	db.accounts = s.accounts
	db.tickets = s.tickets
	db.assignments = s.assignments
	db.feedback = s.feedback
	db.messages = s.messages
}

func copyMap[V any](m map[string]V) map[string]V {
	out := make(map[string]V, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

func sortByCreated[T any](items []T, created func(T) time.Time, id func(T) string, newestFirst bool) {
	sort.SliceStable(items, func(i, j int) bool {
		ci, cj := created(items[i]), created(items[j])
		if ci.Equal(cj) {
			if newestFirst {
				return id(items[i]) > id(items[j])
			}
			return id(items[i]) < id(items[j])
		}
		if newestFirst {
			return ci.After(cj)
		}
		return ci.Before(cj)
	})
}

func page[T any](items []T, limit, offset int) []T {
	if offset > 0 {
		if offset >= len(items) {
			return nil
		}
		items = items[offset:]
	}
	if limit > 0 && limit < len(items) {
		items = items[:limit]
	}
	return items
}

func statusIn(s domain.TicketStatus, statuses []domain.TicketStatus) bool {
	if len(statuses) == 0 {
		return true
	}
	for _, candidate := range statuses {
		if candidate == s {
			return true
		}
	}
	return false
}

func inRange(t time.Time, from, to *time.Time) bool {
	if from != nil && t.Before(*from) {
		return false
	}
	if to != nil && !t.Before(*to) {
		return false
	}
	return true
}

func cloneString(p *string) *string {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}
