package worker

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/spec-kit/helpdesk-service/internal/persistence"
)

type fakeReconciler struct {
	calls    atomic.Int32
	repaired int
	err      error
	notify   chan struct{}
}

func (f *fakeReconciler) ReconcileAll(context.Context) (int, error) {
	f.calls.Add(1)
	if f.notify != nil {
		select {
		case f.notify <- struct{}{}:
		default:
		}
	}
	return f.repaired, f.err
}

func TestRunOnceReportsRepairs(t *testing.T) {
	r := &fakeReconciler{repaired: 2}
	w := NewReconcileWorker(r, nil, time.Minute, nil)
	if got := w.RunOnce(context.Background()); got != 2 {
		t.Fatalf("RunOnce() = %d, want 2", got)
	}
}

func TestRunOnceKeepsPartialCountOnError(t *testing.T) {
	r := &fakeReconciler{repaired: 1, err: errors.New("one ticket failed")}
	w := NewReconcileWorker(r, nil, time.Minute, nil)
	if got := w.RunOnce(context.Background()); got != 1 {
		t.Fatalf("RunOnce() = %d, want 1", got)
	}
}

func TestRunOnceSkipsWhenLockHeld(t *testing.T) {
	locker := persistence.NewLocalLocker()
	release, err := locker.Acquire(context.Background(), reconcileLock)
	if err != nil {
		t.Fatalf("Acquire: %v", err)
	}
	defer release()

	r := &fakeReconciler{repaired: 3}
	w := NewReconcileWorker(r, locker, time.Minute, nil)
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	if got := w.RunOnce(ctx); got != 0 {
		t.Fatalf("RunOnce() = %d, want 0", got)
	}
	if r.calls.Load() != 0 {
		t.Fatal("reconciler must not run without the lock")
	}
}

func TestStartSweepsImmediately(t *testing.T) {
	r := &fakeReconciler{notify: make(chan struct{}, 1)}
	w := NewReconcileWorker(r, nil, time.Hour, nil)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	w.Start(ctx)
	select {
	case <-r.notify:
	case <-time.After(time.Second):
		t.Fatal("expected an immediate sweep")
	}
}

func TestStartDisabledWithZeroInterval(t *testing.T) {
	r := &fakeReconciler{}
	w := NewReconcileWorker(r, nil, 0, nil)
	w.Start(context.Background())
	time.Sleep(20 * time.Millisecond)
	if r.calls.Load() != 0 {
		t.Fatal("disabled worker must not sweep")
	}
}
