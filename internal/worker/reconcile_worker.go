package worker

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/spec-kit/helpdesk-service/internal/persistence"
)

const reconcileLock = "worker:reconcile"

// Reconciler repairs ticket/assignment disagreement.
type Reconciler interface {
	ReconcileAll(ctx context.Context) (int, error)
}

// ReconcileWorker periodically restores agreement between tickets and their
// assignments. Only one instance sweeps at a time.
type ReconcileWorker struct {
	reconciler Reconciler
	locker     persistence.Locker
	interval   time.Duration
	logger     *zap.Logger
}

// NewReconcileWorker creates the worker. A nil locker uses an in-process one.
func NewReconcileWorker(reconciler Reconciler, locker persistence.Locker, interval time.Duration, logger *zap.Logger) *ReconcileWorker {
	if locker == nil {
		locker = persistence.NewLocalLocker()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ReconcileWorker{reconciler: reconciler, locker: locker, interval: interval, logger: logger}
}

// Start runs a sweep immediately and then every interval until ctx is done.
// A zero interval disables the worker.
func (w *ReconcileWorker) Start(ctx context.Context) {
	if w.interval <= 0 {
		w.logger.Info("reconcile worker disabled")
		return
	}
	go func() {
		ticker := time.NewTicker(w.interval)
		defer ticker.Stop()

		w.RunOnce(ctx)
		for {
			select {
			case <-ticker.C:
				w.RunOnce(ctx)
			case <-ctx.Done():
				w.logger.Info("reconcile worker stopped")
				return
			}
		}
	}()
}

// RunOnce performs one sweep and returns the number of repaired pairs. A
// sweep that cannot take the lock before ctx ends repairs nothing.
func (w *ReconcileWorker) RunOnce(ctx context.Context) int {
	release, err := w.locker.Acquire(ctx, reconcileLock)
	if err != nil {
		w.logger.Debug("reconcile sweep skipped", zap.Error(err))
		return 0
	}
	defer release()

	repaired, err := w.reconciler.ReconcileAll(ctx)
	if err != nil {
		w.logger.Warn("reconcile sweep incomplete", zap.Int("repaired", repaired), zap.Error(err))
	} else if repaired > 0 {
		w.logger.Info("reconcile sweep repaired records", zap.Int("repaired", repaired))
	}
	return repaired
}
