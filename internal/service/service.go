package service

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/spec-kit/helpdesk-service/internal/domain"
	"github.com/spec-kit/helpdesk-service/internal/events"
	"github.com/spec-kit/helpdesk-service/internal/lifecycle"
	"github.com/spec-kit/helpdesk-service/internal/repository"
	apperrors "github.com/spec-kit/helpdesk-service/pkg/util"
)

func utcNow() time.Time {
	return time.Now().UTC()
}

func publish(ctx context.Context, d events.Dispatcher, event events.Event) {
	if d == nil {
		return
	}
	if event.ID == "" {
		event.ID = uuid.NewString()
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = utcNow()
	}
	_ = d.Publish(ctx, event)
}

func actorOf(account *domain.Account) events.Actor {
	return events.Actor{AccountID: account.ID, Role: account.Role}
}

func requireActor(account *domain.Account) error {
	if account == nil {
		return apperrors.NewUnauthorized("authentication required")
	}
	return nil
}

// lifecycleError maps state machine refusals: a wrong actor is forbidden, a
// wrong state is a conflict.
func lifecycleError(err error, details map[string]any) error {
	switch {
	case errors.Is(err, lifecycle.ErrActorNotAllowed):
		return apperrors.NewForbidden(err.Error())
	case errors.Is(err, lifecycle.ErrInvalidState):
		return apperrors.NewConflict(err.Error(), details)
	default:
		return apperrors.MapError(err)
	}
}

func readError(resource, id string, err error) error {
	if errors.Is(err, repository.ErrNotFound) {
		return apperrors.NewNotFound(resource, map[string]any{resource + "_id": id})
	}
	return apperrors.MapError(err)
}

// writeError surfaces a rejected write. Domain errors raised inside a
// transaction pass through unchanged.
func writeError(operation string, err error) error {
	var domainErr *apperrors.DomainError
	if errors.As(err, &domainErr) {
		return err
	}
	if errors.Is(err, repository.ErrDuplicate) {
		return apperrors.NewConflict(operation+": record already exists", nil)
	}
	return apperrors.NewWriteFailed(operation, err)
}

// compensate reverts an earlier write of a failed operation when the store
// has no transactions. Atomic stores roll back on their own.
func compensate(ctx context.Context, store *repository.Store, logger *zap.Logger, write string, revert func(ctx context.Context) error) {
	if store.Atomic {
		return
	}
	if err := revert(context.WithoutCancel(ctx)); err != nil {
		logger.Error("compensating write failed; reconcile will repair",
			zap.String("write", write),
			zap.Error(err),
		)
	}
}

func ptr[T any](v T) *T {
	return &v
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
