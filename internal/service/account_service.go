package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/spec-kit/helpdesk-service/internal/auth"
	"github.com/spec-kit/helpdesk-service/internal/config"
	"github.com/spec-kit/helpdesk-service/internal/domain"
	"github.com/spec-kit/helpdesk-service/internal/persistence"
	"github.com/spec-kit/helpdesk-service/internal/repository"
	apperrors "github.com/spec-kit/helpdesk-service/pkg/util"
)

// adminLock guards every change that can reduce the number of admins.
const adminLock = "accounts:admins"

// AccountService coordinates registration, login and account management.
type AccountService struct {
	accounts   repository.AccountRepository
	tokenMgr   *auth.TokenManager
	locker     persistence.Locker
	bcryptCost int
	logger     *zap.Logger
	now        func() time.Time
}

// AccountDependencies encapsulates collaborators for the account service.
type AccountDependencies struct {
	Accounts repository.AccountRepository
	Tokens   *auth.TokenManager
	Locker   persistence.Locker
	Logger   *zap.Logger
}

// Session is a freshly issued access token.
type Session struct {
	Account   *domain.Account
	Token     string
	ExpiresAt time.Time
}

// NewAccountService builds the service.
func NewAccountService(cfg config.AuthConfig, deps AccountDependencies) *AccountService {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	locker := deps.Locker
	if locker == nil {
		locker = persistence.NewLocalLocker()
	}
	tokens := deps.Tokens
	if tokens == nil {
		tokens = auth.NewTokenManager(cfg.JWTSecret, cfg.AccessTokenTTLMinutes)
	}
	return &AccountService{
		accounts:   deps.Accounts,
		tokenMgr:   tokens,
		locker:     locker,
		bcryptCost: cfg.BcryptCost,
		logger:     logger,
		now:        utcNow,
	}
}

// TokenManager exposes the underlying token manager for middleware usage.
func (s *AccountService) TokenManager() *auth.TokenManager {
	return s.tokenMgr
}

// Register creates an end-user account and signs it in.
func (s *AccountService) Register(ctx context.Context, name, email, password string) (*Session, error) {
	account, err := s.createAccount(ctx, name, email, password, domain.RoleUser)
	if err != nil {
		return nil, err
	}
	return s.issue(account)
}

// Login authenticates any account by email and password.
func (s *AccountService) Login(ctx context.Context, email, password string) (*Session, error) {
	account, err := s.accounts.GetByEmail(ctx, normalizeEmail(email))
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, apperrors.NewUnauthorized("invalid credentials")
		}
		return nil, apperrors.MapError(err)
	}
	if err := auth.ComparePassword(account.PasswordHash, password); err != nil {
		if !errors.Is(err, auth.ErrPasswordMismatch) {
			s.logger.Error("stored password hash unusable", zap.String("account_id", account.ID), zap.Error(err))
		}
		return nil, apperrors.NewUnauthorized("invalid credentials")
	}
	return s.issue(account)
}

// ListAccounts returns accounts, optionally of one role.
func (s *AccountService) ListAccounts(ctx context.Context, actor *domain.Account, filter repository.AccountFilter) ([]domain.Account, error) {
	if err := requireAdminActor(actor); err != nil {
		return nil, err
	}
	if filter.Role != nil && !filter.Role.Valid() {
		return nil, apperrors.NewValidationError("unknown role", map[string]any{"role": *filter.Role})
	}
	list, err := s.accounts.List(ctx, filter)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	return list, nil
}

// ChangeRole sets the role of targetID. Demoting the last admin is refused
// silently: the unchanged account is returned with changed=false.
func (s *AccountService) ChangeRole(ctx context.Context, actor *domain.Account, targetID string, role domain.Role) (*domain.Account, bool, error) {
	if err := requireAdminActor(actor); err != nil {
		return nil, false, err
	}
	if !role.Valid() {
		return nil, false, apperrors.NewValidationError("unknown role", map[string]any{"role": role})
	}

	release, err := s.locker.Acquire(ctx, adminLock)
	if err != nil {
		return nil, false, apperrors.NewWriteFailed("change role", err)
	}
	defer release()

	target, err := s.accounts.GetByID(ctx, targetID)
	if err != nil {
		return nil, false, readError("account", targetID, err)
	}
	if target.Role == role {
		return target, false, nil
	}
	if target.Role == domain.RoleAdmin {
		last, err := s.lastAdmin(ctx)
		if err != nil {
			return nil, false, err
		}
		if last {
			s.logger.Info("refused demoting the last admin",
				zap.String("account_id", target.ID),
				zap.String("actor_id", actor.ID),
				zap.String("requested_role", string(role)),
			)
			return target, false, nil
		}
	}

	previous := target.Role
	target.Role = role
	target.UpdatedAt = s.now()
	if err := s.accounts.Update(ctx, target); err != nil {
		return nil, false, writeError("change role", err)
	}
	s.logger.Info("account role changed",
		zap.String("account_id", target.ID),
		zap.String("actor_id", actor.ID),
		zap.String("from", string(previous)),
		zap.String("to", string(role)),
	)
	return target, true, nil
}

// DeleteAccount removes targetID. Deleting the last admin is refused
// silently and reports deleted=false.
func (s *AccountService) DeleteAccount(ctx context.Context, actor *domain.Account, targetID string) (bool, error) {
	if err := requireAdminActor(actor); err != nil {
		return false, err
	}

	release, err := s.locker.Acquire(ctx, adminLock)
	if err != nil {
		return false, apperrors.NewWriteFailed("delete account", err)
	}
	defer release()

	target, err := s.accounts.GetByID(ctx, targetID)
	if err != nil {
		return false, readError("account", targetID, err)
	}
	if target.Role == domain.RoleAdmin {
		last, err := s.lastAdmin(ctx)
		if err != nil {
			return false, err
		}
		if last {
			s.logger.Info("refused deleting the last admin",
				zap.String("account_id", target.ID),
				zap.String("actor_id", actor.ID),
			)
			return false, nil
		}
	}
	if err := s.accounts.Delete(ctx, target.ID); err != nil {
		return false, writeError("delete account", err)
	}
	s.logger.Info("account deleted", zap.String("account_id", target.ID), zap.String("actor_id", actor.ID))
	return true, nil
}

// BootstrapAdmin creates an admin account, or promotes the existing account
// with that email. It reports whether a new account was created.
func (s *AccountService) BootstrapAdmin(ctx context.Context, name, email, password string) (*domain.Account, bool, error) {
	release, err := s.locker.Acquire(ctx, adminLock)
	if err != nil {
		return nil, false, apperrors.NewWriteFailed("bootstrap admin", err)
	}
	defer release()

	existing, err := s.accounts.GetByEmail(ctx, normalizeEmail(email))
	switch {
	case err == nil:
		if existing.Role == domain.RoleAdmin {
			return existing, false, nil
		}
		existing.Role = domain.RoleAdmin
		existing.UpdatedAt = s.now()
		if err := s.accounts.Update(ctx, existing); err != nil {
			return nil, false, writeError("promote admin", err)
		}
		return existing, false, nil
	case errors.Is(err, repository.ErrNotFound):
		account, err := s.createAccount(ctx, name, email, password, domain.RoleAdmin)
		if err != nil {
			return nil, false, err
		}
		return account, true, nil
	default:
		return nil, false, apperrors.MapError(err)
	}
}

func (s *AccountService) lastAdmin(ctx context.Context) (bool, error) {
	count, err := s.accounts.CountByRole(ctx, domain.RoleAdmin)
	if err != nil {
		return false, apperrors.MapError(err)
	}
	return count <= 1, nil
}

func (s *AccountService) createAccount(ctx context.Context, name, email, password string, role domain.Role) (*domain.Account, error) {
	email = normalizeEmail(email)
	name = strings.TrimSpace(name)
	if email == "" || password == "" {
		return nil, apperrors.NewValidationError("email and password are required", nil)
	}
	hash, err := auth.HashPassword(password, s.bcryptCost)
	if errors.Is(err, auth.ErrPasswordTooLong) {
		return nil, apperrors.NewValidationError("password is too long", map[string]any{"max_bytes": 72})
	}
	if err != nil {
		return nil, apperrors.NewInternalError(err)
	}
	now := s.now()
	account := &domain.Account{
		ID:           uuid.NewString(),
		Name:         name,
		Email:        email,
		PasswordHash: hash,
		Role:         role,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.accounts.Create(ctx, account); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, apperrors.NewConflict("email already registered", map[string]any{"email": email})
		}
		return nil, writeError("create account", err)
	}
	return account, nil
}

func (s *AccountService) issue(account *domain.Account) (*Session, error) {
	token, exp, err := s.tokenMgr.GenerateToken(account)
	if err != nil {
		return nil, apperrors.NewInternalError(err)
	}
	return &Session{Account: account, Token: token, ExpiresAt: exp}, nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
