package memstore

import (
	"context"
	"strings"
	"time"

	"github.com/spec-kit/helpdesk-service/internal/domain"
	"github.com/spec-kit/helpdesk-service/internal/repository"
)

type accounts struct{ db *DB }

func (r accounts) Create(ctx context.Context, account *domain.Account) error {
	if err := r.db.injected(OpAccountCreate); err != nil {
		return err
	}
	defer r.db.write(ctx)()
	if _, exists := r.db.accounts[account.ID]; exists {
		return repository.ErrDuplicate
	}
	for _, existing := range r.db.accounts {
		if strings.EqualFold(existing.Email, account.Email) {
			return repository.ErrDuplicate
		}
	}
	r.db.accounts[account.ID] = *account
	return nil
}

func (r accounts) Update(ctx context.Context, account *domain.Account) error {
	if err := r.db.injected(OpAccountUpdate); err != nil {
		return err
	}
	defer r.db.write(ctx)()
	if _, ok := r.db.accounts[account.ID]; !ok {
		return repository.ErrNotFound
	}
	for id, existing := range r.db.accounts {
		if id != account.ID && strings.EqualFold(existing.Email, account.Email) {
			return repository.ErrDuplicate
		}
	}
	r.db.accounts[account.ID] = *account
	return nil
}

func (r accounts) Delete(ctx context.Context, id string) error {
	if err := r.db.injected(OpAccountDelete); err != nil {
		return err
	}
	defer r.db.write(ctx)()
	if _, ok := r.db.accounts[id]; !ok {
		return repository.ErrNotFound
	}
	delete(r.db.accounts, id)
	return nil
}

func (r accounts) GetByID(ctx context.Context, id string) (*domain.Account, error) {
	defer r.db.read(ctx)()
	account, ok := r.db.accounts[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	if err := repository.Validated(&account); err != nil {
		return nil, err
	}
	return &account, nil
}

func (r accounts) GetByEmail(ctx context.Context, email string) (*domain.Account, error) {
	defer r.db.read(ctx)()
	for _, account := range r.db.accounts {
		if strings.EqualFold(account.Email, email) {
			if err := repository.Validated(&account); err != nil {
				return nil, err
			}
			return &account, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (r accounts) List(ctx context.Context, filter repository.AccountFilter) ([]domain.Account, error) {
	defer r.db.read(ctx)()
	var out []domain.Account
	for _, account := range r.db.accounts {
		if filter.Role != nil && account.Role != *filter.Role {
			continue
		}
		out = append(out, account)
	}
	sortByCreated(out, func(a domain.Account) time.Time { return a.CreatedAt }, func(a domain.Account) string { return a.ID }, false)
	return page(out, filter.Limit, filter.Offset), nil
}

func (r accounts) CountByRole(ctx context.Context, role domain.Role) (int, error) {
	defer r.db.read(ctx)()
	count := 0
	for _, account := range r.db.accounts {
		if account.Role == role {
			count++
		}
	}
	return count, nil
}
