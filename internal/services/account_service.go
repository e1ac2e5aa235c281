package services

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"fintrack/internal/core"
	"fintrack/internal/store"
)

// AccountService handles account CRUD with validation.
type AccountService struct {
	store store.AccountStore
}

func NewAccountService(st store.AccountStore) *AccountService {
	return &AccountService{store: st}
}

func (s *AccountService) Create(ctx context.Context, a core.Account) (core.Account, error) {
	a.ID = uuid.NewString()
	a.CreatedAt = time.Now().UTC()

	if err := a.Validate(); err != nil {
		return core.Account{}, err
	}

	if err := s.store.CreateAccount(ctx, a); err != nil {
		return core.Account{}, fmt.Errorf("create account: %w", err)
	}
	return a, nil
}

func (s *AccountService) Get(ctx context.Context, userID, id string) (core.Account, error) {
	return s.store.GetAccount(ctx, userID, id)
}

func (s *AccountService) List(ctx context.Context, userID string) ([]core.Account, error) {
	return s.store.ListAccounts(ctx, userID)
}

func (s *AccountService) Update(ctx context.Context, a core.Account) (core.Account, error) {
	existing, err := s.store.GetAccount(ctx, a.UserID, a.ID)
	if err != nil {
		return core.Account{}, err
	}
	a.CreatedAt = existing.CreatedAt

	if err := a.Validate(); err != nil {
		return core.Account{}, err
	}

	if err := s.store.UpdateAccount(ctx, a); err != nil {
		return core.Account{}, fmt.Errorf("update account: %w", err)
	}
	return a, nil
}

func (s *AccountService) Delete(ctx context.Context, userID, id string) error {
	return s.store.DeleteAccount(ctx, userID, id)
}
