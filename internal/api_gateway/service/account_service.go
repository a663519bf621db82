package service

import (
	"context"
	"errors"
	"log/slog"

	"github.com/google/uuid"
	"github.com/retail-banking-ledger/internal/domain/account"
	"github.com/retail-banking-ledger/internal/domain/shared"
)

// AccountServiceImpl implements the AccountService interface
type AccountServiceImpl struct {
	accounts account.Store
	logger   *slog.Logger
}

// NewAccountService creates a new account service
func NewAccountService(logger *slog.Logger, accounts account.Store) AccountService {
	return &AccountServiceImpl{
		accounts: accounts,
		logger:   logger,
	}
}

func (s *AccountServiceImpl) ListAccounts(ctx context.Context, userID string) ([]*account.Account, error) {
	accounts, err := s.accounts.ListByOwner(ctx, userID)
	if err != nil {
		s.logger.Error("Failed to list accounts", "user_id", userID, "error", err)
		return nil, shared.NewPersistenceFailure("could not list accounts", err)
	}
	return accounts, nil
}

// GetAccount re-reads the balance after loading the row, so the response never
// shows a balance older than the account metadata.
func (s *AccountServiceImpl) GetAccount(ctx context.Context, userID string, id uuid.UUID) (*account.Account, error) {
	acc, err := ownedAccount(ctx, s.accounts, userID, id)
	if err != nil {
		return nil, err
	}

	balance, err := s.accounts.GetBalance(ctx, id)
	if err != nil {
		s.logger.Error("Failed to read live balance", "account_id", id.String(), "error", err)
		return nil, shared.NewPersistenceFailure("could not read balance", err)
	}
	acc.Balance = balance

	return acc, nil
}

// ownedAccount loads id and checks that userID owns it.
func ownedAccount(ctx context.Context, accounts account.Store, userID string, id uuid.UUID) (*account.Account, error) {
	acc, err := accounts.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, account.ErrAccountNotFound{}) {
			return nil, shared.NewNotFound("account not found", err)
		}
		return nil, shared.NewPersistenceFailure("could not load account", err)
	}
	if acc.OwnerID != userID {
		return nil, shared.NewNotFound("account not found", nil)
	}
	return acc, nil
}
