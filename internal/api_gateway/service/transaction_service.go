package service

import (
	"context"
	"log/slog"

	"github.com/google/uuid"
	"github.com/retail-banking-ledger/internal/domain/account"
	"github.com/retail-banking-ledger/internal/domain/shared"
	"github.com/retail-banking-ledger/internal/domain/statement"
	"github.com/retail-banking-ledger/internal/domain/transaction"
)

// TransactionServiceImpl implements the TransactionService interface
type TransactionServiceImpl struct {
	accounts      account.Store
	transactions  transaction.Log
	statementRepo statement.Repository
	logger        *slog.Logger
}

// NewTransactionService creates a new transaction service
func NewTransactionService(
	logger *slog.Logger,
	accounts account.Store,
	transactions transaction.Log,
	statementRepo statement.Repository,
) TransactionService {
	return &TransactionServiceImpl{
		accounts:      accounts,
		transactions:  transactions,
		statementRepo: statementRepo,
		logger:        logger,
	}
}

func (s *TransactionServiceImpl) ListTransactions(ctx context.Context, userID string, accountID uuid.UUID, page, perPage int) ([]*transaction.Transaction, int64, error) {
	if _, err := ownedAccount(ctx, s.accounts, userID, accountID); err != nil {
		return nil, 0, err
	}

	txs, err := s.transactions.ListByAccount(ctx, accountID, perPage, offset(page, perPage))
	if err != nil {
		s.logger.Error("Failed to list transactions", "account_id", accountID.String(), "error", err)
		return nil, 0, shared.NewPersistenceFailure("could not list transactions", err)
	}

	total, err := s.transactions.CountByAccount(ctx, accountID)
	if err != nil {
		s.logger.Error("Failed to count transactions", "account_id", accountID.String(), "error", err)
		return nil, 0, shared.NewPersistenceFailure("could not count transactions", err)
	}

	return txs, total, nil
}

// Statement reads the Mongo projection, which trails the transaction log by at
// most one outbox polling interval.
func (s *TransactionServiceImpl) Statement(ctx context.Context, userID string, accountID uuid.UUID, page, perPage int) ([]*statement.Entry, int64, error) {
	if _, err := ownedAccount(ctx, s.accounts, userID, accountID); err != nil {
		return nil, 0, err
	}

	entries, err := s.statementRepo.GetByAccountID(ctx, accountID, perPage, offset(page, perPage))
	if err != nil {
		s.logger.Error("Failed to read statement", "account_id", accountID.String(), "error", err)
		return nil, 0, shared.NewPersistenceFailure("could not read statement", err)
	}

	total, err := s.statementRepo.CountByAccountID(ctx, accountID)
	if err != nil {
		s.logger.Error("Failed to count statement entries", "account_id", accountID.String(), "error", err)
		return nil, 0, shared.NewPersistenceFailure("could not read statement", err)
	}

	return entries, total, nil
}
