package service

import (
	"context"

	"github.com/google/uuid"
	"github.com/retail-banking-ledger/internal/domain/account"
	"github.com/retail-banking-ledger/internal/domain/crypto"
	"github.com/retail-banking-ledger/internal/domain/deposit"
	"github.com/retail-banking-ledger/internal/domain/reconciliation"
	"github.com/retail-banking-ledger/internal/domain/statement"
	"github.com/retail-banking-ledger/internal/domain/transaction"
)

// Read-side services behind the HTTP API. Balance-changing operations go through
// the banking service; these only read. Every error is a *shared.OperationError.

// AccountService defines the interface for account reads
type AccountService interface {
	// ListAccounts returns the caller's accounts, oldest first.
	ListAccounts(ctx context.Context, userID string) ([]*account.Account, error)

	// GetAccount returns one of the caller's accounts with its live balance.
	// Accounts owned by someone else are reported as not found.
	GetAccount(ctx context.Context, userID string, id uuid.UUID) (*account.Account, error)
}

// TransactionService defines the interface for transaction log and statement reads
type TransactionService interface {
	// ListTransactions returns a page of the account's transaction log, newest
	// first, with the total number of rows.
	ListTransactions(ctx context.Context, userID string, accountID uuid.UUID, page, perPage int) ([]*transaction.Transaction, int64, error)

	// Statement returns a page of the account's projected statement.
	Statement(ctx context.Context, userID string, accountID uuid.UUID, page, perPage int) ([]*statement.Entry, int64, error)
}

// PortfolioService defines the interface for crypto reads
type PortfolioService interface {
	Portfolio(ctx context.Context, userID string) (*crypto.Portfolio, error)
	Trades(ctx context.Context, userID string, page, perPage int) ([]*crypto.Trade, error)
}

// AdminService defines the interface for the review queues
type AdminService interface {
	PendingDeposits(ctx context.Context, page, perPage int) ([]*deposit.MobileDeposit, error)
	OpenReconciliationItems(ctx context.Context, page, perPage int) ([]*reconciliation.Item, error)
}

func offset(page, perPage int) int {
	if page < 1 {
		page = 1
	}
	return (page - 1) * perPage
}
