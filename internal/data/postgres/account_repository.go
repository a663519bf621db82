// Package postgres provides PostgreSQL implementations of the domain repositories.
// Every repository can be bound to a pgx.Tx with WithTx so that a ledger leg
// (balance change, transaction row, outbox row, saga step) commits atomically.
package postgres

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/retail-banking-ledger/internal/domain/account"
	"github.com/retail-banking-ledger/internal/platform/persistence"
	"github.com/shopspring/decimal"
)

const accountColumns = `id, owner_id, type, balance::text, status, created_at, updated_at`

// AccountRepository implements account.Store for PostgreSQL
type AccountRepository struct {
	querier persistence.Querier // Can be the pool or a pgx.Tx
	logger  *slog.Logger
}

// NewAccountRepository creates a new PostgreSQL account store.
func NewAccountRepository(logger *slog.Logger, db *persistence.PostgresDB) account.Store {
	return &AccountRepository{
		querier: db.Pool(),
		logger:  logger,
	}
}

// WithTx returns a store bound to tx.
func (r *AccountRepository) WithTx(tx pgx.Tx) account.Store {
	return &AccountRepository{
		querier: tx,
		logger:  r.logger,
	}
}

// Create stores a newly opened account.
func (r *AccountRepository) Create(ctx context.Context, acc *account.Account) error {
	query := `
		INSERT INTO accounts (id, owner_id, type, balance, status, created_at, updated_at)
		VALUES ($1, $2, $3, $4::numeric, $5, $6, $7)
	`

	_, err := r.querier.Exec(ctx, query,
		acc.ID,
		acc.OwnerID,
		acc.Type,
		acc.Balance.StringFixed(2),
		acc.Status,
		acc.CreatedAt,
		acc.UpdatedAt,
	)
	if err != nil {
		r.logger.Error("Failed to create account", "owner_id", acc.OwnerID, "error", err)
		return fmt.Errorf("failed to create account: %w", err)
	}

	return nil
}

// GetByID retrieves an account by its ID
func (r *AccountRepository) GetByID(ctx context.Context, id uuid.UUID) (*account.Account, error) {
	query := `SELECT ` + accountColumns + ` FROM accounts WHERE id = $1`

	acc, err := scanAccount(r.querier.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, account.ErrAccountNotFound{AccountID: id}
		}
		r.logger.Error("Failed to get account", "id", id.String(), "error", err)
		return nil, fmt.Errorf("failed to get account: %w", err)
	}

	return acc, nil
}

// ListByOwner returns the owner's accounts, oldest first.
func (r *AccountRepository) ListByOwner(ctx context.Context, ownerID string) ([]*account.Account, error) {
	query := `SELECT ` + accountColumns + ` FROM accounts WHERE owner_id = $1 ORDER BY created_at ASC`

	rows, err := r.querier.Query(ctx, query, ownerID)
	if err != nil {
		r.logger.Error("Failed to list accounts", "owner_id", ownerID, "error", err)
		return nil, fmt.Errorf("failed to list accounts: %w", err)
	}
	defer rows.Close()

	var accounts []*account.Account
	for rows.Next() {
		acc, err := scanAccount(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan account: %w", err)
		}
		accounts = append(accounts, acc)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating over accounts: %w", err)
	}

	return accounts, nil
}

// GetBalance reads the persisted balance.
func (r *AccountRepository) GetBalance(ctx context.Context, id uuid.UUID) (decimal.Decimal, error) {
	query := `SELECT balance::text FROM accounts WHERE id = $1`

	var raw string
	if err := r.querier.QueryRow(ctx, query, id).Scan(&raw); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return decimal.Zero, account.ErrAccountNotFound{AccountID: id}
		}
		r.logger.Error("Failed to get balance", "id", id.String(), "error", err)
		return decimal.Zero, fmt.Errorf("failed to get balance: %w", err)
	}

	return parseDecimal("balance", raw)
}

// AdjustBalance applies delta in a single conditional UPDATE. The row lock taken
// by the UPDATE serializes concurrent adjustments of the same account, and the
// floor predicate is evaluated against the locked, current balance.
func (r *AccountRepository) AdjustBalance(ctx context.Context, id uuid.UUID, delta, floor decimal.Decimal) (decimal.Decimal, error) {
	query := `
		UPDATE accounts
		SET balance = balance + $1::numeric, updated_at = NOW()
		WHERE id = $2 AND status = 'active' AND balance + $1::numeric >= $3::numeric
		RETURNING balance::text
	`

	var raw string
	err := r.querier.QueryRow(ctx, query, delta.String(), id, floor.String()).Scan(&raw)
	if err == nil {
		return parseDecimal("balance", raw)
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		r.logger.Error("Failed to adjust balance", "id", id.String(), "delta", delta.String(), "error", err)
		return decimal.Zero, fmt.Errorf("failed to adjust balance: %w", err)
	}

	return decimal.Zero, r.explainRejectedAdjustment(ctx, id)
}

// explainRejectedAdjustment tells apart the reasons the conditional UPDATE matched no row.
func (r *AccountRepository) explainRejectedAdjustment(ctx context.Context, id uuid.UUID) error {
	var status account.Status
	err := r.querier.QueryRow(ctx, `SELECT status FROM accounts WHERE id = $1`, id).Scan(&status)
	switch {
	case errors.Is(err, pgx.ErrNoRows):
		return account.ErrAccountNotFound{AccountID: id}
	case err != nil:
		return fmt.Errorf("failed to read account status: %w", err)
	case status != account.StatusActive:
		return account.ErrAccountInactive
	default:
		return account.ErrInsufficientFunds
	}
}

func scanAccount(row pgx.Row) (*account.Account, error) {
	var (
		acc     account.Account
		balance string
	)
	if err := row.Scan(&acc.ID, &acc.OwnerID, &acc.Type, &balance, &acc.Status, &acc.CreatedAt, &acc.UpdatedAt); err != nil {
		return nil, err
	}
	b, err := parseDecimal("balance", balance)
	if err != nil {
		return nil, err
	}
	acc.Balance = b
	return &acc, nil
}
