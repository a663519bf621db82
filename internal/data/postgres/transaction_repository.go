package postgres

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/retail-banking-ledger/internal/domain/transaction"
	"github.com/retail-banking-ledger/internal/platform/persistence"
)

const transactionColumns = `id, account_id, direction, amount::text, category, description, reference, status, created_at, updated_at`

// TransactionRepository implements transaction.Log for PostgreSQL
type TransactionRepository struct {
	querier persistence.Querier
	logger  *slog.Logger
}

// NewTransactionRepository creates a new PostgreSQL transaction log.
func NewTransactionRepository(logger *slog.Logger, db *persistence.PostgresDB) transaction.Log {
	return &TransactionRepository{
		querier: db.Pool(),
		logger:  logger,
	}
}

func (r *TransactionRepository) WithTx(tx pgx.Tx) transaction.Log {
	return &TransactionRepository{
		querier: tx,
		logger:  r.logger,
	}
}

// Record appends tx to the log.
func (r *TransactionRepository) Record(ctx context.Context, tx *transaction.Transaction) error {
	query := `
		INSERT INTO transactions (id, account_id, direction, amount, category, description, reference, status, created_at, updated_at)
		VALUES ($1, $2, $3, $4::numeric, $5, $6, $7, $8, $9, $10)
	`

	_, err := r.querier.Exec(ctx, query,
		tx.ID,
		tx.AccountID,
		tx.Direction,
		tx.Amount.StringFixed(2),
		tx.Category,
		tx.Description,
		tx.Reference,
		tx.Status,
		tx.CreatedAt,
		tx.UpdatedAt,
	)
	if err != nil {
		r.logger.Error("Failed to record transaction",
			"transaction_id", tx.ID.String(),
			"reference", tx.Reference,
			"error", err,
		)
		return fmt.Errorf("failed to record transaction: %w", err)
	}

	return nil
}

// Settle moves a pending transaction to a terminal status. A row that is missing
// or no longer pending yields ErrTransactionNotFound.
func (r *TransactionRepository) Settle(ctx context.Context, id uuid.UUID, to transaction.Status) error {
	if to != transaction.StatusCompleted && to != transaction.StatusCancelled {
		return transaction.ErrInvalidTransition
	}

	query := `
		UPDATE transactions
		SET status = $1, updated_at = NOW()
		WHERE id = $2 AND status = 'pending'
	`

	result, err := r.querier.Exec(ctx, query, to, id)
	if err != nil {
		r.logger.Error("Failed to settle transaction", "transaction_id", id.String(), "status", string(to), "error", err)
		return fmt.Errorf("failed to settle transaction: %w", err)
	}

	if result.RowsAffected() == 0 {
		return transaction.ErrTransactionNotFound{TransactionID: id}
	}

	return nil
}

func (r *TransactionRepository) GetByID(ctx context.Context, id uuid.UUID) (*transaction.Transaction, error) {
	query := `SELECT ` + transactionColumns + ` FROM transactions WHERE id = $1`

	tx, err := scanTransaction(r.querier.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, transaction.ErrTransactionNotFound{TransactionID: id}
		}
		r.logger.Error("Failed to get transaction", "transaction_id", id.String(), "error", err)
		return nil, fmt.Errorf("failed to get transaction: %w", err)
	}

	return tx, nil
}

// ListByAccount returns the account's history, newest first.
func (r *TransactionRepository) ListByAccount(ctx context.Context, accountID uuid.UUID, limit, offset int) ([]*transaction.Transaction, error) {
	query := `SELECT ` + transactionColumns + ` FROM transactions WHERE account_id = $1 ORDER BY created_at DESC LIMIT $2 OFFSET $3`

	rows, err := r.querier.Query(ctx, query, accountID, limit, offset)
	if err != nil {
		r.logger.Error("Failed to list transactions", "account_id", accountID.String(), "error", err)
		return nil, fmt.Errorf("failed to list transactions: %w", err)
	}

	return collectTransactions(rows)
}

func (r *TransactionRepository) CountByAccount(ctx context.Context, accountID uuid.UUID) (int64, error) {
	var count int64
	err := r.querier.QueryRow(ctx, `SELECT COUNT(*) FROM transactions WHERE account_id = $1`, accountID).Scan(&count)
	if err != nil {
		r.logger.Error("Failed to count transactions", "account_id", accountID.String(), "error", err)
		return 0, fmt.Errorf("failed to count transactions: %w", err)
	}
	return count, nil
}

// ListByReference returns every row of one logical operation in the order written.
func (r *TransactionRepository) ListByReference(ctx context.Context, reference string) ([]*transaction.Transaction, error) {
	query := `SELECT ` + transactionColumns + ` FROM transactions WHERE reference = $1 ORDER BY created_at ASC`

	rows, err := r.querier.Query(ctx, query, reference)
	if err != nil {
		r.logger.Error("Failed to list transactions by reference", "reference", reference, "error", err)
		return nil, fmt.Errorf("failed to list transactions by reference: %w", err)
	}

	return collectTransactions(rows)
}

func collectTransactions(rows pgx.Rows) ([]*transaction.Transaction, error) {
	defer rows.Close()

	var txs []*transaction.Transaction
	for rows.Next() {
		tx, err := scanTransaction(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan transaction: %w", err)
		}
		txs = append(txs, tx)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating over transactions: %w", err)
	}

	return txs, nil
}

func scanTransaction(row pgx.Row) (*transaction.Transaction, error) {
	var (
		tx     transaction.Transaction
		amount string
	)
	err := row.Scan(
		&tx.ID,
		&tx.AccountID,
		&tx.Direction,
		&amount,
		&tx.Category,
		&tx.Description,
		&tx.Reference,
		&tx.Status,
		&tx.CreatedAt,
		&tx.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	if tx.Amount, err = parseDecimal("amount", amount); err != nil {
		return nil, err
	}
	return &tx, nil
}
