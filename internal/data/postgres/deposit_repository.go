package postgres

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/retail-banking-ledger/internal/domain/deposit"
	"github.com/retail-banking-ledger/internal/platform/persistence"
)

const depositColumns = `id, account_id, user_id, amount::text, reference, transaction_id, status, reviewed_by, rejection_reason, created_at, reviewed_at`

// DepositRepository implements deposit.Repository for PostgreSQL
type DepositRepository struct {
	querier persistence.Querier
	logger  *slog.Logger
}

func NewDepositRepository(logger *slog.Logger, db *persistence.PostgresDB) deposit.Repository {
	return &DepositRepository{
		querier: db.Pool(),
		logger:  logger,
	}
}

func (r *DepositRepository) WithTx(tx pgx.Tx) deposit.Repository {
	return &DepositRepository{
		querier: tx,
		logger:  r.logger,
	}
}

func (r *DepositRepository) Create(ctx context.Context, d *deposit.MobileDeposit) error {
	query := `
		INSERT INTO mobile_deposits (id, account_id, user_id, amount, reference, transaction_id, status, created_at)
		VALUES ($1, $2, $3, $4::numeric, $5, $6, $7, $8)
	`

	_, err := r.querier.Exec(ctx, query,
		d.ID,
		d.AccountID,
		d.UserID,
		d.Amount.StringFixed(2),
		d.Reference,
		d.TransactionID,
		d.Status,
		d.CreatedAt,
	)
	if err != nil {
		r.logger.Error("Failed to create mobile deposit", "reference", d.Reference, "error", err)
		return fmt.Errorf("failed to create mobile deposit: %w", err)
	}

	return nil
}

func (r *DepositRepository) GetByID(ctx context.Context, id uuid.UUID) (*deposit.MobileDeposit, error) {
	query := `SELECT ` + depositColumns + ` FROM mobile_deposits WHERE id = $1`

	d, err := scanDeposit(r.querier.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, deposit.ErrDepositNotFound{DepositID: id}
		}
		r.logger.Error("Failed to get mobile deposit", "id", id.String(), "error", err)
		return nil, fmt.Errorf("failed to get mobile deposit: %w", err)
	}

	return d, nil
}

// ListPending returns the review queue, oldest first.
func (r *DepositRepository) ListPending(ctx context.Context, limit, offset int) ([]*deposit.MobileDeposit, error) {
	query := `SELECT ` + depositColumns + ` FROM mobile_deposits WHERE status = 'pending' ORDER BY created_at ASC LIMIT $1 OFFSET $2`

	rows, err := r.querier.Query(ctx, query, limit, offset)
	if err != nil {
		r.logger.Error("Failed to list pending deposits", "error", err)
		return nil, fmt.Errorf("failed to list pending deposits: %w", err)
	}

	return collectDeposits(rows)
}

// ListByUser returns the user's deposits, newest first.
func (r *DepositRepository) ListByUser(ctx context.Context, userID string, limit, offset int) ([]*deposit.MobileDeposit, error) {
	query := `SELECT ` + depositColumns + ` FROM mobile_deposits WHERE user_id = $1 ORDER BY created_at DESC LIMIT $2 OFFSET $3`

	rows, err := r.querier.Query(ctx, query, userID, limit, offset)
	if err != nil {
		r.logger.Error("Failed to list deposits", "user_id", userID, "error", err)
		return nil, fmt.Errorf("failed to list deposits: %w", err)
	}

	return collectDeposits(rows)
}

// SaveReview writes the review outcome of a still pending deposit.
func (r *DepositRepository) SaveReview(ctx context.Context, d *deposit.MobileDeposit) error {
	query := `
		UPDATE mobile_deposits
		SET status = $1, reviewed_by = $2, rejection_reason = $3, reviewed_at = $4
		WHERE id = $5 AND status = 'pending'
	`

	result, err := r.querier.Exec(ctx, query, d.Status, d.ReviewedBy, d.RejectionReason, d.ReviewedAt, d.ID)
	if err != nil {
		r.logger.Error("Failed to save deposit review", "id", d.ID.String(), "error", err)
		return fmt.Errorf("failed to save deposit review: %w", err)
	}

	if result.RowsAffected() == 0 {
		return deposit.ErrAlreadyReviewed
	}

	return nil
}

func collectDeposits(rows pgx.Rows) ([]*deposit.MobileDeposit, error) {
	defer rows.Close()

	var deposits []*deposit.MobileDeposit
	for rows.Next() {
		d, err := scanDeposit(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan mobile deposit: %w", err)
		}
		deposits = append(deposits, d)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating over mobile deposits: %w", err)
	}

	return deposits, nil
}

func scanDeposit(row pgx.Row) (*deposit.MobileDeposit, error) {
	var (
		d      deposit.MobileDeposit
		amount string
	)
	err := row.Scan(
		&d.ID,
		&d.AccountID,
		&d.UserID,
		&amount,
		&d.Reference,
		&d.TransactionID,
		&d.Status,
		&d.ReviewedBy,
		&d.RejectionReason,
		&d.CreatedAt,
		&d.ReviewedAt,
	)
	if err != nil {
		return nil, err
	}
	if d.Amount, err = parseDecimal("amount", amount); err != nil {
		return nil, err
	}
	return &d, nil
}
