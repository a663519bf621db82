package postgres

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/retail-banking-ledger/internal/domain/reconciliation"
	"github.com/retail-banking-ledger/internal/platform/persistence"
)

const reconciliationColumns = `id, reference, account_id, amount::text, reason, status, created_at, resolved_at, resolved_by, note`

// ReconciliationRepository implements reconciliation.Repository for PostgreSQL
type ReconciliationRepository struct {
	querier persistence.Querier
	logger  *slog.Logger
}

func NewReconciliationRepository(logger *slog.Logger, db *persistence.PostgresDB) reconciliation.Repository {
	return &ReconciliationRepository{
		querier: db.Pool(),
		logger:  logger,
	}
}

func (r *ReconciliationRepository) WithTx(tx pgx.Tx) reconciliation.Repository {
	return &ReconciliationRepository{
		querier: tx,
		logger:  r.logger,
	}
}

// Create enqueues an open item.
func (r *ReconciliationRepository) Create(ctx context.Context, item *reconciliation.Item) error {
	query := `
		INSERT INTO reconciliation_items (id, reference, account_id, amount, reason, status, created_at)
		VALUES ($1, $2, $3, $4::numeric, $5, $6, $7)
	`

	_, err := r.querier.Exec(ctx, query,
		item.ID,
		item.Reference,
		item.AccountID,
		item.Amount.StringFixed(2),
		item.Reason,
		item.Status,
		item.CreatedAt,
	)
	if err != nil {
		r.logger.Error("Failed to create reconciliation item",
			"reference", item.Reference,
			"account_id", item.AccountID.String(),
			"error", err,
		)
		return fmt.Errorf("failed to create reconciliation item: %w", err)
	}

	return nil
}

// ListOpen returns unresolved items, oldest first.
func (r *ReconciliationRepository) ListOpen(ctx context.Context, limit, offset int) ([]*reconciliation.Item, error) {
	query := `SELECT ` + reconciliationColumns + ` FROM reconciliation_items WHERE status = 'open' ORDER BY created_at ASC LIMIT $1 OFFSET $2`

	rows, err := r.querier.Query(ctx, query, limit, offset)
	if err != nil {
		r.logger.Error("Failed to list reconciliation items", "error", err)
		return nil, fmt.Errorf("failed to list reconciliation items: %w", err)
	}
	defer rows.Close()

	var items []*reconciliation.Item
	for rows.Next() {
		item, err := scanReconciliationItem(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan reconciliation item: %w", err)
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating over reconciliation items: %w", err)
	}

	return items, nil
}

// Resolve closes an open item and returns it.
func (r *ReconciliationRepository) Resolve(ctx context.Context, id uuid.UUID, resolvedBy, note string) (*reconciliation.Item, error) {
	query := `
		UPDATE reconciliation_items
		SET status = 'resolved', resolved_at = NOW(), resolved_by = $1, note = $2
		WHERE id = $3 AND status = 'open'
		RETURNING ` + reconciliationColumns

	item, err := scanReconciliationItem(r.querier.QueryRow(ctx, query, resolvedBy, note, id))
	if err == nil {
		return item, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		r.logger.Error("Failed to resolve reconciliation item", "id", id.String(), "error", err)
		return nil, fmt.Errorf("failed to resolve reconciliation item: %w", err)
	}

	var exists bool
	if err := r.querier.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM reconciliation_items WHERE id = $1)`, id).Scan(&exists); err != nil {
		return nil, fmt.Errorf("failed to look up reconciliation item: %w", err)
	}
	if !exists {
		return nil, reconciliation.ErrItemNotFound{ItemID: id}
	}
	return nil, reconciliation.ErrAlreadyResolved
}

func scanReconciliationItem(row pgx.Row) (*reconciliation.Item, error) {
	var (
		item   reconciliation.Item
		amount string
	)
	err := row.Scan(
		&item.ID,
		&item.Reference,
		&item.AccountID,
		&amount,
		&item.Reason,
		&item.Status,
		&item.CreatedAt,
		&item.ResolvedAt,
		&item.ResolvedBy,
		&item.Note,
	)
	if err != nil {
		return nil, err
	}
	if item.Amount, err = parseDecimal("amount", amount); err != nil {
		return nil, err
	}
	return &item, nil
}
