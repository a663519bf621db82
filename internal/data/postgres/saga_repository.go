package postgres

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5"
	"github.com/retail-banking-ledger/internal/domain/transfer"
	"github.com/retail-banking-ledger/internal/platform/persistence"
)

// SagaRepository implements transfer.SagaLog for PostgreSQL
type SagaRepository struct {
	querier persistence.Querier
	logger  *slog.Logger
}

func NewSagaRepository(logger *slog.Logger, db *persistence.PostgresDB) transfer.SagaLog {
	return &SagaRepository{
		querier: db.Pool(),
		logger:  logger,
	}
}

func (r *SagaRepository) WithTx(tx pgx.Tx) transfer.SagaLog {
	return &SagaRepository{
		querier: tx,
		logger:  r.logger,
	}
}

// Append writes one saga step.
func (r *SagaRepository) Append(ctx context.Context, step *transfer.SagaStep) error {
	query := `
		INSERT INTO transfer_saga_steps (id, reference, step, account_id, amount, detail, created_at)
		VALUES ($1, $2, $3, $4, $5::numeric, $6, $7)
	`

	_, err := r.querier.Exec(ctx, query,
		step.ID,
		step.Reference,
		step.Step,
		step.AccountID,
		step.Amount.StringFixed(2),
		step.Detail,
		step.CreatedAt,
	)
	if err != nil {
		r.logger.Error("Failed to append saga step",
			"reference", step.Reference,
			"step", string(step.Step),
			"error", err,
		)
		return fmt.Errorf("failed to append saga step: %w", err)
	}

	return nil
}

// ListByReference returns the steps of one transfer in the order written.
func (r *SagaRepository) ListByReference(ctx context.Context, reference string) ([]*transfer.SagaStep, error) {
	query := `
		SELECT id, reference, step, account_id, amount::text, detail, created_at
		FROM transfer_saga_steps
		WHERE reference = $1
		ORDER BY created_at ASC
	`

	rows, err := r.querier.Query(ctx, query, reference)
	if err != nil {
		r.logger.Error("Failed to list saga steps", "reference", reference, "error", err)
		return nil, fmt.Errorf("failed to list saga steps: %w", err)
	}
	defer rows.Close()

	var steps []*transfer.SagaStep
	for rows.Next() {
		var (
			step   transfer.SagaStep
			amount string
		)
		if err := rows.Scan(&step.ID, &step.Reference, &step.Step, &step.AccountID, &amount, &step.Detail, &step.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan saga step: %w", err)
		}
		if step.Amount, err = parseDecimal("amount", amount); err != nil {
			return nil, err
		}
		steps = append(steps, &step)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating over saga steps: %w", err)
	}

	return steps, nil
}
