package postgres

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/retail-banking-ledger/internal/domain/reference"
	"github.com/retail-banking-ledger/internal/platform/persistence"
)

// ReferenceRepository implements reference.Registry on the operation_references
// table, whose primary key rejects a second claim of the same code.
type ReferenceRepository struct {
	querier persistence.Querier
	logger  *slog.Logger
}

func NewReferenceRepository(logger *slog.Logger, db *persistence.PostgresDB) *ReferenceRepository {
	return &ReferenceRepository{
		querier: db.Pool(),
		logger:  logger,
	}
}

// Claim records ref as issued.
func (r *ReferenceRepository) Claim(ctx context.Context, ref string, kind reference.Kind) error {
	query := `INSERT INTO operation_references (reference, kind, created_at) VALUES ($1, $2, NOW())`

	if _, err := r.querier.Exec(ctx, query, ref, kind); err != nil {
		if persistence.IsUniqueViolation(err) {
			r.logger.Debug("Reference collision", "reference", ref)
			return reference.ErrReferenceTaken
		}
		r.logger.Error("Failed to claim reference", "reference", ref, "error", err)
		return fmt.Errorf("failed to claim reference: %w", err)
	}

	return nil
}
