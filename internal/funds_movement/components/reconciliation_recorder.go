package components

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/retail-banking-ledger/internal/domain/reconciliation"
	"github.com/retail-banking-ledger/internal/domain/shared"
	"github.com/retail-banking-ledger/internal/funds_movement/service"
)

const flagRetryDelay = 100 * time.Millisecond

type ReconciliationRecorderImpl struct {
	repo     reconciliation.Repository
	attempts int
	delay    time.Duration
	logger   *slog.Logger
}

func NewReconciliationRecorder(repo reconciliation.Repository, attempts int, logger *slog.Logger) service.ReconciliationRecorder {
	if attempts <= 0 {
		attempts = 1
	}
	return &ReconciliationRecorderImpl{
		repo:     repo,
		attempts: attempts,
		delay:    flagRetryDelay,
		logger:   logger,
	}
}

// Flag inserts item, retrying a few times. When every attempt fails the item
// exists only in the ERROR log line written here.
func (r *ReconciliationRecorderImpl) Flag(ctx context.Context, item *reconciliation.Item) error {
	ctx = context.WithoutCancel(ctx)

	var err error
	for attempt := 1; attempt <= r.attempts; attempt++ {
		if err = r.repo.Create(ctx, item); err == nil {
			r.logger.Warn("Operation flagged for manual reconciliation",
				"item_id", item.ID.String(),
				"reference", item.Reference,
				"account_id", item.AccountID.String(),
				"amount", item.Amount.StringFixed(2),
				"reason", item.Reason,
			)
			return nil
		}
		if attempt < r.attempts {
			time.Sleep(r.delay * time.Duration(attempt))
		}
	}

	r.logger.Error("Failed to flag operation for manual reconciliation",
		"item_id", item.ID.String(),
		"reference", item.Reference,
		"account_id", item.AccountID.String(),
		"amount", item.Amount.StringFixed(2),
		"reason", item.Reason,
		"created_at", item.CreatedAt,
		"attempts", r.attempts,
		"error", err,
	)
	return err
}

func (r *ReconciliationRecorderImpl) Resolve(ctx context.Context, itemID uuid.UUID, resolvedBy, note string) (*reconciliation.Item, error) {
	if strings.TrimSpace(resolvedBy) == "" {
		return nil, shared.NewInvalidInput("resolver is required")
	}

	item, err := r.repo.Resolve(ctx, itemID, resolvedBy, note)
	if err != nil {
		switch {
		case errors.Is(err, reconciliation.ErrItemNotFound{}):
			return nil, shared.NewNotFound("reconciliation item not found", err)
		case errors.Is(err, reconciliation.ErrAlreadyResolved):
			return nil, shared.NewConflict("reconciliation item already resolved", err)
		default:
			return nil, shared.NewPersistenceFailure("could not resolve reconciliation item", err)
		}
	}

	r.logger.Info("Reconciliation item resolved", "item_id", itemID.String(), "reference", item.Reference, "resolved_by", resolvedBy)
	return item, nil
}
