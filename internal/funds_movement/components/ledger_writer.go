package components

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/retail-banking-ledger/internal/domain/account"
	"github.com/retail-banking-ledger/internal/domain/outbox"
	"github.com/retail-banking-ledger/internal/domain/transaction"
	"github.com/retail-banking-ledger/internal/domain/transfer"
	"github.com/retail-banking-ledger/internal/funds_movement/service"
	"github.com/shopspring/decimal"
)

// LedgerWriterImpl implements the LedgerWriter interface
type LedgerWriterImpl struct {
	accounts     account.Store
	transactions transaction.Log
	outboxRepo   outbox.Repository
	sagas        transfer.SagaLog
	logger       *slog.Logger
}

// NewLedgerWriter creates a new LedgerWriterImpl
func NewLedgerWriter(
	accounts account.Store,
	transactions transaction.Log,
	outboxRepo outbox.Repository,
	sagas transfer.SagaLog,
	logger *slog.Logger,
) service.LedgerWriter {
	return &LedgerWriterImpl{
		accounts:     accounts,
		transactions: transactions,
		outboxRepo:   outboxRepo,
		sagas:        sagas,
		logger:       logger,
	}
}

// Post applies the leg to the balance, never below zero, then records the
// completed Transaction, its statement message and its saga step.
func (w *LedgerWriterImpl) Post(ctx context.Context, tx pgx.Tx, leg service.Leg) (*service.Posting, error) {
	logger := w.logger.With("reference", leg.Reference, "account_id", leg.AccountID.String())

	movement, err := transaction.New(leg.AccountID, leg.Direction, leg.Amount, leg.Category, leg.Description, leg.Reference, transaction.StatusCompleted)
	if err != nil {
		return nil, err
	}

	delta := movement.SignedAmount()
	balance, err := w.accounts.WithTx(tx).AdjustBalance(ctx, leg.AccountID, delta, decimal.Zero)
	if err != nil {
		logger.Warn("Balance adjustment rejected", "delta", delta.String(), "error", err)
		return nil, err
	}

	if err := w.transactions.WithTx(tx).Record(ctx, movement); err != nil {
		logger.Error("Failed to record transaction", "transaction_id", movement.ID.String(), "error", err)
		return nil, err
	}

	if err := w.writeStatementMessage(ctx, tx, movement); err != nil {
		logger.Error("Failed to write statement message", "transaction_id", movement.ID.String(), "error", err)
		return nil, err
	}

	if leg.Step != "" {
		step := transfer.NewSagaStep(leg.Reference, leg.Step, leg.AccountID, leg.Amount, leg.StepDetail)
		if err := w.sagas.WithTx(tx).Append(ctx, step); err != nil {
			logger.Error("Failed to append saga step", "step", string(leg.Step), "error", err)
			return nil, err
		}
	}

	logger.Info("Leg posted",
		"transaction_id", movement.ID.String(),
		"direction", string(movement.Direction),
		"amount", movement.Amount.StringFixed(2),
		"balance", balance.StringFixed(2),
	)
	return &service.Posting{Transaction: movement, Balance: balance}, nil
}

// RecordPending records a pending movement and its statement message.
func (w *LedgerWriterImpl) RecordPending(ctx context.Context, tx pgx.Tx, leg service.Leg) (*transaction.Transaction, error) {
	movement, err := transaction.New(leg.AccountID, leg.Direction, leg.Amount, leg.Category, leg.Description, leg.Reference, transaction.StatusPending)
	if err != nil {
		return nil, err
	}

	if err := w.transactions.WithTx(tx).Record(ctx, movement); err != nil {
		return nil, err
	}
	if err := w.writeStatementMessage(ctx, tx, movement); err != nil {
		return nil, err
	}

	w.logger.Info("Pending movement recorded", "reference", leg.Reference, "transaction_id", movement.ID.String())
	return movement, nil
}

// Settle completes or cancels a pending movement. Completion applies the
// movement to the balance in the same database transaction.
func (w *LedgerWriterImpl) Settle(ctx context.Context, tx pgx.Tx, txID uuid.UUID, to transaction.Status) (*service.Posting, error) {
	transactions := w.transactions.WithTx(tx)

	movement, err := transactions.GetByID(ctx, txID)
	if err != nil {
		return nil, err
	}
	if !movement.CanSettle(to) {
		return nil, fmt.Errorf("%w: transaction %s is %s", transaction.ErrInvalidTransition, txID, movement.Status)
	}

	accounts := w.accounts.WithTx(tx)
	var balance decimal.Decimal
	if to == transaction.StatusCompleted {
		balance, err = accounts.AdjustBalance(ctx, movement.AccountID, movement.SignedAmount(), decimal.Zero)
	} else {
		balance, err = accounts.GetBalance(ctx, movement.AccountID)
	}
	if err != nil {
		return nil, err
	}

	if err := transactions.Settle(ctx, txID, to); err != nil {
		return nil, err
	}
	movement.Status = to
	movement.UpdatedAt = time.Now().UTC()

	if err := w.writeStatementMessage(ctx, tx, movement); err != nil {
		return nil, err
	}

	w.logger.Info("Pending movement settled",
		"reference", movement.Reference,
		"transaction_id", txID.String(),
		"status", string(to),
		"balance", balance.StringFixed(2),
	)
	return &service.Posting{Transaction: movement, Balance: balance}, nil
}

func (w *LedgerWriterImpl) writeStatementMessage(ctx context.Context, tx pgx.Tx, movement *transaction.Transaction) error {
	msg, err := outbox.NewStatementMessage(movement)
	if err != nil {
		return fmt.Errorf("failed to build statement message: %w", err)
	}
	return w.outboxRepo.WithTx(tx).Create(ctx, msg)
}
