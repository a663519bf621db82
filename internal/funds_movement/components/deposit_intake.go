package components

import (
	"context"
	"errors"
	"log/slog"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/retail-banking-ledger/internal/domain/account"
	"github.com/retail-banking-ledger/internal/domain/deposit"
	"github.com/retail-banking-ledger/internal/domain/notification"
	"github.com/retail-banking-ledger/internal/domain/shared"
	"github.com/retail-banking-ledger/internal/domain/transaction"
	"github.com/retail-banking-ledger/internal/funds_movement/service"
	"github.com/retail-banking-ledger/internal/platform/persistence"
	"github.com/shopspring/decimal"
)

type DepositIntakeImpl struct {
	db         persistence.TxRunner
	accounts   account.Store
	ledger     service.LedgerWriter
	deposits   deposit.Repository
	references ReferenceIssuer
	notifier   notification.Dispatcher
	logger     *slog.Logger
}

func NewDepositIntake(
	db persistence.TxRunner,
	accounts account.Store,
	ledger service.LedgerWriter,
	deposits deposit.Repository,
	references ReferenceIssuer,
	notifier notification.Dispatcher,
	logger *slog.Logger,
) service.DepositIntake {
	return &DepositIntakeImpl{
		db:         db,
		accounts:   accounts,
		ledger:     ledger,
		deposits:   deposits,
		references: references,
		notifier:   notifier,
		logger:     logger,
	}
}

// Submit records a pending deposit and its pending credit. The balance does
// not change until the deposit is approved.
func (d *DepositIntakeImpl) Submit(ctx context.Context, cmd service.DepositCommand) (*deposit.MobileDeposit, error) {
	if cmd.UserID == "" {
		return nil, shared.NewInvalidInput("authenticated user is required")
	}
	if !shared.IsFiatAmount(cmd.Amount) {
		return nil, shared.NewInvalidInput(deposit.ErrInvalidAmount.Error())
	}

	acc, err := loadOwnedAccount(ctx, d.accounts, cmd.UserID, cmd.AccountID)
	if err != nil {
		return nil, err
	}

	ref, err := d.references.NextDeposit(ctx)
	if err != nil {
		return nil, referenceError(err)
	}
	logger := d.logger.With("reference", ref, "user_id", cmd.UserID, "account_id", acc.ID.String())

	var md *deposit.MobileDeposit
	err = d.db.ExecuteTx(ctx, func(tx pgx.Tx) error {
		pending, err := d.ledger.RecordPending(ctx, tx, service.Leg{
			AccountID:   acc.ID,
			Direction:   transaction.DirectionCredit,
			Amount:      cmd.Amount,
			Category:    transaction.CategoryDeposit,
			Description: transaction.Describe(transaction.AbbrMobileDeposit, "", ref),
			Reference:   ref,
		})
		if err != nil {
			return err
		}
		if md, err = deposit.New(acc.ID, cmd.UserID, cmd.Amount, ref, pending.ID); err != nil {
			return shared.NewInvalidInput(err.Error())
		}
		return d.deposits.WithTx(tx).Create(ctx, md)
	})
	if err != nil {
		opErr := asOperationError(err, "could not record deposit").WithReference(ref)
		logger.Error("Deposit intake failed", "error", err)
		return nil, opErr
	}

	logger.Info("Mobile deposit submitted", "deposit_id", md.ID.String(), "amount", md.Amount.StringFixed(2))
	d.notifier.Notify(ctx, cmd.UserID, notification.KindDepositSubmitted, depositPayload(md, nil))
	return md, nil
}

// Approve credits the deposit to its account.
func (d *DepositIntakeImpl) Approve(ctx context.Context, depositID uuid.UUID, reviewer string) (*deposit.MobileDeposit, error) {
	return d.review(ctx, depositID, func(md *deposit.MobileDeposit) error {
		return md.Approve(reviewer)
	}, transaction.StatusCompleted)
}

// Reject cancels the pending credit.
func (d *DepositIntakeImpl) Reject(ctx context.Context, depositID uuid.UUID, reviewer, reason string) (*deposit.MobileDeposit, error) {
	return d.review(ctx, depositID, func(md *deposit.MobileDeposit) error {
		return md.Reject(reviewer, reason)
	}, transaction.StatusCancelled)
}

// review applies decide and settles the linked transaction in one database
// transaction. The conditional review write lets only one decision through.
func (d *DepositIntakeImpl) review(ctx context.Context, depositID uuid.UUID, decide func(*deposit.MobileDeposit) error, settleTo transaction.Status) (*deposit.MobileDeposit, error) {
	var (
		md      *deposit.MobileDeposit
		posting *service.Posting
	)
	err := d.db.ExecuteTx(ctx, func(tx pgx.Tx) error {
		repo := d.deposits.WithTx(tx)
		var err error
		if md, err = repo.GetByID(ctx, depositID); err != nil {
			return err
		}
		if err := decide(md); err != nil {
			return err
		}
		if err := repo.SaveReview(ctx, md); err != nil {
			return err
		}
		posting, err = d.ledger.Settle(ctx, tx, md.TransactionID, settleTo)
		return err
	})
	if err != nil {
		opErr := reviewError(err)
		d.logger.Warn("Deposit review failed", "deposit_id", depositID.String(), "decision", string(settleTo), "kind", string(opErr.Kind), "error", err)
		return nil, opErr
	}

	logger := d.logger.With("reference", md.Reference, "deposit_id", md.ID.String())
	balance := posting.Balance
	if md.Status == deposit.StatusApproved {
		logger.Info("Mobile deposit approved", "reviewer", md.ReviewedBy, "balance", balance.StringFixed(2))
		d.notifier.Notify(ctx, md.UserID, notification.KindDepositApproved, depositPayload(md, &balance))
	} else {
		logger.Info("Mobile deposit rejected", "reviewer", md.ReviewedBy, "reason", md.RejectionReason)
		d.notifier.Notify(ctx, md.UserID, notification.KindDepositRejected, depositPayload(md, nil))
	}
	return md, nil
}

func reviewError(err error) *shared.OperationError {
	switch {
	case errors.Is(err, deposit.ErrDepositNotFound{}):
		return shared.NewNotFound("deposit not found", err)
	case errors.Is(err, deposit.ErrAlreadyReviewed):
		return shared.NewConflict("deposit was already reviewed", err)
	case errors.Is(err, deposit.ErrMissingReviewer), errors.Is(err, deposit.ErrMissingReason):
		return shared.NewInvalidInput(err.Error())
	case errors.Is(err, transaction.ErrInvalidTransition), errors.Is(err, transaction.ErrTransactionNotFound{}):
		return shared.NewConflict("linked transaction is no longer pending", err)
	case errors.Is(err, account.ErrAccountInactive):
		// Not a duplicate decision: the deposit stays pending until the account is reactivated.
		return shared.NewInvalidInput("account is not active")
	case errors.Is(err, account.ErrAccountNotFound{}):
		return shared.NewNotFound("account not found", err)
	default:
		return shared.NewPersistenceFailure("could not review deposit", err)
	}
}

func depositPayload(md *deposit.MobileDeposit, balance *decimal.Decimal) map[string]string {
	payload := map[string]string{
		"reference":  md.Reference,
		"deposit_id": md.ID.String(),
		"amount":     md.Amount.StringFixed(2),
		"status":     string(md.Status),
	}
	if balance != nil {
		payload["balance"] = balance.StringFixed(2)
	}
	if md.RejectionReason != "" {
		payload["reason"] = md.RejectionReason
	}
	return payload
}
