package components

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/retail-banking-ledger/internal/domain/account"
	"github.com/retail-banking-ledger/internal/domain/directory"
	"github.com/retail-banking-ledger/internal/domain/notification"
	"github.com/retail-banking-ledger/internal/domain/reconciliation"
	"github.com/retail-banking-ledger/internal/domain/shared"
	"github.com/retail-banking-ledger/internal/domain/transaction"
	"github.com/retail-banking-ledger/internal/domain/transfer"
	"github.com/retail-banking-ledger/internal/funds_movement/service"
	"github.com/retail-banking-ledger/internal/platform/persistence"
	"github.com/shopspring/decimal"
)

// TransferOrchestratorImpl runs transfers as a saga: every leg commits in its own
// database transaction together with its saga step, and a failed credit is
// undone by a compensating credit to the source.
type TransferOrchestratorImpl struct {
	db         persistence.TxRunner
	accounts   account.Store
	ledger     service.LedgerWriter
	sagas      transfer.SagaLog
	references ReferenceIssuer
	directory  directory.Directory
	selector   RecipientSelector
	reconciler service.ReconciliationRecorder
	notifier   notification.Dispatcher
	logger     *slog.Logger
}

func NewTransferOrchestrator(
	db persistence.TxRunner,
	accounts account.Store,
	ledger service.LedgerWriter,
	sagas transfer.SagaLog,
	references ReferenceIssuer,
	dir directory.Directory,
	selector RecipientSelector,
	reconciler service.ReconciliationRecorder,
	notifier notification.Dispatcher,
	logger *slog.Logger,
) service.TransferOrchestrator {
	return &TransferOrchestratorImpl{
		db:         db,
		accounts:   accounts,
		ledger:     ledger,
		sagas:      sagas,
		references: references,
		directory:  dir,
		selector:   selector,
		reconciler: reconciler,
		notifier:   notifier,
		logger:     logger,
	}
}

// transferRun is the state of one orchestration.
type transferRun struct {
	machine *transfer.Machine
	result  *transfer.Result
	logger  *slog.Logger
	memo    string
}

func (o *TransferOrchestratorImpl) newRun(typ transfer.Type, userID string, source uuid.UUID, amount decimal.Decimal) *transferRun {
	return &transferRun{
		machine: transfer.NewMachine(),
		result: &transfer.Result{
			Type:            typ,
			State:           transfer.StateValidating,
			Amount:          amount,
			SourceAccountID: source,
		},
		logger: o.logger.With("transfer_type", string(typ), "user_id", userID, "source_account_id", source.String()),
	}
}

func (r *transferRun) setReference(ref string) {
	r.result.Reference = ref
	r.logger = r.logger.With("reference", ref)
}

func (r *transferRun) advance(next transfer.State) {
	if err := r.machine.Advance(next); err != nil {
		r.logger.Error("Illegal transfer state transition", "error", err)
		return
	}
	r.result.State = next
}

func (r *transferRun) complete() {
	r.advance(transfer.StateCompleted)
	r.result.CompletedAt = time.Now().UTC()
	r.logger.Info("Transfer completed", "states", r.machine.History(), "amount", r.result.Amount.StringFixed(2))
}

func (r *transferRun) fail(err *shared.OperationError) error {
	if r.result.Reference != "" && err.Reference == "" {
		err.Reference = r.result.Reference
	}
	r.machine.Fail()
	r.result.State = transfer.StateFailed

	attrs := []any{"states", r.machine.History(), "kind", string(err.Kind), "error", err}
	switch {
	case err.ReconciliationRequired:
		r.logger.Error("Transfer failed, reconciliation required", attrs...)
	case err.Kind == shared.ErrorKindPersistenceFailure:
		r.logger.Error("Transfer failed", attrs...)
	default:
		r.logger.Warn("Transfer rejected", attrs...)
	}
	return err
}

// Transfer moves funds for an internal, external or p2p intent.
func (o *TransferOrchestratorImpl) Transfer(ctx context.Context, intent *transfer.Intent) (*transfer.Result, error) {
	run := o.newRun(intent.Type, intent.UserID, intent.SourceAccountID, intent.Amount)
	run.memo = intent.Memo

	if err := intent.Validate(); err != nil {
		return nil, run.fail(asOperationError(err, "invalid transfer"))
	}

	source, err := loadOwnedAccount(ctx, o.accounts, intent.UserID, intent.SourceAccountID)
	if err != nil {
		return nil, run.fail(asOperationError(err, "could not load source account"))
	}

	var destination *account.Account
	if intent.Type == transfer.TypeInternal {
		if destination, err = o.loadDestination(ctx, intent.DestinationAccountID); err != nil {
			return nil, run.fail(asOperationError(err, "could not load destination account"))
		}
	}

	if _, err := checkAvailable(ctx, o.accounts, source.ID, intent.Amount); err != nil {
		return nil, run.fail(asOperationError(err, "could not read balance"))
	}
	run.advance(transfer.StateBalanceChecked)

	ref, err := o.references.Next(ctx)
	if err != nil {
		return nil, run.fail(referenceError(err))
	}
	run.setReference(ref)

	abbr, extra, detail := describeIntent(intent, source, destination)
	detail = withMemo(detail, run.memo)
	description := transaction.Describe(abbr, extra, ref)

	if err := o.debitSource(ctx, run, source.ID, intent.Amount, transaction.CategoryTransfer, description, detail, abbr); err != nil {
		return nil, err
	}

	switch intent.Type {
	case transfer.TypeInternal:
		err = o.creditAccount(ctx, run, source.ID, destination.ID, intent.Amount, description, abbr)
	case transfer.TypeExternal:
		run.advance(transfer.StateExternalAccepted)
	case transfer.TypeP2P:
		err = o.creditRecipient(ctx, run, source, intent.Contact, description, abbr)
	}
	if err != nil {
		return nil, err
	}

	run.complete()
	o.notifier.Notify(ctx, intent.UserID, notification.KindTransferCompleted, senderPayload(run))
	return run.result, nil
}

// PayBill debits the source account for a payee outside the bank.
func (o *TransferOrchestratorImpl) PayBill(ctx context.Context, payment *transfer.BillPayment) (*transfer.Result, error) {
	run := o.newRun(transfer.TypeBillPayment, payment.UserID, payment.SourceAccountID, payment.Amount)
	run.memo = payment.Memo

	if err := payment.Validate(); err != nil {
		return nil, run.fail(asOperationError(err, "invalid bill payment"))
	}

	source, err := loadOwnedAccount(ctx, o.accounts, payment.UserID, payment.SourceAccountID)
	if err != nil {
		return nil, run.fail(asOperationError(err, "could not load source account"))
	}

	if _, err := checkAvailable(ctx, o.accounts, source.ID, payment.Amount); err != nil {
		return nil, run.fail(asOperationError(err, "could not read balance"))
	}
	run.advance(transfer.StateBalanceChecked)

	ref, err := o.references.Next(ctx)
	if err != nil {
		return nil, run.fail(referenceError(err))
	}
	run.setReference(ref)

	description := transaction.Describe(transaction.AbbrBill, "", ref)
	detail := withMemo(payment.PayeeName+" "+payment.PayeeAccount, run.memo)
	if err := o.debitSource(ctx, run, source.ID, payment.Amount, transaction.CategoryBillPayment, description, detail, transaction.AbbrBill); err != nil {
		return nil, err
	}
	run.advance(transfer.StateExternalAccepted)

	run.complete()
	payload := senderPayload(run)
	payload["payee"] = payment.PayeeName
	o.notifier.Notify(ctx, payment.UserID, notification.KindBillPaid, payload)
	return run.result, nil
}

func (o *TransferOrchestratorImpl) loadDestination(ctx context.Context, id uuid.UUID) (*account.Account, error) {
	destination, err := o.accounts.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, account.ErrAccountNotFound{}) {
			return nil, shared.NewDestinationNotFound("destination account not found", err)
		}
		return nil, shared.NewPersistenceFailure("could not load destination account", err)
	}
	if !destination.IsActive() {
		return nil, shared.NewDestinationNotFound("destination account is not active", account.ErrAccountInactive)
	}
	return destination, nil
}

// post runs one leg in its own database transaction.
func (o *TransferOrchestratorImpl) post(ctx context.Context, leg service.Leg) (*service.Posting, error) {
	var posting *service.Posting
	err := o.db.ExecuteTx(ctx, func(tx pgx.Tx) error {
		var err error
		posting, err = o.ledger.Post(ctx, tx, leg)
		return err
	})
	return posting, err
}

func (o *TransferOrchestratorImpl) debitSource(
	ctx context.Context,
	run *transferRun,
	sourceID uuid.UUID,
	amount decimal.Decimal,
	category transaction.Category,
	description, detail string,
	abbr transaction.Abbr,
) error {
	leg := service.Leg{
		AccountID:   sourceID,
		Direction:   transaction.DirectionDebit,
		Amount:      amount,
		Category:    category,
		Description: description,
		Reference:   run.result.Reference,
		Step:        transfer.StepDebitSource,
		StepDetail:  detail,
	}

	posting, err := o.post(ctx, leg)
	if err == nil {
		run.advance(transfer.StateSourceDebited)
		run.result.SourceTransactionID = posting.Transaction.ID
		run.result.SourceBalance = posting.Balance
		return nil
	}

	cause := debitError(err)
	if cause.Kind != shared.ErrorKindPersistenceFailure {
		return run.fail(cause)
	}
	return run.fail(o.settleUncertainDebit(ctx, run, leg, abbr, cause))
}

// settleUncertainDebit handles a debit leg whose commit outcome is unknown. The
// saga log is written in the same transaction as the debit, so it tells whether
// the debit landed and has to be compensated.
func (o *TransferOrchestratorImpl) settleUncertainDebit(ctx context.Context, run *transferRun, leg service.Leg, abbr transaction.Abbr, cause *shared.OperationError) *shared.OperationError {
	ctx = context.WithoutCancel(ctx)

	steps, err := o.sagas.ListByReference(ctx, leg.Reference)
	if err != nil {
		run.logger.Error("Could not verify debit outcome", "error", err)
		o.flag(ctx, run, leg.AccountID, leg.Amount, fmt.Sprintf("debit outcome unknown, verify and credit back if debited: %v", cause))
		cause.ReconciliationRequired = true
		cause.Retryable = false
		return cause
	}
	for _, step := range steps {
		if step.Step == transfer.StepDebitSource {
			run.logger.Warn("Debit committed despite error, compensating")
			return o.compensate(ctx, run, leg.AccountID, leg.Amount, abbr, cause)
		}
	}
	return cause
}

func (o *TransferOrchestratorImpl) creditAccount(
	ctx context.Context,
	run *transferRun,
	sourceID, destinationID uuid.UUID,
	amount decimal.Decimal,
	description string,
	abbr transaction.Abbr,
) error {
	leg := service.Leg{
		AccountID:   destinationID,
		Direction:   transaction.DirectionCredit,
		Amount:      amount,
		Category:    transaction.CategoryTransfer,
		Description: description,
		Reference:   run.result.Reference,
		Step:        transfer.StepCreditDestination,
		StepDetail:  run.memo,
	}

	posting, err := o.post(ctx, leg)
	if err != nil {
		cause := creditError(err)
		if cause.Kind != shared.ErrorKindPersistenceFailure {
			return run.fail(o.compensate(ctx, run, sourceID, amount, abbr, cause))
		}
		if err := o.settleUncertainCredit(ctx, run, leg, sourceID, abbr, cause); err != nil {
			return run.fail(err)
		}
		run.advance(transfer.StateDestinationCredited)
		run.result.DestinationAccountID = &destinationID
		return nil
	}

	run.advance(transfer.StateDestinationCredited)
	run.result.DestinationAccountID = &destinationID
	run.result.DestinationTransactionID = &posting.Transaction.ID
	return nil
}

// settleUncertainCredit handles a credit leg whose commit outcome is unknown. A
// nil return means the credit landed and the transfer goes on. Otherwise the
// source debit is compensated, or flagged when the saga log cannot be read.
func (o *TransferOrchestratorImpl) settleUncertainCredit(ctx context.Context, run *transferRun, leg service.Leg, sourceID uuid.UUID, abbr transaction.Abbr, cause *shared.OperationError) *shared.OperationError {
	ctx = context.WithoutCancel(ctx)

	steps, err := o.sagas.ListByReference(ctx, leg.Reference)
	if err != nil {
		run.logger.Error("Could not verify credit outcome", "destination_account_id", leg.AccountID.String(), "error", err)
		o.flag(ctx, run, sourceID, leg.Amount, fmt.Sprintf("credit to %s outcome unknown, credit source back if destination was not credited: %v", leg.AccountID, cause))
		cause.ReconciliationRequired = true
		cause.Retryable = false
		return cause
	}
	for _, step := range steps {
		if step.Step == transfer.StepCreditDestination && step.AccountID == leg.AccountID {
			run.logger.Warn("Credit committed despite error", "destination_account_id", leg.AccountID.String(), "error", cause)
			return nil
		}
	}
	return o.compensate(ctx, run, sourceID, leg.Amount, abbr, cause)
}

// creditRecipient credits the P2P recipient. An unresolved recipient leaves the
// sender's debit standing and the transfer completes unresolved.
func (o *TransferOrchestratorImpl) creditRecipient(ctx context.Context, run *transferRun, source *account.Account, contact, description string, abbr transaction.Abbr) error {
	recipient, err := o.directory.ResolveByContact(ctx, contact)
	if err != nil {
		run.logger.Warn("P2P recipient not resolved, sender debit stands", "error", err)
		return nil
	}
	eligible := recipient.Eligible(source)
	if len(eligible) == 0 {
		run.logger.Warn("P2P recipient has no eligible account, sender debit stands", "recipient_user_id", recipient.UserID)
		return nil
	}
	run.advance(transfer.StateRecipientResolved)

	target := o.selector.Select(eligible)
	if err := o.creditAccount(ctx, run, source.ID, target.ID, run.result.Amount, description, abbr); err != nil {
		return err
	}
	run.result.RecipientResolved = true
	run.result.RecipientUserID = recipient.UserID

	payload := map[string]string{
		"reference":  run.result.Reference,
		"amount":     run.result.Amount.StringFixed(2),
		"account_id": target.ID.String(),
	}
	if run.memo != "" {
		payload["memo"] = run.memo
	}
	o.notifier.Notify(ctx, recipient.UserID, notification.KindTransferReceived, payload)
	return nil
}

// compensate credits the debited amount back to the source. When that fails
// the operation is queued for manual reconciliation.
func (o *TransferOrchestratorImpl) compensate(ctx context.Context, run *transferRun, sourceID uuid.UUID, amount decimal.Decimal, abbr transaction.Abbr, cause *shared.OperationError) *shared.OperationError {
	ctx = context.WithoutCancel(ctx)
	ref := run.result.Reference

	leg := service.Leg{
		AccountID:   sourceID,
		Direction:   transaction.DirectionCredit,
		Amount:      amount,
		Category:    transaction.CategoryCompensation,
		Description: transaction.Describe(abbr, transaction.ExtraReversal, ref),
		Reference:   ref,
		Step:        transfer.StepCompensateDebitSource,
		StepDetail:  cause.Reason,
	}

	if _, err := o.post(ctx, leg); err != nil {
		run.logger.Error("Compensation failed", "amount", amount.StringFixed(2), "cause", cause, "error", err)
		o.flag(ctx, run, sourceID, amount, fmt.Sprintf("compensation after %q failed: %v", cause.Reason, err))
		cause.ReconciliationRequired = true
		cause.Retryable = false
		return cause
	}

	run.logger.Info("Source debit compensated", "amount", amount.StringFixed(2), "cause", cause.Reason)
	cause.Compensated = true
	return cause
}

func (o *TransferOrchestratorImpl) flag(ctx context.Context, run *transferRun, accountID uuid.UUID, amount decimal.Decimal, reason string) {
	item := reconciliation.NewItem(run.result.Reference, accountID, amount, reason)
	// Flag logs every field itself when it cannot persist the item.
	_ = o.reconciler.Flag(ctx, item)
}

// describeIntent returns the description code, its extra part and the saga
// detail of the debit leg.
func describeIntent(intent *transfer.Intent, source, destination *account.Account) (transaction.Abbr, string, string) {
	switch intent.Type {
	case transfer.TypeInternal:
		return transaction.AbbrInternal, source.Type.Initial() + "/" + destination.Type.Initial(), destination.ID.String()
	case transfer.TypeExternal:
		return transaction.AbbrExternal, "", intent.External.BankName + " " + maskAccountNumber(intent.External.AccountNumber)
	default:
		return transaction.AbbrP2P, "", directory.NormalizeContact(intent.Contact)
	}
}

func maskAccountNumber(number string) string {
	if len(number) <= 4 {
		return number
	}
	return "****" + number[len(number)-4:]
}

func senderPayload(run *transferRun) map[string]string {
	r := run.result
	payload := map[string]string{
		"reference": r.Reference,
		"type":      string(r.Type),
		"amount":    r.Amount.StringFixed(2),
		"balance":   r.SourceBalance.StringFixed(2),
	}
	if run.memo != "" {
		payload["memo"] = run.memo
	}
	return payload
}

// withMemo appends the customer's memo to a saga step detail.
func withMemo(detail, memo string) string {
	if memo == "" {
		return detail
	}
	return detail + " memo: " + memo
}
