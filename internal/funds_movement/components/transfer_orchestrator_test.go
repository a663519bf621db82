package components

import (
	"context"
	"errors"
	"math/rand/v2"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/retail-banking-ledger/internal/domain/account"
	"github.com/retail-banking-ledger/internal/domain/notification"
	"github.com/retail-banking-ledger/internal/domain/shared"
	"github.com/retail-banking-ledger/internal/domain/transaction"
	"github.com/retail-banking-ledger/internal/domain/transfer"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func internalIntent(userID string, source, destination uuid.UUID, amount string) *transfer.Intent {
	return &transfer.Intent{
		Type:                 transfer.TypeInternal,
		UserID:               userID,
		Amount:               dec(amount),
		SourceAccountID:      source,
		DestinationAccountID: destination,
	}
}

func TestTransfer_InternalMovesFundsUnderOneReference(t *testing.T) {
	h := newHarness(t)
	a := h.bank.addAccount(t, "alice", account.TypeChecking, "500.00")
	b := h.bank.addAccount(t, "bob", account.TypeSavings, "100.00")

	result, err := h.orchestrator.Transfer(context.Background(), internalIntent("alice", a.ID, b.ID, "200.00"))
	require.NoError(t, err)

	assert.Equal(t, transfer.StateCompleted, result.State)
	assert.Equal(t, "300.00", h.bank.balance(a.ID).StringFixed(2))
	assert.Equal(t, "300.00", h.bank.balance(b.ID).StringFixed(2))
	assert.Equal(t, "300.00", result.SourceBalance.StringFixed(2))
	require.NotNil(t, result.DestinationAccountID)
	assert.Equal(t, b.ID, *result.DestinationAccountID)

	recorded := h.bank.recorded()
	require.Len(t, recorded, 2)
	for _, tx := range recorded {
		assert.Equal(t, result.Reference, tx.Reference)
		assert.Equal(t, "INT C/S – "+result.Reference, tx.Description)
		assert.Equal(t, transaction.StatusCompleted, tx.Status)
	}
	assert.Equal(t, transaction.DirectionDebit, recorded[0].Direction)
	assert.Equal(t, a.ID, recorded[0].AccountID)
	assert.Equal(t, transaction.DirectionCredit, recorded[1].Direction)
	assert.Equal(t, b.ID, recorded[1].AccountID)

	assert.Equal(t, []transfer.Step{transfer.StepDebitSource, transfer.StepCreditDestination}, h.bank.sagaSteps())
	assert.Equal(t, 2, h.bank.statementMessages())
	assert.Equal(t, []notification.Kind{notification.KindTransferCompleted}, h.notes.kinds())
}

func TestTransfer_InsufficientFundsWritesNothing(t *testing.T) {
	h := newHarness(t)
	a := h.bank.addAccount(t, "alice", account.TypeChecking, "50.00")
	b := h.bank.addAccount(t, "bob", account.TypeChecking, "0.00")

	result, err := h.orchestrator.Transfer(context.Background(), internalIntent("alice", a.ID, b.ID, "200.00"))
	assert.Nil(t, result)
	opErr := requireOperationError(t, err, shared.ErrorKindInsufficientFunds)
	assert.False(t, opErr.Compensated)

	assert.Equal(t, "50.00", h.bank.balance(a.ID).StringFixed(2))
	assert.Empty(t, h.bank.recorded())
	assert.Zero(t, h.refs.count(), "no reference is claimed before the balance check")
	assert.Empty(t, h.notes.kinds())
}

func TestTransfer_RejectedBeforeAnyWrite(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(h *harness, intent *transfer.Intent)
		kind   shared.ErrorKind
	}{
		{
			name:   "zero amount",
			mutate: func(_ *harness, intent *transfer.Intent) { intent.Amount = decimal.Zero },
			kind:   shared.ErrorKindInvalidInput,
		},
		{
			name:   "sub-cent amount",
			mutate: func(_ *harness, intent *transfer.Intent) { intent.Amount = dec("10.005") },
			kind:   shared.ErrorKindInvalidInput,
		},
		{
			name:   "source owned by someone else",
			mutate: func(_ *harness, intent *transfer.Intent) { intent.UserID = "mallory" },
			kind:   shared.ErrorKindNotFound,
		},
		{
			name: "frozen source",
			mutate: func(h *harness, intent *transfer.Intent) {
				h.bank.setStatus(intent.SourceAccountID, account.StatusFrozen)
			},
			kind: shared.ErrorKindInvalidInput,
		},
		{
			name:   "unknown destination",
			mutate: func(_ *harness, intent *transfer.Intent) { intent.DestinationAccountID = uuid.New() },
			kind:   shared.ErrorKindDestinationNotFound,
		},
		{
			name: "closed destination",
			mutate: func(h *harness, intent *transfer.Intent) {
				h.bank.setStatus(intent.DestinationAccountID, account.StatusClosed)
			},
			kind: shared.ErrorKindDestinationNotFound,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness(t)
			a := h.bank.addAccount(t, "alice", account.TypeChecking, "500.00")
			b := h.bank.addAccount(t, "bob", account.TypeChecking, "100.00")
			intent := internalIntent("alice", a.ID, b.ID, "200.00")
			tt.mutate(h, intent)

			_, err := h.orchestrator.Transfer(context.Background(), intent)
			requireOperationError(t, err, tt.kind)

			assert.Equal(t, "500.00", h.bank.balance(a.ID).StringFixed(2))
			assert.Equal(t, "100.00", h.bank.balance(b.ID).StringFixed(2))
			assert.Empty(t, h.bank.recorded())
			assert.Zero(t, h.refs.count())
		})
	}
}

func TestTransfer_ReferenceRegistryDown(t *testing.T) {
	h := newHarness(t)
	a := h.bank.addAccount(t, "alice", account.TypeChecking, "500.00")
	b := h.bank.addAccount(t, "bob", account.TypeChecking, "100.00")
	h.refs.err = errors.New("registry unavailable")

	_, err := h.orchestrator.Transfer(context.Background(), internalIntent("alice", a.ID, b.ID, "200.00"))
	opErr := requireOperationError(t, err, shared.ErrorKindPersistenceFailure)
	assert.True(t, opErr.Retryable)
	assert.Equal(t, "500.00", h.bank.balance(a.ID).StringFixed(2))
	assert.Empty(t, h.bank.recorded())
}

func TestTransfer_FailedCreditIsCompensated(t *testing.T) {
	tests := []struct {
		name      string
		creditErr func(id uuid.UUID) error
		kind      shared.ErrorKind
	}{
		{"storage failure", func(uuid.UUID) error { return errors.New("connection reset") }, shared.ErrorKindPersistenceFailure},
		{"destination vanished", func(id uuid.UUID) error { return account.ErrAccountNotFound{AccountID: id} }, shared.ErrorKindDestinationNotFound},
		{"destination frozen", func(uuid.UUID) error { return account.ErrAccountInactive }, shared.ErrorKindDestinationNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness(t)
			a := h.bank.addAccount(t, "alice", account.TypeChecking, "500.00")
			b := h.bank.addAccount(t, "bob", account.TypeSavings, "100.00")
			h.bank.adjustHook = failCredit(b.ID, tt.creditErr(b.ID))

			result, err := h.orchestrator.Transfer(context.Background(), internalIntent("alice", a.ID, b.ID, "200.00"))
			assert.Nil(t, result)
			opErr := requireOperationError(t, err, tt.kind)
			assert.True(t, opErr.Compensated)
			assert.False(t, opErr.ReconciliationRequired)
			require.NotEmpty(t, opErr.Reference)

			assert.Equal(t, "500.00", h.bank.balance(a.ID).StringFixed(2), "source is restored exactly")
			assert.Equal(t, "100.00", h.bank.balance(b.ID).StringFixed(2))

			recorded := h.bank.recorded()
			require.Len(t, recorded, 2)
			assert.Equal(t, transaction.DirectionDebit, recorded[0].Direction)
			assert.Equal(t, a.ID, recorded[1].AccountID)
			assert.Equal(t, transaction.DirectionCredit, recorded[1].Direction)
			assert.Equal(t, transaction.CategoryCompensation, recorded[1].Category)
			assert.Equal(t, "INT REVERSAL – "+opErr.Reference, recorded[1].Description)
			assert.Equal(t, opErr.Reference, recorded[1].Reference)

			assert.Equal(t, []transfer.Step{transfer.StepDebitSource, transfer.StepCompensateDebitSource}, h.bank.sagaSteps())
			assert.Empty(t, h.bank.openItems())
			assert.Empty(t, h.notes.kinds(), "failed transfers send no confirmation")
		})
	}
}

func TestTransfer_FailedCompensationIsFlagged(t *testing.T) {
	h := newHarness(t)
	a := h.bank.addAccount(t, "alice", account.TypeChecking, "500.00")
	b := h.bank.addAccount(t, "bob", account.TypeSavings, "100.00")
	h.bank.adjustHook = func(_ uuid.UUID, delta decimal.Decimal) error {
		if delta.IsPositive() {
			return errors.New("database is read-only")
		}
		return nil
	}

	_, err := h.orchestrator.Transfer(context.Background(), internalIntent("alice", a.ID, b.ID, "200.00"))
	opErr := requireOperationError(t, err, shared.ErrorKindPersistenceFailure)
	assert.True(t, opErr.ReconciliationRequired)
	assert.False(t, opErr.Compensated)
	assert.False(t, opErr.Retryable)

	assert.Equal(t, "300.00", h.bank.balance(a.ID).StringFixed(2))
	items := h.bank.openItems()
	require.Len(t, items, 1)
	assert.Equal(t, opErr.Reference, items[0].Reference)
	assert.Equal(t, a.ID, items[0].AccountID)
	assert.Equal(t, "200.00", items[0].Amount.StringFixed(2))
	assert.Contains(t, items[0].Reason, "database is read-only")
}

func TestTransfer_FlagFailureStillReportsReconciliation(t *testing.T) {
	h := newHarness(t)
	a := h.bank.addAccount(t, "alice", account.TypeChecking, "500.00")
	b := h.bank.addAccount(t, "bob", account.TypeSavings, "100.00")
	h.bank.adjustHook = func(_ uuid.UUID, delta decimal.Decimal) error {
		if delta.IsPositive() {
			return errors.New("database is read-only")
		}
		return nil
	}
	h.bank.itemCreateErr = errors.New("database is read-only")

	_, err := h.orchestrator.Transfer(context.Background(), internalIntent("alice", a.ID, b.ID, "200.00"))
	opErr := requireOperationError(t, err, shared.ErrorKindPersistenceFailure)
	assert.True(t, opErr.ReconciliationRequired)
	assert.Empty(t, h.bank.openItems())
}

func TestTransfer_UncertainDebit(t *testing.T) {
	t.Run("debit landed is compensated", func(t *testing.T) {
		h := newHarness(t)
		a := h.bank.addAccount(t, "alice", account.TypeChecking, "500.00")
		b := h.bank.addAccount(t, "bob", account.TypeChecking, "100.00")
		h.bank.commitErrOnce = errors.New("commit acknowledgement lost")

		_, err := h.orchestrator.Transfer(context.Background(), internalIntent("alice", a.ID, b.ID, "200.00"))
		opErr := requireOperationError(t, err, shared.ErrorKindPersistenceFailure)
		assert.True(t, opErr.Compensated)
		assert.Equal(t, "500.00", h.bank.balance(a.ID).StringFixed(2))
		assert.Equal(t, "100.00", h.bank.balance(b.ID).StringFixed(2))
		assert.Equal(t, []transfer.Step{transfer.StepDebitSource, transfer.StepCompensateDebitSource}, h.bank.sagaSteps())
	})

	t.Run("debit rolled back needs nothing", func(t *testing.T) {
		h := newHarness(t)
		a := h.bank.addAccount(t, "alice", account.TypeChecking, "500.00")
		b := h.bank.addAccount(t, "bob", account.TypeChecking, "100.00")
		h.bank.adjustHook = func(id uuid.UUID, _ decimal.Decimal) error {
			if id == a.ID {
				return errors.New("connection reset")
			}
			return nil
		}

		_, err := h.orchestrator.Transfer(context.Background(), internalIntent("alice", a.ID, b.ID, "200.00"))
		opErr := requireOperationError(t, err, shared.ErrorKindPersistenceFailure)
		assert.False(t, opErr.Compensated)
		assert.True(t, opErr.Retryable)
		assert.Equal(t, "500.00", h.bank.balance(a.ID).StringFixed(2))
		assert.Empty(t, h.bank.recorded())
		assert.Empty(t, h.bank.sagaSteps())
	})

	t.Run("unverifiable debit is flagged", func(t *testing.T) {
		h := newHarness(t)
		a := h.bank.addAccount(t, "alice", account.TypeChecking, "500.00")
		b := h.bank.addAccount(t, "bob", account.TypeChecking, "100.00")
		h.bank.commitErrOnce = errors.New("commit acknowledgement lost")
		h.bank.sagaListErr = errors.New("connection refused")

		_, err := h.orchestrator.Transfer(context.Background(), internalIntent("alice", a.ID, b.ID, "200.00"))
		opErr := requireOperationError(t, err, shared.ErrorKindPersistenceFailure)
		assert.True(t, opErr.ReconciliationRequired)
		require.Len(t, h.bank.openItems(), 1)
		assert.Equal(t, a.ID, h.bank.openItems()[0].AccountID)
	})
}

func TestTransfer_UncertainCredit(t *testing.T) {
	t.Run("credit landed completes without compensation", func(t *testing.T) {
		h := newHarness(t)
		a := h.bank.addAccount(t, "alice", account.TypeChecking, "500.00")
		b := h.bank.addAccount(t, "bob", account.TypeChecking, "100.00")
		before := h.bank.totalBalance()
		h.bank.adjustHook = h.bank.lostCreditAck(b.ID)

		result, err := h.orchestrator.Transfer(context.Background(), internalIntent("alice", a.ID, b.ID, "200.00"))
		require.NoError(t, err)

		assert.Equal(t, transfer.StateCompleted, result.State)
		require.NotNil(t, result.DestinationAccountID)
		assert.Equal(t, b.ID, *result.DestinationAccountID)
		assert.Equal(t, "300.00", h.bank.balance(a.ID).StringFixed(2))
		assert.Equal(t, "300.00", h.bank.balance(b.ID).StringFixed(2))
		assert.True(t, before.Equal(h.bank.totalBalance()))
		assert.Equal(t, []transfer.Step{transfer.StepDebitSource, transfer.StepCreditDestination}, h.bank.sagaSteps())
		assert.Empty(t, h.bank.openItems())
		assert.Equal(t, []notification.Kind{notification.KindTransferCompleted}, h.notes.kinds())
	})

	t.Run("unverifiable credit is flagged not compensated", func(t *testing.T) {
		h := newHarness(t)
		a := h.bank.addAccount(t, "alice", account.TypeChecking, "500.00")
		b := h.bank.addAccount(t, "bob", account.TypeChecking, "100.00")
		before := h.bank.totalBalance()
		h.bank.adjustHook = h.bank.lostCreditAck(b.ID)
		h.bank.sagaListErr = errors.New("connection refused")

		_, err := h.orchestrator.Transfer(context.Background(), internalIntent("alice", a.ID, b.ID, "200.00"))
		opErr := requireOperationError(t, err, shared.ErrorKindPersistenceFailure)
		assert.True(t, opErr.ReconciliationRequired)
		assert.False(t, opErr.Compensated)
		assert.False(t, opErr.Retryable)

		assert.True(t, before.Equal(h.bank.totalBalance()))
		assert.NotContains(t, h.bank.sagaSteps(), transfer.StepCompensateDebitSource)
		require.Len(t, h.bank.openItems(), 1)
		assert.Equal(t, a.ID, h.bank.openItems()[0].AccountID)
		assert.Equal(t, "200.00", h.bank.openItems()[0].Amount.StringFixed(2))
	})

	t.Run("p2p recipient credit landed", func(t *testing.T) {
		h := newHarness(t)
		a := h.bank.addAccount(t, "alice", account.TypeChecking, "500.00")
		checking := h.bank.addAccount(t, "bob", account.TypeChecking, "20.00")
		h.dir.contacts["bob@example.com"] = "bob"
		before := h.bank.totalBalance()
		h.bank.adjustHook = h.bank.lostCreditAck(checking.ID)

		result, err := h.orchestrator.Transfer(context.Background(), &transfer.Intent{
			Type:            transfer.TypeP2P,
			UserID:          "alice",
			Amount:          dec("75.00"),
			SourceAccountID: a.ID,
			Contact:         "bob@example.com",
		})
		require.NoError(t, err)

		assert.True(t, result.RecipientResolved)
		assert.Equal(t, "425.00", h.bank.balance(a.ID).StringFixed(2))
		assert.Equal(t, "95.00", h.bank.balance(checking.ID).StringFixed(2))
		assert.True(t, before.Equal(h.bank.totalBalance()))
		assert.NotContains(t, h.bank.sagaSteps(), transfer.StepCompensateDebitSource)
	})
}

func TestTransfer_External(t *testing.T) {
	h := newHarness(t)
	a := h.bank.addAccount(t, "alice", account.TypeChecking, "500.00")

	result, err := h.orchestrator.Transfer(context.Background(), &transfer.Intent{
		Type:            transfer.TypeExternal,
		UserID:          "alice",
		Amount:          dec("120.50"),
		SourceAccountID: a.ID,
		External: &transfer.ExternalBeneficiary{
			RoutingNumber: "021000021",
			AccountNumber: "000123456789",
			BankName:      "Other Bank",
			HolderName:    "Ada Lovelace",
		},
	})
	require.NoError(t, err)

	assert.Equal(t, transfer.StateCompleted, result.State)
	assert.Nil(t, result.DestinationAccountID)
	assert.Equal(t, "379.50", h.bank.balance(a.ID).StringFixed(2))

	recorded := h.bank.recorded()
	require.Len(t, recorded, 1)
	assert.Equal(t, "EXT – "+result.Reference, recorded[0].Description)
	assert.Equal(t, []transfer.Step{transfer.StepDebitSource}, h.bank.sagaSteps())
}

func TestTransfer_P2P(t *testing.T) {
	t.Run("credits the primary eligible account", func(t *testing.T) {
		h := newHarness(t)
		a := h.bank.addAccount(t, "alice", account.TypeChecking, "500.00")
		h.bank.addAccount(t, "bob", account.TypeFixedDeposit, "1000.00")
		savings := h.bank.addAccount(t, "bob", account.TypeSavings, "10.00")
		checking := h.bank.addAccount(t, "bob", account.TypeChecking, "20.00")
		h.dir.contacts["bob@example.com"] = "bob"

		result, err := h.orchestrator.Transfer(context.Background(), &transfer.Intent{
			Type:            transfer.TypeP2P,
			UserID:          "alice",
			Amount:          dec("75.00"),
			SourceAccountID: a.ID,
			Contact:         " Bob@Example.com ",
		})
		require.NoError(t, err)

		assert.Equal(t, transfer.StateCompleted, result.State)
		assert.True(t, result.RecipientResolved)
		assert.Equal(t, "bob", result.RecipientUserID)
		assert.Equal(t, "425.00", h.bank.balance(a.ID).StringFixed(2))
		assert.Equal(t, "95.00", h.bank.balance(checking.ID).StringFixed(2))
		assert.Equal(t, "10.00", h.bank.balance(savings.ID).StringFixed(2))

		recorded := h.bank.recorded()
		require.Len(t, recorded, 2)
		assert.Equal(t, "P2P – "+result.Reference, recorded[1].Description)
		assert.ElementsMatch(t,
			[]notification.Kind{notification.KindTransferReceived, notification.KindTransferCompleted},
			h.notes.kinds())
	})

	t.Run("unresolved contact leaves the debit standing", func(t *testing.T) {
		h := newHarness(t)
		a := h.bank.addAccount(t, "alice", account.TypeChecking, "500.00")

		result, err := h.orchestrator.Transfer(context.Background(), &transfer.Intent{
			Type:            transfer.TypeP2P,
			UserID:          "alice",
			Amount:          dec("75.00"),
			SourceAccountID: a.ID,
			Contact:         "+1 (555) 010-9999",
		})
		require.NoError(t, err)

		assert.Equal(t, transfer.StateCompleted, result.State)
		assert.False(t, result.RecipientResolved)
		assert.Equal(t, "425.00", h.bank.balance(a.ID).StringFixed(2))
		assert.Len(t, h.bank.recorded(), 1)
		assert.Equal(t, []notification.Kind{notification.KindTransferCompleted}, h.notes.kinds())
	})

	t.Run("recipient without eligible accounts", func(t *testing.T) {
		h := newHarness(t)
		a := h.bank.addAccount(t, "alice", account.TypeChecking, "500.00")
		h.bank.addAccount(t, "bob", account.TypeInvestment, "0.00")
		h.dir.contacts["bob@example.com"] = "bob"

		result, err := h.orchestrator.Transfer(context.Background(), &transfer.Intent{
			Type:            transfer.TypeP2P,
			UserID:          "alice",
			Amount:          dec("75.00"),
			SourceAccountID: a.ID,
			Contact:         "bob@example.com",
		})
		require.NoError(t, err)
		assert.False(t, result.RecipientResolved)
		assert.Len(t, h.bank.recorded(), 1)
	})

	t.Run("failed recipient credit is compensated", func(t *testing.T) {
		h := newHarness(t)
		a := h.bank.addAccount(t, "alice", account.TypeChecking, "500.00")
		checking := h.bank.addAccount(t, "bob", account.TypeChecking, "20.00")
		h.dir.contacts["bob@example.com"] = "bob"
		h.bank.adjustHook = failCredit(checking.ID, errors.New("connection reset"))

		_, err := h.orchestrator.Transfer(context.Background(), &transfer.Intent{
			Type:            transfer.TypeP2P,
			UserID:          "alice",
			Amount:          dec("75.00"),
			SourceAccountID: a.ID,
			Contact:         "bob@example.com",
		})
		opErr := requireOperationError(t, err, shared.ErrorKindPersistenceFailure)
		assert.True(t, opErr.Compensated)
		assert.Equal(t, "500.00", h.bank.balance(a.ID).StringFixed(2))
		assert.Equal(t, "P2P REVERSAL – "+opErr.Reference, h.bank.recorded()[1].Description)
	})
}

func TestPayBill(t *testing.T) {
	h := newHarness(t)
	a := h.bank.addAccount(t, "alice", account.TypeChecking, "500.00")

	result, err := h.orchestrator.PayBill(context.Background(), &transfer.BillPayment{
		UserID:          "alice",
		SourceAccountID: a.ID,
		Amount:          dec("80.10"),
		PayeeName:       "City Power",
		PayeeAccount:    "ACC-9",
	})
	require.NoError(t, err)

	assert.Equal(t, transfer.TypeBillPayment, result.Type)
	assert.Equal(t, transfer.StateCompleted, result.State)
	assert.Equal(t, "419.90", h.bank.balance(a.ID).StringFixed(2))

	recorded := h.bank.recorded()
	require.Len(t, recorded, 1)
	assert.Equal(t, transaction.CategoryBillPayment, recorded[0].Category)
	assert.Equal(t, "BILL – "+result.Reference, recorded[0].Description)

	require.Len(t, h.notes.sent, 1)
	assert.Equal(t, notification.KindBillPaid, h.notes.sent[0].Kind)
	assert.Equal(t, "City Power", h.notes.sent[0].Payload["payee"])

	_, err = h.orchestrator.PayBill(context.Background(), &transfer.BillPayment{
		UserID:          "alice",
		SourceAccountID: a.ID,
		Amount:          dec("10.00"),
		PayeeName:       "City Power",
	})
	requireOperationError(t, err, shared.ErrorKindInvalidInput)

	_, err = h.orchestrator.PayBill(context.Background(), &transfer.BillPayment{
		UserID:          "alice",
		SourceAccountID: a.ID,
		Amount:          dec("1000.00"),
		PayeeName:       "City Power",
		PayeeAccount:    "ACC-9",
	})
	requireOperationError(t, err, shared.ErrorKindInsufficientFunds)
	assert.Equal(t, "419.90", h.bank.balance(a.ID).StringFixed(2))
}

func TestTransfer_MemoIsCarried(t *testing.T) {
	t.Run("internal", func(t *testing.T) {
		h := newHarness(t)
		a := h.bank.addAccount(t, "alice", account.TypeChecking, "500.00")
		b := h.bank.addAccount(t, "alice", account.TypeSavings, "0.00")
		intent := internalIntent("alice", a.ID, b.ID, "50.00")
		intent.Memo = "rainy day"

		_, err := h.orchestrator.Transfer(context.Background(), intent)
		require.NoError(t, err)

		details := h.bank.sagaDetails()
		assert.Equal(t, b.ID.String()+" memo: rainy day", details[transfer.StepDebitSource])
		assert.Equal(t, "rainy day", details[transfer.StepCreditDestination])
		require.Len(t, h.notes.sent, 1)
		assert.Equal(t, "rainy day", h.notes.sent[0].Payload["memo"])
	})

	t.Run("p2p recipient sees it", func(t *testing.T) {
		h := newHarness(t)
		a := h.bank.addAccount(t, "alice", account.TypeChecking, "500.00")
		h.bank.addAccount(t, "bob", account.TypeChecking, "0.00")
		h.dir.contacts["bob@example.com"] = "bob"

		_, err := h.orchestrator.Transfer(context.Background(), &transfer.Intent{
			Type:            transfer.TypeP2P,
			UserID:          "alice",
			Amount:          dec("12.00"),
			SourceAccountID: a.ID,
			Contact:         "bob@example.com",
			Memo:            "lunch",
		})
		require.NoError(t, err)

		require.Len(t, h.notes.sent, 2)
		for _, note := range h.notes.sent {
			assert.Equal(t, "lunch", note.Payload["memo"], "kind %s", note.Kind)
		}
	})

	t.Run("bill payment", func(t *testing.T) {
		h := newHarness(t)
		a := h.bank.addAccount(t, "alice", account.TypeChecking, "500.00")

		_, err := h.orchestrator.PayBill(context.Background(), &transfer.BillPayment{
			UserID:          "alice",
			SourceAccountID: a.ID,
			Amount:          dec("80.10"),
			PayeeName:       "City Power",
			PayeeAccount:    "ACC-9",
			Memo:            "march",
		})
		require.NoError(t, err)

		assert.Equal(t, "City Power ACC-9 memo: march", h.bank.sagaDetails()[transfer.StepDebitSource])
		require.Len(t, h.notes.sent, 1)
		assert.Equal(t, "march", h.notes.sent[0].Payload["memo"])
	})

	t.Run("absent memo adds nothing", func(t *testing.T) {
		h := newHarness(t)
		a := h.bank.addAccount(t, "alice", account.TypeChecking, "500.00")
		b := h.bank.addAccount(t, "alice", account.TypeSavings, "0.00")

		_, err := h.orchestrator.Transfer(context.Background(), internalIntent("alice", a.ID, b.ID, "50.00"))
		require.NoError(t, err)

		assert.Equal(t, b.ID.String(), h.bank.sagaDetails()[transfer.StepDebitSource])
		require.Len(t, h.notes.sent, 1)
		assert.NotContains(t, h.notes.sent[0].Payload, "memo")
	})
}

func TestTransfer_ConcurrentDebitsNeverOverdraw(t *testing.T) {
	h := newHarness(t)
	a := h.bank.addAccount(t, "alice", account.TypeChecking, "100.00")
	b := h.bank.addAccount(t, "bob", account.TypeChecking, "0.00")

	const attempts = 10
	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		succeeded int
		rejected  int
	)
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := h.orchestrator.Transfer(context.Background(), internalIntent("alice", a.ID, b.ID, "30.00"))
			mu.Lock()
			defer mu.Unlock()
			if err == nil {
				succeeded++
				return
			}
			if errors.Is(err, shared.ErrInsufficientFunds) {
				rejected++
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 3, succeeded)
	assert.Equal(t, attempts-3, rejected)
	assert.Equal(t, "10.00", h.bank.balance(a.ID).StringFixed(2))
	assert.Equal(t, "90.00", h.bank.balance(b.ID).StringFixed(2))
}

func TestTransfer_ConservationAcrossConcurrentTransfers(t *testing.T) {
	h := newHarness(t)
	var ids []uuid.UUID
	for i := 0; i < 4; i++ {
		ids = append(ids, h.bank.addAccount(t, "treasury", account.TypeBusiness, "1000.00").ID)
	}
	before := h.bank.totalBalance()

	rng := rand.New(rand.NewPCG(7, 11))
	type plan struct {
		from, to uuid.UUID
		amount   string
	}
	// accounts 0 and 1 pay accounts 2 and 3, so compensations never hit the failing account
	var plans []plan
	for i := 0; i < 60; i++ {
		cents := 1 + rng.IntN(60000)
		plans = append(plans, plan{
			from:   ids[rng.IntN(2)],
			to:     ids[2+rng.IntN(2)],
			amount: decimal.New(int64(cents), -2).StringFixed(2),
		})
	}

	// every third credit to account 3 fails
	credits := 0
	h.bank.adjustHook = func(id uuid.UUID, delta decimal.Decimal) error {
		if id != ids[3] || !delta.IsPositive() {
			return nil
		}
		credits++
		if credits%3 == 0 {
			return errors.New("transient write failure")
		}
		return nil
	}

	var wg sync.WaitGroup
	for _, p := range plans {
		wg.Add(1)
		go func(p plan) {
			defer wg.Done()
			_, _ = h.orchestrator.Transfer(context.Background(), internalIntent("treasury", p.from, p.to, p.amount))
		}(p)
	}
	wg.Wait()

	assert.True(t, before.Equal(h.bank.totalBalance()), "total %s != %s", h.bank.totalBalance(), before)
	for _, id := range ids {
		assert.False(t, h.bank.balance(id).IsNegative())
	}
	assert.Empty(t, h.bank.openItems())
}
