package service

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/retail-banking-ledger/internal/domain/account"
	"github.com/retail-banking-ledger/internal/domain/crypto"
	"github.com/retail-banking-ledger/internal/domain/deposit"
	"github.com/retail-banking-ledger/internal/domain/reconciliation"
	"github.com/retail-banking-ledger/internal/domain/transaction"
	"github.com/retail-banking-ledger/internal/domain/transfer"
	"github.com/shopspring/decimal"
)

// BankingService is the entry point of every balance-changing operation.
// Failures are *shared.OperationError values.
type BankingService interface {
	OpenAccount(ctx context.Context, cmd OpenAccountCommand) (*account.Account, error)

	Transfer(ctx context.Context, intent *transfer.Intent) (*transfer.Result, error)
	PayBill(ctx context.Context, payment *transfer.BillPayment) (*transfer.Result, error)

	FundCrypto(ctx context.Context, cmd FundCommand) (*TradeResult, error)
	BuyCrypto(ctx context.Context, userID string, fiatAmount decimal.Decimal) (*TradeResult, error)
	SellCrypto(ctx context.Context, userID string, assetAmount decimal.Decimal) (*TradeResult, error)
	ApproveSell(ctx context.Context, tradeID uuid.UUID, reviewer string) (*TradeResult, error)
	RejectSell(ctx context.Context, tradeID uuid.UUID, reviewer, reason string) (*TradeResult, error)

	SubmitDeposit(ctx context.Context, cmd DepositCommand) (*deposit.MobileDeposit, error)
	ApproveDeposit(ctx context.Context, depositID uuid.UUID, reviewer string) (*deposit.MobileDeposit, error)
	RejectDeposit(ctx context.Context, depositID uuid.UUID, reviewer, reason string) (*deposit.MobileDeposit, error)

	ResolveReconciliation(ctx context.Context, itemID uuid.UUID, resolvedBy, note string) (*reconciliation.Item, error)
}

// OpenAccountCommand opens an account, optionally registering a P2P contact for the owner.
type OpenAccountCommand struct {
	UserID         string
	Type           account.Type
	InitialBalance decimal.Decimal
	Contact        string
}

// FundCommand moves fiat from a bank account into the crypto portfolio.
type FundCommand struct {
	UserID    string
	AccountID uuid.UUID
	Amount    decimal.Decimal
}

// DepositCommand submits a mobile cheque deposit.
type DepositCommand struct {
	UserID    string
	AccountID uuid.UUID
	Amount    decimal.Decimal
}

// TradeResult is a recorded trade and the portfolio after it.
type TradeResult struct {
	Trade     *crypto.Trade     `json:"trade"`
	Portfolio *crypto.Portfolio `json:"portfolio"`
}

// TransferOrchestrator runs transfers and bill payments leg by leg.
type TransferOrchestrator interface {
	Transfer(ctx context.Context, intent *transfer.Intent) (*transfer.Result, error)
	PayBill(ctx context.Context, payment *transfer.BillPayment) (*transfer.Result, error)
}

// TradingEngine maintains crypto portfolios.
type TradingEngine interface {
	Fund(ctx context.Context, cmd FundCommand) (*TradeResult, error)
	Buy(ctx context.Context, userID string, fiatAmount decimal.Decimal) (*TradeResult, error)
	Sell(ctx context.Context, userID string, assetAmount decimal.Decimal) (*TradeResult, error)
	SettleSell(ctx context.Context, tradeID uuid.UUID, approved bool, reviewer, reason string) (*TradeResult, error)
}

// DepositIntake records mobile deposits and applies review decisions.
type DepositIntake interface {
	Submit(ctx context.Context, cmd DepositCommand) (*deposit.MobileDeposit, error)
	Approve(ctx context.Context, depositID uuid.UUID, reviewer string) (*deposit.MobileDeposit, error)
	Reject(ctx context.Context, depositID uuid.UUID, reviewer, reason string) (*deposit.MobileDeposit, error)
}

// AccountOpener creates accounts and registers P2P contacts.
type AccountOpener interface {
	Open(ctx context.Context, cmd OpenAccountCommand) (*account.Account, error)
}

// ReconciliationRecorder writes and resolves reconciliation items.
type ReconciliationRecorder interface {
	// Flag durably queues item; a failure to do so is logged with every field.
	Flag(ctx context.Context, item *reconciliation.Item) error
	Resolve(ctx context.Context, itemID uuid.UUID, resolvedBy, note string) (*reconciliation.Item, error)
}

// LedgerWriter performs the writes of one ledger leg inside a database transaction.
type LedgerWriter interface {
	// Post adjusts the balance and records the completed movement with its
	// statement message and, when step is set, its saga step.
	Post(ctx context.Context, tx pgx.Tx, leg Leg) (*Posting, error)
	// RecordPending records a pending movement without touching the balance.
	RecordPending(ctx context.Context, tx pgx.Tx, leg Leg) (*transaction.Transaction, error)
	// Settle moves a pending movement to a terminal status, crediting the balance
	// when it completes.
	Settle(ctx context.Context, tx pgx.Tx, txID uuid.UUID, to transaction.Status) (*Posting, error)
}

// Leg is one account movement.
type Leg struct {
	AccountID   uuid.UUID
	Direction   transaction.Direction
	Amount      decimal.Decimal
	Category    transaction.Category
	Description string
	Reference   string
	Step        transfer.Step
	StepDetail  string
}

// Posting is the outcome of a leg.
type Posting struct {
	Transaction *transaction.Transaction
	Balance     decimal.Decimal
}
