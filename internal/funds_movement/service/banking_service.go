package service

import (
	"context"
	"errors"
	"log/slog"

	"github.com/google/uuid"
	"github.com/retail-banking-ledger/internal/domain/account"
	"github.com/retail-banking-ledger/internal/domain/deposit"
	"github.com/retail-banking-ledger/internal/domain/reconciliation"
	"github.com/retail-banking-ledger/internal/domain/shared"
	"github.com/retail-banking-ledger/internal/domain/transfer"
	"github.com/shopspring/decimal"
)

type BankingServiceImpl struct {
	accounts   AccountOpener
	transfers  TransferOrchestrator
	trading    TradingEngine
	deposits   DepositIntake
	reconciler ReconciliationRecorder
	logger     *slog.Logger
}

func NewBankingService(
	accounts AccountOpener,
	transfers TransferOrchestrator,
	trading TradingEngine,
	deposits DepositIntake,
	reconciler ReconciliationRecorder,
	logger *slog.Logger,
) BankingService {
	return &BankingServiceImpl{
		accounts:   accounts,
		transfers:  transfers,
		trading:    trading,
		deposits:   deposits,
		reconciler: reconciler,
		logger:     logger,
	}
}

func (s *BankingServiceImpl) OpenAccount(ctx context.Context, cmd OpenAccountCommand) (*account.Account, error) {
	acc, err := s.accounts.Open(ctx, cmd)
	s.logOutcome("open_account", "", err)
	return acc, err
}

func (s *BankingServiceImpl) Transfer(ctx context.Context, intent *transfer.Intent) (*transfer.Result, error) {
	result, err := s.transfers.Transfer(ctx, intent)
	s.logOutcome("transfer_"+string(intent.Type), referenceOf(result), err)
	return result, err
}

func (s *BankingServiceImpl) PayBill(ctx context.Context, payment *transfer.BillPayment) (*transfer.Result, error) {
	result, err := s.transfers.PayBill(ctx, payment)
	s.logOutcome("bill_payment", referenceOf(result), err)
	return result, err
}

func (s *BankingServiceImpl) FundCrypto(ctx context.Context, cmd FundCommand) (*TradeResult, error) {
	result, err := s.trading.Fund(ctx, cmd)
	s.logOutcome("crypto_fund", tradeReferenceOf(result), err)
	return result, err
}

func (s *BankingServiceImpl) BuyCrypto(ctx context.Context, userID string, fiatAmount decimal.Decimal) (*TradeResult, error) {
	result, err := s.trading.Buy(ctx, userID, fiatAmount)
	s.logOutcome("crypto_buy", tradeReferenceOf(result), err)
	return result, err
}

func (s *BankingServiceImpl) SellCrypto(ctx context.Context, userID string, assetAmount decimal.Decimal) (*TradeResult, error) {
	result, err := s.trading.Sell(ctx, userID, assetAmount)
	s.logOutcome("crypto_sell", tradeReferenceOf(result), err)
	return result, err
}

func (s *BankingServiceImpl) ApproveSell(ctx context.Context, tradeID uuid.UUID, reviewer string) (*TradeResult, error) {
	result, err := s.trading.SettleSell(ctx, tradeID, true, reviewer, "")
	s.logOutcome("crypto_sell_approve", tradeReferenceOf(result), err)
	return result, err
}

func (s *BankingServiceImpl) RejectSell(ctx context.Context, tradeID uuid.UUID, reviewer, reason string) (*TradeResult, error) {
	result, err := s.trading.SettleSell(ctx, tradeID, false, reviewer, reason)
	s.logOutcome("crypto_sell_reject", tradeReferenceOf(result), err)
	return result, err
}

func (s *BankingServiceImpl) SubmitDeposit(ctx context.Context, cmd DepositCommand) (*deposit.MobileDeposit, error) {
	d, err := s.deposits.Submit(ctx, cmd)
	s.logOutcome("deposit_submit", depositReferenceOf(d), err)
	return d, err
}

func (s *BankingServiceImpl) ApproveDeposit(ctx context.Context, depositID uuid.UUID, reviewer string) (*deposit.MobileDeposit, error) {
	d, err := s.deposits.Approve(ctx, depositID, reviewer)
	s.logOutcome("deposit_approve", depositReferenceOf(d), err)
	return d, err
}

func (s *BankingServiceImpl) RejectDeposit(ctx context.Context, depositID uuid.UUID, reviewer, reason string) (*deposit.MobileDeposit, error) {
	d, err := s.deposits.Reject(ctx, depositID, reviewer, reason)
	s.logOutcome("deposit_reject", depositReferenceOf(d), err)
	return d, err
}

func (s *BankingServiceImpl) ResolveReconciliation(ctx context.Context, itemID uuid.UUID, resolvedBy, note string) (*reconciliation.Item, error) {
	item, err := s.reconciler.Resolve(ctx, itemID, resolvedBy, note)
	ref := ""
	if item != nil {
		ref = item.Reference
	}
	s.logOutcome("reconciliation_resolve", ref, err)
	return item, err
}

// logOutcome logs business rejections at WARN and everything else that failed at ERROR.
func (s *BankingServiceImpl) logOutcome(operation, reference string, err error) {
	if err == nil {
		s.logger.Info("Operation completed", "operation", operation, "reference", reference)
		return
	}

	opErr, ok := shared.AsOperationError(err)
	if !ok {
		s.logger.Error("Operation failed", "operation", operation, "error", err)
		return
	}

	attrs := []any{
		"operation", operation,
		"kind", string(opErr.Kind),
		"reference", opErr.Reference,
		"compensated", opErr.Compensated,
		"reconciliation_required", opErr.ReconciliationRequired,
		"error", err,
	}
	if errors.Is(err, shared.ErrPersistenceFailure) || opErr.ReconciliationRequired {
		s.logger.Error("Operation failed", attrs...)
		return
	}
	s.logger.Warn("Operation rejected", attrs...)
}

func referenceOf(r *transfer.Result) string {
	if r == nil {
		return ""
	}
	return r.Reference
}

func tradeReferenceOf(r *TradeResult) string {
	if r == nil || r.Trade == nil {
		return ""
	}
	return r.Trade.Reference
}

func depositReferenceOf(d *deposit.MobileDeposit) string {
	if d == nil {
		return ""
	}
	return d.Reference
}
