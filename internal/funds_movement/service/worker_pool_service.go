package service

import (
	"context"
	"log/slog"

	"github.com/google/uuid"
	"github.com/panjf2000/ants/v2"
	"github.com/retail-banking-ledger/internal/domain/account"
	"github.com/retail-banking-ledger/internal/domain/deposit"
	"github.com/retail-banking-ledger/internal/domain/reconciliation"
	"github.com/retail-banking-ledger/internal/domain/shared"
	"github.com/retail-banking-ledger/internal/domain/transfer"
	"github.com/shopspring/decimal"
)

// WorkerPoolBankingService runs every operation of the wrapped service as an
// independent task on a bounded ants pool. Callers wait for the task under their
// own context; a task that was already submitted runs to completion even if the
// caller gives up, because a written debit can only be compensated, not cancelled.
type WorkerPoolBankingService struct {
	baseService BankingService
	pool        *ants.Pool
	logger      *slog.Logger
}

type WorkerPoolConfig struct {
	Size int
}

func NewWorkerPoolBankingService(
	baseService BankingService,
	config WorkerPoolConfig,
	logger *slog.Logger,
) (*WorkerPoolBankingService, error) {
	pool, err := ants.NewPool(config.Size)
	if err != nil {
		return nil, err
	}

	return &WorkerPoolBankingService{
		baseService: baseService,
		pool:        pool,
		logger:      logger,
	}, nil
}

type outcome[T any] struct {
	value T
	err   error
}

// submit runs fn on the pool and waits for its result or for ctx to end.
func submit[T any](ctx context.Context, s *WorkerPoolBankingService, operation string, fn func(ctx context.Context) (T, error)) (T, error) {
	var zero T
	resultChan := make(chan outcome[T], 1)

	// The task keeps running after the caller leaves, so it must not inherit the caller's cancellation.
	taskCtx := context.WithoutCancel(ctx)

	err := s.pool.Submit(func() {
		value, err := fn(taskCtx)
		resultChan <- outcome[T]{value: value, err: err}
	})
	if err != nil {
		s.logger.Error("Failed to submit operation to worker pool", "operation", operation, "error", err)
		return zero, shared.NewPersistenceFailure("the service is busy, retry later", err)
	}

	select {
	case res := <-resultChan:
		return res.value, res.err
	case <-ctx.Done():
		s.logger.Warn("Caller stopped waiting for operation", "operation", operation, "error", ctx.Err())
		return zero, ctx.Err()
	}
}

func (s *WorkerPoolBankingService) OpenAccount(ctx context.Context, cmd OpenAccountCommand) (*account.Account, error) {
	return submit(ctx, s, "open_account", func(ctx context.Context) (*account.Account, error) {
		return s.baseService.OpenAccount(ctx, cmd)
	})
}

func (s *WorkerPoolBankingService) Transfer(ctx context.Context, intent *transfer.Intent) (*transfer.Result, error) {
	intentCopy := *intent
	return submit(ctx, s, "transfer", func(ctx context.Context) (*transfer.Result, error) {
		return s.baseService.Transfer(ctx, &intentCopy)
	})
}

func (s *WorkerPoolBankingService) PayBill(ctx context.Context, payment *transfer.BillPayment) (*transfer.Result, error) {
	paymentCopy := *payment
	return submit(ctx, s, "bill_payment", func(ctx context.Context) (*transfer.Result, error) {
		return s.baseService.PayBill(ctx, &paymentCopy)
	})
}

func (s *WorkerPoolBankingService) FundCrypto(ctx context.Context, cmd FundCommand) (*TradeResult, error) {
	return submit(ctx, s, "crypto_fund", func(ctx context.Context) (*TradeResult, error) {
		return s.baseService.FundCrypto(ctx, cmd)
	})
}

func (s *WorkerPoolBankingService) BuyCrypto(ctx context.Context, userID string, fiatAmount decimal.Decimal) (*TradeResult, error) {
	return submit(ctx, s, "crypto_buy", func(ctx context.Context) (*TradeResult, error) {
		return s.baseService.BuyCrypto(ctx, userID, fiatAmount)
	})
}

func (s *WorkerPoolBankingService) SellCrypto(ctx context.Context, userID string, assetAmount decimal.Decimal) (*TradeResult, error) {
	return submit(ctx, s, "crypto_sell", func(ctx context.Context) (*TradeResult, error) {
		return s.baseService.SellCrypto(ctx, userID, assetAmount)
	})
}

func (s *WorkerPoolBankingService) ApproveSell(ctx context.Context, tradeID uuid.UUID, reviewer string) (*TradeResult, error) {
	return submit(ctx, s, "crypto_sell_approve", func(ctx context.Context) (*TradeResult, error) {
		return s.baseService.ApproveSell(ctx, tradeID, reviewer)
	})
}

func (s *WorkerPoolBankingService) RejectSell(ctx context.Context, tradeID uuid.UUID, reviewer, reason string) (*TradeResult, error) {
	return submit(ctx, s, "crypto_sell_reject", func(ctx context.Context) (*TradeResult, error) {
		return s.baseService.RejectSell(ctx, tradeID, reviewer, reason)
	})
}

func (s *WorkerPoolBankingService) SubmitDeposit(ctx context.Context, cmd DepositCommand) (*deposit.MobileDeposit, error) {
	return submit(ctx, s, "deposit_submit", func(ctx context.Context) (*deposit.MobileDeposit, error) {
		return s.baseService.SubmitDeposit(ctx, cmd)
	})
}

func (s *WorkerPoolBankingService) ApproveDeposit(ctx context.Context, depositID uuid.UUID, reviewer string) (*deposit.MobileDeposit, error) {
	return submit(ctx, s, "deposit_approve", func(ctx context.Context) (*deposit.MobileDeposit, error) {
		return s.baseService.ApproveDeposit(ctx, depositID, reviewer)
	})
}

func (s *WorkerPoolBankingService) RejectDeposit(ctx context.Context, depositID uuid.UUID, reviewer, reason string) (*deposit.MobileDeposit, error) {
	return submit(ctx, s, "deposit_reject", func(ctx context.Context) (*deposit.MobileDeposit, error) {
		return s.baseService.RejectDeposit(ctx, depositID, reviewer, reason)
	})
}

func (s *WorkerPoolBankingService) ResolveReconciliation(ctx context.Context, itemID uuid.UUID, resolvedBy, note string) (*reconciliation.Item, error) {
	return submit(ctx, s, "reconciliation_resolve", func(ctx context.Context) (*reconciliation.Item, error) {
		return s.baseService.ResolveReconciliation(ctx, itemID, resolvedBy, note)
	})
}

// Shutdown gracefully shuts down the worker pool.
func (s *WorkerPoolBankingService) Shutdown() {
	s.logger.Info("Shutting down worker pool", "running_workers", s.pool.Running())
	s.pool.Release()
}

// Running returns the number of running workers in the pool.
func (s *WorkerPoolBankingService) Running() int {
	return s.pool.Running()
}

// Capacity returns the capacity of the worker pool.
func (s *WorkerPoolBankingService) Capacity() int {
	return s.pool.Cap()
}
