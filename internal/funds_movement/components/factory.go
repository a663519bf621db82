package components

import (
	"log/slog"

	"github.com/retail-banking-ledger/internal/config"
	"github.com/retail-banking-ledger/internal/domain/account"
	"github.com/retail-banking-ledger/internal/domain/crypto"
	"github.com/retail-banking-ledger/internal/domain/deposit"
	"github.com/retail-banking-ledger/internal/domain/directory"
	"github.com/retail-banking-ledger/internal/domain/notification"
	"github.com/retail-banking-ledger/internal/domain/outbox"
	"github.com/retail-banking-ledger/internal/domain/reconciliation"
	"github.com/retail-banking-ledger/internal/domain/transaction"
	"github.com/retail-banking-ledger/internal/domain/transfer"
	"github.com/retail-banking-ledger/internal/funds_movement/service"
	"github.com/retail-banking-ledger/internal/platform/persistence"
)

// Dependencies are the stores and collaborators the banking service is built from.
type Dependencies struct {
	DB             persistence.TxRunner
	Accounts       account.Store
	Transactions   transaction.Log
	Outbox         outbox.Repository
	Sagas          transfer.SagaLog
	Portfolios     crypto.Repository
	Deposits       deposit.Repository
	Reconciliation reconciliation.Repository
	References     ReferenceIssuer
	Directory      directory.Directory
	Contacts       ContactRegistry
	ContactCache   ContactCache
	Notifier       notification.Dispatcher
}

// CreateBankingService creates a new BankingService with all its dependencies.
func CreateBankingService(deps Dependencies, logger *slog.Logger, cfg *config.Config) service.BankingService {
	ledgerWriter := NewLedgerWriter(deps.Accounts, deps.Transactions, deps.Outbox, deps.Sagas, logger.With("component", "ledger_writer"))
	reconciler := NewReconciliationRecorder(deps.Reconciliation, cfg.Ledger.ReconciliationAttempts, logger.With("component", "reconciliation"))

	orchestrator := NewTransferOrchestrator(
		deps.DB,
		deps.Accounts,
		ledgerWriter,
		deps.Sagas,
		deps.References,
		deps.Directory,
		NewRecipientSelector(cfg.P2P.RecipientPolicy),
		reconciler,
		deps.Notifier,
		logger.With("component", "transfer_orchestrator"),
	)

	tradingEngine := NewTradingEngine(
		deps.DB,
		deps.Accounts,
		ledgerWriter,
		deps.Portfolios,
		deps.References,
		NewStaticPriceSource(cfg.Crypto.Asset, cfg.Crypto.Price),
		cfg.Crypto.Asset,
		cfg.Crypto.FeeRate,
		deps.Notifier,
		logger.With("component", "trading_engine"),
	)

	depositIntake := NewDepositIntake(
		deps.DB,
		deps.Accounts,
		ledgerWriter,
		deps.Deposits,
		deps.References,
		deps.Notifier,
		logger.With("component", "deposit_intake"),
	)

	accountOpener := NewAccountOpener(deps.Accounts, deps.Contacts, deps.ContactCache, logger.With("component", "account_opener"))

	baseService := service.NewBankingService(
		accountOpener,
		orchestrator,
		tradingEngine,
		depositIntake,
		reconciler,
		logger,
	)

	workerPoolService, err := service.NewWorkerPoolBankingService(
		baseService,
		service.WorkerPoolConfig{
			Size: cfg.WorkerPool.Size,
		},
		logger.With("component", "worker_pool"),
	)

	if err != nil {
		logger.Error("Failed to create worker pool service, falling back to base service", "error", err)
		return baseService
	}

	logger.Info("Created worker pool banking service", "pool_size", cfg.WorkerPool.Size)
	return workerPoolService
}
