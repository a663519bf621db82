package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/panjf2000/ants/v2"
	"github.com/retail-banking-ledger/internal/api_gateway"
	"github.com/retail-banking-ledger/internal/api_gateway/service"
	"github.com/retail-banking-ledger/internal/config"
	"github.com/retail-banking-ledger/internal/data/cache"
	"github.com/retail-banking-ledger/internal/data/mongo"
	"github.com/retail-banking-ledger/internal/data/postgres"
	"github.com/retail-banking-ledger/internal/domain/reference"
	"github.com/retail-banking-ledger/internal/funds_movement/components"
	banking "github.com/retail-banking-ledger/internal/funds_movement/service"
	"github.com/retail-banking-ledger/internal/logger"
	"github.com/retail-banking-ledger/internal/platform/persistence"
)

func main() {
	// Create base context with cancellation
	appCtx, cancelAppCtx := context.WithCancel(context.Background())
	defer cancelAppCtx()

	// Initialize configuration
	cfg, err := config.LoadConfig("api_gateway")
	if err != nil {
		// logger is not initialized yet, so we use fmt
		fmt.Printf("Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	// Initialize logger
	log := logger.NewLogger(cfg)

	// Initialize databases with app context
	postgresDB, err := persistence.NewPostgresDB(appCtx, log, &cfg.Postgres)
	if err != nil {
		log.Error("Failed to initialize PostgreSQL", "error", err)
		os.Exit(1)
	}

	mongoDB, err := persistence.NewMongoDB(appCtx, log, &cfg.MongoDB)
	if err != nil {
		log.Error("Failed to initialize MongoDB", "error", err)
		os.Exit(1)
	}

	redisClient, err := persistence.NewRedisClient(appCtx, log, &cfg.Redis)
	if err != nil {
		log.Error("Failed to initialize Redis", "error", err)
		os.Exit(1)
	}

	// Initialize repositories
	accountRepo := postgres.NewAccountRepository(log, postgresDB)
	transactionRepo := postgres.NewTransactionRepository(log, postgresDB)
	outboxRepo := postgres.NewOutboxRepository(log, postgresDB)
	cryptoRepo := postgres.NewCryptoRepository(log, postgresDB)
	depositRepo := postgres.NewDepositRepository(log, postgresDB)
	reconciliationRepo := postgres.NewReconciliationRepository(log, postgresDB)
	directoryRepo := postgres.NewDirectoryRepository(log, postgresDB)
	statementRepo := mongo.NewStatementRepository(log, mongoDB.Database())

	directoryCache := cache.NewDirectoryCache(log, directoryRepo, redisClient, cfg.Redis.DirectoryTTL)

	notificationPool, err := ants.NewPool(cfg.WorkerPool.NotificationSize)
	if err != nil {
		log.Error("Failed to create notification pool", "error", err)
		os.Exit(1)
	}

	// Initialize services
	bankingService := components.CreateBankingService(components.Dependencies{
		DB:             postgresDB,
		Accounts:       accountRepo,
		Transactions:   transactionRepo,
		Outbox:         outboxRepo,
		Sagas:          postgres.NewSagaRepository(log, postgresDB),
		Portfolios:     cryptoRepo,
		Deposits:       depositRepo,
		Reconciliation: reconciliationRepo,
		References:     reference.NewGenerator(postgres.NewReferenceRepository(log, postgresDB), cfg.Ledger.ReferenceMaxAttempts),
		Directory:      directoryCache,
		Contacts:       directoryRepo,
		ContactCache:   directoryCache,
		Notifier:       components.NewOutboxNotifier(outboxRepo, notificationPool, cfg.Ledger.NotificationTimeout, log.With("component", "notifier")),
	}, log, cfg)

	// Initialize REST server
	server := api_gateway.NewServer(log, cfg, api_gateway.Services{
		Banking:      bankingService,
		Accounts:     service.NewAccountService(log, accountRepo),
		Transactions: service.NewTransactionService(log, accountRepo, transactionRepo, statementRepo),
		Portfolios:   service.NewPortfolioService(log, cryptoRepo),
		Admin:        service.NewAdminService(log, depositRepo, reconciliationRepo),
	})
	log.Info("REST server initialized")

	// Create error channel for server errors
	errChan := make(chan error, 1)

	// Start server in goroutine
	go func() {
		log.Info("Starting HTTP server", "port", cfg.Server.Port)
		if err := server.Start(); err != nil {
			errChan <- fmt.Errorf("HTTP server error: %w", err)
		}
	}()

	// Set up signal handling
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)

	// Wait for a shutdown signal or error
	var serverErr error
	select {
	case <-quit:
		log.Info("Shutdown signal received")
	case err := <-errChan:
		log.Error("Server error occurred", "error", err)
		serverErr = err
	}

	// Cancel the application context
	cancelAppCtx()

	// Create a shutdown context with timeout
	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancelShutdown()

	// Graceful shutdown sequence
	log.Info("Starting graceful shutdown...")

	// Stop accepting requests before draining the workers that serve them
	if err = server.Stop(shutdownCtx); err != nil {
		log.Error("Error during server shutdown", "error", err)
	}

	if wpService, ok := bankingService.(*banking.WorkerPoolBankingService); ok {
		log.Info("Shutting down worker pool", "running_workers", wpService.Running())
		wpService.Shutdown()
	}
	if err := notificationPool.ReleaseTimeout(cfg.Ledger.NotificationTimeout); err != nil {
		log.Warn("Notification pool did not drain in time", "error", err)
	}

	postgresDB.Close()

	if err := redisClient.Close(); err != nil {
		log.Error("Error closing Redis client", "error", err)
	}

	if err := mongoDB.Close(shutdownCtx); err != nil {
		log.Error("Error closing MongoDB connection", "error", err)
	}

	// Final status
	if serverErr != nil {
		log.Error("HTTP server shutdown with errors", "error", serverErr)
		os.Exit(1)
	}
	log.Info("Server shutdown completed successfully")
}
