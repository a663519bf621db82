package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/panjf2000/ants/v2"
	"github.com/retail-banking-ledger/internal/config"
	"github.com/retail-banking-ledger/internal/data/mongo"
	"github.com/retail-banking-ledger/internal/data/postgres"
	"github.com/retail-banking-ledger/internal/domain/reference"
	"github.com/retail-banking-ledger/internal/funds_movement/components"
	"github.com/retail-banking-ledger/internal/funds_movement/service"
	"github.com/retail-banking-ledger/internal/ledger_worker/consumer"
	"github.com/retail-banking-ledger/internal/ledger_worker/outbox_poller"
	"github.com/retail-banking-ledger/internal/logger"
	"github.com/retail-banking-ledger/internal/platform/messaging/consumers"
	"github.com/retail-banking-ledger/internal/platform/messaging/producers"
	"github.com/retail-banking-ledger/internal/platform/persistence"
)

func main() {
	// Create base context with cancellation
	appCtx, cancelAppCtx := context.WithCancel(context.Background())
	defer cancelAppCtx()

	cfg, err := config.LoadConfig("ledger_worker")
	if err != nil {
		// logger is not initialized yet, so we use fmt
		fmt.Printf("Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	log := logger.NewLogger(cfg)

	log.Info("Starting Ledger Worker",
		"app_name", cfg.Application.Name,
		"env", cfg.Application.Env,
	)

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

	// Repositories
	accountRepo := postgres.NewAccountRepository(log, postgresDB)
	outboxRepo := postgres.NewOutboxRepository(log, postgresDB)
	directoryRepo := postgres.NewDirectoryRepository(log, postgresDB)
	statementRepo := mongo.NewStatementRepository(log, mongoDB.Database())
	if err := statementRepo.EnsureIndexes(appCtx); err != nil {
		log.Error("Failed to ensure statement indexes", "error", err)
		os.Exit(1)
	}

	notificationPool, err := ants.NewPool(cfg.WorkerPool.NotificationSize)
	if err != nil {
		log.Error("Failed to create notification pool", "error", err)
		os.Exit(1)
	}

	// The worker applies approval decisions; it never resolves P2P contacts, so
	// the directory is used without the Redis cache.
	bankingService := components.CreateBankingService(components.Dependencies{
		DB:             postgresDB,
		Accounts:       accountRepo,
		Transactions:   postgres.NewTransactionRepository(log, postgresDB),
		Outbox:         outboxRepo,
		Sagas:          postgres.NewSagaRepository(log, postgresDB),
		Portfolios:     postgres.NewCryptoRepository(log, postgresDB),
		Deposits:       postgres.NewDepositRepository(log, postgresDB),
		Reconciliation: postgres.NewReconciliationRepository(log, postgresDB),
		References:     reference.NewGenerator(postgres.NewReferenceRepository(log, postgresDB), cfg.Ledger.ReferenceMaxAttempts),
		Directory:      directoryRepo,
		Contacts:       directoryRepo,
		Notifier:       components.NewOutboxNotifier(outboxRepo, notificationPool, cfg.Ledger.NotificationTimeout, log.With("component", "notifier")),
	}, log, cfg)

	// Kafka
	kafkaConsumer := consumers.NewKafkaConsumer(appCtx, log, &cfg.Kafka)

	dlqProducer, err := producers.NewDLQProducer(appCtx, log, &cfg.Kafka)
	if err != nil {
		log.Error("Failed to initialize DLQ Kafka producer", "error", err)
		os.Exit(1)
	}

	notificationProducer, err := producers.NewNotificationProducer(appCtx, log, &cfg.Kafka)
	if err != nil {
		log.Error("Failed to initialize notification Kafka producer", "error", err)
		os.Exit(1)
	}

	var deadLetters producers.DeadLetterPublisher
	if dlqProducer != nil {
		deadLetters = dlqProducer
	}
	approvalHandler := consumer.NewApprovalEventHandler(log, bankingService, deadLetters)

	poller := outbox_poller.NewPoller(
		&cfg.Outbox,
		outboxRepo,
		outbox_poller.NewStatementPublisher(statementRepo, log),
		outbox_poller.NewNotificationPublisher(notificationProducer, log),
		log,
	)

	errChan := make(chan error, 2)
	var wg sync.WaitGroup

	wg.Add(1)
	go func() {
		defer wg.Done()
		log.Info("Starting Kafka consumer",
			"topic", cfg.Kafka.ApprovalTopic,
			"group", cfg.Kafka.ConsumerGroup,
		)
		if err := kafkaConsumer.Subscribe(appCtx, approvalHandler.HandleMessage); err != nil {
			errChan <- fmt.Errorf("kafka consumer error: %w", err)
		}
	}()

	wg.Add(1)
	go func() {
		defer wg.Done()
		poller.Start(appCtx)
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)

	var serviceErr error
	select {
	case <-quit:
		log.Info("Shutdown signal received")
	case err := <-errChan:
		log.Error("Service error occurred", "error", err)
		serviceErr = err
	}

	cancelAppCtx()

	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancelShutdown()

	log.Info("Starting graceful shutdown...")

	wgChan := make(chan struct{})
	go func() {
		wg.Wait()
		close(wgChan)
	}()

	select {
	case <-wgChan:
		log.Info("All services stopped successfully")
	case <-shutdownCtx.Done():
		log.Warn("Shutdown timeout reached, forcing exit")
	}

	if wpService, ok := bankingService.(*service.WorkerPoolBankingService); ok {
		log.Info("Shutting down worker pool", "running_workers", wpService.Running())
		wpService.Shutdown()
	}
	if err := notificationPool.ReleaseTimeout(cfg.Ledger.NotificationTimeout); err != nil {
		log.Warn("Notification pool did not drain in time", "error", err)
	}

	if err = kafkaConsumer.Close(); err != nil {
		log.Error("Error closing Kafka consumer", "error", err)
	}
	if err = dlqProducer.Close(); err != nil {
		log.Error("Error closing DLQ Kafka producer", "error", err)
	}
	if err = notificationProducer.Close(); err != nil {
		log.Error("Error closing notification Kafka producer", "error", err)
	}

	postgresDB.Close()

	if err = mongoDB.Close(shutdownCtx); err != nil {
		log.Error("Error closing MongoDB connection", "error", err)
	}

	if serviceErr != nil {
		log.Error("Ledger Worker shutdown with errors", "error", serviceErr)
		os.Exit(1)
	}
	log.Info("Ledger Worker shutdown completed")
}
