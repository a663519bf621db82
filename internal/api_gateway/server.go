package api_gateway

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/retail-banking-ledger/internal/api_gateway/handler"
	"github.com/retail-banking-ledger/internal/api_gateway/service"
	"github.com/retail-banking-ledger/internal/config"
	banking "github.com/retail-banking-ledger/internal/funds_movement/service"
)

// Services groups everything the HTTP layer calls into.
type Services struct {
	Banking      banking.BankingService
	Accounts     service.AccountService
	Transactions service.TransactionService
	Portfolios   service.PortfolioService
	Admin        service.AdminService
}

// Server handles HTTP requests and manages the application's lifecycle
type Server struct {
	logger     *slog.Logger // For structured logging
	httpServer *http.Server // Underlying HTTP server
	httpRouter *gin.Engine  // Gin router instance
}

// NewServer creates and configures a new HTTP server with the given services
func NewServer(log *slog.Logger, cfg *config.Config, services Services) *Server {
	if cfg.Application.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	httpRouter := gin.New()

	setupRouter(log, httpRouter, handlers{
		accounts:     handler.NewAccountHandler(log, services.Banking, services.Accounts),
		transactions: handler.NewTransactionHandler(log, services.Transactions),
		transfers:    handler.NewTransferHandler(log, services.Banking),
		crypto:       handler.NewCryptoHandler(log, services.Banking, services.Portfolios),
		deposits:     handler.NewDepositHandler(log, services.Banking),
		admin:        handler.NewAdminHandler(log, services.Banking, services.Admin),
	})

	httpServer := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      httpRouter,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	return &Server{
		logger:     log,
		httpServer: httpServer,
		httpRouter: httpRouter,
	}
}

// Handler exposes the router, mainly for tests.
func (s *Server) Handler() http.Handler {
	return s.httpRouter
}

// Start begins listening for HTTP requests
func (s *Server) Start() error {
	if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("failed to start HTTP server: %w", err)
	}
	return nil
}

// Stop gracefully shuts down the HTTP server, bounded by ctx.
func (s *Server) Stop(ctx context.Context) error {
	s.logger.Info("stopping HTTP server")

	if err := s.httpServer.Shutdown(ctx); err != nil {
		return fmt.Errorf("failed to stop HTTP server: %w", err)
	}
	return nil
}
