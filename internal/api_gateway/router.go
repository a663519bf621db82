package api_gateway

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/retail-banking-ledger/internal/api_gateway/handler"
	"github.com/retail-banking-ledger/internal/api_gateway/middleware"
)

type handlers struct {
	accounts     *handler.AccountHandler
	transactions *handler.TransactionHandler
	transfers    *handler.TransferHandler
	crypto       *handler.CryptoHandler
	deposits     *handler.DepositHandler
	admin        *handler.AdminHandler
}

// setupRouter configures API routes and middleware for the application
func setupRouter(logger *slog.Logger, r *gin.Engine, h handlers) {
	r.Use(middleware.CorrelationID())
	r.Use(middleware.Recovery(logger))
	r.Use(middleware.Logger(logger))

	// API v1 endpoints
	v1 := r.Group("/api/v1")
	{
		customer := v1.Group("", middleware.RequireUser())

		accounts := customer.Group("/accounts")
		{
			accounts.POST("", h.accounts.Create)
			accounts.GET("", h.accounts.List)
			accounts.GET("/:id", h.accounts.GetByID)
			accounts.GET("/:id/transactions", h.transactions.GetByAccountID)
			accounts.GET("/:id/statement", h.transactions.Statement)
		}

		customer.POST("/transfers", h.transfers.Transfer)
		customer.POST("/bill-payments", h.transfers.PayBill)

		cryptoRoutes := customer.Group("/crypto")
		{
			cryptoRoutes.POST("/fund", h.crypto.Fund)
			cryptoRoutes.POST("/buy", h.crypto.Buy)
			cryptoRoutes.POST("/sell", h.crypto.Sell)
			cryptoRoutes.GET("/portfolio", h.crypto.Portfolio)
			cryptoRoutes.GET("/trades", h.crypto.Trades)
		}

		customer.POST("/deposits", h.deposits.Submit)

		// Back-office review queues
		admin := v1.Group("/admin", middleware.RequireAdmin())
		{
			admin.GET("/deposits", h.admin.PendingDeposits)
			admin.POST("/deposits/:id/approve", h.admin.ApproveDeposit)
			admin.POST("/deposits/:id/reject", h.admin.RejectDeposit)
			admin.POST("/crypto/trades/:id/approve", h.admin.ApproveSell)
			admin.POST("/crypto/trades/:id/reject", h.admin.RejectSell)
			admin.GET("/reconciliation", h.admin.ListReconciliation)
			admin.POST("/reconciliation/:id/resolve", h.admin.ResolveReconciliation)
		}
	}

	// Health check endpoint for monitoring
	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok", "timestamp": time.Now().UTC()})
	})
}
