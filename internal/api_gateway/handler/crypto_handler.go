package handler

import (
	"log/slog"

	"github.com/gin-gonic/gin"
	"github.com/retail-banking-ledger/internal/api_gateway/middleware"
	"github.com/retail-banking-ledger/internal/api_gateway/service"
	banking "github.com/retail-banking-ledger/internal/funds_movement/service"
)

// CryptoHandler serves portfolio funding, trading and reads
type CryptoHandler struct {
	banking    banking.BankingService
	portfolios service.PortfolioService
	logger     *slog.Logger
}

func NewCryptoHandler(logger *slog.Logger, bankingService banking.BankingService, portfolios service.PortfolioService) *CryptoHandler {
	return &CryptoHandler{
		banking:    bankingService,
		portfolios: portfolios,
		logger:     logger,
	}
}

// Fund moves fiat from one of the caller's accounts into the portfolio
func (h *CryptoHandler) Fund(c *gin.Context) {
	var req FundCryptoRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondBadRequest(c, "Invalid request body: "+err.Error())
		return
	}
	accountID, ok := bodyID(c, "account_id", req.AccountID)
	if !ok {
		return
	}

	result, err := h.banking.FundCrypto(c.Request.Context(), banking.FundCommand{
		UserID:    middleware.GetUserID(c),
		AccountID: accountID,
		Amount:    req.Amount,
	})
	if err != nil {
		RespondOperationError(c, err)
		return
	}
	RespondCreated(c, result)
}

// Buy spends funded fiat on the asset at the configured price
func (h *CryptoHandler) Buy(c *gin.Context) {
	var req TradeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondBadRequest(c, "Invalid request body: "+err.Error())
		return
	}

	result, err := h.banking.BuyCrypto(c.Request.Context(), middleware.GetUserID(c), req.Amount)
	if err != nil {
		RespondOperationError(c, err)
		return
	}
	RespondCreated(c, result)
}

// Sell records a sell that waits for back-office approval
func (h *CryptoHandler) Sell(c *gin.Context) {
	var req TradeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondBadRequest(c, "Invalid request body: "+err.Error())
		return
	}

	result, err := h.banking.SellCrypto(c.Request.Context(), middleware.GetUserID(c), req.Amount)
	if err != nil {
		RespondOperationError(c, err)
		return
	}
	RespondAccepted(c, result)
}

func (h *CryptoHandler) Portfolio(c *gin.Context) {
	portfolio, err := h.portfolios.Portfolio(c.Request.Context(), middleware.GetUserID(c))
	if err != nil {
		RespondOperationError(c, err)
		return
	}
	RespondOK(c, portfolio)
}

func (h *CryptoHandler) Trades(c *gin.Context) {
	params, ok := bindPagination(c)
	if !ok {
		return
	}

	trades, err := h.portfolios.Trades(c.Request.Context(), middleware.GetUserID(c), params.Page, params.PerPage)
	if err != nil {
		RespondOperationError(c, err)
		return
	}
	RespondOK(c, trades)
}
