package handler

import (
	"log/slog"

	"github.com/gin-gonic/gin"
	"github.com/retail-banking-ledger/internal/api_gateway/middleware"
	"github.com/retail-banking-ledger/internal/api_gateway/service"
	"github.com/retail-banking-ledger/internal/domain/account"
	banking "github.com/retail-banking-ledger/internal/funds_movement/service"
)

// AccountHandler handles HTTP requests for account operations
type AccountHandler struct {
	banking        banking.BankingService
	accountService service.AccountService
	logger         *slog.Logger
}

// NewAccountHandler creates a new account handler
func NewAccountHandler(logger *slog.Logger, bankingService banking.BankingService, accountService service.AccountService) *AccountHandler {
	return &AccountHandler{
		banking:        bankingService,
		accountService: accountService,
		logger:         logger,
	}
}

// Create opens an account for the caller, optionally registering a P2P contact
func (h *AccountHandler) Create(c *gin.Context) {
	var req OpenAccountRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Warn("Invalid request body", "error", err)
		RespondBadRequest(c, "Invalid request body: "+err.Error())
		return
	}

	acc, err := h.banking.OpenAccount(c.Request.Context(), banking.OpenAccountCommand{
		UserID:         middleware.GetUserID(c),
		Type:           account.Type(req.Type),
		InitialBalance: req.InitialBalance,
		Contact:        req.Contact,
	})
	if err != nil {
		h.logger.Warn("Failed to open account", "user_id", middleware.GetUserID(c), "error", err)
		RespondOperationError(c, err)
		return
	}

	RespondCreated(c, mapAccountToResponse(acc))
}

// List returns every account the caller owns
func (h *AccountHandler) List(c *gin.Context) {
	accounts, err := h.accountService.ListAccounts(c.Request.Context(), middleware.GetUserID(c))
	if err != nil {
		RespondOperationError(c, err)
		return
	}

	response := make([]AccountResponse, 0, len(accounts))
	for _, acc := range accounts {
		response = append(response, mapAccountToResponse(acc))
	}
	RespondOK(c, response)
}

// GetByID returns one of the caller's accounts with its live balance
func (h *AccountHandler) GetByID(c *gin.Context) {
	id, ok := pathID(c, "account")
	if !ok {
		return
	}

	acc, err := h.accountService.GetAccount(c.Request.Context(), middleware.GetUserID(c), id)
	if err != nil {
		RespondOperationError(c, err)
		return
	}

	RespondOK(c, mapAccountToResponse(acc))
}
