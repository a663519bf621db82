package handler

import (
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/retail-banking-ledger/internal/api_gateway/middleware"
	"github.com/retail-banking-ledger/internal/api_gateway/service"
)

// TransactionHandler serves the transaction log and the statement read model
type TransactionHandler struct {
	transactionService service.TransactionService
	logger             *slog.Logger
}

// NewTransactionHandler creates a new transaction handler
func NewTransactionHandler(logger *slog.Logger, transactionService service.TransactionService) *TransactionHandler {
	return &TransactionHandler{
		transactionService: transactionService,
		logger:             logger,
	}
}

// GetByAccountID returns a page of the account's transaction log, newest first
func (h *TransactionHandler) GetByAccountID(c *gin.Context) {
	accountID, ok := pathID(c, "account")
	if !ok {
		return
	}
	params, ok := bindPagination(c)
	if !ok {
		return
	}

	txs, total, err := h.transactionService.ListTransactions(c.Request.Context(), middleware.GetUserID(c), accountID, params.Page, params.PerPage)
	if err != nil {
		RespondOperationError(c, err)
		return
	}

	response := make([]TransactionResponse, 0, len(txs))
	for _, tx := range txs {
		response = append(response, mapTransactionToResponse(tx))
	}
	RespondWithPaginatedData(c, http.StatusOK, response, params.Page, params.PerPage, int(total))
}

// Statement returns projected statement entries for the account
func (h *TransactionHandler) Statement(c *gin.Context) {
	accountID, ok := pathID(c, "account")
	if !ok {
		return
	}
	params, ok := bindPagination(c)
	if !ok {
		return
	}

	entries, total, err := h.transactionService.Statement(c.Request.Context(), middleware.GetUserID(c), accountID, params.Page, params.PerPage)
	if err != nil {
		h.logger.Error("Failed to read statement", "account_id", accountID.String(), "error", err)
		RespondOperationError(c, err)
		return
	}

	RespondWithPaginatedData(c, http.StatusOK, entries, params.Page, params.PerPage, int(total))
}
