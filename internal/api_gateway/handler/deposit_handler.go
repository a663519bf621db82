package handler

import (
	"log/slog"

	"github.com/gin-gonic/gin"
	"github.com/retail-banking-ledger/internal/api_gateway/middleware"
	banking "github.com/retail-banking-ledger/internal/funds_movement/service"
)

// DepositHandler accepts mobile cheque deposits
type DepositHandler struct {
	banking banking.BankingService
	logger  *slog.Logger
}

func NewDepositHandler(logger *slog.Logger, bankingService banking.BankingService) *DepositHandler {
	return &DepositHandler{
		banking: bankingService,
		logger:  logger,
	}
}

// Submit records a pending deposit; funds are credited on approval
func (h *DepositHandler) Submit(c *gin.Context) {
	var req DepositRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondBadRequest(c, "Invalid request body: "+err.Error())
		return
	}
	accountID, ok := bodyID(c, "account_id", req.AccountID)
	if !ok {
		return
	}

	dep, err := h.banking.SubmitDeposit(c.Request.Context(), banking.DepositCommand{
		UserID:    middleware.GetUserID(c),
		AccountID: accountID,
		Amount:    req.Amount,
	})
	if err != nil {
		h.logger.Warn("Deposit rejected at intake", "account_id", accountID.String(), "error", err)
		RespondOperationError(c, err)
		return
	}
	RespondAccepted(c, dep)
}
