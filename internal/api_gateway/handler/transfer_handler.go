package handler

import (
	"log/slog"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/retail-banking-ledger/internal/api_gateway/middleware"
	"github.com/retail-banking-ledger/internal/domain/transfer"
	banking "github.com/retail-banking-ledger/internal/funds_movement/service"
)

// TransferHandler handles transfers and bill payments
type TransferHandler struct {
	banking banking.BankingService
	logger  *slog.Logger
}

// NewTransferHandler creates a new transfer handler
func NewTransferHandler(logger *slog.Logger, bankingService banking.BankingService) *TransferHandler {
	return &TransferHandler{
		banking: bankingService,
		logger:  logger,
	}
}

// Transfer moves money to one of the caller's accounts, another bank, or a P2P contact
func (h *TransferHandler) Transfer(c *gin.Context) {
	var req TransferRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondBadRequest(c, "Invalid request body: "+err.Error())
		return
	}

	sourceID, ok := bodyID(c, "source_account_id", req.SourceAccountID)
	if !ok {
		return
	}
	var destinationID uuid.UUID
	if req.DestinationAccountID != "" {
		if destinationID, ok = bodyID(c, "destination_account_id", req.DestinationAccountID); !ok {
			return
		}
	}

	result, err := h.banking.Transfer(c.Request.Context(), &transfer.Intent{
		Type:                 transfer.Type(req.Type),
		UserID:               middleware.GetUserID(c),
		Amount:               req.Amount,
		SourceAccountID:      sourceID,
		DestinationAccountID: destinationID,
		External:             req.Beneficiary,
		Contact:              req.Contact,
		Memo:                 req.Memo,
	})
	if err != nil {
		h.logger.Warn("Transfer failed",
			"correlation_id", middleware.GetCorrelationID(c),
			"type", req.Type,
			"error", err,
		)
		RespondOperationError(c, err)
		return
	}

	RespondCreated(c, result)
}

// PayBill debits the caller's account towards a biller
func (h *TransferHandler) PayBill(c *gin.Context) {
	var req BillPaymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondBadRequest(c, "Invalid request body: "+err.Error())
		return
	}

	sourceID, ok := bodyID(c, "source_account_id", req.SourceAccountID)
	if !ok {
		return
	}

	result, err := h.banking.PayBill(c.Request.Context(), &transfer.BillPayment{
		UserID:          middleware.GetUserID(c),
		SourceAccountID: sourceID,
		Amount:          req.Amount,
		PayeeName:       req.PayeeName,
		PayeeAccount:    req.PayeeAccount,
		Memo:            req.Memo,
	})
	if err != nil {
		h.logger.Warn("Bill payment failed", "correlation_id", middleware.GetCorrelationID(c), "error", err)
		RespondOperationError(c, err)
		return
	}

	RespondCreated(c, result)
}
