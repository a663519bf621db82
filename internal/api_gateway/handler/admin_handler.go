package handler

import (
	"log/slog"

	"github.com/gin-gonic/gin"
	"github.com/retail-banking-ledger/internal/api_gateway/middleware"
	"github.com/retail-banking-ledger/internal/api_gateway/service"
	banking "github.com/retail-banking-ledger/internal/funds_movement/service"
)

// AdminHandler serves the back-office review queues
type AdminHandler struct {
	banking banking.BankingService
	admin   service.AdminService
	logger  *slog.Logger
}

func NewAdminHandler(logger *slog.Logger, bankingService banking.BankingService, admin service.AdminService) *AdminHandler {
	return &AdminHandler{
		banking: bankingService,
		admin:   admin,
		logger:  logger,
	}
}

func (h *AdminHandler) PendingDeposits(c *gin.Context) {
	params, ok := bindPagination(c)
	if !ok {
		return
	}

	deposits, err := h.admin.PendingDeposits(c.Request.Context(), params.Page, params.PerPage)
	if err != nil {
		RespondOperationError(c, err)
		return
	}
	RespondOK(c, deposits)
}

func (h *AdminHandler) ApproveDeposit(c *gin.Context) {
	id, ok := pathID(c, "deposit")
	if !ok {
		return
	}

	dep, err := h.banking.ApproveDeposit(c.Request.Context(), id, middleware.GetAdminID(c))
	if err != nil {
		RespondOperationError(c, err)
		return
	}
	h.logger.Info("Deposit approved", "deposit_id", id.String(), "reviewer", middleware.GetAdminID(c))
	RespondOK(c, dep)
}

func (h *AdminHandler) RejectDeposit(c *gin.Context) {
	id, ok := pathID(c, "deposit")
	if !ok {
		return
	}
	var req RejectRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondBadRequest(c, "A rejection reason is required")
		return
	}

	dep, err := h.banking.RejectDeposit(c.Request.Context(), id, middleware.GetAdminID(c), req.Reason)
	if err != nil {
		RespondOperationError(c, err)
		return
	}
	RespondOK(c, dep)
}

func (h *AdminHandler) ApproveSell(c *gin.Context) {
	id, ok := pathID(c, "trade")
	if !ok {
		return
	}

	result, err := h.banking.ApproveSell(c.Request.Context(), id, middleware.GetAdminID(c))
	if err != nil {
		RespondOperationError(c, err)
		return
	}
	h.logger.Info("Sell approved", "trade_id", id.String(), "reviewer", middleware.GetAdminID(c))
	RespondOK(c, result)
}

func (h *AdminHandler) RejectSell(c *gin.Context) {
	id, ok := pathID(c, "trade")
	if !ok {
		return
	}
	var req RejectRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondBadRequest(c, "A rejection reason is required")
		return
	}

	result, err := h.banking.RejectSell(c.Request.Context(), id, middleware.GetAdminID(c), req.Reason)
	if err != nil {
		RespondOperationError(c, err)
		return
	}
	RespondOK(c, result)
}

// ListReconciliation returns reconciliation items that still need a human
func (h *AdminHandler) ListReconciliation(c *gin.Context) {
	params, ok := bindPagination(c)
	if !ok {
		return
	}

	items, err := h.admin.OpenReconciliationItems(c.Request.Context(), params.Page, params.PerPage)
	if err != nil {
		RespondOperationError(c, err)
		return
	}
	RespondOK(c, items)
}

func (h *AdminHandler) ResolveReconciliation(c *gin.Context) {
	id, ok := pathID(c, "reconciliation item")
	if !ok {
		return
	}
	var req ResolveRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			RespondBadRequest(c, "Invalid request body: "+err.Error())
			return
		}
	}

	item, err := h.banking.ResolveReconciliation(c.Request.Context(), id, middleware.GetAdminID(c), req.Note)
	if err != nil {
		RespondOperationError(c, err)
		return
	}
	RespondOK(c, item)
}
