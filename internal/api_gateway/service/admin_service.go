package service

import (
	"context"
	"log/slog"

	"github.com/retail-banking-ledger/internal/domain/deposit"
	"github.com/retail-banking-ledger/internal/domain/reconciliation"
	"github.com/retail-banking-ledger/internal/domain/shared"
)

type AdminServiceImpl struct {
	deposits       deposit.Repository
	reconciliation reconciliation.Repository
	logger         *slog.Logger
}

func NewAdminService(logger *slog.Logger, deposits deposit.Repository, reconciliationRepo reconciliation.Repository) AdminService {
	return &AdminServiceImpl{
		deposits:       deposits,
		reconciliation: reconciliationRepo,
		logger:         logger,
	}
}

func (s *AdminServiceImpl) PendingDeposits(ctx context.Context, page, perPage int) ([]*deposit.MobileDeposit, error) {
	deposits, err := s.deposits.ListPending(ctx, perPage, offset(page, perPage))
	if err != nil {
		s.logger.Error("Failed to list pending deposits", "error", err)
		return nil, shared.NewPersistenceFailure("could not list pending deposits", err)
	}
	return deposits, nil
}

func (s *AdminServiceImpl) OpenReconciliationItems(ctx context.Context, page, perPage int) ([]*reconciliation.Item, error) {
	items, err := s.reconciliation.ListOpen(ctx, perPage, offset(page, perPage))
	if err != nil {
		s.logger.Error("Failed to list reconciliation items", "error", err)
		return nil, shared.NewPersistenceFailure("could not list reconciliation items", err)
	}
	return items, nil
}
