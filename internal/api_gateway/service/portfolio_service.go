package service

import (
	"context"
	"log/slog"

	"github.com/retail-banking-ledger/internal/domain/crypto"
	"github.com/retail-banking-ledger/internal/domain/shared"
)

type PortfolioServiceImpl struct {
	portfolios crypto.Repository
	logger     *slog.Logger
}

func NewPortfolioService(logger *slog.Logger, portfolios crypto.Repository) PortfolioService {
	return &PortfolioServiceImpl{portfolios: portfolios, logger: logger}
}

func (s *PortfolioServiceImpl) Portfolio(ctx context.Context, userID string) (*crypto.Portfolio, error) {
	p, err := s.portfolios.GetPortfolio(ctx, userID)
	if err != nil {
		s.logger.Error("Failed to load portfolio", "user_id", userID, "error", err)
		return nil, shared.NewPersistenceFailure("could not load portfolio", err)
	}
	return p, nil
}

func (s *PortfolioServiceImpl) Trades(ctx context.Context, userID string, page, perPage int) ([]*crypto.Trade, error) {
	trades, err := s.portfolios.ListTrades(ctx, userID, perPage, offset(page, perPage))
	if err != nil {
		s.logger.Error("Failed to list trades", "user_id", userID, "error", err)
		return nil, shared.NewPersistenceFailure("could not list trades", err)
	}
	return trades, nil
}
