package components

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/retail-banking-ledger/internal/domain/account"
	"github.com/retail-banking-ledger/internal/domain/crypto"
	"github.com/retail-banking-ledger/internal/domain/notification"
	"github.com/retail-banking-ledger/internal/domain/shared"
	"github.com/retail-banking-ledger/internal/domain/transaction"
	"github.com/retail-banking-ledger/internal/funds_movement/service"
	"github.com/retail-banking-ledger/internal/platform/persistence"
	"github.com/shopspring/decimal"
)

// TradingEngineImpl keeps crypto portfolios. Every operation commits in one
// database transaction and changes the portfolio counters with one statement.
type TradingEngineImpl struct {
	db         persistence.TxRunner
	accounts   account.Store
	ledger     service.LedgerWriter
	portfolios crypto.Repository
	references ReferenceIssuer
	prices     PriceSource
	asset      string
	feeRate    decimal.Decimal
	notifier   notification.Dispatcher
	logger     *slog.Logger
}

func NewTradingEngine(
	db persistence.TxRunner,
	accounts account.Store,
	ledger service.LedgerWriter,
	portfolios crypto.Repository,
	references ReferenceIssuer,
	prices PriceSource,
	asset string,
	feeRate decimal.Decimal,
	notifier notification.Dispatcher,
	logger *slog.Logger,
) service.TradingEngine {
	return &TradingEngineImpl{
		db:         db,
		accounts:   accounts,
		ledger:     ledger,
		portfolios: portfolios,
		references: references,
		prices:     prices,
		asset:      asset,
		feeRate:    feeRate,
		notifier:   notifier,
		logger:     logger,
	}
}

// Fund debits a bank account and adds the amount to the funded balance.
func (e *TradingEngineImpl) Fund(ctx context.Context, cmd service.FundCommand) (*service.TradeResult, error) {
	if cmd.UserID == "" {
		return nil, shared.NewInvalidInput("authenticated user is required")
	}
	if !shared.IsFiatAmount(cmd.Amount) {
		return nil, shared.NewInvalidInput("amount must be greater than zero with at most two decimal places")
	}

	source, err := loadOwnedAccount(ctx, e.accounts, cmd.UserID, cmd.AccountID)
	if err != nil {
		return nil, err
	}
	if _, err := checkAvailable(ctx, e.accounts, source.ID, cmd.Amount); err != nil {
		return nil, err
	}

	ref, err := e.references.Next(ctx)
	if err != nil {
		return nil, referenceError(err)
	}
	logger := e.logger.With("reference", ref, "user_id", cmd.UserID)
	description := transaction.Describe(transaction.AbbrCryptoFund, "", ref)

	trade := crypto.NewFundTrade(cmd.UserID, e.asset, cmd.Amount, ref, description)
	var portfolio *crypto.Portfolio
	err = e.db.ExecuteTx(ctx, func(tx pgx.Tx) error {
		_, err := e.ledger.Post(ctx, tx, service.Leg{
			AccountID:   source.ID,
			Direction:   transaction.DirectionDebit,
			Amount:      cmd.Amount,
			Category:    transaction.CategoryCryptoFunding,
			Description: description,
			Reference:   ref,
		})
		if err != nil {
			return debitError(err)
		}

		repo := e.portfolios.WithTx(tx)
		if err := repo.EnsurePortfolio(ctx, cmd.UserID); err != nil {
			return err
		}
		if portfolio, err = repo.AdjustPortfolio(ctx, cmd.UserID, crypto.Delta{Funded: cmd.Amount, Asset: decimal.Zero, CostBasis: decimal.Zero}); err != nil {
			return err
		}
		return repo.CreateTrade(ctx, trade)
	})
	if err != nil {
		opErr := asOperationError(err, "could not fund portfolio").WithReference(ref)
		logger.Warn("Crypto funding failed", "kind", string(opErr.Kind), "error", err)
		return nil, opErr
	}

	logger.Info("Crypto portfolio funded", "amount", cmd.Amount.StringFixed(2), "funded_amount", portfolio.FundedAmount.StringFixed(2))
	e.notifier.Notify(ctx, cmd.UserID, notification.KindCryptoFunded, tradePayload(trade, portfolio))
	return &service.TradeResult{Trade: trade, Portfolio: portfolio}, nil
}

// Buy spends fiatAmount plus the fee from the funded balance.
func (e *TradingEngineImpl) Buy(ctx context.Context, userID string, fiatAmount decimal.Decimal) (*service.TradeResult, error) {
	if userID == "" {
		return nil, shared.NewInvalidInput("authenticated user is required")
	}

	price, err := e.prices.Price(ctx, e.asset)
	if err != nil {
		return nil, shared.NewPersistenceFailure("could not price "+e.asset, err)
	}
	quote, err := crypto.QuoteBuy(fiatAmount, price, e.feeRate)
	if err != nil {
		return nil, quoteError(err)
	}

	current, err := e.portfolios.GetPortfolio(ctx, userID)
	if err != nil {
		return nil, shared.NewPersistenceFailure("could not load portfolio", err)
	}
	if current.FundedAmount.LessThan(quote.TotalCost) {
		return nil, shared.NewInsufficientFunds("funded balance " + current.FundedAmount.StringFixed(2) + " does not cover " + quote.TotalCost.StringFixed(2))
	}

	ref, err := e.references.Next(ctx)
	if err != nil {
		return nil, referenceError(err)
	}
	logger := e.logger.With("reference", ref, "user_id", userID)

	trade := crypto.NewBuyTrade(userID, e.asset, quote, ref, transaction.Describe(transaction.AbbrBTCBuy, "", ref))
	var portfolio *crypto.Portfolio
	err = e.db.ExecuteTx(ctx, func(tx pgx.Tx) error {
		repo := e.portfolios.WithTx(tx)
		var err error
		portfolio, err = repo.AdjustPortfolio(ctx, userID, crypto.Delta{
			Funded:    quote.TotalCost.Neg(),
			Asset:     quote.AssetAmount,
			CostBasis: quote.FiatAmount,
		})
		if err != nil {
			return portfolioError(err)
		}
		return repo.CreateTrade(ctx, trade)
	})
	if err != nil {
		opErr := asOperationError(err, "could not record purchase").WithReference(ref)
		logger.Warn("Crypto buy failed", "kind", string(opErr.Kind), "error", err)
		return nil, opErr
	}

	logger.Info("Crypto bought",
		"asset_amount", quote.AssetAmount.StringFixed(8),
		"total_cost", quote.TotalCost.StringFixed(2),
		"funded_amount", portfolio.FundedAmount.StringFixed(2),
	)
	e.notifier.Notify(ctx, userID, notification.KindCryptoBought, tradePayload(trade, portfolio))
	return &service.TradeResult{Trade: trade, Portfolio: portfolio}, nil
}

// Sell reserves assetAmount immediately and records a pending sell whose
// proceeds are credited when an approver settles it.
func (e *TradingEngineImpl) Sell(ctx context.Context, userID string, assetAmount decimal.Decimal) (*service.TradeResult, error) {
	if userID == "" {
		return nil, shared.NewInvalidInput("authenticated user is required")
	}

	price, err := e.prices.Price(ctx, e.asset)
	if err != nil {
		return nil, shared.NewPersistenceFailure("could not price "+e.asset, err)
	}
	quote, err := crypto.QuoteSell(assetAmount, price, e.feeRate)
	if err != nil {
		return nil, quoteError(err)
	}

	current, err := e.portfolios.GetPortfolio(ctx, userID)
	if err != nil {
		return nil, shared.NewPersistenceFailure("could not load portfolio", err)
	}
	if current.AssetBalance.LessThan(assetAmount) {
		return nil, shared.NewInsufficientFunds("asset balance " + current.AssetBalance.StringFixed(8) + " is less than " + assetAmount.StringFixed(8))
	}

	ref, err := e.references.Next(ctx)
	if err != nil {
		return nil, referenceError(err)
	}
	logger := e.logger.With("reference", ref, "user_id", userID)

	var (
		trade     *crypto.Trade
		portfolio *crypto.Portfolio
	)
	err = e.db.ExecuteTx(ctx, func(tx pgx.Tx) error {
		repo := e.portfolios.WithTx(tx)
		held, err := repo.GetPortfolio(ctx, userID)
		if err != nil {
			return err
		}
		relieved := held.CostBasisFor(assetAmount)

		portfolio, err = repo.AdjustPortfolio(ctx, userID, crypto.Delta{
			Funded:    decimal.Zero,
			Asset:     assetAmount.Neg(),
			CostBasis: relieved.Neg(),
		})
		if err != nil {
			return portfolioError(err)
		}
		trade = crypto.NewSellTrade(userID, e.asset, quote, relieved, ref, transaction.Describe(transaction.AbbrBTCSell, "", ref))
		return repo.CreateTrade(ctx, trade)
	})
	if err != nil {
		opErr := asOperationError(err, "could not record sale").WithReference(ref)
		logger.Warn("Crypto sell failed", "kind", string(opErr.Kind), "error", err)
		return nil, opErr
	}

	logger.Info("Crypto sell pending approval",
		"asset_amount", assetAmount.StringFixed(8),
		"net_fiat", quote.NetFiat.StringFixed(2),
		"asset_balance", portfolio.AssetBalance.StringFixed(8),
	)
	e.notifier.Notify(ctx, userID, notification.KindCryptoSellPending, tradePayload(trade, portfolio))
	return &service.TradeResult{Trade: trade, Portfolio: portfolio}, nil
}

// SettleSell applies an approver's decision to a pending sell. Approval credits
// the net proceeds to the funded balance; rejection returns the reserved asset
// and its cost basis.
func (e *TradingEngineImpl) SettleSell(ctx context.Context, tradeID uuid.UUID, approved bool, reviewer, reason string) (*service.TradeResult, error) {
	if strings.TrimSpace(reviewer) == "" {
		return nil, shared.NewInvalidInput("reviewer is required")
	}
	if !approved && strings.TrimSpace(reason) == "" {
		return nil, shared.NewInvalidInput("rejection reason is required")
	}

	status := crypto.TradeStatusRejected
	if approved {
		status = crypto.TradeStatusCompleted
	}

	var (
		trade     *crypto.Trade
		portfolio *crypto.Portfolio
	)
	err := e.db.ExecuteTx(ctx, func(tx pgx.Tx) error {
		repo := e.portfolios.WithTx(tx)
		pending, err := repo.GetTrade(ctx, tradeID)
		if err != nil {
			return err
		}
		delta, err := pending.SettlementDelta(approved)
		if err != nil {
			return err
		}
		if trade, err = repo.SettleTrade(ctx, tradeID, status); err != nil {
			return err
		}
		portfolio, err = repo.AdjustPortfolio(ctx, trade.UserID, delta)
		return err
	})
	if err != nil {
		var opErr *shared.OperationError
		switch {
		case errors.Is(err, crypto.ErrTradeNotFound{}):
			opErr = shared.NewNotFound("trade not found", err)
		case errors.Is(err, crypto.ErrTradeNotPending):
			opErr = shared.NewConflict("trade is not a pending sell", err)
		default:
			opErr = shared.NewPersistenceFailure("could not settle trade", err)
		}
		e.logger.Warn("Sell settlement failed", "trade_id", tradeID.String(), "approved", approved, "kind", string(opErr.Kind), "error", err)
		return nil, opErr
	}

	logger := e.logger.With("reference", trade.Reference, "user_id", trade.UserID)
	payload := tradePayload(trade, portfolio)
	if approved {
		logger.Info("Crypto sell approved", "reviewer", reviewer, "net_fiat", trade.FiatAmount.StringFixed(2))
		e.notifier.Notify(ctx, trade.UserID, notification.KindCryptoSellSettled, payload)
	} else {
		logger.Info("Crypto sell rejected", "reviewer", reviewer, "reason", reason)
		payload["reason"] = reason
		e.notifier.Notify(ctx, trade.UserID, notification.KindCryptoSellRejected, payload)
	}
	return &service.TradeResult{Trade: trade, Portfolio: portfolio}, nil
}

func quoteError(err error) *shared.OperationError {
	switch {
	case errors.Is(err, crypto.ErrInvalidFiatAmount), errors.Is(err, crypto.ErrInvalidAssetAmount):
		return shared.NewInvalidInput(err.Error())
	default:
		return shared.NewPersistenceFailure("could not quote trade", err)
	}
}

func portfolioError(err error) error {
	switch {
	case errors.Is(err, crypto.ErrInsufficientFunded):
		return shared.NewInsufficientFunds("insufficient funded balance")
	case errors.Is(err, crypto.ErrInsufficientAsset):
		return shared.NewInsufficientFunds("insufficient asset balance")
	default:
		return err
	}
}

func tradePayload(trade *crypto.Trade, portfolio *crypto.Portfolio) map[string]string {
	return map[string]string{
		"reference":     trade.Reference,
		"trade_id":      trade.ID.String(),
		"type":          string(trade.Type),
		"asset":         trade.Asset,
		"fiat_amount":   trade.FiatAmount.StringFixed(2),
		"asset_amount":  trade.AssetAmount.StringFixed(8),
		"funded_amount": portfolio.FundedAmount.StringFixed(2),
		"asset_balance": portfolio.AssetBalance.StringFixed(8),
	}
}
