package postgres

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/retail-banking-ledger/internal/domain/crypto"
	"github.com/retail-banking-ledger/internal/platform/persistence"
	"github.com/shopspring/decimal"
)

const (
	portfolioColumns = `user_id, funded_amount::text, asset_balance::text, asset_value_at_cost::text, updated_at`
	tradeColumns     = `id, user_id, type, asset, fiat_amount::text, asset_amount::text, asset_price::text, fee::text, cost_basis::text, reference, description, status, created_at, settled_at`
)

// ErrPortfolioMissing is returned by AdjustPortfolio for a user without a portfolio row.
var ErrPortfolioMissing = errors.New("crypto portfolio does not exist")

// CryptoRepository implements crypto.Repository for PostgreSQL
type CryptoRepository struct {
	querier persistence.Querier
	logger  *slog.Logger
}

func NewCryptoRepository(logger *slog.Logger, db *persistence.PostgresDB) crypto.Repository {
	return &CryptoRepository{
		querier: db.Pool(),
		logger:  logger,
	}
}

func (r *CryptoRepository) WithTx(tx pgx.Tx) crypto.Repository {
	return &CryptoRepository{
		querier: tx,
		logger:  r.logger,
	}
}

func (r *CryptoRepository) GetPortfolio(ctx context.Context, userID string) (*crypto.Portfolio, error) {
	query := `SELECT ` + portfolioColumns + ` FROM crypto_portfolios WHERE user_id = $1`

	p, err := scanPortfolio(r.querier.QueryRow(ctx, query, userID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return crypto.EmptyPortfolio(userID), nil
		}
		r.logger.Error("Failed to get portfolio", "user_id", userID, "error", err)
		return nil, fmt.Errorf("failed to get portfolio: %w", err)
	}

	return p, nil
}

func (r *CryptoRepository) EnsurePortfolio(ctx context.Context, userID string) error {
	query := `
		INSERT INTO crypto_portfolios (user_id, funded_amount, asset_balance, asset_value_at_cost, updated_at)
		VALUES ($1, 0, 0, 0, NOW())
		ON CONFLICT (user_id) DO NOTHING
	`

	if _, err := r.querier.Exec(ctx, query, userID); err != nil {
		r.logger.Error("Failed to ensure portfolio", "user_id", userID, "error", err)
		return fmt.Errorf("failed to ensure portfolio: %w", err)
	}

	return nil
}

// AdjustPortfolio applies d in one conditional UPDATE. The cost basis is clamped
// at zero because rounding of partial sells can relieve a cent more than is left.
func (r *CryptoRepository) AdjustPortfolio(ctx context.Context, userID string, d crypto.Delta) (*crypto.Portfolio, error) {
	query := `
		UPDATE crypto_portfolios
		SET funded_amount = funded_amount + $1::numeric,
			asset_balance = asset_balance + $2::numeric,
			asset_value_at_cost = GREATEST(asset_value_at_cost + $3::numeric, 0),
			updated_at = NOW()
		WHERE user_id = $4 AND funded_amount + $1::numeric >= 0 AND asset_balance + $2::numeric >= 0
		RETURNING ` + portfolioColumns

	p, err := scanPortfolio(r.querier.QueryRow(ctx, query, d.Funded.String(), d.Asset.String(), d.CostBasis.String(), userID))
	if err == nil {
		return p, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		r.logger.Error("Failed to adjust portfolio", "user_id", userID, "error", err)
		return nil, fmt.Errorf("failed to adjust portfolio: %w", err)
	}

	current, err := scanPortfolio(r.querier.QueryRow(ctx, `SELECT `+portfolioColumns+` FROM crypto_portfolios WHERE user_id = $1`, userID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrPortfolioMissing
		}
		return nil, fmt.Errorf("failed to read portfolio: %w", err)
	}
	if _, err := current.Apply(d); err != nil {
		return nil, err
	}
	// The row changed between the UPDATE and the read; report it as the funded shortfall.
	return nil, crypto.ErrInsufficientFunded
}

func (r *CryptoRepository) CreateTrade(ctx context.Context, trade *crypto.Trade) error {
	query := `
		INSERT INTO crypto_trades (id, user_id, type, asset, fiat_amount, asset_amount, asset_price, fee, cost_basis, reference, description, status, created_at, settled_at)
		VALUES ($1, $2, $3, $4, $5::numeric, $6::numeric, $7::numeric, $8::numeric, $9::numeric, $10, $11, $12, $13, $14)
	`

	_, err := r.querier.Exec(ctx, query,
		trade.ID,
		trade.UserID,
		trade.Type,
		trade.Asset,
		trade.FiatAmount.StringFixed(2),
		trade.AssetAmount.StringFixed(8),
		trade.AssetPrice.StringFixed(2),
		trade.Fee.StringFixed(2),
		trade.CostBasis.StringFixed(2),
		trade.Reference,
		trade.Description,
		trade.Status,
		trade.CreatedAt,
		trade.SettledAt,
	)
	if err != nil {
		r.logger.Error("Failed to create trade",
			"user_id", trade.UserID,
			"reference", trade.Reference,
			"error", err,
		)
		return fmt.Errorf("failed to create trade: %w", err)
	}

	return nil
}

func (r *CryptoRepository) GetTrade(ctx context.Context, id uuid.UUID) (*crypto.Trade, error) {
	query := `SELECT ` + tradeColumns + ` FROM crypto_trades WHERE id = $1`

	trade, err := scanTrade(r.querier.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, crypto.ErrTradeNotFound{TradeID: id}
		}
		r.logger.Error("Failed to get trade", "id", id.String(), "error", err)
		return nil, fmt.Errorf("failed to get trade: %w", err)
	}

	return trade, nil
}

// ListTrades returns the user's trades, newest first.
func (r *CryptoRepository) ListTrades(ctx context.Context, userID string, limit, offset int) ([]*crypto.Trade, error) {
	query := `SELECT ` + tradeColumns + ` FROM crypto_trades WHERE user_id = $1 ORDER BY created_at DESC LIMIT $2 OFFSET $3`

	rows, err := r.querier.Query(ctx, query, userID, limit, offset)
	if err != nil {
		r.logger.Error("Failed to list trades", "user_id", userID, "error", err)
		return nil, fmt.Errorf("failed to list trades: %w", err)
	}
	defer rows.Close()

	var trades []*crypto.Trade
	for rows.Next() {
		trade, err := scanTrade(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan trade: %w", err)
		}
		trades = append(trades, trade)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating over trades: %w", err)
	}

	return trades, nil
}

// SettleTrade moves a pending trade to status and returns the settled row.
func (r *CryptoRepository) SettleTrade(ctx context.Context, id uuid.UUID, status crypto.TradeStatus) (*crypto.Trade, error) {
	query := `
		UPDATE crypto_trades
		SET status = $1, settled_at = NOW()
		WHERE id = $2 AND status = 'pending'
		RETURNING ` + tradeColumns

	trade, err := scanTrade(r.querier.QueryRow(ctx, query, status, id))
	if err == nil {
		return trade, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		r.logger.Error("Failed to settle trade", "id", id.String(), "error", err)
		return nil, fmt.Errorf("failed to settle trade: %w", err)
	}

	if _, err := r.GetTrade(ctx, id); err != nil {
		return nil, err
	}
	return nil, crypto.ErrTradeNotPending
}

func scanPortfolio(row pgx.Row) (*crypto.Portfolio, error) {
	var (
		p                     crypto.Portfolio
		funded, asset, atCost string
	)
	if err := row.Scan(&p.UserID, &funded, &asset, &atCost, &p.UpdatedAt); err != nil {
		return nil, err
	}

	var err error
	if p.FundedAmount, err = parseDecimal("funded_amount", funded); err != nil {
		return nil, err
	}
	if p.AssetBalance, err = parseDecimal("asset_balance", asset); err != nil {
		return nil, err
	}
	if p.AssetValueAtCost, err = parseDecimal("asset_value_at_cost", atCost); err != nil {
		return nil, err
	}
	return &p, nil
}

func scanTrade(row pgx.Row) (*crypto.Trade, error) {
	var (
		t                                  crypto.Trade
		fiat, asset, price, fee, costBasis string
	)
	err := row.Scan(
		&t.ID,
		&t.UserID,
		&t.Type,
		&t.Asset,
		&fiat,
		&asset,
		&price,
		&fee,
		&costBasis,
		&t.Reference,
		&t.Description,
		&t.Status,
		&t.CreatedAt,
		&t.SettledAt,
	)
	if err != nil {
		return nil, err
	}

	columns := []struct {
		name string
		raw  string
		dst  *decimal.Decimal
	}{
		{"fiat_amount", fiat, &t.FiatAmount},
		{"asset_amount", asset, &t.AssetAmount},
		{"asset_price", price, &t.AssetPrice},
		{"fee", fee, &t.Fee},
		{"cost_basis", costBasis, &t.CostBasis},
	}
	for _, c := range columns {
		if *c.dst, err = parseDecimal(c.name, c.raw); err != nil {
			return nil, err
		}
	}
	return &t, nil
}
