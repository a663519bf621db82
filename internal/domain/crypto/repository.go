package crypto

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// Repository persists portfolios and trades.
type Repository interface {
	// GetPortfolio returns an empty portfolio for users who never funded.
	GetPortfolio(ctx context.Context, userID string) (*Portfolio, error)

	// EnsurePortfolio creates an empty portfolio row if the user has none.
	EnsurePortfolio(ctx context.Context, userID string) error

	// AdjustPortfolio applies d to all counters in one conditional write and returns
	// the new position. It fails with ErrInsufficientFunded or ErrInsufficientAsset,
	// writing nothing, when a counter would turn negative.
	AdjustPortfolio(ctx context.Context, userID string, d Delta) (*Portfolio, error)

	CreateTrade(ctx context.Context, trade *Trade) error
	GetTrade(ctx context.Context, id uuid.UUID) (*Trade, error)
	ListTrades(ctx context.Context, userID string, limit, offset int) ([]*Trade, error)

	// SettleTrade moves a pending trade to status; ErrTradeNotPending otherwise.
	SettleTrade(ctx context.Context, id uuid.UUID, status TradeStatus) (*Trade, error)

	WithTx(tx pgx.Tx) Repository
}

// ErrTradeNotFound indicates missing trade
type ErrTradeNotFound struct {
	TradeID uuid.UUID
}

func (e ErrTradeNotFound) Error() string {
	return "crypto trade not found: " + e.TradeID.String()
}

func (e ErrTradeNotFound) Is(target error) bool {
	t, ok := target.(ErrTradeNotFound)
	if !ok {
		return false
	}
	return t.TradeID == uuid.Nil || t.TradeID == e.TradeID
}
