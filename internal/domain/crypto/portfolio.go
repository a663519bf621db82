package crypto

import (
	"errors"
	"time"

	"github.com/retail-banking-ledger/internal/domain/shared"
	"github.com/shopspring/decimal"
)

var (
	ErrInsufficientFunded = errors.New("insufficient funded balance")
	ErrInsufficientAsset  = errors.New("insufficient asset balance")
	ErrInvalidPrice       = errors.New("asset price must be positive")
	ErrInvalidFeeRate     = errors.New("fee rate must be within [0, 1)")
	ErrInvalidFiatAmount  = errors.New("fiat amount must be positive with at most two decimal places")
	ErrInvalidAssetAmount = errors.New("asset amount must be positive with at most eight decimal places")
)

// Portfolio is a user's crypto position: fiat funded for trading, asset quantity
// held and the fiat cost basis of that quantity.
type Portfolio struct {
	UserID           string          `json:"user_id"`
	FundedAmount     decimal.Decimal `json:"funded_amount"`
	AssetBalance     decimal.Decimal `json:"asset_balance"`
	AssetValueAtCost decimal.Decimal `json:"asset_value_at_cost"`
	UpdatedAt        time.Time       `json:"updated_at"`
}

// EmptyPortfolio is the position of a user who never funded.
func EmptyPortfolio(userID string) *Portfolio {
	return &Portfolio{
		UserID:           userID,
		FundedAmount:     decimal.Zero,
		AssetBalance:     decimal.Zero,
		AssetValueAtCost: decimal.Zero,
	}
}

// Delta is a change applied to all three counters by one atomic write.
type Delta struct {
	Funded    decimal.Decimal
	Asset     decimal.Decimal
	CostBasis decimal.Decimal
}

// Apply returns the portfolio after d, or an error if a counter would turn negative.
// Stores use it to mirror the conditional update they perform.
func (p *Portfolio) Apply(d Delta) (*Portfolio, error) {
	next := &Portfolio{
		UserID:           p.UserID,
		FundedAmount:     shared.RoundFiat(p.FundedAmount.Add(d.Funded)),
		AssetBalance:     shared.RoundAsset(p.AssetBalance.Add(d.Asset)),
		AssetValueAtCost: shared.RoundFiat(p.AssetValueAtCost.Add(d.CostBasis)),
		UpdatedAt:        time.Now().UTC(),
	}
	if next.FundedAmount.IsNegative() {
		return nil, ErrInsufficientFunded
	}
	if next.AssetBalance.IsNegative() {
		return nil, ErrInsufficientAsset
	}
	if next.AssetValueAtCost.IsNegative() {
		next.AssetValueAtCost = decimal.Zero
	}
	return next, nil
}

// CostBasisFor is the average-cost basis attached to quantity, rounded to cents.
// Selling the whole position relieves the whole basis.
func (p *Portfolio) CostBasisFor(quantity decimal.Decimal) decimal.Decimal {
	if !p.AssetBalance.IsPositive() {
		return decimal.Zero
	}
	if quantity.GreaterThanOrEqual(p.AssetBalance) {
		return p.AssetValueAtCost
	}
	return shared.RoundFiat(p.AssetValueAtCost.Mul(quantity).Div(p.AssetBalance))
}
