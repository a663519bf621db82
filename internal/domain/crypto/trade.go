package crypto

import (
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

var ErrTradeNotPending = errors.New("trade is not pending")

// TradeType is the kind of crypto ledger operation
type TradeType string

const (
	TradeTypeFund TradeType = "fund"
	TradeTypeBuy  TradeType = "buy"
	TradeTypeSell TradeType = "sell"
)

// TradeStatus of a crypto ledger operation
type TradeStatus string

const (
	TradeStatusPending   TradeStatus = "pending"
	TradeStatusCompleted TradeStatus = "completed"
	TradeStatusRejected  TradeStatus = "rejected"
)

// Trade records one fund, buy or sell. Sells stay pending until an approver
// settles them; FiatAmount of a sell is the post-fee amount to credit.
type Trade struct {
	ID          uuid.UUID       `json:"id"`
	UserID      string          `json:"user_id"`
	Type        TradeType       `json:"type"`
	Asset       string          `json:"asset"`
	FiatAmount  decimal.Decimal `json:"fiat_amount"`
	AssetAmount decimal.Decimal `json:"asset_amount"`
	AssetPrice  decimal.Decimal `json:"asset_price"`
	Fee         decimal.Decimal `json:"fee"`
	// CostBasis is the basis added by a buy or relieved by a sell.
	CostBasis   decimal.Decimal `json:"cost_basis"`
	Reference   string          `json:"reference"`
	Description string          `json:"description"`
	Status      TradeStatus     `json:"status"`
	CreatedAt   time.Time       `json:"created_at"`
	SettledAt   *time.Time      `json:"settled_at,omitempty"`
}

func newTrade(userID string, typ TradeType, asset, reference, description string, status TradeStatus) *Trade {
	now := time.Now().UTC()
	t := &Trade{
		ID:          uuid.New(),
		UserID:      userID,
		Type:        typ,
		Asset:       asset,
		FiatAmount:  decimal.Zero,
		AssetAmount: decimal.Zero,
		AssetPrice:  decimal.Zero,
		Fee:         decimal.Zero,
		CostBasis:   decimal.Zero,
		Reference:   reference,
		Description: description,
		Status:      status,
		CreatedAt:   now,
	}
	if status == TradeStatusCompleted {
		t.SettledAt = &now
	}
	return t
}

// NewFundTrade records fiat moved from a bank account into the portfolio.
func NewFundTrade(userID, asset string, amount decimal.Decimal, reference, description string) *Trade {
	t := newTrade(userID, TradeTypeFund, asset, reference, description, TradeStatusCompleted)
	t.FiatAmount = amount
	return t
}

// NewBuyTrade records a completed purchase.
func NewBuyTrade(userID, asset string, q BuyQuote, reference, description string) *Trade {
	t := newTrade(userID, TradeTypeBuy, asset, reference, description, TradeStatusCompleted)
	t.FiatAmount = q.FiatAmount
	t.AssetAmount = q.AssetAmount
	t.AssetPrice = q.Price
	t.Fee = q.Fee
	t.CostBasis = q.FiatAmount
	return t
}

// NewSellTrade records a pending sale carrying the net fiat to credit on approval.
func NewSellTrade(userID, asset string, q SellQuote, costBasis decimal.Decimal, reference, description string) *Trade {
	t := newTrade(userID, TradeTypeSell, asset, reference, description, TradeStatusPending)
	t.FiatAmount = q.NetFiat
	t.AssetAmount = q.AssetAmount
	t.AssetPrice = q.Price
	t.Fee = q.Fee
	t.CostBasis = costBasis
	return t
}

// SettlementDelta is the portfolio change an approval or rejection of a pending sell applies.
func (t *Trade) SettlementDelta(approved bool) (Delta, error) {
	if t.Type != TradeTypeSell || t.Status != TradeStatusPending {
		return Delta{}, ErrTradeNotPending
	}
	if approved {
		return Delta{Funded: t.FiatAmount, Asset: decimal.Zero, CostBasis: decimal.Zero}, nil
	}
	return Delta{Funded: decimal.Zero, Asset: t.AssetAmount, CostBasis: t.CostBasis}, nil
}
