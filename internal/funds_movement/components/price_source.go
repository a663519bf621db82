package components

import (
	"context"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// PriceSource quotes the ledger price of an asset in fiat.
type PriceSource interface {
	Price(ctx context.Context, asset string) (decimal.Decimal, error)
}

// StaticPriceSource serves configured prices.
type StaticPriceSource struct {
	prices map[string]decimal.Decimal
}

func NewStaticPriceSource(asset string, price decimal.Decimal) *StaticPriceSource {
	return &StaticPriceSource{prices: map[string]decimal.Decimal{strings.ToUpper(asset): price}}
}

func (s *StaticPriceSource) Price(_ context.Context, asset string) (decimal.Decimal, error) {
	price, ok := s.prices[strings.ToUpper(asset)]
	if !ok {
		return decimal.Zero, fmt.Errorf("no price configured for %s", asset)
	}
	return price, nil
}
