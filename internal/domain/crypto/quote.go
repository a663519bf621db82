package crypto

import (
	"github.com/retail-banking-ledger/internal/domain/shared"
	"github.com/shopspring/decimal"
)

// BuyQuote is the outcome of spending FiatAmount at Price.
type BuyQuote struct {
	FiatAmount  decimal.Decimal
	Price       decimal.Decimal
	AssetAmount decimal.Decimal
	Fee         decimal.Decimal
	TotalCost   decimal.Decimal
}

// SellQuote is the outcome of selling AssetAmount at Price.
type SellQuote struct {
	AssetAmount decimal.Decimal
	Price       decimal.Decimal
	GrossFiat   decimal.Decimal
	Fee         decimal.Decimal
	NetFiat     decimal.Decimal
}

// QuoteBuy computes assetAmount = fiat / price and totalCost = fiat + fee, where
// the fee is fiat × feeRate. Each figure is rounded before use.
func QuoteBuy(fiatAmount, price, feeRate decimal.Decimal) (BuyQuote, error) {
	if err := validateMarket(price, feeRate); err != nil {
		return BuyQuote{}, err
	}
	if !shared.IsFiatAmount(fiatAmount) {
		return BuyQuote{}, ErrInvalidFiatAmount
	}

	asset := shared.RoundAsset(fiatAmount.DivRound(price, shared.AssetScale+4))
	if !asset.IsPositive() {
		return BuyQuote{}, ErrInvalidFiatAmount
	}
	fee := shared.RoundFiat(fiatAmount.Mul(feeRate))

	return BuyQuote{
		FiatAmount:  fiatAmount,
		Price:       price,
		AssetAmount: asset,
		Fee:         fee,
		TotalCost:   fiatAmount.Add(fee),
	}, nil
}

// QuoteSell computes the post-fee fiat credited once the sale is approved.
func QuoteSell(assetAmount, price, feeRate decimal.Decimal) (SellQuote, error) {
	if err := validateMarket(price, feeRate); err != nil {
		return SellQuote{}, err
	}
	if !shared.IsAssetAmount(assetAmount) {
		return SellQuote{}, ErrInvalidAssetAmount
	}

	gross := shared.RoundFiat(assetAmount.Mul(price))
	fee := shared.RoundFiat(gross.Mul(feeRate))

	return SellQuote{
		AssetAmount: assetAmount,
		Price:       price,
		GrossFiat:   gross,
		Fee:         fee,
		NetFiat:     gross.Sub(fee),
	}, nil
}

func validateMarket(price, feeRate decimal.Decimal) error {
	if !price.IsPositive() {
		return ErrInvalidPrice
	}
	if feeRate.IsNegative() || feeRate.GreaterThanOrEqual(decimal.NewFromInt(1)) {
		return ErrInvalidFeeRate
	}
	return nil
}
