package shared

import "github.com/shopspring/decimal"

// Precision of persisted amounts.
const (
	FiatScale  int32 = 2
	AssetScale int32 = 8
)

// RoundFiat rounds half away from zero to cents.
func RoundFiat(d decimal.Decimal) decimal.Decimal {
	return d.Round(FiatScale)
}

// RoundAsset rounds half away from zero to the asset's smallest unit.
func RoundAsset(d decimal.Decimal) decimal.Decimal {
	return d.Round(AssetScale)
}

// IsFiatAmount reports whether d is a positive amount with at most two decimal places.
func IsFiatAmount(d decimal.Decimal) bool {
	return d.IsPositive() && d.Equal(d.Round(FiatScale))
}

// IsAssetAmount reports whether d is a positive quantity with at most eight decimal places.
func IsAssetAmount(d decimal.Decimal) bool {
	return d.IsPositive() && d.Equal(d.Round(AssetScale))
}
