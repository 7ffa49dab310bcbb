package domain

import (
	"github.com/shopspring/decimal"
)

// ProfitEstimate is the projected result of converting capital around a
// cycle at current prices, after per-leg fees.
type ProfitEstimate struct {
	Cycle           AssetCycle
	StartingCapital decimal.Decimal
	FinalCapital    decimal.Decimal
	ExpectedProfit  decimal.Decimal
}

// NewProfitEstimate computes the expected profit from the starting and
// projected final capital. ExpectedProfit may be negative.
func NewProfitEstimate(cycle AssetCycle, starting, final decimal.Decimal) ProfitEstimate {
	return ProfitEstimate{
		Cycle:           cycle,
		StartingCapital: starting,
		FinalCapital:    final,
		ExpectedProfit:  final.Sub(starting),
	}
}

// IsProfitable reports whether the expected profit meets the minimum
// absolute threshold, denominated in the cycle's base asset.
func (e ProfitEstimate) IsProfitable(minProfit decimal.Decimal) bool {
	return e.ExpectedProfit.GreaterThan(minProfit)
}
