package app

import (
	"context"
	"fmt"

	"github.com/s9927637/arbitrage-trader/business/engine/domain"
	"github.com/s9927637/arbitrage-trader/internal/apperror"
	"github.com/s9927637/arbitrage-trader/internal/logger"
	"github.com/shopspring/decimal"
)

// PathProfitEstimator projects the post-fee result of converting capital
// around a cycle at current prices. It is read-only against the exchange.
type PathProfitEstimator struct {
	exchange ExchangeClient
	feeRate  decimal.Decimal
	log      logger.LoggerInterface
}

// NewPathProfitEstimator creates an estimator with a fixed proportional
// fee rate applied once per leg.
func NewPathProfitEstimator(exchange ExchangeClient, feeRate decimal.Decimal, log logger.LoggerInterface) *PathProfitEstimator {
	return &PathProfitEstimator{
		exchange: exchange,
		feeRate:  feeRate,
		log:      log,
	}
}

// Estimate chains the latest price of every leg, deducting the fee rate
// on each conversion. A cycle of N assets incurs N-1 price multiplications
// and N-1 fee deductions.
//
// Capital must be positive. Any leg whose price is missing or non-positive
// fails the whole estimate with CodePriceUnavailable; the cycle's profit
// is undefined, not zero.
func (e *PathProfitEstimator) Estimate(ctx context.Context, cycle domain.AssetCycle, capital decimal.Decimal) (domain.ProfitEstimate, error) {
	if !capital.IsPositive() {
		return domain.ProfitEstimate{}, apperror.New(apperror.CodeInvalidInput,
			apperror.WithMessage("capital must be positive"),
			apperror.WithContext(fmt.Sprintf("cycle %s, capital %s", cycle.String(), capital.String())),
		)
	}

	keep := decimal.NewFromInt(1).Sub(e.feeRate)
	amount := capital
	for _, leg := range cycle.Legs() {
		price, err := e.exchange.LatestPrice(ctx, leg.Symbol)
		if err != nil {
			if apperror.IsCode(err, apperror.CodePriceUnavailable) {
				return domain.ProfitEstimate{}, err
			}
			// Any lookup failure degrades to an unavailable price for
			// this cycle, whatever the transport-level cause.
			return domain.ProfitEstimate{}, apperror.New(apperror.CodePriceUnavailable,
				apperror.WithCause(err),
				apperror.WithContext(fmt.Sprintf("cycle %s, symbol %s", cycle.String(), leg.Symbol)))
		}
		if !price.IsPositive() {
			return domain.ProfitEstimate{}, apperror.New(apperror.CodePriceUnavailable,
				apperror.WithContext(fmt.Sprintf("non-positive price %s for %s", price.String(), leg.Symbol)),
			)
		}
		amount = amount.Mul(price).Mul(keep)
	}

	est := domain.NewProfitEstimate(cycle, capital, amount)
	e.log.Debug(ctx, "cycle estimated",
		"cycle", cycle.String(),
		"capital", capital.String(),
		"final", est.FinalCapital.String(),
		"expected_profit", est.ExpectedProfit.String(),
	)
	return est, nil
}
