package app

import (
	"context"
	"time"

	"github.com/s9927637/arbitrage-trader/business/engine/domain"
	"github.com/s9927637/arbitrage-trader/internal/logger"
	"github.com/shopspring/decimal"
)

// TradeExecutor carries out the legs of a selected cycle as sequential
// market orders. It is the only engine component that mutates exchange
// state.
//
// There is no rollback: the exchange offers no atomic multi-leg
// primitive, so once a leg fills, prior fills stay filled. A failed
// execution can leave the account holding an intermediate asset of the
// cycle; the outcome records how many legs filled.
type TradeExecutor struct {
	exchange  ExchangeClient
	estimator *PathProfitEstimator
	ledger    Ledger
	feeRate   decimal.Decimal
	log       logger.LoggerInterface
	now       func() time.Time
}

// NewTradeExecutor creates an executor that records every attempt in the
// ledger.
func NewTradeExecutor(exchange ExchangeClient, estimator *PathProfitEstimator, ledger Ledger, feeRate decimal.Decimal, log logger.LoggerInterface) *TradeExecutor {
	return &TradeExecutor{
		exchange:  exchange,
		estimator: estimator,
		ledger:    ledger,
		feeRate:   feeRate,
		log:       log,
		now:       time.Now,
	}
}

// Execute submits the cycle's legs in order, sizing each market order at
// the running amount carried over from the previous fill. It halts at the
// first failing leg without attempting the rest.
//
// Exactly one TradeOutcome is produced and appended to the ledger,
// for both the success and the failure path.
func (x *TradeExecutor) Execute(ctx context.Context, cycle domain.AssetCycle, capital decimal.Decimal) domain.TradeOutcome {
	outcome := domain.TradeOutcome{
		Timestamp:     x.now(),
		Cycle:         cycle,
		TradedAmount:  capital,
		EstimatedCost: capital.Mul(x.feeRate),
	}

	// Fresh snapshot of the expectation; prices may have moved since
	// selection.
	est, err := x.estimator.Estimate(ctx, cycle, capital)
	if err != nil {
		x.log.Warn(ctx, "pre-trade estimate failed, aborting execution",
			"cycle", cycle.String(), "error", err.Error())
		outcome.Status = domain.StatusFailed
		outcome.FailureReason = err.Error()
		x.record(ctx, outcome)
		return outcome
	}
	outcome.ExpectedProfit = est.ExpectedProfit

	base := cycle.BaseAsset()
	preBalance, err := x.exchange.FreeBalance(ctx, base)
	if err != nil {
		x.log.Warn(ctx, "pre-trade balance unavailable", "asset", base, "error", err.Error())
		preBalance = capital
	}

	amount := capital
	for i, leg := range cycle.Legs() {
		x.log.Info(ctx, "submitting leg",
			"cycle", cycle.String(),
			"leg", i+1,
			"symbol", leg.Symbol,
			"amount", amount.String(),
		)

		res, err := x.exchange.PlaceMarketOrder(ctx, leg.Symbol, SideSell, amount)
		if err != nil {
			x.log.Error(ctx, "leg failed, halting execution",
				"cycle", cycle.String(),
				"leg", i+1,
				"symbol", leg.Symbol,
				"error", err.Error(),
			)
			outcome.Status = domain.StatusFailed
			outcome.LegsFilled = i
			outcome.FailureReason = err.Error()
			x.record(ctx, outcome)
			return outcome
		}

		outcome.LegsFilled = i + 1
		if res.Filled && res.FilledAmount.IsPositive() {
			amount = res.FilledAmount
		} else {
			// Fall back to a price-derived carry when the exchange
			// reports no fill amount.
			price, perr := x.exchange.LatestPrice(ctx, leg.Symbol)
			if perr != nil || !price.IsPositive() {
				outcome.Status = domain.StatusFailed
				outcome.FailureReason = "fill amount unknown for " + leg.Symbol
				x.record(ctx, outcome)
				return outcome
			}
			amount = amount.Mul(price).Mul(decimal.NewFromInt(1).Sub(x.feeRate))
		}
	}

	outcome.Status = domain.StatusSuccess
	outcome.ActualProfit = x.realizedProfit(ctx, base, preBalance, capital, amount)
	x.record(ctx, outcome)
	return outcome
}

// realizedProfit approximates the realized profit from the post-trade
// balance delta of the base asset rather than from per-leg fill prices.
func (x *TradeExecutor) realizedProfit(ctx context.Context, base string, preBalance, capital, finalAmount decimal.Decimal) decimal.Decimal {
	postBalance, err := x.exchange.FreeBalance(ctx, base)
	if err != nil {
		x.log.Warn(ctx, "post-trade balance unavailable, deriving profit from final fill",
			"asset", base, "error", err.Error())
		return finalAmount.Sub(capital)
	}
	return postBalance.Sub(preBalance)
}

func (x *TradeExecutor) record(ctx context.Context, outcome domain.TradeOutcome) {
	if err := x.ledger.Append(ctx, outcome); err != nil {
		// Best effort only; a ledger failure never aborts the pass.
		x.log.Error(ctx, "ledger append failed",
			"cycle", outcome.Cycle.String(),
			"status", string(outcome.Status),
			"error", err.Error(),
		)
	}
}
