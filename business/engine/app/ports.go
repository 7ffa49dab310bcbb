// Package app contains application services and port definitions for the trading engine context.
package app

import (
	"context"

	"github.com/s9927637/arbitrage-trader/business/engine/domain"
	"github.com/shopspring/decimal"
)

// OrderSide is the direction of a market order.
type OrderSide string

const (
	SideBuy  OrderSide = "BUY"
	SideSell OrderSide = "SELL"
)

// OrderResult is the exchange's view of a submitted market order.
type OrderResult struct {
	Symbol       string
	Side         OrderSide
	OrderID      int64
	Filled       bool
	FilledAmount decimal.Decimal // amount of the destination asset received
}

// ExchangeClient is the capability the engine needs from an exchange:
// balances, latest prices, and market order placement. Implementations
// live in the exchange context.
type ExchangeClient interface {
	// FreeBalance returns the free (unlocked) balance of an asset.
	FreeBalance(ctx context.Context, asset string) (decimal.Decimal, error)

	// LatestPrice returns the last traded price for a pair symbol. It
	// fails with CodePriceUnavailable when the pair is unknown or the
	// data is stale.
	LatestPrice(ctx context.Context, symbol string) (decimal.Decimal, error)

	// PlaceMarketOrder submits a market order. For SideSell the amount
	// is the quantity of the asset being sold; for SideBuy it is the
	// quote amount to spend.
	PlaceMarketOrder(ctx context.Context, symbol string, side OrderSide, amount decimal.Decimal) (OrderResult, error)
}

// Ledger is an append-only sink for trade outcomes. Append failures are
// logged by callers and never abort a trading pass.
type Ledger interface {
	Append(ctx context.Context, outcome domain.TradeOutcome) error
}

// Reporter defines the interface for reporting engine activity.
type Reporter interface {
	// Start initializes the reporter.
	Start(ctx context.Context) error

	// ReportEstimate announces the best estimate found during a pass.
	ReportEstimate(est domain.ProfitEstimate)

	// ReportOutcome announces the result of an execution attempt.
	ReportOutcome(outcome domain.TradeOutcome)

	// ReportNoOpportunity signals a pass that found nothing above the
	// profit threshold. Every pass ends with an outcome or this.
	ReportNoOpportunity()

	// Stop gracefully shuts down the reporter.
	Stop() error
}
