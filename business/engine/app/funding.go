package app

import (
	"context"

	"github.com/s9927637/arbitrage-trader/internal/logger"
	"github.com/shopspring/decimal"
)

// FeeFunder keeps a minimum reserve of the fee-currency asset so
// executions never stall on missing fee balance.
type FeeFunder struct {
	exchange      ExchangeClient
	feeAsset      string
	quoteAsset    string
	pairSymbol    string
	reserveMin    decimal.Decimal
	topUpFraction decimal.Decimal
	log           logger.LoggerInterface
}

// NewFeeFunder creates a funder that buys feeAsset with quoteAsset on
// pairSymbol whenever the reserve drops below reserveMin.
func NewFeeFunder(exchange ExchangeClient, feeAsset, quoteAsset, pairSymbol string, reserveMin, topUpFraction decimal.Decimal, log logger.LoggerInterface) *FeeFunder {
	return &FeeFunder{
		exchange:      exchange,
		feeAsset:      feeAsset,
		quoteAsset:    quoteAsset,
		pairSymbol:    pairSymbol,
		reserveMin:    reserveMin,
		topUpFraction: topUpFraction,
		log:           log,
	}
}

// EnsureReserve tops up the fee asset when its free balance is below the
// reserve threshold, spending a fixed fraction of the free quote balance
// in a single market buy. One attempt per pass, fire and forget: every
// failure is logged and swallowed so the pass proceeds.
func (f *FeeFunder) EnsureReserve(ctx context.Context) {
	balance, err := f.exchange.FreeBalance(ctx, f.feeAsset)
	if err != nil {
		f.log.Warn(ctx, "fee asset balance unavailable, skipping top-up",
			"asset", f.feeAsset, "error", err.Error())
		return
	}
	if balance.GreaterThanOrEqual(f.reserveMin) {
		return
	}

	quoteBalance, err := f.exchange.FreeBalance(ctx, f.quoteAsset)
	if err != nil {
		f.log.Warn(ctx, "quote balance unavailable, skipping top-up",
			"asset", f.quoteAsset, "error", err.Error())
		return
	}

	spend := quoteBalance.Mul(f.topUpFraction)
	if !spend.IsPositive() {
		f.log.Warn(ctx, "no quote balance to fund fee asset",
			"fee_asset", f.feeAsset, "quote_asset", f.quoteAsset)
		return
	}

	f.log.Info(ctx, "topping up fee asset",
		"symbol", f.pairSymbol,
		"balance", balance.String(),
		"reserve_min", f.reserveMin.String(),
		"spend", spend.String(),
	)

	if _, err := f.exchange.PlaceMarketOrder(ctx, f.pairSymbol, SideBuy, spend); err != nil {
		f.log.Warn(ctx, "fee asset top-up failed",
			"symbol", f.pairSymbol, "error", err.Error())
	}
}
