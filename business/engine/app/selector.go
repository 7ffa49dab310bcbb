package app

import (
	"context"

	"github.com/s9927637/arbitrage-trader/business/engine/domain"
	"github.com/s9927637/arbitrage-trader/internal/apperror"
	"github.com/s9927637/arbitrage-trader/internal/logger"
	"github.com/shopspring/decimal"
)

// Selection pairs a cycle with the estimate that made it the best
// candidate of a pass.
type Selection struct {
	Cycle    domain.AssetCycle
	Estimate domain.ProfitEstimate
}

// PathSelector evaluates every configured cycle and picks the one with
// the strictly greatest expected profit above the minimum threshold.
type PathSelector struct {
	estimator *PathProfitEstimator
	minProfit decimal.Decimal
	log       logger.LoggerInterface
}

// NewPathSelector creates a selector. minProfit is an absolute amount in
// the cycles' base asset, not a percentage.
func NewPathSelector(estimator *PathProfitEstimator, minProfit decimal.Decimal, log logger.LoggerInterface) *PathSelector {
	return &PathSelector{
		estimator: estimator,
		minProfit: minProfit,
		log:       log,
	}
}

// SelectBest estimates every cycle and returns the most profitable one.
// Cycles whose price lookup failed are skipped, not treated as zero
// profit. Ties keep the first cycle evaluated. The second return value
// is false when no cycle clears the threshold.
//
// Given identical prices the selection is deterministic.
func (s *PathSelector) SelectBest(ctx context.Context, cycles []domain.AssetCycle, capital decimal.Decimal) (Selection, bool) {
	var (
		best  domain.ProfitEstimate
		found bool
	)

	for _, cycle := range cycles {
		est, err := s.estimator.Estimate(ctx, cycle, capital)
		if err != nil {
			if apperror.IsCode(err, apperror.CodePriceUnavailable) {
				s.log.Debug(ctx, "cycle skipped, price unavailable", "cycle", cycle.String())
			} else {
				s.log.Warn(ctx, "cycle skipped", "cycle", cycle.String(), "error", err.Error())
			}
			continue
		}
		if !found || est.ExpectedProfit.GreaterThan(best.ExpectedProfit) {
			best = est
			found = true
		}
	}

	if !found || !best.IsProfitable(s.minProfit) {
		return Selection{}, false
	}

	return Selection{Cycle: best.Cycle, Estimate: best}, true
}
