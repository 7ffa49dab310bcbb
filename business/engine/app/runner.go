package app

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/s9927637/arbitrage-trader/business/engine/domain"
	"github.com/s9927637/arbitrage-trader/internal/apperror"
	"github.com/s9927637/arbitrage-trader/internal/logger"
	"github.com/shopspring/decimal"
)

// Ticker abstracts the poll timer so the loop can be driven manually in
// tests.
type Ticker interface {
	C() <-chan time.Time
	Stop()
}

type realTicker struct {
	t *time.Ticker
}

func (r *realTicker) C() <-chan time.Time { return r.t.C }
func (r *realTicker) Stop()               { r.t.Stop() }

// NewIntervalTicker returns a Ticker backed by a time.Ticker.
func NewIntervalTicker(interval time.Duration) Ticker {
	return &realTicker{t: time.NewTicker(interval)}
}

// RunnerConfig holds the static configuration of the polling loop.
type RunnerConfig struct {
	Cycles          []domain.AssetCycle
	CapitalFraction decimal.Decimal
	DryRun          bool
}

// Runner drives evaluation passes on a fixed interval. Passes are
// strictly serialized: a tick arriving while a pass (in particular an
// execution) is still in flight is skipped, since overlapping passes
// against the shared account balance would corrupt capital sizing.
type Runner struct {
	exchange ExchangeClient
	selector *PathSelector
	executor *TradeExecutor
	funder   *FeeFunder
	reporter Reporter
	cfg      RunnerConfig
	log      logger.LoggerInterface

	gate sync.Mutex

	mu       sync.Mutex
	lastPass time.Time
}

// NewRunner wires the engine services into a polling loop. All cycles
// must share the same base asset, since capital is sized from a single
// free balance.
func NewRunner(
	exchange ExchangeClient,
	selector *PathSelector,
	executor *TradeExecutor,
	funder *FeeFunder,
	reporter Reporter,
	cfg RunnerConfig,
	log logger.LoggerInterface,
) (*Runner, error) {
	if len(cfg.Cycles) == 0 {
		return nil, apperror.New(apperror.CodeConfigurationError,
			apperror.WithMessage("at least one cycle must be configured"))
	}
	base := cfg.Cycles[0].BaseAsset()
	for _, c := range cfg.Cycles[1:] {
		if c.BaseAsset() != base {
			return nil, apperror.New(apperror.CodeConfigurationError,
				apperror.WithMessage("all cycles must share the same base asset"),
				apperror.WithContext(fmt.Sprintf("expected %s, cycle %s", base, c.String())),
			)
		}
	}
	if !cfg.CapitalFraction.IsPositive() || cfg.CapitalFraction.GreaterThan(decimal.NewFromInt(1)) {
		return nil, apperror.New(apperror.CodeConfigurationError,
			apperror.WithMessage("capital fraction must be in (0, 1]"))
	}
	return &Runner{
		exchange: exchange,
		selector: selector,
		executor: executor,
		funder:   funder,
		reporter: reporter,
		cfg:      cfg,
		log:      log,
	}, nil
}

// Run executes one pass immediately, then one per tick until the context
// is cancelled.
func (r *Runner) Run(ctx context.Context, ticker Ticker) error {
	defer ticker.Stop()

	r.log.Info(ctx, "engine started",
		"cycles", len(r.cfg.Cycles),
		"base_asset", r.cfg.Cycles[0].BaseAsset(),
		"dry_run", r.cfg.DryRun,
	)

	r.RunPass(ctx)

	for {
		select {
		case <-ctx.Done():
			r.log.Info(ctx, "engine stopping", "reason", ctx.Err().Error())
			return ctx.Err()
		case <-ticker.C():
			r.RunPass(ctx)
		}
	}
}

// RunPass runs a single evaluation pass if none is in flight; otherwise
// it returns false without doing anything.
func (r *Runner) RunPass(ctx context.Context) bool {
	if !r.gate.TryLock() {
		r.log.Warn(ctx, "pass skipped, previous pass still in flight")
		return false
	}
	defer r.gate.Unlock()

	// A pass must never take the whole loop down with it.
	defer func() {
		if rec := recover(); rec != nil {
			r.log.Error(ctx, "pass panicked", "panic", fmt.Sprint(rec))
		}
	}()

	r.pass(ctx)

	r.mu.Lock()
	r.lastPass = time.Now()
	r.mu.Unlock()
	return true
}

// LastPass returns when the most recent pass completed, or the zero time
// if none has.
func (r *Runner) LastPass() time.Time {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.lastPass
}

func (r *Runner) pass(ctx context.Context) {
	if r.funder != nil {
		r.funder.EnsureReserve(ctx)
	}

	base := r.cfg.Cycles[0].BaseAsset()
	balance, err := r.exchange.FreeBalance(ctx, base)
	if err != nil {
		r.log.Warn(ctx, "balance unavailable, skipping pass", "asset", base, "error", err.Error())
		r.reporter.ReportNoOpportunity()
		return
	}

	// Capital is sized fresh from the current free balance on every
	// pass; it is never cached across passes.
	capital := balance.Mul(r.cfg.CapitalFraction)
	if !capital.IsPositive() {
		r.log.Warn(ctx, "no capital available", "asset", base, "balance", balance.String())
		r.reporter.ReportNoOpportunity()
		return
	}

	sel, ok := r.selector.SelectBest(ctx, r.cfg.Cycles, capital)
	if !ok {
		r.log.Info(ctx, "no opportunity above threshold", "capital", capital.String())
		r.reporter.ReportNoOpportunity()
		return
	}

	r.reporter.ReportEstimate(sel.Estimate)
	r.log.Info(ctx, "opportunity selected",
		"cycle", sel.Cycle.String(),
		"capital", capital.String(),
		"expected_profit", sel.Estimate.ExpectedProfit.String(),
	)

	if r.cfg.DryRun {
		r.log.Info(ctx, "dry run, skipping execution", "cycle", sel.Cycle.String())
		return
	}

	outcome := r.executor.Execute(ctx, sel.Cycle, capital)
	r.reporter.ReportOutcome(outcome)
}
