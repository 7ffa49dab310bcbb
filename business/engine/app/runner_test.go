package app

import (
	"context"
	"testing"
	"time"

	"github.com/s9927637/arbitrage-trader/business/engine/domain"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// manualTicker drives the loop from tests without real time delays.
type manualTicker struct {
	ch chan time.Time
}

func newManualTicker() *manualTicker {
	return &manualTicker{ch: make(chan time.Time, 1)}
}

func (m *manualTicker) C() <-chan time.Time { return m.ch }
func (m *manualTicker) Stop()               {}
func (m *manualTicker) Tick()               { m.ch <- time.Now() }

func newRunner(t *testing.T, exchange ExchangeClient, ledger Ledger, reporter Reporter, fee, minProfit string, cycles ...string) *Runner {
	t.Helper()
	estimator := NewPathProfitEstimator(exchange, d(fee), testLogger())
	selector := NewPathSelector(estimator, d(minProfit), testLogger())
	executor := NewTradeExecutor(exchange, estimator, ledger, d(fee), testLogger())

	cfg := RunnerConfig{CapitalFraction: d("0.8")}
	for _, c := range cycles {
		cfg.Cycles = append(cfg.Cycles, mustCycle(c))
	}

	runner, err := NewRunner(exchange, selector, executor, nil, reporter, cfg, testLogger())
	require.NoError(t, err)
	return runner
}

func TestNewRunner_Validation(t *testing.T) {
	exchange := new(mockExchange)
	estimator := NewPathProfitEstimator(exchange, d("0"), testLogger())
	selector := NewPathSelector(estimator, d("1"), testLogger())

	t.Run("no_cycles", func(t *testing.T) {
		_, err := NewRunner(exchange, selector, nil, nil, nil, RunnerConfig{
			CapitalFraction: d("0.8"),
		}, testLogger())
		assert.Error(t, err)
	})

	t.Run("mixed_base_assets", func(t *testing.T) {
		_, err := NewRunner(exchange, selector, nil, nil, nil, RunnerConfig{
			Cycles:          []domain.AssetCycle{mustCycle("USDT,BNB,USDT"), mustCycle("BTC,ETH,BTC")},
			CapitalFraction: d("0.8"),
		}, testLogger())
		assert.Error(t, err)
	})

	t.Run("bad_fraction", func(t *testing.T) {
		_, err := NewRunner(exchange, selector, nil, nil, nil, RunnerConfig{
			Cycles:          []domain.AssetCycle{mustCycle("USDT,BNB,USDT")},
			CapitalFraction: d("1.5"),
		}, testLogger())
		assert.Error(t, err)
	})
}

func TestRunPass_NoOpportunity(t *testing.T) {
	exchange := new(mockExchange)
	exchange.On("FreeBalance", mock.Anything, "USDT").Return(d("1000"), nil)
	exchange.On("LatestPrice", mock.Anything, mock.Anything).Return(d("1"), nil)

	reporter := new(mockReporter)
	reporter.On("ReportNoOpportunity").Once()

	runner := newRunner(t, exchange, new(mockLedger), reporter, "0.00075", "1", "USDT,BNB,USDT")

	ok := runner.RunPass(context.Background())

	assert.True(t, ok)
	reporter.AssertExpectations(t)
	exchange.AssertNotCalled(t, "PlaceMarketOrder")
}

func TestRunPass_ExecutesOpportunity(t *testing.T) {
	exchange := new(mockExchange)
	exchange.On("FreeBalance", mock.Anything, "USDT").Return(d("1250"), nil)
	exchange.On("LatestPrice", mock.Anything, "USDTBNB").Return(d("1.10"), nil)
	exchange.On("LatestPrice", mock.Anything, "BNBUSDT").Return(d("1"), nil)
	exchange.On("PlaceMarketOrder", mock.Anything, mock.Anything, SideSell, mock.Anything).
		Return(OrderResult{Filled: true, FilledAmount: d("1050")}, nil)

	ledger := new(mockLedger)
	ledger.On("Append", mock.Anything, mock.Anything).Return(nil).Once()

	reporter := new(mockReporter)
	reporter.On("ReportEstimate", mock.Anything).Once()
	reporter.On("ReportOutcome", mock.Anything).Once()

	// Capital is 80% of the 1250 free balance.
	runner := newRunner(t, exchange, ledger, reporter, "0", "1", "USDT,BNB,USDT")

	ok := runner.RunPass(context.Background())

	assert.True(t, ok)
	reporter.AssertExpectations(t)
	reporter.AssertNotCalled(t, "ReportNoOpportunity")
	ledger.AssertExpectations(t)
}

func TestRunPass_DryRunPlacesNoOrders(t *testing.T) {
	exchange := new(mockExchange)
	exchange.On("FreeBalance", mock.Anything, "USDT").Return(d("1250"), nil)
	exchange.On("LatestPrice", mock.Anything, "USDTBNB").Return(d("1.10"), nil)
	exchange.On("LatestPrice", mock.Anything, "BNBUSDT").Return(d("1"), nil)

	reporter := new(mockReporter)
	reporter.On("ReportEstimate", mock.Anything).Once()

	estimator := NewPathProfitEstimator(exchange, d("0"), testLogger())
	selector := NewPathSelector(estimator, d("1"), testLogger())
	executor := NewTradeExecutor(exchange, estimator, new(mockLedger), d("0"), testLogger())

	runner, err := NewRunner(exchange, selector, executor, nil, reporter, RunnerConfig{
		Cycles:          []domain.AssetCycle{mustCycle("USDT,BNB,USDT")},
		CapitalFraction: d("0.8"),
		DryRun:          true,
	}, testLogger())
	require.NoError(t, err)

	runner.RunPass(context.Background())

	exchange.AssertNotCalled(t, "PlaceMarketOrder")
	reporter.AssertExpectations(t)
}

func TestRunPass_SkipsWhileInFlight(t *testing.T) {
	exchange := new(mockExchange)
	reporter := new(mockReporter)
	runner := newRunner(t, exchange, new(mockLedger), reporter, "0", "1", "USDT,BNB,USDT")

	// Simulate a pass still in flight.
	runner.gate.Lock()
	defer runner.gate.Unlock()

	ok := runner.RunPass(context.Background())

	assert.False(t, ok)
	exchange.AssertNotCalled(t, "FreeBalance")
	reporter.AssertNotCalled(t, "ReportNoOpportunity")
}

func TestRunPass_DerivesCapitalFreshEachPass(t *testing.T) {
	exchange := new(mockExchange)
	exchange.On("FreeBalance", mock.Anything, "USDT").Return(d("1000"), nil)
	exchange.On("LatestPrice", mock.Anything, mock.Anything).Return(d("1"), nil)

	reporter := new(mockReporter)
	reporter.On("ReportNoOpportunity")

	runner := newRunner(t, exchange, new(mockLedger), reporter, "0.00075", "1", "USDT,BNB,USDT")

	runner.RunPass(context.Background())
	runner.RunPass(context.Background())

	// The free balance is re-read on every pass, never cached.
	exchange.AssertNumberOfCalls(t, "FreeBalance", 2)
}

func TestRunPass_SurvivesBalanceError(t *testing.T) {
	exchange := new(mockExchange)
	exchange.On("FreeBalance", mock.Anything, "USDT").Return(decimal.Zero,
		assert.AnError)

	reporter := new(mockReporter)
	reporter.On("ReportNoOpportunity").Once()

	runner := newRunner(t, exchange, new(mockLedger), reporter, "0", "1", "USDT,BNB,USDT")

	ok := runner.RunPass(context.Background())

	assert.True(t, ok)
	reporter.AssertExpectations(t)
}

func TestRun_StopsOnContextCancel(t *testing.T) {
	exchange := new(mockExchange)
	exchange.On("FreeBalance", mock.Anything, "USDT").Return(d("1000"), nil)
	exchange.On("LatestPrice", mock.Anything, mock.Anything).Return(d("1"), nil)

	reporter := new(mockReporter)
	reporter.On("ReportNoOpportunity")

	runner := newRunner(t, exchange, new(mockLedger), reporter, "0.00075", "1", "USDT,BNB,USDT")

	ctx, cancel := context.WithCancel(context.Background())
	ticker := newManualTicker()

	done := make(chan error, 1)
	go func() {
		done <- runner.Run(ctx, ticker)
	}()

	ticker.Tick()
	cancel()

	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(2 * time.Second):
		t.Fatal("runner did not stop after cancel")
	}
}

func TestLastPass_TracksCompletedPasses(t *testing.T) {
	exchange := new(mockExchange)
	exchange.On("FreeBalance", mock.Anything, "USDT").Return(d("0"), nil)

	reporter := new(mockReporter)
	reporter.On("ReportNoOpportunity")

	runner := newRunner(t, exchange, new(mockLedger), reporter, "0.00075", "1", "USDT,BNB,USDT")

	assert.True(t, runner.LastPass().IsZero())

	require.True(t, runner.RunPass(context.Background()))
	assert.False(t, runner.LastPass().IsZero())
}
