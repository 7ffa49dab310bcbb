package app

import (
	"context"
	"io"

	"github.com/s9927637/arbitrage-trader/business/engine/domain"
	"github.com/s9927637/arbitrage-trader/internal/logger"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/mock"
)

func testLogger() logger.LoggerInterface {
	return logger.New(io.Discard, logger.LevelError, "test", nil)
}

func d(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

type mockExchange struct {
	mock.Mock
}

func (m *mockExchange) FreeBalance(ctx context.Context, asset string) (decimal.Decimal, error) {
	args := m.Called(ctx, asset)
	return args.Get(0).(decimal.Decimal), args.Error(1)
}

func (m *mockExchange) LatestPrice(ctx context.Context, symbol string) (decimal.Decimal, error) {
	args := m.Called(ctx, symbol)
	return args.Get(0).(decimal.Decimal), args.Error(1)
}

func (m *mockExchange) PlaceMarketOrder(ctx context.Context, symbol string, side OrderSide, amount decimal.Decimal) (OrderResult, error) {
	args := m.Called(ctx, symbol, side, amount)
	return args.Get(0).(OrderResult), args.Error(1)
}

type mockLedger struct {
	mock.Mock
}

func (m *mockLedger) Append(ctx context.Context, outcome domain.TradeOutcome) error {
	args := m.Called(ctx, outcome)
	return args.Error(0)
}

type mockReporter struct {
	mock.Mock
}

func (m *mockReporter) Start(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

func (m *mockReporter) ReportEstimate(est domain.ProfitEstimate) {
	m.Called(est)
}

func (m *mockReporter) ReportOutcome(outcome domain.TradeOutcome) {
	m.Called(outcome)
}

func (m *mockReporter) ReportNoOpportunity() {
	m.Called()
}

func (m *mockReporter) Stop() error {
	args := m.Called()
	return args.Error(0)
}

func mustCycle(s string) domain.AssetCycle {
	cycle, err := domain.ParseCycle(s)
	if err != nil {
		panic(err)
	}
	return cycle
}
