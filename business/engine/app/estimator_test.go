package app

import (
	"context"
	"errors"
	"testing"

	"github.com/s9927637/arbitrage-trader/internal/apperror"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func TestEstimate_HandComputedScenario(t *testing.T) {
	exchange := new(mockExchange)
	exchange.On("LatestPrice", mock.Anything, "USDTBNB").Return(d("0.002"), nil)
	exchange.On("LatestPrice", mock.Anything, "BNBETH").Return(d("0.2"), nil)
	exchange.On("LatestPrice", mock.Anything, "ETHUSDT").Return(d("2600"), nil)

	estimator := NewPathProfitEstimator(exchange, d("0.00075"), testLogger())
	cycle := mustCycle("USDT,BNB,ETH,USDT")

	est, err := estimator.Estimate(context.Background(), cycle, d("1000"))
	require.NoError(t, err)

	// 1000 * 0.002 * k * 0.2 * k * 2600 * k with k = 0.99925
	// = 1037.66175456125, profit 37.66175456125
	want := d("37.66175456125")
	diff := est.ExpectedProfit.Sub(want).Abs()
	assert.True(t, diff.LessThan(d("0.000000001")),
		"expected profit %s, want %s (diff %s)", est.ExpectedProfit, want, diff)
	assert.True(t, est.StartingCapital.Equal(d("1000")))

	// Read-only: estimation never places orders.
	exchange.AssertNotCalled(t, "PlaceMarketOrder")

	// Idempotent: a second call with the same prices yields the same values.
	again, err := estimator.Estimate(context.Background(), cycle, d("1000"))
	require.NoError(t, err)
	assert.True(t, again.ExpectedProfit.Equal(est.ExpectedProfit))
	assert.True(t, again.FinalCapital.Equal(est.FinalCapital))
	exchange.AssertNotCalled(t, "PlaceMarketOrder")
}

func TestEstimate_FeePerLeg(t *testing.T) {
	// With all prices at 1, the final capital is capital * (1-fee)^(N-1):
	// every leg applies exactly one price multiplication and one fee
	// deduction.
	tests := []struct {
		name      string
		cycle     string
		wantFinal string
	}{
		{"two_legs", "USDT,BNB,USDT", "81"},
		{"three_legs", "USDT,BNB,ETH,USDT", "72.9"},
		{"four_legs", "USDT,BNB,ETH,BTC,USDT", "65.61"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			exchange := new(mockExchange)
			exchange.On("LatestPrice", mock.Anything, mock.Anything).Return(d("1"), nil)

			estimator := NewPathProfitEstimator(exchange, d("0.1"), testLogger())
			est, err := estimator.Estimate(context.Background(), mustCycle(tt.cycle), d("100"))
			require.NoError(t, err)
			assert.True(t, est.FinalCapital.Equal(d(tt.wantFinal)),
				"final = %s, want %s", est.FinalCapital, tt.wantFinal)

			cycle := mustCycle(tt.cycle)
			exchange.AssertNumberOfCalls(t, "LatestPrice", len(cycle.Legs()))
		})
	}
}

func TestEstimate_PriceUnavailable(t *testing.T) {
	exchange := new(mockExchange)
	exchange.On("LatestPrice", mock.Anything, "USDTBNB").Return(d("0.002"), nil)
	exchange.On("LatestPrice", mock.Anything, "BNBETH").Return(decimal.Zero,
		apperror.New(apperror.CodePriceUnavailable))

	estimator := NewPathProfitEstimator(exchange, d("0.00075"), testLogger())

	_, err := estimator.Estimate(context.Background(), mustCycle("USDT,BNB,ETH,USDT"), d("1000"))
	require.Error(t, err)
	assert.True(t, apperror.IsCode(err, apperror.CodePriceUnavailable))
}

func TestEstimate_NonPositivePrice(t *testing.T) {
	exchange := new(mockExchange)
	exchange.On("LatestPrice", mock.Anything, mock.Anything).Return(decimal.Zero, nil)

	estimator := NewPathProfitEstimator(exchange, d("0.00075"), testLogger())

	_, err := estimator.Estimate(context.Background(), mustCycle("USDT,BNB,ETH,USDT"), d("1000"))
	require.Error(t, err)
	assert.True(t, apperror.IsCode(err, apperror.CodePriceUnavailable))
}

func TestEstimate_GenericLookupErrorBecomesPriceUnavailable(t *testing.T) {
	exchange := new(mockExchange)
	exchange.On("LatestPrice", mock.Anything, mock.Anything).Return(decimal.Zero,
		errors.New("connection reset"))

	estimator := NewPathProfitEstimator(exchange, d("0.00075"), testLogger())

	_, err := estimator.Estimate(context.Background(), mustCycle("USDT,BNB,ETH,USDT"), d("1000"))
	require.Error(t, err)
	assert.True(t, apperror.IsCode(err, apperror.CodePriceUnavailable))
}

func TestEstimate_InvalidCapital(t *testing.T) {
	exchange := new(mockExchange)
	estimator := NewPathProfitEstimator(exchange, d("0.00075"), testLogger())

	for _, capital := range []string{"0", "-10"} {
		_, err := estimator.Estimate(context.Background(), mustCycle("USDT,BNB,ETH,USDT"), d(capital))
		require.Error(t, err, "capital %s", capital)
		assert.True(t, apperror.IsCode(err, apperror.CodeInvalidInput))
	}
	exchange.AssertNotCalled(t, "LatestPrice")
}
