package domain

import (
	"testing"

	"github.com/s9927637/arbitrage-trader/internal/apperror"
	"github.com/shopspring/decimal"
)

func TestParseCycle(t *testing.T) {
	tests := []struct {
		name       string
		input      string
		wantAssets []string
		wantErr    bool
	}{
		{
			name:       "three_asset_cycle",
			input:      "USDT,BNB,ETH,USDT",
			wantAssets: []string{"USDT", "BNB", "ETH", "USDT"},
		},
		{
			name:       "lowercase_and_spaces_normalized",
			input:      " usdt, bnb ,eth, usdt ",
			wantAssets: []string{"USDT", "BNB", "ETH", "USDT"},
		},
		{
			name:       "four_asset_cycle",
			input:      "USDT,BNB,ETH,BTC,USDT",
			wantAssets: []string{"USDT", "BNB", "ETH", "BTC", "USDT"},
		},
		{
			name:    "open_cycle_rejected",
			input:   "USDT,BNB,ETH",
			wantErr: true,
		},
		{
			name:    "too_short",
			input:   "USDT,USDT",
			wantErr: true,
		},
		{
			name:    "empty",
			input:   "",
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cycle, err := ParseCycle(tt.input)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("ParseCycle(%q) expected error, got %v", tt.input, cycle)
				}
				if !apperror.IsCode(err, apperror.CodeInvalidInput) {
					t.Errorf("error code = %v, want %v", apperror.GetCode(err), apperror.CodeInvalidInput)
				}
				return
			}
			if err != nil {
				t.Fatalf("ParseCycle(%q) error: %v", tt.input, err)
			}
			if len(cycle.Assets) != len(tt.wantAssets) {
				t.Fatalf("Assets = %v, want %v", cycle.Assets, tt.wantAssets)
			}
			for i := range tt.wantAssets {
				if cycle.Assets[i] != tt.wantAssets[i] {
					t.Errorf("Assets[%d] = %s, want %s", i, cycle.Assets[i], tt.wantAssets[i])
				}
			}
		})
	}
}

func TestAssetCycle_Legs(t *testing.T) {
	cycle, err := ParseCycle("USDT,BNB,ETH,USDT")
	if err != nil {
		t.Fatalf("ParseCycle error: %v", err)
	}

	legs := cycle.Legs()
	want := []TradeLeg{
		{FromAsset: "USDT", ToAsset: "BNB", Symbol: "USDTBNB"},
		{FromAsset: "BNB", ToAsset: "ETH", Symbol: "BNBETH"},
		{FromAsset: "ETH", ToAsset: "USDT", Symbol: "ETHUSDT"},
	}

	if len(legs) != len(want) {
		t.Fatalf("len(legs) = %d, want %d", len(legs), len(want))
	}
	for i := range want {
		if legs[i] != want[i] {
			t.Errorf("legs[%d] = %+v, want %+v", i, legs[i], want[i])
		}
	}
}

func TestAssetCycle_LegCountMatchesLength(t *testing.T) {
	// A cycle of N assets always yields N-1 legs.
	inputs := []string{
		"USDT,BNB,USDT",
		"USDT,BNB,ETH,USDT",
		"USDT,BNB,ETH,BTC,USDT",
	}
	for _, in := range inputs {
		cycle, err := ParseCycle(in)
		if err != nil {
			t.Fatalf("ParseCycle(%q) error: %v", in, err)
		}
		if got, want := len(cycle.Legs()), len(cycle.Assets)-1; got != want {
			t.Errorf("%q: legs = %d, want %d", in, got, want)
		}
	}
}

func TestAssetCycle_BaseAsset(t *testing.T) {
	cycle, _ := ParseCycle("USDT,BNB,ETH,USDT")
	if got := cycle.BaseAsset(); got != "USDT" {
		t.Errorf("BaseAsset = %s, want USDT", got)
	}
}

func TestProfitEstimate_IsProfitable(t *testing.T) {
	cycle, _ := ParseCycle("USDT,BNB,ETH,USDT")
	min := decimal.NewFromInt(1)

	tests := []struct {
		name     string
		starting string
		final    string
		want     bool
	}{
		{"above_threshold", "1000", "1002", true},
		{"exactly_threshold", "1000", "1001", false},
		{"below_threshold", "1000", "1000.5", false},
		{"negative_profit", "1000", "998", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			est := NewProfitEstimate(cycle,
				decimal.RequireFromString(tt.starting),
				decimal.RequireFromString(tt.final))
			if got := est.IsProfitable(min); got != tt.want {
				t.Errorf("IsProfitable = %v, want %v (profit %s)", got, tt.want, est.ExpectedProfit)
			}
		})
	}
}
