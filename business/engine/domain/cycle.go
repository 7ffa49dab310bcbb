// Package domain contains the core domain types for the trading engine context.
package domain

import (
	"strings"

	"github.com/s9927637/arbitrage-trader/internal/apperror"
)

// TradeLeg represents a single conversion step between two adjacent assets
// of a cycle. Symbol is the exchange pair symbol for the conversion.
type TradeLeg struct {
	FromAsset string
	ToAsset   string
	Symbol    string
}

// AssetCycle is an ordered loop of asset conversions that starts and ends
// in the same asset. It is configuration data, built once at startup.
type AssetCycle struct {
	Assets []string
}

// ParseCycle builds an AssetCycle from a comma-separated list of asset
// symbols, e.g. "USDT,BNB,ETH,USDT".
func ParseCycle(s string) (AssetCycle, error) {
	parts := strings.Split(s, ",")
	assets := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.ToUpper(strings.TrimSpace(p))
		if p == "" {
			continue
		}
		assets = append(assets, p)
	}
	cycle := AssetCycle{Assets: assets}
	if err := cycle.Validate(); err != nil {
		return AssetCycle{}, err
	}
	return cycle, nil
}

// Validate checks the structural invariants of the cycle.
func (c AssetCycle) Validate() error {
	if len(c.Assets) < 3 {
		return apperror.New(apperror.CodeInvalidInput,
			apperror.WithMessage("cycle must contain at least three assets"),
			apperror.WithContext("cycle "+c.String()),
		)
	}
	if c.Assets[0] != c.Assets[len(c.Assets)-1] {
		return apperror.New(apperror.CodeInvalidInput,
			apperror.WithMessage("cycle must start and end in the same asset"),
			apperror.WithContext("cycle "+c.String()),
		)
	}
	return nil
}

// BaseAsset returns the asset the cycle starts and ends in. Capital is
// always measured in the base asset.
func (c AssetCycle) BaseAsset() string {
	if len(c.Assets) == 0 {
		return ""
	}
	return c.Assets[0]
}

// Legs derives the conversion steps from adjacent asset pairs. A cycle of
// N assets yields N-1 legs.
func (c AssetCycle) Legs() []TradeLeg {
	if len(c.Assets) < 2 {
		return nil
	}
	legs := make([]TradeLeg, 0, len(c.Assets)-1)
	for i := 0; i < len(c.Assets)-1; i++ {
		from, to := c.Assets[i], c.Assets[i+1]
		legs = append(legs, TradeLeg{
			FromAsset: from,
			ToAsset:   to,
			Symbol:    from + to,
		})
	}
	return legs
}

// String renders the cycle in its configuration form.
func (c AssetCycle) String() string {
	return strings.Join(c.Assets, ",")
}

// Equal reports whether two cycles contain the same asset sequence.
func (c AssetCycle) Equal(other AssetCycle) bool {
	if len(c.Assets) != len(other.Assets) {
		return false
	}
	for i := range c.Assets {
		if c.Assets[i] != other.Assets[i] {
			return false
		}
	}
	return true
}
