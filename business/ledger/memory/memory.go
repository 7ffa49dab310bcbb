// Package memory provides an in-process ledger used for dry runs and tests.
package memory

import (
	"context"
	"sync"

	"github.com/s9927637/arbitrage-trader/business/engine/app"
	"github.com/s9927637/arbitrage-trader/business/engine/domain"
)

var _ app.Ledger = (*Ledger)(nil)

// Ledger keeps trade outcomes in memory, in append order.
type Ledger struct {
	mu       sync.Mutex
	outcomes []domain.TradeOutcome
}

func New() *Ledger {
	return &Ledger{}
}

// Append records the outcome. It never fails.
func (l *Ledger) Append(_ context.Context, outcome domain.TradeOutcome) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.outcomes = append(l.outcomes, outcome)
	return nil
}

// Outcomes returns a copy of the recorded outcomes in append order.
func (l *Ledger) Outcomes() []domain.TradeOutcome {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]domain.TradeOutcome, len(l.outcomes))
	copy(out, l.outcomes)
	return out
}
