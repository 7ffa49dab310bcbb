// Package ui provides the Bubble Tea TUI for the arbitrage trader.
package ui

import (
	"time"

	"github.com/s9927637/arbitrage-trader/business/engine/domain"
)

// Message types for TUI updates

// EstimateMsg is sent when a pass selects an opportunity.
type EstimateMsg struct {
	Estimate domain.ProfitEstimate
}

// OutcomeMsg is sent when an execution attempt finishes.
type OutcomeMsg struct {
	Outcome domain.TradeOutcome
}

// NoOpportunityMsg is sent when a pass found nothing above threshold.
type NoOpportunityMsg struct {
	At time.Time
}

// LogMsg is sent to display a log line in the UI.
type LogMsg struct {
	Level   string // "info", "warn", "error"
	Message string
}

// TickMsg is sent periodically for UI refreshes.
type TickMsg struct{}
