package infra

import (
	"context"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/s9927637/arbitrage-trader/business/engine/domain"
	"github.com/s9927637/arbitrage-trader/pkg/ui"
)

// TUIReporter implements app.Reporter on top of the Bubble Tea dashboard.
type TUIReporter struct {
	program *tea.Program
	done    chan struct{}
}

// NewTUIReporter creates a TUI reporter. The program is started by Start
// and owns the terminal until Stop.
func NewTUIReporter() *TUIReporter {
	return &TUIReporter{
		program: tea.NewProgram(ui.New(), tea.WithAltScreen()),
		done:    make(chan struct{}),
	}
}

// Start runs the TUI event loop in the background.
func (r *TUIReporter) Start(ctx context.Context) error {
	go func() {
		defer close(r.done)
		_, _ = r.program.Run()
	}()
	return nil
}

// ReportEstimate forwards the best estimate of a pass to the dashboard.
func (r *TUIReporter) ReportEstimate(est domain.ProfitEstimate) {
	r.program.Send(ui.EstimateMsg{Estimate: est})
}

// ReportOutcome forwards an execution result to the dashboard.
func (r *TUIReporter) ReportOutcome(outcome domain.TradeOutcome) {
	r.program.Send(ui.OutcomeMsg{Outcome: outcome})
}

// ReportNoOpportunity records a pass without an executable opportunity.
func (r *TUIReporter) ReportNoOpportunity() {
	r.program.Send(ui.NoOpportunityMsg{At: time.Now()})
}

// Stop quits the TUI and waits for the terminal to be released.
func (r *TUIReporter) Stop() error {
	r.program.Quit()
	select {
	case <-r.done:
	case <-time.After(2 * time.Second):
	}
	return nil
}
