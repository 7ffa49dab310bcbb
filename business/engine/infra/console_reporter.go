// Package infra contains infrastructure adapters for the trading engine context.
package infra

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/s9927637/arbitrage-trader/business/engine/domain"
)

// ConsoleReporter implements app.Reporter for CLI output.
type ConsoleReporter struct {
	out io.Writer
}

// NewConsoleReporter creates a new ConsoleReporter.
func NewConsoleReporter() *ConsoleReporter {
	return &ConsoleReporter{
		out: os.Stdout,
	}
}

// Start initializes the console reporter.
func (r *ConsoleReporter) Start(ctx context.Context) error {
	fmt.Fprintln(r.out, "Arbitrage Trader Started")
	fmt.Fprintln(r.out, "========================")
	return nil
}

// ReportEstimate outputs the best estimate of a pass.
func (r *ConsoleReporter) ReportEstimate(est domain.ProfitEstimate) {
	fmt.Fprintln(r.out, "")
	fmt.Fprintln(r.out, "================================================================================")
	fmt.Fprintln(r.out, "OPPORTUNITY SELECTED")
	fmt.Fprintln(r.out, "================================================================================")
	fmt.Fprintf(r.out, "Cycle:            %s\n", est.Cycle.String())
	fmt.Fprintf(r.out, "Capital:          %s %s\n", est.StartingCapital.StringFixed(4), est.Cycle.BaseAsset())
	fmt.Fprintf(r.out, "Projected Final:  %s %s\n", est.FinalCapital.StringFixed(4), est.Cycle.BaseAsset())
	fmt.Fprintf(r.out, "Expected Profit:  %s %s\n", est.ExpectedProfit.StringFixed(4), est.Cycle.BaseAsset())
	fmt.Fprintln(r.out, "================================================================================")
}

// ReportOutcome outputs the result of an execution attempt.
func (r *ConsoleReporter) ReportOutcome(outcome domain.TradeOutcome) {
	fmt.Fprintln(r.out, "")
	fmt.Fprintln(r.out, "================================================================================")
	fmt.Fprintf(r.out, "TRADE %s\n", outcome.Status)
	fmt.Fprintln(r.out, "================================================================================")
	fmt.Fprintf(r.out, "Timestamp:        %s\n", outcome.Timestamp.Format(time.RFC3339))
	fmt.Fprintf(r.out, "Cycle:            %s\n", outcome.Cycle.String())
	fmt.Fprintf(r.out, "Traded Amount:    %s %s\n", outcome.TradedAmount.StringFixed(4), outcome.Cycle.BaseAsset())
	fmt.Fprintf(r.out, "Legs Filled:      %d/%d\n", outcome.LegsFilled, len(outcome.Cycle.Legs()))
	fmt.Fprintln(r.out, "--------------------------------------------------------------------------------")
	fmt.Fprintf(r.out, "Estimated Cost:   %s\n", outcome.EstimatedCost.StringFixed(4))
	fmt.Fprintf(r.out, "Expected Profit:  %s\n", outcome.ExpectedProfit.StringFixed(4))
	if outcome.Succeeded() {
		fmt.Fprintf(r.out, "Actual Profit:    %s\n", outcome.ActualProfit.StringFixed(4))
	} else {
		fmt.Fprintf(r.out, "Failure:          %s\n", outcome.FailureReason)
	}
	fmt.Fprintln(r.out, "================================================================================")
}

// ReportNoOpportunity notes a pass that found nothing above threshold.
func (r *ConsoleReporter) ReportNoOpportunity() {
	fmt.Fprintf(r.out, "[%s] no opportunity\n", time.Now().Format("15:04:05"))
}

// Stop gracefully shuts down the console reporter.
func (r *ConsoleReporter) Stop() error {
	fmt.Fprintln(r.out, "")
	fmt.Fprintln(r.out, "Arbitrage Trader Stopped")
	return nil
}
