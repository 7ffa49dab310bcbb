// Package ui provides the Bubble Tea TUI for the arbitrage trader.
package ui

import (
	"fmt"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/s9927637/arbitrage-trader/business/engine/domain"
	"github.com/shopspring/decimal"
)

const maxOutcomes = 20

// outcomeRow is a rendered line of the trade history panel.
type outcomeRow struct {
	when    string
	cycle   string
	status  domain.TradeStatus
	profit  decimal.Decimal
	legs    string
	failure string
}

// Model is the main Bubble Tea model for the TUI dashboard.
type Model struct {
	width  int
	height int
	ready  bool

	passes      uint64
	trades      uint64
	failures    uint64
	totalProfit decimal.Decimal

	lastEstimate *domain.ProfitEstimate
	lastPass     time.Time
	outcomes     []outcomeRow
	logs         []string

	quitting bool
}

// New creates a new TUI model.
func New() Model {
	return Model{
		outcomes: make([]outcomeRow, 0, maxOutcomes),
		logs:     make([]string, 0, 8),
	}
}

// Init initializes the TUI model.
func (m Model) Init() tea.Cmd {
	return tickCmd()
}

func tickCmd() tea.Cmd {
	return tea.Tick(500*time.Millisecond, func(t time.Time) tea.Msg {
		return TickMsg{}
	})
}

// Update handles messages and updates the model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c":
			m.quitting = true
			return m, tea.Quit
		case "c":
			m.outcomes = m.outcomes[:0]
			return m, nil
		}

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.ready = true

	case TickMsg:
		return m, tickCmd()

	case EstimateMsg:
		est := msg.Estimate
		m.lastEstimate = &est
		m.passes++
		m.lastPass = time.Now()

	case NoOpportunityMsg:
		m.passes++
		m.lastPass = msg.At

	case OutcomeMsg:
		o := msg.Outcome
		m.trades++
		if o.Status == domain.StatusFailed {
			m.failures++
		} else {
			m.totalProfit = m.totalProfit.Add(o.ActualProfit)
		}
		row := outcomeRow{
			when:    o.Timestamp.Format("15:04:05"),
			cycle:   o.Cycle.String(),
			status:  o.Status,
			profit:  o.ActualProfit,
			legs:    fmt.Sprintf("%d/%d", o.LegsFilled, len(o.Cycle.Legs())),
			failure: o.FailureReason,
		}
		m.outcomes = append([]outcomeRow{row}, m.outcomes...)
		if len(m.outcomes) > maxOutcomes {
			m.outcomes = m.outcomes[:maxOutcomes]
		}

	case LogMsg:
		line := fmt.Sprintf("[%s] %s", msg.Level, msg.Message)
		m.logs = append(m.logs, line)
		if len(m.logs) > 8 {
			m.logs = m.logs[1:]
		}
	}

	return m, nil
}

// View renders the dashboard.
func (m Model) View() string {
	if m.quitting {
		return "Arbitrage trader stopped.\n"
	}
	if !m.ready {
		return "Loading..."
	}

	var b strings.Builder

	b.WriteString(TitleStyle.Render("ARBITRAGE TRADER"))
	b.WriteString("\n\n")
	b.WriteString(m.statsView())
	b.WriteString("\n")
	b.WriteString(m.estimateView())
	b.WriteString("\n")
	b.WriteString(m.historyView())
	b.WriteString("\n")
	b.WriteString(HelpStyle.Render("q: quit  c: clear history"))

	return b.String()
}

func (m Model) statsView() string {
	profit := m.totalProfit.StringFixed(4)
	style := PositiveValue
	if m.totalProfit.IsNegative() {
		style = NegativeValue
	}

	lastPass := "never"
	if !m.lastPass.IsZero() {
		lastPass = m.lastPass.Format("15:04:05")
	}

	stats := fmt.Sprintf("Passes: %d   Trades: %d   Failed: %d   Profit: %s   Last pass: %s",
		m.passes, m.trades, m.failures, style.Render(profit), lastPass)
	return BoxStyle.Render(stats)
}

func (m Model) estimateView() string {
	if m.lastEstimate == nil {
		return BoxStyle.Render(MutedValue.Render("No opportunity selected yet"))
	}
	est := m.lastEstimate
	line := fmt.Sprintf("%s   capital %s   expected %s %s",
		est.Cycle.String(),
		est.StartingCapital.StringFixed(4),
		est.ExpectedProfit.StringFixed(4),
		est.Cycle.BaseAsset(),
	)
	return BoxStyle.Render(HeaderStyle.Render("Last selection") + "\n" + line)
}

func (m Model) historyView() string {
	var rows []string
	rows = append(rows, HeaderStyle.Render("Recent trades"))
	if len(m.outcomes) == 0 {
		rows = append(rows, MutedValue.Render("  none yet"))
	}
	for _, o := range m.outcomes {
		status := SuccessStyle.Render(string(o.status))
		detail := "profit " + o.profit.StringFixed(4)
		if o.status == domain.StatusFailed {
			status = FailedStyle.Render(string(o.status))
			detail = o.failure
		}
		rows = append(rows, fmt.Sprintf("  %s  %-22s  legs %s  %s  %s",
			o.when, o.cycle, o.legs, status, detail))
	}
	return BoxStyle.Render(lipgloss.JoinVertical(lipgloss.Left, rows...))
}
