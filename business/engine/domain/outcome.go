package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// TradeStatus is the terminal state of an execution attempt.
type TradeStatus string

const (
	StatusSuccess TradeStatus = "SUCCESS"
	StatusFailed  TradeStatus = "FAILED"
)

// TradeOutcome records one execution attempt. It is created once per
// attempt and appended to the ledger, never updated or deleted.
//
// There is no rollback on partial failure: a Failed outcome may leave the
// account holding an intermediate asset of the cycle. ActualProfit is only
// meaningful when Status is StatusSuccess; on failure it carries zero.
type TradeOutcome struct {
	Timestamp      time.Time
	Cycle          AssetCycle
	TradedAmount   decimal.Decimal
	EstimatedCost  decimal.Decimal
	ExpectedProfit decimal.Decimal
	ActualProfit   decimal.Decimal
	Status         TradeStatus
	LegsFilled     int
	FailureReason  string
}

// Succeeded reports whether every leg of the cycle filled.
func (o TradeOutcome) Succeeded() bool {
	return o.Status == StatusSuccess
}
