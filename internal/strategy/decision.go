package strategy

import (
	"time"

	"daytraderv1/internal/analysis"
)

// NextAction is the action a decision check recommends.
type NextAction string

const (
	ActionBuy  NextAction = "buy"
	ActionSell NextAction = "sell"
	ActionWait NextAction = "wait"
)

// DecisionDetails carries the inputs a decision was made from, so callers
// can render the "why" alongside the verdict.
type DecisionDetails struct {
	PriceAnalysis *analysis.Snapshot `json:"price_analysis,omitempty"`
	ServiceID     int64              `json:"service_id"`
	StockSymbol   string             `json:"stock_symbol"`
	CurrentPrice  float64            `json:"current_price"`
}

// DecisionResult is the outcome of a read-only buy/sell condition check.
// Built fresh per check, returned directly to the caller, never persisted.
type DecisionResult struct {
	ShouldProceed bool            `json:"should_proceed"`
	Reason        string          `json:"reason"`
	Timestamp     time.Time       `json:"timestamp"`
	Details       DecisionDetails `json:"details"`
	NextAction    NextAction      `json:"next_action"`
}

// NewDecision builds a DecisionResult for a predicate outcome.
// met selects between the met/notMet reasons and between action and wait.
func NewDecision(met bool, metReason, notMetReason string, action NextAction, details DecisionDetails) *DecisionResult {
	d := &DecisionResult{
		ShouldProceed: met,
		Timestamp:     time.Now().UTC(),
		Details:       details,
		NextAction:    ActionWait,
	}
	if met {
		d.Reason = metReason
		d.NextAction = action
	} else {
		d.Reason = notMetReason
	}
	return d
}
