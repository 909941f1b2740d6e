// Package model defines the core domain types shared across the trading
// engine: trading services (accounts), transactions, daily prices, and the
// port interfaces that decouple business logic from concrete storage.
package model

import "fmt"

// ServiceState is the lifecycle state of a trading service.
type ServiceState string

const (
	StateActive   ServiceState = "ACTIVE"
	StateInactive ServiceState = "INACTIVE"
	StatePaused   ServiceState = "PAUSED"
	StateError    ServiceState = "ERROR"
)

// IsValid reports whether s is one of the known service states.
func (s ServiceState) IsValid() bool {
	switch s {
	case StateActive, StateInactive, StatePaused, StateError:
		return true
	}
	return false
}

// TradingMode selects which half of the strategy a service runs.
type TradingMode string

const (
	ModeBuy  TradingMode = "BUY"
	ModeSell TradingMode = "SELL"
	ModeHold TradingMode = "HOLD"
)

// IsValid reports whether m is one of the known trading modes.
func (m TradingMode) IsValid() bool {
	switch m {
	case ModeBuy, ModeSell, ModeHold:
		return true
	}
	return false
}

// TransactionState is the lifecycle state of a trading transaction.
// CLOSED and CANCELLED are terminal.
type TransactionState string

const (
	TxnOpen      TransactionState = "OPEN"
	TxnClosed    TransactionState = "CLOSED"
	TxnCancelled TransactionState = "CANCELLED"
)

// IsValid reports whether t is one of the known transaction states.
func (t TransactionState) IsValid() bool {
	switch t {
	case TxnOpen, TxnClosed, TxnCancelled:
		return true
	}
	return false
}

// IsTerminal reports whether no further mutation is allowed.
func (t TransactionState) IsTerminal() bool {
	return t == TxnClosed || t == TxnCancelled
}

// ParseServiceState validates and converts a raw string.
func ParseServiceState(s string) (ServiceState, error) {
	st := ServiceState(s)
	if !st.IsValid() {
		return "", fmt.Errorf("invalid service state %q", s)
	}
	return st, nil
}

// ParseTradingMode validates and converts a raw string.
func ParseTradingMode(s string) (TradingMode, error) {
	m := TradingMode(s)
	if !m.IsValid() {
		return "", fmt.Errorf("invalid trading mode %q", s)
	}
	return m, nil
}

// ParseTransactionState validates and converts a raw string.
func ParseTransactionState(s string) (TransactionState, error) {
	t := TransactionState(s)
	if !t.IsValid() {
		return "", fmt.Errorf("invalid transaction state %q", s)
	}
	return t, nil
}
