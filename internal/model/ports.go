package model

import (
	"context"
)

// ── Port Interfaces ──
// These interfaces decouple the decision engine from concrete collaborators
// (SQLite persistence, market-data source, Redis events). Each implementation
// satisfies one or more of these interfaces.

// PriceProvider supplies recent closing prices for a symbol, oldest to
// newest. An unknown symbol returns ErrSymbolNotFound; a known symbol with
// little history returns a short (possibly empty) slice rather than an error.
type PriceProvider interface {
	RecentCloses(ctx context.Context, symbol string, lookbackDays int) ([]float64, error)
}

// StoreTx exposes the mutations available inside one store transaction.
// All calls either commit together or roll back together.
type StoreTx interface {
	// UpdateService persists balance, shares, counters, and gain/loss.
	UpdateService(svc *Service) error

	// InsertTransaction inserts a new transaction row and sets its ID.
	InsertTransaction(txn *Transaction) error

	// UpdateTransaction persists state, sale fields, and notes.
	UpdateTransaction(txn *Transaction) error

	// OpenTransactions returns the service's OPEN transactions,
	// oldest purchase first.
	OpenTransactions(serviceID int64) ([]Transaction, error)
}

// ServiceStore loads trading services and supplies the transaction boundary
// the strategy executor runs inside.
type ServiceStore interface {
	// GetService loads one service by ID.
	GetService(ctx context.Context, id int64) (*Service, error)

	// ListActiveServices returns services with state ACTIVE and is_active set.
	ListActiveServices(ctx context.Context) ([]Service, error)

	// GetTransaction loads one transaction by ID.
	GetTransaction(ctx context.Context, id int64) (*Transaction, error)

	// WithTx runs fn inside a single all-or-nothing transaction.
	// A non-nil error from fn rolls back every mutation made through tx.
	WithTx(ctx context.Context, fn func(tx StoreTx) error) error
}

// EventPublisher emits structured entity-update events after a successful
// mutation. Implementations must not fail the trade on publish errors.
type EventPublisher interface {
	// PublishServiceUpdate emits a service_update event with the fresh snapshot.
	PublishServiceUpdate(ctx context.Context, action string, svc *Service) error

	// PublishTransactionUpdate emits a transaction_update event.
	PublishTransactionUpdate(ctx context.Context, action string, txn *Transaction) error
}
