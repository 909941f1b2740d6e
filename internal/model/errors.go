package model

import "errors"

// Sentinel errors shared across store and provider implementations.
var (
	ErrServiceNotFound     = errors.New("service not found")
	ErrTransactionNotFound = errors.New("transaction not found")
	ErrSymbolNotFound      = errors.New("symbol not found")
)
