package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// Transaction records one buy and its eventual sale (or cancellation).
// Created OPEN by the strategy executor on a buy; transitions to CLOSED when
// sold (sale price set, gain/loss computed) or CANCELLED (purchase refunded).
type Transaction struct {
	ID            int64            `json:"id"`
	ServiceID     int64            `json:"service_id"`
	StockSymbol   string           `json:"stock_symbol"`
	Shares        int64            `json:"shares"`
	State         TransactionState `json:"state"`
	PurchasePrice decimal.Decimal  `json:"purchase_price"`
	SalePrice     *decimal.Decimal `json:"sale_price,omitempty"`
	GainLoss      *decimal.Decimal `json:"gain_loss,omitempty"`
	PurchaseDate  time.Time        `json:"purchase_date"`
	SaleDate      *time.Time       `json:"sale_date,omitempty"`
	Notes         string           `json:"notes,omitempty"`
}

// CalculateGainLoss returns (salePrice - purchasePrice) * shares.
func (t *Transaction) CalculateGainLoss(salePrice decimal.Decimal) decimal.Decimal {
	return salePrice.Sub(t.PurchasePrice).Mul(decimal.NewFromInt(t.Shares))
}

// IsComplete reports whether the transaction reached a terminal state.
func (t *Transaction) IsComplete() bool {
	return t.State.IsTerminal()
}

// CanBeCancelled reports whether cancellation is still allowed.
func (t *Transaction) CanBeCancelled() bool {
	return t.State == TxnOpen
}
