package execution

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"daytraderv1/internal/model"
)

// RuleViolation is a business-rule failure (insufficient funds, wrong state).
// It reaches callers as a structured result message, never as a crash.
type RuleViolation struct {
	Message string
}

func (e *RuleViolation) Error() string { return e.Message }

func violationf(format string, args ...interface{}) error {
	return &RuleViolation{Message: fmt.Sprintf(format, args...)}
}

// CreateBuyTransaction validates and applies one buy inside the supplied
// store transaction: inserts an OPEN transaction row, debits the service
// balance, and bumps its counters. The service entity is mutated in place so
// the caller holds the fresh snapshot after commit.
func CreateBuyTransaction(tx model.StoreTx, svc *model.Service, shares int64, price decimal.Decimal, now time.Time) (*model.Transaction, error) {
	if shares <= 0 {
		return nil, violationf("Shares must be greater than 0")
	}
	if price.LessThanOrEqual(decimal.Zero) {
		return nil, violationf("Purchase price must be greater than 0")
	}
	if !svc.CanBuy() {
		return nil, violationf("Service %d cannot buy (state: %s, mode: %s)", svc.ID, svc.State, svc.Mode)
	}

	cost := price.Mul(decimal.NewFromInt(shares))
	if cost.GreaterThan(svc.CurrentBalance) {
		return nil, violationf("Insufficient funds. Required: $%s, Available: $%s",
			cost.StringFixed(2), svc.CurrentBalance.StringFixed(2))
	}

	txn := &model.Transaction{
		ServiceID:     svc.ID,
		StockSymbol:   svc.StockSymbol,
		Shares:        shares,
		State:         model.TxnOpen,
		PurchasePrice: price,
		PurchaseDate:  now,
	}
	if err := tx.InsertTransaction(txn); err != nil {
		return nil, fmt.Errorf("insert transaction: %w", err)
	}

	svc.CurrentBalance = svc.CurrentBalance.Sub(cost)
	svc.CurrentShares += shares
	svc.BuyCount++
	svc.UpdatedAt = now
	if err := tx.UpdateService(svc); err != nil {
		return nil, fmt.Errorf("update service: %w", err)
	}
	return txn, nil
}

// CompleteTransaction closes an OPEN transaction as sold: sets sale price,
// sale date, and gain/loss, credits the sale amount back to the service
// balance, and folds the gain/loss into the service total.
func CompleteTransaction(tx model.StoreTx, svc *model.Service, txn *model.Transaction, salePrice decimal.Decimal, now time.Time) error {
	if txn.State != model.TxnOpen {
		return violationf("Transaction %d is not open (state: %s)", txn.ID, txn.State)
	}
	if salePrice.LessThanOrEqual(decimal.Zero) {
		return violationf("Sale price must be greater than 0")
	}

	gain := txn.CalculateGainLoss(salePrice)
	txn.State = model.TxnClosed
	txn.SalePrice = &salePrice
	txn.SaleDate = &now
	txn.GainLoss = &gain
	if err := tx.UpdateTransaction(txn); err != nil {
		return fmt.Errorf("update transaction: %w", err)
	}

	revenue := salePrice.Mul(decimal.NewFromInt(txn.Shares))
	svc.CurrentBalance = svc.CurrentBalance.Add(revenue)
	svc.TotalGainLoss = svc.TotalGainLoss.Add(gain)
	svc.UpdatedAt = now
	if err := tx.UpdateService(svc); err != nil {
		return fmt.Errorf("update service: %w", err)
	}
	return nil
}

// CancelTransaction voids an OPEN transaction and refunds its purchase
// amount to the service balance. The reason lands in the notes field.
func CancelTransaction(tx model.StoreTx, svc *model.Service, txn *model.Transaction, reason string, now time.Time) error {
	if !txn.CanBeCancelled() {
		return violationf("Transaction %d cannot be cancelled (state: %s)", txn.ID, txn.State)
	}

	txn.State = model.TxnCancelled
	txn.Notes = "Cancelled: " + reason
	if err := tx.UpdateTransaction(txn); err != nil {
		return fmt.Errorf("update transaction: %w", err)
	}

	refund := txn.PurchasePrice.Mul(decimal.NewFromInt(txn.Shares))
	svc.CurrentBalance = svc.CurrentBalance.Add(refund)
	if svc.CurrentShares >= txn.Shares {
		svc.CurrentShares -= txn.Shares
	} else {
		svc.CurrentShares = 0
	}
	svc.UpdatedAt = now
	if err := tx.UpdateService(svc); err != nil {
		return fmt.Errorf("update service: %w", err)
	}
	return nil
}
