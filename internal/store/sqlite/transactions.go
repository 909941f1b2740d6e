package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/shopspring/decimal"

	"daytraderv1/internal/model"
)

const transactionColumns = `id, service_id, stock_symbol, shares, state,
	purchase_price, sale_price, gain_loss, purchase_date, sale_date, notes`

func scanTransaction(row rowScanner) (*model.Transaction, error) {
	var txn model.Transaction
	var state, purchase string
	var sale, gain sql.NullString
	var saleDate sql.NullTime
	err := row.Scan(&txn.ID, &txn.ServiceID, &txn.StockSymbol, &txn.Shares, &state,
		&purchase, &sale, &gain, &txn.PurchaseDate, &saleDate, &txn.Notes)
	if err != nil {
		return nil, err
	}

	txn.State = model.TransactionState(state)
	if txn.PurchasePrice, err = decimal.NewFromString(purchase); err != nil {
		return nil, fmt.Errorf("parse purchase_price: %w", err)
	}
	if sale.Valid {
		v, err := decimal.NewFromString(sale.String)
		if err != nil {
			return nil, fmt.Errorf("parse sale_price: %w", err)
		}
		txn.SalePrice = &v
	}
	if gain.Valid {
		v, err := decimal.NewFromString(gain.String)
		if err != nil {
			return nil, fmt.Errorf("parse gain_loss: %w", err)
		}
		txn.GainLoss = &v
	}
	if saleDate.Valid {
		d := saleDate.Time
		txn.SaleDate = &d
	}
	return &txn, nil
}

// GetTransaction loads one transaction by ID.
func (s *Store) GetTransaction(ctx context.Context, id int64) (*model.Transaction, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+transactionColumns+` FROM trading_transactions WHERE id = ?`, id)
	txn, err := scanTransaction(row)
	if err == sql.ErrNoRows {
		return nil, model.ErrTransactionNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("query transaction %d: %w", id, err)
	}
	return txn, nil
}

// ListTransactions returns all transactions for a service, newest first.
func (s *Store) ListTransactions(ctx context.Context, serviceID int64) ([]model.Transaction, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+transactionColumns+` FROM trading_transactions
		 WHERE service_id = ? ORDER BY purchase_date DESC, id DESC`, serviceID)
	if err != nil {
		return nil, fmt.Errorf("query transactions: %w", err)
	}
	defer rows.Close()
	return collectTransactions(rows)
}

func collectTransactions(rows *sql.Rows) ([]model.Transaction, error) {
	var out []model.Transaction
	for rows.Next() {
		txn, err := scanTransaction(rows)
		if err != nil {
			return nil, fmt.Errorf("scan transaction: %w", err)
		}
		out = append(out, *txn)
	}
	return out, rows.Err()
}

// InsertTransaction inserts a row inside the transaction and sets its ID.
func (t *storeTx) InsertTransaction(txn *model.Transaction) error {
	var sale, gain interface{}
	if txn.SalePrice != nil {
		sale = txn.SalePrice.String()
	}
	if txn.GainLoss != nil {
		gain = txn.GainLoss.String()
	}
	var saleDate interface{}
	if txn.SaleDate != nil {
		saleDate = *txn.SaleDate
	}

	res, err := t.tx.Exec(`
		INSERT INTO trading_transactions (service_id, stock_symbol, shares, state,
			purchase_price, sale_price, gain_loss, purchase_date, sale_date, notes)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		txn.ServiceID, txn.StockSymbol, txn.Shares, string(txn.State),
		txn.PurchasePrice.String(), sale, gain, txn.PurchaseDate, saleDate, txn.Notes)
	if err != nil {
		return fmt.Errorf("insert transaction: %w", err)
	}
	txn.ID, err = res.LastInsertId()
	return err
}

// UpdateTransaction persists state and sale fields inside the transaction.
func (t *storeTx) UpdateTransaction(txn *model.Transaction) error {
	var sale, gain interface{}
	if txn.SalePrice != nil {
		sale = txn.SalePrice.String()
	}
	if txn.GainLoss != nil {
		gain = txn.GainLoss.String()
	}
	var saleDate interface{}
	if txn.SaleDate != nil {
		saleDate = *txn.SaleDate
	}

	_, err := t.tx.Exec(`
		UPDATE trading_transactions
		SET state = ?, sale_price = ?, gain_loss = ?, sale_date = ?, notes = ?
		WHERE id = ?`,
		string(txn.State), sale, gain, saleDate, txn.Notes, txn.ID)
	if err != nil {
		return fmt.Errorf("update transaction %d: %w", txn.ID, err)
	}
	return nil
}

// OpenTransactions returns the service's OPEN transactions, oldest first,
// read inside the transaction so the sell path closes a consistent set.
func (t *storeTx) OpenTransactions(serviceID int64) ([]model.Transaction, error) {
	rows, err := t.tx.Query(
		`SELECT `+transactionColumns+` FROM trading_transactions
		 WHERE service_id = ? AND state = 'OPEN' ORDER BY purchase_date ASC, id ASC`, serviceID)
	if err != nil {
		return nil, fmt.Errorf("query open transactions: %w", err)
	}
	defer rows.Close()
	return collectTransactions(rows)
}
