package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"daytraderv1/internal/model"
)

const serviceColumns = `id, user_id, name, stock_symbol, state, mode, is_active,
	initial_balance, current_balance, minimum_balance, allocation_percent,
	buy_threshold, sell_threshold, current_shares, buy_count, sell_count,
	total_gain_loss, created_at, updated_at`

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanService(row rowScanner) (*model.Service, error) {
	var svc model.Service
	var state, mode string
	var initial, current, minimum, gainLoss string
	err := row.Scan(&svc.ID, &svc.UserID, &svc.Name, &svc.StockSymbol, &state, &mode,
		&svc.IsActive, &initial, &current, &minimum, &svc.AllocationPercent,
		&svc.BuyThreshold, &svc.SellThreshold, &svc.CurrentShares, &svc.BuyCount,
		&svc.SellCount, &gainLoss, &svc.CreatedAt, &svc.UpdatedAt)
	if err != nil {
		return nil, err
	}

	svc.State = model.ServiceState(state)
	svc.Mode = model.TradingMode(mode)
	if svc.InitialBalance, err = decimal.NewFromString(initial); err != nil {
		return nil, fmt.Errorf("parse initial_balance: %w", err)
	}
	if svc.CurrentBalance, err = decimal.NewFromString(current); err != nil {
		return nil, fmt.Errorf("parse current_balance: %w", err)
	}
	if svc.MinimumBalance, err = decimal.NewFromString(minimum); err != nil {
		return nil, fmt.Errorf("parse minimum_balance: %w", err)
	}
	if svc.TotalGainLoss, err = decimal.NewFromString(gainLoss); err != nil {
		return nil, fmt.Errorf("parse total_gain_loss: %w", err)
	}
	return &svc, nil
}

// CreateService validates, normalizes, and inserts a new service,
// setting its ID on success.
func (s *Store) CreateService(ctx context.Context, svc *model.Service) error {
	svc.NormalizeSymbol()
	if err := svc.Validate(); err != nil {
		return err
	}

	now := time.Now().UTC()
	svc.CreatedAt = now
	svc.UpdatedAt = now
	res, err := s.db.ExecContext(ctx, `
		INSERT INTO trading_services (user_id, name, stock_symbol, state, mode, is_active,
			initial_balance, current_balance, minimum_balance, allocation_percent,
			buy_threshold, sell_threshold, current_shares, buy_count, sell_count,
			total_gain_loss, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		svc.UserID, svc.Name, svc.StockSymbol, string(svc.State), string(svc.Mode), svc.IsActive,
		svc.InitialBalance.String(), svc.CurrentBalance.String(), svc.MinimumBalance.String(),
		svc.AllocationPercent, svc.BuyThreshold, svc.SellThreshold, svc.CurrentShares,
		svc.BuyCount, svc.SellCount, svc.TotalGainLoss.String(), svc.CreatedAt, svc.UpdatedAt)
	if err != nil {
		return fmt.Errorf("insert service: %w", err)
	}
	svc.ID, err = res.LastInsertId()
	return err
}

// GetService loads one service by ID.
func (s *Store) GetService(ctx context.Context, id int64) (*model.Service, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+serviceColumns+` FROM trading_services WHERE id = ?`, id)
	svc, err := scanService(row)
	if err == sql.ErrNoRows {
		return nil, model.ErrServiceNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("query service %d: %w", id, err)
	}
	return svc, nil
}

// ListActiveServices returns services eligible for scheduled strategy runs.
func (s *Store) ListActiveServices(ctx context.Context) ([]model.Service, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+serviceColumns+` FROM trading_services
		 WHERE state = 'ACTIVE' AND is_active = 1 ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("query active services: %w", err)
	}
	defer rows.Close()

	var out []model.Service
	for rows.Next() {
		svc, err := scanService(rows)
		if err != nil {
			return nil, fmt.Errorf("scan service: %w", err)
		}
		out = append(out, *svc)
	}
	return out, rows.Err()
}

// UpdateService persists the mutable service fields inside the transaction.
func (t *storeTx) UpdateService(svc *model.Service) error {
	_, err := t.tx.Exec(`
		UPDATE trading_services
		SET state = ?, mode = ?, is_active = ?, current_balance = ?,
			minimum_balance = ?, allocation_percent = ?, buy_threshold = ?,
			sell_threshold = ?, current_shares = ?, buy_count = ?, sell_count = ?,
			total_gain_loss = ?, updated_at = ?
		WHERE id = ?`,
		string(svc.State), string(svc.Mode), svc.IsActive, svc.CurrentBalance.String(),
		svc.MinimumBalance.String(), svc.AllocationPercent, svc.BuyThreshold,
		svc.SellThreshold, svc.CurrentShares, svc.BuyCount, svc.SellCount,
		svc.TotalGainLoss.String(), svc.UpdatedAt, svc.ID)
	if err != nil {
		return fmt.Errorf("update service %d: %w", svc.ID, err)
	}
	return nil
}
