package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"time"

	"daytraderv1/internal/model"
)

const dateLayout = "2006-01-02"

// UpsertDailyPrices inserts or replaces a batch of daily bars in one
// transaction.
func (s *Store) UpsertDailyPrices(ctx context.Context, bars []model.DailyPrice) error {
	if len(bars) == 0 {
		return nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin price batch: %w", err)
	}

	stmt, err := tx.Prepare(`
		INSERT OR REPLACE INTO daily_prices (symbol, date, open, high, low, close, volume)
		VALUES (?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		tx.Rollback()
		return fmt.Errorf("prepare price insert: %w", err)
	}
	defer stmt.Close()

	start := time.Now()
	for _, b := range bars {
		if _, err := stmt.Exec(b.Symbol, b.Date.Format(dateLayout),
			b.Open, b.High, b.Low, b.Close, b.Volume); err != nil {
			tx.Rollback()
			return fmt.Errorf("insert price %s: %w", b.Key(), err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit price batch: %w", err)
	}

	log.Printf("[sqlite] committed %d daily prices in %v", len(bars), time.Since(start))
	return nil
}

// RecentCloses returns closing prices for the last lookbackDays bars,
// oldest to newest. A symbol with no price rows at all yields
// model.ErrSymbolNotFound; a known symbol returns whatever it has.
func (s *Store) RecentCloses(ctx context.Context, symbol string, lookbackDays int) ([]float64, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT close FROM (
			SELECT close, date FROM daily_prices
			WHERE symbol = ? ORDER BY date DESC LIMIT ?
		) ORDER BY date ASC`, symbol, lookbackDays)
	if err != nil {
		return nil, fmt.Errorf("query closes for %s: %w", symbol, err)
	}
	defer rows.Close()

	var closes []float64
	for rows.Next() {
		var c float64
		if err := rows.Scan(&c); err != nil {
			return nil, fmt.Errorf("scan close: %w", err)
		}
		closes = append(closes, c)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	// The limit query returns whatever the symbol has, so zero rows means
	// the symbol is not in the price table at all.
	if len(closes) == 0 {
		return nil, model.ErrSymbolNotFound
	}
	return closes, nil
}

// LastPriceDate returns the most recent stored bar date for a symbol, or the
// zero time if none exists. Used for incremental refreshes.
func (s *Store) LastPriceDate(ctx context.Context, symbol string) (time.Time, error) {
	var d sql.NullString
	err := s.db.QueryRowContext(ctx,
		`SELECT MAX(date) FROM daily_prices WHERE symbol = ?`, symbol).Scan(&d)
	if err != nil {
		return time.Time{}, fmt.Errorf("query last price date: %w", err)
	}
	if !d.Valid {
		return time.Time{}, nil
	}
	return time.Parse(dateLayout, d.String)
}

// TrackedSymbols returns every symbol referenced by a trading service.
func (s *Store) TrackedSymbols(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT DISTINCT stock_symbol FROM trading_services ORDER BY stock_symbol`)
	if err != nil {
		return nil, fmt.Errorf("query tracked symbols: %w", err)
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var sym string
		if err := rows.Scan(&sym); err != nil {
			return nil, err
		}
		out = append(out, sym)
	}
	return out, rows.Err()
}
