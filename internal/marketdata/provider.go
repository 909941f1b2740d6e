// Package marketdata keeps the daily price store fresh and serves lookback
// windows to the strategy path. Reads always come from the local store;
// the remote feed only fills in bars the store does not have yet.
package marketdata

import (
	"context"
	"fmt"
	"log"
	"time"

	"daytraderv1/internal/model"
)

// DefaultBackfillDays bounds the first fetch for a symbol with no stored
// bars. A year of calendar days comfortably covers 252 trading days.
const DefaultBackfillDays = 370

// Store is the price persistence surface the provider needs.
type Store interface {
	RecentCloses(ctx context.Context, symbol string, lookbackDays int) ([]float64, error)
	UpsertDailyPrices(ctx context.Context, bars []model.DailyPrice) error
	LastPriceDate(ctx context.Context, symbol string) (time.Time, error)
	TrackedSymbols(ctx context.Context) ([]string, error)
}

// Source fetches daily bars from the upstream market data feed.
type Source interface {
	DailyBars(ctx context.Context, symbol string, from, to time.Time) ([]model.DailyPrice, error)
}

// Provider implements model.PriceProvider on top of the store, with an
// incremental refresh path fed by the remote source.
type Provider struct {
	store  Store
	source Source
}

// New creates a Provider. source may be nil for store-only setups
// (backtests, tests); Refresh methods then report an error.
func New(store Store, source Source) *Provider {
	return &Provider{store: store, source: source}
}

// RecentCloses returns the last lookbackDays closing prices for a symbol,
// oldest to newest, straight from the store.
func (p *Provider) RecentCloses(ctx context.Context, symbol string, lookbackDays int) ([]float64, error) {
	return p.store.RecentCloses(ctx, symbol, lookbackDays)
}

// RefreshSymbol fetches bars newer than the last stored date and upserts
// them. Returns the number of bars written.
func (p *Provider) RefreshSymbol(ctx context.Context, symbol string) (int, error) {
	if p.source == nil {
		return 0, fmt.Errorf("no market data source configured")
	}

	last, err := p.store.LastPriceDate(ctx, symbol)
	if err != nil {
		return 0, fmt.Errorf("last price date for %s: %w", symbol, err)
	}

	to := time.Now().UTC().Truncate(24 * time.Hour)
	var from time.Time
	if last.IsZero() {
		from = to.AddDate(0, 0, -DefaultBackfillDays)
	} else {
		from = last.AddDate(0, 0, 1)
	}
	if from.After(to) {
		return 0, nil
	}

	bars, err := p.source.DailyBars(ctx, symbol, from, to)
	if err != nil {
		return 0, fmt.Errorf("fetch bars for %s: %w", symbol, err)
	}
	if len(bars) == 0 {
		return 0, nil
	}
	if err := p.store.UpsertDailyPrices(ctx, bars); err != nil {
		return 0, fmt.Errorf("store bars for %s: %w", symbol, err)
	}
	return len(bars), nil
}

// RefreshAll refreshes every symbol referenced by a trading service and
// returns the number of bars written. A failing symbol is logged and
// skipped so one bad feed does not stall the rest; the first error is
// returned after the sweep.
func (p *Provider) RefreshAll(ctx context.Context) (int, error) {
	symbols, err := p.store.TrackedSymbols(ctx)
	if err != nil {
		return 0, fmt.Errorf("list tracked symbols: %w", err)
	}

	var firstErr error
	total := 0
	for _, sym := range symbols {
		n, err := p.RefreshSymbol(ctx, sym)
		if err != nil {
			log.Printf("[marketdata] refresh %s failed: %v", sym, err)
			if firstErr == nil {
				firstErr = err
			}
			continue
		}
		total += n
	}
	log.Printf("[marketdata] refreshed %d symbols, %d new bars", len(symbols), total)
	return total, firstErr
}
