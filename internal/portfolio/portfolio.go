// Package portfolio aggregates account state across trading services.
//
// Each service tracks its own cash and position; this package rolls them up
// into one view: open positions with cost basis from OPEN transactions,
// market value at the latest stored close, and realized plus unrealized P&L.
package portfolio

import (
	"context"
	"log"
	"time"

	"github.com/shopspring/decimal"

	"daytraderv1/internal/model"
)

// Directory is the read-only store surface a snapshot needs.
type Directory interface {
	ListActiveServices(ctx context.Context) ([]model.Service, error)
	ListTransactions(ctx context.Context, serviceID int64) ([]model.Transaction, error)
}

// Position is one service's open holding.
type Position struct {
	ServiceID     int64           `json:"service_id"`
	ServiceName   string          `json:"service_name"`
	Symbol        string          `json:"symbol"`
	Shares        int64           `json:"shares"`
	AvgCost       decimal.Decimal `json:"avg_cost"`
	LastClose     decimal.Decimal `json:"last_close"`
	MarketValue   decimal.Decimal `json:"market_value"`
	UnrealizedPnL decimal.Decimal `json:"unrealized_pnl"`
}

// Summary is the account roll-up across all active services.
type Summary struct {
	Cash          decimal.Decimal `json:"cash"`
	MarketValue   decimal.Decimal `json:"market_value"`
	Equity        decimal.Decimal `json:"equity"`
	RealizedPnL   decimal.Decimal `json:"realized_pnl"`
	UnrealizedPnL decimal.Decimal `json:"unrealized_pnl"`
	ServiceCount  int             `json:"service_count"`
	Positions     []Position      `json:"positions"`
	AsOf          time.Time       `json:"as_of"`
}

// Book computes account summaries from the store and the price provider.
type Book struct {
	dir    Directory
	prices model.PriceProvider
}

// New creates a Book.
func New(dir Directory, prices model.PriceProvider) *Book {
	return &Book{dir: dir, prices: prices}
}

// Snapshot rolls up every active service. A missing price for one symbol
// values that position at cost instead of failing the whole summary.
func (b *Book) Snapshot(ctx context.Context) (*Summary, error) {
	services, err := b.dir.ListActiveServices(ctx)
	if err != nil {
		return nil, err
	}

	sum := &Summary{
		Positions: []Position{},
		AsOf:      time.Now().UTC(),
	}
	sum.ServiceCount = len(services)

	for i := range services {
		svc := &services[i]
		sum.Cash = sum.Cash.Add(svc.CurrentBalance)
		sum.RealizedPnL = sum.RealizedPnL.Add(svc.TotalGainLoss)

		if svc.CurrentShares <= 0 {
			continue
		}
		pos, err := b.position(ctx, svc)
		if err != nil {
			return nil, err
		}
		sum.MarketValue = sum.MarketValue.Add(pos.MarketValue)
		sum.UnrealizedPnL = sum.UnrealizedPnL.Add(pos.UnrealizedPnL)
		sum.Positions = append(sum.Positions, *pos)
	}

	sum.Equity = sum.Cash.Add(sum.MarketValue)
	return sum, nil
}

func (b *Book) position(ctx context.Context, svc *model.Service) (*Position, error) {
	txns, err := b.dir.ListTransactions(ctx, svc.ID)
	if err != nil {
		return nil, err
	}

	// Cost basis comes from the OPEN transactions backing the position.
	var openShares int64
	totalCost := decimal.Zero
	for _, t := range txns {
		if t.State != model.TxnOpen {
			continue
		}
		openShares += t.Shares
		totalCost = totalCost.Add(t.PurchasePrice.Mul(decimal.NewFromInt(t.Shares)))
	}

	pos := &Position{
		ServiceID:   svc.ID,
		ServiceName: svc.Name,
		Symbol:      svc.StockSymbol,
		Shares:      svc.CurrentShares,
	}
	if openShares > 0 {
		pos.AvgCost = totalCost.DivRound(decimal.NewFromInt(openShares), 4)
	}

	shares := decimal.NewFromInt(svc.CurrentShares)
	closes, err := b.prices.RecentCloses(ctx, svc.StockSymbol, 1)
	if err != nil || len(closes) == 0 {
		log.Printf("[portfolio] no price for %s, valuing at cost: %v", svc.StockSymbol, err)
		pos.LastClose = pos.AvgCost
		pos.MarketValue = pos.AvgCost.Mul(shares)
		return pos, nil
	}

	pos.LastClose = decimal.NewFromFloat(closes[len(closes)-1])
	pos.MarketValue = pos.LastClose.Mul(shares)
	pos.UnrealizedPnL = pos.LastClose.Sub(pos.AvgCost).Mul(shares)
	return pos, nil
}
