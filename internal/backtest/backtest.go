// Package backtest replays stored daily closes through the decision rules
// to evaluate a service configuration before it trades. The simulation
// mirrors the live executor: allocation-based sizing, full-position sells,
// and the buy/sell mode cycle.
package backtest

import (
	"fmt"

	"github.com/shopspring/decimal"

	"daytraderv1/internal/analysis"
	"daytraderv1/internal/execution"
	"daytraderv1/internal/model"
	"daytraderv1/internal/strategy"
)

// Config describes the simulated service.
type Config struct {
	Symbol            string
	InitialBalance    float64
	AllocationPercent float64
	BuyThreshold      float64
	SellThreshold     float64
	LookbackDays      int // analysis window per day, default 90
}

// Trade is one simulated fill.
type Trade struct {
	Day      int     `json:"day"` // index into the close series
	Side     string  `json:"side"`
	Shares   int64   `json:"shares"`
	Price    float64 `json:"price"`
	GainLoss float64 `json:"gain_loss,omitempty"` // sells only
}

// Result is the full simulation outcome.
type Result struct {
	Config      Config      `json:"config"`
	Trades      []Trade     `json:"trades"`
	EquityCurve []float64   `json:"equity_curve"`
	FinalEquity float64     `json:"final_equity"`
	Performance Performance `json:"performance"`
}

// Run simulates the strategy over the close series, oldest to newest.
// The series must hold at least the analysis minimum of data points.
func Run(cfg Config, closes []float64) (*Result, error) {
	if cfg.InitialBalance <= 0 {
		return nil, fmt.Errorf("initial balance must be positive")
	}
	if len(closes) < analysis.MinDataPoints {
		return nil, fmt.Errorf("need at least %d closes, got %d", analysis.MinDataPoints, len(closes))
	}
	if cfg.LookbackDays <= 0 {
		cfg.LookbackDays = execution.DefaultLookbackDays
	}

	// The simulated service flips between BUY and SELL as positions open
	// and close, same as the live mode cycle.
	svc := &model.Service{
		StockSymbol:       cfg.Symbol,
		State:             model.StateActive,
		Mode:              model.ModeBuy,
		IsActive:          true,
		CurrentBalance:    decimal.NewFromFloat(cfg.InitialBalance),
		AllocationPercent: cfg.AllocationPercent,
		BuyThreshold:      cfg.BuyThreshold,
		SellThreshold:     cfg.SellThreshold,
	}

	var (
		trades    []Trade
		equity    []float64
		costBasis decimal.Decimal // total cost of the open position
	)

	for i := analysis.MinDataPoints - 1; i < len(closes); i++ {
		lo := i + 1 - cfg.LookbackDays
		if lo < 0 {
			lo = 0
		}
		window := closes[lo : i+1]
		price := closes[i]
		snap := analysis.GetPriceAnalysis(window)

		switch svc.Mode {
		case model.ModeBuy:
			if strategy.ShouldBuy(svc, snap, price) {
				shares := execution.SharesToBuy(svc.CurrentBalance, svc.AllocationPercent, price)
				cost := decimal.NewFromFloat(price).Mul(decimal.NewFromInt(shares))
				if shares > 0 && cost.LessThanOrEqual(svc.CurrentBalance) {
					svc.CurrentBalance = svc.CurrentBalance.Sub(cost)
					svc.CurrentShares += shares
					svc.BuyCount++
					costBasis = costBasis.Add(cost)
					svc.Mode = model.ModeSell
					trades = append(trades, Trade{
						Day: i, Side: execution.ActionBuy, Shares: shares, Price: price,
					})
				}
			}
		case model.ModeSell:
			if strategy.ShouldSell(svc, snap) {
				shares := svc.CurrentShares
				revenue := decimal.NewFromFloat(price).Mul(decimal.NewFromInt(shares))
				gain := revenue.Sub(costBasis)
				svc.CurrentBalance = svc.CurrentBalance.Add(revenue)
				svc.CurrentShares = 0
				svc.SellCount++
				svc.TotalGainLoss = svc.TotalGainLoss.Add(gain)
				costBasis = decimal.Zero
				svc.Mode = model.ModeBuy
				trades = append(trades, Trade{
					Day: i, Side: execution.ActionSell, Shares: shares, Price: price,
					GainLoss: gain.InexactFloat64(),
				})
			}
		}

		marketValue := decimal.NewFromFloat(price).Mul(decimal.NewFromInt(svc.CurrentShares))
		equity = append(equity, svc.CurrentBalance.Add(marketValue).InexactFloat64())
	}

	final := equity[len(equity)-1]
	return &Result{
		Config:      cfg,
		Trades:      trades,
		EquityCurve: equity,
		FinalEquity: final,
		Performance: computePerformance(cfg.InitialBalance, equity, trades),
	}, nil
}
