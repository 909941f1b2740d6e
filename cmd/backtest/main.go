// cmd/backtest replays stored daily closes through the decision rules to
// evaluate a service configuration before committing real balance to it.
//
// Usage:
//
//	go run ./cmd/backtest --symbol=AAPL --balance=10000 --allocation=25
package main

import (
	"context"
	"flag"
	"fmt"
	"log"

	"daytraderv1/internal/backtest"
	sqlitestore "daytraderv1/internal/store/sqlite"
)

func main() {
	log.SetFlags(log.LstdFlags | log.Lmicroseconds | log.Lshortfile)

	// Flags
	symbol := flag.String("symbol", "", "Stock symbol to simulate (required)")
	balance := flag.Float64("balance", 10000, "Starting cash balance")
	allocation := flag.Float64("allocation", 25, "Percent of balance per buy")
	buyThreshold := flag.Float64("buy-threshold", 0, "Buy score threshold (0=default)")
	sellThreshold := flag.Float64("sell-threshold", 0, "Sell score threshold (0=default)")
	lookback := flag.Int("lookback", 0, "Analysis window in days per simulated day (0=default)")
	days := flag.Int("days", 365, "How many stored closes to replay")
	dbPath := flag.String("db", "data/trading.db", "Path to SQLite database")
	flag.Parse()

	if *symbol == "" {
		log.Fatal("[backtest] --symbol is required")
	}

	// Open SQLite
	store, err := sqlitestore.New(sqlitestore.Config{DBPath: *dbPath})
	if err != nil {
		log.Fatalf("[backtest] sqlite open failed: %v", err)
	}
	defer store.Close()

	closes, err := store.RecentCloses(context.Background(), *symbol, *days)
	if err != nil {
		log.Fatalf("[backtest] load closes for %s: %v", *symbol, err)
	}
	log.Printf("[backtest] loaded %d closes for %s", len(closes), *symbol)

	res, err := backtest.Run(backtest.Config{
		Symbol:            *symbol,
		InitialBalance:    *balance,
		AllocationPercent: *allocation,
		BuyThreshold:      *buyThreshold,
		SellThreshold:     *sellThreshold,
		LookbackDays:      *lookback,
	}, closes)
	if err != nil {
		log.Fatalf("[backtest] simulation failed: %v", err)
	}

	for _, t := range res.Trades {
		if t.Side == "sell" {
			fmt.Printf("  day %3d  SELL %4d @ %8.2f  gain/loss %+.2f\n", t.Day, t.Shares, t.Price, t.GainLoss)
		} else {
			fmt.Printf("  day %3d  BUY  %4d @ %8.2f\n", t.Day, t.Shares, t.Price)
		}
	}

	p := res.Performance
	fmt.Println()
	fmt.Println("╔══════════════════════════════════════╗")
	fmt.Println("║        BACKTEST COMPLETE             ║")
	fmt.Println("╠══════════════════════════════════════╣")
	fmt.Printf("║  Symbol:            %-16s ║\n", *symbol)
	fmt.Printf("║  Days simulated:    %-16d ║\n", len(res.EquityCurve))
	fmt.Printf("║  Trades:            %-16d ║\n", p.TradeCount)
	fmt.Printf("║  Final equity:      %-16.2f ║\n", res.FinalEquity)
	fmt.Printf("║  Total return:      %-15.2f%% ║\n", p.TotalReturnPct)
	fmt.Printf("║  Annualized:        %-15.2f%% ║\n", p.AnnualizedReturnPct)
	fmt.Printf("║  Max drawdown:      %-15.2f%% ║\n", p.MaxDrawdownPct)
	fmt.Printf("║  Volatility:        %-15.2f%% ║\n", p.VolatilityPct)
	fmt.Printf("║  Sharpe ratio:      %-16.2f ║\n", p.SharpeRatio)
	fmt.Printf("║  Win rate:          %-15.2f%% ║\n", p.WinRatePct)
	fmt.Println("╚══════════════════════════════════════╝")
}
