package backtest

import "math"

// TradingDaysPerYear is the annualization base for returns and volatility.
const TradingDaysPerYear = 252

// Performance summarizes a simulated equity curve.
type Performance struct {
	TotalReturnPct      float64 `json:"total_return_pct"`
	AnnualizedReturnPct float64 `json:"annualized_return_pct"`
	MaxDrawdownPct      float64 `json:"max_drawdown_pct"`
	VolatilityPct       float64 `json:"volatility_pct"` // annualized
	SharpeRatio         float64 `json:"sharpe_ratio"`
	TradeCount          int     `json:"trade_count"`
	WinningTrades       int     `json:"winning_trades"`
	WinRatePct          float64 `json:"win_rate_pct"`
}

func computePerformance(initial float64, equity []float64, trades []Trade) Performance {
	p := Performance{TradeCount: len(trades)}
	if initial <= 0 || len(equity) == 0 {
		return p
	}

	final := equity[len(equity)-1]
	p.TotalReturnPct = (final - initial) / initial * 100

	days := len(equity)
	if final > 0 && days > 1 {
		p.AnnualizedReturnPct = (math.Pow(final/initial, TradingDaysPerYear/float64(days)) - 1) * 100
	}

	// Max drawdown against the running peak.
	peak := equity[0]
	for _, e := range equity {
		if e > peak {
			peak = e
		}
		if peak > 0 {
			dd := (peak - e) / peak * 100
			if dd > p.MaxDrawdownPct {
				p.MaxDrawdownPct = dd
			}
		}
	}

	// Daily returns for volatility and Sharpe.
	var rets []float64
	for i := 1; i < len(equity); i++ {
		if equity[i-1] > 0 {
			rets = append(rets, equity[i]/equity[i-1]-1)
		}
	}
	if len(rets) > 1 {
		mean := 0.0
		for _, r := range rets {
			mean += r
		}
		mean /= float64(len(rets))

		variance := 0.0
		for _, r := range rets {
			variance += (r - mean) * (r - mean)
		}
		variance /= float64(len(rets))
		std := math.Sqrt(variance)

		p.VolatilityPct = std * math.Sqrt(TradingDaysPerYear) * 100
		if std > 0 {
			p.SharpeRatio = mean / std * math.Sqrt(TradingDaysPerYear)
		}
	}

	// Closed round trips only; buys carry no realized outcome.
	closed := 0
	for _, t := range trades {
		if t.Side != "sell" {
			continue
		}
		closed++
		if t.GainLoss > 0 {
			p.WinningTrades++
		}
	}
	if closed > 0 {
		p.WinRatePct = float64(p.WinningTrades) / float64(closed) * 100
	}

	return p
}
