// Package strategy holds the buy/sell decision rules.
//
// The predicates are pure: they read a service's configuration and a price
// analysis snapshot and never mutate either. Signals are OR-combined: any
// one trigger suffices.
package strategy

import (
	"daytraderv1/internal/analysis"
	"daytraderv1/internal/model"
)

// ShouldBuy decides whether a buy should occur. False when the service
// cannot buy (inactive, wrong mode, balance at or below minimum) or the
// snapshot has no data. Otherwise true when any of:
//   - RSI signal is oversold
//   - Bollinger signal is oversold
//   - the series is in an uptrend and price sits at least BuyThreshold
//     percent below the short moving average
func ShouldBuy(svc *model.Service, snap *analysis.Snapshot, currentPrice float64) bool {
	if !svc.CanBuy() || !snap.HasData {
		return false
	}

	if snap.Signals.RSI == analysis.SignalOversold {
		return true
	}
	if snap.Signals.Bollinger == analysis.SignalOversold {
		return true
	}

	if snap.IsUptrend != nil && *snap.IsUptrend {
		if ma5, ok := snap.MA(analysis.ShortMAPeriod); ok && ma5 != 0 {
			percentBelowMA := (ma5 - currentPrice) / ma5 * 100.0
			if percentBelowMA >= svc.BuyThreshold {
				return true
			}
		}
	}

	return false
}

// ShouldSell decides whether a sell should occur. False when the service
// cannot sell (inactive, wrong mode, no shares) or the snapshot has no data.
// Otherwise true when any of:
//   - RSI signal is overbought
//   - Bollinger signal is overbought
//   - the moving-average crossover is bearish
func ShouldSell(svc *model.Service, snap *analysis.Snapshot) bool {
	if !svc.CanSell() || !snap.HasData {
		return false
	}

	if snap.Signals.RSI == analysis.SignalOverbought {
		return true
	}
	if snap.Signals.Bollinger == analysis.SignalOverbought {
		return true
	}
	if snap.Signals.MACrossover == analysis.SignalBearish {
		return true
	}

	return false
}
