// Package analysis turns a raw closing-price series into a price-analysis
// snapshot: indicator values plus their categorical signals. Snapshots are
// built fresh per request, never persisted, and never mutated after build.
package analysis

import (
	"daytraderv1/internal/indicator"
)

// Thresholds and minimum window lengths for signal synthesis.
const (
	RSIOversold   = 30.0
	RSIOverbought = 70.0

	ShortMAPeriod = 5
	LongMAPeriod  = 20

	// MinRSIPoints is DefaultRSIPeriod+1: the shortest series RSI accepts.
	MinRSIPoints = indicator.DefaultRSIPeriod + 1

	// MinDataPoints is the minimum history the strategy executor requires
	// before it will act on an analysis at all.
	MinDataPoints = 5
)

// Snapshot is the aggregate output of the indicator engine and signal
// synthesizer for one series at one point in time. Nil pointers and missing
// map keys mean "absent" (series too short for that indicator).
type Snapshot struct {
	LatestPrice    *float64           `json:"latest_price,omitempty"`
	MovingAverages map[int]float64    `json:"moving_averages,omitempty"`
	RSI            *float64           `json:"rsi,omitempty"`
	Bollinger      *indicator.Bands   `json:"bollinger_bands,omitempty"`
	IsUptrend      *bool              `json:"is_uptrend,omitempty"`
	PriceChanges   map[string]float64 `json:"price_changes,omitempty"`
	Signals        Signals            `json:"signals"`
	HasData        bool               `json:"has_data"`
}

// MA returns the moving average for the given period, ok=false when absent.
func (s *Snapshot) MA(period int) (float64, bool) {
	v, ok := s.MovingAverages[period]
	return v, ok
}

// GetPriceAnalysis computes every indicator the series can support and
// assembles the snapshot. A series shorter than MinDataPoints yields
// {HasData: false} and nothing else. Pure: the same series always yields
// the same snapshot.
func GetPriceAnalysis(series []float64) *Snapshot {
	if len(series) < MinDataPoints {
		return &Snapshot{HasData: false}
	}

	snap := &Snapshot{HasData: true}
	latest := series[len(series)-1]
	snap.LatestPrice = &latest

	snap.MovingAverages = indicator.MovingAverages(series, indicator.DefaultMAPeriods)

	if len(series) >= MinRSIPoints {
		if v, ok := indicator.RSI(series, indicator.DefaultRSIPeriod); ok {
			snap.RSI = &v
		}
	}

	if len(series) >= indicator.DefaultBollingerPeriod {
		if b, ok := indicator.Bollinger(series, indicator.DefaultBollingerPeriod, indicator.DefaultBollingerStd); ok {
			snap.Bollinger = &b
		}
	}

	snap.PriceChanges = indicator.PriceChanges(series)

	if short, ok := snap.MA(ShortMAPeriod); ok {
		if long, ok := snap.MA(LongMAPeriod); ok {
			up := short > long
			snap.IsUptrend = &up
		}
	}

	snap.Signals = SynthesizeSignals(snap.RSI, snap.MovingAverages, snap.Bollinger, snap.LatestPrice)
	return snap
}
