package analysis

import "daytraderv1/internal/indicator"

// Signal is a categorical interpretation of one indicator.
type Signal string

const (
	SignalOversold   Signal = "oversold"
	SignalOverbought Signal = "overbought"
	SignalNeutral    Signal = "neutral"
	SignalBullish    Signal = "bullish"
	SignalBearish    Signal = "bearish"
)

// Signals holds the categorical signals derived from one snapshot.
// Empty string means the underlying indicator was absent.
type Signals struct {
	RSI         Signal `json:"rsi,omitempty"`
	Bollinger   Signal `json:"bollinger,omitempty"`
	MACrossover Signal `json:"ma_crossover,omitempty"`
}

// Map renders the signals as a string map for result payloads,
// omitting absent entries.
func (s Signals) Map() map[string]string {
	out := make(map[string]string, 3)
	if s.RSI != "" {
		out["rsi"] = string(s.RSI)
	}
	if s.Bollinger != "" {
		out["bollinger"] = string(s.Bollinger)
	}
	if s.MACrossover != "" {
		out["ma_crossover"] = string(s.MACrossover)
	}
	return out
}

// SynthesizeSignals derives the categorical signals from raw indicator
// values. Each signal requires its inputs to be present and stays absent
// otherwise.
func SynthesizeSignals(rsi *float64, mas map[int]float64, bands *indicator.Bands, latest *float64) Signals {
	var sig Signals

	if rsi != nil {
		switch {
		case *rsi < RSIOversold:
			sig.RSI = SignalOversold
		case *rsi > RSIOverbought:
			sig.RSI = SignalOverbought
		default:
			sig.RSI = SignalNeutral
		}
	}

	short, shortOK := mas[ShortMAPeriod]
	long, longOK := mas[LongMAPeriod]
	if shortOK && longOK {
		if short > long {
			sig.MACrossover = SignalBullish
		} else {
			sig.MACrossover = SignalBearish
		}
	}

	if bands != nil && latest != nil {
		switch {
		case *latest > bands.Upper:
			sig.Bollinger = SignalOverbought
		case *latest < bands.Lower:
			sig.Bollinger = SignalOversold
		default:
			sig.Bollinger = SignalNeutral
		}
	}

	return sig
}
