package indicator

// DefaultRSIPeriod is the conventional RSI lookback.
const DefaultRSIPeriod = 14

// RSI computes the Relative Strength Index over the last period deltas
// using simple (non-smoothed) averages of gains and losses.
// Needs at least period+1 prices; ok is false otherwise.
// When the average loss is zero the result is 100. Range is [0, 100].
func RSI(series []float64, period int) (float64, bool) {
	if period <= 0 || len(series) < period+1 {
		return 0, false
	}

	deltas := series[len(series)-period-1:]
	sumGain, sumLoss := 0.0, 0.0
	for i := 1; i < len(deltas); i++ {
		d := deltas[i] - deltas[i-1]
		if d > 0 {
			sumGain += d
		} else {
			sumLoss += -d
		}
	}

	avgGain := sumGain / float64(period)
	avgLoss := sumLoss / float64(period)
	if avgLoss == 0 {
		return 100.0, true
	}
	rs := avgGain / avgLoss
	return 100.0 - 100.0/(1.0+rs), true
}
