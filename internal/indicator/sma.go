// Package indicator provides pure technical-indicator functions over an
// ordered closing-price series (oldest to newest). No state, no I/O:
// insufficient history is signalled by ok=false, never by an error.
package indicator

// DefaultMAPeriods is the standard set of moving-average windows computed
// for a price analysis.
var DefaultMAPeriods = []int{5, 10, 20, 50, 200}

// SMA returns the arithmetic mean of the last period elements.
// ok is false when the series is shorter than period or period is not positive.
func SMA(series []float64, period int) (float64, bool) {
	if period <= 0 || len(series) < period {
		return 0, false
	}
	sum := 0.0
	for _, v := range series[len(series)-period:] {
		sum += v
	}
	return sum / float64(period), true
}

// MovingAverages computes the SMA for each requested period, omitting
// periods the series is too short to satisfy.
func MovingAverages(series []float64, periods []int) map[int]float64 {
	out := make(map[int]float64, len(periods))
	for _, p := range periods {
		if v, ok := SMA(series, p); ok {
			out[p] = v
		}
	}
	return out
}
