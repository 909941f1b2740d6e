package indicator

import "strconv"

// ChangeLookbacks are the day offsets reported by PriceChanges.
var ChangeLookbacks = []int{1, 5, 10, 30, 90}

// PriceChanges returns the percentage change from N days back to the latest
// price for each lookback in ChangeLookbacks, keyed "{N}_day". Lookbacks the
// series cannot cover, and reference prices of zero, are omitted.
func PriceChanges(series []float64) map[string]float64 {
	out := make(map[string]float64)
	if len(series) == 0 {
		return out
	}
	last := series[len(series)-1]
	for _, n := range ChangeLookbacks {
		if len(series) <= n {
			continue
		}
		back := series[len(series)-1-n]
		if back == 0 {
			continue
		}
		out[strconv.Itoa(n)+"_day"] = (last - back) / back * 100.0
	}
	return out
}
