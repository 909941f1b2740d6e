package indicator

import "math"

// Default Bollinger parameters.
const (
	DefaultBollingerPeriod = 20
	DefaultBollingerStd    = 2.0
)

// Bands holds the three Bollinger band values.
type Bands struct {
	Upper  float64
	Middle float64
	Lower  float64
}

// Bollinger computes Bollinger Bands: middle is the SMA over period, upper
// and lower are middle plus/minus numStd population standard deviations.
// ok is false when the series is shorter than period.
func Bollinger(series []float64, period int, numStd float64) (Bands, bool) {
	middle, ok := SMA(series, period)
	if !ok {
		return Bands{}, false
	}

	window := series[len(series)-period:]
	variance := 0.0
	for _, v := range window {
		d := v - middle
		variance += d * d
	}
	variance /= float64(period)
	std := math.Sqrt(variance)

	return Bands{
		Upper:  middle + numStd*std,
		Middle: middle,
		Lower:  middle - numStd*std,
	}, true
}
