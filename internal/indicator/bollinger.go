package indicator

// Bollinger is the middle/upper/lower band triple, index-aligned with the
// input candles.
type Bollinger struct {
	Middle []*float64
	Upper  []*float64
	Lower  []*float64
}

// BollingerBands computes middle = SMA(period), upper = middle + k*stdDev,
// lower = middle - k*stdDev.
func BollingerBands(candles []Candle, period int, k float64) Bollinger {
	middle := SMA(candles, period)
	dev := StdDev(candles, period)
	upper := make([]*float64, len(candles))
	lower := make([]*float64, len(candles))
	for i := range candles {
		if middle[i] == nil || dev[i] == nil {
			continue
		}
		u := *middle[i] + k**dev[i]
		l := *middle[i] - k**dev[i]
		upper[i] = &u
		lower[i] = &l
	}
	return Bollinger{Middle: middle, Upper: upper, Lower: lower}
}
