package indicator

import "math"

// SMA returns the simple moving average of closes over period, aligned 1:1
// with candles. Index i is non-nil once i >= period-1.
func SMA(candles []Candle, period int) []*float64 {
	out := make([]*float64, len(candles))
	if period <= 0 {
		return out
	}
	cl := closes(candles)
	sum := 0.0
	for i, c := range cl {
		sum += c
		if i >= period {
			sum -= cl[i-period]
		}
		if i >= period-1 {
			out[i] = ptr(sum / float64(period))
		}
	}
	return out
}

// StdDev returns the population standard deviation of the last period
// closes around the SMA at the same index, aligned with SMA's null prefix.
func StdDev(candles []Candle, period int) []*float64 {
	out := make([]*float64, len(candles))
	if period <= 0 {
		return out
	}
	sma := SMA(candles, period)
	cl := closes(candles)
	for i := range candles {
		if sma[i] == nil {
			continue
		}
		mean := *sma[i]
		var sumSq float64
		for j := i - period + 1; j <= i; j++ {
			d := cl[j] - mean
			sumSq += d * d
		}
		out[i] = ptr(sumSq / float64(period))
	}
	// sumSq/period above is variance; convert to std dev in place.
	for i := range out {
		if out[i] != nil {
			v := math.Sqrt(*out[i])
			out[i] = &v
		}
	}
	return out
}
