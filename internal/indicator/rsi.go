package indicator

// RSI is Wilder's relative strength index: first valid value at index
// period, using Wilder-smoothed average gain/loss. When the smoothed loss
// is zero, RSI is 100.
func RSI(candles []Candle, period int) []*float64 {
	out := make([]*float64, len(candles))
	if period <= 0 || len(candles) <= period {
		return out
	}
	cl := closes(candles)

	var gainSum, lossSum float64
	for i := 1; i <= period; i++ {
		diff := cl[i] - cl[i-1]
		if diff > 0 {
			gainSum += diff
		} else {
			lossSum += -diff
		}
	}
	avgGain := gainSum / float64(period)
	avgLoss := lossSum / float64(period)
	out[period] = ptr(rsiFromAverages(avgGain, avgLoss))

	for i := period + 1; i < len(candles); i++ {
		diff := cl[i] - cl[i-1]
		var gain, loss float64
		if diff > 0 {
			gain = diff
		} else {
			loss = -diff
		}
		avgGain = (avgGain*float64(period-1) + gain) / float64(period)
		avgLoss = (avgLoss*float64(period-1) + loss) / float64(period)
		out[i] = ptr(rsiFromAverages(avgGain, avgLoss))
	}
	return out
}

func rsiFromAverages(avgGain, avgLoss float64) float64 {
	if avgLoss == 0 {
		return 100
	}
	rs := avgGain / avgLoss
	return 100 - (100 / (1 + rs))
}
