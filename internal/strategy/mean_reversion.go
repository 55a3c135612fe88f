package strategy

import "xauusd-engine/internal/indicator"

// MeanReversion signals BUY when price closes at/below the lower Bollinger
// band while RSI is oversold and turning up, SELL on the mirrored
// overbought/turning-down condition.
type MeanReversion struct{}

func (MeanReversion) Decide(history []indicator.Candle, decisionPrice float64, params Params, atr float64) Signal {
	n := len(history)
	if n < params.BBPeriod+1 || n < params.RSIPeriod+2 {
		return Signal{}
	}

	bands := indicator.BollingerBands(history, params.BBPeriod, params.BBK)
	rsi := indicator.RSI(history, params.RSIPeriod)

	signalIdx := n - 1
	prevIdx := n - 2

	upper, lower := bands.Upper[signalIdx], bands.Lower[signalIdx]
	rsiNow, rsiPrev := rsi[signalIdx], rsi[prevIdx]
	if upper == nil || lower == nil || rsiNow == nil || rsiPrev == nil {
		return Signal{}
	}

	close := history[signalIdx].Close

	switch {
	case close <= *lower && *rsiNow < params.RSIOversold && *rsiNow > *rsiPrev:
		stop, take := stopsFor(Buy, decisionPrice, atr, params.ATRMultSL, params.ATRMultTP)
		return Signal{Side: Buy, Stop: stop, Take: take}
	case close >= *upper && *rsiNow > params.RSIOverbought && *rsiNow < *rsiPrev:
		stop, take := stopsFor(Sell, decisionPrice, atr, params.ATRMultSL, params.ATRMultTP)
		return Signal{Side: Sell, Stop: stop, Take: take}
	default:
		return Signal{}
	}
}
