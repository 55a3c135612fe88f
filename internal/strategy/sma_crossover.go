package strategy

import "xauusd-engine/internal/indicator"

// SMACrossover signals BUY on an up-cross of SMAShort over SMALong at the
// signal candle (the candle before was at-or-below), SELL on the mirrored
// down-cross.
type SMACrossover struct{}

func (SMACrossover) Decide(history []indicator.Candle, decisionPrice float64, params Params, atr float64) Signal {
	n := len(history)
	if n < params.SMALong+1 {
		return Signal{}
	}

	short := indicator.SMA(history, params.SMAShort)
	long := indicator.SMA(history, params.SMALong)

	signalIdx := n - 1
	prevIdx := n - 2

	curShort, curLong := short[signalIdx], long[signalIdx]
	prevShort, prevLong := short[prevIdx], long[prevIdx]
	if curShort == nil || curLong == nil || prevShort == nil || prevLong == nil {
		return Signal{}
	}

	switch {
	case *prevShort <= *prevLong && *curShort > *curLong:
		stop, take := stopsFor(Buy, decisionPrice, atr, params.ATRMultSL, params.ATRMultTP)
		return Signal{Side: Buy, Stop: stop, Take: take}
	case *prevShort >= *prevLong && *curShort < *curLong:
		stop, take := stopsFor(Sell, decisionPrice, atr, params.ATRMultSL, params.ATRMultTP)
		return Signal{Side: Sell, Stop: stop, Take: take}
	default:
		return Signal{}
	}
}
