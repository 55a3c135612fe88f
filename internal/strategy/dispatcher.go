package strategy

import "xauusd-engine/internal/indicator"

// Dispatcher is itself a Strategy value: under ADAPTIVE mode it computes
// ADX at the signal candle and routes to SMA crossover when the market is
// trending, mean reversion when it is ranging, and emits no signal in the
// dead zone between the two thresholds. Explicit SMA_ONLY/MEAN_REVERSION_ONLY
// modes bypass the regime check entirely. BREAKOUT_ONLY is reserved and
// never signals.
type Dispatcher struct {
	sma           Strategy
	meanReversion Strategy
}

func NewDispatcher() Dispatcher {
	return Dispatcher{sma: SMACrossover{}, meanReversion: MeanReversion{}}
}

func (d Dispatcher) Decide(history []indicator.Candle, decisionPrice float64, params Params, atr float64) Signal {
	switch params.Mode {
	case SMAOnly:
		return d.sma.Decide(history, decisionPrice, params, atr)
	case MeanReversionOnly:
		return d.meanReversion.Decide(history, decisionPrice, params, atr)
	case BreakoutOnly:
		return Signal{}
	default:
		return d.adaptive(history, decisionPrice, params, atr)
	}
}

func (d Dispatcher) adaptive(history []indicator.Candle, decisionPrice float64, params Params, atr float64) Signal {
	n := len(history)
	if n < 2*params.ADXPeriod {
		return Signal{}
	}
	adx := indicator.ADX(history, params.ADXPeriod)
	signalIdx := n - 1
	val := adx.ADX[signalIdx]
	if val == nil {
		return Signal{}
	}

	switch {
	case *val > params.ADXTrendThreshold:
		return d.sma.Decide(history, decisionPrice, params, atr)
	case *val < params.ADXRangeThreshold:
		return d.meanReversion.Decide(history, decisionPrice, params, atr)
	default:
		return Signal{}
	}
}
