package botrunner

import "xauusd-engine/internal/strategy"

// defaults backstop any field a session's strategy_params JSON omits.
var defaults = strategy.Params{
	SMAShort: 10, SMALong: 30,
	BBPeriod: 20, BBK: 2.0,
	RSIPeriod: 14, RSIOverbought: 70, RSIOversold: 30,
	ATRPeriod: 14, ATRMultSL: 1.5, ATRMultTP: 3.0,
	ADXPeriod: 14, ADXTrendThreshold: 25, ADXRangeThreshold: 20,
}

// paramsFromSession builds a strategy.Params from a session's stored mode
// and freeform strategy_params map, falling back to defaults field by
// field.
func paramsFromSession(mode string, raw map[string]interface{}) strategy.Params {
	p := defaults
	p.Mode = strategy.Mode(mode)

	p.SMAShort = intOr(raw, "smaShort", p.SMAShort)
	p.SMALong = intOr(raw, "smaLong", p.SMALong)
	p.BBPeriod = intOr(raw, "bbPeriod", p.BBPeriod)
	p.BBK = floatOr(raw, "bbK", p.BBK)
	p.RSIPeriod = intOr(raw, "rsiPeriod", p.RSIPeriod)
	p.RSIOverbought = floatOr(raw, "rsiOverbought", p.RSIOverbought)
	p.RSIOversold = floatOr(raw, "rsiOversold", p.RSIOversold)
	p.ATRPeriod = intOr(raw, "atrPeriod", p.ATRPeriod)
	p.ATRMultSL = floatOr(raw, "atrMultSL", p.ATRMultSL)
	p.ATRMultTP = floatOr(raw, "atrMultTP", p.ATRMultTP)
	p.ADXPeriod = intOr(raw, "adxPeriod", p.ADXPeriod)
	p.ADXTrendThreshold = floatOr(raw, "adxTrendThreshold", p.ADXTrendThreshold)
	p.ADXRangeThreshold = floatOr(raw, "adxRangeThreshold", p.ADXRangeThreshold)
	return p
}

func floatOr(raw map[string]interface{}, key string, fallback float64) float64 {
	v, ok := raw[key]
	if !ok {
		return fallback
	}
	switch n := v.(type) {
	case float64:
		return n
	case int:
		return float64(n)
	default:
		return fallback
	}
}

func intOr(raw map[string]interface{}, key string, fallback int) int {
	return int(floatOr(raw, key, float64(fallback)))
}
