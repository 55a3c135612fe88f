// Package indicator computes deterministic technical-indicator series over
// an OHLC candle slice. Every function returns a slice the same length as
// its input, with nil entries before the lookback period is satisfied —
// value i is derived only from candles[0..i], never from the future.
package indicator

import "time"

// Candle is one OHLC bar. Indicator functions only read Open/High/Low/Close;
// Volume and Timestamp are carried for callers, not consulted here.
type Candle struct {
	Symbol    string
	Timeframe string
	Timestamp time.Time
	Open      float64
	High      float64
	Low       float64
	Close     float64
	Volume    float64
}

func closes(candles []Candle) []float64 {
	out := make([]float64, len(candles))
	for i, c := range candles {
		out[i] = c.Close
	}
	return out
}

func ptr(v float64) *float64 {
	return &v
}
