package indicator

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mkCandles(closesIn []float64) []Candle {
	out := make([]Candle, len(closesIn))
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	prev := closesIn[0]
	for i, c := range closesIn {
		high := c
		low := c
		if c > prev {
			low = prev
		} else {
			high = prev
		}
		out[i] = Candle{
			Symbol:    "XAUUSD",
			Timeframe: "15m",
			Timestamp: base.Add(time.Duration(i) * 15 * time.Minute),
			Open:      prev,
			High:      high,
			Low:       low,
			Close:     c,
		}
		prev = c
	}
	return out
}

func TestSMA_AlignmentAndDeterminism(t *testing.T) {
	candles := mkCandles([]float64{1, 2, 3, 4, 5, 6})
	first := SMA(candles, 3)
	second := SMA(candles, 3)
	require.Equal(t, first, second)

	for i := 0; i < 2; i++ {
		assert.Nil(t, first[i])
	}
	require.NotNil(t, first[2])
	assert.InDelta(t, 2.0, *first[2], 1e-9)
	require.NotNil(t, first[5])
	assert.InDelta(t, 5.0, *first[5], 1e-9)
}

func TestStdDevPopulation(t *testing.T) {
	candles := mkCandles([]float64{2, 4, 4, 4, 5, 5, 7, 9})
	dev := StdDev(candles, 8)
	require.NotNil(t, dev[7])
	assert.InDelta(t, 2.0, *dev[7], 1e-9)
}

func TestBollingerBands(t *testing.T) {
	candles := mkCandles([]float64{10, 10, 10, 10, 20})
	b := BollingerBands(candles, 5, 2)
	require.NotNil(t, b.Middle[4])
	require.NotNil(t, b.Upper[4])
	require.NotNil(t, b.Lower[4])
	assert.Greater(t, *b.Upper[4], *b.Middle[4])
	assert.Less(t, *b.Lower[4], *b.Middle[4])
}

func TestTrueRangeFirstIndexNil(t *testing.T) {
	candles := mkCandles([]float64{100, 102, 101})
	tr := TrueRange(candles)
	assert.Nil(t, tr[0])
	assert.NotNil(t, tr[1])
}

func TestATRWilderSmoothing(t *testing.T) {
	candles := mkCandles([]float64{100, 102, 101, 103, 104, 102, 105, 107, 106, 108})
	atr := ATR(candles, 3)
	for i := 0; i < 3; i++ {
		assert.Nil(t, atr[i])
	}
	require.NotNil(t, atr[3])
	require.NotNil(t, atr[9])
}

func TestRSIRange(t *testing.T) {
	candles := mkCandles([]float64{100, 102, 101, 103, 104, 102, 105, 107, 106, 108, 109, 110, 111, 112, 113})
	rsi := RSI(candles, 14)
	for i, v := range rsi {
		if v == nil {
			continue
		}
		assert.GreaterOrEqualf(t, *v, 0.0, "index %d", i)
		assert.LessOrEqualf(t, *v, 100.0, "index %d", i)
	}
}

func TestRSIAllGainsIsHundred(t *testing.T) {
	vals := []float64{100}
	for i := 1; i <= 14; i++ {
		vals = append(vals, vals[i-1]+1)
	}
	candles := mkCandles(vals)
	rsi := RSI(candles, 14)
	require.NotNil(t, rsi[14])
	assert.InDelta(t, 100.0, *rsi[14], 1e-9)
}

func TestADXRange(t *testing.T) {
	vals := []float64{}
	price := 100.0
	for i := 0; i < 40; i++ {
		if i%2 == 0 {
			price += 2
		} else {
			price -= 0.5
		}
		vals = append(vals, price)
	}
	candles := mkCandles(vals)
	res := ADX(candles, 7)
	for i, v := range res.ADX {
		if v == nil {
			continue
		}
		assert.GreaterOrEqualf(t, *v, 0.0, "adx index %d", i)
		assert.LessOrEqualf(t, *v, 100.0, "adx index %d", i)
	}
	for i, v := range res.PlusDI {
		if v == nil {
			continue
		}
		assert.GreaterOrEqualf(t, *v, 0.0, "plusDI index %d", i)
		assert.LessOrEqualf(t, *v, 100.0, "plusDI index %d", i)
	}
	require.NotNil(t, res.ADX[2*7-1])
}
