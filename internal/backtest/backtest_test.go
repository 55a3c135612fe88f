package backtest

import (
	"context"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"xauusd-engine/internal/apierr"
	"xauusd-engine/internal/store"
	"xauusd-engine/internal/strategy"
)

type fakeLedger struct {
	candles        []store.Candle
	candlesErr     error
	insertReportErr error
	insertTradesErr error

	insertedReport *store.BacktestReport
	insertedTrades []store.SimulatedTrade
	deletedReportID string
}

func (f *fakeLedger) CandlesInRange(ctx context.Context, symbol, timeframe string, start, end time.Time) ([]store.Candle, error) {
	return f.candles, f.candlesErr
}

func (f *fakeLedger) InsertBacktestReport(ctx context.Context, report *store.BacktestReport) error {
	if f.insertReportErr != nil {
		return f.insertReportErr
	}
	f.insertedReport = report
	return nil
}

func (f *fakeLedger) InsertSimulatedTrades(ctx context.Context, trades []store.SimulatedTrade) error {
	if f.insertTradesErr != nil {
		return f.insertTradesErr
	}
	f.insertedTrades = trades
	return nil
}

func (f *fakeLedger) DeleteBacktestReport(ctx context.Context, reportID string) error {
	f.deletedReportID = reportID
	return nil
}

type fakeNotifier struct {
	ready int
}

func (f *fakeNotifier) BacktestReady(ctx context.Context, userID, reportID string) error {
	f.ready++
	return nil
}

func smallParamCandles(closes []float64) []store.Candle {
	out := make([]store.Candle, len(closes))
	for i, c := range closes {
		out[i] = store.Candle{
			Symbol: "XAUUSD", Timeframe: "15m", Timestamp: time.Unix(int64(i)*900, 0),
			Open: c, High: c + 2, Low: c - 2, Close: c,
		}
	}
	return out
}

func smallParams() map[string]interface{} {
	return map[string]interface{}{
		"smaShort": 2.0, "smaLong": 3.0, "bbPeriod": 3.0, "rsiPeriod": 3.0, "atrPeriod": 2.0, "adxPeriod": 2.0,
	}
}

// TestCheckExit_SLBeforeTPTieBreak mirrors S3: entry BUY at 2000 with
// stop=1995, next candle low=1994,high=2001,close=1998 — with take=2001 the
// candle touches both levels, and SL must win.
func TestCheckExit_SLBeforeTPTieBreak(t *testing.T) {
	trade := openTrade{side: strategy.Buy, entry: 2000, stop: 1995, take: 2001}
	candle := store.Candle{Low: 1994, High: 2001, Close: 1998}

	exit, reason, hit := checkExit(trade, candle)
	require.True(t, hit)
	assert.Equal(t, 1995.0, exit)
	assert.Equal(t, store.CloseSL, reason)

	pl := profitLoss(trade.side, trade.entry, exit, 0.01)
	assert.InDelta(t, -5.0, pl, 1e-9)
}

// TestCheckExit_NoExitWhenNeitherTouched ensures a quiet candle leaves the
// trade open.
func TestCheckExit_NoExitWhenNeitherTouched(t *testing.T) {
	trade := openTrade{side: strategy.Buy, entry: 2000, stop: 1995, take: 2010}
	candle := store.Candle{Low: 1999, High: 2005, Close: 2002}

	_, _, hit := checkExit(trade, candle)
	assert.False(t, hit)
}

// TestProfitLoss_SignMatchesSide covers invariant 7 and S4's signal-exit
// magnitude directly.
func TestProfitLoss_SignMatchesSide(t *testing.T) {
	assert.InDelta(t, 300.0, profitLoss(strategy.Buy, 2000, 2003, 1), 1e-9)
	assert.InDelta(t, -300.0, profitLoss(strategy.Sell, 2000, 2003, 1), 1e-9)
	assert.Zero(t, profitLoss(strategy.Buy, 2000, 2000, 1))
}

func TestAggregate_WinRateAndTotals(t *testing.T) {
	report := &store.BacktestReport{}
	trades := []store.SimulatedTrade{
		{ProfitLoss: 10},
		{ProfitLoss: -5},
		{ProfitLoss: 20},
	}
	aggregate(report, trades)
	assert.Equal(t, 3, report.TotalTrades)
	assert.Equal(t, 2, report.WinningTrades)
	assert.Equal(t, 1, report.LosingTrades)
	assert.InDelta(t, 25.0, report.TotalPL, 1e-9)
	assert.InDelta(t, 2.0/3.0*100, report.WinRate, 1e-9)
}

func TestAggregate_ZeroProfitTradeCountsAsNeitherWinNorLoss(t *testing.T) {
	report := &store.BacktestReport{}
	trades := []store.SimulatedTrade{
		{ProfitLoss: 10},
		{ProfitLoss: 0},
	}
	aggregate(report, trades)
	assert.Equal(t, 2, report.TotalTrades)
	assert.Equal(t, 1, report.WinningTrades)
	assert.Equal(t, 0, report.LosingTrades)
}

func TestAggregate_ZeroTradesZeroWinRate(t *testing.T) {
	report := &store.BacktestReport{}
	aggregate(report, nil)
	assert.Zero(t, report.TotalTrades)
	assert.Zero(t, report.WinRate)
}

func TestEngine_Run_InsufficientDataReturnsError(t *testing.T) {
	ledger := &fakeLedger{candles: smallParamCandles([]float64{2000, 1990})}
	engine := NewEngine(ledger, &fakeNotifier{}, zerolog.Nop())

	_, _, err := engine.Run(context.Background(), Request{
		Symbol: "XAUUSD", Timeframe: "15m", StrategyParams: smallParams(), LotSize: 0.01,
	})
	require.Error(t, err)
	apiErr, ok := apierr.As(err)
	require.True(t, ok)
	assert.Equal(t, apierr.InsufficientData, apiErr.Kind)
}

func TestEngine_Run_HappyPathOpensAndClosesAtEndOfTest(t *testing.T) {
	closes := []float64{2000, 1990, 1985, 1995, 2010, 2020, 2030}
	ledger := &fakeLedger{candles: smallParamCandles(closes)}
	notifier := &fakeNotifier{}
	userID := "u1"
	engine := NewEngine(ledger, notifier, zerolog.Nop())

	report, trades, err := engine.Run(context.Background(), Request{
		UserID: &userID, Symbol: "XAUUSD", Timeframe: "15m",
		StrategyMode: "SMA_ONLY", StrategyParams: smallParams(), LotSize: 0.01,
	})
	require.NoError(t, err)
	require.Len(t, trades, 1)
	assert.Equal(t, store.CloseEndOfRun, trades[0].CloseReason)
	assert.Greater(t, trades[0].ProfitLoss, 0.0)
	assert.Equal(t, 1, report.TotalTrades)
	assert.Equal(t, 1, report.WinningTrades)
	assert.InDelta(t, 100.0, report.WinRate, 1e-9)
	assert.Equal(t, 1, notifier.ready)
	assert.NotNil(t, ledger.insertedReport)
	assert.Len(t, ledger.insertedTrades, 1)
}

// TestEngine_Run_AtomicRollbackOnTradeInsertFailure covers invariant 8:
// when the trade insert fails, the report row must not survive.
func TestEngine_Run_AtomicRollbackOnTradeInsertFailure(t *testing.T) {
	closes := []float64{2000, 1990, 1985, 1995, 2010, 2020, 2030}
	ledger := &fakeLedger{candles: smallParamCandles(closes), insertTradesErr: assert.AnError}
	engine := NewEngine(ledger, &fakeNotifier{}, zerolog.Nop())

	_, _, err := engine.Run(context.Background(), Request{
		Symbol: "XAUUSD", Timeframe: "15m", StrategyMode: "SMA_ONLY", StrategyParams: smallParams(), LotSize: 0.01,
	})
	require.Error(t, err)
	require.NotNil(t, ledger.insertedReport)
	assert.Equal(t, ledger.insertedReport.ID, ledger.deletedReportID)
}
