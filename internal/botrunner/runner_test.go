package botrunner

import (
	"context"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"xauusd-engine/internal/execution"
	"xauusd-engine/internal/indicator"
	"xauusd-engine/internal/risk"
	"xauusd-engine/internal/store"
)

type fakeSessionStore struct {
	active       []*store.BotSession
	openBySess   map[string][]*store.Trade
	updated      []*store.BotSession
	activeErr    error
	openTradeErr error
}

func (f *fakeSessionStore) ActiveBotSessions(ctx context.Context) ([]*store.BotSession, error) {
	return f.active, f.activeErr
}

func (f *fakeSessionStore) OpenTradesBySession(ctx context.Context, sessionID string) ([]*store.Trade, error) {
	if f.openTradeErr != nil {
		return nil, f.openTradeErr
	}
	return f.openBySess[sessionID], nil
}

func (f *fakeSessionStore) UpdateBotSession(ctx context.Context, s *store.BotSession) error {
	f.updated = append(f.updated, s)
	return nil
}

type fakeMarket struct {
	history []indicator.Candle
	spot    float64
	histErr error
	spotErr error
}

func (f *fakeMarket) FetchHistorical(ctx context.Context, interval, outputsize string) ([]indicator.Candle, error) {
	return f.history, f.histErr
}

func (f *fakeMarket) FetchSpot(ctx context.Context) (float64, error) {
	return f.spot, f.spotErr
}

type fakeExecutor struct {
	result execution.ExecuteOrderResult
	err    error
	calls  []execution.ExecuteOrderInput
}

func (f *fakeExecutor) ExecuteOrder(ctx context.Context, in execution.ExecuteOrderInput) (execution.ExecuteOrderResult, error) {
	f.calls = append(f.calls, in)
	return f.result, f.err
}

type fakeNotifier struct {
	executed, errored, sessionErrors int
}

func (f *fakeNotifier) TradeExecuted(ctx context.Context, userID, symbol, side string, price, lot float64) error {
	f.executed++
	return nil
}
func (f *fakeNotifier) TradeError(ctx context.Context, userID, symbol, reason string) error {
	f.errored++
	return nil
}
func (f *fakeNotifier) SessionError(ctx context.Context, userID, sessionID, reason string) error {
	f.sessionErrors++
	return nil
}

func trendingHistory(n int) []indicator.Candle {
	out := make([]indicator.Candle, n)
	price := 1900.0
	for i := range out {
		price += 1.5
		out[i] = indicator.Candle{Symbol: "XAUUSD", Timeframe: "15m", Timestamp: time.Unix(int64(i)*900, 0),
			Open: price - 1, High: price + 1, Low: price - 2, Close: price}
	}
	return out
}

func TestRunner_SkipsSessionWithExistingOpenTrade(t *testing.T) {
	session := &store.BotSession{ID: "s1", UserID: "u1", RiskLevel: "medium", StrategyMode: "ADAPTIVE"}
	sessions := &fakeSessionStore{
		active:     []*store.BotSession{session},
		openBySess: map[string][]*store.Trade{"s1": {{ID: "t1", Status: store.StatusOpen}}},
	}
	executor := &fakeExecutor{}
	runner := NewRunner(sessions, &fakeMarket{}, executor, &fakeNotifier{}, risk.NewSessionLocks(), zerolog.Nop())

	err := runner.Run(context.Background())
	require.NoError(t, err)
	assert.Empty(t, executor.calls)
}

func TestRunner_InsufficientHistorySkipsWithoutError(t *testing.T) {
	session := &store.BotSession{ID: "s1", UserID: "u1", RiskLevel: "medium", StrategyMode: "ADAPTIVE"}
	sessions := &fakeSessionStore{active: []*store.BotSession{session}, openBySess: map[string][]*store.Trade{}}
	market := &fakeMarket{history: trendingHistory(5), spot: 2000}
	notifier := &fakeNotifier{}
	runner := NewRunner(sessions, market, &fakeExecutor{}, notifier, risk.NewSessionLocks(), zerolog.Nop())

	err := runner.Run(context.Background())
	require.NoError(t, err)
	assert.Zero(t, notifier.sessionErrors)
}

func TestRunner_TrendingMarketExecutesOrderAndNotifies(t *testing.T) {
	session := &store.BotSession{ID: "s1", UserID: "u1", AccountID: "a1", RiskLevel: "medium", StrategyMode: "SMA_ONLY",
		StrategyParams: map[string]interface{}{"smaShort": 2.0, "smaLong": 3.0, "bbPeriod": 3.0, "rsiPeriod": 3.0, "atrPeriod": 2.0, "adxPeriod": 2.0}}
	sessions := &fakeSessionStore{active: []*store.BotSession{session}, openBySess: map[string][]*store.Trade{}}

	history := []indicator.Candle{}
	closes := []float64{2000, 1990, 1985, 1995, 2010}
	for i, c := range closes {
		history = append(history, indicator.Candle{
			Symbol: "XAUUSD", Timeframe: "15m", Timestamp: time.Unix(int64(i)*900, 0),
			Open: c, High: c + 2, Low: c - 2, Close: c,
		})
	}
	market := &fakeMarket{history: history, spot: 2015}
	executor := &fakeExecutor{result: execution.ExecuteOrderResult{Success: true, TradeID: "t1", Ticket: "t1"}}
	notifier := &fakeNotifier{}

	runner := NewRunner(sessions, market, executor, notifier, risk.NewSessionLocks(), zerolog.Nop())
	err := runner.Run(context.Background())
	require.NoError(t, err)

	require.Len(t, executor.calls, 1)
	assert.Equal(t, "medium", session.RiskLevel)
	assert.Equal(t, 0.05, executor.calls[0].Lot)
	assert.Equal(t, 1, notifier.executed)
	assert.Len(t, sessions.updated, 1)
	assert.Equal(t, 1, sessions.updated[0].TradeCount)
}

func TestRunner_ProviderFailureRecordsTradeErrorNotification(t *testing.T) {
	session := &store.BotSession{ID: "s1", UserID: "u1", RiskLevel: "medium", StrategyMode: "SMA_ONLY",
		StrategyParams: map[string]interface{}{"smaShort": 2.0, "smaLong": 3.0, "bbPeriod": 3.0, "rsiPeriod": 3.0, "atrPeriod": 2.0, "adxPeriod": 2.0}}
	sessions := &fakeSessionStore{active: []*store.BotSession{session}, openBySess: map[string][]*store.Trade{}}

	history := []indicator.Candle{}
	closes := []float64{2000, 1990, 1985, 1995, 2010}
	for i, c := range closes {
		history = append(history, indicator.Candle{
			Symbol: "XAUUSD", Timeframe: "15m", Timestamp: time.Unix(int64(i)*900, 0),
			Open: c, High: c + 2, Low: c - 2, Close: c,
		})
	}
	market := &fakeMarket{history: history, spot: 2015}
	executor := &fakeExecutor{result: execution.ExecuteOrderResult{Success: false, Error: "bridge unreachable"}}
	notifier := &fakeNotifier{}

	runner := NewRunner(sessions, market, executor, notifier, risk.NewSessionLocks(), zerolog.Nop())
	err := runner.Run(context.Background())
	require.NoError(t, err) // per-session failures never propagate out of Run
	assert.Equal(t, 1, notifier.errored)
	assert.Equal(t, 1, notifier.sessionErrors)
}
