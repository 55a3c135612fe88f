package execution

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"xauusd-engine/internal/store"
)

// fakeLedger is an in-memory stand-in for *store.Repository.
type fakeLedger struct {
	trades   map[string]*store.Trade
	accounts map[string]*store.TradingAccount
}

func newFakeLedger() *fakeLedger {
	return &fakeLedger{trades: map[string]*store.Trade{}, accounts: map[string]*store.TradingAccount{}}
}

func (f *fakeLedger) InsertOpenTrade(ctx context.Context, t *store.Trade) error {
	cp := *t
	f.trades[t.ID] = &cp
	return nil
}

func (f *fakeLedger) TradeByID(ctx context.Context, id string) (*store.Trade, error) {
	t, ok := f.trades[id]
	if !ok {
		return nil, assertErr{"trade not found"}
	}
	cp := *t
	return &cp, nil
}

func (f *fakeLedger) CloseTrade(ctx context.Context, id string, closePrice, profitLoss float64, closedAt time.Time) error {
	t, ok := f.trades[id]
	if !ok {
		return assertErr{"trade not found"}
	}
	t.Status = store.StatusClosed
	t.ClosePrice = &closePrice
	t.ProfitLoss = &profitLoss
	t.ClosedAt = &closedAt
	return nil
}

func (f *fakeLedger) OpenTrades(ctx context.Context, accountID string) ([]*store.Trade, error) {
	var out []*store.Trade
	for _, t := range f.trades {
		if t.Status != store.StatusOpen {
			continue
		}
		if accountID != "" && t.AccountID != accountID {
			continue
		}
		cp := *t
		out = append(out, &cp)
	}
	return out, nil
}

func (f *fakeLedger) TradingAccountByID(ctx context.Context, id string) (*store.TradingAccount, error) {
	a, ok := f.accounts[id]
	if !ok {
		return nil, assertErr{"account not found"}
	}
	return a, nil
}

type assertErr struct{ msg string }

func (e assertErr) Error() string { return e.msg }

func spotFunc(price float64) func(context.Context) (float64, error) {
	return func(ctx context.Context) (float64, error) { return price, nil }
}

// Invariant: a BUY closed above its open price is profitable; lot/price
// scale matches the spec's 100-unit-per-lot-point convention.
func TestSimulated_ExecuteThenCloseBuyProfit(t *testing.T) {
	repo := newFakeLedger()
	provider := NewSimulated(repo, spotFunc(2020.0), discardLogger())

	exec, err := provider.ExecuteOrder(context.Background(), ExecuteOrderInput{
		UserID: "u1", Symbol: "XAUUSD", Side: "BUY", Lot: 0.10, OpenPrice: 2000.0, Stop: 1990.0,
	})
	require.NoError(t, err)
	require.True(t, exec.Success)
	require.NotEmpty(t, exec.Ticket)

	result, err := provider.CloseOrder(context.Background(), exec.Ticket, nil)
	require.NoError(t, err)
	assert.True(t, result.Success)
	assert.Equal(t, 2020.0, result.ClosePrice)
	assert.InDelta(t, 200.0, result.Profit, 1e-9) // (2020-2000)*0.10*100
}

// Invariant: a SELL closed above its open price is a loss.
func TestSimulated_ExecuteThenCloseSellLoss(t *testing.T) {
	repo := newFakeLedger()
	provider := NewSimulated(repo, spotFunc(2020.0), discardLogger())

	exec, err := provider.ExecuteOrder(context.Background(), ExecuteOrderInput{
		UserID: "u1", Symbol: "XAUUSD", Side: "SELL", Lot: 0.05, OpenPrice: 2000.0, Stop: 2010.0,
	})
	require.NoError(t, err)

	result, err := provider.CloseOrder(context.Background(), exec.Ticket, nil)
	require.NoError(t, err)
	assert.InDelta(t, -100.0, result.Profit, 1e-9) // (2000-2020)*0.05*100
}

func TestSimulated_CloseOrderRejectsAlreadyClosedTicket(t *testing.T) {
	repo := newFakeLedger()
	provider := NewSimulated(repo, spotFunc(2020.0), discardLogger())

	exec, err := provider.ExecuteOrder(context.Background(), ExecuteOrderInput{
		UserID: "u1", Symbol: "XAUUSD", Side: "BUY", Lot: 0.01, OpenPrice: 2000.0, Stop: 1990.0,
	})
	require.NoError(t, err)

	_, err = provider.CloseOrder(context.Background(), exec.Ticket, nil)
	require.NoError(t, err)

	_, err = provider.CloseOrder(context.Background(), exec.Ticket, nil)
	assert.Error(t, err)
}

func TestSimulated_GetAccountSummaryDefaultsWithoutAccountID(t *testing.T) {
	repo := newFakeLedger()
	provider := NewSimulated(repo, spotFunc(2020.0), discardLogger())

	summary, err := provider.GetAccountSummary(context.Background(), "")
	require.NoError(t, err)
	assert.Equal(t, defaultBalance, summary.Balance)
}

func TestSimulated_GetOpenPositionsListsOnlyOpenTrades(t *testing.T) {
	repo := newFakeLedger()
	provider := NewSimulated(repo, spotFunc(2020.0), discardLogger())

	opened, err := provider.ExecuteOrder(context.Background(), ExecuteOrderInput{
		UserID: "u1", AccountID: "a1", Symbol: "XAUUSD", Side: "BUY", Lot: 0.01, OpenPrice: 2000.0, Stop: 1990.0,
	})
	require.NoError(t, err)
	closedExec, err := provider.ExecuteOrder(context.Background(), ExecuteOrderInput{
		UserID: "u1", AccountID: "a1", Symbol: "XAUUSD", Side: "SELL", Lot: 0.01, OpenPrice: 2000.0, Stop: 2010.0,
	})
	require.NoError(t, err)
	_, err = provider.CloseOrder(context.Background(), closedExec.Ticket, nil)
	require.NoError(t, err)

	positions, err := provider.GetOpenPositions(context.Background(), "a1")
	require.NoError(t, err)
	require.Len(t, positions, 1)
	assert.Equal(t, opened.Ticket, positions[0].Ticket)
}
