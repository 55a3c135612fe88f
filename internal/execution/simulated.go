package execution

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"xauusd-engine/internal/apierr"
	"xauusd-engine/internal/store"
)

// defaultBalance backs getAccountSummary when no trading-account row is on
// file for the requested account id.
const defaultBalance = 10000.0

// ledger is the slice of *store.Repository the simulated provider drives —
// kept as a narrow interface so tests can exercise the P&L and ledger-state
// logic against a fake instead of a live database.
type ledger interface {
	InsertOpenTrade(ctx context.Context, t *store.Trade) error
	TradeByID(ctx context.Context, id string) (*store.Trade, error)
	CloseTrade(ctx context.Context, id string, closePrice, profitLoss float64, closedAt time.Time) error
	OpenTrades(ctx context.Context, accountID string) ([]*store.Trade, error)
	TradingAccountByID(ctx context.Context, id string) (*store.TradingAccount, error)
}

// Simulated is the default execution provider: every operation writes to
// or reads from the trade ledger instead of a real broker. Ticket and
// trade id are the same generated UUID — there is no separate broker-side
// identifier to reconcile against.
type Simulated struct {
	repo   ledger
	spot   func(ctx context.Context) (float64, error)
	logger zerolog.Logger
}

func NewSimulated(repo ledger, spot func(ctx context.Context) (float64, error), logger zerolog.Logger) *Simulated {
	return &Simulated{repo: repo, spot: spot, logger: logger.With().Str("provider", "simulated").Logger()}
}

func (s *Simulated) ExecuteOrder(ctx context.Context, in ExecuteOrderInput) (ExecuteOrderResult, error) {
	id := uuid.New().String()

	trade := &store.Trade{
		ID:        id,
		UserID:    in.UserID,
		AccountID: in.AccountID,
		SessionID: in.SessionID,
		Ticket:    id,
		Symbol:    in.Symbol,
		Side:      store.TradeSide(in.Side),
		LotSize:   in.Lot,
		OpenPrice: in.OpenPrice,
		StopLoss:  floatPtr(in.Stop),
		TakeProfit: in.Take,
		Status:    store.StatusOpen,
		OpenedAt:  time.Now(),
	}

	if err := s.repo.InsertOpenTrade(ctx, trade); err != nil {
		s.logger.Error().Err(err).Str("symbol", in.Symbol).Msg("insert open trade failed")
		return ExecuteOrderResult{}, apierr.Wrap(apierr.StoreFailure, "inserting open trade", err)
	}

	s.logger.Info().Str("ticket", id).Str("symbol", in.Symbol).Str("side", in.Side).Msg("order executed")
	return ExecuteOrderResult{Success: true, TradeID: id, Ticket: id}, nil
}

func (s *Simulated) CloseOrder(ctx context.Context, ticket string, lots *float64) (CloseOrderResult, error) {
	trade, err := s.repo.TradeByID(ctx, ticket)
	if err != nil {
		return CloseOrderResult{}, apierr.Wrap(apierr.ProviderFailure, "trade not found for ticket "+ticket, err)
	}
	if trade.Status != store.StatusOpen {
		return CloseOrderResult{}, apierr.New(apierr.ProviderFailure, "trade "+ticket+" is not open")
	}

	price, err := s.spot(ctx)
	if err != nil {
		s.logger.Error().Err(err).Str("ticket", ticket).Msg("closeOrder could not fetch spot")
		return CloseOrderResult{}, apierr.Wrap(apierr.UpstreamUnavailable, "fetching spot for close", err)
	}

	var priceDiff float64
	if trade.Side == store.Buy {
		priceDiff = price - trade.OpenPrice
	} else {
		priceDiff = trade.OpenPrice - price
	}
	profit := priceDiff * trade.LotSize * 100

	now := time.Now()
	if err := s.repo.CloseTrade(ctx, trade.ID, price, profit, now); err != nil {
		s.logger.Error().Err(err).Str("ticket", ticket).Msg("close trade store write failed")
		return CloseOrderResult{}, apierr.Wrap(apierr.StoreFailure, "closing trade", err)
	}

	s.logger.Info().Str("ticket", ticket).Float64("profit", profit).Msg("order closed")
	return CloseOrderResult{Success: true, Ticket: ticket, ClosePrice: price, Profit: profit}, nil
}

func (s *Simulated) GetAccountSummary(ctx context.Context, accountID string) (AccountSummary, error) {
	if accountID == "" {
		return AccountSummary{Balance: defaultBalance, Equity: defaultBalance, Currency: "USD"}, nil
	}
	account, err := s.repo.TradingAccountByID(ctx, accountID)
	if err != nil {
		return AccountSummary{Balance: defaultBalance, Equity: defaultBalance, Currency: "USD"}, nil
	}
	return AccountSummary{
		Balance:  account.Balance,
		Equity:   account.Equity,
		Currency: account.Currency,
	}, nil
}

func (s *Simulated) GetOpenPositions(ctx context.Context, accountID string) ([]OpenPosition, error) {
	trades, err := s.repo.OpenTrades(ctx, accountID)
	if err != nil {
		return nil, apierr.Wrap(apierr.StoreFailure, "listing open positions", err)
	}
	out := make([]OpenPosition, 0, len(trades))
	for _, t := range trades {
		out = append(out, OpenPosition{
			Ticket:    t.Ticket,
			Symbol:    t.Symbol,
			Side:      string(t.Side),
			LotSize:   t.LotSize,
			OpenPrice: t.OpenPrice,
		})
	}
	return out, nil
}

func (s *Simulated) GetServerTime(ctx context.Context) (ServerTime, error) {
	return ServerTime{Time: time.Now().UTC().Format(time.RFC3339)}, nil
}

func floatPtr(v float64) *float64 {
	return &v
}
