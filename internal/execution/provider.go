// Package execution implements the uniform order/position/account
// interface the bot-session runner and backtest-adjacent actions drive,
// with two implementations: a ledger-backed simulator and an HTTP bridge
// to a MetaTrader-style broker.
package execution

import "context"

// OpenPosition mirrors one open ledger row as the provider contract
// reports it.
type OpenPosition struct {
	Ticket    string
	Symbol    string
	Side      string
	LotSize   float64
	OpenPrice float64
}

// ExecuteOrderInput bundles an order request.
type ExecuteOrderInput struct {
	UserID    string
	AccountID string
	Symbol    string
	Side      string
	Lot       float64
	OpenPrice float64
	Stop      float64
	Take      *float64
	SessionID *string
}

// ExecuteOrderResult is the outcome of an executeOrder call.
type ExecuteOrderResult struct {
	Success bool
	TradeID string
	Ticket  string
	Error   string
}

// CloseOrderResult is the outcome of a closeOrder call.
type CloseOrderResult struct {
	Success    bool
	Ticket     string
	ClosePrice float64
	Profit     float64
	Error      string
}

// AccountSummary is the outcome of a getAccountSummary call.
type AccountSummary struct {
	Balance     float64
	Equity      float64
	Margin      float64
	FreeMargin  float64
	Currency    string
	Error       string
}

// ServerTime is the outcome of a getServerTime call.
type ServerTime struct {
	Time  string
	Error string
}

// Provider is the five-operation execution contract. Implementations are
// stateless — a new instance per invocation is acceptable.
type Provider interface {
	ExecuteOrder(ctx context.Context, in ExecuteOrderInput) (ExecuteOrderResult, error)
	CloseOrder(ctx context.Context, ticket string, lots *float64) (CloseOrderResult, error)
	GetAccountSummary(ctx context.Context, accountID string) (AccountSummary, error)
	GetOpenPositions(ctx context.Context, accountID string) ([]OpenPosition, error)
	GetServerTime(ctx context.Context) (ServerTime, error)
}
