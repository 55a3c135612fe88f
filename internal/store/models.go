package store

import "time"

// Candle is one upserted OHLC bar. Identity is (Symbol, Timeframe,
// Timestamp); re-ingest overwrites the OHLCV fields, never the identity.
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

// TradeSide matches the ledger's side enum.
type TradeSide string

const (
	Buy  TradeSide = "BUY"
	Sell TradeSide = "SELL"
)

// TradeStatus matches the ledger's status enum.
type TradeStatus string

const (
	StatusOpen   TradeStatus = "open"
	StatusClosed TradeStatus = "closed"
)

// Trade is one trade-ledger row. A row is open iff ClosePrice, ProfitLoss,
// and ClosedAt are all nil; once closed those fields are frozen.
type Trade struct {
	ID         string
	UserID     string
	AccountID  string
	SessionID  *string
	Ticket     string
	Symbol     string
	Side       TradeSide
	LotSize    float64
	OpenPrice  float64
	StopLoss   *float64
	TakeProfit *float64
	ClosePrice *float64
	ProfitLoss *float64
	Status     TradeStatus
	OpenedAt   time.Time
	ClosedAt   *time.Time
}

// SessionStatus matches the bot session's status enum.
type SessionStatus string

const (
	SessionActive  SessionStatus = "active"
	SessionStopped SessionStatus = "stopped"
	SessionError   SessionStatus = "error"
)

// BotSession is a running (or stopped) strategy configuration under a user;
// the unit of live automation.
type BotSession struct {
	ID             string
	UserID         string
	AccountID      string
	RiskLevel      string
	StrategyMode   string
	StrategyParams map[string]interface{}
	Status         SessionStatus
	StartedAt      time.Time
	StoppedAt      *time.Time
	TradeCount     int
	LastTradeAt    *time.Time
}

// BacktestReport is the persisted summary of a replayed strategy run.
type BacktestReport struct {
	ID             string
	UserID         *string
	Symbol         string
	Timeframe      string
	StartDate      time.Time
	EndDate        time.Time
	StrategyParams map[string]interface{}
	RiskParams     map[string]interface{}
	TotalTrades    int
	TotalPL        float64
	WinningTrades  int
	LosingTrades   int
	WinRate        float64
	CreatedAt      time.Time
}

// CloseReason is why a simulated (or live) trade was closed.
type CloseReason string

const (
	CloseSL       CloseReason = "SL"
	CloseTP       CloseReason = "TP"
	CloseSignal   CloseReason = "Signal"
	CloseEndOfRun CloseReason = "EndOfTest"
)

// SimulatedTrade is one backtest replay trade, same shape as Trade plus a
// close reason.
type SimulatedTrade struct {
	ID          string
	ReportID    string
	Symbol      string
	Side        TradeSide
	LotSize     float64
	OpenPrice   float64
	StopLoss    *float64
	TakeProfit  *float64
	ClosePrice  float64
	ProfitLoss  float64
	CloseReason CloseReason
	OpenedAt    time.Time
	ClosedAt    time.Time
}

// Notification is one append-only row the engine writes for a user.
type Notification struct {
	ID        string
	UserID    string
	Kind      string
	Title     string
	Body      string
	CreatedAt time.Time
	Read      bool
}

// Provider matches the trading account's provider enum.
type Provider string

const (
	ProviderSimulated  Provider = "SIMULATED"
	ProviderMetaTrader Provider = "METATRADER"
)

// TradingAccount backs upsert_trading_account_action and the simulated
// provider's getAccountSummary default-balance lookup.
type TradingAccount struct {
	ID        string
	UserID    string
	Label     string
	Provider  Provider
	Balance   float64
	Equity    float64
	Currency  string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// UserOverview is the read projection admin_list_users_overview serves.
type UserOverview struct {
	UserID       string
	OpenTrades   int
	ClosedTrades int
	ActiveBots   int
	Backtests    int
}
