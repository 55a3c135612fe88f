package store

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
)

// Repository provides typed data access over the engine's tables.
type Repository struct {
	db *DB
}

func NewRepository(db *DB) *Repository {
	return &Repository{db: db}
}

// HealthCheck performs a liveness probe against the store.
func (r *Repository) HealthCheck(ctx context.Context) error {
	return r.db.Pool.Ping(ctx)
}

// ============================================================================
// PRICE DATA (OHLC archive)
// ============================================================================

// UpsertCandles writes candles, overwriting OHLCV fields on conflict with
// the (symbol, timeframe, timestamp) identity.
func (r *Repository) UpsertCandles(ctx context.Context, candles []Candle) error {
	if len(candles) == 0 {
		return nil
	}
	batch := &pgx.Batch{}
	query := `
		INSERT INTO price_data (symbol, timeframe, timestamp, open, high, low, close, volume)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (symbol, timeframe, timestamp)
		DO UPDATE SET open = $4, high = $5, low = $6, close = $7, volume = $8
	`
	for _, c := range candles {
		batch.Queue(query, c.Symbol, c.Timeframe, c.Timestamp, c.Open, c.High, c.Low, c.Close, c.Volume)
	}
	results := r.db.Pool.SendBatch(ctx, batch)
	defer results.Close()
	for range candles {
		if _, err := results.Exec(); err != nil {
			return fmt.Errorf("upsert candle failed: %w", err)
		}
	}
	return nil
}

// CandlesInRange returns candles for symbol/timeframe ordered ascending by
// timestamp within [start, end].
func (r *Repository) CandlesInRange(ctx context.Context, symbol, timeframe string, start, end time.Time) ([]Candle, error) {
	query := `
		SELECT symbol, timeframe, timestamp, open, high, low, close, volume
		FROM price_data
		WHERE symbol = $1 AND timeframe = $2 AND timestamp BETWEEN $3 AND $4
		ORDER BY timestamp ASC
	`
	rows, err := r.db.Pool.Query(ctx, query, symbol, timeframe, start, end)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Candle
	for rows.Next() {
		var c Candle
		if err := rows.Scan(&c.Symbol, &c.Timeframe, &c.Timestamp, &c.Open, &c.High, &c.Low, &c.Close, &c.Volume); err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

// ============================================================================
// TRADES (ledger)
// ============================================================================

// InsertOpenTrade inserts a new open trade row. Trade.ID is set by the
// caller (a generated ticket/id, per the simulated provider).
func (r *Repository) InsertOpenTrade(ctx context.Context, t *Trade) error {
	query := `
		INSERT INTO trades (id, user_id, account_id, session_id, ticket, symbol, side, lot_size, open_price, stop_loss, take_profit, status, opened_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
	`
	_, err := r.db.Pool.Exec(ctx, query,
		t.ID, t.UserID, t.AccountID, t.SessionID, t.Ticket, t.Symbol, t.Side,
		t.LotSize, t.OpenPrice, t.StopLoss, t.TakeProfit, StatusOpen, t.OpenedAt,
	)
	return err
}

// CloseTrade freezes close_price/profit_loss/closed_at on an open trade.
func (r *Repository) CloseTrade(ctx context.Context, id string, closePrice, profitLoss float64, closedAt time.Time) error {
	query := `
		UPDATE trades
		SET close_price = $2, profit_loss = $3, closed_at = $4, status = $5
		WHERE id = $1 AND status = $6
	`
	cmd, err := r.db.Pool.Exec(ctx, query, id, closePrice, profitLoss, closedAt, StatusClosed, StatusOpen)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return fmt.Errorf("trade %s not open or not found", id)
	}
	return nil
}

// TradeByID fetches a single trade row.
func (r *Repository) TradeByID(ctx context.Context, id string) (*Trade, error) {
	query := `
		SELECT id, user_id, account_id, session_id, ticket, symbol, side, lot_size, open_price,
		       stop_loss, take_profit, close_price, profit_loss, status, opened_at, closed_at
		FROM trades WHERE id = $1
	`
	t := &Trade{}
	err := r.db.Pool.QueryRow(ctx, query, id).Scan(
		&t.ID, &t.UserID, &t.AccountID, &t.SessionID, &t.Ticket, &t.Symbol, &t.Side, &t.LotSize, &t.OpenPrice,
		&t.StopLoss, &t.TakeProfit, &t.ClosePrice, &t.ProfitLoss, &t.Status, &t.OpenedAt, &t.ClosedAt,
	)
	if err != nil {
		return nil, err
	}
	return t, nil
}

// OpenTradesBySession counts (and returns) open ledger trades tagged with
// sessionID — used by the bot-session runner's one-open-per-session check.
func (r *Repository) OpenTradesBySession(ctx context.Context, sessionID string) ([]*Trade, error) {
	query := `
		SELECT id, user_id, account_id, session_id, ticket, symbol, side, lot_size, open_price,
		       stop_loss, take_profit, close_price, profit_loss, status, opened_at, closed_at
		FROM trades WHERE session_id = $1 AND status = $2
	`
	rows, err := r.db.Pool.Query(ctx, query, sessionID, StatusOpen)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*Trade
	for rows.Next() {
		t := &Trade{}
		if err := rows.Scan(
			&t.ID, &t.UserID, &t.AccountID, &t.SessionID, &t.Ticket, &t.Symbol, &t.Side, &t.LotSize, &t.OpenPrice,
			&t.StopLoss, &t.TakeProfit, &t.ClosePrice, &t.ProfitLoss, &t.Status, &t.OpenedAt, &t.ClosedAt,
		); err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

// OpenTrades lists open ledger rows, optionally filtered by accountID.
func (r *Repository) OpenTrades(ctx context.Context, accountID string) ([]*Trade, error) {
	query := `
		SELECT id, user_id, account_id, session_id, ticket, symbol, side, lot_size, open_price,
		       stop_loss, take_profit, close_price, profit_loss, status, opened_at, closed_at
		FROM trades WHERE status = $1 AND ($2 = '' OR account_id = $2)
	`
	rows, err := r.db.Pool.Query(ctx, query, StatusOpen, accountID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*Trade
	for rows.Next() {
		t := &Trade{}
		if err := rows.Scan(
			&t.ID, &t.UserID, &t.AccountID, &t.SessionID, &t.Ticket, &t.Symbol, &t.Side, &t.LotSize, &t.OpenPrice,
			&t.StopLoss, &t.TakeProfit, &t.ClosePrice, &t.ProfitLoss, &t.Status, &t.OpenedAt, &t.ClosedAt,
		); err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

// ============================================================================
// BOT SESSIONS
// ============================================================================

func (r *Repository) InsertBotSession(ctx context.Context, s *BotSession) error {
	params, err := json.Marshal(s.StrategyParams)
	if err != nil {
		return fmt.Errorf("marshal strategy params: %w", err)
	}
	query := `
		INSERT INTO bot_sessions (id, user_id, account_id, risk_level, strategy_mode, strategy_params, status, started_at, trade_count)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, 0)
	`
	_, err = r.db.Pool.Exec(ctx, query, s.ID, s.UserID, s.AccountID, s.RiskLevel, s.StrategyMode, params, s.Status, s.StartedAt)
	return err
}

// UpdateBotSession persists status/trade_count/last_trade_at/stopped_at.
func (r *Repository) UpdateBotSession(ctx context.Context, s *BotSession) error {
	query := `
		UPDATE bot_sessions
		SET status = $2, trade_count = $3, last_trade_at = $4, stopped_at = $5
		WHERE id = $1
	`
	_, err := r.db.Pool.Exec(ctx, query, s.ID, s.Status, s.TradeCount, s.LastTradeAt, s.StoppedAt)
	return err
}

// ActiveBotSessions lists every session with status=active.
func (r *Repository) ActiveBotSessions(ctx context.Context) ([]*BotSession, error) {
	query := `
		SELECT id, user_id, account_id, risk_level, strategy_mode, strategy_params, status, started_at, stopped_at, trade_count, last_trade_at
		FROM bot_sessions WHERE status = $1
	`
	rows, err := r.db.Pool.Query(ctx, query, SessionActive)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*BotSession
	for rows.Next() {
		s := &BotSession{}
		var params []byte
		if err := rows.Scan(&s.ID, &s.UserID, &s.AccountID, &s.RiskLevel, &s.StrategyMode, &params, &s.Status, &s.StartedAt, &s.StoppedAt, &s.TradeCount, &s.LastTradeAt); err != nil {
			return nil, err
		}
		if len(params) > 0 {
			if err := json.Unmarshal(params, &s.StrategyParams); err != nil {
				return nil, fmt.Errorf("unmarshal strategy params for session %s: %w", s.ID, err)
			}
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

// ============================================================================
// BACKTEST REPORTS + SIMULATED TRADES
// ============================================================================

// InsertBacktestReport writes the summary row; report.ID must already be
// set by the caller.
func (r *Repository) InsertBacktestReport(ctx context.Context, report *BacktestReport) error {
	strategyParams, err := json.Marshal(report.StrategyParams)
	if err != nil {
		return fmt.Errorf("marshal strategy params: %w", err)
	}
	riskParams, err := json.Marshal(report.RiskParams)
	if err != nil {
		return fmt.Errorf("marshal risk params: %w", err)
	}
	query := `
		INSERT INTO backtest_reports (id, user_id, symbol, timeframe, start_date, end_date, strategy_params, risk_params,
		                               total_trades, total_pl, winning_trades, losing_trades, win_rate, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
	`
	_, err = r.db.Pool.Exec(ctx, query,
		report.ID, report.UserID, report.Symbol, report.Timeframe, report.StartDate, report.EndDate,
		strategyParams, riskParams, report.TotalTrades, report.TotalPL, report.WinningTrades,
		report.LosingTrades, report.WinRate, report.CreatedAt,
	)
	return err
}

// InsertSimulatedTrades writes every simulated trade referencing reportID.
func (r *Repository) InsertSimulatedTrades(ctx context.Context, trades []SimulatedTrade) error {
	if len(trades) == 0 {
		return nil
	}
	batch := &pgx.Batch{}
	query := `
		INSERT INTO simulated_trades (id, report_id, symbol, side, lot_size, open_price, stop_loss, take_profit,
		                               close_price, profit_loss, close_reason, opened_at, closed_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
	`
	for _, t := range trades {
		batch.Queue(query, t.ID, t.ReportID, t.Symbol, t.Side, t.LotSize, t.OpenPrice, t.StopLoss, t.TakeProfit,
			t.ClosePrice, t.ProfitLoss, t.CloseReason, t.OpenedAt, t.ClosedAt)
	}
	results := r.db.Pool.SendBatch(ctx, batch)
	defer results.Close()
	for range trades {
		if _, err := results.Exec(); err != nil {
			return fmt.Errorf("insert simulated trade failed: %w", err)
		}
	}
	return nil
}

// DeleteBacktestReport is the compensating action when the trade insert
// following InsertBacktestReport fails, keeping the report+trades pair
// atomic.
func (r *Repository) DeleteBacktestReport(ctx context.Context, reportID string) error {
	_, err := r.db.Pool.Exec(ctx, `DELETE FROM backtest_reports WHERE id = $1`, reportID)
	return err
}

// BacktestReportWithTrades fetches a report and its children.
func (r *Repository) BacktestReportWithTrades(ctx context.Context, reportID string) (*BacktestReport, []SimulatedTrade, error) {
	report := &BacktestReport{}
	var strategyParams, riskParams []byte
	query := `
		SELECT id, user_id, symbol, timeframe, start_date, end_date, strategy_params, risk_params,
		       total_trades, total_pl, winning_trades, losing_trades, win_rate, created_at
		FROM backtest_reports WHERE id = $1
	`
	err := r.db.Pool.QueryRow(ctx, query, reportID).Scan(
		&report.ID, &report.UserID, &report.Symbol, &report.Timeframe, &report.StartDate, &report.EndDate,
		&strategyParams, &riskParams, &report.TotalTrades, &report.TotalPL, &report.WinningTrades,
		&report.LosingTrades, &report.WinRate, &report.CreatedAt,
	)
	if err != nil {
		return nil, nil, err
	}
	if len(strategyParams) > 0 {
		_ = json.Unmarshal(strategyParams, &report.StrategyParams)
	}
	if len(riskParams) > 0 {
		_ = json.Unmarshal(riskParams, &report.RiskParams)
	}

	tradesQuery := `
		SELECT id, report_id, symbol, side, lot_size, open_price, stop_loss, take_profit,
		       close_price, profit_loss, close_reason, opened_at, closed_at
		FROM simulated_trades WHERE report_id = $1 ORDER BY opened_at ASC
	`
	rows, err := r.db.Pool.Query(ctx, tradesQuery, reportID)
	if err != nil {
		return nil, nil, err
	}
	defer rows.Close()

	var trades []SimulatedTrade
	for rows.Next() {
		var t SimulatedTrade
		if err := rows.Scan(&t.ID, &t.ReportID, &t.Symbol, &t.Side, &t.LotSize, &t.OpenPrice, &t.StopLoss, &t.TakeProfit,
			&t.ClosePrice, &t.ProfitLoss, &t.CloseReason, &t.OpenedAt, &t.ClosedAt); err != nil {
			return nil, nil, err
		}
		trades = append(trades, t)
	}
	return report, trades, rows.Err()
}

// ListBacktestReports lists report summaries for a user, newest first.
func (r *Repository) ListBacktestReports(ctx context.Context, userID string) ([]*BacktestReport, error) {
	query := `
		SELECT id, user_id, symbol, timeframe, start_date, end_date, strategy_params, risk_params,
		       total_trades, total_pl, winning_trades, losing_trades, win_rate, created_at
		FROM backtest_reports WHERE user_id = $1 ORDER BY created_at DESC
	`
	rows, err := r.db.Pool.Query(ctx, query, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*BacktestReport
	for rows.Next() {
		report := &BacktestReport{}
		var strategyParams, riskParams []byte
		if err := rows.Scan(
			&report.ID, &report.UserID, &report.Symbol, &report.Timeframe, &report.StartDate, &report.EndDate,
			&strategyParams, &riskParams, &report.TotalTrades, &report.TotalPL, &report.WinningTrades,
			&report.LosingTrades, &report.WinRate, &report.CreatedAt,
		); err != nil {
			return nil, err
		}
		if len(strategyParams) > 0 {
			_ = json.Unmarshal(strategyParams, &report.StrategyParams)
		}
		if len(riskParams) > 0 {
			_ = json.Unmarshal(riskParams, &report.RiskParams)
		}
		out = append(out, report)
	}
	return out, rows.Err()
}

// ============================================================================
// NOTIFICATIONS
// ============================================================================

// InsertNotification appends a notification row. Notifications are
// append-only from the engine's side.
func (r *Repository) InsertNotification(ctx context.Context, n *Notification) error {
	query := `
		INSERT INTO notifications (id, user_id, kind, title, body, created_at, read)
		VALUES ($1, $2, $3, $4, $5, $6, false)
	`
	_, err := r.db.Pool.Exec(ctx, query, n.ID, n.UserID, n.Kind, n.Title, n.Body, n.CreatedAt)
	return err
}

// ============================================================================
// TRADING ACCOUNTS
// ============================================================================

// UpsertTradingAccount inserts or updates a trading account row by id.
func (r *Repository) UpsertTradingAccount(ctx context.Context, a *TradingAccount) error {
	query := `
		INSERT INTO trading_accounts (id, user_id, label, provider, balance, equity, currency, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $8)
		ON CONFLICT (id) DO UPDATE SET
			label = $3, provider = $4, balance = $5, equity = $6, currency = $7, updated_at = $8
	`
	_, err := r.db.Pool.Exec(ctx, query, a.ID, a.UserID, a.Label, a.Provider, a.Balance, a.Equity, a.Currency, a.UpdatedAt)
	return err
}

// TradingAccountByID fetches a single trading account.
func (r *Repository) TradingAccountByID(ctx context.Context, id string) (*TradingAccount, error) {
	query := `
		SELECT id, user_id, label, provider, balance, equity, currency, created_at, updated_at
		FROM trading_accounts WHERE id = $1
	`
	a := &TradingAccount{}
	err := r.db.Pool.QueryRow(ctx, query, id).Scan(
		&a.ID, &a.UserID, &a.Label, &a.Provider, &a.Balance, &a.Equity, &a.Currency, &a.CreatedAt, &a.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return a, nil
}

// ============================================================================
// ADMIN PROJECTIONS
// ============================================================================

// ListUsersOverview aggregates trade/session/backtest counts per user — a
// pure read projection over existing tables, no new write path.
func (r *Repository) ListUsersOverview(ctx context.Context) ([]UserOverview, error) {
	query := `
		SELECT user_id,
		       COUNT(*) FILTER (WHERE status = 'open') AS open_trades,
		       COUNT(*) FILTER (WHERE status = 'closed') AS closed_trades
		FROM trades
		GROUP BY user_id
	`
	rows, err := r.db.Pool.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	overview := map[string]*UserOverview{}
	var order []string
	for rows.Next() {
		var userID string
		var open, closed int
		if err := rows.Scan(&userID, &open, &closed); err != nil {
			return nil, err
		}
		overview[userID] = &UserOverview{UserID: userID, OpenTrades: open, ClosedTrades: closed}
		order = append(order, userID)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	botQuery := `SELECT user_id, COUNT(*) FROM bot_sessions WHERE status = 'active' GROUP BY user_id`
	botRows, err := r.db.Pool.Query(ctx, botQuery)
	if err != nil {
		return nil, err
	}
	defer botRows.Close()
	for botRows.Next() {
		var userID string
		var count int
		if err := botRows.Scan(&userID, &count); err != nil {
			return nil, err
		}
		if u, ok := overview[userID]; ok {
			u.ActiveBots = count
		} else {
			overview[userID] = &UserOverview{UserID: userID, ActiveBots: count}
			order = append(order, userID)
		}
	}

	btQuery := `SELECT user_id, COUNT(*) FROM backtest_reports WHERE user_id IS NOT NULL GROUP BY user_id`
	btRows, err := r.db.Pool.Query(ctx, btQuery)
	if err != nil {
		return nil, err
	}
	defer btRows.Close()
	for btRows.Next() {
		var userID string
		var count int
		if err := btRows.Scan(&userID, &count); err != nil {
			return nil, err
		}
		if u, ok := overview[userID]; ok {
			u.Backtests = count
		} else {
			overview[userID] = &UserOverview{UserID: userID, Backtests: count}
			order = append(order, userID)
		}
	}

	out := make([]UserOverview, 0, len(order))
	for _, userID := range order {
		out = append(out, *overview[userID])
	}
	return out, nil
}
