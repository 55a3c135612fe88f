// Package store is the typed read/write layer over PostgreSQL: the OHLC
// archive, trade ledger, bot sessions, backtest reports and their
// simulated-trade children, notifications, and trading accounts. It owns
// persistence; every other package borrows rows for the duration of a
// handler.
package store

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"
)

// DB wraps the PostgreSQL connection pool.
type DB struct {
	Pool   *pgxpool.Pool
	logger zerolog.Logger
}

// NewDB opens a pool against dsn and verifies connectivity before
// returning.
func NewDB(ctx context.Context, dsn string, logger zerolog.Logger) (*DB, error) {
	poolConfig, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("unable to parse store dsn: %w", err)
	}

	poolConfig.MaxConns = 25
	poolConfig.MinConns = 5
	poolConfig.MaxConnLifetime = time.Hour
	poolConfig.MaxConnIdleTime = 30 * time.Minute
	poolConfig.HealthCheckPeriod = time.Minute

	connectCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	pool, err := pgxpool.NewWithConfig(connectCtx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("unable to create store connection pool: %w", err)
	}

	if err := pool.Ping(connectCtx); err != nil {
		return nil, fmt.Errorf("unable to ping store: %w", err)
	}

	dbLogger := logger.With().Str("component", "store").Logger()
	dbLogger.Info().Msg("connected to store")
	return &DB{Pool: pool, logger: dbLogger}, nil
}

func (db *DB) Close() {
	if db.Pool != nil {
		db.Pool.Close()
		db.logger.Info().Msg("store connection closed")
	}
}

// RunMigrations creates the tables this engine owns if they do not already
// exist. There is no migration framework here — the table set is small and
// fixed to what §6's canonical names require.
func (db *DB) RunMigrations(ctx context.Context) error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS price_data (
			symbol VARCHAR(20) NOT NULL,
			timeframe VARCHAR(10) NOT NULL,
			timestamp TIMESTAMPTZ NOT NULL,
			open DOUBLE PRECISION NOT NULL,
			high DOUBLE PRECISION NOT NULL,
			low DOUBLE PRECISION NOT NULL,
			close DOUBLE PRECISION NOT NULL,
			volume DOUBLE PRECISION NOT NULL DEFAULT 0,
			PRIMARY KEY (symbol, timeframe, timestamp)
		)`,
		`CREATE TABLE IF NOT EXISTS trading_accounts (
			id UUID PRIMARY KEY,
			user_id UUID NOT NULL,
			label VARCHAR(100) NOT NULL,
			provider VARCHAR(20) NOT NULL,
			balance DOUBLE PRECISION NOT NULL DEFAULT 0,
			equity DOUBLE PRECISION NOT NULL DEFAULT 0,
			currency VARCHAR(10) NOT NULL DEFAULT 'USD',
			created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
			updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
		)`,
		`CREATE TABLE IF NOT EXISTS trades (
			id UUID PRIMARY KEY,
			user_id UUID NOT NULL,
			account_id UUID NOT NULL,
			session_id UUID,
			ticket VARCHAR(64) NOT NULL UNIQUE,
			symbol VARCHAR(20) NOT NULL,
			side VARCHAR(4) NOT NULL,
			lot_size DOUBLE PRECISION NOT NULL,
			open_price DOUBLE PRECISION NOT NULL,
			stop_loss DOUBLE PRECISION,
			take_profit DOUBLE PRECISION,
			close_price DOUBLE PRECISION,
			profit_loss DOUBLE PRECISION,
			status VARCHAR(10) NOT NULL DEFAULT 'open',
			opened_at TIMESTAMPTZ NOT NULL,
			closed_at TIMESTAMPTZ
		)`,
		`CREATE INDEX IF NOT EXISTS idx_trades_session_status ON trades(session_id, status)`,
		`CREATE TABLE IF NOT EXISTS bot_sessions (
			id UUID PRIMARY KEY,
			user_id UUID NOT NULL,
			account_id UUID NOT NULL,
			risk_level VARCHAR(20) NOT NULL,
			strategy_mode VARCHAR(30) NOT NULL,
			strategy_params JSONB NOT NULL DEFAULT '{}',
			status VARCHAR(10) NOT NULL DEFAULT 'active',
			started_at TIMESTAMPTZ NOT NULL DEFAULT now(),
			stopped_at TIMESTAMPTZ,
			trade_count INTEGER NOT NULL DEFAULT 0,
			last_trade_at TIMESTAMPTZ
		)`,
		`CREATE TABLE IF NOT EXISTS backtest_reports (
			id UUID PRIMARY KEY,
			user_id UUID,
			symbol VARCHAR(20) NOT NULL,
			timeframe VARCHAR(10) NOT NULL,
			start_date TIMESTAMPTZ NOT NULL,
			end_date TIMESTAMPTZ NOT NULL,
			strategy_params JSONB NOT NULL DEFAULT '{}',
			risk_params JSONB NOT NULL DEFAULT '{}',
			total_trades INTEGER NOT NULL,
			total_pl DOUBLE PRECISION NOT NULL,
			winning_trades INTEGER NOT NULL,
			losing_trades INTEGER NOT NULL,
			win_rate DOUBLE PRECISION NOT NULL,
			created_at TIMESTAMPTZ NOT NULL DEFAULT now()
		)`,
		`CREATE TABLE IF NOT EXISTS simulated_trades (
			id UUID PRIMARY KEY,
			report_id UUID NOT NULL REFERENCES backtest_reports(id) ON DELETE CASCADE,
			symbol VARCHAR(20) NOT NULL,
			side VARCHAR(4) NOT NULL,
			lot_size DOUBLE PRECISION NOT NULL,
			open_price DOUBLE PRECISION NOT NULL,
			stop_loss DOUBLE PRECISION,
			take_profit DOUBLE PRECISION,
			close_price DOUBLE PRECISION NOT NULL,
			profit_loss DOUBLE PRECISION NOT NULL,
			close_reason VARCHAR(10) NOT NULL,
			opened_at TIMESTAMPTZ NOT NULL,
			closed_at TIMESTAMPTZ NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS notifications (
			id UUID PRIMARY KEY,
			user_id UUID NOT NULL,
			kind VARCHAR(40) NOT NULL,
			title VARCHAR(200) NOT NULL,
			body TEXT NOT NULL,
			created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
			read BOOLEAN NOT NULL DEFAULT false
		)`,
	}

	for _, stmt := range statements {
		if _, err := db.Pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("migration failed: %w", err)
		}
	}
	return nil
}
