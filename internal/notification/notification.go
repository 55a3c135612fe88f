// Package notification records append-only notification rows for a user
// and best-effort forwards them by email. Unlike the teacher's
// multi-provider fan-out (Telegram + Discord), this engine has one
// recipient channel: the operator email configured for the whole engine.
package notification

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"xauusd-engine/internal/events"
	"xauusd-engine/internal/store"
)

// Kind values the engine writes, per the bot-session runner and backtest
// engine's notification points.
const (
	KindBotTradeExecuted = "bot_trade_executed"
	KindBotTradeError    = "bot_trade_error"
	KindBotError         = "bot_error"
	KindBacktestReady    = "backtest_ready"
)

// recorder is the store slice the manager writes through.
type recorder interface {
	InsertNotification(ctx context.Context, n *store.Notification) error
}

// emailSender delivers one best-effort email. A nil emailSender (or one
// backed by an unconfigured SendGrid key) is a silent no-op, matching the
// spec's "email is silently skipped if unset" rule.
type emailSender interface {
	Send(ctx context.Context, subject, body string) error
}

// Manager is the engine's single notification sink: it persists every
// notification, publishes it to the live event bus, and fires the
// best-effort email.
type Manager struct {
	repo   recorder
	email  emailSender
	bus    *events.Bus
	logger zerolog.Logger
}

func NewManager(repo recorder, email emailSender, bus *events.Bus, logger zerolog.Logger) *Manager {
	return &Manager{repo: repo, email: email, bus: bus, logger: logger.With().Str("component", "notification").Logger()}
}

// Notify inserts the notification row, publishes it on the bus, and
// attempts the email. A store write failure is returned to the caller;
// an email failure is logged and swallowed.
func (m *Manager) Notify(ctx context.Context, userID, kind, title, body string) error {
	n := &store.Notification{
		ID:        uuid.New().String(),
		UserID:    userID,
		Kind:      kind,
		Title:     title,
		Body:      body,
		CreatedAt: time.Now(),
	}
	if err := m.repo.InsertNotification(ctx, n); err != nil {
		return err
	}

	if m.bus != nil {
		m.bus.PublishNotification(userID, kind, title)
	}

	if m.email != nil {
		if err := m.email.Send(ctx, title, body); err != nil {
			m.logger.Warn().Err(err).Str("kind", kind).Msg("notification email delivery failed")
		}
	}
	return nil
}

// TradeExecuted records a successful order execution.
func (m *Manager) TradeExecuted(ctx context.Context, userID, symbol, side string, price, lot float64) error {
	body := fmt.Sprintf("%s %s @ %.2f, lot %.2f", side, symbol, price, lot)
	return m.Notify(ctx, userID, KindBotTradeExecuted, "Trade executed: "+symbol, body)
}

// TradeError records a failed order execution.
func (m *Manager) TradeError(ctx context.Context, userID, symbol, reason string) error {
	return m.Notify(ctx, userID, KindBotTradeError, "Trade failed: "+symbol, reason)
}

// SessionError records a bot session's error-boundary catch.
func (m *Manager) SessionError(ctx context.Context, userID, sessionID, reason string) error {
	return m.Notify(ctx, userID, KindBotError, "Bot session error", "session "+sessionID+": "+reason)
}

// BacktestReady records a completed backtest report.
func (m *Manager) BacktestReady(ctx context.Context, userID, reportID string) error {
	return m.Notify(ctx, userID, KindBacktestReady, "Backtest report ready", "report "+reportID+" is ready")
}
