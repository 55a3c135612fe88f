// Package botrunner implements run_bot_logic: one pass over every active
// bot session, evaluating its strategy against fresh market data and
// routing any resulting signal to the execution provider.
package botrunner

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"xauusd-engine/internal/apierr"
	"xauusd-engine/internal/execution"
	"xauusd-engine/internal/indicator"
	"xauusd-engine/internal/risk"
	"xauusd-engine/internal/store"
	"xauusd-engine/internal/strategy"
)

const (
	symbol          = "XAUUSD"
	historyInterval = "15m"
)

type sessionStore interface {
	ActiveBotSessions(ctx context.Context) ([]*store.BotSession, error)
	OpenTradesBySession(ctx context.Context, sessionID string) ([]*store.Trade, error)
	UpdateBotSession(ctx context.Context, s *store.BotSession) error
}

type marketData interface {
	FetchHistorical(ctx context.Context, interval, outputsize string) ([]indicator.Candle, error)
	FetchSpot(ctx context.Context) (float64, error)
}

type executor interface {
	ExecuteOrder(ctx context.Context, in execution.ExecuteOrderInput) (execution.ExecuteOrderResult, error)
}

type notifier interface {
	TradeExecuted(ctx context.Context, userID, symbol, side string, price, lot float64) error
	TradeError(ctx context.Context, userID, symbol, reason string) error
	SessionError(ctx context.Context, userID, sessionID, reason string) error
}

// Runner drives run_bot_logic. It holds no state of its own beyond the
// per-session advisory locks — every other dependency is a collaborator
// injected at construction.
type Runner struct {
	sessions   sessionStore
	market     marketData
	provider   executor
	notifier   notifier
	locks      *risk.SessionLocks
	dispatcher strategy.Strategy
	logger     zerolog.Logger
}

func NewRunner(sessions sessionStore, market marketData, provider executor, notifier notifier, locks *risk.SessionLocks, logger zerolog.Logger) *Runner {
	return &Runner{
		sessions:   sessions,
		market:     market,
		provider:   provider,
		notifier:   notifier,
		locks:      locks,
		dispatcher: strategy.NewDispatcher(),
		logger:     logger.With().Str("component", "botrunner").Logger(),
	}
}

// Run iterates every active session sequentially. Per-session failures are
// caught at the boundary and never abort the remaining sessions.
func (r *Runner) Run(ctx context.Context) error {
	sessions, err := r.sessions.ActiveBotSessions(ctx)
	if err != nil {
		return apierr.Wrap(apierr.StoreFailure, "listing active bot sessions", err)
	}

	for _, session := range sessions {
		r.runSessionGuarded(ctx, session)
	}
	return nil
}

// runSessionGuarded serializes on the session's advisory lock and converts
// any error (or panic) into a logged bot_error notification instead of
// propagating it.
func (r *Runner) runSessionGuarded(ctx context.Context, session *store.BotSession) {
	lock := r.locks.Lock(session.ID)
	lock.Lock()
	defer lock.Unlock()

	defer func() {
		if rec := recover(); rec != nil {
			r.logger.Error().Str("sessionId", session.ID).Interface("panic", rec).Msg("session runner panicked")
			_ = r.notifier.SessionError(ctx, session.UserID, session.ID, fmt.Sprintf("panic: %v", rec))
		}
	}()

	if err := r.runSession(ctx, session); err != nil {
		r.logger.Error().Err(err).Str("sessionId", session.ID).Msg("session runner failed")
		_ = r.notifier.SessionError(ctx, session.UserID, session.ID, err.Error())
	}
}

func (r *Runner) runSession(ctx context.Context, session *store.BotSession) error {
	open, err := r.sessions.OpenTradesBySession(ctx, session.ID)
	if err != nil {
		return apierr.Wrap(apierr.StoreFailure, "checking open trades for session", err)
	}
	if len(open) > 0 {
		r.logger.Debug().Str("sessionId", session.ID).Msg("session already has an open trade, skipping")
		return nil
	}

	tier, err := risk.Resolve(session.RiskLevel)
	if err != nil {
		return err
	}

	params := paramsFromSession(session.StrategyMode, session.StrategyParams)

	history, err := r.market.FetchHistorical(ctx, historyInterval, "full")
	if err != nil {
		return apierr.Wrap(apierr.UpstreamUnavailable, "fetching history for session", err)
	}
	spot, err := r.market.FetchSpot(ctx)
	if err != nil {
		return apierr.Wrap(apierr.UpstreamUnavailable, "fetching spot for session", err)
	}

	minLookback := strategy.MinLookback(params)
	if len(history) < minLookback {
		r.logger.Info().Str("sessionId", session.ID).Int("have", len(history)).Int("need", minLookback).
			Msg("insufficient history for session, skipping this tick")
		return nil
	}

	atr := currentATR(history, params.ATRPeriod)
	if atr == nil {
		r.logger.Info().Str("sessionId", session.ID).Msg("ATR not yet available, skipping this tick")
		return nil
	}

	signal := r.dispatcher.Decide(history, spot, params, *atr)
	if !signal.HasTrade() {
		r.logger.Debug().Str("sessionId", session.ID).Msg("no signal this tick")
		return nil
	}

	sessionID := session.ID
	take := signal.Take
	result, err := r.provider.ExecuteOrder(ctx, execution.ExecuteOrderInput{
		UserID:    session.UserID,
		AccountID: session.AccountID,
		Symbol:    symbol,
		Side:      string(signal.Side),
		Lot:       tier.MaxLotSize,
		OpenPrice: spot,
		Stop:      signal.Stop,
		Take:      &take,
		SessionID: &sessionID,
	})
	if err != nil || !result.Success {
		reason := errorReason(err, result.Error)
		_ = r.notifier.TradeError(ctx, session.UserID, symbol, reason)
		return apierr.New(apierr.ProviderFailure, "execute order failed: "+reason)
	}

	_ = r.notifier.TradeExecuted(ctx, session.UserID, symbol, string(signal.Side), spot, tier.MaxLotSize)

	now := time.Now()
	session.TradeCount++
	session.LastTradeAt = &now
	if err := r.sessions.UpdateBotSession(ctx, session); err != nil {
		return apierr.Wrap(apierr.StoreFailure, "updating session after trade", err)
	}
	return nil
}

func errorReason(err error, providerMessage string) string {
	if err != nil {
		return err.Error()
	}
	return providerMessage
}

// currentATR returns the last non-null ATR value in history, or nil when
// the series hasn't warmed up yet.
func currentATR(history []indicator.Candle, period int) *float64 {
	series := indicator.ATR(history, period)
	if len(series) == 0 {
		return nil
	}
	return series[len(series)-1]
}
