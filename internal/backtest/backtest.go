// Package backtest implements run_backtest_action: an event-driven replay
// of stored candles against a strategy, producing a persisted report and
// its simulated-trade children.
package backtest

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"xauusd-engine/internal/apierr"
	"xauusd-engine/internal/indicator"
	"xauusd-engine/internal/store"
	"xauusd-engine/internal/strategy"
)

type ledger interface {
	CandlesInRange(ctx context.Context, symbol, timeframe string, start, end time.Time) ([]store.Candle, error)
	InsertBacktestReport(ctx context.Context, report *store.BacktestReport) error
	InsertSimulatedTrades(ctx context.Context, trades []store.SimulatedTrade) error
	DeleteBacktestReport(ctx context.Context, reportID string) error
}

type notifier interface {
	BacktestReady(ctx context.Context, userID, reportID string) error
}

// Request is the run_backtest_action input.
type Request struct {
	UserID         *string
	Symbol         string
	Timeframe      string
	StartDate      time.Time
	EndDate        time.Time
	StrategyMode   string
	StrategyParams map[string]interface{}
	RiskParams     map[string]interface{}
	LotSize        float64
}

// Engine replays a strategy over stored candles and persists the result.
type Engine struct {
	repo       ledger
	notifier   notifier
	dispatcher strategy.Strategy
	logger     zerolog.Logger
}

func NewEngine(repo ledger, notifier notifier, logger zerolog.Logger) *Engine {
	return &Engine{
		repo:       repo,
		notifier:   notifier,
		dispatcher: strategy.NewDispatcher(),
		logger:     logger.With().Str("component", "backtest").Logger(),
	}
}

// openTrade tracks the one simulated position the replay loop may hold.
type openTrade struct {
	side      strategy.Side
	entry     float64
	stop      float64
	take      float64
	openedAt  time.Time
}

// Run executes the full §4.G sequence: load, replay, aggregate, persist,
// notify. Persistence is atomic — a failed trade insert deletes the
// summary row before returning.
func (e *Engine) Run(ctx context.Context, req Request) (*store.BacktestReport, []store.SimulatedTrade, error) {
	params := paramsFromRequest(req.StrategyMode, req.StrategyParams)
	lot := req.LotSize
	if lot <= 0 {
		lot = 0.01
	}

	candles, err := e.repo.CandlesInRange(ctx, req.Symbol, req.Timeframe, req.StartDate, req.EndDate)
	if err != nil {
		return nil, nil, apierr.Wrap(apierr.StoreFailure, "loading candles for backtest", err)
	}

	minLookback := strategy.MinLookback(params)
	if len(candles) < minLookback {
		return nil, nil, apierr.New(apierr.InsufficientData, "not enough candles for the requested window")
	}

	trades := e.replay(candles, params, lot, minLookback)

	report := &store.BacktestReport{
		ID:             uuid.NewString(),
		UserID:         req.UserID,
		Symbol:         req.Symbol,
		Timeframe:      req.Timeframe,
		StartDate:      req.StartDate,
		EndDate:        req.EndDate,
		StrategyParams: req.StrategyParams,
		RiskParams:     req.RiskParams,
		CreatedAt:      time.Now(),
	}
	aggregate(report, trades)

	for i := range trades {
		trades[i].ReportID = report.ID
	}

	if err := e.repo.InsertBacktestReport(ctx, report); err != nil {
		return nil, nil, apierr.Wrap(apierr.StoreFailure, "inserting backtest report", err)
	}
	if err := e.repo.InsertSimulatedTrades(ctx, trades); err != nil {
		if delErr := e.repo.DeleteBacktestReport(ctx, report.ID); delErr != nil {
			e.logger.Error().Err(delErr).Str("reportId", report.ID).
				Msg("failed to roll back backtest report after trade insert failure")
		}
		return nil, nil, apierr.Wrap(apierr.StoreFailure, "inserting simulated trades", err)
	}

	if req.UserID != nil {
		if err := e.notifier.BacktestReady(ctx, *req.UserID, report.ID); err != nil {
			e.logger.Warn().Err(err).Str("reportId", report.ID).Msg("backtest ready notification failed")
		}
	}

	return report, trades, nil
}

// replay walks candles from the minimum-lookback index to the last
// candle, managing at most one open simulated trade at a time.
func (e *Engine) replay(candles []store.Candle, params strategy.Params, lot float64, minLookback int) []store.SimulatedTrade {
	history := toIndicatorCandles(candles)
	atrSeries := indicator.ATR(history, params.ATRPeriod)

	var trades []store.SimulatedTrade
	var open *openTrade

	for i := minLookback; i < len(candles); i++ {
		c := candles[i]

		if open != nil {
			if exit, reason, ok := checkExit(*open, c); ok {
				trades = append(trades, closeSimulated(*open, exit, reason, c.Timestamp, lot))
				open = nil
			}
		}

		var atr float64
		if atrSeries[i-1] != nil {
			atr = *atrSeries[i-1]
		}
		decisionPrice := c.Open
		signal := e.dispatcher.Decide(history[:i], decisionPrice, params, atr)

		if open != nil && signal.HasTrade() && strategy.Side(open.side) != signal.Side {
			trades = append(trades, closeSimulated(*open, decisionPrice, store.CloseSignal, c.Timestamp, lot))
			open = nil
		}

		if open == nil && signal.HasTrade() {
			open = &openTrade{
				side:     signal.Side,
				entry:    decisionPrice,
				stop:     signal.Stop,
				take:     signal.Take,
				openedAt: c.Timestamp,
			}
		}
	}

	if open != nil {
		last := candles[len(candles)-1]
		trades = append(trades, closeSimulated(*open, last.Close, store.CloseEndOfRun, last.Timestamp, lot))
	}

	return trades
}

// checkExit evaluates the SL-before-TP tie-break for the candle
// immediately following the trade's current state.
func checkExit(t openTrade, c store.Candle) (exit float64, reason store.CloseReason, hit bool) {
	if t.side == strategy.Buy {
		if c.Low <= t.stop {
			return t.stop, store.CloseSL, true
		}
		if c.High >= t.take {
			return t.take, store.CloseTP, true
		}
		return 0, "", false
	}
	if c.High >= t.stop {
		return t.stop, store.CloseSL, true
	}
	if c.Low <= t.take {
		return t.take, store.CloseTP, true
	}
	return 0, "", false
}

func closeSimulated(t openTrade, exit float64, reason store.CloseReason, closedAt time.Time, lot float64) store.SimulatedTrade {
	return store.SimulatedTrade{
		ID:          uuid.NewString(),
		Symbol:      "XAUUSD",
		Side:        store.TradeSide(t.side),
		LotSize:     lot,
		OpenPrice:   t.entry,
		StopLoss:    floatPtr(t.stop),
		TakeProfit:  floatPtr(t.take),
		ClosePrice:  exit,
		ProfitLoss:  profitLoss(t.side, t.entry, exit, lot),
		CloseReason: reason,
		OpenedAt:    t.openedAt,
		ClosedAt:    closedAt,
	}
}

// profitLoss implements the P&L formula: (BUY ? exit-entry : entry-exit) · lot · 100.
func profitLoss(side strategy.Side, entry, exit, lot float64) float64 {
	if side == strategy.Buy {
		return (exit - entry) * lot * 100
	}
	return (entry - exit) * lot * 100
}

// aggregate fills the report's trade-count/PL fields from the replayed
// trades.
func aggregate(report *store.BacktestReport, trades []store.SimulatedTrade) {
	report.TotalTrades = len(trades)
	for _, t := range trades {
		report.TotalPL += t.ProfitLoss
		if t.ProfitLoss > 0 {
			report.WinningTrades++
		} else if t.ProfitLoss < 0 {
			report.LosingTrades++
		}
	}
	if report.TotalTrades > 0 {
		report.WinRate = float64(report.WinningTrades) / float64(report.TotalTrades) * 100
	}
}

func toIndicatorCandles(candles []store.Candle) []indicator.Candle {
	out := make([]indicator.Candle, len(candles))
	for i, c := range candles {
		out[i] = indicator.Candle{
			Symbol: c.Symbol, Timeframe: c.Timeframe, Timestamp: c.Timestamp,
			Open: c.Open, High: c.High, Low: c.Low, Close: c.Close, Volume: c.Volume,
		}
	}
	return out
}

func floatPtr(v float64) *float64 { return &v }
