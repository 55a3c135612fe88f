package api

import (
	"encoding/json"
	"time"

	"xauusd-engine/internal/apierr"
	"xauusd-engine/internal/backtest"
)

type runBacktestRequest struct {
	Symbol         string                 `json:"symbol"`
	Timeframe      string                 `json:"timeframe"`
	StartDate      time.Time              `json:"startDate"`
	EndDate        time.Time              `json:"endDate"`
	StrategyMode   string                 `json:"strategyMode"`
	StrategyParams map[string]interface{} `json:"strategyParams"`
	RiskParams     map[string]interface{} `json:"riskParams"`
	LotSize        float64                `json:"lotSize"`
}

func (s *Server) handleRunBacktest(ac actionContext, data json.RawMessage) (interface{}, error) {
	var req runBacktestRequest
	if err := bindData(data, &req); err != nil {
		return nil, err
	}
	if req.Symbol == "" || req.Timeframe == "" || req.StartDate.IsZero() || req.EndDate.IsZero() {
		return nil, apierr.New(apierr.ValidationFailure, "symbol, timeframe, startDate and endDate are required")
	}

	var userID *string
	if ac.userID != "" {
		userID = &ac.userID
	}

	report, trades, err := s.backtest.Run(ac.gin.Request.Context(), backtest.Request{
		UserID:         userID,
		Symbol:         req.Symbol,
		Timeframe:      req.Timeframe,
		StartDate:      req.StartDate,
		EndDate:        req.EndDate,
		StrategyMode:   req.StrategyMode,
		StrategyParams: req.StrategyParams,
		RiskParams:     req.RiskParams,
		LotSize:        req.LotSize,
	})
	if err != nil {
		return nil, err
	}
	return map[string]interface{}{"report": report, "trades": trades}, nil
}

type reportIDRequest struct {
	ReportID string `json:"reportId"`
}

func (s *Server) handleGetBacktestReport(ac actionContext, data json.RawMessage) (interface{}, error) {
	var req reportIDRequest
	if err := bindData(data, &req); err != nil {
		return nil, err
	}
	if req.ReportID == "" {
		return nil, apierr.New(apierr.ValidationFailure, "reportId is required")
	}

	report, trades, err := s.repo.BacktestReportWithTrades(ac.gin.Request.Context(), req.ReportID)
	if err != nil {
		return nil, apierr.Wrap(apierr.StoreFailure, "fetching backtest report", err)
	}
	return map[string]interface{}{"report": report, "trades": trades}, nil
}

func (s *Server) handleListBacktests(ac actionContext, data json.RawMessage) (interface{}, error) {
	if ac.userID == "" {
		return nil, apierr.New(apierr.ValidationFailure, "authentication required")
	}
	reports, err := s.repo.ListBacktestReports(ac.gin.Request.Context(), ac.userID)
	if err != nil {
		return nil, apierr.Wrap(apierr.StoreFailure, "listing backtest reports", err)
	}
	return reports, nil
}
