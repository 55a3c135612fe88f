package api

import (
	"context"
	"encoding/json"

	"xauusd-engine/internal/apierr"
	"xauusd-engine/internal/execution"
)

type executeTradeRequest struct {
	AccountID string   `json:"accountId"`
	Symbol    string   `json:"symbol"`
	Side      string   `json:"side"`
	Lot       float64  `json:"lot"`
	Stop      float64  `json:"stop"`
	Take      *float64 `json:"take"`
	SessionID *string  `json:"sessionId"`
}

func (s *Server) handleExecuteTrade(ac actionContext, data json.RawMessage) (interface{}, error) {
	var req executeTradeRequest
	if err := bindData(data, &req); err != nil {
		return nil, err
	}
	if req.Side == "" || req.Lot <= 0 {
		return nil, apierr.New(apierr.ValidationFailure, "side and lot are required")
	}
	symbol := req.Symbol
	if symbol == "" {
		symbol = "XAUUSD"
	}

	ctx := ac.gin.Request.Context()
	spot, err := s.market.FetchSpot(ctx)
	if err != nil {
		return nil, apierr.Wrap(apierr.UpstreamUnavailable, "fetching spot for trade", err)
	}

	result, err := s.provider.ExecuteOrder(ctx, execution.ExecuteOrderInput{
		UserID:    ac.userID,
		AccountID: req.AccountID,
		Symbol:    symbol,
		Side:      req.Side,
		Lot:       req.Lot,
		OpenPrice: spot,
		Stop:      req.Stop,
		Take:      req.Take,
		SessionID: req.SessionID,
	})
	if err != nil || !result.Success {
		reason := providerFailureReason(err, result.Error)
		s.notifyTradeFailure(ctx, ac.userID, symbol, reason)
		return nil, apierr.New(apierr.ProviderFailure, "execute order failed: "+reason)
	}

	s.bus.PublishTradeOpened(ac.userID, symbol, req.Side, spot, req.Lot)
	_ = s.notifier.TradeExecuted(ctx, ac.userID, symbol, req.Side, spot, req.Lot)
	return result, nil
}

type closeTradeRequest struct {
	Ticket string   `json:"ticket"`
	Lots   *float64 `json:"lots"`
}

func (s *Server) handleCloseTrade(ac actionContext, data json.RawMessage) (interface{}, error) {
	var req closeTradeRequest
	if err := bindData(data, &req); err != nil {
		return nil, err
	}
	if req.Ticket == "" {
		return nil, apierr.New(apierr.ValidationFailure, "ticket is required")
	}

	ctx := ac.gin.Request.Context()
	result, err := s.provider.CloseOrder(ctx, req.Ticket, req.Lots)
	if err != nil || !result.Success {
		reason := providerFailureReason(err, result.Error)
		s.notifyTradeFailure(ctx, ac.userID, req.Ticket, reason)
		return nil, apierr.New(apierr.ProviderFailure, "close order failed: "+reason)
	}

	s.bus.PublishTradeClosed(ac.userID, req.Ticket, result.ClosePrice, result.Profit)
	return result, nil
}

func (s *Server) handleProviderCloseOrder(ac actionContext, data json.RawMessage) (interface{}, error) {
	var req closeTradeRequest
	if err := bindData(data, &req); err != nil {
		return nil, err
	}
	result, err := s.provider.CloseOrder(ac.gin.Request.Context(), req.Ticket, req.Lots)
	if err != nil {
		return nil, err
	}
	return result, nil
}

type accountIDRequest struct {
	AccountID string `json:"accountId"`
}

func (s *Server) handleProviderAccountSummary(ac actionContext, data json.RawMessage) (interface{}, error) {
	var req accountIDRequest
	if err := bindData(data, &req); err != nil {
		return nil, err
	}
	return s.provider.GetAccountSummary(ac.gin.Request.Context(), req.AccountID)
}

func (s *Server) handleProviderOpenPositions(ac actionContext, data json.RawMessage) (interface{}, error) {
	var req accountIDRequest
	if err := bindData(data, &req); err != nil {
		return nil, err
	}
	return s.provider.GetOpenPositions(ac.gin.Request.Context(), req.AccountID)
}

func (s *Server) handleProviderServerTime(ac actionContext, data json.RawMessage) (interface{}, error) {
	return s.provider.GetServerTime(ac.gin.Request.Context())
}

func providerFailureReason(err error, providerMessage string) string {
	if err != nil {
		return err.Error()
	}
	return providerMessage
}

func (s *Server) notifyTradeFailure(ctx context.Context, userID, symbol, reason string) {
	if err := s.notifier.TradeError(ctx, userID, symbol, reason); err != nil {
		s.logger.Warn().Err(err).Str("symbol", symbol).Msg("trade failure notification failed")
	}
}
