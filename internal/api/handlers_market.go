package api

import (
	"encoding/json"

	"xauusd-engine/internal/apierr"
	"xauusd-engine/internal/indicator"
	"xauusd-engine/internal/store"
)

func (s *Server) handleGetCurrentPrice(ac actionContext, data json.RawMessage) (interface{}, error) {
	spot, err := s.market.FetchSpot(ac.gin.Request.Context())
	if err != nil {
		return nil, apierr.Wrap(apierr.UpstreamUnavailable, "fetching spot price", err)
	}
	return map[string]interface{}{"symbol": "XAUUSD", "price": spot}, nil
}

type historicalDataRequest struct {
	Interval   string `json:"interval"`
	Outputsize string `json:"outputsize"`
}

func (s *Server) handleFetchHistoricalData(ac actionContext, data json.RawMessage) (interface{}, error) {
	var req historicalDataRequest
	if err := bindData(data, &req); err != nil {
		return nil, err
	}
	if req.Interval == "" {
		return nil, apierr.New(apierr.ValidationFailure, "interval is required")
	}
	outputsize := req.Outputsize
	if outputsize == "" {
		outputsize = "compact"
	}

	candles, err := s.market.FetchHistorical(ac.gin.Request.Context(), req.Interval, outputsize)
	if err != nil {
		return nil, apierr.Wrap(apierr.UpstreamUnavailable, "fetching historical data", err)
	}
	return candles, nil
}

type updatePricesRequest struct {
	Interval   string `json:"interval"`
	Outputsize string `json:"outputsize"`
}

// handleUpdatePrices fetches fresh candles from the market-data provider
// and upserts them into the OHLC archive.
func (s *Server) handleUpdatePrices(ac actionContext, data json.RawMessage) (interface{}, error) {
	var req updatePricesRequest
	if err := bindData(data, &req); err != nil {
		return nil, err
	}
	interval := req.Interval
	if interval == "" {
		interval = "15m"
	}
	outputsize := req.Outputsize
	if outputsize == "" {
		outputsize = "compact"
	}

	ctx := ac.gin.Request.Context()
	candles, err := s.market.FetchHistorical(ctx, interval, outputsize)
	if err != nil {
		return nil, apierr.Wrap(apierr.UpstreamUnavailable, "fetching historical data", err)
	}

	if err := s.repo.UpsertCandles(ctx, toStoreCandles(candles)); err != nil {
		return nil, apierr.Wrap(apierr.StoreFailure, "upserting candles", err)
	}
	return map[string]interface{}{"updated": len(candles)}, nil
}

func toStoreCandles(candles []indicator.Candle) []store.Candle {
	out := make([]store.Candle, len(candles))
	for i, c := range candles {
		out[i] = store.Candle{
			Symbol: c.Symbol, Timeframe: c.Timeframe, Timestamp: c.Timestamp,
			Open: c.Open, High: c.High, Low: c.Low, Close: c.Close, Volume: c.Volume,
		}
	}
	return out
}
