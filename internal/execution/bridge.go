package execution

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"xauusd-engine/internal/apierr"
)

// Bridge is the execution provider backed by an HTTP bridge process sitting
// in front of a MetaTrader-style broker terminal. Every call is a single
// request/response round trip; the bridge owns broker session state.
type Bridge struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
	logger     zerolog.Logger
}

func NewBridge(baseURL, apiKey string, logger zerolog.Logger) *Bridge {
	return &Bridge{
		baseURL:    strings.TrimRight(baseURL, "/"),
		apiKey:     apiKey,
		httpClient: &http.Client{Timeout: 15 * time.Second},
		logger:     logger.With().Str("provider", "bridge").Logger(),
	}
}

type bridgeEnvelope struct {
	Success bool            `json:"success"`
	Error   string          `json:"error"`
	Data    json.RawMessage `json:"data"`
}

// call issues one bridge request and decodes its envelope. 202/204 with an
// empty body is treated as a bare success with no data payload.
func (b *Bridge) call(ctx context.Context, method, path string, body interface{}) (json.RawMessage, error) {
	var reqBody io.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			return nil, apierr.Wrap(apierr.ProviderFailure, "encoding bridge request for "+path, err)
		}
		reqBody = bytes.NewReader(encoded)
	}

	req, err := http.NewRequestWithContext(ctx, method, b.baseURL+path, reqBody)
	if err != nil {
		return nil, apierr.Wrap(apierr.ProviderFailure, "building bridge request for "+path, err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-MT-Bridge-API-Key", b.apiKey)

	resp, err := b.httpClient.Do(req)
	if err != nil {
		b.logger.Error().Err(err).Str("endpoint", path).Msg("bridge request failed")
		return nil, apierr.Wrap(apierr.ProviderFailure, "calling bridge endpoint "+path, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, apierr.Wrap(apierr.ProviderFailure, "reading bridge response from "+path, err)
	}

	if resp.StatusCode == http.StatusAccepted || resp.StatusCode == http.StatusNoContent {
		return nil, nil
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		b.logger.Error().Int("status", resp.StatusCode).Str("endpoint", path).Msg("bridge returned non-2xx")
		return nil, apierr.New(apierr.ProviderFailure, fmt.Sprintf("bridge endpoint %s returned status %d", path, resp.StatusCode))
	}
	if len(raw) == 0 {
		return nil, nil
	}

	var env bridgeEnvelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return nil, apierr.Wrap(apierr.ProviderFailure, "parsing bridge response from "+path, err)
	}
	if !env.Success {
		return nil, apierr.New(apierr.ProviderFailure, "bridge endpoint "+path+" reported failure: "+env.Error)
	}
	return env.Data, nil
}

// bridgeMagicNumber tags every order this engine places so the bridge
// (and any human reading the broker terminal) can distinguish engine
// orders from manually placed ones.
const bridgeMagicNumber = 20260731

func (b *Bridge) ExecuteOrder(ctx context.Context, in ExecuteOrderInput) (ExecuteOrderResult, error) {
	comment := "xauusd-engine"
	if in.SessionID != nil && *in.SessionID != "" {
		comment = "session:" + *in.SessionID
	}
	payload := map[string]interface{}{
		"symbol":          in.Symbol,
		"type":            in.Side,
		"lots":            in.Lot,
		"price":           in.OpenPrice,
		"stopLossPrice":   in.Stop,
		"takeProfitPrice": in.Take,
		"magicNumber":     bridgeMagicNumber,
		"comment":         comment,
	}
	data, err := b.call(ctx, http.MethodPost, "/order/execute", payload)
	if err != nil {
		return ExecuteOrderResult{Error: err.Error()}, err
	}

	var decoded struct {
		Ticket interface{} `json:"ticket"`
	}
	if len(data) > 0 {
		if err := json.Unmarshal(data, &decoded); err != nil {
			return ExecuteOrderResult{}, apierr.Wrap(apierr.ProviderFailure, "parsing order/execute payload", err)
		}
	}
	ticket := stringifyTicket(decoded.Ticket)

	b.logger.Info().Str("ticket", ticket).Str("symbol", in.Symbol).Msg("bridge order executed")
	return ExecuteOrderResult{Success: true, TradeID: ticket, Ticket: ticket}, nil
}

func (b *Bridge) CloseOrder(ctx context.Context, ticket string, lots *float64) (CloseOrderResult, error) {
	payload := map[string]interface{}{"ticket": ticket}
	if lots != nil {
		payload["lots"] = *lots
	}
	data, err := b.call(ctx, http.MethodPost, "/order/close", payload)
	if err != nil {
		return CloseOrderResult{Error: err.Error()}, err
	}

	var decoded struct {
		ClosePrice float64 `json:"closePrice"`
		Profit     float64 `json:"profit"`
	}
	if len(data) > 0 {
		if err := json.Unmarshal(data, &decoded); err != nil {
			return CloseOrderResult{}, apierr.Wrap(apierr.ProviderFailure, "parsing order/close payload", err)
		}
	}

	b.logger.Info().Str("ticket", ticket).Float64("profit", decoded.Profit).Msg("bridge order closed")
	return CloseOrderResult{Success: true, Ticket: ticket, ClosePrice: decoded.ClosePrice, Profit: decoded.Profit}, nil
}

func (b *Bridge) GetAccountSummary(ctx context.Context, accountID string) (AccountSummary, error) {
	path := "/account/summary"
	if accountID != "" {
		path += "?accountId=" + accountID
	}
	data, err := b.call(ctx, http.MethodGet, path, nil)
	if err != nil {
		return AccountSummary{Error: err.Error()}, err
	}
	var summary AccountSummary
	if len(data) > 0 {
		if err := json.Unmarshal(data, &summary); err != nil {
			return AccountSummary{}, apierr.Wrap(apierr.ProviderFailure, "parsing account/summary payload", err)
		}
	}
	return summary, nil
}

func (b *Bridge) GetOpenPositions(ctx context.Context, accountID string) ([]OpenPosition, error) {
	path := "/positions/open"
	if accountID != "" {
		path += "?accountId=" + accountID
	}
	data, err := b.call(ctx, http.MethodGet, path, nil)
	if err != nil {
		return nil, err
	}
	var positions []OpenPosition
	if len(data) > 0 {
		if err := json.Unmarshal(data, &positions); err != nil {
			return nil, apierr.Wrap(apierr.ProviderFailure, "parsing positions/open payload", err)
		}
	}
	return positions, nil
}

func (b *Bridge) GetServerTime(ctx context.Context) (ServerTime, error) {
	data, err := b.call(ctx, http.MethodGet, "/server/time", nil)
	if err != nil {
		return ServerTime{Error: err.Error()}, err
	}
	var decoded struct {
		ServerTime string `json:"serverTime"`
	}
	if len(data) > 0 {
		if err := json.Unmarshal(data, &decoded); err != nil {
			return ServerTime{}, apierr.Wrap(apierr.ProviderFailure, "parsing server/time payload", err)
		}
	}
	return ServerTime{Time: decoded.ServerTime}, nil
}

// stringifyTicket normalizes the bridge's ticket field, which may arrive as
// a JSON number or a string depending on broker terminal.
func stringifyTicket(v interface{}) string {
	switch t := v.(type) {
	case string:
		return t
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	default:
		return fmt.Sprintf("%v", t)
	}
}
