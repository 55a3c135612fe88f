// Package marketdata fetches the XAUUSD spot quote and historical OHLC
// series from the external market-data provider, normalizes the response
// shapes, and caches the spot price.
package marketdata

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"xauusd-engine/internal/apierr"
	"xauusd-engine/internal/indicator"
)

const symbol = "XAUUSD"

// rateLimitMarkers are substrings the upstream provider embeds in a 200-OK
// body when it is throttling the caller instead of returning data.
var rateLimitMarkers = []string{
	"API call frequency",
	"rate limit",
	"Thank you for using Alpha Vantage",
}

// Client is the HTTP gateway to the market-data provider, paired with the
// process-wide spot cache.
type Client struct {
	apiKey     string
	baseURL    string
	httpClient *http.Client
	cache      *SpotCache
	logger     zerolog.Logger
}

func NewClient(apiKey, baseURL string, cache *SpotCache, logger zerolog.Logger) *Client {
	return &Client{
		apiKey:     apiKey,
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: 15 * time.Second},
		cache:      cache,
		logger:     logger.With().Str("component", "marketdata").Logger(),
	}
}

// intervalParam maps the engine's interval vocabulary to the upstream
// provider's function/interval query parameters.
func intervalParam(interval string) (function string, intradayInterval string, err error) {
	switch interval {
	case "1m":
		return "FX_INTRADAY", "1min", nil
	case "5m":
		return "FX_INTRADAY", "5min", nil
	case "15m":
		return "FX_INTRADAY", "15min", nil
	case "30m":
		return "FX_INTRADAY", "30min", nil
	case "60m":
		return "FX_INTRADAY", "60min", nil
	case "daily":
		return "FX_DAILY", "", nil
	case "weekly":
		return "FX_WEEKLY", "", nil
	case "monthly":
		return "FX_MONTHLY", "", nil
	default:
		return "", "", apierr.New(apierr.ValidationFailure, fmt.Sprintf("unsupported interval %q", interval))
	}
}

// FetchHistorical returns an ascending-by-timestamp OHLC series. outputsize
// must be "compact" or "full". Intraday series carry no volume from the
// upstream provider, so Volume defaults to zero.
func (c *Client) FetchHistorical(ctx context.Context, interval string, outputsize string) ([]indicator.Candle, error) {
	if outputsize != "compact" && outputsize != "full" {
		return nil, apierr.New(apierr.ValidationFailure, fmt.Sprintf("unsupported outputsize %q", outputsize))
	}
	function, intradayInterval, err := intervalParam(interval)
	if err != nil {
		return nil, err
	}

	params := url.Values{}
	params.Set("function", function)
	params.Set("from_symbol", "XAU")
	params.Set("to_symbol", "USD")
	params.Set("outputsize", outputsize)
	params.Set("apikey", c.apiKey)
	if intradayInterval != "" {
		params.Set("interval", intradayInterval)
	}

	endpoint := fmt.Sprintf("%s/query?%s", c.baseURL, params.Encode())

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, apierr.Wrap(apierr.UpstreamUnavailable, "building historical data request", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, apierr.Wrap(apierr.UpstreamUnavailable, "fetching historical data", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, apierr.Wrap(apierr.UpstreamUnavailable, "reading historical data response", err)
	}

	if isRateLimited(body) {
		return nil, apierr.New(apierr.UpstreamRateLimited, "market-data provider rate limit reached")
	}
	if resp.StatusCode != http.StatusOK {
		return nil, apierr.New(apierr.UpstreamUnavailable, fmt.Sprintf("market-data provider returned status %d", resp.StatusCode))
	}

	candles, err := parseSeries(body, interval)
	if err != nil {
		return nil, apierr.Wrap(apierr.UpstreamUnavailable, "parsing historical data response", err)
	}
	return candles, nil
}

func isRateLimited(body []byte) bool {
	text := string(body)
	for _, marker := range rateLimitMarkers {
		if strings.Contains(text, marker) {
			return true
		}
	}
	return false
}

// rawSeries is the shape common to the FX_INTRADAY/FX_DAILY/FX_WEEKLY/
// FX_MONTHLY endpoints: a metadata envelope plus a map of timestamp to OHLC
// strings, keyed under a function-specific top-level field.
type rawSeries map[string]map[string]map[string]string

func parseSeries(body []byte, interval string) ([]indicator.Candle, error) {
	var decoded map[string]json.RawMessage
	if err := json.Unmarshal(body, &decoded); err != nil {
		return nil, fmt.Errorf("decode response envelope: %w", err)
	}

	var seriesKey string
	for key := range decoded {
		if strings.Contains(key, "Time Series") {
			seriesKey = key
			break
		}
	}
	if seriesKey == "" {
		return nil, fmt.Errorf("no time series field in response")
	}

	var series map[string]map[string]string
	if err := json.Unmarshal(decoded[seriesKey], &series); err != nil {
		return nil, fmt.Errorf("decode time series: %w", err)
	}

	candles := make([]indicator.Candle, 0, len(series))
	for ts, row := range series {
		timestamp, err := parseTimestamp(ts)
		if err != nil {
			continue
		}
		open, _ := strconv.ParseFloat(row["1. open"], 64)
		high, _ := strconv.ParseFloat(row["2. high"], 64)
		low, _ := strconv.ParseFloat(row["3. low"], 64)
		closeVal, _ := strconv.ParseFloat(row["4. close"], 64)
		volume := 0.0
		if v, ok := row["5. volume"]; ok {
			volume, _ = strconv.ParseFloat(v, 64)
		}
		candles = append(candles, indicator.Candle{
			Symbol:    symbol,
			Timeframe: interval,
			Timestamp: timestamp,
			Open:      open,
			High:      high,
			Low:       low,
			Close:     closeVal,
			Volume:    volume,
		})
	}

	sortCandlesAscending(candles)
	return candles, nil
}

func parseTimestamp(ts string) (time.Time, error) {
	if t, err := time.Parse("2006-01-02 15:04:05", ts); err == nil {
		return t, nil
	}
	return time.Parse("2006-01-02", ts)
}

func sortCandlesAscending(candles []indicator.Candle) {
	for i := 1; i < len(candles); i++ {
		for j := i; j > 0 && candles[j].Timestamp.Before(candles[j-1].Timestamp); j-- {
			candles[j], candles[j-1] = candles[j-1], candles[j]
		}
	}
}

// FetchSpot returns the current XAU/USD rate, transparently serving from
// the cache per the staleness rules in SpotCache.
func (c *Client) FetchSpot(ctx context.Context) (float64, error) {
	return c.cache.Get(ctx, c.fetchSpotFromUpstream)
}

func (c *Client) fetchSpotFromUpstream(ctx context.Context) (float64, error) {
	params := url.Values{}
	params.Set("function", "CURRENCY_EXCHANGE_RATE")
	params.Set("from_currency", "XAU")
	params.Set("to_currency", "USD")
	params.Set("apikey", c.apiKey)

	endpoint := fmt.Sprintf("%s/query?%s", c.baseURL, params.Encode())

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return 0, apierr.Wrap(apierr.UpstreamUnavailable, "building spot request", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return 0, apierr.Wrap(apierr.UpstreamUnavailable, "fetching spot price", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return 0, apierr.Wrap(apierr.UpstreamUnavailable, "reading spot response", err)
	}

	if isRateLimited(body) {
		return 0, apierr.New(apierr.UpstreamRateLimited, "market-data provider rate limit reached")
	}
	if resp.StatusCode != http.StatusOK {
		return 0, apierr.New(apierr.UpstreamUnavailable, fmt.Sprintf("market-data provider returned status %d", resp.StatusCode))
	}

	var decoded struct {
		RealtimeCurrencyExchangeRate map[string]string `json:"Realtime Currency Exchange Rate"`
	}
	if err := json.Unmarshal(body, &decoded); err != nil {
		return 0, fmt.Errorf("decode spot response: %w", err)
	}
	rateStr, ok := decoded.RealtimeCurrencyExchangeRate["5. Exchange Rate"]
	if !ok {
		return 0, fmt.Errorf("spot response missing exchange rate field")
	}
	rate, err := strconv.ParseFloat(rateStr, 64)
	if err != nil {
		return 0, fmt.Errorf("parse exchange rate: %w", err)
	}
	return rate, nil
}

// Healthy is a cheap reachability probe used by
// admin_get_env_variables_status.
func (c *Client) Healthy(ctx context.Context) bool {
	_, err := c.fetchSpotFromUpstream(ctx)
	if err != nil {
		c.logger.Warn().Err(err).Msg("health probe failed")
	}
	return err == nil
}
