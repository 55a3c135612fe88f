package marketdata

import (
	"context"
	"encoding/json"
	"sync"
	"sync/atomic"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"xauusd-engine/internal/apierr"
)

const (
	freshWindow   = 5 * time.Minute
	staleWindow   = 10 * time.Minute
	spotCacheKey  = "marketdata:spot:XAUUSD"
)

type spotEntry struct {
	Price     float64   `json:"price"`
	FetchedAt time.Time `json:"fetched_at"`
}

// SpotCache is the single-entry, process-wide spot-price cache. It is
// backed by Redis when available (so multiple engine instances share one
// cache) and falls back to an in-memory entry protected by a mutex when
// Redis is disabled or unreachable: Redis is pinged at construction and
// an availability flag is cleared on the first failed read or write.
type SpotCache struct {
	redisClient *redis.Client
	logger      zerolog.Logger

	redisAvailable atomic.Bool

	mu    sync.RWMutex
	entry *spotEntry
}

// NewSpotCache pings client (if non-nil) with a short timeout and falls
// back to in-memory-only mode if it doesn't answer.
func NewSpotCache(client *redis.Client, logger zerolog.Logger) *SpotCache {
	c := &SpotCache{redisClient: client, logger: logger.With().Str("component", "marketdata").Logger()}
	if client == nil {
		return c
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		c.logger.Warn().Err(err).Msg("redis unreachable at startup, falling back to in-memory spot cache")
		c.redisAvailable.Store(false)
	} else {
		c.redisAvailable.Store(true)
	}
	return c
}

// Get returns the cached spot price when it is younger than freshWindow
// without calling fetch; otherwise it calls fetch. On a fetch failure, an
// entry younger than staleWindow is returned instead, with the error
// logged as a warning; only when there is no usable entry does the error
// propagate.
func (c *SpotCache) Get(ctx context.Context, fetch func(context.Context) (float64, error)) (float64, error) {
	if entry, ok := c.read(ctx); ok && time.Since(entry.FetchedAt) < freshWindow {
		return entry.Price, nil
	}

	price, err := fetch(ctx)
	if err == nil {
		c.write(ctx, spotEntry{Price: price, FetchedAt: time.Now()})
		return price, nil
	}

	if entry, ok := c.read(ctx); ok && time.Since(entry.FetchedAt) < staleWindow {
		c.logger.Warn().Err(err).Str("age", time.Since(entry.FetchedAt).String()).Msg("serving stale spot price after upstream failure")
		return entry.Price, nil
	}

	return 0, apierr.Wrap(apierr.UpstreamUnavailable, "spot price unavailable and no usable cache entry", err)
}

func (c *SpotCache) read(ctx context.Context) (spotEntry, bool) {
	if c.redisAvailable.Load() {
		raw, err := c.redisClient.Get(ctx, spotCacheKey).Bytes()
		if err == nil {
			var entry spotEntry
			if json.Unmarshal(raw, &entry) == nil {
				return entry, true
			}
		} else if err != redis.Nil {
			c.logger.Warn().Err(err).Msg("redis read failed, marking unavailable")
			c.redisAvailable.Store(false)
		}
	}

	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.entry == nil {
		return spotEntry{}, false
	}
	return *c.entry, true
}

func (c *SpotCache) write(ctx context.Context, entry spotEntry) {
	c.mu.Lock()
	c.entry = &entry
	c.mu.Unlock()

	if !c.redisAvailable.Load() {
		return
	}
	data, err := json.Marshal(entry)
	if err != nil {
		return
	}
	if err := c.redisClient.Set(ctx, spotCacheKey, data, staleWindow).Err(); err != nil {
		c.logger.Warn().Err(err).Msg("redis write failed, marking unavailable")
		c.redisAvailable.Store(false)
	}
}
