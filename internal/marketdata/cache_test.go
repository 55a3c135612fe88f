package marketdata

import (
	"context"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func discardLogger() zerolog.Logger {
	return zerolog.Nop()
}

// S5: a spot call repeated within the fresh window performs upstream I/O
// exactly once.
func TestSpotCache_FreshWindowAvoidsRepeatedIO(t *testing.T) {
	cache := NewSpotCache(nil, discardLogger())
	calls := 0
	fetch := func(ctx context.Context) (float64, error) {
		calls++
		return 2015.5, nil
	}

	price1, err := cache.Get(context.Background(), fetch)
	require.NoError(t, err)
	price2, err := cache.Get(context.Background(), fetch)
	require.NoError(t, err)

	assert.Equal(t, 1, calls)
	assert.Equal(t, price1, price2)
}

func TestSpotCache_FallsBackToStaleOnUpstreamFailure(t *testing.T) {
	cache := NewSpotCache(nil, discardLogger())
	okFetch := func(ctx context.Context) (float64, error) { return 2020.0, nil }
	_, err := cache.Get(context.Background(), okFetch)
	require.NoError(t, err)

	// Force the next read to treat the entry as expired-but-stale by
	// rewriting it with a fetch-time in the past, inside staleWindow.
	cache.mu.Lock()
	cache.entry.FetchedAt = cache.entry.FetchedAt.Add(-6 * freshWindow / 5)
	cache.mu.Unlock()

	failFetch := func(ctx context.Context) (float64, error) {
		return 0, assertErr{"upstream down"}
	}
	price, err := cache.Get(context.Background(), failFetch)
	require.NoError(t, err)
	assert.Equal(t, 2020.0, price)
}

type assertErr struct{ msg string }

func (e assertErr) Error() string { return e.msg }
