package dashboard

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newClockedCache(ttl time.Duration) (*ChartCache, *time.Time) {
	now := time.Unix(1_700_000_000, 0)
	cache := NewChartCache(ttl)
	cache.now = func() time.Time { return now }
	return cache, &now
}

func TestChartCacheReusesUntilExpiry(t *testing.T) {
	cache, now := newClockedCache(time.Minute)
	renders := 0
	render := func() (string, error) {
		renders++
		return fmt.Sprintf("<div>chart %d</div>", renders), nil
	}

	first, err := cache.GetOrRender("w_1:24h", render)
	require.NoError(t, err)
	second, err := cache.GetOrRender("w_1:24h", render)
	require.NoError(t, err)
	assert.Equal(t, first, second)
	assert.Equal(t, 1, renders)

	*now = now.Add(2 * time.Minute)
	third, err := cache.GetOrRender("w_1:24h", render)
	require.NoError(t, err)
	assert.Equal(t, "<div>chart 2</div>", third)
}

func TestChartCacheSkipsErrors(t *testing.T) {
	cache, _ := newClockedCache(time.Minute)
	_, err := cache.GetOrRender("w_1:6h", func() (string, error) { return "", fmt.Errorf("boom") })
	require.Error(t, err)
	assert.Equal(t, 0, cache.Len())
}

func TestChartCacheDisabled(t *testing.T) {
	cache, _ := newClockedCache(0)
	renders := 0
	for range 3 {
		_, err := cache.GetOrRender("k", func() (string, error) { renders++; return "x", nil })
		require.NoError(t, err)
	}
	assert.Equal(t, 3, renders)
}

func TestChartCacheBounded(t *testing.T) {
	cache, now := newClockedCache(time.Hour)
	cache.maxEntries = 2
	for i, key := range []string{"a", "b", "c"} {
		*now = now.Add(time.Duration(i) * time.Second)
		_, err := cache.GetOrRender(key, func() (string, error) { return key, nil })
		require.NoError(t, err)
	}
	assert.Equal(t, 2, cache.Len())
	_, ok := cache.get("a")
	assert.False(t, ok, "entry expiring soonest is evicted")
}
