package dashboard

import (
	"crypto/sha1"
	"encoding/hex"
	"encoding/json"
	"sync"
	"time"
)

const defaultChartCacheEntries = 256

// RenderCache memoizes rendered chart HTML. Identical history renders to
// identical markup, so refresh ticks that bring no new samples are cheap.
type RenderCache interface {
	GetOrRender(key string, render func() (string, error)) (string, error)
}

// ChartCache is an in-memory TTL cache for rendered charts, bounded in size.
type ChartCache struct {
	ttl        time.Duration
	maxEntries int
	mu         sync.Mutex
	entries    map[string]cachedChart
	now        func() time.Time
}

type cachedChart struct {
	html    string
	expires time.Time
}

// DefaultChartCacheTTL is how long a controller reuses rendered chart HTML.
const DefaultChartCacheTTL = time.Minute

// NewChartCache builds a cache with the provided TTL. A non-positive TTL
// disables caching.
func NewChartCache(ttl time.Duration) *ChartCache {
	return &ChartCache{
		ttl:        ttl,
		maxEntries: defaultChartCacheEntries,
		entries:    make(map[string]cachedChart),
		now:        time.Now,
	}
}

// GetOrRender returns a cached entry or renders and stores a new one.
// Render errors are never cached.
func (c *ChartCache) GetOrRender(key string, render func() (string, error)) (string, error) {
	if html, ok := c.get(key); ok {
		return html, nil
	}
	html, err := render()
	if err != nil {
		return "", err
	}
	c.set(key, html)
	return html, nil
}

// Len returns the number of live entries.
func (c *ChartCache) Len() int {
	if c == nil {
		return 0
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.evictExpired()
	return len(c.entries)
}

func (c *ChartCache) get(key string) (string, bool) {
	if c == nil || c.ttl <= 0 {
		return "", false
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	entry, ok := c.entries[key]
	if !ok {
		return "", false
	}
	if c.now().After(entry.expires) {
		delete(c.entries, key)
		return "", false
	}
	return entry.html, true
}

func (c *ChartCache) set(key, html string) {
	if c == nil || c.ttl <= 0 {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if len(c.entries) >= c.maxEntries {
		c.evictExpired()
	}
	if len(c.entries) >= c.maxEntries {
		c.evictSoonest()
	}
	c.entries[key] = cachedChart{
		html:    html,
		expires: c.now().Add(c.ttl),
	}
}

func (c *ChartCache) evictExpired() {
	now := c.now()
	for key, entry := range c.entries {
		if now.After(entry.expires) {
			delete(c.entries, key)
		}
	}
}

func (c *ChartCache) evictSoonest() {
	var (
		victim string
		first  time.Time
	)
	for key, entry := range c.entries {
		if victim == "" || entry.expires.Before(first) {
			victim, first = key, entry.expires
		}
	}
	delete(c.entries, victim)
}

// configHash returns a deterministic hash of any JSON-encodable value.
func configHash(v any) string {
	if m, ok := v.(map[string]any); ok && len(m) == 0 {
		return "empty"
	}
	b, err := json.Marshal(v)
	if err != nil {
		return "invalid"
	}
	sum := sha1.Sum(b)
	return hex.EncodeToString(sum[:])
}
