package cache

import (
	"fmt"
	"strings"
	"sync"
	"sync/atomic"

	lru "github.com/hashicorp/golang-lru/v2"
)

// #region config
// Config controls the result cache.
type Config struct {
	Enabled  bool `mapstructure:"enabled"`
	Capacity int  `mapstructure:"capacity"`
}

// DefaultConfig returns an enabled cache holding 1000 entries.
func DefaultConfig() Config {
	return Config{Enabled: true, Capacity: 1000}
}

// #endregion config

// #region stats
// Stats is a point-in-time view of cache counters.
type Stats struct {
	Enabled  bool
	Capacity int
	Size     int
	Hits     int64
	Misses   int64
}

// HitRate returns hits/(hits+misses), 0 when nothing was looked up.
func (s Stats) HitRate() float64 {
	total := s.Hits + s.Misses
	if total == 0 {
		return 0
	}
	return float64(s.Hits) / float64(total)
}

// HitRatePercent formats the hit rate with one decimal, e.g. "66.7%".
func (s Stats) HitRatePercent() string {
	return fmt.Sprintf("%.1f%%", s.HitRate()*100)
}

// #endregion stats

// #region cache
// Cache memoizes values by normalized query text with LRU eviction.
// Computation runs outside the lock, so concurrent first requests for one
// key may both compute; the last write wins.
type Cache[V any] struct {
	config Config
	lru    *lru.Cache[string, V]
	mu     sync.RWMutex // held exclusively by Clear
	hits   atomic.Int64
	misses atomic.Int64
}

// New creates a cache. Capacity must be positive when enabled.
func New[V any](config Config) (*Cache[V], error) {
	c := &Cache[V]{config: config}
	if !config.Enabled {
		return c, nil
	}
	l, err := lru.New[string, V](config.Capacity)
	if err != nil {
		return nil, fmt.Errorf("create lru: %w", err)
	}
	c.lru = l
	return c, nil
}

// Normalize maps a query to its cache key: trimmed and lowercased.
func Normalize(query string) string {
	return strings.ToLower(strings.TrimSpace(query))
}

// GetOrCompute returns the cached value for query, or runs compute and
// stores its result. The bool reports a cache hit. Errors are never cached.
func (c *Cache[V]) GetOrCompute(query string, compute func() (V, error)) (V, bool, error) {
	if c.lru == nil {
		v, err := compute()
		return v, false, err
	}
	key := Normalize(query)

	c.mu.RLock()
	v, ok := c.lru.Get(key)
	if ok {
		c.hits.Add(1)
	} else {
		c.misses.Add(1)
	}
	c.mu.RUnlock()
	if ok {
		return v, true, nil
	}

	v, err := compute()
	if err != nil {
		return v, false, err
	}
	c.mu.RLock()
	c.lru.Add(key, v)
	c.mu.RUnlock()
	return v, false, nil
}

// Clear drops every entry and resets the counters.
func (c *Cache[V]) Clear() {
	if c.lru == nil {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.lru.Purge()
	c.hits.Store(0)
	c.misses.Store(0)
}

// Stats returns the current counters.
func (c *Cache[V]) Stats() Stats {
	s := Stats{Enabled: c.lru != nil, Capacity: c.config.Capacity}
	if c.lru == nil {
		return s
	}
	c.mu.RLock()
	defer c.mu.RUnlock()
	s.Size = c.lru.Len()
	s.Hits = c.hits.Load()
	s.Misses = c.misses.Load()
	return s
}

// #endregion cache
