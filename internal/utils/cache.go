package utils

import (
	"fmt"
	"math"
	"sync"
	"time"
)

// ReadingCache is a small TTL cache used to deduplicate channel readings
// before they hit the history store. Keyed by channel number, thread-safe.
type ReadingCache struct {
	mu   sync.Mutex
	ttl  time.Duration
	data map[int]entry
}

type entry struct {
	v  float64
	at time.Time
}

// NewReadingCache creates a cache with the given TTL. If ttl <= 0, it defaults to 1h.
func NewReadingCache(ttl time.Duration) *ReadingCache {
	if ttl <= 0 {
		ttl = time.Hour
	}
	return &ReadingCache{ttl: ttl, data: make(map[int]entry, 16)}
}

// Get returns the cached value for a channel if it hasn't expired.
func (c *ReadingCache) Get(channelNum int) (float64, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.data[channelNum]
	if !ok {
		return 0, false
	}
	if time.Since(e.at) > c.ttl {
		delete(c.data, channelNum)
		return 0, false
	}
	return e.v, true
}

// Set stores the value with the current timestamp.
func (c *ReadingCache) Set(channelNum int, v float64) {
	c.mu.Lock()
	c.data[channelNum] = entry{v: v, at: time.Now()}
	c.mu.Unlock()
}

// Changed reports whether v differs from the cached value for the channel
// and refreshes the cache when it does.
func (c *ReadingCache) Changed(channelNum int, v float64) bool {
	if prev, ok := c.Get(channelNum); ok && FloatsEqual(prev, v) {
		return false
	}
	c.Set(channelNum, v)
	return true
}

// FloatsEqual compares two floats with a relative tolerance suited to
// instrument readings.
func FloatsEqual(a, b float64) bool {
	if a == b {
		return true
	}
	scale := math.Max(math.Abs(a), math.Abs(b))
	return math.Abs(a-b) <= 1e-9*scale
}

// FormatValue renders a reading the way it appears in logs, %g with unit.
func FormatValue(v float64, unit string) string {
	if unit == "" {
		return fmt.Sprintf("%g", v)
	}
	return fmt.Sprintf("%g %s", v, unit)
}
