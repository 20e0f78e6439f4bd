// Package device provides backing stores for the emulated zoned device.
package device

import (
	"errors"
	"sync"
)

// ErrOutOfBounds reports an access past the end of a backing store.
var ErrOutOfBounds = errors.New("access beyond backing store")

// Statistics tracks backing store access
type Statistics struct {
	BlocksRead    int64 `json:"blocks_read" yaml:"blocks_read"`
	BytesRead     int64 `json:"bytes_read" yaml:"bytes_read"`
	BlocksWritten int64 `json:"blocks_written" yaml:"blocks_written"`
	BytesWritten  int64 `json:"bytes_written" yaml:"bytes_written"`
	CacheHits     int64 `json:"cache_hits" yaml:"cache_hits"`
	CacheMisses   int64 `json:"cache_misses" yaml:"cache_misses"`
}

// CacheHitRate returns the cache hit rate as a percentage
func (s Statistics) CacheHitRate() float64 {
	total := s.CacheHits + s.CacheMisses
	if total == 0 {
		return 0.0
	}
	return float64(s.CacheHits) / float64(total) * 100.0
}

type counters struct {
	mu sync.Mutex
	s  Statistics
}

func (c *counters) recordRead(n int) {
	c.mu.Lock()
	c.s.BlocksRead++
	c.s.BytesRead += int64(n)
	c.mu.Unlock()
}

func (c *counters) recordWrite(n int) {
	c.mu.Lock()
	c.s.BlocksWritten++
	c.s.BytesWritten += int64(n)
	c.mu.Unlock()
}

func (c *counters) recordCacheHit() {
	c.mu.Lock()
	c.s.CacheHits++
	c.mu.Unlock()
}

func (c *counters) recordCacheMiss() {
	c.mu.Lock()
	c.s.CacheMisses++
	c.mu.Unlock()
}

func (c *counters) snapshot() Statistics {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.s
}
