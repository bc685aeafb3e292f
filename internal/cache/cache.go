// NobarFilm - Streaming Aggregation and Watch-Party Server
// Copyright 2026 NobarFilm contributors
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package cache provides a thread-safe in-memory cache with per-entry TTL.
//
// The cache is an explicitly constructed component with a defined
// lifecycle: build it with New, hand it to whoever needs it, run a
// Sweeper under the supervision tree for periodic expiry, and call
// Destroy once at shutdown. There is no package-level singleton.
//
// Expiry is enforced lazily on every read: an entry whose deadline has
// passed is absent from the caller's point of view even if the sweeper
// has not run yet.
package cache

import (
	"crypto/sha256"
	"fmt"
	"sync"
	"time"

	"github.com/goccy/go-json"
)

// Entry represents a cached item with its expiration deadline.
type Entry struct {
	Data      interface{}
	ExpiresAt time.Time
}

// Recorder receives cache events for instrumentation. Implementations
// must be safe for concurrent use. A nil Recorder disables reporting.
type Recorder interface {
	Hit()
	Miss()
	Eviction(n int)
	Keys(n int)
}

// Cache provides a thread-safe in-memory key-value store with TTL
// support. Values are small derived artifacts (resolved stream URLs,
// catalog pages) so there is no size bound or LRU policy, TTL only.
type Cache struct {
	mu       sync.RWMutex
	entries  map[string]Entry
	stats    Stats
	recorder Recorder

	destroyOnce sync.Once
	done        chan struct{}
}

// Stats tracks cache performance counters.
type Stats struct {
	mu        sync.RWMutex
	Hits      int64
	Misses    int64
	Evictions int64
	TotalKeys int64
	LastSweep time.Time
}

// New creates a cache. No background goroutine is started; run a
// Sweeper for periodic expiry.
//
// recorder may be nil.
func New(recorder Recorder) *Cache {
	return &Cache{
		entries:  make(map[string]Entry),
		recorder: recorder,
		done:     make(chan struct{}),
	}
}

// Set stores a value under key with the given TTL, overwriting any
// existing entry for the same key.
func (c *Cache) Set(key string, value interface{}, ttl time.Duration) {
	c.mu.Lock()
	c.entries[key] = Entry{
		Data:      value,
		ExpiresAt: time.Now().Add(ttl),
	}
	total := len(c.entries)
	c.mu.Unlock()

	c.recordKeys(total)
}

// Get retrieves a value by key. An expired entry is evicted and
// reported as a miss, whether or not a sweep has run.
func (c *Cache) Get(key string) (interface{}, bool) {
	c.mu.RLock()
	entry, exists := c.entries[key]
	c.mu.RUnlock()

	if !exists {
		c.recordMiss()
		return nil, false
	}

	if time.Now().After(entry.ExpiresAt) {
		c.evict(key)
		c.recordMiss()
		return nil, false
	}

	c.recordHit()
	return entry.Data, true
}

// Has reports whether key holds an unexpired value. It performs the
// same lazy-expiry eviction as Get.
func (c *Cache) Has(key string) bool {
	_, ok := c.Get(key)
	return ok
}

// Delete removes a cache entry. Safe to call for keys that do not exist.
func (c *Cache) Delete(key string) {
	c.evict(key)
}

// Clear removes all entries in a single operation.
func (c *Cache) Clear() {
	c.mu.Lock()
	evictions := len(c.entries)
	c.entries = make(map[string]Entry)
	c.mu.Unlock()

	c.stats.mu.Lock()
	c.stats.Evictions += int64(evictions)
	c.stats.TotalKeys = 0
	c.stats.mu.Unlock()

	if c.recorder != nil {
		c.recorder.Eviction(evictions)
		c.recorder.Keys(0)
	}
}

// Sweep removes all expired entries in one pass and returns how many
// were evicted. Normally driven by a Sweeper on a fixed interval.
func (c *Cache) Sweep() int {
	now := time.Now()
	c.mu.Lock()
	evictions := 0
	for key, entry := range c.entries {
		if now.After(entry.ExpiresAt) {
			delete(c.entries, key)
			evictions++
		}
	}
	total := len(c.entries)
	c.mu.Unlock()

	c.stats.mu.Lock()
	c.stats.Evictions += int64(evictions)
	c.stats.TotalKeys = int64(total)
	c.stats.LastSweep = now
	c.stats.mu.Unlock()

	if c.recorder != nil {
		if evictions > 0 {
			c.recorder.Eviction(evictions)
		}
		c.recorder.Keys(total)
	}
	return evictions
}

// Destroy releases the cache for process shutdown: it stops any
// running Sweeper and drops all entries. Safe to call multiple times.
func (c *Cache) Destroy() {
	c.destroyOnce.Do(func() {
		close(c.done)
		c.mu.Lock()
		c.entries = make(map[string]Entry)
		c.mu.Unlock()
	})
}

// Done returns a channel closed by Destroy. Sweepers watch it so an
// explicit Destroy stops the sweep loop even outside a supervisor.
func (c *Cache) Done() <-chan struct{} {
	return c.done
}

// GetStats returns a snapshot of the cache performance counters.
func (c *Cache) GetStats() Stats {
	c.stats.mu.RLock()
	defer c.stats.mu.RUnlock()

	return Stats{
		Hits:      c.stats.Hits,
		Misses:    c.stats.Misses,
		Evictions: c.stats.Evictions,
		TotalKeys: c.stats.TotalKeys,
		LastSweep: c.stats.LastSweep,
	}
}

// HitRate returns the cache hit rate as a percentage.
func (c *Cache) HitRate() float64 {
	stats := c.GetStats()
	total := stats.Hits + stats.Misses
	if total == 0 {
		return 0.0
	}
	return float64(stats.Hits) / float64(total) * 100.0
}

func (c *Cache) evict(key string) {
	c.mu.Lock()
	delete(c.entries, key)
	c.mu.Unlock()

	c.stats.mu.Lock()
	c.stats.Evictions++
	c.stats.mu.Unlock()

	if c.recorder != nil {
		c.recorder.Eviction(1)
	}
}

func (c *Cache) recordHit() {
	c.stats.mu.Lock()
	c.stats.Hits++
	c.stats.mu.Unlock()

	if c.recorder != nil {
		c.recorder.Hit()
	}
}

func (c *Cache) recordMiss() {
	c.stats.mu.Lock()
	c.stats.Misses++
	c.stats.mu.Unlock()

	if c.recorder != nil {
		c.recorder.Miss()
	}
}

func (c *Cache) recordKeys(total int) {
	c.stats.mu.Lock()
	c.stats.TotalKeys = int64(total)
	c.stats.mu.Unlock()

	if c.recorder != nil {
		c.recorder.Keys(total)
	}
}

// GenerateKey creates a cache key from an operation name and its parameters.
func GenerateKey(op string, params interface{}) string {
	data, err := json.Marshal(params)
	if err != nil {
		// Fallback to simple string key
		return fmt.Sprintf("%s:%v", op, params)
	}

	hash := sha256.Sum256(data)
	return fmt.Sprintf("%s:%x", op, hash[:16])
}
