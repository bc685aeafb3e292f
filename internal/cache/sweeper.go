// NobarFilm - Streaming Aggregation and Watch-Party Server
// Copyright 2026 NobarFilm contributors
// SPDX-License-Identifier: AGPL-3.0-or-later

package cache

import (
	"context"
	"time"

	"github.com/nobarfilm/nobarfilm/internal/logging"
)

// Sweeper periodically removes expired entries from a Cache. It
// implements suture.Service and runs under the supervision tree's
// data layer. The loop also exits when the cache is destroyed.
type Sweeper struct {
	cache    *Cache
	interval time.Duration
}

// NewSweeper creates a sweeper for the given cache. A non-positive
// interval falls back to 10 minutes.
func NewSweeper(c *Cache, interval time.Duration) *Sweeper {
	if interval <= 0 {
		interval = 10 * time.Minute
	}
	return &Sweeper{cache: c, interval: interval}
}

// Serve runs the sweep loop until the context is canceled or the
// cache is destroyed.
func (s *Sweeper) Serve(ctx context.Context) error {
	logging.Info().
		Dur("interval", s.interval).
		Msg("Cache sweeper started")

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-s.cache.Done():
			logging.Debug().Msg("Cache destroyed, sweeper stopping")
			return nil
		case <-ticker.C:
			if evicted := s.cache.Sweep(); evicted > 0 {
				logging.Debug().
					Int("evicted", evicted).
					Msg("Cache sweep removed expired entries")
			}
		}
	}
}

// String identifies the service in supervisor logs.
func (s *Sweeper) String() string {
	return "cache-sweeper"
}
