// NobarFilm - Streaming Aggregation and Watch-Party Server
// Copyright 2026 NobarFilm contributors
// SPDX-License-Identifier: AGPL-3.0-or-later

package cache

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"
)

func TestSetGet(t *testing.T) {
	c := New(nil)
	defer c.Destroy()

	c.Set("key", "value", time.Minute)

	got, ok := c.Get("key")
	if !ok {
		t.Fatal("expected cache hit")
	}
	if got.(string) != "value" {
		t.Errorf("expected %q, got %q", "value", got)
	}
}

func TestGetMissing(t *testing.T) {
	c := New(nil)
	defer c.Destroy()

	if _, ok := c.Get("absent"); ok {
		t.Error("expected miss for absent key")
	}
}

func TestSetOverwrites(t *testing.T) {
	c := New(nil)
	defer c.Destroy()

	c.Set("key", "first", time.Minute)
	c.Set("key", "second", time.Minute)

	got, ok := c.Get("key")
	if !ok || got.(string) != "second" {
		t.Errorf("expected overwritten value %q, got %v (hit=%v)", "second", got, ok)
	}
}

func TestLazyExpiry(t *testing.T) {
	c := New(nil)
	defer c.Destroy()

	c.Set("key", "value", 10*time.Millisecond)

	if _, ok := c.Get("key"); !ok {
		t.Fatal("expected hit before expiry")
	}

	time.Sleep(20 * time.Millisecond)

	// Entry must be absent after its deadline even though no sweep ran.
	if _, ok := c.Get("key"); ok {
		t.Error("expected miss after expiry without sweep")
	}

	stats := c.GetStats()
	if stats.Evictions == 0 {
		t.Error("expected expired entry to be evicted on read")
	}
}

func TestHasMatchesGetExpiry(t *testing.T) {
	c := New(nil)
	defer c.Destroy()

	c.Set("live", "v", time.Minute)
	c.Set("dead", "v", 1*time.Millisecond)
	time.Sleep(5 * time.Millisecond)

	if !c.Has("live") {
		t.Error("expected Has true for live entry")
	}
	if c.Has("dead") {
		t.Error("expected Has false for expired entry")
	}
	if c.Has("absent") {
		t.Error("expected Has false for absent key")
	}
}

func TestDelete(t *testing.T) {
	c := New(nil)
	defer c.Destroy()

	c.Set("key", "value", time.Minute)
	c.Delete("key")

	if _, ok := c.Get("key"); ok {
		t.Error("expected miss after delete")
	}

	// Deleting a missing key must not panic or error.
	c.Delete("never-existed")
}

func TestClear(t *testing.T) {
	c := New(nil)
	defer c.Destroy()

	for i := 0; i < 10; i++ {
		c.Set(fmt.Sprintf("key-%d", i), i, time.Minute)
	}
	c.Clear()

	for i := 0; i < 10; i++ {
		if _, ok := c.Get(fmt.Sprintf("key-%d", i)); ok {
			t.Fatalf("expected key-%d gone after clear", i)
		}
	}
	if stats := c.GetStats(); stats.TotalKeys != 0 {
		t.Errorf("expected 0 keys after clear, got %d", stats.TotalKeys)
	}
}

func TestSweep(t *testing.T) {
	c := New(nil)
	defer c.Destroy()

	c.Set("live", "v", time.Minute)
	c.Set("dead-1", "v", 1*time.Millisecond)
	c.Set("dead-2", "v", 1*time.Millisecond)
	time.Sleep(5 * time.Millisecond)

	if evicted := c.Sweep(); evicted != 2 {
		t.Errorf("expected 2 evictions from sweep, got %d", evicted)
	}
	if _, ok := c.Get("live"); !ok {
		t.Error("sweep must not evict live entries")
	}
	if stats := c.GetStats(); stats.TotalKeys != 1 {
		t.Errorf("expected 1 key after sweep, got %d", stats.TotalKeys)
	}
}

func TestDestroyIdempotent(t *testing.T) {
	c := New(nil)

	c.Set("key", "value", time.Minute)
	c.Destroy()
	c.Destroy()
	c.Destroy()

	select {
	case <-c.Done():
	default:
		t.Error("expected Done channel closed after Destroy")
	}
}

func TestSweeperStopsOnDestroy(t *testing.T) {
	c := New(nil)
	s := NewSweeper(c, 10*time.Millisecond)

	errCh := make(chan error, 1)
	go func() {
		errCh <- s.Serve(context.Background())
	}()

	c.Destroy()

	select {
	case err := <-errCh:
		if err != nil {
			t.Errorf("expected nil error on destroy, got %v", err)
		}
	case <-time.After(time.Second):
		t.Fatal("sweeper did not stop after cache destroy")
	}
}

func TestSweeperStopsOnContextCancel(t *testing.T) {
	c := New(nil)
	defer c.Destroy()
	s := NewSweeper(c, time.Hour)

	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() {
		errCh <- s.Serve(ctx)
	}()
	cancel()

	select {
	case err := <-errCh:
		if err != context.Canceled {
			t.Errorf("expected context.Canceled, got %v", err)
		}
	case <-time.After(time.Second):
		t.Fatal("sweeper did not stop after context cancel")
	}
}

func TestConcurrentAccess(t *testing.T) {
	c := New(nil)
	defer c.Destroy()

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				key := fmt.Sprintf("key-%d-%d", n, j)
				c.Set(key, j, time.Minute)
				c.Get(key)
				c.Has(key)
				if j%10 == 0 {
					c.Delete(key)
				}
			}
		}(i)
	}
	wg.Wait()
}

func TestHitRate(t *testing.T) {
	c := New(nil)
	defer c.Destroy()

	if rate := c.HitRate(); rate != 0.0 {
		t.Errorf("expected 0%% hit rate with no traffic, got %.2f", rate)
	}

	c.Set("key", "value", time.Minute)
	c.Get("key")
	c.Get("missing")

	if rate := c.HitRate(); rate != 50.0 {
		t.Errorf("expected 50%% hit rate, got %.2f", rate)
	}
}

func TestGenerateKey(t *testing.T) {
	k1 := GenerateKey("stream", map[string]interface{}{"book": "b1", "ep": 3})
	k2 := GenerateKey("stream", map[string]interface{}{"book": "b1", "ep": 3})
	k3 := GenerateKey("stream", map[string]interface{}{"book": "b1", "ep": 4})

	if k1 != k2 {
		t.Error("expected identical params to produce identical keys")
	}
	if k1 == k3 {
		t.Error("expected different params to produce different keys")
	}
}
