// NobarFilm - Streaming Aggregation and Watch-Party Server
// Copyright 2026 NobarFilm contributors
// SPDX-License-Identifier: AGPL-3.0-or-later

package upstream

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/nobarfilm/nobarfilm/internal/cache"
	"github.com/nobarfilm/nobarfilm/internal/config"
	"github.com/nobarfilm/nobarfilm/internal/normalize"
)

func newTestClient(t *testing.T, serverURL string) *Client {
	t.Helper()
	c := cache.New(nil)
	t.Cleanup(c.Destroy)

	cfg := &config.UpstreamConfig{
		Timeout:        5 * time.Second,
		BreakerMaxFail: 3,
		BreakerCooloff: time.Minute,
		DramaBoxURL:    serverURL,
		NetShortURL:    serverURL,
		MeloloURL:      serverURL,
		AnimeURL:       serverURL,
		MovieBoxURL:    serverURL,
	}
	cacheCfg := &config.CacheConfig{
		StreamTTL:  30 * time.Minute,
		CatalogTTL: 5 * time.Minute,
	}
	return New(cfg, cacheCfg, c)
}

func TestSearchNormalizesAndCaches(t *testing.T) {
	var hits atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		_, _ = w.Write([]byte(`{"data": {"records": [{"bookId": "b1", "bookName": "Drama"}]}}`))
	}))
	defer server.Close()

	client := newTestClient(t, server.URL)
	ctx := context.Background()

	page, cached, err := client.Search(ctx, normalize.SourceDramaBox, "drama")
	if err != nil {
		t.Fatalf("search failed: %v", err)
	}
	if cached {
		t.Error("first search must not be cached")
	}
	if len(page.Items) != 1 || page.Items[0].BookID != "b1" {
		t.Fatalf("expected normalized record b1, got %+v", page.Items)
	}

	// Second identical search is served from cache, no upstream hit.
	page, cached, err = client.Search(ctx, normalize.SourceDramaBox, "drama")
	if err != nil {
		t.Fatalf("cached search failed: %v", err)
	}
	if !cached {
		t.Error("second search should come from cache")
	}
	if len(page.Items) != 1 {
		t.Errorf("expected cached page intact, got %+v", page.Items)
	}
	if got := hits.Load(); got != 1 {
		t.Errorf("expected 1 upstream hit, got %d", got)
	}
}

func TestSearchUnknownSource(t *testing.T) {
	client := newTestClient(t, "http://unused.invalid")

	_, _, err := client.Search(context.Background(), "nosuch", "q")
	if !errors.Is(err, ErrUnknownSource) {
		t.Errorf("expected ErrUnknownSource, got %v", err)
	}
}

func TestMalformedUpstreamDegradesToEmptyPage(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`<html>definitely not json</html>`))
	}))
	defer server.Close()

	client := newTestClient(t, server.URL)

	page, _, err := client.Latest(context.Background(), normalize.SourceNetShort)
	if err != nil {
		t.Fatalf("expected graceful degradation, got %v", err)
	}
	if len(page.Items) != 0 {
		t.Errorf("expected empty page for malformed payload, got %d items", len(page.Items))
	}
}

func TestStreamResolutionCached(t *testing.T) {
	var hits atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		_, _ = w.Write([]byte(`{"data": {"chapterList": [
			{"index": 2, "cdnList": [{"url": "https://cdn.example/ep2.mp4"}]}
		]}}`))
	}))
	defer server.Close()

	client := newTestClient(t, server.URL)
	ctx := context.Background()

	stream, cached, err := client.Stream(ctx, normalize.SourceDramaBox, "b1", 2)
	if err != nil {
		t.Fatalf("stream resolution failed: %v", err)
	}
	if cached {
		t.Error("first resolution must not be cached")
	}
	if stream.URL != "https://cdn.example/ep2.mp4" {
		t.Errorf("unexpected stream url %q", stream.URL)
	}

	_, cached, err = client.Stream(ctx, normalize.SourceDramaBox, "b1", 2)
	if err != nil {
		t.Fatalf("cached resolution failed: %v", err)
	}
	if !cached {
		t.Error("second resolution should come from cache")
	}
	if got := hits.Load(); got != 1 {
		t.Errorf("expected 1 upstream hit, got %d", got)
	}
}

func TestStreamNotFound(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"data": {"chapterList": []}}`))
	}))
	defer server.Close()

	client := newTestClient(t, server.URL)

	_, _, err := client.Stream(context.Background(), normalize.SourceDramaBox, "b1", 99)
	if !errors.Is(err, ErrStreamNotFound) {
		t.Errorf("expected ErrStreamNotFound, got %v", err)
	}
}

func TestBreakerOpensAfterConsecutiveFailures(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer server.Close()

	client := newTestClient(t, server.URL)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		if _, _, err := client.Latest(ctx, normalize.SourceMelolo); err == nil {
			t.Fatal("expected upstream failure")
		}
	}

	// Breaker is now open: the next call is rejected without a request.
	_, _, err := client.Latest(ctx, normalize.SourceMelolo)
	if err == nil {
		t.Fatal("expected open-circuit rejection")
	}

	// Other sources keep their own breakers.
	serverOK := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"data": {"animeList": [{"animeId": "a1", "title": "A"}]}}`))
	}))
	defer serverOK.Close()

	client2 := newTestClient(t, serverOK.URL)
	if _, _, err := client2.Latest(ctx, normalize.SourceAnime); err != nil {
		t.Errorf("independent source should still work, got %v", err)
	}
}
