// NobarFilm - Streaming Aggregation and Watch-Party Server
// Copyright 2026 NobarFilm contributors
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package upstream fetches catalog and stream data from the external
// content sources.
//
// The sources are reverse-engineered APIs with no stability contract,
// so every call runs behind a per-source circuit breaker and every
// response goes through the normalizers, which degrade malformed
// payloads to empty results instead of failing. Resolved streams are
// kept in the TTL cache because resolution is the expensive step and
// stream URLs stay valid for a while.
package upstream

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	gobreaker "github.com/sony/gobreaker/v2"

	"github.com/nobarfilm/nobarfilm/internal/cache"
	"github.com/nobarfilm/nobarfilm/internal/config"
	"github.com/nobarfilm/nobarfilm/internal/logging"
	"github.com/nobarfilm/nobarfilm/internal/metrics"
	"github.com/nobarfilm/nobarfilm/internal/models"
	"github.com/nobarfilm/nobarfilm/internal/normalize"
)

// Sentinel errors.
var (
	ErrUnknownSource  = errors.New("unknown content source")
	ErrStreamNotFound = errors.New("no stream available for this episode")
)

// maxResponseBytes bounds upstream response bodies; catalog pages and
// stream manifests are small.
const maxResponseBytes = 4 << 20

// sourceSpec describes one upstream: its endpoints and the
// normalizers projecting its responses into canonical records.
type sourceSpec struct {
	baseURL    string
	searchPath string // expects ?q= style query appended
	latestPath string
	streamPath string // formatted with bookID, episode
	catalog    func([]byte) models.CatalogPage
	stream     func([]byte, string, int) *models.StreamSource
}

// Client aggregates the upstream content sources behind one API.
type Client struct {
	httpClient *http.Client
	cfg        *config.UpstreamConfig
	cache      *cache.Cache
	streamTTL  time.Duration
	catalogTTL time.Duration
	sources    map[string]sourceSpec
	breakers   map[string]*gobreaker.CircuitBreaker[[]byte]
}

// New creates the upstream client. All five sources share the same
// timeout and breaker settings; only endpoints and normalizers differ.
func New(cfg *config.UpstreamConfig, cacheCfg *config.CacheConfig, c *cache.Cache) *Client {
	sources := map[string]sourceSpec{
		normalize.SourceDramaBox: {
			baseURL:    cfg.DramaBoxURL,
			searchPath: "/drama-box/search/suggest",
			latestPath: "/drama-box/he001/theater",
			streamPath: "/drama-box/chapterv2/batch/load?bookId=%s&index=%d",
			catalog:    normalize.DramaBox,
			stream:     normalize.DramaBoxStream,
		},
		normalize.SourceNetShort: {
			baseURL:    cfg.NetShortURL,
			searchPath: "/api/search/books",
			latestPath: "/api/theater/home",
			streamPath: "/api/video/play?book_id=%s&serial_number=%d",
			catalog:    normalize.NetShort,
			stream:     normalize.NetShortStream,
		},
		normalize.SourceMelolo: {
			baseURL:    cfg.MeloloURL,
			searchPath: "/api/video/search",
			latestPath: "/api/video/latest",
			streamPath: "/api/video/detail?videoId=%s&episode=%d",
			catalog:    normalize.Melolo,
			stream:     normalize.MeloloStream,
		},
		normalize.SourceAnime: {
			baseURL:    cfg.AnimeURL,
			searchPath: "/anime/search",
			latestPath: "/anime/ongoing",
			streamPath: "/anime/episode/%s-episode-%d",
			catalog:    normalize.Anime,
			stream:     normalize.AnimeStream,
		},
		normalize.SourceMovieBox: {
			baseURL:    cfg.MovieBoxURL,
			searchPath: "/wefeed-mobile-bff/subject-api/search",
			latestPath: "/wefeed-mobile-bff/subject-api/trending",
			streamPath: "/wefeed-mobile-bff/subject-api/play?subjectId=%s&se=1&ep=%d",
			catalog:    normalize.MovieBox,
			stream:     normalize.MovieBoxStream,
		},
	}

	breakers := make(map[string]*gobreaker.CircuitBreaker[[]byte], len(sources))
	for name := range sources {
		breakers[name] = newBreaker(name, cfg)
	}

	return &Client{
		httpClient: &http.Client{Timeout: cfg.Timeout},
		cfg:        cfg,
		cache:      c,
		streamTTL:  cacheCfg.StreamTTL,
		catalogTTL: cacheCfg.CatalogTTL,
		sources:    sources,
		breakers:   breakers,
	}
}

// newBreaker builds the per-source circuit breaker. It opens after
// BreakerMaxFail consecutive failures and probes again after the
// cooloff.
func newBreaker(name string, cfg *config.UpstreamConfig) *gobreaker.CircuitBreaker[[]byte] {
	metrics.UpstreamBreakerState.WithLabelValues(name).Set(0)

	return gobreaker.NewCircuitBreaker[[]byte](gobreaker.Settings{
		Name:        name,
		MaxRequests: 1,
		Timeout:     cfg.BreakerCooloff,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= cfg.BreakerMaxFail
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logging.Info().
				Str("source", name).
				Str("from", from.String()).
				Str("to", to.String()).
				Msg("Upstream breaker state change")
			metrics.UpstreamBreakerState.WithLabelValues(name).Set(stateToFloat(to))
		},
	})
}

func stateToFloat(s gobreaker.State) float64 {
	switch s {
	case gobreaker.StateClosed:
		return 0
	case gobreaker.StateHalfOpen:
		return 1
	default:
		return 2
	}
}

// KnownSource reports whether name identifies a configured source.
func (c *Client) KnownSource(name string) bool {
	_, ok := c.sources[name]
	return ok
}

// Search queries one source and returns a normalized catalog page.
// Pages are cached briefly since popular queries repeat.
func (c *Client) Search(ctx context.Context, source, query string) (models.CatalogPage, bool, error) {
	spec, ok := c.sources[source]
	if !ok {
		return models.CatalogPage{}, false, ErrUnknownSource
	}

	key := cache.GenerateKey("search", map[string]string{"source": source, "q": query})
	if cached, ok := c.cache.Get(key); ok {
		if page, ok := cached.(models.CatalogPage); ok {
			return page, true, nil
		}
	}

	endpoint := fmt.Sprintf("%s%s?keyword=%s", spec.baseURL, spec.searchPath, url.QueryEscape(query))
	body, err := c.fetch(ctx, source, endpoint)
	if err != nil {
		return models.CatalogPage{}, false, err
	}

	page := spec.catalog(body)
	c.cache.Set(key, page, c.catalogTTL)
	return page, false, nil
}

// Latest fetches one source's newest catalog page, normalized and
// briefly cached.
func (c *Client) Latest(ctx context.Context, source string) (models.CatalogPage, bool, error) {
	spec, ok := c.sources[source]
	if !ok {
		return models.CatalogPage{}, false, ErrUnknownSource
	}

	key := cache.GenerateKey("latest", map[string]string{"source": source})
	if cached, ok := c.cache.Get(key); ok {
		if page, ok := cached.(models.CatalogPage); ok {
			return page, true, nil
		}
	}

	body, err := c.fetch(ctx, source, spec.baseURL+spec.latestPath)
	if err != nil {
		return models.CatalogPage{}, false, err
	}

	page := spec.catalog(body)
	c.cache.Set(key, page, c.catalogTTL)
	return page, false, nil
}

// Stream resolves the playable stream for one episode. Resolution is
// the expensive upstream call, so results live in the TTL cache for
// the configured stream TTL.
func (c *Client) Stream(ctx context.Context, source, bookID string, episode int) (*models.StreamSource, bool, error) {
	spec, ok := c.sources[source]
	if !ok {
		return nil, false, ErrUnknownSource
	}

	key := cache.GenerateKey("stream", map[string]interface{}{
		"source": source, "book": bookID, "episode": episode,
	})
	if cached, ok := c.cache.Get(key); ok {
		if stream, ok := cached.(*models.StreamSource); ok {
			return stream, true, nil
		}
	}

	endpoint := spec.baseURL + fmt.Sprintf(spec.streamPath, url.PathEscape(bookID), episode)
	body, err := c.fetch(ctx, source, endpoint)
	if err != nil {
		return nil, false, err
	}

	stream := spec.stream(body, bookID, episode)
	if stream == nil {
		return nil, false, ErrStreamNotFound
	}

	c.cache.Set(key, stream, c.streamTTL)
	return stream, false, nil
}

// fetch performs one GET behind the source's circuit breaker.
func (c *Client) fetch(ctx context.Context, source, endpoint string) ([]byte, error) {
	start := time.Now()
	body, err := c.breakers[source].Execute(func() ([]byte, error) {
		return c.doGet(ctx, endpoint)
	})
	metrics.UpstreamRequestDuration.WithLabelValues(source).Observe(time.Since(start).Seconds())

	switch {
	case err == nil:
		metrics.UpstreamRequestsTotal.WithLabelValues(source, "success").Inc()
		return body, nil
	case errors.Is(err, gobreaker.ErrOpenState), errors.Is(err, gobreaker.ErrTooManyRequests):
		metrics.UpstreamRequestsTotal.WithLabelValues(source, "open_circuit").Inc()
		logging.Warn().Str("source", source).Msg("Upstream request rejected: circuit open")
		return nil, fmt.Errorf("source %s temporarily unavailable: %w", source, err)
	default:
		metrics.UpstreamRequestsTotal.WithLabelValues(source, "error").Inc()
		logging.Warn().Err(err).Str("source", source).Str("url", endpoint).Msg("Upstream request failed")
		return nil, err
	}
}

func (c *Client) doGet(ctx context.Context, endpoint string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", "nobarfilm/1.0")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status %d from upstream", resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}
	return body, nil
}
