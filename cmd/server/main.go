// NobarFilm - Streaming Aggregation and Watch-Party Server
// Copyright 2026 NobarFilm contributors
// SPDX-License-Identifier: AGPL-3.0-or-later

// Command server runs the NobarFilm API: catalog aggregation over the
// upstream drama/anime/movie sources, watch-party rooms with realtime
// fan-out, and per-user watch history on embedded DuckDB.
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/nobarfilm/nobarfilm/internal/api"
	"github.com/nobarfilm/nobarfilm/internal/cache"
	"github.com/nobarfilm/nobarfilm/internal/config"
	"github.com/nobarfilm/nobarfilm/internal/database"
	"github.com/nobarfilm/nobarfilm/internal/events"
	"github.com/nobarfilm/nobarfilm/internal/history"
	"github.com/nobarfilm/nobarfilm/internal/logging"
	"github.com/nobarfilm/nobarfilm/internal/metrics"
	"github.com/nobarfilm/nobarfilm/internal/rooms"
	"github.com/nobarfilm/nobarfilm/internal/supervisor"
	"github.com/nobarfilm/nobarfilm/internal/supervisor/services"
	"github.com/nobarfilm/nobarfilm/internal/upstream"
	"github.com/nobarfilm/nobarfilm/internal/websocket"
)

const version = "1.0.0"

func main() {
	cfg, err := config.Load()
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to load configuration")
	}

	logging.Init(logging.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		Caller: cfg.Logging.Caller,
	})

	logging.Info().
		Str("version", version).
		Str("environment", cfg.Server.Environment).
		Msg("Starting NobarFilm server")

	if cfg.Security.AuthMode == "none" {
		logging.Warn().Msg("AUTH_MODE=none: all requests run as dev-user, do not expose this instance")
	}
	if cfg.Security.RateLimitDisabled {
		logging.Warn().Msg("Rate limiting disabled")
	}

	db, err := database.New(&cfg.Database)
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to open database")
	}
	defer func() {
		if err := db.Close(); err != nil {
			logging.Error().Err(err).Msg("Error closing database")
		}
	}()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Supervision tree: data (cache sweeper), messaging (ws hub and
	// event relay), api (http server). sutureslog wants slog, so the
	// zerolog bridge feeds supervisor events into the same stream.
	tree := supervisor.NewTree(logging.NewSlogLogger(), supervisor.DefaultTreeConfig())

	catalogCache := cache.New(metrics.CacheRecorder{})
	defer catalogCache.Destroy()
	tree.AddDataService(cache.NewSweeper(catalogCache, cfg.Cache.SweepInterval))

	bus := events.NewBus(events.NewLoggerAdapter())
	defer func() {
		if err := bus.Close(); err != nil {
			logging.Error().Err(err).Msg("Error closing event bus")
		}
	}()

	hub := websocket.NewHub()
	tree.AddMessagingService(hub)
	tree.AddMessagingService(websocket.NewRelay(bus, hub))

	catalog := upstream.New(&cfg.Upstream, &cfg.Cache, catalogCache)
	roomManager := rooms.New(db, bus, cfg.Rooms.TTL, cfg.Rooms.CodeMaxAttempts)
	recorder := history.New(db)

	handler := api.NewHandler(cfg, db, roomManager, recorder, catalog, hub)
	router := api.NewRouter(handler, cfg)

	server := &http.Server{
		Addr:         cfg.Addr(),
		Handler:      router.SetupChi(),
		ReadTimeout:  cfg.Server.Timeout,
		WriteTimeout: cfg.Server.Timeout,
		IdleTimeout:  60 * time.Second,
	}
	tree.AddAPIService(services.NewHTTPServerService(server, 10*time.Second))
	logging.Info().Str("addr", server.Addr).Msg("HTTP server service added")

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		logging.Info().Str("signal", sig.String()).Msg("Received shutdown signal")
		cancel()
	}()

	logging.Info().Msg("Starting supervisor tree")
	errCh := tree.ServeBackground(ctx)

	select {
	case <-ctx.Done():
		logging.Info().Msg("Context canceled, waiting for supervisor to finish")
	case err := <-errCh:
		if err != nil && !errors.Is(err, context.Canceled) {
			logging.Error().Err(err).Msg("Supervisor tree error")
		}
	}

	for err := range errCh {
		if err != nil && !errors.Is(err, context.Canceled) {
			logging.Error().Err(err).Msg("Supervisor shutdown error")
		}
	}

	unstopped, _ := tree.UnstoppedServiceReport()
	for _, svc := range unstopped {
		logging.Warn().Str("service", svc.Name).Msg("Service failed to stop within timeout")
	}

	logging.Info().Msg("Server stopped gracefully")
}
