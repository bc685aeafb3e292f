// NobarFilm - Streaming Aggregation and Watch-Party Server
// Copyright 2026 NobarFilm contributors
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package api provides the HTTP surface: Chi routing, middleware
// assembly, and the handlers for rooms, history, catalog, streams,
// websocket, and health.
package api

import (
	"context"
	"time"

	"github.com/nobarfilm/nobarfilm/internal/config"
	"github.com/nobarfilm/nobarfilm/internal/history"
	"github.com/nobarfilm/nobarfilm/internal/models"
	"github.com/nobarfilm/nobarfilm/internal/normalize"
	"github.com/nobarfilm/nobarfilm/internal/rooms"
	"github.com/nobarfilm/nobarfilm/internal/websocket"
)

// Pinger is the storage liveness check used by health endpoints.
type Pinger interface {
	Ping(ctx context.Context) error
}

// CatalogClient is the upstream aggregation surface the handlers call.
// Satisfied by *upstream.Client.
type CatalogClient interface {
	KnownSource(name string) bool
	Search(ctx context.Context, source, query string) (models.CatalogPage, bool, error)
	Latest(ctx context.Context, source string) (models.CatalogPage, bool, error)
	Stream(ctx context.Context, source, bookID string, episode int) (*models.StreamSource, bool, error)
}

// Handler holds the dependencies shared by all HTTP handlers.
type Handler struct {
	cfg       *config.Config
	db        Pinger
	rooms     *rooms.Manager
	history   *history.Recorder
	catalog   CatalogClient
	hub       *websocket.Hub
	startTime time.Time
}

// NewHandler creates the handler set.
func NewHandler(
	cfg *config.Config,
	db Pinger,
	roomMgr *rooms.Manager,
	recorder *history.Recorder,
	catalog CatalogClient,
	hub *websocket.Hub,
) *Handler {
	return &Handler{
		cfg:       cfg,
		db:        db,
		rooms:     roomMgr,
		history:   recorder,
		catalog:   catalog,
		hub:       hub,
		startTime: time.Now(),
	}
}

// Sources lists the configured content sources, used by clients to
// build their source picker.
var knownSources = []string{
	normalize.SourceDramaBox,
	normalize.SourceNetShort,
	normalize.SourceMelolo,
	normalize.SourceAnime,
	normalize.SourceMovieBox,
}
