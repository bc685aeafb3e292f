// NobarFilm - Streaming Aggregation and Watch-Party Server
// Copyright 2026 NobarFilm contributors
// SPDX-License-Identifier: AGPL-3.0-or-later

package api

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/nobarfilm/nobarfilm/internal/upstream"
)

// Sources lists the configured content sources.
func (h *Handler) Sources(w http.ResponseWriter, r *http.Request) {
	respondSuccess(w, http.StatusOK, map[string]interface{}{
		"sources": knownSources,
	})
}

// Search queries one content source. Malformed upstream payloads come
// back as empty pages, not errors; only transport failures surface.
func (h *Handler) Search(w http.ResponseWriter, r *http.Request) {
	source := chi.URLParam(r, "source")
	if !h.catalog.KnownSource(source) {
		respondError(w, http.StatusNotFound, "NOT_FOUND", "Unknown content source", nil)
		return
	}

	query := r.URL.Query().Get("q")
	if query == "" {
		respondError(w, http.StatusBadRequest, "VALIDATION_ERROR", "q is required", nil)
		return
	}

	page, cached, err := h.catalog.Search(r.Context(), source, query)
	if err != nil {
		respondError(w, http.StatusBadGateway, "UPSTREAM_ERROR", "Content source unavailable", err)
		return
	}

	respondCached(w, page, cached)
}

// Latest returns one source's newest catalog page.
func (h *Handler) Latest(w http.ResponseWriter, r *http.Request) {
	source := chi.URLParam(r, "source")
	if !h.catalog.KnownSource(source) {
		respondError(w, http.StatusNotFound, "NOT_FOUND", "Unknown content source", nil)
		return
	}

	page, cached, err := h.catalog.Latest(r.Context(), source)
	if err != nil {
		respondError(w, http.StatusBadGateway, "UPSTREAM_ERROR", "Content source unavailable", err)
		return
	}

	respondCached(w, page, cached)
}

// Stream resolves the playable stream URL for one episode.
func (h *Handler) Stream(w http.ResponseWriter, r *http.Request) {
	source := chi.URLParam(r, "source")
	if !h.catalog.KnownSource(source) {
		respondError(w, http.StatusNotFound, "NOT_FOUND", "Unknown content source", nil)
		return
	}

	bookID := r.URL.Query().Get("book_id")
	if bookID == "" {
		respondError(w, http.StatusBadRequest, "VALIDATION_ERROR", "book_id is required", nil)
		return
	}
	episode := getIntParam(r, "episode", 1)
	if episode <= 0 {
		episode = 1
	}

	stream, cached, err := h.catalog.Stream(r.Context(), source, bookID, episode)
	if err != nil {
		if errors.Is(err, upstream.ErrStreamNotFound) {
			respondError(w, http.StatusNotFound, "NOT_FOUND", "No stream available for this episode", nil)
			return
		}
		respondError(w, http.StatusBadGateway, "UPSTREAM_ERROR", "Content source unavailable", err)
		return
	}

	respondCached(w, stream, cached)
}
