// NobarFilm - Streaming Aggregation and Watch-Party Server
// Copyright 2026 NobarFilm contributors
// SPDX-License-Identifier: AGPL-3.0-or-later

package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/nobarfilm/nobarfilm/internal/auth"
	"github.com/nobarfilm/nobarfilm/internal/models"
)

// SaveProgress upserts the caller's watch position for one episode.
func (h *Handler) SaveProgress(w http.ResponseWriter, r *http.Request) {
	userID := auth.UserIDFromContext(r.Context())

	var req models.SaveProgressRequest
	if err := decodeJSONBody(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "VALIDATION_ERROR", "Invalid request body", err)
		return
	}
	if apiErr := validateRequest(&req); apiErr != nil {
		respondValidationError(w, apiErr)
		return
	}

	rec, err := h.history.Save(r.Context(), userID, req)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "DATABASE_ERROR", "Failed to save progress", err)
		return
	}

	respondSuccess(w, http.StatusOK, rec)
}

// GetProgress returns the caller's position for one episode; never
// watched yields the zero projection, not 404.
func (h *Handler) GetProgress(w http.ResponseWriter, r *http.Request) {
	userID := auth.UserIDFromContext(r.Context())

	subjectID := r.URL.Query().Get("subject_id")
	if subjectID == "" {
		respondError(w, http.StatusBadRequest, "VALIDATION_ERROR", "subject_id is required", nil)
		return
	}
	episode := getIntParam(r, "episode", 0)

	progress, err := h.history.GetProgress(r.Context(), userID, subjectID, episode)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "DATABASE_ERROR", "Failed to load progress", err)
		return
	}

	respondSuccess(w, http.StatusOK, progress)
}

// ListHistory returns the caller's watch history, newest first.
func (h *Handler) ListHistory(w http.ResponseWriter, r *http.Request) {
	userID := auth.UserIDFromContext(r.Context())
	limit := getIntParam(r, "limit", 50)

	records, err := h.history.List(r.Context(), userID, limit)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "DATABASE_ERROR", "Failed to list history", err)
		return
	}

	respondSuccess(w, http.StatusOK, map[string]interface{}{
		"items": records,
		"count": len(records),
	})
}

// DeleteHistory removes one history entry owned by the caller.
func (h *Handler) DeleteHistory(w http.ResponseWriter, r *http.Request) {
	userID := auth.UserIDFromContext(r.Context())
	id := chi.URLParam(r, "id")
	if id == "" {
		respondError(w, http.StatusBadRequest, "VALIDATION_ERROR", "History ID is required", nil)
		return
	}

	deleted, err := h.history.Delete(r.Context(), id, userID)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "DATABASE_ERROR", "Failed to delete history entry", err)
		return
	}
	if !deleted {
		respondError(w, http.StatusNotFound, "NOT_FOUND", "History entry not found", nil)
		return
	}

	respondSuccess(w, http.StatusOK, map[string]interface{}{
		"id":      id,
		"deleted": true,
	})
}
