// NobarFilm - Streaming Aggregation and Watch-Party Server
// Copyright 2026 NobarFilm contributors
// SPDX-License-Identifier: AGPL-3.0-or-later

package api

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/nobarfilm/nobarfilm/internal/auth"
	"github.com/nobarfilm/nobarfilm/internal/database"
	"github.com/nobarfilm/nobarfilm/internal/models"
	"github.com/nobarfilm/nobarfilm/internal/rooms"
)

// CreateRoom creates a watch-party room, or returns the caller's
// existing active room for the same subject with reused=true.
func (h *Handler) CreateRoom(w http.ResponseWriter, r *http.Request) {
	userID := auth.UserIDFromContext(r.Context())

	var req models.CreateRoomRequest
	if err := decodeJSONBody(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "VALIDATION_ERROR", "Invalid request body", err)
		return
	}
	if apiErr := validateRequest(&req); apiErr != nil {
		respondValidationError(w, apiErr)
		return
	}

	result, err := h.rooms.Create(r.Context(), userID, req)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "DATABASE_ERROR", "Failed to create room", err)
		return
	}

	status := http.StatusCreated
	if result.Reused {
		status = http.StatusOK
	}
	respondSuccess(w, status, result)
}

// JoinRoom joins a room by its 6-character code. Room business
// failures (not found, expired, closed) come back as 400s carrying the
// store's message unchanged.
func (h *Handler) JoinRoom(w http.ResponseWriter, r *http.Request) {
	userID := auth.UserIDFromContext(r.Context())

	var req models.JoinRoomRequest
	if err := decodeJSONBody(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "VALIDATION_ERROR", "Invalid request body", err)
		return
	}
	if apiErr := validateRequest(&req); apiErr != nil {
		respondValidationError(w, apiErr)
		return
	}

	result, err := h.rooms.Join(r.Context(), userID, req.RoomCode)
	if err != nil {
		switch {
		case errors.Is(err, rooms.ErrInvalidRoomCode):
			respondError(w, http.StatusBadRequest, "VALIDATION_ERROR", err.Error(), nil)
		case database.IsRoomError(err):
			respondError(w, http.StatusBadRequest, "ROOM_ERROR", err.Error(), nil)
		default:
			respondError(w, http.StatusInternalServerError, "DATABASE_ERROR", "Failed to join room", err)
		}
		return
	}

	respondSuccess(w, http.StatusOK, result)
}

// LeaveRoom marks the caller disconnected from the room. Leaving a
// room the caller never joined still succeeds.
func (h *Handler) LeaveRoom(w http.ResponseWriter, r *http.Request) {
	userID := auth.UserIDFromContext(r.Context())
	roomID := chi.URLParam(r, "id")
	if roomID == "" {
		respondError(w, http.StatusBadRequest, "VALIDATION_ERROR", "Room ID is required", nil)
		return
	}

	if err := h.rooms.Leave(r.Context(), roomID, userID); err != nil {
		respondError(w, http.StatusInternalServerError, "DATABASE_ERROR", "Failed to leave room", err)
		return
	}

	respondSuccess(w, http.StatusOK, map[string]interface{}{
		"room_id": roomID,
		"left":    true,
	})
}

// CloseRoom transitions the caller's room to its terminal closed
// state. The update is scoped to rooms the caller hosts, so the
// operation is a no-op for anyone else.
func (h *Handler) CloseRoom(w http.ResponseWriter, r *http.Request) {
	userID := auth.UserIDFromContext(r.Context())
	roomID := chi.URLParam(r, "id")
	if roomID == "" {
		respondError(w, http.StatusBadRequest, "VALIDATION_ERROR", "Room ID is required", nil)
		return
	}

	if err := h.rooms.Close(r.Context(), roomID, userID); err != nil {
		respondError(w, http.StatusInternalServerError, "DATABASE_ERROR", "Failed to close room", err)
		return
	}

	respondSuccess(w, http.StatusOK, map[string]interface{}{
		"room_id": roomID,
		"closed":  true,
	})
}

// RoomParticipants returns the currently-connected participants.
func (h *Handler) RoomParticipants(w http.ResponseWriter, r *http.Request) {
	roomID := chi.URLParam(r, "id")
	if roomID == "" {
		respondError(w, http.StatusBadRequest, "VALIDATION_ERROR", "Room ID is required", nil)
		return
	}

	participants, err := h.rooms.Participants(r.Context(), roomID)
	if err != nil {
		if database.IsRoomError(err) {
			respondError(w, http.StatusNotFound, "NOT_FOUND", err.Error(), nil)
			return
		}
		respondError(w, http.StatusInternalServerError, "DATABASE_ERROR", "Failed to load participants", err)
		return
	}

	respondSuccess(w, http.StatusOK, map[string]interface{}{
		"room_id":      roomID,
		"participants": participants,
		"count":        len(participants),
	})
}
