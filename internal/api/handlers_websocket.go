// NobarFilm - Streaming Aggregation and Watch-Party Server
// Copyright 2026 NobarFilm contributors
// SPDX-License-Identifier: AGPL-3.0-or-later

package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/nobarfilm/nobarfilm/internal/auth"
	"github.com/nobarfilm/nobarfilm/internal/websocket"
)

// RoomWebSocket upgrades the connection and attaches the caller to the
// room's live event feed. Presence still flows through the join and
// leave endpoints; the socket only carries notifications.
func (h *Handler) RoomWebSocket(w http.ResponseWriter, r *http.Request) {
	userID := auth.UserIDFromContext(r.Context())
	roomID := chi.URLParam(r, "id")
	if roomID == "" {
		respondError(w, http.StatusBadRequest, "VALIDATION_ERROR", "Room ID is required", nil)
		return
	}

	websocket.ServeWS(h.hub, w, r, roomID, userID)
}
