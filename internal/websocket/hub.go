// NobarFilm - Streaming Aggregation and Watch-Party Server
// Copyright 2026 NobarFilm contributors
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package websocket fans room events out to watch-party participants.
//
// Each connected client is scoped to one room; the hub broadcasts a
// message only to the clients of that room. Presence truth lives in
// the database, not here: the hub is a delivery mechanism, and a
// dropped connection simply stops delivery until the client rejoins.
package websocket

import (
	"context"
	"sync"

	"github.com/nobarfilm/nobarfilm/internal/logging"
	"github.com/nobarfilm/nobarfilm/internal/metrics"
)

// Message types for watch-party communication.
const (
	MessageTypeRoomEvent = "room_event"
	MessageTypePing      = "ping"
	MessageTypePong      = "pong"
)

// Message represents a websocket message.
type Message struct {
	Type string      `json:"type"`
	Data interface{} `json:"data"`
}

// Hub maintains the set of active clients, indexed by room, and
// broadcasts messages to a room's clients.
type Hub struct {
	mu    sync.RWMutex
	rooms map[string]map[*Client]bool

	Register   chan *Client
	Unregister chan *Client
	broadcast  chan roomMessage

	// done is closed when the hub loop stops; pump goroutines select
	// on it so their register/unregister sends cannot block after
	// shutdown.
	done chan struct{}
}

type roomMessage struct {
	roomID string
	msg    Message
}

// NewHub creates a hub.
func NewHub() *Hub {
	return &Hub{
		rooms:      make(map[string]map[*Client]bool),
		Register:   make(chan *Client),
		Unregister: make(chan *Client),
		broadcast:  make(chan roomMessage, 256),
		done:       make(chan struct{}),
	}
}

// Serve runs the hub loop until the context is canceled. It
// implements suture.Service and runs in the messaging layer of the
// supervision tree.
func (h *Hub) Serve(ctx context.Context) error {
	logging.Info().Msg("WebSocket hub started")
	for {
		select {
		case <-ctx.Done():
			h.closeAll()
			return ctx.Err()

		case client := <-h.Register:
			h.mu.Lock()
			clients, ok := h.rooms[client.roomID]
			if !ok {
				clients = make(map[*Client]bool)
				h.rooms[client.roomID] = clients
			}
			clients[client] = true
			total := h.clientCount()
			h.mu.Unlock()

			metrics.WebSocketConnections.Set(float64(total))
			logging.Info().
				Str("room_id", client.roomID).
				Int("total_clients", total).
				Msg("WebSocket client connected")

		case client := <-h.Unregister:
			h.mu.Lock()
			if clients, ok := h.rooms[client.roomID]; ok {
				if _, registered := clients[client]; registered {
					delete(clients, client)
					close(client.send)
					if len(clients) == 0 {
						delete(h.rooms, client.roomID)
					}
				}
			}
			total := h.clientCount()
			h.mu.Unlock()

			metrics.WebSocketConnections.Set(float64(total))
			logging.Info().
				Str("room_id", client.roomID).
				Int("total_clients", total).
				Msg("WebSocket client disconnected")

		case rm := <-h.broadcast:
			h.mu.RLock()
			clients := h.rooms[rm.roomID]
			for client := range clients {
				select {
				case client.send <- rm.msg:
					metrics.WebSocketMessagesSent.Inc()
				default:
					// Slow client: drop the message rather than
					// blocking the hub loop.
					logging.Warn().
						Str("room_id", rm.roomID).
						Msg("WebSocket send buffer full, dropping message")
				}
			}
			h.mu.RUnlock()
		}
	}
}

// BroadcastToRoom queues a message for every client in the room.
func (h *Hub) BroadcastToRoom(roomID string, msg Message) {
	select {
	case h.broadcast <- roomMessage{roomID: roomID, msg: msg}:
	default:
		logging.Warn().
			Str("room_id", roomID).
			Msg("WebSocket broadcast queue full, dropping message")
	}
}

// RoomClientCount returns the number of clients connected for a room.
func (h *Hub) RoomClientCount(roomID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.rooms[roomID])
}

// String identifies the service in supervisor logs.
func (h *Hub) String() string {
	return "websocket-hub"
}

// clientCount must be called with the mutex held.
func (h *Hub) clientCount() int {
	total := 0
	for _, clients := range h.rooms {
		total += len(clients)
	}
	return total
}

func (h *Hub) closeAll() {
	close(h.done)
	h.mu.Lock()
	defer h.mu.Unlock()
	for roomID, clients := range h.rooms {
		for client := range clients {
			close(client.send)
		}
		delete(h.rooms, roomID)
	}
	metrics.WebSocketConnections.Set(0)
}
