// NobarFilm - Streaming Aggregation and Watch-Party Server
// Copyright 2026 NobarFilm contributors
// SPDX-License-Identifier: AGPL-3.0-or-later

package websocket

import (
	"context"

	"github.com/nobarfilm/nobarfilm/internal/events"
	"github.com/nobarfilm/nobarfilm/internal/logging"
)

// Relay subscribes to the room event bus and forwards each event to
// the hub for the room it concerns. It implements suture.Service and
// runs next to the hub in the messaging layer.
type Relay struct {
	bus *events.Bus
	hub *Hub
}

// NewRelay creates a relay between the event bus and the hub.
func NewRelay(bus *events.Bus, hub *Hub) *Relay {
	return &Relay{bus: bus, hub: hub}
}

// Serve consumes room events until the context is canceled.
func (r *Relay) Serve(ctx context.Context) error {
	messages, err := r.bus.Subscriber().Subscribe(ctx, events.TopicRooms)
	if err != nil {
		return err
	}
	logging.Info().Msg("Room event relay started")

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case msg, ok := <-messages:
			if !ok {
				// Bus closed; supervisor decides whether to restart.
				return nil
			}
			ev, err := events.Decode(msg)
			if err != nil {
				logging.Warn().Err(err).Msg("Dropping undecodable room event")
				msg.Ack()
				continue
			}
			r.hub.BroadcastToRoom(ev.RoomID, Message{
				Type: MessageTypeRoomEvent,
				Data: ev,
			})
			msg.Ack()
		}
	}
}

// String identifies the service in supervisor logs.
func (r *Relay) String() string {
	return "room-event-relay"
}
