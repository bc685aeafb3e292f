// NobarFilm - Streaming Aggregation and Watch-Party Server
// Copyright 2026 NobarFilm contributors
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package events carries room lifecycle events from the room manager
// to the websocket layer over a Watermill in-process pub/sub.
//
// The bus is a GoChannel, not a broker: the server is single-process
// and the only subscriber is the websocket relay fanning events out to
// connected watch-party participants. Events are best-effort; a lost
// event means a client misses one presence update, nothing more.
package events

import (
	"fmt"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/goccy/go-json"
	"github.com/google/uuid"
)

// TopicRooms is the topic all room events are published on.
const TopicRooms = "rooms.events"

// Event types.
const (
	TypeRoomCreated       = "room.created"
	TypeRoomClosed        = "room.closed"
	TypeParticipantJoined = "participant.joined"
	TypeParticipantLeft   = "participant.left"
)

// RoomEvent is the payload published for every room lifecycle change.
type RoomEvent struct {
	Type      string    `json:"type"`
	RoomID    string    `json:"room_id"`
	RoomCode  string    `json:"room_code,omitempty"`
	UserID    string    `json:"user_id,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// Bus is the in-process pub/sub for room events.
type Bus struct {
	channel *gochannel.GoChannel
}

// NewBus creates the event bus. The buffer keeps slow websocket
// relays from blocking the request path.
func NewBus(logger watermill.LoggerAdapter) *Bus {
	if logger == nil {
		logger = watermill.NopLogger{}
	}
	return &Bus{
		channel: gochannel.NewGoChannel(gochannel.Config{
			OutputChannelBuffer: 256,
		}, logger),
	}
}

// Publish emits a room event. The timestamp is filled in if unset.
func (b *Bus) Publish(ev RoomEvent) error {
	if ev.Timestamp.IsZero() {
		ev.Timestamp = time.Now().UTC()
	}
	payload, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("failed to marshal room event: %w", err)
	}

	msg := message.NewMessage(uuid.NewString(), payload)
	msg.Metadata.Set("type", ev.Type)
	if err := b.channel.Publish(TopicRooms, msg); err != nil {
		return fmt.Errorf("failed to publish room event: %w", err)
	}
	return nil
}

// Subscriber exposes the underlying subscriber for the relay.
func (b *Bus) Subscriber() message.Subscriber {
	return b.channel
}

// Close shuts down the bus, terminating all subscriptions.
func (b *Bus) Close() error {
	return b.channel.Close()
}

// Decode unmarshals a room event from a Watermill message.
func Decode(msg *message.Message) (RoomEvent, error) {
	var ev RoomEvent
	if err := json.Unmarshal(msg.Payload, &ev); err != nil {
		return RoomEvent{}, fmt.Errorf("failed to decode room event: %w", err)
	}
	return ev, nil
}
