// NobarFilm - Streaming Aggregation and Watch-Party Server
// Copyright 2026 NobarFilm contributors
// SPDX-License-Identifier: AGPL-3.0-or-later

package events

import (
	"context"
	"testing"
	"time"
)

func TestPublishSubscribe(t *testing.T) {
	bus := NewBus(nil)
	defer func() {
		if err := bus.Close(); err != nil {
			t.Errorf("failed to close bus: %v", err)
		}
	}()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	messages, err := bus.Subscriber().Subscribe(ctx, TopicRooms)
	if err != nil {
		t.Fatalf("subscribe failed: %v", err)
	}

	want := RoomEvent{
		Type:     TypeParticipantJoined,
		RoomID:   "room-1",
		RoomCode: "ABC123",
		UserID:   "user-1",
	}
	if err := bus.Publish(want); err != nil {
		t.Fatalf("publish failed: %v", err)
	}

	select {
	case msg := <-messages:
		got, err := Decode(msg)
		if err != nil {
			t.Fatalf("decode failed: %v", err)
		}
		msg.Ack()
		if got.Type != want.Type || got.RoomID != want.RoomID || got.UserID != want.UserID {
			t.Errorf("expected %+v, got %+v", want, got)
		}
		if got.Timestamp.IsZero() {
			t.Error("expected publish to fill in timestamp")
		}
		if msg.Metadata.Get("type") != TypeParticipantJoined {
			t.Errorf("expected type metadata, got %q", msg.Metadata.Get("type"))
		}
	case <-ctx.Done():
		t.Fatal("timed out waiting for event")
	}
}

func TestDecodeMalformed(t *testing.T) {
	bus := NewBus(nil)
	defer func() { _ = bus.Close() }()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	messages, err := bus.Subscriber().Subscribe(ctx, TopicRooms)
	if err != nil {
		t.Fatalf("subscribe failed: %v", err)
	}

	if err := bus.Publish(RoomEvent{Type: TypeRoomCreated, RoomID: "r1"}); err != nil {
		t.Fatalf("publish failed: %v", err)
	}

	msg := <-messages
	msg.Payload = []byte("not json")
	if _, err := Decode(msg); err == nil {
		t.Error("expected decode error for malformed payload")
	}
	msg.Ack()
}
