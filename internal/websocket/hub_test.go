// NobarFilm - Streaming Aggregation and Watch-Party Server
// Copyright 2026 NobarFilm contributors
// SPDX-License-Identifier: AGPL-3.0-or-later

package websocket

import (
	"context"
	"testing"
	"time"

	"github.com/nobarfilm/nobarfilm/internal/events"
)

func startHub(t *testing.T) (*Hub, context.CancelFunc) {
	t.Helper()
	hub := NewHub()
	ctx, cancel := context.WithCancel(context.Background())
	go func() { _ = hub.Serve(ctx) }()
	return hub, cancel
}

func newTestClient(hub *Hub, roomID, userID string) *Client {
	return &Client{
		hub:    hub,
		roomID: roomID,
		userID: userID,
		send:   make(chan Message, 8),
	}
}

func TestBroadcastScopedToRoom(t *testing.T) {
	hub, cancel := startHub(t)
	defer cancel()

	inRoom := newTestClient(hub, "room-1", "u1")
	otherRoom := newTestClient(hub, "room-2", "u2")
	hub.Register <- inRoom
	hub.Register <- otherRoom

	waitFor(t, func() bool { return hub.RoomClientCount("room-1") == 1 })

	hub.BroadcastToRoom("room-1", Message{Type: MessageTypeRoomEvent, Data: "hello"})

	select {
	case msg := <-inRoom.send:
		if msg.Type != MessageTypeRoomEvent {
			t.Errorf("expected room_event, got %q", msg.Type)
		}
	case <-time.After(time.Second):
		t.Fatal("client in room did not receive broadcast")
	}

	select {
	case msg := <-otherRoom.send:
		t.Errorf("client in other room received %+v", msg)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestUnregisterRemovesClient(t *testing.T) {
	hub, cancel := startHub(t)
	defer cancel()

	client := newTestClient(hub, "room-1", "u1")
	hub.Register <- client
	waitFor(t, func() bool { return hub.RoomClientCount("room-1") == 1 })

	hub.Unregister <- client
	waitFor(t, func() bool { return hub.RoomClientCount("room-1") == 0 })

	// Channel must be closed so the write pump exits.
	select {
	case _, ok := <-client.send:
		if ok {
			t.Error("expected send channel closed")
		}
	case <-time.After(time.Second):
		t.Fatal("send channel not closed after unregister")
	}
}

func TestRelayForwardsEvents(t *testing.T) {
	hub, cancel := startHub(t)
	defer cancel()

	bus := events.NewBus(nil)
	defer func() { _ = bus.Close() }()

	relay := NewRelay(bus, hub)
	relayCtx, relayCancel := context.WithCancel(context.Background())
	defer relayCancel()
	go func() { _ = relay.Serve(relayCtx) }()

	client := newTestClient(hub, "room-1", "u1")
	hub.Register <- client
	waitFor(t, func() bool { return hub.RoomClientCount("room-1") == 1 })

	// Give the relay subscription a moment to attach.
	time.Sleep(50 * time.Millisecond)

	err := bus.Publish(events.RoomEvent{
		Type:   events.TypeParticipantJoined,
		RoomID: "room-1",
		UserID: "u2",
	})
	if err != nil {
		t.Fatalf("publish failed: %v", err)
	}

	select {
	case msg := <-client.send:
		if msg.Type != MessageTypeRoomEvent {
			t.Errorf("expected room_event, got %q", msg.Type)
		}
		ev, ok := msg.Data.(events.RoomEvent)
		if !ok {
			t.Fatalf("expected RoomEvent payload, got %T", msg.Data)
		}
		if ev.UserID != "u2" {
			t.Errorf("expected event for u2, got %q", ev.UserID)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("relay did not forward event to room client")
	}
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("condition not reached in time")
}

func TestUnregisterAfterShutdownDoesNotBlock(t *testing.T) {
	hub, cancel := startHub(t)
	client := newTestClient(hub, "room-1", "u1")
	hub.Register <- client

	cancel()
	select {
	case <-hub.done:
	case <-time.After(2 * time.Second):
		t.Fatal("hub did not shut down")
	}

	finished := make(chan struct{})
	go func() {
		client.unregister()
		close(finished)
	}()

	select {
	case <-finished:
	case <-time.After(time.Second):
		t.Fatal("unregister blocked after hub shutdown")
	}
}
