// NobarFilm - Streaming Aggregation and Watch-Party Server
// Copyright 2026 NobarFilm contributors
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package rooms orchestrates the watch-party room lifecycle: create
// with per-(host, subject) dedup, join with code validation and
// verbatim business-error passthrough, and idempotent leave.
//
// All multi-step consistency lives in the store's transactions; this
// package sequences the calls, publishes events for the websocket
// layer, and never retries.
package rooms

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/nobarfilm/nobarfilm/internal/database"
	"github.com/nobarfilm/nobarfilm/internal/events"
	"github.com/nobarfilm/nobarfilm/internal/logging"
	"github.com/nobarfilm/nobarfilm/internal/metrics"
	"github.com/nobarfilm/nobarfilm/internal/models"
)

// ErrInvalidRoomCode rejects malformed codes before any store call.
// The message is user-facing.
var ErrInvalidRoomCode = errors.New("Room code must be exactly 6 characters")

// JoinMessage is the success message returned alongside a join.
const JoinMessage = "Joined room successfully"

// Store is the transactional capability the manager drives. Satisfied
// by *database.DB; narrowed to an interface so tests can observe
// which calls are made.
type Store interface {
	FindActiveRoom(ctx context.Context, hostID, subjectID string) (*models.Room, error)
	DeleteExpiredRooms(ctx context.Context, hostID, subjectID string) error
	CreateRoom(ctx context.Context, p database.CreateRoomParams) (*models.Room, error)
	JoinRoom(ctx context.Context, code, userID string) (*models.Room, error)
	LeaveRoom(ctx context.Context, roomID, userID string) error
	CloseRoom(ctx context.Context, roomID, hostID string) error
	GetRoom(ctx context.Context, roomID string) (*models.Room, error)
	ConnectedParticipants(ctx context.Context, roomID string) ([]models.Participant, error)
}

// Manager coordinates room operations against the store and the
// event bus.
type Manager struct {
	store       Store
	bus         *events.Bus
	ttl         time.Duration
	maxAttempts int
}

// New creates a room manager. bus may be nil in tests; events are
// then skipped.
func New(store Store, bus *events.Bus, ttl time.Duration, maxAttempts int) *Manager {
	return &Manager{
		store:       store,
		bus:         bus,
		ttl:         ttl,
		maxAttempts: maxAttempts,
	}
}

// Create returns the host's active room for the subject, creating it
// if none exists. Repeated creates before expiry return the first
// room with Reused set rather than a duplicate.
//
// The dedup read and the insert are separate store calls; two
// concurrent creates for the same pair can both pass the read. The
// window is accepted and the store's code uniqueness is the backstop.
func (m *Manager) Create(ctx context.Context, hostID string, req models.CreateRoomRequest) (*models.CreateRoomResult, error) {
	existing, err := m.store.FindActiveRoom(ctx, hostID, req.SubjectID)
	if err != nil {
		return nil, fmt.Errorf("dedup lookup failed: %w", err)
	}
	if existing != nil {
		metrics.RoomsReusedTotal.Inc()
		logging.Ctx(ctx).Debug().
			Str("room_id", existing.ID).
			Str("host_id", hostID).
			Msg("Create answered with existing active room")
		return &models.CreateRoomResult{
			RoomID:   existing.ID,
			RoomCode: existing.Code,
			Reused:   true,
		}, nil
	}

	// Housekeeping, not correctness: clear the host's stale rows for
	// this subject. A failure is logged and creation proceeds.
	if err := m.store.DeleteExpiredRooms(ctx, hostID, req.SubjectID); err != nil {
		logging.Ctx(ctx).Warn().Err(err).
			Str("host_id", hostID).
			Str("subject_id", req.SubjectID).
			Msg("Expired-room housekeeping failed")
	}

	episode := req.CurrentEpisode
	if episode <= 0 {
		episode = 1
	}

	room, err := m.store.CreateRoom(ctx, database.CreateRoomParams{
		HostID:         hostID,
		SubjectID:      req.SubjectID,
		SubjectType:    req.SubjectType,
		Title:          req.Title,
		CoverURL:       req.CoverURL,
		CurrentEpisode: episode,
		TTL:            m.ttl,
		MaxAttempts:    m.maxAttempts,
	})
	if err != nil {
		return nil, fmt.Errorf("room creation failed: %w", err)
	}

	metrics.RoomsCreatedTotal.Inc()
	logging.Ctx(ctx).Info().
		Str("room_id", room.ID).
		Str("room_code", room.Code).
		Str("host_id", hostID).
		Msg("Room created")

	m.publish(events.RoomEvent{
		Type:     events.TypeRoomCreated,
		RoomID:   room.ID,
		RoomCode: room.Code,
		UserID:   hostID,
	})

	return &models.CreateRoomResult{
		RoomID:   room.ID,
		RoomCode: room.Code,
		Reused:   false,
	}, nil
}

// Join validates and normalizes the code, then performs the atomic
// join. Store business errors (not found, expired, closed) surface
// unchanged; their messages are the client's messages.
func (m *Manager) Join(ctx context.Context, userID, code string) (*models.JoinRoomResult, error) {
	code = strings.ToUpper(strings.TrimSpace(code))
	if len(code) != models.RoomCodeLength {
		return nil, ErrInvalidRoomCode
	}

	room, err := m.store.JoinRoom(ctx, code, userID)
	if err != nil {
		if database.IsRoomError(err) {
			metrics.RoomJoinsTotal.WithLabelValues("rejected").Inc()
			logging.Ctx(ctx).Debug().
				Str("room_code", code).
				Str("user_id", userID).
				Str("reason", err.Error()).
				Msg("Join rejected")
			return nil, err
		}
		metrics.RoomJoinsTotal.WithLabelValues("error").Inc()
		return nil, fmt.Errorf("join failed: %w", err)
	}

	participants, err := m.store.ConnectedParticipants(ctx, room.ID)
	if err != nil {
		return nil, fmt.Errorf("participant lookup failed: %w", err)
	}

	metrics.RoomJoinsTotal.WithLabelValues("joined").Inc()
	logging.Ctx(ctx).Info().
		Str("room_id", room.ID).
		Str("user_id", userID).
		Int("participants", len(participants)).
		Msg("Participant joined room")

	m.publish(events.RoomEvent{
		Type:     events.TypeParticipantJoined,
		RoomID:   room.ID,
		RoomCode: room.Code,
		UserID:   userID,
	})

	return &models.JoinRoomResult{
		Room:         room,
		Participants: participants,
		Message:      JoinMessage,
	}, nil
}

// Leave marks the caller disconnected. Leaving a room never joined is
// a no-op; only a store failure is an error.
func (m *Manager) Leave(ctx context.Context, roomID, userID string) error {
	if err := m.store.LeaveRoom(ctx, roomID, userID); err != nil {
		return fmt.Errorf("leave failed: %w", err)
	}

	metrics.RoomLeavesTotal.Inc()
	logging.Ctx(ctx).Info().
		Str("room_id", roomID).
		Str("user_id", userID).
		Msg("Participant left room")

	m.publish(events.RoomEvent{
		Type:   events.TypeParticipantLeft,
		RoomID: roomID,
		UserID: userID,
	})
	return nil
}

// Close transitions the caller's room to CLOSED. The store scopes the
// update to rooms the caller hosts, so closing someone else's room or
// an already-closed room is a no-op.
func (m *Manager) Close(ctx context.Context, roomID, hostID string) error {
	if err := m.store.CloseRoom(ctx, roomID, hostID); err != nil {
		return fmt.Errorf("close failed: %w", err)
	}

	metrics.RoomsClosedTotal.Inc()
	logging.Ctx(ctx).Info().
		Str("room_id", roomID).
		Str("host_id", hostID).
		Msg("Room closed")

	m.publish(events.RoomEvent{
		Type:   events.TypeRoomClosed,
		RoomID: roomID,
		UserID: hostID,
	})
	return nil
}

// Participants is the presence projection: currently-connected
// participants for a room. Unknown room ids surface as
// database.ErrRoomNotFound.
func (m *Manager) Participants(ctx context.Context, roomID string) ([]models.Participant, error) {
	room, err := m.store.GetRoom(ctx, roomID)
	if err != nil {
		return nil, fmt.Errorf("room lookup failed: %w", err)
	}
	if room == nil {
		return nil, database.ErrRoomNotFound
	}

	participants, err := m.store.ConnectedParticipants(ctx, roomID)
	if err != nil {
		return nil, fmt.Errorf("participant lookup failed: %w", err)
	}
	return participants, nil
}

func (m *Manager) publish(ev events.RoomEvent) {
	if m.bus == nil {
		return
	}
	if err := m.bus.Publish(ev); err != nil {
		// Presence updates are best-effort; the store already holds
		// the truth.
		logging.Warn().Err(err).Str("type", ev.Type).Msg("Failed to publish room event")
	}
}
