// NobarFilm - Streaming Aggregation and Watch-Party Server
// Copyright 2026 NobarFilm contributors
// SPDX-License-Identifier: AGPL-3.0-or-later

package models

import (
	"time"
)

// RoomStatus describes the lifecycle state of a watch-party room.
// Transitions are one-way: ACTIVE -> EXPIRED or ACTIVE -> CLOSED,
// both terminal.
type RoomStatus string

const (
	RoomStatusActive  RoomStatus = "active"
	RoomStatusExpired RoomStatus = "expired"
	RoomStatusClosed  RoomStatus = "closed"
)

// RoomCodeLength is the exact length of a room code. Codes are
// compared case-insensitively and normalized to uppercase on input.
const RoomCodeLength = 6

// Room is a watch-party session identified by a 6-character code,
// owned by a host, tied to one piece of content.
//
// At most one active, unexpired room exists per (host, subject) pair.
// That invariant is enforced by a dedup read before create, not by a
// database constraint, so a narrow race window remains under
// concurrent creates.
type Room struct {
	ID             string     `json:"id"`
	Code           string     `json:"code"`
	HostID         string     `json:"host_id"`
	SubjectID      string     `json:"subject_id"`
	SubjectType    int        `json:"subject_type"`
	Title          string     `json:"title"`
	CoverURL       string     `json:"cover_url,omitempty"`
	CurrentEpisode int        `json:"current_episode"`
	IsActive       bool       `json:"is_active"`
	ExpiresAt      time.Time  `json:"expires_at"`
	CreatedAt      time.Time  `json:"created_at"`
}

// Status derives the lifecycle state from the stored row.
func (r *Room) Status(now time.Time) RoomStatus {
	if !r.IsActive {
		return RoomStatusClosed
	}
	if now.After(r.ExpiresAt) {
		return RoomStatusExpired
	}
	return RoomStatusActive
}

// Participant is a user's membership and connectivity state within a
// room, unique per (room, user). Rows are never hard-deleted; rejoin
// flips IsConnected back in place and refreshes LastSeenAt.
type Participant struct {
	RoomID      string    `json:"room_id"`
	UserID      string    `json:"user_id"`
	IsConnected bool      `json:"is_connected"`
	JoinedAt    time.Time `json:"joined_at"`
	LastSeenAt  time.Time `json:"last_seen_at"`
}

// CreateRoomRequest is the payload for POST /api/v1/rooms.
type CreateRoomRequest struct {
	SubjectID      string `json:"subject_id" validate:"required"`
	SubjectType    int    `json:"subject_type" validate:"gte=0"`
	Title          string `json:"title" validate:"required"`
	CoverURL       string `json:"cover_url,omitempty" validate:"omitempty,url"`
	CurrentEpisode int    `json:"current_episode,omitempty" validate:"gte=0"`
}

// CreateRoomResult reports the outcome of a create call. Reused is
// true when an equivalent active room already existed and was
// returned instead of creating a duplicate.
type CreateRoomResult struct {
	RoomID   string `json:"room_id"`
	RoomCode string `json:"room_code"`
	Reused   bool   `json:"reused"`
}

// JoinRoomRequest is the payload for POST /api/v1/rooms/join.
type JoinRoomRequest struct {
	RoomCode string `json:"room_code" validate:"required"`
}

// JoinRoomResult carries the joined room, the currently-connected
// participants, and the store's success message.
type JoinRoomResult struct {
	Room         *Room         `json:"room"`
	Participants []Participant `json:"participants"`
	Message      string        `json:"message"`
}
