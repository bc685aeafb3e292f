// NobarFilm - Streaming Aggregation and Watch-Party Server
// Copyright 2026 NobarFilm contributors
// SPDX-License-Identifier: AGPL-3.0-or-later

package database

import (
	"errors"
)

// RoomError is a business rule violation reported by a room
// transaction. Its message is user-facing and flows to the client
// verbatim as a 400; it carries no storage internals.
type RoomError struct {
	msg string
}

func (e *RoomError) Error() string {
	return e.msg
}

// Room business errors. The exact messages are part of the API
// contract: clients display them as-is.
var (
	ErrRoomNotFound = &RoomError{msg: "Room not found"}
	ErrRoomExpired  = &RoomError{msg: "Room expired"}
	ErrRoomClosed   = &RoomError{msg: "Room is closed"}

	// ErrCodeExhausted signals that unique code generation ran out of
	// attempts. Unlike the errors above it is not user-facing; callers
	// surface it as a generic server error.
	ErrCodeExhausted = errors.New("room code generation exhausted attempts")
)

// IsRoomError reports whether err is a business rule violation whose
// message may be shown to the client.
func IsRoomError(err error) bool {
	var re *RoomError
	return errors.As(err, &re)
}
