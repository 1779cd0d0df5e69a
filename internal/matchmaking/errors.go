package matchmaking

import "errors"

var (
	// ErrRoomNotFound means the room id is unknown or its record has expired.
	ErrRoomNotFound = errors.New("room not found")

	// ErrRoomNotAvailable means the room is no longer waiting for a guest.
	ErrRoomNotAvailable = errors.New("room is not available")

	// ErrRoomSelfJoin means the host tried to join their own room.
	ErrRoomSelfJoin = errors.New("cannot join your own room")

	// ErrRoomConflict means the room kept changing under a leave request.
	ErrRoomConflict = errors.New("room was modified concurrently")

	// ErrInvalidBoardSize means the requested board size is not offered.
	ErrInvalidBoardSize = errors.New("invalid board size")
)
