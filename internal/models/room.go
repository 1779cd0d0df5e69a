// internal/models/room.go
package models

import (
	"time"

	"github.com/google/uuid"
)

// RoomStatus is the lifecycle state of a GameRoom.
type RoomStatus string

const (
	RoomStatusWaiting RoomStatus = "waiting"
	RoomStatusFull    RoomStatus = "full"

	// RoomStatusPlaying and RoomStatusFinished are reserved for the game engine; the lobby never sets them.
	RoomStatusPlaying  RoomStatus = "playing"
	RoomStatusFinished RoomStatus = "finished"
)

// GameRoom is a match in formation: a host waiting for, or paired with, a guest on a fixed board size.
//
// The host fields are a snapshot of the creator taken at creation time. GuestID and GuestNickname are
// set and cleared together, and are non-nil exactly when Status is RoomStatusFull.
type GameRoom struct {
	RoomID        uuid.UUID  `json:"roomId"`
	HostID        uuid.UUID  `json:"hostId"`
	HostNickname  string     `json:"hostNickname"`
	HostRankTier  RankTier   `json:"hostRankTier"`
	HostRankLevel int        `json:"hostRankLevel"`
	GuestID       *uuid.UUID `json:"guestId"`
	GuestNickname *string    `json:"guestNickname"`
	BoardSize     BoardSize  `json:"boardSize"`
	Status        RoomStatus `json:"status"`
	CreatedAt     time.Time  `json:"createdAt"`
}

// SetGuest seats a guest and marks the room full.
func (r *GameRoom) SetGuest(userID uuid.UUID, nickname string) {
	id := userID
	nick := nickname
	r.GuestID = &id
	r.GuestNickname = &nick
	r.Status = RoomStatusFull
}

// ClearGuest removes the guest and reopens the room.
func (r *GameRoom) ClearGuest() {
	r.GuestID = nil
	r.GuestNickname = nil
	r.Status = RoomStatusWaiting
}

// IsHost reports whether userID created the room.
func (r *GameRoom) IsHost(userID uuid.UUID) bool {
	return r.HostID == userID
}

// IsGuest reports whether userID is the seated guest.
func (r *GameRoom) IsGuest(userID uuid.UUID) bool {
	return r.GuestID != nil && *r.GuestID == userID
}
