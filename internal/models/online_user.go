package models

import "github.com/google/uuid"

// OnlineUser is a presence record: a user who has sent a heartbeat within the presence TTL.
type OnlineUser struct {
	UserID    uuid.UUID `json:"userId"`
	Nickname  string    `json:"nickname"`
	RankTier  RankTier  `json:"rankTier"`
	RankLevel int       `json:"rankLevel"`
}
