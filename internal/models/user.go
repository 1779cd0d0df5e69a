package models

import (
	"time"

	"github.com/google/uuid"
)

// RankTier is the coarse skill bracket shown next to a player's nickname.
type RankTier string

const (
	RankTierJaeya   RankTier = "재야"
	RankTierJungwon RankTier = "중원"
	RankTierGosu    RankTier = "고수"
)

// DefaultRankTier and DefaultRankLevel are assigned to newly registered users.
const (
	DefaultRankTier  = RankTierJaeya
	DefaultRankLevel = 1
)

// User is a row in the users table.
type User struct {
	ID          uuid.UUID  `json:"id"`
	Username    string     `json:"username"`
	Password    string     `json:"-"`
	Nickname    string     `json:"nickname"`
	RankTier    RankTier   `json:"rankTier"`
	RankLevel   int        `json:"rankLevel"`
	Points      int        `json:"points"`
	LastLoginAt *time.Time `json:"lastLoginAt"`
	CreatedAt   time.Time  `json:"createdAt"`
}
