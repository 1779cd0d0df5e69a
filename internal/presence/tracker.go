// Package presence tracks which users are online.
//
// A user is online while their presence key exists. Each heartbeat rewrites the key with a short TTL;
// nothing ever deletes it on disconnect, so a departed user disappears once the TTL runs out.
package presence

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jason-s-yu/baduk/internal/cache"
	"github.com/jason-s-yu/baduk/internal/models"
	"github.com/sirupsen/logrus"
)

// KeyPrefix namespaces presence records in the shared store.
const KeyPrefix = "online:"

// DefaultTTL is how long a heartbeat keeps a user online.
const DefaultTTL = 60 * time.Second

// BestEffort is the outcome of a presence write. Presence favours staleness over unavailability, so
// a failure is never propagated to the request that caused it; the only thing a caller can do with a
// BestEffort is Discard it.
type BestEffort struct {
	op  string
	err error
}

// Failed reports whether the write was lost.
func (b BestEffort) Failed() bool {
	return b.err != nil
}

// Discard logs a lost write and drops it.
func (b BestEffort) Discard(logger logrus.FieldLogger) {
	if b.err == nil || logger == nil {
		return
	}
	logger.WithError(b.err).WithField("op", b.op).Warn("presence write lost")
}

// record is the stored value; the user id lives in the key.
type record struct {
	Nickname  string          `json:"nickname"`
	RankTier  models.RankTier `json:"rankTier"`
	RankLevel int             `json:"rankLevel"`
}

// Tracker records heartbeats and lists online users.
type Tracker struct {
	store  cache.Store
	ttl    time.Duration
	logger logrus.FieldLogger
}

// NewTracker builds a Tracker. A ttl <= 0 falls back to DefaultTTL.
func NewTracker(store cache.Store, ttl time.Duration, logger logrus.FieldLogger) *Tracker {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Tracker{store: store, ttl: ttl, logger: logger}
}

func key(userID uuid.UUID) string {
	return KeyPrefix + userID.String()
}

// Heartbeat marks userID online for the tracker's TTL, overwriting the previous snapshot.
func (t *Tracker) Heartbeat(ctx context.Context, userID uuid.UUID, nickname string, tier models.RankTier, level int) BestEffort {
	data, err := json.Marshal(record{Nickname: nickname, RankTier: tier, RankLevel: level})
	if err != nil {
		return BestEffort{op: "heartbeat", err: err}
	}
	return BestEffort{op: "heartbeat", err: t.store.Set(ctx, key(userID), string(data), t.ttl)}
}

// ListOnline returns every user whose presence key resolved. Keys that expire between enumeration and
// fetch, and values that fail to decode, are skipped. A store failure yields an empty list.
func (t *Tracker) ListOnline(ctx context.Context) []models.OnlineUser {
	users, err := t.listOnline(ctx)
	if err != nil {
		BestEffort{op: "list", err: err}.Discard(t.logger)
		return []models.OnlineUser{}
	}
	return users
}

func (t *Tracker) listOnline(ctx context.Context) ([]models.OnlineUser, error) {
	keys, err := t.store.Keys(ctx, KeyPrefix)
	if err != nil {
		return nil, err
	}
	users := make([]models.OnlineUser, 0, len(keys))
	if len(keys) == 0 {
		return users, nil
	}

	values, err := t.store.MultiGet(ctx, keys)
	if err != nil {
		return nil, err
	}

	for i, k := range keys {
		if values[i] == nil {
			continue
		}
		userID, err := uuid.Parse(strings.TrimPrefix(k, KeyPrefix))
		if err != nil {
			continue
		}
		var rec record
		if err := json.Unmarshal([]byte(*values[i]), &rec); err != nil {
			continue
		}
		users = append(users, models.OnlineUser{
			UserID:    userID,
			Nickname:  rec.Nickname,
			RankTier:  rec.RankTier,
			RankLevel: rec.RankLevel,
		})
	}
	return users, nil
}

// Remove deletes userID's presence record immediately.
func (t *Tracker) Remove(ctx context.Context, userID uuid.UUID) BestEffort {
	return BestEffort{op: "remove", err: t.store.Delete(ctx, key(userID))}
}
