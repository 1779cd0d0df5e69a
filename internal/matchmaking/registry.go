// Package matchmaking owns the lifecycle of game rooms: creating them, pairing a guest with a host,
// and tearing them down when a player leaves.
//
// Rooms live in the shared store under room:<id> with a TTL. A set index lists the ids of rooms that are
// waiting for a guest; it is a derived view that listings repair as they go. Every request re-reads the
// record it acts on, and every waiting->full or full->waiting transition is committed with a
// compare-and-swap against the exact record that was read, so two requests racing on one room cannot
// both win.
package matchmaking

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jason-s-yu/baduk/internal/cache"
	"github.com/jason-s-yu/baduk/internal/metrics"
	"github.com/jason-s-yu/baduk/internal/models"
	"github.com/sirupsen/logrus"
)

const (
	// RoomKeyPrefix namespaces room records in the shared store.
	RoomKeyPrefix = "room:"

	// WaitingIndex is the set of ids of rooms open for joining.
	WaitingIndex = "rooms:waiting"

	// DefaultRoomTTL is how long an untouched room survives.
	DefaultRoomTTL = 30 * time.Minute

	// leaveAttempts bounds how often LeaveRoom re-reads a room that changed under it.
	leaveAttempts = 3
)

// Player is the identity snapshot of the user making a request.
type Player struct {
	UserID    uuid.UUID
	Nickname  string
	RankTier  models.RankTier
	RankLevel int
}

// Registry manages GameRoom records in a cache.Store.
type Registry struct {
	store   cache.Store
	ttl     time.Duration
	logger  logrus.FieldLogger
	metrics *metrics.Lobby
	now     func() time.Time
}

// Option customises a Registry.
type Option func(*Registry)

// WithMetrics reports room events to m.
func WithMetrics(m *metrics.Lobby) Option {
	return func(r *Registry) { r.metrics = m }
}

// WithClock sets the time source for CreatedAt.
func WithClock(now func() time.Time) Option {
	return func(r *Registry) { r.now = now }
}

// NewRegistry builds a Registry. A ttl <= 0 falls back to DefaultRoomTTL.
func NewRegistry(store cache.Store, ttl time.Duration, logger logrus.FieldLogger, opts ...Option) *Registry {
	if ttl <= 0 {
		ttl = DefaultRoomTTL
	}
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	r := &Registry{
		store:  store,
		ttl:    ttl,
		logger: logger,
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

func roomKey(id string) string {
	return RoomKeyPrefix + id
}

// snapshot pairs a decoded room with the exact bytes it was decoded from; the bytes are the
// precondition of any compare-and-swap that follows.
type snapshot struct {
	room models.GameRoom
	raw  string
}

// decode parses a stored room. A record that does not parse, or whose id disagrees with its key,
// is treated as absent.
func decode(id, raw string) (snapshot, bool) {
	var room models.GameRoom
	if err := json.Unmarshal([]byte(raw), &room); err != nil {
		return snapshot{}, false
	}
	if room.RoomID.String() != id {
		return snapshot{}, false
	}
	return snapshot{room: room, raw: raw}, true
}

func (r *Registry) fetch(ctx context.Context, roomID uuid.UUID) (snapshot, bool, error) {
	id := roomID.String()
	raw, found, err := r.store.Get(ctx, roomKey(id))
	if err != nil || !found {
		return snapshot{}, false, err
	}
	snap, ok := decode(id, raw)
	return snap, ok, nil
}

// swap commits next in place of snap, refreshing the TTL. It reports false when the record changed or
// vanished since snap was read.
func (r *Registry) swap(ctx context.Context, snap snapshot, next models.GameRoom) (bool, error) {
	data, err := json.Marshal(next)
	if err != nil {
		return false, fmt.Errorf("failed to encode room: %w", err)
	}
	return r.store.CompareAndSwap(ctx, roomKey(next.RoomID.String()), snap.raw, string(data), r.ttl)
}

// CreateRoom opens a waiting room hosted by host.
func (r *Registry) CreateRoom(ctx context.Context, host Player, size models.BoardSize) (*models.GameRoom, error) {
	if !size.Valid() {
		return nil, ErrInvalidBoardSize
	}
	roomID, err := uuid.NewRandom()
	if err != nil {
		return nil, fmt.Errorf("failed to generate room id: %w", err)
	}

	room := models.GameRoom{
		RoomID:        roomID,
		HostID:        host.UserID,
		HostNickname:  host.Nickname,
		HostRankTier:  host.RankTier,
		HostRankLevel: host.RankLevel,
		BoardSize:     size,
		Status:        models.RoomStatusWaiting,
		CreatedAt:     r.now().UTC(),
	}
	data, err := json.Marshal(room)
	if err != nil {
		return nil, fmt.Errorf("failed to encode room: %w", err)
	}

	id := roomID.String()
	if err := r.store.Set(ctx, roomKey(id), string(data), r.ttl); err != nil {
		return nil, err
	}
	if err := r.store.IndexAdd(ctx, WaitingIndex, id); err != nil {
		return nil, err
	}

	r.metrics.RoomCreated()
	r.logger.WithFields(logrus.Fields{
		"room_id":    id,
		"host_id":    host.UserID,
		"board_size": int(size),
	}).Info("room created")
	return &room, nil
}

// ListWaitingRooms returns the rooms currently open for joining, in index order.
func (r *Registry) ListWaitingRooms(ctx context.Context) ([]models.GameRoom, error) {
	snaps, err := r.waitingRooms(ctx)
	if err != nil {
		return nil, err
	}
	rooms := make([]models.GameRoom, 0, len(snaps))
	for _, s := range snaps {
		rooms = append(rooms, s.room)
	}
	return rooms, nil
}

// GetRoomStatus returns the current state of a room.
func (r *Registry) GetRoomStatus(ctx context.Context, roomID uuid.UUID) (*models.GameRoom, error) {
	snap, found, err := r.fetch(ctx, roomID)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, ErrRoomNotFound
	}
	return &snap.room, nil
}

// JoinRoom seats userID as the guest of a waiting room. Of several concurrent joins on the same room
// exactly one succeeds; the rest get ErrRoomNotAvailable.
func (r *Registry) JoinRoom(ctx context.Context, roomID, userID uuid.UUID, nickname string) (*models.GameRoom, error) {
	snap, found, err := r.fetch(ctx, roomID)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, ErrRoomNotFound
	}
	if snap.room.Status != models.RoomStatusWaiting {
		return nil, ErrRoomNotAvailable
	}
	if snap.room.IsHost(userID) {
		return nil, ErrRoomSelfJoin
	}

	room, ok, err := r.seat(ctx, snap, userID, nickname)
	if err != nil {
		return nil, err
	}
	if !ok {
		r.metrics.JoinConflict()
		if _, still, err := r.fetch(ctx, roomID); err == nil && !still {
			return nil, ErrRoomNotFound
		}
		return nil, ErrRoomNotAvailable
	}
	r.metrics.RoomMatched("join")
	return room, nil
}

// seat performs the waiting->full transition on snap. It reports false if another request got there
// first.
func (r *Registry) seat(ctx context.Context, snap snapshot, userID uuid.UUID, nickname string) (*models.GameRoom, bool, error) {
	room := snap.room
	room.SetGuest(userID, nickname)

	swapped, err := r.swap(ctx, snap, room)
	if err != nil || !swapped {
		return nil, false, err
	}

	id := room.RoomID.String()
	log := r.logger.WithFields(logrus.Fields{"room_id": id, "guest_id": userID})
	// The room is already full; a stale index entry is skipped by listings until it expires.
	if err := r.store.IndexRemove(ctx, WaitingIndex, id); err != nil {
		log.WithError(err).Warn("failed to drop joined room from waiting index")
	}
	log.Info("room joined")
	return &room, true, nil
}

// LeaveRoom removes userID from a room. A departing host destroys the room; a departing guest reopens
// it. Leaving a room that is gone, or that userID is not part of, does nothing.
func (r *Registry) LeaveRoom(ctx context.Context, roomID, userID uuid.UUID) error {
	id := roomID.String()
	log := r.logger.WithFields(logrus.Fields{"room_id": id, "user_id": userID})

	for attempt := 0; attempt < leaveAttempts; attempt++ {
		snap, found, err := r.fetch(ctx, roomID)
		if err != nil {
			return err
		}
		if !found {
			return nil
		}

		switch {
		case snap.room.IsHost(userID):
			if err := r.store.Delete(ctx, roomKey(id)); err != nil {
				return err
			}
			if err := r.store.IndexRemove(ctx, WaitingIndex, id); err != nil {
				log.WithError(err).Warn("failed to drop closed room from waiting index")
			}
			log.Info("host left, room closed")
			return nil

		case snap.room.IsGuest(userID):
			room := snap.room
			room.ClearGuest()
			swapped, err := r.swap(ctx, snap, room)
			if err != nil {
				return err
			}
			if !swapped {
				continue
			}
			if err := r.store.IndexAdd(ctx, WaitingIndex, id); err != nil {
				log.WithError(err).Warn("failed to re-list reopened room")
			}
			log.Info("guest left, room reopened")
			return nil

		default:
			return nil
		}
	}
	return ErrRoomConflict
}
