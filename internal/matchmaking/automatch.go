package matchmaking

import (
	"context"

	"github.com/jason-s-yu/baduk/internal/models"
	"github.com/sirupsen/logrus"
)

// AutoMatch seats p in the first waiting room of the requested size hosted by someone else, or opens a
// new room when none fits. created reports which of the two happened.
//
// Candidates are tried in index order with no regard to rank. A candidate lost to a concurrent join is
// skipped and the scan moves on; a single pass either seats p or falls through to CreateRoom.
func (r *Registry) AutoMatch(ctx context.Context, p Player, size models.BoardSize) (room *models.GameRoom, created bool, err error) {
	if !size.Valid() {
		return nil, false, ErrInvalidBoardSize
	}

	candidates, err := r.waitingRooms(ctx)
	if err != nil {
		return nil, false, err
	}

	for _, c := range candidates {
		if c.room.BoardSize != size || c.room.IsHost(p.UserID) {
			continue
		}
		room, ok, err := r.seat(ctx, c, p.UserID, p.Nickname)
		if err != nil {
			return nil, false, err
		}
		if ok {
			r.metrics.RoomMatched("auto")
			return room, false, nil
		}
		r.metrics.JoinConflict()
	}

	r.logger.WithFields(logrus.Fields{
		"user_id":    p.UserID,
		"board_size": int(size),
		"candidates": len(candidates),
	}).Debug("no waiting room fits, opening one")

	room, err = r.CreateRoom(ctx, p, size)
	if err != nil {
		return nil, false, err
	}
	return room, true, nil
}
