package matchmaking

import (
	"context"

	"github.com/jason-s-yu/baduk/internal/models"
)

// waitingRooms reads the waiting index and returns the rooms it points at that are still waiting, in
// index order. Ids whose record is missing or malformed are pruned from the index on the way.
func (r *Registry) waitingRooms(ctx context.Context) ([]snapshot, error) {
	ids, err := r.store.IndexMembers(ctx, WaitingIndex)
	if err != nil {
		return nil, err
	}
	if len(ids) == 0 {
		return nil, nil
	}

	keys := make([]string, len(ids))
	for i, id := range ids {
		keys[i] = roomKey(id)
	}
	values, err := r.store.MultiGet(ctx, keys)
	if err != nil {
		return nil, err
	}

	var (
		snaps    []snapshot
		dangling []string
	)
	for i, id := range ids {
		if values[i] == nil {
			dangling = append(dangling, id)
			continue
		}
		snap, ok := decode(id, *values[i])
		if !ok {
			dangling = append(dangling, id)
			continue
		}
		// A full room can still be indexed briefly after a join or a guest leave; it is skipped but
		// not pruned, since the guest may be on their way out and about to re-add it.
		if snap.room.Status != models.RoomStatusWaiting {
			continue
		}
		snaps = append(snaps, snap)
	}

	r.reconcile(ctx, dangling)
	return snaps, nil
}

// reconcile drops dangling ids from the waiting index. It is idempotent, and a failure only delays
// the cleanup until the next listing.
func (r *Registry) reconcile(ctx context.Context, dangling []string) {
	if len(dangling) == 0 {
		return
	}
	if err := r.store.IndexRemove(ctx, WaitingIndex, dangling...); err != nil {
		r.logger.WithError(err).WithField("count", len(dangling)).Warn("failed to prune waiting index")
		return
	}
	r.metrics.IndexRepaired(len(dangling))
	r.logger.WithField("count", len(dangling)).Debug("pruned waiting index")
}
