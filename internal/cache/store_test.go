package cache

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// exerciseStore runs the behaviour every Store implementation must share.
func exerciseStore(t *testing.T, s Store) {
	ctx := context.Background()

	t.Run("get missing", func(t *testing.T) {
		_, found, err := s.Get(ctx, "missing")
		require.NoError(t, err)
		assert.False(t, found)
	})

	t.Run("set get delete", func(t *testing.T) {
		require.NoError(t, s.Set(ctx, "k1", "v1", time.Minute))
		v, found, err := s.Get(ctx, "k1")
		require.NoError(t, err)
		assert.True(t, found)
		assert.Equal(t, "v1", v)

		require.NoError(t, s.Set(ctx, "k1", "v2", time.Minute))
		v, _, _ = s.Get(ctx, "k1")
		assert.Equal(t, "v2", v)

		require.NoError(t, s.Delete(ctx, "k1"))
		_, found, err = s.Get(ctx, "k1")
		require.NoError(t, err)
		assert.False(t, found)

		require.NoError(t, s.Delete(ctx, "k1"), "deleting a missing key is not an error")
	})

	t.Run("multi get tolerates misses", func(t *testing.T) {
		require.NoError(t, s.Set(ctx, "mg:a", "A", time.Minute))
		require.NoError(t, s.Set(ctx, "mg:c", "C", time.Minute))

		vals, err := s.MultiGet(ctx, []string{"mg:a", "mg:b", "mg:c"})
		require.NoError(t, err)
		require.Len(t, vals, 3)
		require.NotNil(t, vals[0])
		assert.Equal(t, "A", *vals[0])
		assert.Nil(t, vals[1])
		require.NotNil(t, vals[2])
		assert.Equal(t, "C", *vals[2])

		vals, err = s.MultiGet(ctx, nil)
		require.NoError(t, err)
		assert.Empty(t, vals)
	})

	t.Run("keys by prefix", func(t *testing.T) {
		require.NoError(t, s.Set(ctx, "kp:1", "x", time.Minute))
		require.NoError(t, s.Set(ctx, "kp:2", "y", time.Minute))
		require.NoError(t, s.Set(ctx, "other:1", "z", time.Minute))

		keys, err := s.Keys(ctx, "kp:")
		require.NoError(t, err)
		assert.ElementsMatch(t, []string{"kp:1", "kp:2"}, keys)
	})

	t.Run("index", func(t *testing.T) {
		require.NoError(t, s.IndexAdd(ctx, "idx", "a"))
		require.NoError(t, s.IndexAdd(ctx, "idx", "b"))
		require.NoError(t, s.IndexAdd(ctx, "idx", "a"))

		members, err := s.IndexMembers(ctx, "idx")
		require.NoError(t, err)
		assert.ElementsMatch(t, []string{"a", "b"}, members)

		require.NoError(t, s.IndexRemove(ctx, "idx", "a", "zzz"))
		require.NoError(t, s.IndexRemove(ctx, "idx"))
		members, err = s.IndexMembers(ctx, "idx")
		require.NoError(t, err)
		assert.Equal(t, []string{"b"}, members)

		members, err = s.IndexMembers(ctx, "nope")
		require.NoError(t, err)
		assert.Empty(t, members)
	})

	t.Run("compare and swap", func(t *testing.T) {
		swapped, err := s.CompareAndSwap(ctx, "cas", "old", "new", time.Minute)
		require.NoError(t, err)
		assert.False(t, swapped, "missing key never swaps")

		require.NoError(t, s.Set(ctx, "cas", "old", time.Minute))

		swapped, err = s.CompareAndSwap(ctx, "cas", "stale", "new", time.Minute)
		require.NoError(t, err)
		assert.False(t, swapped)

		swapped, err = s.CompareAndSwap(ctx, "cas", "old", "new", time.Minute)
		require.NoError(t, err)
		assert.True(t, swapped)

		v, _, _ := s.Get(ctx, "cas")
		assert.Equal(t, "new", v)
	})

	t.Run("compare and swap has one winner", func(t *testing.T) {
		require.NoError(t, s.Set(ctx, "race", "open", time.Minute))

		var (
			wg   sync.WaitGroup
			wins atomic.Int32
		)
		for i := 0; i < 16; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				ok, err := s.CompareAndSwap(ctx, "race", "open", "taken", time.Minute)
				if err == nil && ok {
					wins.Add(1)
				}
			}()
		}
		wg.Wait()
		assert.Equal(t, int32(1), wins.Load())
	})

	t.Run("ping", func(t *testing.T) {
		assert.NoError(t, s.Ping(ctx))
	})
}

func TestMemoryStore(t *testing.T) {
	exerciseStore(t, NewMemoryStore())
}

func TestMemoryStoreExpiry(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	s := NewMemoryStore()
	s.SetClock(func() time.Time { return now })

	require.NoError(t, s.Set(ctx, "online:1", "x", time.Minute))
	require.NoError(t, s.Set(ctx, "forever", "y", 0))

	now = now.Add(59 * time.Second)
	_, found, _ := s.Get(ctx, "online:1")
	assert.True(t, found)

	// a swap resets the TTL
	swapped, err := s.CompareAndSwap(ctx, "online:1", "x", "x2", time.Minute)
	require.NoError(t, err)
	require.True(t, swapped)

	now = now.Add(59 * time.Second)
	_, found, _ = s.Get(ctx, "online:1")
	assert.True(t, found)

	now = now.Add(time.Second)
	_, found, _ = s.Get(ctx, "online:1")
	assert.False(t, found)

	keys, err := s.Keys(ctx, "online:")
	require.NoError(t, err)
	assert.Empty(t, keys)

	vals, err := s.MultiGet(ctx, []string{"online:1", "forever"})
	require.NoError(t, err)
	assert.Nil(t, vals[0])
	require.NotNil(t, vals[1])
	assert.Equal(t, "y", *vals[1])
}

func TestMemoryStoreFault(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	s.SetFault(errors.New("connection refused"))

	_, _, err := s.Get(ctx, "k")
	assert.ErrorIs(t, err, ErrUnavailable)
	assert.ErrorIs(t, s.Set(ctx, "k", "v", time.Minute), ErrUnavailable)
	_, err = s.IndexMembers(ctx, "idx")
	assert.ErrorIs(t, err, ErrUnavailable)
	assert.ErrorIs(t, s.Ping(ctx), ErrUnavailable)

	s.SetFault(nil)
	assert.NoError(t, s.Set(ctx, "k", "v", time.Minute))
}
