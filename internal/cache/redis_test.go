package cache

import (
	"context"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	tcredis "github.com/testcontainers/testcontainers-go/modules/redis"
)

// newContainerStore starts a throwaway Redis. Requires Docker; skipped with -short.
func newContainerStore(t *testing.T) *RedisStore {
	t.Helper()
	if testing.Short() {
		t.Skip("skipping redis container test in short mode")
	}

	ctx := context.Background()
	container, err := tcredis.Run(ctx, "redis:7-alpine")
	if err != nil {
		t.Skipf("redis container unavailable: %v", err)
	}
	t.Cleanup(func() { _ = container.Terminate(context.Background()) })

	endpoint, err := container.Endpoint(ctx, "")
	require.NoError(t, err)

	client, err := Connect(ctx, Options{Addr: endpoint, DialTimeout: 5 * time.Second})
	require.NoError(t, err)
	t.Cleanup(func() { _ = client.Close() })

	return NewRedisStore(client)
}

func TestRedisStore(t *testing.T) {
	exerciseStore(t, newContainerStore(t))
}

func TestRedisStoreExpiry(t *testing.T) {
	s := newContainerStore(t)
	ctx := context.Background()

	require.NoError(t, s.Set(ctx, "online:short", "x", 100*time.Millisecond))
	assert.Eventually(t, func() bool {
		_, found, err := s.Get(ctx, "online:short")
		return err == nil && !found
	}, 2*time.Second, 25*time.Millisecond)
}

func TestRedisStoreUnavailable(t *testing.T) {
	client := redis.NewClient(&redis.Options{
		Addr:        "127.0.0.1:1",
		DialTimeout: 100 * time.Millisecond,
		MaxRetries:  -1,
	})
	defer client.Close()
	s := NewRedisStore(client)

	_, _, err := s.Get(context.Background(), "k")
	assert.ErrorIs(t, err, ErrUnavailable)

	_, err = s.CompareAndSwap(context.Background(), "k", "a", "b", time.Minute)
	assert.ErrorIs(t, err, ErrUnavailable)
}
