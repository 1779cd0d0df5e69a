// internal/cache/store.go
package cache

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// ErrUnavailable marks a failure to reach the backing store. Every transport error returned by a Store
// wraps it, so callers can tell infrastructure faults apart from domain errors with errors.Is.
var ErrUnavailable = errors.New("store unavailable")

// Store is the shared, TTL-expiring key-value store used by the lobby services.
//
// Operations are independent; there is no multi-key atomicity. CompareAndSwap is the only conditional
// write and covers a single key. A missing key is reported through the found flag, never as an error.
type Store interface {
	// Get returns the value stored at key.
	Get(ctx context.Context, key string) (value string, found bool, err error)

	// Set overwrites key and resets its TTL. A ttl <= 0 stores the key without expiry.
	Set(ctx context.Context, key, value string, ttl time.Duration) error

	// Delete removes key. Deleting a missing key is not an error.
	Delete(ctx context.Context, key string) error

	// CompareAndSwap replaces the value at key with replacement, resetting its TTL, only if key
	// exists and currently holds exactly expected. It reports whether the swap happened.
	CompareAndSwap(ctx context.Context, key, expected, replacement string, ttl time.Duration) (bool, error)

	// MultiGet fetches many keys at once. The result is index-aligned with keys; a nil entry means the
	// key was missing or expired.
	MultiGet(ctx context.Context, keys []string) ([]*string, error)

	// Keys lists the unexpired keys that start with prefix.
	Keys(ctx context.Context, prefix string) ([]string, error)

	// IndexAdd adds member to the named set index.
	IndexAdd(ctx context.Context, index, member string) error

	// IndexRemove removes members from the named set index.
	IndexRemove(ctx context.Context, index string, members ...string) error

	// IndexMembers lists the members of the named set index.
	IndexMembers(ctx context.Context, index string) ([]string, error)

	// Ping checks that the store is reachable.
	Ping(ctx context.Context) error
}

// unavailable wraps a transport error from op with ErrUnavailable.
func unavailable(op string, err error) error {
	return fmt.Errorf("%s: %w: %w", op, ErrUnavailable, err)
}
