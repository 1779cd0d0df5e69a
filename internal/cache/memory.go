// internal/cache/memory.go
package cache

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"
)

type memoryEntry struct {
	value     string
	expiresAt time.Time // zero => no expiry
}

// MemoryStore is an in-process Store with the same TTL and CompareAndSwap semantics as RedisStore.
// It backs tests of the lobby services; the clock and fault hooks let a test expire keys or simulate
// an unreachable store without sleeping or a network.
type MemoryStore struct {
	mu      sync.Mutex
	now     func() time.Time
	fault   error
	entries map[string]memoryEntry
	sets    map[string]map[string]struct{}
}

// NewMemoryStore returns an empty store driven by the wall clock.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		now:     time.Now,
		entries: make(map[string]memoryEntry),
		sets:    make(map[string]map[string]struct{}),
	}
}

// SetClock replaces the time source used for expiry.
func (s *MemoryStore) SetClock(now func() time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.now = now
}

// SetFault makes every subsequent call fail with err wrapped in ErrUnavailable. Pass nil to recover.
func (s *MemoryStore) SetFault(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.fault = err
}

// check must be called with mu held.
func (s *MemoryStore) check(op string) error {
	if s.fault != nil {
		return unavailable(op, s.fault)
	}
	return nil
}

// lookup returns the live entry at key, evicting it if expired. Must be called with mu held.
func (s *MemoryStore) lookup(key string) (memoryEntry, bool) {
	e, ok := s.entries[key]
	if !ok {
		return memoryEntry{}, false
	}
	if !e.expiresAt.IsZero() && !s.now().Before(e.expiresAt) {
		delete(s.entries, key)
		return memoryEntry{}, false
	}
	return e, true
}

func (s *MemoryStore) entry(value string, ttl time.Duration) memoryEntry {
	e := memoryEntry{value: value}
	if ttl > 0 {
		e.expiresAt = s.now().Add(ttl)
	}
	return e
}

func (s *MemoryStore) Get(_ context.Context, key string) (string, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.check("get " + key); err != nil {
		return "", false, err
	}
	e, ok := s.lookup(key)
	return e.value, ok, nil
}

func (s *MemoryStore) Set(_ context.Context, key, value string, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.check("set " + key); err != nil {
		return err
	}
	s.entries[key] = s.entry(value, ttl)
	return nil
}

func (s *MemoryStore) Delete(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.check("del " + key); err != nil {
		return err
	}
	delete(s.entries, key)
	return nil
}

func (s *MemoryStore) CompareAndSwap(_ context.Context, key, expected, replacement string, ttl time.Duration) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.check("cas " + key); err != nil {
		return false, err
	}
	e, ok := s.lookup(key)
	if !ok || e.value != expected {
		return false, nil
	}
	s.entries[key] = s.entry(replacement, ttl)
	return true, nil
}

func (s *MemoryStore) MultiGet(_ context.Context, keys []string) ([]*string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.check("mget"); err != nil {
		return nil, err
	}
	out := make([]*string, len(keys))
	for i, k := range keys {
		if e, ok := s.lookup(k); ok {
			v := e.value
			out[i] = &v
		}
	}
	return out, nil
}

func (s *MemoryStore) Keys(_ context.Context, prefix string) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.check("scan " + prefix); err != nil {
		return nil, err
	}
	var keys []string
	for k := range s.entries {
		if !strings.HasPrefix(k, prefix) {
			continue
		}
		if _, ok := s.lookup(k); ok {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)
	return keys, nil
}

func (s *MemoryStore) IndexAdd(_ context.Context, index, member string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.check("sadd " + index); err != nil {
		return err
	}
	set, ok := s.sets[index]
	if !ok {
		set = make(map[string]struct{})
		s.sets[index] = set
	}
	set[member] = struct{}{}
	return nil
}

func (s *MemoryStore) IndexRemove(_ context.Context, index string, members ...string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.check("srem " + index); err != nil {
		return err
	}
	for _, m := range members {
		delete(s.sets[index], m)
	}
	return nil
}

// IndexMembers returns members sorted, which keeps tests deterministic. Callers must not rely on it.
func (s *MemoryStore) IndexMembers(_ context.Context, index string) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.check("smembers " + index); err != nil {
		return nil, err
	}
	members := make([]string, 0, len(s.sets[index]))
	for m := range s.sets[index] {
		members = append(members, m)
	}
	sort.Strings(members)
	return members, nil
}

func (s *MemoryStore) Ping(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.check("ping")
}
