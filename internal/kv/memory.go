package kv

import (
	"context"
	"sync"
	"time"
)

// entry is a stored value with an absolute expiry time. A zero expiry means
// the entry never expires.
type entry struct {
	value     []byte
	expiresAt time.Time
}

func (e entry) expired(now time.Time) bool {
	return !e.expiresAt.IsZero() && now.After(e.expiresAt)
}

// MemoryStore implements Store with an in-process map. Suitable for
// single-process deployments and tests; its atomicity guarantees do not
// extend across processes, so multi-node deployments must use RedisStore.
// Thread-safe for concurrent access.
type MemoryStore struct {
	mu      sync.Mutex
	entries map[string]entry
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		entries: make(map[string]entry),
	}
}

// Set stores value under key with the given TTL.
func (s *MemoryStore) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.entries[key] = newEntry(value, ttl)
	return nil
}

// SetNX stores value under key only if no unexpired value exists.
func (s *MemoryStore) SetNX(ctx context.Context, key string, value []byte, ttl time.Duration) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if e, exists := s.entries[key]; exists && !e.expired(time.Now()) {
		return false, nil
	}

	s.entries[key] = newEntry(value, ttl)
	return true, nil
}

// Get returns the value stored under key. Expired entries are treated as
// absent and removed lazily.
func (s *MemoryStore) Get(ctx context.Context, key string) ([]byte, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, exists := s.entries[key]
	if !exists {
		return nil, false, nil
	}
	if e.expired(time.Now()) {
		delete(s.entries, key)
		return nil, false, nil
	}

	// Return a copy to prevent external mutation
	value := make([]byte, len(e.value))
	copy(value, e.value)
	return value, true, nil
}

// Delete removes the value stored under key.
func (s *MemoryStore) Delete(ctx context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.entries, key)
	return nil
}

// CompareAndDelete deletes key only if it holds expect. The mutex makes the
// check and delete a single atomic step within this process.
func (s *MemoryStore) CompareAndDelete(ctx context.Context, key string, expect []byte) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, exists := s.entries[key]
	if !exists || e.expired(time.Now()) || string(e.value) != string(expect) {
		return false, nil
	}

	delete(s.entries, key)
	return true, nil
}

// CompareAndExpire resets the TTL of key to ttl only if it holds expect.
func (s *MemoryStore) CompareAndExpire(ctx context.Context, key string, expect []byte, ttl time.Duration) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, exists := s.entries[key]
	if !exists || e.expired(time.Now()) || string(e.value) != string(expect) {
		return false, nil
	}

	s.entries[key] = newEntry(e.value, ttl)
	return true, nil
}

// Cleanup removes expired entries to prevent unbounded growth. Call
// periodically in long-lived single-process deployments.
func (s *MemoryStore) Cleanup() {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now()
	for key, e := range s.entries {
		if e.expired(now) {
			delete(s.entries, key)
		}
	}
}

func newEntry(value []byte, ttl time.Duration) entry {
	stored := make([]byte, len(value))
	copy(stored, value)

	e := entry{value: stored}
	if ttl > 0 {
		e.expiresAt = time.Now().Add(ttl)
	}
	return e
}
