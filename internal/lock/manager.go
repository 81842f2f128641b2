// Package lock provides best-effort, time-bounded mutual exclusion over
// arbitrary keys, backed by a shared key-value store.
package lock

import (
	"context"
	"fmt"
	"math/rand"
	"time"

	"github.com/hmkhan10/routebase-payments/internal/kv"
)

// keyPrefix namespaces lock records in the shared store. Only this package
// writes keys under it.
const keyPrefix = "lock:"

// Manager acquires and releases per-key locks. At most one valid (unexpired)
// lock exists per key at any time; the store's atomic SetNX is what
// serializes concurrent acquirers.
type Manager struct {
	store kv.Store
}

// NewManager creates a Manager backed by the given store. The store is an
// explicit dependency so tests can substitute doubles that simulate
// partitioning, latency, and failure.
func NewManager(store kv.Store) *Manager {
	return &Manager{store: store}
}

// Acquire attempts to take the lock for key, auto-expiring after ttl.
// Returns a fresh ownership token and ok=true on success, or ok=false if
// another holder owns the lock. A denied acquisition is a normal outcome;
// only store unavailability is reported as an error.
func (m *Manager) Acquire(ctx context.Context, key string, ttl time.Duration) (token string, ok bool, err error) {
	token = newToken()

	ok, err = m.store.SetNX(ctx, keyPrefix+key, []byte(token), ttl)
	if err != nil {
		return "", false, fmt.Errorf("acquire lock %q: %w", key, err)
	}
	if !ok {
		return "", false, nil
	}
	return token, true, nil
}

// Release deletes the lock for key only if the stored token matches the
// caller's token, preventing a holder whose TTL already expired from
// releasing a lock that has since been acquired by someone else. Returns
// whether the deletion occurred.
func (m *Manager) Release(ctx context.Context, key, token string) (bool, error) {
	ok, err := m.store.CompareAndDelete(ctx, keyPrefix+key, []byte(token))
	if err != nil {
		return false, fmt.Errorf("release lock %q: %w", key, err)
	}
	return ok, nil
}

// Extend resets the lock's expiry to ttl only if token still owns it. Used
// by long-running holders that may outlive their original TTL.
func (m *Manager) Extend(ctx context.Context, key, token string, ttl time.Duration) (bool, error) {
	ok, err := m.store.CompareAndExpire(ctx, keyPrefix+key, []byte(token), ttl)
	if err != nil {
		return false, fmt.Errorf("extend lock %q: %w", key, err)
	}
	return ok, nil
}

// newToken generates a practically-unique ownership token. Collisions are
// not a threat model here, but the value must not be guessably constant.
func newToken() string {
	return fmt.Sprintf("%d-%d", time.Now().UnixNano(), rand.Int63())
}
