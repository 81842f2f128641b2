// Package kv provides the key-value store abstraction that backs distributed
// locks, the payment idempotency cache, and checkout session storage.
//
// The mutual-exclusion guarantees of the lock package depend entirely on the
// chosen implementation providing true atomicity for SetNX and
// CompareAndDelete. RedisStore provides this across processes; MemoryStore
// only within a single process.
package kv

import (
	"context"
	"time"
)

// Store defines the operations required by the lock manager and caches.
type Store interface {
	// Set stores value under key, expiring after ttl. A ttl of zero means
	// no expiry.
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error

	// SetNX atomically stores value under key only if no unexpired value
	// exists. Returns true if the value was stored.
	SetNX(ctx context.Context, key string, value []byte, ttl time.Duration) (bool, error)

	// Get returns the value stored under key. A miss returns ok=false with
	// a nil error; a miss is meaningful, not a fault.
	Get(ctx context.Context, key string) (value []byte, ok bool, err error)

	// Delete removes the value stored under key. Deleting a missing key is
	// not an error.
	Delete(ctx context.Context, key string) error

	// CompareAndDelete atomically deletes key only if the stored value
	// equals expect. Returns true if the deletion occurred.
	CompareAndDelete(ctx context.Context, key string, expect []byte) (bool, error)

	// CompareAndExpire atomically resets the expiry of key to ttl only if
	// the stored value equals expect. Returns true if the expiry was reset.
	CompareAndExpire(ctx context.Context, key string, expect []byte, ttl time.Duration) (bool, error)
}
