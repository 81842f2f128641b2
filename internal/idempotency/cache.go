// Package idempotency records the outcome of completed operations keyed by a
// caller-supplied idempotency key, so retried requests observe the first
// result instead of re-executing.
package idempotency

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/hmkhan10/routebase-payments/internal/kv"
)

// keyPrefix namespaces cached results in the shared store. Only this package
// writes keys under it.
const keyPrefix = "cache:"

// Cache stores JSON-encoded operation outcomes with a bounded retention TTL.
// The backend system of record holds permanent data; this cache only needs to
// outlive the window in which duplicate requests can arrive.
type Cache struct {
	store kv.Store
}

// NewCache creates a Cache backed by the given store.
func NewCache(store kv.Store) *Cache {
	return &Cache{store: store}
}

// Put stores value under key, expiring after ttl. The payment flow never
// calls Put twice for the same key; that ordering is the coordinator's
// responsibility, not the cache's.
func (c *Cache) Put(ctx context.Context, key string, value any, ttl time.Duration) error {
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("encode cached value for %q: %w", key, err)
	}
	if err := c.store.Set(ctx, keyPrefix+key, data, ttl); err != nil {
		return fmt.Errorf("store cached value for %q: %w", key, err)
	}
	return nil
}

// Get decodes the value stored under key into dest. A miss returns ok=false
// with a nil error; a miss means "not yet processed", not a fault.
func (c *Cache) Get(ctx context.Context, key string, dest any) (bool, error) {
	data, ok, err := c.store.Get(ctx, keyPrefix+key)
	if err != nil {
		return false, fmt.Errorf("read cached value for %q: %w", key, err)
	}
	if !ok {
		return false, nil
	}
	if err := json.Unmarshal(data, dest); err != nil {
		return false, fmt.Errorf("decode cached value for %q: %w", key, err)
	}
	return true, nil
}

// GetRaw returns the stored JSON without decoding it, for endpoints that
// relay the cached document verbatim.
func (c *Cache) GetRaw(ctx context.Context, key string) (json.RawMessage, bool, error) {
	data, ok, err := c.store.Get(ctx, keyPrefix+key)
	if err != nil {
		return nil, false, fmt.Errorf("read cached value for %q: %w", key, err)
	}
	if !ok {
		return nil, false, nil
	}
	return json.RawMessage(data), true, nil
}

// Delete removes the value stored under key. Used to invalidate derived
// caches; payment results are intentionally immutable and are never deleted
// by the payment flow.
func (c *Cache) Delete(ctx context.Context, key string) error {
	if err := c.store.Delete(ctx, keyPrefix+key); err != nil {
		return fmt.Errorf("delete cached value for %q: %w", key, err)
	}
	return nil
}
