package middleware

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func newTestRedisRateLimitStore(t *testing.T) (*RedisRateLimitStore, *miniredis.Miniredis) {
	t.Helper()

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })

	return NewRedisRateLimitStore(client), mr
}

func TestRedisRateLimitStore_Allow(t *testing.T) {
	store, _ := newTestRedisRateLimitStore(t)
	cfg := RateLimitConfig{RequestsPerWindow: 3, WindowDuration: time.Minute}
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		allowed, _ := store.Allow(ctx, "client-1", cfg)
		if !allowed {
			t.Fatalf("request %d should be allowed", i+1)
		}
	}

	allowed, retryAfter := store.Allow(ctx, "client-1", cfg)
	if allowed {
		t.Error("request over the limit should be denied")
	}
	if retryAfter <= 0 {
		t.Errorf("expected positive retry-after, got %d", retryAfter)
	}

	if allowed, _ := store.Allow(ctx, "client-2", cfg); !allowed {
		t.Error("distinct keys must not share counters")
	}
}

func TestRedisRateLimitStore_WindowReset(t *testing.T) {
	store, mr := newTestRedisRateLimitStore(t)
	cfg := RateLimitConfig{RequestsPerWindow: 1, WindowDuration: time.Second}
	ctx := context.Background()

	if allowed, _ := store.Allow(ctx, "client-1", cfg); !allowed {
		t.Fatal("first request should be allowed")
	}
	if allowed, _ := store.Allow(ctx, "client-1", cfg); allowed {
		t.Fatal("second request in window should be denied")
	}

	mr.FastForward(2 * time.Second)

	if allowed, _ := store.Allow(ctx, "client-1", cfg); !allowed {
		t.Error("request after window expiry should be allowed")
	}
}

func TestRedisRateLimitStore_FailsOpen(t *testing.T) {
	store, mr := newTestRedisRateLimitStore(t)
	mr.Close()

	allowed, _ := store.Allow(context.Background(), "client-1", DefaultGlobalLimit())
	if !allowed {
		t.Error("store errors must fail open, not block traffic")
	}
}

func TestRedisRateLimitStore_KeyNamespace(t *testing.T) {
	store, mr := newTestRedisRateLimitStore(t)

	store.Allow(context.Background(), "client-1", DefaultGlobalLimit())

	if !mr.Exists("rate:client-1") {
		t.Error("rate counters must live under the rate: namespace")
	}
}
