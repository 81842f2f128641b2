package kv

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
)

// DefaultKeyPrefix namespaces all RouteBase keys in a shared Redis deployment.
const DefaultKeyPrefix = "routebase:"

// compareAndDeleteScript deletes a key only if it still holds the expected
// value. Check and delete must be a single atomic step: a non-atomic
// get-then-delete would let a stale holder delete a lock that has since been
// acquired by someone else.
var compareAndDeleteScript = redis.NewScript(`
if redis.call("get", KEYS[1]) == ARGV[1] then
	return redis.call("del", KEYS[1])
else
	return 0
end`)

// compareAndExpireScript refreshes a key's TTL only if it still holds the
// expected value.
var compareAndExpireScript = redis.NewScript(`
if redis.call("get", KEYS[1]) == ARGV[1] then
	return redis.call("pexpire", KEYS[1], ARGV[2])
else
	return 0
end`)

// RedisStore implements Store on top of a shared Redis deployment. Redis
// provides the cross-process atomicity that the lock manager's correctness
// depends on: SET NX for acquisition, Lua scripts for conditional delete and
// conditional expiry.
type RedisStore struct {
	client *redis.Client
	prefix string
}

// NewRedisStore creates a RedisStore using the given client. Keys are
// namespaced with prefix; pass DefaultKeyPrefix unless sharing a deployment
// with another keyspace convention.
func NewRedisStore(client *redis.Client, prefix string) *RedisStore {
	return &RedisStore{
		client: client,
		prefix: prefix,
	}
}

func (s *RedisStore) prefixed(key string) string {
	return s.prefix + key
}

// Set stores value under key with the given TTL.
func (s *RedisStore) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	return s.client.Set(ctx, s.prefixed(key), value, ttl).Err()
}

// SetNX atomically stores value under key only if the key does not exist.
func (s *RedisStore) SetNX(ctx context.Context, key string, value []byte, ttl time.Duration) (bool, error) {
	return s.client.SetNX(ctx, s.prefixed(key), value, ttl).Result()
}

// Get returns the value stored under key. Redis nil replies map to a miss,
// not an error.
func (s *RedisStore) Get(ctx context.Context, key string) ([]byte, bool, error) {
	val, err := s.client.Get(ctx, s.prefixed(key)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return val, true, nil
}

// Delete removes the value stored under key.
func (s *RedisStore) Delete(ctx context.Context, key string) error {
	return s.client.Del(ctx, s.prefixed(key)).Err()
}

// CompareAndDelete deletes key only if it holds expect, as a single atomic
// Lua invocation.
func (s *RedisStore) CompareAndDelete(ctx context.Context, key string, expect []byte) (bool, error) {
	res, err := compareAndDeleteScript.Run(ctx, s.client, []string{s.prefixed(key)}, expect).Int()
	if err != nil {
		return false, err
	}
	return res == 1, nil
}

// CompareAndExpire resets the TTL of key to ttl only if it holds expect.
func (s *RedisStore) CompareAndExpire(ctx context.Context, key string, expect []byte, ttl time.Duration) (bool, error) {
	res, err := compareAndExpireScript.Run(ctx, s.client, []string{s.prefixed(key)}, expect, ttl.Milliseconds()).Int()
	if err != nil {
		return false, err
	}
	return res == 1, nil
}
