// Package health provides health check implementations for external
// dependencies.
package health

import (
	"context"
	"strings"

	"github.com/redis/go-redis/v9"
)

// RedisStats is a small slice of Redis INFO output surfaced by the health
// endpoint.
type RedisStats struct {
	MemoryUsed       string
	ConnectedClients string
}

// RedisChecker implements health checking for Redis.
type RedisChecker struct {
	client *redis.Client
}

// NewRedisChecker creates a new Redis health checker.
func NewRedisChecker(client *redis.Client) *RedisChecker {
	return &RedisChecker{client: client}
}

// HealthCheck performs a health check on Redis by sending a PING command.
func (r *RedisChecker) HealthCheck(ctx context.Context) error {
	return r.client.Ping(ctx).Err()
}

// Stats returns memory and client counts from Redis INFO. Missing fields
// report as "unknown" rather than failing the health check.
func (r *RedisChecker) Stats(ctx context.Context) (RedisStats, error) {
	stats := RedisStats{MemoryUsed: "unknown", ConnectedClients: "unknown"}

	memory, err := r.client.Info(ctx, "memory").Result()
	if err != nil {
		return stats, err
	}
	if v := infoField(memory, "used_memory_human"); v != "" {
		stats.MemoryUsed = v
	}

	clients, err := r.client.Info(ctx, "clients").Result()
	if err != nil {
		return stats, err
	}
	if v := infoField(clients, "connected_clients"); v != "" {
		stats.ConnectedClients = v
	}

	return stats, nil
}

// infoField extracts a single "key:value" line from Redis INFO output.
func infoField(info, field string) string {
	for _, line := range strings.Split(info, "\r\n") {
		if rest, ok := strings.CutPrefix(line, field+":"); ok {
			return strings.TrimSpace(rest)
		}
	}
	return ""
}
