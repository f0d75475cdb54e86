// Package checkers holds health.Check implementations for ward-desk's backing services.
package checkers

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"
)

// RedisChecker pings the session store's Redis.
type RedisChecker struct {
	client redis.UniversalClient
	name   string
}

// NewRedisChecker returns a checker named name, or "redis" when empty.
func NewRedisChecker(client redis.UniversalClient, name string) *RedisChecker {
	if name == "" {
		name = "redis"
	}
	return &RedisChecker{client: client, name: name}
}

func (r *RedisChecker) Name() string { return r.name }

// Check issues PING.
func (r *RedisChecker) Check(ctx context.Context) error {
	if err := r.client.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("redis ping failed: %w", err)
	}
	return nil
}
