package health

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"
)

// RedisChecker checks Redis with PING
type RedisChecker struct {
	client *redis.Client
}

// NewRedisChecker wraps an existing Redis client
func NewRedisChecker(client *redis.Client) *RedisChecker {
	return &RedisChecker{client: client}
}

// Name returns the service name
func (p *RedisChecker) Name() string { return "redis" }

// HealthCheck verifies Redis connectivity
func (p *RedisChecker) HealthCheck(ctx context.Context) error {
	if err := p.client.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("redis: %w", err)
	}
	return nil
}
