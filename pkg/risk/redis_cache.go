package risk

import (
	"context"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/redis/go-redis/v9"
)

// DefaultInteractionKey is the Redis set holding seen pairs.
const DefaultInteractionKey = "explain:interactions"

// RedisClient is the subset of *redis.Client the cache needs
type RedisClient interface {
	SAdd(ctx context.Context, key string, members ...interface{}) *redis.IntCmd
	Del(ctx context.Context, keys ...string) *redis.IntCmd
	Close() error
}

// RedisInteractionCache shares seen pairs across explainer replicas. SADD
// gives the atomic check-and-insert.
type RedisInteractionCache struct {
	client RedisClient
	key    string
}

// NewRedisInteractionCache creates a Redis-backed cache. An empty key uses
// DefaultInteractionKey.
func NewRedisInteractionCache(client RedisClient, key string) *RedisInteractionCache {
	if key == "" {
		key = DefaultInteractionKey
	}
	return &RedisInteractionCache{
		client: client,
		key:    key,
	}
}

// MarkSeen implements InteractionCache.
func (c *RedisInteractionCache) MarkSeen(ctx context.Context, from, spender common.Address) (bool, error) {
	added, err := c.client.SAdd(ctx, c.key, interactionKey(from, spender)).Result()
	if err != nil {
		return false, fmt.Errorf("failed to record interaction: %w", err)
	}
	return added == 1, nil
}

// Clear implements InteractionCache.
func (c *RedisInteractionCache) Clear(ctx context.Context) error {
	if err := c.client.Del(ctx, c.key).Err(); err != nil {
		return fmt.Errorf("failed to clear interactions: %w", err)
	}
	return nil
}

// Close closes the Redis connection
func (c *RedisInteractionCache) Close() error {
	return c.client.Close()
}
