package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
)

// DefaultChartTTL bounds how stale a cached chart may be.
const DefaultChartTTL = 5 * time.Minute

// ChartCache stores precomputed chart payloads per genre with a TTL. A miss is
// a normal outcome, not an error; the cache is never the authority on ratings.
type ChartCache interface {
	// GetChart returns the cached payload for a genre. ok is false on a miss.
	GetChart(ctx context.Context, genre string) (payload []byte, ok bool, err error)
	// CacheChart stores the payload for a genre with the given TTL. A
	// non-positive ttl falls back to DefaultChartTTL.
	CacheChart(ctx context.Context, payload []byte, genre string, ttl time.Duration) error
}

// chartKey builds the Redis key for a genre chart. Genre "all" is a regular
// key like any other.
func chartKey(genre string) string {
	return fmt.Sprintf("chart-%s", genre)
}

// RedisChartCache is the Redis-backed ChartCache.
type RedisChartCache struct {
	client *redis.Client
}

// NewRedisChartCache creates a chart cache on top of the given client. Passing
// nil uses the shared RedisClient.
func NewRedisChartCache(client *redis.Client) *RedisChartCache {
	if client == nil {
		client = RedisClient
	}
	return &RedisChartCache{client: client}
}

// GetChart implements ChartCache.
func (c *RedisChartCache) GetChart(ctx context.Context, genre string) ([]byte, bool, error) {
	if c.client == nil {
		return nil, false, fmt.Errorf("Redis client not initialized")
	}

	payload, err := c.client.Get(ctx, chartKey(genre)).Bytes()
	if err != nil {
		if err == redis.Nil {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("failed to get chart for genre %s: %w", genre, err)
	}
	return payload, true, nil
}

// CacheChart implements ChartCache.
func (c *RedisChartCache) CacheChart(ctx context.Context, payload []byte, genre string, ttl time.Duration) error {
	if c.client == nil {
		return fmt.Errorf("Redis client not initialized")
	}
	if ttl <= 0 {
		ttl = DefaultChartTTL
	}

	if err := c.client.Set(ctx, chartKey(genre), payload, ttl).Err(); err != nil {
		return fmt.Errorf("failed to cache chart for genre %s: %w", genre, err)
	}
	return nil
}
