package cache

import (
	"context"
	"log"
	"time"

	"github.com/redis/go-redis/v9"
)

const queueKey = "kitchen:queue"

// RedisQueueCache stores the kitchen-queue snapshot in Redis with a short
// TTL. Cache trouble is never fatal: misses fall through to the database.
type RedisQueueCache struct {
	client *redis.Client
	ttl    time.Duration
}

func NewRedisQueueCache(client *redis.Client, ttl time.Duration) *RedisQueueCache {
	return &RedisQueueCache{client: client, ttl: ttl}
}

func (c *RedisQueueCache) Get(ctx context.Context) ([]byte, bool) {
	data, err := c.client.Get(ctx, queueKey).Bytes()
	if err != nil {
		if err != redis.Nil {
			log.Printf("ERROR: queue cache get: %v", err)
		}
		return nil, false
	}
	return data, true
}

func (c *RedisQueueCache) Set(ctx context.Context, data []byte) {
	if err := c.client.Set(ctx, queueKey, data, c.ttl).Err(); err != nil {
		log.Printf("ERROR: queue cache set: %v", err)
	}
}

func (c *RedisQueueCache) Invalidate(ctx context.Context) {
	if err := c.client.Del(ctx, queueKey).Err(); err != nil {
		log.Printf("ERROR: queue cache invalidate: %v", err)
	}
}
