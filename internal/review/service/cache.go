package service

import (
	"context"
	"sync"
	"time"

	"github.com/go-redis/redis/v8"
)

// ReasonCache stores screening reasons. Reasons never change once a
// transaction is flagged, so entries are never invalidated.
type ReasonCache interface {
	Get(ctx context.Context, id string) (string, bool)
	Set(ctx context.Context, id, reason string)
}

type memoryReasonCache struct {
	mu      sync.RWMutex
	reasons map[string]string
}

func NewMemoryReasonCache() ReasonCache {
	return &memoryReasonCache{reasons: make(map[string]string)}
}

func (c *memoryReasonCache) Get(_ context.Context, id string) (string, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	r, ok := c.reasons[id]
	return r, ok
}

func (c *memoryReasonCache) Set(_ context.Context, id, reason string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.reasons[id] = reason
}

const reasonKeyPrefix = "aml:reason:"

type redisReasonCache struct {
	rdb *redis.Client
	ttl time.Duration
}

// NewRedisReasonCache shares reasons across orchestrator replicas. Redis
// errors are treated as misses.
func NewRedisReasonCache(rdb *redis.Client, ttl time.Duration) ReasonCache {
	return &redisReasonCache{rdb: rdb, ttl: ttl}
}

func (c *redisReasonCache) Get(ctx context.Context, id string) (string, bool) {
	r, err := c.rdb.Get(ctx, reasonKeyPrefix+id).Result()
	if err != nil {
		return "", false
	}
	return r, true
}

func (c *redisReasonCache) Set(ctx context.Context, id, reason string) {
	c.rdb.Set(ctx, reasonKeyPrefix+id, reason, c.ttl)
}
