// Package dedupe provides an at-most-once guard for provider webhook deliveries.
package dedupe

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/patrickmn/go-cache"
	"github.com/redis/go-redis/v9"
)

// Guard claims keys. The first claim of a key within the TTL wins.
type Guard interface {
	Claim(ctx context.Context, key string) (bool, error)
}

var ErrEmptyKey = errors.New("dedupe: key is required")

// MemoryGuard keeps claimed keys in process memory. Claims are lost on restart
// and are not shared between replicas.
type MemoryGuard struct {
	seen *cache.Cache
	ttl  time.Duration
}

func NewMemoryGuard(ttl time.Duration) *MemoryGuard {
	return &MemoryGuard{seen: cache.New(ttl, ttl), ttl: ttl}
}

func (g *MemoryGuard) Claim(_ context.Context, key string) (bool, error) {
	if key == "" {
		return false, ErrEmptyKey
	}
	// Add fails when the key already exists and has not expired.
	return g.seen.Add(key, struct{}{}, g.ttl) == nil, nil
}

// RedisGuard shares claims between replicas through SET NX.
type RedisGuard struct {
	rdb    *redis.Client
	prefix string
	ttl    time.Duration
}

func NewRedisGuard(rdb *redis.Client, prefix string, ttl time.Duration) *RedisGuard {
	return &RedisGuard{rdb: rdb, prefix: prefix, ttl: ttl}
}

func (g *RedisGuard) Claim(ctx context.Context, key string) (bool, error) {
	if g.rdb == nil {
		return false, errors.New("dedupe: redis client is nil")
	}
	if key == "" {
		return false, ErrEmptyKey
	}
	ok, err := g.rdb.SetNX(ctx, g.prefix+key, time.Now().UTC().Format(time.RFC3339), g.ttl).Result()
	if err != nil {
		return false, fmt.Errorf("dedupe: claiming %s: %w", key, err)
	}
	return ok, nil
}
