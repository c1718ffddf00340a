package cache

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/ahinestrog/mybookstore-cart/internal/domain"
)

const (
	defaultTTL = 10 * time.Minute
	maxJitter  = 2 * time.Minute
)

// setIfNewer writes the count unless the stored entry carries a higher
// cart version. KEYS[1] count key, ARGV version, lines, ttl in ms.
var setIfNewer = redis.NewScript(`
local cur = redis.call('HGET', KEYS[1], 'v')
if cur and tonumber(cur) > tonumber(ARGV[1]) then
  return 0
end
redis.call('HSET', KEYS[1], 'v', ARGV[1], 'n', ARGV[2])
redis.call('PEXPIRE', KEYS[1], ARGV[3])
return 1
`)

type RedisCache struct {
	client  redis.UniversalClient
	baseTTL time.Duration
}

func NewRedisCache(client redis.UniversalClient) *RedisCache {
	return &RedisCache{client: client, baseTTL: defaultTTL}
}

func (r *RedisCache) Get(ctx context.Context, userID string) (int, error) {
	n, err := r.client.HGet(ctx, countKey(userID), "n").Int()
	if errors.Is(err, redis.Nil) {
		return 0, ErrCacheMiss
	}
	if err != nil {
		return 0, fmt.Errorf("redis get failed: %w", err)
	}
	return n, nil
}

// Set stores count with a jittered TTL so badges cached together do not
// all expire together. An entry with a newer version is left alone.
func (r *RedisCache) Set(ctx context.Context, userID string, count domain.ItemCount) error {
	ttl := r.baseTTL + time.Duration(rand.Int63n(int64(maxJitter)))
	err := setIfNewer.Run(ctx, r.client, []string{countKey(userID)},
		count.Version, count.Lines, ttl.Milliseconds()).Err()
	if err != nil {
		return fmt.Errorf("redis set failed: %w", err)
	}
	return nil
}

func (r *RedisCache) Delete(ctx context.Context, userID string) error {
	if err := r.client.Del(ctx, countKey(userID)).Err(); err != nil {
		return fmt.Errorf("redis delete failed: %w", err)
	}
	return nil
}

func countKey(userID string) string {
	return "cart:count:" + userID
}
