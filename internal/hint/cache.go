package hint

import (
	"context"
	"crypto/sha1"
	"encoding/hex"
	"errors"
	"strings"
	"time"

	corechess "github.com/park285/riddlechess/internal/chess"
	"github.com/redis/go-redis/v9"
)

const defaultCacheTTL = 7 * 24 * time.Hour

// Cache stores generated riddles by position, difficulty and move.
type Cache interface {
	Get(ctx context.Context, key string) (string, bool, error)
	Set(ctx context.Context, key, text string) error
}

type RedisCache struct {
	rdb *redis.Client
	ttl time.Duration
}

func NewRedisCache(rdb *redis.Client, ttl time.Duration) *RedisCache {
	if ttl <= 0 {
		ttl = defaultCacheTTL
	}
	return &RedisCache{rdb: rdb, ttl: ttl}
}

func (c *RedisCache) Get(ctx context.Context, key string) (string, bool, error) {
	text, err := c.rdb.Get(ctx, key).Result()
	if errors.Is(err, redis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return text, true, nil
}

func (c *RedisCache) Set(ctx context.Context, key, text string) error {
	return c.rdb.Set(ctx, key, text, c.ttl).Err()
}

// CacheKey hashes the position so keys stay short and uniform.
func CacheKey(fen string, d corechess.Difficulty, move string) string {
	sum := sha1.Sum([]byte(strings.TrimSpace(fen) + "|" + string(d) + "|" + move))
	return "riddle:hint:" + hex.EncodeToString(sum[:])
}
