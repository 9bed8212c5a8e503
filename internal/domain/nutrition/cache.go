package nutrition

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

// Cache stores estimates by item-list fingerprint.
type Cache interface {
	Get(ctx context.Context, key string) (*Estimate, error)
	Set(ctx context.Context, key string, est Estimate) error
}

// ErrCacheMiss is returned by Cache.Get when nothing is stored under the key.
var ErrCacheMiss = errors.New("nutrition: cache miss")

const cacheKeyPrefix = "nutrition:estimate:"

// CacheKey fingerprints an item list. Case and surrounding whitespace are
// ignored and blank items are dropped, so cosmetic differences share a key.
func CacheKey(foods []FoodItem, drinks []DrinkItem) string {
	norm := func(s string) string { return strings.ToLower(strings.TrimSpace(s)) }
	var b strings.Builder
	for _, f := range FilterFoods(foods) {
		fmt.Fprintf(&b, "f|%s|%s|%s\n", norm(f.Kind), norm(f.Quantity), norm(f.CookingMethod))
	}
	for _, d := range FilterDrinks(drinks) {
		fmt.Fprintf(&b, "d|%s|%s\n", norm(d.Kind), norm(d.Quantity))
	}
	sum := sha256.Sum256([]byte(b.String()))
	return cacheKeyPrefix + hex.EncodeToString(sum[:])
}

// RedisCache keeps estimates in Redis with a fixed TTL.
type RedisCache struct {
	client *redis.Client
	ttl    time.Duration
}

func NewRedisCache(client *redis.Client, ttl time.Duration) *RedisCache {
	return &RedisCache{client: client, ttl: ttl}
}

func (c *RedisCache) Get(ctx context.Context, key string) (*Estimate, error) {
	raw, err := c.client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrCacheMiss
	}
	if err != nil {
		return nil, fmt.Errorf("redis get %s: %w", key, err)
	}
	var est Estimate
	if err := json.Unmarshal(raw, &est); err != nil {
		return nil, fmt.Errorf("decode cached estimate: %w", err)
	}
	return &est, nil
}

func (c *RedisCache) Set(ctx context.Context, key string, est Estimate) error {
	raw, err := json.Marshal(est)
	if err != nil {
		return fmt.Errorf("encode estimate: %w", err)
	}
	if err := c.client.Set(ctx, key, raw, c.ttl).Err(); err != nil {
		return fmt.Errorf("redis set %s: %w", key, err)
	}
	return nil
}
