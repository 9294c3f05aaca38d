package cache

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/kamaqiyasov/vkinder/internal/config"
	"github.com/redis/go-redis/v9"
)

type RedisCache struct {
	Client *redis.Client
}

// NewRedisCache initializes Redis client from config.
// Only Addr is mandatory, Password/DB are optional.
func NewRedisCache(cfg *config.Config) *RedisCache {
	opts := &redis.Options{
		Addr: cfg.Redis.Addr,
	}
	if cfg.Redis.Password != "" {
		opts.Password = cfg.Redis.Password
	}
	if cfg.Redis.DB != 0 {
		opts.DB = cfg.Redis.DB
	}
	return &RedisCache{Client: redis.NewClient(opts)}
}

func (c *RedisCache) Ping(ctx context.Context) error {
	return c.Client.Ping(ctx).Err()
}

func (c *RedisCache) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	return c.Client.Set(ctx, key, value, ttl).Err()
}

func (c *RedisCache) Get(ctx context.Context, key string) (string, error) {
	return c.Client.Get(ctx, key).Result()
}

func (c *RedisCache) Del(ctx context.Context, key string) error {
	return c.Client.Del(ctx, key).Err()
}

// KeyForPhotos generates the Redis key for a candidate's cached photo set.
func (c *RedisCache) KeyForPhotos(candidateID int64) string {
	return fmt.Sprintf("photos:%d", candidateID)
}

// GetPhotos returns the cached photo JSON for a candidate, or "" on miss.
func (c *RedisCache) GetPhotos(ctx context.Context, candidateID int64) (string, error) {
	val, err := c.Get(ctx, c.KeyForPhotos(candidateID))
	if errors.Is(err, redis.Nil) {
		return "", nil // cache miss
	}
	return val, err
}

// SetPhotos caches the photo JSON for a candidate with a 1h TTL.
func (c *RedisCache) SetPhotos(ctx context.Context, candidateID int64, photosJSON string) error {
	return c.Set(ctx, c.KeyForPhotos(candidateID), photosJSON, time.Hour)
}

// KeyForFavoriteCount generates the Redis key for a user's favorite count.
func (c *RedisCache) KeyForFavoriteCount(userID uint64) string {
	return fmt.Sprintf("favorites:count:%d", userID)
}

func (c *RedisCache) SetFavoriteCount(ctx context.Context, userID uint64, count int64) error {
	// Always refresh TTL when updating
	return c.Client.Set(ctx, c.KeyForFavoriteCount(userID), count, time.Hour).Err()
}

// GetFavoriteCount returns the cached count; ok is false on miss.
func (c *RedisCache) GetFavoriteCount(ctx context.Context, userID uint64) (int64, bool, error) {
	val, err := c.Client.Get(ctx, c.KeyForFavoriteCount(userID)).Result()
	if errors.Is(err, redis.Nil) {
		return 0, false, nil
	} else if err != nil {
		return 0, false, err
	}
	n, err := strconv.ParseInt(val, 10, 64)
	if err != nil {
		return 0, false, nil
	}
	// refresh TTL on access
	_ = c.Client.Expire(ctx, c.KeyForFavoriteCount(userID), time.Hour).Err()
	return n, true, nil
}
