package cache

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	redis "github.com/redis/go-redis/v9"

	"catatkas/backend/internal/domain"
)

type RedisHistoryCache struct {
	client *redis.Client
}

func NewRedisHistoryCache(addr string, password string, db int) *RedisHistoryCache {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	return &RedisHistoryCache{client: client}
}

func (c *RedisHistoryCache) Ping(ctx context.Context) error {
	return c.client.Ping(ctx).Err()
}

func (c *RedisHistoryCache) Close() error {
	return c.client.Close()
}

func (c *RedisHistoryCache) Get(ctx context.Context, ownerID string) ([]domain.Sale, bool, error) {
	val, err := c.client.Get(ctx, historyKey(ownerID)).Result()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}

	var sales []domain.Sale
	if err := json.Unmarshal([]byte(val), &sales); err != nil {
		return nil, false, err
	}
	return sales, true, nil
}

func (c *RedisHistoryCache) Set(ctx context.Context, ownerID string, sales []domain.Sale, ttl time.Duration) error {
	if sales == nil {
		sales = []domain.Sale{}
	}
	payload, err := json.Marshal(sales)
	if err != nil {
		return err
	}
	return c.client.Set(ctx, historyKey(ownerID), payload, ttl).Err()
}

func (c *RedisHistoryCache) Invalidate(ctx context.Context, ownerID string) error {
	return c.client.Del(ctx, historyKey(ownerID)).Err()
}
