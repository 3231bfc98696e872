package linemovement

import (
	"context"
	"errors"
	"time"

	"github.com/goccy/go-json"
	"github.com/krobus00/odds-tracker/internal/constant"
	"github.com/krobus00/odds-tracker/internal/entity"
	"github.com/redis/go-redis/v9"
)

const defaultCacheTTL = 10 * time.Minute

type RedisLineMovementCache struct {
	client *redis.Client
	ttl    time.Duration
}

func NewRedisLineMovementCache(client *redis.Client, ttl time.Duration) *RedisLineMovementCache {
	if ttl <= 0 {
		ttl = defaultCacheTTL
	}

	return &RedisLineMovementCache{client: client, ttl: ttl}
}

func (c *RedisLineMovementCache) Get(ctx context.Context, eventID string) (*entity.LineMovement, bool, error) {
	raw, err := c.client.Get(ctx, constant.GetLineMovementCacheKey(eventID)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, false, nil
		}
		return nil, false, err
	}

	var movement entity.LineMovement
	if err := json.Unmarshal(raw, &movement); err != nil {
		return nil, false, err
	}

	return &movement, true, nil
}

func (c *RedisLineMovementCache) Save(ctx context.Context, movement entity.LineMovement) error {
	payload, err := json.Marshal(movement)
	if err != nil {
		return err
	}

	return c.client.Set(ctx, constant.GetLineMovementCacheKey(movement.EventID), payload, c.ttl).Err()
}
