package team

import (
	"context"
	"errors"
	"time"

	"github.com/goccy/go-json"
	"github.com/krobus00/odds-tracker/internal/constant"
	"github.com/krobus00/odds-tracker/internal/entity"
	"github.com/redis/go-redis/v9"
)

const defaultTeamCacheTTL = 24 * time.Hour

type RedisTeamCache struct {
	client *redis.Client
	ttl    time.Duration
}

func NewRedisTeamCache(client *redis.Client, ttl time.Duration) *RedisTeamCache {
	if ttl <= 0 {
		ttl = defaultTeamCacheTTL
	}

	return &RedisTeamCache{client: client, ttl: ttl}
}

func (c *RedisTeamCache) Get(ctx context.Context) ([]entity.Team, bool, error) {
	raw, err := c.client.Get(ctx, constant.TeamCacheKey).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, false, nil
		}
		return nil, false, err
	}

	var teams []entity.Team
	if err := json.Unmarshal(raw, &teams); err != nil {
		return nil, false, err
	}

	return teams, true, nil
}

func (c *RedisTeamCache) Save(ctx context.Context, teams []entity.Team) error {
	payload, err := json.Marshal(teams)
	if err != nil {
		return err
	}

	return c.client.Set(ctx, constant.TeamCacheKey, payload, c.ttl).Err()
}
