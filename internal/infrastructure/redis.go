package infrastructure

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/krobus00/odds-tracker/internal/config"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
)

const defaultRedisMaxRetry = 3

func NewRedisClient(ctx context.Context, cfg config.RedisConfig) (*redis.Client, error) {
	if strings.TrimSpace(cfg.CacheDSN) == "" {
		return nil, errors.New("redis cache_dsn is required")
	}

	options, err := redis.ParseURL(cfg.CacheDSN)
	if err != nil {
		return nil, fmt.Errorf("parse redis cache_dsn: %w", err)
	}

	client := redis.NewClient(options)
	logger := logrus.WithField("redis_dsn", MaskDSN(cfg.CacheDSN))

	err = Retry(ctx, logger, RetryPolicy{MaxRetry: defaultRedisMaxRetry}, func(ctx context.Context) error {
		pingCtx, cancel := context.WithTimeout(ctx, defaultConnectTimeout)
		defer cancel()

		return client.Ping(pingCtx).Err()
	})
	if err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}

	logger.WithField("db", options.DB).Info("redis connection established")

	return client, nil
}
