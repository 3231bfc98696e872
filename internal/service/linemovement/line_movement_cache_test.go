package linemovement

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/krobus00/odds-tracker/internal/constant"
	"github.com/krobus00/odds-tracker/internal/entity"
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRedis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	return mr, client
}

func TestRedisLineMovementCache(t *testing.T) {
	mr, client := newTestRedis(t)
	cache := NewRedisLineMovementCache(client, time.Minute)
	ctx := context.Background()

	_, ok, err := cache.Get(ctx, "evt-1")
	require.NoError(t, err)
	assert.False(t, ok)

	movement := entity.LineMovement{
		EventID:  "evt-1",
		HomeTeam: "Miami Dolphins",
		Changes: []entity.OfferChange{{
			Bookmaker:     "kambi",
			OfferType:     entity.OfferTypeH2H,
			Choice:        "MIA Dolphins",
			PreviousPrice: decimal.RequireFromString("1.85"),
			CurrentPrice:  decimal.RequireFromString("1.8"),
			PriceChange:   decimal.RequireFromString("-0.05"),
		}},
	}
	require.NoError(t, cache.Save(ctx, movement))

	key := constant.GetLineMovementCacheKey("evt-1")
	assert.True(t, mr.Exists(key))
	assert.Equal(t, time.Minute, mr.TTL(key))

	got, ok, err := cache.Get(ctx, "evt-1")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "Miami Dolphins", got.HomeTeam)
	require.Len(t, got.Changes, 1)
	assert.True(t, got.Changes[0].PriceChange.Equal(decimal.RequireFromString("-0.05")))

	mr.FastForward(2 * time.Minute)
	_, ok, err = cache.Get(ctx, "evt-1")
	require.NoError(t, err)
	assert.False(t, ok, "entry expires after ttl")
}

func TestRedisLineMovementCache_DefaultTTL(t *testing.T) {
	_, client := newTestRedis(t)

	cache := NewRedisLineMovementCache(client, 0)
	assert.Equal(t, defaultCacheTTL, cache.ttl)
}
