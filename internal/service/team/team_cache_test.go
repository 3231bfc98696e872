package team

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/guregu/null/v6"
	"github.com/krobus00/odds-tracker/internal/constant"
	"github.com/krobus00/odds-tracker/internal/entity"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRedisTeamCache(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	cache := NewRedisTeamCache(client, time.Hour)
	ctx := context.Background()

	_, ok, err := cache.Get(ctx)
	require.NoError(t, err)
	assert.False(t, ok)

	teams := []entity.Team{{
		TeamAbbr:        "DET",
		TeamName:        "Detroit Lions",
		ParticipantName: null.StringFrom("Detroit Lions"),
	}}
	require.NoError(t, cache.Save(ctx, teams))
	assert.Equal(t, time.Hour, mr.TTL(constant.TeamCacheKey))

	got, ok, err := cache.Get(ctx)
	require.NoError(t, err)
	require.True(t, ok)
	require.Len(t, got, 1)
	assert.Equal(t, "Detroit Lions", got[0].ParticipantName.String)
	assert.False(t, got[0].TeamColor2.Valid)

	mr.FastForward(2 * time.Hour)
	_, ok, err = cache.Get(ctx)
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, client.Set(ctx, constant.TeamCacheKey, "not json", 0).Err())
	_, _, err = cache.Get(ctx)
	assert.Error(t, err)
}

func TestNewRedisTeamCache_DefaultTTL(t *testing.T) {
	cache := NewRedisTeamCache(nil, 0)
	assert.Equal(t, defaultTeamCacheTTL, cache.ttl)
}
