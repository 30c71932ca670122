package registry

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRedisStore(t *testing.T) (*RedisStore, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	rs, err := NewRedisStore(context.Background(), mr.Addr())
	require.NoError(t, err)
	return rs, mr
}

func TestRedisStoreRoundtrip(t *testing.T) {
	rs, _ := newTestRedisStore(t)
	ctx := context.Background()

	require.NoError(t, rs.Save(ctx, "k1", map[string]string{"topic": "t"}))

	raw, age, err := rs.LoadWithAge(ctx, "k1", ResponseTTL)
	require.NoError(t, err)
	assert.JSONEq(t, `{"topic":"t"}`, string(raw))
	assert.Less(t, age, time.Minute)
}

func TestRedisStoreMiss(t *testing.T) {
	rs, _ := newTestRedisStore(t)
	_, err := rs.Load(context.Background(), "absent", ResponseTTL)
	assert.True(t, errors.Is(err, ErrCacheMiss))
}

func TestRedisStoreTTLExpiry(t *testing.T) {
	rs, mr := newTestRedisStore(t)
	ctx := context.Background()

	require.NoError(t, rs.Save(ctx, "soon", map[string]int{"v": 1}))
	mr.FastForward(ResponseTTL + time.Hour)

	_, err := rs.Load(ctx, "soon", ResponseTTL)
	assert.True(t, errors.Is(err, ErrCacheMiss))
}

func TestRedisStoreStatsSkipsTimestampKeys(t *testing.T) {
	rs, _ := newTestRedisStore(t)
	ctx := context.Background()

	require.NoError(t, rs.Save(ctx, "a", map[string]int{"v": 1}))
	require.NoError(t, rs.Save(ctx, "b", map[string]int{"v": 2}))

	stats, err := rs.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, stats.Entries)
	assert.Greater(t, stats.SizeBytes, int64(0))
}

func TestRedisStoreClearAll(t *testing.T) {
	rs, _ := newTestRedisStore(t)
	ctx := context.Background()

	require.NoError(t, rs.Save(ctx, "a", map[string]int{"v": 1}))
	require.NoError(t, rs.ClearAll(ctx))

	stats, err := rs.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, stats.Entries)
}
