package infra

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Gilmore369/tesis-profesorg/middleware/ratelimit/domain"
)

func TestRedisStatsStore_Layout(t *testing.T) {
	mr, rdb := newTestRedis(t)
	s := NewRedisStatsStore(rdb, WithStatsPrefix("st:"), WithStatsTrackKeys(true), WithStatsTTL(time.Hour))
	ctx := context.Background()
	at := time.Date(2026, 10, 18, 12, 30, 0, 0, time.UTC)

	require.NoError(t, s.Record(ctx, domain.StatsEvent{Key: "1.1.1.1", Allowed: true, Method: "POST", Path: "/api/contact", At: at}))
	require.NoError(t, s.Record(ctx, domain.StatsEvent{Key: "1.1.1.1", Allowed: false, Method: "POST", Path: "/api/contact", At: at}))

	assert.Equal(t, "1", mr.HGet("st:total", "allowed"))
	assert.Equal(t, "1", mr.HGet("st:total", "denied"))
	assert.Equal(t, "1", mr.HGet("st:route:POST /api/contact", "denied"))
	assert.Equal(t, "1", mr.HGet("st:minute:202610181230", "allowed"))
	assert.Equal(t, "1", mr.HGet("st:key:1.1.1.1", "allowed"))
	assert.Equal(t, time.Hour, mr.TTL("st:key:1.1.1.1"))
	assert.Equal(t, time.Hour, mr.TTL("st:minute:202610181230"))
	assert.Zero(t, mr.TTL("st:total"))
}

func TestRedisStatsStore_HourBucketAndNoKeys(t *testing.T) {
	mr, rdb := newTestRedis(t)
	s := NewRedisStatsStore(rdb, WithStatsBucket("hour"))
	at := time.Date(2026, 10, 18, 12, 30, 0, 0, time.UTC)

	require.NoError(t, s.Record(context.Background(), domain.StatsEvent{Key: "1.1.1.1", Allowed: true, Method: "POST", Path: "/contact", At: at}))

	assert.Equal(t, "1", mr.HGet("contact:stats:hour:2026101812", "allowed"))
	assert.False(t, mr.Exists("contact:stats:key:1.1.1.1"))
}

func TestRedisStatsStore_Snapshot(t *testing.T) {
	_, rdb := newTestRedis(t)
	s := NewRedisStatsStore(rdb, WithStatsBucket("none"))
	ctx := context.Background()

	for _, allowed := range []bool{true, true, false} {
		require.NoError(t, s.Record(ctx, domain.StatsEvent{Allowed: allowed, Method: "POST", Path: "/api/contact"}))
	}
	require.NoError(t, s.Record(ctx, domain.StatsEvent{Allowed: true, Method: "POST", Path: "/contact"}))

	snap, err := s.Snapshot(ctx)
	require.NoError(t, err)
	assert.Equal(t, Counters{Allowed: 3, Denied: 1}, snap.Total)
	assert.Equal(t, Counters{Allowed: 2, Denied: 1}, snap.ByRoute["POST /api/contact"])
	assert.Equal(t, Counters{Allowed: 1}, snap.ByRoute["POST /contact"])
	assert.Nil(t, snap.ByKey)
}

func TestRedisStatsStore_NilIsNoop(t *testing.T) {
	var s *RedisStatsStore
	assert.NoError(t, s.Record(context.Background(), domain.StatsEvent{}))
}
