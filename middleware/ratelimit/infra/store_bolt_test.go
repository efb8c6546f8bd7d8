package infra

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Gilmore369/tesis-profesorg/middleware/ratelimit/domain"
)

func openTestBolt(t *testing.T, path string, policy domain.Policy, clock *fakeClock) *BoltStore {
	t.Helper()
	s, err := OpenBoltStore(path, policy, WithClock(clock.Now), WithCleanupEvery(0))
	require.NoError(t, err)
	return s
}

func TestBoltStore_CountsAndBlocks(t *testing.T) {
	clock := newFakeClock()
	s := openTestBolt(t, filepath.Join(t.TempDir(), "rl.db"), domain.Policy{Window: 15 * time.Minute, Max: 5}, clock)
	t.Cleanup(func() { _ = s.Close() })
	ctx := context.Background()

	for _, want := range []int{4, 3, 2, 1, 0} {
		dec, err := s.CheckAndIncrement(ctx, "10.0.0.1")
		require.NoError(t, err)
		require.True(t, dec.Allowed)
		assert.Equal(t, want, dec.Remaining)
	}

	dec, err := s.CheckAndIncrement(ctx, "10.0.0.1")
	require.NoError(t, err)
	assert.False(t, dec.Allowed)
	assert.True(t, dec.ResetAt.Equal(clock.Now().Add(15*time.Minute)))
}

func TestBoltStore_SurvivesReopen(t *testing.T) {
	clock := newFakeClock()
	path := filepath.Join(t.TempDir(), "rl.db")
	policy := domain.Policy{Window: time.Hour, Max: 2}

	s := openTestBolt(t, path, policy, clock)
	_, err := s.CheckAndIncrement(context.Background(), "k")
	require.NoError(t, err)
	_, err = s.CheckAndIncrement(context.Background(), "k")
	require.NoError(t, err)
	require.NoError(t, s.Close())

	s = openTestBolt(t, path, policy, clock)
	t.Cleanup(func() { _ = s.Close() })
	dec, err := s.CheckAndIncrement(context.Background(), "k")
	require.NoError(t, err)
	assert.False(t, dec.Allowed, "count must persist across restarts")
}

func TestBoltStore_ResetAndCleanup(t *testing.T) {
	clock := newFakeClock()
	s := openTestBolt(t, filepath.Join(t.TempDir(), "rl.db"), domain.Policy{Window: time.Minute, Max: 1}, clock)
	t.Cleanup(func() { _ = s.Close() })
	ctx := context.Background()

	_, _ = s.CheckAndIncrement(ctx, "a")
	_, _ = s.CheckAndIncrement(ctx, "b")

	clock.Advance(2 * time.Minute)
	require.NoError(t, s.Cleanup())
	n, err := s.Len()
	require.NoError(t, err)
	assert.Equal(t, 0, n)

	dec, err := s.CheckAndIncrement(ctx, "a")
	require.NoError(t, err)
	assert.True(t, dec.Allowed)
	assert.Equal(t, 0, dec.Remaining)
}

func TestBoltStore_CancelledContext(t *testing.T) {
	s := openTestBolt(t, filepath.Join(t.TempDir(), "rl.db"), domain.DefaultPolicy(), newFakeClock())
	t.Cleanup(func() { _ = s.Close() })

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := s.CheckAndIncrement(ctx, "k")
	assert.ErrorIs(t, err, context.Canceled)
}

func TestRecordCodec(t *testing.T) {
	r := domain.Record{Count: 3, ResetAt: time.Date(2026, 1, 2, 3, 4, 5, 6, time.UTC)}
	got, ok := decodeRecord(encodeRecord(r))
	require.True(t, ok)
	assert.Equal(t, r.Count, got.Count)
	assert.True(t, r.ResetAt.Equal(got.ResetAt))

	_, ok = decodeRecord([]byte("garbage"))
	assert.False(t, ok)
}
