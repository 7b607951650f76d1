package service

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/abelcubano/main-project/internal/billing"
)

func newTestRedis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	return mr, client
}

func TestRedisCycleLock(t *testing.T) {
	ctx := context.Background()
	period := billing.Period{Year: 2026, Month: time.March}

	t.Run("acquire and release", func(t *testing.T) {
		mr, client := newTestRedis(t)
		lock := NewRedisCycleLock(client, 15*time.Minute)

		release, err := lock.Acquire(ctx, period)
		require.NoError(t, err)
		assert.True(t, mr.Exists("billing:cycle:2026-03"))
		assert.Equal(t, 15*time.Minute, mr.TTL("billing:cycle:2026-03"))

		require.NoError(t, release(ctx))
		assert.False(t, mr.Exists("billing:cycle:2026-03"))
	})

	t.Run("second acquire is refused", func(t *testing.T) {
		_, client := newTestRedis(t)
		lock := NewRedisCycleLock(client, time.Minute)

		_, err := lock.Acquire(ctx, period)
		require.NoError(t, err)

		_, err = lock.Acquire(ctx, period)
		assert.ErrorIs(t, err, ErrLockHeld)

		_, err = lock.Acquire(ctx, billing.Period{Year: 2026, Month: time.April})
		assert.NoError(t, err)
	})

	t.Run("release leaves a lock taken over after expiry", func(t *testing.T) {
		mr, client := newTestRedis(t)
		lock := NewRedisCycleLock(client, time.Minute)

		release, err := lock.Acquire(ctx, period)
		require.NoError(t, err)

		mr.FastForward(2 * time.Minute)
		_, err = lock.Acquire(ctx, period)
		require.NoError(t, err)

		require.NoError(t, release(ctx))
		assert.True(t, mr.Exists("billing:cycle:2026-03"))
	})

	t.Run("ttl is extended while held", func(t *testing.T) {
		mr, client := newTestRedis(t)
		lock := NewRedisCycleLock(client, 300*time.Millisecond)

		release, err := lock.Acquire(ctx, period)
		require.NoError(t, err)

		mr.FastForward(250 * time.Millisecond)
		require.Eventually(t, func() bool {
			return mr.TTL("billing:cycle:2026-03") > 200*time.Millisecond
		}, 2*time.Second, 10*time.Millisecond)

		require.NoError(t, release(ctx))
		assert.False(t, mr.Exists("billing:cycle:2026-03"))
		// Releasing twice is harmless.
		assert.NoError(t, release(ctx))
	})

	t.Run("extension stops after takeover", func(t *testing.T) {
		mr, client := newTestRedis(t)
		lock := NewRedisCycleLock(client, 300*time.Millisecond)

		release, err := lock.Acquire(ctx, period)
		require.NoError(t, err)
		defer release(ctx)

		require.NoError(t, mr.Set("billing:cycle:2026-03", "other-runner"))
		mr.SetTTL("billing:cycle:2026-03", 50*time.Millisecond)
		time.Sleep(250 * time.Millisecond)

		assert.Equal(t, 50*time.Millisecond, mr.TTL("billing:cycle:2026-03"))
	})

	t.Run("redis unavailable", func(t *testing.T) {
		mr, client := newTestRedis(t)
		mr.Close()
		lock := NewRedisCycleLock(client, time.Minute)

		_, err := lock.Acquire(ctx, period)
		assert.Error(t, err)
		assert.NotErrorIs(t, err, ErrLockHeld)
	})
}
