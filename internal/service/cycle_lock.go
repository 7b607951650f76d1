package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/abelcubano/main-project/internal/billing"
	"github.com/abelcubano/main-project/internal/pkg/ulid"
)

// ErrLockHeld is returned by a CycleLock when another run holds the period.
var ErrLockHeld = errors.New("cycle lock held")

// CycleLock serializes billing cycles for the same period across processes.
type CycleLock interface {
	// Acquire takes the lock for period. The returned func releases it.
	Acquire(ctx context.Context, period billing.Period) (release func(context.Context) error, err error)
}

// releaseScript deletes the key only if it still holds our token, so an
// expired lock taken over by another run is left alone.
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0`)

// refreshScript extends the TTL only while the key still holds our token.
var refreshScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("PEXPIRE", KEYS[1], ARGV[2])
end
return 0`)

// RedisCycleLock is a CycleLock backed by a Redis key with a TTL. The TTL is
// extended every third of its length until the lock is released, so it only
// bounds how long a crashed runner blocks the period.
type RedisCycleLock struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisCycleLock creates a Redis-backed cycle lock.
func NewRedisCycleLock(client *redis.Client, ttl time.Duration) *RedisCycleLock {
	return &RedisCycleLock{client: client, ttl: ttl}
}

func lockKey(period billing.Period) string {
	return "billing:cycle:" + period.String()
}

// Acquire implements CycleLock.
func (l *RedisCycleLock) Acquire(ctx context.Context, period billing.Period) (func(context.Context) error, error) {
	key := lockKey(period)
	token := ulid.New()

	ok, err := l.client.SetNX(ctx, key, token, l.ttl).Result()
	if err != nil {
		return nil, fmt.Errorf("acquire cycle lock: %w", err)
	}
	if !ok {
		return nil, ErrLockHeld
	}

	stop := make(chan struct{})
	done := make(chan struct{})
	go l.keepAlive(key, token, stop, done)

	var once sync.Once
	return func(ctx context.Context) error {
		once.Do(func() {
			close(stop)
			<-done
		})
		if err := releaseScript.Run(ctx, l.client, []string{key}, token).Err(); err != nil {
			return fmt.Errorf("release cycle lock: %w", err)
		}
		return nil
	}, nil
}

func (l *RedisCycleLock) keepAlive(key, token string, stop <-chan struct{}, done chan<- struct{}) {
	defer close(done)
	if l.ttl <= 0 {
		return
	}

	ticker := time.NewTicker(max(l.ttl/3, time.Millisecond))
	defer ticker.Stop()
	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			ctx, cancel := context.WithTimeout(context.Background(), l.ttl/3+time.Second)
			held, err := refreshScript.Run(ctx, l.client, []string{key}, token, l.ttl.Milliseconds()).Int()
			cancel()
			if errors.Is(err, redis.ErrClosed) || (err == nil && held == 0) {
				// Client gone or lock taken over; nothing left to extend.
				return
			}
		}
	}
}
