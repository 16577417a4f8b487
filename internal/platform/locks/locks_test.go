package locks

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yungbote/portfolio-backend/internal/platform/logger"
)

func setupTestRedis(t *testing.T) (*goredis.Client, *miniredis.Miniredis) {
	t.Helper()
	mr, err := miniredis.Run()
	require.NoError(t, err)
	client := goredis.NewClient(&goredis.Options{Addr: mr.Addr()})
	require.NoError(t, client.Ping(context.Background()).Err())
	t.Cleanup(func() {
		_ = client.Close()
		mr.Close()
	})
	return client, mr
}

func lockers(t *testing.T) map[string]Locker {
	client, _ := setupTestRedis(t)
	return map[string]Locker{
		"local": NewLocal(),
		"redis": NewRedis(logger.Nop(), client, RedisOptions{RetryDelay: 5 * time.Millisecond}),
	}
}

func TestLockerMutualExclusion(t *testing.T) {
	for name, l := range lockers(t) {
		t.Run(name, func(t *testing.T) {
			var inside, maxInside int32
			var wg sync.WaitGroup
			for i := 0; i < 8; i++ {
				wg.Add(1)
				go func() {
					defer wg.Done()
					release, err := l.Lock(context.Background(), "project-1")
					if !assert.NoError(t, err) {
						return
					}
					defer release()
					n := atomic.AddInt32(&inside, 1)
					for {
						m := atomic.LoadInt32(&maxInside)
						if n <= m || atomic.CompareAndSwapInt32(&maxInside, m, n) {
							break
						}
					}
					time.Sleep(2 * time.Millisecond)
					atomic.AddInt32(&inside, -1)
				}()
			}
			wg.Wait()
			assert.Equal(t, int32(1), atomic.LoadInt32(&maxInside))
		})
	}
}

func TestLockerIndependentKeys(t *testing.T) {
	for name, l := range lockers(t) {
		t.Run(name, func(t *testing.T) {
			r1, err := l.Lock(context.Background(), "a")
			require.NoError(t, err)
			defer r1()
			ctx, cancel := context.WithTimeout(context.Background(), time.Second)
			defer cancel()
			r2, err := l.Lock(ctx, "b")
			require.NoError(t, err)
			r2()
		})
	}
}

func TestLockerContextCancelWhileWaiting(t *testing.T) {
	for name, l := range lockers(t) {
		t.Run(name, func(t *testing.T) {
			release, err := l.Lock(context.Background(), "busy")
			require.NoError(t, err)

			ctx, cancel := context.WithTimeout(context.Background(), 30*time.Millisecond)
			defer cancel()
			_, err = l.Lock(ctx, "busy")
			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrNotAcquired))
			assert.True(t, errors.Is(err, context.DeadlineExceeded))

			release()
			release() // idempotent
			again, err := l.Lock(context.Background(), "busy")
			require.NoError(t, err)
			again()
		})
	}
}

func TestLocalDropsIdleEntries(t *testing.T) {
	l := NewLocal()
	release, err := l.Lock(context.Background(), "k")
	require.NoError(t, err)
	assert.Equal(t, 1, l.Len())
	release()
	assert.Equal(t, 0, l.Len())
}

func TestRedisReleaseKeepsForeignToken(t *testing.T) {
	client, mr := setupTestRedis(t)
	l := NewRedis(logger.Nop(), client, RedisOptions{Prefix: "t:", TTL: time.Second})

	release, err := l.Lock(context.Background(), "k")
	require.NoError(t, err)
	assert.True(t, mr.Exists("t:k"))

	// Simulate expiry followed by another holder taking the key.
	mr.FastForward(2 * time.Second)
	require.False(t, mr.Exists("t:k"))
	require.NoError(t, mr.Set("t:k", "someone-else"))

	release()
	got, err := mr.Get("t:k")
	require.NoError(t, err)
	assert.Equal(t, "someone-else", got)
}

func TestRedisRefreshesHeldLock(t *testing.T) {
	client, mr := setupTestRedis(t)
	l := NewRedis(logger.Nop(), client, RedisOptions{Prefix: "t:", TTL: 300 * time.Millisecond})

	release, err := l.Lock(context.Background(), "project:slow-upload")
	require.NoError(t, err)

	// A write outliving the TTL: time jumps close to expiry, the holder must push it back.
	mr.FastForward(250 * time.Millisecond)
	require.Eventually(t, func() bool {
		return mr.TTL("t:project:slow-upload") > 200*time.Millisecond
	}, 2*time.Second, 10*time.Millisecond)
	mr.FastForward(250 * time.Millisecond)
	require.Eventually(t, func() bool {
		return mr.TTL("t:project:slow-upload") > 200*time.Millisecond
	}, 2*time.Second, 10*time.Millisecond)
	assert.True(t, mr.Exists("t:project:slow-upload"))

	release()
	assert.False(t, mr.Exists("t:project:slow-upload"))
}
