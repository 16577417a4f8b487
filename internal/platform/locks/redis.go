package locks

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	goredis "github.com/redis/go-redis/v9"

	"github.com/yungbote/portfolio-backend/internal/platform/logger"
)

const (
	defaultRedisTTL   = 2 * time.Minute
	defaultRetryDelay = 25 * time.Millisecond
	releaseTimeout    = 5 * time.Second
)

// releaseScript deletes the key only while it still carries our token.
var releaseScript = goredis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// extendScript resets the expiry only while the key still carries our token.
var extendScript = goredis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("PEXPIRE", KEYS[1], ARGV[2])
end
return 0
`)

type RedisOptions struct {
	Prefix     string
	TTL        time.Duration
	RetryDelay time.Duration
}

// Redis is a Locker backed by SET NX PX with a token-checked release.
// The TTL bounds how long a crashed holder can block others; a live holder
// refreshes it every third of the TTL until release.
type Redis struct {
	log        *logger.Logger
	rdb        goredis.Cmdable
	prefix     string
	ttl        time.Duration
	retryDelay time.Duration
}

var _ Locker = (*Redis)(nil)

func NewRedis(log *logger.Logger, rdb goredis.Cmdable, opts RedisOptions) *Redis {
	if log == nil {
		log = logger.Nop()
	}
	if opts.Prefix == "" {
		opts.Prefix = "portfolio:lock:"
	}
	if opts.TTL <= 0 {
		opts.TTL = defaultRedisTTL
	}
	if opts.RetryDelay <= 0 {
		opts.RetryDelay = defaultRetryDelay
	}
	return &Redis{
		log:        log.With("service", "RedisLocker"),
		rdb:        rdb,
		prefix:     opts.Prefix,
		ttl:        opts.TTL,
		retryDelay: opts.RetryDelay,
	}
}

func (r *Redis) Lock(ctx context.Context, key string) (func(), error) {
	full := r.prefix + key
	token := uuid.NewString()

	timer := time.NewTimer(0)
	defer timer.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil, notAcquired(key, ctx.Err())
		case <-timer.C:
		}
		ok, err := r.rdb.SetNX(ctx, full, token, r.ttl).Result()
		if err != nil {
			if ctx.Err() != nil {
				return nil, notAcquired(key, ctx.Err())
			}
			return nil, notAcquired(key, err)
		}
		if ok {
			break
		}
		timer.Reset(r.retryDelay)
	}

	stop := make(chan struct{})
	done := make(chan struct{})
	go r.keepAlive(full, token, stop, done)

	var once sync.Once
	return func() {
		once.Do(func() {
			close(stop)
			<-done
			rctx, cancel := context.WithTimeout(context.Background(), releaseTimeout)
			defer cancel()
			if err := releaseScript.Run(rctx, r.rdb, []string{full}, token).Err(); err != nil {
				r.log.Warn("Lock release failed; key will expire", "key", full, "error", err)
			}
		})
	}, nil
}

func (r *Redis) keepAlive(key, token string, stop <-chan struct{}, done chan<- struct{}) {
	defer close(done)
	ticker := time.NewTicker(r.ttl / 3)
	defer ticker.Stop()
	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
		}
		ctx, cancel := context.WithTimeout(context.Background(), releaseTimeout)
		n, err := extendScript.Run(ctx, r.rdb, []string{key}, token, r.ttl.Milliseconds()).Int64()
		cancel()
		switch {
		case err != nil:
			r.log.Warn("Lock refresh failed", "key", key, "error", err)
		case n == 0:
			r.log.Warn("Lock expired while held", "key", key)
			return
		}
	}
}
