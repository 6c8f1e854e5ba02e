package locker

import (
	"context"
	"fmt"
	"time"

	"github.com/go-redsync/redsync/v4"
	"github.com/go-redsync/redsync/v4/redis/goredis/v9"
	goredislib "github.com/redis/go-redis/v9"

	"github.com/nkiryanov/pointd/internal/logger"
)

// DefaultRedisExpiry is used when RedisConfig.Expiry is not set
const DefaultRedisExpiry = 10 * time.Second

const (
	defaultRedisPrefix     = "point:lock:"
	defaultRedisTries      = 32
	defaultRedisRetryDelay = 50 * time.Millisecond
	unlockTimeout          = time.Second
)

type RedisConfig struct {
	// Prefix added to every key, defaults to 'point:lock:'
	Prefix string

	// Lock expiry, must be longer than the slowest locked section
	Expiry time.Duration

	// Attempts to acquire the lock before giving up
	Tries int

	// Delay between attempts
	RetryDelay time.Duration
}

// Redis is a Locker shared between processes; every key is a redsync mutex
type Redis struct {
	rs     *redsync.Redsync
	config RedisConfig
	logger logger.Logger
}

func NewRedis(client goredislib.UniversalClient, config RedisConfig, l logger.Logger) *Redis {
	if config.Prefix == "" {
		config.Prefix = defaultRedisPrefix
	}
	if config.Expiry <= 0 {
		config.Expiry = DefaultRedisExpiry
	}
	if config.Tries <= 0 {
		config.Tries = defaultRedisTries
	}
	if config.RetryDelay <= 0 {
		config.RetryDelay = defaultRedisRetryDelay
	}

	return &Redis{
		rs:     redsync.New(goredis.NewPool(client)),
		config: config,
		logger: l,
	}
}

// WithLock returns fn error only. Once fn has run its writes are done,
// so a failed release (expired lock, redis gone) is logged and not reported.
func (r *Redis) WithLock(ctx context.Context, key string, fn func(context.Context) error) error {
	name := r.config.Prefix + key
	mutex := r.rs.NewMutex(
		name,
		redsync.WithExpiry(r.config.Expiry),
		redsync.WithTries(r.config.Tries),
		redsync.WithRetryDelay(r.config.RetryDelay),
	)

	if err := mutex.LockContext(ctx); err != nil {
		return fmt.Errorf("lock %q not acquired: %w", key, err)
	}

	defer func() {
		// Unlock with fresh context: the caller one may be already cancelled
		unlockCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), unlockTimeout)
		defer cancel()

		if ok, err := mutex.UnlockContext(unlockCtx); !ok || err != nil {
			r.logger.Error("Failed to release lock", "lock_key", name, "unlock_ok", ok, "error", err)
		}
	}()

	return fn(ctx)
}
