package locker

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	goredislib "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nkiryanov/pointd/internal/logger"
)

// errorLogger remembers messages logged at Error level
type errorLogger struct {
	logger.Logger

	mu       sync.Mutex
	messages []string
}

func (l *errorLogger) Error(msg string, _ ...any) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.messages = append(l.messages, msg)
}

func TestParseBackend(t *testing.T) {
	tests := []struct {
		value    string
		expected string
	}{
		{"local", BackendLocal},
		{"LOCAL", BackendLocal},
		{"redis", BackendRedis},
		{"none", BackendNone},
	}

	for _, tt := range tests {
		t.Run(tt.value, func(t *testing.T) {
			got, err := ParseBackend(tt.value)

			require.NoError(t, err)
			require.Equal(t, tt.expected, got)
		})
	}

	t.Run("unknown", func(t *testing.T) {
		_, err := ParseBackend("etcd")

		require.ErrorIs(t, err, ErrUnknownBackend)
	})
}

// Run many increments of a shared counter under the same key.
// Each increment reads, yields and writes, so without exclusion updates get lost.
func assertExclusive(t *testing.T, l Locker, workers int) {
	t.Helper()

	var (
		counter int
		inside  atomic.Int32
		wg      sync.WaitGroup
	)

	for range workers {
		wg.Add(1)
		go func() {
			defer wg.Done()

			err := l.WithLock(t.Context(), "1", func(context.Context) error {
				assert.Equal(t, int32(1), inside.Add(1), "only one holder expected")
				defer inside.Add(-1)

				v := counter
				time.Sleep(time.Millisecond)
				counter = v + 1
				return nil
			})
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	require.Equal(t, workers, counter, "no update should be lost")
}

func TestNone(t *testing.T) {
	called := false
	failure := errors.New("failure")

	err := None{}.WithLock(t.Context(), "1", func(context.Context) error {
		called = true
		return failure
	})

	require.True(t, called)
	require.ErrorIs(t, err, failure)
}

func TestKeyed(t *testing.T) {
	t.Run("exclusive per key", func(t *testing.T) {
		l := NewKeyed()

		assertExclusive(t, l, 20)
		require.Zero(t, l.Len(), "idle keys must be dropped")
	})

	t.Run("different keys do not block", func(t *testing.T) {
		l := NewKeyed()

		err := l.WithLock(t.Context(), "1", func(ctx context.Context) error {
			return l.WithLock(ctx, "2", func(context.Context) error { return nil })
		})

		require.NoError(t, err)
	})

	t.Run("fn error returned", func(t *testing.T) {
		l := NewKeyed()
		failure := errors.New("failure")

		err := l.WithLock(t.Context(), "1", func(context.Context) error { return failure })

		require.ErrorIs(t, err, failure)
		require.Zero(t, l.Len())
	})

	t.Run("context done while waiting", func(t *testing.T) {
		l := NewKeyed()
		locked := make(chan struct{})
		release := make(chan struct{})

		go func() {
			_ = l.WithLock(context.Background(), "1", func(context.Context) error {
				close(locked)
				<-release
				return nil
			})
		}()
		<-locked

		ctx, cancel := context.WithTimeout(t.Context(), 20*time.Millisecond)
		defer cancel()

		called := false
		err := l.WithLock(ctx, "1", func(context.Context) error {
			called = true
			return nil
		})

		require.ErrorIs(t, err, context.DeadlineExceeded)
		require.False(t, called, "fn must not run without the lock")

		close(release)
	})
}

func TestRedis(t *testing.T) {
	newLockerWithConfig := func(t *testing.T, config RedisConfig, l logger.Logger) (*Redis, *miniredis.Miniredis) {
		mr := miniredis.RunT(t)
		client := goredislib.NewClient(&goredislib.Options{Addr: mr.Addr(), MaxRetries: -1})
		t.Cleanup(func() { _ = client.Close() })

		config.RetryDelay = time.Millisecond
		return NewRedis(client, config, l), mr
	}

	newLocker := func(t *testing.T, tries int) (*Redis, *miniredis.Miniredis) {
		return newLockerWithConfig(t, RedisConfig{Tries: tries}, logger.NewNoOpLogger())
	}

	t.Run("exclusive per key", func(t *testing.T) {
		l, _ := newLocker(t, 1000)

		assertExclusive(t, l, 10)
	})

	t.Run("lock stored under prefixed key", func(t *testing.T) {
		l, mr := newLocker(t, 1000)

		err := l.WithLock(t.Context(), "42", func(context.Context) error {
			require.True(t, mr.Exists("point:lock:42"), "lock key should exist while held")
			return nil
		})

		require.NoError(t, err)
		require.False(t, mr.Exists("point:lock:42"), "lock key should be removed on release")
	})

	t.Run("fn error returned", func(t *testing.T) {
		l, _ := newLocker(t, 1000)
		failure := errors.New("failure")

		err := l.WithLock(t.Context(), "1", func(context.Context) error { return failure })

		require.ErrorIs(t, err, failure)
	})

	t.Run("expired lock does not fail finished fn", func(t *testing.T) {
		errLogger := &errorLogger{Logger: logger.NewNoOpLogger()}
		l, mr := newLockerWithConfig(t, RedisConfig{Expiry: time.Second, Tries: 10}, errLogger)

		called := false
		err := l.WithLock(t.Context(), "1", func(context.Context) error {
			called = true
			mr.FastForward(2 * time.Second)
			return nil
		})

		require.NoError(t, err, "fn finished ok, release failure must not be returned")
		require.True(t, called)
		require.Equal(t, []string{"Failed to release lock"}, errLogger.messages, "release failure should be logged")
	})

	t.Run("expired lock keeps fn error", func(t *testing.T) {
		l, mr := newLockerWithConfig(t, RedisConfig{Expiry: time.Second, Tries: 10}, logger.NewNoOpLogger())
		failure := errors.New("failure")

		err := l.WithLock(t.Context(), "1", func(context.Context) error {
			mr.FastForward(2 * time.Second)
			return failure
		})

		require.Equal(t, failure, err, "only fn error is returned")
	})

	t.Run("redis unavailable", func(t *testing.T) {
		l, mr := newLocker(t, 2)
		mr.Close()

		called := false
		err := l.WithLock(t.Context(), "1", func(context.Context) error {
			called = true
			return nil
		})

		require.Error(t, err)
		require.False(t, called)
	})
}
