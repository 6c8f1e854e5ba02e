package locker

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

const (
	BackendLocal = "local"
	BackendRedis = "redis"
	BackendNone  = "none"
)

var ErrUnknownBackend = errors.New("unknown lock backend")

// Locker runs fn while holding an exclusive lock on key.
// The lock is released when fn returns, fn error is returned as is.
type Locker interface {
	WithLock(ctx context.Context, key string, fn func(context.Context) error) error
}

// None runs fn without any locking
type None struct{}

func (None) WithLock(ctx context.Context, _ string, fn func(context.Context) error) error {
	return fn(ctx)
}

// Validate backend name, useful when parsing configuration
func ParseBackend(backend string) (string, error) {
	switch b := strings.ToLower(backend); b {
	case BackendLocal, BackendRedis, BackendNone:
		return b, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownBackend, backend)
	}
}
