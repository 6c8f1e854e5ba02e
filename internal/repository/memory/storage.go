package memory

import (
	"context"
	"math/rand/v2"
	"time"

	"github.com/nkiryanov/pointd/internal/models"
	"github.com/nkiryanov/pointd/internal/repository"
)

type Option func(*Storage)

// Delay every store call by a random duration up to max
func WithLatency(max time.Duration) Option {
	return func(s *Storage) {
		s.latency = max
	}
}

// Use clock instead of time.Now for timestamps
func WithClock(now func() time.Time) Option {
	return func(s *Storage) {
		s.now = now
	}
}

// Storage keeps balances and histories in process memory.
// Both repos share the options but own separate data.
type Storage struct {
	latency time.Duration
	now     func() time.Time

	balances *BalanceRepo
	history  *HistoryRepo
}

func NewStorage(opts ...Option) *Storage {
	s := &Storage{now: time.Now}
	for _, opt := range opts {
		opt(s)
	}

	s.balances = &BalanceRepo{
		balances: make(map[int64]models.Balance),
		sleep:    s.sleep,
		now:      s.now,
	}
	s.history = &HistoryRepo{
		byUser: make(map[int64][]models.Transaction),
		sleep:  s.sleep,
		now:    s.now,
	}

	return s
}

func (s *Storage) Balance() repository.BalanceRepo {
	return s.balances
}

func (s *Storage) History() repository.HistoryRepo {
	return s.history
}

// sleep simulates a slow store and gives up when ctx is done
func (s *Storage) sleep(ctx context.Context) error {
	if s.latency <= 0 || ctx.Err() != nil {
		return ctx.Err()
	}

	timer := time.NewTimer(rand.N(s.latency))
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
