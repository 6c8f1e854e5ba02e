package memory

import (
	"context"
	"sync"
	"time"

	"github.com/nkiryanov/pointd/internal/models"
)

type BalanceRepo struct {
	mu       sync.RWMutex
	balances map[int64]models.Balance

	sleep func(context.Context) error
	now   func() time.Time
}

func (r *BalanceRepo) GetBalance(ctx context.Context, userID int64) (models.Balance, error) {
	if err := r.sleep(ctx); err != nil {
		return models.Balance{}, err
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	if b, ok := r.balances[userID]; ok {
		return b, nil
	}

	// Never seen user starts with empty balance
	return models.NewBalance(userID, models.MinBalance, r.now())
}

func (r *BalanceRepo) PutBalance(ctx context.Context, userID int64, amount int64) (models.Balance, error) {
	if err := r.sleep(ctx); err != nil {
		return models.Balance{}, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	// Update time never goes back, even if the clock does
	updatedAt := r.now()
	if prev, ok := r.balances[userID]; ok && prev.LastUpdated.After(updatedAt) {
		updatedAt = prev.LastUpdated
	}

	b, err := models.NewBalance(userID, amount, updatedAt)
	if err != nil {
		return b, err
	}

	r.balances[userID] = b
	return b, nil
}
