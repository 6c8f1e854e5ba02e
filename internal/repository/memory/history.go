package memory

import (
	"context"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/nkiryanov/pointd/internal/models"
)

type HistoryRepo struct {
	mu     sync.RWMutex
	byUser map[int64][]models.Transaction

	sleep func(context.Context) error
	now   func() time.Time
}

func (r *HistoryRepo) AppendTransaction(ctx context.Context, userID int64, amount int64, t models.TransactionType) (models.Transaction, error) {
	if err := r.sleep(ctx); err != nil {
		return models.Transaction{}, err
	}

	id, err := uuid.NewV7()
	if err != nil {
		return models.Transaction{}, fmt.Errorf("can't generate transaction id. Err: %w", err)
	}

	tr, err := models.NewTransaction(id, userID, t, amount, r.now())
	if err != nil {
		return tr, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	r.byUser[userID] = append(r.byUser[userID], tr)
	return tr, nil
}

func (r *HistoryRepo) ListTransactions(ctx context.Context, userID int64) ([]models.Transaction, error) {
	if err := r.sleep(ctx); err != nil {
		return nil, err
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	// Return a copy: callers are free to sort it
	return slices.Clone(r.byUser[userID]), nil
}
