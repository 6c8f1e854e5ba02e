package point

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strconv"
	"time"

	"github.com/nkiryanov/pointd/internal/apperrors"
	"github.com/nkiryanov/pointd/internal/logger"
	"github.com/nkiryanov/pointd/internal/models"
	"github.com/nkiryanov/pointd/internal/repository"
	"github.com/nkiryanov/pointd/internal/service/locker"
)

type Option func(*PointService)

// Guard charge and use of one user with the locker
// Without it concurrent calls for the same user may lose updates
func WithLocker(l locker.Locker) Option {
	return func(s *PointService) {
		s.locker = l
	}
}

func WithClock(now func() time.Time) Option {
	return func(s *PointService) {
		s.now = now
	}
}

// PointService sequences balance and history writes of one user.
// It keeps no state between calls: stores own everything durable.
type PointService struct {
	balances repository.BalanceRepo
	history  repository.HistoryRepo

	locker locker.Locker
	now    func() time.Time
	logger logger.Logger
}

func NewService(storage repository.Storage, l logger.Logger, opts ...Option) *PointService {
	s := &PointService{
		balances: storage.Balance(),
		history:  storage.History(),
		locker:   locker.None{},
		now:      time.Now,
		logger:   l,
	}

	for _, opt := range opts {
		opt(s)
	}

	return s
}

// Get current user balance
// Unseen user has zero balance; apperrors.ErrUserNotFound only if the store says so
func (s *PointService) GetBalance(ctx context.Context, userID int64) (models.Balance, error) {
	balance, err := s.balances.GetBalance(ctx, userID)
	switch {
	case err == nil:
		return balance, nil
	case errors.Is(err, apperrors.ErrUserNotFound):
		return balance, fmt.Errorf("user %d: %w", userID, apperrors.ErrUserNotFound)
	default:
		return balance, fmt.Errorf("can't get balance. Err: %w", err)
	}
}

// Get all user transactions, oldest first
// Transactions with equal time keep the order the store returned them in
func (s *PointService) GetHistory(ctx context.Context, userID int64) ([]models.Transaction, error) {
	if _, err := s.GetBalance(ctx, userID); err != nil {
		return nil, err
	}

	transactions, err := s.history.ListTransactions(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("can't list transactions. Err: %w", err)
	}

	slices.SortStableFunc(transactions, func(a, b models.Transaction) int {
		return a.OccurredAt.Compare(b.OccurredAt)
	})

	return transactions, nil
}

// Increase user balance by amount and log CHARGE transaction
func (s *PointService) Charge(ctx context.Context, userID int64, amount int64) (models.Balance, error) {
	return s.apply(ctx, userID, amount, models.TransactionTypeCharge)
}

// Decrease user balance by amount and log USE transaction
func (s *PointService) Use(ctx context.Context, userID int64, amount int64) (models.Balance, error) {
	return s.apply(ctx, userID, amount, models.TransactionTypeUse)
}

func (s *PointService) apply(ctx context.Context, userID int64, amount int64, t models.TransactionType) (models.Balance, error) {
	var updated models.Balance

	err := s.locker.WithLock(ctx, strconv.FormatInt(userID, 10), func(ctx context.Context) error {
		original, err := s.GetBalance(ctx, userID)
		if err != nil {
			return err
		}

		var target models.Balance
		switch t {
		case models.TransactionTypeCharge:
			target, err = original.Charge(amount, s.now())
		case models.TransactionTypeUse:
			target, err = original.Use(amount, s.now())
		}
		if err != nil {
			return err
		}

		updated, err = s.persist(ctx, original, target, amount, t)
		return err
	})

	return updated, err
}

// Write balance then history; on failure put the original balance back.
// Compensation is best effort: its own failure is logged and not returned.
func (s *PointService) persist(ctx context.Context, original, target models.Balance, amount int64, t models.TransactionType) (models.Balance, error) {
	l := s.logger.With("user_id", original.UserID, "type", t, "amount", amount)

	updated, err := s.balances.PutBalance(ctx, target.UserID, target.Amount)
	if err == nil {
		_, err = s.history.AppendTransaction(ctx, target.UserID, amount, t)
		if err == nil {
			return updated, nil
		}
	}

	l.Error("Point transaction failed, restoring balance", "error", err, "restore_to", original.Amount)

	// Restore even if the request is cancelled already
	restoreCtx := context.WithoutCancel(ctx)
	if _, restoreErr := s.balances.PutBalance(restoreCtx, original.UserID, original.Amount); restoreErr != nil {
		l.Error("Failed to restore balance", "error", restoreErr, "restore_to", original.Amount)
	}

	return models.Balance{}, apperrors.ErrTransactionFailed
}
