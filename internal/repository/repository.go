package repository

import (
	"context"

	"github.com/nkiryanov/pointd/internal/models"
)

// Balance repository interface
type BalanceRepo interface {
	// Get the latest balance of the user
	// If the user was never seen must return a zero balance, not an error
	// A store that tracks users explicitly may return apperrors.ErrUserNotFound
	GetBalance(ctx context.Context, userID int64) (models.Balance, error)

	// Overwrite the balance unconditionally and return the stored value with a fresh timestamp
	// Amount out of [MinBalance, MaxBalance] must fail with apperrors.ValidationError
	PutBalance(ctx context.Context, userID int64, amount int64) (models.Balance, error)
}

// History repository interface
type HistoryRepo interface {
	// Append the transaction to the user history
	// Amount must be positive, otherwise apperrors.ValidationError returned
	AppendTransaction(ctx context.Context, userID int64, amount int64, t models.TransactionType) (models.Transaction, error)

	// List all user transactions
	// Order is not guaranteed, callers sort themselves
	ListTransactions(ctx context.Context, userID int64) ([]models.Transaction, error)
}

type Storage interface {
	Balance() BalanceRepo
	History() HistoryRepo
}
