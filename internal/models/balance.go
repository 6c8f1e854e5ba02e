package models

import (
	"time"

	"github.com/nkiryanov/pointd/internal/apperrors"
)

const (
	MinBalance           int64 = 0
	MaxBalance           int64 = 500_000
	MinTransactionAmount int64 = 1
)

// Balance is the point balance of one user at one moment.
// Values are only built with NewBalance, so Amount is always within [MinBalance, MaxBalance].
type Balance struct {
	UserID      int64
	Amount      int64
	LastUpdated time.Time
}

func NewBalance(userID int64, amount int64, updatedAt time.Time) (Balance, error) {
	if amount < MinBalance || amount > MaxBalance {
		return Balance{}, apperrors.NewValidationError(
			"balance must be between %d and %d, got %d", MinBalance, MaxBalance, amount,
		)
	}

	return Balance{
		UserID:      userID,
		Amount:      amount,
		LastUpdated: updatedAt,
	}, nil
}

// Charge returns the balance increased by amount
func (b Balance) Charge(amount int64, now time.Time) (Balance, error) {
	if amount < MinTransactionAmount {
		return Balance{}, apperrors.NewValidationError(
			"charge amount must be at least %d, got %d", MinTransactionAmount, amount,
		)
	}

	// Compare against the headroom so huge amounts can't overflow
	if amount > MaxBalance-b.Amount {
		return Balance{}, apperrors.NewValidationError(
			"balance cannot exceed %d: current balance %d, charge amount %d", MaxBalance, b.Amount, amount,
		)
	}

	return NewBalance(b.UserID, b.Amount+amount, now)
}

// Use returns the balance decreased by amount
func (b Balance) Use(amount int64, now time.Time) (Balance, error) {
	if amount < MinTransactionAmount {
		return Balance{}, apperrors.NewValidationError(
			"use amount must be at least %d, got %d", MinTransactionAmount, amount,
		)
	}

	if amount > b.Amount {
		return Balance{}, apperrors.NewValidationError(
			"insufficient balance: current balance %d, use amount %d", b.Amount, amount,
		)
	}

	return NewBalance(b.UserID, b.Amount-amount, now)
}
