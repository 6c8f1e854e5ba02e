package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/nkiryanov/pointd/internal/apperrors"
)

type TransactionType string

const (
	TransactionTypeCharge TransactionType = "CHARGE"
	TransactionTypeUse    TransactionType = "USE"
)

// Transaction is an audit entry for one completed charge or use.
// It is appended once and never changed.
type Transaction struct {
	ID         uuid.UUID
	UserID     int64
	Type       TransactionType
	Amount     int64
	OccurredAt time.Time
}

func NewTransaction(id uuid.UUID, userID int64, t TransactionType, amount int64, occurredAt time.Time) (Transaction, error) {
	if amount <= 0 {
		return Transaction{}, apperrors.NewValidationError("transaction amount must be greater than 0, got %d", amount)
	}

	switch t {
	case TransactionTypeCharge, TransactionTypeUse:
	default:
		return Transaction{}, apperrors.NewValidationError("unknown transaction type %q", t)
	}

	return Transaction{
		ID:         id,
		UserID:     userID,
		Type:       t,
		Amount:     amount,
		OccurredAt: occurredAt,
	}, nil
}
