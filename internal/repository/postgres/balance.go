package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/nkiryanov/pointd/internal/apperrors"
	"github.com/nkiryanov/pointd/internal/models"
)

type BalanceRepo struct {
	DB  DBTX
	now func() time.Time
}

func (r *BalanceRepo) GetBalance(ctx context.Context, userID int64) (models.Balance, error) {
	const getBalanceByUserID = `
	SELECT user_id, amount, updated_at FROM balances
	WHERE user_id = $1
	`

	rows, _ := r.DB.Query(ctx, getBalanceByUserID, userID)
	balance, err := pgx.CollectOneRow(rows, rowToBalance)

	switch {
	case err == nil:
		return balance, nil
	case errors.Is(err, pgx.ErrNoRows):
		// Never seen user starts with empty balance, nothing is written until the first put
		return models.NewBalance(userID, models.MinBalance, r.now())
	default:
		return balance, fmt.Errorf("db error: %w", err)
	}
}

func (r *BalanceRepo) PutBalance(ctx context.Context, userID int64, amount int64) (models.Balance, error) {
	const putBalance = `
	INSERT INTO balances (user_id, amount, updated_at)
	VALUES ($1, $2, $3)
	ON CONFLICT (user_id) DO UPDATE
	SET amount = EXCLUDED.amount, updated_at = GREATEST(balances.updated_at, EXCLUDED.updated_at)
	RETURNING user_id, amount, updated_at
	`

	// Validate before the roundtrip, the check constraint is the last line only
	if _, err := models.NewBalance(userID, amount, time.Time{}); err != nil {
		return models.Balance{}, err
	}

	rows, _ := r.DB.Query(ctx, putBalance, userID, amount, r.now())
	balance, err := pgx.CollectOneRow(rows, rowToBalance)

	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgerrcode.CheckViolation {
			return balance, apperrors.NewValidationError("balance violates %s constraint", pgErr.ConstraintName)
		}

		return balance, fmt.Errorf("db error: %w", err)
	}

	return balance, nil
}

func rowToBalance(row pgx.CollectableRow) (models.Balance, error) {
	var (
		userID    int64
		amount    int64
		updatedAt time.Time
	)

	if err := row.Scan(&userID, &amount, &updatedAt); err != nil {
		return models.Balance{}, err
	}

	return models.NewBalance(userID, amount, updatedAt)
}
