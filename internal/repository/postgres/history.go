package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/nkiryanov/pointd/internal/models"
)

type HistoryRepo struct {
	DB  DBTX
	now func() time.Time
}

func (r *HistoryRepo) AppendTransaction(ctx context.Context, userID int64, amount int64, t models.TransactionType) (models.Transaction, error) {
	const appendTransaction = `
	INSERT INTO point_histories (id, user_id, type, amount, occurred_at)
	VALUES ($1, $2, $3, $4, $5)
	RETURNING id, user_id, type, amount, occurred_at
	`

	id, err := uuid.NewV7()
	if err != nil {
		return models.Transaction{}, fmt.Errorf("can't generate transaction id. Err: %w", err)
	}

	tr, err := models.NewTransaction(id, userID, t, amount, r.now())
	if err != nil {
		return tr, err
	}

	rows, _ := r.DB.Query(ctx, appendTransaction, tr.ID, tr.UserID, string(tr.Type), tr.Amount, tr.OccurredAt)
	tr, err = pgx.CollectOneRow(rows, rowToTransaction)
	if err != nil {
		return tr, fmt.Errorf("db error: %w", err)
	}

	return tr, nil
}

func (r *HistoryRepo) ListTransactions(ctx context.Context, userID int64) ([]models.Transaction, error) {
	const listTransactions = `
	SELECT id, user_id, type, amount, occurred_at FROM point_histories
	WHERE user_id = $1
	ORDER BY seq
	`

	rows, _ := r.DB.Query(ctx, listTransactions, userID)
	transactions, err := pgx.CollectRows(rows, rowToTransaction)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}

	return transactions, nil
}

func rowToTransaction(row pgx.CollectableRow) (models.Transaction, error) {
	var (
		id         uuid.UUID
		userID     int64
		t          string
		amount     int64
		occurredAt time.Time
	)

	if err := row.Scan(&id, &userID, &t, &amount, &occurredAt); err != nil {
		return models.Transaction{}, err
	}

	return models.NewTransaction(id, userID, models.TransactionType(t), amount, occurredAt)
}
