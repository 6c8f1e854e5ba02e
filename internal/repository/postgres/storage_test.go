package postgres

import (
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/stretchr/testify/require"

	"github.com/nkiryanov/pointd/internal/apperrors"
	"github.com/nkiryanov/pointd/internal/models"
	"github.com/nkiryanov/pointd/internal/repository"
	"github.com/nkiryanov/pointd/internal/testutil"
)

func TestBalance(t *testing.T) {
	pg := testutil.StartPostgresContainer(t)
	t.Cleanup(pg.Terminate)

	inTx := func(t *testing.T, outerTx DBTX, fn func(pgx.Tx, repository.Storage)) {
		testutil.InTx(outerTx, t, func(innerTx pgx.Tx) {
			storage := NewStorage(innerTx)
			fn(innerTx, storage)
		})
	}

	t.Run("GetBalance", func(t *testing.T) {
		t.Run("never seen user", func(t *testing.T) {
			inTx(t, pg.Pool, func(_ pgx.Tx, storage repository.Storage) {
				balance, err := storage.Balance().GetBalance(t.Context(), 1)

				require.NoError(t, err, "unseen user should not fail")
				require.Equal(t, int64(1), balance.UserID)
				require.Zero(t, balance.Amount, "unseen user balance should be zero")
				require.NotZero(t, balance.LastUpdated)
			})
		})

		t.Run("get stored balance", func(t *testing.T) {
			inTx(t, pg.Pool, func(_ pgx.Tx, storage repository.Storage) {
				_, err := storage.Balance().PutBalance(t.Context(), 1, 1000)
				require.NoError(t, err)

				balance, err := storage.Balance().GetBalance(t.Context(), 1)

				require.NoError(t, err)
				require.Equal(t, int64(1000), balance.Amount)
			})
		})
	})

	t.Run("PutBalance", func(t *testing.T) {
		inTx(t, pg.Pool, func(tx pgx.Tx, storage repository.Storage) {
			first, err := storage.Balance().PutBalance(t.Context(), 1, 1000)
			require.NoError(t, err)

			t.Run("overwrite", func(t *testing.T) {
				inTx(t, tx, func(_ pgx.Tx, storage repository.Storage) {
					second, err := storage.Balance().PutBalance(t.Context(), 1, 300)

					require.NoError(t, err)
					require.Equal(t, int64(300), second.Amount)
					require.False(t, second.LastUpdated.Before(first.LastUpdated), "timestamps must not go back")

					stored, err := storage.Balance().GetBalance(t.Context(), 1)
					require.NoError(t, err)
					require.Equal(t, int64(300), stored.Amount)
				})
			})

			t.Run("update time never goes back", func(t *testing.T) {
				testutil.InTx(tx, t, func(innerTx pgx.Tx) {
					past := &Storage{db: innerTx, now: func() time.Time { return first.LastUpdated.Add(-time.Hour) }}

					second, err := past.Balance().PutBalance(t.Context(), 1, 300)

					require.NoError(t, err)
					require.Equal(t, int64(300), second.Amount)
					require.True(t, second.LastUpdated.Equal(first.LastUpdated), "clock stepped back, previous time should be kept")
				})
			})

			t.Run("out of range", func(t *testing.T) {
				inTx(t, tx, func(_ pgx.Tx, storage repository.Storage) {
					_, err := storage.Balance().PutBalance(t.Context(), 1, models.MaxBalance+1)

					require.ErrorIs(t, err, apperrors.ErrValidation)
				})
			})

			t.Run("check constraint", func(t *testing.T) {
				inTx(t, tx, func(_ pgx.Tx, storage repository.Storage) {
					_, err := storage.Balance().PutBalance(t.Context(), -1, 10)

					require.ErrorIs(t, err, apperrors.ErrValidation, "negative user id is rejected by db")
					require.Contains(t, err.Error(), "constraint")
				})
			})
		})
	})
}

func TestHistory(t *testing.T) {
	pg := testutil.StartPostgresContainer(t)
	t.Cleanup(pg.Terminate)

	inTx := func(t *testing.T, outerTx DBTX, fn func(pgx.Tx, repository.Storage)) {
		testutil.InTx(outerTx, t, func(innerTx pgx.Tx) {
			storage := NewStorage(innerTx)
			fn(innerTx, storage)
		})
	}

	t.Run("AppendTransaction", func(t *testing.T) {
		t.Run("append ok", func(t *testing.T) {
			inTx(t, pg.Pool, func(_ pgx.Tx, storage repository.Storage) {
				tr, err := storage.History().AppendTransaction(t.Context(), 1, 100, models.TransactionTypeCharge)

				require.NoError(t, err)
				require.NotZero(t, tr.ID)
				require.Equal(t, int64(1), tr.UserID)
				require.Equal(t, models.TransactionTypeCharge, tr.Type)
				require.Equal(t, int64(100), tr.Amount)
				require.WithinDuration(t, time.Now(), tr.OccurredAt, time.Minute)
			})
		})

		t.Run("not positive amount", func(t *testing.T) {
			inTx(t, pg.Pool, func(_ pgx.Tx, storage repository.Storage) {
				_, err := storage.History().AppendTransaction(t.Context(), 1, 0, models.TransactionTypeCharge)

				require.ErrorIs(t, err, apperrors.ErrValidation)
			})
		})
	})

	t.Run("ListTransactions", func(t *testing.T) {
		inTx(t, pg.Pool, func(tx pgx.Tx, storage repository.Storage) {
			charge, err := storage.History().AppendTransaction(t.Context(), 1, 100, models.TransactionTypeCharge)
			require.NoError(t, err)
			use, err := storage.History().AppendTransaction(t.Context(), 1, 40, models.TransactionTypeUse)
			require.NoError(t, err)
			_, err = storage.History().AppendTransaction(t.Context(), 2, 70, models.TransactionTypeCharge)
			require.NoError(t, err)

			t.Run("list user transactions", func(t *testing.T) {
				inTx(t, tx, func(_ pgx.Tx, storage repository.Storage) {
					list, err := storage.History().ListTransactions(t.Context(), 1)

					require.NoError(t, err)
					require.Len(t, list, 2)
					require.Equal(t, charge.ID, list[0].ID, "insertion order expected")
					require.Equal(t, use.ID, list[1].ID)
					require.Equal(t, models.TransactionTypeUse, list[1].Type)
				})
			})

			t.Run("unknown user", func(t *testing.T) {
				inTx(t, tx, func(_ pgx.Tx, storage repository.Storage) {
					list, err := storage.History().ListTransactions(t.Context(), 3)

					require.NoError(t, err)
					require.Empty(t, list)
				})
			})
		})
	})
}
