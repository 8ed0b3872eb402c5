package wallet

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var entryCols = []string{"id", "user_id", "operation_id", "kind", "amount", "reference", "balance_after", "created_at"}

func TestRepository_Debit(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	repo := NewRepository(db)
	ctx := context.Background()
	params := MutationParams{UserID: 1, Amount: dec("60"), OperationID: "order:abc:debit", Reference: "abc"}

	t.Run("Success", func(t *testing.T) {
		mock.ExpectBegin()
		mock.ExpectQuery(`SELECT .* FROM wallet_entries WHERE operation_id = \$1`).
			WithArgs(params.OperationID).
			WillReturnRows(sqlmock.NewRows(entryCols))
		mock.ExpectQuery(`UPDATE wallets SET balance = balance - \$1, updated_at = NOW\(\) WHERE user_id = \$2 AND balance >= \$1`).
			WithArgs("60", int64(1)).
			WillReturnRows(sqlmock.NewRows([]string{"balance"}).AddRow("40"))
		mock.ExpectQuery(`INSERT INTO wallet_entries`).
			WithArgs(sqlmock.AnyArg(), int64(1), params.OperationID, "DEBIT", "60", "abc", "40").
			WillReturnRows(sqlmock.NewRows([]string{"created_at"}).AddRow(time.Now()))
		mock.ExpectCommit()

		e, err := repo.Debit(ctx, params)
		require.NoError(t, err)
		assert.Equal(t, EntryKindDebit, e.Kind)
		assert.True(t, e.BalanceAfter.Equal(dec("40")))
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("InsufficientFunds", func(t *testing.T) {
		mock.ExpectBegin()
		mock.ExpectQuery(`SELECT .* FROM wallet_entries`).
			WillReturnRows(sqlmock.NewRows(entryCols))
		mock.ExpectQuery(`UPDATE wallets`).
			WillReturnRows(sqlmock.NewRows([]string{"balance"}))
		mock.ExpectQuery(`SELECT EXISTS`).
			WithArgs(int64(1)).
			WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(true))
		mock.ExpectRollback()

		_, err := repo.Debit(ctx, params)
		assert.ErrorIs(t, err, ErrInsufficientFunds)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("AccountNotFound", func(t *testing.T) {
		mock.ExpectBegin()
		mock.ExpectQuery(`SELECT .* FROM wallet_entries`).
			WillReturnRows(sqlmock.NewRows(entryCols))
		mock.ExpectQuery(`UPDATE wallets`).
			WillReturnRows(sqlmock.NewRows([]string{"balance"}))
		mock.ExpectQuery(`SELECT EXISTS`).
			WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(false))
		mock.ExpectRollback()

		_, err := repo.Debit(ctx, params)
		assert.ErrorIs(t, err, ErrAccountNotFound)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("Replay", func(t *testing.T) {
		mock.ExpectBegin()
		mock.ExpectQuery(`SELECT .* FROM wallet_entries WHERE operation_id = \$1`).
			WithArgs(params.OperationID).
			WillReturnRows(sqlmock.NewRows(entryCols).
				AddRow(uuid.NewString(), 1, params.OperationID, "DEBIT", "60", "abc", "40", time.Now()))
		mock.ExpectCommit()

		e, err := repo.Debit(ctx, params)
		require.NoError(t, err)
		assert.True(t, e.BalanceAfter.Equal(dec("40")))
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("ReplayWithDifferentAmount", func(t *testing.T) {
		mock.ExpectBegin()
		mock.ExpectQuery(`SELECT .* FROM wallet_entries WHERE operation_id = \$1`).
			WithArgs(params.OperationID).
			WillReturnRows(sqlmock.NewRows(entryCols).
				AddRow(uuid.NewString(), 1, params.OperationID, "DEBIT", "20", "abc", "80", time.Now()))
		mock.ExpectRollback()

		_, err := repo.Debit(ctx, params)
		assert.ErrorIs(t, err, ErrOperationConflict)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("ConcurrentReplayRace", func(t *testing.T) {
		mock.ExpectBegin()
		mock.ExpectQuery(`SELECT .* FROM wallet_entries`).
			WillReturnRows(sqlmock.NewRows(entryCols))
		mock.ExpectQuery(`UPDATE wallets`).
			WillReturnRows(sqlmock.NewRows([]string{"balance"}).AddRow("40"))
		mock.ExpectQuery(`INSERT INTO wallet_entries`).
			WillReturnError(&pq.Error{Code: "23505"})
		mock.ExpectRollback()
		mock.ExpectQuery(`SELECT .* FROM wallet_entries WHERE operation_id = \$1`).
			WithArgs(params.OperationID).
			WillReturnRows(sqlmock.NewRows(entryCols).
				AddRow(uuid.NewString(), 1, params.OperationID, "DEBIT", "60", "abc", "40", time.Now()))

		e, err := repo.Debit(ctx, params)
		require.NoError(t, err)
		assert.Equal(t, params.OperationID, e.OperationID)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("Validation", func(t *testing.T) {
		_, err := repo.Debit(ctx, MutationParams{UserID: 1, Amount: dec("-1"), OperationID: "x"})
		assert.ErrorIs(t, err, ErrInvalidAmount)
	})
}

func TestRepository_Credit(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	repo := NewRepository(db)
	params := MutationParams{UserID: 1, Amount: dec("60"), OperationID: "order:abc:refund", Reference: "abc"}

	t.Run("Success", func(t *testing.T) {
		mock.ExpectBegin()
		mock.ExpectQuery(`SELECT .* FROM wallet_entries`).
			WillReturnRows(sqlmock.NewRows(entryCols))
		mock.ExpectQuery(`UPDATE wallets SET balance = balance \+ \$1`).
			WithArgs("60", int64(1)).
			WillReturnRows(sqlmock.NewRows([]string{"balance"}).AddRow("100"))
		mock.ExpectQuery(`INSERT INTO wallet_entries`).
			WithArgs(sqlmock.AnyArg(), int64(1), params.OperationID, "CREDIT", "60", "abc", "100").
			WillReturnRows(sqlmock.NewRows([]string{"created_at"}).AddRow(time.Now()))
		mock.ExpectCommit()

		e, err := repo.Credit(context.Background(), params)
		require.NoError(t, err)
		assert.True(t, e.BalanceAfter.Equal(dec("100")))
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("DBError", func(t *testing.T) {
		mock.ExpectBegin()
		mock.ExpectQuery(`SELECT .* FROM wallet_entries`).
			WillReturnError(errors.New("connection reset"))
		mock.ExpectRollback()

		_, err := repo.Credit(context.Background(), params)
		assert.EqualError(t, err, "connection reset")
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestRepository_OpenAccount(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	repo := NewRepository(db)
	accCols := []string{"user_id", "balance", "created_at", "updated_at"}

	t.Run("Created with bonus", func(t *testing.T) {
		mock.ExpectBegin()
		mock.ExpectQuery(`INSERT INTO wallets .* ON CONFLICT \(user_id\) DO NOTHING`).
			WithArgs(int64(5), "1000").
			WillReturnRows(sqlmock.NewRows(accCols).AddRow(5, "1000", time.Now(), time.Now()))
		mock.ExpectExec(`INSERT INTO wallet_entries`).
			WithArgs(sqlmock.AnyArg(), int64(5), "wallet:5:open", "CREDIT", "1000", "signup", "1000").
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectCommit()

		acc, err := repo.OpenAccount(context.Background(), 5, dec("1000"))
		require.NoError(t, err)
		assert.True(t, acc.Balance.Equal(dec("1000")))
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("Already open", func(t *testing.T) {
		mock.ExpectBegin()
		mock.ExpectQuery(`INSERT INTO wallets`).
			WillReturnRows(sqlmock.NewRows(accCols))
		mock.ExpectQuery(`SELECT user_id, balance, created_at, updated_at FROM wallets WHERE user_id = \$1`).
			WithArgs(int64(5)).
			WillReturnRows(sqlmock.NewRows(accCols).AddRow(5, "12.50", time.Now(), time.Now()))
		mock.ExpectCommit()

		acc, err := repo.OpenAccount(context.Background(), 5, dec("1000"))
		require.NoError(t, err)
		assert.True(t, acc.Balance.Equal(dec("12.50")))
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestRepository_GetBalance(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	repo := NewRepository(db)

	t.Run("Success", func(t *testing.T) {
		mock.ExpectQuery(`SELECT balance FROM wallets WHERE user_id = \$1`).
			WithArgs(int64(1)).
			WillReturnRows(sqlmock.NewRows([]string{"balance"}).AddRow("99.99"))

		bal, err := repo.GetBalance(context.Background(), 1)
		require.NoError(t, err)
		assert.Equal(t, "99.99", bal.String())
	})

	t.Run("NotFound", func(t *testing.T) {
		mock.ExpectQuery(`SELECT balance FROM wallets`).
			WillReturnRows(sqlmock.NewRows([]string{"balance"}))

		_, err := repo.GetBalance(context.Background(), 2)
		assert.ErrorIs(t, err, ErrAccountNotFound)
	})
}

func TestRepository_ListDebits(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	repo := NewRepository(db)
	from := time.Now().Add(-time.Hour)
	to := time.Now()

	mock.ExpectQuery(`SELECT .* FROM wallet_entries WHERE kind = \$1 AND created_at >= \$2 AND created_at < \$3 ORDER BY created_at`).
		WithArgs("DEBIT", from, to).
		WillReturnRows(sqlmock.NewRows(entryCols).
			AddRow(uuid.NewString(), 1, "order:a:debit", "DEBIT", "10", "a", "90", from.Add(time.Minute)).
			AddRow(uuid.NewString(), 2, "order:b:debit", "DEBIT", "20", "b", "80", from.Add(2*time.Minute)))

	entries, err := repo.ListDebits(context.Background(), from, to)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, "a", entries[0].Reference)
	assert.Equal(t, int64(2), entries[1].UserID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRepository_GetEntry(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	repo := NewRepository(db)

	mock.ExpectQuery(`SELECT .* FROM wallet_entries WHERE operation_id = \$1`).
		WithArgs("order:a:refund").
		WillReturnRows(sqlmock.NewRows(entryCols).
			AddRow(uuid.NewString(), 1, "order:a:refund", "CREDIT", "10", "a", "110", time.Now()))

	e, err := repo.GetEntry(context.Background(), "order:a:refund")
	require.NoError(t, err)
	assert.Equal(t, EntryKindCredit, e.Kind)

	mock.ExpectQuery(`SELECT .* FROM wallet_entries`).
		WillReturnRows(sqlmock.NewRows(entryCols))

	_, err = repo.GetEntry(context.Background(), "order:b:refund")
	assert.ErrorIs(t, err, ErrEntryNotFound)
}
