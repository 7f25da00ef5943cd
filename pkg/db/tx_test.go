package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/go-sql-driver/mysql"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWithTx(t *testing.T) {
	ctx := context.Background()

	t.Run("commits on success", func(t *testing.T) {
		db, mock, err := sqlmock.New()
		require.NoError(t, err)
		defer db.Close()

		mock.ExpectBegin()
		mock.ExpectExec("UPDATE wallets").WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectCommit()

		err = WithTx(ctx, db, func(tx *sql.Tx) error {
			_, err := tx.ExecContext(ctx, "UPDATE wallets SET balance = balance + 1")
			return err
		})
		require.NoError(t, err)
		require.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("rolls back and returns fn error", func(t *testing.T) {
		db, mock, err := sqlmock.New()
		require.NoError(t, err)
		defer db.Close()

		boom := errors.New("boom")
		mock.ExpectBegin()
		mock.ExpectRollback()

		err = WithTx(ctx, db, func(tx *sql.Tx) error { return boom })
		assert.ErrorIs(t, err, boom)
		require.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("retries deadlocks", func(t *testing.T) {
		db, mock, err := sqlmock.New()
		require.NoError(t, err)
		defer db.Close()

		deadlock := &mysql.MySQLError{Number: 1213, Message: "Deadlock found"}
		mock.ExpectBegin()
		mock.ExpectExec("UPDATE binary_tree").WillReturnError(deadlock)
		mock.ExpectRollback()
		mock.ExpectBegin()
		mock.ExpectExec("UPDATE binary_tree").WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectCommit()

		calls := 0
		err = WithTx(ctx, db, func(tx *sql.Tx) error {
			calls++
			_, err := tx.ExecContext(ctx, "UPDATE binary_tree SET left_volume = left_volume + 1")
			return err
		})
		require.NoError(t, err)
		assert.Equal(t, 2, calls)
		require.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("gives up after max attempts", func(t *testing.T) {
		db, mock, err := sqlmock.New()
		require.NoError(t, err)
		defer db.Close()

		timeout := &mysql.MySQLError{Number: 1205, Message: "Lock wait timeout exceeded"}
		for i := 0; i < MaxTxAttempts; i++ {
			mock.ExpectBegin()
			mock.ExpectRollback()
		}

		err = WithTx(ctx, db, func(tx *sql.Tx) error { return timeout })
		require.Error(t, err)
		assert.True(t, IsRetryable(err))
		require.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestIsRetryable(t *testing.T) {
	assert.True(t, IsRetryable(&mysql.MySQLError{Number: 1213}))
	assert.True(t, IsRetryable(&mysql.MySQLError{Number: 1205}))
	assert.False(t, IsRetryable(&mysql.MySQLError{Number: 1062}))
	assert.False(t, IsRetryable(errors.New("connection refused")))
	assert.False(t, IsRetryable(nil))
}

func TestIsDuplicateEntry(t *testing.T) {
	assert.True(t, IsDuplicateEntry(fmt.Errorf("failed to create user: %w", &mysql.MySQLError{Number: 1062})))
	assert.False(t, IsDuplicateEntry(&mysql.MySQLError{Number: 1213}))
	assert.False(t, IsDuplicateEntry(errors.New("boom")))
}
