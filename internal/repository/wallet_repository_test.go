package repository

import (
	"context"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aeropoint/academy-api/internal/models"
)

func TestWalletFindByStudent(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewWalletRepository(db)

	now := time.Now()
	rows := sqlmock.NewRows([]string{"id", "student_id", "balance", "reserved", "created_at", "updated_at"}).
		AddRow("wallet-1", "student-1", "450", "300", now, now)
	mock.ExpectQuery(regexp.QuoteMeta("SELECT id, student_id, balance, reserved, created_at, updated_at FROM wallets WHERE student_id = $1")).
		WithArgs("student-1").
		WillReturnRows(rows)

	wallet, err := repo.FindByStudent(context.Background(), "student-1")
	require.NoError(t, err)
	assert.Equal(t, "wallet-1", wallet.ID)
	assert.Equal(t, "450", wallet.Balance.String())
	assert.Equal(t, "300", wallet.Reserved.String())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestWalletUpsertForStudentTx(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewWalletRepository(db)

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO wallets").WillReturnResult(sqlmock.NewResult(0, 1))
	now := time.Now()
	rows := sqlmock.NewRows([]string{"id", "student_id", "balance", "reserved", "created_at", "updated_at"}).
		AddRow("wallet-1", "student-1", "0", "0", now, now)
	mock.ExpectQuery("SELECT .* FROM wallets WHERE student_id = \\$1 FOR UPDATE").
		WithArgs("student-1").
		WillReturnRows(rows)
	mock.ExpectCommit()

	tx, err := db.BeginTxx(context.Background(), nil)
	require.NoError(t, err)
	wallet, err := repo.UpsertForStudentTx(context.Background(), tx, "student-1")
	require.NoError(t, err)
	require.NoError(t, tx.Commit())
	assert.Equal(t, "wallet-1", wallet.ID)
	assert.True(t, wallet.Balance.IsZero())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestWalletReserveTx(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewWalletRepository(db)

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("UPDATE wallets SET balance = balance - $2, reserved = reserved + $2, updated_at = $3 WHERE id = $1")).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	tx, err := db.BeginTxx(context.Background(), nil)
	require.NoError(t, err)
	require.NoError(t, repo.ReserveTx(context.Background(), tx, "wallet-1", decimal.NewFromInt(300)))
	require.NoError(t, tx.Commit())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestWalletAppendTransactionTx(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewWalletRepository(db)

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO wallet_transactions").WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectCommit()

	tx, err := db.BeginTxx(context.Background(), nil)
	require.NoError(t, err)
	entry := &models.WalletTransaction{
		WalletID:    "wallet-1",
		Amount:      decimal.NewFromInt(-300),
		Type:        models.WalletTxReserve,
		Description: "Seat hold for EASA ATPL Sitting March",
	}
	require.NoError(t, repo.AppendTransactionTx(context.Background(), tx, entry))
	require.NoError(t, tx.Commit())
	assert.NotEmpty(t, entry.ID)
	assert.False(t, entry.CreatedAt.IsZero())
	assert.NoError(t, mock.ExpectationsWereMet())
}
