package repository

import (
	"context"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aeropoint/academy-api/internal/models"
)

func newMock(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	sqlxdb := sqlx.NewDb(db, "sqlmock")
	return sqlxdb, mock, func() {
		db.Close()
	}
}

func feeRows() *sqlmock.Rows {
	now := time.Now()
	return sqlmock.NewRows([]string{"id", "student_id", "amount", "paid", "currency", "status", "description", "proof_url", "due_date", "created_at", "updated_at"}).
		AddRow("fee-1", "student-1", "1000.00", "300.00", "EUR", string(models.FeePartial), "Tuition instalment 1", nil, now, now, now)
}

func TestFeeFindByID(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewFeeRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT id, student_id, amount, paid, currency, status, description, proof_url, due_date, created_at, updated_at FROM fees WHERE id = $1")).
		WithArgs("fee-1").
		WillReturnRows(feeRows())

	fee, err := repo.FindByID(context.Background(), "fee-1")
	require.NoError(t, err)
	assert.Equal(t, "student-1", fee.StudentID)
	assert.Equal(t, models.FeePartial, fee.Status)
	assert.Equal(t, "300", fee.Paid.String())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestFeeLatestUnpaidByStudent(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewFeeRepository(db)

	mock.ExpectQuery("SELECT .* FROM fees WHERE student_id = \\$1 AND status IN \\(\\$2,\\$3\\) ORDER BY created_at DESC LIMIT 1").
		WithArgs("student-1", string(models.FeeUnpaid), string(models.FeePartial)).
		WillReturnRows(feeRows())

	fee, err := repo.LatestUnpaidByStudent(context.Background(), "student-1", models.FeeUnpaid, models.FeePartial)
	require.NoError(t, err)
	assert.Equal(t, "fee-1", fee.ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestFeeAttachProof(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewFeeRepository(db)

	mock.ExpectExec(regexp.QuoteMeta("UPDATE fees SET proof_url = $2, status = $3, updated_at = $4 WHERE id = $1")).
		WithArgs("fee-1", "/uploads/proof.pdf", string(models.FeeVerifying), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := repo.AttachProof(context.Background(), "fee-1", "/uploads/proof.pdf")
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestFeeCreate(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewFeeRepository(db)

	mock.ExpectExec("INSERT INTO fees").WillReturnResult(sqlmock.NewResult(1, 1))

	fee := &models.Fee{StudentID: "student-1", Currency: "EUR", Description: "Sim block"}
	err := repo.Create(context.Background(), fee)
	require.NoError(t, err)
	assert.NotEmpty(t, fee.ID)
	assert.Equal(t, models.FeeUnpaid, fee.Status)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestFeeSummary(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewFeeRepository(db)

	rows := sqlmock.NewRows([]string{"currency", "outstanding", "verifying", "collected", "fee_count"}).
		AddRow("EUR", "700.00", "0", "300.00", 2).
		AddRow("USD", "1500.00", "500.00", "0", 1)
	mock.ExpectQuery("SELECT currency,").WillReturnRows(rows)

	summary, err := repo.Summary(context.Background())
	require.NoError(t, err)
	require.Len(t, summary, 2)
	assert.Equal(t, models.Currency("EUR"), summary[0].Currency)
	assert.Equal(t, 2, summary[0].FeeCount)
	assert.NoError(t, mock.ExpectationsWereMet())
}
