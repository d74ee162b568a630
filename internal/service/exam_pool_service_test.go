package service

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aeropoint/academy-api/internal/models"
	appErrors "github.com/aeropoint/academy-api/pkg/errors"
)

type examPoolRepoStub struct {
	pool        *models.ExamPool
	memberCount int
	memberships map[string]bool
	created     []models.ExamPoolMembership
}

func newExamPoolRepoStub(capacity int) *examPoolRepoStub {
	return &examPoolRepoStub{
		pool: &models.ExamPool{
			ID:            "pool-1",
			Title:         "EASA ATPL Sitting March",
			ExamDate:      time.Date(2026, 3, 14, 9, 0, 0, 0, time.UTC),
			MaxCandidates: capacity,
		},
		memberships: map[string]bool{},
	}
}

func (r *examPoolRepoStub) List(ctx context.Context) ([]models.ExamPoolDetail, error) {
	return []models.ExamPoolDetail{{ExamPool: *r.pool, MemberCount: r.memberCount}}, nil
}

func (r *examPoolRepoStub) FindByID(ctx context.Context, id string) (*models.ExamPool, error) {
	if r.pool.ID != id {
		return nil, sql.ErrNoRows
	}
	out := *r.pool
	return &out, nil
}

func (r *examPoolRepoStub) Create(ctx context.Context, pool *models.ExamPool) error {
	pool.ID = "pool-created"
	return nil
}

func (r *examPoolRepoStub) Members(ctx context.Context, poolID string) ([]models.ExamPoolMemberRow, error) {
	return nil, nil
}

func (r *examPoolRepoStub) MembershipsByStudent(ctx context.Context, studentID string) ([]models.ExamPoolMembership, error) {
	return r.created, nil
}

func (r *examPoolRepoStub) FindForUpdateTx(ctx context.Context, tx *sqlx.Tx, id string) (*models.ExamPool, error) {
	return r.FindByID(ctx, id)
}

func (r *examPoolRepoStub) CountMembersTx(ctx context.Context, tx *sqlx.Tx, poolID string) (int, error) {
	return r.memberCount, nil
}

func (r *examPoolRepoStub) MembershipExistsTx(ctx context.Context, tx *sqlx.Tx, poolID, studentID string) (bool, error) {
	return r.memberships[studentID], nil
}

func (r *examPoolRepoStub) CreateMembershipTx(ctx context.Context, tx *sqlx.Tx, membership *models.ExamPoolMembership) error {
	membership.ID = "membership-1"
	r.memberships[membership.StudentID] = true
	r.memberCount++
	r.created = append(r.created, *membership)
	return nil
}

type poolWalletStub struct {
	wallet   *models.Wallet
	reserved []decimal.Decimal
	ledger   []models.WalletTransaction
}

func (r *poolWalletStub) FindByStudent(ctx context.Context, studentID string) (*models.Wallet, error) {
	if r.wallet == nil {
		return nil, sql.ErrNoRows
	}
	out := *r.wallet
	return &out, nil
}

func (r *poolWalletStub) ListTransactions(ctx context.Context, walletID string) ([]models.WalletTransaction, error) {
	return r.ledger, nil
}

func (r *poolWalletStub) UpsertForStudentTx(ctx context.Context, tx *sqlx.Tx, studentID string) (*models.Wallet, error) {
	if r.wallet == nil {
		r.wallet = &models.Wallet{ID: "wallet-1", StudentID: studentID, Balance: decimal.Zero}
	}
	out := *r.wallet
	return &out, nil
}

func (r *poolWalletStub) ReserveTx(ctx context.Context, tx *sqlx.Tx, walletID string, amount decimal.Decimal) error {
	r.reserved = append(r.reserved, amount)
	r.wallet.Balance = r.wallet.Balance.Sub(amount)
	r.wallet.Reserved = r.wallet.Reserved.Add(amount)
	return nil
}

func (r *poolWalletStub) AppendTransactionTx(ctx context.Context, tx *sqlx.Tx, entry *models.WalletTransaction) error {
	r.ledger = append(r.ledger, *entry)
	return nil
}

func newPoolFixture(t *testing.T, capacity int, balance int64) (*ExamPoolService, *examPoolRepoStub, *poolWalletStub, *txProviderMock) {
	tx, _ := newTxProviderMock(t)
	pools := newExamPoolRepoStub(capacity)
	wallets := &poolWalletStub{wallet: &models.Wallet{ID: "wallet-1", StudentID: "student-1", Balance: decimal.NewFromInt(balance)}}
	students := &feeStudentStub{student: prospectStudent()}
	svc := NewExamPoolService(pools, students, wallets, tx, nil, nil, 300)
	return svc, pools, wallets, tx
}

func TestExamPoolServiceJoinReservesSeatAndCredits(t *testing.T) {
	svc, pools, wallets, tx := newPoolFixture(t, 20, 450)

	tx.mock.ExpectBegin()
	tx.mock.ExpectCommit()
	membership, err := svc.Join(context.Background(), "user-1", "pool-1", JoinExamPoolRequest{ModuleCode: "AIR-LAW"})
	require.NoError(t, err)
	assert.Equal(t, "student-1", membership.StudentID)
	assert.Equal(t, "AIR-LAW", membership.ModuleCode)

	require.Len(t, wallets.reserved, 1)
	assert.True(t, wallets.reserved[0].Equal(decimal.NewFromInt(300)))
	require.Len(t, wallets.ledger, 1)
	assert.Equal(t, models.WalletTxReserve, wallets.ledger[0].Type)
	assert.True(t, wallets.ledger[0].Amount.Equal(decimal.NewFromInt(-300)))
	assert.Equal(t, 1, pools.memberCount)
}

func TestExamPoolServiceJoinInsufficientCredits(t *testing.T) {
	svc, pools, wallets, tx := newPoolFixture(t, 20, 250)

	tx.mock.ExpectBegin()
	tx.mock.ExpectRollback()
	_, err := svc.Join(context.Background(), "user-1", "pool-1", JoinExamPoolRequest{ModuleCode: "AIR-LAW"})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrInsufficientFunds.Code, appErrors.FromError(err).Code)
	assert.Equal(t, appErrors.ErrInsufficientFunds.Status, appErrors.FromError(err).Status)

	// Nothing was booked or spent.
	assert.Empty(t, wallets.reserved)
	assert.Empty(t, wallets.ledger)
	assert.Equal(t, 0, pools.memberCount)
}

func TestExamPoolServiceJoinPoolFull(t *testing.T) {
	svc, pools, _, tx := newPoolFixture(t, 2, 450)
	pools.memberCount = 2

	tx.mock.ExpectBegin()
	tx.mock.ExpectRollback()
	_, err := svc.Join(context.Background(), "user-1", "pool-1", JoinExamPoolRequest{ModuleCode: "AIR-LAW"})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrPoolFull.Code, appErrors.FromError(err).Code)
}

func TestExamPoolServiceJoinTwiceConflicts(t *testing.T) {
	svc, _, _, tx := newPoolFixture(t, 20, 900)

	tx.mock.ExpectBegin()
	tx.mock.ExpectCommit()
	_, err := svc.Join(context.Background(), "user-1", "pool-1", JoinExamPoolRequest{ModuleCode: "AIR-LAW"})
	require.NoError(t, err)

	tx.mock.ExpectBegin()
	tx.mock.ExpectRollback()
	_, err = svc.Join(context.Background(), "user-1", "pool-1", JoinExamPoolRequest{ModuleCode: "MET"})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrAlreadyJoined.Code, appErrors.FromError(err).Code)
}

func TestExamPoolServiceJoinValidatesModuleCode(t *testing.T) {
	svc, _, _, _ := newPoolFixture(t, 20, 450)

	_, err := svc.Join(context.Background(), "user-1", "pool-1", JoinExamPoolRequest{})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

func TestExamPoolServiceWalletStatementWithoutWallet(t *testing.T) {
	tx, _ := newTxProviderMock(t)
	pools := newExamPoolRepoStub(20)
	wallets := &poolWalletStub{}
	students := &feeStudentStub{student: prospectStudent()}
	svc := NewExamPoolService(pools, students, wallets, tx, nil, nil, 300)

	statement, err := svc.WalletStatement(context.Background(), "user-1")
	require.NoError(t, err)
	assert.True(t, statement.Wallet.Balance.IsZero())
	assert.Empty(t, statement.Transactions)
}
