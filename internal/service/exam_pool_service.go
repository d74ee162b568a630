package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/aeropoint/academy-api/internal/models"
	appErrors "github.com/aeropoint/academy-api/pkg/errors"
)

type examPoolRepository interface {
	List(ctx context.Context) ([]models.ExamPoolDetail, error)
	FindByID(ctx context.Context, id string) (*models.ExamPool, error)
	Create(ctx context.Context, pool *models.ExamPool) error
	Members(ctx context.Context, poolID string) ([]models.ExamPoolMemberRow, error)
	MembershipsByStudent(ctx context.Context, studentID string) ([]models.ExamPoolMembership, error)
	FindForUpdateTx(ctx context.Context, tx *sqlx.Tx, id string) (*models.ExamPool, error)
	CountMembersTx(ctx context.Context, tx *sqlx.Tx, poolID string) (int, error)
	MembershipExistsTx(ctx context.Context, tx *sqlx.Tx, poolID, studentID string) (bool, error)
	CreateMembershipTx(ctx context.Context, tx *sqlx.Tx, membership *models.ExamPoolMembership) error
}

type examPoolStudentReader interface {
	FindByUserID(ctx context.Context, userID string) (*models.StudentDetail, error)
}

type examPoolWalletRepository interface {
	FindByStudent(ctx context.Context, studentID string) (*models.Wallet, error)
	ListTransactions(ctx context.Context, walletID string) ([]models.WalletTransaction, error)
	UpsertForStudentTx(ctx context.Context, tx *sqlx.Tx, studentID string) (*models.Wallet, error)
	ReserveTx(ctx context.Context, tx *sqlx.Tx, walletID string, amount decimal.Decimal) error
	AppendTransactionTx(ctx context.Context, tx *sqlx.Tx, entry *models.WalletTransaction) error
}

// CreateExamPoolRequest is the staff payload for opening a new sitting.
type CreateExamPoolRequest struct {
	Title         string    `json:"title" validate:"required"`
	ExamDate      time.Time `json:"exam_date" validate:"required"`
	MaxCandidates int       `json:"max_candidates" validate:"required,gt=0"`
}

// JoinExamPoolRequest books one seat for a chosen module.
type JoinExamPoolRequest struct {
	ModuleCode string `json:"module_code" validate:"required"`
}

// WalletStatement bundles a wallet with its ledger for the student portal.
type WalletStatement struct {
	Wallet       models.Wallet              `json:"wallet"`
	Transactions []models.WalletTransaction `json:"transactions"`
}

// ExamPoolService manages exam sittings and seat booking against the
// student credit wallet.
type ExamPoolService struct {
	pools     examPoolRepository
	students  examPoolStudentReader
	wallets   examPoolWalletRepository
	tx        txProvider
	validator *validator.Validate
	logger    *zap.Logger
	seatCost  decimal.Decimal
}

// NewExamPoolService constructs the exam pool service.
func NewExamPoolService(pools examPoolRepository, students examPoolStudentReader, wallets examPoolWalletRepository, tx txProvider, validate *validator.Validate, logger *zap.Logger, seatCostCredits int64) *ExamPoolService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validator.New()
	}
	if seatCostCredits <= 0 {
		seatCostCredits = 300
	}
	return &ExamPoolService{
		pools:     pools,
		students:  students,
		wallets:   wallets,
		tx:        tx,
		validator: validate,
		logger:    logger,
		seatCost:  decimal.NewFromInt(seatCostCredits),
	}
}

// List returns all pools with current occupancy.
func (s *ExamPoolService) List(ctx context.Context) ([]models.ExamPoolDetail, error) {
	pools, err := s.pools.List(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list exam pools")
	}
	return pools, nil
}

// Members lists the candidates booked into a pool.
func (s *ExamPoolService) Members(ctx context.Context, poolID string) ([]models.ExamPoolMemberRow, error) {
	if _, err := s.pools.FindByID(ctx, poolID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "exam pool not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load exam pool")
	}
	members, err := s.pools.Members(ctx, poolID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list pool members")
	}
	return members, nil
}

// Create opens a new exam sitting.
func (s *ExamPoolService) Create(ctx context.Context, req CreateExamPoolRequest) (*models.ExamPool, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid exam pool payload")
	}
	pool := &models.ExamPool{
		Title:         req.Title,
		ExamDate:      req.ExamDate,
		MaxCandidates: req.MaxCandidates,
	}
	if err := s.pools.Create(ctx, pool); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create exam pool")
	}
	return pool, nil
}

// MyMemberships returns the calling student's bookings.
func (s *ExamPoolService) MyMemberships(ctx context.Context, userID string) ([]models.ExamPoolMembership, error) {
	student, err := s.students.FindByUserID(ctx, userID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "student profile not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load student")
	}
	memberships, err := s.pools.MembershipsByStudent(ctx, student.ID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list memberships")
	}
	return memberships, nil
}

// WalletStatement returns the student's wallet and its ledger.
func (s *ExamPoolService) WalletStatement(ctx context.Context, userID string) (*WalletStatement, error) {
	student, err := s.students.FindByUserID(ctx, userID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "student profile not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load student")
	}

	wallet, err := s.wallets.FindByStudent(ctx, student.ID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			// A student without purchases has no wallet row yet.
			return &WalletStatement{Wallet: models.Wallet{StudentID: student.ID, Balance: decimal.Zero, Reserved: decimal.Zero}}, nil
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load wallet")
	}

	txs, err := s.wallets.ListTransactions(ctx, wallet.ID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load wallet ledger")
	}
	return &WalletStatement{Wallet: *wallet, Transactions: txs}, nil
}

// Join books one seat in a pool, spending seat-cost credits from the wallet.
// The pool row lock makes capacity checks race-free: concurrent joins of the
// same pool serialize, so the last seat is only booked once.
func (s *ExamPoolService) Join(ctx context.Context, userID, poolID string, req JoinExamPoolRequest) (*models.ExamPoolMembership, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid join payload")
	}

	student, err := s.students.FindByUserID(ctx, userID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "student profile not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load student")
	}
	if s.tx == nil {
		return nil, appErrors.Clone(appErrors.ErrInternal, "transaction provider missing")
	}

	tx, err := s.tx.BeginTxx(ctx, nil)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to begin transaction")
	}
	commit := false
	defer func() {
		if !commit {
			_ = tx.Rollback()
		}
	}()

	pool, err := s.pools.FindForUpdateTx(ctx, tx, poolID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "exam pool not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to lock exam pool")
	}

	taken, err := s.pools.CountMembersTx(ctx, tx, pool.ID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to count pool members")
	}
	if taken >= pool.MaxCandidates {
		return nil, appErrors.Clone(appErrors.ErrPoolFull, fmt.Sprintf("exam pool %q is at capacity", pool.Title))
	}

	exists, err := s.pools.MembershipExistsTx(ctx, tx, pool.ID, student.ID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check membership")
	}
	if exists {
		return nil, appErrors.Clone(appErrors.ErrAlreadyJoined, "")
	}

	wallet, err := s.wallets.UpsertForStudentTx(ctx, tx, student.ID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to lock wallet")
	}
	if wallet.Balance.LessThan(s.seatCost) {
		return nil, appErrors.Clone(appErrors.ErrInsufficientFunds, fmt.Sprintf("seat costs %s credits, wallet holds %s", s.seatCost.StringFixed(0), wallet.Balance.StringFixed(0)))
	}

	if err := s.wallets.ReserveTx(ctx, tx, wallet.ID, s.seatCost); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to reserve credits")
	}
	if err := s.wallets.AppendTransactionTx(ctx, tx, &models.WalletTransaction{
		WalletID:    wallet.ID,
		Amount:      s.seatCost.Neg(),
		Type:        models.WalletTxReserve,
		Description: fmt.Sprintf("Seat reservation: %s (%s)", pool.Title, req.ModuleCode),
	}); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to record reservation")
	}

	membership := &models.ExamPoolMembership{
		PoolID:     pool.ID,
		StudentID:  student.ID,
		ModuleCode: req.ModuleCode,
	}
	if err := s.pools.CreateMembershipTx(ctx, tx, membership); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create membership")
	}

	if err := tx.Commit(); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to commit seat booking")
	}
	commit = true

	s.logger.Info("exam seat booked",
		zap.String("pool_id", pool.ID),
		zap.String("student_id", student.ID),
		zap.String("module_code", req.ModuleCode))

	return membership, nil
}
