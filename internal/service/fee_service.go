package service

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/aeropoint/academy-api/internal/models"
	appErrors "github.com/aeropoint/academy-api/pkg/errors"
	"github.com/aeropoint/academy-api/pkg/export"
)

const financeDashboardCacheKey = "finance:dashboard"

// bundleCreditsPattern extracts the credit count from bundle fee
// descriptions of the form "BUNDLE: Starter Pack (100 Credits)".
var bundleCreditsPattern = regexp.MustCompile(`\((\d+) Credits\)`)

type txProvider interface {
	BeginTxx(ctx context.Context, opts *sql.TxOptions) (*sqlx.Tx, error)
}

type feeRepository interface {
	List(ctx context.Context, filter models.FeeFilter) ([]models.FeeDetail, int, error)
	FindByID(ctx context.Context, id string) (*models.Fee, error)
	FindDetailByID(ctx context.Context, id string) (*models.FeeDetail, error)
	Create(ctx context.Context, fee *models.Fee) error
	LatestUnpaidByStudent(ctx context.Context, studentID string, statuses ...models.FeeStatus) (*models.Fee, error)
	AttachProof(ctx context.Context, id, proofURL string) error
	ClearProof(ctx context.Context, id string) error
	FindForUpdateTx(ctx context.Context, tx *sqlx.Tx, id string) (*models.Fee, error)
	UpdatePaymentTx(ctx context.Context, tx *sqlx.Tx, id string, paid decimal.Decimal, status models.FeeStatus) error
	Summary(ctx context.Context) ([]models.FinanceSummary, error)
	Ledger(ctx context.Context) ([]models.FeeDetail, error)
}

type feeStudentRepository interface {
	FindByID(ctx context.Context, id string) (*models.StudentDetail, error)
	FindByEmail(ctx context.Context, email string) (*models.StudentDetail, error)
	FindByUserID(ctx context.Context, userID string) (*models.StudentDetail, error)
	UpdateEnrollmentStatusTx(ctx context.Context, tx *sqlx.Tx, id string, status models.EnrollmentStatus) error
}

type feeWalletRepository interface {
	UpsertForStudentTx(ctx context.Context, tx *sqlx.Tx, studentID string) (*models.Wallet, error)
	CreditTx(ctx context.Context, tx *sqlx.Tx, walletID string, amount decimal.Decimal) error
	AppendTransactionTx(ctx context.Context, tx *sqlx.Tx, entry *models.WalletTransaction) error
}

type feeAuditRepository interface {
	CreateAuditLog(ctx context.Context, log *models.AuditLog) error
}

// FeeServiceConfig tunes the fee workflow.
type FeeServiceConfig struct {
	SeatDepositRatio  float64
	DashboardCacheTTL time.Duration
	ReceiptIssuer     string
}

// FeeService implements invoicing, proof submission and the payment
// verification state machine.
type FeeService struct {
	fees      feeRepository
	students  feeStudentRepository
	wallets   feeWalletRepository
	audits    feeAuditRepository
	tx        txProvider
	cache     *CacheService
	notifier  *NotificationService
	receipts  *export.ReceiptRenderer
	exporter  *export.CSVExporter
	validator *validator.Validate
	logger    *zap.Logger
	config    FeeServiceConfig
}

// NewFeeService constructs the fee service.
func NewFeeService(
	fees feeRepository,
	students feeStudentRepository,
	wallets feeWalletRepository,
	audits feeAuditRepository,
	tx txProvider,
	cache *CacheService,
	notifier *NotificationService,
	validate *validator.Validate,
	logger *zap.Logger,
	config FeeServiceConfig,
) *FeeService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validator.New()
	}
	if config.SeatDepositRatio <= 0 || config.SeatDepositRatio > 1 {
		config.SeatDepositRatio = 0.40
	}
	return &FeeService{
		fees:      fees,
		students:  students,
		wallets:   wallets,
		audits:    audits,
		tx:        tx,
		cache:     cache,
		notifier:  notifier,
		receipts:  export.NewReceiptRenderer(),
		exporter:  export.NewCSVExporter(),
		validator: validate,
		logger:    logger,
		config:    config,
	}
}

// List returns fees matching the filter with pagination metadata.
func (s *FeeService) List(ctx context.Context, filter models.FeeFilter) ([]models.FeeDetail, *models.Pagination, error) {
	rows, total, err := s.fees.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list fees")
	}
	page := filter.Page
	if page <= 0 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 {
		size = 20
	}
	return rows, &models.Pagination{Page: page, PageSize: size, TotalCount: total}, nil
}

// Get loads one fee with student context.
func (s *FeeService) Get(ctx context.Context, id string) (*models.FeeDetail, error) {
	detail, err := s.fees.FindDetailByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "fee not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load fee")
	}
	return detail, nil
}

// CreateInvoice issues a fee invoice on behalf of staff.
func (s *FeeService) CreateInvoice(ctx context.Context, req models.CreateFeeRequest) (*models.Fee, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid invoice payload")
	}
	if req.Amount.IsNegative() || req.Amount.IsZero() {
		return nil, appErrors.Clone(appErrors.ErrValidation, "amount must be positive")
	}

	if _, err := s.students.FindByID(ctx, req.StudentID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "student not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load student")
	}

	fee := &models.Fee{
		StudentID:   req.StudentID,
		Amount:      req.Amount,
		Paid:        decimal.Zero,
		Currency:    req.Currency,
		Status:      models.FeeUnpaid,
		Description: req.Description,
		DueDate:     req.DueDate,
	}
	if err := s.fees.Create(ctx, fee); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create fee")
	}

	s.invalidateDashboard(ctx)
	return fee, nil
}

// TopUp creates an exam credit bundle invoice for the authenticated student.
// The wallet is credited later, when staff verify the payment.
func (s *FeeService) TopUp(ctx context.Context, userID string, req models.TopUpRequest) (*models.Fee, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid top-up payload")
	}
	if req.Amount.IsNegative() || req.Amount.IsZero() {
		return nil, appErrors.Clone(appErrors.ErrValidation, "amount must be positive")
	}

	student, err := s.students.FindByUserID(ctx, userID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "student profile not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load student")
	}

	fee := &models.Fee{
		StudentID:   student.ID,
		Amount:      req.Amount,
		Paid:        decimal.Zero,
		Currency:    models.CurrencyEUR,
		Status:      models.FeeUnpaid,
		Description: fmt.Sprintf("BUNDLE: %s (%d Credits)", req.BundleName, req.Credits),
	}
	if err := s.fees.Create(ctx, fee); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create bundle invoice")
	}

	s.invalidateDashboard(ctx)
	return fee, nil
}

// SubmitProofByEmail handles the unauthenticated proof drop-off. The student
// is resolved by email and the proof lands on their most recent unpaid fee.
func (s *FeeService) SubmitProofByEmail(ctx context.Context, req models.PublicProofRequest) (*models.Fee, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid proof payload")
	}

	student, err := s.students.FindByEmail(ctx, req.Email)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "no student registered with this email")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to resolve student")
	}

	fee, err := s.fees.LatestUnpaidByStudent(ctx, student.ID, models.FeeUnpaid)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "no unpaid fee awaiting proof")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to find unpaid fee")
	}

	if err := s.fees.AttachProof(ctx, fee.ID, req.ProofURL); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to attach proof")
	}

	fee.ProofURL = &req.ProofURL
	fee.Status = models.FeeVerifying
	return fee, nil
}

// SubmitProofByStudent attaches a proof to a specific fee owned by the
// authenticated student. UNPAID and PARTIAL fees both accept a proof.
func (s *FeeService) SubmitProofByStudent(ctx context.Context, userID, feeID string, req models.StudentProofRequest) (*models.Fee, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid proof payload")
	}

	student, err := s.students.FindByUserID(ctx, userID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "student profile not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load student")
	}

	fee, err := s.fees.FindByID(ctx, feeID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "fee not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load fee")
	}
	if fee.StudentID != student.ID {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "fee belongs to another student")
	}
	if fee.Status != models.FeeUnpaid && fee.Status != models.FeePartial {
		return nil, appErrors.Clone(appErrors.ErrConflict, "fee is not awaiting payment")
	}

	if err := s.fees.AttachProof(ctx, fee.ID, req.ProofURL); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to attach proof")
	}

	fee.ProofURL = &req.ProofURL
	fee.Status = models.FeeVerifying
	return fee, nil
}

// Approve verifies a submitted payment. The whole mutation runs in one
// transaction with the fee row locked, so two staff approving the same fee
// serialize and the second sees the first's result.
func (s *FeeService) Approve(ctx context.Context, actorID, feeID string, req models.ApproveFeeRequest) (*models.Fee, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid approval payload")
	}
	if req.AmountPaid.IsNegative() || req.AmountPaid.IsZero() {
		return nil, appErrors.Clone(appErrors.ErrValidation, "amount_paid must be positive")
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

	fee, err := s.fees.FindForUpdateTx(ctx, tx, feeID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "fee not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to lock fee")
	}

	wasPaid := fee.Status == models.FeePaid
	newPaid := fee.Paid.Add(req.AmountPaid)

	newStatus := models.FeeUnpaid
	switch {
	case newPaid.GreaterThanOrEqual(fee.Amount):
		newStatus = models.FeePaid
	case newPaid.IsPositive():
		newStatus = models.FeePartial
	}

	if err := s.fees.UpdatePaymentTx(ctx, tx, fee.ID, newPaid, newStatus); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to record payment")
	}

	promoted := false
	depositThreshold := fee.Amount.Mul(decimal.NewFromFloat(s.config.SeatDepositRatio))
	if newPaid.GreaterThanOrEqual(depositThreshold) {
		student, err := s.students.FindByID(ctx, fee.StudentID)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load student")
		}
		if !student.EnrollmentStatus.AtLeast(models.EnrollmentEnrolled) {
			if err := s.students.UpdateEnrollmentStatusTx(ctx, tx, student.ID, models.EnrollmentEnrolled); err != nil {
				return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to promote enrollment")
			}
			promoted = true
		}
	}

	if !wasPaid && newStatus == models.FeePaid {
		if credits, ok := bundleCredits(fee.Description); ok {
			wallet, err := s.wallets.UpsertForStudentTx(ctx, tx, fee.StudentID)
			if err != nil {
				return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load wallet")
			}
			amount := decimal.NewFromInt(credits)
			if err := s.wallets.CreditTx(ctx, tx, wallet.ID, amount); err != nil {
				return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to credit wallet")
			}
			if err := s.wallets.AppendTransactionTx(ctx, tx, &models.WalletTransaction{
				WalletID:    wallet.ID,
				Amount:      amount,
				Type:        models.WalletTxPurchase,
				Description: fee.Description,
			}); err != nil {
				return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to record wallet purchase")
			}
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to commit approval")
	}
	commit = true

	fee.Paid = newPaid
	fee.Status = newStatus

	s.recordApprovalAudit(ctx, actorID, fee, req)
	s.invalidateDashboard(ctx)

	if s.notifier != nil {
		if student, err := s.students.FindByID(ctx, fee.StudentID); err == nil {
			s.notifier.NotifyPaymentVerified(student, fee, req.AmountPaid)
			if promoted {
				s.notifier.NotifyEnrollmentPromoted(student)
			}
		}
	}

	return fee, nil
}

// Reject returns a fee under verification to UNPAID and clears the proof.
// Rejecting an already UNPAID fee is a no-op.
func (s *FeeService) Reject(ctx context.Context, actorID, feeID string, req models.RejectFeeRequest) (*models.Fee, error) {
	fee, err := s.fees.FindByID(ctx, feeID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "fee not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load fee")
	}

	if fee.Status != models.FeeVerifying && fee.Status != models.FeeUnpaid {
		return nil, appErrors.Clone(appErrors.ErrConflict, "fee is not under verification")
	}

	if err := s.fees.ClearProof(ctx, fee.ID); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to clear proof")
	}
	fee.ProofURL = nil
	fee.Status = models.FeeUnpaid

	payload, _ := json.Marshal(map[string]string{"reason": req.Reason})
	if err := s.audits.CreateAuditLog(ctx, &models.AuditLog{
		UserID:     &actorID,
		Action:     models.AuditActionFeeReject,
		Resource:   "fee",
		ResourceID: &fee.ID,
		NewValues:  payload,
		IPAddress:  req.IP,
		UserAgent:  req.UserAgent,
	}); err != nil {
		s.logger.Warn("failed to record fee rejection audit log", zap.Error(err))
	}

	if s.notifier != nil {
		if student, err := s.students.FindByID(ctx, fee.StudentID); err == nil {
			s.notifier.NotifyPaymentRejected(student, fee, req.Reason)
		}
	}

	return fee, nil
}

// Dashboard returns per-currency finance totals, served from cache when warm.
func (s *FeeService) Dashboard(ctx context.Context) (*models.FinanceDashboard, error) {
	var cached models.FinanceDashboard
	if hit, err := s.cache.Get(ctx, financeDashboardCacheKey, &cached); err == nil && hit {
		return &cached, nil
	}

	summaries, err := s.fees.Summary(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to aggregate finance summary")
	}

	dashboard := &models.FinanceDashboard{
		Summaries:   summaries,
		GeneratedAt: time.Now().UTC(),
	}
	if err := s.cache.Set(ctx, financeDashboardCacheKey, dashboard, s.config.DashboardCacheTTL); err != nil {
		s.logger.Warn("failed to cache finance dashboard", zap.Error(err))
	}
	return dashboard, nil
}

// LedgerCSV renders the full fee ledger as CSV for download.
func (s *FeeService) LedgerCSV(ctx context.Context) ([]byte, error) {
	rows, err := s.fees.Ledger(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load fee ledger")
	}

	dataset := export.Dataset{
		Headers: []string{"fee_id", "student_no", "student_name", "student_email", "description", "currency", "amount", "paid", "status", "created_at"},
	}
	for _, row := range rows {
		studentNo := ""
		if row.StudentNo != nil {
			studentNo = *row.StudentNo
		}
		dataset.Rows = append(dataset.Rows, []string{
			row.ID,
			studentNo,
			row.StudentName,
			row.StudentEmail,
			row.Description,
			string(row.Currency),
			row.Amount.StringFixed(2),
			row.Paid.StringFixed(2),
			string(row.Status),
			row.CreatedAt.UTC().Format(time.RFC3339),
		})
	}
	return s.exporter.Render(dataset)
}

// ReceiptPDF renders a payment receipt for a fee the student owns. Only fees
// with at least one verified payment carry a receipt.
func (s *FeeService) ReceiptPDF(ctx context.Context, userID, feeID string) ([]byte, error) {
	student, err := s.students.FindByUserID(ctx, userID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "student profile not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load student")
	}

	detail, err := s.fees.FindDetailByID(ctx, feeID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "fee not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load fee")
	}
	if detail.StudentID != student.ID {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "fee belongs to another student")
	}
	if !detail.Paid.IsPositive() {
		return nil, appErrors.Clone(appErrors.ErrPreconditionFailed, "no verified payment on this fee")
	}

	studentNo := ""
	if detail.StudentNo != nil {
		studentNo = *detail.StudentNo
	}
	return s.receipts.Render(export.Receipt{
		Number:      detail.ID,
		Issuer:      s.config.ReceiptIssuer,
		StudentName: detail.StudentName,
		StudentNo:   studentNo,
		Description: detail.Description,
		Currency:    string(detail.Currency),
		Amount:      detail.Amount.StringFixed(2),
		Paid:        detail.Paid.StringFixed(2),
		Status:      string(detail.Status),
		IssuedAt:    time.Now().UTC().Format("2006-01-02"),
	})
}

func (s *FeeService) recordApprovalAudit(ctx context.Context, actorID string, fee *models.Fee, req models.ApproveFeeRequest) {
	payload, _ := json.Marshal(map[string]string{
		"amount_paid": req.AmountPaid.StringFixed(2),
		"paid_total":  fee.Paid.StringFixed(2),
		"status":      string(fee.Status),
	})
	if err := s.audits.CreateAuditLog(ctx, &models.AuditLog{
		UserID:     &actorID,
		Action:     models.AuditActionFeeApprove,
		Resource:   "fee",
		ResourceID: &fee.ID,
		NewValues:  payload,
		IPAddress:  req.IP,
		UserAgent:  req.UserAgent,
	}); err != nil {
		s.logger.Warn("failed to record fee approval audit log", zap.Error(err))
	}
}

func (s *FeeService) invalidateDashboard(ctx context.Context) {
	if err := s.cache.Invalidate(ctx, financeDashboardCacheKey); err != nil {
		s.logger.Warn("failed to invalidate finance dashboard cache", zap.Error(err))
	}
}

// bundleCredits parses the credit count out of a bundle fee description.
func bundleCredits(description string) (int64, bool) {
	if len(description) < 7 || description[:7] != "BUNDLE:" {
		return 0, false
	}
	match := bundleCreditsPattern.FindStringSubmatch(description)
	if match == nil {
		return 0, false
	}
	n, err := strconv.ParseInt(match[1], 10, 64)
	if err != nil || n <= 0 {
		return 0, false
	}
	return n, true
}
