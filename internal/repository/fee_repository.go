package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"

	"github.com/aeropoint/academy-api/internal/models"
)

const feeColumns = `id, student_id, amount, paid, currency, status, description, proof_url, due_date, created_at, updated_at`

const feeDetailColumns = `f.id, f.student_id, f.amount, f.paid, f.currency, f.status, f.description, f.proof_url, f.due_date, f.created_at, f.updated_at,
        s.student_no, s.enrollment_status, u.full_name AS student_name, u.email AS student_email`

// FeeRepository handles persistence of billable obligations.
type FeeRepository struct {
	db *sqlx.DB
}

// NewFeeRepository constructs the repository.
func NewFeeRepository(db *sqlx.DB) *FeeRepository {
	return &FeeRepository{db: db}
}

// List returns fees filtered by the provided criteria.
func (r *FeeRepository) List(ctx context.Context, filter models.FeeFilter) ([]models.FeeDetail, int, error) {
	base := `FROM fees f
JOIN students s ON s.id = f.student_id
JOIN users u ON u.id = s.user_id`
	var conditions []string
	var args []interface{}

	if filter.StudentID != "" {
		conditions = append(conditions, fmt.Sprintf("f.student_id = $%d", len(args)+1))
		args = append(args, filter.StudentID)
	}
	if filter.Status != "" {
		conditions = append(conditions, fmt.Sprintf("f.status = $%d", len(args)+1))
		args = append(args, filter.Status)
	}
	if filter.Currency != "" {
		conditions = append(conditions, fmt.Sprintf("f.currency = $%d", len(args)+1))
		args = append(args, filter.Currency)
	}

	clause := ""
	if len(conditions) > 0 {
		clause = " WHERE " + strings.Join(conditions, " AND ")
	}

	allowedSorts := map[string]string{
		"created_at": "f.created_at",
		"due_date":   "f.due_date",
		"amount":     "f.amount",
	}
	orderBy := allowedSorts[filter.SortBy]
	if orderBy == "" {
		orderBy = "f.created_at"
	}
	order := strings.ToUpper(filter.SortOrder)
	if order != "ASC" && order != "DESC" {
		order = "DESC"
	}
	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 || size > 100 {
		size = 20
	}
	offset := (page - 1) * size

	query := fmt.Sprintf("SELECT %s %s ORDER BY %s %s LIMIT %d OFFSET %d", feeDetailColumns, base+clause, orderBy, order, size, offset)

	var fees []models.FeeDetail
	if err := r.db.SelectContext(ctx, &fees, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list fees: %w", err)
	}

	countQuery := fmt.Sprintf("SELECT COUNT(*) %s", base+clause)
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count fees: %w", err)
	}
	return fees, total, nil
}

// FindByID returns a fee by its ID.
func (r *FeeRepository) FindByID(ctx context.Context, id string) (*models.Fee, error) {
	query := fmt.Sprintf(`SELECT %s FROM fees WHERE id = $1`, feeColumns)
	var fee models.Fee
	if err := r.db.GetContext(ctx, &fee, query, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find fee by id: %w", err)
	}
	return &fee, nil
}

// FindDetailByID returns a fee with student context.
func (r *FeeRepository) FindDetailByID(ctx context.Context, id string) (*models.FeeDetail, error) {
	query := fmt.Sprintf(`SELECT %s FROM fees f
        JOIN students s ON s.id = f.student_id
        JOIN users u ON u.id = s.user_id
        WHERE f.id = $1`, feeDetailColumns)
	var detail models.FeeDetail
	if err := r.db.GetContext(ctx, &detail, query, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find fee detail: %w", err)
	}
	return &detail, nil
}

// Create persists a new fee invoice with status UNPAID and nothing paid.
func (r *FeeRepository) Create(ctx context.Context, fee *models.Fee) error {
	if fee.ID == "" {
		fee.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if fee.CreatedAt.IsZero() {
		fee.CreatedAt = now
	}
	fee.UpdatedAt = now
	if fee.Status == "" {
		fee.Status = models.FeeUnpaid
	}
	const query = `INSERT INTO fees (id, student_id, amount, paid, currency, status, description, proof_url, due_date, created_at, updated_at)
        VALUES (:id, :student_id, :amount, :paid, :currency, :status, :description, :proof_url, :due_date, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, fee); err != nil {
		return fmt.Errorf("create fee: %w", err)
	}
	return nil
}

// LatestUnpaidByStudent returns the most recent fee awaiting payment for a
// student. Statuses UNPAID and PARTIAL both accept a new proof.
func (r *FeeRepository) LatestUnpaidByStudent(ctx context.Context, studentID string, statuses ...models.FeeStatus) (*models.Fee, error) {
	if len(statuses) == 0 {
		statuses = []models.FeeStatus{models.FeeUnpaid}
	}
	placeholders := make([]string, len(statuses))
	args := []interface{}{studentID}
	for i, s := range statuses {
		placeholders[i] = fmt.Sprintf("$%d", len(args)+1)
		args = append(args, s)
	}
	query := fmt.Sprintf(`SELECT %s FROM fees WHERE student_id = $1 AND status IN (%s) ORDER BY created_at DESC LIMIT 1`, feeColumns, strings.Join(placeholders, ","))
	var fee models.Fee
	if err := r.db.GetContext(ctx, &fee, query, args...); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("latest unpaid fee: %w", err)
	}
	return &fee, nil
}

// AttachProof records a payment proof and moves the fee into VERIFYING.
func (r *FeeRepository) AttachProof(ctx context.Context, id, proofURL string) error {
	const query = `UPDATE fees SET proof_url = $2, status = $3, updated_at = $4 WHERE id = $1`
	if _, err := r.db.ExecContext(ctx, query, id, proofURL, models.FeeVerifying, time.Now().UTC()); err != nil {
		return fmt.Errorf("attach payment proof: %w", err)
	}
	return nil
}

// ClearProof drops the proof and returns the fee to UNPAID. Used by staff
// rejection; calling it repeatedly is harmless.
func (r *FeeRepository) ClearProof(ctx context.Context, id string) error {
	const query = `UPDATE fees SET proof_url = NULL, status = $2, updated_at = $3 WHERE id = $1`
	if _, err := r.db.ExecContext(ctx, query, id, models.FeeUnpaid, time.Now().UTC()); err != nil {
		return fmt.Errorf("clear payment proof: %w", err)
	}
	return nil
}

// FindForUpdateTx loads a fee under a row lock. Concurrent approvals of the
// same fee serialize on this lock.
func (r *FeeRepository) FindForUpdateTx(ctx context.Context, tx *sqlx.Tx, id string) (*models.Fee, error) {
	query := fmt.Sprintf(`SELECT %s FROM fees WHERE id = $1 FOR UPDATE`, feeColumns)
	var fee models.Fee
	if err := tx.GetContext(ctx, &fee, query, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("lock fee: %w", err)
	}
	return &fee, nil
}

// UpdatePaymentTx records the new cumulative paid amount and status.
func (r *FeeRepository) UpdatePaymentTx(ctx context.Context, tx *sqlx.Tx, id string, paid decimal.Decimal, status models.FeeStatus) error {
	const query = `UPDATE fees SET paid = $2, status = $3, updated_at = $4 WHERE id = $1`
	if _, err := tx.ExecContext(ctx, query, id, paid, status, time.Now().UTC()); err != nil {
		return fmt.Errorf("update fee payment: %w", err)
	}
	return nil
}

// Summary aggregates fee totals per currency for the finance dashboard.
func (r *FeeRepository) Summary(ctx context.Context) ([]models.FinanceSummary, error) {
	const query = `SELECT currency,
        COALESCE(SUM(CASE WHEN status IN ('UNPAID', 'PARTIAL') THEN amount - paid ELSE 0 END), 0) AS outstanding,
        COALESCE(SUM(CASE WHEN status = 'VERIFYING' THEN amount - paid ELSE 0 END), 0) AS verifying,
        COALESCE(SUM(paid), 0) AS collected,
        COUNT(*) AS fee_count
        FROM fees GROUP BY currency ORDER BY currency`
	var rows []models.FinanceSummary
	if err := r.db.SelectContext(ctx, &rows, query); err != nil {
		return nil, fmt.Errorf("finance summary: %w", err)
	}
	return rows, nil
}

// Ledger returns all fees with student context for export, oldest first.
func (r *FeeRepository) Ledger(ctx context.Context) ([]models.FeeDetail, error) {
	query := fmt.Sprintf(`SELECT %s FROM fees f
        JOIN students s ON s.id = f.student_id
        JOIN users u ON u.id = s.user_id
        ORDER BY f.created_at ASC`, feeDetailColumns)
	var rows []models.FeeDetail
	if err := r.db.SelectContext(ctx, &rows, query); err != nil {
		return nil, fmt.Errorf("fee ledger: %w", err)
	}
	return rows, nil
}
