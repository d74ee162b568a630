package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// FeeStatus is the fee verification state machine:
// UNPAID -> VERIFYING -> PARTIAL | PAID. PARTIAL may re-enter VERIFYING on a
// subsequent proof submission; PAID is terminal.
type FeeStatus string

const (
	FeeUnpaid    FeeStatus = "UNPAID"
	FeeVerifying FeeStatus = "VERIFYING"
	FeePartial   FeeStatus = "PARTIAL"
	FeePaid      FeeStatus = "PAID"
)

// Currency codes used for billing. Registration is billed in GHS,
// tuition and exam fees in EUR.
type Currency string

const (
	CurrencyGHS Currency = "GHS"
	CurrencyEUR Currency = "EUR"
)

// Fee is a billable obligation owed by a student.
type Fee struct {
	ID          string          `db:"id" json:"id"`
	StudentID   string          `db:"student_id" json:"student_id"`
	Amount      decimal.Decimal `db:"amount" json:"amount"`
	Paid        decimal.Decimal `db:"paid" json:"paid"`
	Currency    Currency        `db:"currency" json:"currency"`
	Status      FeeStatus       `db:"status" json:"status"`
	Description string          `db:"description" json:"description"`
	ProofURL    *string         `db:"proof_url" json:"proof_url,omitempty"`
	DueDate     *time.Time      `db:"due_date" json:"due_date,omitempty"`
	CreatedAt   time.Time       `db:"created_at" json:"created_at"`
	UpdatedAt   time.Time       `db:"updated_at" json:"updated_at"`
}

// FeeDetail joins a fee with the owning student and user.
type FeeDetail struct {
	Fee
	StudentNo        *string          `db:"student_no" json:"student_no,omitempty"`
	EnrollmentStatus EnrollmentStatus `db:"enrollment_status" json:"enrollment_status"`
	StudentName      string           `db:"student_name" json:"student_name"`
	StudentEmail     string           `db:"student_email" json:"student_email"`
}

// FeeFilter narrows fee listings.
type FeeFilter struct {
	StudentID string
	Status    FeeStatus
	Currency  Currency
	Page      int
	PageSize  int
	SortBy    string
	SortOrder string
}

// CreateFeeRequest is the staff invoice payload.
type CreateFeeRequest struct {
	StudentID   string          `json:"student_id" validate:"required,uuid4"`
	Amount      decimal.Decimal `json:"amount" validate:"required"`
	Currency    Currency        `json:"currency" validate:"required,oneof=GHS EUR"`
	Description string          `json:"description" validate:"required"`
	DueDate     *time.Time      `json:"due_date,omitempty"`
}

// TopUpRequest lets a student buy an exam credit bundle. The resulting fee
// description encodes the bundle so approval can credit the wallet later.
type TopUpRequest struct {
	BundleName string          `json:"bundle_name" validate:"required"`
	Credits    int64           `json:"credits" validate:"required,gt=0"`
	Amount     decimal.Decimal `json:"amount" validate:"required"`
}

// PublicProofRequest is the unauthenticated proof-of-payment submission.
type PublicProofRequest struct {
	Email    string `json:"email" validate:"required,email"`
	ProofURL string `json:"proof_url" validate:"required,url"`
}

// StudentProofRequest attaches a proof to a specific fee owned by the caller.
type StudentProofRequest struct {
	ProofURL string `json:"proof_url" validate:"required,url"`
}

// ApproveFeeRequest records how much of the fee a verified bank transfer
// covers.
type ApproveFeeRequest struct {
	AmountPaid decimal.Decimal `json:"amount_paid" validate:"required"`
	IP         string          `json:"-"`
	UserAgent  string          `json:"-"`
}

// RejectFeeRequest optionally carries the rejection reason shown to the
// student.
type RejectFeeRequest struct {
	Reason    string `json:"reason"`
	IP        string `json:"-"`
	UserAgent string `json:"-"`
}

// FinanceDashboard is the cached staff dashboard payload.
type FinanceDashboard struct {
	Summaries   []FinanceSummary `json:"summaries"`
	GeneratedAt time.Time        `json:"generated_at"`
}

// FinanceSummary aggregates outstanding amounts per currency for the
// staff dashboard.
type FinanceSummary struct {
	Currency    Currency        `db:"currency" json:"currency"`
	Outstanding decimal.Decimal `db:"outstanding" json:"outstanding"`
	Verifying   decimal.Decimal `db:"verifying" json:"verifying"`
	Collected   decimal.Decimal `db:"collected" json:"collected"`
	FeeCount    int             `db:"fee_count" json:"fee_count"`
}
