package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/aeropoint/academy-api/internal/models"
)

const applicationDetailColumns = `a.id, a.student_id, a.program, a.status, a.document_url, a.notes, a.submitted_at, a.decided_at,
        u.full_name AS student_name, u.email AS student_email`

// ApplicationRepository persists admissions applications and enquiries.
type ApplicationRepository struct {
	db *sqlx.DB
}

// NewApplicationRepository constructs the repository.
func NewApplicationRepository(db *sqlx.DB) *ApplicationRepository {
	return &ApplicationRepository{db: db}
}

// Create persists a new application in SUBMITTED state.
func (r *ApplicationRepository) Create(ctx context.Context, application *models.Application) error {
	if application.ID == "" {
		application.ID = uuid.NewString()
	}
	if application.SubmittedAt.IsZero() {
		application.SubmittedAt = time.Now().UTC()
	}
	if application.Status == "" {
		application.Status = models.ApplicationSubmitted
	}
	const query = `INSERT INTO applications (id, student_id, program, status, document_url, notes, submitted_at, decided_at)
        VALUES (:id, :student_id, :program, :status, :document_url, :notes, :submitted_at, :decided_at)`
	if _, err := r.db.NamedExecContext(ctx, query, application); err != nil {
		return fmt.Errorf("create application: %w", err)
	}
	return nil
}

// FindByID returns an application by identifier.
func (r *ApplicationRepository) FindByID(ctx context.Context, id string) (*models.Application, error) {
	const query = `SELECT id, student_id, program, status, document_url, notes, submitted_at, decided_at FROM applications WHERE id = $1`
	var application models.Application
	if err := r.db.GetContext(ctx, &application, query, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find application: %w", err)
	}
	return &application, nil
}

// List returns applications with student context.
func (r *ApplicationRepository) List(ctx context.Context, status models.ApplicationStatus, studentID string) ([]models.ApplicationDetail, error) {
	base := `FROM applications a
JOIN students s ON s.id = a.student_id
JOIN users u ON u.id = s.user_id`
	var conditions []string
	var args []interface{}

	if status != "" {
		conditions = append(conditions, fmt.Sprintf("a.status = $%d", len(args)+1))
		args = append(args, status)
	}
	if studentID != "" {
		conditions = append(conditions, fmt.Sprintf("a.student_id = $%d", len(args)+1))
		args = append(args, studentID)
	}
	clause := ""
	if len(conditions) > 0 {
		clause = " WHERE " + strings.Join(conditions, " AND ")
	}

	query := fmt.Sprintf("SELECT %s %s ORDER BY a.submitted_at DESC", applicationDetailColumns, base+clause)
	var applications []models.ApplicationDetail
	if err := r.db.SelectContext(ctx, &applications, query, args...); err != nil {
		return nil, fmt.Errorf("list applications: %w", err)
	}
	return applications, nil
}

// UpdateStatus transitions an application and stamps the decision time for
// terminal states.
func (r *ApplicationRepository) UpdateStatus(ctx context.Context, id string, status models.ApplicationStatus, notes string, decidedAt *time.Time) error {
	const query = `UPDATE applications SET status = $2, notes = $3, decided_at = $4 WHERE id = $1`
	if _, err := r.db.ExecContext(ctx, query, id, status, notes, decidedAt); err != nil {
		return fmt.Errorf("update application status: %w", err)
	}
	return nil
}

// CreateEnquiry stores a public contact-form submission.
func (r *ApplicationRepository) CreateEnquiry(ctx context.Context, enquiry *models.Enquiry) error {
	if enquiry.ID == "" {
		enquiry.ID = uuid.NewString()
	}
	if enquiry.CreatedAt.IsZero() {
		enquiry.CreatedAt = time.Now().UTC()
	}
	const query = `INSERT INTO enquiries (id, name, email, message, created_at) VALUES (:id, :name, :email, :message, :created_at)`
	if _, err := r.db.NamedExecContext(ctx, query, enquiry); err != nil {
		return fmt.Errorf("create enquiry: %w", err)
	}
	return nil
}

// ListEnquiries returns enquiries, newest first.
func (r *ApplicationRepository) ListEnquiries(ctx context.Context) ([]models.Enquiry, error) {
	const query = `SELECT id, name, email, message, created_at FROM enquiries ORDER BY created_at DESC`
	var enquiries []models.Enquiry
	if err := r.db.SelectContext(ctx, &enquiries, query); err != nil {
		return nil, fmt.Errorf("list enquiries: %w", err)
	}
	return enquiries, nil
}
