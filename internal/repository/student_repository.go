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

const studentDetailColumns = `s.id, s.user_id, s.student_no, s.enrollment_status, s.cohort_id, s.phone, s.address, s.emergency_contact, s.photo_url, s.created_at, s.updated_at,
        u.email, u.full_name, u.role, u.active`

// StudentRepository manages persistence for student profiles.
type StudentRepository struct {
	db *sqlx.DB
}

// NewStudentRepository constructs a StudentRepository.
func NewStudentRepository(db *sqlx.DB) *StudentRepository {
	return &StudentRepository{db: db}
}

// List returns students matching the provided filters.
func (r *StudentRepository) List(ctx context.Context, filter models.StudentFilter) ([]models.StudentDetail, int, error) {
	base := "FROM students s JOIN users u ON u.id = s.user_id AND u.deleted = FALSE"
	conditions := []string{"1=1"}
	var args []interface{}

	if filter.CohortID != "" {
		conditions = append(conditions, fmt.Sprintf("s.cohort_id = $%d", len(args)+1))
		args = append(args, filter.CohortID)
	}
	if filter.EnrollmentStatus != "" {
		conditions = append(conditions, fmt.Sprintf("s.enrollment_status = $%d", len(args)+1))
		args = append(args, filter.EnrollmentStatus)
	}
	if filter.Search != "" {
		conditions = append(conditions, fmt.Sprintf("(LOWER(u.full_name) LIKE $%d OR LOWER(u.email) LIKE $%d OR LOWER(COALESCE(s.student_no, '')) LIKE $%d)", len(args)+1, len(args)+1, len(args)+1))
		args = append(args, "%"+strings.ToLower(filter.Search)+"%")
	}

	base = fmt.Sprintf("%s WHERE %s", base, strings.Join(conditions, " AND "))

	allowedSorts := map[string]string{
		"full_name":  "u.full_name",
		"student_no": "s.student_no",
		"created_at": "s.created_at",
	}
	column, ok := allowedSorts[filter.SortBy]
	if !ok {
		column = "s.created_at"
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

	query := fmt.Sprintf("SELECT %s %s ORDER BY %s %s LIMIT %d OFFSET %d", studentDetailColumns, base, column, order, size, offset)

	var students []models.StudentDetail
	if err := r.db.SelectContext(ctx, &students, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list students: %w", err)
	}

	countQuery := fmt.Sprintf("SELECT COUNT(*) %s", base)
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count students: %w", err)
	}
	return students, total, nil
}

// FindByID fetches a student detail by ID.
func (r *StudentRepository) FindByID(ctx context.Context, id string) (*models.StudentDetail, error) {
	query := fmt.Sprintf(`SELECT %s FROM students s JOIN users u ON u.id = s.user_id WHERE s.id = $1`, studentDetailColumns)
	var student models.StudentDetail
	if err := r.db.GetContext(ctx, &student, query, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find student by id: %w", err)
	}
	return &student, nil
}

// FindByUserID fetches the student profile owned by a user.
func (r *StudentRepository) FindByUserID(ctx context.Context, userID string) (*models.StudentDetail, error) {
	query := fmt.Sprintf(`SELECT %s FROM students s JOIN users u ON u.id = s.user_id WHERE s.user_id = $1`, studentDetailColumns)
	var student models.StudentDetail
	if err := r.db.GetContext(ctx, &student, query, userID); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find student by user id: %w", err)
	}
	return &student, nil
}

// FindByEmail resolves a student through the owning user's email.
func (r *StudentRepository) FindByEmail(ctx context.Context, email string) (*models.StudentDetail, error) {
	query := fmt.Sprintf(`SELECT %s FROM students s JOIN users u ON u.id = s.user_id WHERE LOWER(u.email) = LOWER($1) AND u.deleted = FALSE`, studentDetailColumns)
	var student models.StudentDetail
	if err := r.db.GetContext(ctx, &student, query, email); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find student by email: %w", err)
	}
	return &student, nil
}

// Create persists a new student profile.
func (r *StudentRepository) Create(ctx context.Context, student *models.Student) error {
	if student.ID == "" {
		student.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if student.CreatedAt.IsZero() {
		student.CreatedAt = now
	}
	student.UpdatedAt = now
	if student.EnrollmentStatus == "" {
		student.EnrollmentStatus = models.EnrollmentProspect
	}
	const query = `INSERT INTO students (id, user_id, student_no, enrollment_status, cohort_id, phone, address, emergency_contact, photo_url, created_at, updated_at)
        VALUES (:id, :user_id, :student_no, :enrollment_status, :cohort_id, :phone, :address, :emergency_contact, :photo_url, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, student); err != nil {
		return fmt.Errorf("create student: %w", err)
	}
	return nil
}

// UpdateProfile updates student-editable profile fields.
func (r *StudentRepository) UpdateProfile(ctx context.Context, student *models.Student) error {
	student.UpdatedAt = time.Now().UTC()
	const query = `UPDATE students SET phone = :phone, address = :address, emergency_contact = :emergency_contact, photo_url = :photo_url, updated_at = :updated_at WHERE id = :id`
	if _, err := r.db.NamedExecContext(ctx, query, student); err != nil {
		return fmt.Errorf("update student profile: %w", err)
	}
	return nil
}

// AssignStudentNo sets the academy-issued student number.
func (r *StudentRepository) AssignStudentNo(ctx context.Context, id, studentNo string) error {
	const query = `UPDATE students SET student_no = $2, updated_at = $3 WHERE id = $1`
	if _, err := r.db.ExecContext(ctx, query, id, studentNo, time.Now().UTC()); err != nil {
		return fmt.Errorf("assign student number: %w", err)
	}
	return nil
}

// AssignCohort places the student in a cohort.
func (r *StudentRepository) AssignCohort(ctx context.Context, id, cohortID string) error {
	const query = `UPDATE students SET cohort_id = $2, updated_at = $3 WHERE id = $1`
	if _, err := r.db.ExecContext(ctx, query, id, cohortID, time.Now().UTC()); err != nil {
		return fmt.Errorf("assign cohort: %w", err)
	}
	return nil
}

// UpdateEnrollmentStatus sets the admissions stage for a student.
func (r *StudentRepository) UpdateEnrollmentStatus(ctx context.Context, id string, status models.EnrollmentStatus) error {
	const query = `UPDATE students SET enrollment_status = $2, updated_at = $3 WHERE id = $1`
	if _, err := r.db.ExecContext(ctx, query, id, status, time.Now().UTC()); err != nil {
		return fmt.Errorf("update enrollment status: %w", err)
	}
	return nil
}

// UpdateEnrollmentStatusTx is the transaction-scoped variant used by the
// fee approval workflow.
func (r *StudentRepository) UpdateEnrollmentStatusTx(ctx context.Context, tx *sqlx.Tx, id string, status models.EnrollmentStatus) error {
	const query = `UPDATE students SET enrollment_status = $2, updated_at = $3 WHERE id = $1`
	if _, err := tx.ExecContext(ctx, query, id, status, time.Now().UTC()); err != nil {
		return fmt.Errorf("update enrollment status: %w", err)
	}
	return nil
}
