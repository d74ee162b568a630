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

const assessmentColumns = `id, student_id, module_code, score, max_score, passed, locked, comments, graded_by, created_at`

// AssessmentRepository persists the write-once grading ledger.
type AssessmentRepository struct {
	db *sqlx.DB
}

// NewAssessmentRepository constructs the repository.
func NewAssessmentRepository(db *sqlx.DB) *AssessmentRepository {
	return &AssessmentRepository{db: db}
}

// List returns assessments matching the filter.
func (r *AssessmentRepository) List(ctx context.Context, filter models.AssessmentFilter) ([]models.Assessment, error) {
	base := `FROM assessments WHERE 1=1`
	var conditions []string
	var args []interface{}

	if filter.StudentID != "" {
		conditions = append(conditions, fmt.Sprintf("student_id = $%d", len(args)+1))
		args = append(args, filter.StudentID)
	}
	if filter.ModuleCode != "" {
		conditions = append(conditions, fmt.Sprintf("module_code = $%d", len(args)+1))
		args = append(args, filter.ModuleCode)
	}
	if filter.Passed != nil {
		conditions = append(conditions, fmt.Sprintf("passed = $%d", len(args)+1))
		args = append(args, *filter.Passed)
	}
	if len(conditions) > 0 {
		base += " AND " + strings.Join(conditions, " AND ")
	}

	query := fmt.Sprintf("SELECT %s %s ORDER BY created_at DESC", assessmentColumns, base)
	var assessments []models.Assessment
	if err := r.db.SelectContext(ctx, &assessments, query, args...); err != nil {
		return nil, fmt.Errorf("list assessments: %w", err)
	}
	return assessments, nil
}

// FindByStudentAndModule returns the assessment for a (student, module) pair.
func (r *AssessmentRepository) FindByStudentAndModule(ctx context.Context, studentID, moduleCode string) (*models.Assessment, error) {
	query := fmt.Sprintf(`SELECT %s FROM assessments WHERE student_id = $1 AND module_code = $2 LIMIT 1`, assessmentColumns)
	var assessment models.Assessment
	if err := r.db.GetContext(ctx, &assessment, query, studentID, moduleCode); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find assessment: %w", err)
	}
	return &assessment, nil
}

// BulkCreateLocked inserts assessments in one transaction, skipping any
// (student, module) pair that already holds a locked record. The locked
// originals are never touched. Returns created and skipped counts.
func (r *AssessmentRepository) BulkCreateLocked(ctx context.Context, entries []models.Assessment) (created, skipped int, err error) {
	if len(entries) == 0 {
		return 0, 0, nil
	}
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return 0, 0, fmt.Errorf("begin grade submission: %w", err)
	}
	commit := false
	defer func() {
		if !commit {
			tx.Rollback()
		}
	}()

	const existsQuery = `SELECT locked FROM assessments WHERE student_id = $1 AND module_code = $2 LIMIT 1`
	const insertQuery = `INSERT INTO assessments (id, student_id, module_code, score, max_score, passed, locked, comments, graded_by, created_at)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`

	now := time.Now().UTC()
	for i := range entries {
		entry := &entries[i]
		var locked bool
		lookupErr := tx.GetContext(ctx, &locked, existsQuery, entry.StudentID, entry.ModuleCode)
		if lookupErr == nil && locked {
			skipped++
			continue
		}
		if lookupErr != nil && lookupErr != sql.ErrNoRows {
			return 0, 0, fmt.Errorf("check assessment lock: %w", lookupErr)
		}
		if entry.ID == "" {
			entry.ID = uuid.NewString()
		}
		if entry.CreatedAt.IsZero() {
			entry.CreatedAt = now
		}
		entry.Locked = true
		entry.Passed = entry.Score >= models.PassMark
		if _, err := tx.ExecContext(ctx, insertQuery, entry.ID, entry.StudentID, entry.ModuleCode, entry.Score, entry.MaxScore, entry.Passed, entry.Locked, entry.Comments, entry.GradedBy, entry.CreatedAt); err != nil {
			return 0, 0, fmt.Errorf("insert assessment: %w", err)
		}
		created++
	}

	if err := tx.Commit(); err != nil {
		return 0, 0, fmt.Errorf("commit grade submission: %w", err)
	}
	commit = true
	return created, skipped, nil
}
