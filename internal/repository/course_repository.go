package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/aeropoint/academy-api/internal/models"
)

// CourseRepository manages courses, cohorts and instructor assignments.
type CourseRepository struct {
	db *sqlx.DB
}

// NewCourseRepository constructs the repository.
func NewCourseRepository(db *sqlx.DB) *CourseRepository {
	return &CourseRepository{db: db}
}

// FindByID returns a course by identifier.
func (r *CourseRepository) FindByID(ctx context.Context, id string) (*models.Course, error) {
	const query = `SELECT id, code, title, module_code, cohort_id, created_at, updated_at FROM courses WHERE id = $1`
	var course models.Course
	if err := r.db.GetContext(ctx, &course, query, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find course: %w", err)
	}
	return &course, nil
}

// List returns all courses, optionally scoped to a cohort.
func (r *CourseRepository) List(ctx context.Context, cohortID string) ([]models.Course, error) {
	query := `SELECT id, code, title, module_code, cohort_id, created_at, updated_at FROM courses`
	var args []interface{}
	if cohortID != "" {
		query += ` WHERE cohort_id = $1`
		args = append(args, cohortID)
	}
	query += ` ORDER BY code ASC`
	var courses []models.Course
	if err := r.db.SelectContext(ctx, &courses, query, args...); err != nil {
		return nil, fmt.Errorf("list courses: %w", err)
	}
	return courses, nil
}

// Create persists a new course.
func (r *CourseRepository) Create(ctx context.Context, course *models.Course) error {
	if course.ID == "" {
		course.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if course.CreatedAt.IsZero() {
		course.CreatedAt = now
	}
	course.UpdatedAt = now
	const query = `INSERT INTO courses (id, code, title, module_code, cohort_id, created_at, updated_at)
        VALUES (:id, :code, :title, :module_code, :cohort_id, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, course); err != nil {
		return fmt.Errorf("create course: %w", err)
	}
	return nil
}

// AssignInstructor adds a user to the course's instructor roster.
func (r *CourseRepository) AssignInstructor(ctx context.Context, courseID, userID string) error {
	const query = `INSERT INTO course_instructors (id, course_id, user_id, created_at)
        VALUES ($1, $2, $3, $4)
        ON CONFLICT (course_id, user_id) DO NOTHING`
	if _, err := r.db.ExecContext(ctx, query, uuid.NewString(), courseID, userID, time.Now().UTC()); err != nil {
		return fmt.Errorf("assign instructor: %w", err)
	}
	return nil
}

// ListInstructors returns the user IDs teaching a course.
func (r *CourseRepository) ListInstructors(ctx context.Context, courseID string) ([]string, error) {
	const query = `SELECT user_id FROM course_instructors WHERE course_id = $1`
	var userIDs []string
	if err := r.db.SelectContext(ctx, &userIDs, query, courseID); err != nil {
		return nil, fmt.Errorf("list course instructors: %w", err)
	}
	return userIDs, nil
}

// FindCohortByID returns a cohort by identifier.
func (r *CourseRepository) FindCohortByID(ctx context.Context, id string) (*models.Cohort, error) {
	const query = `SELECT id, name, intake_date, active, created_at, updated_at FROM cohorts WHERE id = $1`
	var cohort models.Cohort
	if err := r.db.GetContext(ctx, &cohort, query, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find cohort: %w", err)
	}
	return &cohort, nil
}

// ListCohorts returns all cohorts, newest intake first.
func (r *CourseRepository) ListCohorts(ctx context.Context) ([]models.Cohort, error) {
	const query = `SELECT id, name, intake_date, active, created_at, updated_at FROM cohorts ORDER BY intake_date DESC`
	var cohorts []models.Cohort
	if err := r.db.SelectContext(ctx, &cohorts, query); err != nil {
		return nil, fmt.Errorf("list cohorts: %w", err)
	}
	return cohorts, nil
}

// CreateCohort persists a new cohort.
func (r *CourseRepository) CreateCohort(ctx context.Context, cohort *models.Cohort) error {
	if cohort.ID == "" {
		cohort.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if cohort.CreatedAt.IsZero() {
		cohort.CreatedAt = now
	}
	cohort.UpdatedAt = now
	const query = `INSERT INTO cohorts (id, name, intake_date, active, created_at, updated_at)
        VALUES (:id, :name, :intake_date, :active, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, cohort); err != nil {
		return fmt.Errorf("create cohort: %w", err)
	}
	return nil
}
