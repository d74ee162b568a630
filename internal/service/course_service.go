package service

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/aeropoint/academy-api/internal/models"
	appErrors "github.com/aeropoint/academy-api/pkg/errors"
)

type courseRepository interface {
	FindByID(ctx context.Context, id string) (*models.Course, error)
	List(ctx context.Context, cohortID string) ([]models.Course, error)
	Create(ctx context.Context, course *models.Course) error
	AssignInstructor(ctx context.Context, courseID, userID string) error
	ListInstructors(ctx context.Context, courseID string) ([]string, error)
	FindCohortByID(ctx context.Context, id string) (*models.Cohort, error)
	ListCohorts(ctx context.Context) ([]models.Cohort, error)
	CreateCohort(ctx context.Context, cohort *models.Cohort) error
}

type courseUserReader interface {
	FindByID(ctx context.Context, id string) (*models.User, error)
}

// CreateCourseRequest opens a new taught unit.
type CreateCourseRequest struct {
	Code       string  `json:"code" validate:"required"`
	Title      string  `json:"title" validate:"required"`
	ModuleCode string  `json:"module_code" validate:"required"`
	CohortID   *string `json:"cohort_id,omitempty" validate:"omitempty,uuid4"`
}

// CreateCohortRequest opens a new intake.
type CreateCohortRequest struct {
	Name       string    `json:"name" validate:"required"`
	IntakeDate time.Time `json:"intake_date" validate:"required"`
}

// CourseService manages cohorts, courses and instructor assignments.
type CourseService struct {
	courses   courseRepository
	users     courseUserReader
	validator *validator.Validate
	logger    *zap.Logger
}

// NewCourseService constructs the course service.
func NewCourseService(courses courseRepository, users courseUserReader, validate *validator.Validate, logger *zap.Logger) *CourseService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validator.New()
	}
	return &CourseService{courses: courses, users: users, validator: validate, logger: logger}
}

// List returns courses, optionally scoped to one cohort.
func (s *CourseService) List(ctx context.Context, cohortID string) ([]models.Course, error) {
	rows, err := s.courses.List(ctx, cohortID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list courses")
	}
	return rows, nil
}

// Get returns one course.
func (s *CourseService) Get(ctx context.Context, id string) (*models.Course, error) {
	course, err := s.courses.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "course not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load course")
	}
	return course, nil
}

// Create opens a new course.
func (s *CourseService) Create(ctx context.Context, req CreateCourseRequest) (*models.Course, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid course payload")
	}
	if req.CohortID != nil {
		if _, err := s.courses.FindCohortByID(ctx, *req.CohortID); err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return nil, appErrors.Clone(appErrors.ErrNotFound, "cohort not found")
			}
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load cohort")
		}
	}
	course := &models.Course{
		Code:       req.Code,
		Title:      req.Title,
		ModuleCode: req.ModuleCode,
		CohortID:   req.CohortID,
	}
	if err := s.courses.Create(ctx, course); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create course")
	}
	return course, nil
}

// AssignInstructor links an INSTRUCTOR user to a course. Repeat assignment
// is a no-op.
func (s *CourseService) AssignInstructor(ctx context.Context, courseID, userID string) error {
	if _, err := s.courses.FindByID(ctx, courseID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "course not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load course")
	}

	user, err := s.users.FindByID(ctx, userID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "user not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load user")
	}
	if user.Role != models.RoleInstructor {
		return appErrors.Clone(appErrors.ErrValidation, "user is not an instructor")
	}

	if err := s.courses.AssignInstructor(ctx, courseID, userID); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to assign instructor")
	}
	return nil
}

// Instructors lists user IDs teaching a course.
func (s *CourseService) Instructors(ctx context.Context, courseID string) ([]string, error) {
	ids, err := s.courses.ListInstructors(ctx, courseID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list instructors")
	}
	return ids, nil
}

// ListCohorts returns all cohorts.
func (s *CourseService) ListCohorts(ctx context.Context) ([]models.Cohort, error) {
	rows, err := s.courses.ListCohorts(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list cohorts")
	}
	return rows, nil
}

// CreateCohort opens a new intake.
func (s *CourseService) CreateCohort(ctx context.Context, req CreateCohortRequest) (*models.Cohort, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid cohort payload")
	}
	cohort := &models.Cohort{
		Name:       req.Name,
		IntakeDate: req.IntakeDate,
		Active:     true,
	}
	if err := s.courses.CreateCohort(ctx, cohort); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create cohort")
	}
	return cohort, nil
}
