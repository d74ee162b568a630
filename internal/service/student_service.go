package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/aeropoint/academy-api/internal/models"
	appErrors "github.com/aeropoint/academy-api/pkg/errors"
)

type studentRepository interface {
	List(ctx context.Context, filter models.StudentFilter) ([]models.StudentDetail, int, error)
	FindByID(ctx context.Context, id string) (*models.StudentDetail, error)
	FindByUserID(ctx context.Context, userID string) (*models.StudentDetail, error)
	Create(ctx context.Context, student *models.Student) error
	UpdateProfile(ctx context.Context, student *models.Student) error
	AssignStudentNo(ctx context.Context, id, studentNo string) error
	AssignCohort(ctx context.Context, id, cohortID string) error
	UpdateEnrollmentStatus(ctx context.Context, id string, status models.EnrollmentStatus) error
}

type studentUserWriter interface {
	FindByEmail(ctx context.Context, email string) (*models.User, error)
	Create(ctx context.Context, user *models.User) error
}

type studentCohortReader interface {
	FindCohortByID(ctx context.Context, id string) (*models.Cohort, error)
}

// RegisterStudentRequest creates a new prospect account plus profile.
type RegisterStudentRequest struct {
	Email            string `json:"email" validate:"required,email"`
	FullName         string `json:"full_name" validate:"required"`
	Phone            string `json:"phone"`
	Address          string `json:"address"`
	EmergencyContact string `json:"emergency_contact"`
}

// UpdateStudentProfileRequest is the student self-service profile payload.
type UpdateStudentProfileRequest struct {
	Phone            string  `json:"phone"`
	Address          string  `json:"address"`
	EmergencyContact string  `json:"emergency_contact"`
	PhotoURL         *string `json:"photo_url,omitempty"`
}

// StudentService manages learner profiles and their admissions state.
type StudentService struct {
	students  studentRepository
	users     studentUserWriter
	cohorts   studentCohortReader
	validator *validator.Validate
	logger    *zap.Logger
}

// NewStudentService constructs the student service.
func NewStudentService(students studentRepository, users studentUserWriter, cohorts studentCohortReader, validate *validator.Validate, logger *zap.Logger) *StudentService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validator.New()
	}
	return &StudentService{students: students, users: users, cohorts: cohorts, validator: validate, logger: logger}
}

// List returns students matching the filter with pagination metadata.
func (s *StudentService) List(ctx context.Context, filter models.StudentFilter) ([]models.StudentDetail, *models.Pagination, error) {
	rows, total, err := s.students.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list students")
	}
	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 {
		size = 20
	}
	return rows, &models.Pagination{Page: page, PageSize: size, TotalCount: total}, nil
}

// Get returns one student with user context.
func (s *StudentService) Get(ctx context.Context, id string) (*models.StudentDetail, error) {
	student, err := s.students.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "student not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load student")
	}
	return student, nil
}

// MyProfile returns the profile owned by the authenticated user.
func (s *StudentService) MyProfile(ctx context.Context, userID string) (*models.StudentDetail, error) {
	student, err := s.students.FindByUserID(ctx, userID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "student profile not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load profile")
	}
	return student, nil
}

// Register creates a PROSPECT account: a passwordless STUDENT user plus an
// empty learner profile. Credentials arrive later through user management.
func (s *StudentService) Register(ctx context.Context, req RegisterStudentRequest) (*models.StudentDetail, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid registration payload")
	}

	if _, err := s.users.FindByEmail(ctx, req.Email); err == nil {
		return nil, appErrors.Clone(appErrors.ErrDuplicateEmail, "")
	} else if !errors.Is(err, sql.ErrNoRows) {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check email uniqueness")
	}

	user := &models.User{
		ID:       uuid.NewString(),
		Email:    strings.ToLower(req.Email),
		FullName: req.FullName,
		Role:     models.RoleStudent,
		Active:   true,
	}
	if err := s.users.Create(ctx, user); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create user")
	}

	student := &models.Student{
		UserID:           user.ID,
		EnrollmentStatus: models.EnrollmentProspect,
		Phone:            req.Phone,
		Address:          req.Address,
		EmergencyContact: req.EmergencyContact,
	}
	if err := s.students.Create(ctx, student); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create student profile")
	}

	return &models.StudentDetail{
		Student:  *student,
		Email:    user.Email,
		FullName: user.FullName,
		Role:     user.Role,
		Active:   user.Active,
	}, nil
}

// UpdateMyProfile lets a student edit their own contact details.
func (s *StudentService) UpdateMyProfile(ctx context.Context, userID string, req UpdateStudentProfileRequest) (*models.StudentDetail, error) {
	detail, err := s.MyProfile(ctx, userID)
	if err != nil {
		return nil, err
	}

	profile := detail.Student
	profile.Phone = req.Phone
	profile.Address = req.Address
	profile.EmergencyContact = req.EmergencyContact
	if req.PhotoURL != nil {
		profile.PhotoURL = req.PhotoURL
	}

	if err := s.students.UpdateProfile(ctx, &profile); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update profile")
	}

	detail.Student = profile
	return detail, nil
}

// AssignCohort places a student into an intake cohort.
func (s *StudentService) AssignCohort(ctx context.Context, studentID, cohortID string) error {
	if _, err := s.students.FindByID(ctx, studentID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "student not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load student")
	}
	if _, err := s.cohorts.FindCohortByID(ctx, cohortID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "cohort not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load cohort")
	}
	if err := s.students.AssignCohort(ctx, studentID, cohortID); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to assign cohort")
	}
	return nil
}

// EnsureStudentNo assigns a sequential-looking student number when none is
// set. The number embeds the admission year.
func (s *StudentService) EnsureStudentNo(ctx context.Context, studentID string) (string, error) {
	student, err := s.students.FindByID(ctx, studentID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", appErrors.Clone(appErrors.ErrNotFound, "student not found")
		}
		return "", appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load student")
	}
	if student.StudentNo != nil && *student.StudentNo != "" {
		return *student.StudentNo, nil
	}

	studentNo := fmt.Sprintf("AP%d-%s", time.Now().UTC().Year(), strings.ToUpper(uuid.NewString()[:8]))
	if err := s.students.AssignStudentNo(ctx, student.ID, studentNo); err != nil {
		return "", appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to assign student number")
	}
	return studentNo, nil
}
