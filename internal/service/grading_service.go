package service

import (
	"context"
	"database/sql"
	"errors"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/aeropoint/academy-api/internal/models"
	appErrors "github.com/aeropoint/academy-api/pkg/errors"
)

type assessmentRepository interface {
	List(ctx context.Context, filter models.AssessmentFilter) ([]models.Assessment, error)
	FindByStudentAndModule(ctx context.Context, studentID, moduleCode string) (*models.Assessment, error)
	BulkCreateLocked(ctx context.Context, entries []models.Assessment) (created, skipped int, err error)
}

type gradingCourseReader interface {
	FindByID(ctx context.Context, id string) (*models.Course, error)
	ListInstructors(ctx context.Context, courseID string) ([]string, error)
}

// GradeEntry is one student's result in a bulk grading submission.
type GradeEntry struct {
	StudentID string  `json:"student_id" validate:"required,uuid4"`
	Score     float64 `json:"score" validate:"min=0"`
	MaxScore  float64 `json:"max_score"`
	Comments  string  `json:"comments"`
}

// SubmitGradesRequest is the instructor bulk grading payload.
type SubmitGradesRequest struct {
	Entries []GradeEntry `json:"entries" validate:"required,min=1,dive"`
}

// SubmitGradesResult reports how the submission was applied.
type SubmitGradesResult struct {
	Created int `json:"created"`
	Skipped int `json:"skipped"`
}

// GradingService records write-once assessment results.
type GradingService struct {
	assessments assessmentRepository
	courses     gradingCourseReader
	students    examPoolStudentReader
	validator   *validator.Validate
	logger      *zap.Logger
}

// NewGradingService constructs the grading service.
func NewGradingService(assessments assessmentRepository, courses gradingCourseReader, students examPoolStudentReader, validate *validator.Validate, logger *zap.Logger) *GradingService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validator.New()
	}
	return &GradingService{assessments: assessments, courses: courses, students: students, validator: validate, logger: logger}
}

// SubmitGrades grades a batch of students for the course's module. Entries
// that already have a locked result are skipped, never overwritten.
func (s *GradingService) SubmitGrades(ctx context.Context, graderID, courseID string, req SubmitGradesRequest) (*SubmitGradesResult, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid grading payload")
	}

	course, err := s.courses.FindByID(ctx, courseID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "course not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load course")
	}

	assessments := make([]models.Assessment, 0, len(req.Entries))
	for _, entry := range req.Entries {
		maxScore := entry.MaxScore
		if maxScore <= 0 {
			maxScore = 100
		}
		assessments = append(assessments, models.Assessment{
			StudentID:  entry.StudentID,
			ModuleCode: course.ModuleCode,
			Score:      entry.Score,
			MaxScore:   maxScore,
			Comments:   entry.Comments,
			GradedBy:   &graderID,
		})
	}

	created, skipped, err := s.assessments.BulkCreateLocked(ctx, assessments)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to record grades")
	}

	s.logger.Info("grades submitted",
		zap.String("course_id", courseID),
		zap.String("module_code", course.ModuleCode),
		zap.Int("created", created),
		zap.Int("skipped", skipped))

	return &SubmitGradesResult{Created: created, Skipped: skipped}, nil
}

// ListByModule returns assessments for one module.
func (s *GradingService) ListByModule(ctx context.Context, moduleCode string) ([]models.Assessment, error) {
	rows, err := s.assessments.List(ctx, models.AssessmentFilter{ModuleCode: moduleCode})
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list assessments")
	}
	return rows, nil
}

// MyResults returns the calling student's assessment history.
func (s *GradingService) MyResults(ctx context.Context, userID string) ([]models.Assessment, error) {
	student, err := s.students.FindByUserID(ctx, userID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "student profile not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load student")
	}
	rows, err := s.assessments.List(ctx, models.AssessmentFilter{StudentID: student.ID})
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list results")
	}
	return rows, nil
}
