package service

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/aeropoint/academy-api/internal/models"
	"github.com/aeropoint/academy-api/internal/repository"
	appErrors "github.com/aeropoint/academy-api/pkg/errors"
)

type attendanceRepository interface {
	ListByCourseAndDate(ctx context.Context, courseID string, date time.Time) ([]models.AttendanceRow, error)
	StudentHistory(ctx context.Context, studentID string, from, to *time.Time) ([]models.AttendanceRecord, error)
	BulkUpsert(ctx context.Context, entries []repository.BulkUpsertEntry) error
	IsInstructorAssigned(ctx context.Context, courseID, userID string) (bool, error)
}

type attendanceCourseReader interface {
	FindByID(ctx context.Context, id string) (*models.Course, error)
}

// AttendanceEntry marks one student in a bulk attendance submission.
type AttendanceEntry struct {
	StudentID  string                  `json:"student_id" validate:"required,uuid4"`
	Status     models.AttendanceStatus `json:"status" validate:"required,oneof=PRESENT ABSENT LATE EXCUSED"`
	Comment    string                  `json:"comment"`
	ExistingID string                  `json:"existing_id,omitempty"`
}

// RecordAttendanceRequest is the instructor bulk attendance payload.
type RecordAttendanceRequest struct {
	Date    time.Time         `json:"date" validate:"required"`
	Entries []AttendanceEntry `json:"entries" validate:"required,min=1,dive"`
}

// AttendanceService records and queries per-session attendance.
type AttendanceService struct {
	attendance attendanceRepository
	courses    attendanceCourseReader
	students   examPoolStudentReader
	validator  *validator.Validate
	logger     *zap.Logger
}

// NewAttendanceService constructs the attendance service.
func NewAttendanceService(attendance attendanceRepository, courses attendanceCourseReader, students examPoolStudentReader, validate *validator.Validate, logger *zap.Logger) *AttendanceService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validator.New()
	}
	return &AttendanceService{attendance: attendance, courses: courses, students: students, validator: validate, logger: logger}
}

// Record applies a bulk attendance submission for one course session.
// Instructors must be assigned to the course; staff and admins may record
// for any course.
func (s *AttendanceService) Record(ctx context.Context, actorID string, actorRole models.UserRole, courseID string, req RecordAttendanceRequest) error {
	if err := s.validator.Struct(req); err != nil {
		return appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid attendance payload")
	}

	if _, err := s.courses.FindByID(ctx, courseID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "course not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load course")
	}

	if actorRole == models.RoleInstructor {
		assigned, err := s.attendance.IsInstructorAssigned(ctx, courseID, actorID)
		if err != nil {
			return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check course assignment")
		}
		if !assigned {
			return appErrors.Clone(appErrors.ErrForbidden, "instructor is not assigned to this course")
		}
	}

	date := req.Date.UTC().Truncate(24 * time.Hour)
	entries := make([]repository.BulkUpsertEntry, 0, len(req.Entries))
	for _, e := range req.Entries {
		entries = append(entries, repository.BulkUpsertEntry{
			ExistingID: e.ExistingID,
			Record: models.AttendanceRecord{
				CourseID:  courseID,
				StudentID: e.StudentID,
				Date:      date,
				Status:    e.Status,
				Comment:   e.Comment,
			},
		})
	}

	if err := s.attendance.BulkUpsert(ctx, entries); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to record attendance")
	}

	s.logger.Info("attendance recorded",
		zap.String("course_id", courseID),
		zap.Time("date", date),
		zap.Int("entries", len(entries)))
	return nil
}

// Sheet returns the attendance sheet for a course session.
func (s *AttendanceService) Sheet(ctx context.Context, courseID string, date time.Time) ([]models.AttendanceRow, error) {
	rows, err := s.attendance.ListByCourseAndDate(ctx, courseID, date.UTC().Truncate(24*time.Hour))
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load attendance sheet")
	}
	return rows, nil
}

// MyHistory returns the calling student's attendance records.
func (s *AttendanceService) MyHistory(ctx context.Context, userID string, from, to *time.Time) ([]models.AttendanceRecord, error) {
	student, err := s.students.FindByUserID(ctx, userID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "student profile not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load student")
	}
	records, err := s.attendance.StudentHistory(ctx, student.ID, from, to)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load attendance history")
	}
	return records, nil
}
