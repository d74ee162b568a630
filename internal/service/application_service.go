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

type applicationRepository interface {
	Create(ctx context.Context, application *models.Application) error
	FindByID(ctx context.Context, id string) (*models.Application, error)
	List(ctx context.Context, status models.ApplicationStatus, studentID string) ([]models.ApplicationDetail, error)
	UpdateStatus(ctx context.Context, id string, status models.ApplicationStatus, notes string, decidedAt *time.Time) error
	CreateEnquiry(ctx context.Context, enquiry *models.Enquiry) error
	ListEnquiries(ctx context.Context) ([]models.Enquiry, error)
}

type applicationStudentRepository interface {
	FindByID(ctx context.Context, id string) (*models.StudentDetail, error)
	FindByUserID(ctx context.Context, userID string) (*models.StudentDetail, error)
	UpdateEnrollmentStatus(ctx context.Context, id string, status models.EnrollmentStatus) error
}

// SubmitApplicationRequest files a new admissions application.
type SubmitApplicationRequest struct {
	Program     string  `json:"program" validate:"required"`
	DocumentURL *string `json:"document_url,omitempty" validate:"omitempty,url"`
	Notes       string  `json:"notes"`
}

// ReviewApplicationRequest is the staff decision payload.
type ReviewApplicationRequest struct {
	Status models.ApplicationStatus `json:"status" validate:"required,oneof=REVIEWING ACCEPTED REJECTED"`
	Notes  string                   `json:"notes"`
}

// EnquiryRequest is the public contact-form payload.
type EnquiryRequest struct {
	Name    string `json:"name" validate:"required"`
	Email   string `json:"email" validate:"required,email"`
	Message string `json:"message" validate:"required"`
}

// ApplicationService runs the admissions pipeline and public enquiries.
type ApplicationService struct {
	applications applicationRepository
	students     applicationStudentRepository
	studentSvc   *StudentService
	notifier     *NotificationService
	validator    *validator.Validate
	logger       *zap.Logger
}

// NewApplicationService constructs the application service.
func NewApplicationService(applications applicationRepository, students applicationStudentRepository, studentSvc *StudentService, notifier *NotificationService, validate *validator.Validate, logger *zap.Logger) *ApplicationService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validator.New()
	}
	return &ApplicationService{
		applications: applications,
		students:     students,
		studentSvc:   studentSvc,
		notifier:     notifier,
		validator:    validate,
		logger:       logger,
	}
}

// Submit files an application for the authenticated student and promotes a
// PROSPECT to APPLICANT.
func (s *ApplicationService) Submit(ctx context.Context, userID string, req SubmitApplicationRequest) (*models.Application, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid application payload")
	}

	student, err := s.students.FindByUserID(ctx, userID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "student profile not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load student")
	}

	application := &models.Application{
		StudentID:   student.ID,
		Program:     req.Program,
		Status:      models.ApplicationSubmitted,
		DocumentURL: req.DocumentURL,
		Notes:       req.Notes,
	}
	if err := s.applications.Create(ctx, application); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create application")
	}

	if !student.EnrollmentStatus.AtLeast(models.EnrollmentApplicant) {
		if err := s.students.UpdateEnrollmentStatus(ctx, student.ID, models.EnrollmentApplicant); err != nil {
			s.logger.Warn("failed to promote prospect to applicant", zap.String("student_id", student.ID), zap.Error(err))
		}
	}

	if s.notifier != nil {
		s.notifier.NotifyApplicationReceived(student, application)
	}

	return application, nil
}

// List returns applications, optionally filtered by status.
func (s *ApplicationService) List(ctx context.Context, status models.ApplicationStatus) ([]models.ApplicationDetail, error) {
	rows, err := s.applications.List(ctx, status, "")
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list applications")
	}
	return rows, nil
}

// MyApplications returns the calling student's applications.
func (s *ApplicationService) MyApplications(ctx context.Context, userID string) ([]models.ApplicationDetail, error) {
	student, err := s.students.FindByUserID(ctx, userID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "student profile not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load student")
	}
	rows, err := s.applications.List(ctx, "", student.ID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list applications")
	}
	return rows, nil
}

// Review moves an application through the admissions decision. Acceptance
// assigns the student number when missing.
func (s *ApplicationService) Review(ctx context.Context, applicationID string, req ReviewApplicationRequest) (*models.Application, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid review payload")
	}

	application, err := s.applications.FindByID(ctx, applicationID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "application not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load application")
	}

	if application.Status == models.ApplicationAccepted || application.Status == models.ApplicationRejected {
		return nil, appErrors.Clone(appErrors.ErrConflict, "application already decided")
	}

	var decidedAt *time.Time
	if req.Status == models.ApplicationAccepted || req.Status == models.ApplicationRejected {
		now := time.Now().UTC()
		decidedAt = &now
	}

	if err := s.applications.UpdateStatus(ctx, application.ID, req.Status, req.Notes, decidedAt); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update application")
	}
	application.Status = req.Status
	application.Notes = req.Notes
	application.DecidedAt = decidedAt

	if req.Status == models.ApplicationAccepted && s.studentSvc != nil {
		if _, err := s.studentSvc.EnsureStudentNo(ctx, application.StudentID); err != nil {
			s.logger.Warn("failed to assign student number on acceptance", zap.String("student_id", application.StudentID), zap.Error(err))
		}
	}

	return application, nil
}

// SubmitEnquiry stores a public enquiry and queues the receipt email.
func (s *ApplicationService) SubmitEnquiry(ctx context.Context, req EnquiryRequest) (*models.Enquiry, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid enquiry payload")
	}

	enquiry := &models.Enquiry{
		Name:    req.Name,
		Email:   req.Email,
		Message: req.Message,
	}
	if err := s.applications.CreateEnquiry(ctx, enquiry); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to store enquiry")
	}

	if s.notifier != nil {
		s.notifier.NotifyEnquiryReceived(enquiry)
	}
	return enquiry, nil
}

// ListEnquiries returns enquiries for staff review.
func (s *ApplicationService) ListEnquiries(ctx context.Context) ([]models.Enquiry, error) {
	rows, err := s.applications.ListEnquiries(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list enquiries")
	}
	return rows, nil
}
