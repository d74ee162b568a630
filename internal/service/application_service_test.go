package service

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aeropoint/academy-api/internal/models"
	appErrors "github.com/aeropoint/academy-api/pkg/errors"
)

type applicationRepoStub struct {
	applications map[string]*models.Application
	enquiries    []*models.Enquiry
	statusCalls  []models.ApplicationStatus
}

func newApplicationRepoStub(seed ...*models.Application) *applicationRepoStub {
	r := &applicationRepoStub{applications: make(map[string]*models.Application)}
	for _, a := range seed {
		r.applications[a.ID] = a
	}
	return r
}

func (r *applicationRepoStub) Create(ctx context.Context, application *models.Application) error {
	application.ID = "application-created"
	application.SubmittedAt = time.Now().UTC()
	r.applications[application.ID] = application
	return nil
}

func (r *applicationRepoStub) FindByID(ctx context.Context, id string) (*models.Application, error) {
	a, ok := r.applications[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return a, nil
}

func (r *applicationRepoStub) List(ctx context.Context, status models.ApplicationStatus, studentID string) ([]models.ApplicationDetail, error) {
	out := make([]models.ApplicationDetail, 0, len(r.applications))
	for _, a := range r.applications {
		if status != "" && a.Status != status {
			continue
		}
		if studentID != "" && a.StudentID != studentID {
			continue
		}
		out = append(out, models.ApplicationDetail{Application: *a})
	}
	return out, nil
}

func (r *applicationRepoStub) UpdateStatus(ctx context.Context, id string, status models.ApplicationStatus, notes string, decidedAt *time.Time) error {
	r.statusCalls = append(r.statusCalls, status)
	if a, ok := r.applications[id]; ok {
		a.Status = status
		a.Notes = notes
		a.DecidedAt = decidedAt
	}
	return nil
}

func (r *applicationRepoStub) CreateEnquiry(ctx context.Context, enquiry *models.Enquiry) error {
	enquiry.ID = "enquiry-created"
	r.enquiries = append(r.enquiries, enquiry)
	return nil
}

func (r *applicationRepoStub) ListEnquiries(ctx context.Context) ([]models.Enquiry, error) {
	out := make([]models.Enquiry, 0, len(r.enquiries))
	for _, e := range r.enquiries {
		out = append(out, *e)
	}
	return out, nil
}

func prospectDetail(id, userID string) *models.StudentDetail {
	d := enrolledStudent(id, userID)
	d.EnrollmentStatus = models.EnrollmentProspect
	return d
}

func TestApplicationServiceSubmitPromotesProspect(t *testing.T) {
	students := newStudentRepoStub(prospectDetail("student-1", "user-1"))
	applications := newApplicationRepoStub()
	svc := NewApplicationService(applications, students, nil, nil, nil, nil)

	app, err := svc.Submit(context.Background(), "user-1", SubmitApplicationRequest{Program: "ATPL Integrated"})
	require.NoError(t, err)
	assert.Equal(t, models.ApplicationSubmitted, app.Status)
	assert.Equal(t, "student-1", app.StudentID)
	assert.Equal(t, models.EnrollmentApplicant, students.byID["student-1"].EnrollmentStatus)
}

func TestApplicationServiceSubmitKeepsEnrolledStatus(t *testing.T) {
	students := newStudentRepoStub(enrolledStudent("student-1", "user-1"))
	svc := NewApplicationService(newApplicationRepoStub(), students, nil, nil, nil, nil)

	_, err := svc.Submit(context.Background(), "user-1", SubmitApplicationRequest{Program: "Type Rating A320"})
	require.NoError(t, err)
	assert.Equal(t, models.EnrollmentEnrolled, students.byID["student-1"].EnrollmentStatus)
}

func TestApplicationServiceSubmitWithoutProfile(t *testing.T) {
	svc := NewApplicationService(newApplicationRepoStub(), newStudentRepoStub(), nil, nil, nil, nil)

	_, err := svc.Submit(context.Background(), "user-unknown", SubmitApplicationRequest{Program: "ATPL"})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
}

func TestApplicationServiceReviewAcceptAssignsStudentNo(t *testing.T) {
	students := newStudentRepoStub(prospectDetail("student-1", "user-1"))
	applications := newApplicationRepoStub(&models.Application{
		ID:        "application-1",
		StudentID: "student-1",
		Program:   "ATPL Integrated",
		Status:    models.ApplicationSubmitted,
	})
	studentSvc := NewStudentService(students, &userWriterStub{}, &cohortReaderStub{}, nil, nil)
	svc := NewApplicationService(applications, students, studentSvc, nil, nil, nil)

	app, err := svc.Review(context.Background(), "application-1", ReviewApplicationRequest{
		Status: models.ApplicationAccepted,
		Notes:  "Meets entry requirements",
	})
	require.NoError(t, err)
	assert.Equal(t, models.ApplicationAccepted, app.Status)
	require.NotNil(t, app.DecidedAt)
	assert.NotEmpty(t, students.assignedNo["student-1"])
}

func TestApplicationServiceReviewAlreadyDecided(t *testing.T) {
	applications := newApplicationRepoStub(&models.Application{
		ID:        "application-1",
		StudentID: "student-1",
		Status:    models.ApplicationRejected,
	})
	svc := NewApplicationService(applications, newStudentRepoStub(), nil, nil, nil, nil)

	_, err := svc.Review(context.Background(), "application-1", ReviewApplicationRequest{Status: models.ApplicationAccepted})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrConflict.Code, appErrors.FromError(err).Code)
	assert.Empty(t, applications.statusCalls)
}

func TestApplicationServiceReviewToReviewingLeavesUndecided(t *testing.T) {
	applications := newApplicationRepoStub(&models.Application{
		ID:        "application-1",
		StudentID: "student-1",
		Status:    models.ApplicationSubmitted,
	})
	svc := NewApplicationService(applications, newStudentRepoStub(), nil, nil, nil, nil)

	app, err := svc.Review(context.Background(), "application-1", ReviewApplicationRequest{Status: models.ApplicationReviewing})
	require.NoError(t, err)
	assert.Equal(t, models.ApplicationReviewing, app.Status)
	assert.Nil(t, app.DecidedAt)
}

func TestApplicationServiceSubmitEnquiry(t *testing.T) {
	applications := newApplicationRepoStub()
	svc := NewApplicationService(applications, newStudentRepoStub(), nil, nil, nil, nil)

	enquiry, err := svc.SubmitEnquiry(context.Background(), EnquiryRequest{
		Name:    "Kwame Boateng",
		Email:   "kwame@example.com",
		Message: "Do you offer PPL night rating courses?",
	})
	require.NoError(t, err)
	assert.Equal(t, "enquiry-created", enquiry.ID)
	require.Len(t, applications.enquiries, 1)

	rows, err := svc.ListEnquiries(context.Background())
	require.NoError(t, err)
	assert.Len(t, rows, 1)
}

func TestApplicationServiceSubmitEnquiryValidates(t *testing.T) {
	svc := NewApplicationService(newApplicationRepoStub(), newStudentRepoStub(), nil, nil, nil, nil)

	_, err := svc.SubmitEnquiry(context.Background(), EnquiryRequest{Name: "Kwame", Email: "not-an-email", Message: "hi"})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}
