package service

import (
	"context"
	"database/sql"
	"regexp"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aeropoint/academy-api/internal/models"
	appErrors "github.com/aeropoint/academy-api/pkg/errors"
)

type studentRepoStub struct {
	byID       map[string]*models.StudentDetail
	byUserID   map[string]*models.StudentDetail
	assignedNo map[string]string
	cohorts    map[string]string
	profiles   []models.Student
}

func newStudentRepoStub(seed ...*models.StudentDetail) *studentRepoStub {
	r := &studentRepoStub{
		byID:       make(map[string]*models.StudentDetail),
		byUserID:   make(map[string]*models.StudentDetail),
		assignedNo: make(map[string]string),
		cohorts:    make(map[string]string),
	}
	for _, s := range seed {
		r.byID[s.ID] = s
		r.byUserID[s.UserID] = s
	}
	return r
}

func (r *studentRepoStub) List(ctx context.Context, filter models.StudentFilter) ([]models.StudentDetail, int, error) {
	out := make([]models.StudentDetail, 0, len(r.byID))
	for _, s := range r.byID {
		out = append(out, *s)
	}
	return out, len(out), nil
}

func (r *studentRepoStub) FindByID(ctx context.Context, id string) (*models.StudentDetail, error) {
	s, ok := r.byID[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return s, nil
}

func (r *studentRepoStub) FindByUserID(ctx context.Context, userID string) (*models.StudentDetail, error) {
	s, ok := r.byUserID[userID]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return s, nil
}

func (r *studentRepoStub) Create(ctx context.Context, student *models.Student) error {
	student.ID = "student-created"
	detail := &models.StudentDetail{Student: *student}
	r.byID[student.ID] = detail
	r.byUserID[student.UserID] = detail
	return nil
}

func (r *studentRepoStub) UpdateProfile(ctx context.Context, student *models.Student) error {
	r.profiles = append(r.profiles, *student)
	if d, ok := r.byID[student.ID]; ok {
		d.Student = *student
	}
	return nil
}

func (r *studentRepoStub) AssignStudentNo(ctx context.Context, id, studentNo string) error {
	r.assignedNo[id] = studentNo
	if d, ok := r.byID[id]; ok {
		d.StudentNo = &studentNo
	}
	return nil
}

func (r *studentRepoStub) AssignCohort(ctx context.Context, id, cohortID string) error {
	r.cohorts[id] = cohortID
	return nil
}

func (r *studentRepoStub) UpdateEnrollmentStatus(ctx context.Context, id string, status models.EnrollmentStatus) error {
	if d, ok := r.byID[id]; ok {
		d.EnrollmentStatus = status
	}
	return nil
}

type userWriterStub struct {
	existing map[string]*models.User
	created  []*models.User
}

func (r *userWriterStub) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	if u, ok := r.existing[email]; ok {
		return u, nil
	}
	return nil, sql.ErrNoRows
}

func (r *userWriterStub) Create(ctx context.Context, user *models.User) error {
	r.created = append(r.created, user)
	return nil
}

type cohortReaderStub struct {
	cohorts map[string]*models.Cohort
}

func (r *cohortReaderStub) FindCohortByID(ctx context.Context, id string) (*models.Cohort, error) {
	c, ok := r.cohorts[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return c, nil
}

func enrolledStudent(id, userID string) *models.StudentDetail {
	return &models.StudentDetail{
		Student: models.Student{
			ID:               id,
			UserID:           userID,
			EnrollmentStatus: models.EnrollmentEnrolled,
		},
		Email:    "ama@example.com",
		FullName: "Ama Owusu",
		Role:     models.RoleStudent,
		Active:   true,
	}
}

func TestStudentServiceRegisterCreatesProspect(t *testing.T) {
	students := newStudentRepoStub()
	users := &userWriterStub{existing: map[string]*models.User{}}
	svc := NewStudentService(students, users, &cohortReaderStub{}, nil, nil)

	detail, err := svc.Register(context.Background(), RegisterStudentRequest{
		Email:    "Ama.Owusu@example.com",
		FullName: "Ama Owusu",
		Phone:    "+233201234567",
	})
	require.NoError(t, err)

	require.Len(t, users.created, 1)
	created := users.created[0]
	assert.Equal(t, "ama.owusu@example.com", created.Email)
	assert.Equal(t, models.RoleStudent, created.Role)
	assert.Nil(t, created.PasswordHash)
	assert.Equal(t, models.EnrollmentProspect, detail.EnrollmentStatus)
	assert.Equal(t, created.ID, detail.UserID)
}

func TestStudentServiceRegisterDuplicateEmail(t *testing.T) {
	users := &userWriterStub{existing: map[string]*models.User{
		"ama@example.com": {ID: "user-1", Email: "ama@example.com"},
	}}
	svc := NewStudentService(newStudentRepoStub(), users, &cohortReaderStub{}, nil, nil)

	_, err := svc.Register(context.Background(), RegisterStudentRequest{Email: "ama@example.com", FullName: "Ama"})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrDuplicateEmail.Code, appErrors.FromError(err).Code)
}

func TestStudentServiceUpdateMyProfile(t *testing.T) {
	students := newStudentRepoStub(enrolledStudent("student-1", "user-1"))
	svc := NewStudentService(students, &userWriterStub{}, &cohortReaderStub{}, nil, nil)

	photo := "/uploads/photo.jpg"
	detail, err := svc.UpdateMyProfile(context.Background(), "user-1", UpdateStudentProfileRequest{
		Phone:    "+233209876543",
		Address:  "Hangar Road 4, Accra",
		PhotoURL: &photo,
	})
	require.NoError(t, err)
	assert.Equal(t, "+233209876543", detail.Phone)
	require.NotNil(t, detail.PhotoURL)
	assert.Equal(t, photo, *detail.PhotoURL)
	require.Len(t, students.profiles, 1)
}

func TestStudentServiceAssignCohortUnknownCohort(t *testing.T) {
	students := newStudentRepoStub(enrolledStudent("student-1", "user-1"))
	svc := NewStudentService(students, &userWriterStub{}, &cohortReaderStub{cohorts: map[string]*models.Cohort{}}, nil, nil)

	err := svc.AssignCohort(context.Background(), "student-1", "cohort-missing")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
	assert.Empty(t, students.cohorts)
}

func TestStudentServiceAssignCohort(t *testing.T) {
	students := newStudentRepoStub(enrolledStudent("student-1", "user-1"))
	cohorts := &cohortReaderStub{cohorts: map[string]*models.Cohort{
		"cohort-1": {ID: "cohort-1", Name: "ATPL 2026A"},
	}}
	svc := NewStudentService(students, &userWriterStub{}, cohorts, nil, nil)

	require.NoError(t, svc.AssignCohort(context.Background(), "student-1", "cohort-1"))
	assert.Equal(t, "cohort-1", students.cohorts["student-1"])
}

func TestStudentServiceEnsureStudentNo(t *testing.T) {
	students := newStudentRepoStub(enrolledStudent("student-1", "user-1"))
	svc := NewStudentService(students, &userWriterStub{}, &cohortReaderStub{}, nil, nil)

	no, err := svc.EnsureStudentNo(context.Background(), "student-1")
	require.NoError(t, err)
	assert.Regexp(t, regexp.MustCompile(`^AP\d{4}-[0-9A-F]{8}$`), no)

	// Idempotent: a second call returns the stored number without reassigning.
	again, err := svc.EnsureStudentNo(context.Background(), "student-1")
	require.NoError(t, err)
	assert.Equal(t, no, again)
	assert.Len(t, students.assignedNo, 1)
}
