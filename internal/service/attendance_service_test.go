package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aeropoint/academy-api/internal/models"
	"github.com/aeropoint/academy-api/internal/repository"
	appErrors "github.com/aeropoint/academy-api/pkg/errors"
)

type attendanceRepoStub struct {
	assigned map[string]bool
	upserts  []repository.BulkUpsertEntry
}

func (r *attendanceRepoStub) ListByCourseAndDate(ctx context.Context, courseID string, date time.Time) ([]models.AttendanceRow, error) {
	return nil, nil
}

func (r *attendanceRepoStub) StudentHistory(ctx context.Context, studentID string, from, to *time.Time) ([]models.AttendanceRecord, error) {
	return nil, nil
}

func (r *attendanceRepoStub) BulkUpsert(ctx context.Context, entries []repository.BulkUpsertEntry) error {
	r.upserts = append(r.upserts, entries...)
	return nil
}

func (r *attendanceRepoStub) IsInstructorAssigned(ctx context.Context, courseID, userID string) (bool, error) {
	return r.assigned[userID], nil
}

func newAttendanceFixture() (*AttendanceService, *attendanceRepoStub) {
	attendance := &attendanceRepoStub{assigned: map[string]bool{"instructor-1": true}}
	courses := &courseReaderStub{course: &models.Course{ID: "course-1", ModuleCode: "AIR-LAW"}}
	students := &feeStudentStub{student: prospectStudent()}
	return NewAttendanceService(attendance, courses, students, nil, nil), attendance
}

func attendanceRequest() RecordAttendanceRequest {
	return RecordAttendanceRequest{
		Date: time.Date(2026, 2, 3, 14, 30, 0, 0, time.UTC),
		Entries: []AttendanceEntry{
			{StudentID: "6f1f64ec-9c5a-4f1e-9d4a-8a2f6d1e0c11", Status: models.AttendancePresent},
			{StudentID: "2b9b27aa-4c31-49c7-9f75-3d3f6a1b2c44", Status: models.AttendanceLate, Comment: "arrived late from sim session"},
		},
	}
}

func TestAttendanceServiceRecordNormalisesDate(t *testing.T) {
	svc, repo := newAttendanceFixture()

	err := svc.Record(context.Background(), "instructor-1", models.RoleInstructor, "course-1", attendanceRequest())
	require.NoError(t, err)

	require.Len(t, repo.upserts, 2)
	want := time.Date(2026, 2, 3, 0, 0, 0, 0, time.UTC)
	for _, entry := range repo.upserts {
		assert.True(t, entry.Record.Date.Equal(want), "date should be truncated to midnight UTC")
		assert.Equal(t, "course-1", entry.Record.CourseID)
	}
}

func TestAttendanceServiceRecordRequiresAssignment(t *testing.T) {
	svc, repo := newAttendanceFixture()

	err := svc.Record(context.Background(), "instructor-2", models.RoleInstructor, "course-1", attendanceRequest())
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrForbidden.Code, appErrors.FromError(err).Code)
	assert.Empty(t, repo.upserts)
}

func TestAttendanceServiceRecordStaffBypassesAssignment(t *testing.T) {
	svc, repo := newAttendanceFixture()

	err := svc.Record(context.Background(), "staff-1", models.RoleStaff, "course-1", attendanceRequest())
	require.NoError(t, err)
	assert.Len(t, repo.upserts, 2)
}

func TestAttendanceServiceRecordUnknownCourse(t *testing.T) {
	svc, _ := newAttendanceFixture()

	err := svc.Record(context.Background(), "instructor-1", models.RoleInstructor, "course-missing", attendanceRequest())
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
}

func TestAttendanceServiceRecordValidatesStatus(t *testing.T) {
	svc, _ := newAttendanceFixture()

	req := attendanceRequest()
	req.Entries[0].Status = "NAPPING"
	err := svc.Record(context.Background(), "instructor-1", models.RoleInstructor, "course-1", req)
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}
