package handler

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/aeropoint/academy-api/internal/service"
	appErrors "github.com/aeropoint/academy-api/pkg/errors"
	"github.com/aeropoint/academy-api/pkg/response"
)

// InstructorHandler serves grading and attendance for teaching staff.
type InstructorHandler struct {
	grades     *service.GradingService
	attendance *service.AttendanceService
	courses    *service.CourseService
}

// NewInstructorHandler creates a new handler.
func NewInstructorHandler(grades *service.GradingService, attendance *service.AttendanceService, courses *service.CourseService) *InstructorHandler {
	return &InstructorHandler{grades: grades, attendance: attendance, courses: courses}
}

// ListCourses lists courses, optionally scoped to a cohort.
func (h *InstructorHandler) ListCourses(c *gin.Context) {
	courses, err := h.courses.List(c.Request.Context(), c.Query("cohort_id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, courses, nil)
}

// SubmitGrades godoc
// @Summary Submit a batch of grades for a course
// @Description Already-locked rows are skipped and reported, never overwritten
// @Tags Instructor
// @Accept json
// @Produce json
// @Param id path string true "Course ID"
// @Param payload body service.SubmitGradesRequest true "Grade batch"
// @Success 200 {object} response.Envelope
// @Router /instructor/courses/{id}/grades [post]
func (h *InstructorHandler) SubmitGrades(c *gin.Context) {
	claims := claimsFromContext(c)

	var req service.SubmitGradesRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid grades payload"))
		return
	}

	result, err := h.grades.SubmitGrades(c.Request.Context(), claims.UserID, c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, result, nil)
}

// ModuleResults lists assessments recorded for a module code.
func (h *InstructorHandler) ModuleResults(c *gin.Context) {
	results, err := h.grades.ListByModule(c.Request.Context(), c.Param("module"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, results, nil)
}

// RecordAttendance upserts an attendance sheet for a course and date.
func (h *InstructorHandler) RecordAttendance(c *gin.Context) {
	claims := claimsFromContext(c)

	var req service.RecordAttendanceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid attendance payload"))
		return
	}

	if err := h.attendance.Record(c.Request.Context(), claims.UserID, claims.Role, c.Param("id"), req); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// AttendanceSheet returns the recorded sheet for a course and date.
func (h *InstructorHandler) AttendanceSheet(c *gin.Context) {
	date, err := time.Parse("2006-01-02", c.Query("date"))
	if err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "date must be YYYY-MM-DD"))
		return
	}

	rows, err := h.attendance.Sheet(c.Request.Context(), c.Param("id"), date)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, rows, nil)
}
