package handler

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/aeropoint/academy-api/internal/models"
	"github.com/aeropoint/academy-api/internal/service"
	appErrors "github.com/aeropoint/academy-api/pkg/errors"
	"github.com/aeropoint/academy-api/pkg/response"
)

// AdminHandler serves user management, admissions review and academy setup.
type AdminHandler struct {
	users        *service.UserService
	students     *service.StudentService
	applications *service.ApplicationService
	courses      *service.CourseService
	pools        *service.ExamPoolService
}

// NewAdminHandler creates a new handler.
func NewAdminHandler(
	users *service.UserService,
	students *service.StudentService,
	applications *service.ApplicationService,
	courses *service.CourseService,
	pools *service.ExamPoolService,
) *AdminHandler {
	return &AdminHandler{
		users:        users,
		students:     students,
		applications: applications,
		courses:      courses,
		pools:        pools,
	}
}

func requestMeta(c *gin.Context) models.LoginRequest {
	return models.LoginRequest{IP: c.ClientIP(), UserAgent: c.Request.UserAgent()}
}

// ListUsers godoc
// @Summary List accounts
// @Tags Admin
// @Produce json
// @Param role query string false "Role filter"
// @Param active query bool false "Active filter"
// @Param search query string false "Name or email search"
// @Param page query int false "Page"
// @Param page_size query int false "Page size"
// @Success 200 {object} response.Envelope
// @Router /admin/users [get]
func (h *AdminHandler) ListUsers(c *gin.Context) {
	filter := models.UserFilter{
		Search:    c.Query("search"),
		SortBy:    c.Query("sort_by"),
		SortOrder: c.Query("sort_order"),
	}
	if raw := c.Query("role"); raw != "" {
		role := models.UserRole(raw)
		filter.Role = &role
	}
	if raw := c.Query("active"); raw != "" {
		active := raw == "true"
		filter.Active = &active
	}
	filter.Page, _ = strconv.Atoi(c.DefaultQuery("page", "1"))
	filter.PageSize, _ = strconv.Atoi(c.DefaultQuery("page_size", "20"))

	users, pagination, err := h.users.List(c.Request.Context(), filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, users, pagination)
}

// GetUser returns one account.
func (h *AdminHandler) GetUser(c *gin.Context) {
	user, err := h.users.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, user, nil)
}

// CreateUser creates an account. A temporary password is generated and
// mailed when none is supplied.
func (h *AdminHandler) CreateUser(c *gin.Context) {
	claims := claimsFromContext(c)

	var req service.CreateUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid user payload"))
		return
	}

	user, err := h.users.Create(c.Request.Context(), req, claims.UserID, requestMeta(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, user)
}

// UpdateUser edits an account.
func (h *AdminHandler) UpdateUser(c *gin.Context) {
	claims := claimsFromContext(c)

	var req service.UpdateUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid user payload"))
		return
	}

	user, err := h.users.Update(c.Request.Context(), c.Param("id"), req, claims.UserID, requestMeta(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, user, nil)
}

// DeleteUser soft-deletes an account and revokes its sessions.
func (h *AdminHandler) DeleteUser(c *gin.Context) {
	claims := claimsFromContext(c)
	if err := h.users.Delete(c.Request.Context(), c.Param("id"), claims.UserID, requestMeta(c)); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// ListStudents lists student profiles.
func (h *AdminHandler) ListStudents(c *gin.Context) {
	filter := models.StudentFilter{
		Search:           c.Query("search"),
		CohortID:         c.Query("cohort_id"),
		EnrollmentStatus: models.EnrollmentStatus(c.Query("enrollment_status")),
		SortBy:           c.Query("sort_by"),
		SortOrder:        c.Query("sort_order"),
	}
	filter.Page, _ = strconv.Atoi(c.DefaultQuery("page", "1"))
	filter.PageSize, _ = strconv.Atoi(c.DefaultQuery("page_size", "20"))

	students, pagination, err := h.students.List(c.Request.Context(), filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, students, pagination)
}

// GetStudent returns one student profile.
func (h *AdminHandler) GetStudent(c *gin.Context) {
	student, err := h.students.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, student, nil)
}

// RegisterStudent creates a prospect account plus profile in one step.
func (h *AdminHandler) RegisterStudent(c *gin.Context) {
	var req service.RegisterStudentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid student payload"))
		return
	}

	student, err := h.students.Register(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, student)
}

// AssignCohort places a student into a cohort.
func (h *AdminHandler) AssignCohort(c *gin.Context) {
	var req struct {
		CohortID string `json:"cohort_id" binding:"required,uuid4"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid cohort payload"))
		return
	}

	if err := h.students.AssignCohort(c.Request.Context(), c.Param("id"), req.CohortID); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// ListApplications lists admissions applications, optionally by status.
func (h *AdminHandler) ListApplications(c *gin.Context) {
	rows, err := h.applications.List(c.Request.Context(), models.ApplicationStatus(c.Query("status")))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, rows, nil)
}

// ReviewApplication godoc
// @Summary Decide an admissions application
// @Description Accepting assigns a student number; decided applications cannot be re-decided
// @Tags Admin
// @Accept json
// @Produce json
// @Param id path string true "Application ID"
// @Param payload body service.ReviewApplicationRequest true "Decision"
// @Success 200 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /admin/admissions/{id}/review [post]
func (h *AdminHandler) ReviewApplication(c *gin.Context) {
	var req service.ReviewApplicationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid review payload"))
		return
	}

	application, err := h.applications.Review(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, application, nil)
}

// ListEnquiries lists public enquiries, newest first.
func (h *AdminHandler) ListEnquiries(c *gin.Context) {
	rows, err := h.applications.ListEnquiries(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, rows, nil)
}

// ListCohorts lists cohorts.
func (h *AdminHandler) ListCohorts(c *gin.Context) {
	cohorts, err := h.courses.ListCohorts(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, cohorts, nil)
}

// CreateCohort creates a cohort.
func (h *AdminHandler) CreateCohort(c *gin.Context) {
	var req service.CreateCohortRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid cohort payload"))
		return
	}

	cohort, err := h.courses.CreateCohort(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, cohort)
}

// CreateCourse creates a course in a cohort.
func (h *AdminHandler) CreateCourse(c *gin.Context) {
	var req service.CreateCourseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid course payload"))
		return
	}

	course, err := h.courses.Create(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, course)
}

// AssignInstructor attaches an instructor account to a course.
func (h *AdminHandler) AssignInstructor(c *gin.Context) {
	var req struct {
		UserID string `json:"user_id" binding:"required,uuid4"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid assignment payload"))
		return
	}

	if err := h.courses.AssignInstructor(c.Request.Context(), c.Param("id"), req.UserID); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// CreateExamPool opens a new exam sitting.
func (h *AdminHandler) CreateExamPool(c *gin.Context) {
	var req service.CreateExamPoolRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid pool payload"))
		return
	}

	pool, err := h.pools.Create(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, pool)
}

// ExamPoolMembers lists the seat bookings in a pool.
func (h *AdminHandler) ExamPoolMembers(c *gin.Context) {
	members, err := h.pools.Members(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, members, nil)
}
