package handler

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/aeropoint/academy-api/internal/models"
	"github.com/aeropoint/academy-api/internal/service"
	appErrors "github.com/aeropoint/academy-api/pkg/errors"
	"github.com/aeropoint/academy-api/pkg/response"
)

// StudentPortalHandler serves the authenticated student's own resources.
type StudentPortalHandler struct {
	students     *service.StudentService
	fees         *service.FeeService
	pools        *service.ExamPoolService
	grades       *service.GradingService
	attendance   *service.AttendanceService
	applications *service.ApplicationService
}

// NewStudentPortalHandler creates a new handler.
func NewStudentPortalHandler(
	students *service.StudentService,
	fees *service.FeeService,
	pools *service.ExamPoolService,
	grades *service.GradingService,
	attendance *service.AttendanceService,
	applications *service.ApplicationService,
) *StudentPortalHandler {
	return &StudentPortalHandler{
		students:     students,
		fees:         fees,
		pools:        pools,
		grades:       grades,
		attendance:   attendance,
		applications: applications,
	}
}

// Profile returns the caller's student profile.
func (h *StudentPortalHandler) Profile(c *gin.Context) {
	claims := claimsFromContext(c)
	profile, err := h.students.MyProfile(c.Request.Context(), claims.UserID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, profile, nil)
}

// UpdateProfile edits the caller's contact details.
func (h *StudentPortalHandler) UpdateProfile(c *gin.Context) {
	claims := claimsFromContext(c)

	var req service.UpdateStudentProfileRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid profile payload"))
		return
	}

	profile, err := h.students.UpdateMyProfile(c.Request.Context(), claims.UserID, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, profile, nil)
}

// MyFees lists the caller's fees.
func (h *StudentPortalHandler) MyFees(c *gin.Context) {
	claims := claimsFromContext(c)
	profile, err := h.students.MyProfile(c.Request.Context(), claims.UserID)
	if err != nil {
		response.Error(c, err)
		return
	}
	rows, pagination, err := h.fees.List(c.Request.Context(), models.FeeFilter{StudentID: profile.ID})
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, rows, pagination)
}

// TopUp godoc
// @Summary Buy an exam credit bundle
// @Description Creates a bundle invoice; wallet credit follows staff verification
// @Tags Student
// @Accept json
// @Produce json
// @Param payload body models.TopUpRequest true "Top-up payload"
// @Success 201 {object} response.Envelope
// @Router /student/wallet/topup [post]
func (h *StudentPortalHandler) TopUp(c *gin.Context) {
	claims := claimsFromContext(c)

	var req models.TopUpRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid top-up payload"))
		return
	}

	fee, err := h.fees.TopUp(c.Request.Context(), claims.UserID, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, fee)
}

// SubmitProof attaches a payment proof to one of the caller's fees.
func (h *StudentPortalHandler) SubmitProof(c *gin.Context) {
	claims := claimsFromContext(c)

	var req models.StudentProofRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid proof payload"))
		return
	}

	fee, err := h.fees.SubmitProofByStudent(c.Request.Context(), claims.UserID, c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, fee, nil)
}

// Receipt streams a PDF receipt for a fee with verified payment.
func (h *StudentPortalHandler) Receipt(c *gin.Context) {
	claims := claimsFromContext(c)

	data, err := h.fees.ReceiptPDF(c.Request.Context(), claims.UserID, c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	c.Header("Content-Disposition", `attachment; filename="receipt-`+c.Param("id")+`.pdf"`)
	c.Data(http.StatusOK, "application/pdf", data)
}

// Wallet returns the caller's wallet and ledger.
func (h *StudentPortalHandler) Wallet(c *gin.Context) {
	claims := claimsFromContext(c)
	statement, err := h.pools.WalletStatement(c.Request.Context(), claims.UserID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, statement, nil)
}

// ListExamPools lists open exam sittings with occupancy.
func (h *StudentPortalHandler) ListExamPools(c *gin.Context) {
	pools, err := h.pools.List(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, pools, nil)
}

// JoinExamPool godoc
// @Summary Book a seat in an exam pool
// @Description Spends seat-cost credits from the wallet; capacity and balance are checked atomically
// @Tags Student
// @Accept json
// @Produce json
// @Param id path string true "Pool ID"
// @Param payload body service.JoinExamPoolRequest true "Join payload"
// @Success 201 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Failure 412 {object} response.Envelope
// @Router /student/exam-pools/{id}/join [post]
func (h *StudentPortalHandler) JoinExamPool(c *gin.Context) {
	claims := claimsFromContext(c)

	var req service.JoinExamPoolRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid join payload"))
		return
	}

	membership, err := h.pools.Join(c.Request.Context(), claims.UserID, c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, membership)
}

// MyExamMemberships lists the caller's seat bookings.
func (h *StudentPortalHandler) MyExamMemberships(c *gin.Context) {
	claims := claimsFromContext(c)
	memberships, err := h.pools.MyMemberships(c.Request.Context(), claims.UserID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, memberships, nil)
}

// MyResults lists the caller's assessment results.
func (h *StudentPortalHandler) MyResults(c *gin.Context) {
	claims := claimsFromContext(c)
	results, err := h.grades.MyResults(c.Request.Context(), claims.UserID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, results, nil)
}

// MyAttendance lists the caller's attendance history.
func (h *StudentPortalHandler) MyAttendance(c *gin.Context) {
	claims := claimsFromContext(c)

	var from, to *time.Time
	if raw := c.Query("from"); raw != "" {
		if parsed, err := time.Parse("2006-01-02", raw); err == nil {
			from = &parsed
		}
	}
	if raw := c.Query("to"); raw != "" {
		if parsed, err := time.Parse("2006-01-02", raw); err == nil {
			to = &parsed
		}
	}

	records, err := h.attendance.MyHistory(c.Request.Context(), claims.UserID, from, to)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, records, nil)
}

// SubmitApplication files an admissions application for the caller.
func (h *StudentPortalHandler) SubmitApplication(c *gin.Context) {
	claims := claimsFromContext(c)

	var req service.SubmitApplicationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid application payload"))
		return
	}

	application, err := h.applications.Submit(c.Request.Context(), claims.UserID, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, application)
}

// MyApplications lists the caller's admissions applications.
func (h *StudentPortalHandler) MyApplications(c *gin.Context) {
	claims := claimsFromContext(c)
	rows, err := h.applications.MyApplications(c.Request.Context(), claims.UserID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, rows, nil)
}
