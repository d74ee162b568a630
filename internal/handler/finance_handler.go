package handler

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/aeropoint/academy-api/internal/models"
	"github.com/aeropoint/academy-api/internal/service"
	appErrors "github.com/aeropoint/academy-api/pkg/errors"
	"github.com/aeropoint/academy-api/pkg/response"
)

// FinanceHandler exposes the staff-facing fee verification endpoints.
type FinanceHandler struct {
	fees *service.FeeService
}

// NewFinanceHandler creates a new handler.
func NewFinanceHandler(fees *service.FeeService) *FinanceHandler {
	return &FinanceHandler{fees: fees}
}

// ListFees godoc
// @Summary List fees
// @Description List fees with filters and pagination
// @Tags Finance
// @Produce json
// @Param status query string false "Fee status"
// @Param currency query string false "Currency"
// @Param student_id query string false "Student ID"
// @Param page query int false "Page"
// @Param page_size query int false "Page size"
// @Success 200 {object} response.Envelope
// @Router /staff/finance/fees [get]
func (h *FinanceHandler) ListFees(c *gin.Context) {
	filter := models.FeeFilter{
		StudentID: c.Query("student_id"),
		Status:    models.FeeStatus(c.Query("status")),
		Currency:  models.Currency(c.Query("currency")),
		SortBy:    c.Query("sort_by"),
		SortOrder: c.Query("sort_order"),
	}
	filter.Page, _ = strconv.Atoi(c.DefaultQuery("page", "1"))
	filter.PageSize, _ = strconv.Atoi(c.DefaultQuery("page_size", "20"))

	rows, pagination, err := h.fees.List(c.Request.Context(), filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, rows, pagination)
}

// GetFee returns one fee with student context.
func (h *FinanceHandler) GetFee(c *gin.Context) {
	detail, err := h.fees.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, detail, nil)
}

// CreateFee godoc
// @Summary Create fee invoice
// @Tags Finance
// @Accept json
// @Produce json
// @Param payload body models.CreateFeeRequest true "Invoice payload"
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /staff/finance/fees [post]
func (h *FinanceHandler) CreateFee(c *gin.Context) {
	var req models.CreateFeeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid invoice payload"))
		return
	}

	fee, err := h.fees.CreateInvoice(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, fee)
}

// ApproveFee godoc
// @Summary Approve a payment under verification
// @Tags Finance
// @Accept json
// @Produce json
// @Param id path string true "Fee ID"
// @Param payload body models.ApproveFeeRequest true "Approval payload"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /staff/finance/fees/{id}/approve [post]
func (h *FinanceHandler) ApproveFee(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	var req models.ApproveFeeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid approval payload"))
		return
	}
	req.IP = c.ClientIP()
	req.UserAgent = c.GetHeader("User-Agent")

	fee, err := h.fees.Approve(c.Request.Context(), claims.UserID, c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, fee, nil)
}

// RejectFee godoc
// @Summary Reject a payment under verification
// @Tags Finance
// @Accept json
// @Produce json
// @Param id path string true "Fee ID"
// @Param payload body models.RejectFeeRequest false "Rejection payload"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /staff/finance/fees/{id}/reject [post]
func (h *FinanceHandler) RejectFee(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	var req models.RejectFeeRequest
	if err := c.ShouldBindJSON(&req); err != nil && err.Error() != "EOF" {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid rejection payload"))
		return
	}
	req.IP = c.ClientIP()
	req.UserAgent = c.GetHeader("User-Agent")

	fee, err := h.fees.Reject(c.Request.Context(), claims.UserID, c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, fee, nil)
}

// Dashboard godoc
// @Summary Finance dashboard totals
// @Tags Finance
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /staff/finance/dashboard [get]
func (h *FinanceHandler) Dashboard(c *gin.Context) {
	dashboard, err := h.fees.Dashboard(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, dashboard, nil)
}

// ExportLedger streams the fee ledger as a CSV download.
func (h *FinanceHandler) ExportLedger(c *gin.Context) {
	data, err := h.fees.LedgerCSV(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	filename := "fee-ledger-" + time.Now().UTC().Format("2006-01-02") + ".csv"
	c.Header("Content-Disposition", `attachment; filename="`+filename+`"`)
	c.Data(http.StatusOK, "text/csv", data)
}
