package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/aeropoint/academy-api/internal/models"
	"github.com/aeropoint/academy-api/internal/service"
	appErrors "github.com/aeropoint/academy-api/pkg/errors"
	"github.com/aeropoint/academy-api/pkg/response"
)

// PublicHandler serves the unauthenticated surface.
type PublicHandler struct {
	fees         *service.FeeService
	applications *service.ApplicationService
}

// NewPublicHandler creates a new handler.
func NewPublicHandler(fees *service.FeeService, applications *service.ApplicationService) *PublicHandler {
	return &PublicHandler{fees: fees, applications: applications}
}

// SubmitProof godoc
// @Summary Submit a payment proof by email
// @Description Attaches the proof to the submitter's oldest unpaid fee
// @Tags Public
// @Accept json
// @Produce json
// @Param payload body models.PublicProofRequest true "Proof payload"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /public/payments/proof [post]
func (h *PublicHandler) SubmitProof(c *gin.Context) {
	var req models.PublicProofRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid proof payload"))
		return
	}

	fee, err := h.fees.SubmitProofByEmail(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, fee, nil)
}

// SubmitEnquiry records a prospective student enquiry.
func (h *PublicHandler) SubmitEnquiry(c *gin.Context) {
	var req service.EnquiryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid enquiry payload"))
		return
	}

	enquiry, err := h.applications.SubmitEnquiry(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, enquiry)
}
