package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/aeropoint/academy-api/internal/service"
	appErrors "github.com/aeropoint/academy-api/pkg/errors"
	"github.com/aeropoint/academy-api/pkg/response"
)

// UploadHandler serves file ingestion and signed-URL downloads.
type UploadHandler struct {
	uploads *service.UploadService
}

// NewUploadHandler creates a new handler.
func NewUploadHandler(uploads *service.UploadService) *UploadHandler {
	return &UploadHandler{uploads: uploads}
}

// Upload godoc
// @Summary Upload a file to a named endpoint
// @Description Role policy depends on the endpoint; payment proofs accept anonymous uploads
// @Tags Uploads
// @Accept multipart/form-data
// @Produce json
// @Param endpoint path string true "Upload endpoint" Enums(paymentProof, adminStudentPhoto, applicationDocument)
// @Param file formData file true "File content"
// @Success 201 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Failure 413 {object} response.Envelope
// @Router /uploads/{endpoint} [post]
func (h *UploadHandler) Upload(c *gin.Context) {
	header, err := c.FormFile("file")
	if err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "file field is required"))
		return
	}

	file, err := header.Open()
	if err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrInternal.Code, http.StatusInternalServerError, "failed to open upload"))
		return
	}
	defer file.Close()

	result, err := h.uploads.Upload(c.Param("endpoint"), claimsFromContext(c), service.FileUpload{
		Filename: header.Filename,
		Size:     header.Size,
		MimeType: header.Header.Get("Content-Type"),
		Content:  file,
	})
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, result)
}

// Download streams a stored file addressed by a signed token.
func (h *UploadHandler) Download(c *gin.Context) {
	download, err := h.uploads.Download(c.Param("token"))
	if err != nil {
		response.Error(c, err)
		return
	}
	defer download.File.Close()

	c.Header("Content-Disposition", `inline; filename="`+download.Filename+`"`)
	stat, err := download.File.Stat()
	if err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrInternal.Code, http.StatusInternalServerError, "failed to stat file"))
		return
	}
	c.DataFromReader(http.StatusOK, stat.Size(), download.MimeType, download.File, nil)
}
