package handler

import (
	"bytes"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aeropoint/academy-api/internal/middleware"
	"github.com/aeropoint/academy-api/internal/models"
	"github.com/aeropoint/academy-api/internal/service"
	"github.com/aeropoint/academy-api/pkg/storage"
)

func newUploadHandler(t *testing.T) *UploadHandler {
	t.Helper()
	store, err := storage.NewLocalStorage(t.TempDir())
	require.NoError(t, err)
	signer := storage.NewSignedURLSigner("handler-test-secret", time.Hour)
	svc := service.NewUploadService(store, signer, nil, service.UploadServiceConfig{})
	return NewUploadHandler(svc)
}

func multipartRequest(t *testing.T, target, filename, mimeType string, content []byte) *http.Request {
	t.Helper()
	var body bytes.Buffer
	writer := multipart.NewWriter(&body)
	partHeader := textproto.MIMEHeader{}
	partHeader.Set("Content-Disposition", `form-data; name="file"; filename="`+filename+`"`)
	partHeader.Set("Content-Type", mimeType)
	part, err := writer.CreatePart(partHeader)
	require.NoError(t, err)
	_, err = part.Write(content)
	require.NoError(t, err)
	require.NoError(t, writer.Close())

	req := httptest.NewRequest(http.MethodPost, target, &body)
	req.Header.Set("Content-Type", writer.FormDataContentType())
	return req
}

func TestUploadHandlerPaymentProof(t *testing.T) {
	gin.SetMode(gin.TestMode)
	handler := newUploadHandler(t)

	rec := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(rec)
	c.Request = multipartRequest(t, "/uploads/paymentProof", "receipt.pdf", "application/pdf", []byte("%PDF-1.4 proof"))
	c.Params = gin.Params{{Key: "endpoint", Value: "paymentProof"}}

	handler.Upload(c)

	assert.Equal(t, http.StatusCreated, rec.Code)
	var envelope struct {
		Data service.UploadResult `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &envelope))
	assert.NotEmpty(t, envelope.Data.FileID)
	assert.Contains(t, envelope.Data.URL, "/uploads/files/")
}

func TestUploadHandlerMissingFile(t *testing.T) {
	gin.SetMode(gin.TestMode)
	handler := newUploadHandler(t)

	rec := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(rec)
	c.Request = httptest.NewRequest(http.MethodPost, "/uploads/paymentProof", nil)
	c.Params = gin.Params{{Key: "endpoint", Value: "paymentProof"}}

	handler.Upload(c)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestUploadHandlerForbiddenEndpoint(t *testing.T) {
	gin.SetMode(gin.TestMode)
	handler := newUploadHandler(t)

	rec := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(rec)
	c.Request = multipartRequest(t, "/uploads/adminStudentPhoto", "photo.png", "image/png", []byte("\x89PNG\r\n\x1a\n"))
	c.Params = gin.Params{{Key: "endpoint", Value: "adminStudentPhoto"}}
	c.Set(middleware.ContextUserKey, &models.JWTClaims{UserID: "user-1", Role: models.RoleStudent})

	handler.Upload(c)

	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestUploadHandlerDownloadRoundtrip(t *testing.T) {
	gin.SetMode(gin.TestMode)
	handler := newUploadHandler(t)

	rec := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(rec)
	c.Request = multipartRequest(t, "/uploads/paymentProof", "receipt.pdf", "application/pdf", []byte("%PDF-1.4 proof"))
	c.Params = gin.Params{{Key: "endpoint", Value: "paymentProof"}}
	handler.Upload(c)
	require.Equal(t, http.StatusCreated, rec.Code)

	var envelope struct {
		Data service.UploadResult `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &envelope))
	url := envelope.Data.URL
	token := url[strings.LastIndex(url, "/")+1:]

	downloadRec := httptest.NewRecorder()
	dc, _ := gin.CreateTestContext(downloadRec)
	dc.Request = httptest.NewRequest(http.MethodGet, "/uploads/files/"+token, nil)
	dc.Params = gin.Params{{Key: "token", Value: token}}

	handler.Download(dc)

	assert.Equal(t, http.StatusOK, downloadRec.Code)
	assert.Equal(t, "application/pdf", downloadRec.Header().Get("Content-Type"))
	assert.Contains(t, downloadRec.Body.String(), "%PDF-1.4 proof")
}

func TestUploadHandlerDownloadBadToken(t *testing.T) {
	gin.SetMode(gin.TestMode)
	handler := newUploadHandler(t)

	rec := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(rec)
	c.Request = httptest.NewRequest(http.MethodGet, "/uploads/files/not-a-token", nil)
	c.Params = gin.Params{{Key: "token", Value: "not-a-token"}}

	handler.Download(c)

	assert.Equal(t, http.StatusForbidden, rec.Code)
}
