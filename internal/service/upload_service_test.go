package service

import (
	"bytes"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aeropoint/academy-api/internal/models"
	appErrors "github.com/aeropoint/academy-api/pkg/errors"
	"github.com/aeropoint/academy-api/pkg/storage"
)

func newUploadFixture(t *testing.T, cfg UploadServiceConfig) *UploadService {
	t.Helper()
	store, err := storage.NewLocalStorage(t.TempDir())
	require.NoError(t, err)
	signer := storage.NewSignedURLSigner("upload-test-secret", time.Hour)
	return NewUploadService(store, signer, nil, cfg)
}

func pdfUpload(name string, size int) FileUpload {
	content := append([]byte("%PDF-1.4\n"), bytes.Repeat([]byte("a"), size)...)
	return FileUpload{
		Filename: name,
		Size:     int64(len(content)),
		MimeType: "application/pdf",
		Content:  bytes.NewReader(content),
	}
}

func staffClaims() *models.JWTClaims {
	return &models.JWTClaims{UserID: "user-staff", Role: models.RoleStaff}
}

func studentClaims() *models.JWTClaims {
	return &models.JWTClaims{UserID: "user-student", Role: models.RoleStudent}
}

func TestUploadServicePaymentProofAnonymous(t *testing.T) {
	svc := newUploadFixture(t, UploadServiceConfig{BaseURL: "https://api.aeropoint.academy"})

	res, err := svc.Upload(UploadEndpointPaymentProof, nil, pdfUpload("receipt.pdf", 64))
	require.NoError(t, err)
	assert.NotEmpty(t, res.FileID)
	assert.Equal(t, "application/pdf", res.MimeType)
	assert.Contains(t, res.URL, "https://api.aeropoint.academy/api/v1/uploads/files/")
	assert.True(t, res.ExpiresAt.After(time.Now()))
}

func TestUploadServiceStudentPhotoRequiresStaff(t *testing.T) {
	svc := newUploadFixture(t, UploadServiceConfig{})

	_, err := svc.Upload(UploadEndpointAdminStudentPhoto, nil, pdfUpload("photo.pdf", 8))
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrUnauthorized.Code, appErrors.FromError(err).Code)

	_, err = svc.Upload(UploadEndpointAdminStudentPhoto, studentClaims(), pdfUpload("photo.pdf", 8))
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrForbidden.Code, appErrors.FromError(err).Code)

	_, err = svc.Upload(UploadEndpointAdminStudentPhoto, staffClaims(), pdfUpload("photo.pdf", 8))
	require.NoError(t, err)
}

func TestUploadServiceApplicationDocumentRequiresStudent(t *testing.T) {
	svc := newUploadFixture(t, UploadServiceConfig{})

	_, err := svc.Upload(UploadEndpointApplicationDocument, staffClaims(), pdfUpload("cv.pdf", 8))
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrForbidden.Code, appErrors.FromError(err).Code)

	_, err = svc.Upload(UploadEndpointApplicationDocument, studentClaims(), pdfUpload("cv.pdf", 8))
	require.NoError(t, err)
}

func TestUploadServiceUnknownEndpoint(t *testing.T) {
	svc := newUploadFixture(t, UploadServiceConfig{})

	_, err := svc.Upload("profileBanner", staffClaims(), pdfUpload("banner.pdf", 8))
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
}

func TestUploadServiceRejectsOversizedFile(t *testing.T) {
	svc := newUploadFixture(t, UploadServiceConfig{MaxFileSize: 32})

	_, err := svc.Upload(UploadEndpointPaymentProof, nil, pdfUpload("big.pdf", 64))
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

func TestUploadServiceRejectsDisallowedMime(t *testing.T) {
	svc := newUploadFixture(t, UploadServiceConfig{})

	upload := FileUpload{
		Filename: "macro.xlsm",
		Size:     16,
		MimeType: "application/vnd.ms-excel",
		Content:  strings.NewReader("spreadsheet-bytes"),
	}
	_, err := svc.Upload(UploadEndpointPaymentProof, nil, upload)
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

func TestUploadServiceDownloadRoundtrip(t *testing.T) {
	svc := newUploadFixture(t, UploadServiceConfig{})

	res, err := svc.Upload(UploadEndpointPaymentProof, nil, pdfUpload("receipt.pdf", 16))
	require.NoError(t, err)

	idx := strings.LastIndex(res.URL, "/")
	token := res.URL[idx+1:]

	download, err := svc.Download(token)
	require.NoError(t, err)
	defer download.File.Close()

	assert.Equal(t, "application/pdf", download.MimeType)
	data, err := io.ReadAll(download.File)
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(data, []byte("%PDF-1.4")))
}

func TestUploadServiceDownloadRejectsTamperedToken(t *testing.T) {
	svc := newUploadFixture(t, UploadServiceConfig{})

	res, err := svc.Upload(UploadEndpointPaymentProof, nil, pdfUpload("receipt.pdf", 16))
	require.NoError(t, err)

	idx := strings.LastIndex(res.URL, "/")
	token := res.URL[idx+1:] + "00"

	_, err = svc.Download(token)
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrForbidden.Code, appErrors.FromError(err).Code)
}
