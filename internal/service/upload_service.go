package service

import (
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/aeropoint/academy-api/internal/models"
	appErrors "github.com/aeropoint/academy-api/pkg/errors"
)

// Upload endpoints accepted by the service. Each one carries its own role
// policy, enforced here rather than in routing so the rules live next to
// the storage behaviour.
const (
	UploadEndpointPaymentProof        = "paymentProof"
	UploadEndpointAdminStudentPhoto   = "adminStudentPhoto"
	UploadEndpointApplicationDocument = "applicationDocument"
)

type uploadFileStorage interface {
	SaveStream(filename string, r io.Reader) (string, error)
	Open(filename string) (*os.File, error)
	Delete(filename string) error
}

type uploadSignedURLSigner interface {
	Generate(fileID, relPath string) (string, time.Time, error)
	Parse(token string, allowExpired bool) (fileID, relPath string, expiresAt time.Time, err error)
}

// FileUpload carries the multipart stream and its metadata.
type FileUpload struct {
	Filename string
	Size     int64
	MimeType string
	Content  io.ReadSeeker
}

// UploadResult describes the stored file and its durable signed URL.
type UploadResult struct {
	FileID    string    `json:"file_id"`
	URL       string    `json:"url"`
	MimeType  string    `json:"mime_type"`
	SizeBytes int64     `json:"size_bytes"`
	ExpiresAt time.Time `json:"expires_at"`
}

// FileDownload bundles an open file for streaming to the client.
type FileDownload struct {
	File     *os.File
	Filename string
	MimeType string
}

// UploadServiceConfig holds upload validation parameters.
type UploadServiceConfig struct {
	MaxFileSize  int64
	AllowedMIMEs []string
	BaseURL      string
	APIPrefix    string
}

// UploadService validates and stores uploaded files, issuing HMAC signed
// download URLs.
type UploadService struct {
	storage uploadFileStorage
	signer  uploadSignedURLSigner
	logger  *zap.Logger
	cfg     UploadServiceConfig
	mimeSet map[string]struct{}
}

// NewUploadService constructs the upload service.
func NewUploadService(storage uploadFileStorage, signer uploadSignedURLSigner, logger *zap.Logger, cfg UploadServiceConfig) *UploadService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.MaxFileSize <= 0 {
		cfg.MaxFileSize = 8 * 1024 * 1024
	}
	if len(cfg.AllowedMIMEs) == 0 {
		cfg.AllowedMIMEs = []string{
			"application/pdf",
			"image/jpeg",
			"image/png",
		}
	}
	if cfg.APIPrefix == "" {
		cfg.APIPrefix = "/api/v1"
	}
	mimeSet := make(map[string]struct{}, len(cfg.AllowedMIMEs))
	for _, mt := range cfg.AllowedMIMEs {
		mimeSet[strings.ToLower(mt)] = struct{}{}
	}
	return &UploadService{storage: storage, signer: signer, logger: logger, cfg: cfg, mimeSet: mimeSet}
}

// Upload validates the file against the endpoint policy and persists it.
func (s *UploadService) Upload(endpoint string, actor *models.JWTClaims, upload FileUpload) (*UploadResult, error) {
	if err := s.authorize(endpoint, actor); err != nil {
		return nil, err
	}
	if upload.Content == nil || upload.Size <= 0 {
		return nil, appErrors.Clone(appErrors.ErrValidation, "file is required")
	}
	if upload.Size > s.cfg.MaxFileSize {
		return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("file exceeds %d bytes limit", s.cfg.MaxFileSize))
	}

	mimeType, err := s.detectMime(upload)
	if err != nil {
		return nil, err
	}
	if _, allowed := s.mimeSet[strings.ToLower(mimeType)]; !allowed {
		return nil, appErrors.Clone(appErrors.ErrValidation, "mime type not allowed")
	}

	fileID := uuid.NewString()
	filename := s.generateFilename(endpoint, fileID, upload.Filename, mimeType)
	if _, err := upload.Content.Seek(0, io.SeekStart); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to reset upload stream")
	}
	path, err := s.storage.SaveStream(filename, upload.Content)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to persist uploaded file")
	}

	token, expiresAt, err := s.signer.Generate(fileID, path)
	if err != nil {
		_ = s.storage.Delete(path)
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to sign download url")
	}

	return &UploadResult{
		FileID:    fileID,
		URL:       fmt.Sprintf("%s%s/uploads/files/%s", s.cfg.BaseURL, s.cfg.APIPrefix, token),
		MimeType:  mimeType,
		SizeBytes: upload.Size,
		ExpiresAt: expiresAt,
	}, nil
}

// Download resolves a signed token back to the stored file.
func (s *UploadService) Download(token string) (*FileDownload, error) {
	_, relPath, _, err := s.signer.Parse(token, false)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrForbidden.Code, appErrors.ErrForbidden.Status, "invalid or expired download token")
	}
	file, err := s.storage.Open(relPath)
	if err != nil {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "file not found")
	}
	return &FileDownload{
		File:     file,
		Filename: filepath.Base(relPath),
		MimeType: mimeFromExtension(relPath),
	}, nil
}

func (s *UploadService) authorize(endpoint string, actor *models.JWTClaims) error {
	switch endpoint {
	case UploadEndpointPaymentProof:
		// Public drop-off: unauthenticated submitters are matched by email
		// downstream, so no actor is required here.
		return nil
	case UploadEndpointAdminStudentPhoto:
		if actor == nil {
			return appErrors.ErrUnauthorized
		}
		if actor.Role != models.RoleStaff && actor.Role != models.RoleAdmin {
			return appErrors.ErrForbidden
		}
		return nil
	case UploadEndpointApplicationDocument:
		if actor == nil {
			return appErrors.ErrUnauthorized
		}
		if actor.Role != models.RoleStudent {
			return appErrors.ErrForbidden
		}
		return nil
	default:
		return appErrors.Clone(appErrors.ErrNotFound, "unknown upload endpoint")
	}
}

func (s *UploadService) detectMime(upload FileUpload) (string, error) {
	if upload.Content == nil {
		return "", appErrors.Clone(appErrors.ErrValidation, "file reader missing")
	}
	if upload.MimeType != "" {
		return upload.MimeType, nil
	}
	header := make([]byte, 512)
	n, err := upload.Content.Read(header)
	if err != nil && err != io.EOF {
		return "", appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to sniff file type")
	}
	return http.DetectContentType(header[:n]), nil
}

func (s *UploadService) generateFilename(endpoint, fileID, original, mimeType string) string {
	ext := filepath.Ext(original)
	if ext == "" {
		switch mimeType {
		case "application/pdf":
			ext = ".pdf"
		case "image/jpeg":
			ext = ".jpg"
		case "image/png":
			ext = ".png"
		}
	}
	return fmt.Sprintf("%s/%s%s", endpoint, fileID, ext)
}

func mimeFromExtension(path string) string {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".pdf":
		return "application/pdf"
	case ".jpg", ".jpeg":
		return "image/jpeg"
	case ".png":
		return "image/png"
	default:
		return "application/octet-stream"
	}
}
