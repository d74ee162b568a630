package handler

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/aeropoint/academy-api/internal/middleware"
	"github.com/aeropoint/academy-api/internal/models"
	"github.com/aeropoint/academy-api/internal/service"
)

type authRepoStub struct {
	user   *models.User
	tokens map[string]*models.RefreshToken
	audits int
}

func (r *authRepoStub) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	if r.user == nil || r.user.Email != email {
		return nil, sql.ErrNoRows
	}
	return r.user, nil
}

func (r *authRepoStub) FindByID(ctx context.Context, id string) (*models.User, error) {
	if r.user == nil || r.user.ID != id {
		return nil, sql.ErrNoRows
	}
	return r.user, nil
}

func (r *authRepoStub) UpdateLastLogin(ctx context.Context, id string, ts time.Time) error {
	return nil
}

func (r *authRepoStub) UpdatePassword(ctx context.Context, id, passwordHash string, updatedAt time.Time) error {
	return nil
}

func (r *authRepoStub) RevokeUserRefreshTokens(ctx context.Context, userID string) error {
	return nil
}

func (r *authRepoStub) CreateRefreshToken(ctx context.Context, token *models.RefreshToken) error {
	if r.tokens == nil {
		r.tokens = make(map[string]*models.RefreshToken)
	}
	r.tokens[token.Token] = token
	return nil
}

func (r *authRepoStub) FindRefreshToken(ctx context.Context, token string) (*models.RefreshToken, error) {
	rt, ok := r.tokens[token]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return rt, nil
}

func (r *authRepoStub) RevokeRefreshToken(ctx context.Context, id string, revokedAt time.Time) error {
	return nil
}

func (r *authRepoStub) CreateAuditLog(ctx context.Context, log *models.AuditLog) error {
	r.audits++
	return nil
}

func newAuthHandlerFixture(t *testing.T) (*AuthHandler, *authRepoStub) {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte("password123"), bcrypt.DefaultCost)
	require.NoError(t, err)
	hashStr := string(hash)
	repo := &authRepoStub{user: &models.User{
		ID:           "user-1",
		Email:        "staff@aeropoint.academy",
		PasswordHash: &hashStr,
		FullName:     "Kofi Adjei",
		Role:         models.RoleStaff,
		Active:       true,
	}}
	svc := service.NewAuthService(repo, nil, nil, service.AuthConfig{
		AccessTokenSecret:  "handler-test-secret",
		AccessTokenExpiry:  time.Hour,
		RefreshTokenExpiry: 24 * time.Hour,
	})
	return NewAuthHandler(svc), repo
}

func jsonRequest(method, target string, payload any) *http.Request {
	body, _ := json.Marshal(payload)
	req := httptest.NewRequest(method, target, bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	return req
}

func TestAuthHandlerLogin(t *testing.T) {
	gin.SetMode(gin.TestMode)
	handler, repo := newAuthHandlerFixture(t)

	rec := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(rec)
	c.Request = jsonRequest(http.MethodPost, "/auth/login", gin.H{
		"email":    "staff@aeropoint.academy",
		"password": "password123",
	})

	handler.Login(c)

	assert.Equal(t, http.StatusOK, rec.Code)
	var envelope struct {
		Data models.LoginResponse `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &envelope))
	assert.NotEmpty(t, envelope.Data.AccessToken)
	assert.Equal(t, "user-1", envelope.Data.User.ID)
	assert.Equal(t, 1, repo.audits)
}

func TestAuthHandlerLoginWrongPassword(t *testing.T) {
	gin.SetMode(gin.TestMode)
	handler, _ := newAuthHandlerFixture(t)

	rec := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(rec)
	c.Request = jsonRequest(http.MethodPost, "/auth/login", gin.H{
		"email":    "staff@aeropoint.academy",
		"password": "wrong-password",
	})

	handler.Login(c)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestAuthHandlerLoginMalformedBody(t *testing.T) {
	gin.SetMode(gin.TestMode)
	handler, _ := newAuthHandlerFixture(t)

	rec := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(rec)
	c.Request = httptest.NewRequest(http.MethodPost, "/auth/login", bytes.NewReader([]byte("{")))
	c.Request.Header.Set("Content-Type", "application/json")

	handler.Login(c)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestAuthHandlerMe(t *testing.T) {
	gin.SetMode(gin.TestMode)
	handler, _ := newAuthHandlerFixture(t)

	rec := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(rec)
	c.Request = httptest.NewRequest(http.MethodGet, "/auth/me", nil)
	c.Set(middleware.ContextUserKey, &models.JWTClaims{UserID: "user-1", Email: "staff@aeropoint.academy", Role: models.RoleStaff})

	handler.Me(c)

	assert.Equal(t, http.StatusOK, rec.Code)
	var envelope struct {
		Data models.UserInfo `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &envelope))
	assert.Equal(t, "user-1", envelope.Data.ID)
}

func TestAuthHandlerMeUnauthenticated(t *testing.T) {
	gin.SetMode(gin.TestMode)
	handler, _ := newAuthHandlerFixture(t)

	rec := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(rec)
	c.Request = httptest.NewRequest(http.MethodGet, "/auth/me", nil)

	handler.Me(c)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}
