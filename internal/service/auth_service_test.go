package service

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/aeropoint/academy-api/internal/models"
	appErrors "github.com/aeropoint/academy-api/pkg/errors"
)

type mockAuthRepo struct {
	userByEmail      *models.User
	userByID         *models.User
	refreshTokens    map[string]*models.RefreshToken
	auditLogs        []*models.AuditLog
	lastLoginUpdated bool
	revokedAll       bool
	passwordUpdated  string
}

func (m *mockAuthRepo) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	if m.userByEmail == nil || m.userByEmail.Email != email {
		return nil, sql.ErrNoRows
	}
	return m.userByEmail, nil
}

func (m *mockAuthRepo) FindByID(ctx context.Context, id string) (*models.User, error) {
	if m.userByID != nil {
		return m.userByID, nil
	}
	if m.userByEmail != nil && m.userByEmail.ID == id {
		return m.userByEmail, nil
	}
	return nil, sql.ErrNoRows
}

func (m *mockAuthRepo) UpdateLastLogin(ctx context.Context, id string, ts time.Time) error {
	m.lastLoginUpdated = true
	return nil
}

func (m *mockAuthRepo) UpdatePassword(ctx context.Context, id, passwordHash string, updatedAt time.Time) error {
	m.passwordUpdated = passwordHash
	return nil
}

func (m *mockAuthRepo) RevokeUserRefreshTokens(ctx context.Context, userID string) error {
	m.revokedAll = true
	return nil
}

func (m *mockAuthRepo) CreateRefreshToken(ctx context.Context, token *models.RefreshToken) error {
	if m.refreshTokens == nil {
		m.refreshTokens = make(map[string]*models.RefreshToken)
	}
	m.refreshTokens[token.Token] = token
	return nil
}

func (m *mockAuthRepo) FindRefreshToken(ctx context.Context, token string) (*models.RefreshToken, error) {
	rt, ok := m.refreshTokens[token]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return rt, nil
}

func (m *mockAuthRepo) RevokeRefreshToken(ctx context.Context, id string, revokedAt time.Time) error {
	for _, token := range m.refreshTokens {
		if token.ID == id {
			token.Revoked = true
			token.RevokedAt = &revokedAt
		}
	}
	return nil
}

func (m *mockAuthRepo) CreateAuditLog(ctx context.Context, log *models.AuditLog) error {
	m.auditLogs = append(m.auditLogs, log)
	return nil
}

func activeUser(password string) *models.User {
	hash, _ := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	hashStr := string(hash)
	return &models.User{
		ID:           "user-1",
		Email:        "staff@aeropoint.academy",
		PasswordHash: &hashStr,
		FullName:     "Kofi Adjei",
		Role:         models.RoleStaff,
		Active:       true,
	}
}

func newAuthService(repo *mockAuthRepo, cfg AuthConfig) *AuthService {
	if cfg.AccessTokenSecret == "" {
		cfg.AccessTokenSecret = "secret"
	}
	if cfg.AccessTokenExpiry == 0 {
		cfg.AccessTokenExpiry = time.Hour
	}
	if cfg.RefreshTokenExpiry == 0 {
		cfg.RefreshTokenExpiry = 24 * time.Hour
	}
	return NewAuthService(repo, validator.New(), zap.NewNop(), cfg)
}

func TestAuthServiceLoginSuccess(t *testing.T) {
	repo := &mockAuthRepo{userByEmail: activeUser("password123")}
	svc := newAuthService(repo, AuthConfig{})

	res, err := svc.Login(context.Background(), models.LoginRequest{Email: "staff@aeropoint.academy", Password: "password123"})
	require.NoError(t, err)
	assert.NotEmpty(t, res.AccessToken)
	assert.NotEmpty(t, res.RefreshToken)
	assert.Equal(t, "user-1", res.User.ID)
	assert.True(t, repo.lastLoginUpdated)
	require.Len(t, repo.auditLogs, 1)
	assert.Equal(t, models.AuditActionLogin, repo.auditLogs[0].Action)

	claims, err := svc.ValidateToken(res.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, "user-1", claims.UserID)
	assert.Equal(t, models.RoleStaff, claims.Role)
}

func TestAuthServiceLoginWrongPassword(t *testing.T) {
	repo := &mockAuthRepo{userByEmail: activeUser("password123")}
	svc := newAuthService(repo, AuthConfig{})

	_, err := svc.Login(context.Background(), models.LoginRequest{Email: "staff@aeropoint.academy", Password: "nope-nope"})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrInvalidCredentials.Code, appErrors.FromError(err).Code)
}

func TestAuthServiceLoginPasswordlessAccount(t *testing.T) {
	user := activeUser("password123")
	user.PasswordHash = nil
	repo := &mockAuthRepo{userByEmail: user}
	svc := newAuthService(repo, AuthConfig{})

	_, err := svc.Login(context.Background(), models.LoginRequest{Email: "staff@aeropoint.academy", Password: "anything123"})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrInvalidCredentials.Code, appErrors.FromError(err).Code)
}

func TestAuthServiceLoginInactiveAccount(t *testing.T) {
	user := activeUser("password123")
	user.Active = false
	repo := &mockAuthRepo{userByEmail: user}
	svc := newAuthService(repo, AuthConfig{})

	_, err := svc.Login(context.Background(), models.LoginRequest{Email: "staff@aeropoint.academy", Password: "password123"})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrInactiveAccount.Code, appErrors.FromError(err).Code)
}

func TestAuthServiceLoginDeletedAccountLooksUnknown(t *testing.T) {
	user := activeUser("password123")
	user.Deleted = true
	repo := &mockAuthRepo{userByEmail: user}
	svc := newAuthService(repo, AuthConfig{})

	_, err := svc.Login(context.Background(), models.LoginRequest{Email: "staff@aeropoint.academy", Password: "password123"})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrInvalidCredentials.Code, appErrors.FromError(err).Code)
}

func TestAuthServiceBypassLogin(t *testing.T) {
	repo := &mockAuthRepo{userByEmail: activeUser("password123")}
	svc := newAuthService(repo, AuthConfig{BypassSecret: "letmein"})

	res, err := svc.BypassLogin(context.Background(), models.BypassLoginRequest{Email: "staff@aeropoint.academy", Secret: "letmein"})
	require.NoError(t, err)
	assert.NotEmpty(t, res.AccessToken)

	stored, ok := repo.refreshTokens[res.RefreshToken]
	require.True(t, ok)
	assert.Equal(t, "dev-bypass", stored.UserAgent)
}

func TestAuthServiceBypassLoginRefusedInProduction(t *testing.T) {
	repo := &mockAuthRepo{userByEmail: activeUser("password123")}
	svc := newAuthService(repo, AuthConfig{BypassSecret: "letmein", Production: true})

	_, err := svc.BypassLogin(context.Background(), models.BypassLoginRequest{Email: "staff@aeropoint.academy", Secret: "letmein"})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrForbidden.Code, appErrors.FromError(err).Code)
}

func TestAuthServiceBypassLoginSecretMismatch(t *testing.T) {
	repo := &mockAuthRepo{userByEmail: activeUser("password123")}
	svc := newAuthService(repo, AuthConfig{BypassSecret: "letmein"})

	_, err := svc.BypassLogin(context.Background(), models.BypassLoginRequest{Email: "staff@aeropoint.academy", Secret: "wrong"})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrForbidden.Code, appErrors.FromError(err).Code)
}

func TestAuthServiceRefreshRotatesToken(t *testing.T) {
	repo := &mockAuthRepo{userByEmail: activeUser("password123")}
	svc := newAuthService(repo, AuthConfig{})

	login, err := svc.Login(context.Background(), models.LoginRequest{Email: "staff@aeropoint.academy", Password: "password123"})
	require.NoError(t, err)

	res, err := svc.RefreshToken(context.Background(), models.RefreshTokenRequest{RefreshToken: login.RefreshToken})
	require.NoError(t, err)
	assert.NotEqual(t, login.RefreshToken, res.RefreshToken)

	// The used token is revoked, so replaying it fails.
	_, err = svc.RefreshToken(context.Background(), models.RefreshTokenRequest{RefreshToken: login.RefreshToken})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrUnauthorized.Code, appErrors.FromError(err).Code)
}

func TestAuthServiceRefreshExpiredToken(t *testing.T) {
	repo := &mockAuthRepo{
		userByEmail: activeUser("password123"),
		refreshTokens: map[string]*models.RefreshToken{
			"stale": {ID: "rt-1", UserID: "user-1", Token: "stale", ExpiresAt: time.Now().UTC().Add(-time.Hour)},
		},
	}
	svc := newAuthService(repo, AuthConfig{})

	_, err := svc.RefreshToken(context.Background(), models.RefreshTokenRequest{RefreshToken: "stale"})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrUnauthorized.Code, appErrors.FromError(err).Code)
}

func TestAuthServiceLogoutChecksOwnership(t *testing.T) {
	repo := &mockAuthRepo{
		userByEmail: activeUser("password123"),
		refreshTokens: map[string]*models.RefreshToken{
			"owned-by-other": {ID: "rt-1", UserID: "user-2", Token: "owned-by-other", ExpiresAt: time.Now().UTC().Add(time.Hour)},
		},
	}
	svc := newAuthService(repo, AuthConfig{})

	err := svc.Logout(context.Background(), "owned-by-other", "user-1", models.LoginRequest{})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrForbidden.Code, appErrors.FromError(err).Code)
}

func TestAuthServiceChangePassword(t *testing.T) {
	repo := &mockAuthRepo{userByEmail: activeUser("password123")}
	svc := newAuthService(repo, AuthConfig{})

	err := svc.ChangePassword(context.Background(), "user-1", models.ChangePasswordRequest{
		OldPassword: "password123",
		NewPassword: "brand-new-pass",
	})
	require.NoError(t, err)
	assert.NotEmpty(t, repo.passwordUpdated)
	assert.True(t, repo.revokedAll, "existing sessions should be revoked")
	require.NoError(t, bcrypt.CompareHashAndPassword([]byte(repo.passwordUpdated), []byte("brand-new-pass")))
}

func TestAuthServiceChangePasswordWrongOld(t *testing.T) {
	repo := &mockAuthRepo{userByEmail: activeUser("password123")}
	svc := newAuthService(repo, AuthConfig{})

	err := svc.ChangePassword(context.Background(), "user-1", models.ChangePasswordRequest{
		OldPassword: "wrong-old-pass",
		NewPassword: "brand-new-pass",
	})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrForbidden.Code, appErrors.FromError(err).Code)
}

func TestAuthServiceValidateTokenRejectsTampering(t *testing.T) {
	repo := &mockAuthRepo{userByEmail: activeUser("password123")}
	svc := newAuthService(repo, AuthConfig{})

	res, err := svc.Login(context.Background(), models.LoginRequest{Email: "staff@aeropoint.academy", Password: "password123"})
	require.NoError(t, err)

	other := newAuthService(repo, AuthConfig{AccessTokenSecret: "different"})
	_, err = other.ValidateToken(res.AccessToken)
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrUnauthorized.Code, appErrors.FromError(err).Code)
}
