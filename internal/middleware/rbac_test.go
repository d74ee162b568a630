package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"

	"github.com/aeropoint/academy-api/internal/models"
)

func performRBAC(t *testing.T, claims *models.JWTClaims, paramID string, allowed ...string) (*httptest.ResponseRecorder, bool) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	rec := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(rec)
	c.Request = httptest.NewRequest(http.MethodGet, "/protected", nil)
	if claims != nil {
		c.Set(ContextUserKey, claims)
	}
	if paramID != "" {
		c.Params = gin.Params{{Key: "id", Value: paramID}}
	}

	passed := false
	RBAC(allowed...)(c)
	if !c.IsAborted() {
		passed = true
	}
	return rec, passed
}

func TestRBACAllowsMatchingRole(t *testing.T) {
	_, passed := performRBAC(t, &models.JWTClaims{UserID: "user-1", Role: models.RoleStaff}, "", string(models.RoleStaff), string(models.RoleAdmin))
	assert.True(t, passed)
}

func TestRBACRejectsOtherRole(t *testing.T) {
	rec, passed := performRBAC(t, &models.JWTClaims{UserID: "user-1", Role: models.RoleStudent}, "", string(models.RoleStaff))
	assert.False(t, passed)
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestRBACRejectsAnonymous(t *testing.T) {
	rec, passed := performRBAC(t, nil, "", string(models.RoleStaff))
	assert.False(t, passed)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestRBACSelfSentinel(t *testing.T) {
	_, passed := performRBAC(t, &models.JWTClaims{UserID: "user-1", Role: models.RoleStudent}, "user-1", string(models.RoleAdmin), "SELF")
	assert.True(t, passed)

	rec, passed := performRBAC(t, &models.JWTClaims{UserID: "user-1", Role: models.RoleStudent}, "user-2", string(models.RoleAdmin), "SELF")
	assert.False(t, passed)
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestRequireRoles(t *testing.T) {
	gin.SetMode(gin.TestMode)
	rec := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(rec)
	c.Request = httptest.NewRequest(http.MethodGet, "/protected", nil)
	c.Set(ContextUserKey, &models.JWTClaims{UserID: "user-1", Role: models.RoleInstructor})

	RequireRoles(models.RoleInstructor)(c)
	assert.False(t, c.IsAborted())
}
