package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"menthub/utils"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
)

func newAuthRouter(t *testing.T) (*gin.Engine, *utils.JWTService) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	jwtService := utils.NewJWTService("test-secret")
	auth := NewAuthMiddleware(jwtService)

	router := gin.New()
	protected := router.Group("/", auth.RequireAuth())
	protected.GET("/me", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"userID": c.GetString("userID")})
	})
	protected.GET("/admin", auth.RequireRole("admin"), func(c *gin.Context) {
		c.Status(http.StatusOK)
	})
	return router, jwtService
}

func authRequest(router *gin.Engine, path, token string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	router.ServeHTTP(w, req)
	return w
}

func TestRequireAuthValidToken(t *testing.T) {
	router, jwtService := newAuthRouter(t)

	token, err := jwtService.GenerateToken("user-1", "user@menthub.app", "member", time.Hour)
	assert.NoError(t, err)

	w := authRequest(router, "/me", token)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "user-1")
}

func TestRequireAuthMissingToken(t *testing.T) {
	router, _ := newAuthRouter(t)

	w := authRequest(router, "/me", "")
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestRequireAuthRejectsGarbage(t *testing.T) {
	router, _ := newAuthRouter(t)

	w := authRequest(router, "/me", "not-a-jwt")
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestRequireAuthRejectsExpiredToken(t *testing.T) {
	router, jwtService := newAuthRouter(t)

	token, err := jwtService.GenerateToken("user-1", "user@menthub.app", "member", -time.Minute)
	assert.NoError(t, err)

	w := authRequest(router, "/me", token)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestRequireAuthAcceptsQueryToken(t *testing.T) {
	router, jwtService := newAuthRouter(t)

	token, err := jwtService.GenerateToken("ws-user", "ws@menthub.app", "member", time.Hour)
	assert.NoError(t, err)

	w := authRequest(router, "/me?token="+token, "")
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestRequireRoleForbidsOtherRoles(t *testing.T) {
	router, jwtService := newAuthRouter(t)

	token, err := jwtService.GenerateToken("user-1", "user@menthub.app", "member", time.Hour)
	assert.NoError(t, err)

	w := authRequest(router, "/admin", token)
	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestRequireRoleAllowsMatch(t *testing.T) {
	router, jwtService := newAuthRouter(t)

	token, err := jwtService.GenerateToken("admin-1", "admin@menthub.app", "admin", time.Hour)
	assert.NoError(t, err)

	w := authRequest(router, "/admin", token)
	assert.Equal(t, http.StatusOK, w.Code)
}
