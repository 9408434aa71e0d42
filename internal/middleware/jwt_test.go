package middleware

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vigilo/proctor-backend/internal/config"
	"github.com/vigilo/proctor-backend/internal/model"
	"github.com/vigilo/proctor-backend/internal/response"
	"github.com/vigilo/proctor-backend/internal/service"
)

func newAuthFixture(t *testing.T) (*service.AuthService, *gin.Engine) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	authService := service.NewAuthService(&config.Config{
		JWTSecret:  "middleware-test-secret",
		JWTExpiry:  time.Hour,
		BcryptCost: 4,
	}, rdb)

	r := gin.New()
	r.GET("/protected", RequireJWT(authService), func(c *gin.Context) {
		c.Status(http.StatusOK)
	})
	return authService, r
}

func doAuthorized(r *gin.Engine, token string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	req := httptest.NewRequest("GET", "/protected", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	r.ServeHTTP(w, req)
	return w
}

func errCodeOf(t *testing.T, w *httptest.ResponseRecorder) response.ErrCode {
	t.Helper()
	var env response.Envelope
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env))
	require.NotNil(t, env.Error)
	return env.Error.Code
}

func TestRequireJWTAcceptsRegisteredSession(t *testing.T) {
	authService, r := newAuthFixture(t)

	token, err := authService.GenerateToken(context.Background(),
		&model.User{ID: 1, Username: "asha", Role: model.RoleStudent})
	require.NoError(t, err)

	assert.Equal(t, http.StatusOK, doAuthorized(r, token).Code)
}

func TestRequireJWTRejectsLoggedOutToken(t *testing.T) {
	authService, r := newAuthFixture(t)
	ctx := context.Background()

	token, err := authService.GenerateToken(ctx,
		&model.User{ID: 2, Username: "bayu", Role: model.RoleStudent})
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, doAuthorized(r, token).Code)

	require.NoError(t, authService.Logout(ctx, 2))

	w := doAuthorized(r, token)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, response.ErrSessionInvalidated, errCodeOf(t, w))
}

func TestRequireJWTRejectsSupersededToken(t *testing.T) {
	authService, r := newAuthFixture(t)
	ctx := context.Background()
	user := &model.User{ID: 3, Username: "citra", Role: model.RoleStudent}

	old, err := authService.GenerateToken(ctx, user)
	require.NoError(t, err)
	fresh, err := authService.GenerateToken(ctx, user)
	require.NoError(t, err)

	assert.Equal(t, http.StatusOK, doAuthorized(r, fresh).Code)

	w := doAuthorized(r, old)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, response.ErrSessionInvalidated, errCodeOf(t, w))
}

func TestRequireJWTRejectsMissingToken(t *testing.T) {
	_, r := newAuthFixture(t)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest("GET", "/protected", nil))

	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, response.ErrTokenRequired, errCodeOf(t, w))
}
