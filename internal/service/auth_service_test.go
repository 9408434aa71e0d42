package service

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vigilo/proctor-backend/internal/config"
	"github.com/vigilo/proctor-backend/internal/model"
)

func newAuthService(t *testing.T) *AuthService {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	cfg := &config.Config{
		JWTSecret:  "unit-test-secret",
		JWTExpiry:  time.Hour,
		BcryptCost: 4,
	}
	return NewAuthService(cfg, rdb)
}

func testUser() *model.User {
	return &model.User{ID: 7, Username: "dina", Role: model.RoleStudent}
}

func TestGenerateTokenRegistersSession(t *testing.T) {
	ctx := context.Background()
	svc := newAuthService(t)

	token, err := svc.GenerateToken(ctx, testUser())
	require.NoError(t, err)

	claims, err := svc.ValidateToken(token)
	require.NoError(t, err)
	assert.Equal(t, 7, claims.UserID)
	assert.Equal(t, "dina", claims.Username)
	assert.Equal(t, model.RoleStudent, claims.Role)

	assert.NoError(t, svc.ValidateSession(ctx, claims.UserID, claims.ID))
}

func TestTokenRejectedAfterLogout(t *testing.T) {
	ctx := context.Background()
	svc := newAuthService(t)

	token, err := svc.GenerateToken(ctx, testUser())
	require.NoError(t, err)
	claims, err := svc.ValidateToken(token)
	require.NoError(t, err)

	require.NoError(t, svc.Logout(ctx, claims.UserID))

	// The signature still verifies; the registry check is what revokes it.
	_, err = svc.ValidateToken(token)
	assert.NoError(t, err)
	assert.ErrorIs(t, svc.ValidateSession(ctx, claims.UserID, claims.ID), ErrSessionInvalidated)
}

func TestReloginInvalidatesPreviousToken(t *testing.T) {
	ctx := context.Background()
	svc := newAuthService(t)
	user := testUser()

	first, err := svc.GenerateToken(ctx, user)
	require.NoError(t, err)
	second, err := svc.GenerateToken(ctx, user)
	require.NoError(t, err)

	firstClaims, err := svc.ValidateToken(first)
	require.NoError(t, err)
	secondClaims, err := svc.ValidateToken(second)
	require.NoError(t, err)

	assert.ErrorIs(t, svc.ValidateSession(ctx, user.ID, firstClaims.ID), ErrSessionInvalidated)
	assert.NoError(t, svc.ValidateSession(ctx, user.ID, secondClaims.ID))
}

func TestValidateSessionWithoutLogin(t *testing.T) {
	svc := newAuthService(t)

	err := svc.ValidateSession(context.Background(), 99, "never-issued")
	assert.ErrorIs(t, err, ErrSessionInvalidated)
}
