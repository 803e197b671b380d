package auth

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mesbahtanvir/docuchan/backend/internal/apperr"
	"github.com/mesbahtanvir/docuchan/backend/internal/store/memstore"
)

func newTestCore() *Core {
	s := memstore.New()
	return NewCore(s, "test-secret", 15*time.Minute, 7*24*time.Hour, 10, 5, 15*time.Minute, time.Second)
}

func TestCore_CreateUser(t *testing.T) {
	c := newTestCore()
	ctx := context.Background()

	user, err := c.CreateUser(ctx, "User@Example.com", "Str0ng!Pass", "Jane", "")
	require.NoError(t, err)
	assert.Equal(t, "user@example.com", user.Email)
	assert.NotEmpty(t, user.ID)

	_, err = c.CreateUser(ctx, "user@example.com", "An0ther!Pass", "Jane2", "")
	require.Error(t, err)
	assert.Equal(t, apperr.EmailExists, apperr.CodeOf(err))
}

func TestCore_CreateUser_RejectsWeakPassword(t *testing.T) {
	c := newTestCore()
	_, err := c.CreateUser(context.Background(), "user@example.com", "weak", "Jane", "")
	require.Error(t, err)
	assert.Equal(t, apperr.InvalidPassword, apperr.CodeOf(err))
}

func TestCore_SignIn_Success(t *testing.T) {
	c := newTestCore()
	ctx := context.Background()
	_, err := c.CreateUser(ctx, "user@example.com", "Str0ng!Pass", "Jane", "")
	require.NoError(t, err)

	pair, err := c.SignIn(ctx, "user@example.com", "Str0ng!Pass")
	require.NoError(t, err)
	assert.NotEmpty(t, pair.AccessToken)
	assert.NotEmpty(t, pair.RefreshToken)

	claims, err := c.VerifyAccessToken(ctx, pair.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, "user@example.com", claims.Email)
}

func TestCore_SignIn_UserNotFound(t *testing.T) {
	c := newTestCore()
	_, err := c.SignIn(context.Background(), "missing@example.com", "Str0ng!Pass")
	require.Error(t, err)
	assert.Equal(t, apperr.UserNotFound, apperr.CodeOf(err))
}

func TestCore_SignIn_LockoutAfterFiveFailures(t *testing.T) {
	c := newTestCore()
	ctx := context.Background()
	_, err := c.CreateUser(ctx, "user@example.com", "Str0ng!Pass", "Jane", "")
	require.NoError(t, err)

	for i := 0; i < 4; i++ {
		_, err := c.SignIn(ctx, "user@example.com", "WrongPass1!")
		require.Error(t, err)
		assert.Equal(t, apperr.InvalidPassword, apperr.CodeOf(err))
	}

	// Fifth bad attempt crosses the threshold.
	_, err = c.SignIn(ctx, "user@example.com", "WrongPass1!")
	require.Error(t, err)
	assert.Equal(t, apperr.AccountLocked, apperr.CodeOf(err))

	// Even the correct password is rejected while locked out.
	_, err = c.SignIn(ctx, "user@example.com", "Str0ng!Pass")
	require.Error(t, err)
	assert.Equal(t, apperr.AccountLocked, apperr.CodeOf(err))
}

func TestCore_SignIn_LockoutCountsInt64Attempts(t *testing.T) {
	// firestorestore decodes Firestore integers as int64, not int — this
	// pins the lockout counter against that shape instead of only
	// memstore's verbatim int.
	c := newTestCore()
	ctx := context.Background()
	user, err := c.CreateUser(ctx, "user@example.com", "Str0ng!Pass", "Jane", "")
	require.NoError(t, err)

	_, err = c.store.Update(ctx, usersCollection, user.ID, map[string]interface{}{
		"failedLoginAttempts": int64(4),
	})
	require.NoError(t, err)

	_, err = c.SignIn(ctx, "user@example.com", "WrongPass1!")
	require.Error(t, err)
	assert.Equal(t, apperr.AccountLocked, apperr.CodeOf(err), "the fifth failure must be counted even when the stored value is int64")
}

func TestCore_SignIn_LockoutClearsAfterWindow(t *testing.T) {
	c := newTestCore()
	c.lockoutWindow = time.Millisecond
	ctx := context.Background()
	_, err := c.CreateUser(ctx, "user@example.com", "Str0ng!Pass", "Jane", "")
	require.NoError(t, err)

	for i := 0; i < 5; i++ {
		_, _ = c.SignIn(ctx, "user@example.com", "WrongPass1!")
	}

	time.Sleep(5 * time.Millisecond)

	pair, err := c.SignIn(ctx, "user@example.com", "Str0ng!Pass")
	require.NoError(t, err)
	assert.NotEmpty(t, pair.AccessToken)
}

func TestCore_RefreshRotatesToken(t *testing.T) {
	c := newTestCore()
	ctx := context.Background()
	_, err := c.CreateUser(ctx, "user@example.com", "Str0ng!Pass", "Jane", "")
	require.NoError(t, err)

	pair, err := c.SignIn(ctx, "user@example.com", "Str0ng!Pass")
	require.NoError(t, err)

	newPair, err := c.Refresh(ctx, pair.RefreshToken)
	require.NoError(t, err)
	assert.NotEmpty(t, newPair.AccessToken)
	assert.NotEqual(t, pair.RefreshToken, newPair.RefreshToken)

	// The rotated-out refresh token is now revoked.
	_, err = c.Refresh(ctx, pair.RefreshToken)
	require.Error(t, err)
	assert.Equal(t, apperr.TokenRevoked, apperr.CodeOf(err))
}

func TestCore_RefreshRejectsAccessToken(t *testing.T) {
	c := newTestCore()
	ctx := context.Background()
	_, err := c.CreateUser(ctx, "user@example.com", "Str0ng!Pass", "Jane", "")
	require.NoError(t, err)

	pair, err := c.SignIn(ctx, "user@example.com", "Str0ng!Pass")
	require.NoError(t, err)

	_, err = c.Refresh(ctx, pair.AccessToken)
	require.Error(t, err)
	assert.Equal(t, apperr.InvalidToken, apperr.CodeOf(err))
}
