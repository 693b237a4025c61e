package service

import (
	"context"
	"testing"
	"time"

	"smiledent/internal/config"
	"smiledent/internal/repository"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func newTestAuth(t *testing.T) (*AuthService, *repository.MemorySessionRepository) {
	t.Helper()
	db := setupTestDB(t)
	sessions := repository.NewMemorySessionRepository()
	svc := NewAuthService(db, sessions, config.SessionConfig{SecretKey: "test-secret", TTL: time.Hour}, testLogger())
	svc.hashCost = bcrypt.MinCost
	require.NoError(t, svc.SeedAdmin(context.Background(), "admin", "admin123"))
	return svc, sessions
}

func TestAuthService_SeedAdmin(t *testing.T) {
	db := setupTestDB(t)
	svc := NewAuthService(db, repository.NewMemorySessionRepository(), config.SessionConfig{SecretKey: "k"}, testLogger())
	svc.hashCost = bcrypt.MinCost
	ctx := context.Background()

	require.NoError(t, svc.SeedAdmin(ctx, "admin", "admin123"))
	require.NoError(t, svc.SeedAdmin(ctx, "admin", "changed"))

	cred, err := db.GetCredential(ctx, "admin")
	require.NoError(t, err)
	assert.NotEqual(t, "admin123", cred.Password, "password must be stored hashed")
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(cred.Password), []byte("admin123")))
}

func TestAuthService_Authenticate(t *testing.T) {
	svc, _ := newTestAuth(t)
	ctx := context.Background()

	_, err := svc.Authenticate(ctx, "admin", "wrongpass")
	assert.ErrorIs(t, err, ErrAuthFailed)

	_, err = svc.Authenticate(ctx, "nobody", "admin123")
	assert.ErrorIs(t, err, ErrAuthFailed)

	cred, err := svc.Authenticate(ctx, "admin", "admin123")
	require.NoError(t, err)
	assert.Equal(t, "admin", cred.Username)
}

func TestAuthService_LegacyPlaintextRow(t *testing.T) {
	db := setupTestDB(t)
	_, err := db.SeedUser(context.Background(), "legacy", "admin123")
	require.NoError(t, err)

	svc := NewAuthService(db, repository.NewMemorySessionRepository(), config.SessionConfig{SecretKey: "k"}, testLogger())

	_, err = svc.Authenticate(context.Background(), "legacy", "admin123")
	assert.NoError(t, err)
	_, err = svc.Authenticate(context.Background(), "legacy", "admin12")
	assert.ErrorIs(t, err, ErrAuthFailed)
}

func TestAuthService_SessionLifecycle(t *testing.T) {
	svc, _ := newTestAuth(t)
	ctx := context.Background()

	_, _, err := svc.Login(ctx, "admin", "wrongpass")
	assert.ErrorIs(t, err, ErrAuthFailed)

	token, session, err := svc.Login(ctx, "admin", "admin123")
	require.NoError(t, err)
	require.NotEmpty(t, token)
	assert.True(t, session.LoggedIn)

	for i := 0; i < 3; i++ {
		got, err := svc.RequireSession(ctx, token)
		require.NoError(t, err)
		assert.Equal(t, session.ID, got.ID)
		assert.Equal(t, "admin", got.Username)
	}

	require.NoError(t, svc.Logout(ctx, token))
	_, err = svc.RequireSession(ctx, token)
	assert.ErrorIs(t, err, ErrSessionRequired)

	assert.NoError(t, svc.Logout(ctx, token), "logout is idempotent")
}

func TestAuthService_RequireSessionRejects(t *testing.T) {
	svc, _ := newTestAuth(t)
	ctx := context.Background()

	token, _, err := svc.Login(ctx, "admin", "admin123")
	require.NoError(t, err)

	t.Run("empty token", func(t *testing.T) {
		_, err := svc.RequireSession(ctx, "")
		assert.ErrorIs(t, err, ErrSessionRequired)
	})

	t.Run("garbage token", func(t *testing.T) {
		_, err := svc.RequireSession(ctx, "not-a-jwt")
		assert.ErrorIs(t, err, ErrSessionRequired)
	})

	t.Run("foreign signature", func(t *testing.T) {
		forged, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{ID: "x"}).SignedString([]byte("other"))
		require.NoError(t, err)
		_, err = svc.RequireSession(ctx, forged)
		assert.ErrorIs(t, err, ErrSessionRequired)
	})

	t.Run("unknown session id", func(t *testing.T) {
		orphan, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{ID: "orphan"}).SignedString([]byte("test-secret"))
		require.NoError(t, err)
		_, err = svc.RequireSession(ctx, orphan)
		assert.ErrorIs(t, err, ErrSessionRequired)
	})

	t.Run("expired", func(t *testing.T) {
		svc.now = func() time.Time { return time.Now().Add(2 * time.Hour) }
		defer func() { svc.now = time.Now }()

		_, err := svc.RequireSession(ctx, token)
		assert.ErrorIs(t, err, ErrSessionRequired)
	})
}
