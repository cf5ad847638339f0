package service

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"readinglist/backend/internal/clock"
	"readinglist/backend/internal/db"
	"readinglist/backend/internal/repository"
	"readinglist/backend/migrations"
)

func newAuthService(t *testing.T, clk clock.Clock) *AuthService {
	t.Helper()
	database, err := db.OpenSQLite(filepath.Join(t.TempDir(), "auth.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = database.Close() })
	require.NoError(t, db.RunMigrations(database, migrations.Files))

	svc := NewAuthService(repository.NewUserRepository(database), "test-secret", time.Hour)
	svc.clock = clk
	return svc
}

func TestRegisterAndLogin(t *testing.T) {
	ctx := context.Background()
	svc := newAuthService(t, clock.NewFake(time.Now().UTC()))

	registered, apiErr := svc.Register(ctx, " Reader@Example.com ", "secret1")
	require.Nil(t, apiErr)
	assert.Equal(t, "reader@example.com", registered.User.Email)
	assert.Empty(t, registered.User.PasswordHash)

	userID, apiErr := svc.ParseToken(registered.Token)
	require.Nil(t, apiErr)
	assert.Equal(t, registered.User.ID, userID)

	_, apiErr = svc.Register(ctx, "reader@example.com", "secret1")
	require.NotNil(t, apiErr)
	assert.Equal(t, "email_exists", apiErr.Code)

	loggedIn, apiErr := svc.Login(ctx, "READER@example.com", "secret1")
	require.Nil(t, apiErr)
	assert.Equal(t, registered.User.ID, loggedIn.User.ID)

	_, apiErr = svc.Login(ctx, "reader@example.com", "wrong")
	require.NotNil(t, apiErr)
	assert.Equal(t, "unauthorized", apiErr.Code)
}

func TestRegisterRejectsBadInput(t *testing.T) {
	svc := newAuthService(t, clock.NewFake(time.Now().UTC()))

	_, apiErr := svc.Register(context.Background(), "no-at-sign", "secret1")
	require.NotNil(t, apiErr)
	assert.Equal(t, "invalid_email", apiErr.Code)

	_, apiErr = svc.Register(context.Background(), "a@b.c", "123")
	require.NotNil(t, apiErr)
	assert.Equal(t, "invalid_password", apiErr.Code)
}

func TestTokenExpires(t *testing.T) {
	clk := clock.NewFake(time.Now().UTC())
	svc := newAuthService(t, clk)

	result, apiErr := svc.Register(context.Background(), "ttl@example.com", "secret1")
	require.Nil(t, apiErr)

	clk.Advance(2 * time.Hour)
	_, apiErr = svc.ParseToken(result.Token)
	require.NotNil(t, apiErr)
	assert.Equal(t, "unauthorized", apiErr.Code)
}
