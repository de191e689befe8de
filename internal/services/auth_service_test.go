package services

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/edumart/enrollment-service/internal/auth"
	"github.com/edumart/enrollment-service/internal/models"
	"github.com/edumart/enrollment-service/internal/validator"
)

func newAuthFixture(t *testing.T) (*mockRepository, *auth.TokenManager, AuthService) {
	t.Helper()

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	repo := newMockRepository()
	tokens := auth.NewTokenManager("test-secret", time.Hour)
	return repo, tokens, NewAuthService(repo, tokens, logger, validator.New())
}

func TestRegisterAndLogin(t *testing.T) {
	repo, tokens, service := newAuthFixture(t)
	ctx := context.Background()

	registered, err := service.Register(ctx, &SignupProfileRequest{
		FullName: "Ada Learner",
		Email:    "ada@example.com",
		Password: "s3cret!",
	})
	require.NoError(t, err)
	assert.Equal(t, models.RoleStudent, registered.User.Role)
	assert.NotEqual(t, "s3cret!", registered.User.PasswordHash)

	claims, err := tokens.Parse(registered.Token)
	require.NoError(t, err)
	assert.Equal(t, registered.User.ID, claims.Subject)
	assert.Equal(t, models.RoleStudent, claims.Role)

	loggedIn, err := service.Login(ctx, &LoginRequest{
		Email:    "ada@example.com",
		Password: "s3cret!",
	})
	require.NoError(t, err)
	assert.Equal(t, registered.User.ID, loggedIn.User.ID)

	// The stored hash verifies the original password.
	stored, err := repo.User().GetByEmail(ctx, "ada@example.com")
	require.NoError(t, err)
	assert.True(t, auth.CheckPassword("s3cret!", stored.PasswordHash))
}

func TestRegister_EmailTaken(t *testing.T) {
	_, _, service := newAuthFixture(t)
	ctx := context.Background()

	profile := &SignupProfileRequest{
		FullName: "Ada Learner",
		Email:    "ada@example.com",
		Password: "s3cret!",
	}
	_, err := service.Register(ctx, profile)
	require.NoError(t, err)

	_, err = service.Register(ctx, profile)
	assert.ErrorIs(t, err, ErrEmailTaken)
}

func TestRegister_WeakPassword(t *testing.T) {
	_, _, service := newAuthFixture(t)

	_, err := service.Register(context.Background(), &SignupProfileRequest{
		FullName: "Ada Learner",
		Email:    "ada@example.com",
		Password: "abc",
	})
	assert.ErrorIs(t, err, ErrWeakPassword)
}

func TestLogin_BadCredentials(t *testing.T) {
	_, _, service := newAuthFixture(t)
	ctx := context.Background()

	_, err := service.Register(ctx, &SignupProfileRequest{
		FullName: "Ada Learner",
		Email:    "ada@example.com",
		Password: "s3cret!",
	})
	require.NoError(t, err)

	_, err = service.Login(ctx, &LoginRequest{Email: "ada@example.com", Password: "wrong!!"})
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	// Unknown email maps to the same sentinel.
	_, err = service.Login(ctx, &LoginRequest{Email: "ghost@example.com", Password: "s3cret!"})
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}
