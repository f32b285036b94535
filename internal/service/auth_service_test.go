package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"github.com/KeHamTruyen/SoCo-DATN-sub001/internal/domain"
	"github.com/KeHamTruyen/SoCo-DATN-sub001/internal/repository"
	"github.com/KeHamTruyen/SoCo-DATN-sub001/internal/testutil"
	"github.com/KeHamTruyen/SoCo-DATN-sub001/pkg/logger"
	"github.com/KeHamTruyen/SoCo-DATN-sub001/pkg/token"
)

func newTestAuthService(t *testing.T) (*AuthService, *gorm.DB, *token.Manager) {
	t.Helper()
	db := testutil.NewDB(t)
	tokens := token.NewManager("test-secret", time.Hour)
	svc := newAuthService(repository.NewUserRepository(db, logger.NewNop()), tokens, logger.NewNop(), bcrypt.MinCost)
	return svc, db, tokens
}

func registerInput(email, username string) domain.RegisterInput {
	return domain.RegisterInput{
		Email:    email,
		Username: username,
		Password: "password123",
		FullName: "  Jane Doe ",
	}
}

func TestAuthService_Register(t *testing.T) {
	ctx := context.Background()
	svc, _, tokens := newTestAuthService(t)

	result, err := svc.Register(ctx, registerInput("Jane@Example.com", "jane"))
	require.NoError(t, err)
	assert.Equal(t, "jane@example.com", result.User.Email)
	assert.Equal(t, "Jane Doe", result.User.FullName)
	assert.Equal(t, domain.RoleBuyer, result.User.Role)
	assert.NotEqual(t, "password123", result.User.PasswordHash)

	claims, err := tokens.Parse(result.Token)
	require.NoError(t, err)
	assert.Equal(t, result.User.ID, claims.ID)
}

func TestAuthService_RegisterConflicts(t *testing.T) {
	ctx := context.Background()
	svc, _, _ := newTestAuthService(t)

	_, err := svc.Register(ctx, registerInput("taken@example.com", "taken"))
	require.NoError(t, err)

	_, err = svc.Register(ctx, registerInput("TAKEN@example.com", "fresh"))
	require.True(t, domain.IsKind(err, domain.KindConflict))
	assert.Contains(t, err.Error(), "Email already registered")

	_, err = svc.Register(ctx, registerInput("fresh@example.com", "taken"))
	require.True(t, domain.IsKind(err, domain.KindConflict))
	assert.Contains(t, err.Error(), "Username already taken")
}

func TestAuthService_RegisterRejectsAdmin(t *testing.T) {
	svc, _, _ := newTestAuthService(t)

	input := registerInput("boss@example.com", "boss")
	input.Role = domain.RoleAdmin
	_, err := svc.Register(context.Background(), input)
	assert.True(t, domain.IsKind(err, domain.KindValidation))

	input.Role = domain.RoleSeller
	result, err := svc.Register(context.Background(), input)
	require.NoError(t, err)
	assert.Equal(t, domain.RoleSeller, result.User.Role)
}

func TestAuthService_Login(t *testing.T) {
	ctx := context.Background()
	svc, db, _ := newTestAuthService(t)
	fixed := time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)
	svc.now = func() time.Time { return fixed }

	registered, err := svc.Register(ctx, registerInput("login@example.com", "login"))
	require.NoError(t, err)

	byUsername, err := svc.Login(ctx, "login", "password123")
	require.NoError(t, err)
	assert.NotEmpty(t, byUsername.Token)
	require.NotNil(t, byUsername.User.LastLoginAt)
	assert.True(t, fixed.Equal(*byUsername.User.LastLoginAt))

	_, err = svc.Login(ctx, "LOGIN@example.com", "password123")
	require.NoError(t, err)

	_, err = svc.Login(ctx, "login", "wrong")
	assert.ErrorIs(t, err, domain.ErrInvalidCredentials)

	_, err = svc.Login(ctx, "nobody", "password123")
	assert.ErrorIs(t, err, domain.ErrInvalidCredentials)

	require.NoError(t, db.Model(&domain.User{}).Where("id = ?", registered.User.ID).Update("is_active", false).Error)
	_, err = svc.Login(ctx, "login", "password123")
	assert.ErrorIs(t, err, domain.ErrAccountDeactivated)
}

func TestAuthService_UpdateProfile(t *testing.T) {
	ctx := context.Background()
	svc, _, _ := newTestAuthService(t)

	me, err := svc.Register(ctx, registerInput("me@example.com", "me"))
	require.NoError(t, err)
	_, err = svc.Register(ctx, registerInput("other@example.com", "other"))
	require.NoError(t, err)

	bio := "hello"
	updated, err := svc.UpdateProfile(ctx, me.User.ID, domain.ProfilePatch{Bio: &bio})
	require.NoError(t, err)
	assert.Equal(t, "hello", updated.Bio)

	clash := "other"
	_, err = svc.UpdateProfile(ctx, me.User.ID, domain.ProfilePatch{Username: &clash})
	assert.True(t, domain.IsKind(err, domain.KindConflict))

	blank := " "
	_, err = svc.UpdateProfile(ctx, me.User.ID, domain.ProfilePatch{FullName: &blank})
	assert.True(t, domain.IsKind(err, domain.KindValidation))

	_, err = svc.GetProfile(ctx, "missing")
	assert.ErrorIs(t, err, domain.ErrUserNotFound)
}

func TestAuthService_ChangePassword(t *testing.T) {
	ctx := context.Background()
	svc, _, _ := newTestAuthService(t)

	me, err := svc.Register(ctx, registerInput("pw@example.com", "pw"))
	require.NoError(t, err)

	err = svc.ChangePassword(ctx, me.User.ID, "wrong", "newpassword")
	assert.True(t, domain.IsKind(err, domain.KindAuth))

	err = svc.ChangePassword(ctx, me.User.ID, "password123", "password123")
	assert.True(t, domain.IsKind(err, domain.KindValidation))

	require.NoError(t, svc.ChangePassword(ctx, me.User.ID, "password123", "newpassword"))

	_, err = svc.Login(ctx, "pw", "password123")
	assert.ErrorIs(t, err, domain.ErrInvalidCredentials)
	_, err = svc.Login(ctx, "pw", "newpassword")
	assert.NoError(t, err)
}
