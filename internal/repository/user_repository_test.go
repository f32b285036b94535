package repository_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/KeHamTruyen/SoCo-DATN-sub001/internal/domain"
	"github.com/KeHamTruyen/SoCo-DATN-sub001/internal/repository"
	"github.com/KeHamTruyen/SoCo-DATN-sub001/internal/testutil"
	"github.com/KeHamTruyen/SoCo-DATN-sub001/pkg/logger"
)

func newUser(email, username string) *domain.User {
	return &domain.User{
		Email:        email,
		Username:     username,
		PasswordHash: "hash",
		FullName:     "Test User",
		Role:         domain.RoleBuyer,
		IsActive:     true,
	}
}

func TestUserRepository_CreateAndLookup(t *testing.T) {
	ctx := context.Background()
	db := testutil.NewDB(t)
	repo := repository.NewUserRepository(db, logger.NewNop())

	user := newUser("Jane@Example.com", "jane")
	require.NoError(t, repo.Create(ctx, user))
	assert.Equal(t, "jane@example.com", user.Email)

	byEmail, err := repo.FindByIdentifier(ctx, "JANE@example.com")
	require.NoError(t, err)
	require.NotNil(t, byEmail)
	assert.Equal(t, user.ID, byEmail.ID)

	byName, err := repo.FindByIdentifier(ctx, "jane")
	require.NoError(t, err)
	require.NotNil(t, byName)

	missing, err := repo.FindByID(ctx, "nope")
	require.NoError(t, err)
	assert.Nil(t, missing)
}

func TestUserRepository_DuplicateEmail(t *testing.T) {
	ctx := context.Background()
	db := testutil.NewDB(t)
	repo := repository.NewUserRepository(db, logger.NewNop())

	require.NoError(t, repo.Create(ctx, newUser("dup@example.com", "first")))
	err := repo.Create(ctx, newUser("DUP@example.com", "second"))
	assert.ErrorIs(t, err, repository.ErrDuplicate)
}

func TestUserRepository_ExistsOther(t *testing.T) {
	ctx := context.Background()
	db := testutil.NewDB(t)
	repo := repository.NewUserRepository(db, logger.NewNop())

	me := newUser("me@example.com", "me")
	other := newUser("other@example.com", "other")
	require.NoError(t, repo.Create(ctx, me))
	require.NoError(t, repo.Create(ctx, other))

	clash, err := repo.ExistsOther(ctx, me.ID, "", "other")
	require.NoError(t, err)
	require.NotNil(t, clash)
	assert.Equal(t, other.ID, clash.ID)

	self, err := repo.ExistsOther(ctx, me.ID, "me@example.com", "")
	require.NoError(t, err)
	assert.Nil(t, self)

	none, err := repo.ExistsOther(ctx, me.ID, "", "")
	require.NoError(t, err)
	assert.Nil(t, none)
}

func TestUserRepository_TouchLastLogin(t *testing.T) {
	ctx := context.Background()
	db := testutil.NewDB(t)
	repo := repository.NewUserRepository(db, logger.NewNop())

	user := newUser("login@example.com", "login")
	require.NoError(t, repo.Create(ctx, user))

	at := time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)
	require.NoError(t, repo.TouchLastLogin(ctx, user.ID, at))

	stored, err := repo.FindByID(ctx, user.ID)
	require.NoError(t, err)
	require.NotNil(t, stored.LastLoginAt)
	assert.True(t, at.Equal(*stored.LastLoginAt))
}

func TestUserRepository_UpdateWritesOnlyGivenColumns(t *testing.T) {
	ctx := context.Background()
	db := testutil.NewDB(t)
	repo := repository.NewUserRepository(db, logger.NewNop())

	user := newUser("partial@example.com", "partial")
	user.Bio = "old bio"
	user.Phone = "0912345678"
	require.NoError(t, repo.Create(ctx, user))

	// a stale copy loaded before the login was recorded
	stale := *user
	at := time.Date(2024, 5, 6, 7, 8, 9, 0, time.UTC)
	require.NoError(t, repo.TouchLastLogin(ctx, user.ID, at))

	require.NoError(t, repo.Update(ctx, stale.ID, map[string]interface{}{"bio": "", "email": "Partial.New@Example.com"}))

	stored, err := repo.FindByID(ctx, user.ID)
	require.NoError(t, err)
	assert.Empty(t, stored.Bio)
	assert.Equal(t, "partial.new@example.com", stored.Email)
	assert.Equal(t, "0912345678", stored.Phone)
	require.NotNil(t, stored.LastLoginAt)
	assert.True(t, at.Equal(*stored.LastLoginAt))

	other := newUser("taken@example.com", "taken")
	require.NoError(t, repo.Create(ctx, other))
	err = repo.Update(ctx, user.ID, map[string]interface{}{"username": "taken"})
	assert.ErrorIs(t, err, repository.ErrDuplicate)
}
