// Package testutil builds migrated in-memory databases and seed rows for
// tests.
package testutil

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/KeHamTruyen/SoCo-DATN-sub001/internal/config"
	"github.com/KeHamTruyen/SoCo-DATN-sub001/internal/database"
	"github.com/KeHamTruyen/SoCo-DATN-sub001/internal/domain"
	pkgdb "github.com/KeHamTruyen/SoCo-DATN-sub001/pkg/database"
	"github.com/KeHamTruyen/SoCo-DATN-sub001/pkg/logger"
)

// NewDB returns a fresh SQLite in-memory database with every migration
// applied. It is closed when the test ends.
func NewDB(t testing.TB) *gorm.DB {
	t.Helper()

	db, err := pkgdb.Open(config.DatabaseConfig{Driver: "sqlite", Path: ":memory:"}, logger.NewNop())
	require.NoError(t, err)
	require.NoError(t, database.NewMigrationService(db, logger.NewNop()).RunMigrations(context.Background()))

	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})
	return db
}

// CreateUser inserts an active user. The password hash is not a valid bcrypt
// hash; use the auth service when a login is needed.
func CreateUser(t testing.TB, db *gorm.DB, username string, role domain.Role) *domain.User {
	t.Helper()

	user := &domain.User{
		Email:        username + "@example.com",
		Username:     username,
		PasswordHash: "x",
		FullName:     "User " + username,
		Role:         role,
		IsActive:     true,
	}
	require.NoError(t, db.Create(user).Error)
	return user
}

func CreatePost(t testing.TB, db *gorm.DB, authorID, content string) *domain.Post {
	t.Helper()

	post := &domain.Post{
		AuthorID:   authorID,
		Content:    content,
		MediaURLs:  domain.StringArray{},
		MediaType:  domain.MediaNone,
		Status:     domain.PostPublished,
		Visibility: domain.VisibilityPublic,
	}
	require.NoError(t, db.Create(post).Error)
	return post
}

func CreateCategory(t testing.TB, db *gorm.DB, name, slug string, parentID *string) *domain.Category {
	t.Helper()

	category := &domain.Category{
		Name:     name,
		Slug:     slug,
		ParentID: parentID,
		IsActive: true,
	}
	require.NoError(t, db.Omit("Children").Create(category).Error)
	return category
}
