package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/KeHamTruyen/SoCo-DATN-sub001/internal/domain"
	"github.com/KeHamTruyen/SoCo-DATN-sub001/pkg/logger"

	"gorm.io/gorm"
)

type UserRepository struct {
	db     *gorm.DB
	logger logger.Logger
}

func NewUserRepository(db *gorm.DB, logger logger.Logger) domain.UserRepository {
	return &UserRepository{
		db:     db,
		logger: logger,
	}
}

func (r *UserRepository) FindByID(ctx context.Context, id string) (*domain.User, error) {
	return r.first(ctx, "id = ?", id)
}

// FindByEmailOrUsername returns any user holding either value, used for the
// single disjunctive uniqueness check at registration.
func (r *UserRepository) FindByEmailOrUsername(ctx context.Context, email, username string) (*domain.User, error) {
	return r.first(ctx, "email = ? OR username = ?", strings.ToLower(email), username)
}

func (r *UserRepository) FindByIdentifier(ctx context.Context, identifier string) (*domain.User, error) {
	return r.first(ctx, "email = ? OR username = ?", strings.ToLower(identifier), identifier)
}

func (r *UserRepository) ExistsOther(ctx context.Context, excludeID, email, username string) (*domain.User, error) {
	q := r.db.WithContext(ctx).Where("id <> ?", excludeID)
	switch {
	case email != "" && username != "":
		q = q.Where("email = ? OR username = ?", strings.ToLower(email), username)
	case email != "":
		q = q.Where("email = ?", strings.ToLower(email))
	case username != "":
		q = q.Where("username = ?", username)
	default:
		return nil, nil
	}

	var user domain.User
	if err := q.First(&user).Error; err != nil {
		if notFound(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("user lookup failed: %w", err)
	}
	return &user, nil
}

func (r *UserRepository) Create(ctx context.Context, user *domain.User) error {
	user.Email = strings.ToLower(user.Email)
	if err := r.db.WithContext(ctx).Create(user).Error; err != nil {
		err = translate(err)
		if err != ErrDuplicate {
			r.logger.Error("Failed to create user", map[string]interface{}{"username": user.Username, "error": err.Error()})
		}
		return fmt.Errorf("create user: %w", err)
	}
	return nil
}

func (r *UserRepository) Update(ctx context.Context, id string, fields map[string]interface{}) error {
	if len(fields) == 0 {
		return nil
	}
	if email, ok := fields["email"].(string); ok {
		fields["email"] = strings.ToLower(email)
	}
	err := r.db.WithContext(ctx).Model(&domain.User{}).Where("id = ?", id).Updates(fields).Error
	if err != nil {
		err = translate(err)
		if err != ErrDuplicate {
			r.logger.Error("Failed to update user", map[string]interface{}{"id": id, "error": err.Error()})
		}
		return fmt.Errorf("update user: %w", err)
	}
	return nil
}

func (r *UserRepository) TouchLastLogin(ctx context.Context, id string, at time.Time) error {
	err := r.db.WithContext(ctx).Model(&domain.User{}).Where("id = ?", id).
		UpdateColumn("last_login_at", at).Error
	if err != nil {
		r.logger.Warn("Failed to record last login", map[string]interface{}{"id": id, "error": err.Error()})
		return fmt.Errorf("touch last login: %w", err)
	}
	return nil
}

func (r *UserRepository) first(ctx context.Context, query string, args ...interface{}) (*domain.User, error) {
	var user domain.User
	if err := r.db.WithContext(ctx).Where(query, args...).First(&user).Error; err != nil {
		if notFound(err) {
			return nil, nil
		}
		r.logger.Error("User lookup failed", map[string]interface{}{"error": err.Error()})
		return nil, fmt.Errorf("user lookup failed: %w", err)
	}
	return &user, nil
}
