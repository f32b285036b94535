package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/KeHamTruyen/SoCo-DATN-sub001/internal/domain"
	"github.com/KeHamTruyen/SoCo-DATN-sub001/internal/repository"
	"github.com/KeHamTruyen/SoCo-DATN-sub001/pkg/logger"
	"github.com/KeHamTruyen/SoCo-DATN-sub001/pkg/metrics"
	"github.com/KeHamTruyen/SoCo-DATN-sub001/pkg/token"

	"golang.org/x/crypto/bcrypt"
)

const (
	msgEmailTaken    = "Email already registered"
	msgUsernameTaken = "Username already taken"
)

type AuthService struct {
	users      domain.UserRepository
	tokens     *token.Manager
	logger     logger.Logger
	bcryptCost int
	now        func() time.Time
}

func NewAuthService(users domain.UserRepository, tokens *token.Manager, logger logger.Logger) domain.AuthService {
	return newAuthService(users, tokens, logger, bcrypt.DefaultCost)
}

func newAuthService(users domain.UserRepository, tokens *token.Manager, logger logger.Logger, cost int) *AuthService {
	return &AuthService{
		users:      users,
		tokens:     tokens,
		logger:     logger,
		bcryptCost: cost,
		now:        time.Now,
	}
}

func (s *AuthService) Register(ctx context.Context, input domain.RegisterInput) (result *domain.AuthResult, err error) {
	defer func() { metrics.RecordAuthEvent("register", err) }()

	input.Email = strings.ToLower(strings.TrimSpace(input.Email))
	input.Username = strings.TrimSpace(input.Username)
	input.FullName = strings.TrimSpace(input.FullName)

	role := input.Role
	if role == "" {
		role = domain.RoleBuyer
	}
	if !role.Valid() {
		return nil, domain.NewValidationError("Invalid role", domain.FieldError{Field: "role", Message: "must be BUYER or SELLER"})
	}
	if role == domain.RoleAdmin {
		return nil, domain.NewValidationError("Role ADMIN cannot be self-assigned", domain.FieldError{Field: "role", Message: "must be BUYER or SELLER"})
	}

	existing, err := s.users.FindByEmailOrUsername(ctx, input.Email, input.Username)
	if err != nil {
		return nil, fmt.Errorf("registration lookup failed: %w", err)
	}
	if existing != nil {
		return nil, conflictFor(existing, input.Email)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(input.Password), s.bcryptCost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	user := &domain.User{
		Email:        input.Email,
		Username:     input.Username,
		PasswordHash: string(hash),
		FullName:     input.FullName,
		Phone:        strings.TrimSpace(input.Phone),
		Role:         role,
		IsActive:     true,
	}
	if err := s.users.Create(ctx, user); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			// lost a race with a concurrent registration
			if other, lookupErr := s.users.FindByEmailOrUsername(ctx, input.Email, input.Username); lookupErr == nil && other != nil {
				return nil, conflictFor(other, input.Email)
			}
			return nil, domain.NewConflictError(msgEmailTaken)
		}
		return nil, err
	}

	signed, err := s.tokens.Issue(user.ID, user.Email, user.Username, string(user.Role))
	if err != nil {
		return nil, err
	}

	s.logger.InfoContext(ctx, "User registered", map[string]interface{}{"user_id": user.ID, "role": user.Role})
	return &domain.AuthResult{User: user, Token: signed}, nil
}

func conflictFor(existing *domain.User, email string) error {
	if existing.Email == email {
		return domain.NewConflictError(msgEmailTaken)
	}
	return domain.NewConflictError(msgUsernameTaken)
}

func (s *AuthService) Login(ctx context.Context, identifier, password string) (result *domain.AuthResult, err error) {
	defer func() { metrics.RecordAuthEvent("login", err) }()

	user, err := s.users.FindByIdentifier(ctx, strings.TrimSpace(identifier))
	if err != nil {
		return nil, fmt.Errorf("login lookup failed: %w", err)
	}
	if user == nil {
		return nil, domain.ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return nil, domain.ErrInvalidCredentials
	}
	if !user.IsActive {
		return nil, domain.ErrAccountDeactivated
	}

	now := s.now().UTC()
	if err := s.users.TouchLastLogin(ctx, user.ID, now); err != nil {
		return nil, err
	}
	user.LastLoginAt = &now

	signed, err := s.tokens.Issue(user.ID, user.Email, user.Username, string(user.Role))
	if err != nil {
		return nil, err
	}
	return &domain.AuthResult{User: user, Token: signed}, nil
}

func (s *AuthService) GetProfile(ctx context.Context, userID string) (*domain.User, error) {
	user, err := s.users.FindByID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("profile lookup failed: %w", err)
	}
	if user == nil {
		return nil, domain.ErrUserNotFound
	}
	return user, nil
}

func (s *AuthService) UpdateProfile(ctx context.Context, userID string, patch domain.ProfilePatch) (*domain.User, error) {
	user, err := s.GetProfile(ctx, userID)
	if err != nil {
		return nil, err
	}
	if patch.Empty() {
		return user, nil
	}

	var email, username string
	if patch.Email != nil {
		email = strings.ToLower(strings.TrimSpace(*patch.Email))
		if email == "" {
			return nil, domain.NewValidationError("Email cannot be empty", domain.FieldError{Field: "email", Message: "required"})
		}
	}
	if patch.Username != nil {
		username = strings.TrimSpace(*patch.Username)
		if username == "" {
			return nil, domain.NewValidationError("Username cannot be empty", domain.FieldError{Field: "username", Message: "required"})
		}
	}
	if patch.FullName != nil && strings.TrimSpace(*patch.FullName) == "" {
		return nil, domain.NewValidationError("Full name cannot be empty", domain.FieldError{Field: "fullName", Message: "required"})
	}

	if email != "" || username != "" {
		other, err := s.users.ExistsOther(ctx, user.ID, email, username)
		if err != nil {
			return nil, err
		}
		if other != nil {
			return nil, conflictFor(other, email)
		}
	}

	fields := map[string]interface{}{}
	if email != "" {
		user.Email = email
		fields["email"] = email
	}
	if username != "" {
		user.Username = username
		fields["username"] = username
	}
	if patch.FullName != nil {
		user.FullName = strings.TrimSpace(*patch.FullName)
		fields["full_name"] = user.FullName
	}
	applyClearable(fields, "phone", &user.Phone, patch.Phone)
	applyClearable(fields, "avatar_url", &user.AvatarURL, patch.AvatarURL)
	applyClearable(fields, "bio", &user.Bio, patch.Bio)
	applyClearable(fields, "address", &user.Address, patch.Address)

	if err := s.users.Update(ctx, user.ID, fields); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, domain.NewConflictError("Email or username already in use")
		}
		return nil, err
	}
	return user, nil
}

// applyClearable sets a patched field; an empty value clears it.
func applyClearable(fields map[string]interface{}, column string, dst *string, v *string) {
	if v != nil {
		*dst = strings.TrimSpace(*v)
		fields[column] = *dst
	}
}

func (s *AuthService) ChangePassword(ctx context.Context, userID, current, next string) error {
	user, err := s.GetProfile(ctx, userID)
	if err != nil {
		return err
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(current)); err != nil {
		return domain.NewAuthError("Current password is incorrect")
	}
	if current == next {
		return domain.NewValidationError("New password must be different from the current password",
			domain.FieldError{Field: "newPassword", Message: "must differ from current password"})
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(next), s.bcryptCost)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}
	if err := s.users.Update(ctx, user.ID, map[string]interface{}{"password_hash": string(hash)}); err != nil {
		return err
	}

	s.logger.InfoContext(ctx, "Password changed", map[string]interface{}{"user_id": user.ID})
	return nil
}
