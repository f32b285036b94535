package domain

import (
	"context"
	"time"
)

type Role string

const (
	RoleBuyer  Role = "BUYER"
	RoleSeller Role = "SELLER"
	RoleAdmin  Role = "ADMIN"
)

func (r Role) Valid() bool {
	switch r {
	case RoleBuyer, RoleSeller, RoleAdmin:
		return true
	}
	return false
}

type User struct {
	Base
	Email        string     `json:"email" gorm:"type:varchar(255);uniqueIndex;not null"`
	Username     string     `json:"username" gorm:"type:varchar(50);uniqueIndex;not null"`
	PasswordHash string     `json:"-" gorm:"not null"`
	FullName     string     `json:"fullName" gorm:"type:varchar(100);not null"`
	Phone        string     `json:"phone" gorm:"type:varchar(20)"`
	Role         Role       `json:"role" gorm:"type:varchar(20);not null;default:BUYER"`
	AvatarURL    string     `json:"avatarUrl" gorm:"type:text"`
	Bio          string     `json:"bio" gorm:"type:text"`
	Address      string     `json:"address" gorm:"type:text"`
	IsActive     bool       `json:"isActive" gorm:"not null;default:true"`
	IsVerified   bool       `json:"isVerified" gorm:"not null;default:false"`
	LastLoginAt  *time.Time `json:"lastLoginAt,omitempty"`
}

// UserSummary is the public projection embedded in posts, comments and
// products.
type UserSummary struct {
	ID        string `json:"id"`
	Username  string `json:"username"`
	FullName  string `json:"fullName"`
	AvatarURL string `json:"avatarUrl"`
}

// ProfilePatch carries optional profile changes. A nil field means "leave
// unchanged"; a pointer to "" clears the clearable fields (Phone, AvatarURL,
// Bio, Address). Email, Username and FullName may not be cleared.
type ProfilePatch struct {
	Email     *string
	Username  *string
	FullName  *string
	Phone     *string
	AvatarURL *string
	Bio       *string
	Address   *string
}

func (p ProfilePatch) Empty() bool {
	return p.Email == nil && p.Username == nil && p.FullName == nil && p.Phone == nil &&
		p.AvatarURL == nil && p.Bio == nil && p.Address == nil
}

type RegisterInput struct {
	Email    string
	Username string
	Password string
	FullName string
	Phone    string
	Role     Role
}

type AuthResult struct {
	User  *User  `json:"user"`
	Token string `json:"token"`
}

type UserRepository interface {
	FindByID(ctx context.Context, id string) (*User, error)
	FindByEmailOrUsername(ctx context.Context, email, username string) (*User, error)
	FindByIdentifier(ctx context.Context, identifier string) (*User, error)
	ExistsOther(ctx context.Context, excludeID, email, username string) (*User, error)
	Create(ctx context.Context, user *User) error
	// Update writes only the given columns; a changed email is stored
	// lower-cased.
	Update(ctx context.Context, id string, fields map[string]interface{}) error
	TouchLastLogin(ctx context.Context, id string, at time.Time) error
}

type AuthService interface {
	Register(ctx context.Context, input RegisterInput) (*AuthResult, error)
	Login(ctx context.Context, identifier, password string) (*AuthResult, error)
	GetProfile(ctx context.Context, userID string) (*User, error)
	UpdateProfile(ctx context.Context, userID string, patch ProfilePatch) (*User, error)
	ChangePassword(ctx context.Context, userID, current, next string) error
}
