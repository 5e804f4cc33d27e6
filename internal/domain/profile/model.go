package profile

import (
	"errors"
	"strings"
	"time"

	"github.com/ahmedelhadi17776/worklog/internal/domain/authz"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

var (
	ErrProfileNotFound    = errors.New("profile not found")
	ErrEmailExists        = errors.New("email already exists")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrAccountInactive    = errors.New("account is inactive")
	ErrLastAdmin          = errors.New("cannot remove the last active admin")
	ErrInvalidInput       = errors.New("invalid input")
)

// Profile is the application-level identity of a user account
type Profile struct {
	ID           uuid.UUID    `json:"id" gorm:"type:uuid;primary_key"`
	FullName     string       `json:"full_name" gorm:"type:varchar(255);not null"`
	Email        string       `json:"email" gorm:"type:varchar(255);uniqueIndex:idx_profiles_email;not null"`
	Role         authz.Role   `json:"role" gorm:"type:varchar(32);not null;default:'employee';index:idx_profiles_role"`
	Status       authz.Status `json:"status" gorm:"type:varchar(16);not null;default:'active'"`
	AvatarURL    *string      `json:"avatar_url,omitempty" gorm:"type:text"`
	PasswordHash string       `json:"-" gorm:"not null"`
	LastLoginAt  *time.Time   `json:"last_login_at,omitempty"`
	CreatedAt    time.Time    `json:"created_at" gorm:"autoCreateTime"`
	UpdatedAt    time.Time    `json:"updated_at" gorm:"autoUpdateTime"`
}

func (Profile) TableName() string {
	return "profiles"
}

// Caller builds the session object for this profile
func (p *Profile) Caller() authz.Caller {
	return authz.Caller{
		ID:     p.ID,
		Email:  p.Email,
		Role:   p.Role,
		Status: p.Status,
	}
}

func (p *Profile) IsActive() bool {
	return p.Status == authz.StatusActive
}

func (p *Profile) Validate() error {
	if strings.TrimSpace(p.FullName) == "" {
		return errors.New("full name is required")
	}
	if !strings.Contains(p.Email, "@") {
		return errors.New("a valid email is required")
	}
	if !p.Role.IsValid() {
		return errors.New("invalid role")
	}
	if !p.Status.IsValid() {
		return errors.New("invalid status")
	}
	return nil
}

func (p *Profile) BeforeCreate(tx *gorm.DB) error {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	if p.Role == "" {
		p.Role = authz.RoleEmployee
	}
	if p.Status == "" {
		p.Status = authz.StatusActive
	}
	p.Email = normalizeEmail(p.Email)
	return p.Validate()
}

func (p *Profile) BeforeUpdate(tx *gorm.DB) error {
	return p.Validate()
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
