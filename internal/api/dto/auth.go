package dto

import (
	"time"

	"github.com/ahmedelhadi17776/worklog/internal/domain/authz"
	"github.com/ahmedelhadi17776/worklog/internal/domain/profile"
)

type RegisterRequest struct {
	FullName  string  `json:"full_name" validate:"required,not_empty,max=255"`
	Email     string  `json:"email" validate:"required,email"`
	Password  string  `json:"password" validate:"required,min=8,max=72"`
	AvatarURL *string `json:"avatar_url" validate:"omitempty,url"`
}

func (r RegisterRequest) Input() profile.RegisterInput {
	return profile.RegisterInput{
		FullName:  r.FullName,
		Email:     r.Email,
		Password:  r.Password,
		AvatarURL: r.AvatarURL,
	}
}

type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

type ChangePasswordRequest struct {
	CurrentPassword string `json:"current_password" validate:"required"`
	NewPassword     string `json:"new_password" validate:"required,min=8,max=72"`
}

type AuthResponse struct {
	Token     string           `json:"token"`
	ExpiresAt time.Time        `json:"expires_at"`
	Profile   *profile.Profile `json:"profile"`
}

type UpdateProfileRequest struct {
	FullName  *string       `json:"full_name" validate:"omitempty,not_empty,max=255"`
	Email     *string       `json:"email" validate:"omitempty,email"`
	AvatarURL *string       `json:"avatar_url" validate:"omitempty,url"`
	Role      *authz.Role   `json:"role" validate:"omitempty,role"`
	Status    *authz.Status `json:"status" validate:"omitempty,account_status"`
}

func (r UpdateProfileRequest) Input() profile.UpdateInput {
	return profile.UpdateInput{
		FullName:  r.FullName,
		Email:     r.Email,
		AvatarURL: r.AvatarURL,
		Role:      r.Role,
		Status:    r.Status,
	}
}

// NavigationResponse lists the views the caller may open
type NavigationResponse struct {
	Role  authz.Role   `json:"role"`
	Views []authz.View `json:"views"`
}
