package dto

import (
	"time"

	"github.com/integrity-watch/report-service/internal/domain"
)

// LocationRequest is a user's city and state.
type LocationRequest struct {
	City  string `json:"city" validate:"max=100"`
	State string `json:"state" validate:"max=100"`
}

// ToDomain converts the payload.
func (l LocationRequest) ToDomain() domain.Location {
	return domain.Location{City: l.City, State: l.State}
}

// RegisterRequest payload for citizen sign-up.
type RegisterRequest struct {
	Name     string          `json:"name" validate:"required,notblank,max=100"`
	Email    string          `json:"email" validate:"required,email"`
	Password string          `json:"password" validate:"required,min=8,max=128"`
	Phone    string          `json:"phone" validate:"omitempty,max=30"`
	Location LocationRequest `json:"location"`
}

// LoginRequest payload for login.
type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// VerifyEmailRequest carries the emailed verification token.
type VerifyEmailRequest struct {
	Token string `json:"token" validate:"required"`
}

// ForgotPasswordRequest starts a password reset.
type ForgotPasswordRequest struct {
	Email string `json:"email" validate:"required,email"`
}

// ResetPasswordRequest completes a password reset.
type ResetPasswordRequest struct {
	Token    string `json:"token" validate:"required"`
	Password string `json:"password" validate:"required,min=8,max=128"`
}

// ChangePasswordRequest payload for authenticated password change.
type ChangePasswordRequest struct {
	CurrentPassword string `json:"currentPassword" validate:"required"`
	NewPassword     string `json:"newPassword" validate:"required,min=8,max=128"`
}

// ProfileRequest edits the caller's profile; omitted fields stay unchanged.
type ProfileRequest struct {
	Name     *string          `json:"name" validate:"omitempty,notblank,max=100"`
	Phone    *string          `json:"phone" validate:"omitempty,max=30"`
	Location *LocationRequest `json:"location"`
}

// AuthResponse standard response for auth endpoints.
type AuthResponse struct {
	Token     string       `json:"token"`
	ExpiresAt time.Time    `json:"expiresAt"`
	User      *domain.User `json:"user"`
}

// CreateUserRequest lets an administrator provision any account.
type CreateUserRequest struct {
	Name        string          `json:"name" validate:"required,notblank,max=100"`
	Email       string          `json:"email" validate:"required,email"`
	Password    string          `json:"password" validate:"required,min=8,max=128"`
	Phone       string          `json:"phone" validate:"omitempty,max=30"`
	Role        string          `json:"role" validate:"required,role"`
	BadgeNumber string          `json:"badgeNumber" validate:"omitempty,max=50"`
	Location    LocationRequest `json:"location"`
}

// UpdateRoleRequest changes an account's role.
type UpdateRoleRequest struct {
	Role string `json:"role" validate:"required,role"`
}

// UpdateUserStatusRequest enables or disables an account.
type UpdateUserStatusRequest struct {
	IsActive *bool `json:"isActive" validate:"required"`
}
