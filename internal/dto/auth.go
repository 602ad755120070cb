package dto

import (
	"regexp"
	"unicode"
)

// RegisterRequest represents registration request
type RegisterRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required,min=8,max=72"`
	FullName string `json:"full_name" binding:"required,min=2"`
}

// ValidatePassword validates password strength requirements:
// - At least 8 characters
// - At least one uppercase letter
// - At least one lowercase letter
// - At least one digit
// - At least one special character
func (r *RegisterRequest) ValidatePassword() (bool, string) {
	return validatePassword(r.Password)
}

// ValidateEmail validates email format more strictly
func (r *RegisterRequest) ValidateEmail() (bool, string) {
	// RFC 5322 compliant email regex (simplified)
	emailRegex := regexp.MustCompile(`^[a-zA-Z0-9._%+\-]+@[a-zA-Z0-9.\-]+\.[a-zA-Z]{2,}$`)
	if !emailRegex.MatchString(r.Email) {
		return false, "Invalid email format"
	}
	return true, ""
}

func validatePassword(password string) (bool, string) {
	if len(password) < 8 {
		return false, "Password must be at least 8 characters"
	}

	if len(password) > 72 {
		return false, "Password must not exceed 72 characters"
	}

	var hasUpper, hasLower, hasDigit, hasSpecial bool
	for _, c := range password {
		switch {
		case unicode.IsUpper(c):
			hasUpper = true
		case unicode.IsLower(c):
			hasLower = true
		case unicode.IsDigit(c):
			hasDigit = true
		case unicode.IsPunct(c) || unicode.IsSymbol(c):
			hasSpecial = true
		}
	}

	if !hasUpper {
		return false, "Password must contain at least one uppercase letter"
	}
	if !hasLower {
		return false, "Password must contain at least one lowercase letter"
	}
	if !hasDigit {
		return false, "Password must contain at least one digit"
	}
	if !hasSpecial {
		return false, "Password must contain at least one special character"
	}

	return true, ""
}

// LoginRequest represents login request
type LoginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

// RefreshTokenRequest represents refresh token request
type RefreshTokenRequest struct {
	RefreshToken string `json:"refresh_token" binding:"required"`
}

// PasswordResetRequest represents a request to start the email reset flow
type PasswordResetRequest struct {
	Email string `json:"email" binding:"required,email"`
}

// UpdatePasswordRequest represents a password change for the active session
type UpdatePasswordRequest struct {
	NewPassword string `json:"new_password" binding:"required,min=8,max=72"`
}

// ValidatePassword validates the new password against the strength rules
func (r *UpdatePasswordRequest) ValidatePassword() (bool, string) {
	return validatePassword(r.NewPassword)
}

// ConfirmPasswordResetRequest redeems a reset token with a new password
type ConfirmPasswordResetRequest struct {
	Token       string `json:"token" binding:"required"`
	NewPassword string `json:"new_password" binding:"required,min=8,max=72"`
}

// ValidatePassword validates the new password against the strength rules
func (r *ConfirmPasswordResetRequest) ValidatePassword() (bool, string) {
	return validatePassword(r.NewPassword)
}

// UpdateProfileRequest represents a display profile update
type UpdateProfileRequest struct {
	FullName  string `json:"full_name"`
	AvatarURL string `json:"avatar_url"`
}

// Validate checks the profile update fields
func (r *UpdateProfileRequest) Validate() (bool, string) {
	if r.FullName != "" && len(r.FullName) < 2 {
		return false, "Full name must be at least 2 characters"
	}
	if len(r.FullName) > 100 {
		return false, "Full name must not exceed 100 characters"
	}
	if len(r.AvatarURL) > 2048 {
		return false, "Avatar URL must not exceed 2048 characters"
	}
	return true, ""
}

// AuthResponse represents authentication response
type AuthResponse struct {
	AccessToken  string       `json:"access_token"`
	RefreshToken string       `json:"refresh_token"`
	ExpiresIn    int64        `json:"expires_in"`
	User         UserResponse `json:"user"`
}

// MeResponse represents the caller's identity with its display profile
type MeResponse struct {
	User    UserResponse     `json:"user"`
	Profile *ProfileResponse `json:"profile,omitempty"`
}

// ProfileResponse represents display profile data in response
type ProfileResponse struct {
	FullName  string `json:"full_name"`
	AvatarURL string `json:"avatar_url,omitempty"`
}

// UserResponse represents user data in response
type UserResponse struct {
	ID        string `json:"id"`
	Email     string `json:"email"`
	FullName  string `json:"full_name"`
	AvatarURL string `json:"avatar_url,omitempty"`
	Role      string `json:"role"`
	CreatedAt string `json:"created_at"`
}
