package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/fitloop/backend-auth/internal/domain"
	"github.com/fitloop/backend-auth/internal/dto"
	"github.com/fitloop/backend-auth/internal/middleware"
	"github.com/fitloop/backend-auth/internal/service"
	"github.com/fitloop/backend-auth/pkg/response"
)

// AuthHandler handles authentication HTTP requests
type AuthHandler struct {
	authService service.AuthService
	roleService service.RoleService
}

// NewAuthHandler creates a new AuthHandler
func NewAuthHandler(authService service.AuthService, roleService service.RoleService) *AuthHandler {
	return &AuthHandler{authService: authService, roleService: roleService}
}

// Register handles user registration
// POST /api/v1/auth/register
func (h *AuthHandler) Register(c *gin.Context) {
	var req dto.RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	// Validate email format
	if valid, msg := req.ValidateEmail(); !valid {
		response.Error(c, http.StatusBadRequest, "INVALID_EMAIL", msg, "")
		return
	}

	// Validate password strength
	if valid, msg := req.ValidatePassword(); !valid {
		response.Error(c, http.StatusBadRequest, "WEAK_PASSWORD", msg, "")
		return
	}

	result, err := h.authService.Register(c.Request.Context(), &req)
	if err != nil {
		if errors.Is(err, domain.ErrUserAlreadyExists) {
			response.Conflict(c, "User with this email already exists")
			return
		}
		response.InternalError(c, err)
		return
	}

	response.Created(c, result)
}

// Login handles user login
// POST /api/v1/auth/login
func (h *AuthHandler) Login(c *gin.Context) {
	var req dto.LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	userAgent := c.GetHeader("User-Agent")
	ip := c.ClientIP()

	result, err := h.authService.Login(c.Request.Context(), &req, userAgent, ip)
	if err != nil {
		if errors.Is(err, domain.ErrInvalidCredentials) {
			response.Unauthorized(c, "Invalid email or password")
			return
		}
		if errors.Is(err, domain.ErrUserInactive) {
			response.Forbidden(c, "User account is inactive")
			return
		}
		response.InternalError(c, err)
		return
	}

	response.Success(c, result)
}

// RefreshToken handles token refresh
// POST /api/v1/auth/refresh
func (h *AuthHandler) RefreshToken(c *gin.Context) {
	var req dto.RefreshTokenRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	result, err := h.authService.RefreshToken(c.Request.Context(), req.RefreshToken)
	if err != nil {
		if errors.Is(err, domain.ErrSessionNotFound) || errors.Is(err, domain.ErrTokenExpired) {
			response.Unauthorized(c, "Invalid or expired refresh token")
			return
		}
		if errors.Is(err, domain.ErrUserInactive) {
			response.Forbidden(c, "User account is inactive")
			return
		}
		response.InternalError(c, err)
		return
	}

	response.Success(c, result)
}

// Logout handles user logout
// POST /api/v1/auth/logout
func (h *AuthHandler) Logout(c *gin.Context) {
	var req dto.RefreshTokenRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	if err := h.authService.Logout(c.Request.Context(), req.RefreshToken); err != nil {
		response.InternalError(c, err)
		return
	}

	response.Success(c, gin.H{"message": "Logged out successfully"})
}

// RequestPasswordReset starts the email-based reset flow
// POST /api/v1/auth/password-reset
func (h *AuthHandler) RequestPasswordReset(c *gin.Context) {
	var req dto.PasswordResetRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	if err := h.authService.RequestPasswordReset(c.Request.Context(), req.Email); err != nil {
		response.InternalError(c, err)
		return
	}

	// Same body whether or not the email exists
	response.Success(c, gin.H{"message": "If the email exists, a reset link has been sent"})
}

// ConfirmPasswordReset consumes a reset token and sets a new password
// POST /api/v1/auth/password-reset/confirm
func (h *AuthHandler) ConfirmPasswordReset(c *gin.Context) {
	var req dto.ConfirmPasswordResetRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	if valid, msg := req.ValidatePassword(); !valid {
		response.Error(c, http.StatusBadRequest, "WEAK_PASSWORD", msg, "")
		return
	}

	err := h.authService.ConfirmPasswordReset(c.Request.Context(), req.Token, req.NewPassword)
	if err != nil {
		if errors.Is(err, domain.ErrInvalidToken) {
			response.Unauthorized(c, "Invalid or expired reset token")
			return
		}
		response.InternalError(c, err)
		return
	}

	response.Success(c, gin.H{"message": "Password has been reset"})
}

// UpdatePassword changes the password for the authenticated user
// PUT /api/v1/auth/password
func (h *AuthHandler) UpdatePassword(c *gin.Context) {
	userID := middleware.UserID(c)
	if userID == "" {
		response.Unauthorized(c, "User not authenticated")
		return
	}

	var req dto.UpdatePasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	if valid, msg := req.ValidatePassword(); !valid {
		response.Error(c, http.StatusBadRequest, "WEAK_PASSWORD", msg, "")
		return
	}

	if err := h.authService.UpdatePassword(c.Request.Context(), userID, req.NewPassword); err != nil {
		if errors.Is(err, domain.ErrUserNotFound) {
			response.NotFound(c, "User not found")
			return
		}
		response.InternalError(c, err)
		return
	}

	response.Success(c, gin.H{"message": "Password updated successfully"})
}

// Me returns the caller's identity, role and display profile
// GET /api/v1/auth/me
func (h *AuthHandler) Me(c *gin.Context) {
	userID := middleware.UserID(c)
	if userID == "" {
		response.Unauthorized(c, "User not authenticated")
		return
	}

	user, err := h.authService.GetUser(c.Request.Context(), userID)
	if err != nil {
		response.InternalError(c, err)
		return
	}
	if user == nil {
		response.NotFound(c, "User not found")
		return
	}

	// Role and profile reads degrade to absent so a flaky lookup never
	// blocks the identity response
	role, err := h.roleService.ResolveRole(c.Request.Context(), userID)
	if err != nil {
		role = domain.RoleNone
	}

	resp := dto.MeResponse{
		User: dto.UserResponse{
			ID:        user.ID,
			Email:     user.Email,
			FullName:  user.FullName,
			AvatarURL: user.AvatarURL,
			Role:      string(role),
			CreatedAt: user.CreatedAt.Format("2006-01-02T15:04:05Z07:00"),
		},
	}

	if profile, err := h.authService.GetProfile(c.Request.Context(), userID); err == nil && profile != nil {
		resp.Profile = &dto.ProfileResponse{
			FullName:  profile.FullName,
			AvatarURL: profile.AvatarURL,
		}
	}

	response.Success(c, resp)
}

// UpdateMe updates the caller's display profile
// PUT /api/v1/auth/me
func (h *AuthHandler) UpdateMe(c *gin.Context) {
	userID := middleware.UserID(c)
	if userID == "" {
		response.Unauthorized(c, "User not authenticated")
		return
	}

	var req dto.UpdateProfileRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	if valid, msg := req.Validate(); !valid {
		response.Error(c, http.StatusBadRequest, "VALIDATION_ERROR", msg, "")
		return
	}

	user, err := h.authService.UpdateProfile(c.Request.Context(), userID, &req)
	if err != nil {
		if errors.Is(err, domain.ErrUserNotFound) {
			response.NotFound(c, "User not found")
			return
		}
		response.InternalError(c, err)
		return
	}

	role, _ := h.roleService.ResolveRole(c.Request.Context(), userID)
	response.Success(c, dto.UserResponse{
		ID:        user.ID,
		Email:     user.Email,
		FullName:  user.FullName,
		AvatarURL: user.AvatarURL,
		Role:      string(role),
		CreatedAt: user.CreatedAt.Format("2006-01-02T15:04:05Z07:00"),
	})
}

// ValidateToken validates a token (internal endpoint for other services)
// POST /api/v1/auth/validate
func (h *AuthHandler) ValidateToken(c *gin.Context) {
	authHeader := c.GetHeader("Authorization")
	if authHeader == "" {
		response.Error(c, http.StatusUnauthorized, "MISSING_TOKEN", "Authorization header is required", "")
		return
	}

	// Extract token from "Bearer <token>"
	const bearerPrefix = "Bearer "
	if len(authHeader) <= len(bearerPrefix) {
		response.Error(c, http.StatusUnauthorized, "INVALID_TOKEN", "Invalid authorization header format", "")
		return
	}
	token := authHeader[len(bearerPrefix):]

	claims, err := h.authService.ValidateToken(c.Request.Context(), token)
	if err != nil {
		if errors.Is(err, domain.ErrTokenExpired) {
			response.Error(c, http.StatusUnauthorized, "TOKEN_EXPIRED", "Access token has expired", "")
			return
		}
		response.Error(c, http.StatusUnauthorized, "INVALID_TOKEN", "Invalid access token", "")
		return
	}

	response.Success(c, gin.H{
		"user_id": claims.UserID,
		"email":   claims.Email,
		"role":    string(claims.Role),
	})
}
