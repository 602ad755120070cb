package service

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"time"

	"github.com/fitloop/backend-auth/internal/domain"
	"github.com/fitloop/backend-auth/internal/dto"
	"github.com/fitloop/backend-auth/internal/repository"
	"github.com/fitloop/backend-auth/pkg/logger"
	"github.com/fitloop/backend-auth/pkg/telemetry"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"golang.org/x/crypto/bcrypt"
)

// AuthServiceConfig holds configuration for AuthService
type AuthServiceConfig struct {
	JWTSecret          string
	AccessTokenExpiry  time.Duration
	RefreshTokenExpiry time.Duration
	ResetTokenExpiry   time.Duration
	BcryptCost         int
}

// AuthService defines the interface for authentication operations
type AuthService interface {
	// Register registers a new user and opens their first session
	Register(ctx context.Context, req *dto.RegisterRequest) (*dto.AuthResponse, error)
	// Login authenticates a user
	Login(ctx context.Context, req *dto.LoginRequest, userAgent, ip string) (*dto.AuthResponse, error)
	// RefreshToken refreshes access token using refresh token
	RefreshToken(ctx context.Context, refreshToken string) (*dto.AuthResponse, error)
	// Logout logs out a user (invalidates session)
	Logout(ctx context.Context, refreshToken string) error
	// ValidateToken validates an access token and returns claims
	ValidateToken(ctx context.Context, token string) (*domain.Claims, error)
	// GetUser retrieves user by ID
	GetUser(ctx context.Context, id string) (*domain.User, error)
	// GetProfile retrieves the display profile for a user, nil when none
	GetProfile(ctx context.Context, userID string) (*domain.Profile, error)
	// UpdateProfile updates user display data and refreshes the profile row
	UpdateProfile(ctx context.Context, userID string, req *dto.UpdateProfileRequest) (*domain.User, error)
	// RequestPasswordReset starts the out-of-band email reset flow
	RequestPasswordReset(ctx context.Context, email string) error
	// ConfirmPasswordReset consumes a reset token and sets a new password
	ConfirmPasswordReset(ctx context.Context, token, newPassword string) error
	// UpdatePassword changes the password for an authenticated user
	UpdatePassword(ctx context.Context, userID, newPassword string) error
	// Events exposes the auth-change event hub
	Events() *EventHub
}

// authService implements AuthService
type authService struct {
	userRepo    repository.UserRepository
	sessionRepo repository.SessionRepository
	roleRepo    repository.RoleRepository
	profileRepo repository.ProfileRepository
	resetRepo   repository.ResetTokenRepository
	hub         *EventHub
	config      *AuthServiceConfig
	log         *logger.Logger
}

// NewAuthService creates a new AuthService
func NewAuthService(
	userRepo repository.UserRepository,
	sessionRepo repository.SessionRepository,
	roleRepo repository.RoleRepository,
	profileRepo repository.ProfileRepository,
	resetRepo repository.ResetTokenRepository,
	hub *EventHub,
	config *AuthServiceConfig,
) AuthService {
	if config.BcryptCost == 0 {
		config.BcryptCost = bcrypt.DefaultCost
	}
	if config.AccessTokenExpiry == 0 {
		config.AccessTokenExpiry = 15 * time.Minute
	}
	if config.RefreshTokenExpiry == 0 {
		config.RefreshTokenExpiry = 7 * 24 * time.Hour
	}
	if config.ResetTokenExpiry == 0 {
		config.ResetTokenExpiry = 15 * time.Minute
	}
	if hub == nil {
		hub = NewEventHub()
	}
	return &authService{
		userRepo:    userRepo,
		sessionRepo: sessionRepo,
		roleRepo:    roleRepo,
		profileRepo: profileRepo,
		resetRepo:   resetRepo,
		hub:         hub,
		config:      config,
		log:         logger.Get(),
	}
}

// Events exposes the auth-change event hub
func (s *authService) Events() *EventHub {
	return s.hub
}

// Register registers a new user and opens their first session
func (s *authService) Register(ctx context.Context, req *dto.RegisterRequest) (*dto.AuthResponse, error) {
	ctx, span := telemetry.StartSpan(ctx, "service.auth.register")
	defer span.End()

	span.SetAttributes(attribute.String("email", req.Email))

	// Check if user already exists
	exists, err := s.userRepo.ExistsByEmail(ctx, req.Email)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}
	if exists {
		span.SetStatus(codes.Error, "user already exists")
		return nil, domain.ErrUserAlreadyExists
	}

	// Hash password
	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(req.Password), s.config.BcryptCost)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	// Create user
	now := time.Now()
	user := &domain.User{
		ID:           uuid.New().String(),
		Email:        req.Email,
		PasswordHash: string(hashedPassword),
		FullName:     req.FullName,
		IsActive:     true,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	if err := s.userRepo.Create(ctx, user); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	// Seed the display profile. A failure here is not fatal: the profile is
	// refreshed opportunistically on every session resolution.
	s.refreshProfile(ctx, user)

	// No role yet: a fresh identity goes through onboarding before one is
	// assigned via the role service.
	resp, err := s.openSession(ctx, user, domain.RoleNone, "", "")
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	span.SetAttributes(attribute.String("user_id", user.ID))
	span.SetStatus(codes.Ok, "")
	return resp, nil
}

// Login authenticates a user
func (s *authService) Login(ctx context.Context, req *dto.LoginRequest, userAgent, ip string) (*dto.AuthResponse, error) {
	ctx, span := telemetry.StartSpan(ctx, "service.auth.login")
	defer span.End()

	span.SetAttributes(attribute.String("email", req.Email))

	// Get user by email
	user, err := s.userRepo.GetByEmail(ctx, req.Email)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}
	if user == nil {
		span.SetStatus(codes.Error, "invalid credentials")
		return nil, domain.ErrInvalidCredentials
	}

	// Check if user is active
	if !user.IsActive {
		span.SetStatus(codes.Error, "user inactive")
		return nil, domain.ErrUserInactive
	}

	// Verify password
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.Password)); err != nil {
		span.SetStatus(codes.Error, "invalid credentials")
		return nil, domain.ErrInvalidCredentials
	}

	s.refreshProfile(ctx, user)

	resp, err := s.openSession(ctx, user, s.resolveRole(ctx, user.ID), userAgent, ip)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	span.SetAttributes(attribute.String("user_id", user.ID))
	span.SetStatus(codes.Ok, "")
	return resp, nil
}

// RefreshToken refreshes access token using refresh token
func (s *authService) RefreshToken(ctx context.Context, refreshToken string) (*dto.AuthResponse, error) {
	ctx, span := telemetry.StartSpan(ctx, "service.auth.refresh_token")
	defer span.End()

	// Get session by refresh token
	session, err := s.sessionRepo.GetByRefreshToken(ctx, refreshToken)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}
	if session == nil {
		span.SetStatus(codes.Error, "session not found")
		return nil, domain.ErrSessionNotFound
	}

	span.SetAttributes(attribute.String("user_id", session.UserID))

	// Check if session is expired
	if time.Now().After(session.ExpiresAt) {
		_ = s.sessionRepo.Delete(ctx, session.ID)
		span.SetStatus(codes.Error, "token expired")
		return nil, domain.ErrTokenExpired
	}

	// Get user
	user, err := s.userRepo.GetByID(ctx, session.UserID)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}
	if user == nil {
		span.SetStatus(codes.Error, "user not found")
		return nil, domain.ErrUserNotFound
	}
	if !user.IsActive {
		span.SetStatus(codes.Error, "user inactive")
		return nil, domain.ErrUserInactive
	}

	role := s.resolveRole(ctx, user.ID)

	// Rotate the session: delete the old row and issue a fresh token pair
	tokenPair, err := s.generateTokenPair(user, role)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	_ = s.sessionRepo.Delete(ctx, session.ID)

	session.ID = uuid.New().String()
	session.RefreshToken = tokenPair.RefreshToken
	session.ExpiresAt = time.Now().Add(s.config.RefreshTokenExpiry)
	session.CreatedAt = time.Now()
	if err := s.sessionRepo.Create(ctx, session); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	s.hub.Publish(domain.AuthEvent{
		Type:    domain.EventTokenRefreshed,
		User:    user,
		Session: session,
	})

	span.SetStatus(codes.Ok, "")
	return &dto.AuthResponse{
		AccessToken:  tokenPair.AccessToken,
		RefreshToken: tokenPair.RefreshToken,
		ExpiresIn:    tokenPair.ExpiresIn,
		User:         s.toUserResponse(user, role),
	}, nil
}

// Logout logs out a user (invalidates session)
func (s *authService) Logout(ctx context.Context, refreshToken string) error {
	ctx, span := telemetry.StartSpan(ctx, "service.auth.logout")
	defer span.End()

	session, err := s.sessionRepo.GetByRefreshToken(ctx, refreshToken)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return err
	}
	if session == nil {
		span.SetStatus(codes.Ok, "already logged out")
		return nil // Already logged out
	}

	span.SetAttributes(attribute.String("user_id", session.UserID))

	if err := s.sessionRepo.Delete(ctx, session.ID); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return err
	}

	s.hub.Publish(domain.AuthEvent{Type: domain.EventSignedOut})

	span.SetStatus(codes.Ok, "")
	return nil
}

// ValidateToken validates an access token and returns claims
func (s *authService) ValidateToken(ctx context.Context, tokenString string) (*domain.Claims, error) {
	_, span := telemetry.StartSpan(ctx, "service.auth.validate_token")
	defer span.End()

	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, domain.ErrInvalidToken
		}
		return []byte(s.config.JWTSecret), nil
	})

	if err != nil {
		span.RecordError(err)
		if errors.Is(err, jwt.ErrTokenExpired) {
			span.SetStatus(codes.Error, "token expired")
			return nil, domain.ErrTokenExpired
		}
		span.SetStatus(codes.Error, "invalid token")
		return nil, domain.ErrInvalidToken
	}

	if !token.Valid {
		span.SetStatus(codes.Error, "invalid token")
		return nil, domain.ErrInvalidToken
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		span.SetStatus(codes.Error, "invalid claims")
		return nil, domain.ErrInvalidToken
	}

	userID, ok := claims["user_id"].(string)
	if !ok {
		span.SetStatus(codes.Error, "invalid claims")
		return nil, domain.ErrInvalidToken
	}
	email, _ := claims["email"].(string)

	// Role may be empty for users that have not finished onboarding
	role := ""
	if r, ok := claims["role"].(string); ok {
		role = r
	}

	span.SetAttributes(attribute.String("user_id", userID))
	span.SetStatus(codes.Ok, "")

	return &domain.Claims{
		UserID: userID,
		Email:  email,
		Role:   domain.Role(role),
	}, nil
}

// GetUser retrieves user by ID
func (s *authService) GetUser(ctx context.Context, id string) (*domain.User, error) {
	ctx, span := telemetry.StartSpan(ctx, "service.auth.get_user")
	defer span.End()

	span.SetAttributes(attribute.String("user_id", id))

	user, err := s.userRepo.GetByID(ctx, id)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	span.SetStatus(codes.Ok, "")
	return user, nil
}

// GetProfile retrieves the display profile for a user, nil when none
func (s *authService) GetProfile(ctx context.Context, userID string) (*domain.Profile, error) {
	ctx, span := telemetry.StartSpan(ctx, "service.auth.get_profile")
	defer span.End()

	span.SetAttributes(attribute.String("user_id", userID))

	profile, err := s.profileRepo.GetByUserID(ctx, userID)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	span.SetStatus(codes.Ok, "")
	return profile, nil
}

// UpdateProfile updates user display data and refreshes the profile row
func (s *authService) UpdateProfile(ctx context.Context, userID string, req *dto.UpdateProfileRequest) (*domain.User, error) {
	ctx, span := telemetry.StartSpan(ctx, "service.auth.update_profile")
	defer span.End()

	span.SetAttributes(attribute.String("user_id", userID))

	user, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}
	if user == nil {
		span.SetStatus(codes.Error, "user not found")
		return nil, domain.ErrUserNotFound
	}

	if req.FullName != "" {
		user.FullName = req.FullName
	}
	if req.AvatarURL != "" {
		user.AvatarURL = req.AvatarURL
	}
	user.UpdatedAt = time.Now()

	if err := s.userRepo.Update(ctx, user); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	s.refreshProfile(ctx, user)

	span.SetStatus(codes.Ok, "")
	return user, nil
}

// RequestPasswordReset starts the out-of-band email reset flow. The result
// is intentionally identical whether or not the email exists.
func (s *authService) RequestPasswordReset(ctx context.Context, email string) error {
	ctx, span := telemetry.StartSpan(ctx, "service.auth.request_password_reset")
	defer span.End()

	user, err := s.userRepo.GetByEmail(ctx, email)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return err
	}
	if user == nil || !user.IsActive {
		span.SetStatus(codes.Ok, "no matching user")
		return nil
	}

	token := uuid.New().String()
	if err := s.resetRepo.Store(ctx, token, user.ID, s.config.ResetTokenExpiry); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return err
	}

	// Mail delivery is handled out of band; the token is surfaced to the
	// mailer through the log pipeline for now.
	s.log.Info("password reset token issued",
		logger.String("user_id", user.ID),
	)

	span.SetStatus(codes.Ok, "")
	return nil
}

// ConfirmPasswordReset consumes a reset token and sets a new password.
// All sessions for the user are revoked.
func (s *authService) ConfirmPasswordReset(ctx context.Context, token, newPassword string) error {
	ctx, span := telemetry.StartSpan(ctx, "service.auth.confirm_password_reset")
	defer span.End()

	userID, err := s.resetRepo.Consume(ctx, token)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return err
	}
	if userID == "" {
		span.SetStatus(codes.Error, "invalid reset token")
		return domain.ErrInvalidToken
	}

	if err := s.setPassword(ctx, userID, newPassword); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return err
	}

	span.SetAttributes(attribute.String("user_id", userID))
	span.SetStatus(codes.Ok, "")
	return nil
}

// UpdatePassword changes the password for an authenticated user
func (s *authService) UpdatePassword(ctx context.Context, userID, newPassword string) error {
	ctx, span := telemetry.StartSpan(ctx, "service.auth.update_password")
	defer span.End()

	span.SetAttributes(attribute.String("user_id", userID))

	if err := s.setPassword(ctx, userID, newPassword); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return err
	}

	span.SetStatus(codes.Ok, "")
	return nil
}

func (s *authService) setPassword(ctx context.Context, userID, newPassword string) error {
	user, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		return err
	}
	if user == nil {
		return domain.ErrUserNotFound
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(newPassword), s.config.BcryptCost)
	if err != nil {
		return err
	}

	if err := s.userRepo.UpdatePassword(ctx, userID, string(hashed)); err != nil {
		return err
	}

	// Revoke every outstanding session; clients re-authenticate with the
	// new credentials.
	if err := s.sessionRepo.DeleteByUserID(ctx, userID); err != nil {
		s.log.Warn("failed to revoke sessions after password change",
			logger.String("user_id", userID),
			logger.Err(err),
		)
	}

	s.hub.Publish(domain.AuthEvent{Type: domain.EventPasswordUpdated, User: user})
	return nil
}

// openSession creates the session row, mints the token pair and publishes
// the sign-in event.
func (s *authService) openSession(ctx context.Context, user *domain.User, role domain.Role, userAgent, ip string) (*dto.AuthResponse, error) {
	tokenPair, err := s.generateTokenPair(user, role)
	if err != nil {
		return nil, err
	}

	session := &domain.Session{
		ID:           uuid.New().String(),
		UserID:       user.ID,
		RefreshToken: tokenPair.RefreshToken,
		UserAgent:    userAgent,
		IP:           ip,
		ExpiresAt:    time.Now().Add(s.config.RefreshTokenExpiry),
		CreatedAt:    time.Now(),
	}

	if err := s.sessionRepo.Create(ctx, session); err != nil {
		return nil, err
	}

	s.hub.Publish(domain.AuthEvent{
		Type:    domain.EventSignedIn,
		User:    user,
		Session: session,
	})

	return &dto.AuthResponse{
		AccessToken:  tokenPair.AccessToken,
		RefreshToken: tokenPair.RefreshToken,
		ExpiresIn:    tokenPair.ExpiresIn,
		User:         s.toUserResponse(user, role),
	}, nil
}

// resolveRole looks up the persisted role for a user. Read errors degrade to
// "no role": a missing role routes the user to onboarding instead of an
// error screen.
func (s *authService) resolveRole(ctx context.Context, userID string) domain.Role {
	assignment, err := s.roleRepo.GetByUserID(ctx, userID)
	if err != nil {
		s.log.Warn("role lookup failed, treating as unassigned",
			logger.String("user_id", userID),
			logger.Err(err),
		)
		return domain.RoleNone
	}
	if assignment == nil {
		return domain.RoleNone
	}
	return assignment.Role
}

// refreshProfile opportunistically mirrors user display data into the
// profiles table. Failures are logged, never propagated.
func (s *authService) refreshProfile(ctx context.Context, user *domain.User) {
	profile := &domain.Profile{
		UserID:    user.ID,
		FullName:  user.FullName,
		AvatarURL: user.AvatarURL,
		UpdatedAt: time.Now(),
	}
	if err := s.profileRepo.Upsert(ctx, profile); err != nil {
		s.log.Warn("profile refresh failed",
			logger.String("user_id", user.ID),
			logger.Err(err),
		)
	}
}

// generateTokenPair mints the JWT access token and an opaque refresh token
func (s *authService) generateTokenPair(user *domain.User, role domain.Role) (*domain.TokenPair, error) {
	now := time.Now()
	claims := jwt.MapClaims{
		"user_id": user.ID,
		"email":   user.Email,
		"role":    string(role),
		"iat":     now.Unix(),
		"exp":     now.Add(s.config.AccessTokenExpiry).Unix(),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	accessToken, err := token.SignedString([]byte(s.config.JWTSecret))
	if err != nil {
		return nil, err
	}

	refreshBytes := make([]byte, 32)
	if _, err := rand.Read(refreshBytes); err != nil {
		return nil, err
	}

	return &domain.TokenPair{
		AccessToken:  accessToken,
		RefreshToken: base64.URLEncoding.EncodeToString(refreshBytes),
		ExpiresIn:    int64(s.config.AccessTokenExpiry.Seconds()),
	}, nil
}

func (s *authService) toUserResponse(user *domain.User, role domain.Role) dto.UserResponse {
	return dto.UserResponse{
		ID:        user.ID,
		Email:     user.Email,
		FullName:  user.FullName,
		AvatarURL: user.AvatarURL,
		Role:      string(role),
		CreatedAt: user.CreatedAt.Format(time.RFC3339),
	}
}
