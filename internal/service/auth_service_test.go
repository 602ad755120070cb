package service

import (
	"context"
	"testing"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/fitloop/backend-auth/internal/domain"
	"github.com/fitloop/backend-auth/internal/dto"
)

func TestAuthService_Register(t *testing.T) {
	svc, _, _, _, _ := newTestAuthService()

	t.Run("successful registration", func(t *testing.T) {
		req := &dto.RegisterRequest{
			Email:    "test@example.com",
			Password: "Password1!",
			FullName: "Test User",
		}

		resp, err := svc.Register(context.Background(), req)
		if err != nil {
			t.Fatalf("Register() error = %v", err)
		}

		if resp.AccessToken == "" {
			t.Error("Register() AccessToken is empty")
		}
		if resp.RefreshToken == "" {
			t.Error("Register() RefreshToken is empty")
		}
		if resp.User.Email != req.Email {
			t.Errorf("Register() User.Email = %v, want %v", resp.User.Email, req.Email)
		}
		if resp.User.FullName != req.FullName {
			t.Errorf("Register() User.FullName = %v, want %v", resp.User.FullName, req.FullName)
		}
		// A fresh identity has no role until onboarding assigns one
		if resp.User.Role != "" {
			t.Errorf("Register() User.Role = %v, want empty", resp.User.Role)
		}
	})

	t.Run("duplicate email", func(t *testing.T) {
		req := &dto.RegisterRequest{
			Email:    "test@example.com", // Same email as previous test
			Password: "Password2!",
			FullName: "Another User",
		}

		_, err := svc.Register(context.Background(), req)
		if err != domain.ErrUserAlreadyExists {
			t.Errorf("Register() error = %v, want %v", err, domain.ErrUserAlreadyExists)
		}
	})

	t.Run("profile seeded on registration", func(t *testing.T) {
		svc, _, _, _, _ := newTestAuthService()
		req := &dto.RegisterRequest{
			Email:    "profile@example.com",
			Password: "Password1!",
			FullName: "Profile User",
		}

		resp, err := svc.Register(context.Background(), req)
		if err != nil {
			t.Fatalf("Register() error = %v", err)
		}

		profile, err := svc.GetProfile(context.Background(), resp.User.ID)
		if err != nil {
			t.Fatalf("GetProfile() error = %v", err)
		}
		if profile == nil {
			t.Fatal("GetProfile() = nil, want seeded profile")
		}
		if profile.FullName != req.FullName {
			t.Errorf("Profile.FullName = %v, want %v", profile.FullName, req.FullName)
		}
	})
}

func TestAuthService_Login(t *testing.T) {
	svc, userRepo, _, roleRepo, _ := newTestAuthService()

	// Create a test user
	hashedPassword, _ := bcrypt.GenerateFromPassword([]byte("Password1!"), 10)
	testUser := &domain.User{
		ID:           "test-user-id",
		Email:        "login@example.com",
		PasswordHash: string(hashedPassword),
		FullName:     "Login Test",
		IsActive:     true,
		CreatedAt:    time.Now(),
		UpdatedAt:    time.Now(),
	}
	userRepo.users[testUser.ID] = testUser
	userRepo.emailIndex[testUser.Email] = testUser

	t.Run("successful login without role", func(t *testing.T) {
		req := &dto.LoginRequest{
			Email:    "login@example.com",
			Password: "Password1!",
		}

		resp, err := svc.Login(context.Background(), req, "Test-Agent", "127.0.0.1")
		if err != nil {
			t.Fatalf("Login() error = %v", err)
		}

		if resp.AccessToken == "" {
			t.Error("Login() AccessToken is empty")
		}
		if resp.User.Role != "" {
			t.Errorf("Login() User.Role = %v, want empty", resp.User.Role)
		}
	})

	t.Run("login reflects assigned role", func(t *testing.T) {
		roleRepo.roles[testUser.ID] = &domain.RoleAssignment{UserID: testUser.ID, Role: domain.RoleCoach}

		resp, err := svc.Login(context.Background(), &dto.LoginRequest{
			Email:    "login@example.com",
			Password: "Password1!",
		}, "Test-Agent", "127.0.0.1")
		if err != nil {
			t.Fatalf("Login() error = %v", err)
		}
		if resp.User.Role != string(domain.RoleCoach) {
			t.Errorf("Login() User.Role = %v, want %v", resp.User.Role, domain.RoleCoach)
		}
	})

	t.Run("role lookup failure degrades to no role", func(t *testing.T) {
		roleRepo.getError = context.DeadlineExceeded
		defer func() { roleRepo.getError = nil }()

		resp, err := svc.Login(context.Background(), &dto.LoginRequest{
			Email:    "login@example.com",
			Password: "Password1!",
		}, "Test-Agent", "127.0.0.1")
		if err != nil {
			t.Fatalf("Login() error = %v", err)
		}
		if resp.User.Role != "" {
			t.Errorf("Login() User.Role = %v, want empty on lookup failure", resp.User.Role)
		}
	})

	t.Run("wrong password", func(t *testing.T) {
		req := &dto.LoginRequest{
			Email:    "login@example.com",
			Password: "WrongPassword1!",
		}

		_, err := svc.Login(context.Background(), req, "Test-Agent", "127.0.0.1")
		if err != domain.ErrInvalidCredentials {
			t.Errorf("Login() error = %v, want %v", err, domain.ErrInvalidCredentials)
		}
	})

	t.Run("non-existent user", func(t *testing.T) {
		req := &dto.LoginRequest{
			Email:    "nonexistent@example.com",
			Password: "Password1!",
		}

		_, err := svc.Login(context.Background(), req, "Test-Agent", "127.0.0.1")
		if err != domain.ErrInvalidCredentials {
			t.Errorf("Login() error = %v, want %v", err, domain.ErrInvalidCredentials)
		}
	})

	t.Run("inactive user", func(t *testing.T) {
		hashedPassword, _ := bcrypt.GenerateFromPassword([]byte("Password1!"), 10)
		inactiveUser := &domain.User{
			ID:           "inactive-user-id",
			Email:        "inactive@example.com",
			PasswordHash: string(hashedPassword),
			FullName:     "Inactive User",
			IsActive:     false,
			CreatedAt:    time.Now(),
			UpdatedAt:    time.Now(),
		}
		userRepo.users[inactiveUser.ID] = inactiveUser
		userRepo.emailIndex[inactiveUser.Email] = inactiveUser

		req := &dto.LoginRequest{
			Email:    "inactive@example.com",
			Password: "Password1!",
		}

		_, err := svc.Login(context.Background(), req, "Test-Agent", "127.0.0.1")
		if err != domain.ErrUserInactive {
			t.Errorf("Login() error = %v, want %v", err, domain.ErrUserInactive)
		}
	})
}

func TestAuthService_ValidateToken(t *testing.T) {
	svc, _, _, _, _ := newTestAuthService()

	regResp, err := svc.Register(context.Background(), &dto.RegisterRequest{
		Email:    "validate@example.com",
		Password: "Password1!",
		FullName: "Validate Test",
	})
	if err != nil {
		t.Fatalf("Setup failed: %v", err)
	}

	t.Run("valid token", func(t *testing.T) {
		claims, err := svc.ValidateToken(context.Background(), regResp.AccessToken)
		if err != nil {
			t.Fatalf("ValidateToken() error = %v", err)
		}

		if claims.Email != "validate@example.com" {
			t.Errorf("ValidateToken() Email = %v, want validate@example.com", claims.Email)
		}
		if claims.Role != domain.RoleNone {
			t.Errorf("ValidateToken() Role = %v, want empty", claims.Role)
		}
	})

	t.Run("invalid token", func(t *testing.T) {
		_, err := svc.ValidateToken(context.Background(), "invalid-token")
		if err != domain.ErrInvalidToken {
			t.Errorf("ValidateToken() error = %v, want %v", err, domain.ErrInvalidToken)
		}
	})

	t.Run("tampered token", func(t *testing.T) {
		tamperedToken := regResp.AccessToken[:len(regResp.AccessToken)-1] + "X"
		_, err := svc.ValidateToken(context.Background(), tamperedToken)
		if err != domain.ErrInvalidToken {
			t.Errorf("ValidateToken() error = %v, want %v", err, domain.ErrInvalidToken)
		}
	})
}

func TestAuthService_RefreshToken(t *testing.T) {
	svc, _, _, _, _ := newTestAuthService()

	regResp, err := svc.Register(context.Background(), &dto.RegisterRequest{
		Email:    "refresh@example.com",
		Password: "Password1!",
		FullName: "Refresh Test",
	})
	if err != nil {
		t.Fatalf("Setup failed: %v", err)
	}

	t.Run("successful refresh rotates token", func(t *testing.T) {
		resp, err := svc.RefreshToken(context.Background(), regResp.RefreshToken)
		if err != nil {
			t.Fatalf("RefreshToken() error = %v", err)
		}

		if resp.AccessToken == "" {
			t.Error("RefreshToken() AccessToken is empty")
		}
		if resp.RefreshToken == regResp.RefreshToken {
			t.Error("RefreshToken() should return a new refresh token")
		}

		// Old token must be dead after rotation
		_, err = svc.RefreshToken(context.Background(), regResp.RefreshToken)
		if err != domain.ErrSessionNotFound {
			t.Errorf("RefreshToken() with rotated token error = %v, want %v", err, domain.ErrSessionNotFound)
		}
	})

	t.Run("invalid refresh token", func(t *testing.T) {
		_, err := svc.RefreshToken(context.Background(), "invalid-refresh-token")
		if err != domain.ErrSessionNotFound {
			t.Errorf("RefreshToken() error = %v, want %v", err, domain.ErrSessionNotFound)
		}
	})
}

func TestAuthService_Logout(t *testing.T) {
	svc, _, _, _, _ := newTestAuthService()

	regResp, err := svc.Register(context.Background(), &dto.RegisterRequest{
		Email:    "logout@example.com",
		Password: "Password1!",
		FullName: "Logout Test",
	})
	if err != nil {
		t.Fatalf("Setup failed: %v", err)
	}

	t.Run("successful logout", func(t *testing.T) {
		err := svc.Logout(context.Background(), regResp.RefreshToken)
		if err != nil {
			t.Fatalf("Logout() error = %v", err)
		}

		_, err = svc.RefreshToken(context.Background(), regResp.RefreshToken)
		if err != domain.ErrSessionNotFound {
			t.Errorf("After logout, RefreshToken() error = %v, want %v", err, domain.ErrSessionNotFound)
		}
	})

	t.Run("logout with unknown token is a no-op", func(t *testing.T) {
		if err := svc.Logout(context.Background(), "unknown-token"); err != nil {
			t.Errorf("Logout() error = %v, want nil", err)
		}
	})
}

func TestAuthService_PasswordReset(t *testing.T) {
	svc, userRepo, sessionRepo, _, resetRepo := newTestAuthService()

	regResp, err := svc.Register(context.Background(), &dto.RegisterRequest{
		Email:    "reset@example.com",
		Password: "Password1!",
		FullName: "Reset Test",
	})
	if err != nil {
		t.Fatalf("Setup failed: %v", err)
	}

	t.Run("unknown email succeeds silently", func(t *testing.T) {
		if err := svc.RequestPasswordReset(context.Background(), "nobody@example.com"); err != nil {
			t.Errorf("RequestPasswordReset() error = %v, want nil", err)
		}
		if len(resetRepo.tokens) != 0 {
			t.Errorf("reset tokens stored = %d, want 0", len(resetRepo.tokens))
		}
	})

	t.Run("confirm consumes token and revokes sessions", func(t *testing.T) {
		if err := svc.RequestPasswordReset(context.Background(), "reset@example.com"); err != nil {
			t.Fatalf("RequestPasswordReset() error = %v", err)
		}
		if len(resetRepo.tokens) != 1 {
			t.Fatalf("reset tokens stored = %d, want 1", len(resetRepo.tokens))
		}

		var token string
		for tok := range resetRepo.tokens {
			token = tok
		}

		if err := svc.ConfirmPasswordReset(context.Background(), token, "NewPassword1!"); err != nil {
			t.Fatalf("ConfirmPasswordReset() error = %v", err)
		}

		// Token is single-use
		err := svc.ConfirmPasswordReset(context.Background(), token, "NewPassword2!")
		if err != domain.ErrInvalidToken {
			t.Errorf("second ConfirmPasswordReset() error = %v, want %v", err, domain.ErrInvalidToken)
		}

		// Old sessions are revoked
		if _, err := svc.RefreshToken(context.Background(), regResp.RefreshToken); err != domain.ErrSessionNotFound {
			t.Errorf("RefreshToken() after reset error = %v, want %v", err, domain.ErrSessionNotFound)
		}
		if len(sessionRepo.userSessions[regResp.User.ID]) != 0 {
			t.Errorf("sessions remaining = %d, want 0", len(sessionRepo.userSessions[regResp.User.ID]))
		}

		// New password works
		user := userRepo.users[regResp.User.ID]
		if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte("NewPassword1!")); err != nil {
			t.Errorf("new password does not verify: %v", err)
		}
	})

	t.Run("invalid token fails", func(t *testing.T) {
		err := svc.ConfirmPasswordReset(context.Background(), "bogus", "NewPassword1!")
		if err != domain.ErrInvalidToken {
			t.Errorf("ConfirmPasswordReset() error = %v, want %v", err, domain.ErrInvalidToken)
		}
	})
}

func TestAuthService_UpdatePassword(t *testing.T) {
	svc, userRepo, _, _, _ := newTestAuthService()

	regResp, err := svc.Register(context.Background(), &dto.RegisterRequest{
		Email:    "updatepw@example.com",
		Password: "Password1!",
		FullName: "Update Test",
	})
	if err != nil {
		t.Fatalf("Setup failed: %v", err)
	}

	t.Run("changes the stored hash", func(t *testing.T) {
		if err := svc.UpdatePassword(context.Background(), regResp.User.ID, "Changed1!"); err != nil {
			t.Fatalf("UpdatePassword() error = %v", err)
		}

		user := userRepo.users[regResp.User.ID]
		if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte("Changed1!")); err != nil {
			t.Errorf("new password does not verify: %v", err)
		}
	})

	t.Run("unknown user fails", func(t *testing.T) {
		err := svc.UpdatePassword(context.Background(), "no-such-user", "Changed1!")
		if err != domain.ErrUserNotFound {
			t.Errorf("UpdatePassword() error = %v, want %v", err, domain.ErrUserNotFound)
		}
	})
}

func TestAuthService_Events(t *testing.T) {
	svc, _, _, _, _ := newTestAuthService()

	events, cancel := svc.Events().Subscribe()
	defer cancel()

	_, err := svc.Register(context.Background(), &dto.RegisterRequest{
		Email:    "events@example.com",
		Password: "Password1!",
		FullName: "Events Test",
	})
	if err != nil {
		t.Fatalf("Register() error = %v", err)
	}

	select {
	case event := <-events:
		if event.Type != domain.EventSignedIn {
			t.Errorf("event.Type = %v, want %v", event.Type, domain.EventSignedIn)
		}
		if event.User == nil || event.User.Email != "events@example.com" {
			t.Errorf("event.User = %+v, want events@example.com", event.User)
		}
	case <-time.After(time.Second):
		t.Fatal("no sign-in event published")
	}
}
