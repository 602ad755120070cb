package provider

import (
	"context"
	"sync"

	"github.com/fitloop/backend-auth/internal/domain"
	"github.com/fitloop/backend-auth/internal/dto"
	"github.com/fitloop/backend-auth/internal/service"
)

// Provider is the auth backend contract consumed by the state manager.
// GetSession returns the current identity without touching credentials;
// a nil user means no active session.
type Provider interface {
	GetSession(ctx context.Context) (*domain.User, *domain.Session, error)
	SignUp(ctx context.Context, email, password, fullName string) (*domain.User, error)
	SignInWithPassword(ctx context.Context, email, password string) (*domain.User, error)
	SignOut(ctx context.Context) error
	ResetPasswordForEmail(ctx context.Context, email string) error
	UpdatePassword(ctx context.Context, newPassword string) error
	AssignRole(ctx context.Context, role domain.Role, targetUserID string) (domain.Role, error)
	ResolveRole(ctx context.Context, userID string) (domain.Role, error)
	GetProfile(ctx context.Context, userID string) (*domain.Profile, error)
	Events() *service.EventHub
}

// LocalProvider adapts the in-process services to the Provider contract.
// It tracks the session it opened, the way a remote client holds on to
// its token pair.
type LocalProvider struct {
	authService service.AuthService
	roleService service.RoleService

	mu      sync.RWMutex
	user    *domain.User
	session *domain.Session
}

// NewLocalProvider creates a LocalProvider over the given services
func NewLocalProvider(authService service.AuthService, roleService service.RoleService) *LocalProvider {
	return &LocalProvider{
		authService: authService,
		roleService: roleService,
	}
}

// GetSession returns the current user and session, nil when signed out
func (p *LocalProvider) GetSession(ctx context.Context) (*domain.User, *domain.Session, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.user, p.session, nil
}

// SignUp registers a new account and holds the opened session
func (p *LocalProvider) SignUp(ctx context.Context, email, password, fullName string) (*domain.User, error) {
	resp, err := p.authService.Register(ctx, &dto.RegisterRequest{
		Email:    email,
		Password: password,
		FullName: fullName,
	})
	if err != nil {
		return nil, err
	}
	return p.adopt(ctx, resp)
}

// SignInWithPassword authenticates and holds the opened session
func (p *LocalProvider) SignInWithPassword(ctx context.Context, email, password string) (*domain.User, error) {
	resp, err := p.authService.Login(ctx, &dto.LoginRequest{
		Email:    email,
		Password: password,
	}, "", "")
	if err != nil {
		return nil, err
	}
	return p.adopt(ctx, resp)
}

// SignOut revokes the held session
func (p *LocalProvider) SignOut(ctx context.Context) error {
	p.mu.Lock()
	session := p.session
	p.user = nil
	p.session = nil
	p.mu.Unlock()

	if session == nil {
		return nil
	}
	return p.authService.Logout(ctx, session.RefreshToken)
}

// ResetPasswordForEmail starts the out-of-band reset flow
func (p *LocalProvider) ResetPasswordForEmail(ctx context.Context, email string) error {
	return p.authService.RequestPasswordReset(ctx, email)
}

// UpdatePassword changes the password for the held session's user.
// The backend revokes every session, so the held one is dropped too.
func (p *LocalProvider) UpdatePassword(ctx context.Context, newPassword string) error {
	p.mu.RLock()
	user := p.user
	p.mu.RUnlock()

	if user == nil {
		return domain.ErrUnauthenticated
	}

	if err := p.authService.UpdatePassword(ctx, user.ID, newPassword); err != nil {
		return err
	}

	p.mu.Lock()
	p.session = nil
	p.mu.Unlock()
	return nil
}

// AssignRole assigns a role on behalf of the held session's user
func (p *LocalProvider) AssignRole(ctx context.Context, role domain.Role, targetUserID string) (domain.Role, error) {
	p.mu.RLock()
	user := p.user
	p.mu.RUnlock()

	if user == nil {
		return domain.RoleNone, domain.ErrUnauthenticated
	}
	return p.roleService.AssignRole(ctx, user.ID, role, targetUserID)
}

// ResolveRole returns the persisted role for a user
func (p *LocalProvider) ResolveRole(ctx context.Context, userID string) (domain.Role, error) {
	return p.roleService.ResolveRole(ctx, userID)
}

// GetProfile returns the display profile for a user, nil when none
func (p *LocalProvider) GetProfile(ctx context.Context, userID string) (*domain.Profile, error) {
	return p.authService.GetProfile(ctx, userID)
}

// Events exposes the auth-change event hub
func (p *LocalProvider) Events() *service.EventHub {
	return p.authService.Events()
}

// adopt stores the user and session behind an auth response
func (p *LocalProvider) adopt(ctx context.Context, resp *dto.AuthResponse) (*domain.User, error) {
	user, err := p.authService.GetUser(ctx, resp.User.ID)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, domain.ErrUserNotFound
	}

	p.mu.Lock()
	p.user = user
	p.session = &domain.Session{
		UserID:       user.ID,
		RefreshToken: resp.RefreshToken,
	}
	p.mu.Unlock()
	return user, nil
}
