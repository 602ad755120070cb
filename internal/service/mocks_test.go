package service

import (
	"context"
	"errors"
	"time"

	"github.com/fitloop/backend-auth/internal/domain"
)

// mockUserRepository is a mock implementation of UserRepository
type mockUserRepository struct {
	users       map[string]*domain.User
	emailIndex  map[string]*domain.User
	createError error
}

func newMockUserRepository() *mockUserRepository {
	return &mockUserRepository{
		users:      make(map[string]*domain.User),
		emailIndex: make(map[string]*domain.User),
	}
}

func (r *mockUserRepository) Create(ctx context.Context, user *domain.User) error {
	if r.createError != nil {
		return r.createError
	}
	r.users[user.ID] = user
	r.emailIndex[user.Email] = user
	return nil
}

func (r *mockUserRepository) GetByID(ctx context.Context, id string) (*domain.User, error) {
	return r.users[id], nil
}

func (r *mockUserRepository) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	return r.emailIndex[email], nil
}

func (r *mockUserRepository) Update(ctx context.Context, user *domain.User) error {
	r.users[user.ID] = user
	r.emailIndex[user.Email] = user
	return nil
}

func (r *mockUserRepository) UpdatePassword(ctx context.Context, id, passwordHash string) error {
	user := r.users[id]
	if user == nil {
		return errors.New("user not found")
	}
	user.PasswordHash = passwordHash
	return nil
}

func (r *mockUserRepository) ExistsByEmail(ctx context.Context, email string) (bool, error) {
	_, exists := r.emailIndex[email]
	return exists, nil
}

// mockSessionRepository is a mock implementation of SessionRepository
type mockSessionRepository struct {
	sessions          map[string]*domain.Session
	refreshTokenIndex map[string]*domain.Session
	userSessions      map[string][]*domain.Session
}

func newMockSessionRepository() *mockSessionRepository {
	return &mockSessionRepository{
		sessions:          make(map[string]*domain.Session),
		refreshTokenIndex: make(map[string]*domain.Session),
		userSessions:      make(map[string][]*domain.Session),
	}
}

func (r *mockSessionRepository) Create(ctx context.Context, session *domain.Session) error {
	r.sessions[session.ID] = session
	r.refreshTokenIndex[session.RefreshToken] = session
	r.userSessions[session.UserID] = append(r.userSessions[session.UserID], session)
	return nil
}

func (r *mockSessionRepository) GetByRefreshToken(ctx context.Context, token string) (*domain.Session, error) {
	return r.refreshTokenIndex[token], nil
}

func (r *mockSessionRepository) Delete(ctx context.Context, id string) error {
	session := r.sessions[id]
	if session != nil {
		delete(r.refreshTokenIndex, session.RefreshToken)
		delete(r.sessions, id)
	}
	return nil
}

func (r *mockSessionRepository) DeleteByUserID(ctx context.Context, userID string) error {
	for _, session := range r.userSessions[userID] {
		delete(r.refreshTokenIndex, session.RefreshToken)
		delete(r.sessions, session.ID)
	}
	delete(r.userSessions, userID)
	return nil
}

func (r *mockSessionRepository) DeleteExpired(ctx context.Context) error {
	for id, session := range r.sessions {
		if time.Now().After(session.ExpiresAt) {
			delete(r.refreshTokenIndex, session.RefreshToken)
			delete(r.sessions, id)
		}
	}
	return nil
}

// mockRoleRepository is a mock implementation of RoleRepository
type mockRoleRepository struct {
	roles    map[string]*domain.RoleAssignment
	getError error
}

func newMockRoleRepository() *mockRoleRepository {
	return &mockRoleRepository{
		roles: make(map[string]*domain.RoleAssignment),
	}
}

func (r *mockRoleRepository) GetByUserID(ctx context.Context, userID string) (*domain.RoleAssignment, error) {
	if r.getError != nil {
		return nil, r.getError
	}
	return r.roles[userID], nil
}

func (r *mockRoleRepository) Upsert(ctx context.Context, assignment *domain.RoleAssignment) error {
	r.roles[assignment.UserID] = assignment
	return nil
}

func (r *mockRoleRepository) Exists(ctx context.Context, userID string) (bool, error) {
	if r.getError != nil {
		return false, r.getError
	}
	_, exists := r.roles[userID]
	return exists, nil
}

// mockProfileRepository is a mock implementation of ProfileRepository
type mockProfileRepository struct {
	profiles map[string]*domain.Profile
}

func newMockProfileRepository() *mockProfileRepository {
	return &mockProfileRepository{
		profiles: make(map[string]*domain.Profile),
	}
}

func (r *mockProfileRepository) GetByUserID(ctx context.Context, userID string) (*domain.Profile, error) {
	return r.profiles[userID], nil
}

func (r *mockProfileRepository) Upsert(ctx context.Context, profile *domain.Profile) error {
	r.profiles[profile.UserID] = profile
	return nil
}

// mockResetTokenRepository is a mock implementation of ResetTokenRepository
type mockResetTokenRepository struct {
	tokens map[string]string
}

func newMockResetTokenRepository() *mockResetTokenRepository {
	return &mockResetTokenRepository{
		tokens: make(map[string]string),
	}
}

func (r *mockResetTokenRepository) Store(ctx context.Context, token, userID string, ttl time.Duration) error {
	r.tokens[token] = userID
	return nil
}

func (r *mockResetTokenRepository) Consume(ctx context.Context, token string) (string, error) {
	userID, ok := r.tokens[token]
	if !ok {
		return "", nil
	}
	delete(r.tokens, token)
	return userID, nil
}

// mockRosterRepository is a mock implementation of RosterRepository
type mockRosterRepository struct {
	coaches     map[string]bool
	clients     map[string]bool
	upsertError error
}

func newMockRosterRepository() *mockRosterRepository {
	return &mockRosterRepository{
		coaches: make(map[string]bool),
		clients: make(map[string]bool),
	}
}

func (r *mockRosterRepository) UpsertCoach(ctx context.Context, userID string) error {
	if r.upsertError != nil {
		return r.upsertError
	}
	r.coaches[userID] = true
	return nil
}

func (r *mockRosterRepository) UpsertClient(ctx context.Context, userID string) error {
	if r.upsertError != nil {
		return r.upsertError
	}
	r.clients[userID] = true
	return nil
}

func (r *mockRosterRepository) ListMissing(ctx context.Context, role domain.Role) ([]string, error) {
	return nil, nil
}

// newTestAuthService wires an AuthService over fresh mocks
func newTestAuthService() (AuthService, *mockUserRepository, *mockSessionRepository, *mockRoleRepository, *mockResetTokenRepository) {
	userRepo := newMockUserRepository()
	sessionRepo := newMockSessionRepository()
	roleRepo := newMockRoleRepository()
	profileRepo := newMockProfileRepository()
	resetRepo := newMockResetTokenRepository()
	config := &AuthServiceConfig{
		JWTSecret:          "test-secret-key",
		AccessTokenExpiry:  15 * time.Minute,
		RefreshTokenExpiry: 7 * 24 * time.Hour,
		ResetTokenExpiry:   15 * time.Minute,
		BcryptCost:         10, // Lower cost for faster tests
	}
	svc := NewAuthService(userRepo, sessionRepo, roleRepo, profileRepo, resetRepo, NewEventHub(), config)
	return svc, userRepo, sessionRepo, roleRepo, resetRepo
}
