package repository

import (
	"context"
	"time"

	"github.com/fitloop/backend-auth/internal/domain"
)

// UserRepository defines the interface for user data access
type UserRepository interface {
	// Create creates a new user
	Create(ctx context.Context, user *domain.User) error
	// GetByID retrieves a user by ID
	GetByID(ctx context.Context, id string) (*domain.User, error)
	// GetByEmail retrieves a user by email
	GetByEmail(ctx context.Context, email string) (*domain.User, error)
	// Update updates a user
	Update(ctx context.Context, user *domain.User) error
	// UpdatePassword replaces the stored password hash
	UpdatePassword(ctx context.Context, id, passwordHash string) error
	// ExistsByEmail checks if a user exists with the given email
	ExistsByEmail(ctx context.Context, email string) (bool, error)
}

// SessionRepository defines the interface for session data access
type SessionRepository interface {
	// Create creates a new session
	Create(ctx context.Context, session *domain.Session) error
	// GetByRefreshToken retrieves a session by refresh token
	GetByRefreshToken(ctx context.Context, token string) (*domain.Session, error)
	// Delete deletes a session
	Delete(ctx context.Context, id string) error
	// DeleteByUserID deletes all sessions for a user
	DeleteByUserID(ctx context.Context, userID string) error
	// DeleteExpired deletes all expired sessions
	DeleteExpired(ctx context.Context) error
}

// RoleRepository defines the interface for the user -> role mapping
type RoleRepository interface {
	// GetByUserID retrieves the role assigned to a user, nil result when none
	GetByUserID(ctx context.Context, userID string) (*domain.RoleAssignment, error)
	// Upsert writes the role mapping, idempotent on (user_id, role)
	Upsert(ctx context.Context, assignment *domain.RoleAssignment) error
	// Exists checks whether any role row exists for the user
	Exists(ctx context.Context, userID string) (bool, error)
}

// ProfileRepository defines the interface for display profiles
type ProfileRepository interface {
	// GetByUserID retrieves a profile, nil result when none
	GetByUserID(ctx context.Context, userID string) (*domain.Profile, error)
	// Upsert writes the profile keyed by user_id
	Upsert(ctx context.Context, profile *domain.Profile) error
}

// ResetTokenRepository stores single-use password reset tokens
type ResetTokenRepository interface {
	// Store saves a reset token for a user with the given TTL
	Store(ctx context.Context, token, userID string, ttl time.Duration) error
	// Consume redeems a token and deletes it; empty user ID when unknown
	Consume(ctx context.Context, token string) (string, error)
}

// RosterRepository manages the role-specific auxiliary records
// (one coaches row per coach, one clients row per client)
type RosterRepository interface {
	// UpsertCoach provisions the coach record for a user, idempotent
	UpsertCoach(ctx context.Context, userID string) error
	// UpsertClient provisions the client record for a user, idempotent
	UpsertClient(ctx context.Context, userID string) error
	// ListMissing returns user IDs holding the role but missing their
	// auxiliary record (used by the reconciler)
	ListMissing(ctx context.Context, role domain.Role) ([]string, error)
}
