package repository

import (
	"context"
	"errors"

	"github.com/fitloop/backend-auth/internal/domain"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresRoleRepository implements RoleRepository using PostgreSQL
type PostgresRoleRepository struct {
	pool *pgxpool.Pool
}

// NewPostgresRoleRepository creates a new PostgresRoleRepository
func NewPostgresRoleRepository(pool *pgxpool.Pool) *PostgresRoleRepository {
	return &PostgresRoleRepository{pool: pool}
}

// GetByUserID retrieves the role assigned to a user, nil result when none
func (r *PostgresRoleRepository) GetByUserID(ctx context.Context, userID string) (*domain.RoleAssignment, error) {
	query := `
		SELECT user_id, role
		FROM user_roles
		WHERE user_id = $1
	`
	assignment := &domain.RoleAssignment{}
	err := r.pool.QueryRow(ctx, query, userID).Scan(
		&assignment.UserID,
		&assignment.Role,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return assignment, nil
}

// Upsert writes the role mapping. The conflict target (user_id, role) makes
// repeated identical assignments idempotent; any other role held by the user
// is removed in the same statement so at most one row survives.
func (r *PostgresRoleRepository) Upsert(ctx context.Context, assignment *domain.RoleAssignment) error {
	query := `
		WITH removed AS (
			DELETE FROM user_roles WHERE user_id = $1 AND role <> $2
		)
		INSERT INTO user_roles (user_id, role)
		VALUES ($1, $2)
		ON CONFLICT (user_id, role) DO UPDATE SET updated_at = NOW()
	`
	_, err := r.pool.Exec(ctx, query, assignment.UserID, assignment.Role)
	return err
}

// Exists checks whether any role row exists for the user
func (r *PostgresRoleRepository) Exists(ctx context.Context, userID string) (bool, error) {
	query := `SELECT EXISTS(SELECT 1 FROM user_roles WHERE user_id = $1)`
	var exists bool
	err := r.pool.QueryRow(ctx, query, userID).Scan(&exists)
	return exists, err
}
