package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/fitloop/backend-auth/internal/domain"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresRosterRepository implements RosterRepository using PostgreSQL.
// Coaches and clients each get one auxiliary row keyed by user_id.
type PostgresRosterRepository struct {
	pool *pgxpool.Pool
}

// NewPostgresRosterRepository creates a new PostgresRosterRepository
func NewPostgresRosterRepository(pool *pgxpool.Pool) *PostgresRosterRepository {
	return &PostgresRosterRepository{pool: pool}
}

// UpsertCoach provisions the coach record for a user, idempotent
func (r *PostgresRosterRepository) UpsertCoach(ctx context.Context, userID string) error {
	query := `
		INSERT INTO coaches (user_id, created_at)
		VALUES ($1, $2)
		ON CONFLICT (user_id) DO NOTHING
	`
	_, err := r.pool.Exec(ctx, query, userID, time.Now())
	return err
}

// UpsertClient provisions the client record for a user, idempotent
func (r *PostgresRosterRepository) UpsertClient(ctx context.Context, userID string) error {
	query := `
		INSERT INTO clients (user_id, created_at)
		VALUES ($1, $2)
		ON CONFLICT (user_id) DO NOTHING
	`
	_, err := r.pool.Exec(ctx, query, userID, time.Now())
	return err
}

// ListMissing returns user IDs holding the role but missing their auxiliary
// record. Only coach and client roles carry auxiliary records.
func (r *PostgresRosterRepository) ListMissing(ctx context.Context, role domain.Role) ([]string, error) {
	var table string
	switch role {
	case domain.RoleCoach:
		table = "coaches"
	case domain.RoleClient:
		table = "clients"
	default:
		return nil, fmt.Errorf("role %q has no auxiliary record", role)
	}

	query := fmt.Sprintf(`
		SELECT ur.user_id
		FROM user_roles ur
		LEFT JOIN %s aux ON aux.user_id = ur.user_id
		WHERE ur.role = $1 AND aux.user_id IS NULL
	`, table)

	rows, err := r.pool.Query(ctx, query, role)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}
