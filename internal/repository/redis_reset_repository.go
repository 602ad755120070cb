package repository

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"

	pkgredis "github.com/fitloop/backend-auth/pkg/redis"
)

const resetKeyPrefix = "pwreset:"

// RedisResetTokenRepository implements ResetTokenRepository on Redis.
// The key TTL doubles as the token expiry.
type RedisResetTokenRepository struct {
	client *pkgredis.Client
}

// NewRedisResetTokenRepository creates a new RedisResetTokenRepository
func NewRedisResetTokenRepository(client *pkgredis.Client) *RedisResetTokenRepository {
	return &RedisResetTokenRepository{client: client}
}

// Store saves a reset token for a user with the given TTL
func (r *RedisResetTokenRepository) Store(ctx context.Context, token, userID string, ttl time.Duration) error {
	return r.client.Set(ctx, resetKeyPrefix+token, userID, ttl).Err()
}

// Consume redeems a token and deletes it. GETDEL keeps redemption atomic:
// two concurrent confirmations cannot both succeed.
func (r *RedisResetTokenRepository) Consume(ctx context.Context, token string) (string, error) {
	userID, err := r.client.GetDel(ctx, resetKeyPrefix+token)
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return "", nil
		}
		return "", err
	}
	return userID, nil
}
