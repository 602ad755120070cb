package middleware

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/fitloop/backend-auth/pkg/response"
	pkgredis "github.com/fitloop/backend-auth/pkg/redis"
	"github.com/fitloop/backend-auth/pkg/telemetry"
)

// RateLimitConfig holds rate limiting configuration for credential endpoints
type RateLimitConfig struct {
	// Requests per second per client IP
	RequestsPerSecond int
	// Token bucket capacity
	BurstSize int
	// Redis key prefix
	KeyPrefix string
}

// DefaultRateLimitConfig returns defaults tuned for login and register
// endpoints, which take the brunt of credential stuffing.
func DefaultRateLimitConfig() RateLimitConfig {
	return RateLimitConfig{
		RequestsPerSecond: 5,
		BurstSize:         10,
		KeyPrefix:         "ratelimit:auth:",
	}
}

// Lua token bucket. Runs atomically on the Redis side so concurrent
// requests from the same IP cannot double-spend tokens.
const tokenBucketScript = `
local key = KEYS[1]
local rate = tonumber(ARGV[1])
local burst = tonumber(ARGV[2])
local now = tonumber(ARGV[3])

local data = redis.call("HMGET", key, "tokens", "last_update")
local tokens = tonumber(data[1]) or burst
local last_update = tonumber(data[2]) or now

local elapsed = now - last_update
tokens = math.min(burst, tokens + elapsed * rate)

local allowed = 0
if tokens >= 1 then
    tokens = tokens - 1
    allowed = 1
end

redis.call("HMSET", key, "tokens", tokens, "last_update", now)
redis.call("EXPIRE", key, 60)
return allowed
`

// RateLimiter creates a Redis-backed per-IP rate limiting middleware.
// Redis errors fail open: an unavailable limiter must not lock users out.
func RateLimiter(client *pkgredis.Client, config RateLimitConfig) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, span := telemetry.StartSpan(c.Request.Context(), "middleware.rate_limiter")
		defer span.End()
		c.Request = c.Request.WithContext(ctx)

		clientIP := c.ClientIP()
		span.SetAttributes(attribute.String("client_ip", clientIP))

		now := float64(time.Now().UnixNano()) / 1e9
		result := client.EvalWithFallback(ctx, "auth_token_bucket", tokenBucketScript,
			[]string{config.KeyPrefix + clientIP},
			float64(config.RequestsPerSecond),
			float64(config.BurstSize),
			now,
		)

		allowed := true
		if result.Err() == nil {
			if v, err := result.Int64(); err == nil {
				allowed = v == 1
			}
		}

		span.SetAttributes(attribute.Bool("allowed", allowed))

		if !allowed {
			span.SetStatus(codes.Error, "rate limit exceeded")
			c.Header("Retry-After", "1")
			c.Header("X-RateLimit-Limit", strconv.Itoa(config.RequestsPerSecond))
			response.TooManyRequests(c, "Too many attempts. Please retry shortly.")
			c.Abort()
			return
		}

		span.SetStatus(codes.Ok, "")
		c.Next()
	}
}
