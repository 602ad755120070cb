package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/fitloop/backend-auth/internal/domain"
	"github.com/fitloop/backend-auth/internal/service"
	"github.com/fitloop/backend-auth/pkg/response"
)

const (
	// ContextUserIDKey is the gin context key for the authenticated user ID
	ContextUserIDKey = "user_id"
	// ContextEmailKey is the gin context key for the authenticated email
	ContextEmailKey = "email"
	// ContextRoleKey is the gin context key for the authenticated role
	ContextRoleKey = "role"
)

// Authenticate validates the Bearer token and stores the claims in the
// request context. Requests without a valid token are rejected with 401.
func Authenticate(authService service.AuthService) gin.HandlerFunc {
	return func(c *gin.Context) {
		token, ok := bearerToken(c)
		if !ok {
			response.Unauthorized(c, "Authorization header is required")
			c.Abort()
			return
		}

		claims, err := authService.ValidateToken(c.Request.Context(), token)
		if err != nil {
			response.Unauthorized(c, "Invalid or expired access token")
			c.Abort()
			return
		}

		c.Set(ContextUserIDKey, claims.UserID)
		c.Set(ContextEmailKey, claims.Email)
		c.Set(ContextRoleKey, string(claims.Role))

		c.Next()
	}
}

// RequireRoles rejects authenticated requests whose role is not in the
// allow-list. Must be installed after Authenticate. A user without a role
// never passes: an empty role matches nothing.
func RequireRoles(roles ...domain.Role) gin.HandlerFunc {
	return func(c *gin.Context) {
		role := domain.Role(c.GetString(ContextRoleKey))
		for _, allowed := range roles {
			if role == allowed && role != domain.RoleNone {
				c.Next()
				return
			}
		}

		response.Forbidden(c, "Insufficient role")
		c.Abort()
	}
}

// UserID returns the authenticated user ID from the gin context
func UserID(c *gin.Context) string {
	return c.GetString(ContextUserIDKey)
}

func bearerToken(c *gin.Context) (string, bool) {
	header := c.GetHeader("Authorization")
	if header == "" {
		return "", false
	}

	const bearerPrefix = "Bearer "
	if !strings.HasPrefix(header, bearerPrefix) || len(header) <= len(bearerPrefix) {
		return "", false
	}
	return header[len(bearerPrefix):], true
}
