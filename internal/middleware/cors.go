package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// CORSConfig holds CORS configuration
type CORSConfig struct {
	AllowOrigin  string
	AllowHeaders string
	AllowMethods string
}

// DefaultCORSConfig returns the default CORS configuration. The header
// allow-list mirrors what browser auth clients send.
func DefaultCORSConfig() CORSConfig {
	return CORSConfig{
		AllowOrigin:  "*",
		AllowHeaders: "authorization, x-client-info, apikey, content-type",
		AllowMethods: "GET, POST, PUT, DELETE, OPTIONS",
	}
}

// CORS middleware with default configuration
func CORS() gin.HandlerFunc {
	return CORSWithConfig(DefaultCORSConfig())
}

// CORSWithConfig middleware with custom configuration. Preflight requests
// are answered with 204 before any auth or rate limit check runs.
func CORSWithConfig(config CORSConfig) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("Access-Control-Allow-Origin", config.AllowOrigin)
		c.Header("Access-Control-Allow-Headers", config.AllowHeaders)
		c.Header("Access-Control-Allow-Methods", config.AllowMethods)

		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	}
}
