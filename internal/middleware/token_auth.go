package middleware

import (
	"crypto/subtle"
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog/log"
)

// TokenAuthMiddleware guards the API with a single shared bearer secret
type TokenAuthMiddleware struct {
	secret []byte
}

// NewTokenAuthMiddleware creates a new TokenAuthMiddleware. An empty secret
// disables authentication.
func NewTokenAuthMiddleware(secret string) *TokenAuthMiddleware {
	return &TokenAuthMiddleware{secret: []byte(secret)}
}

// Enabled reports whether a secret is configured
func (m *TokenAuthMiddleware) Enabled() bool {
	return len(m.secret) > 0
}

// Authenticate returns an Echo middleware that checks the bearer secret
func (m *TokenAuthMiddleware) Authenticate() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if !m.Enabled() {
				return next(c)
			}

			authHeader := c.Request().Header.Get("Authorization")
			if authHeader == "" {
				return unauthorizedError(c, "Missing authorization header")
			}

			// Check Bearer prefix
			parts := strings.SplitN(authHeader, " ", 2)
			if len(parts) != 2 || strings.ToLower(parts[0]) != "bearer" {
				return unauthorizedError(c, "Invalid authorization header format")
			}

			token := strings.TrimSpace(parts[1])
			if subtle.ConstantTimeCompare([]byte(token), m.secret) != 1 {
				log.Debug().Str("path", c.Request().URL.Path).Msg("Rejected request with wrong API token")
				return unauthorizedError(c, "Invalid API token")
			}

			return next(c)
		}
	}
}
