package middleware

import (
	"github.com/labstack/echo/v4"

	"github.com/shopmesh/commerce-api/internal/core/domain"
	"github.com/shopmesh/commerce-api/internal/core/ports"
)

const accessTokenCookie = "accessToken"

// Auth is the request authenticator: it extracts the access token from its
// cookie, verifies it through the session service, and attaches the resolved
// identity to the echo context for downstream handlers.
//
// The failure mode matters to clients: a missing or expired token signals
// "attempt a refresh", while a malformed or forged one signals "log in
// again" — probing with invalid tokens must never reach the refresh flow.
// Both mappings live in the central error handler; this middleware only
// surfaces the distinct errors.
func Auth(sessions ports.SessionService) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			cookie, err := c.Cookie(accessTokenCookie)
			if err != nil || cookie.Value == "" {
				return domain.ErrNoAccessToken
			}

			user, err := sessions.Authenticate(c.Request().Context(), cookie.Value)
			if err != nil {
				return err
			}

			c.Set("user", user)
			c.Set("role", user.Role)
			return next(c)
		}
	}
}
