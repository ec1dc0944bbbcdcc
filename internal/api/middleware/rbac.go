package middleware

import (
	"github.com/labstack/echo/v4"

	"github.com/shopmesh/commerce-api/internal/core/domain"
)

// RequireRole passes requests whose attached identity holds one of the
// allowed roles. It must run after Auth; a missing identity is Forbidden,
// never a panic.
func RequireRole(allowedRoles ...string) echo.MiddlewareFunc {
	allowed := make(map[string]struct{}, len(allowedRoles))
	for _, r := range allowedRoles {
		allowed[r] = struct{}{}
	}

	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			role, _ := c.Get("role").(string)
			if _, ok := allowed[role]; !ok {
				return domain.ErrForbidden
			}
			return next(c)
		}
	}
}

// RequireAdmin is the admin gate used by the administrative routes.
func RequireAdmin() echo.MiddlewareFunc {
	return RequireRole(domain.RoleAdmin)
}
