package auth

import (
	"github.com/labstack/echo/v4"
)

// RequireRole admits callers holding one of roles.
func RequireRole(roles ...Role) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			access, ok := AccessFromContext(c.Request().Context())
			if !ok {
				return ErrForbidden
			}
			for _, r := range roles {
				if access.Role == r {
					return next(c)
				}
			}
			return ErrForbidden
		}
	}
}
