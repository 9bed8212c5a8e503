package auth

import (
	"net/http"

	"github.com/labstack/echo/v4"
)

var publicPaths = map[string]bool{
	"/health":    true,
	"/health/db": true,
}

// AuthSkipper reports whether a request bypasses authentication: health
// checks and CORS preflights.
func AuthSkipper(c echo.Context) bool {
	if c.Request().Method == http.MethodOptions {
		return true
	}
	return publicPaths[c.Path()]
}
