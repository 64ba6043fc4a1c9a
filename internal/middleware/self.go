package middleware

import (
	"net/http"

	"github.com/labstack/echo/v4"
)

// IsSelf reports whether the authenticated user owns uid.
func IsSelf(c echo.Context, uid string) bool {
	u := CurrentUser(c)
	return u != nil && uid != "" && u.UID == uid
}

// RequireSelf only lets a user mutate their own record: the path
// parameter named param must equal the authenticated uid, else 401.
func RequireSelf(param string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if !IsSelf(c, c.Param(param)) {
				return c.JSON(http.StatusUnauthorized, echo.Map{"error": "Unauthorized"})
			}
			return next(c)
		}
	}
}
