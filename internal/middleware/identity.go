package middleware

import "github.com/labstack/echo/v4"

// currentUserID is the authenticated uid, or "anon" for rate limit keys
// and request logs.
func currentUserID(c echo.Context) string {
	if u := CurrentUser(c); u != nil {
		return u.UID
	}
	return "anon"
}
