package middleware // middleware provides the request gate and shared request processing for handlers

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/duo/internal/model"
)

const (
	ctxUserKey  = "user"
	ctxTokenKey = "token"
)

// SessionResolver maps a raw bearer token to its user; (nil, nil) means
// the token is unknown or expired.
type SessionResolver interface {
	Resolve(ctx context.Context, token string) (*model.User, error)
}

// BearerToken extracts the token from an "Authorization: Bearer <t>"
// header. The scheme is matched exactly.
func BearerToken(header string) (string, bool) {
	if !strings.HasPrefix(header, "Bearer ") {
		return "", false
	}
	tok := strings.TrimSpace(strings.TrimPrefix(header, "Bearer "))
	return tok, tok != ""
}

// Authenticate resolves the bearer token, when present, and stores the
// user for CurrentUser. Requests without a valid token pass through
// anonymously; a store failure aborts with 500.
func Authenticate(sessions SessionResolver, log *slog.Logger) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			tok, ok := BearerToken(c.Request().Header.Get(echo.HeaderAuthorization))
			if !ok {
				return next(c)
			}
			c.Set(ctxTokenKey, tok)
			u, err := sessions.Resolve(c.Request().Context(), tok)
			if err != nil {
				log.Error("auth.resolve.failed", "err", err)
				return c.JSON(http.StatusInternalServerError, echo.Map{"error": "Internal error"})
			}
			if u != nil {
				c.Set(ctxUserKey, u)
			}
			return next(c)
		}
	}
}

// RequireAuth rejects requests that Authenticate left anonymous.
func RequireAuth() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if CurrentUser(c) == nil {
				return c.JSON(http.StatusUnauthorized, echo.Map{"error": "Unauthorized"})
			}
			return next(c)
		}
	}
}

// CurrentUser returns the authenticated user or nil.
func CurrentUser(c echo.Context) *model.User {
	u, _ := c.Get(ctxUserKey).(*model.User)
	return u
}

// RawToken returns the bearer token presented on this request, if any.
func RawToken(c echo.Context) string {
	t, _ := c.Get(ctxTokenKey).(string)
	return t
}
