package handler

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/duo/internal/metrics"
	"github.com/iliyamo/duo/internal/middleware"
	"github.com/iliyamo/duo/internal/service"
)

// AuthHandler serves /api/auth.
type AuthHandler struct {
	Base
	Auth *service.AuthService
}

func NewAuthHandler(b Base, auth *service.AuthService) *AuthHandler {
	return &AuthHandler{Base: b, Auth: auth}
}

type signupReq struct {
	DisplayName string `json:"displayName"`
	Email       string `json:"email"`
	Password    string `json:"password"`
}

type loginReq struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func authResult(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, service.ErrConflict):
		return "conflict"
	case errors.Is(err, service.ErrUnauthorized):
		return "unauthorized"
	case errors.Is(err, service.ErrValidation):
		return "invalid"
	}
	return "error"
}

// Signup creates an account and returns it with a first session token.
func (h *AuthHandler) Signup(c echo.Context) error {
	var req signupReq
	if err := c.Bind(&req); err != nil {
		metrics.AuthRequests.WithLabelValues("signup", "invalid").Inc()
		return badRequest(c, "Invalid body")
	}
	ctx, cancel := h.ctx(c)
	defer cancel()

	u, issued, err := h.Auth.Signup(ctx, service.NewUser{
		DisplayName: req.DisplayName, Email: req.Email, Password: req.Password,
	})
	metrics.AuthRequests.WithLabelValues("signup", authResult(err)).Inc()
	if err != nil {
		return h.fail(c, "auth.signup", err)
	}
	h.Log.Info("auth.signup", "uid", u.UID)
	return c.JSON(http.StatusOK, authResp{User: toUserResp(u), Token: issued.Token, ExpiresAt: issued.ExpiresAt})
}

// Login verifies credentials and returns a new session token.
func (h *AuthHandler) Login(c echo.Context) error {
	var req loginReq
	if err := c.Bind(&req); err != nil {
		metrics.AuthRequests.WithLabelValues("login", "invalid").Inc()
		return badRequest(c, "Invalid body")
	}
	ctx, cancel := h.ctx(c)
	defer cancel()

	u, issued, err := h.Auth.Login(ctx, req.Email, req.Password)
	metrics.AuthRequests.WithLabelValues("login", authResult(err)).Inc()
	if err != nil {
		return h.fail(c, "auth.login", err)
	}
	return c.JSON(http.StatusOK, authResp{User: toUserResp(u), Token: issued.Token, ExpiresAt: issued.ExpiresAt})
}

// Logout revokes the presented token. It answers ok even without one.
func (h *AuthHandler) Logout(c echo.Context) error {
	ctx, cancel := h.ctx(c)
	defer cancel()

	err := h.Auth.Logout(ctx, middleware.RawToken(c))
	metrics.AuthRequests.WithLabelValues("logout", authResult(err)).Inc()
	if err != nil {
		return h.fail(c, "auth.logout", err)
	}
	return c.JSON(http.StatusOK, okResp)
}

// Me returns the authenticated user, or null.
func (h *AuthHandler) Me(c echo.Context) error {
	return c.JSON(http.StatusOK, echo.Map{"user": userOrNil(middleware.CurrentUser(c))})
}
