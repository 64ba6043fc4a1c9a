package handler

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/duo/internal/service"
)

// Base carries what every handler needs.
type Base struct {
	Log     *slog.Logger
	Timeout time.Duration
}

// ctx bounds store calls made for one request.
func (b Base) ctx(c echo.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(c.Request().Context(), b.Timeout)
}

// statusFor maps a service error kind to an HTTP status.
func statusFor(err error) int {
	switch {
	case errors.Is(err, service.ErrValidation):
		return http.StatusBadRequest
	case errors.Is(err, service.ErrConflict):
		return http.StatusConflict
	case errors.Is(err, service.ErrUnauthorized):
		return http.StatusUnauthorized
	case errors.Is(err, service.ErrNotFound):
		return http.StatusNotFound
	}
	return http.StatusInternalServerError
}

// fail writes {"error": msg}. Messages of unexpected errors stay in the log.
func (b Base) fail(c echo.Context, op string, err error) error {
	status := statusFor(err)
	msg := "Internal error"
	var oe service.OpError
	if errors.As(err, &oe) && (status != http.StatusInternalServerError || errors.Is(err, service.ErrExhaustedRetries)) {
		msg = oe.PublicMessage()
	}
	if status == http.StatusInternalServerError {
		b.Log.Error(op+".failed", "err", err)
	}
	return c.JSON(status, echo.Map{"error": msg})
}

func badRequest(c echo.Context, msg string) error {
	return c.JSON(http.StatusBadRequest, echo.Map{"error": msg})
}

func unauthorized(c echo.Context) error {
	return c.JSON(http.StatusUnauthorized, echo.Map{"error": "Unauthorized"})
}
