package httpserver

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/PaulavetsPavel/test-jwt/internal/logging"
	"github.com/PaulavetsPavel/test-jwt/internal/middleware"
	"github.com/PaulavetsPavel/test-jwt/internal/models"
	"github.com/PaulavetsPavel/test-jwt/internal/service"
	"github.com/PaulavetsPavel/test-jwt/internal/transport"
)

// DefaultDeviceID is used when the caller sends no x-device-id header.
// All such callers share one refresh-token slot; that is a policy
// choice, not a security boundary.
const (
	DeviceIDHeader  = "x-device-id"
	DefaultDeviceID = "default-device"
)

type AuthHTTP struct {
	Svc *service.AuthService
}

func deviceID(c echo.Context) string {
	if id := c.Request().Header.Get(DeviceIDHeader); id != "" {
		return id
	}
	return DefaultDeviceID
}

func httpError(err error, fallback string) *echo.HTTPError {
	switch {
	case errors.Is(err, service.ErrInvalidInput):
		return echo.NewHTTPError(http.StatusBadRequest, "invalid username or password")
	case errors.Is(err, service.ErrConflict):
		return echo.NewHTTPError(http.StatusConflict, "username already exists")
	case errors.Is(err, service.ErrUnauthorized):
		return echo.NewHTTPError(http.StatusUnauthorized, "invalid credentials")
	case errors.Is(err, service.ErrForbidden):
		return echo.NewHTTPError(http.StatusForbidden, "invalid or expired refresh token")
	case errors.Is(err, service.ErrNotFound):
		return echo.NewHTTPError(http.StatusNotFound, "user not found")
	default:
		return echo.NewHTTPError(http.StatusInternalServerError, fallback)
	}
}

func (h *AuthHTTP) Register(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "auth_register")

	var req transport.CredentialsRequest
	if err := c.Bind(&req); err != nil {
		l.Warn("register_error", "status", 400, "error", err)
		return echo.NewHTTPError(http.StatusBadRequest, "invalid body")
	}

	res, err := h.Svc.Register(ctx, req.Username, req.Password, deviceID(c))
	if err != nil {
		return httpError(err, "register failed")
	}

	return c.JSON(http.StatusCreated, transport.AuthResponse{
		AccessToken:  res.Pair.AccessToken,
		RefreshToken: res.Pair.RefreshToken,
		User:         res.User,
	})
}

func (h *AuthHTTP) Login(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "auth_login")

	var req transport.CredentialsRequest
	if err := c.Bind(&req); err != nil {
		l.Warn("login_error", "status", 400, "error", err)
		return echo.NewHTTPError(http.StatusBadRequest, "invalid body")
	}

	res, err := h.Svc.Login(ctx, req.Username, req.Password, deviceID(c))
	if err != nil {
		return httpError(err, "login failed")
	}

	return c.JSON(http.StatusOK, transport.AuthResponse{
		AccessToken:  res.Pair.AccessToken,
		RefreshToken: res.Pair.RefreshToken,
		User:         res.User,
	})
}

func (h *AuthHTTP) Refresh(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "auth_refresh")

	var req transport.RefreshRequest
	if err := c.Bind(&req); err != nil {
		l.Warn("refresh_error", "status", 400, "error", err)
		return echo.NewHTTPError(http.StatusBadRequest, "invalid body")
	}

	pair, err := h.Svc.Refresh(ctx, req.RefreshToken, deviceID(c))
	if err != nil {
		return httpError(err, "refresh failed")
	}

	return c.JSON(http.StatusOK, transport.TokenResponse{
		AccessToken:  pair.AccessToken,
		RefreshToken: pair.RefreshToken,
	})
}

func (h *AuthHTTP) Me(c echo.Context) error {
	user, ok := c.Get(middleware.CtxUser).(*models.User)
	if !ok {
		return echo.NewHTTPError(http.StatusUnauthorized, "access token missing")
	}
	devID, _ := c.Get(middleware.CtxDeviceID).(string)

	return c.JSON(http.StatusOK, transport.MeResponse{
		User:     user.Public(),
		DeviceID: devID,
	})
}
