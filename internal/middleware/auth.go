package middleware

import (
	"errors"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/PaulavetsPavel/test-jwt/internal/service"
)

const (
	CtxUser     = "user"
	CtxDeviceID = "device_id"
)

type Auth struct {
	Svc *service.AuthService
}

func NewAuth(svc *service.AuthService) *Auth {
	return &Auth{Svc: svc}
}

func (m *Auth) RequireAuth(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		header := c.Request().Header.Get(echo.HeaderAuthorization)
		token, ok := strings.CutPrefix(header, "Bearer ")
		if !ok || token == "" {
			return echo.NewHTTPError(http.StatusUnauthorized, "access token missing")
		}

		user, deviceID, err := m.Svc.Identify(c.Request().Context(), token)
		switch {
		case errors.Is(err, service.ErrNotFound):
			return echo.NewHTTPError(http.StatusNotFound, "user not found")
		case errors.Is(err, service.ErrUnauthorized):
			return echo.NewHTTPError(http.StatusUnauthorized, "invalid or expired access token")
		case err != nil:
			// store failures surface as 500, not as an auth rejection
			return err
		}

		c.Set(CtxUser, user)
		c.Set(CtxDeviceID, deviceID)
		return next(c)
	}
}
