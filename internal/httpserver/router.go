package httpserver

import (
	"log/slog"
	"net/http"

	"github.com/labstack/echo/v4"
	ecM "github.com/labstack/echo/v4/middleware"

	"github.com/PaulavetsPavel/test-jwt/internal/middleware"
)

type Deps struct {
	AuthHandler *AuthHTTP
	AuthMW      *middleware.Auth
	Logger      *slog.Logger
}

func Register(e *echo.Echo, d *Deps) {
	e.Use(ecM.Recover(), ecM.RequestID(), middleware.RequestLogger(d.Logger))

	e.GET("/health/live", func(c echo.Context) error { return c.NoContent(http.StatusOK) })
	e.GET("/health/ready", func(c echo.Context) error { return c.NoContent(http.StatusOK) })

	e.POST("/register", d.AuthHandler.Register)
	e.POST("/login", d.AuthHandler.Login)
	e.POST("/refresh", d.AuthHandler.Refresh)

	private := e.Group("")
	private.Use(d.AuthMW.RequireAuth)

	private.GET("/me", d.AuthHandler.Me)
}
