package main

import (
	"context"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/PaulavetsPavel/test-jwt/internal/config"
	"github.com/PaulavetsPavel/test-jwt/internal/db"
	"github.com/PaulavetsPavel/test-jwt/internal/events"
	"github.com/PaulavetsPavel/test-jwt/internal/httpserver"
	"github.com/PaulavetsPavel/test-jwt/internal/logging"
	"github.com/PaulavetsPavel/test-jwt/internal/middleware"
	"github.com/PaulavetsPavel/test-jwt/internal/repo"
	"github.com/PaulavetsPavel/test-jwt/internal/service"
	"github.com/PaulavetsPavel/test-jwt/internal/tokens"
)

func main() {
	cfg := config.Load()
	config.MustNonEmptyBytes(cfg.AccessSecret, "JWT_ACCESS_SECRET")
	config.MustNonEmptyBytes(cfg.RefreshSecret, "JWT_REFRESH_SECRET")

	logger := logging.New(cfg.LogLevel)
	slog.SetDefault(logger)

	userRepo, err := buildRepo(cfg)
	if err != nil {
		log.Fatalf("store init error: %v", err)
	}

	svc := &service.AuthService{
		Repo: userRepo,
		Issuer: &tokens.Issuer{
			AccessSecret:  cfg.AccessSecret,
			RefreshSecret: cfg.RefreshSecret,
			AccessTTL:     cfg.AccessTTL,
			RefreshTTL:    cfg.RefreshTTL,
			Leeway:        cfg.Leeway,
		},
	}

	if len(cfg.KafkaBrokers) > 0 {
		producer := events.NewProducer(cfg.KafkaBrokers, "auth-events")
		defer producer.Close()
		svc.Events = producer
	}

	e := echo.New()
	e.HideBanner = true
	e.Server.ReadTimeout = 10 * time.Second
	e.Server.WriteTimeout = 15 * time.Second
	e.Server.ReadHeaderTimeout = 3 * time.Second

	httpserver.Register(e, &httpserver.Deps{
		AuthHandler: &httpserver.AuthHTTP{Svc: svc},
		AuthMW:      middleware.NewAuth(svc),
		Logger:      logger,
	})

	go func() {
		if err := e.Start(cfg.ListenAddr); err != nil && err != http.ErrServerClosed {
			log.Fatalf("start: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(ctx); err != nil {
		log.Fatalf("shutdown: %v", err)
	}
}

func buildRepo(cfg config.Config) (repo.UserRepo, error) {
	if cfg.DatabaseURL != "" {
		initCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		gdb, err := db.Open(initCtx, cfg.DatabaseURL)
		if err != nil {
			return nil, err
		}
		return repo.NewGormRepo(gdb)
	}
	return repo.NewFileRepo(cfg.UsersFile)
}
