package service

import (
	"context"
	"crypto/subtle"
	"errors"
	"time"
	"unicode/utf8"

	"github.com/PaulavetsPavel/test-jwt/internal/events"
	"github.com/PaulavetsPavel/test-jwt/internal/hash"
	"github.com/PaulavetsPavel/test-jwt/internal/logging"
	"github.com/PaulavetsPavel/test-jwt/internal/models"
	"github.com/PaulavetsPavel/test-jwt/internal/repo"
	"github.com/PaulavetsPavel/test-jwt/internal/tokens"
)

var (
	ErrInvalidInput = errors.New("invalid username or password shape")
	ErrConflict     = errors.New("username already exists")
	ErrUnauthorized = errors.New("invalid credentials")
	ErrForbidden    = errors.New("refresh token revoked or invalid")
	ErrNotFound     = errors.New("user not found")
)

const (
	minUsernameLen = 3
	minPasswordLen = 6
)

type AuthService struct {
	Repo   repo.UserRepo
	Issuer *tokens.Issuer
	Events events.Publisher
}

type AuthResult struct {
	Pair tokens.Pair
	User models.PublicUser
}

func (s *AuthService) Register(ctx context.Context, username, password, deviceID string) (*AuthResult, error) {
	l := logging.FromContext(ctx).With("svc", "auth.register")

	// limits are in characters, not bytes, so multibyte names count right
	if utf8.RuneCountInString(username) < minUsernameLen || utf8.RuneCountInString(password) < minPasswordLen {
		return nil, ErrInvalidInput
	}

	if _, err := s.Repo.FindByUsername(ctx, username); err == nil {
		l.Warn("register_conflict", "username", username)
		return nil, ErrConflict
	} else if !errors.Is(err, repo.ErrNotFound) {
		return nil, err
	}

	pwHash, err := hash.HashPassword(password)
	if err != nil {
		l.Error("register_error", "reason", "cannot hash the password", "error", err)
		return nil, err
	}

	user, err := s.Repo.Create(ctx, username, pwHash)
	if err != nil {
		if errors.Is(err, repo.ErrUserExists) {
			return nil, ErrConflict
		}
		return nil, err
	}

	pair, err := s.issueFor(ctx, user.ID, deviceID)
	if err != nil {
		return nil, err
	}

	s.publish(ctx, user.ID, events.UserRegistered{
		UserID:   user.ID,
		Username: user.Username,
		At:       time.Now().UTC(),
	})

	l.Info("register_successful", "user_id", user.ID)
	return &AuthResult{Pair: *pair, User: user.Public()}, nil
}

func (s *AuthService) Login(ctx context.Context, username, password, deviceID string) (*AuthResult, error) {
	l := logging.FromContext(ctx).With("svc", "auth.login")

	if username == "" || password == "" {
		return nil, ErrInvalidInput
	}

	// absent user and wrong password collapse into one error so the
	// response does not reveal which usernames exist
	user, err := s.Repo.FindByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			l.Warn("login_failed", "reason", "unknown username")
			return nil, ErrUnauthorized
		}
		return nil, err
	}
	if !hash.CheckPassword(user.PasswordHash, password) {
		l.Warn("login_failed", "reason", "password mismatch", "user_id", user.ID)
		return nil, ErrUnauthorized
	}

	pair, err := s.issueFor(ctx, user.ID, deviceID)
	if err != nil {
		return nil, err
	}

	l.Info("login_successful", "user_id", user.ID)
	return &AuthResult{Pair: *pair, User: user.Public()}, nil
}

func (s *AuthService) Refresh(ctx context.Context, refreshToken, deviceID string) (*tokens.Pair, error) {
	l := logging.FromContext(ctx).With("svc", "auth.refresh")

	if refreshToken == "" {
		return nil, ErrInvalidInput
	}

	claims, err := s.Issuer.ParseRefresh(refreshToken)
	if err != nil {
		l.Warn("refresh_failed", "reason", "invalid token")
		return nil, ErrForbidden
	}
	if claims.DeviceID != deviceID {
		l.Warn("refresh_failed", "reason", "device mismatch", "user_id", claims.UserID)
		return nil, ErrForbidden
	}

	user, err := s.Repo.FindByID(ctx, claims.UserID)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}

	// the presented token must match the slot byte for byte; a rotated
	// or revoked token fails here even if its signature is still valid
	stored := user.Devices[deviceID]
	if stored == "" || subtle.ConstantTimeCompare([]byte(stored), []byte(refreshToken)) != 1 {
		l.Warn("refresh_failed", "reason", "superseded token", "user_id", user.ID)
		return nil, ErrForbidden
	}

	pair, err := s.issueFor(ctx, user.ID, deviceID)
	if err != nil {
		return nil, err
	}

	s.publish(ctx, user.ID, events.TokenRefreshed{
		UserID:   user.ID,
		DeviceID: deviceID,
		At:       time.Now().UTC(),
	})

	l.Info("refresh_successful", "user_id", user.ID)
	return pair, nil
}

func (s *AuthService) Identify(ctx context.Context, accessToken string) (*models.User, string, error) {
	if accessToken == "" {
		return nil, "", ErrUnauthorized
	}

	claims, err := s.Issuer.ParseAccess(accessToken)
	if err != nil {
		return nil, "", ErrUnauthorized
	}

	user, err := s.Repo.FindByID(ctx, claims.UserID)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return nil, "", ErrNotFound
		}
		return nil, "", err
	}
	return user, claims.DeviceID, nil
}

// issueFor mints a pair and rotates the device slot, invalidating any
// refresh token previously stored for that device.
func (s *AuthService) issueFor(ctx context.Context, userID, deviceID string) (*tokens.Pair, error) {
	pair, err := s.Issuer.IssuePair(userID, deviceID)
	if err != nil {
		return nil, err
	}
	if err := s.Repo.SetDeviceToken(ctx, userID, deviceID, pair.RefreshToken); err != nil {
		return nil, err
	}
	return pair, nil
}

func (s *AuthService) publish(ctx context.Context, key string, event any) {
	if s.Events == nil {
		return
	}
	if err := s.Events.Publish(ctx, key, event); err != nil {
		logging.FromContext(ctx).Warn("event_publish_failed", "error", err)
	}
}
