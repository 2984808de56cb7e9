package repo

import (
	"context"
	"errors"

	"github.com/PaulavetsPavel/test-jwt/internal/models"
)

var (
	ErrNotFound   = errors.New("user not found")
	ErrUserExists = errors.New("user already exists")
)

// UserRepo is the credential store: user records plus one refresh-token
// slot per (user, device) pair. Backed by a flat JSON file in the
// default setup, or by a SQL database via GormRepo.
type UserRepo interface {
	FindByUsername(ctx context.Context, username string) (*models.User, error)
	FindByID(ctx context.Context, id string) (*models.User, error)
	Create(ctx context.Context, username, passwordHash string) (*models.User, error)
	SetDeviceToken(ctx context.Context, userID, deviceID, refreshToken string) error
}
