package repo

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/PaulavetsPavel/test-jwt/internal/models"
)

// FileRepo keeps the whole user collection in one JSON file. Every read
// reloads the file and every mutation rewrites it, so the store and the
// backing medium never diverge. The mutex serializes the
// read-modify-write cycle so concurrent logins cannot lose an update.
type FileRepo struct {
	path string
	mu   sync.Mutex
}

func NewFileRepo(path string) (*FileRepo, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create store dir: %w", err)
		}
	}
	if _, err := os.Stat(path); os.IsNotExist(err) {
		if err := os.WriteFile(path, []byte("[]"), 0o600); err != nil {
			return nil, fmt.Errorf("init store file: %w", err)
		}
	} else if err != nil {
		return nil, err
	}
	return &FileRepo{path: path}, nil
}

func (r *FileRepo) FindByUsername(ctx context.Context, username string) (*models.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	users, err := r.load()
	if err != nil {
		return nil, err
	}
	for i := range users {
		if users[i].Username == username {
			return &users[i], nil
		}
	}
	return nil, ErrNotFound
}

func (r *FileRepo) FindByID(ctx context.Context, id string) (*models.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	users, err := r.load()
	if err != nil {
		return nil, err
	}
	for i := range users {
		if users[i].ID == id {
			return &users[i], nil
		}
	}
	return nil, ErrNotFound
}

func (r *FileRepo) Create(ctx context.Context, username, passwordHash string) (*models.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	users, err := r.load()
	if err != nil {
		return nil, err
	}
	for i := range users {
		if users[i].Username == username {
			return nil, ErrUserExists
		}
	}
	user := models.User{
		ID:           uuid.NewString(),
		Username:     username,
		PasswordHash: passwordHash,
		Devices:      map[string]string{},
		CreatedAt:    time.Now().UTC(),
	}
	users = append(users, user)
	if err := r.save(users); err != nil {
		return nil, err
	}
	return &user, nil
}

func (r *FileRepo) SetDeviceToken(ctx context.Context, userID, deviceID, refreshToken string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	users, err := r.load()
	if err != nil {
		return err
	}
	for i := range users {
		if users[i].ID == userID {
			if users[i].Devices == nil {
				users[i].Devices = map[string]string{}
			}
			users[i].Devices[deviceID] = refreshToken
			return r.save(users)
		}
	}
	return ErrNotFound
}

func (r *FileRepo) load() ([]models.User, error) {
	data, err := os.ReadFile(r.path)
	if err != nil {
		return nil, fmt.Errorf("read store: %w", err)
	}
	var users []models.User
	if err := json.Unmarshal(data, &users); err != nil {
		return nil, fmt.Errorf("decode %s: %w", r.path, err)
	}
	return users, nil
}

func (r *FileRepo) save(users []models.User) error {
	data, err := json.MarshalIndent(users, "", "  ")
	if err != nil {
		return err
	}
	if err := os.WriteFile(r.path, data, 0o600); err != nil {
		return fmt.Errorf("write store: %w", err)
	}
	return nil
}
