package repo

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/PaulavetsPavel/test-jwt/internal/models"
)

// GormRepo is the SQL-backed credential store. Device slots live in
// their own table with a unique (user_id, device_id) index, so a slot
// update is a single atomic upsert instead of a whole-store rewrite.
type GormRepo struct {
	DB *gorm.DB
}

func NewGormRepo(db *gorm.DB) (*GormRepo, error) {
	if err := db.AutoMigrate(&models.User{}, &models.Device{}); err != nil {
		return nil, err
	}
	return &GormRepo{DB: db}, nil
}

func (r *GormRepo) FindByUsername(ctx context.Context, username string) (*models.User, error) {
	var user models.User
	if err := r.DB.WithContext(ctx).Where("username = ?", username).First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	if err := r.attachDevices(ctx, &user); err != nil {
		return nil, err
	}
	return &user, nil
}

func (r *GormRepo) FindByID(ctx context.Context, id string) (*models.User, error) {
	var user models.User
	if err := r.DB.WithContext(ctx).Where("id = ?", id).First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	if err := r.attachDevices(ctx, &user); err != nil {
		return nil, err
	}
	return &user, nil
}

func (r *GormRepo) Create(ctx context.Context, username, passwordHash string) (*models.User, error) {
	user := models.User{
		ID:           uuid.NewString(),
		Username:     username,
		PasswordHash: passwordHash,
		CreatedAt:    time.Now().UTC(),
	}
	tx := r.DB.WithContext(ctx).Where("username = ?", username).FirstOrCreate(&user)
	if tx.Error != nil {
		return nil, tx.Error
	}
	if tx.RowsAffected == 0 {
		return nil, ErrUserExists
	}
	user.Devices = map[string]string{}
	return &user, nil
}

func (r *GormRepo) SetDeviceToken(ctx context.Context, userID, deviceID, refreshToken string) error {
	var count int64
	if err := r.DB.WithContext(ctx).Model(&models.User{}).Where("id = ?", userID).Count(&count).Error; err != nil {
		return err
	}
	if count == 0 {
		return ErrNotFound
	}
	dev := models.Device{UserID: userID, DeviceID: deviceID, RefreshToken: refreshToken}
	return r.DB.WithContext(ctx).
		Where("user_id = ? AND device_id = ?", userID, deviceID).
		Assign(models.Device{RefreshToken: refreshToken}).
		FirstOrCreate(&dev).Error
}

func (r *GormRepo) attachDevices(ctx context.Context, user *models.User) error {
	var devices []models.Device
	if err := r.DB.WithContext(ctx).Where("user_id = ?", user.ID).Find(&devices).Error; err != nil {
		return err
	}
	user.Devices = make(map[string]string, len(devices))
	for _, d := range devices {
		user.Devices[d.DeviceID] = d.RefreshToken
	}
	return nil
}
