package models

import "time"

// User is the persisted account record. Devices maps a device ID to the
// refresh token currently valid for that device; rotating a token
// overwrites the slot and invalidates the previous one.
type User struct {
	ID           string            `gorm:"primaryKey"      json:"id"`
	Username     string            `gorm:"unique;not null" json:"username"`
	PasswordHash string            `gorm:"not null"        json:"password_hash"`
	Devices      map[string]string `gorm:"-"               json:"devices"`
	CreatedAt    time.Time         `json:"created_at"`
}

// Device is one refresh-token slot as stored by the SQL repository. The
// file repository keeps the same data inline in User.Devices.
type Device struct {
	ID           uint   `gorm:"primaryKey;autoIncrement"             json:"id"`
	UserID       string `gorm:"index:idx_user_device,unique;not null" json:"user_id"`
	DeviceID     string `gorm:"index:idx_user_device,unique;not null" json:"device_id"`
	RefreshToken string `gorm:"not null"                              json:"refresh_token"`
}

// PublicUser is the view of a user exposed in API responses.
type PublicUser struct {
	ID       string `json:"id"`
	Username string `json:"username"`
}

func (u *User) Public() PublicUser {
	return PublicUser{ID: u.ID, Username: u.Username}
}
