package models

import (
	"strings"
	"time"
)

// User is an account that owns projects, models and annotations.
type User struct {
	BaseModel

	Name        string     `gorm:"type:varchar(120);not null" json:"name"`
	Email       string     `gorm:"type:varchar(255);uniqueIndex;not null" json:"email"`
	Password    string     `gorm:"not null" json:"-"`
	LastLoginAt *time.Time `json:"last_login_at,omitempty"`
}

// NormaliseEmail lower-cases and trims an address before lookup or storage.
func NormaliseEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
