package models

import (
	"time"

	"gorm.io/gorm"
)

// User is an account. Email is the login identifier.
type User struct {
	ID          uint           `gorm:"primaryKey" json:"id"`
	Email       string         `gorm:"uniqueIndex;size:255;not null" json:"email"`
	Username    string         `gorm:"size:50" json:"user_name"`
	Password    string         `gorm:"size:255" json:"-"` // bcrypt hash
	FirstName   string         `gorm:"size:50" json:"first_name"`
	LastName    string         `gorm:"size:50" json:"last_name"`
	PhoneNumber string         `gorm:"size:20" json:"phone_number"`
	Department  string         `gorm:"size:300" json:"department"`
	ImageURL    string         `gorm:"size:500" json:"image_url"`
	IsAdmin     bool           `gorm:"default:false" json:"is_admin"`
	IsActive    bool           `gorm:"default:true" json:"is_active"`
	IsVerified  bool           `gorm:"default:true" json:"is_verified"`
	LastLogin   *time.Time     `json:"last_login"`
	CreatedAt   time.Time      `json:"created_at"`
	UpdatedAt   time.Time      `json:"updated_at"`
	DeletedAt   gorm.DeletedAt `gorm:"index" json:"-"`
}

func (User) TableName() string { return "users" }

func (u *User) FullName() string {
	switch {
	case u.FirstName == "":
		return u.LastName
	case u.LastName == "":
		return u.FirstName
	}
	return u.FirstName + " " + u.LastName
}
