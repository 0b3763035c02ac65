package models

import "time"

// Bookmark is a saved search result owned by a user.
type Bookmark struct {
	ID          uint      `gorm:"primaryKey" json:"id"`
	UserID      uint      `gorm:"index;not null" json:"user_id"`
	ContentID   int       `gorm:"not null" json:"content_id"`
	ContentText string    `gorm:"size:100" json:"content_text"`
	ContentURL  string    `gorm:"size:100" json:"content_url"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

func (Bookmark) TableName() string { return "user_bookmarks" }
