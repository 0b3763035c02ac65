package models

import "time"

type Notification struct {
	ID               uint      `gorm:"primaryKey" json:"id"`
	UserID           uint      `gorm:"index;not null" json:"user_id"`
	NotificationText string    `gorm:"type:text" json:"notification_text"`
	CreatedAt        time.Time `gorm:"index" json:"created_at"`
	UpdatedAt        time.Time `json:"updated_at"`
}

func (Notification) TableName() string { return "user_notifications" }
