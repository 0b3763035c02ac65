package models

import "time"

// Token is the persisted access/refresh pair of one login or refresh.
// Only SHA-256 digests of the signed strings are stored. Records are never
// deleted; they move to IsExpired=true and stay there. A nil expiry means the
// token was issued without one.
type Token struct {
	ID               uint       `gorm:"primaryKey" json:"id"`
	UserID           uint       `gorm:"index:idx_tokens_user_live,priority:1;not null" json:"user_id"`
	AccessTokenHash  string     `gorm:"uniqueIndex;size:64;not null" json:"-"`
	RefreshTokenHash string     `gorm:"uniqueIndex;size:64;not null" json:"-"`
	AccessExpiresAt  *time.Time `json:"access_expires_at"`
	RefreshExpiresAt *time.Time `gorm:"index" json:"refresh_expires_at"`
	IsExpired        bool       `gorm:"index:idx_tokens_user_live,priority:2;not null;default:false" json:"is_expired"`
	CreatedByIP      string     `gorm:"size:64" json:"created_by_ip,omitempty"`
	UserAgent        string     `gorm:"size:255" json:"user_agent,omitempty"`
	CreatedAt        time.Time  `json:"created_at"`
	UpdatedAt        time.Time  `json:"updated_at"`
}

func (Token) TableName() string { return "tokens" }
