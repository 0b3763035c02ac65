package services

import "time"

// Principal is the authenticated identity carried in every token.
type Principal struct {
	UserID  uint `json:"user_id"`
	IsAdmin bool `json:"is_admin"`
}

// TokenPair is returned by Login and Refresh. A nil expiry means the token
// never expires.
type TokenPair struct {
	UserID          uint       `json:"user_id"`
	AccessToken     string     `json:"access_token"`
	RefreshToken    string     `json:"refresh_token"`
	AccessExpireAt  *time.Time `json:"access_expire_at"`
	RefreshExpireAt *time.Time `json:"refresh_expire_at"`
}

// ClientMeta is recorded alongside each issued pair for auditing.
type ClientMeta struct {
	IP        string
	UserAgent string
}

// PageRequest is the common pagination query of list endpoints.
type PageRequest struct {
	Page     int `form:"page"`
	PageSize int `form:"page_size"`
}

const (
	defaultPageSize = 15
	maxPageSize     = 200
)

func (r *PageRequest) normalize() {
	if r.Page < 1 {
		r.Page = 1
	}
	if r.PageSize < 1 {
		r.PageSize = defaultPageSize
	}
	if r.PageSize > maxPageSize {
		r.PageSize = maxPageSize
	}
}

func (r *PageRequest) offset() int {
	return (r.Page - 1) * r.PageSize
}

// ListResult is one page of T.
type ListResult[T any] struct {
	Total    int64 `json:"total"`
	Page     int   `json:"page"`
	PageSize int   `json:"page_size"`
	Items    []T   `json:"items"`
}
