package services

import (
	"context"
	"errors"
	"net/url"
	"strings"
	"time"

	"github.com/webcrawler/backend/internal/models"
	"github.com/webcrawler/backend/internal/utils"
	"gorm.io/gorm"
)

var (
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrAccountDisabled    = errors.New("account is disabled")
	ErrEmailTaken         = errors.New("email already registered")
	ErrInvalidEmail       = errors.New("invalid email address")
	ErrWeakPassword       = errors.New("password must be 6-20 characters and contain a digit and one of !@#$%&*")
	ErrNotFound           = errors.New("record not found")
	ErrInvalidImageURL    = errors.New("image_url must be an http(s) URL of at most 500 characters")
)

// AccountService owns users and their credentials.
type AccountService struct {
	db *gorm.DB
}

func NewAccountService(db *gorm.DB) *AccountService {
	return &AccountService{db: db}
}

type RegisterRequest struct {
	Email       string `json:"email" binding:"required"`
	UserName    string `json:"user_name" binding:"required"`
	Password    string `json:"password" binding:"required"`
	FirstName   string `json:"first_name"`
	LastName    string `json:"last_name"`
	PhoneNumber string `json:"phone_number"`
	Department  string `json:"department"`
}

type LoginRequest struct {
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
}

type ChangePasswordRequest struct {
	OldPassword string `json:"old_password" binding:"required"`
	NewPassword string `json:"new_password" binding:"required"`
}

type UserListRequest struct {
	PageRequest
	Search string `form:"search"`
}

// UpdateUserRequest toggles account flags. Nil fields are left unchanged.
type UpdateUserRequest struct {
	IsActive *bool `json:"is_active"`
	IsAdmin  *bool `json:"is_admin"`
}

// UpdateProfileRequest edits the caller's own profile. Nil fields are left
// unchanged.
type UpdateProfileRequest struct {
	ImageURL    *string `json:"image_url"`
	FirstName   *string `json:"first_name"`
	LastName    *string `json:"last_name"`
	PhoneNumber *string `json:"phone_number"`
	Department  *string `json:"department"`
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func (s *AccountService) Register(ctx context.Context, req *RegisterRequest) (*models.User, error) {
	email := normalizeEmail(req.Email)
	if !utils.ValidEmail(email) {
		return nil, ErrInvalidEmail
	}
	if !utils.ValidPassword(req.Password) {
		return nil, ErrWeakPassword
	}

	var count int64
	if err := s.db.WithContext(ctx).Unscoped().Model(&models.User{}).Where("email = ?", email).Count(&count).Error; err != nil {
		return nil, err
	}
	if count > 0 {
		return nil, ErrEmailTaken
	}

	hash, err := utils.HashPassword(req.Password)
	if err != nil {
		return nil, err
	}

	user := &models.User{
		Email:       email,
		Username:    strings.TrimSpace(req.UserName),
		Password:    hash,
		FirstName:   req.FirstName,
		LastName:    req.LastName,
		PhoneNumber: req.PhoneNumber,
		Department:  req.Department,
		IsActive:    true,
		IsVerified:  true,
	}
	if err := s.db.WithContext(ctx).Create(user).Error; err != nil {
		// Lost a race with a concurrent registration of the same email.
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, ErrEmailTaken
		}
		return nil, err
	}
	return user, nil
}

// VerifyCredentials checks an email/password pair and records the login time.
func (s *AccountService) VerifyCredentials(ctx context.Context, email, password string) (*models.User, error) {
	var user models.User
	err := s.db.WithContext(ctx).Where("email = ?", normalizeEmail(email)).Take(&user).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrInvalidCredentials
	}
	if err != nil {
		return nil, err
	}

	if !utils.CheckPassword(password, user.Password) {
		return nil, ErrInvalidCredentials
	}
	if !user.IsActive || !user.IsVerified {
		return nil, ErrAccountDisabled
	}

	now := time.Now()
	if err := s.db.WithContext(ctx).Model(&user).Update("last_login", now).Error; err != nil {
		return nil, err
	}
	user.LastLogin = &now
	return &user, nil
}

// LookupPrincipal returns the current identity of an active user.
func (s *AccountService) LookupPrincipal(ctx context.Context, userID uint) (Principal, error) {
	var user models.User
	err := s.db.WithContext(ctx).Select("id", "is_admin", "is_active", "is_verified").Where("id = ?", userID).Take(&user).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return Principal{}, ErrPrincipalNotFound
	}
	if err != nil {
		return Principal{}, err
	}
	if !user.IsActive || !user.IsVerified {
		return Principal{}, ErrPrincipalNotFound
	}
	return Principal{UserID: user.ID, IsAdmin: user.IsAdmin}, nil
}

func (s *AccountService) GetUserByID(ctx context.Context, id uint) (*models.User, error) {
	var user models.User
	err := s.db.WithContext(ctx).Where("id = ?", id).Take(&user).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &user, nil
}

// PreparePasswordChange verifies the old password and validates the new one.
// The returned change writes the new hash; pass it to SessionManager.RevokeAll
// so the password and the session revocation commit together.
func (s *AccountService) PreparePasswordChange(ctx context.Context, userID uint, req *ChangePasswordRequest) (CredentialChange, error) {
	user, err := s.GetUserByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if !utils.CheckPassword(req.OldPassword, user.Password) {
		return nil, ErrInvalidCredentials
	}
	return replacePassword(user, req.NewPassword, ErrInvalidCredentials)
}

// replacePassword hashes password and returns a change that stores it only if
// the account still has the hash it was read with. A concurrent change makes
// it fail with conflict.
func replacePassword(user *models.User, password string, conflict error) (CredentialChange, error) {
	if !utils.ValidPassword(password) {
		return nil, ErrWeakPassword
	}
	hash, err := utils.HashPassword(password)
	if err != nil {
		return nil, err
	}

	id, current := user.ID, user.Password
	return func(tx *gorm.DB) error {
		res := tx.Model(&models.User{}).
			Where("id = ? AND password = ?", id, current).
			Update("password", hash)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return conflict
		}
		return nil
	}, nil
}

// ListUsers pages through non-admin users.
func (s *AccountService) ListUsers(ctx context.Context, req *UserListRequest) (*ListResult[models.User], error) {
	req.normalize()

	query := s.db.WithContext(ctx).Model(&models.User{}).Where("is_admin = ?", false)
	if req.Search != "" {
		like := "%" + req.Search + "%"
		query = query.Where("email LIKE ? OR username LIKE ? OR first_name LIKE ? OR last_name LIKE ?", like, like, like, like)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, err
	}

	users := []models.User{}
	if err := query.Order("id DESC").Offset(req.offset()).Limit(req.PageSize).Find(&users).Error; err != nil {
		return nil, err
	}

	return &ListResult[models.User]{Total: total, Page: req.Page, PageSize: req.PageSize, Items: users}, nil
}

// PrepareFlagUpdate returns the admin change to account flags, or nil when
// the request changes nothing. Apply it through SessionManager.RevokeAll.
func (s *AccountService) PrepareFlagUpdate(ctx context.Context, id uint, req *UpdateUserRequest) (CredentialChange, error) {
	if _, err := s.GetUserByID(ctx, id); err != nil {
		return nil, err
	}

	updates := map[string]interface{}{}
	if req.IsActive != nil {
		updates["is_active"] = *req.IsActive
	}
	if req.IsAdmin != nil {
		updates["is_admin"] = *req.IsAdmin
	}
	if len(updates) == 0 {
		return nil, nil
	}

	return func(tx *gorm.DB) error {
		return tx.Model(&models.User{}).Where("id = ?", id).Updates(updates).Error
	}, nil
}

// UpdateProfile edits the caller's own profile fields.
func (s *AccountService) UpdateProfile(ctx context.Context, userID uint, req *UpdateProfileRequest) (*models.User, error) {
	user, err := s.GetUserByID(ctx, userID)
	if err != nil {
		return nil, err
	}

	updates := map[string]interface{}{}
	if req.ImageURL != nil {
		image := strings.TrimSpace(*req.ImageURL)
		if image != "" && !validImageURL(image) {
			return nil, ErrInvalidImageURL
		}
		updates["image_url"] = image
	}
	if req.FirstName != nil {
		updates["first_name"] = truncate(strings.TrimSpace(*req.FirstName), 50)
	}
	if req.LastName != nil {
		updates["last_name"] = truncate(strings.TrimSpace(*req.LastName), 50)
	}
	if req.PhoneNumber != nil {
		updates["phone_number"] = truncate(strings.TrimSpace(*req.PhoneNumber), 20)
	}
	if req.Department != nil {
		updates["department"] = truncate(strings.TrimSpace(*req.Department), 300)
	}
	if len(updates) == 0 {
		return user, nil
	}

	if err := s.db.WithContext(ctx).Model(user).Updates(updates).Error; err != nil {
		return nil, err
	}
	return s.GetUserByID(ctx, userID)
}

func validImageURL(raw string) bool {
	if len(raw) > 500 {
		return false
	}
	u, err := url.ParseRequestURI(raw)
	if err != nil {
		return false
	}
	return (u.Scheme == "http" || u.Scheme == "https") && u.Host != ""
}

// CreateAdminIfNotExists seeds an administrator account on first start.
func (s *AccountService) CreateAdminIfNotExists(ctx context.Context, email, password string) (bool, error) {
	email = normalizeEmail(email)
	if email == "" || password == "" {
		return false, nil
	}

	var count int64
	if err := s.db.WithContext(ctx).Model(&models.User{}).Where("email = ?", email).Count(&count).Error; err != nil {
		return false, err
	}
	if count > 0 {
		return false, nil
	}

	hash, err := utils.HashPassword(password)
	if err != nil {
		return false, err
	}
	admin := &models.User{
		Email:      email,
		Username:   "admin",
		Password:   hash,
		IsAdmin:    true,
		IsActive:   true,
		IsVerified: true,
	}
	if err := s.db.WithContext(ctx).Create(admin).Error; err != nil {
		return false, err
	}
	return true, nil
}
