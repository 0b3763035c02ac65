package services

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"time"

	"github.com/webcrawler/backend/internal/config"
	"github.com/webcrawler/backend/internal/models"
	"github.com/webcrawler/backend/internal/utils"
	"github.com/webcrawler/backend/pkg/logger"
	"gorm.io/gorm"
)

// ErrInvalidResetToken covers malformed, forged, expired and already used
// reset tokens alike.
var ErrInvalidResetToken = errors.New("invalid or expired reset token")

type ForgotPasswordRequest struct {
	Email string `json:"email" binding:"required"`
}

type ResetPasswordRequest struct {
	Token    string `json:"token" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// PasswordResetService issues forgot-password links and redeems them.
// A token is usable once: it is bound to the password hash it was issued
// against, so the reset itself invalidates it.
type PasswordResetService struct {
	db      *gorm.DB
	codec   *utils.TokenCodec
	mailer  Mailer
	ttl     time.Duration
	baseURL string
}

func NewPasswordResetService(db *gorm.DB, codec *utils.TokenCodec, mailer Mailer, cfg config.ResetConfig) *PasswordResetService {
	return &PasswordResetService{
		db:      db,
		codec:   codec,
		mailer:  mailer,
		ttl:     cfg.TTL(),
		baseURL: cfg.URL,
	}
}

// RequestReset mails a reset link to an active account. Unknown or disabled
// emails are not reported to the caller.
func (s *PasswordResetService) RequestReset(ctx context.Context, req *ForgotPasswordRequest) error {
	email := normalizeEmail(req.Email)

	var user models.User
	err := s.db.WithContext(ctx).Where("email = ?", email).Take(&user).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		logger.Info().Str("email", email).Msg("password reset requested for unknown email")
		return nil
	}
	if err != nil {
		return err
	}
	if !user.IsActive || !user.IsVerified {
		logger.Info().Uint("user_id", user.ID).Msg("password reset requested for disabled account")
		return nil
	}

	token, exp, err := s.codec.IssueReset(user.Email, user.Password, s.ttl)
	if err != nil {
		return fmt.Errorf("issue reset token: %w", err)
	}
	link, err := s.resetURL(token)
	if err != nil {
		return err
	}

	if err := s.mailer.SendPasswordReset(ctx, resetMailFor(&user, link, exp)); err != nil {
		return fmt.Errorf("send reset mail: %w", err)
	}
	return nil
}

// PrepareReset validates a reset token and the new password. The returned
// change stores the password; pass it to SessionManager.RevokeAll for the
// returned user.
func (s *PasswordResetService) PrepareReset(ctx context.Context, req *ResetPasswordRequest) (uint, CredentialChange, error) {
	claims, err := s.codec.DecodeReset(req.Token)
	if err != nil {
		logger.Debug().Err(err).Msg("reset token rejected")
		return 0, nil, ErrInvalidResetToken
	}

	var user models.User
	err = s.db.WithContext(ctx).Where("email = ?", claims.Subject).Take(&user).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return 0, nil, ErrInvalidResetToken
	}
	if err != nil {
		return 0, nil, err
	}
	if !user.IsActive || !user.IsVerified || utils.PasswordFingerprint(user.Password) != claims.Fingerprint {
		return 0, nil, ErrInvalidResetToken
	}

	change, err := replacePassword(&user, req.Password, ErrInvalidResetToken)
	if err != nil {
		return 0, nil, err
	}
	return user.ID, change, nil
}

func (s *PasswordResetService) resetURL(token string) (string, error) {
	u, err := url.Parse(s.baseURL)
	if err != nil {
		return "", fmt.Errorf("parse reset url: %w", err)
	}
	q := u.Query()
	q.Set("token", token)
	u.RawQuery = q.Encode()
	return u.String(), nil
}
