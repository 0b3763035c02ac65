package services

import (
	"context"
	"time"

	"github.com/webcrawler/backend/internal/models"
	"github.com/webcrawler/backend/pkg/logger"
)

// PasswordResetMail is the content of a forgot-password message.
type PasswordResetMail struct {
	To        string
	Name      string
	ResetURL  string
	ExpiresAt time.Time
}

// Mailer delivers account mail.
type Mailer interface {
	SendPasswordReset(ctx context.Context, mail PasswordResetMail) error
}

// LogMailer writes messages to the application log instead of sending them.
// It is the default until an SMTP transport is configured.
type LogMailer struct{}

func NewLogMailer() *LogMailer {
	return &LogMailer{}
}

func (LogMailer) SendPasswordReset(_ context.Context, mail PasswordResetMail) error {
	logger.Info().
		Str("to", mail.To).
		Str("name", mail.Name).
		Str("reset_url", mail.ResetURL).
		Time("expires_at", mail.ExpiresAt).
		Msg("password reset mail")
	return nil
}

func resetMailFor(user *models.User, resetURL string, expiresAt time.Time) PasswordResetMail {
	name := user.FullName()
	if name == "" {
		name = user.Username
	}
	return PasswordResetMail{To: user.Email, Name: name, ResetURL: resetURL, ExpiresAt: expiresAt}
}
