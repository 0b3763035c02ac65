package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/webcrawler/backend/internal/config"
	"github.com/webcrawler/backend/internal/utils"
	"github.com/webcrawler/backend/pkg/logger"
)

var (
	// ErrUnauthenticated is matched by every authentication failure.
	ErrUnauthenticated = errors.New("unauthenticated")
	ErrWrongTokenType  = errors.New("wrong token type")
	ErrSuperseded      = errors.New("token superseded or revoked")
)

// SessionError is an authentication failure. It matches ErrUnauthenticated
// and unwraps to the internal reason, which callers must not expose.
type SessionError struct {
	Op     string
	Reason error
}

func (e *SessionError) Error() string {
	return fmt.Sprintf("%s: %v: %v", e.Op, ErrUnauthenticated, e.Reason)
}

func (e *SessionError) Is(target error) bool {
	return target == ErrUnauthenticated
}

func (e *SessionError) Unwrap() error {
	return e.Reason
}

func unauthenticated(op string, reason error) error {
	observe(op, outcomeRejected)
	logger.Debug().Str("op", op).Err(reason).Msg("authentication rejected")
	return &SessionError{Op: op, Reason: reason}
}

// PrincipalDirectory resolves the current identity of a user. It returns
// ErrPrincipalNotFound for users that may no longer hold a session.
type PrincipalDirectory interface {
	LookupPrincipal(ctx context.Context, userID uint) (Principal, error)
}

type RefreshRequest struct {
	RefreshToken string `json:"refresh_token" binding:"required"`
}

// SessionManager issues, rotates and revokes token pairs.
type SessionManager struct {
	codec      *utils.TokenCodec
	store      TokenStore
	directory  PrincipalDirectory
	accessTTL  time.Duration
	refreshTTL time.Duration
}

func NewSessionManager(cfg *config.JWTConfig, codec *utils.TokenCodec, store TokenStore, directory PrincipalDirectory) *SessionManager {
	return &SessionManager{
		codec:      codec,
		store:      store,
		directory:  directory,
		accessTTL:  cfg.AccessTTL(),
		refreshTTL: cfg.RefreshTTL(),
	}
}

// Login issues a new pair for an already authenticated principal and makes
// it the principal's only live pair.
func (s *SessionManager) Login(ctx context.Context, p Principal, meta ClientMeta) (*TokenPair, error) {
	pair, err := s.mint(p)
	if err != nil {
		observe("login", outcomeError)
		return nil, err
	}

	if _, err := s.store.UpsertActive(ctx, p.UserID, pair, meta); err != nil {
		if errors.Is(err, ErrPrincipalNotFound) {
			return nil, unauthenticated("login", err)
		}
		observe("login", outcomeError)
		return nil, fmt.Errorf("persist token pair: %w", err)
	}

	observe("login", outcomeSuccess)
	logger.Info().Uint("user_id", p.UserID).Str("ip", meta.IP).Msg("session opened")
	return pair, nil
}

// Refresh exchanges a live refresh token for a new pair. The presented token
// and its access sibling stop working once this returns successfully.
func (s *SessionManager) Refresh(ctx context.Context, req *RefreshRequest, meta ClientMeta) (*TokenPair, error) {
	const op = "refresh"

	token := strings.TrimSpace(req.RefreshToken)
	if token == "" {
		return nil, unauthenticated(op, utils.ErrMalformed)
	}

	claims, err := s.codec.Decode(token)
	if err != nil {
		return nil, unauthenticated(op, err)
	}
	if claims.Type != utils.TokenTypeRefresh {
		return nil, unauthenticated(op, ErrWrongTokenType)
	}

	rec, err := s.store.FindLiveByRefreshToken(ctx, token)
	if errors.Is(err, ErrTokenNotFound) {
		return nil, unauthenticated(op, ErrSuperseded)
	}
	if err != nil {
		observe(op, outcomeError)
		return nil, err
	}
	if rec.UserID != claims.UserID {
		return nil, unauthenticated(op, ErrSuperseded)
	}

	p, err := s.resolve(ctx, claims)
	if err != nil {
		if errors.Is(err, ErrPrincipalNotFound) {
			return nil, unauthenticated(op, err)
		}
		observe(op, outcomeError)
		return nil, err
	}

	pair, err := s.mint(p)
	if err != nil {
		observe(op, outcomeError)
		return nil, err
	}

	if _, err := s.store.RotateRefresh(ctx, p.UserID, token, pair, meta); err != nil {
		switch {
		case errors.Is(err, ErrTokenNotFound):
			return nil, unauthenticated(op, ErrSuperseded)
		case errors.Is(err, ErrPrincipalNotFound):
			return nil, unauthenticated(op, err)
		}
		observe(op, outcomeError)
		return nil, fmt.Errorf("rotate token pair: %w", err)
	}

	observe(op, outcomeSuccess)
	return pair, nil
}

// Logout expires the live record holding accessToken.
func (s *SessionManager) Logout(ctx context.Context, p Principal, accessToken string) error {
	err := s.store.MarkExpiredByAccessToken(ctx, accessToken, p.UserID)
	if errors.Is(err, ErrTokenNotFound) {
		return unauthenticated("logout", ErrSuperseded)
	}
	if err != nil {
		observe("logout", outcomeError)
		return err
	}
	observe("logout", outcomeSuccess)
	logger.Info().Uint("user_id", p.UserID).Msg("session closed")
	return nil
}

// RevokeAll expires every live session of a user. Changes commit atomically
// with the revocation; if any of them fails, nothing is written.
func (s *SessionManager) RevokeAll(ctx context.Context, userID uint, changes ...CredentialChange) error {
	if err := s.store.InvalidateAll(ctx, userID, changes...); err != nil {
		observe("revoke", outcomeError)
		return err
	}
	observe("revoke", outcomeSuccess)
	return nil
}

// resolve returns the principal's current identity, falling back to the
// claims when no directory is configured.
func (s *SessionManager) resolve(ctx context.Context, claims *utils.Claims) (Principal, error) {
	if s.directory == nil {
		return Principal{UserID: claims.UserID, IsAdmin: claims.IsAdmin}, nil
	}
	return s.directory.LookupPrincipal(ctx, claims.UserID)
}

func (s *SessionManager) mint(p Principal) (*TokenPair, error) {
	access, accessClaims, err := s.codec.Issue(p.UserID, p.IsAdmin, utils.TokenTypeAccess, s.accessTTL)
	if err != nil {
		return nil, fmt.Errorf("issue access token: %w", err)
	}
	refresh, refreshClaims, err := s.codec.Issue(p.UserID, p.IsAdmin, utils.TokenTypeRefresh, s.refreshTTL)
	if err != nil {
		return nil, fmt.Errorf("issue refresh token: %w", err)
	}

	return &TokenPair{
		UserID:          p.UserID,
		AccessToken:     access,
		RefreshToken:    refresh,
		AccessExpireAt:  accessClaims.Expiry(),
		RefreshExpireAt: refreshClaims.Expiry(),
	}, nil
}
