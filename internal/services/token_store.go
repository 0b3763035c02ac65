package services

import (
	"context"
	"errors"
	"time"

	"github.com/webcrawler/backend/internal/models"
	"github.com/webcrawler/backend/internal/utils"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

var (
	ErrTokenNotFound     = errors.New("no live token record")
	ErrPrincipalNotFound = errors.New("principal not found")
)

// CredentialChange is a write that must commit together with the expiry of
// a principal's sessions, such as a password or role update.
type CredentialChange func(tx *gorm.DB) error

// TokenStore persists issued pairs. At most one live record exists per
// principal; UpsertActive and RotateRefresh keep that true under concurrency.
type TokenStore interface {
	InvalidateAll(ctx context.Context, principalID uint, changes ...CredentialChange) error
	UpsertActive(ctx context.Context, principalID uint, pair *TokenPair, meta ClientMeta) (*models.Token, error)
	RotateRefresh(ctx context.Context, principalID uint, presented string, pair *TokenPair, meta ClientMeta) (*models.Token, error)
	FindLiveByAccessToken(ctx context.Context, token string, principalID uint) (*models.Token, error)
	FindLiveByRefreshToken(ctx context.Context, token string) (*models.Token, error)
	MarkExpiredByAccessToken(ctx context.Context, token string, principalID uint) error
}

type GormTokenStore struct {
	db *gorm.DB
}

func NewTokenStore(db *gorm.DB) *GormTokenStore {
	return &GormTokenStore{db: db}
}

// InvalidateAll expires every live record of the principal. Any changes run
// first in the same transaction, under the principal's row lock, so either
// all of them commit together with the expiry or none do.
func (s *GormTokenStore) InvalidateAll(ctx context.Context, principalID uint, changes ...CredentialChange) error {
	if len(changes) == 0 {
		return expireLive(s.db.WithContext(ctx), principalID)
	}

	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := lockPrincipal(tx, principalID); err != nil {
			return err
		}
		for _, change := range changes {
			if change == nil {
				continue
			}
			if err := change(tx); err != nil {
				return err
			}
		}
		return expireLive(tx, principalID)
	})
}

// UpsertActive expires all live records of the principal and inserts pair as
// the only live one, in a single transaction serialised on the user row.
func (s *GormTokenStore) UpsertActive(ctx context.Context, principalID uint, pair *TokenPair, meta ClientMeta) (*models.Token, error) {
	var rec *models.Token
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := lockPrincipal(tx, principalID); err != nil {
			return err
		}
		if err := expireLive(tx, principalID); err != nil {
			return err
		}
		rec = newTokenRecord(principalID, pair, meta)
		return tx.Create(rec).Error
	})
	if err != nil {
		return nil, err
	}
	return rec, nil
}

// RotateRefresh replaces the live record holding presented with pair. Only
// one of several concurrent callers presenting the same refresh token wins;
// the rest get ErrTokenNotFound.
func (s *GormTokenStore) RotateRefresh(ctx context.Context, principalID uint, presented string, pair *TokenPair, meta ClientMeta) (*models.Token, error) {
	var rec *models.Token
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := lockPrincipal(tx, principalID); err != nil {
			return err
		}

		res := tx.Model(&models.Token{}).
			Where("user_id = ? AND refresh_token_hash = ? AND is_expired = ?", principalID, utils.HashToken(presented), false).
			Update("is_expired", true)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return ErrTokenNotFound
		}

		if err := expireLive(tx, principalID); err != nil {
			return err
		}
		rec = newTokenRecord(principalID, pair, meta)
		return tx.Create(rec).Error
	})
	if err != nil {
		return nil, err
	}
	return rec, nil
}

func (s *GormTokenStore) FindLiveByAccessToken(ctx context.Context, token string, principalID uint) (*models.Token, error) {
	var rec models.Token
	err := s.db.WithContext(ctx).
		Where("access_token_hash = ? AND user_id = ? AND is_expired = ?", utils.HashToken(token), principalID, false).
		Take(&rec).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrTokenNotFound
	}
	if err != nil {
		return nil, err
	}
	return &rec, nil
}

func (s *GormTokenStore) FindLiveByRefreshToken(ctx context.Context, token string) (*models.Token, error) {
	var rec models.Token
	err := s.db.WithContext(ctx).
		Where("refresh_token_hash = ? AND is_expired = ?", utils.HashToken(token), false).
		Take(&rec).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrTokenNotFound
	}
	if err != nil {
		return nil, err
	}
	return &rec, nil
}

// MarkExpiredByAccessToken expires the live record holding token.
func (s *GormTokenStore) MarkExpiredByAccessToken(ctx context.Context, token string, principalID uint) error {
	res := s.db.WithContext(ctx).Model(&models.Token{}).
		Where("access_token_hash = ? AND user_id = ? AND is_expired = ?", utils.HashToken(token), principalID, false).
		Update("is_expired", true)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrTokenNotFound
	}
	return nil
}

// ExpireStale marks live records whose refresh token has passed its expiry.
// Such records can no longer authenticate anything; this only tidies state.
func (s *GormTokenStore) ExpireStale(ctx context.Context, now time.Time) (int64, error) {
	res := s.db.WithContext(ctx).Model(&models.Token{}).
		Where("is_expired = ? AND refresh_expires_at IS NOT NULL AND refresh_expires_at < ?", false, now.UTC()).
		Update("is_expired", true)
	return res.RowsAffected, res.Error
}

// LiveRecords lists the live records of a principal.
func (s *GormTokenStore) LiveRecords(ctx context.Context, principalID uint) ([]models.Token, error) {
	var recs []models.Token
	err := s.db.WithContext(ctx).
		Where("user_id = ? AND is_expired = ?", principalID, false).
		Order("id").
		Find(&recs).Error
	return recs, err
}

// CountLive counts live records across all principals.
func (s *GormTokenStore) CountLive(ctx context.Context) (int64, error) {
	var n int64
	err := s.db.WithContext(ctx).Model(&models.Token{}).Where("is_expired = ?", false).Count(&n).Error
	return n, err
}

// lockPrincipal takes a row lock on the user so that writers for the same
// principal run one at a time. SQLite has no row locks; its single
// connection already serialises transactions.
func lockPrincipal(tx *gorm.DB, principalID uint) error {
	query := tx
	if tx.Dialector.Name() != "sqlite" {
		query = tx.Clauses(clause.Locking{Strength: "UPDATE"})
	}

	var user models.User
	err := query.
		Select("id").
		Where("id = ?", principalID).
		Take(&user).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrPrincipalNotFound
	}
	return err
}

func expireLive(tx *gorm.DB, principalID uint) error {
	return tx.Model(&models.Token{}).
		Where("user_id = ? AND is_expired = ?", principalID, false).
		Update("is_expired", true).Error
}

func newTokenRecord(principalID uint, pair *TokenPair, meta ClientMeta) *models.Token {
	return &models.Token{
		UserID:           principalID,
		AccessTokenHash:  utils.HashToken(pair.AccessToken),
		RefreshTokenHash: utils.HashToken(pair.RefreshToken),
		AccessExpiresAt:  pair.AccessExpireAt,
		RefreshExpiresAt: pair.RefreshExpireAt,
		CreatedByIP:      truncate(meta.IP, 64),
		UserAgent:        truncate(meta.UserAgent, 255),
	}
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
