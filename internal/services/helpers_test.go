package services

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/webcrawler/backend/internal/config"
	"github.com/webcrawler/backend/internal/models"
	"github.com/webcrawler/backend/internal/utils"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

const testSecret = "services-test-secret"

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := models.Open(&config.DatabaseConfig{Driver: "sqlite", DSN: ":memory:"}, gormlogger.Silent)
	require.NoError(t, err)
	require.NoError(t, models.Migrate(db))
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			sqlDB.Close()
		}
	})
	return db
}

var userSeq int

func createUser(t *testing.T, db *gorm.DB, isAdmin bool) *models.User {
	t.Helper()
	userSeq++
	user := &models.User{
		Email:      fmt.Sprintf("user%d@example.com", userSeq),
		Username:   fmt.Sprintf("user%d", userSeq),
		Password:   "unused",
		IsAdmin:    isAdmin,
		IsActive:   true,
		IsVerified: true,
	}
	require.NoError(t, db.Create(user).Error)
	return user
}

func testJWTConfig() *config.JWTConfig {
	return &config.JWTConfig{
		Secret:       testSecret,
		AccessTTLMs:  time.Hour.Milliseconds(),
		RefreshTTLMs: (24 * time.Hour).Milliseconds(),
	}
}

type testEnv struct {
	db       *gorm.DB
	codec    *utils.TokenCodec
	store    *GormTokenStore
	accounts *AccountService
	sessions *SessionManager
	guard    *AuthGuard
}

func newTestEnv(t *testing.T, opts ...utils.CodecOption) *testEnv {
	t.Helper()
	db := newTestDB(t)
	cfg := testJWTConfig()
	codec, err := utils.NewTokenCodec(cfg, opts...)
	require.NoError(t, err)

	store := NewTokenStore(db)
	accounts := NewAccountService(db)
	return &testEnv{
		db:       db,
		codec:    codec,
		store:    store,
		accounts: accounts,
		sessions: NewSessionManager(cfg, codec, store, accounts),
		guard:    NewAuthGuard(codec, store),
	}
}

func (e *testEnv) login(t *testing.T, user *models.User) *TokenPair {
	t.Helper()
	pair, err := e.sessions.Login(context.Background(), Principal{UserID: user.ID, IsAdmin: user.IsAdmin}, ClientMeta{IP: "127.0.0.1", UserAgent: "test"})
	require.NoError(t, err)
	return pair
}

func (e *testEnv) liveCount(t *testing.T, userID uint) int {
	t.Helper()
	recs, err := e.store.LiveRecords(context.Background(), userID)
	require.NoError(t, err)
	return len(recs)
}
