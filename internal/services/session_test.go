package services

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/webcrawler/backend/internal/config"
	"github.com/webcrawler/backend/internal/utils"
	"gorm.io/gorm"
)

func TestSessionError(t *testing.T) {
	err := error(&SessionError{Op: "refresh", Reason: utils.ErrExpired})

	assert.ErrorIs(t, err, ErrUnauthenticated)
	assert.ErrorIs(t, err, utils.ErrExpired)
	assert.NotErrorIs(t, err, ErrWrongTokenType)
}

func TestSession_LoginRefreshLogout(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	user := createUser(t, env.db, false)

	pair := env.login(t, user)
	require.NotNil(t, pair.AccessExpireAt)
	require.NotNil(t, pair.RefreshExpireAt)

	p, err := env.guard.Authenticate(ctx, pair.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, Principal{UserID: user.ID}, p)

	next, err := env.sessions.Refresh(ctx, &RefreshRequest{RefreshToken: pair.RefreshToken}, ClientMeta{})
	require.NoError(t, err)
	assert.NotEqual(t, pair.AccessToken, next.AccessToken)
	assert.NotEqual(t, pair.RefreshToken, next.RefreshToken)

	_, err = env.guard.Authenticate(ctx, pair.AccessToken)
	assert.ErrorIs(t, err, ErrUnauthenticated, "old access token must be superseded")
	_, err = env.sessions.Refresh(ctx, &RefreshRequest{RefreshToken: pair.RefreshToken}, ClientMeta{})
	assert.ErrorIs(t, err, ErrUnauthenticated, "old refresh token must be superseded")

	_, err = env.guard.Authenticate(ctx, next.AccessToken)
	require.NoError(t, err)

	require.NoError(t, env.sessions.Logout(ctx, Principal{UserID: user.ID}, next.AccessToken))
	_, err = env.guard.Authenticate(ctx, next.AccessToken)
	assert.ErrorIs(t, err, ErrUnauthenticated)
	_, err = env.sessions.Refresh(ctx, &RefreshRequest{RefreshToken: next.RefreshToken}, ClientMeta{})
	assert.ErrorIs(t, err, ErrUnauthenticated, "logout also ends the refresh token")

	assert.Equal(t, 0, env.liveCount(t, user.ID))
}

func TestSession_SecondLoginSupersedesFirst(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	user := createUser(t, env.db, true)

	first := env.login(t, user)
	second := env.login(t, user)

	_, err := env.guard.Authenticate(ctx, first.AccessToken)
	assert.ErrorIs(t, err, ErrUnauthenticated)

	p, err := env.guard.Authenticate(ctx, second.AccessToken)
	require.NoError(t, err)
	assert.True(t, p.IsAdmin)
	assert.Equal(t, 1, env.liveCount(t, user.ID))
}

func TestSession_LoginUnknownPrincipal(t *testing.T) {
	env := newTestEnv(t)

	_, err := env.sessions.Login(context.Background(), Principal{UserID: 404}, ClientMeta{})
	assert.ErrorIs(t, err, ErrUnauthenticated)
}

func TestSession_RefreshRejectsAccessToken(t *testing.T) {
	env := newTestEnv(t)
	user := createUser(t, env.db, false)
	pair := env.login(t, user)

	_, err := env.sessions.Refresh(context.Background(), &RefreshRequest{RefreshToken: pair.AccessToken}, ClientMeta{})
	assert.ErrorIs(t, err, ErrUnauthenticated)
	assert.ErrorIs(t, err, ErrWrongTokenType)
	assert.Equal(t, 1, env.liveCount(t, user.ID), "a rejected refresh must not touch the live record")
}

func TestSession_RefreshRejectsGarbage(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	for _, token := range []string{"", "   ", "garbage", "a.b.c"} {
		_, err := env.sessions.Refresh(ctx, &RefreshRequest{RefreshToken: token}, ClientMeta{})
		assert.ErrorIs(t, err, ErrUnauthenticated, "token %q", token)
	}
}

func TestSession_RefreshRejectsForeignSignature(t *testing.T) {
	env := newTestEnv(t)
	user := createUser(t, env.db, false)
	env.login(t, user)

	other, err := utils.NewTokenCodec(&config.JWTConfig{Secret: "other-secret"})
	require.NoError(t, err)
	forged, _, err := other.Issue(user.ID, true, utils.TokenTypeRefresh, time.Hour)
	require.NoError(t, err)

	_, err = env.sessions.Refresh(context.Background(), &RefreshRequest{RefreshToken: forged}, ClientMeta{})
	assert.ErrorIs(t, err, utils.ErrBadSignature)
}

func TestSession_RefreshRejectsDisabledAccount(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	user := createUser(t, env.db, false)
	pair := env.login(t, user)

	require.NoError(t, env.db.Model(user).Update("is_active", false).Error)

	_, err := env.sessions.Refresh(ctx, &RefreshRequest{RefreshToken: pair.RefreshToken}, ClientMeta{})
	assert.ErrorIs(t, err, ErrUnauthenticated)
	assert.ErrorIs(t, err, ErrPrincipalNotFound)
}

func TestSession_RefreshPicksUpRoleChange(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	user := createUser(t, env.db, false)
	pair := env.login(t, user)

	require.NoError(t, env.db.Model(user).Update("is_admin", true).Error)

	next, err := env.sessions.Refresh(ctx, &RefreshRequest{RefreshToken: pair.RefreshToken}, ClientMeta{})
	require.NoError(t, err)
	p, err := env.guard.Authenticate(ctx, next.AccessToken)
	require.NoError(t, err)
	assert.True(t, p.IsAdmin)
}

func TestSession_ConcurrentRefreshSingleWinner(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	user := createUser(t, env.db, false)
	pair := env.login(t, user)

	const callers = 8
	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		winners  []*TokenPair
		failures int
	)
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			next, err := env.sessions.Refresh(ctx, &RefreshRequest{RefreshToken: pair.RefreshToken}, ClientMeta{})
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				if errors.Is(err, ErrUnauthenticated) {
					failures++
				}
				return
			}
			winners = append(winners, next)
		}()
	}
	wg.Wait()

	require.Len(t, winners, 1)
	assert.Equal(t, callers-1, failures)
	assert.Equal(t, 1, env.liveCount(t, user.ID))

	_, err := env.guard.Authenticate(ctx, winners[0].AccessToken)
	assert.NoError(t, err)
}

func TestSession_ConcurrentLoginSingleLiveRecord(t *testing.T) {
	env := newTestEnv(t)
	user := createUser(t, env.db, false)

	var wg sync.WaitGroup
	for i := 0; i < 6; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := env.sessions.Login(context.Background(), Principal{UserID: user.ID}, ClientMeta{})
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, env.liveCount(t, user.ID))
}

func TestSession_LogoutTwice(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	user := createUser(t, env.db, false)
	pair := env.login(t, user)

	require.NoError(t, env.sessions.Logout(ctx, Principal{UserID: user.ID}, pair.AccessToken))
	err := env.sessions.Logout(ctx, Principal{UserID: user.ID}, pair.AccessToken)
	assert.ErrorIs(t, err, ErrUnauthenticated)
}

func TestSession_RevokeAll(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	user := createUser(t, env.db, false)
	pair := env.login(t, user)

	require.NoError(t, env.sessions.RevokeAll(ctx, user.ID))

	_, err := env.guard.Authenticate(ctx, pair.AccessToken)
	assert.ErrorIs(t, err, ErrUnauthenticated)
	_, err = env.sessions.Refresh(ctx, &RefreshRequest{RefreshToken: pair.RefreshToken}, ClientMeta{})
	assert.ErrorIs(t, err, ErrUnauthenticated)
}

func TestSession_NonExpiringTokens(t *testing.T) {
	db := newTestDB(t)
	cfg := testJWTConfig()
	cfg.AccessTTLMs = -1
	cfg.RefreshTTLMs = -1
	cfg.AllowNonExpiring = true

	issuedLongAgo := time.Now().Add(-365 * 24 * time.Hour)
	oldCodec, err := utils.NewTokenCodec(cfg, utils.WithClock(func() time.Time { return issuedLongAgo }))
	require.NoError(t, err)
	codec, err := utils.NewTokenCodec(cfg)
	require.NoError(t, err)

	store := NewTokenStore(db)
	user := createUser(t, db, false)

	pair, err := NewSessionManager(cfg, oldCodec, store, nil).Login(context.Background(), Principal{UserID: user.ID}, ClientMeta{})
	require.NoError(t, err)
	assert.Nil(t, pair.AccessExpireAt)
	assert.Nil(t, pair.RefreshExpireAt)

	_, err = NewAuthGuard(codec, store).Authenticate(context.Background(), pair.AccessToken)
	assert.NoError(t, err)
}

func TestSession_RevokeAllRollsBackOnFailedChange(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	user := createUser(t, env.db, false)
	pair := env.login(t, user)

	failing := func(tx *gorm.DB) error { return errors.New("write failed") }
	require.Error(t, env.sessions.RevokeAll(ctx, user.ID, failing))

	_, err := env.guard.Authenticate(ctx, pair.AccessToken)
	assert.NoError(t, err, "sessions survive when the change does not commit")
}
