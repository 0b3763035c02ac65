package services

import (
	"context"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/webcrawler/backend/internal/utils"
)

func registerReq(email string) *RegisterRequest {
	return &RegisterRequest{
		Email:     email,
		UserName:  "alice",
		Password:  "secret1!",
		FirstName: "Alice",
	}
}

func TestAccount_Register(t *testing.T) {
	svc := NewAccountService(newTestDB(t))
	ctx := context.Background()

	user, err := svc.Register(ctx, registerReq("  Alice@Example.com "))
	require.NoError(t, err)
	assert.Equal(t, "alice@example.com", user.Email)
	assert.True(t, user.IsActive)
	assert.False(t, user.IsAdmin)
	assert.NotEqual(t, "secret1!", user.Password)
	assert.True(t, utils.CheckPassword("secret1!", user.Password))

	_, err = svc.Register(ctx, registerReq("alice@example.com"))
	assert.ErrorIs(t, err, ErrEmailTaken)
}

func TestAccount_RegisterValidation(t *testing.T) {
	svc := NewAccountService(newTestDB(t))

	tests := []struct {
		name    string
		req     *RegisterRequest
		wantErr error
	}{
		{"bad email", &RegisterRequest{Email: "not-an-email", UserName: "x", Password: "secret1!"}, ErrInvalidEmail},
		{"no digit", &RegisterRequest{Email: "a@b.com", UserName: "x", Password: "secret!!"}, ErrWeakPassword},
		{"no special", &RegisterRequest{Email: "a@b.com", UserName: "x", Password: "secret11"}, ErrWeakPassword},
		{"too short", &RegisterRequest{Email: "a@b.com", UserName: "x", Password: "s1!"}, ErrWeakPassword},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.Register(context.Background(), tt.req)
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestAccount_VerifyCredentials(t *testing.T) {
	db := newTestDB(t)
	svc := NewAccountService(db)
	ctx := context.Background()

	registered, err := svc.Register(ctx, registerReq("bob@example.com"))
	require.NoError(t, err)

	user, err := svc.VerifyCredentials(ctx, "BOB@example.com", "secret1!")
	require.NoError(t, err)
	assert.Equal(t, registered.ID, user.ID)
	assert.NotNil(t, user.LastLogin)

	_, err = svc.VerifyCredentials(ctx, "bob@example.com", "wrong1!")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
	_, err = svc.VerifyCredentials(ctx, "nobody@example.com", "secret1!")
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	require.NoError(t, db.Model(registered).Update("is_active", false).Error)
	_, err = svc.VerifyCredentials(ctx, "bob@example.com", "secret1!")
	assert.ErrorIs(t, err, ErrAccountDisabled)
}

func TestAccount_LookupPrincipal(t *testing.T) {
	db := newTestDB(t)
	svc := NewAccountService(db)
	ctx := context.Background()
	admin := createUser(t, db, true)

	p, err := svc.LookupPrincipal(ctx, admin.ID)
	require.NoError(t, err)
	assert.Equal(t, Principal{UserID: admin.ID, IsAdmin: true}, p)

	_, err = svc.LookupPrincipal(ctx, 12345)
	assert.ErrorIs(t, err, ErrPrincipalNotFound)

	require.NoError(t, db.Delete(admin).Error)
	_, err = svc.LookupPrincipal(ctx, admin.ID)
	assert.ErrorIs(t, err, ErrPrincipalNotFound, "deleted users hold no sessions")
}

func TestAccount_PreparePasswordChange(t *testing.T) {
	db := newTestDB(t)
	svc := NewAccountService(db)
	ctx := context.Background()
	user, err := svc.Register(ctx, registerReq("carol@example.com"))
	require.NoError(t, err)

	_, err = svc.PreparePasswordChange(ctx, user.ID, &ChangePasswordRequest{OldPassword: "nope", NewPassword: "newpass1!"})
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	_, err = svc.PreparePasswordChange(ctx, user.ID, &ChangePasswordRequest{OldPassword: "secret1!", NewPassword: "weak"})
	assert.ErrorIs(t, err, ErrWeakPassword)

	change, err := svc.PreparePasswordChange(ctx, user.ID, &ChangePasswordRequest{OldPassword: "secret1!", NewPassword: "newpass1!"})
	require.NoError(t, err)
	_, err = svc.VerifyCredentials(ctx, "carol@example.com", "newpass1!")
	assert.ErrorIs(t, err, ErrInvalidCredentials, "nothing is written before the change is applied")

	require.NoError(t, change(db))
	_, err = svc.VerifyCredentials(ctx, "carol@example.com", "newpass1!")
	assert.NoError(t, err)

	assert.ErrorIs(t, change(db), ErrInvalidCredentials, "a change prepared against a stale hash does not apply")
}

func TestAccount_ListUsersExcludesAdmins(t *testing.T) {
	db := newTestDB(t)
	svc := NewAccountService(db)
	createUser(t, db, true)
	for i := 0; i < 3; i++ {
		createUser(t, db, false)
	}

	page, err := svc.ListUsers(context.Background(), &UserListRequest{PageRequest: PageRequest{Page: 1, PageSize: 2}})
	require.NoError(t, err)
	assert.Equal(t, int64(3), page.Total)
	assert.Len(t, page.Items, 2)
	for _, u := range page.Items {
		assert.False(t, u.IsAdmin)
	}

	page, err = svc.ListUsers(context.Background(), &UserListRequest{PageRequest: PageRequest{Page: 2, PageSize: 2}})
	require.NoError(t, err)
	assert.Len(t, page.Items, 1)
}

func TestAccount_PrepareFlagUpdate(t *testing.T) {
	db := newTestDB(t)
	svc := NewAccountService(db)
	ctx := context.Background()
	user := createUser(t, db, false)

	change, err := svc.PrepareFlagUpdate(ctx, user.ID, &UpdateUserRequest{})
	require.NoError(t, err)
	assert.Nil(t, change, "empty request changes nothing")

	inactive := false
	change, err = svc.PrepareFlagUpdate(ctx, user.ID, &UpdateUserRequest{IsActive: &inactive})
	require.NoError(t, err)
	require.NoError(t, change(db))

	updated, err := svc.GetUserByID(ctx, user.ID)
	require.NoError(t, err)
	assert.False(t, updated.IsActive)
	assert.False(t, updated.IsAdmin)

	_, err = svc.PrepareFlagUpdate(ctx, 9999, &UpdateUserRequest{IsActive: &inactive})
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestAccount_UpdateProfile(t *testing.T) {
	db := newTestDB(t)
	svc := NewAccountService(db)
	ctx := context.Background()
	user := createUser(t, db, false)

	image := "https://cdn.example.com/a.png"
	first := "  Ada "
	updated, err := svc.UpdateProfile(ctx, user.ID, &UpdateProfileRequest{ImageURL: &image, FirstName: &first})
	require.NoError(t, err)
	assert.Equal(t, image, updated.ImageURL)
	assert.Equal(t, "Ada", updated.FirstName)
	assert.Equal(t, user.Email, updated.Email)

	for _, bad := range []string{"ftp://x/a.png", "not a url", "https://" + strings.Repeat("a", 500)} {
		bad := bad
		_, err := svc.UpdateProfile(ctx, user.ID, &UpdateProfileRequest{ImageURL: &bad})
		assert.ErrorIs(t, err, ErrInvalidImageURL, bad)
	}

	empty := ""
	updated, err = svc.UpdateProfile(ctx, user.ID, &UpdateProfileRequest{ImageURL: &empty})
	require.NoError(t, err)
	assert.Empty(t, updated.ImageURL, "an empty image_url clears the picture")

	_, err = svc.UpdateProfile(ctx, 9999, &UpdateProfileRequest{FirstName: &first})
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestAccount_ConcurrentRegisterSameEmail(t *testing.T) {
	svc := NewAccountService(newTestDB(t))

	const workers = 4
	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		created  int
		failures []error
	)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := svc.Register(context.Background(), registerReq("race@example.com"))
			mu.Lock()
			defer mu.Unlock()
			if err == nil {
				created++
				return
			}
			failures = append(failures, err)
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, created)
	for _, err := range failures {
		assert.ErrorIs(t, err, ErrEmailTaken)
	}
}

func TestAccount_CreateAdminIfNotExists(t *testing.T) {
	svc := NewAccountService(newTestDB(t))
	ctx := context.Background()

	created, err := svc.CreateAdminIfNotExists(ctx, "", "")
	require.NoError(t, err)
	assert.False(t, created, "seeding is skipped without credentials")

	created, err = svc.CreateAdminIfNotExists(ctx, "root@example.com", "rootpass1!")
	require.NoError(t, err)
	assert.True(t, created)

	created, err = svc.CreateAdminIfNotExists(ctx, "root@example.com", "rootpass1!")
	require.NoError(t, err)
	assert.False(t, created)

	user, err := svc.VerifyCredentials(ctx, "root@example.com", "rootpass1!")
	require.NoError(t, err)
	assert.True(t, user.IsAdmin)
}
